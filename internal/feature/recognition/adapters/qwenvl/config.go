// Package qwenvl はOpenAI互換のchat-completions APIを使用する
// ナンバープレート認識クライアントを提供します。
package qwenvl

import (
	"os"
	"strconv"
	"time"
)

const (
	// DefaultModel は推論に使用するデフォルトモデルです。
	DefaultModel = "qwen2.5-vl-72b-instruct"
	// DefaultBaseURL はAPIのデフォルトベースURLです。
	DefaultBaseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"
	// DefaultRequestsPerMinute はAPI呼び出しの1分あたりの上限です。
	DefaultRequestsPerMinute = 60
)

// Config はQwen-VL APIクライアントの設定を保持します。
type Config struct {
	APIKey            string        // 認証用APIキー
	BaseURL           string        // APIのベースURL（OpenAI互換エンドポイント）
	Model             string        // 使用するモデル名
	Timeout           time.Duration // HTTPリクエストタイムアウト
	RequestsPerMinute int           // レートリミット（1分あたりのリクエスト数）
}

// LoadConfig は環境変数からQwen-VLの設定を読み込みます。
// 推論は数十秒かかることがあるため、タイムアウトは長めに設定します。
func LoadConfig() Config {
	cfg := Config{
		APIKey:            os.Getenv("QWEN_API_KEY"),
		BaseURL:           os.Getenv("QWEN_BASE_URL"),
		Model:             os.Getenv("QWEN_MODEL"),
		Timeout:           120 * time.Second,
		RequestsPerMinute: DefaultRequestsPerMinute,
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if rpm, err := strconv.Atoi(os.Getenv("QWEN_RPM")); err == nil && rpm > 0 {
		cfg.RequestsPerMinute = rpm
	}
	return cfg
}
