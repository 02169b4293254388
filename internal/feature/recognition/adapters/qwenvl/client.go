package qwenvl

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"lpr_backend/internal/feature/recognition/adapters/qwenvl/dto"
	"lpr_backend/internal/feature/recognition/usecase"
	"lpr_backend/internal/shared/ratelimiter"
)

const (
	// maxTokens はモデル応答の最大トークン数です。
	maxTokens = 4096
	// temperature は生成の温度パラメータです。座標の再現性のため低く設定します。
	temperature = 0.1
)

// Client はOpenAI互換APIを使用するPlateAnalyzer実装です。
type Client struct {
	cfg     Config
	client  *http.Client
	limiter ratelimiter.RateLimiterInterface
}

// ClientがPlateAnalyzerを実装していることをコンパイル時に検証します。
var _ usecase.PlateAnalyzer = (*Client)(nil)

// NewClient は指定された設定とHTTPクライアントでClientの新しいインスタンスを生成します。
// APIのレートリミットに合わせてリクエスト頻度を制限します。
func NewClient(cfg Config, client *http.Client) *Client {
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = DefaultRequestsPerMinute
	}
	return &Client{
		cfg:     cfg,
		client:  client,
		limiter: ratelimiter.NewRateLimiter(rpm, time.Minute),
	}
}

// AnalyzeImage はJPEG画像をdata URLとして埋め込み、chat-completionsエンドポイントへ
// 送信してモデルのテキスト応答を返します。リトライは行いません。
func (c *Client) AnalyzeImage(ctx context.Context, imageData []byte, prompt string) (string, error) {
	dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(imageData)

	reqBody := dto.ChatRequest{
		Model: c.cfg.Model,
		Messages: []dto.Message{
			{
				Role: "user",
				Content: []dto.ContentPart{
					{Type: "image_url", ImageURL: &dto.ImageURL{URL: dataURL}},
					{Type: "text", Text: prompt},
				},
			},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}

	body, err := c.postChatCompletion(ctx, reqBody)
	if err != nil {
		return "", err
	}
	if body.Error != nil {
		return "", fmt.Errorf("qwenvl: %s", body.Error.Message)
	}
	if len(body.Choices) == 0 {
		return "", fmt.Errorf("qwenvl: response contains no choices")
	}
	return body.Choices[0].Message.Content, nil
}

// HealthCheck は最小のテキストリクエストでAPIへの疎通を確認します。
func (c *Client) HealthCheck(ctx context.Context) error {
	reqBody := dto.ChatRequest{
		Model: c.cfg.Model,
		Messages: []dto.Message{
			{
				Role:    "user",
				Content: []dto.ContentPart{{Type: "text", Text: "ping"}},
			},
		},
		MaxTokens:   1,
		Temperature: temperature,
	}

	body, err := c.postChatCompletion(ctx, reqBody)
	if err != nil {
		return err
	}
	if body.Error != nil {
		return fmt.Errorf("qwenvl: %s", body.Error.Message)
	}
	return nil
}

// postChatCompletion はリクエストを送信しデコード済みレスポンスを返します。
func (c *Client) postChatCompletion(ctx context.Context, reqBody dto.ChatRequest) (*dto.ChatResponse, error) {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	c.limiter.WaitIfNeeded()

	u := c.cfg.BaseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	res, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := res.Body.Close(); err != nil {
			slog.Warn("failed to close response body", "error", err)
		}
	}()

	if res.StatusCode >= 400 {
		return nil, fmt.Errorf("qwenvl http %d", res.StatusCode)
	}

	var body dto.ChatResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &body, nil
}
