// Package dto はOpenAI互換chat-completions APIのリクエスト・レスポンス型を定義します。
package dto

// ChatRequest はchat-completionsリクエストのボディです。
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature"`
}

// Message は1件のチャットメッセージです。マルチモーダル入力のため
// Contentはパートの配列になります。
type Message struct {
	Role    string        `json:"role"`
	Content []ContentPart `json:"content"`
}

// ContentPart はメッセージ中の1パート（テキストまたは画像）です。
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL はdata URL形式で埋め込まれた画像を保持します。
type ImageURL struct {
	URL string `json:"url"`
}

// ChatResponse はchat-completionsレスポンスのボディです。
type ChatResponse struct {
	Choices []Choice       `json:"choices"`
	Error   *ErrorResponse `json:"error,omitempty"`
}

// Choice は生成された1候補です。
type Choice struct {
	Message ResponseMessage `json:"message"`
}

// ResponseMessage はモデルの応答メッセージです。
type ResponseMessage struct {
	Content string `json:"content"`
}

// ErrorResponse はAPIエラーの詳細です。
type ErrorResponse struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}
