// Package gemini はGoogle Gemini APIを使用するナンバープレート認識クライアントを提供します。
// VLM_PROVIDER=gemini のときに既定のOpenAI互換クライアントの代わりに使用されます。
package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"lpr_backend/internal/feature/recognition/usecase"
)

const (
	// DefaultModel はGemini APIのデフォルトモデルです。
	DefaultModel = "gemini-2.5-flash"
)

// GeminiAnalyzer はGoogle Gemini APIを使用して画像からナンバープレートを検出します。
type GeminiAnalyzer struct {
	client *genai.Client
	model  string
}

// GeminiAnalyzerがPlateAnalyzerを実装していることをコンパイル時に検証します。
var _ usecase.PlateAnalyzer = (*GeminiAnalyzer)(nil)

// NewGeminiAnalyzer はADCを使用してGeminiAnalyzerの新しいインスタンスを生成します。
// 環境変数 GOOGLE_GENAI_USE_VERTEXAI, GOOGLE_CLOUD_PROJECT, GOOGLE_CLOUD_LOCATION が必要です。
func NewGeminiAnalyzer(ctx context.Context) (*GeminiAnalyzer, error) {
	client, err := genai.NewClient(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiAnalyzer{client: client, model: DefaultModel}, nil
}

// AnalyzeImage はJPEG画像とプロンプトを送信し、モデルのテキスト応答を返します。
func (g *GeminiAnalyzer) AnalyzeImage(ctx context.Context, imageData []byte, prompt string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(imageData, "image/jpeg"),
			genai.NewPartFromText(prompt),
		}, genai.RoleUser),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("gemini API request failed: %w", err)
	}

	return resp.Text(), nil
}

// HealthCheck は最小のテキストリクエストでAPIへの疎通を確認します。
func (g *GeminiAnalyzer) HealthCheck(ctx context.Context) error {
	_, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text("ping"), nil)
	if err != nil {
		return fmt.Errorf("gemini API health check failed: %w", err)
	}
	return nil
}
