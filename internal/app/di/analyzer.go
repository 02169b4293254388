// Package di provides dependency injection factories for creating application components.
package di

import (
	"context"
	"os"

	"lpr_backend/internal/feature/recognition/adapters/gemini"
	"lpr_backend/internal/feature/recognition/adapters/qwenvl"
	"lpr_backend/internal/feature/recognition/usecase"
	platformhttp "lpr_backend/internal/platform/http"
)

// NewPlateAnalyzer creates the configured PlateAnalyzer implementation.
// VLM_PROVIDER=gemini selects the Gemini client; anything else selects the
// OpenAI-compatible Qwen-VL client.
func NewPlateAnalyzer(ctx context.Context) (usecase.PlateAnalyzer, error) {
	if os.Getenv("VLM_PROVIDER") == "gemini" {
		return gemini.NewGeminiAnalyzer(ctx)
	}
	cfg := qwenvl.LoadConfig()
	httpClient := platformhttp.NewHTTPClient(cfg.Timeout)
	return qwenvl.NewClient(cfg, httpClient), nil
}
