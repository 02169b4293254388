// Package handler はrecognitionフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"lpr_backend/internal/api"
	"lpr_backend/internal/feature/recognition/domain/entity"
	"lpr_backend/internal/feature/recognition/usecase"
	"lpr_backend/internal/platform/metrics"
)

// CanaryHeader はCanaryリクエストを示すHTTPヘッダー名です。
const CanaryHeader = "X-Canary-Request"

// RecognitionUsecase は画像認識のユースケースインターフェースを定義します。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type RecognitionUsecase interface {
	Process(ctx context.Context, up usecase.Upload) (*usecase.ProcessResult, error)
}

// RecognitionHandler は画像アップロード・認識のHTTPリクエストを処理します。
type RecognitionHandler struct {
	uc RecognitionUsecase
	m  *metrics.Metrics
}

// NewRecognitionHandler はRecognitionHandlerの新しいインスタンスを生成します。
func NewRecognitionHandler(uc RecognitionUsecase, m *metrics.Metrics) *RecognitionHandler {
	return &RecognitionHandler{uc: uc, m: m}
}

// Upload は画像をアップロードして同期的にナンバープレート認識を実行します。
//
// エンドポイント: POST /api/v1/ocr/
// Content-Type: multipart/form-data
// フィールド: image（画像ファイル、最大10MB）, save_image（省略時true、falseはCanaryリクエストのみ有効）
// ヘッダー: X-Canary-Request: true でCanaryリクエストとして扱われます
func (h *RecognitionHandler) Upload(c *gin.Context) {
	start := time.Now()
	canary := strings.EqualFold(c.GetHeader(CanaryHeader), "true")

	file, err := c.FormFile("image")
	if err != nil {
		slog.Warn("画像ファイルの取得に失敗", "error", err, "remote_addr", c.ClientIP())
		h.recordFailure("failed", canary)
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:     "No image file provided",
			ErrorCode: api.ErrCodeMissingImage,
		})
		return
	}

	f, err := file.Open()
	if err != nil {
		slog.Error("画像ファイルのオープンに失敗", "error", err)
		h.recordFailure("failed", canary)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{
			Error:     "Failed to read uploaded image",
			ErrorCode: api.ErrCodeInternalError,
		})
		return
	}
	defer func() {
		if err := f.Close(); err != nil {
			slog.Warn("画像ファイルのクローズに失敗", "error", err)
		}
	}()

	imageData, err := io.ReadAll(f)
	if err != nil {
		slog.Error("画像データの読み取りに失敗", "error", err)
		h.recordFailure("failed", canary)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{
			Error:     "Failed to read uploaded image",
			ErrorCode: api.ErrCodeInternalError,
		})
		return
	}

	save := !strings.EqualFold(c.DefaultPostForm("save_image", "true"), "false")
	if !save && !canary {
		// save_image=false（削除を伴う）はCanaryリクエストのみ許可
		slog.Warn("非Canaryリクエストのsave_image=falseを無視", "remote_addr", c.ClientIP())
		save = true
	}

	result, err := h.uc.Process(c.Request.Context(), usecase.Upload{
		Filename:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		Data:        imageData,
		Save:        save,
		Canary:      canary,
	})
	if err != nil {
		h.handleProcessError(c, err, canary)
		return
	}

	h.m.UploadTotal.WithLabelValues("success").Inc()
	h.m.ProcessingTotal.WithLabelValues("completed").Inc()
	h.m.ProcessingDuration.WithLabelValues("completed").Observe(time.Since(start).Seconds())
	h.m.APIRequestDuration.Observe(result.APICallDuration.Seconds())
	h.m.PlatesDetectedTotal.Add(float64(result.Detection.PlateCount()))
	h.m.OCRTextsDetectedTotal.Add(float64(result.Detection.OCRCount()))
	if canary {
		h.m.CanaryRequestsTotal.WithLabelValues("success").Inc()
	}

	c.JSON(http.StatusOK, api.OCRUploadResponse{
		Success:             true,
		ImageID:             result.ImageID,
		Filename:            result.Filename,
		ProcessingTimeMS:    time.Since(start).Milliseconds(),
		Results:             toResultsResponse(result.Detection),
		Summary:             toSummaryResponse(result.Detection),
		ProcessingTimestamp: result.ProcessedAt.UTC().Format(time.RFC3339),
		CanaryRequest:       canary,
		ImageSaved:          result.Saved,
	})
}

// handleProcessError はユースケースのエラーをAPIエラーコードへ変換して返します。
func (h *RecognitionHandler) handleProcessError(c *gin.Context, err error, canary bool) {
	h.recordFailure("failed", canary)

	switch {
	case errors.Is(err, usecase.ErrMissingImage):
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:     "No image file provided",
			ErrorCode: api.ErrCodeMissingImage,
		})
	case errors.Is(err, usecase.ErrInvalidFileType):
		slog.Warn("許可されていないファイル形式", "error", err, "remote_addr", c.ClientIP())
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:     "Invalid file type. Allowed: jpeg, jpg, png, bmp",
			ErrorCode: api.ErrCodeInvalidFileType,
		})
	case errors.Is(err, usecase.ErrFileTooLarge):
		slog.Warn("ファイルサイズ超過", "error", err, "remote_addr", c.ClientIP())
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:     "File too large. Maximum size is 10MB",
			ErrorCode: api.ErrCodeFileTooLarge,
		})
	case errors.Is(err, usecase.ErrProcessingFailed):
		slog.Error("画像処理に失敗", "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{
			Error:     err.Error(),
			ErrorCode: api.ErrCodeProcessingFailed,
		})
	default:
		slog.Error("予期しないエラー", "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{
			Error:     "Internal server error",
			ErrorCode: api.ErrCodeInternalError,
		})
	}
}

// recordFailure は失敗系のメトリクスを記録します。
func (h *RecognitionHandler) recordFailure(status string, canary bool) {
	h.m.UploadTotal.WithLabelValues(status).Inc()
	h.m.ProcessingTotal.WithLabelValues(status).Inc()
	if canary {
		h.m.CanaryRequestsTotal.WithLabelValues(status).Inc()
	}
}

// toResultsResponse はドメインの検出結果をAPIレスポンス形式に変換します。
func toResultsResponse(det *entity.DetectionResult) api.ResultsResponse {
	out := api.ResultsResponse{Detections: make([]api.DetectionResponse, 0, len(det.Detections))}
	for _, d := range det.Detections {
		dr := api.DetectionResponse{
			PlateID: d.PlateID,
			Plate: api.PlateResponse{
				Confidence:  d.Plate.Confidence,
				Coordinates: toCoordinates(d.Plate.Coordinates),
			},
			OCR: make([]api.OCRResponse, 0, len(d.OCR)),
		}
		for _, o := range d.OCR {
			dr.OCR = append(dr.OCR, api.OCRResponse{
				Text:        o.Text,
				Confidence:  o.Confidence,
				Coordinates: toCoordinates(o.Coordinates),
			})
		}
		out.Detections = append(out.Detections, dr)
	}
	return out
}

// toSummaryResponse は検出結果の集計を作成します。
func toSummaryResponse(det *entity.DetectionResult) api.SummaryResponse {
	return api.SummaryResponse{
		TotalPlates:   det.PlateCount(),
		TotalOCRTexts: det.OCRCount(),
	}
}

// toCoordinates はドメインの座標をAPIレスポンス形式に変換します。
func toCoordinates(b entity.BoundingBox) api.CoordinatesResponse {
	return api.CoordinatesResponse{X1: b.X1, Y1: b.Y1, X2: b.X2, Y2: b.Y2}
}
