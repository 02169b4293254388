// Package handler はhistoryフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"lpr_backend/internal/api"
	"lpr_backend/internal/feature/history/domain/entity"
	"lpr_backend/internal/feature/history/usecase"
	recentity "lpr_backend/internal/feature/recognition/domain/entity"
)

// HistoryUsecase はアップロード履歴のユースケースインターフェースを定義します。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type HistoryUsecase interface {
	List(ctx context.Context, filter usecase.ListFilter) (*usecase.Page, error)
	Detail(ctx context.Context, id uint) (*entity.UploadedImage, error)
	Logs(ctx context.Context, id uint) ([]entity.ProcessingLog, error)
	Status(ctx context.Context, id uint) (*entity.UploadedImage, error)
	Delete(ctx context.Context, id uint) error
}

// MediaResolver は保存パスから公開URLを解決します。
type MediaResolver interface {
	URL(relPath string) string
}

// HistoryHandler はアップロード履歴のHTTPリクエストを処理します。
type HistoryHandler struct {
	uc    HistoryUsecase
	media MediaResolver
}

// NewHistoryHandler はHistoryHandlerの新しいインスタンスを生成します。
func NewHistoryHandler(uc HistoryUsecase, media MediaResolver) *HistoryHandler {
	return &HistoryHandler{uc: uc, media: media}
}

// List はアップロード履歴をページ単位で返します。
//
// エンドポイント: GET /api/v1/images
// クエリ: page, query, status, date_from, date_to（日付はYYYY-MM-DD）
func (h *HistoryHandler) List(c *gin.Context) {
	filter := usecase.ListFilter{
		Query:  c.Query("query"),
		Status: c.Query("status"),
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	} else {
		filter.Page = 1
	}
	if from, ok := parseDate(c.Query("date_from")); ok {
		filter.DateFrom = &from
	}
	if to, ok := parseDate(c.Query("date_to")); ok {
		// date_toはその日の終わりまでを含める
		end := to.Add(24*time.Hour - time.Nanosecond)
		filter.DateTo = &end
	}

	page, err := h.uc.List(c.Request.Context(), filter)
	if err != nil {
		slog.Error("履歴一覧の取得に失敗", "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{
			Error:     "Failed to list images",
			ErrorCode: api.ErrCodeInternalError,
		})
		return
	}

	out := api.ImageListResponse{
		Images:   make([]api.ImageSummaryResponse, 0, len(page.Images)),
		Page:     page.Page,
		PageSize: page.PerPage,
		Total:    page.Total,
	}
	for _, img := range page.Images {
		totalPlates := 0
		if img.Detections != nil {
			totalPlates = img.Detections.PlateCount()
		}
		out.Images = append(out.Images, api.ImageSummaryResponse{
			ID:          img.ID,
			Filename:    img.Filename,
			Status:      img.Status,
			TotalPlates: totalPlates,
			UploadedAt:  img.UploadedAt.UTC().Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, out)
}

// Detail は1件の画像の詳細を返します。
//
// エンドポイント: GET /api/v1/images/:id
func (h *HistoryHandler) Detail(c *gin.Context) {
	id, ok := h.imageID(c)
	if !ok {
		return
	}

	img, err := h.uc.Detail(c.Request.Context(), id)
	if err != nil {
		h.handleLookupError(c, err)
		return
	}

	out := api.ImageDetailResponse{
		ID:           img.ID,
		Filename:     img.Filename,
		Status:       img.Status,
		ErrorMessage: img.ErrorMessage,
		UploadedAt:   img.UploadedAt.UTC().Format(time.RFC3339),
	}
	if img.OriginalPath != "" {
		out.OriginalURL = h.media.URL(img.OriginalPath)
	}
	if img.ProcessedPath != "" {
		out.ProcessedURL = h.media.URL(img.ProcessedPath)
	}
	if img.ProcessedAt != nil {
		out.ProcessedAt = img.ProcessedAt.UTC().Format(time.RFC3339)
	}
	if img.Detections != nil {
		results := toResultsResponse(img.Detections)
		summary := api.SummaryResponse{
			TotalPlates:   img.Detections.PlateCount(),
			TotalOCRTexts: img.Detections.OCRCount(),
		}
		out.Results = &results
		out.Summary = &summary
	}
	c.JSON(http.StatusOK, out)
}

// Logs は画像の処理ログを新しい順で返します。
//
// エンドポイント: GET /api/v1/images/:id/logs
func (h *HistoryHandler) Logs(c *gin.Context) {
	id, ok := h.imageID(c)
	if !ok {
		return
	}

	logs, err := h.uc.Logs(c.Request.Context(), id)
	if err != nil {
		h.handleLookupError(c, err)
		return
	}

	out := make([]api.ProcessingLogResponse, 0, len(logs))
	for _, l := range logs {
		out = append(out, api.ProcessingLogResponse{
			Status:     l.Status,
			Message:    l.Message,
			DurationMS: l.DurationMS,
			CreatedAt:  l.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, out)
}

// Status は処理状況を返します（アップロード進捗のポーリング用）。
//
// エンドポイント: GET /api/v1/images/:id/status
func (h *HistoryHandler) Status(c *gin.Context) {
	id, ok := h.imageID(c)
	if !ok {
		return
	}

	img, err := h.uc.Status(c.Request.Context(), id)
	if err != nil {
		h.handleLookupError(c, err)
		return
	}

	out := api.StatusResponse{
		Status:       img.Status,
		ErrorMessage: img.ErrorMessage,
	}
	if img.ProcessedAt != nil {
		out.ProcessedAt = img.ProcessedAt.UTC().Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, out)
}

// Delete は画像レコードと保存済みファイルを削除します。
//
// エンドポイント: DELETE /api/v1/images/:id（要認証）
func (h *HistoryHandler) Delete(c *gin.Context) {
	id, ok := h.imageID(c)
	if !ok {
		return
	}

	if err := h.uc.Delete(c.Request.Context(), id); err != nil {
		h.handleLookupError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.MessageResponse{Message: "image deleted"})
}

// imageID はパスパラメータから画像IDを取り出します。不正な場合は400を返します。
func (h *HistoryHandler) imageID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid image ID"})
		return 0, false
	}
	return uint(id), true
}

// handleLookupError は検索系エラーをHTTPレスポンスへ変換します。
func (h *HistoryHandler) handleLookupError(c *gin.Context, err error) {
	if errors.Is(err, usecase.ErrImageNotFound) {
		// error_codeの列挙にNOT_FOUNDはないため、コードは付与しない
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Image not found"})
		return
	}
	slog.Error("画像レコードの操作に失敗", "error", err)
	c.JSON(http.StatusInternalServerError, api.ErrorResponse{
		Error:     "Internal server error",
		ErrorCode: api.ErrCodeInternalError,
	})
}

// parseDate はYYYY-MM-DD形式の日付をパースします。
func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// toResultsResponse はドメインの検出結果をAPIレスポンス形式に変換します。
func toResultsResponse(det *recentity.DetectionResult) api.ResultsResponse {
	out := api.ResultsResponse{Detections: make([]api.DetectionResponse, 0, len(det.Detections))}
	for _, d := range det.Detections {
		dr := api.DetectionResponse{
			PlateID: d.PlateID,
			Plate: api.PlateResponse{
				Confidence: d.Plate.Confidence,
				Coordinates: api.CoordinatesResponse{
					X1: d.Plate.Coordinates.X1, Y1: d.Plate.Coordinates.Y1,
					X2: d.Plate.Coordinates.X2, Y2: d.Plate.Coordinates.Y2,
				},
			},
			OCR: make([]api.OCRResponse, 0, len(d.OCR)),
		}
		for _, o := range d.OCR {
			dr.OCR = append(dr.OCR, api.OCRResponse{
				Text:       o.Text,
				Confidence: o.Confidence,
				Coordinates: api.CoordinatesResponse{
					X1: o.Coordinates.X1, Y1: o.Coordinates.Y1,
					X2: o.Coordinates.X2, Y2: o.Coordinates.Y2,
				},
			})
		}
		out.Detections = append(out.Detections, dr)
	}
	return out
}
