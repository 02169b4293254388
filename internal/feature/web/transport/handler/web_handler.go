// Package handler はHTML画面のHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"lpr_backend/internal/feature/history/domain/entity"
	"lpr_backend/internal/feature/history/usecase"
)

// HistoryReader は画面表示に必要な履歴の読み取り操作を定義します。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type HistoryReader interface {
	List(ctx context.Context, filter usecase.ListFilter) (*usecase.Page, error)
	Detail(ctx context.Context, id uint) (*entity.UploadedImage, error)
	Logs(ctx context.Context, id uint) ([]entity.ProcessingLog, error)
}

// MediaResolver は保存パスから公開URLを解決します。
type MediaResolver interface {
	URL(relPath string) string
}

// WebHandler はHTML画面のリクエストを処理します。
type WebHandler struct {
	history HistoryReader
	media   MediaResolver
}

// NewWebHandler はWebHandlerの新しいインスタンスを生成します。
func NewWebHandler(history HistoryReader, media MediaResolver) *WebHandler {
	return &WebHandler{history: history, media: media}
}

// imageView はテンプレートに渡す画像1件分の表示データです。
type imageView struct {
	ID           uint
	Filename     string
	Status       string
	ErrorMessage string
	OriginalURL  string
	ProcessedURL string
	TotalPlates  int
	TotalOCR     int
	Detections   []detectionView
	UploadedAt   string
	ProcessedAt  string
}

// detectionView はテンプレートに渡す検出1件分の表示データです。
type detectionView struct {
	PlateID    string
	Confidence float64
	OCRTexts   []ocrView
}

// ocrView はテンプレートに渡すOCR結果1件分の表示データです。
type ocrView struct {
	Text       string
	Confidence float64
}

// Home はアップロードフォームを表示します。
//
// エンドポイント: GET /
func (h *WebHandler) Home(c *gin.Context) {
	c.HTML(http.StatusOK, "upload.html", gin.H{
		"Title": "License Plate Recognition",
	})
}

// Result は処理結果ページを表示します。
//
// エンドポイント: GET /result/:id
func (h *WebHandler) Result(c *gin.Context) {
	img, ok := h.lookupImage(c)
	if !ok {
		return
	}
	c.HTML(http.StatusOK, "results.html", gin.H{
		"Title": "Results - " + img.Filename,
		"Image": h.toView(img),
	})
}

// List はアップロード履歴の一覧ページを表示します。
//
// エンドポイント: GET /images
// クエリ: page, query, status
func (h *WebHandler) List(c *gin.Context) {
	filter := usecase.ListFilter{
		Query:  c.Query("query"),
		Status: c.Query("status"),
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	} else {
		filter.Page = 1
	}

	page, err := h.history.List(c.Request.Context(), filter)
	if err != nil {
		slog.Error("履歴一覧の取得に失敗", "error", err)
		h.renderError(c, http.StatusInternalServerError, "Failed to load image history")
		return
	}

	views := make([]imageView, 0, len(page.Images))
	for i := range page.Images {
		views = append(views, h.toView(&page.Images[i]))
	}
	c.HTML(http.StatusOK, "image_list.html", gin.H{
		"Title":      "Image History",
		"Images":     views,
		"Page":       page.Page,
		"TotalPages": page.TotalPages,
		"Total":      page.Total,
		"HasPrev":    page.Page > 1,
		"HasNext":    page.Page < page.TotalPages,
		"PrevPage":   page.Page - 1,
		"NextPage":   page.Page + 1,
		"Query":      filter.Query,
		"Status":     filter.Status,
	})
}

// Detail は画像の詳細ページ（処理ログ付き）を表示します。
//
// エンドポイント: GET /image/:id
func (h *WebHandler) Detail(c *gin.Context) {
	img, ok := h.lookupImage(c)
	if !ok {
		return
	}

	logs, err := h.history.Logs(c.Request.Context(), img.ID)
	if err != nil {
		slog.Error("処理ログの取得に失敗", "error", err, "image_id", img.ID)
		logs = nil
	}

	type logView struct {
		Status     string
		Message    string
		DurationMS int64
		CreatedAt  string
	}
	logViews := make([]logView, 0, len(logs))
	for _, l := range logs {
		logViews = append(logViews, logView{
			Status:     l.Status,
			Message:    l.Message,
			DurationMS: l.DurationMS,
			CreatedAt:  l.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}

	c.HTML(http.StatusOK, "image_detail.html", gin.H{
		"Title": "Details - " + img.Filename,
		"Image": h.toView(img),
		"Logs":  logViews,
	})
}

// lookupImage はパスパラメータのIDで画像を取得します。
// 失敗時はエラーページを描画してfalseを返します。
func (h *WebHandler) lookupImage(c *gin.Context) (*entity.UploadedImage, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		h.renderError(c, http.StatusBadRequest, "Invalid image ID provided")
		return nil, false
	}

	img, lookupErr := h.history.Detail(c.Request.Context(), uint(id))
	if lookupErr != nil {
		if errors.Is(lookupErr, usecase.ErrImageNotFound) {
			h.renderError(c, http.StatusNotFound, "Image not found")
		} else {
			slog.Error("画像の取得に失敗", "error", lookupErr, "image_id", id)
			h.renderError(c, http.StatusInternalServerError, "Failed to load image")
		}
		return nil, false
	}
	return img, true
}

// renderError はエラーページを描画します。
func (h *WebHandler) renderError(c *gin.Context, status int, message string) {
	c.HTML(status, "error.html", gin.H{
		"Title":        "Error",
		"ErrorMessage": message,
	})
}

// toView はドメインエンティティをテンプレート表示用データに変換します。
func (h *WebHandler) toView(img *entity.UploadedImage) imageView {
	v := imageView{
		ID:           img.ID,
		Filename:     img.Filename,
		Status:       img.Status,
		ErrorMessage: img.ErrorMessage,
		UploadedAt:   img.UploadedAt.Format("2006-01-02 15:04:05"),
	}
	if img.OriginalPath != "" {
		v.OriginalURL = h.media.URL(img.OriginalPath)
	}
	if img.ProcessedPath != "" {
		v.ProcessedURL = h.media.URL(img.ProcessedPath)
	}
	if img.ProcessedAt != nil {
		v.ProcessedAt = img.ProcessedAt.Format("2006-01-02 15:04:05")
	}
	if img.Detections != nil {
		v.TotalPlates = img.Detections.PlateCount()
		v.TotalOCR = img.Detections.OCRCount()
		for _, d := range img.Detections.Detections {
			dv := detectionView{
				PlateID:    d.PlateID,
				Confidence: d.Plate.Confidence,
			}
			for _, o := range d.OCR {
				dv.OCRTexts = append(dv.OCRTexts, ocrView{Text: o.Text, Confidence: o.Confidence})
			}
			v.Detections = append(v.Detections, dv)
		}
	}
	return v
}
