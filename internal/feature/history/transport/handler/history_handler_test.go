package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"lpr_backend/internal/api"
	"lpr_backend/internal/feature/history/domain/entity"
	"lpr_backend/internal/feature/history/usecase"
	recentity "lpr_backend/internal/feature/recognition/domain/entity"
)

// mockHistoryUsecase はHistoryUsecaseのテスト用モックです。
type mockHistoryUsecase struct {
	ListFunc   func(ctx context.Context, filter usecase.ListFilter) (*usecase.Page, error)
	DetailFunc func(ctx context.Context, id uint) (*entity.UploadedImage, error)
	LogsFunc   func(ctx context.Context, id uint) ([]entity.ProcessingLog, error)
	StatusFunc func(ctx context.Context, id uint) (*entity.UploadedImage, error)
	DeleteFunc func(ctx context.Context, id uint) error

	lastFilter usecase.ListFilter
}

func (m *mockHistoryUsecase) List(ctx context.Context, filter usecase.ListFilter) (*usecase.Page, error) {
	m.lastFilter = filter
	return m.ListFunc(ctx, filter)
}

func (m *mockHistoryUsecase) Detail(ctx context.Context, id uint) (*entity.UploadedImage, error) {
	return m.DetailFunc(ctx, id)
}

func (m *mockHistoryUsecase) Logs(ctx context.Context, id uint) ([]entity.ProcessingLog, error) {
	return m.LogsFunc(ctx, id)
}

func (m *mockHistoryUsecase) Status(ctx context.Context, id uint) (*entity.UploadedImage, error) {
	return m.StatusFunc(ctx, id)
}

func (m *mockHistoryUsecase) Delete(ctx context.Context, id uint) error {
	return m.DeleteFunc(ctx, id)
}

// mockMediaResolver は保存パスをそのままURLへ変換するMediaResolverです。
type mockMediaResolver struct{}

func (mockMediaResolver) URL(relPath string) string {
	return "/media/" + relPath
}

func setupRouter(uc *mockHistoryUsecase) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHistoryHandler(uc, mockMediaResolver{})

	r := gin.New()
	r.GET("/api/v1/images", h.List)
	r.GET("/api/v1/images/:id", h.Detail)
	r.GET("/api/v1/images/:id/logs", h.Logs)
	r.GET("/api/v1/images/:id/status", h.Status)
	r.DELETE("/api/v1/images/:id", h.Delete)
	return r
}

func detailImage() *entity.UploadedImage {
	processed := time.Date(2026, 8, 20, 10, 30, 0, 0, time.UTC)
	return &entity.UploadedImage{
		ID:            7,
		Filename:      "car.jpg",
		OriginalPath:  "originals/car.jpg",
		ProcessedPath: "processed/car.jpg",
		Status:        entity.StatusCompleted,
		Detections: &recentity.DetectionResult{
			Detections: []recentity.Detection{
				{
					PlateID: "plate1",
					Plate: recentity.PlateBox{
						Confidence:  0.9,
						Coordinates: recentity.BoundingBox{X1: 10, Y1: 20, X2: 110, Y2: 60},
					},
					OCR: []recentity.OCRBox{
						{Text: "ABC123", Confidence: 0.85},
					},
				},
			},
		},
		UploadedAt:  time.Date(2026, 8, 20, 10, 29, 0, 0, time.UTC),
		ProcessedAt: &processed,
	}
}

func TestHistoryHandler_List_Success(t *testing.T) {
	uc := &mockHistoryUsecase{
		ListFunc: func(ctx context.Context, filter usecase.ListFilter) (*usecase.Page, error) {
			return &usecase.Page{
				Images:     []entity.UploadedImage{*detailImage()},
				Total:      1,
				Page:       1,
				PerPage:    12,
				TotalPages: 1,
			}, nil
		},
	}
	r := setupRouter(uc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/images?page=1&query=car&status=completed", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var res api.ImageListResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Len(t, res.Images, 1)
	assert.Equal(t, uint(7), res.Images[0].ID)
	assert.Equal(t, 1, res.Images[0].TotalPlates)
	assert.Equal(t, int64(1), res.Total)

	assert.Equal(t, "car", uc.lastFilter.Query)
	assert.Equal(t, "completed", uc.lastFilter.Status)
}

func TestHistoryHandler_List_DateRange(t *testing.T) {
	uc := &mockHistoryUsecase{
		ListFunc: func(ctx context.Context, filter usecase.ListFilter) (*usecase.Page, error) {
			return &usecase.Page{Images: []entity.UploadedImage{}, Page: 1, PerPage: 12, TotalPages: 1}, nil
		},
	}
	r := setupRouter(uc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/images?date_from=2026-08-01&date_to=2026-08-20", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	if assert.NotNil(t, uc.lastFilter.DateFrom) {
		assert.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), *uc.lastFilter.DateFrom)
	}
	// date_toはその日の終わりまで拡張される
	if assert.NotNil(t, uc.lastFilter.DateTo) {
		assert.Equal(t, time.Date(2026, 8, 20, 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC), *uc.lastFilter.DateTo)
	}
}

func TestHistoryHandler_Detail(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		detailFunc func(ctx context.Context, id uint) (*entity.UploadedImage, error)
		wantStatus int
		wantBody   string
	}{
		{
			name: "success: 詳細を返す",
			path: "/api/v1/images/7",
			detailFunc: func(ctx context.Context, id uint) (*entity.UploadedImage, error) {
				return detailImage(), nil
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "error: 存在しないIDは404（error_codeなし）",
			path: "/api/v1/images/999",
			detailFunc: func(ctx context.Context, id uint) (*entity.UploadedImage, error) {
				return nil, usecase.ErrImageNotFound
			},
			wantStatus: http.StatusNotFound,
			wantBody:   `{"success":false,"error":"Image not found"}`,
		},
		{
			name:       "error: 不正なIDは400（error_codeなし）",
			path:       "/api/v1/images/abc",
			detailFunc: nil,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"success":false,"error":"Invalid image ID"}`,
		},
		{
			name: "error: 予期しないエラーは500",
			path: "/api/v1/images/7",
			detailFunc: func(ctx context.Context, id uint) (*entity.UploadedImage, error) {
				return nil, errors.New("db down")
			},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := &mockHistoryUsecase{DetailFunc: tt.detailFunc}
			r := setupRouter(uc)

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, w.Body.String())
			}

			if tt.wantStatus == http.StatusOK {
				var res api.ImageDetailResponse
				assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
				assert.Equal(t, uint(7), res.ID)
				assert.Equal(t, "/media/originals/car.jpg", res.OriginalURL)
				assert.Equal(t, "/media/processed/car.jpg", res.ProcessedURL)
				if assert.NotNil(t, res.Results) {
					assert.Len(t, res.Results.Detections, 1)
					assert.Equal(t, "plate1", res.Results.Detections[0].PlateID)
				}
				if assert.NotNil(t, res.Summary) {
					assert.Equal(t, 1, res.Summary.TotalPlates)
					assert.Equal(t, 1, res.Summary.TotalOCRTexts)
				}
			}
		})
	}
}

func TestHistoryHandler_Logs_Success(t *testing.T) {
	uc := &mockHistoryUsecase{
		LogsFunc: func(ctx context.Context, id uint) ([]entity.ProcessingLog, error) {
			return []entity.ProcessingLog{
				{Status: entity.LogSuccess, Message: "done", DurationMS: 1500, CreatedAt: time.Now()},
				{Status: entity.LogStarted, Message: "processing started", CreatedAt: time.Now()},
			}, nil
		},
	}
	r := setupRouter(uc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/images/7/logs", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var res []api.ProcessingLogResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Len(t, res, 2)
	assert.Equal(t, entity.LogSuccess, res[0].Status)
	assert.Equal(t, int64(1500), res[0].DurationMS)
}

func TestHistoryHandler_Status_Success(t *testing.T) {
	uc := &mockHistoryUsecase{
		StatusFunc: func(ctx context.Context, id uint) (*entity.UploadedImage, error) {
			return &entity.UploadedImage{ID: id, Status: entity.StatusProcessing}, nil
		},
	}
	r := setupRouter(uc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/images/7/status", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var res api.StatusResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, entity.StatusProcessing, res.Status)
	assert.Empty(t, res.ProcessedAt)
}

func TestHistoryHandler_Delete(t *testing.T) {
	t.Run("success: 削除完了のメッセージを返す", func(t *testing.T) {
		var deletedID uint
		uc := &mockHistoryUsecase{
			DeleteFunc: func(ctx context.Context, id uint) error {
				deletedID = id
				return nil
			},
		}
		r := setupRouter(uc)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodDelete, "/api/v1/images/7", nil)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, uint(7), deletedID)

		var res api.MessageResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		assert.Equal(t, "image deleted", res.Message)
	})

	t.Run("error: 存在しないIDは404", func(t *testing.T) {
		uc := &mockHistoryUsecase{
			DeleteFunc: func(ctx context.Context, id uint) error {
				return usecase.ErrImageNotFound
			},
		}
		r := setupRouter(uc)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodDelete, "/api/v1/images/999", nil)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
