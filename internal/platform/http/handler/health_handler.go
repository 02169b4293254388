// Package handler はプラットフォームレベルのエンドポイント用HTTPハンドラーを提供します。
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"lpr_backend/internal/api"
	"lpr_backend/internal/platform/metrics"
)

// healthCheckTimeout は外部API疎通確認のタイムアウトです。
const healthCheckTimeout = 10 * time.Second

// APIChecker は外部推論APIの疎通確認を抽象化します。
type APIChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler は /healthz エンドポイントを処理します。
// データベースと外部推論APIの両方の疎通を確認します。
type HealthHandler struct {
	checker APIChecker
	db      *gorm.DB
	m       *metrics.Metrics
}

// NewHealthHandler はHealthHandlerの新しいインスタンスを生成します。
func NewHealthHandler(checker APIChecker, db *gorm.DB, m *metrics.Metrics) *HealthHandler {
	return &HealthHandler{checker: checker, db: db, m: m}
}

// Health はサービスヘルスチェック用の /healthz エンドポイントを処理します。
// 両方の依存先が正常な場合は200、いずれかが異常な場合は503を返します。
func (h *HealthHandler) Health(c *gin.Context) {
	// 明示的にキャッシュを防止
	c.Header("Cache-Control", "no-store")

	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	dbHealthy := h.checkDB(ctx)
	apiHealthy := h.checkAPI(ctx)

	if apiHealthy {
		h.m.APIHealthStatus.Set(1)
	} else {
		h.m.APIHealthStatus.Set(0)
	}

	status := "ok"
	code := http.StatusOK
	if !dbHealthy || !apiHealthy {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, api.HealthResponse{
		Status:          status,
		APIHealthy:      apiHealthy,
		DatabaseHealthy: dbHealthy,
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
	})
}

// checkDB はデータベースへの疎通を確認します。
func (h *HealthHandler) checkDB(ctx context.Context) bool {
	sqlDB, err := h.db.DB()
	if err != nil {
		slog.Error("failed to get sql.DB for health check", "error", err)
		return false
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		slog.Warn("database health check failed", "error", err)
		return false
	}
	return true
}

// checkAPI は外部推論APIへの疎通を確認します。
func (h *HealthHandler) checkAPI(ctx context.Context) bool {
	if err := h.checker.HealthCheck(ctx); err != nil {
		slog.Warn("inference API health check failed", "error", err)
		return false
	}
	return true
}
