// Package router はアプリケーションのHTTPルーティングを定義します。
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	authhandler "lpr_backend/internal/feature/auth/transport/handler"
	historyhandler "lpr_backend/internal/feature/history/transport/handler"
	recognitionhandler "lpr_backend/internal/feature/recognition/transport/handler"
	webhandler "lpr_backend/internal/feature/web/transport/handler"
	platformhandler "lpr_backend/internal/platform/http/handler"
	jwtmw "lpr_backend/internal/platform/jwt"
)

// Config はルーター構築に必要なハンドラーと静的リソースの設定を保持します。
type Config struct {
	Recognition *recognitionhandler.RecognitionHandler
	History     *historyhandler.HistoryHandler
	Auth        *authhandler.AuthHandler
	Web         *webhandler.WebHandler
	Health      *platformhandler.HealthHandler
	Metrics     http.Handler

	// TemplateGlob はHTMLテンプレートのglobパターンです（例: "web/templates/*.html"）。
	TemplateGlob string
	// StaticDir は静的ファイルのディレクトリです。
	StaticDir string
	// MediaDir はアップロード画像の保存ルートです（/media配下で公開）。
	MediaDir string
}

// NewRouter は全エンドポイントを登録したGinエンジンを生成します。
func NewRouter(cfg Config) *gin.Engine {
	r := gin.Default()

	if cfg.TemplateGlob != "" {
		r.LoadHTMLGlob(cfg.TemplateGlob)
	}
	if cfg.StaticDir != "" {
		r.Static("/static", cfg.StaticDir)
	}
	if cfg.MediaDir != "" {
		r.Static("/media", cfg.MediaDir)
	}

	// 導通確認・メトリクス
	r.GET("/healthz", cfg.Health.Health)
	r.GET("/metrics", gin.WrapH(cfg.Metrics))

	// HTML画面
	if cfg.Web != nil {
		r.GET("/", cfg.Web.Home)
		r.GET("/result/:id", cfg.Web.Result)
		r.GET("/images", cfg.Web.List)
		r.GET("/image/:id", cfg.Web.Detail)
	}

	// REST API
	v1 := r.Group("/api/v1")
	{
		// 画像アップロード・認識（同期処理）
		v1.POST("/ocr/", cfg.Recognition.Upload)

		// ログイン（JWT発行）
		v1.POST("/auth/login", cfg.Auth.Login)

		// 履歴閲覧
		v1.GET("/images", cfg.History.List)
		v1.GET("/images/:id", cfg.History.Detail)
		v1.GET("/images/:id/status", cfg.History.Status)

		// 認証必須のルート
		// jwtmw.AuthRequired() ミドルウェアを適用
		// → リクエストヘッダーに JWT が必要になる
		protected := v1.Group("")
		protected.Use(jwtmw.AuthRequired())
		{
			protected.GET("/images/:id/logs", cfg.History.Logs)
			protected.DELETE("/images/:id", cfg.History.Delete)
		}
	}

	return r
}
