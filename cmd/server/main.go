package main

import (
	"context"
	"log"
	"os"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"lpr_backend/internal/app/di"
	"lpr_backend/internal/app/router"
	authadapters "lpr_backend/internal/feature/auth/adapters"
	authhandler "lpr_backend/internal/feature/auth/transport/handler"
	authusecase "lpr_backend/internal/feature/auth/usecase"
	historyadapters "lpr_backend/internal/feature/history/adapters"
	historyhandler "lpr_backend/internal/feature/history/transport/handler"
	historyusecase "lpr_backend/internal/feature/history/usecase"
	recognitionhandler "lpr_backend/internal/feature/recognition/transport/handler"
	recognitionusecase "lpr_backend/internal/feature/recognition/usecase"
	webhandler "lpr_backend/internal/feature/web/transport/handler"
	"lpr_backend/internal/platform/db"
	platformhandler "lpr_backend/internal/platform/http/handler"
	jwtmw "lpr_backend/internal/platform/jwt"
	"lpr_backend/internal/platform/metrics"
	platformredis "lpr_backend/internal/platform/redis"
	"lpr_backend/internal/platform/storage"
)

func main() {
	ctx := context.Background()

	// db
	gormDB := db.OpenDB()

	// Redis
	var rdb *redisv9.Client
	if tmp, err := platformredis.NewRedisClient(); err != nil {
		log.Println("[WARN] Redis unavailable. Running without cache.")
		rdb = nil
	} else {
		rdb = tmp
		if rdb != nil {
			defer func() {
				if err := rdb.Close(); err != nil {
					log.Println("[ERROR] Failed to close Redis client:", err)
				}
			}()
		}
	}

	// ファイルストレージ
	files, err := storage.NewFileStore(os.Getenv("MEDIA_ROOT"))
	if err != nil {
		log.Fatalf("failed to initialize file storage: %v", err)
	}

	// 外部推論APIクライアント
	analyzer, err := di.NewPlateAnalyzer(ctx)
	if err != nil {
		log.Fatalf("failed to initialize inference client: %v", err)
	}

	// メトリクス
	m := metrics.New()

	// Repository
	imageRepo := historyadapters.NewImageRepository(gormDB)
	cachedImageRepo := di.NewImageRepository(rdb, gormDB)
	userRepo := authadapters.NewUserRepository(gormDB)

	// Usecase
	recognitionUC := recognitionusecase.NewRecognitionUsecase(analyzer, imageRepo, files)
	historyUC := historyusecase.NewHistoryUsecase(cachedImageRepo, files)
	jwtGen := jwtmw.NewGenerator(os.Getenv(jwtmw.EnvKeyJWTSecret), 24*time.Hour)
	authUC := authusecase.NewAuthUsecase(userRepo, jwtGen)

	// 管理者アカウントのシード
	if err := authUC.SeedAdmin(ctx, os.Getenv("ADMIN_EMAIL"), os.Getenv("ADMIN_PASSWORD")); err != nil {
		log.Fatalf("failed to seed admin account: %v", err)
	}

	// Handler
	recognitionH := recognitionhandler.NewRecognitionHandler(recognitionUC, m)
	historyH := historyhandler.NewHistoryHandler(historyUC, files)
	authH := authhandler.NewAuthHandler(authUC)
	webH := webhandler.NewWebHandler(historyUC, files)
	healthH := platformhandler.NewHealthHandler(analyzer, gormDB, m)

	// ルータ生成
	r := router.NewRouter(router.Config{
		Recognition:  recognitionH,
		History:      historyH,
		Auth:         authH,
		Web:          webH,
		Health:       healthH,
		Metrics:      m.Handler(),
		TemplateGlob: "web/templates/*.html",
		StaticDir:    "web/static",
		MediaDir:     files.Root(),
	})

	// JWT_SECRETチェック（開発中の注意喚起）
	if os.Getenv(jwtmw.EnvKeyJWTSecret) == "" {
		log.Println("[WARN] JWT_SECRET is not set. Set a strong secret in production.")
	}

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	if err := r.Run(addr); err != nil {
		log.Fatal(err)
	}
}
