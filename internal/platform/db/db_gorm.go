// Package db はGORMによるデータベース接続を提供します。
package db

import (
	"fmt"
	"log"
	"os"
	"time"

	gpostgres "gorm.io/driver/postgres"
	gsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"

	authentity "lpr_backend/internal/feature/auth/domain/entity"
	historyadapters "lpr_backend/internal/feature/history/adapters"
)

// Config はデータベース接続の設定を保持します。
type Config struct {
	Driver   string // "postgres" または "sqlite"
	User     string
	Password string
	Name     string
	Host     string
	Port     string
	Path     string // SQLiteのファイルパス
}

// LoadConfig は環境変数からデータベース設定を読み込みます。
// DB_DRIVER未設定時はSQLiteを使用します（開発用）。
func LoadConfig() Config {
	cfg := Config{
		Driver:   os.Getenv("DB_DRIVER"),
		User:     os.Getenv("DB_USER"),
		Password: os.Getenv("DB_PASSWORD"),
		Name:     os.Getenv("DB_NAME"),
		Host:     os.Getenv("DB_HOST"),
		Port:     os.Getenv("DB_PORT"),
		Path:     os.Getenv("DB_PATH"),
	}
	if cfg.Driver == "" {
		cfg.Driver = "sqlite"
	}
	if cfg.Driver == "sqlite" && cfg.Path == "" {
		cfg.Path = "lpr.db"
	}
	return cfg
}

// BuildDSN はPostgreSQL接続用のDSN文字列を生成します。
func BuildDSN(cfg Config) string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name)
}

// Opener はDSNからgorm.DBを開く関数です。テストでの差し替え用に分離しています。
type Opener func(dsn string) (*gorm.DB, error)

// ConnectWithRetry は指定された期間内で接続を繰り返し試行します。
// コンテナ環境でのDB起動待ちを想定しています。
func ConnectWithRetry(dsn string, timeout time.Duration, open Opener) (*gorm.DB, error) {
	deadline := time.Now().Add(timeout)
	for {
		db, err := open(dsn)
		if err == nil {
			return db, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("DB connect failed after %s: %w", timeout, err)
		}
		log.Printf("DB connect failed, retrying...: %v", err)
		time.Sleep(3 * time.Second)
	}
}

// OpenDB は設定に応じたドライバーでデータベースを開き、必要に応じてマイグレーションを実行します。
func OpenDB() *gorm.DB {
	cfg := LoadConfig()

	var (
		dsn  string
		open Opener
	)
	switch cfg.Driver {
	case "postgres":
		dsn = BuildDSN(cfg)
		open = func(dsn string) (*gorm.DB, error) {
			return gorm.Open(gpostgres.Open(dsn), &gorm.Config{TranslateError: true})
		}
	default:
		dsn = cfg.Path
		open = func(dsn string) (*gorm.DB, error) {
			return gorm.Open(gsqlite.Open(dsn), &gorm.Config{TranslateError: true})
		}
	}

	db, err := ConnectWithRetry(dsn, 60*time.Second, open)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if os.Getenv("RUN_MIGRATIONS") == "true" {
		// マイグレーション（User, UploadedImage, ProcessingLog）
		if err := db.AutoMigrate(
			&authentity.User{},
			&historyadapters.ImageModel{},
			&historyadapters.ProcessingLogModel{},
		); err != nil {
			log.Fatalf("failed to migrate: %v", err)
		}
	}

	return db
}
