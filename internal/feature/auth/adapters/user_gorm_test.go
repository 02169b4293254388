package adapters

import (
	"context"
	"errors"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"lpr_backend/internal/feature/auth/domain/entity"
	"lpr_backend/internal/feature/auth/usecase"
)

// setupDB はテスト用のインメモリSQLiteデータベースを準備します。
func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&entity.User{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func TestUserGorm_CreateAndFindByEmail(t *testing.T) {
	t.Parallel()

	repo := NewUserRepository(setupDB(t))
	ctx := context.Background()

	u := &entity.User{Email: "admin@example.com", Password: "hashed-password"}
	if err := repo.Create(ctx, u); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.ID == 0 {
		t.Error("expected ID to be assigned")
	}

	got, err := repo.FindByEmail(ctx, "admin@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Email != "admin@example.com" || got.Password != "hashed-password" {
		t.Errorf("unexpected user: %+v", got)
	}
}

func TestUserGorm_Create_DuplicateEmail(t *testing.T) {
	t.Parallel()

	repo := NewUserRepository(setupDB(t))
	ctx := context.Background()

	if err := repo.Create(ctx, &entity.User{Email: "admin@example.com", Password: "a"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := repo.Create(ctx, &entity.User{Email: "admin@example.com", Password: "b"})
	if !errors.Is(err, usecase.ErrEmailAlreadyExists) {
		t.Errorf("expected ErrEmailAlreadyExists, got %v", err)
	}
}

func TestUserGorm_FindByEmail_NotFound(t *testing.T) {
	t.Parallel()

	repo := NewUserRepository(setupDB(t))

	_, err := repo.FindByEmail(context.Background(), "missing@example.com")
	if !errors.Is(err, usecase.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}
