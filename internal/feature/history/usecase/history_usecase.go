// Package usecase はhistoryフィーチャーのビジネスロジックを実装します。
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"lpr_backend/internal/feature/history/domain/entity"
)

// DefaultPerPage は一覧表示の1ページあたりの件数です。
const DefaultPerPage = 12

// ListFilter は画像一覧の検索条件です。ゼロ値のフィールドは条件として適用されません。
type ListFilter struct {
	Query    string     // ファイル名の部分一致
	Status   string     // 処理ステータスの完全一致
	DateFrom *time.Time // アップロード日時の下限
	DateTo   *time.Time // アップロード日時の上限
	Page     int        // 1始まりのページ番号
	PerPage  int        // 1ページあたりの件数（0のときDefaultPerPage）
}

// Page は一覧取得の結果とページネーション情報です。
type Page struct {
	Images     []entity.UploadedImage
	Total      int64
	Page       int
	PerPage    int
	TotalPages int
}

// ImageRepository は画像レコードの読み取り・削除層を抽象化します。
// Goの慣例に従い、インターフェースは利用者（usecase）側で定義します。
type ImageRepository interface {
	List(ctx context.Context, filter ListFilter) ([]entity.UploadedImage, int64, error)
	FindByID(ctx context.Context, id uint) (*entity.UploadedImage, error)
	FindLogs(ctx context.Context, imageID uint) ([]entity.ProcessingLog, error)
	Delete(ctx context.Context, id uint) error
}

// FileRemover は保存済み画像ファイルの削除を抽象化します。
type FileRemover interface {
	Remove(relPath string) error
}

// historyUsecase はアップロード履歴の閲覧・削除を実装します。
type historyUsecase struct {
	images ImageRepository
	files  FileRemover
}

// NewHistoryUsecase はhistoryUsecaseの新しいインスタンスを生成します。
func NewHistoryUsecase(images ImageRepository, files FileRemover) *historyUsecase {
	return &historyUsecase{images: images, files: files}
}

// List はフィルター条件に一致する画像をアップロード日時の降順で返します。
// 不正なページ番号は1ページ目として扱います。
func (u *historyUsecase) List(ctx context.Context, filter ListFilter) (*Page, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PerPage <= 0 {
		filter.PerPage = DefaultPerPage
	}

	images, total, err := u.images.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}

	totalPages := int((total + int64(filter.PerPage) - 1) / int64(filter.PerPage))
	if totalPages < 1 {
		totalPages = 1
	}
	return &Page{
		Images:     images,
		Total:      total,
		Page:       filter.Page,
		PerPage:    filter.PerPage,
		TotalPages: totalPages,
	}, nil
}

// Detail はIDで画像レコードを取得します。
func (u *historyUsecase) Detail(ctx context.Context, id uint) (*entity.UploadedImage, error) {
	return u.images.FindByID(ctx, id)
}

// Logs は画像の処理ログを新しい順で返します。
// 画像が存在しない場合はErrImageNotFoundを返します。
func (u *historyUsecase) Logs(ctx context.Context, id uint) ([]entity.ProcessingLog, error) {
	if _, err := u.images.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return u.images.FindLogs(ctx, id)
}

// Status は画像の処理ステータスを返します（アップロード進捗のポーリング用）。
func (u *historyUsecase) Status(ctx context.Context, id uint) (*entity.UploadedImage, error) {
	return u.images.FindByID(ctx, id)
}

// Delete は画像レコードと保存済みファイルを削除します。
// ファイル削除の失敗は警告ログに留め、レコード削除は続行します。
func (u *historyUsecase) Delete(ctx context.Context, id uint) error {
	img, err := u.images.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if img.OriginalPath != "" {
		if err := u.files.Remove(img.OriginalPath); err != nil {
			slog.Warn("failed to remove original image file", "image_id", id, "error", err)
		}
	}
	if img.ProcessedPath != "" {
		if err := u.files.Remove(img.ProcessedPath); err != nil {
			slog.Warn("failed to remove processed image file", "image_id", id, "error", err)
		}
	}

	if err := u.images.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete image record: %w", err)
	}
	return nil
}
