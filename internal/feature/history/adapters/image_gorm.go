// Package adapters はhistoryフィーチャーのリポジトリ実装を提供します。
package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"lpr_backend/internal/feature/history/domain/entity"
	"lpr_backend/internal/feature/history/usecase"
	recentity "lpr_backend/internal/feature/recognition/domain/entity"
	recusecase "lpr_backend/internal/feature/recognition/usecase"
)

// imageGorm はImageRepositoryとImageRecordRepositoryのGORM実装です。
// 同一テーブルに対する書き込み（recognition側）と読み取り（history側）の
// 両方のインターフェースを1つの実装で提供します。
type imageGorm struct {
	db *gorm.DB
}

// imageGormが両リポジトリインターフェースを実装していることをコンパイル時に検証します。
var (
	_ usecase.ImageRepository          = (*imageGorm)(nil)
	_ recusecase.ImageRecordRepository = (*imageGorm)(nil)
)

// NewImageRepository は指定されたgorm.DB接続でimageGormの新しいインスタンスを生成します。
// 依存性注入用のコンストラクタです。
func NewImageRepository(db *gorm.DB) *imageGorm {
	return &imageGorm{db: db}
}

// ImageModel はuploaded_imagesテーブルのGORMモデルです。
type ImageModel struct {
	ID             uint      `gorm:"primaryKey"`
	Filename       string    `gorm:"size:255;not null"`
	OriginalPath   string    `gorm:"size:512;not null"`
	ProcessedPath  string    `gorm:"size:512"`
	FileSize       int64     `gorm:"not null;default:0"`
	Status         string    `gorm:"size:16;not null;index"`
	ErrorMessage   string    `gorm:"type:text"`
	DetectionsJSON string    `gorm:"type:text"`
	UploadedAt     time.Time `gorm:"not null;index;autoCreateTime"`
	ProcessedAt    *time.Time
}

// TableName はImageModelのテーブル名を返します。
func (ImageModel) TableName() string {
	return "uploaded_images"
}

// ProcessingLogModel はprocessing_logsテーブルのGORMモデルです。
type ProcessingLogModel struct {
	ID         uint      `gorm:"primaryKey"`
	ImageID    uint      `gorm:"not null;index"`
	Status     string    `gorm:"size:16;not null"`
	Message    string    `gorm:"type:text"`
	DurationMS int64     `gorm:"not null;default:0"`
	CreatedAt  time.Time `gorm:"not null;autoCreateTime"`
}

// TableName はProcessingLogModelのテーブル名を返します。
func (ProcessingLogModel) TableName() string {
	return "processing_logs"
}

// toModel はドメインエンティティをGORMモデルに変換します。
func toModel(e *entity.UploadedImage) (*ImageModel, error) {
	m := &ImageModel{
		ID:            e.ID,
		Filename:      e.Filename,
		OriginalPath:  e.OriginalPath,
		ProcessedPath: e.ProcessedPath,
		FileSize:      e.FileSize,
		Status:        e.Status,
		ErrorMessage:  e.ErrorMessage,
		UploadedAt:    e.UploadedAt,
		ProcessedAt:   e.ProcessedAt,
	}
	if e.Detections != nil {
		b, err := json.Marshal(e.Detections)
		if err != nil {
			return nil, fmt.Errorf("failed to encode detections: %w", err)
		}
		m.DetectionsJSON = string(b)
	}
	return m, nil
}

// toEntity はGORMモデルをドメインエンティティに変換します。
func toEntity(m *ImageModel) (*entity.UploadedImage, error) {
	e := &entity.UploadedImage{
		ID:            m.ID,
		Filename:      m.Filename,
		OriginalPath:  m.OriginalPath,
		ProcessedPath: m.ProcessedPath,
		FileSize:      m.FileSize,
		Status:        m.Status,
		ErrorMessage:  m.ErrorMessage,
		UploadedAt:    m.UploadedAt,
		ProcessedAt:   m.ProcessedAt,
	}
	if m.DetectionsJSON != "" {
		var det recentity.DetectionResult
		if err := json.Unmarshal([]byte(m.DetectionsJSON), &det); err != nil {
			return nil, fmt.Errorf("failed to decode detections for image %d: %w", m.ID, err)
		}
		e.Detections = &det
	}
	return e, nil
}

// Create は画像レコードを追加し、採番されたIDをエンティティに書き戻します。
func (r *imageGorm) Create(ctx context.Context, img *entity.UploadedImage) error {
	m, err := toModel(img)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	img.ID = m.ID
	img.UploadedAt = m.UploadedAt
	return nil
}

// Update は画像レコードの全フィールドを更新します。
func (r *imageGorm) Update(ctx context.Context, img *entity.UploadedImage) error {
	m, err := toModel(img)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Model(&ImageModel{ID: m.ID}).
		Select("Filename", "OriginalPath", "ProcessedPath", "FileSize",
			"Status", "ErrorMessage", "DetectionsJSON", "ProcessedAt").
		Updates(m).Error
}

// Delete は画像レコードと関連する処理ログを削除します。
// レコードが存在しない場合、usecase.ErrImageNotFoundを返します。
func (r *imageGorm) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("image_id = ?", id).Delete(&ProcessingLogModel{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&ImageModel{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return usecase.ErrImageNotFound
		}
		return nil
	})
}

// AppendLog は処理ログを追記します。
func (r *imageGorm) AppendLog(ctx context.Context, log *entity.ProcessingLog) error {
	m := &ProcessingLogModel{
		ImageID:    log.ImageID,
		Status:     log.Status,
		Message:    log.Message,
		DurationMS: log.DurationMS,
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	log.ID = m.ID
	log.CreatedAt = m.CreatedAt
	return nil
}

// List はフィルター条件に一致する画像をアップロード日時の降順で返します。
// 総件数も併せて返します。
func (r *imageGorm) List(ctx context.Context, filter usecase.ListFilter) ([]entity.UploadedImage, int64, error) {
	q := r.db.WithContext(ctx).Model(&ImageModel{})
	if filter.Query != "" {
		q = q.Where("filename LIKE ?", "%"+filter.Query+"%")
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.DateFrom != nil {
		q = q.Where("uploaded_at >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		q = q.Where("uploaded_at <= ?", *filter.DateTo)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []ImageModel
	offset := (filter.Page - 1) * filter.PerPage
	if err := q.Order("uploaded_at DESC").Offset(offset).Limit(filter.PerPage).Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	out := make([]entity.UploadedImage, 0, len(rows))
	for i := range rows {
		e, err := toEntity(&rows[i])
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *e)
	}
	return out, total, nil
}

// FindByID はIDで画像レコードを取得します。
// レコードが存在しない場合、usecase.ErrImageNotFoundを返します。
func (r *imageGorm) FindByID(ctx context.Context, id uint) (*entity.UploadedImage, error) {
	var m ImageModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, usecase.ErrImageNotFound
		}
		return nil, err
	}
	return toEntity(&m)
}

// FindLogs は画像の処理ログを新しい順で返します。
func (r *imageGorm) FindLogs(ctx context.Context, imageID uint) ([]entity.ProcessingLog, error) {
	var rows []ProcessingLogModel
	if err := r.db.WithContext(ctx).
		Where("image_id = ?", imageID).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]entity.ProcessingLog, 0, len(rows))
	for _, m := range rows {
		out = append(out, entity.ProcessingLog{
			ID:         m.ID,
			ImageID:    m.ImageID,
			Status:     m.Status,
			Message:    m.Message,
			DurationMS: m.DurationMS,
			CreatedAt:  m.CreatedAt,
		})
	}
	return out, nil
}
