// Package usecase はrecognitionフィーチャーのビジネスロジックを実装します。
package usecase

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"mime"
	"path/filepath"
	"strings"
	"time"

	histentity "lpr_backend/internal/feature/history/domain/entity"
	"lpr_backend/internal/feature/recognition/domain/entity"
	"lpr_backend/internal/platform/annotate"
	"lpr_backend/internal/platform/imageprep"
)

const (
	// MaxUploadSize はアップロード画像の最大サイズ（10MB）です。
	MaxUploadSize = 10 * 1024 * 1024

	// analyzerPrompt は推論APIへ渡す固定の指示プロンプトです。
	// 元画像のピクセル座標系でのJSON応答を要求します。
	analyzerPrompt = `Perform license plate detection and OCR on the attached image. Respond with a JSON document of the following structure, replacing the sample values with actual bounding boxes measured in pixel coordinates of the original image. Be accurate: the coordinates must be verifiable with measuring tools.
{
    "detections": [
        {
            "plate": {
                "confidence": 0.8,
                "coordinates": {"x1": 1, "y1": 2, "x2": 20, "y2": 10}
            },
            "ocr": [
                {
                    "text": "ABC123",
                    "confidence": 0.8,
                    "coordinates": {"x1": 1, "y1": 2, "x2": 20, "y2": 10}
                }
            ]
        }
    ]
}`
)

// allowedContentTypes はアップロードを許可するMIMEタイプです。
var allowedContentTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/jpg":  {},
	"image/png":  {},
	"image/bmp":  {},
}

// PlateAnalyzer は外部の視覚言語モデルAPIを抽象化します。
// Goの慣例に従い、インターフェースは利用者（usecase）側で定義します。
type PlateAnalyzer interface {
	// AnalyzeImage は画像バイト列とプロンプトを送信し、モデルのテキスト応答を返します。
	// リトライは行いません（アップロード1回につき1試行）。
	AnalyzeImage(ctx context.Context, imageData []byte, prompt string) (string, error)
	// HealthCheck はAPIへの疎通を確認します。
	HealthCheck(ctx context.Context) error
}

// ImageRecordRepository はUploadedImageレコードの永続化層を抽象化します。
type ImageRecordRepository interface {
	Create(ctx context.Context, img *histentity.UploadedImage) error
	Update(ctx context.Context, img *histentity.UploadedImage) error
	Delete(ctx context.Context, id uint) error
	AppendLog(ctx context.Context, log *histentity.ProcessingLog) error
}

// FileStore は画像ファイルの保存層を抽象化します。
type FileStore interface {
	SaveOriginal(filename string, data []byte) (string, error)
	SaveProcessed(originalPath string, img image.Image) (string, error)
	Remove(relPath string) error
}

// Upload は1件のアップロードリクエストの入力です。
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
	// SaveがfalseのときはCanaryリクエストとして扱い、処理成功後に
	// 保存ファイルとDBレコードを削除します。
	Save   bool
	Canary bool
}

// ProcessResult は処理成功時の結果です。
type ProcessResult struct {
	ImageID     uint
	Filename    string
	Detection   *entity.DetectionResult
	ProcessedAt time.Time
	// APICallDuration は外部推論API呼び出しの所要時間です（メトリクス用）。
	APICallDuration time.Duration
	Saved           bool
}

// recognitionUsecase はアップロード画像の同期処理パイプラインを実装します。
type recognitionUsecase struct {
	analyzer PlateAnalyzer
	images   ImageRecordRepository
	files    FileStore
}

// NewRecognitionUsecase はrecognitionUsecaseの新しいインスタンスを生成します。
func NewRecognitionUsecase(analyzer PlateAnalyzer, images ImageRecordRepository, files FileStore) *recognitionUsecase {
	return &recognitionUsecase{analyzer: analyzer, images: images, files: files}
}

// ValidateUpload はアップロード入力を外部API呼び出し前に検証します。
func ValidateUpload(up Upload) error {
	if len(up.Data) == 0 {
		return ErrMissingImage
	}
	if int64(len(up.Data)) > MaxUploadSize {
		return fmt.Errorf("%w: maximum size is %dMB", ErrFileTooLarge, MaxUploadSize/(1024*1024))
	}

	contentType := up.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mime.TypeByExtension(strings.ToLower(filepath.Ext(up.Filename)))
	}
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}
	if _, ok := allowedContentTypes[contentType]; !ok {
		return fmt.Errorf("%w: %s", ErrInvalidFileType, contentType)
	}
	return nil
}

// Process はアップロード画像を同期的に処理します。
//
// 検証 → 元画像保存 → レコード作成 → 推論API呼び出し → 応答正規化 →
// 注釈描画 → 結果永続化、の順で実行します。いずれかの段階で失敗した場合は
// レコードのステータスをfailedに更新し、部分的な結果は残しません。
func (u *recognitionUsecase) Process(ctx context.Context, up Upload) (*ProcessResult, error) {
	if err := ValidateUpload(up); err != nil {
		return nil, err
	}

	originalPath, err := u.files.SaveOriginal(up.Filename, up.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to store original image: %w", err)
	}

	rec := &histentity.UploadedImage{
		Filename:     up.Filename,
		OriginalPath: originalPath,
		FileSize:     int64(len(up.Data)),
		Status:       histentity.StatusPending,
	}
	if err := u.images.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to create image record: %w", err)
	}
	u.appendLog(ctx, rec.ID, histentity.LogStarted,
		fmt.Sprintf("processing started (save=%t, canary=%t)", up.Save, up.Canary), 0)

	rec.Status = histentity.StatusProcessing
	if err := u.images.Update(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to update image record: %w", err)
	}

	img, width, height, err := imageprep.Decode(up.Data)
	if err != nil {
		return nil, u.markFailed(ctx, rec, fmt.Sprintf("invalid image file: %v", err))
	}

	payload, err := imageprep.PrepareForInference(img)
	if err != nil {
		return nil, u.markFailed(ctx, rec, fmt.Sprintf("failed to prepare image: %v", err))
	}

	u.appendLog(ctx, rec.ID, histentity.LogAPICall, "starting inference API call", 0)
	apiStart := time.Now()
	raw, err := u.analyzer.AnalyzeImage(ctx, payload, analyzerPrompt)
	apiDuration := time.Since(apiStart)
	if err != nil {
		return nil, u.markFailed(ctx, rec, fmt.Sprintf("inference API call failed: %v", err))
	}

	detection, err := Normalize(raw, width, height)
	if err != nil {
		return nil, u.markFailed(ctx, rec, err.Error())
	}

	if up.Save {
		annotated, err := annotate.Render(img, detection)
		if err != nil {
			return nil, u.markFailed(ctx, rec, fmt.Sprintf("failed to annotate image: %v", err))
		}
		processedPath, err := u.files.SaveProcessed(originalPath, annotated)
		if err != nil {
			return nil, u.markFailed(ctx, rec, fmt.Sprintf("failed to store processed image: %v", err))
		}
		rec.ProcessedPath = processedPath
	}

	now := time.Now()
	rec.Status = histentity.StatusCompleted
	rec.Detections = detection
	rec.ProcessedAt = &now
	if err := u.images.Update(ctx, rec); err != nil {
		return nil, u.markFailed(ctx, rec, fmt.Sprintf("failed to persist result: %v", err))
	}
	u.appendLog(ctx, rec.ID, histentity.LogSuccess, "processing completed successfully", apiDuration.Milliseconds())

	if !up.Save {
		u.cleanupCanary(ctx, rec)
	}

	return &ProcessResult{
		ImageID:         rec.ID,
		Filename:        rec.Filename,
		Detection:       detection,
		ProcessedAt:     now,
		APICallDuration: apiDuration,
		Saved:           up.Save,
	}, nil
}

// HealthCheck は推論APIの疎通を確認します。
func (u *recognitionUsecase) HealthCheck(ctx context.Context) error {
	return u.analyzer.HealthCheck(ctx)
}

// markFailed はレコードをfailedに更新し、ErrProcessingFailedへ包んで返します。
func (u *recognitionUsecase) markFailed(ctx context.Context, rec *histentity.UploadedImage, reason string) error {
	rec.Status = histentity.StatusFailed
	rec.ErrorMessage = reason
	// 失敗レコードに検出結果や加工済み画像の参照を残さない
	rec.Detections = nil
	rec.ProcessedPath = ""
	rec.ProcessedAt = nil
	if err := u.images.Update(ctx, rec); err != nil {
		slog.Error("failed to mark record as failed", "image_id", rec.ID, "error", err)
	}
	u.appendLog(ctx, rec.ID, histentity.LogError, reason, 0)
	return fmt.Errorf("%w: %s", ErrProcessingFailed, reason)
}

// appendLog は処理ログを追記します。ログ追記の失敗は処理自体を失敗させません。
func (u *recognitionUsecase) appendLog(ctx context.Context, imageID uint, status, message string, durationMS int64) {
	err := u.images.AppendLog(ctx, &histentity.ProcessingLog{
		ImageID:    imageID,
		Status:     status,
		Message:    message,
		DurationMS: durationMS,
	})
	if err != nil {
		slog.Warn("failed to append processing log", "image_id", imageID, "error", err)
	}
}

// cleanupCanary はCanaryリクエストの痕跡（ファイルとレコード）を削除します。
// 削除の失敗は警告ログに留め、レスポンスには影響させません。
func (u *recognitionUsecase) cleanupCanary(ctx context.Context, rec *histentity.UploadedImage) {
	if err := u.files.Remove(rec.OriginalPath); err != nil {
		slog.Warn("failed to remove canary original image", "image_id", rec.ID, "error", err)
	}
	if err := u.images.Delete(ctx, rec.ID); err != nil {
		slog.Warn("failed to delete canary record", "image_id", rec.ID, "error", err)
	}
}
