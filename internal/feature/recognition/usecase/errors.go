package usecase

import (
	"errors"
	"fmt"
)

// recognitionフィーチャーのセンチネルエラー。
// 上位層（handler）はこれらをerrors.Isで判別し、HTTPエラーコードへ変換します。
var (
	// ErrMissingImage はアップロードに画像ファイルが含まれていない場合に返されます。
	ErrMissingImage = errors.New("no image file provided")

	// ErrInvalidFileType は許可されていないファイル形式（JPEG/PNG/BMP以外）の場合に返されます。
	ErrInvalidFileType = errors.New("unsupported file type")

	// ErrFileTooLarge はファイルサイズが上限を超えた場合に返されます。
	ErrFileTooLarge = errors.New("file too large")

	// ErrProcessingFailed は推論呼び出し・正規化・注釈描画のいずれかが失敗した場合に返されます。
	ErrProcessingFailed = errors.New("image processing failed")
)

// ParseError はモデル応答を検出スキーマへ正規化できなかったことを表します。
// 呼び出し側はReasonで失敗内容を判別できます。部分的な結果は保持しません。
type ParseError struct {
	Reason string
}

// Error はエラーメッセージを返します。
func (e *ParseError) Error() string {
	return fmt.Sprintf("detection response parse failed: %s", e.Reason)
}
