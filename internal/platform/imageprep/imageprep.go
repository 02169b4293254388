// Package imageprep は推論API送信前の画像デコード・変換処理を提供します。
package imageprep

import (
	"bytes"
	"fmt"
	"image"

	// アップロード画像のデコード用フォーマット登録
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
)

const (
	// maxInferenceWidth / maxInferenceHeight は推論APIへ送る画像の最大寸法です。
	// これを超える画像はアスペクト比を維持して縮小されます。
	maxInferenceWidth  = 1920
	maxInferenceHeight = 1080

	// jpegQuality は推論用JPEGの品質です。
	jpegQuality = 85
)

// Decode は画像バイト列をデコードし、画像と元のピクセル寸法を返します。
// JPEG/PNG/BMPに対応します。
func Decode(data []byte) (image.Image, int, int, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to decode image: %w", err)
	}
	b := img.Bounds()
	return img, b.Dx(), b.Dy(), nil
}

// PrepareForInference は画像を推論API向けに変換します。
// 最大寸法を超える場合は縮小し、常にJPEGへ再エンコードします。
// 元画像は変更しません。
func PrepareForInference(img image.Image) ([]byte, error) {
	b := img.Bounds()
	if b.Dx() > maxInferenceWidth || b.Dy() > maxInferenceHeight {
		img = imaging.Fit(img, maxInferenceWidth, maxInferenceHeight, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode image for inference: %w", err)
	}
	return buf.Bytes(), nil
}
