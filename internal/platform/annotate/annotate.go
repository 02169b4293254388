// Package annotate は検出結果のバウンディングボックスを画像へ描画します。
package annotate

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"lpr_backend/internal/feature/recognition/domain/entity"
)

var (
	// plateColor はプレート枠の色（赤）です。
	plateColor = color.NRGBA{R: 255, A: 255}
	// ocrColor はOCRテキスト枠の色（緑）です。プレート枠と重なっても判別できるよう
	// 視覚的に区別可能な色を使います。
	ocrColor = color.NRGBA{G: 255, A: 255}
	// labelTextColor はラベル文字の色（白）です。
	labelTextColor = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
)

const (
	plateThickness = 3
	ocrThickness   = 2
	labelPadding   = 2
)

// Render は元画像のコピーに検出結果を描画した注釈付き画像を返します。
// プレート枠は赤・OCR枠は緑で描画し、各枠の上にラベル（テキストと信頼度）を付けます。
// 元画像は変更しません。
func Render(src image.Image, det *entity.DetectionResult) (*image.NRGBA, error) {
	if src == nil {
		return nil, errors.New("source image is nil")
	}
	b := src.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, errors.New("source image is empty")
	}

	out := imaging.Clone(src)
	if det == nil {
		return out, nil
	}

	for _, d := range det.Detections {
		drawRect(out, d.Plate.Coordinates, plateColor, plateThickness)
		drawLabel(out, d.Plate.Coordinates, fmt.Sprintf("Plate (%.2f)", d.Plate.Confidence), plateColor)
		for _, o := range d.OCR {
			drawRect(out, o.Coordinates, ocrColor, ocrThickness)
			drawLabel(out, o.Coordinates, fmt.Sprintf("%s (%.2f)", o.Text, o.Confidence), ocrColor)
		}
	}
	return out, nil
}

// drawRect は枠線のみの矩形を指定の太さで描画します。画像範囲外は無視されます。
func drawRect(img *image.NRGBA, box entity.BoundingBox, c color.NRGBA, thickness int) {
	for t := 0; t < thickness; t++ {
		x1, y1 := box.X1+t, box.Y1+t
		x2, y2 := box.X2-1-t, box.Y2-1-t
		if x1 > x2 || y1 > y2 {
			break
		}
		for x := x1; x <= x2; x++ {
			setPixel(img, x, y1, c)
			setPixel(img, x, y2, c)
		}
		for y := y1; y <= y2; y++ {
			setPixel(img, x1, y, c)
			setPixel(img, x2, y, c)
		}
	}
}

// drawLabel は矩形の左上にラベル文字列を背景付きで描画します。
// 矩形が画像上端に接している場合はラベルを枠の内側へ落とします。
func drawLabel(img *image.NRGBA, box entity.BoundingBox, label string, bg color.NRGBA) {
	face := basicfont.Face7x13
	textWidth := font.MeasureString(face, label).Ceil()
	textHeight := face.Metrics().Height.Ceil()

	labelY := box.Y1 - textHeight - 2*labelPadding
	if labelY < 0 {
		labelY = box.Y1
	}

	bgRect := image.Rect(box.X1, labelY, box.X1+textWidth+2*labelPadding, labelY+textHeight+2*labelPadding)
	bgRect = bgRect.Intersect(img.Bounds())
	draw.Draw(img, bgRect, image.NewUniform(bg), image.Point{}, draw.Src)

	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(labelTextColor),
		Face: face,
		Dot: fixed.P(
			box.X1+labelPadding,
			labelY+labelPadding+face.Metrics().Ascent.Ceil(),
		),
	}
	d.DrawString(label)
}

// setPixel は画像範囲内の場合のみ画素を設定します。
func setPixel(img *image.NRGBA, x, y int, c color.NRGBA) {
	if image.Pt(x, y).In(img.Bounds()) {
		img.SetNRGBA(x, y, c)
	}
}
