// Package entity はrecognitionフィーチャーのドメインモデルを定義します。
package entity

// BoundingBox は元画像のピクセル座標系での矩形領域です。
// 座標は正規化後に 0 <= X1 < X2 <= width、0 <= Y1 < Y2 <= height を満たします。
type BoundingBox struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// PlateBox は検出されたナンバープレート領域です。
type PlateBox struct {
	Confidence  float64     `json:"confidence"` // 信頼度スコア（0.0 ~ 1.0）
	Coordinates BoundingBox `json:"coordinates"`
}

// OCRBox はプレート内で読み取られた1つのテキスト領域です。
type OCRBox struct {
	Text        string      `json:"text"`
	Confidence  float64     `json:"confidence"` // 信頼度スコア（0.0 ~ 1.0）
	Coordinates BoundingBox `json:"coordinates"`
}

// Detection は1枚のナンバープレート検出（プレート領域とOCR読み取り結果）です。
// PlateIDはモデルの返却順に"plate1", "plate2", ...と採番されます。
type Detection struct {
	PlateID string   `json:"plate_id"`
	Plate   PlateBox `json:"plate"`
	OCR     []OCRBox `json:"ocr"`
}

// DetectionResult は1枚の画像に対する正規化済みの検出結果全体です。
type DetectionResult struct {
	Detections []Detection `json:"detections"`
}

// PlateCount は検出されたプレート数を返します。
func (r *DetectionResult) PlateCount() int {
	return len(r.Detections)
}

// OCRCount は全プレートのOCR読み取り件数の合計を返します。
func (r *DetectionResult) OCRCount() int {
	total := 0
	for _, d := range r.Detections {
		total += len(d.OCR)
	}
	return total
}
