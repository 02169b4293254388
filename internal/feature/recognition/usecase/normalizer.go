package usecase

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"lpr_backend/internal/feature/recognition/domain/entity"
)

// looseCoordinates はモデル応答の座標フィールドです。
// 欠損検出のためポインタで受け、数値は浮動小数も許容します。
type looseCoordinates struct {
	X1 *float64 `json:"x1"`
	Y1 *float64 `json:"y1"`
	X2 *float64 `json:"x2"`
	Y2 *float64 `json:"y2"`
}

// loosePlate はモデル応答のプレート領域です。
type loosePlate struct {
	Confidence  *float64          `json:"confidence"`
	Coordinates *looseCoordinates `json:"coordinates"`
}

// looseOCREntry はリスト形式のOCRエントリです。
type looseOCREntry struct {
	Text        string            `json:"text"`
	Confidence  *float64          `json:"confidence"`
	Coordinates *looseCoordinates `json:"coordinates"`
}

// looseOCRInfo は辞書形式（テキスト→詳細）のOCRエントリ詳細です。
type looseOCRInfo struct {
	Confidence  *float64          `json:"confidence"`
	Coordinates *looseCoordinates `json:"coordinates"`
}

// looseDetection はモデル応答の1検出分です。
// ocrフィールドはリスト・辞書の両形式が観測されるため、RawMessageで受けます。
type looseDetection struct {
	Plate *loosePlate     `json:"plate"`
	OCR   json.RawMessage `json:"ocr"`
}

// looseResponse はモデル応答のトップレベルです。
type looseResponse struct {
	Detections json.RawMessage `json:"detections"`
}

// Normalize は推論APIのテキスト応答を固定の検出スキーマへ正規化します。
//
// 上流モデルの形式ゆらぎを許容します:
//   - markdownコードフェンス（```json ... ```）内のJSON
//   - detectionsの配列形式・オブジェクト形式
//   - ocrのリスト形式・辞書（テキスト→詳細）形式
//
// 座標は元画像の範囲[0,width]/[0,height]へクランプし、信頼度は[0,1]へ
// クランプします（欠損時は0）。JSONとして解釈できない、detectionsが無い、
// プレート座標が欠損・退化しているなどの場合は*ParseErrorを返し、
// 部分的な結果は返しません。
func Normalize(raw string, width, height int) (*entity.DetectionResult, error) {
	jsonText := extractJSON(raw)
	if jsonText == "" {
		return nil, &ParseError{Reason: "empty response"}
	}

	var resp looseResponse
	if err := json.Unmarshal([]byte(jsonText), &resp); err != nil {
		return nil, &ParseError{Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}
	if len(resp.Detections) == 0 {
		return nil, &ParseError{Reason: "missing detections field"}
	}

	looseDetections, err := decodeDetections(resp.Detections)
	if err != nil {
		return nil, err
	}

	result := &entity.DetectionResult{Detections: make([]entity.Detection, 0, len(looseDetections))}
	for i, ld := range looseDetections {
		det, err := normalizeDetection(ld, i, width, height)
		if err != nil {
			return nil, err
		}
		result.Detections = append(result.Detections, *det)
	}
	return result, nil
}

// decodeDetections はdetectionsフィールドを配列・オブジェクトの両形式で解釈します。
// オブジェクト形式はキーの辞書順で並べ、採番を決定的にします。
func decodeDetections(raw json.RawMessage) ([]looseDetection, error) {
	var asList []looseDetection
	if err := json.Unmarshal(raw, &asList); err == nil {
		return asList, nil
	}

	var asMap map[string]looseDetection
	if err := json.Unmarshal(raw, &asMap); err != nil {
		return nil, &ParseError{Reason: "detections is neither a list nor an object"}
	}

	keys := make([]string, 0, len(asMap))
	for k := range asMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]looseDetection, 0, len(asMap))
	for _, k := range keys {
		out = append(out, asMap[k])
	}
	return out, nil
}

// normalizeDetection は1検出分をクランプ・検証してドメインエンティティへ変換します。
func normalizeDetection(ld looseDetection, index, width, height int) (*entity.Detection, error) {
	plateID := fmt.Sprintf("plate%d", index+1)

	if ld.Plate == nil {
		return nil, &ParseError{Reason: fmt.Sprintf("%s: missing plate field", plateID)}
	}
	box, err := normalizeBox(ld.Plate.Coordinates, width, height, plateID)
	if err != nil {
		return nil, err
	}

	det := &entity.Detection{
		PlateID: plateID,
		Plate: entity.PlateBox{
			Confidence:  clampConfidence(ld.Plate.Confidence),
			Coordinates: *box,
		},
		OCR: []entity.OCRBox{},
	}

	if len(ld.OCR) > 0 {
		ocr, err := normalizeOCR(ld.OCR, width, height, plateID)
		if err != nil {
			return nil, err
		}
		det.OCR = ocr
	}
	return det, nil
}

// normalizeOCR はocrフィールドをリスト・辞書の両形式で解釈し正規化します。
func normalizeOCR(raw json.RawMessage, width, height int, plateID string) ([]entity.OCRBox, error) {
	var entries []looseOCREntry

	var asList []looseOCREntry
	if err := json.Unmarshal(raw, &asList); err == nil {
		entries = asList
	} else {
		var asMap map[string]looseOCRInfo
		if err := json.Unmarshal(raw, &asMap); err != nil {
			return nil, &ParseError{Reason: fmt.Sprintf("%s: ocr is neither a list nor an object", plateID)}
		}
		keys := make([]string, 0, len(asMap))
		for k := range asMap {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			info := asMap[k]
			entries = append(entries, looseOCREntry{Text: k, Confidence: info.Confidence, Coordinates: info.Coordinates})
		}
	}

	out := make([]entity.OCRBox, 0, len(entries))
	for _, e := range entries {
		if e.Text == "" {
			return nil, &ParseError{Reason: fmt.Sprintf("%s: ocr entry without text", plateID)}
		}
		box, err := normalizeBox(e.Coordinates, width, height, plateID+" ocr")
		if err != nil {
			return nil, err
		}
		out = append(out, entity.OCRBox{
			Text:        e.Text,
			Confidence:  clampConfidence(e.Confidence),
			Coordinates: *box,
		})
	}
	return out, nil
}

// normalizeBox は座標を検証し、画像範囲へクランプします。
// クランプ後に面積が失われる（x1>=x2またはy1>=y2）矩形は上流の誤出力として拒否します。
func normalizeBox(c *looseCoordinates, width, height int, where string) (*entity.BoundingBox, error) {
	if c == nil || c.X1 == nil || c.Y1 == nil || c.X2 == nil || c.Y2 == nil {
		return nil, &ParseError{Reason: fmt.Sprintf("%s: missing coordinates", where)}
	}
	box := &entity.BoundingBox{
		X1: clampInt(int(*c.X1), 0, width),
		Y1: clampInt(int(*c.Y1), 0, height),
		X2: clampInt(int(*c.X2), 0, width),
		Y2: clampInt(int(*c.Y2), 0, height),
	}
	if box.X1 >= box.X2 || box.Y1 >= box.Y2 {
		return nil, &ParseError{Reason: fmt.Sprintf("%s: degenerate bounding box", where)}
	}
	return box, nil
}

// extractJSON はmarkdownコードフェンスからJSON本体を取り出します。
// フェンスが無い場合は応答全体をJSONとみなします。
func extractJSON(raw string) string {
	text := strings.TrimSpace(raw)
	if start := strings.Index(text, "```json"); start >= 0 {
		rest := text[start+len("```json"):]
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end])
		}
		return strings.TrimSpace(rest)
	}
	if start := strings.Index(text, "```"); start >= 0 {
		rest := text[start+len("```"):]
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end])
		}
		return strings.TrimSpace(rest)
	}
	return text
}

// clampInt はvを[lo,hi]の範囲へ収めます。
func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// clampConfidence は信頼度を[0,1]へ収めます。欠損時は0を返します。
func clampConfidence(v *float64) float64 {
	if v == nil {
		return 0
	}
	if *v < 0 {
		return 0
	}
	if *v > 1 {
		return 1
	}
	return *v
}
