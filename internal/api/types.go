// Package api はHTTPトランスポート層で共有されるリクエスト/レスポンスDTOを定義します。
package api

// ErrorCode はOCR APIが返すエラー種別の列挙です。
type ErrorCode string

const (
	// ErrCodeMissingImage はimageフィールドが存在しない場合のエラーコードです。
	ErrCodeMissingImage ErrorCode = "MISSING_IMAGE"
	// ErrCodeInvalidFileType は許可されていないファイル形式の場合のエラーコードです。
	ErrCodeInvalidFileType ErrorCode = "INVALID_FILE_TYPE"
	// ErrCodeFileTooLarge はファイルサイズが上限を超えた場合のエラーコードです。
	ErrCodeFileTooLarge ErrorCode = "FILE_TOO_LARGE"
	// ErrCodeProcessingFailed は推論・正規化・注釈描画の失敗を表すエラーコードです。
	ErrCodeProcessingFailed ErrorCode = "PROCESSING_FAILED"
	// ErrCodeInternalError は予期しないサーバ内部エラーを表すエラーコードです。
	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"
)

// ErrorResponse はエラー時の共通JSONレスポンスです。
type ErrorResponse struct {
	Success   bool      `json:"success"`
	Error     string    `json:"error"`
	ErrorCode ErrorCode `json:"error_code,omitempty"`
}

// MessageResponse は単純なメッセージ応答です。
type MessageResponse struct {
	Message string `json:"message"`
}

// TokenResponse はログイン成功時のJWTトークン応答です。
type TokenResponse struct {
	Token string `json:"token"`
}

// LoginRequest は管理者ログインのリクエストボディです。
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// CoordinatesResponse はバウンディングボックスのピクセル座標です。
// 元画像の座標系で 0 <= x1 < x2 <= width、0 <= y1 < y2 <= height を満たします。
type CoordinatesResponse struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// PlateResponse は検出されたナンバープレート領域です。
type PlateResponse struct {
	Confidence  float64             `json:"confidence"`
	Coordinates CoordinatesResponse `json:"coordinates"`
}

// OCRResponse はプレート内で読み取られたテキスト領域です。
type OCRResponse struct {
	Text        string              `json:"text"`
	Confidence  float64             `json:"confidence"`
	Coordinates CoordinatesResponse `json:"coordinates"`
}

// DetectionResponse は1枚のプレート検出（プレート領域 + OCR結果）です。
type DetectionResponse struct {
	PlateID string        `json:"plate_id"`
	Plate   PlateResponse `json:"plate"`
	OCR     []OCRResponse `json:"ocr"`
}

// ResultsResponse は正規化済み検出結果の集合です。
type ResultsResponse struct {
	Detections []DetectionResponse `json:"detections"`
}

// SummaryResponse は検出件数のサマリーです。
type SummaryResponse struct {
	TotalPlates   int `json:"total_plates"`
	TotalOCRTexts int `json:"total_ocr_texts"`
}

// OCRUploadResponse はPOST /api/v1/ocr/ 成功時のレスポンスです。
type OCRUploadResponse struct {
	Success             bool            `json:"success"`
	ImageID             uint            `json:"image_id"`
	Filename            string          `json:"filename"`
	ProcessingTimeMS    int64           `json:"processing_time_ms"`
	Results             ResultsResponse `json:"results"`
	Summary             SummaryResponse `json:"summary"`
	ProcessingTimestamp string          `json:"processing_timestamp"`
	CanaryRequest       bool            `json:"canary_request,omitempty"`
	ImageSaved          bool            `json:"image_saved"`
}

// ImageSummaryResponse は履歴一覧の1行分です。
type ImageSummaryResponse struct {
	ID          uint   `json:"id"`
	Filename    string `json:"filename"`
	Status      string `json:"status"`
	TotalPlates int    `json:"total_plates"`
	UploadedAt  string `json:"uploaded_at"`
}

// ImageListResponse は履歴一覧のページレスポンスです。
type ImageListResponse struct {
	Images   []ImageSummaryResponse `json:"images"`
	Page     int                    `json:"page"`
	PageSize int                    `json:"page_size"`
	Total    int64                  `json:"total"`
}

// ImageDetailResponse は1件の画像の詳細です。
type ImageDetailResponse struct {
	ID           uint             `json:"id"`
	Filename     string           `json:"filename"`
	Status       string           `json:"status"`
	ErrorMessage string           `json:"error_message,omitempty"`
	OriginalURL  string           `json:"original_url,omitempty"`
	ProcessedURL string           `json:"processed_url,omitempty"`
	Results      *ResultsResponse `json:"results,omitempty"`
	Summary      *SummaryResponse `json:"summary,omitempty"`
	UploadedAt   string           `json:"uploaded_at"`
	ProcessedAt  string           `json:"processed_at,omitempty"`
}

// StatusResponse は処理状況ポーリング用のレスポンスです。
type StatusResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
	ProcessedAt  string `json:"processed_at,omitempty"`
}

// ProcessingLogResponse は処理ログ1行分です。
type ProcessingLogResponse struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	DurationMS int64  `json:"duration_ms,omitempty"`
	CreatedAt  string `json:"created_at"`
}

// HealthResponse は/healthzのレスポンスです。
type HealthResponse struct {
	Status          string `json:"status"`
	APIHealthy      bool   `json:"api_healthy"`
	DatabaseHealthy bool   `json:"database_healthy"`
	Timestamp       string `json:"timestamp"`
}
