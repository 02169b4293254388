// Package entity はhistoryフィーチャーのドメインモデルを定義します。
package entity

import (
	"time"

	recentity "lpr_backend/internal/feature/recognition/domain/entity"
)

// 処理ステータス。アップロード時にpendingで作成され、推論開始でprocessing、
// 完了でcompleted、失敗でfailedへ遷移します。自動削除はされません。
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// 処理ログの種別。
const (
	LogStarted = "started"
	LogAPICall = "api_call"
	LogSuccess = "success"
	LogError   = "error"
)

// UploadedImage はアップロードされた1枚の画像とその処理結果を表します。
// DetectionsはStatusCompletedの場合のみ非nilです（1:1、成功した処理につき最大1回生成）。
type UploadedImage struct {
	ID            uint
	Filename      string
	OriginalPath  string
	ProcessedPath string
	FileSize      int64
	Status        string
	ErrorMessage  string
	Detections    *recentity.DetectionResult
	UploadedAt    time.Time
	ProcessedAt   *time.Time
}

// ProcessingLog は1回の処理試行に関するログ行です。
type ProcessingLog struct {
	ID         uint
	ImageID    uint
	Status     string
	Message    string
	DurationMS int64
	CreatedAt  time.Time
}
