// Package metrics はPrometheusメトリクスの定義とエクスポートを提供します。
// グローバルレジストリではなく専用のRegistryを使用し、テスト間の汚染を防ぎます。
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// durationBuckets は同期処理の所要時間に合わせたヒストグラムバケットです。
var durationBuckets = []float64{0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 25.0, 50.0}

// Metrics はアプリケーション全体のPrometheusメトリクスを保持します。
type Metrics struct {
	registry *prometheus.Registry

	// ProcessingDuration は画像処理全体の所要時間です（statusラベル付き）。
	ProcessingDuration *prometheus.HistogramVec
	// APIRequestDuration は外部推論API呼び出しの所要時間です。
	APIRequestDuration prometheus.Histogram
	// UploadTotal はアップロード総数です（statusラベル付き）。
	UploadTotal *prometheus.CounterVec
	// ProcessingTotal は処理総数です（statusラベル付き）。
	ProcessingTotal *prometheus.CounterVec
	// PlatesDetectedTotal は検出されたナンバープレートの総数です。
	PlatesDetectedTotal prometheus.Counter
	// OCRTextsDetectedTotal は抽出されたOCRテキストの総数です。
	OCRTextsDetectedTotal prometheus.Counter
	// CanaryRequestsTotal はCanaryリクエストの総数です（statusラベル付き）。
	CanaryRequestsTotal *prometheus.CounterVec
	// APIHealthStatus は外部APIの疎通状態です（1=healthy, 0=unhealthy）。
	APIHealthStatus prometheus.Gauge
}

// New はMetricsの新しいインスタンスを生成し、全メトリクスを登録します。
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ProcessingDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lpr_processing_duration_seconds",
			Help:    "Time spent processing images",
			Buckets: durationBuckets,
		}, []string{"status"}),
		APIRequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "lpr_api_request_duration_seconds",
			Help:    "Time spent calling external AI API",
			Buckets: durationBuckets,
		}),
		UploadTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lpr_upload_total",
			Help: "Total number of image uploads",
		}, []string{"status"}),
		ProcessingTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lpr_processing_total",
			Help: "Total number of image processing operations",
		}, []string{"status"}),
		PlatesDetectedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lpr_plates_detected_total",
			Help: "Total number of license plates detected",
		}),
		OCRTextsDetectedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lpr_ocr_texts_detected_total",
			Help: "Total number of OCR text extractions",
		}),
		CanaryRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lpr_canary_requests_total",
			Help: "Total number of canary requests received",
		}, []string{"status"}),
		APIHealthStatus: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lpr_api_health_status",
			Help: "Health status of external API (1=healthy, 0=unhealthy)",
		}),
	}

	m.registry.MustRegister(
		m.ProcessingDuration,
		m.APIRequestDuration,
		m.UploadTotal,
		m.ProcessingTotal,
		m.PlatesDetectedTotal,
		m.OCRTextsDetectedTotal,
		m.CanaryRequestsTotal,
		m.APIHealthStatus,
	)
	return m
}

// Handler は専用Registryをエクスポートする /metrics ハンドラーを返します。
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
