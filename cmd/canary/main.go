// canary は稼働監視用のコマンドです。固定のサンプル画像を一定間隔で
// OCRエンドポイントへ送信し、結果をPrometheusメトリクスとして公開します。
// Canaryリクエストはサーバ側で保存されないため、ストレージを消費しません。
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	platformhttp "lpr_backend/internal/platform/http"
)

// canaryHeader はCanaryリクエストを示すHTTPヘッダー名です。
const canaryHeader = "X-Canary-Request"

// config はCanaryの設定を保持します。
type config struct {
	APIURL         string
	ImagePath      string
	Interval       time.Duration
	PrometheusPort int
	Timeout        time.Duration
}

// loadConfig は環境変数からCanaryの設定を読み込みます。
func loadConfig() config {
	cfg := config{
		APIURL:         os.Getenv("LPR_API_URL"),
		ImagePath:      os.Getenv("CANARY_IMAGE_PATH"),
		Interval:       5 * time.Second,
		PrometheusPort: 9100,
		Timeout:        120 * time.Second,
	}
	if cfg.APIURL == "" {
		cfg.APIURL = "http://localhost:8080/api/v1/ocr/"
	}
	if cfg.ImagePath == "" {
		cfg.ImagePath = "canary/jeep.jpg"
	}
	if v := os.Getenv("CANARY_INTERVAL"); v != "" {
		if sec, err := strconv.Atoi(v); err == nil && sec > 0 {
			cfg.Interval = time.Duration(sec) * time.Second
		}
	}
	if v := os.Getenv("PROMETHEUS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.PrometheusPort = port
		}
	}
	return cfg
}

// canaryMetrics はCanary専用のPrometheusメトリクスです。
type canaryMetrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration prometheus.Histogram
}

// newCanaryMetrics はメトリクスを生成して専用Registryに登録します。
func newCanaryMetrics() *canaryMetrics {
	m := &canaryMetrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lpr_canary_script_requests_total",
			Help: "Total number of canary script requests",
		}, []string{"status"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "lpr_canary_script_duration_seconds",
			Help:    "Time spent processing canary requests",
			Buckets: []float64{0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 25.0, 50.0},
		}),
	}
	m.registry.MustRegister(m.requests, m.duration)
	return m
}

// ocrResponse はOCRエンドポイントのレスポンスのうちCanaryが参照する部分です。
type ocrResponse struct {
	Success bool `json:"success"`
	Summary struct {
		TotalPlates   int `json:"total_plates"`
		TotalOCRTexts int `json:"total_ocr_texts"`
	} `json:"summary"`
}

// runCheck は1回のCanaryチェックを実行し、結果ラベルを返します。
func runCheck(ctx context.Context, client *http.Client, cfg config, imageData []byte) (string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("image", "jeep.jpg")
	if err != nil {
		return "error", err
	}
	if _, err := part.Write(imageData); err != nil {
		return "error", err
	}
	if err := w.WriteField("save_image", "false"); err != nil {
		return "error", err
	}
	if err := w.Close(); err != nil {
		return "error", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.APIURL, &body)
	if err != nil {
		return "error", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set(canaryHeader, "true")

	res, err := client.Do(req)
	if err != nil {
		return "error", err
	}
	defer func() {
		if err := res.Body.Close(); err != nil {
			slog.Warn("failed to close response body", "error", err)
		}
	}()

	if res.StatusCode != http.StatusOK {
		return "failed", fmt.Errorf("unexpected status %d", res.StatusCode)
	}

	var out ocrResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return "failed", fmt.Errorf("failed to decode response: %w", err)
	}
	if !out.Success {
		return "failed", errors.New("response success flag is false")
	}

	slog.Info("canary check succeeded",
		"plates", out.Summary.TotalPlates, "ocr_texts", out.Summary.TotalOCRTexts)
	return "success", nil
}

func main() {
	cfg := loadConfig()

	imageData, err := os.ReadFile(cfg.ImagePath)
	if err != nil {
		slog.Error("failed to load canary image", "path", cfg.ImagePath, "error", err)
		os.Exit(1)
	}

	m := newCanaryMetrics()
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry}))
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.PrometheusPort),
		Handler: mux,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := platformhttp.NewHTTPClient(cfg.Timeout)
	slog.Info("canary started", "url", cfg.APIURL, "interval", cfg.Interval)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			start := time.Now()
			status, err := runCheck(ctx, client, cfg, imageData)
			m.requests.WithLabelValues(status).Inc()
			m.duration.Observe(time.Since(start).Seconds())
			if err != nil && !errors.Is(err, context.Canceled) {
				slog.Warn("canary check failed", "status", status, "error", err)
			}
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("metrics server shutdown failed", "error", err)
	}
	slog.Info("canary stopped")
}
