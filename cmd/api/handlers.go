package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/nemonet1337/zaiShelfAnalytics/internal/ingest"
	"github.com/nemonet1337/zaiShelfAnalytics/pkg/fifo"
	"github.com/nemonet1337/zaiShelfAnalytics/pkg/fifo/storage"
)

// Prometheusメトリクス
var (
	analysisTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shelf_analysis_total",
		Help: "実行された分析の総数",
	})
	analysisFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shelf_analysis_failures_total",
		Help: "失敗した分析の総数",
	})
	eventsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shelf_events_processed_total",
		Help: "処理された在庫移動イベントの総数",
	})
	shortfallsDetected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shelf_shortfalls_detected_total",
		Help: "検出された在庫不足警告の総数",
	})
	analysisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "shelf_analysis_duration_seconds",
		Help:    "分析処理時間の分布",
		Buckets: prometheus.DefBuckets,
	})
)

// Handlers holds HTTP handlers for the shelf-time analytics API
// 棚滞留分析API用のHTTPハンドラーを保持
type Handlers struct {
	store       *storage.PostgreSQLStore
	reader      *ingest.Reader
	logger      *zap.Logger
	maxUploadMB int64
}

// NewHandlers creates new HTTP handlers. The store may be nil when the
// database is disabled; DB-backed routes then return 503.
// 新しいHTTPハンドラーを作成（DBが無効の場合storeはnil）
func NewHandlers(store *storage.PostgreSQLStore, logger *zap.Logger, maxUploadMB int64) *Handlers {
	return &Handlers{
		store:       store,
		reader:      ingest.NewReader(logger),
		logger:      logger,
		maxUploadMB: maxUploadMB,
	}
}

// APIResponse represents standard API response format
// 標準的なAPIレスポンス形式を表現
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthCheck handles health check requests
// ヘルスチェックリクエストを処理
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	data := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now(),
		"service":   "zaiShelfAnalytics",
	}

	if h.store != nil {
		if err := h.store.Ping(r.Context()); err != nil {
			data["status"] = "degraded"
			data["database"] = "unreachable"
		} else {
			data["database"] = "ok"
		}
	}

	h.sendSuccess(w, data)
}

// Analyze handles CSV-upload analysis requests. The movement CSV comes in the
// "movements" form file, an optional opening-stock CSV in "opening", and the
// as-of instant in the "as_of" query parameter (RFC3339).
// CSVアップロード分析リクエストを処理
func (h *Handlers) Analyze(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	asOf := time.Now().UTC()
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			h.sendError(w, http.StatusBadRequest, "as_ofの形式が不正です（RFC3339が必要です）")
			return
		}
		asOf = parsed
	}

	if err := r.ParseMultipartForm(h.maxUploadMB << 20); err != nil {
		h.sendError(w, http.StatusBadRequest, "マルチパートフォームの解析に失敗しました")
		return
	}

	file, _, err := r.FormFile("movements")
	if err != nil {
		h.sendError(w, http.StatusBadRequest, "movementsファイルが見つかりません")
		return
	}
	defer file.Close()

	events, err := h.reader.ReadMovements(file)
	if err != nil {
		analysisFailures.Inc()
		h.sendIngestError(w, err)
		return
	}

	var opening []fifo.OpeningStock
	if openingFile, _, err := r.FormFile("opening"); err == nil {
		defer openingFile.Close()
		opening, err = h.reader.ReadOpeningStock(openingFile)
		if err != nil {
			analysisFailures.Inc()
			h.sendIngestError(w, err)
			return
		}
	}

	result := fifo.Analyze(events, opening, asOf, h.logger)
	h.observe(result, len(events), start)

	if h.store != nil {
		if err := h.store.SaveResult(r.Context(), result); err != nil {
			// 永続化失敗は分析結果の返却を妨げない
			h.logger.Error("分析結果の保存に失敗しました", zap.Error(err))
		}
	}

	h.sendSuccess(w, result)
}

// AnalyzeStored runs the analysis over movements already persisted in the
// database, filtered by optional from/to query parameters.
// DB保存済みの在庫移動に対して分析を実行
func (h *Handlers) AnalyzeStored(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		h.sendError(w, http.StatusServiceUnavailable, "データベースが無効です")
		return
	}

	start := time.Now()

	var from, to time.Time
	var err error
	if raw := r.URL.Query().Get("from"); raw != "" {
		if from, err = time.Parse(time.RFC3339, raw); err != nil {
			h.sendError(w, http.StatusBadRequest, "fromの形式が不正です（RFC3339が必要です）")
			return
		}
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		if to, err = time.Parse(time.RFC3339, raw); err != nil {
			h.sendError(w, http.StatusBadRequest, "toの形式が不正です（RFC3339が必要です）")
			return
		}
	}

	asOf := time.Now().UTC()
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		if asOf, err = time.Parse(time.RFC3339, raw); err != nil {
			h.sendError(w, http.StatusBadRequest, "as_ofの形式が不正です（RFC3339が必要です）")
			return
		}
	}

	events, err := h.store.LoadMovements(r.Context(), from, to)
	if err != nil {
		analysisFailures.Inc()
		h.sendError(w, http.StatusInternalServerError, "在庫移動の読み込みに失敗しました")
		return
	}

	result := fifo.Analyze(events, nil, asOf, h.logger)
	h.observe(result, len(events), start)

	if err := h.store.SaveResult(r.Context(), result); err != nil {
		h.logger.Error("分析結果の保存に失敗しました", zap.Error(err))
	}

	h.sendSuccess(w, result)
}

// Ingest persists an uploaded movement CSV without running analysis
// 在庫移動CSVを分析せずにDBへ保存
func (h *Handlers) Ingest(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		h.sendError(w, http.StatusServiceUnavailable, "データベースが無効です")
		return
	}

	if err := r.ParseMultipartForm(h.maxUploadMB << 20); err != nil {
		h.sendError(w, http.StatusBadRequest, "マルチパートフォームの解析に失敗しました")
		return
	}

	file, _, err := r.FormFile("movements")
	if err != nil {
		h.sendError(w, http.StatusBadRequest, "movementsファイルが見つかりません")
		return
	}
	defer file.Close()

	events, err := h.reader.ReadMovements(file)
	if err != nil {
		h.sendIngestError(w, err)
		return
	}

	if err := h.store.SaveMovements(r.Context(), events); err != nil {
		h.sendError(w, http.StatusInternalServerError, "在庫移動の保存に失敗しました")
		return
	}

	eventsProcessed.Add(float64(len(events)))
	h.sendSuccess(w, map[string]interface{}{
		"message": "在庫移動の保存が完了しました",
		"events":  len(events),
	})
}

// observe records analysis metrics
// 分析メトリクスを記録
func (h *Handlers) observe(result *fifo.AnalysisResult, eventCount int, start time.Time) {
	analysisTotal.Inc()
	eventsProcessed.Add(float64(eventCount))
	shortfallsDetected.Add(float64(len(result.Shortfalls)))
	analysisDuration.Observe(time.Since(start).Seconds())
}

// sendIngestError maps ingest failures to an appropriate HTTP status
// 取り込みエラーをHTTPステータスへ対応付け
func (h *Handlers) sendIngestError(w http.ResponseWriter, err error) {
	var validationErr *fifo.ValidationError
	switch {
	case errors.As(err, &validationErr),
		errors.Is(err, fifo.ErrNoSuchColumn),
		errors.Is(err, fifo.ErrEmptyInput):
		h.sendError(w, http.StatusBadRequest, err.Error())
	default:
		h.sendError(w, http.StatusInternalServerError, err.Error())
	}
}

// sendSuccess sends a successful JSON response
// 成功JSONレスポンスを送信
func (h *Handlers) sendSuccess(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	response := APIResponse{
		Success: true,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("レスポンス送信に失敗しました", zap.Error(err))
	}
}

// sendError sends an error JSON response
// エラーJSONレスポンスを送信
func (h *Handlers) sendError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := APIResponse{
		Success: false,
		Error:   message,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("エラーレスポンス送信に失敗しました", zap.Error(err))
	}
}
