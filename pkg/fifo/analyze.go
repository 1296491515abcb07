package fifo

import (
	"time"

	"go.uber.org/zap"
)

// AnalysisResult bundles every result set of one analysis run. Report and API
// layers serialize this structure; the engine defines only its schema.
// 1回の分析実行のすべての結果セット
type AnalysisResult struct {
	RunID        string             `json:"run_id"`        // 実行ID
	GeneratedAt  time.Time          `json:"generated_at"`  // 生成日時
	AsOf         time.Time          `json:"as_of"`         // エイジング基準時点
	ShelfTimes   []ShelfTimeRecord  `json:"shelf_times"`   // 棚滞留記録
	Shortfalls   []ShortfallWarning `json:"shortfalls"`    // 不足警告
	StockSummary []StockSummary     `json:"stock_summary"` // 現在庫サマリー
	Aging        []AgingEntry       `json:"aging"`         // エイジング明細
	AgingSummary []AgingSummaryRow  `json:"aging_summary"` // エイジングバケット集計
	Analytics    *Analytics         `json:"analytics"`     // 統計集計
	Transactions TransactionSummary `json:"transactions"`  // トランザクション概要
}

// Analyze runs the complete pipeline over a batch of events: stable sort,
// optional opening-stock seeding, FIFO matching, then snapshot and analytics
// queries against the resulting ledger state. The ledger is built fresh and
// discarded; nothing persists between runs.
// イベントバッチに対して分析パイプライン全体を実行
func Analyze(events []MovementEvent, opening []OpeningStock, asOf time.Time, logger *zap.Logger) *AnalysisResult {
	if logger == nil {
		logger = zap.NewNop()
	}

	runID := NewRunID()
	start := time.Now()

	sorted := make([]MovementEvent, len(events))
	copy(sorted, events)
	SortEvents(sorted)

	engine := NewEngine(logger)
	engine.SeedOpeningStock(opening)
	engine.ApplyAll(sorted)

	ledger := engine.Ledger()
	aging := AgingReport(ledger, asOf)

	result := &AnalysisResult{
		RunID:        runID,
		GeneratedAt:  time.Now(),
		AsOf:         asOf,
		ShelfTimes:   engine.ShelfTimes(),
		Shortfalls:   engine.Shortfalls(),
		StockSummary: CurrentStockSummary(ledger, asOf),
		Aging:        aging,
		AgingSummary: AgingSummary(aging),
		Analytics:    Aggregate(engine.ShelfTimes()),
		Transactions: SummarizeTransactions(sorted),
	}

	logger.Info("分析実行完了",
		zap.String("run_id", runID),
		zap.Int("events", len(sorted)),
		zap.Int("shelf_time_records", len(result.ShelfTimes)),
		zap.Int("shortfall_warnings", len(result.Shortfalls)),
		zap.Int("stock_keys", len(result.StockSummary)),
		zap.Duration("duration", time.Since(start)),
	)

	return result
}
