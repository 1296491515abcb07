package fifo

import (
	"go.uber.org/zap"
)

// Engine drives the lot ledger over a time-ordered event stream and collects
// shelf-time records and shortfall warnings. One Engine owns one ledger per
// run; there is no process-wide state.
// 時系列イベントストリームでロット台帳を駆動するマッチングエンジン
type Engine struct {
	ledger     *LotLedger         // ロット台帳（エンジンが排他所有）
	records    []ShelfTimeRecord  // 棚滞留記録
	shortfalls []ShortfallWarning // 不足警告
	logger     *zap.Logger        // ログ
}

// NewEngine creates a matching engine with a fresh, empty ledger
// 空の台帳を持つ新しいマッチングエンジンを作成
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		ledger: NewLotLedger(),
		logger: logger,
	}
}

// SeedOpeningStock enqueues synthetic inbound lots before the main stream.
// Each seeded lot is tagged with the "Opening Stock" reason.
// メインストリーム処理前に期首在庫ロットを投入
func (e *Engine) SeedOpeningStock(items []OpeningStock) {
	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		key := LedgerKey{Product: item.Product, Location: item.Location}
		e.ledger.Enqueue(key, Lot{
			Timestamp: item.Timestamp,
			Remaining: item.Quantity,
			UnitCost:  item.UnitCost,
			Reason:    OpeningStockReason,
		})
	}

	e.logger.Info("期首在庫の投入完了", zap.Int("items", len(items)))
}

// Apply processes a single event. Inbound events enqueue one lot; outbound
// events dequeue oldest-first and emit one ShelfTimeRecord per matched lot
// slice. Unmatched outbound quantity produces a ShortfallWarning and
// processing continues; zero-quantity events are ignored.
// 1件のイベントを処理（入庫=ロット追加、出庫=FIFOマッチ、数量0=無視）
func (e *Engine) Apply(event MovementEvent) {
	switch {
	case event.Inbound():
		e.ledger.Enqueue(event.Key, Lot{
			Timestamp: event.Timestamp,
			Remaining: event.Quantity,
			UnitCost:  event.UnitCost(),
			Reason:    event.Reason,
		})

	case event.Outbound():
		requested := -event.Quantity
		matches, shortfall := e.ledger.DequeueUpTo(event.Key, requested)

		for _, match := range matches {
			e.records = append(e.records, ShelfTimeRecord{
				Key:            event.Key,
				PurchasedAt:    match.Lot.Timestamp,
				SoldAt:         event.Timestamp,
				ShelfDays:      shelfDays(match.Lot.Timestamp, event.Timestamp),
				Quantity:       match.Quantity,
				UnitCost:       match.Lot.UnitCost,
				PurchaseReason: match.Lot.Reason,
				SaleReason:     event.Reason,
			})
		}

		if shortfall > 0 {
			warning := ShortfallWarning{
				Key:       event.Key,
				SoldAt:    event.Timestamp,
				Requested: requested,
				Matched:   requested - shortfall,
			}
			e.shortfalls = append(e.shortfalls, warning)

			e.logger.Warn("在庫不足を検出しました",
				zap.String("product", event.Key.Product),
				zap.String("location", event.Key.Location),
				zap.Int64("requested", warning.Requested),
				zap.Int64("matched", warning.Matched),
				zap.Time("sold_at", event.Timestamp),
			)
		}
	}
	// 数量0のイベントは何もしない
}

// ApplyAll processes a complete, pre-sorted event stream
// ソート済みイベントストリーム全体を処理
func (e *Engine) ApplyAll(events []MovementEvent) {
	for _, event := range events {
		e.Apply(event)
	}

	e.logger.Info("FIFOマッチング完了",
		zap.Int("events", len(events)),
		zap.Int("shelf_time_records", len(e.records)),
		zap.Int("shortfall_warnings", len(e.shortfalls)),
	)
}

// Ledger exposes the engine's ledger for snapshot queries
// スナップショット照会用に台帳を公開
func (e *Engine) Ledger() *LotLedger {
	return e.ledger
}

// ShelfTimes returns all shelf-time records emitted so far
// これまでに生成された棚滞留記録を返す
func (e *Engine) ShelfTimes() []ShelfTimeRecord {
	return e.records
}

// Shortfalls returns all shortfall warnings emitted so far
// これまでに生成された不足警告を返す
func (e *Engine) Shortfalls() []ShortfallWarning {
	return e.shortfalls
}
