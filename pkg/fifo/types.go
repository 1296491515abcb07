// Package fifo provides FIFO shelf-time analysis for inventory movement streams
package fifo

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerKey identifies an independent FIFO queue
// 独立したFIFOキューを識別するキー（商品×ロケーション）
type LedgerKey struct {
	Product  string `json:"product" db:"product"`   // 商品ID（SKU）
	Location string `json:"location" db:"location"` // 保管ロケーション
}

// String returns a human-readable form of the key
// キーの可読表現を返す
func (k LedgerKey) String() string {
	return fmt.Sprintf("%s@%s", k.Product, k.Location)
}

// less is the canonical ordering used for deterministic report output
// レポート出力の決定的な順序付けに使用
func (k LedgerKey) less(other LedgerKey) bool {
	if k.Product != other.Product {
		return k.Product < other.Product
	}
	return k.Location < other.Location
}

// MovementEvent represents one normalized inventory movement
// 正規化された在庫移動イベントを表現
type MovementEvent struct {
	Key       LedgerKey       `json:"key" db:"key"`             // 商品×ロケーション
	Timestamp time.Time       `json:"timestamp" db:"timestamp"` // 発生日時
	Quantity  int64           `json:"quantity" db:"quantity"`   // 符号付き数量（正=入庫、負=出庫）
	TotalCost decimal.Decimal `json:"total_cost" db:"cost"`     // イベント全体のコスト（符号は無視）
	Reason    string          `json:"reason" db:"reason"`       // 調整理由
}

// Inbound reports whether the event adds stock
// 入庫イベントかどうかを返す
func (e MovementEvent) Inbound() bool {
	return e.Quantity > 0
}

// Outbound reports whether the event removes stock
// 出庫イベントかどうかを返す
func (e MovementEvent) Outbound() bool {
	return e.Quantity < 0
}

// UnitCost computes the per-unit cost of an inbound event
// 入庫イベントの単価を計算（数量0の場合は0）
func (e MovementEvent) UnitCost() decimal.Decimal {
	if e.Quantity <= 0 {
		return decimal.Zero
	}
	return e.TotalCost.Abs().Div(decimal.NewFromInt(e.Quantity))
}

// SortEvents sorts events by timestamp, preserving input order among ties.
// Matching correctness depends on this ordering contract.
// イベントをタイムスタンプ順に安定ソート（同時刻は元の入力順を維持）
func SortEvents(events []MovementEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
}

// Lot represents a batch of stock created by one inbound event
// 1件の入庫イベントで作成される在庫ロットを表現
type Lot struct {
	Timestamp time.Time       `json:"timestamp" db:"timestamp"`   // 入庫日時
	Remaining int64           `json:"remaining" db:"remaining"`   // 残数量（常に正）
	UnitCost  decimal.Decimal `json:"unit_cost" db:"unit_cost"`   // 単価
	Reason    string          `json:"reason" db:"purchase_reason"` // 入庫理由
}

// Value returns the total remaining value of the lot
// ロットの残存価値を返す
func (l Lot) Value() decimal.Decimal {
	return l.UnitCost.Mul(decimal.NewFromInt(l.Remaining))
}

// LotMatch pairs a consumed lot snapshot with the quantity taken from it
// 消費されたロットのスナップショットとマッチ数量のペア
type LotMatch struct {
	Lot      Lot   `json:"lot"`      // マッチ時点のロット情報
	Quantity int64 `json:"quantity"` // このロットからマッチした数量
}

// ShelfTimeRecord is emitted for every matched slice of outbound quantity.
// ShelfDays may be negative when a lot is dated after the sale; that signals an
// upstream ordering problem and is surfaced as-is, never clamped.
// 出庫マッチごとに生成される棚滞留記録
type ShelfTimeRecord struct {
	Key            LedgerKey       `json:"key"`             // 商品×ロケーション
	PurchasedAt    time.Time       `json:"purchased_at"`    // 入庫日時
	SoldAt         time.Time       `json:"sold_at"`         // 出庫日時
	ShelfDays      int64           `json:"shelf_days"`      // 棚滞留日数（0方向へ切り捨て、負値あり）
	Quantity       int64           `json:"quantity"`        // マッチ数量
	UnitCost       decimal.Decimal `json:"unit_cost"`       // 単価
	PurchaseReason string          `json:"purchase_reason"` // 入庫理由
	SaleReason     string          `json:"sale_reason"`     // 出庫理由
}

// ShortfallWarning reports outbound quantity that could not be matched
// マッチできなかった出庫数量を報告する警告
type ShortfallWarning struct {
	Key       LedgerKey `json:"key"`       // 商品×ロケーション
	SoldAt    time.Time `json:"sold_at"`   // 出庫日時
	Requested int64     `json:"requested"` // 要求数量
	Matched   int64     `json:"matched"`   // 実際にマッチした数量
}

// Shortfall returns the unmatched deficit
// 不足数量を返す
func (w ShortfallWarning) Shortfall() int64 {
	return w.Requested - w.Matched
}

// OpeningStock seeds the ledger before the main event stream
// メインイベント処理前に台帳へ投入される期首在庫
type OpeningStock struct {
	Product   string          `json:"product"`   // 商品ID
	Location  string          `json:"location"`  // ロケーション
	Quantity  int64           `json:"quantity"`  // 数量
	Timestamp time.Time       `json:"timestamp"` // 入庫日時
	UnitCost  decimal.Decimal `json:"unit_cost"` // 単価
}

// OpeningStockReason is the reason tag applied to seeded lots
// 期首在庫ロットに付与される理由タグ
const OpeningStockReason = "Opening Stock"

// NewRunID generates an identifier for one analysis run
// 1回の分析実行を識別するIDを生成
func NewRunID() string {
	return uuid.New().String()
}

// shelfDays converts an elapsed duration to whole days, truncated toward zero
// 経過時間を日数へ変換（0方向へ切り捨て）
func shelfDays(from, to time.Time) int64 {
	return int64(to.Sub(from).Hours() / 24)
}
