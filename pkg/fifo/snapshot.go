package fifo

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockSummary reports the remaining stock for one key at an as-of instant
// 1キーの残在庫サマリー（基準時点指定）
type StockSummary struct {
	Key             LedgerKey       `json:"key"`               // 商品×ロケーション
	Quantity        int64           `json:"quantity"`          // 残数量合計
	OldestStockAt   time.Time       `json:"oldest_stock_at"`   // 最古ロットの入庫日時
	NewestStockAt   time.Time       `json:"newest_stock_at"`   // 最新ロットの入庫日時
	OldestAgeDays   int64           `json:"oldest_age_days"`   // 最古ロットの経過日数
	TotalValue      decimal.Decimal `json:"total_value"`       // 残存価値合計
	AverageUnitCost decimal.Decimal `json:"average_unit_cost"` // 平均単価
}

// CurrentStockSummary summarizes every key with remaining stock, sorted in
// canonical key order. The as-of instant is an explicit parameter so results
// are reproducible; the ledger is not mutated.
// 残在庫のある全キーのサマリーを基準時点で計算（台帳は変更しない）
func CurrentStockSummary(ledger *LotLedger, asOf time.Time) []StockSummary {
	summaries := make([]StockSummary, 0)

	for _, key := range ledger.Keys() {
		lots := ledger.Snapshot(key)
		if len(lots) == 0 {
			continue
		}

		// キューは最古順なので先頭が最古、末尾が最新
		oldest := lots[0].Timestamp
		newest := lots[len(lots)-1].Timestamp

		var quantity int64
		totalValue := decimal.Zero
		for _, lot := range lots {
			quantity += lot.Remaining
			totalValue = totalValue.Add(lot.Value())
		}

		avgCost := decimal.Zero
		if quantity > 0 {
			avgCost = totalValue.Div(decimal.NewFromInt(quantity))
		}

		summaries = append(summaries, StockSummary{
			Key:             key,
			Quantity:        quantity,
			OldestStockAt:   oldest,
			NewestStockAt:   newest,
			OldestAgeDays:   shelfDays(oldest, asOf),
			TotalValue:      totalValue,
			AverageUnitCost: avgCost,
		})
	}

	return summaries
}

// AgingBucket labels one of the four fixed age ranges
// 4つの固定エイジングバケットのラベル
type AgingBucket string

const (
	BucketFresh    AgingBucket = "Fresh (0-7 days)"     // 新鮮在庫
	BucketMedium   AgingBucket = "Medium (8-30 days)"   // 中期在庫
	BucketAged     AgingBucket = "Aged (31-90 days)"    // 長期在庫
	BucketVeryAged AgingBucket = "Very Aged (90+ days)" // 超長期在庫
)

// AgingBuckets lists the buckets in age order
// バケットを年齢順で列挙
var AgingBuckets = []AgingBucket{BucketFresh, BucketMedium, BucketAged, BucketVeryAged}

// BucketFor assigns an age in days to exactly one bucket. Boundaries are
// inclusive except the open-ended last bucket; ages below zero land in the
// first bucket so the totality invariant holds even for future-dated lots.
// 経過日数を必ず1つのバケットに割り当てる
func BucketFor(ageDays int64) AgingBucket {
	switch {
	case ageDays <= 7:
		return BucketFresh
	case ageDays <= 30:
		return BucketMedium
	case ageDays <= 90:
		return BucketAged
	default:
		return BucketVeryAged
	}
}

// AgingEntry is one remaining lot with its assigned bucket
// バケット割り当て済みの残存ロット1件
type AgingEntry struct {
	Key            LedgerKey       `json:"key"`             // 商品×ロケーション
	Bucket         AgingBucket     `json:"bucket"`          // エイジングバケット
	PurchasedAt    time.Time       `json:"purchased_at"`    // 入庫日時
	AgeDays        int64           `json:"age_days"`        // 経過日数
	Quantity       int64           `json:"quantity"`        // 残数量
	UnitCost       decimal.Decimal `json:"unit_cost"`       // 単価
	PurchaseReason string          `json:"purchase_reason"` // 入庫理由
}

// AgingReport categorizes every remaining lot by age relative to asOf, one
// entry per lot, keys in canonical order and lots in queue order within a key
// 全残存ロットを基準時点の経過日数でバケット分類
func AgingReport(ledger *LotLedger, asOf time.Time) []AgingEntry {
	entries := make([]AgingEntry, 0)

	for _, key := range ledger.Keys() {
		for _, lot := range ledger.Snapshot(key) {
			age := shelfDays(lot.Timestamp, asOf)
			entries = append(entries, AgingEntry{
				Key:            key,
				Bucket:         BucketFor(age),
				PurchasedAt:    lot.Timestamp,
				AgeDays:        age,
				Quantity:       lot.Remaining,
				UnitCost:       lot.UnitCost,
				PurchaseReason: lot.Reason,
			})
		}
	}

	return entries
}

// AgingSummaryRow aggregates one bucket
// 1バケットの集計行
type AgingSummaryRow struct {
	Bucket         AgingBucket     `json:"bucket"`           // バケット
	Units          int64           `json:"units"`            // 数量合計
	TotalValue     decimal.Decimal `json:"total_value"`      // 価値合計
	AverageAgeDays float64         `json:"average_age_days"` // 平均経過日数（数量加重）
}

// AgingSummary rolls up aging entries into one row per bucket, in age order.
// All four buckets are always present, zero-valued when empty.
// エイジングエントリをバケット別に集計（空バケットも0値で出力）
func AgingSummary(entries []AgingEntry) []AgingSummaryRow {
	rows := make(map[AgingBucket]*AgingSummaryRow, len(AgingBuckets))
	for _, bucket := range AgingBuckets {
		rows[bucket] = &AgingSummaryRow{Bucket: bucket, TotalValue: decimal.Zero}
	}

	ageSums := make(map[AgingBucket]int64, len(AgingBuckets))
	for _, entry := range entries {
		row := rows[entry.Bucket]
		row.Units += entry.Quantity
		row.TotalValue = row.TotalValue.Add(entry.UnitCost.Mul(decimal.NewFromInt(entry.Quantity)))
		ageSums[entry.Bucket] += entry.AgeDays * entry.Quantity
	}

	result := make([]AgingSummaryRow, 0, len(AgingBuckets))
	for _, bucket := range AgingBuckets {
		row := rows[bucket]
		if row.Units > 0 {
			row.AverageAgeDays = float64(ageSums[bucket]) / float64(row.Units)
		}
		result = append(result, *row)
	}

	return result
}
