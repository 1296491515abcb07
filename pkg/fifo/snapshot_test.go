package fifo

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var asOf = time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)

// agedLot builds a lot whose age relative to asOf is exactly ageDays
// asOf基準で経過日数がちょうどageDaysになるロットを作成
func agedLot(ageDays int, qty int64, cost int64) Lot {
	return Lot{
		Timestamp: asOf.AddDate(0, 0, -ageDays),
		Remaining: qty,
		UnitCost:  decimal.NewFromInt(cost),
	}
}

// TestCurrentStockSummary は現在庫サマリーのテスト
func TestCurrentStockSummary(t *testing.T) {
	ledger := NewLotLedger()
	key := LedgerKey{Product: "ITEM-A", Location: "WAREHOUSE-01"}
	ledger.Enqueue(key, agedLot(40, 4, 10))
	ledger.Enqueue(key, agedLot(5, 6, 20))

	summaries := CurrentStockSummary(ledger, asOf)

	require.Len(t, summaries, 1)
	s := summaries[0]
	assert.Equal(t, key, s.Key)
	assert.Equal(t, int64(10), s.Quantity)
	assert.Equal(t, asOf.AddDate(0, 0, -40), s.OldestStockAt)
	assert.Equal(t, asOf.AddDate(0, 0, -5), s.NewestStockAt)
	assert.Equal(t, int64(40), s.OldestAgeDays)
	// 4×10 + 6×20 = 160、平均単価 16
	assert.True(t, s.TotalValue.Equal(decimal.NewFromInt(160)))
	assert.True(t, s.AverageUnitCost.Equal(decimal.NewFromInt(16)))
}

// TestCurrentStockSummary_Empty は在庫なしの場合のテスト
func TestCurrentStockSummary_Empty(t *testing.T) {
	summaries := CurrentStockSummary(NewLotLedger(), asOf)

	assert.NotNil(t, summaries)
	assert.Empty(t, summaries)
}

// TestCurrentStockSummary_SortedKeys は出力順序が決定的であることのテスト
func TestCurrentStockSummary_SortedKeys(t *testing.T) {
	ledger := NewLotLedger()
	ledger.Enqueue(LedgerKey{Product: "B", Location: "loc2"}, agedLot(1, 1, 1))
	ledger.Enqueue(LedgerKey{Product: "A", Location: "loc2"}, agedLot(1, 1, 1))
	ledger.Enqueue(LedgerKey{Product: "A", Location: "loc1"}, agedLot(1, 1, 1))

	summaries := CurrentStockSummary(ledger, asOf)

	require.Len(t, summaries, 3)
	assert.Equal(t, LedgerKey{Product: "A", Location: "loc1"}, summaries[0].Key)
	assert.Equal(t, LedgerKey{Product: "A", Location: "loc2"}, summaries[1].Key)
	assert.Equal(t, LedgerKey{Product: "B", Location: "loc2"}, summaries[2].Key)
}

// TestBucketFor はバケット境界のテスト
func TestBucketFor(t *testing.T) {
	tests := []struct {
		ageDays  int64
		expected AgingBucket
	}{
		{0, BucketFresh},
		{7, BucketFresh},
		{8, BucketMedium},
		{30, BucketMedium},
		{31, BucketAged},
		{90, BucketAged},
		{91, BucketVeryAged},
		{365, BucketVeryAged},
		{-3, BucketFresh}, // 未来日付ロットも必ずどこかに属する
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, BucketFor(tt.ageDays), "age %d", tt.ageDays)
	}
}

// TestAgingReport_TotalityAndExclusivity はバケット網羅性・排他性のテスト
func TestAgingReport_TotalityAndExclusivity(t *testing.T) {
	ledger := NewLotLedger()
	key := LedgerKey{Product: "ITEM-A", Location: "WAREHOUSE-01"}

	ages := []int{0, 3, 7, 8, 15, 30, 31, 60, 90, 91, 200}
	var totalQty int64
	for i, age := range ages {
		qty := int64(i + 1)
		ledger.Enqueue(key, agedLot(age, qty, 10))
		totalQty += qty
	}

	entries := AgingReport(ledger, asOf)
	require.Len(t, entries, len(ages))

	// 各ロットはちょうど1バケットに属し、数量合計は総残在庫と一致する
	var bucketQty int64
	for _, entry := range entries {
		assert.Equal(t, BucketFor(entry.AgeDays), entry.Bucket)
		bucketQty += entry.Quantity
	}
	assert.Equal(t, totalQty, bucketQty)
	assert.Equal(t, ledger.TotalQuantity(key), bucketQty)
}

// TestAgingSummary はバケット集計のテスト
func TestAgingSummary(t *testing.T) {
	ledger := NewLotLedger()
	key := LedgerKey{Product: "ITEM-A", Location: "WAREHOUSE-01"}
	ledger.Enqueue(key, agedLot(2, 3, 10))  // Fresh
	ledger.Enqueue(key, agedLot(6, 1, 10))  // Fresh
	ledger.Enqueue(key, agedLot(45, 2, 50)) // Aged

	rows := AgingSummary(AgingReport(ledger, asOf))

	// 4バケットすべてが常に存在する
	require.Len(t, rows, 4)
	assert.Equal(t, BucketFresh, rows[0].Bucket)
	assert.Equal(t, int64(4), rows[0].Units)
	assert.True(t, rows[0].TotalValue.Equal(decimal.NewFromInt(40)))
	assert.InDelta(t, 3.0, rows[0].AverageAgeDays, 1e-9) // (2*3+6*1)/4

	assert.Equal(t, BucketMedium, rows[1].Bucket)
	assert.Equal(t, int64(0), rows[1].Units)
	assert.True(t, rows[1].TotalValue.IsZero())

	assert.Equal(t, BucketAged, rows[2].Bucket)
	assert.Equal(t, int64(2), rows[2].Units)
	assert.True(t, rows[2].TotalValue.Equal(decimal.NewFromInt(100)))

	assert.Equal(t, BucketVeryAged, rows[3].Bucket)
	assert.Equal(t, int64(0), rows[3].Units)
}

// TestAgingReport_DoesNotMutateLedger はエイジング照会が台帳を変更しないことのテスト
func TestAgingReport_DoesNotMutateLedger(t *testing.T) {
	ledger := NewLotLedger()
	key := LedgerKey{Product: "ITEM-A", Location: "WAREHOUSE-01"}
	ledger.Enqueue(key, agedLot(10, 5, 10))

	before := ledger.Snapshot(key)
	_ = AgingReport(ledger, asOf)
	_ = CurrentStockSummary(ledger, asOf)
	after := ledger.Snapshot(key)

	assert.Equal(t, before, after)
}
