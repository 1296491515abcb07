package fifo

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = LedgerKey{Product: "ITEM-A", Location: "WAREHOUSE-01"}

// lotAt builds a lot with a reason marker for FIFO order checks
// FIFO順序確認用のマーカー付きロットを作成
func lotAt(day int, qty int64, marker string) Lot {
	return Lot{
		Timestamp: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, day),
		Remaining: qty,
		UnitCost:  decimal.NewFromInt(int64(day)),
		Reason:    marker,
	}
}

// TestLotLedger_FIFOOrder はマッチ順序が投入順であることのテスト
func TestLotLedger_FIFOOrder(t *testing.T) {
	ledger := NewLotLedger()
	markers := []string{"L1", "L2", "L3", "L4"}
	for i, marker := range markers {
		ledger.Enqueue(testKey, lotAt(i, 5, marker))
	}

	// L1(5), L2(5), L3(2)までを消費する数量
	matches, shortfall := ledger.DequeueUpTo(testKey, 12)

	require.Equal(t, int64(0), shortfall)
	require.Len(t, matches, 3)
	assert.Equal(t, "L1", matches[0].Lot.Reason)
	assert.Equal(t, "L2", matches[1].Lot.Reason)
	assert.Equal(t, "L3", matches[2].Lot.Reason)
	assert.Equal(t, int64(5), matches[0].Quantity)
	assert.Equal(t, int64(5), matches[1].Quantity)
	assert.Equal(t, int64(2), matches[2].Quantity)

	// L3の残り3個とL4がキューに残る
	remaining := ledger.Snapshot(testKey)
	require.Len(t, remaining, 2)
	assert.Equal(t, "L3", remaining[0].Reason)
	assert.Equal(t, int64(3), remaining[0].Remaining)
	assert.Equal(t, "L4", remaining[1].Reason)
	assert.Equal(t, int64(5), remaining[1].Remaining)
}

// TestLotLedger_PartialSplit は部分マッチでのロット分割のテスト
func TestLotLedger_PartialSplit(t *testing.T) {
	ledger := NewLotLedger()
	original := lotAt(0, 10, "PO-001")
	ledger.Enqueue(testKey, original)

	first, shortfall := ledger.DequeueUpTo(testKey, 3)
	require.Equal(t, int64(0), shortfall)
	require.Len(t, first, 1)
	assert.Equal(t, int64(3), first[0].Quantity)

	second, shortfall := ledger.DequeueUpTo(testKey, 4)
	require.Equal(t, int64(0), shortfall)
	require.Len(t, second, 1)
	assert.Equal(t, int64(4), second[0].Quantity)

	// 両マッチとも同一ロット由来（日時・単価・理由が一致）
	assert.Equal(t, original.Timestamp, first[0].Lot.Timestamp)
	assert.Equal(t, original.Timestamp, second[0].Lot.Timestamp)
	assert.True(t, first[0].Lot.UnitCost.Equal(second[0].Lot.UnitCost))
	assert.Equal(t, "PO-001", second[0].Lot.Reason)

	remaining := ledger.Snapshot(testKey)
	require.Len(t, remaining, 1)
	assert.Equal(t, int64(3), remaining[0].Remaining)
}

// TestLotLedger_ShortfallOnEmptyQueue は空キューからの出庫のテスト
func TestLotLedger_ShortfallOnEmptyQueue(t *testing.T) {
	ledger := NewLotLedger()

	matches, shortfall := ledger.DequeueUpTo(testKey, 5)

	assert.Equal(t, int64(5), shortfall)
	assert.Empty(t, matches)
	assert.Empty(t, ledger.Snapshot(testKey))
}

// TestLotLedger_NeverNegative は不足後にキューが空（負にならない）ことのテスト
func TestLotLedger_NeverNegative(t *testing.T) {
	ledger := NewLotLedger()
	ledger.Enqueue(testKey, lotAt(0, 2, "PO-001"))

	matches, shortfall := ledger.DequeueUpTo(testKey, 5)

	assert.Equal(t, int64(3), shortfall)
	require.Len(t, matches, 1)
	assert.Equal(t, int64(2), matches[0].Quantity)
	assert.Empty(t, ledger.Snapshot(testKey))
	assert.Equal(t, int64(0), ledger.TotalQuantity(testKey))
}

// TestLotLedger_Conservation は数量保存則のテスト
func TestLotLedger_Conservation(t *testing.T) {
	ledger := NewLotLedger()
	var inbound, matched int64

	check := func() {
		assert.Equal(t, inbound-matched, ledger.TotalQuantity(testKey))
	}

	steps := []struct {
		enqueue int64 // 0なら出庫
		dequeue int64
	}{
		{enqueue: 10},
		{dequeue: 3},
		{enqueue: 7},
		{dequeue: 9},
		{enqueue: 2},
		{dequeue: 20}, // 不足発生
		{enqueue: 4},
	}

	for i, step := range steps {
		if step.enqueue > 0 {
			ledger.Enqueue(testKey, lotAt(i, step.enqueue, "PO"))
			inbound += step.enqueue
		} else {
			matches, _ := ledger.DequeueUpTo(testKey, step.dequeue)
			for _, m := range matches {
				matched += m.Quantity
			}
		}
		check()
	}
}

// TestLotLedger_KeysAreIndependent はキー間で在庫が混ざらないことのテスト
func TestLotLedger_KeysAreIndependent(t *testing.T) {
	ledger := NewLotLedger()
	otherKey := LedgerKey{Product: "ITEM-B", Location: "WAREHOUSE-01"}

	ledger.Enqueue(testKey, lotAt(0, 5, "A"))
	ledger.Enqueue(otherKey, lotAt(0, 5, "B"))

	matches, shortfall := ledger.DequeueUpTo(testKey, 8)

	// 他キーの在庫はマッチ対象にならない
	assert.Equal(t, int64(3), shortfall)
	require.Len(t, matches, 1)
	assert.Equal(t, "A", matches[0].Lot.Reason)
	assert.Equal(t, int64(5), ledger.TotalQuantity(otherKey))
}

// TestLotLedger_SnapshotIsReadOnly はスナップショット変更が台帳へ波及しないことのテスト
func TestLotLedger_SnapshotIsReadOnly(t *testing.T) {
	ledger := NewLotLedger()
	ledger.Enqueue(testKey, lotAt(0, 10, "PO-001"))

	snapshot := ledger.Snapshot(testKey)
	snapshot[0].Remaining = 999
	snapshot[0].Reason = "tampered"

	fresh := ledger.Snapshot(testKey)
	assert.Equal(t, int64(10), fresh[0].Remaining)
	assert.Equal(t, "PO-001", fresh[0].Reason)
}

// TestLotLedger_ZeroQuantityDequeue は数量0の出庫が何もしないことのテスト
func TestLotLedger_ZeroQuantityDequeue(t *testing.T) {
	ledger := NewLotLedger()
	ledger.Enqueue(testKey, lotAt(0, 10, "PO-001"))

	matches, shortfall := ledger.DequeueUpTo(testKey, 0)

	assert.Empty(t, matches)
	assert.Equal(t, int64(0), shortfall)
	assert.Equal(t, int64(10), ledger.TotalQuantity(testKey))
}

// ベンチマークテスト
func BenchmarkLotLedger_DequeueUpTo(b *testing.B) {
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		ledger := NewLotLedger()
		for j := 0; j < 100; j++ {
			ledger.Enqueue(testKey, lotAt(j, 1000, "PO"))
		}
		b.StartTimer()

		for j := 0; j < 100; j++ {
			ledger.DequeueUpTo(testKey, 999)
		}
	}
}
