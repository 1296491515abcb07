package ingest

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nemonet1337/zaiShelfAnalytics/pkg/fifo"
)

const movementHeader = "Date,Primary SKU,Location,Qty.,Cost,Adj. reason\n"

// TestReadMovements_BasicRow は基本的な行解析のテスト
func TestReadMovements_BasicRow(t *testing.T) {
	input := movementHeader +
		`"19 Jun 2024, 02:30 PM",SKU-001,Mumbai,10,1500,Purchase order` + "\n"

	reader := NewReader(zap.NewNop())
	events, err := reader.ReadMovements(strings.NewReader(input))

	require.NoError(t, err)
	require.Len(t, events, 1)

	event := events[0]
	assert.Equal(t, "SKU-001", event.Key.Product)
	assert.Equal(t, "Mumbai", event.Key.Location)
	assert.Equal(t, int64(10), event.Quantity)
	assert.True(t, event.TotalCost.Equal(decimal.NewFromInt(1500)))
	assert.Equal(t, "Purchase order", event.Reason)
	assert.Equal(t, time.Date(2024, 6, 19, 14, 30, 0, 0, time.UTC), event.Timestamp)
}

// TestReadMovements_SortedWithStableTies はソートと同時刻の入力順維持のテスト
func TestReadMovements_SortedWithStableTies(t *testing.T) {
	input := movementHeader +
		"2024-06-03,SKU-001,loc1,3,0,third\n" +
		"2024-06-01,SKU-001,loc1,1,0,first\n" +
		"2024-06-01,SKU-001,loc1,2,0,second\n"

	reader := NewReader(zap.NewNop())
	events, err := reader.ReadMovements(strings.NewReader(input))

	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "first", events[0].Reason)
	assert.Equal(t, "second", events[1].Reason)
	assert.Equal(t, "third", events[2].Reason)
}

// TestReadMovements_MissingCostIsZero はコスト欠損が0になることのテスト
func TestReadMovements_MissingCostIsZero(t *testing.T) {
	input := movementHeader +
		"2024-06-01,SKU-001,loc1,5,,Sale\n" +
		"2024-06-02,SKU-001,loc1,5,notanumber,Sale\n"

	reader := NewReader(zap.NewNop())
	events, err := reader.ReadMovements(strings.NewReader(input))

	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.True(t, events[0].TotalCost.IsZero())
	assert.True(t, events[1].TotalCost.IsZero())
}

// TestReadMovements_NegativeCostBecomesMagnitude はコストの符号破棄のテスト
func TestReadMovements_NegativeCostBecomesMagnitude(t *testing.T) {
	input := movementHeader +
		`2024-06-01,SKU-001,loc1,-4,"-1,200",Sale` + "\n"

	reader := NewReader(zap.NewNop())
	events, err := reader.ReadMovements(strings.NewReader(input))

	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, int64(-4), events[0].Quantity)
	assert.True(t, events[0].TotalCost.Equal(decimal.NewFromInt(1200)))
}

// TestReadMovements_MalformedDateFails は不正日付での即時失敗のテスト
func TestReadMovements_MalformedDateFails(t *testing.T) {
	input := movementHeader +
		"not-a-date,SKU-001,loc1,5,100,Purchase\n"

	reader := NewReader(zap.NewNop())
	_, err := reader.ReadMovements(strings.NewReader(input))

	require.Error(t, err)
	var validationErr *fifo.ValidationError
	assert.True(t, errors.As(err, &validationErr))
}

// TestReadMovements_MalformedQuantityFails は不正数量での即時失敗のテスト
func TestReadMovements_MalformedQuantityFails(t *testing.T) {
	input := movementHeader +
		"2024-06-01,SKU-001,loc1,many,100,Purchase\n"

	reader := NewReader(zap.NewNop())
	_, err := reader.ReadMovements(strings.NewReader(input))

	require.Error(t, err)
	var validationErr *fifo.ValidationError
	assert.True(t, errors.As(err, &validationErr))
}

// TestReadMovements_MissingColumnFails は必須カラム欠落のテスト
func TestReadMovements_MissingColumnFails(t *testing.T) {
	input := "Date,Primary SKU,Qty.,Cost,Adj. reason\n"

	reader := NewReader(zap.NewNop())
	_, err := reader.ReadMovements(strings.NewReader(input))

	require.Error(t, err)
	assert.True(t, errors.Is(err, fifo.ErrNoSuchColumn))
}

// TestReadMovements_EmptyInput は空入力のテスト
func TestReadMovements_EmptyInput(t *testing.T) {
	reader := NewReader(zap.NewNop())
	_, err := reader.ReadMovements(strings.NewReader(""))

	assert.True(t, errors.Is(err, fifo.ErrEmptyInput))
}

// TestReadMovements_HeaderOnly はヘッダーのみの入力のテスト
func TestReadMovements_HeaderOnly(t *testing.T) {
	reader := NewReader(zap.NewNop())
	events, err := reader.ReadMovements(strings.NewReader(movementHeader))

	require.NoError(t, err)
	assert.Empty(t, events)
}

// TestReadOpeningStock は期首在庫CSV解析のテスト
func TestReadOpeningStock(t *testing.T) {
	input := "product,location,qty,date,cost_per_unit\n" +
		"SKU-001,Mumbai,50,2024-01-15,12.5\n"

	reader := NewReader(zap.NewNop())
	items, err := reader.ReadOpeningStock(strings.NewReader(input))

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "SKU-001", items[0].Product)
	assert.Equal(t, "Mumbai", items[0].Location)
	assert.Equal(t, int64(50), items[0].Quantity)
	assert.True(t, items[0].UnitCost.Equal(decimal.NewFromFloat(12.5)))
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), items[0].Timestamp)
}
