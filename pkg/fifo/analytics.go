package fifo

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

// moverListLimit caps the fast/slow mover rankings
// ファスト/スロームーバーランキングの上限件数
const moverListLimit = 10

// ShelfTimeStats holds unit-weighted shelf-time statistics. Records carry a
// matched quantity, so every statistic weights a record by its quantity; the
// result is identical to expanding the collection to one entry per unit.
// Standard deviation uses the sample convention (N-1 denominator).
// 数量加重の棚滞留統計（標準偏差は標本分散、N-1）
type ShelfTimeStats struct {
	Units      int64   `json:"units"`       // 売却数量合計
	MeanDays   float64 `json:"mean_days"`   // 平均棚滞留日数
	MedianDays float64 `json:"median_days"` // 中央値
	MinDays    int64   `json:"min_days"`    // 最小
	MaxDays    int64   `json:"max_days"`    // 最大
	StdDevDays float64 `json:"stddev_days"` // 標準偏差
}

// GroupStats extends ShelfTimeStats with the group name and mean unit cost
// グループ名と平均単価付きの統計
type GroupStats struct {
	Name string `json:"name"` // 商品IDまたはロケーション
	ShelfTimeStats
	MeanUnitCost decimal.Decimal `json:"mean_unit_cost"` // 平均単価（数量加重）
}

// MoverRank ranks one product by mean shelf time
// 平均棚滞留日数による商品ランキング1件
type MoverRank struct {
	Product  string  `json:"product"`   // 商品ID
	MeanDays float64 `json:"mean_days"` // 平均棚滞留日数
	Units    int64   `json:"units"`     // 売却数量
}

// MonthlyTrend aggregates records by the calendar month of the sale
// 売却月ごとの集計
type MonthlyTrend struct {
	Month     string          `json:"month"`      // YYYY-MM
	Units     int64           `json:"units"`      // 売却数量
	MeanDays  float64         `json:"mean_days"`  // 平均棚滞留日数
	TotalCost decimal.Decimal `json:"total_cost"` // 単価合計（数量加重）
}

// Analytics is the complete statistical rollup over a shelf-time collection
// 棚滞留記録コレクション全体の統計集計結果
type Analytics struct {
	Overall       ShelfTimeStats `json:"overall"`        // 全体統計
	ByProduct     []GroupStats   `json:"by_product"`     // 商品別統計
	ByLocation    []GroupStats   `json:"by_location"`    // ロケーション別統計
	FastMovers    []MoverRank    `json:"fast_movers"`    // 回転の速い商品（昇順、最大10件）
	SlowMovers    []MoverRank    `json:"slow_movers"`    // 回転の遅い商品（降順、最大10件）
	MonthlyTrends []MonthlyTrend `json:"monthly_trends"` // 月次トレンド（時系列順）
}

// Aggregate computes the full analytics structure. Empty input is valid and
// yields zero-valued statistics and empty lists, never an error.
// 統計集計を実行（空入力は0値構造を返す）
func Aggregate(records []ShelfTimeRecord) *Analytics {
	analytics := &Analytics{
		Overall:       computeStats(records),
		ByProduct:     make([]GroupStats, 0),
		ByLocation:    make([]GroupStats, 0),
		FastMovers:    make([]MoverRank, 0),
		SlowMovers:    make([]MoverRank, 0),
		MonthlyTrends: make([]MonthlyTrend, 0),
	}

	if len(records) == 0 {
		return analytics
	}

	byProduct := groupBy(records, func(r ShelfTimeRecord) string { return r.Key.Product })
	byLocation := groupBy(records, func(r ShelfTimeRecord) string { return r.Key.Location })

	analytics.ByProduct = groupStats(byProduct)
	analytics.ByLocation = groupStats(byLocation)
	analytics.FastMovers, analytics.SlowMovers = rankMovers(byProduct)
	analytics.MonthlyTrends = monthlyTrends(records)

	return analytics
}

// groupBy partitions records by a key function
// キー関数で記録を分割
func groupBy(records []ShelfTimeRecord, keyFn func(ShelfTimeRecord) string) map[string][]ShelfTimeRecord {
	groups := make(map[string][]ShelfTimeRecord)
	for _, record := range records {
		key := keyFn(record)
		groups[key] = append(groups[key], record)
	}
	return groups
}

// groupStats computes per-group statistics in sorted group-name order
// グループ別統計を名前順で計算
func groupStats(groups map[string][]ShelfTimeRecord) []GroupStats {
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	stats := make([]GroupStats, 0, len(names))
	for _, name := range names {
		group := groups[name]
		stats = append(stats, GroupStats{
			Name:           name,
			ShelfTimeStats: computeStats(group),
			MeanUnitCost:   meanUnitCost(group),
		})
	}
	return stats
}

// computeStats computes unit-weighted statistics over records
// 数量加重統計を計算
func computeStats(records []ShelfTimeRecord) ShelfTimeStats {
	if len(records) == 0 {
		return ShelfTimeStats{}
	}

	var units, daysSum int64
	minDays := records[0].ShelfDays
	maxDays := records[0].ShelfDays

	for _, record := range records {
		units += record.Quantity
		daysSum += record.ShelfDays * record.Quantity
		if record.ShelfDays < minDays {
			minDays = record.ShelfDays
		}
		if record.ShelfDays > maxDays {
			maxDays = record.ShelfDays
		}
	}

	if units == 0 {
		return ShelfTimeStats{}
	}

	mean := float64(daysSum) / float64(units)

	// 標本分散（N-1）で標準偏差を計算
	var squaredSum float64
	for _, record := range records {
		diff := float64(record.ShelfDays) - mean
		squaredSum += diff * diff * float64(record.Quantity)
	}
	stddev := 0.0
	if units > 1 {
		stddev = math.Sqrt(squaredSum / float64(units-1))
	}

	return ShelfTimeStats{
		Units:      units,
		MeanDays:   mean,
		MedianDays: weightedMedian(records, units),
		MinDays:    minDays,
		MaxDays:    maxDays,
		StdDevDays: stddev,
	}
}

// weightedMedian computes the median shelf time as if the collection held one
// entry per matched unit
// 単位展開した場合と等価な中央値を計算
func weightedMedian(records []ShelfTimeRecord, units int64) float64 {
	sorted := make([]ShelfTimeRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ShelfDays < sorted[j].ShelfDays
	})

	// 1始まりの中央位置（偶数個なら2つの平均）
	lowerPos := (units + 1) / 2
	upperPos := units/2 + 1

	// 0日も正当な滞留日数なので、下位中央値の確定はフラグで追跡する
	var lower, upper int64
	var lowerSet bool
	var cumulative int64
	for _, record := range sorted {
		cumulative += record.Quantity
		if !lowerSet && cumulative >= lowerPos {
			lower = record.ShelfDays
			lowerSet = true
		}
		if cumulative >= upperPos {
			upper = record.ShelfDays
			break
		}
	}

	if units%2 == 1 {
		return float64(lower)
	}
	return (float64(lower) + float64(upper)) / 2
}

// meanUnitCost computes the quantity-weighted mean unit cost
// 数量加重の平均単価を計算
func meanUnitCost(records []ShelfTimeRecord) decimal.Decimal {
	var units int64
	total := decimal.Zero
	for _, record := range records {
		units += record.Quantity
		total = total.Add(record.UnitCost.Mul(decimal.NewFromInt(record.Quantity)))
	}
	if units == 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromInt(units))
}

// rankMovers ranks products by mean shelf time. Fast movers ascend from the
// shortest mean; slow movers descend from the longest. Fewer than 10 distinct
// products yields shorter lists, never padding.
// 平均棚滞留日数で商品をランキング
func rankMovers(byProduct map[string][]ShelfTimeRecord) (fast, slow []MoverRank) {
	ranks := make([]MoverRank, 0, len(byProduct))
	for product, group := range byProduct {
		stats := computeStats(group)
		ranks = append(ranks, MoverRank{
			Product:  product,
			MeanDays: stats.MeanDays,
			Units:    stats.Units,
		})
	}

	sort.Slice(ranks, func(i, j int) bool {
		if ranks[i].MeanDays != ranks[j].MeanDays {
			return ranks[i].MeanDays < ranks[j].MeanDays
		}
		return ranks[i].Product < ranks[j].Product
	})

	limit := moverListLimit
	if len(ranks) < limit {
		limit = len(ranks)
	}

	fast = make([]MoverRank, limit)
	copy(fast, ranks[:limit])

	slow = make([]MoverRank, limit)
	for i := 0; i < limit; i++ {
		slow[i] = ranks[len(ranks)-1-i]
	}

	return fast, slow
}

// monthlyTrends groups records by the calendar month of the sale, ordered
// chronologically
// 売却月別の集計を時系列順で計算
func monthlyTrends(records []ShelfTimeRecord) []MonthlyTrend {
	type accumulator struct {
		units   int64
		daysSum int64
		cost    decimal.Decimal
	}

	byMonth := make(map[string]*accumulator)
	for _, record := range records {
		month := record.SoldAt.Format("2006-01")
		acc, ok := byMonth[month]
		if !ok {
			acc = &accumulator{cost: decimal.Zero}
			byMonth[month] = acc
		}
		acc.units += record.Quantity
		acc.daysSum += record.ShelfDays * record.Quantity
		acc.cost = acc.cost.Add(record.UnitCost.Mul(decimal.NewFromInt(record.Quantity)))
	}

	months := make([]string, 0, len(byMonth))
	for month := range byMonth {
		months = append(months, month)
	}
	sort.Strings(months)

	trends := make([]MonthlyTrend, 0, len(months))
	for _, month := range months {
		acc := byMonth[month]
		mean := 0.0
		if acc.units > 0 {
			mean = float64(acc.daysSum) / float64(acc.units)
		}
		trends = append(trends, MonthlyTrend{
			Month:     month,
			Units:     acc.units,
			MeanDays:  mean,
			TotalCost: acc.cost,
		})
	}

	return trends
}
