package fifo

import (
	"sort"

	"github.com/shopspring/decimal"
)

// FlowSummaryRow totals movement for one product or location
// 商品またはロケーション1件の移動集計行
type FlowSummaryRow struct {
	Name         string          `json:"name"`          // 商品IDまたはロケーション
	NetQuantity  int64           `json:"net_quantity"`  // 符号付き数量の合計
	PurchaseCost decimal.Decimal `json:"purchase_cost"` // 入庫イベントのコスト合計
}

// TransactionSummary gives a transaction-level overview of an event stream
// イベントストリームのトランザクション概要
type TransactionSummary struct {
	TotalEvents    int              `json:"total_events"`    // 総イベント数
	PurchaseEvents int              `json:"purchase_events"` // 入庫イベント数
	SaleEvents     int              `json:"sale_events"`     // 出庫イベント数
	PurchasedUnits int64            `json:"purchased_units"` // 入庫数量合計
	SoldUnits      int64            `json:"sold_units"`      // 出庫数量合計（正値）
	ByProduct      []FlowSummaryRow `json:"by_product"`      // 商品別集計
	ByLocation     []FlowSummaryRow `json:"by_location"`     // ロケーション別集計
}

// SummarizeTransactions totals an event stream per product and per location.
// Only inbound events contribute to the cost columns.
// イベントストリームを商品別・ロケーション別に集計
func SummarizeTransactions(events []MovementEvent) TransactionSummary {
	summary := TransactionSummary{
		ByProduct:  make([]FlowSummaryRow, 0),
		ByLocation: make([]FlowSummaryRow, 0),
	}

	byProduct := make(map[string]*FlowSummaryRow)
	byLocation := make(map[string]*FlowSummaryRow)

	for _, event := range events {
		summary.TotalEvents++
		if event.Inbound() {
			summary.PurchaseEvents++
			summary.PurchasedUnits += event.Quantity
		} else if event.Outbound() {
			summary.SaleEvents++
			summary.SoldUnits += -event.Quantity
		}

		accumulateFlow(byProduct, event.Key.Product, event)
		accumulateFlow(byLocation, event.Key.Location, event)
	}

	summary.ByProduct = sortedFlowRows(byProduct)
	summary.ByLocation = sortedFlowRows(byLocation)

	return summary
}

// accumulateFlow adds one event to a flow row
// 1イベントを集計行へ加算
func accumulateFlow(rows map[string]*FlowSummaryRow, name string, event MovementEvent) {
	row, ok := rows[name]
	if !ok {
		row = &FlowSummaryRow{Name: name, PurchaseCost: decimal.Zero}
		rows[name] = row
	}
	row.NetQuantity += event.Quantity
	if event.Inbound() {
		row.PurchaseCost = row.PurchaseCost.Add(event.TotalCost.Abs())
	}
}

// sortedFlowRows flattens a row map into name order
// 集計行を名前順に並べて返す
func sortedFlowRows(rows map[string]*FlowSummaryRow) []FlowSummaryRow {
	names := make([]string, 0, len(rows))
	for name := range rows {
		names = append(names, name)
	}
	sort.Strings(names)

	result := make([]FlowSummaryRow, 0, len(names))
	for _, name := range names {
		result = append(result, *rows[name])
	}
	return result
}
