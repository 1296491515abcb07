// Package ingest normalizes raw tabular data into movement event streams
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/nemonet1337/zaiShelfAnalytics/pkg/fifo"
)

// 入力CSVのカラム名（元データの形式に準拠）
const (
	columnDate     = "Date"
	columnProduct  = "Primary SKU"
	columnLocation = "Location"
	columnQuantity = "Qty."
	columnCost     = "Cost"
	columnReason   = "Adj. reason"
)

// dateLayouts are tried in order when parsing timestamps
// タイムスタンプ解析で順に試すレイアウト
var dateLayouts = []string{
	"02 Jan 2006, 03:04 PM",
	"02 Jan 2006, 3:04 PM",
	"2 Jan 2006, 3:04 PM",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Reader normalizes CSV rows into movement events
// CSV行を移動イベントへ正規化するリーダー
type Reader struct {
	logger *zap.Logger
}

// NewReader creates a CSV reader
// 新しいCSVリーダーを作成
func NewReader(logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{logger: logger}
}

// ReadMovements parses a CSV stream into a sorted movement event sequence.
// Malformed timestamps and quantities fail fast; a missing or unparseable
// cost degrades to zero and never blocks matching. The returned events are
// stably sorted by timestamp with input order preserved among ties, ready
// for the matching engine.
// CSVストリームをソート済み移動イベント列へ解析
func (r *Reader) ReadMovements(src io.Reader) ([]fifo.MovementEvent, error) {
	reader := csv.NewReader(src)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fifo.ErrEmptyInput
	}
	if err != nil {
		return nil, fmt.Errorf("ヘッダー行の読み込みに失敗しました: %w", err)
	}

	columns, err := mapColumns(header,
		columnDate, columnProduct, columnLocation, columnQuantity, columnCost, columnReason)
	if err != nil {
		return nil, err
	}

	events := make([]fifo.MovementEvent, 0)
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%d行目の読み込みに失敗しました: %w", line+1, err)
		}
		line++

		event, err := parseMovementRow(row, columns, line)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	fifo.SortEvents(events)

	if len(events) > 0 {
		r.logger.Info("移動イベント読み込み完了",
			zap.Int("count", len(events)),
			zap.Time("first", events[0].Timestamp),
			zap.Time("last", events[len(events)-1].Timestamp),
		)
	} else {
		r.logger.Info("移動イベント読み込み完了", zap.Int("count", 0))
	}

	return events, nil
}

// ReadMovementsFile reads a CSV file from disk
// ディスク上のCSVファイルを読み込み
func (r *Reader) ReadMovementsFile(path string) ([]fifo.MovementEvent, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ファイルを開けませんでした: %w", err)
	}
	defer file.Close()

	return r.ReadMovements(file)
}

// 期首在庫CSVのカラム名
const (
	openingColumnProduct  = "product"
	openingColumnLocation = "location"
	openingColumnQuantity = "qty"
	openingColumnDate     = "date"
	openingColumnCost     = "cost_per_unit"
)

// ReadOpeningStock parses an opening-stock seed CSV
// 期首在庫シードCSVを解析
func (r *Reader) ReadOpeningStock(src io.Reader) ([]fifo.OpeningStock, error) {
	reader := csv.NewReader(src)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fifo.ErrEmptyInput
	}
	if err != nil {
		return nil, fmt.Errorf("ヘッダー行の読み込みに失敗しました: %w", err)
	}

	columns, err := mapColumns(header,
		openingColumnProduct, openingColumnLocation, openingColumnQuantity, openingColumnDate, openingColumnCost)
	if err != nil {
		return nil, err
	}

	items := make([]fifo.OpeningStock, 0)
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%d行目の読み込みに失敗しました: %w", line+1, err)
		}
		line++

		qty, err := parseQuantity(row[columns[openingColumnQuantity]], line)
		if err != nil {
			return nil, err
		}
		timestamp, err := parseTimestamp(row[columns[openingColumnDate]], line)
		if err != nil {
			return nil, err
		}

		items = append(items, fifo.OpeningStock{
			Product:   strings.TrimSpace(row[columns[openingColumnProduct]]),
			Location:  strings.TrimSpace(row[columns[openingColumnLocation]]),
			Quantity:  qty,
			Timestamp: timestamp,
			UnitCost:  parseCost(row[columns[openingColumnCost]]),
		})
	}

	r.logger.Info("期首在庫読み込み完了", zap.Int("count", len(items)))
	return items, nil
}

// ReadOpeningStockFile reads an opening-stock CSV file from disk
// ディスク上の期首在庫CSVファイルを読み込み
func (r *Reader) ReadOpeningStockFile(path string) ([]fifo.OpeningStock, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ファイルを開けませんでした: %w", err)
	}
	defer file.Close()

	return r.ReadOpeningStock(file)
}

// mapColumns resolves required column names to indexes
// 必須カラム名をインデックスへ解決
func mapColumns(header []string, required ...string) (map[string]int, error) {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}

	for _, name := range required {
		if _, ok := columns[name]; !ok {
			return nil, fmt.Errorf("%w: %s", fifo.ErrNoSuchColumn, name)
		}
	}
	return columns, nil
}

// parseMovementRow converts one CSV row into a movement event
// CSV行1件を移動イベントへ変換
func parseMovementRow(row []string, columns map[string]int, line int) (fifo.MovementEvent, error) {
	timestamp, err := parseTimestamp(row[columns[columnDate]], line)
	if err != nil {
		return fifo.MovementEvent{}, err
	}

	quantity, err := parseQuantity(row[columns[columnQuantity]], line)
	if err != nil {
		return fifo.MovementEvent{}, err
	}

	return fifo.MovementEvent{
		Key: fifo.LedgerKey{
			Product:  strings.TrimSpace(row[columns[columnProduct]]),
			Location: strings.TrimSpace(row[columns[columnLocation]]),
		},
		Timestamp: timestamp,
		Quantity:  quantity,
		TotalCost: parseCost(row[columns[columnCost]]),
		Reason:    strings.TrimSpace(row[columns[columnReason]]),
	}, nil
}

// parseTimestamp parses a date cell, failing fast on malformed input
// 日付セルを解析（不正値は即エラー）
func parseTimestamp(value string, line int) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fifo.NewValidationError(columnDate,
		fmt.Sprintf("%d行目の日付を解析できません", line), trimmed)
}

// parseQuantity parses a signed integer quantity cell
// 符号付き整数の数量セルを解析
func parseQuantity(value string, line int) (int64, error) {
	trimmed := strings.ReplaceAll(strings.TrimSpace(value), ",", "")
	quantity, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return 0, fifo.NewValidationError(columnQuantity,
			fmt.Sprintf("%d行目の数量を解析できません", line), trimmed)
	}
	return quantity, nil
}

// parseCost parses a cost cell; absent or unparseable costs degrade to zero
// コストセルを解析（欠損・不正値は0扱い）
func parseCost(value string) decimal.Decimal {
	trimmed := strings.ReplaceAll(strings.TrimSpace(value), ",", "")
	if trimmed == "" {
		return decimal.Zero
	}
	cost, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero
	}
	// 符号は破棄してコストの大きさのみ使用
	return cost.Abs()
}
