// Package report serializes analysis results to CSV report files
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/nemonet1337/zaiShelfAnalytics/pkg/fifo"
)

// 出力ファイル名（元の分析ツールの出力形式に準拠）
const (
	FileShelfTimes   = "shelf_time_analysis.csv"
	FileStockSummary = "current_stock_summary.csv"
	FileShelfAging   = "detailed_shelf_aging.csv"
	FileAgingBuckets = "aging_categories_summary.csv"
	FileTransactions = "transaction_summary.csv"
)

const timestampLayout = "2006-01-02 15:04:05"

// Writer writes analysis result CSV files into a directory
// 分析結果CSVファイルをディレクトリへ書き出すライター
type Writer struct {
	dir    string
	logger *zap.Logger
}

// NewWriter creates a report writer for the given output directory
// 指定出力ディレクトリ用のレポートライターを作成
func NewWriter(dir string, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{dir: dir, logger: logger}
}

// WriteAll writes every report file for one analysis result. Empty result
// sets still produce well-formed files with header rows only.
// 1回の分析結果のすべてのレポートファイルを書き出し
func (w *Writer) WriteAll(result *fifo.AnalysisResult, events []fifo.MovementEvent) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("出力ディレクトリ作成に失敗しました: %w", err)
	}

	if err := w.WriteShelfTimes(result.ShelfTimes); err != nil {
		return err
	}
	if err := w.WriteStockSummary(result.StockSummary); err != nil {
		return err
	}
	if err := w.WriteShelfAging(result.Aging); err != nil {
		return err
	}
	if err := w.WriteAgingBuckets(result.Aging); err != nil {
		return err
	}
	if err := w.WriteTransactions(events); err != nil {
		return err
	}

	w.logger.Info("レポートファイル書き出し完了",
		zap.String("run_id", result.RunID),
		zap.String("dir", w.dir),
	)
	return nil
}

// WriteShelfTimes writes the shelf-time record table
// 棚滞留記録テーブルを書き出し
func (w *Writer) WriteShelfTimes(records []fifo.ShelfTimeRecord) error {
	return w.writeFile(FileShelfTimes,
		[]string{"product", "location", "purchase_date", "sale_date", "shelf_time_days", "quantity", "unit_cost", "purchase_reason", "sale_reason"},
		len(records),
		func(i int) []string {
			r := records[i]
			return []string{
				r.Key.Product,
				r.Key.Location,
				r.PurchasedAt.Format(timestampLayout),
				r.SoldAt.Format(timestampLayout),
				strconv.FormatInt(r.ShelfDays, 10),
				strconv.FormatInt(r.Quantity, 10),
				r.UnitCost.String(),
				r.PurchaseReason,
				r.SaleReason,
			}
		})
}

// WriteStockSummary writes the current stock summary table
// 現在庫サマリーテーブルを書き出し
func (w *Writer) WriteStockSummary(summaries []fifo.StockSummary) error {
	return w.writeFile(FileStockSummary,
		[]string{"product", "location", "current_qty", "oldest_stock_date", "newest_stock_date", "days_on_shelf_oldest", "total_cost", "avg_cost_per_unit"},
		len(summaries),
		func(i int) []string {
			s := summaries[i]
			return []string{
				s.Key.Product,
				s.Key.Location,
				strconv.FormatInt(s.Quantity, 10),
				s.OldestStockAt.Format(timestampLayout),
				s.NewestStockAt.Format(timestampLayout),
				strconv.FormatInt(s.OldestAgeDays, 10),
				s.TotalValue.String(),
				s.AverageUnitCost.String(),
			}
		})
}

// WriteShelfAging writes the per-lot aging detail table
// ロット別エイジング明細テーブルを書き出し
func (w *Writer) WriteShelfAging(entries []fifo.AgingEntry) error {
	return w.writeFile(FileShelfAging,
		[]string{"product", "location", "purchase_date", "days_on_shelf", "quantity", "unit_cost", "purchase_reason"},
		len(entries),
		func(i int) []string {
			e := entries[i]
			return []string{
				e.Key.Product,
				e.Key.Location,
				e.PurchasedAt.Format(timestampLayout),
				strconv.FormatInt(e.AgeDays, 10),
				strconv.FormatInt(e.Quantity, 10),
				e.UnitCost.String(),
				e.PurchaseReason,
			}
		})
}

// WriteAgingBuckets writes the bucket-labeled aging table
// バケットラベル付きエイジングテーブルを書き出し
func (w *Writer) WriteAgingBuckets(entries []fifo.AgingEntry) error {
	return w.writeFile(FileAgingBuckets,
		[]string{"category", "product", "location", "days_on_shelf", "quantity", "cost", "purchase_date"},
		len(entries),
		func(i int) []string {
			e := entries[i]
			return []string{
				string(e.Bucket),
				e.Key.Product,
				e.Key.Location,
				strconv.FormatInt(e.AgeDays, 10),
				strconv.FormatInt(e.Quantity, 10),
				e.UnitCost.String(),
				e.PurchasedAt.Format(timestampLayout),
			}
		})
}

// WriteTransactions writes the normalized event stream table
// 正規化イベントストリームテーブルを書き出し
func (w *Writer) WriteTransactions(events []fifo.MovementEvent) error {
	return w.writeFile(FileTransactions,
		[]string{"date", "product", "location", "quantity", "cost", "reason", "transaction_type"},
		len(events),
		func(i int) []string {
			e := events[i]
			txType := "Adjustment"
			if e.Inbound() {
				txType = "Purchase"
			} else if e.Outbound() {
				txType = "Sale"
			}
			return []string{
				e.Timestamp.Format(timestampLayout),
				e.Key.Product,
				e.Key.Location,
				strconv.FormatInt(e.Quantity, 10),
				e.TotalCost.String(),
				e.Reason,
				txType,
			}
		})
}

// writeFile writes one CSV file with a header and n data rows
// ヘッダー付きCSVファイルを1件書き出し
func (w *Writer) writeFile(name string, header []string, n int, row func(int) []string) error {
	path := filepath.Join(w.dir, name)
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("レポートファイル作成に失敗しました (%s): %w", name, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("ヘッダー書き込みに失敗しました (%s): %w", name, err)
	}
	for i := 0; i < n; i++ {
		if err := writer.Write(row(i)); err != nil {
			return fmt.Errorf("行書き込みに失敗しました (%s): %w", name, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("書き込みフラッシュに失敗しました (%s): %w", name, err)
	}

	w.logger.Debug("レポートファイル作成",
		zap.String("file", path),
		zap.Int("rows", n),
		zap.Time("written_at", time.Now()),
	)
	return nil
}
