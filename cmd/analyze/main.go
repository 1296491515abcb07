package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/nemonet1337/zaiShelfAnalytics/internal/config"
	"github.com/nemonet1337/zaiShelfAnalytics/internal/ingest"
	"github.com/nemonet1337/zaiShelfAnalytics/internal/report"
	"github.com/nemonet1337/zaiShelfAnalytics/pkg/fifo"
)

func main() {
	openingPath := flag.String("opening", "", "期首在庫CSVファイル（任意）")
	asOfFlag := flag.String("as-of", "", "エイジング基準時点（RFC3339、省略時は現在時刻）")
	outDir := flag.String("out", "", "レポート出力ディレクトリ（省略時は設定値）")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "使い方: %s [オプション] <在庫移動CSV>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	// ログ設定
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal("ログ初期化に失敗しました:", err)
	}
	defer logger.Sync()

	// 設定読み込み
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("設定読み込みに失敗しました", zap.Error(err))
	}

	asOf := time.Now().UTC()
	if *asOfFlag != "" {
		asOf, err = time.Parse(time.RFC3339, *asOfFlag)
		if err != nil {
			logger.Fatal("基準時点の形式が不正です", zap.String("as_of", *asOfFlag), zap.Error(err))
		}
	}

	dir := cfg.Report.OutputDir
	if *outDir != "" {
		dir = *outDir
	}

	// CSV読み込み
	reader := ingest.NewReader(logger)
	events, err := reader.ReadMovementsFile(flag.Arg(0))
	if err != nil {
		logger.Fatal("在庫移動CSV読み込みに失敗しました", zap.String("file", flag.Arg(0)), zap.Error(err))
	}

	var opening []fifo.OpeningStock
	if *openingPath != "" {
		opening, err = reader.ReadOpeningStockFile(*openingPath)
		if err != nil {
			logger.Fatal("期首在庫CSV読み込みに失敗しました", zap.String("file", *openingPath), zap.Error(err))
		}
	}

	// 分析実行
	result := fifo.Analyze(events, opening, asOf, logger)

	// レポート書き出し
	writer := report.NewWriter(dir, logger)
	if err := writer.WriteAll(result, events); err != nil {
		logger.Fatal("レポート書き出しに失敗しました", zap.Error(err))
	}

	printSummary(result, dir)
}

// printSummary prints a human-readable analysis overview to stdout
// 分析概要を標準出力へ表示
func printSummary(result *fifo.AnalysisResult, dir string) {
	fmt.Println("========================================")
	fmt.Println(" 棚滞留分析結果")
	fmt.Println("========================================")
	fmt.Printf("実行ID: %s\n", result.RunID)
	fmt.Printf("基準時点: %s\n", result.AsOf.Format("2006-01-02 15:04:05"))
	fmt.Println()

	overall := result.Analytics.Overall
	fmt.Println("--- 全体統計 ---")
	fmt.Printf("売却数量合計: %d\n", overall.Units)
	if overall.Units > 0 {
		fmt.Printf("平均棚滞留日数: %.1f日\n", overall.MeanDays)
		fmt.Printf("中央値: %.1f日\n", overall.MedianDays)
		fmt.Printf("最小/最大: %d日 / %d日\n", overall.MinDays, overall.MaxDays)
		fmt.Printf("標準偏差: %.1f日\n", overall.StdDevDays)
	}
	fmt.Println()

	if len(result.Analytics.FastMovers) > 0 {
		fmt.Println("--- 回転の速い商品（上位5件）---")
		for i, mover := range result.Analytics.FastMovers {
			if i >= 5 {
				break
			}
			fmt.Printf("  %d. %s: 平均%.1f日（%d個）\n", i+1, mover.Product, mover.MeanDays, mover.Units)
		}
		fmt.Println()

		fmt.Println("--- 回転の遅い商品（上位5件）---")
		for i, mover := range result.Analytics.SlowMovers {
			if i >= 5 {
				break
			}
			fmt.Printf("  %d. %s: 平均%.1f日（%d個）\n", i+1, mover.Product, mover.MeanDays, mover.Units)
		}
		fmt.Println()
	}

	fmt.Println("--- 在庫エイジング ---")
	for _, row := range result.AgingSummary {
		fmt.Printf("  %-20s 数量: %6d  価値: %12s  平均経過: %.1f日\n",
			row.Bucket, row.Units, row.TotalValue.StringFixed(2), row.AverageAgeDays)
	}
	fmt.Println()

	tx := result.Transactions
	fmt.Println("--- トランザクション概要 ---")
	fmt.Printf("総イベント数: %d（入庫 %d / 出庫 %d）\n", tx.TotalEvents, tx.PurchaseEvents, tx.SaleEvents)
	fmt.Printf("入庫数量: %d  出庫数量: %d\n", tx.PurchasedUnits, tx.SoldUnits)
	if len(result.Shortfalls) > 0 {
		fmt.Printf("不足警告: %d件\n", len(result.Shortfalls))
	}
	fmt.Println()
	fmt.Printf("レポートを %s へ出力しました\n", dir)
}
