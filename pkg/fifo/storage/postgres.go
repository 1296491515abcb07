// Package storage provides PostgreSQL-backed event history and result persistence
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/nemonet1337/zaiShelfAnalytics/pkg/fifo"
)

// PostgreSQLStore persists movement event history and analysis results.
// Ledger state itself is never persisted; it is rebuilt from the full event
// history on every run.
// PostgreSQLによる移動イベント履歴と分析結果の永続化
type PostgreSQLStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgreSQLStore creates a new PostgreSQL store instance
// 新しいPostgreSQLストアインスタンスを作成
func NewPostgreSQLStore(dsn string, logger *zap.Logger) (*PostgreSQLStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗しました: %w", err)
	}

	// 接続テスト
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("データベースpingに失敗しました: %w", err)
	}

	// 接続プール設定
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &PostgreSQLStore{
		db:     db,
		logger: logger,
	}, nil
}

// SaveMovements appends movement events to the history table
// 移動イベントを履歴テーブルへ追記
func (s *PostgreSQLStore) SaveMovements(ctx context.Context, events []fifo.MovementEvent) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fifo.NewStorageError("save_movements", "トランザクション開始に失敗しました", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO movement_events (product, location, occurred_at, quantity, total_cost, reason)
		VALUES ($1, $2, $3, $4, $5, $6)`

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fifo.NewStorageError("save_movements", "ステートメント準備に失敗しました", err)
	}
	defer stmt.Close()

	for _, event := range events {
		_, err := stmt.ExecContext(ctx,
			event.Key.Product,
			event.Key.Location,
			event.Timestamp,
			event.Quantity,
			event.TotalCost,
			event.Reason,
		)
		if err != nil {
			if pqErr, ok := err.(*pq.Error); ok {
				return fifo.NewStorageError("save_movements",
					fmt.Sprintf("イベント挿入に失敗しました (コード: %s)", pqErr.Code), err)
			}
			return fifo.NewStorageError("save_movements", "イベント挿入に失敗しました", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fifo.NewStorageError("save_movements", "コミットに失敗しました", err)
	}

	s.logger.Info("移動イベント保存完了", zap.Int("count", len(events)))
	return nil
}

// LoadMovements loads the normalized event stream for a time range, ordered
// by occurrence time with insertion order breaking ties. A zero from or to
// leaves that end of the range open. The returned slice satisfies the
// engine's ordering contract without further sorting.
// 期間指定で移動イベントストリームを取得（発生時刻順、同時刻は挿入順）
func (s *PostgreSQLStore) LoadMovements(ctx context.Context, from, to time.Time) ([]fifo.MovementEvent, error) {
	if to.IsZero() {
		to = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)
	}

	query := `
		SELECT product, location, occurred_at, quantity, total_cost, reason
		FROM movement_events
		WHERE occurred_at >= $1 AND occurred_at <= $2
		ORDER BY occurred_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fifo.NewStorageError("load_movements", "イベント取得に失敗しました", err)
	}
	defer rows.Close()

	events := make([]fifo.MovementEvent, 0)
	for rows.Next() {
		var event fifo.MovementEvent
		var reason sql.NullString

		err := rows.Scan(
			&event.Key.Product,
			&event.Key.Location,
			&event.Timestamp,
			&event.Quantity,
			&event.TotalCost,
			&reason,
		)
		if err != nil {
			return nil, fifo.NewStorageError("load_movements", "イベント読み込みに失敗しました", err)
		}

		event.Reason = reason.String
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fifo.NewStorageError("load_movements", "イベント走査に失敗しました", err)
	}

	s.logger.Info("移動イベント取得完了",
		zap.Int("count", len(events)),
		zap.Time("from", from),
		zap.Time("to", to),
	)

	return events, nil
}

// SaveShelfTimes persists the shelf-time records of one analysis run
// 1回の分析実行の棚滞留記録を保存
func (s *PostgreSQLStore) SaveShelfTimes(ctx context.Context, runID string, records []fifo.ShelfTimeRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fifo.NewStorageError("save_shelf_times", "トランザクション開始に失敗しました", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO shelf_time_records
			(run_id, product, location, purchased_at, sold_at, shelf_days, quantity, unit_cost, purchase_reason, sale_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fifo.NewStorageError("save_shelf_times", "ステートメント準備に失敗しました", err)
	}
	defer stmt.Close()

	for _, record := range records {
		_, err := stmt.ExecContext(ctx,
			runID,
			record.Key.Product,
			record.Key.Location,
			record.PurchasedAt,
			record.SoldAt,
			record.ShelfDays,
			record.Quantity,
			record.UnitCost,
			record.PurchaseReason,
			record.SaleReason,
		)
		if err != nil {
			return fifo.NewStorageError("save_shelf_times", "記録挿入に失敗しました", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fifo.NewStorageError("save_shelf_times", "コミットに失敗しました", err)
	}

	s.logger.Info("棚滞留記録保存完了",
		zap.String("run_id", runID),
		zap.Int("count", len(records)),
	)
	return nil
}

// SaveShortfalls persists the shortfall warnings of one analysis run
// 1回の分析実行の不足警告を保存
func (s *PostgreSQLStore) SaveShortfalls(ctx context.Context, runID string, warnings []fifo.ShortfallWarning) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fifo.NewStorageError("save_shortfalls", "トランザクション開始に失敗しました", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO shortfall_warnings (run_id, product, location, sold_at, requested, matched)
		VALUES ($1, $2, $3, $4, $5, $6)`

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fifo.NewStorageError("save_shortfalls", "ステートメント準備に失敗しました", err)
	}
	defer stmt.Close()

	for _, warning := range warnings {
		_, err := stmt.ExecContext(ctx,
			runID,
			warning.Key.Product,
			warning.Key.Location,
			warning.SoldAt,
			warning.Requested,
			warning.Matched,
		)
		if err != nil {
			return fifo.NewStorageError("save_shortfalls", "警告挿入に失敗しました", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fifo.NewStorageError("save_shortfalls", "コミットに失敗しました", err)
	}

	s.logger.Info("不足警告保存完了",
		zap.String("run_id", runID),
		zap.Int("count", len(warnings)),
	)
	return nil
}

// SaveResult persists all persistent parts of one analysis result
// 分析結果の永続化対象をまとめて保存
func (s *PostgreSQLStore) SaveResult(ctx context.Context, result *fifo.AnalysisResult) error {
	if err := s.SaveShelfTimes(ctx, result.RunID, result.ShelfTimes); err != nil {
		return err
	}
	return s.SaveShortfalls(ctx, result.RunID, result.Shortfalls)
}

// Ping checks database connectivity
// データベース接続を確認
func (s *PostgreSQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
// データベース接続を閉じる
func (s *PostgreSQLStore) Close() error {
	return s.db.Close()
}
