package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/aliirezaaa/trade-bot/internal/candle"
)

type txKey struct{}

// WithTransaction adds a transaction to the context
func WithTransaction(ctx context.Context, tx *sql.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// GetTransaction retrieves a transaction from context, or returns nil if not present
func GetTransaction(ctx context.Context) *sql.Tx {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return nil
}

// Postgres is the lib/pq backed Storage.
type Postgres struct {
	db *sql.DB
}

// NewPostgres opens the connection pool and prepares the schema.
func NewPostgres(connStr string, maxOpen, maxIdle int) (*Postgres, error) {
	sqlDB, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	p := &Postgres{db: sqlDB}
	if err := p.initSchema(); err != nil {
		return nil, err
	}
	return p, nil
}

// NewPostgresFromDB wraps an existing pool, used by tests.
func NewPostgresFromDB(sqlDB *sql.DB) (*Postgres, error) {
	p := &Postgres{db: sqlDB}
	if err := p.initSchema(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Postgres) GetDB() *sql.DB { return p.db }

func (p *Postgres) Close() error { return p.db.Close() }

func (p *Postgres) initSchema() error {
	_, err := p.db.Exec(`
	CREATE TABLE IF NOT EXISTS candles (
		symbol    TEXT             NOT NULL,
		timeframe TEXT             NOT NULL,
		timestamp TIMESTAMPTZ      NOT NULL,
		open      DOUBLE PRECISION NOT NULL,
		high      DOUBLE PRECISION NOT NULL,
		low       DOUBLE PRECISION NOT NULL,
		close     DOUBLE PRECISION NOT NULL,
		volume    DOUBLE PRECISION NOT NULL,
		source    TEXT             NOT NULL DEFAULT '',
		PRIMARY KEY (symbol, timeframe, timestamp, source)
	);
	CREATE TABLE IF NOT EXISTS backtest_runs (
		id            TEXT PRIMARY KEY,
		strategy      TEXT             NOT NULL,
		symbol        TEXT             NOT NULL,
		timeframe     TEXT             NOT NULL,
		from_time     TIMESTAMPTZ      NOT NULL,
		to_time       TIMESTAMPTZ      NOT NULL,
		total_trades  INTEGER          NOT NULL,
		win_rate      DOUBLE PRECISION NOT NULL,
		profit_factor DOUBLE PRECISION NOT NULL,
		net_pnl       DOUBLE PRECISION NOT NULL,
		max_drawdown  DOUBLE PRECISION NOT NULL,
		final_balance DOUBLE PRECISION NOT NULL,
		created_at    TIMESTAMPTZ      NOT NULL
	);`)
	if err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// executeWithTransaction runs fn inside the context transaction when one is
// present, otherwise inside a fresh one.
func (p *Postgres) executeWithTransaction(ctx context.Context, fn func(*sql.Tx) error) error {
	if tx := GetTransaction(ctx); tx != nil {
		return fn(tx)
	}

	tx, err := p.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if fnErr := fn(tx); fnErr != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction rollback failed: %w (original error: %v)", rbErr, fnErr)
		}
		return fnErr
	}
	if commitErr := tx.Commit(); commitErr != nil {
		return fmt.Errorf("transaction commit failed: %w", commitErr)
	}
	return nil
}

func (p *Postgres) queryWithTransaction(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	if tx := GetTransaction(ctx); tx != nil {
		return tx.QueryContext(ctx, query, args...)
	}
	return p.db.QueryContext(ctx, query, args...)
}

// SaveCandles upserts the batch inside a single transaction.
func (p *Postgres) SaveCandles(ctx context.Context, candles []candle.Candle) error {
	if len(candles) == 0 {
		return nil
	}
	for i, c := range candles {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("invalid candle at index %d for %s %s at %s: %w",
				i, c.Symbol, c.Timeframe, c.Timestamp, err)
		}
	}

	return p.executeWithTransaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO candles (symbol, timeframe, timestamp, open, high, low, close, volume, source)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (symbol, timeframe, timestamp, source) DO UPDATE SET
				open=EXCLUDED.open, high=EXCLUDED.high, low=EXCLUDED.low,
				close=EXCLUDED.close, volume=EXCLUDED.volume`)
		if err != nil {
			return fmt.Errorf("failed to prepare insert statement: %w", err)
		}
		defer stmt.Close()

		for i, c := range candles {
			if _, err := stmt.ExecContext(ctx,
				c.Symbol, c.Timeframe, c.Timestamp, c.Open, c.High, c.Low, c.Close, c.Volume, c.Source); err != nil {
				return fmt.Errorf("failed to save candle at index %d (%s %s at %s): %w",
					i, c.Symbol, c.Timeframe, c.Timestamp, err)
			}
		}
		return nil
	})
}

// GetCandles returns candles in [from, to) ordered by timestamp.
func (p *Postgres) GetCandles(ctx context.Context, symbol, timeframe string, from, to time.Time) ([]candle.Candle, error) {
	rows, err := p.queryWithTransaction(ctx, `
		SELECT timestamp, open, high, low, close, volume, symbol, timeframe, source
		FROM candles
		WHERE symbol=$1 AND timeframe=$2 AND timestamp >= $3 AND timestamp < $4
		ORDER BY timestamp ASC`,
		symbol, timeframe, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query candles: %w", err)
	}
	defer rows.Close()

	var out []candle.Candle
	for rows.Next() {
		var c candle.Candle
		if err := rows.Scan(&c.Timestamp, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume,
			&c.Symbol, &c.Timeframe, &c.Source); err != nil {
			return nil, fmt.Errorf("failed to scan candle: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate candles: %w", err)
	}
	return out, nil
}

// GetLatestCandle returns the newest stored candle, nil when the table holds
// none for the pair.
func (p *Postgres) GetLatestCandle(ctx context.Context, symbol, timeframe string) (*candle.Candle, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT timestamp, open, high, low, close, volume, symbol, timeframe, source
		FROM candles
		WHERE symbol=$1 AND timeframe=$2
		ORDER BY timestamp DESC LIMIT 1`,
		symbol, timeframe)

	var c candle.Candle
	err := row.Scan(&c.Timestamp, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume,
		&c.Symbol, &c.Timeframe, &c.Source)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest candle: %w", err)
	}
	return &c, nil
}

// SaveBacktestRun stores the summary row of a finished run.
func (p *Postgres) SaveBacktestRun(ctx context.Context, run BacktestRun) error {
	return p.executeWithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO backtest_runs
				(id, strategy, symbol, timeframe, from_time, to_time, total_trades,
				 win_rate, profit_factor, net_pnl, max_drawdown, final_balance, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
			run.ID, run.Strategy, run.Symbol, run.Timeframe, run.From, run.To, run.TotalTrades,
			run.WinRate, run.ProfitFactor, run.NetPnL, run.MaxDrawdown, run.FinalBalance, run.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to save backtest run %s: %w", run.ID, err)
		}
		return nil
	})
}

// GetBacktestRuns returns runs for a strategy, newest first. An empty
// strategy matches all runs.
func (p *Postgres) GetBacktestRuns(ctx context.Context, strategy string) ([]BacktestRun, error) {
	query := `
		SELECT id, strategy, symbol, timeframe, from_time, to_time, total_trades,
		       win_rate, profit_factor, net_pnl, max_drawdown, final_balance, created_at
		FROM backtest_runs`
	args := []any{}
	if strategy != "" {
		query += ` WHERE strategy=$1`
		args = append(args, strategy)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := p.queryWithTransaction(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query backtest runs: %w", err)
	}
	defer rows.Close()

	var out []BacktestRun
	for rows.Next() {
		var r BacktestRun
		if err := rows.Scan(&r.ID, &r.Strategy, &r.Symbol, &r.Timeframe, &r.From, &r.To,
			&r.TotalTrades, &r.WinRate, &r.ProfitFactor, &r.NetPnL, &r.MaxDrawdown,
			&r.FinalBalance, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan backtest run: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate backtest runs: %w", err)
	}
	return out, nil
}
