// Package warehouse executes generated SQL against the analytics warehouse.
// The pipeline only ever reads; there is no write path. A deployment points
// at one warehouse connection, which may live in a different project than
// the datasets it queries, so the connection and data projects are tracked
// separately.
package warehouse

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/talk2data/talk2data/internal/model"
)

// ProjectPair splits where the warehouse connection is billed from where the
// data lives. Generated SQL is qualified with Data and Dataset before it
// reaches the engine.
type ProjectPair struct {
	Connection string
	Data       string
	Dataset    string
}

// Config holds warehouse connection parameters.
type Config struct {
	Engine       string
	DSN          string
	Projects     ProjectPair
	MaxRows      int
	QueryTimeout time.Duration
	MaxOpenConns int
	MaxIdleConns int
}

// Executor runs read-only SQL and returns bounded row sets. Statements
// arrive fully qualified; the executor never rewrites them.
type Executor interface {
	Query(ctx context.Context, sql string) (*model.RowSet, error)
	Ping(ctx context.Context) error
	Close() error
}

const (
	defaultMaxRows      = 1000
	defaultQueryTimeout = 60 * time.Second
)

// SQLExecutor is the sqlx-backed Executor used for every supported engine.
type SQLExecutor struct {
	db       *sqlx.DB
	engine   string
	projects ProjectPair
	maxRows  int
	timeout  time.Duration
	logger   *slog.Logger
}

// Open connects to the warehouse described by cfg.
func Open(cfg Config, logger *slog.Logger) (*SQLExecutor, error) {
	driver, err := driverFor(cfg.Engine)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(driver, SanitizeDSN(cfg.Engine, cfg.DSN))
	if err != nil {
		return nil, fmt.Errorf("open warehouse connection: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	maxRows := cfg.MaxRows
	if maxRows <= 0 {
		maxRows = defaultMaxRows
	}
	timeout := cfg.QueryTimeout
	if timeout <= 0 {
		timeout = defaultQueryTimeout
	}

	return &SQLExecutor{
		db:       db,
		engine:   cfg.Engine,
		projects: cfg.Projects,
		maxRows:  maxRows,
		timeout:  timeout,
		logger:   logger,
	}, nil
}

// NewSQLExecutor wraps an existing connection. Used by tests and by callers
// that manage the pool themselves.
func NewSQLExecutor(db *sqlx.DB, engine string, projects ProjectPair, maxRows int, logger *slog.Logger) *SQLExecutor {
	if maxRows <= 0 {
		maxRows = defaultMaxRows
	}
	return &SQLExecutor{
		db:       db,
		engine:   engine,
		projects: projects,
		maxRows:  maxRows,
		timeout:  defaultQueryTimeout,
		logger:   logger,
	}
}

// Query implements Executor. Result sets are capped at the configured row
// limit; the cap is reported on the row set rather than treated as an error.
func (e *SQLExecutor) Query(ctx context.Context, sqlText string) (*model.RowSet, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	rows, err := e.db.QueryxContext(ctx, sqlText)
	if err != nil {
		return nil, &ExecutionError{Engine: e.engine, Msg: err.Error(), Err: err}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, &ExecutionError{Engine: e.engine, Msg: err.Error(), Err: err}
	}

	var collected []model.Row
	// Read one past the cap so truncation is detectable.
	for len(collected) <= e.maxRows && rows.Next() {
		raw := make(map[string]any, len(columns))
		if err := rows.MapScan(raw); err != nil {
			return nil, &ExecutionError{Engine: e.engine, Msg: err.Error(), Err: err}
		}
		collected = append(collected, normalizeRow(raw))
	}
	if err := rows.Err(); err != nil {
		return nil, &ExecutionError{Engine: e.engine, Msg: err.Error(), Err: err}
	}

	rs := model.BuildRowSet(columns, collected, e.maxRows)
	e.logger.Debug("query executed",
		"engine", e.engine, "rows", rs.RowCount(), "truncated", rs.Truncated,
		"elapsed", time.Since(start))
	return rs, nil
}

// Projects returns the cross-project addressing pair the executor was
// opened with.
func (e *SQLExecutor) Projects() ProjectPair { return e.projects }

// Ping implements Executor.
func (e *SQLExecutor) Ping(ctx context.Context) error {
	return e.db.PingContext(ctx)
}

// Close implements Executor.
func (e *SQLExecutor) Close() error { return e.db.Close() }

// normalizeRow converts driver-specific scan values into plain JSON-friendly
// Go values. []byte columns come back from the MySQL and SQLite drivers for
// text data.
func normalizeRow(raw map[string]any) model.Row {
	row := make(model.Row, len(raw))
	for k, v := range raw {
		if b, ok := v.([]byte); ok {
			row[k] = string(b)
			continue
		}
		row[k] = v
	}
	return row
}

var _ Executor = (*SQLExecutor)(nil)
