package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"NewsAnalyst/internal/domain"
	"NewsAnalyst/internal/ports"
)

// Supported archive drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

const runsTable = "analysis_runs"

var runColumns = []string{
	"run_id", "topic", "status", "article_count", "warning_count", "reason", "markdown", "created_at",
}

// Archive persists finished analysis runs into Postgres or SQLite.
type Archive struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.ReportArchive = (*Archive)(nil)

// Open connects to the database behind dsn with the named driver.
func Open(driver, dsn string) (*Archive, error) {
	var sqlDriver string
	switch driver {
	case DriverPostgres, "pgx":
		sqlDriver, driver = "pgx", DriverPostgres
	case DriverSQLite, "sqlite":
		sqlDriver, driver = "sqlite3", DriverSQLite
	default:
		return nil, fmt.Errorf("unsupported archive driver %q", driver)
	}
	db, err := sql.Open(sqlDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	return NewArchive(db, driver), nil
}

// NewArchive wires an existing sql.DB; driver selects the placeholder style.
func NewArchive(db *sql.DB, driver string) *Archive {
	var format sq.PlaceholderFormat = sq.Question
	if driver == DriverPostgres {
		format = sq.Dollar
	}
	return &Archive{db: db, builder: sq.StatementBuilder.PlaceholderFormat(format)}
}

// Close releases the connection pool.
func (a *Archive) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

// EnsureSchema creates the runs table when missing.
func (a *Archive) EnsureSchema(ctx context.Context) error {
	if a.db == nil {
		return nil
	}
	statements := []string{
		`CREATE TABLE IF NOT EXISTS ` + runsTable + ` (
			run_id        TEXT PRIMARY KEY,
			topic         TEXT NOT NULL,
			status        TEXT NOT NULL,
			article_count INTEGER NOT NULL,
			warning_count INTEGER NOT NULL,
			reason        TEXT NOT NULL DEFAULT '',
			markdown      TEXT NOT NULL DEFAULT '',
			created_at    TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS analysis_runs_topic_created_idx ON ` + runsTable + ` (topic, created_at)`,
	}
	for _, stmt := range statements {
		if _, err := a.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// Save upserts the run snapshot.
func (a *Archive) Save(ctx context.Context, run domain.ArchivedRun) error {
	if a.db == nil {
		return nil
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	query, args, err := a.builder.Insert(runsTable).
		Columns(runColumns...).
		Values(run.RunID, run.Topic, string(run.Status), run.ArticleCount, run.WarningCount,
			run.Reason, run.Markdown, run.CreatedAt.UTC()).
		Suffix(`ON CONFLICT (run_id) DO UPDATE
			SET status = EXCLUDED.status,
			    article_count = EXCLUDED.article_count,
			    warning_count = EXCLUDED.warning_count,
			    reason = EXCLUDED.reason,
			    markdown = EXCLUDED.markdown`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := a.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert run %s: %w", run.RunID, err)
	}
	return nil
}

// Recent returns the newest runs, optionally filtered by topic.
func (a *Archive) Recent(ctx context.Context, topic string, limit int) ([]domain.ArchivedRun, error) {
	if a.db == nil {
		return nil, nil
	}

	builder := a.builder.Select(runColumns...).
		From(runsTable).
		OrderBy("created_at DESC", "run_id")
	if topic != "" {
		builder = builder.Where(sq.Eq{"topic": topic})
	}
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}

	var result []domain.ArchivedRun
	for rows.Next() {
		var (
			run    domain.ArchivedRun
			status string
		)
		if err := rows.Scan(&run.RunID, &run.Topic, &status, &run.ArticleCount, &run.WarningCount,
			&run.Reason, &run.Markdown, &run.CreatedAt); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.Status = domain.RunStatus(status)
		result = append(result, run)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return result, nil
}
