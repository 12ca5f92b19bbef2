// Package engine owns the embedded DuckDB handle for one explorer session:
// lazy connection caching, snowflake extension loading, secret lifecycle,
// and query dispatch for both local and passthrough statements.
package engine

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/mahanteshimath/duckdb-snowflake/internal/statement"
)

// Result is the tabular output of one executed statement.
type Result struct {
	Columns []string
	Rows    [][]any
	Elapsed time.Duration
}

// RowCount returns the number of materialized rows.
func (r Result) RowCount() int {
	return len(r.Rows)
}

// Column extracts one column as strings. Lookup is case-insensitive by name;
// a missing name falls back to the first column. Nil cells are skipped. An
// empty result yields an empty slice.
func (r Result) Column(name string) []string {
	if len(r.Rows) == 0 || len(r.Columns) == 0 {
		return []string{}
	}
	index := 0
	if name != "" {
		for i, col := range r.Columns {
			if strings.EqualFold(col, name) {
				index = i
				break
			}
		}
	}
	return r.ColumnAt(index)
}

// ColumnAt extracts the column at index as strings.
func (r Result) ColumnAt(index int) []string {
	if index < 0 || index >= len(r.Columns) {
		return []string{}
	}
	values := make([]string, 0, len(r.Rows))
	for _, row := range r.Rows {
		if index >= len(row) || row[index] == nil {
			continue
		}
		values = append(values, fmt.Sprintf("%v", row[index]))
	}
	return values
}

// Engine caches exactly one DuckDB handle. The zero value is not usable;
// construct with New. Safe for concurrent use.
type Engine struct {
	mu              sync.Mutex
	db              *sql.DB
	open            func() (*sql.DB, error)
	installSource   string
	extensionLoaded bool
}

// New returns an engine that opens an in-memory DuckDB on first use and
// installs the snowflake extension from installSource.
func New(installSource string) *Engine {
	return &Engine{
		installSource: installSource,
		open: func() (*sql.DB, error) {
			db, err := sql.Open("duckdb", "")
			if err != nil {
				return nil, fmt.Errorf("open duckdb: %w", err)
			}
			// Extension and secret state live on the physical connection,
			// so the pool must never hand out a second one.
			db.SetMaxOpenConns(1)
			return db, nil
		},
	}
}

// NewWithDB returns an engine bound to an already opened handle. Used by
// tests to substitute a mock.
func NewWithDB(db *sql.DB) *Engine {
	return &Engine{
		db:   db,
		open: func() (*sql.DB, error) { return db, nil },
	}
}

func (e *Engine) conn() (*sql.DB, error) {
	if e.db != nil {
		return e.db, nil
	}
	db, err := e.open()
	if err != nil {
		return nil, err
	}
	e.db = db
	return e.db, nil
}

// Reset discards the cached handle and all state stored on it. Callers must
// not hold references past Reset.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.db != nil {
		_ = e.db.Close()
		e.db = nil
	}
	e.extensionLoaded = false
}

// EnsureExtension installs and loads the snowflake extension once per handle.
// Install failures are tolerated (the extension may already be present);
// load failures are fatal and returned verbatim. The returned detail is the
// extension version, best-effort.
func (e *Engine) EnsureExtension(ctx context.Context) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.extensionLoaded {
		return "already loaded", nil
	}
	db, err := e.conn()
	if err != nil {
		return "", err
	}

	// May fail when already installed or offline with a cached copy.
	_, _ = db.ExecContext(ctx, statement.InstallExtension(e.installSource))

	if _, err := db.ExecContext(ctx, statement.LoadExtension()); err != nil {
		return "", fmt.Errorf("load snowflake extension: %w", err)
	}

	detail := "unknown"
	row := db.QueryRowContext(ctx, statement.ExtensionVersion())
	var version string
	if err := row.Scan(&version); err == nil {
		detail = version
	}

	e.extensionLoaded = true
	return detail, nil
}

// CreateOrReplaceSecret drops any prior secret with the same name (drop
// errors ignored) and creates the new one. Create errors are returned
// verbatim; there are no retries.
func (e *Engine) CreateOrReplaceSecret(ctx context.Context, name string, params statement.SecretParams) error {
	dropSQL, createSQL, err := statement.SecretStatements(name, params)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	db, err := e.conn()
	if err != nil {
		return err
	}

	_, _ = db.ExecContext(ctx, dropSQL)
	if _, err := db.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("create secret: %w", err)
	}
	return nil
}

// DropSecret removes the named secret. Callers treat failures as best-effort
// cleanup and must not let them block a disconnect.
func (e *Engine) DropSecret(ctx context.Context, name string) error {
	if !statement.ValidIdent(name) {
		return fmt.Errorf("invalid secret name %q", name)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	db, err := e.conn()
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, statement.DropSecret(name)); err != nil {
		return fmt.Errorf("drop secret: %w", err)
	}
	return nil
}

// RunLocal executes sql against the embedded engine and materializes the
// full result. Elapsed covers execution plus materialization.
func (e *Engine) RunLocal(ctx context.Context, sqlText string) (Result, error) {
	if strings.TrimSpace(sqlText) == "" {
		return Result{}, fmt.Errorf("sql is required")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	db, err := e.conn()
	if err != nil {
		return Result{}, err
	}

	start := time.Now()
	rows, err := db.QueryContext(ctx, sqlText)
	if err != nil {
		return Result{}, err
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return Result{}, fmt.Errorf("query columns: %w", err)
	}

	resultRows := make([][]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return Result{}, fmt.Errorf("scan row: %w", err)
		}
		resultRows = append(resultRows, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return Result{}, fmt.Errorf("iterate rows: %w", err)
	}

	return Result{
		Columns: columns,
		Rows:    resultRows,
		Elapsed: time.Since(start),
	}, nil
}

// RunRemote wraps remoteSQL in a passthrough call through the named secret
// and executes it on the same path as RunLocal.
func (e *Engine) RunRemote(ctx context.Context, remoteSQL, secretName string) (Result, error) {
	if strings.TrimSpace(remoteSQL) == "" {
		return Result{}, fmt.Errorf("sql is required")
	}
	return e.RunLocal(ctx, statement.Passthrough(statement.StripTrailingSemicolons(remoteSQL), secretName))
}

// FetchColumn runs a remote query and extracts one column as strings.
// Failures and empty results both yield an empty slice, never an error;
// browse dropdowns degrade to empty rather than failing.
func (e *Engine) FetchColumn(ctx context.Context, remoteSQL, secretName, column string) []string {
	result, err := e.RunRemote(ctx, remoteSQL, secretName)
	if err != nil {
		return []string{}
	}
	return result.Column(column)
}

// TestConnection verifies end-to-end connectivity through the extension and
// returns a human-readable summary of the remote session.
func (e *Engine) TestConnection(ctx context.Context, secretName string) (string, error) {
	result, err := e.RunRemote(ctx, statement.SessionInfo(), secretName)
	if err != nil {
		return "", err
	}
	if len(result.Rows) == 0 || len(result.Rows[0]) < 4 {
		return "", fmt.Errorf("connection probe returned no rows")
	}
	row := result.Rows[0]
	return fmt.Sprintf("Snowflake v%v, account %v, user %v, role %v", row[0], row[1], row[2], row[3]), nil
}

// Attach maps the remote catalog into the embedded engine under alias.
func (e *Engine) Attach(ctx context.Context, alias, secretName string) error {
	attachSQL, err := statement.Attach(alias, secretName)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	db, err := e.conn()
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, attachSQL); err != nil {
		return fmt.Errorf("attach %s: %w", alias, err)
	}
	return nil
}

// Detach removes a previously attached catalog. Best-effort on disconnect.
func (e *Engine) Detach(ctx context.Context, alias string) error {
	detachSQL, err := statement.Detach(alias)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	db, err := e.conn()
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, detachSQL); err != nil {
		return fmt.Errorf("detach %s: %w", alias, err)
	}
	return nil
}

func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		default:
			normalized[i] = typed
		}
	}
	return normalized
}
