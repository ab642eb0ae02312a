// Package sqlcheck dry-runs compiled filters against an in-memory DuckDB
// table shaped like the schema they were compiled for.
//
// A successful Check proves the WHERE fragment parses, binds every
// placeholder and type-checks in the engine the compiler targets.
package sqlcheck

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/roach88/semfilter/internal/filterir"
)

// Table is the name of the scratch table filters run against.
const Table = "filter_target"

// Checker owns an in-memory DuckDB database.
type Checker struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open starts an in-memory DuckDB instance.
func Open(ctx context.Context, logger *slog.Logger) (*Checker, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect duckdb: %w", err)
	}
	return &Checker{db: db, logger: logger}, nil
}

// Close releases the database.
func (c *Checker) Close() error {
	return c.db.Close()
}

// Check creates a table with the schema's columns, inserts the seed rows
// (values in column name order) and counts the rows matching f.
func (c *Checker) Check(ctx context.Context, f *filterir.CompiledFilter, schema filterir.Schema, seed ...[]any) (int64, error) {
	if f == nil {
		return 0, fmt.Errorf("check: no compiled filter")
	}

	conn, err := c.db.Conn(ctx)
	if err != nil {
		return 0, fmt.Errorf("check: acquire connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, CreateTableSQL(schema)); err != nil {
		return 0, fmt.Errorf("check: create %s: %w", Table, err)
	}
	defer func() {
		if _, err := conn.ExecContext(context.Background(), "DROP TABLE IF EXISTS "+Table); err != nil {
			c.logger.Warn("drop scratch table failed", "error", err)
		}
	}()

	if len(seed) > 0 {
		insert := insertSQL(len(schema.Names()))
		for i, row := range seed {
			if _, err := conn.ExecContext(ctx, insert, row...); err != nil {
				return 0, fmt.Errorf("check: seed row %d: %w", i, err)
			}
		}
	}

	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", Table, f.WhereSQL)
	var n int64
	if err := conn.QueryRowContext(ctx, query, f.Params...).Scan(&n); err != nil {
		return 0, fmt.Errorf("check: execute filter: %w", err)
	}
	c.logger.Debug("filter executed", "where", f.WhereSQL, "params", len(f.Params), "rows", n)
	return n, nil
}

// CreateTableSQL renders the scratch table DDL. Columns appear in name
// order; columns without a declared type become VARCHAR.
func CreateTableSQL(schema filterir.Schema) string {
	cols := schema.Columns()
	defs := make([]string, len(cols))
	for i, col := range cols {
		typ := strings.TrimSpace(col.Type)
		if typ == "" {
			typ = "VARCHAR"
		}
		defs[i] = fmt.Sprintf(`"%s" %s`, strings.ReplaceAll(col.Name, `"`, `""`), typ)
	}
	return fmt.Sprintf("CREATE OR REPLACE TEMP TABLE %s (%s)", Table, strings.Join(defs, ", "))
}

func insertSQL(n int) string {
	marks := make([]string, n)
	for i := range marks {
		marks[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s VALUES (%s)", Table, strings.Join(marks, ", "))
}
