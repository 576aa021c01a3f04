package engine

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"
)

// SQLConn implements Conn on top of a *sql.DB. The engine supplies the
// catalog query used to list tables; it must return (schema, name) rows.
//
// The driver must accept several statements in a single Exec call, since
// RunScript sends the script in one piece.
type SQLConn struct {
	db              *sql.DB
	listTablesQuery string
}

var _ Conn = (*SQLConn)(nil)

// NewSQLConn wraps db. SQLConn takes ownership of db and closes it in Close.
func NewSQLConn(db *sql.DB, listTablesQuery string) *SQLConn {
	return &SQLConn{db: db, listTablesQuery: listTablesQuery}
}

// DB returns the underlying database handle.
func (c *SQLConn) DB() *sql.DB {
	return c.db
}

// ListTables runs the catalog query and returns its rows.
func (c *SQLConn) ListTables(ctx context.Context) ([]TableRef, error) {
	rows, err := c.db.QueryContext(ctx, c.listTablesQuery)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close() //nolint:errcheck // rows.Err is checked below

	var tables []TableRef
	for rows.Next() {
		var t TableRef
		if err := rows.Scan(&t.Schema, &t.Name); err != nil {
			return nil, fmt.Errorf("scan table row: %w", err)
		}
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}
	return tables, nil
}

// RunScript reads the whole script and executes it in a single call. A
// script with no content is a no-op.
func (c *SQLConn) RunScript(ctx context.Context, r io.Reader) error {
	script, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read script: %w", err)
	}
	if strings.TrimSpace(string(script)) == "" {
		return nil
	}
	if _, err := c.db.ExecContext(ctx, string(script)); err != nil {
		return fmt.Errorf("execute script: %w", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (c *SQLConn) Close() error {
	return c.db.Close()
}
