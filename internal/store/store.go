// Package store contains the database access layer. Each store handles
// one table family and takes a *sql.DB; methods that must participate in
// a caller-owned transaction accept a Queryer instead.
package store

import (
	"context"
	"database/sql"
)

// Queryer is the subset of database operations shared by *sql.DB and
// *sql.Tx. Store methods that run inside the warning-issuance transaction
// take a Queryer so the caller controls the transaction boundary.
type Queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var (
	_ Queryer = (*sql.DB)(nil)
	_ Queryer = (*sql.Tx)(nil)
)
