// Package repository holds the MySQL data access layer. It also
// defines error types that are reused across multiple repositories.
// These sentinel values allow higher layers such as handlers to
// distinguish between different failure scenarios. For example,
// ErrForbidden indicates that the current user is not authorized to
// perform an operation on a resource owned by someone else, while
// ErrConflict signals that an operation cannot proceed due to
// existing records (e.g. an availability window overlapping another).
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an insert or update cannot be
// performed because of conflicting state, such as a second review
// for the same booking. Handlers should translate this into an
// HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrEmailExists is returned by UserRepo.Create on a duplicate email.
var ErrEmailExists = errors.New("email already exists")

// DBTX is satisfied by both *sql.DB and *sql.Tx so repositories can
// run inside or outside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// isDuplicate reports a MySQL 1062 duplicate-key error.
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

// placeholders returns "?,?,?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
