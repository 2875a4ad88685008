package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

var (
	// ErrDuplicate is returned when a write violates a unique constraint.
	ErrDuplicate = errors.New("duplicate record")
	// ErrReferenced is returned when a row cannot be removed or linked because of a foreign key.
	ErrReferenced = errors.New("record is referenced")
)

func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > maxPageSize {
		size = defaultPageSize
	}
	return page, size
}

// requireAffected maps a zero-row write to sql.ErrNoRows so services can report not found.
func requireAffected(result sql.Result, op string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func writeError(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return fmt.Errorf("%s: %w", op, ErrDuplicate)
		case "23503":
			return fmt.Errorf("%s: %w", op, ErrReferenced)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// getRow scans a single row into dest. sql.ErrNoRows is returned unwrapped.
func getRow(ctx context.Context, q sqlx.QueryerContext, dest interface{}, op, query string, args ...interface{}) error {
	err := sqlx.GetContext(ctx, q, dest, query, args...)
	if err == nil || errors.Is(err, sql.ErrNoRows) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}

func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// predicates accumulates AND-ed SQL conditions with numbered placeholders. Each "?" in a
// condition is replaced by the placeholder of the value passed with it.
type predicates struct {
	clauses []string
	args    []interface{}
}

func (p *predicates) add(cond string, arg interface{}) {
	p.args = append(p.args, arg)
	p.clauses = append(p.clauses, strings.ReplaceAll(cond, "?", fmt.Sprintf("$%d", len(p.args))))
}

// and renders the conditions prefixed with " AND ", or "" when there are none.
func (p *predicates) and() string {
	if len(p.clauses) == 0 {
		return ""
	}
	return " AND " + strings.Join(p.clauses, " AND ")
}
