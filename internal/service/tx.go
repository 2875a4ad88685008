package service

import (
	"context"

	"github.com/jmoiron/sqlx"

	appErrors "github.com/noah-isme/lecture-diary-api/pkg/errors"
)

// inTx runs fn inside a transaction. fn's error is returned untouched after rollback;
// begin and commit failures become storage errors mentioning what.
func inTx(ctx context.Context, db txProvider, what string, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Storage(err, "failed to start "+what)
	}
	if err := fn(tx); err != nil {
		tx.Rollback() //nolint:errcheck
		return err
	}
	if err := tx.Commit(); err != nil {
		return appErrors.Storage(err, "failed to commit "+what)
	}
	return nil
}
