package sqlutil

import (
	"context"
	"database/sql"
)

// Run executes fn inside a *sql.Tx bound to a fresh query set.
// fn returning an error rolls the tx back; otherwise it commits.
func Run[T any](
	ctx context.Context,
	db *sql.DB,
	newQueries func(*sql.Tx) *T,
	fn func(q *T) error,
) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	q := newQueries(tx)
	if err := fn(q); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
