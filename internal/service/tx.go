package service

import (
	"context"
	"database/sql"

	"github.com/iliyamo/atypikhouse/internal/repository"
)

// SQLTxRunner implements TxRunner on MySQL.  It opens a transaction,
// locks the property row with SELECT ... FOR UPDATE and hands fn
// repositories bound to that transaction.
type SQLTxRunner struct{ db *sql.DB }

func NewSQLTxRunner(db *sql.DB) *SQLTxRunner { return &SQLTxRunner{db: db} }

// SQLStores returns stores bound to the pool for reads outside a lock.
func SQLStores(db repository.DBTX) Stores {
	return Stores{
		Availability: repository.NewAvailabilityRepo(db),
		Bookings:     repository.NewBookingRepo(db),
	}
}

func (r *SQLTxRunner) InPropertyLock(ctx context.Context, propertyID uint64, fn func(Stores) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := repository.LockForUpdate(ctx, tx, propertyID); err != nil {
		return err
	}
	if err := fn(SQLStores(tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
