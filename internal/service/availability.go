package service

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/atypikhouse/internal/model"
)

// ErrWindowConflict: the new window overlaps an existing one (409).
var ErrWindowConflict = errors.New("availability period conflicts with an existing period")

// WindowStore is the subset of the availability repository used when
// adding windows.
type WindowStore interface {
	FindConflicting(ctx context.Context, propertyID uint64, start, end time.Time, excludeID uint64) ([]model.Availability, error)
	Create(ctx context.Context, a *model.Availability) error
}

// AddWindow validates a and inserts it unless it overlaps another
// window of the same property.
func AddWindow(ctx context.Context, store WindowStore, a *model.Availability) error {
	a.StartDate, a.EndDate = model.DateOnly(a.StartDate), model.DateOnly(a.EndDate)
	if !a.StartDate.Before(a.EndDate) {
		return ErrInvalidDates
	}
	conflicts, err := store.FindConflicting(ctx, a.PropertyID, a.StartDate, a.EndDate, 0)
	if err != nil {
		return err
	}
	if len(conflicts) > 0 {
		return ErrWindowConflict
	}
	return store.Create(ctx, a)
}
