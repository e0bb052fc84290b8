package rental

import "context"

// Repository persists rentals and the per-asset interval index.
//
// BookIfFree is the single atomic step the non-overlap invariant rests on:
// the conflict check and the interval insertion commit together or not at
// all, so two concurrent bookings over intersecting intervals can never both
// succeed.
type Repository interface {
	BookIfFree(ctx context.Context, r Rental) error
	Get(ctx context.Context, id string) (Rental, error)
	Update(ctx context.Context, r Rental) error
	// Remove deletes a rental and frees its interval. Only used to
	// compensate a booking whose payment hold failed.
	Remove(ctx context.Context, id string) error
	// DueForSettlement lists rentals whose interval has ended but that have
	// not been finalized yet.
	DueForSettlement(ctx context.Context, now int64, limit int) ([]Rental, error)
}
