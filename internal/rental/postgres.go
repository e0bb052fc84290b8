package rental

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/imranpollob/nft-rental-marketplace/internal/fault"
)

// PostgresRepository stores rentals in PostgreSQL. The overlap check and the
// insert run in one transaction under a per-asset advisory lock, so the
// non-overlap invariant holds even across multiple service instances.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// BookIfFree inserts the rental unless its interval overlaps an existing one
// for the same asset.
func (r *PostgresRepository) BookIfFree(ctx context.Context, rt Rental) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	// Serialize bookings per asset for the duration of the transaction.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, rt.AssetID); err != nil {
		return err
	}

	var clashID string
	err = tx.QueryRow(ctx, `SELECT id FROM rentals
        WHERE asset_id = $1 AND start_at < $2 AND end_at > $3
        LIMIT 1`, rt.AssetID, rt.End, rt.Start).Scan(&clashID)
	if err == nil {
		return fault.Conflict("interval [%d, %d) overlaps rental %s", rt.Start, rt.End, clashID)
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	if _, err := tx.Exec(ctx, `INSERT INTO rentals
        (id, asset_id, renter, owner_identity, start_at, end_at, amount, deposit, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		rt.ID, rt.AssetID, rt.Renter, rt.Owner, rt.Start, rt.End,
		rt.Amount, rt.Deposit, string(rt.Status), rt.CreatedAt.UTC(), rt.UpdatedAt.UTC()); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func scanRental(row pgx.Row) (Rental, error) {
	var (
		rt                   Rental
		status               string
		createdAt, updatedAt time.Time
	)
	err := row.Scan(&rt.ID, &rt.AssetID, &rt.Renter, &rt.Owner, &rt.Start, &rt.End,
		&rt.Amount, &rt.Deposit, &status, &createdAt, &updatedAt)
	if err != nil {
		return Rental{}, err
	}
	rt.Status = Status(status)
	rt.CreatedAt = createdAt.UTC()
	rt.UpdatedAt = updatedAt.UTC()
	return rt, nil
}

const rentalColumns = `id, asset_id, renter, owner_identity, start_at, end_at, amount, deposit, status, created_at, updated_at`

// Get fetches a rental by id.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Rental, error) {
	rt, err := scanRental(r.db.QueryRow(ctx, `SELECT `+rentalColumns+` FROM rentals WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Rental{}, fault.NotFound("rental %s not found", id)
	}
	return rt, err
}

// Update persists status and timestamp changes.
func (r *PostgresRepository) Update(ctx context.Context, rt Rental) error {
	cmd, err := r.db.Exec(ctx, `UPDATE rentals SET status = $1, updated_at = $2 WHERE id = $3`,
		string(rt.Status), rt.UpdatedAt.UTC(), rt.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fault.NotFound("rental %s not found", rt.ID)
	}
	return nil
}

// Remove deletes a rental, freeing its interval.
func (r *PostgresRepository) Remove(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM rentals WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fault.NotFound("rental %s not found", id)
	}
	return nil
}

// DueForSettlement lists ended, unfinalized rentals ordered by end time.
func (r *PostgresRepository) DueForSettlement(ctx context.Context, now int64, limit int) ([]Rental, error) {
	rows, err := r.db.Query(ctx, `SELECT `+rentalColumns+` FROM rentals
        WHERE status <> $1 AND end_at <= $2
        ORDER BY end_at ASC
        LIMIT $3`, string(StatusFinalized), now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var due []Rental
	for rows.Next() {
		rt, err := scanRental(rows)
		if err != nil {
			return nil, err
		}
		due = append(due, rt)
	}
	return due, rows.Err()
}
