package listing

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/imranpollob/nft-rental-marketplace/internal/fault"
)

// Repository persists listings keyed by asset id.
type Repository interface {
	Save(ctx context.Context, l Listing) error
	Get(ctx context.Context, assetID string) (Listing, error)
}

// PostgresRepository stores listings in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Save upserts a listing record.
func (r *PostgresRepository) Save(ctx context.Context, l Listing) error {
	_, err := r.db.Exec(ctx, `INSERT INTO listings
        (asset_id, owner_identity, price_per_second, min_duration, max_duration, deposit, schedule_hash, active, version, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        ON CONFLICT (asset_id) DO UPDATE SET
            owner_identity = EXCLUDED.owner_identity,
            price_per_second = EXCLUDED.price_per_second,
            min_duration = EXCLUDED.min_duration,
            max_duration = EXCLUDED.max_duration,
            deposit = EXCLUDED.deposit,
            schedule_hash = EXCLUDED.schedule_hash,
            active = EXCLUDED.active,
            version = EXCLUDED.version,
            updated_at = EXCLUDED.updated_at`,
		l.AssetID, l.Owner, l.PricePerSecond, l.MinDuration, l.MaxDuration,
		l.Deposit, l.ScheduleHash, l.Active, l.Version, l.CreatedAt.UTC(), l.UpdatedAt.UTC())
	return err
}

// Get fetches the listing for an asset.
func (r *PostgresRepository) Get(ctx context.Context, assetID string) (Listing, error) {
	row := r.db.QueryRow(ctx, `SELECT asset_id, owner_identity, price_per_second, min_duration, max_duration,
        deposit, schedule_hash, active, version, created_at, updated_at
        FROM listings WHERE asset_id = $1`, assetID)

	var (
		l                    Listing
		createdAt, updatedAt time.Time
	)
	err := row.Scan(&l.AssetID, &l.Owner, &l.PricePerSecond, &l.MinDuration, &l.MaxDuration,
		&l.Deposit, &l.ScheduleHash, &l.Active, &l.Version, &createdAt, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Listing{}, fault.NotFound("listing for asset %s not found", assetID)
	}
	if err != nil {
		return Listing{}, err
	}
	l.CreatedAt = createdAt.UTC()
	l.UpdatedAt = updatedAt.UTC()
	return l, nil
}
