package listing

import (
	"context"
	"time"

	"github.com/imranpollob/nft-rental-marketplace/internal/fault"
	"github.com/imranpollob/nft-rental-marketplace/internal/registry"
)

// Service manages the owner-controlled catalog of rentable terms.
type Service struct {
	repo Repository
	reg  registry.Registry
}

// NewService builds a listing service instance.
func NewService(repo Repository, reg registry.Registry) *Service {
	return &Service{repo: repo, reg: reg}
}

// Terms captures the rental terms an owner publishes for an asset.
type Terms struct {
	PricePerSecond int64
	MinDuration    int64
	MaxDuration    int64
	Deposit        int64
	ScheduleHash   string
}

func (t Terms) validate() error {
	if t.PricePerSecond <= 0 {
		return fault.Validation("price per second must be positive")
	}
	if t.MinDuration <= 0 {
		return fault.Validation("minimum duration must be positive")
	}
	if t.MinDuration > t.MaxDuration {
		return fault.Validation("minimum duration %d exceeds maximum %d", t.MinDuration, t.MaxDuration)
	}
	if t.Deposit < 0 {
		return fault.Validation("deposit must not be negative")
	}
	return nil
}

// requireOwner resolves the registry's current owner and checks the caller
// against it. Ownership is always read fresh, never cached across calls.
func (s *Service) requireOwner(ctx context.Context, caller, assetID string) (string, error) {
	owner, err := s.reg.OwnerOf(ctx, assetID)
	if err != nil {
		return "", err
	}
	if caller != owner {
		return "", fault.Authorization("caller %s does not own asset %s", caller, assetID)
	}
	return owner, nil
}

// Create publishes rental terms for an asset. The caller must be the
// registry's current owner. Re-creating an existing listing reactivates it
// and bumps its version like any other terms change.
func (s *Service) Create(ctx context.Context, caller, assetID string, t Terms) (Listing, error) {
	owner, err := s.requireOwner(ctx, caller, assetID)
	if err != nil {
		return Listing{}, err
	}
	if err := t.validate(); err != nil {
		return Listing{}, err
	}

	now := time.Now().UTC()
	version := int64(1)
	createdAt := now
	if prev, err := s.repo.Get(ctx, assetID); err == nil {
		version = prev.Version + 1
		createdAt = prev.CreatedAt
	}

	l := Listing{
		AssetID:        assetID,
		Owner:          owner,
		PricePerSecond: t.PricePerSecond,
		MinDuration:    t.MinDuration,
		MaxDuration:    t.MaxDuration,
		Deposit:        t.Deposit,
		ScheduleHash:   t.ScheduleHash,
		Active:         true,
		Version:        version,
		CreatedAt:      createdAt,
		UpdatedAt:      now,
	}
	if err := s.repo.Save(ctx, l); err != nil {
		return Listing{}, err
	}
	return l, nil
}

// Update replaces the terms of an existing listing and bumps its version so
// any booking attempt holding the previous version is rejected.
func (s *Service) Update(ctx context.Context, caller, assetID string, t Terms) (Listing, error) {
	owner, err := s.requireOwner(ctx, caller, assetID)
	if err != nil {
		return Listing{}, err
	}
	if err := t.validate(); err != nil {
		return Listing{}, err
	}

	l, err := s.repo.Get(ctx, assetID)
	if err != nil {
		return Listing{}, err
	}

	l.Owner = owner
	l.PricePerSecond = t.PricePerSecond
	l.MinDuration = t.MinDuration
	l.MaxDuration = t.MaxDuration
	l.Deposit = t.Deposit
	l.ScheduleHash = t.ScheduleHash
	l.Version++
	l.UpdatedAt = time.Now().UTC()

	if err := s.repo.Save(ctx, l); err != nil {
		return Listing{}, err
	}
	return l, nil
}

// Cancel deactivates the listing. Existing rentals are unaffected; only new
// bookings are blocked.
func (s *Service) Cancel(ctx context.Context, caller, assetID string) (Listing, error) {
	if _, err := s.requireOwner(ctx, caller, assetID); err != nil {
		return Listing{}, err
	}

	l, err := s.repo.Get(ctx, assetID)
	if err != nil {
		return Listing{}, err
	}

	l.Active = false
	l.Version++
	l.UpdatedAt = time.Now().UTC()

	if err := s.repo.Save(ctx, l); err != nil {
		return Listing{}, err
	}
	return l, nil
}

// Get returns the current listing snapshot for an asset.
func (s *Service) Get(ctx context.Context, assetID string) (Listing, error) {
	return s.repo.Get(ctx, assetID)
}
