package rental

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/imranpollob/nft-rental-marketplace/internal/clock"
	"github.com/imranpollob/nft-rental-marketplace/internal/escrow"
	"github.com/imranpollob/nft-rental-marketplace/internal/fault"
	"github.com/imranpollob/nft-rental-marketplace/internal/listing"
	"github.com/imranpollob/nft-rental-marketplace/internal/notification"
	"github.com/imranpollob/nft-rental-marketplace/internal/registry"
)

const (
	feeDenominator = 10_000
	settleBatch    = 100
)

// Service is the rental scheduler: it validates booking requests against the
// listing store and the interval index, custodies payment through the escrow
// ledger, drives check-in, and settles ended rentals.
type Service struct {
	repo     Repository
	listings *listing.Service
	ledger   escrow.Ledger
	reg      registry.Registry
	clk      clock.Clock
	notifier notification.Notifier
	logger   *slog.Logger

	// controllerID is the identity this service presents to the registry;
	// the registry must be configured with the same controller.
	controllerID string

	assetLocks *keyedMutex

	feeMu        sync.RWMutex
	feeBps       int64
	feeRecipient string
}

// NewService wires the scheduler to its collaborators.
func NewService(
	repo Repository,
	listings *listing.Service,
	ledger escrow.Ledger,
	reg registry.Registry,
	clk clock.Clock,
	notifier notification.Notifier,
	logger *slog.Logger,
	controllerID string,
	feeBps int64,
	feeRecipient string,
) *Service {
	return &Service{
		repo:         repo,
		listings:     listings,
		ledger:       ledger,
		reg:          reg,
		clk:          clk,
		notifier:     notifier,
		logger:       logger,
		controllerID: controllerID,
		assetLocks:   newKeyedMutex(),
		feeBps:       feeBps,
		feeRecipient: feeRecipient,
	}
}

// BookInput captures a booking request. Payment is the attached amount drawn
// from the renter's escrow balance; any excess over the computed total is
// returned. ListingVersion, when non-zero, pins the terms the renter saw.
type BookInput struct {
	Renter         string
	AssetID        string
	Start          int64
	End            int64
	Payment        int64
	ListingVersion int64
}

// Book validates the request, conflict-checks the interval, custodies the
// payment and creates the rental. Failures are atomic no-ops: either the
// rental exists with its funds held, or nothing changed.
func (s *Service) Book(ctx context.Context, in BookInput) (Rental, error) {
	now := s.clk.Now()
	if in.Start >= in.End {
		return Rental{}, fault.Validation("start %d must precede end %d", in.Start, in.End)
	}
	if in.Start < now {
		return Rental{}, fault.Validation("start %d is in the past", in.Start)
	}

	unlock := s.assetLocks.lock(in.AssetID)
	defer unlock()

	l, err := s.listings.Get(ctx, in.AssetID)
	if err != nil {
		return Rental{}, err
	}
	if !l.Active {
		return Rental{}, fault.Conflict("listing for asset %s is inactive", in.AssetID)
	}
	// The cached listing owner must still be the registry's current owner;
	// a sale racing this booking invalidates the listing.
	owner, err := s.reg.OwnerOf(ctx, in.AssetID)
	if err != nil {
		return Rental{}, err
	}
	if owner != l.Owner {
		return Rental{}, fault.Conflict("listing owner %s is stale, asset now owned by %s", l.Owner, owner)
	}
	if in.ListingVersion != 0 && in.ListingVersion != l.Version {
		return Rental{}, fault.Conflict("listing version %d is stale, current is %d", in.ListingVersion, l.Version)
	}

	duration := in.End - in.Start
	if duration < l.MinDuration || duration > l.MaxDuration {
		return Rental{}, fault.Validation("duration %d outside [%d, %d]", duration, l.MinDuration, l.MaxDuration)
	}

	cost := duration * l.PricePerSecond
	total := cost + l.Deposit
	if in.Payment < total {
		return Rental{}, fault.Validation("insufficient payment: attached %d, need %d", in.Payment, total)
	}

	created := time.Now().UTC()
	rt := Rental{
		ID:        uuid.NewString(),
		AssetID:   in.AssetID,
		Renter:    in.Renter,
		Owner:     l.Owner,
		Start:     in.Start,
		End:       in.End,
		Amount:    cost,
		Deposit:   l.Deposit,
		Status:    StatusBooked,
		CreatedAt: created,
		UpdatedAt: created,
	}

	if err := s.repo.BookIfFree(ctx, rt); err != nil {
		return Rental{}, err
	}

	refund, err := s.ledger.Hold(ctx, rt.ID, in.Renter, in.Payment, total)
	if err != nil {
		// The slot was taken but the payment could not be custodied; free
		// the interval again so the failure is a complete no-op.
		if rerr := s.repo.Remove(ctx, rt.ID); rerr != nil {
			s.logger.Error("compensating removal failed", "rental_id", rt.ID, "error", rerr)
		}
		return Rental{}, err
	}

	// A booking that takes effect immediately checks in as part of the same
	// operation; later starts require an explicit check-in by the renter.
	if rt.Start <= now {
		if err := s.grantAndMark(ctx, &rt); err != nil {
			if rerr := s.ledger.Release(ctx, rt.ID, rt.Renter, total); rerr != nil {
				s.logger.Error("compensating release failed", "rental_id", rt.ID, "error", rerr)
			}
			if rerr := s.repo.Remove(ctx, rt.ID); rerr != nil {
				s.logger.Error("compensating removal failed", "rental_id", rt.ID, "error", rerr)
			}
			return Rental{}, err
		}
	}

	s.emit(ctx, notification.Event{
		Kind:        notification.KindBooked,
		Destination: rt.Owner,
		Body:        fmt.Sprintf("asset %s booked for [%d, %d)", rt.AssetID, rt.Start, rt.End),
		Attributes: map[string]string{
			"rental_id": rt.ID,
			"renter":    rt.Renter,
			"amount":    strconv.FormatInt(rt.Amount, 10),
			"deposit":   strconv.FormatInt(rt.Deposit, 10),
			"refund":    strconv.FormatInt(refund, 10),
		},
	})
	return rt, nil
}

// grantAndMark hands the usage right to the renter and records the rental as
// checked in. Callers hold the asset lock.
func (s *Service) grantAndMark(ctx context.Context, rt *Rental) error {
	if err := s.reg.GrantUsage(ctx, s.controllerID, rt.AssetID, rt.Renter, rt.End); err != nil {
		return err
	}
	rt.Status = StatusCheckedIn
	rt.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, *rt); err != nil {
		return err
	}
	s.emit(ctx, notification.Event{
		Kind:        notification.KindCheckedIn,
		Destination: rt.Renter,
		Body:        fmt.Sprintf("usage of asset %s granted until %d", rt.AssetID, rt.End),
		Attributes:  map[string]string{"rental_id": rt.ID},
	})
	return nil
}

// CheckIn grants the renter usage of the asset. It is time-gated to the
// rental interval and idempotent while the rental is checked in.
func (s *Service) CheckIn(ctx context.Context, caller, rentalID string) (Rental, error) {
	rt, err := s.repo.Get(ctx, rentalID)
	if err != nil {
		return Rental{}, err
	}

	unlock := s.assetLocks.lock(rt.AssetID)
	defer unlock()

	// Re-read under the lock; the first read only located the asset.
	rt, err = s.repo.Get(ctx, rentalID)
	if err != nil {
		return Rental{}, err
	}
	if caller != rt.Renter {
		return Rental{}, fault.Authorization("only the renter may check in")
	}
	switch rt.Status {
	case StatusFinalized:
		return Rental{}, fault.State("rental %s already finalized", rentalID)
	case StatusCheckedIn:
		return rt, nil
	}

	now := s.clk.Now()
	if now < rt.Start {
		return Rental{}, fault.State("too early: rental starts at %d", rt.Start)
	}
	if now >= rt.End {
		return Rental{}, fault.State("expired: rental ended at %d", rt.End)
	}

	if err := s.grantAndMark(ctx, &rt); err != nil {
		return Rental{}, err
	}
	return rt, nil
}

// Finalize settles an ended rental: the protocol fee goes to the fee
// recipient, the remaining rent to the owner, and the deposit back to the
// renter. Anyone may call it, so funds never wait on a passive party.
func (s *Service) Finalize(ctx context.Context, rentalID string) (Rental, error) {
	rt, err := s.repo.Get(ctx, rentalID)
	if err != nil {
		return Rental{}, err
	}

	unlock := s.assetLocks.lock(rt.AssetID)
	defer unlock()

	rt, err = s.repo.Get(ctx, rentalID)
	if err != nil {
		return Rental{}, err
	}
	if rt.Status == StatusFinalized {
		return Rental{}, fault.State("rental %s already finalized", rentalID)
	}
	if s.clk.Now() < rt.End {
		return Rental{}, fault.State("rental %s has not ended yet", rentalID)
	}

	feeBps, feeRecipient := s.FeeConfig()
	fee := rt.Amount * feeBps / feeDenominator
	ownerShare := rt.Amount - fee

	// Mark finalized before moving money out of held custody; the status is
	// what makes this step exactly-once.
	rt.Status = StatusFinalized
	rt.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, rt); err != nil {
		return Rental{}, err
	}

	for _, payout := range []struct {
		beneficiary string
		amount      int64
	}{
		{rt.Owner, ownerShare},
		{feeRecipient, fee},
		{rt.Renter, rt.Deposit},
	} {
		if err := s.ledger.Release(ctx, rt.ID, payout.beneficiary, payout.amount); err != nil {
			return Rental{}, err
		}
		if payout.amount > 0 {
			s.emit(ctx, notification.Event{
				Kind:        notification.KindPayout,
				Destination: payout.beneficiary,
				Body:        fmt.Sprintf("rental %s settled: %d credited", rt.ID, payout.amount),
				Attributes:  map[string]string{"rental_id": rt.ID},
			})
		}
	}
	return rt, nil
}

// SettleDue finalizes every rental whose interval has ended. Individual
// failures are logged and skipped so one stuck rental cannot block the sweep.
func (s *Service) SettleDue(ctx context.Context) (int, error) {
	due, err := s.repo.DueForSettlement(ctx, s.clk.Now(), settleBatch)
	if err != nil {
		return 0, err
	}
	settled := 0
	for _, rt := range due {
		if _, err := s.Finalize(ctx, rt.ID); err != nil {
			if !fault.Is(err, fault.KindState) {
				s.logger.Error("settlement sweep failed", "rental_id", rt.ID, "error", err)
			}
			continue
		}
		settled++
	}
	return settled, nil
}

// Get returns a rental by id.
func (s *Service) Get(ctx context.Context, rentalID string) (Rental, error) {
	return s.repo.Get(ctx, rentalID)
}

// SetFeeBps updates the protocol fee, expressed in basis points of the rent.
func (s *Service) SetFeeBps(bps int64) error {
	if bps < 0 || bps > feeDenominator {
		return fault.Validation("fee bps must be within [0, %d]", feeDenominator)
	}
	s.feeMu.Lock()
	defer s.feeMu.Unlock()
	s.feeBps = bps
	return nil
}

// SetFeeRecipient updates the identity credited with protocol fees.
func (s *Service) SetFeeRecipient(identity string) error {
	if identity == "" {
		return fault.Validation("fee recipient must not be empty")
	}
	s.feeMu.Lock()
	defer s.feeMu.Unlock()
	s.feeRecipient = identity
	return nil
}

// FeeConfig returns the current fee settings as one consistent snapshot.
func (s *Service) FeeConfig() (int64, string) {
	s.feeMu.RLock()
	defer s.feeMu.RUnlock()
	return s.feeBps, s.feeRecipient
}

func (s *Service) emit(ctx context.Context, event notification.Event) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, event); err != nil {
		s.logger.Warn("event delivery failed", "kind", event.Kind, "error", err)
	}
}
