// Package jobs hosts the scheduled background work: today that is the
// settlement sweep finalizing rentals whose interval has ended, so escrowed
// funds never wait on a passive renter or owner.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/imranpollob/nft-rental-marketplace/internal/rental"
)

// Settlement sweeps ended rentals into finalization.
type Settlement struct {
	rentals *rental.Service
	logger  *slog.Logger
}

// NewSettlement builds the settlement job.
func NewSettlement(rentals *rental.Service, logger *slog.Logger) *Settlement {
	return &Settlement{rentals: rentals, logger: logger}
}

// Run executes one sweep. Panics are contained so a bad sweep cannot take
// down the scheduler.
func (j *Settlement) Run() {
	defer func() {
		if r := recover(); r != nil {
			j.logger.Error("settlement sweep panicked", "panic", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	settled, err := j.rentals.SettleDue(ctx)
	if err != nil {
		j.logger.Error("settlement sweep failed", "error", err)
		return
	}
	if settled > 0 {
		j.logger.Info("settlement sweep completed", "settled", settled)
	}
}

// Schedule registers the settlement job on a UTC cron and starts it. The
// returned cron is stopped by the caller on shutdown.
func Schedule(spec string, job *Settlement) (*cron.Cron, error) {
	c := cron.New(cron.WithLocation(time.UTC))
	if _, err := c.AddJob(spec, job); err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}
