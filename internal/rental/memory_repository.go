package rental

import (
	"context"
	"sort"
	"sync"

	"github.com/imranpollob/nft-rental-marketplace/internal/fault"
)

type memoryRepository struct {
	mu        sync.Mutex
	rentals   map[string]Rental
	schedules map[string]*assetSchedule
}

// NewMemoryRepository constructs an in-memory rental store with a btree
// interval index per asset. It serves development mode and the test suite.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		rentals:   make(map[string]Rental),
		schedules: make(map[string]*assetSchedule),
	}
}

func (r *memoryRepository) BookIfFree(_ context.Context, rt Rental) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sched, ok := r.schedules[rt.AssetID]
	if !ok {
		sched = newAssetSchedule()
		r.schedules[rt.AssetID] = sched
	}
	if id, clash := sched.conflict(rt.Start, rt.End); clash {
		return fault.Conflict("interval [%d, %d) overlaps rental %s", rt.Start, rt.End, id)
	}
	sched.insert(interval{start: rt.Start, end: rt.End, rentalID: rt.ID})
	r.rentals[rt.ID] = rt
	return nil
}

func (r *memoryRepository) Get(_ context.Context, id string) (Rental, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rt, ok := r.rentals[id]
	if !ok {
		return Rental{}, fault.NotFound("rental %s not found", id)
	}
	return rt, nil
}

func (r *memoryRepository) Update(_ context.Context, rt Rental) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rentals[rt.ID]; !ok {
		return fault.NotFound("rental %s not found", rt.ID)
	}
	r.rentals[rt.ID] = rt
	return nil
}

func (r *memoryRepository) Remove(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rt, ok := r.rentals[id]
	if !ok {
		return fault.NotFound("rental %s not found", id)
	}
	if sched, ok := r.schedules[rt.AssetID]; ok {
		sched.remove(rt.Start)
	}
	delete(r.rentals, id)
	return nil
}

func (r *memoryRepository) DueForSettlement(_ context.Context, now int64, limit int) ([]Rental, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var due []Rental
	for _, rt := range r.rentals {
		if rt.Status != StatusFinalized && rt.End <= now {
			due = append(due, rt)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].End < due[j].End })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}
