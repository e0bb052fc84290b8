package listing

import (
	"context"
	"sync"

	"github.com/imranpollob/nft-rental-marketplace/internal/fault"
)

type memoryRepository struct {
	mu      sync.RWMutex
	storage map[string]Listing
}

// NewMemoryRepository constructs an in-memory repository for development and tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{storage: make(map[string]Listing)}
}

func (r *memoryRepository) Save(_ context.Context, l Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.storage[l.AssetID] = l
	return nil
}

func (r *memoryRepository) Get(_ context.Context, assetID string) (Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.storage[assetID]
	if !ok {
		return Listing{}, fault.NotFound("listing for asset %s not found", assetID)
	}
	return l, nil
}
