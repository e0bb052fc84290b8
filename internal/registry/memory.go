package registry

import (
	"context"
	"sync"

	"github.com/imranpollob/nft-rental-marketplace/internal/clock"
	"github.com/imranpollob/nft-rental-marketplace/internal/fault"
)

// Memory is an in-process registry implementation. Production deployments
// point the marketplace at a real registry adapter; Memory backs development
// mode and the test suite.
type Memory struct {
	mu         sync.RWMutex
	clk        clock.Clock
	controller string
	owners     map[string]string
	grants     map[string]Grant
}

// NewMemory builds an empty registry whose grant expiry checks use clk.
func NewMemory(clk clock.Clock, controller string) *Memory {
	return &Memory{
		clk:        clk,
		controller: controller,
		owners:     make(map[string]string),
		grants:     make(map[string]Grant),
	}
}

// Mint registers a new asset under the given owner.
func (m *Memory) Mint(_ context.Context, assetID, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.owners[assetID]; exists {
		return fault.Conflict("asset %s already exists", assetID)
	}
	m.owners[assetID] = owner
	return nil
}

// OwnerOf returns the current owner of the asset.
func (m *Memory) OwnerOf(_ context.Context, assetID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	owner, ok := m.owners[assetID]
	if !ok {
		return "", fault.NotFound("asset %s not found", assetID)
	}
	return owner, nil
}

// GrantUsage assigns a usage right expiring at the given unix time. Only the
// configured controller may call it; a mismatch surfaces as an authorization
// failure at booking or check-in time.
func (m *Memory) GrantUsage(_ context.Context, caller, assetID, user string, expiry int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if caller != m.controller {
		return fault.Authorization("caller %s is not the registry controller", caller)
	}
	if _, ok := m.owners[assetID]; !ok {
		return fault.NotFound("asset %s not found", assetID)
	}
	m.grants[assetID] = Grant{User: user, Expiry: expiry}
	return nil
}

// Transfer moves ownership of an asset. It is rejected while a usage grant
// is live so a rental cannot be pulled out from under its renter.
func (m *Memory) Transfer(_ context.Context, caller, assetID, to string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	owner, ok := m.owners[assetID]
	if !ok {
		return fault.NotFound("asset %s not found", assetID)
	}
	if caller != owner {
		return fault.Authorization("caller %s does not own asset %s", caller, assetID)
	}
	if g, ok := m.grants[assetID]; ok && m.clk.Now() < g.Expiry {
		return fault.State("asset %s has an active usage grant until %d", assetID, g.Expiry)
	}
	m.owners[assetID] = to
	return nil
}

// UsageOf returns the live grant for an asset, if any. Expired grants are
// reported as absent; they self-expire by timestamp and are never revoked.
func (m *Memory) UsageOf(_ context.Context, assetID string) (Grant, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.grants[assetID]
	if !ok || m.clk.Now() >= g.Expiry {
		return Grant{}, false
	}
	return g, true
}
