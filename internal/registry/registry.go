// Package registry models the external asset registry the marketplace
// consults for ownership and instructs for time-limited usage grants. The
// scheduler depends only on the Registry interface; the in-process
// implementation doubles as the development backend and the test double.
package registry

import "context"

// Grant is an active usage right on an asset.
type Grant struct {
	User   string
	Expiry int64
}

// Registry is the capability surface the marketplace consumes.
//
// GrantUsage is guarded: only the identity configured as the registry's
// controller may assign usage rights. While a grant is live the registry's
// transfer path must reject ownership transfers for that asset.
type Registry interface {
	OwnerOf(ctx context.Context, assetID string) (string, error)
	GrantUsage(ctx context.Context, caller, assetID, user string, expiry int64) error
}
