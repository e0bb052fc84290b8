package listing

import "time"

// Listing holds the owner-defined rental terms for a single asset. The
// cached Owner is re-validated against the asset registry on every booking
// attempt; Version is bumped on every create, update or cancel so in-flight
// bookings holding stale terms are rejected.
type Listing struct {
	AssetID        string
	Owner          string
	PricePerSecond int64
	MinDuration    int64
	MaxDuration    int64
	Deposit        int64
	ScheduleHash   string
	Active         bool
	Version        int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
