package rental

import "time"

// Status tracks a rental through its lifecycle. Finalized is terminal;
// a rental that was never checked in still finalizes once its interval ends.
type Status string

const (
	StatusBooked    Status = "BOOKED"
	StatusCheckedIn Status = "CHECKED_IN"
	StatusFinalized Status = "FINALIZED"
)

// Rental is a booked, time-bounded usage grant over the half-open interval
// [Start, End). Amount is the rent owed excluding the deposit; Owner is the
// listing owner snapshotted at booking time, the payout target at settlement.
type Rental struct {
	ID        string
	AssetID   string
	Renter    string
	Owner     string
	Start     int64
	End       int64
	Amount    int64
	Deposit   int64
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Duration returns the rental length in seconds.
func (r Rental) Duration() int64 {
	return r.End - r.Start
}
