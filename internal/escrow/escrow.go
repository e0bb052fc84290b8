// Package escrow custodies rental funds. It is the only component allowed to
// move value: payments are held per rental until settlement, then distributed
// into per-identity withdrawable balances that owners pull out themselves.
//
// Conservation invariant: at all times
//
//	sum(held) + sum(withdrawable) == total deposited - total withdrawn
//
// Every mutation below preserves it or fails atomically.
package escrow

import "context"

// Totals exposes the lifetime counters behind the conservation invariant.
type Totals struct {
	Deposited    int64
	Withdrawn    int64
	Held         int64
	Withdrawable int64
}

// Ledger is the contract implemented by escrow backends. The hold and
// release operations are reserved for the rental scheduler, which is the
// only component constructed with a reference to them.
type Ledger interface {
	// Deposit credits external funds to an identity's withdrawable balance
	// and returns the new balance.
	Deposit(ctx context.Context, identity string, amount int64) (int64, error)

	// Hold debits the full attached payment from the payer's withdrawable
	// balance, retains exactly total under the rental id, and credits the
	// excess straight back to the payer. Returns the refunded excess.
	Hold(ctx context.Context, rentalID, payer string, payment, total int64) (int64, error)

	// Release moves amount from the rental's held balance to the
	// beneficiary's withdrawable balance. A zero amount is a no-op.
	Release(ctx context.Context, rentalID, beneficiary string, amount int64) error

	// Withdraw drains the identity's withdrawable balance through the
	// outbound payout gateway and returns the amount transferred. The
	// balance is zeroed before the gateway is invoked and restored if the
	// transfer fails, so a reentrant call can never double-pay.
	Withdraw(ctx context.Context, identity string) (int64, error)

	// Withdrawable returns the identity's current withdrawable balance.
	Withdrawable(ctx context.Context, identity string) (int64, error)

	// Held returns the balance currently custodied under a rental id.
	Held(ctx context.Context, rentalID string) (int64, error)

	// Snapshot reports the lifetime totals for invariant checks.
	Snapshot(ctx context.Context) (Totals, error)
}
