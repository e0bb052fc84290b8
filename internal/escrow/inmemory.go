package escrow

import (
	"context"
	"sync"

	"github.com/imranpollob/nft-rental-marketplace/internal/fault"
)

type inMemoryLedger struct {
	mu           sync.Mutex
	withdrawable map[string]int64
	held         map[string]int64
	deposited    int64
	withdrawn    int64
	gateway      Gateway
}

// NewInMemory creates a concurrency-safe in-memory ledger backed by the given
// payout gateway. It serves development mode and the test suite.
func NewInMemory(gateway Gateway) Ledger {
	return &inMemoryLedger{
		withdrawable: make(map[string]int64),
		held:         make(map[string]int64),
		gateway:      gateway,
	}
}

func (l *inMemoryLedger) Deposit(_ context.Context, identity string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, fault.Validation("deposit amount must be positive")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.withdrawable[identity] += amount
	l.deposited += amount
	return l.withdrawable[identity], nil
}

func (l *inMemoryLedger) Hold(_ context.Context, rentalID, payer string, payment, total int64) (int64, error) {
	if total <= 0 || payment < total {
		return 0, fault.Validation("insufficient payment")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.held[rentalID]; exists {
		return 0, fault.Conflict("rental %s already funded", rentalID)
	}
	balance := l.withdrawable[payer]
	if balance < payment {
		return 0, fault.Validation("insufficient funds: have %d, need %d", balance, payment)
	}
	// Debit the full attached payment, keep total, hand the excess back.
	// All three moves commit under one lock so no partial charge is visible.
	refund := payment - total
	l.withdrawable[payer] = balance - payment + refund
	l.held[rentalID] = total
	return refund, nil
}

func (l *inMemoryLedger) Release(_ context.Context, rentalID, beneficiary string, amount int64) error {
	if amount == 0 {
		return nil
	}
	if amount < 0 {
		return fault.Validation("release amount must not be negative")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	held := l.held[rentalID]
	if held < amount {
		return fault.Validation("held balance %d below release amount %d for rental %s", held, amount, rentalID)
	}
	if held == amount {
		delete(l.held, rentalID)
	} else {
		l.held[rentalID] = held - amount
	}
	l.withdrawable[beneficiary] += amount
	return nil
}

func (l *inMemoryLedger) Withdraw(ctx context.Context, identity string) (int64, error) {
	// Checks-effects-interactions: zero the balance and book the withdrawal
	// before the gateway call. A reentrant Withdraw issued from inside the
	// gateway observes an empty balance and fails instead of double-paying.
	l.mu.Lock()
	amount := l.withdrawable[identity]
	if amount <= 0 {
		l.mu.Unlock()
		return 0, fault.Validation("no funds")
	}
	delete(l.withdrawable, identity)
	l.withdrawn += amount
	l.mu.Unlock()

	if err := l.gateway.Pay(ctx, identity, amount); err != nil {
		// Restore the balance so no value is lost; the caller retries.
		l.mu.Lock()
		l.withdrawable[identity] += amount
		l.withdrawn -= amount
		l.mu.Unlock()
		return 0, fault.Transfer("payout to %s failed: %v", identity, err)
	}
	return amount, nil
}

func (l *inMemoryLedger) Withdrawable(_ context.Context, identity string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.withdrawable[identity], nil
}

func (l *inMemoryLedger) Held(_ context.Context, rentalID string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held[rentalID], nil
}

func (l *inMemoryLedger) Snapshot(_ context.Context) (Totals, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t := Totals{Deposited: l.deposited, Withdrawn: l.withdrawn}
	for _, v := range l.held {
		t.Held += v
	}
	for _, v := range l.withdrawable {
		t.Withdrawable += v
	}
	return t, nil
}
