package escrow

// SeedWithdrawable is a test helper that funds an identity's withdrawable
// balance directly when using the in-memory ledger. It bumps the deposited
// total so the conservation invariant keeps holding.
func SeedWithdrawable(l Ledger, identity string, amount int64) {
	if mem, ok := l.(*inMemoryLedger); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		mem.withdrawable[identity] += amount
		mem.deposited += amount
	}
}
