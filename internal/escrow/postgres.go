package escrow

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/imranpollob/nft-rental-marketplace/internal/fault"
)

// PostgresLedger persists escrow balances in PostgreSQL. Row locks on the
// touched accounts serialize concurrent movements of the same balance.
type PostgresLedger struct {
	db      *pgxpool.Pool
	gateway Gateway
}

// NewPostgresLedger constructs a Postgres-backed ledger implementation.
func NewPostgresLedger(db *pgxpool.Pool, gateway Gateway) *PostgresLedger {
	return &PostgresLedger{db: db, gateway: gateway}
}

func creditAccount(ctx context.Context, tx pgx.Tx, identity string, amount int64) error {
	_, err := tx.Exec(ctx, `INSERT INTO escrow_accounts (identity, balance) VALUES ($1, $2)
        ON CONFLICT (identity) DO UPDATE SET balance = escrow_accounts.balance + $2`, identity, amount)
	return err
}

func lockedBalance(ctx context.Context, tx pgx.Tx, identity string) (int64, error) {
	var balance int64
	err := tx.QueryRow(ctx, `SELECT balance FROM escrow_accounts WHERE identity = $1 FOR UPDATE`, identity).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return balance, err
}

// Deposit credits external funds to the identity's withdrawable balance.
func (l *PostgresLedger) Deposit(ctx context.Context, identity string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, fault.Validation("deposit amount must be positive")
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if err := creditAccount(ctx, tx, identity, amount); err != nil {
		return 0, err
	}
	if _, err := tx.Exec(ctx, `UPDATE escrow_totals SET deposited = deposited + $1`, amount); err != nil {
		return 0, err
	}

	var balance int64
	if err := tx.QueryRow(ctx, `SELECT balance FROM escrow_accounts WHERE identity = $1`, identity).Scan(&balance); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return balance, nil
}

// Hold retains exactly total under the rental id out of the attached payment
// and refunds the excess to the payer in the same transaction.
func (l *PostgresLedger) Hold(ctx context.Context, rentalID, payer string, payment, total int64) (int64, error) {
	if total <= 0 || payment < total {
		return 0, fault.Validation("insufficient payment")
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	balance, err := lockedBalance(ctx, tx, payer)
	if err != nil {
		return 0, err
	}
	if balance < payment {
		return 0, fault.Validation("insufficient funds: have %d, need %d", balance, payment)
	}

	refund := payment - total
	if _, err := tx.Exec(ctx, `UPDATE escrow_accounts SET balance = balance - $1 WHERE identity = $2`, total, payer); err != nil {
		return 0, err
	}

	ct, err := tx.Exec(ctx, `INSERT INTO escrow_holds (rental_id, amount) VALUES ($1, $2)
        ON CONFLICT (rental_id) DO NOTHING`, rentalID, total)
	if err != nil {
		return 0, err
	}
	if ct.RowsAffected() == 0 {
		return 0, fault.Conflict("rental %s already funded", rentalID)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return refund, nil
}

// Release moves amount from the rental's held funds to the beneficiary.
func (l *PostgresLedger) Release(ctx context.Context, rentalID, beneficiary string, amount int64) error {
	if amount == 0 {
		return nil
	}
	if amount < 0 {
		return fault.Validation("release amount must not be negative")
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	var held int64
	err = tx.QueryRow(ctx, `SELECT amount FROM escrow_holds WHERE rental_id = $1 FOR UPDATE`, rentalID).Scan(&held)
	if errors.Is(err, pgx.ErrNoRows) {
		held = 0
	} else if err != nil {
		return err
	}
	if held < amount {
		return fault.Validation("held balance %d below release amount %d for rental %s", held, amount, rentalID)
	}

	if held == amount {
		if _, err := tx.Exec(ctx, `DELETE FROM escrow_holds WHERE rental_id = $1`, rentalID); err != nil {
			return err
		}
	} else {
		if _, err := tx.Exec(ctx, `UPDATE escrow_holds SET amount = amount - $1 WHERE rental_id = $2`, amount, rentalID); err != nil {
			return err
		}
	}
	if err := creditAccount(ctx, tx, beneficiary, amount); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Withdraw zeroes the identity's balance, commits, and only then invokes the
// payout gateway. A failed payout is compensated by restoring the balance.
func (l *PostgresLedger) Withdraw(ctx context.Context, identity string) (int64, error) {
	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	amount, err := lockedBalance(ctx, tx, identity)
	if err != nil {
		return 0, err
	}
	if amount <= 0 {
		return 0, fault.Validation("no funds")
	}
	if _, err := tx.Exec(ctx, `UPDATE escrow_accounts SET balance = 0 WHERE identity = $1`, identity); err != nil {
		return 0, err
	}
	if _, err := tx.Exec(ctx, `UPDATE escrow_totals SET withdrawn = withdrawn + $1`, amount); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}

	if err := l.gateway.Pay(ctx, identity, amount); err != nil {
		restoreTx, rerr := l.db.BeginTx(ctx, pgx.TxOptions{})
		if rerr != nil {
			return 0, fault.Transfer("payout to %s failed and restore could not start: %v", identity, rerr)
		}
		defer restoreTx.Rollback(ctx) // nolint:errcheck
		if _, rerr := restoreTx.Exec(ctx, `UPDATE escrow_accounts SET balance = balance + $1 WHERE identity = $2`, amount, identity); rerr != nil {
			return 0, fault.Transfer("payout to %s failed and balance restore failed: %v", identity, rerr)
		}
		if _, rerr := restoreTx.Exec(ctx, `UPDATE escrow_totals SET withdrawn = withdrawn - $1`, amount); rerr != nil {
			return 0, fault.Transfer("payout to %s failed and totals restore failed: %v", identity, rerr)
		}
		if rerr := restoreTx.Commit(ctx); rerr != nil {
			return 0, fault.Transfer("payout to %s failed and restore commit failed: %v", identity, rerr)
		}
		return 0, fault.Transfer("payout to %s failed: %v", identity, err)
	}
	return amount, nil
}

// Withdrawable returns the identity's current withdrawable balance.
func (l *PostgresLedger) Withdrawable(ctx context.Context, identity string) (int64, error) {
	var balance int64
	err := l.db.QueryRow(ctx, `SELECT COALESCE(
        (SELECT balance FROM escrow_accounts WHERE identity = $1), 0)`, identity).Scan(&balance)
	return balance, err
}

// Held returns the balance custodied under the rental id.
func (l *PostgresLedger) Held(ctx context.Context, rentalID string) (int64, error) {
	var amount int64
	err := l.db.QueryRow(ctx, `SELECT COALESCE(
        (SELECT amount FROM escrow_holds WHERE rental_id = $1), 0)`, rentalID).Scan(&amount)
	return amount, err
}

// Snapshot reports lifetime totals alongside the summed live balances.
func (l *PostgresLedger) Snapshot(ctx context.Context) (Totals, error) {
	var t Totals
	err := l.db.QueryRow(ctx, `SELECT
        (SELECT deposited FROM escrow_totals),
        (SELECT withdrawn FROM escrow_totals),
        (SELECT COALESCE(SUM(amount), 0) FROM escrow_holds),
        (SELECT COALESCE(SUM(balance), 0) FROM escrow_accounts)`).Scan(&t.Deposited, &t.Withdrawn, &t.Held, &t.Withdrawable)
	return t, err
}
