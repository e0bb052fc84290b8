package escrow

import (
	"context"
	"log/slog"
)

// Gateway represents the connector that carries settled value out of the
// ledger, e.g. a payment processor or an on-chain transfer relay.
type Gateway interface {
	Pay(ctx context.Context, identity string, amount int64) error
}

// LogGateway simulates a payout connector that always succeeds, recording
// each outbound transfer on the structured logger.
type LogGateway struct {
	logger *slog.Logger
}

// NewLogGateway builds a logging payout gateway.
func NewLogGateway(logger *slog.Logger) *LogGateway {
	return &LogGateway{logger: logger}
}

// Pay records the payout and reports success.
func (g *LogGateway) Pay(_ context.Context, identity string, amount int64) error {
	if g != nil && g.logger != nil {
		g.logger.Info("payout", "identity", identity, "amount", amount)
	}
	return nil
}
