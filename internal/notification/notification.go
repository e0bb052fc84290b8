package notification

import (
	"context"
	"log/slog"
)

const (
	// KindBooked announces a confirmed booking with its full terms.
	KindBooked = "rental_booked"
	// KindCheckedIn announces a usage grant handed to the renter.
	KindCheckedIn = "rental_checked_in"
	// KindPayout announces a settlement share credited to a beneficiary.
	KindPayout = "escrow_payout"
)

// Event describes a domain event emitted by the marketplace.
type Event struct {
	Kind        string
	Destination string
	Body        string
	Attributes  map[string]string
}

// Notifier delivers events to downstream systems.
type Notifier interface {
	Send(ctx context.Context, event Event) error
}

// LoggerNotifier is a stub implementation that writes events to the logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier stub.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the event to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, event Event) error {
	if n == nil || n.logger == nil {
		return nil
	}
	attrs := []any{"kind", event.Kind, "destination", event.Destination, "body", event.Body}
	for k, v := range event.Attributes {
		attrs = append(attrs, k, v)
	}
	n.logger.Info("event", attrs...)
	return nil
}
