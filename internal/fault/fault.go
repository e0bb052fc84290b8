// Package fault defines the error taxonomy shared by the marketplace
// services. Every failure surfaced to a caller carries a Kind so handlers
// can map it to a transport status without string matching.
package fault

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure.
type Kind uint8

const (
	// KindValidation covers malformed input: bad time ranges, durations out
	// of bounds, insufficient attached payment.
	KindValidation Kind = iota + 1
	// KindAuthorization covers callers acting on resources they do not own
	// or capabilities they are not configured for.
	KindAuthorization
	// KindNotFound covers lookups of listings, rentals, assets or accounts
	// that do not exist.
	KindNotFound
	// KindConflict covers interval overlaps and stale or inactive listings.
	KindConflict
	// KindState covers operations attempted outside their permitted window:
	// too early, expired, already finalized.
	KindState
	// KindTransfer covers failures of outbound value movement. The ledger
	// restores balances before reporting these, so they are retryable.
	KindTransfer
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindState:
		return "state"
	case KindTransfer:
		return "transfer"
	default:
		return "unknown"
	}
}

// Error is a classified failure.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

// Validation builds a KindValidation error.
func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

// Authorization builds a KindAuthorization error.
func Authorization(format string, args ...any) error {
	return &Error{Kind: KindAuthorization, Msg: fmt.Sprintf(format, args...)}
}

// NotFound builds a KindNotFound error.
func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

// Conflict builds a KindConflict error.
func Conflict(format string, args ...any) error {
	return &Error{Kind: KindConflict, Msg: fmt.Sprintf(format, args...)}
}

// State builds a KindState error.
func State(format string, args ...any) error {
	return &Error{Kind: KindState, Msg: fmt.Sprintf(format, args...)}
}

// Transfer builds a KindTransfer error.
func Transfer(format string, args ...any) error {
	return &Error{Kind: KindTransfer, Msg: fmt.Sprintf(format, args...)}
}

// KindOf extracts the Kind from err, or zero when err is unclassified.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return 0
}

// Is reports whether err carries the given Kind.
func Is(err error, k Kind) bool {
	return KindOf(err) == k
}

// HTTPStatus maps a classified error to the status code handlers return.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindState:
		return http.StatusUnprocessableEntity
	case KindTransfer:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
