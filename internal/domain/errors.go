package domain

import (
	"errors"
	"fmt"
	"time"
)

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure — no infrastructure dependency.
// Precondition errors are expected and carry no side effects.

var (
	// Fulfillment preconditions
	ErrUnknownItem       = errors.New("unknown catalog item")
	ErrNotLinked         = errors.New("account has no linked game id")
	ErrInsufficientFunds = errors.New("insufficient coins")
	ErrAlreadyGranted    = errors.New("welcome pack already received")

	// Session errors
	ErrNotAuthenticated = errors.New("remote session not authenticated")
	ErrSessionClosed    = errors.New("remote session closed")

	// Delivery errors — reported only after the compensating credit ran.
	ErrDeliveryFailed = errors.New("remote delivery failed, coins refunded")
)

// CooldownError rejects a cooldown-gated grant that is still cooling down.
// It carries the remaining wait so callers can surface it verbatim.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("daily bonus still cooling down: %s remaining", e.Remaining.Round(time.Second))
}

// IsPrecondition reports whether err is an expected precondition rejection
// (no side effects occurred). Delivery and storage failures are not
// preconditions.
func IsPrecondition(err error) bool {
	var cd *CooldownError
	return errors.Is(err, ErrUnknownItem) ||
		errors.Is(err, ErrNotLinked) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrAlreadyGranted) ||
		errors.As(err, &cd)
}
