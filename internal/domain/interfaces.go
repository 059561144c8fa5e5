package domain

import "time"

// ─── Service Interfaces ─────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; application layer depends on them.

// Ledger abstracts the durable per-account currency store. Accounts are
// implicitly created with a zero balance on first reference. Every mutating
// operation must be atomic per account: two concurrent TryDebit calls
// against the same id must never both succeed when only one can be afforded.
type Ledger interface {
	// GetAccount returns the account, creating a default row if none exists.
	GetAccount(id string) (Account, error)

	// LinkGameID attaches (or overwrites) the in-game identity. Idempotent.
	LinkGameID(id, gameID string) error

	// TryDebit atomically checks balance >= amount and decrements.
	// Returns ErrInsufficientFunds without side effects otherwise.
	TryDebit(id string, amount int64) error

	// Credit atomically increments the balance. Used for the daily bonus
	// and for compensation after a failed delivery.
	Credit(id string, amount int64) error

	// TryClaimDaily atomically checks the cooldown window, and if eligible
	// credits bonus and stamps now in the same atomic step. Returns a
	// *CooldownError with the remaining wait otherwise.
	TryClaimDaily(id string, bonus int64, now time.Time, window time.Duration) error

	// TryClaimWelcomePack atomically checks and sets the one-time flag.
	// Returns ErrAlreadyGranted if the flag was already set.
	TryClaimWelcomePack(id string) error

	// RecordPurchase appends one audit row. No uniqueness constraint.
	RecordPurchase(id, item string, price int64, at time.Time) error

	// PurchaseHistory returns the account's most recent audit rows.
	PurchaseHistory(id string, limit int) ([]PurchaseRecord, error)
}

// CommandSession is the persistent authenticated channel used to deliver
// fulfillment commands to the game server. Send fails fast with
// ErrNotAuthenticated when the session is not currently authenticated — it
// never queues or blocks waiting for reconnection.
type CommandSession interface {
	Send(command string) error
	State() SessionState
}

// Catalog is read-only item data supplied by the front-end collaborator.
type Catalog interface {
	Lookup(key string) (Item, bool)
	Items() []Item
	WelcomePack() []PackItem
}
