// Package domain contains pure business types with ZERO infrastructure imports.
// This is the innermost ring of clean architecture — it depends on nothing.
package domain

import (
	"fmt"
	"time"
)

// ─── Account Types ──────────────────────────────────────────────────────────

// Account tracks one external identity's coin balance and grant history.
type Account struct {
	ID          string    `json:"id"`
	GameID      string    `json:"game_id,omitempty"` // linked in-game identity, empty until linked
	Coins       int64     `json:"coins"`
	LastDailyAt time.Time `json:"last_daily_at,omitempty"` // zero means never claimed
	WelcomePack bool      `json:"welcome_pack"`            // monotonic false→true
}

// Linked reports whether the account has a game identity attached.
// Fulfillment requires a linked identity to address spawn commands.
func (a Account) Linked() bool { return a.GameID != "" }

// PurchaseRecord is one append-only audit row for a debit tied to a delivery.
type PurchaseRecord struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	Item      string    `json:"item"`
	Price     int64     `json:"price"`
	CreatedAt time.Time `json:"created_at"`
}

// ─── Catalog Types ──────────────────────────────────────────────────────────

// Item is one purchasable catalog entry.
type Item struct {
	Key          string `json:"key" toml:"key"`
	Name         string `json:"name" toml:"name"`
	Price        int64  `json:"price" toml:"price"`
	SpawnCommand string `json:"spawn_command" toml:"spawn_command"`
	Description  string `json:"description,omitempty" toml:"description"`
}

// PackItem is one entry of the one-time welcome pack. Pack items carry no
// price; they are granted, not purchased.
type PackItem struct {
	Name         string `json:"name" toml:"name"`
	SpawnCommand string `json:"spawn_command" toml:"spawn_command"`
}

// ─── Session Types ──────────────────────────────────────────────────────────

// SessionState is the remote command session's lifecycle state.
type SessionState int32

const (
	SessionDisabled SessionState = iota // feature off, terminal
	SessionDisconnected
	SessionConnecting
	SessionAuthenticated
	SessionReconnectPending
)

// String returns the state name for logs and the status endpoint.
func (s SessionState) String() string {
	switch s {
	case SessionDisabled:
		return "disabled"
	case SessionDisconnected:
		return "disconnected"
	case SessionConnecting:
		return "connecting"
	case SessionAuthenticated:
		return "authenticated"
	case SessionReconnectPending:
		return "reconnect_pending"
	default:
		return "unknown"
	}
}

// ─── Utilities ──────────────────────────────────────────────────────────────

// FormatCoins formats a coin amount for user-facing messages.
func FormatCoins(amount int64) string {
	return fmt.Sprintf("%d coins", amount)
}
