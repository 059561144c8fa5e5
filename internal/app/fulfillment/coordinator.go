// Package fulfillment orchestrates priced, remotely-delivered actions as
// compensable two-step operations.
//
// Every operation follows the same saga template:
//  1. Check preconditions (catalog entry, linked game id)
//  2. Reserve in the ledger (debit or claim flag) — atomic per account
//  3. Deliver over the remote command session
//  4. Commit on success; compensate (refund) on delivery failure
//
// The caller never observes a debited-but-undelivered state: by the time a
// delivery error is reported, the compensating credit has already run.
package fulfillment

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/quartermaster-shop/quartermaster/internal/domain"
	"github.com/quartermaster-shop/quartermaster/internal/infra/observability"
)

// Config controls grant amounts and delivery pacing.
type Config struct {
	DailyBonus     int64         // coins granted per daily claim (default: 500)
	DailyCooldown  time.Duration // minimum gap between daily claims (default: 24h)
	ItemSpawnDelay time.Duration // pause between welcome pack item sends (default: 100ms)
}

// DefaultConfig returns the stock shop settings.
func DefaultConfig() Config {
	return Config{
		DailyBonus:     500,
		DailyCooldown:  24 * time.Hour,
		ItemSpawnDelay: 100 * time.Millisecond,
	}
}

// Coordinator executes purchases and grants against the ledger and the
// remote session. It holds no state of its own; per-account atomicity lives
// in the ledger and the session is safe for concurrent senders.
type Coordinator struct {
	config  Config
	ledger  domain.Ledger
	session domain.CommandSession
	catalog domain.Catalog
}

// New creates a fulfillment coordinator.
func New(cfg Config, ledger domain.Ledger, session domain.CommandSession, cat domain.Catalog) *Coordinator {
	return &Coordinator{config: cfg, ledger: ledger, session: session, catalog: cat}
}

// ─── Purchase ───────────────────────────────────────────────────────────────

// Purchase debits the item price, records the audit row, and delivers the
// spawn command. On delivery failure the debit is refunded before the error
// is reported. Precondition failures have no side effects.
func (c *Coordinator) Purchase(accountID, itemKey string) (domain.Item, error) {
	item, ok := c.catalog.Lookup(itemKey)
	if !ok {
		observability.Purchases.WithLabelValues("unknown_item").Inc()
		return domain.Item{}, domain.ErrUnknownItem
	}

	acct, err := c.ledger.GetAccount(accountID)
	if err != nil {
		observability.Purchases.WithLabelValues("storage_error").Inc()
		return domain.Item{}, fmt.Errorf("ledger: %w", err)
	}
	if !acct.Linked() {
		observability.Purchases.WithLabelValues("not_linked").Inc()
		return domain.Item{}, domain.ErrNotLinked
	}

	if err := c.ledger.TryDebit(accountID, item.Price); err != nil {
		if errors.Is(err, domain.ErrInsufficientFunds) {
			observability.Purchases.WithLabelValues("insufficient_funds").Inc()
			return domain.Item{}, err
		}
		observability.Purchases.WithLabelValues("storage_error").Inc()
		return domain.Item{}, fmt.Errorf("ledger: %w", err)
	}

	// Audit row records the attempt; it stays even if delivery fails and
	// the debit is refunded. A failed insert is logged, not fatal.
	if err := c.ledger.RecordPurchase(accountID, item.Key, item.Price, time.Now()); err != nil {
		log.Printf("fulfillment: record purchase %s/%s: %v", accountID, item.Key, err)
	}

	if err := c.session.Send(spawnCommand(item.SpawnCommand, acct.GameID)); err != nil {
		return domain.Item{}, c.refund(accountID, item.Price, err)
	}

	observability.Purchases.WithLabelValues("success").Inc()
	return item, nil
}

// refund issues the compensating credit for a failed delivery. The
// DeliveryFailed error is only reported once the refund has run.
func (c *Coordinator) refund(accountID string, price int64, cause error) error {
	if err := c.ledger.Credit(accountID, price); err != nil {
		// Debited but not refunded — the one state we must not hide.
		log.Printf("fulfillment: REFUND FAILED account=%s amount=%d after %v: %v", accountID, price, cause, err)
		observability.Purchases.WithLabelValues("storage_error").Inc()
		return fmt.Errorf("refund after failed delivery: %w", err)
	}
	log.Printf("fulfillment: delivery failed for %s, refunded %d: %v", accountID, price, cause)
	observability.Purchases.WithLabelValues("delivery_failed").Inc()
	observability.Refunds.Inc()
	return domain.ErrDeliveryFailed
}

// ─── Grants ─────────────────────────────────────────────────────────────────

// ClaimDaily credits the cooldown-gated bonus. The eligibility check and the
// credit are one atomic ledger step; no remote delivery is involved.
func (c *Coordinator) ClaimDaily(accountID string) (int64, error) {
	err := c.ledger.TryClaimDaily(accountID, c.config.DailyBonus, time.Now(), c.config.DailyCooldown)
	if err != nil {
		var cd *domain.CooldownError
		if errors.As(err, &cd) {
			observability.Claims.WithLabelValues("daily", "cooling_down").Inc()
			return 0, err
		}
		observability.Claims.WithLabelValues("daily", "storage_error").Inc()
		return 0, fmt.Errorf("ledger: %w", err)
	}
	observability.Claims.WithLabelValues("daily", "success").Inc()
	return c.config.DailyBonus, nil
}

// ClaimWelcomePack grants the one-time item pack. The grant flag is claimed
// first and is not reverted on partial delivery failures: each item gets
// exactly one send attempt, failures are logged and skipped. Returns the
// items that were confirmed sent.
func (c *Coordinator) ClaimWelcomePack(accountID string) ([]domain.PackItem, error) {
	acct, err := c.ledger.GetAccount(accountID)
	if err != nil {
		observability.Claims.WithLabelValues("welcome_pack", "storage_error").Inc()
		return nil, fmt.Errorf("ledger: %w", err)
	}
	if !acct.Linked() {
		observability.Claims.WithLabelValues("welcome_pack", "not_linked").Inc()
		return nil, domain.ErrNotLinked
	}

	if err := c.ledger.TryClaimWelcomePack(accountID); err != nil {
		if errors.Is(err, domain.ErrAlreadyGranted) {
			observability.Claims.WithLabelValues("welcome_pack", "already_granted").Inc()
			return nil, err
		}
		observability.Claims.WithLabelValues("welcome_pack", "storage_error").Inc()
		return nil, fmt.Errorf("ledger: %w", err)
	}

	pack := c.catalog.WelcomePack()
	delivered := make([]domain.PackItem, 0, len(pack))
	for i, pi := range pack {
		if err := c.session.Send(spawnCommand(pi.SpawnCommand, acct.GameID)); err != nil {
			// Skipped item, not a rollback. The log line is the
			// reconciliation record for operators.
			log.Printf("fulfillment: welcome pack item %q for %s failed: %v", pi.Name, accountID, err)
			observability.PackItemFailures.Inc()
			continue
		}
		delivered = append(delivered, pi)
		if c.config.ItemSpawnDelay > 0 && i < len(pack)-1 {
			time.Sleep(c.config.ItemSpawnDelay)
		}
	}

	observability.Claims.WithLabelValues("welcome_pack", "success").Inc()
	return delivered, nil
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// spawnCommand addresses a spawn template to a linked game identity.
func spawnCommand(template, gameID string) string {
	return template + " " + gameID
}
