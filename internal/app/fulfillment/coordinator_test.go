package fulfillment

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/quartermaster-shop/quartermaster/internal/domain"
	"github.com/quartermaster-shop/quartermaster/internal/infra/catalog"
)

// ─── Fakes ──────────────────────────────────────────────────────────────────

// fakeLedger is an in-memory domain.Ledger for coordinator tests.
type fakeLedger struct {
	mu         sync.Mutex
	accounts   map[string]*domain.Account
	purchases  []domain.PurchaseRecord
	failCredit bool // force the compensation path to fail
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{accounts: make(map[string]*domain.Account)}
}

func (l *fakeLedger) account(id string) *domain.Account {
	if a, ok := l.accounts[id]; ok {
		return a
	}
	a := &domain.Account{ID: id}
	l.accounts[id] = a
	return a
}

func (l *fakeLedger) GetAccount(id string) (domain.Account, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return *l.account(id), nil
}

func (l *fakeLedger) LinkGameID(id, gameID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.account(id).GameID = gameID
	return nil
}

func (l *fakeLedger) TryDebit(id string, amount int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	a := l.account(id)
	if a.Coins < amount {
		return domain.ErrInsufficientFunds
	}
	a.Coins -= amount
	return nil
}

func (l *fakeLedger) Credit(id string, amount int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failCredit {
		return fmt.Errorf("disk full")
	}
	l.account(id).Coins += amount
	return nil
}

func (l *fakeLedger) TryClaimDaily(id string, bonus int64, now time.Time, window time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	a := l.account(id)
	if !a.LastDailyAt.IsZero() && now.Sub(a.LastDailyAt) < window {
		return &domain.CooldownError{Remaining: window - now.Sub(a.LastDailyAt)}
	}
	a.Coins += bonus
	a.LastDailyAt = now
	return nil
}

func (l *fakeLedger) TryClaimWelcomePack(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	a := l.account(id)
	if a.WelcomePack {
		return domain.ErrAlreadyGranted
	}
	a.WelcomePack = true
	return nil
}

func (l *fakeLedger) RecordPurchase(id, item string, price int64, at time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.purchases = append(l.purchases, domain.PurchaseRecord{
		ID: fmt.Sprintf("p%d", len(l.purchases)), AccountID: id, Item: item, Price: price, CreatedAt: at,
	})
	return nil
}

func (l *fakeLedger) PurchaseHistory(id string, limit int) ([]domain.PurchaseRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []domain.PurchaseRecord
	for _, r := range l.purchases {
		if r.AccountID == id {
			out = append(out, r)
		}
	}
	return out, nil
}

func (l *fakeLedger) coins(id string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.account(id).Coins
}

func (l *fakeLedger) purchaseCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.purchases)
}

// fakeSession records sends and can be scripted to fail.
type fakeSession struct {
	mu      sync.Mutex
	state   domain.SessionState
	sent    []string
	failAll bool
	failNth map[int]bool // 0-based index of Send calls to reject
	calls   int
}

func newFakeSession() *fakeSession {
	return &fakeSession{state: domain.SessionAuthenticated}
}

func (s *fakeSession) Send(command string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.calls
	s.calls++
	if s.state != domain.SessionAuthenticated {
		return domain.ErrNotAuthenticated
	}
	if s.failAll || s.failNth[n] {
		return domain.ErrSessionClosed
	}
	s.sent = append(s.sent, command)
	return nil
}

func (s *fakeSession) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *fakeSession) commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.sent))
	copy(out, s.sent)
	return out
}

func newTestCoordinator(ledger *fakeLedger, session *fakeSession) *Coordinator {
	cfg := DefaultConfig()
	cfg.ItemSpawnDelay = 0
	return New(cfg, ledger, session, catalog.Default())
}

// ─── Purchase ───────────────────────────────────────────────────────────────

func TestPurchase_UnknownItem(t *testing.T) {
	ledger := newFakeLedger()
	session := newFakeSession()
	c := newTestCoordinator(ledger, session)

	_, err := c.Purchase("alice", "bazooka")
	if !errors.Is(err, domain.ErrUnknownItem) {
		t.Fatalf("Purchase() = %v, want ErrUnknownItem", err)
	}
	if len(session.commands()) != 0 {
		t.Error("nothing should be sent for an unknown item")
	}
}

func TestPurchase_NotLinked(t *testing.T) {
	ledger := newFakeLedger()
	ledger.Credit("alice", 5000)
	session := newFakeSession()
	c := newTestCoordinator(ledger, session)

	_, err := c.Purchase("alice", "ak47")
	if !errors.Is(err, domain.ErrNotLinked) {
		t.Fatalf("Purchase() = %v, want ErrNotLinked", err)
	}
	if got := ledger.coins("alice"); got != 5000 {
		t.Errorf("coins = %d, want 5000 (no side effects)", got)
	}
}

func TestPurchase_InsufficientFunds(t *testing.T) {
	ledger := newFakeLedger()
	ledger.LinkGameID("alice", "steam-1")
	ledger.Credit("alice", 1000)
	session := newFakeSession()
	c := newTestCoordinator(ledger, session)

	// Item priced 1500 against a balance of 1000.
	_, err := c.Purchase("alice", "ak47")
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("Purchase() = %v, want ErrInsufficientFunds", err)
	}
	if got := ledger.coins("alice"); got != 1000 {
		t.Errorf("coins = %d, want 1000", got)
	}
	if ledger.purchaseCount() != 0 {
		t.Error("rejected debit must not write an audit row")
	}
	if len(session.commands()) != 0 {
		t.Error("rejected debit must not deliver")
	}
}

func TestPurchase_Success(t *testing.T) {
	ledger := newFakeLedger()
	ledger.LinkGameID("alice", "steam-1")
	ledger.Credit("alice", 2000)
	session := newFakeSession()
	c := newTestCoordinator(ledger, session)

	item, err := c.Purchase("alice", "ak47")
	if err != nil {
		t.Fatalf("Purchase() error: %v", err)
	}
	if item.Key != "ak47" || item.Price != 1500 {
		t.Errorf("item = %+v", item)
	}
	if got := ledger.coins("alice"); got != 500 {
		t.Errorf("coins = %d, want 500", got)
	}
	if ledger.purchaseCount() != 1 {
		t.Errorf("purchaseCount = %d, want 1", ledger.purchaseCount())
	}

	cmds := session.commands()
	if len(cmds) != 1 {
		t.Fatalf("len(commands) = %d, want 1", len(cmds))
	}
	if want := "#SpawnItem BP_AK47 steam-1"; cmds[0] != want {
		t.Errorf("command = %q, want %q", cmds[0], want)
	}
}

func TestPurchase_DeliveryFailureRefunds(t *testing.T) {
	ledger := newFakeLedger()
	ledger.LinkGameID("alice", "steam-1")
	ledger.Credit("alice", 2000)
	session := newFakeSession()
	session.failAll = true
	c := newTestCoordinator(ledger, session)

	_, err := c.Purchase("alice", "ak47")
	if !errors.Is(err, domain.ErrDeliveryFailed) {
		t.Fatalf("Purchase() = %v, want ErrDeliveryFailed", err)
	}

	// Refund exactly cancels the debit.
	if got := ledger.coins("alice"); got != 2000 {
		t.Errorf("coins = %d, want 2000 after refund", got)
	}
	// The audit row records the attempt and is not deleted.
	if ledger.purchaseCount() != 1 {
		t.Errorf("purchaseCount = %d, want 1", ledger.purchaseCount())
	}
}

func TestPurchase_SessionNotAuthenticated(t *testing.T) {
	ledger := newFakeLedger()
	ledger.LinkGameID("alice", "steam-1")
	ledger.Credit("alice", 2000)
	session := newFakeSession()
	session.state = domain.SessionReconnectPending
	c := newTestCoordinator(ledger, session)

	_, err := c.Purchase("alice", "ak47")
	if !errors.Is(err, domain.ErrDeliveryFailed) {
		t.Fatalf("Purchase() = %v, want ErrDeliveryFailed", err)
	}
	if got := ledger.coins("alice"); got != 2000 {
		t.Errorf("coins = %d, want 2000 after refund", got)
	}
}

func TestPurchase_RefundFailureSurfaces(t *testing.T) {
	ledger := newFakeLedger()
	ledger.LinkGameID("alice", "steam-1")
	ledger.accounts["alice"].Coins = 2000
	ledger.failCredit = true
	session := newFakeSession()
	session.failAll = true
	c := newTestCoordinator(ledger, session)

	_, err := c.Purchase("alice", "ak47")
	if err == nil || errors.Is(err, domain.ErrDeliveryFailed) {
		t.Fatalf("Purchase() = %v, want a storage error, not ErrDeliveryFailed", err)
	}
}

// ─── Daily Bonus ────────────────────────────────────────────────────────────

func TestClaimDaily(t *testing.T) {
	ledger := newFakeLedger()
	session := newFakeSession()
	c := newTestCoordinator(ledger, session)

	bonus, err := c.ClaimDaily("alice")
	if err != nil {
		t.Fatalf("ClaimDaily() error: %v", err)
	}
	if bonus != 500 {
		t.Errorf("bonus = %d, want 500", bonus)
	}
	if got := ledger.coins("alice"); got != 500 {
		t.Errorf("coins = %d, want 500", got)
	}

	// Second claim inside the window.
	_, err = c.ClaimDaily("alice")
	var cd *domain.CooldownError
	if !errors.As(err, &cd) {
		t.Fatalf("second ClaimDaily() = %v, want CooldownError", err)
	}
	if cd.Remaining <= 0 {
		t.Errorf("Remaining = %v, want > 0", cd.Remaining)
	}
	if got := ledger.coins("alice"); got != 500 {
		t.Errorf("coins after rejected claim = %d, want 500", got)
	}
}

// ─── Welcome Pack ───────────────────────────────────────────────────────────

func TestClaimWelcomePack_NotLinked(t *testing.T) {
	ledger := newFakeLedger()
	session := newFakeSession()
	c := newTestCoordinator(ledger, session)

	_, err := c.ClaimWelcomePack("alice")
	if !errors.Is(err, domain.ErrNotLinked) {
		t.Fatalf("ClaimWelcomePack() = %v, want ErrNotLinked", err)
	}
	if ledger.accounts["alice"].WelcomePack {
		t.Error("flag must not be claimed for an unlinked account")
	}
}

func TestClaimWelcomePack_Success(t *testing.T) {
	ledger := newFakeLedger()
	ledger.LinkGameID("alice", "steam-1")
	session := newFakeSession()
	c := newTestCoordinator(ledger, session)

	delivered, err := c.ClaimWelcomePack("alice")
	if err != nil {
		t.Fatalf("ClaimWelcomePack() error: %v", err)
	}

	pack := catalog.Default().WelcomePack()
	if len(delivered) != len(pack) {
		t.Errorf("delivered %d items, want %d", len(delivered), len(pack))
	}
	cmds := session.commands()
	if len(cmds) != len(pack) {
		t.Fatalf("sent %d commands, want %d", len(cmds), len(pack))
	}
	if want := pack[0].SpawnCommand + " steam-1"; cmds[0] != want {
		t.Errorf("commands[0] = %q, want %q", cmds[0], want)
	}
}

func TestClaimWelcomePack_Once(t *testing.T) {
	ledger := newFakeLedger()
	ledger.LinkGameID("alice", "steam-1")
	session := newFakeSession()
	c := newTestCoordinator(ledger, session)

	if _, err := c.ClaimWelcomePack("alice"); err != nil {
		t.Fatalf("first claim error: %v", err)
	}
	if _, err := c.ClaimWelcomePack("alice"); !errors.Is(err, domain.ErrAlreadyGranted) {
		t.Fatalf("second claim = %v, want ErrAlreadyGranted", err)
	}
}

func TestClaimWelcomePack_PartialFailureSkips(t *testing.T) {
	ledger := newFakeLedger()
	ledger.LinkGameID("alice", "steam-1")
	session := newFakeSession()
	session.failNth = map[int]bool{2: true} // third item fails
	c := newTestCoordinator(ledger, session)

	delivered, err := c.ClaimWelcomePack("alice")
	if err != nil {
		t.Fatalf("ClaimWelcomePack() error: %v (item failures are non-fatal)", err)
	}

	pack := catalog.Default().WelcomePack()
	if len(delivered) != len(pack)-1 {
		t.Errorf("delivered %d items, want %d", len(delivered), len(pack)-1)
	}

	// The grant flag stays set: one full attempt, no retry.
	if _, err := c.ClaimWelcomePack("alice"); !errors.Is(err, domain.ErrAlreadyGranted) {
		t.Fatalf("claim after partial failure = %v, want ErrAlreadyGranted", err)
	}
}

func TestClaimWelcomePack_AllFailuresStillClaims(t *testing.T) {
	ledger := newFakeLedger()
	ledger.LinkGameID("alice", "steam-1")
	session := newFakeSession()
	session.failAll = true
	c := newTestCoordinator(ledger, session)

	delivered, err := c.ClaimWelcomePack("alice")
	if err != nil {
		t.Fatalf("ClaimWelcomePack() error: %v", err)
	}
	if len(delivered) != 0 {
		t.Errorf("delivered %d items, want 0", len(delivered))
	}
	if !ledger.accounts["alice"].WelcomePack {
		t.Error("flag should be set after the full attempt")
	}
}
