package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/quartermaster-shop/quartermaster/internal/domain"
)

// The ledger relies on single-statement conditional UPDATEs for atomicity:
// SQLite serializes the check-and-mutate inside one statement, so two
// concurrent debits (or claims) against the same account cannot both read a
// stale balance and both succeed. Different accounts touch different rows
// and proceed independently.

// ─── Account Operations ─────────────────────────────────────────────────────

// ensureAccount creates a default-valued row if the account does not exist.
func (db *DB) ensureAccount(id string) error {
	_, err := db.db.Exec(`
		INSERT INTO accounts (id) VALUES (?)
		ON CONFLICT(id) DO NOTHING
	`, id)
	return err
}

// GetAccount returns the account, creating a default row if none exists.
func (db *DB) GetAccount(id string) (domain.Account, error) {
	if err := db.ensureAccount(id); err != nil {
		return domain.Account{}, err
	}

	var (
		acct     domain.Account
		gameID   sql.NullString
		dailyMs  int64
		packFlag int
	)
	err := db.db.QueryRow(`
		SELECT id, game_id, coins, last_daily_at, welcome_pack
		FROM accounts WHERE id = ?
	`, id).Scan(&acct.ID, &gameID, &acct.Coins, &dailyMs, &packFlag)
	if err != nil {
		return domain.Account{}, err
	}
	acct.GameID = gameID.String
	if dailyMs > 0 {
		acct.LastDailyAt = time.UnixMilli(dailyMs)
	}
	acct.WelcomePack = packFlag == 1
	return acct, nil
}

// LinkGameID attaches or overwrites the in-game identity. Idempotent upsert.
func (db *DB) LinkGameID(id, gameID string) error {
	_, err := db.db.Exec(`
		INSERT INTO accounts (id, game_id) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET game_id = excluded.game_id
	`, id, gameID)
	return err
}

// ─── Balance Operations ─────────────────────────────────────────────────────

// TryDebit atomically checks coins >= amount and decrements.
// Returns domain.ErrInsufficientFunds without side effects otherwise.
func (db *DB) TryDebit(id string, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("debit amount %d is negative", amount)
	}
	if err := db.ensureAccount(id); err != nil {
		return err
	}

	res, err := db.db.Exec(`
		UPDATE accounts SET coins = coins - ?
		WHERE id = ? AND coins >= ?
	`, amount, id, amount)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrInsufficientFunds
	}
	return nil
}

// Credit atomically increments the balance. Always succeeds storage aside.
func (db *DB) Credit(id string, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("credit amount %d is negative", amount)
	}
	if err := db.ensureAccount(id); err != nil {
		return err
	}
	_, err := db.db.Exec(`UPDATE accounts SET coins = coins + ? WHERE id = ?`, amount, id)
	return err
}

// ─── Grant Operations ───────────────────────────────────────────────────────

// TryClaimDaily credits the bonus and stamps the claim time in one atomic
// statement, but only when the cooldown window has elapsed. Two concurrent
// claims cannot both pass the WHERE clause.
func (db *DB) TryClaimDaily(id string, bonus int64, now time.Time, window time.Duration) error {
	if err := db.ensureAccount(id); err != nil {
		return err
	}

	cutoff := now.Add(-window).UnixMilli()
	res, err := db.db.Exec(`
		UPDATE accounts SET coins = coins + ?, last_daily_at = ?
		WHERE id = ? AND last_daily_at <= ?
	`, bonus, now.UnixMilli(), id, cutoff)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var lastMs int64
		if err := db.db.QueryRow(`SELECT last_daily_at FROM accounts WHERE id = ?`, id).Scan(&lastMs); err != nil {
			return err
		}
		remaining := window - now.Sub(time.UnixMilli(lastMs))
		if remaining < 0 {
			remaining = 0
		}
		return &domain.CooldownError{Remaining: remaining}
	}
	return nil
}

// TryClaimWelcomePack atomically checks and sets the one-time flag.
// The flag is monotonic: once set it is never cleared.
func (db *DB) TryClaimWelcomePack(id string) error {
	if err := db.ensureAccount(id); err != nil {
		return err
	}

	res, err := db.db.Exec(`
		UPDATE accounts SET welcome_pack = 1
		WHERE id = ? AND welcome_pack = 0
	`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrAlreadyGranted
	}
	return nil
}

// ─── Purchase Log Operations ────────────────────────────────────────────────

// RecordPurchase appends one audit row. Purely auditing, never read back by
// the fulfillment path.
func (db *DB) RecordPurchase(id, item string, price int64, at time.Time) error {
	_, err := db.db.Exec(`
		INSERT INTO purchases (id, account_id, item, price, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, uuid.NewString(), id, item, price, at.UnixMilli())
	return err
}

// PurchaseHistory returns the account's most recent audit rows, newest first.
func (db *DB) PurchaseHistory(id string, limit int) ([]domain.PurchaseRecord, error) {
	rows, err := db.db.Query(`
		SELECT id, account_id, item, price, created_at
		FROM purchases WHERE account_id = ?
		ORDER BY created_at DESC, id LIMIT ?
	`, id, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.PurchaseRecord
	for rows.Next() {
		var (
			r         domain.PurchaseRecord
			createdMs int64
		)
		if err := rows.Scan(&r.ID, &r.AccountID, &r.Item, &r.Price, &createdMs); err != nil {
			return nil, err
		}
		r.CreatedAt = time.UnixMilli(createdMs)
		result = append(result, r)
	}
	return result, rows.Err()
}
