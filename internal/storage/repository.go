package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fincoach/internal/core"

	_ "modernc.org/sqlite"
)

const dateLayout = "2006-01-02"

// SQLiteRepository persists per-session profiles, transactions, caps and
// chat history. Every row is keyed by the session id so independent
// browser sessions never see each other's data.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// LoadProfile returns the raw key/value answers collected so far.
func (r *SQLiteRepository) LoadProfile(ctx context.Context, sid string) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT key, value FROM profiles WHERE sid = ?`, sid)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan profile row: %w", err)
		}
		values[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read profile rows: %w", err)
	}

	return values, nil
}

func (r *SQLiteRepository) SaveProfileField(ctx context.Context, sid, key, value string) error {
	if _, ok := core.ProfileFieldByKey(key); !ok {
		return fmt.Errorf("save profile field %q: %w", key, core.ErrUnknownField)
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO profiles (sid, key, value) VALUES (?, ?, ?)
		 ON CONFLICT (sid, key) DO UPDATE SET value = excluded.value`,
		sid, key, value)
	if err != nil {
		return fmt.Errorf("save profile field: %w", err)
	}

	slog.InfoContext(ctx, "Profile field saved", "session_id", sid, "key", key)
	return nil
}

// ReplaceTransactions swaps the session's transactions wholesale. A
// statement import always replaces the previous import.
func (r *SQLiteRepository) ReplaceTransactions(ctx context.Context, sid string, txns []core.Transaction) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM txns WHERE sid = ?`, sid); err != nil {
		return fmt.Errorf("clear transactions: %w", err)
	}

	for _, t := range txns {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO txns (sid, date, description, amount, category) VALUES (?, ?, ?, ?, ?)`,
			sid, t.Date.Format(dateLayout), t.Description, t.Amount, t.Category)
		if err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transactions: %w", err)
	}

	slog.InfoContext(ctx, "Transactions replaced", "session_id", sid, "row_count", len(txns))
	return nil
}

// ListTransactions returns the session's transactions in date order.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, sid string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT date, description, amount, category FROM txns WHERE sid = ? ORDER BY date ASC, id ASC`, sid)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txns []core.Transaction
	for rows.Next() {
		var (
			dateStr string
			t       core.Transaction
		)
		if err := rows.Scan(&dateStr, &t.Description, &t.Amount, &t.Category); err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		t.Date, err = time.ParseInLocation(dateLayout, dateStr, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("parse transaction date %q: %w", dateStr, err)
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read transaction rows: %w", err)
	}

	return txns, nil
}

func (r *SQLiteRepository) SetCap(ctx context.Context, sid, category string, weekly float64) error {
	category = strings.ToLower(strings.TrimSpace(category))
	if category == "" {
		return fmt.Errorf("set cap: empty category")
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO caps (sid, category, weekly) VALUES (?, ?, ?)
		 ON CONFLICT (sid, category) DO UPDATE SET weekly = excluded.weekly`,
		sid, category, weekly)
	if err != nil {
		return fmt.Errorf("set cap: %w", err)
	}

	slog.InfoContext(ctx, "Spending cap set", "session_id", sid, "category", category, "weekly", weekly)
	return nil
}

func (r *SQLiteRepository) SetCaps(ctx context.Context, sid string, caps []core.Cap) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, c := range caps {
		category := strings.ToLower(strings.TrimSpace(c.Category))
		if category == "" {
			return fmt.Errorf("set caps: empty category")
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO caps (sid, category, weekly) VALUES (?, ?, ?)
			 ON CONFLICT (sid, category) DO UPDATE SET weekly = excluded.weekly`,
			sid, category, c.Weekly)
		if err != nil {
			return fmt.Errorf("set cap for %s: %w", category, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit caps: %w", err)
	}

	slog.InfoContext(ctx, "Spending caps set", "session_id", sid, "count", len(caps))
	return nil
}

func (r *SQLiteRepository) ListCaps(ctx context.Context, sid string) ([]core.Cap, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT category, weekly FROM caps WHERE sid = ? ORDER BY category ASC`, sid)
	if err != nil {
		return nil, fmt.Errorf("list caps: %w", err)
	}
	defer rows.Close()

	var caps []core.Cap
	for rows.Next() {
		var c core.Cap
		if err := rows.Scan(&c.Category, &c.Weekly); err != nil {
			return nil, fmt.Errorf("scan cap row: %w", err)
		}
		caps = append(caps, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read cap rows: %w", err)
	}

	return caps, nil
}

func (r *SQLiteRepository) AppendHistory(ctx context.Context, sid, role, content string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO history (sid, role, content, ts) VALUES (?, ?, ?, ?)`,
		sid, role, content, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

// ListHistory returns up to limit of the most recent messages, oldest
// first. limit <= 0 returns everything.
func (r *SQLiteRepository) ListHistory(ctx context.Context, sid string, limit int) ([]core.ChatMessage, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT role, content FROM history WHERE sid = ? ORDER BY id ASC`, sid)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var messages []core.ChatMessage
	for rows.Next() {
		var m core.ChatMessage
		if err := rows.Scan(&m.Role, &m.Content); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read history rows: %w", err)
	}

	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}

	return messages, nil
}

// ClearSession wipes everything the session has accumulated.
func (r *SQLiteRepository) ClearSession(ctx context.Context, sid string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"profiles", "txns", "caps", "history"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE sid = ?`, sid); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit clear session: %w", err)
	}

	slog.InfoContext(ctx, "Session state cleared", "session_id", sid)
	return nil
}
