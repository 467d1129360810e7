package watchlist

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// Store persists per-user watchlists and the mapping from watched symbols to
// guild scheduled-event ids.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// NewStore opens (or creates) the SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Infof("watchlist store opened: %s", dbPath)
	return s, nil
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS watchlist (
			id       INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id  TEXT NOT NULL,
			symbol   TEXT NOT NULL,
			added_at INTEGER NOT NULL,
			UNIQUE(user_id, symbol)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_watchlist_symbol ON watchlist(symbol)`,

		`CREATE TABLE IF NOT EXISTS earnings_events (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			guild_id  TEXT NOT NULL,
			symbol    TEXT NOT NULL,
			event_id  TEXT NOT NULL,
			starts_at INTEGER NOT NULL,
			UNIQUE(guild_id, symbol)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

// Add inserts a (user, symbol) pair. Returns false when the pair was already
// present; the uniqueness constraint makes concurrent adds idempotent.
func (s *Store) Add(userID, symbol string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		`INSERT OR IGNORE INTO watchlist (user_id, symbol, added_at) VALUES (?,?,?)`,
		userID, symbol, time.Now().Unix(),
	)
	if err != nil {
		return false, fmt.Errorf("insert watchlist row: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Remove deletes a (user, symbol) pair. Returns false when no row existed.
func (s *Store) Remove(userID, symbol string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM watchlist WHERE user_id = ? AND symbol = ?`, userID, symbol)
	if err != nil {
		return false, fmt.Errorf("delete watchlist row: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// List returns the user's watched symbols in insertion order.
func (s *Store) List(userID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT symbol FROM watchlist WHERE user_id = ? ORDER BY added_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query watchlist: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, err
		}
		symbols = append(symbols, sym)
	}
	return symbols, rows.Err()
}

// Clear removes all of a user's entries and returns the symbols removed.
func (s *Store) Clear(userID string) ([]string, error) {
	symbols, err := s.List(userID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec(`DELETE FROM watchlist WHERE user_id = ?`, userID); err != nil {
		return nil, fmt.Errorf("clear watchlist: %w", err)
	}
	return symbols, nil
}

// AllSymbols returns the distinct union of symbols across all users.
func (s *Store) AllSymbols() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT DISTINCT symbol FROM watchlist ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("query symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, err
		}
		symbols = append(symbols, sym)
	}
	return symbols, rows.Err()
}

// HolderCount returns how many users currently watch a symbol.
func (s *Store) HolderCount(symbol string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM watchlist WHERE symbol = ?`, symbol).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count holders: %w", err)
	}
	return n, nil
}

// EventID returns the scheduled-event id recorded for (guild, symbol).
func (s *Store) EventID(guildID, symbol string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var id string
	err := s.db.QueryRow(
		`SELECT event_id FROM earnings_events WHERE guild_id = ? AND symbol = ?`,
		guildID, symbol,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query event id: %w", err)
	}
	return id, true, nil
}

// PutEvent records the scheduled-event id created for (guild, symbol).
func (s *Store) PutEvent(guildID, symbol, eventID string, startsAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO earnings_events (guild_id, symbol, event_id, starts_at) VALUES (?,?,?,?)
		 ON CONFLICT(guild_id, symbol) DO UPDATE SET event_id = excluded.event_id, starts_at = excluded.starts_at`,
		guildID, symbol, eventID, startsAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert event mapping: %w", err)
	}
	return nil
}

// DeleteEvent removes the mapping row for (guild, symbol).
func (s *Store) DeleteEvent(guildID, symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(
		`DELETE FROM earnings_events WHERE guild_id = ? AND symbol = ?`,
		guildID, symbol,
	); err != nil {
		return fmt.Errorf("delete event mapping: %w", err)
	}
	return nil
}

// Events returns the symbol-to-event-id mapping for a guild.
func (s *Store) Events(guildID string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT symbol, event_id FROM earnings_events WHERE guild_id = ?`, guildID)
	if err != nil {
		return nil, fmt.Errorf("query event mappings: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var sym, id string
		if err := rows.Scan(&sym, &id); err != nil {
			return nil, err
		}
		out[sym] = id
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	log.Info("closing watchlist store")
	return s.db.Close()
}
