// Package store is the durable SQLite layer: room snapshots, hand
// history and player statistics. All writes go through one connection
// under a mutex; SQLite gets exactly one writer.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("store: not found")

const schema = `
CREATE TABLE IF NOT EXISTS rooms (
	room_id    TEXT PRIMARY KEY,
	state_json TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS hands (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	room_id      TEXT NOT NULL,
	hand_number  INTEGER NOT NULL,
	pot_size     INTEGER NOT NULL,
	winner_names TEXT NOT NULL,
	winning_hand TEXT NOT NULL,
	created_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_hands_room ON hands(room_id, id);

CREATE TABLE IF NOT EXISTS player_stats (
	name         TEXT PRIMARY KEY,
	hands_played INTEGER NOT NULL DEFAULT 0,
	hands_won    INTEGER NOT NULL DEFAULT 0,
	total_profit INTEGER NOT NULL DEFAULT 0,
	biggest_pot  INTEGER NOT NULL DEFAULT 0,
	updated_at   INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS action_history (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	hand_id     INTEGER NOT NULL REFERENCES hands(id),
	player_name TEXT NOT NULL,
	action      TEXT NOT NULL,
	amount      INTEGER NOT NULL,
	phase       TEXT NOT NULL,
	sequence    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_actions_hand ON action_history(hand_id, sequence);

CREATE TABLE IF NOT EXISTS player_hand_results (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	hand_id     INTEGER NOT NULL REFERENCES hands(id),
	player_name TEXT NOT NULL,
	profit      INTEGER NOT NULL,
	is_winner   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_results_hand ON player_hand_results(hand_id);
`

// Store wraps the SQLite database.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// Open opens or creates the database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRoomState upserts a room snapshot with REPLACE semantics, keyed
// by room id.
func (s *Store) SaveRoomState(roomID string, state []byte, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`
		INSERT INTO rooms (room_id, state_json, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(room_id) DO UPDATE SET
			state_json = excluded.state_json,
			updated_at = excluded.updated_at`,
		roomID, string(state), now.Unix(), now.Unix())
	if err != nil {
		return fmt.Errorf("save room %s: %w", roomID, err)
	}
	return nil
}

// LoadRoomStates returns the snapshots of every room updated at or
// after cutoff, keyed by room id.
func (s *Store) LoadRoomStates(cutoff time.Time) (map[string][]byte, error) {
	rows, err := s.db.Query(
		`SELECT room_id, state_json FROM rooms WHERE updated_at >= ?`, cutoff.Unix())
	if err != nil {
		return nil, fmt.Errorf("load rooms: %w", err)
	}
	defer rows.Close()

	states := map[string][]byte{}
	for rows.Next() {
		var id, state string
		if err := rows.Scan(&id, &state); err != nil {
			return nil, err
		}
		states[id] = []byte(state)
	}
	return states, rows.Err()
}

// DeleteRoom drops a room's snapshot.
func (s *Store) DeleteRoom(roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`DELETE FROM rooms WHERE room_id = ?`, roomID)
	return err
}

// PurgeRoomsBefore removes snapshots last updated before cutoff and
// returns how many were dropped.
func (s *Store) PurgeRoomsBefore(cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(`DELETE FROM rooms WHERE updated_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("purge rooms: %w", err)
	}
	return res.RowsAffected()
}
