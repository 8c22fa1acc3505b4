package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ActionRecord is one betting action persisted with a hand.
type ActionRecord struct {
	PlayerName string `json:"player_name"`
	Action     string `json:"action"`
	Amount     int    `json:"amount"`
	Phase      string `json:"phase"`
}

// PlayerResult is one player's per-hand line.
type PlayerResult struct {
	Name   string `json:"player_name"`
	Profit int    `json:"profit"`
	Won    bool   `json:"is_winner"`
}

// HandRecord is a finished hand ready to persist.
type HandRecord struct {
	RoomID      string
	HandNumber  int
	PotSize     int
	Winners     []string
	WinningHand string
	Actions     []ActionRecord
	Players     []PlayerResult
}

// HandSummary is a row of room history.
type HandSummary struct {
	ID          int64     `json:"id"`
	RoomID      string    `json:"room_id"`
	HandNumber  int       `json:"hand_number"`
	PotSize     int       `json:"pot_size"`
	Winners     []string  `json:"winners"`
	WinningHand string    `json:"winning_hand"`
	CreatedAt   time.Time `json:"created_at"`
}

// HandDetail is a hand with its action log and per-player results.
type HandDetail struct {
	HandSummary
	Actions []ActionRecord `json:"actions"`
	Players []PlayerResult `json:"players"`
}

// PlayerStats are the lifetime aggregates behind /api/stats and the
// leaderboard.
type PlayerStats struct {
	Name        string `json:"player_name"`
	HandsPlayed int    `json:"hands_played"`
	HandsWon    int    `json:"hands_won"`
	TotalProfit int    `json:"total_profit"`
	BiggestPot  int    `json:"biggest_pot"`
}

// RecordHand persists a finished hand, its action log, per-player
// results and the derived stat updates, in one transaction.
func (s *Store) RecordHand(rec HandRecord, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("record hand: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		INSERT INTO hands (room_id, hand_number, pot_size, winner_names, winning_hand, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.RoomID, rec.HandNumber, rec.PotSize,
		strings.Join(rec.Winners, ","), rec.WinningHand, now.Unix())
	if err != nil {
		return 0, fmt.Errorf("insert hand: %w", err)
	}
	handID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for i, a := range rec.Actions {
		if _, err := tx.Exec(`
			INSERT INTO action_history (hand_id, player_name, action, amount, phase, sequence)
			VALUES (?, ?, ?, ?, ?, ?)`,
			handID, a.PlayerName, a.Action, a.Amount, a.Phase, i); err != nil {
			return 0, fmt.Errorf("insert action: %w", err)
		}
	}

	for _, p := range rec.Players {
		if _, err := tx.Exec(`
			INSERT INTO player_hand_results (hand_id, player_name, profit, is_winner)
			VALUES (?, ?, ?, ?)`,
			handID, p.Name, p.Profit, p.Won); err != nil {
			return 0, fmt.Errorf("insert result: %w", err)
		}
		wonPot := 0
		won := 0
		if p.Won {
			won = 1
			wonPot = rec.PotSize
		}
		if _, err := tx.Exec(`
			INSERT INTO player_stats (name, hands_played, hands_won, total_profit, biggest_pot, updated_at)
			VALUES (?, 1, ?, ?, ?, ?)
			ON CONFLICT(name) DO UPDATE SET
				hands_played = hands_played + 1,
				hands_won    = hands_won + excluded.hands_won,
				total_profit = total_profit + excluded.total_profit,
				biggest_pot  = MAX(biggest_pot, excluded.biggest_pot),
				updated_at   = excluded.updated_at`,
			p.Name, won, p.Profit, wonPot, now.Unix()); err != nil {
			return 0, fmt.Errorf("update stats: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("record hand: %w", err)
	}
	return handID, nil
}

// PlayerStats returns one player's lifetime aggregates.
func (s *Store) PlayerStats(name string) (*PlayerStats, error) {
	var st PlayerStats
	err := s.db.QueryRow(`
		SELECT name, hands_played, hands_won, total_profit, biggest_pot
		FROM player_stats WHERE name = ?`, name).
		Scan(&st.Name, &st.HandsPlayed, &st.HandsWon, &st.TotalProfit, &st.BiggestPot)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: player %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// Leaderboard lists players by lifetime profit, descending.
func (s *Store) Leaderboard(limit int) ([]PlayerStats, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
		SELECT name, hands_played, hands_won, total_profit, biggest_pot
		FROM player_stats
		ORDER BY total_profit DESC, hands_won DESC, name ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PlayerStats
	for rows.Next() {
		var st PlayerStats
		if err := rows.Scan(&st.Name, &st.HandsPlayed, &st.HandsWon, &st.TotalProfit, &st.BiggestPot); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// RoomHistory lists a room's most recent hands, newest first.
func (s *Store) RoomHistory(roomID string, limit int) ([]HandSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, room_id, hand_number, pot_size, winner_names, winning_hand, created_at
		FROM hands WHERE room_id = ?
		ORDER BY id DESC LIMIT ?`, roomID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HandSummary
	for rows.Next() {
		sum, err := scanHandSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// HandDetail loads one hand with its actions and per-player results.
func (s *Store) HandDetail(handID int64) (*HandDetail, error) {
	row := s.db.QueryRow(`
		SELECT id, room_id, hand_number, pot_size, winner_names, winning_hand, created_at
		FROM hands WHERE id = ?`, handID)
	var (
		sum       HandSummary
		winnerCSV string
		created   int64
	)
	err := row.Scan(&sum.ID, &sum.RoomID, &sum.HandNumber, &sum.PotSize, &winnerCSV, &sum.WinningHand, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: hand %d", ErrNotFound, handID)
	}
	if err != nil {
		return nil, err
	}
	sum.Winners = splitWinners(winnerCSV)
	sum.CreatedAt = time.Unix(created, 0).UTC()

	detail := &HandDetail{HandSummary: sum}

	actions, err := s.db.Query(`
		SELECT player_name, action, amount, phase FROM action_history
		WHERE hand_id = ? ORDER BY sequence`, handID)
	if err != nil {
		return nil, err
	}
	defer actions.Close()
	for actions.Next() {
		var a ActionRecord
		if err := actions.Scan(&a.PlayerName, &a.Action, &a.Amount, &a.Phase); err != nil {
			return nil, err
		}
		detail.Actions = append(detail.Actions, a)
	}
	if err := actions.Err(); err != nil {
		return nil, err
	}

	results, err := s.db.Query(`
		SELECT player_name, profit, is_winner FROM player_hand_results
		WHERE hand_id = ? ORDER BY id`, handID)
	if err != nil {
		return nil, err
	}
	defer results.Close()
	for results.Next() {
		var p PlayerResult
		if err := results.Scan(&p.Name, &p.Profit, &p.Won); err != nil {
			return nil, err
		}
		detail.Players = append(detail.Players, p)
	}
	return detail, results.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHandSummary(row rowScanner) (HandSummary, error) {
	var (
		sum       HandSummary
		winnerCSV string
		created   int64
	)
	err := row.Scan(&sum.ID, &sum.RoomID, &sum.HandNumber, &sum.PotSize, &winnerCSV, &sum.WinningHand, &created)
	if err != nil {
		return sum, err
	}
	sum.Winners = splitWinners(winnerCSV)
	sum.CreatedAt = time.Unix(created, 0).UTC()
	return sum, nil
}

func splitWinners(csv string) []string {
	if csv == "" {
		return nil
	}
	return strings.Split(csv, ",")
}
