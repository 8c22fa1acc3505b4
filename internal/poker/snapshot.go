package poker

import (
	"encoding/json"
	"fmt"
)

// SnapshotVersion is the schema version written into every snapshot.
// Loading refuses other versions rather than guessing at migrations.
const SnapshotVersion = 1

// Snapshot is the full serialized table state, including undealt deck
// order, so that a hand can resume exactly where it stopped.
type Snapshot struct {
	SchemaVersion int      `json:"schema_version"`
	RoomID        string   `json:"room_id"`
	Settings      Settings `json:"settings"`

	Players    []*Player `json:"players"`
	Community  []Card    `json:"community_cards"`
	Deck       []Card    `json:"deck"`
	Phase      Phase     `json:"phase"`
	DealerSeat int       `json:"dealer_seat"`
	ActingSeat int       `json:"acting_seat"`
	CurrentBet int       `json:"current_bet"`
	LastRaise  int       `json:"last_raise"`
	HandNumber int       `json:"hand_number"`

	StartStacks map[string]int `json:"start_stacks,omitempty"`
	DealtIn     []string       `json:"dealt_in,omitempty"`
	Actions     []ActionRecord `json:"actions,omitempty"`
	LastResult  *HandOutcome   `json:"last_result,omitempty"`
	RunTwice    *RunTwiceSnap  `json:"run_twice,omitempty"`
}

// RunTwiceSnap preserves a pending run-it-twice vote.
type RunTwiceSnap struct {
	Eligible  []string        `json:"eligible"`
	Choices   map[string]bool `json:"choices"`
	SavedDeck []Card          `json:"saved_deck"`
	SavedComm []Card          `json:"saved_community"`
}

// Snapshot captures the table.
func (t *Table) Snapshot() *Snapshot {
	s := &Snapshot{
		SchemaVersion: SnapshotVersion,
		RoomID:        t.id,
		Settings:      t.settings,
		Community:     t.Community(),
		Phase:         t.phase,
		DealerSeat:    t.dealerSeat,
		ActingSeat:    t.actingSeat,
		CurrentBet:    t.currentBet,
		LastRaise:     t.lastRaise,
		HandNumber:    t.handNumber,
		StartStacks:   t.startStacks,
		DealtIn:       t.dealtIn,
		Actions:       t.actions,
		LastResult:    t.lastResult,
	}
	for _, p := range t.Players() {
		cp := *p
		cp.HoleCards = append([]Card(nil), p.HoleCards...)
		s.Players = append(s.Players, &cp)
	}
	if t.deck != nil {
		s.Deck = t.deck.RemainingCards()
	}
	if t.runTwice != nil {
		s.RunTwice = &RunTwiceSnap{
			Eligible:  append([]string(nil), t.runTwice.eligible...),
			Choices:   t.runTwice.choices,
			SavedDeck: t.runTwice.savedDeck,
			SavedComm: t.runTwice.savedComm,
		}
	}
	return s
}

// MarshalSnapshot renders the table as the versioned state document
// stored in the rooms table.
func (t *Table) MarshalSnapshot() ([]byte, error) {
	return json.Marshal(t.Snapshot())
}

// FromSnapshot rebuilds a table. Mid-hand state resumes as captured;
// the chip total is recomputed from the restored ledger.
func FromSnapshot(s *Snapshot, opts ...Option) (*Table, error) {
	if s.SchemaVersion != SnapshotVersion {
		return nil, fmt.Errorf("snapshot schema version %d, want %d", s.SchemaVersion, SnapshotVersion)
	}
	t, err := NewTable(s.RoomID, s.Settings, opts...)
	if err != nil {
		return nil, err
	}
	for _, p := range s.Players {
		if p.Seat < 0 || p.Seat >= MaxSeats || t.players[p.Seat] != nil {
			return nil, fmt.Errorf("snapshot has invalid seat %d", p.Seat)
		}
		cp := *p
		t.players[p.Seat] = &cp
		t.chipTotal += cp.Stack + cp.TotalBet
	}
	t.community = append([]Card(nil), s.Community...)
	t.deck = DeckFromCards(s.Deck, t.rng)
	t.phase = s.Phase
	t.dealerSeat = s.DealerSeat
	t.actingSeat = s.ActingSeat
	t.currentBet = s.CurrentBet
	t.lastRaise = s.LastRaise
	t.handNumber = s.HandNumber
	t.startStacks = s.StartStacks
	t.dealtIn = s.DealtIn
	t.actions = s.Actions
	t.lastResult = s.LastResult
	if s.RunTwice != nil {
		t.runTwice = &runTwiceState{
			eligible:  s.RunTwice.Eligible,
			choices:   s.RunTwice.Choices,
			savedDeck: s.RunTwice.SavedDeck,
			savedComm: s.RunTwice.SavedComm,
		}
		if t.runTwice.choices == nil {
			t.runTwice.choices = map[string]bool{}
		}
	}
	if err := t.CheckInvariants(); err != nil {
		return nil, err
	}
	return t, nil
}

// UnmarshalSnapshot parses and restores a stored state document.
func UnmarshalSnapshot(data []byte, opts ...Option) (*Table, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return FromSnapshot(&s, opts...)
}
