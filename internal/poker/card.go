package poker

import (
	"encoding/json"
	"fmt"
)

// Suit is a card suit, serialized by name ("hearts", "spades", ...).
type Suit string

const (
	Hearts   Suit = "hearts"
	Diamonds Suit = "diamonds"
	Clubs    Suit = "clubs"
	Spades   Suit = "spades"
)

// Suits lists the four suits in deck-construction order.
var Suits = []Suit{Hearts, Diamonds, Clubs, Spades}

func (s Suit) Valid() bool {
	switch s {
	case Hearts, Diamonds, Clubs, Spades:
		return true
	}
	return false
}

// Symbol returns the single-rune suit symbol used in log output.
func (s Suit) Symbol() string {
	switch s {
	case Hearts:
		return "♥"
	case Diamonds:
		return "♦"
	case Clubs:
		return "♣"
	case Spades:
		return "♠"
	default:
		return "?"
	}
}

// Rank is a card rank from Two (2) to Ace (14). Ace is high except in
// the wheel straight A-2-3-4-5.
type Rank int

const (
	Two   Rank = 2
	Three Rank = 3
	Four  Rank = 4
	Five  Rank = 5
	Six   Rank = 6
	Seven Rank = 7
	Eight Rank = 8
	Nine  Rank = 9
	Ten   Rank = 10
	Jack  Rank = 11
	Queen Rank = 12
	King  Rank = 13
	Ace   Rank = 14
)

// Ranks lists all ranks in ascending order.
var Ranks = []Rank{Two, Three, Four, Five, Six, Seven, Eight, Nine, Ten, Jack, Queen, King, Ace}

// String returns the wire representation ("2".."10", "J", "Q", "K", "A").
func (r Rank) String() string {
	switch r {
	case Jack:
		return "J"
	case Queen:
		return "Q"
	case King:
		return "K"
	case Ace:
		return "A"
	default:
		return fmt.Sprintf("%d", int(r))
	}
}

// Name returns the long rank name used in hand descriptions
// ("Ace", "King", "10", ...).
func (r Rank) Name() string {
	switch r {
	case Jack:
		return "Jack"
	case Queen:
		return "Queen"
	case King:
		return "King"
	case Ace:
		return "Ace"
	default:
		return fmt.Sprintf("%d", int(r))
	}
}

// ParseRank parses the wire representation of a rank.
func ParseRank(s string) (Rank, error) {
	switch s {
	case "J":
		return Jack, nil
	case "Q":
		return Queen, nil
	case "K":
		return King, nil
	case "A":
		return Ace, nil
	}
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil || n < 2 || n > 10 {
		return 0, fmt.Errorf("invalid rank %q", s)
	}
	return Rank(n), nil
}

func (r Rank) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *Rank) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	rank, err := ParseRank(s)
	if err != nil {
		return err
	}
	*r = rank
	return nil
}

// Card is a playing card. Equality is by (rank, suit).
type Card struct {
	Rank Rank `json:"rank"`
	Suit Suit `json:"suit"`
}

func NewCard(rank Rank, suit Suit) Card {
	return Card{Rank: rank, Suit: suit}
}

// String returns a compact representation like "A♠".
func (c Card) String() string {
	return c.Rank.String() + c.Suit.Symbol()
}
