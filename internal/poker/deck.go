package poker

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
)

// Deck is an ordered set of undealt cards. Cards are dealt from the
// front. The zero value is not usable; construct with NewDeck or
// DeckFromCards.
type Deck struct {
	cards []Card
	rng   *rand.Rand
}

// NewDeck returns a full 52-card deck shuffled with crypto/rand.
func NewDeck() *Deck {
	d := &Deck{cards: orderedCards()}
	d.Shuffle()
	return d
}

// NewDeckWithRand returns a full deck shuffled with the given RNG.
// Used where deal order must be reproducible.
func NewDeckWithRand(rng *rand.Rand) *Deck {
	d := &Deck{cards: orderedCards(), rng: rng}
	d.Shuffle()
	return d
}

// DeckFromCards builds a deck whose undealt cards are exactly the given
// ones, in order. No shuffle is applied.
func DeckFromCards(cards []Card, rng *rand.Rand) *Deck {
	cp := make([]Card, len(cards))
	copy(cp, cards)
	return &Deck{cards: cp, rng: rng}
}

func orderedCards() []Card {
	cards := make([]Card, 0, 52)
	for _, s := range Suits {
		for _, r := range Ranks {
			cards = append(cards, Card{Rank: r, Suit: s})
		}
	}
	return cards
}

// Shuffle performs a Fisher-Yates shuffle of the remaining cards. With
// no injected RNG the swap indices come from crypto/rand.
func (d *Deck) Shuffle() {
	if d.rng != nil {
		d.rng.Shuffle(len(d.cards), func(i, j int) {
			d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
		})
		return
	}
	for i := len(d.cards) - 1; i > 0; i-- {
		j := int(cryptoUint64() % uint64(i+1))
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

func cryptoUint64() uint64 {
	var buf [8]byte
	if _, err := crand.Read(buf[:]); err != nil {
		// crypto/rand never fails on supported platforms
		panic(fmt.Sprintf("deck: crypto rand: %v", err))
	}
	return binary.LittleEndian.Uint64(buf[:])
}

// Draw removes and returns the next n cards.
func (d *Deck) Draw(n int) ([]Card, error) {
	if n < 0 || n > len(d.cards) {
		return nil, fmt.Errorf("deck: cannot draw %d of %d cards", n, len(d.cards))
	}
	drawn := make([]Card, n)
	copy(drawn, d.cards[:n])
	d.cards = d.cards[n:]
	return drawn, nil
}

// Burn discards the top card.
func (d *Deck) Burn() error {
	_, err := d.Draw(1)
	return err
}

// Remaining reports how many cards are left.
func (d *Deck) Remaining() int {
	return len(d.cards)
}

// RemainingCards returns a copy of the undealt cards in order.
func (d *Deck) RemainingCards() []Card {
	cp := make([]Card, len(d.cards))
	copy(cp, d.cards)
	return cp
}
