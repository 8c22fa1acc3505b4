package poker

import (
	"reflect"
	"testing"
)

func TestUncalledBet(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		contribs map[int]int
		seat     int
		excess   int
	}{
		{"single overbet", map[int]int{0: 50, 1: 100, 2: 200}, 2, 100},
		{"all matched", map[int]int{0: 100, 1: 100, 2: 100}, -1, 0},
		{"lone bettor", map[int]int{3: 25}, 3, 25},
		{"empty", map[int]int{}, -1, 0},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			seat, excess := UncalledBet(tc.contribs)
			if seat != tc.seat || excess != tc.excess {
				t.Fatalf("UncalledBet = (%d, %d), want (%d, %d)", seat, excess, tc.seat, tc.excess)
			}
		})
	}
}

func TestBuildPotsSidePots(t *testing.T) {
	t.Parallel()

	// Short stack all-in for 50, second for 100, big stack covers both.
	// The uncalled 100 is refunded first, then the layers split.
	contribs := map[int]int{0: 50, 1: 100, 2: 200}
	if seat, excess := UncalledBet(contribs); seat != 2 || excess != 100 {
		t.Fatalf("UncalledBet = (%d, %d), want (2, 100)", seat, excess)
	}
	contribs[2] -= 100

	pots := BuildPots(contribs, map[int]bool{})
	want := []Pot{
		{Amount: 150, Eligible: []int{0, 1, 2}},
		{Amount: 100, Eligible: []int{1, 2}},
	}
	if !reflect.DeepEqual(pots, want) {
		t.Fatalf("pots = %+v, want %+v", pots, want)
	}
	if PotTotal(pots) != 250 {
		t.Fatalf("PotTotal = %d, want 250", PotTotal(pots))
	}
}

func TestBuildPotsFoldedLayerRollsDown(t *testing.T) {
	t.Parallel()

	// The two deeper contributors both folded, so their top layer has no
	// eligible seats and rolls into the pot below.
	contribs := map[int]int{0: 50, 1: 100, 2: 100}
	pots := BuildPots(contribs, map[int]bool{1: true, 2: true})
	want := []Pot{{Amount: 250, Eligible: []int{0}}}
	if !reflect.DeepEqual(pots, want) {
		t.Fatalf("pots = %+v, want %+v", pots, want)
	}
}

func TestBuildPotsFoldedSeatStillFunds(t *testing.T) {
	t.Parallel()

	contribs := map[int]int{0: 100, 1: 100, 2: 40}
	pots := BuildPots(contribs, map[int]bool{2: true})
	want := []Pot{
		{Amount: 120, Eligible: []int{0, 1}},
		{Amount: 120, Eligible: []int{0, 1}},
	}
	if !reflect.DeepEqual(pots, want) {
		t.Fatalf("pots = %+v, want %+v", pots, want)
	}
}

func TestAwardPotsSplitsWithOddChip(t *testing.T) {
	t.Parallel()

	community := []Card{card(Two, Clubs), card(Seven, Diamonds), card(Nine, Hearts), card(Jack, Spades), card(King, Clubs)}
	// Both players play the board with identical hole card ranks.
	av := best(t, []Card{card(Ace, Hearts), card(Queen, Diamonds)}, community)
	bv := best(t, []Card{card(Ace, Spades), card(Queen, Clubs)}, community)
	values := map[int]HandValue{1: av, 4: bv}

	pots := []Pot{{Amount: 101, Eligible: []int{1, 4}}}
	winnings := AwardPots(pots, values, []int{4, 1})
	if winnings[4] != 51 || winnings[1] != 50 {
		t.Fatalf("winnings = %v, want seat 4: 51, seat 1: 50", winnings)
	}
}

func TestAwardPotsPerPotWinners(t *testing.T) {
	t.Parallel()

	community := []Card{card(Two, Clubs), card(Seven, Diamonds), card(Nine, Hearts), card(Jack, Spades), card(King, Clubs)}
	strong := best(t, []Card{card(King, Hearts), card(King, Diamonds)}, community)
	weak := best(t, []Card{card(Three, Hearts), card(Four, Diamonds)}, community)
	values := map[int]HandValue{0: strong, 1: weak, 2: weak}

	// Seat 0 wins the main pot but is not eligible for the side pot.
	pots := []Pot{
		{Amount: 150, Eligible: []int{0, 1, 2}},
		{Amount: 100, Eligible: []int{1, 2}},
	}
	winnings := AwardPots(pots, values, []int{1, 2, 0})
	if winnings[0] != 150 {
		t.Errorf("seat 0 won %d, want 150", winnings[0])
	}
	if winnings[1] != 50 || winnings[2] != 50 {
		t.Errorf("side pot split = %d/%d, want 50/50", winnings[1], winnings[2])
	}
}
