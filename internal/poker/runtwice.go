package poker

import "fmt"

// runTwiceState tracks the vote taken when everyone is all-in before
// the river. Running it twice requires a unanimous yes.
type runTwiceState struct {
	eligible  []string
	choices   map[string]bool
	savedDeck []Card
	savedComm []Card
}

// beginRunTwiceChoice freezes the hand and asks every remaining player
// whether to deal the board twice.
func (t *Table) beginRunTwiceChoice() {
	st := &runTwiceState{
		choices:   map[string]bool{},
		savedDeck: t.deck.RemainingCards(),
		savedComm: t.Community(),
	}
	for _, seat := range t.inHandSeats() {
		st.eligible = append(st.eligible, t.players[seat].Name)
	}
	t.runTwice = st
	t.phase = PhaseRunTwice
	t.actingSeat = -1
}

// RunTwiceEligible lists the players being asked, in seat order.
func (t *Table) RunTwiceEligible() []string {
	if t.runTwice == nil {
		return nil
	}
	return append([]string(nil), t.runTwice.eligible...)
}

// RunTwiceWaitingFor lists the players who have not answered yet.
func (t *Table) RunTwiceWaitingFor() []string {
	if t.runTwice == nil {
		return nil
	}
	var waiting []string
	for _, name := range t.runTwice.eligible {
		if _, ok := t.runTwice.choices[name]; !ok {
			waiting = append(waiting, name)
		}
	}
	return waiting
}

// RunTwiceChoice records one player's vote. When the last vote lands
// the board is dealt once, or twice on a unanimous yes, and the hand
// settles.
func (t *Table) RunTwiceChoice(name string, wants bool) error {
	if t.phase != PhaseRunTwice || t.runTwice == nil {
		return ErrNoChoicePending
	}
	asked := false
	for _, n := range t.runTwice.eligible {
		if n == name {
			asked = true
			break
		}
	}
	if !asked {
		return fmt.Errorf("%w: %s has no say", ErrNoChoicePending, name)
	}
	t.runTwice.choices[name] = wants
	if len(t.RunTwiceWaitingFor()) > 0 {
		return nil
	}

	unanimous := true
	for _, choice := range t.runTwice.choices {
		if !choice {
			unanimous = false
			break
		}
	}
	if unanimous {
		t.runItTwice()
	} else {
		t.runTwice = nil
		t.dealRemaining()
		t.showdown()
	}
	return nil
}

// runItTwice deals two independent board completions from the saved
// deck state and splits every pot half per run, odd chip to the first
// run.
func (t *Table) runItTwice() {
	st := t.runTwice
	contribs, folded := t.ledger()
	contribs = t.refundUncalled(contribs)
	pots := BuildPots(contribs, folded)
	order := t.seatOrderFromDealer()

	firstBoard, firstValues := t.dealRun(st, false)
	secondBoard, secondValues := t.dealRun(st, true)

	winnings := map[int]int{}
	wonAny := map[int]bool{}
	for _, pot := range pots {
		firstHalf := pot.Amount - pot.Amount/2
		secondHalf := pot.Amount / 2
		for seat, amount := range AwardPots([]Pot{{Amount: firstHalf, Eligible: pot.Eligible}}, firstValues, order) {
			winnings[seat] += amount
		}
		for seat, amount := range AwardPots([]Pot{{Amount: secondHalf, Eligible: pot.Eligible}}, secondValues, order) {
			winnings[seat] += amount
		}
		for _, seat := range potWinners(pot, firstValues) {
			wonAny[seat] = true
		}
		for _, seat := range potWinners(pot, secondValues) {
			wonAny[seat] = true
		}
	}
	for seat, amount := range winnings {
		t.players[seat].Stack += amount
	}

	var results []PlayerOutcome
	for _, seat := range t.inHandSeats() {
		p := t.players[seat]
		results = append(results, PlayerOutcome{
			PlayerName:  p.Name,
			Description: firstValues[seat].Description,
		})
	}
	var winners []string
	for _, seat := range order {
		if wonAny[seat] {
			winners = append(winners, t.players[seat].Name)
		}
	}

	// The first board stays up as the table's community cards.
	t.community = firstBoard
	t.settle(&HandOutcome{
		HandNumber: t.handNumber,
		Winners:    winners,
		Pot:        PotTotal(pots),
		Pots:       pots,
		Results:    results,
		RunTwice:   true,
		FirstRun:   &RunOutcome{Board: firstBoard, Winners: t.runWinners(pots, firstValues, order)},
		SecondRun:  &RunOutcome{Board: secondBoard, Winners: t.runWinners(pots, secondValues, order)},
	})
}

// dealRun completes one board. The second run reshuffles a fresh copy
// of the deck as it stood when betting ended.
func (t *Table) dealRun(st *runTwiceState, reshuffle bool) ([]Card, map[int]HandValue) {
	if reshuffle {
		t.deck = DeckFromCards(st.savedDeck, t.rng)
		t.deck.Shuffle()
		t.community = append([]Card(nil), st.savedComm...)
	}
	t.dealRemaining()
	board := t.Community()
	values := map[int]HandValue{}
	for _, seat := range t.inHandSeats() {
		if v, err := BestHand(t.players[seat].HoleCards, board); err == nil {
			values[seat] = v
		}
	}
	return board, values
}

func (t *Table) runWinners(pots []Pot, values map[int]HandValue, order []int) []string {
	won := map[int]bool{}
	for _, pot := range pots {
		for _, seat := range potWinners(pot, values) {
			won[seat] = true
		}
	}
	var names []string
	for _, seat := range order {
		if won[seat] {
			names = append(names, t.players[seat].Name)
		}
	}
	return names
}
