package poker

import (
	"fmt"
	"math/rand/v2"
	"sort"
)

// MaxSeats is the number of seats at a table, indexed 0..8.
const MaxSeats = 9

// Phase is the table's position in the hand lifecycle. The values are
// the wire representation.
type Phase string

const (
	PhaseWaiting   Phase = "waiting"
	PhasePreflop   Phase = "preflop"
	PhaseFlop      Phase = "flop"
	PhaseTurn      Phase = "turn"
	PhaseRiver     Phase = "river"
	PhaseShowdown  Phase = "showdown"
	PhaseRunTwice  Phase = "waiting_run_twice"
	PhaseHandOver  Phase = "hand_over"
)

// Betting reports whether actions are accepted in this phase.
func (p Phase) Betting() bool {
	switch p {
	case PhasePreflop, PhaseFlop, PhaseTurn, PhaseRiver:
		return true
	}
	return false
}

// ActionType is a betting action kind. The values are the wire
// representation.
type ActionType string

const (
	ActionFold  ActionType = "fold"
	ActionCheck ActionType = "check"
	ActionCall  ActionType = "call"
	ActionRaise ActionType = "raise"
	ActionAllIn ActionType = "all_in"
)

// ActionRecord is one applied action, kept for hand history.
type ActionRecord struct {
	PlayerName string `json:"player_name"`
	Action     string `json:"action"`
	Amount     int    `json:"amount"`
	Phase      string `json:"phase"`
}

// ValidAction describes one action currently available to the acting
// player, with its numeric bounds.
type ValidAction struct {
	Action string `json:"action"`
	Amount int    `json:"amount,omitempty"`
	Min    int    `json:"min,omitempty"`
	Max    int    `json:"max,omitempty"`
}

// Settings are the fixed parameters of a table.
type Settings struct {
	SmallBlind int `json:"small_blind"`
	BigBlind   int `json:"big_blind"`
	MinBuyIn   int `json:"min_buy_in"`
	MaxBuyIn   int `json:"max_buy_in"`
}

// DefaultSettings mirrors a 1/2 game with 40-200 buy-ins.
func DefaultSettings() Settings {
	return Settings{SmallBlind: 1, BigBlind: 2, MinBuyIn: 40, MaxBuyIn: 200}
}

func (s Settings) Validate() error {
	if s.SmallBlind <= 0 || s.BigBlind <= s.SmallBlind {
		return fmt.Errorf("blinds must satisfy 0 < small < big, got %d/%d", s.SmallBlind, s.BigBlind)
	}
	if s.MinBuyIn < s.BigBlind || s.MaxBuyIn < s.MinBuyIn {
		return fmt.Errorf("buy-in bounds %d..%d invalid for big blind %d", s.MinBuyIn, s.MaxBuyIn, s.BigBlind)
	}
	return nil
}

// PlayerOutcome is one player's line in a hand-ended envelope.
type PlayerOutcome struct {
	PlayerName  string `json:"player_name"`
	Description string `json:"description"`
}

// RunOutcome is one board of a run-it-twice finish.
type RunOutcome struct {
	Board   []Card   `json:"board"`
	Winners []string `json:"winners"`
}

// HandOutcome is everything the room needs to announce and persist a
// finished hand.
type HandOutcome struct {
	HandNumber int             `json:"hand_number"`
	Winners    []string        `json:"winners"`
	Pot        int             `json:"pot"`
	Pots       []Pot           `json:"pots"`
	Results    []PlayerOutcome `json:"hand_results,omitempty"`
	Stacks     map[string]int  `json:"player_stacks"`
	Profits    map[string]int  `json:"-"`
	Dealt      []string        `json:"-"`
	Actions    []ActionRecord  `json:"-"`
	RunTwice   bool            `json:"run_twice,omitempty"`
	FirstRun   *RunOutcome     `json:"first_run,omitempty"`
	SecondRun  *RunOutcome     `json:"second_run,omitempty"`
}

// Table is the deterministic hold'em state machine for one room. It is
// not safe for concurrent use; the room engine serializes access.
type Table struct {
	id       string
	settings Settings

	players map[int]*Player
	deck    *Deck
	rng     *rand.Rand

	community  []Card
	phase      Phase
	dealerSeat int
	actingSeat int
	currentBet int
	lastRaise  int
	handNumber int

	chipTotal   int
	dealtIn     []string
	startStacks map[string]int
	actions     []ActionRecord
	lastResult  *HandOutcome
	runTwice    *runTwiceState
}

// Option configures a Table at construction.
type Option func(*Table)

// WithRand makes deck shuffles deterministic. Tests only.
func WithRand(rng *rand.Rand) Option {
	return func(t *Table) { t.rng = rng }
}

func NewTable(id string, settings Settings, opts ...Option) (*Table, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	t := &Table{
		id:         id,
		settings:   settings,
		players:    make(map[int]*Player),
		phase:      PhaseWaiting,
		dealerSeat: -1,
		actingSeat: -1,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

func (t *Table) ID() string         { return t.id }
func (t *Table) Settings() Settings { return t.settings }
func (t *Table) Phase() Phase       { return t.phase }
func (t *Table) HandNumber() int    { return t.handNumber }
func (t *Table) DealerSeat() int    { return t.dealerSeat }
func (t *Table) ActingSeat() int    { return t.actingSeat }
func (t *Table) CurrentBet() int    { return t.currentBet }
func (t *Table) LastRaise() int     { return t.lastRaise }

func (t *Table) Community() []Card {
	cp := make([]Card, len(t.community))
	copy(cp, t.community)
	return cp
}

// Pot is the live pot: every chip committed this hand and not yet
// awarded or refunded.
func (t *Table) Pot() int {
	total := 0
	for _, p := range t.players {
		total += p.TotalBet
	}
	return total
}

// LastResult returns the outcome of the most recently finished hand, or
// nil if none finished since the table was created or a hand started.
func (t *Table) LastResult() *HandOutcome { return t.lastResult }

// Players returns all seated players ordered by seat.
func (t *Table) Players() []*Player {
	out := make([]*Player, 0, len(t.players))
	for _, p := range t.players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seat < out[j].Seat })
	return out
}

func (t *Table) PlayerByName(name string) *Player {
	for _, p := range t.players {
		if p.Name == name {
			return p
		}
	}
	return nil
}

func (t *Table) PlayerAt(seat int) *Player {
	return t.players[seat]
}

// AddPlayer seats a new player. seat -1 picks the lowest free seat.
func (t *Table) AddPlayer(name string, seat, buyIn int) (*Player, error) {
	if t.PlayerByName(name) != nil {
		return nil, fmt.Errorf("%w: %s", ErrNameTaken, name)
	}
	if buyIn < t.settings.MinBuyIn || buyIn > t.settings.MaxBuyIn {
		return nil, fmt.Errorf("%w: %d not in [%d, %d]", ErrInvalidBuyIn, buyIn, t.settings.MinBuyIn, t.settings.MaxBuyIn)
	}
	if seat == -1 {
		for s := 0; s < MaxSeats; s++ {
			if t.players[s] == nil {
				seat = s
				break
			}
		}
		if seat == -1 {
			return nil, fmt.Errorf("%w: table is full", ErrSeatTaken)
		}
	}
	if seat < 0 || seat >= MaxSeats {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSeat, seat)
	}
	if t.players[seat] != nil {
		return nil, fmt.Errorf("%w: seat %d", ErrSeatTaken, seat)
	}
	p := &Player{Name: name, Seat: seat, Stack: buyIn}
	t.players[seat] = p
	t.chipTotal += buyIn
	return p, nil
}

// RemovePlayer frees a seat between hands. A player still committed to
// the current hand cannot be removed; fold them and remove after award.
func (t *Table) RemovePlayer(name string) (*Player, error) {
	p := t.PlayerByName(name)
	if p == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotSeated, name)
	}
	if p.TotalBet > 0 || ((t.phase.Betting() || t.phase == PhaseRunTwice) && p.InHand()) {
		return nil, fmt.Errorf("%w: %s is committed to the hand", ErrHandInProgress, name)
	}
	delete(t.players, p.Seat)
	t.chipTotal -= p.Stack
	return p, nil
}

// AddChips tops up a stack between hands, capped at the max buy-in.
func (t *Table) AddChips(name string, amount int) error {
	p := t.PlayerByName(name)
	if p == nil {
		return fmt.Errorf("%w: %s", ErrNotSeated, name)
	}
	if t.phase.Betting() || t.phase == PhaseRunTwice {
		return ErrHandInProgress
	}
	if amount <= 0 || p.Stack+amount > t.settings.MaxBuyIn {
		return fmt.Errorf("%w: stack would exceed max buy-in %d", ErrInvalidBuyIn, t.settings.MaxBuyIn)
	}
	p.Stack += amount
	t.chipTotal += amount
	return nil
}

// SitOutToggle flips the sitting-out flag. Takes effect at the next
// hand; the current hand is unaffected.
func (t *Table) SitOutToggle(name string) (bool, error) {
	p := t.PlayerByName(name)
	if p == nil {
		return false, fmt.Errorf("%w: %s", ErrNotSeated, name)
	}
	p.SittingOut = !p.SittingOut
	return p.SittingOut, nil
}

// eligible reports whether a player can be dealt into a new hand.
func (t *Table) eligible(p *Player) bool {
	return p != nil && !p.SittingOut && p.Stack >= t.settings.BigBlind
}

// eligibleSeats lists, in seat order, the seats that can play the next
// hand.
func (t *Table) eligibleSeats() []int {
	var seats []int
	for s := 0; s < MaxSeats; s++ {
		if t.eligible(t.players[s]) {
			seats = append(seats, s)
		}
	}
	return seats
}

// RemoveBusted unseats every player with an empty stack and returns
// their names. Only meaningful between hands.
func (t *Table) RemoveBusted() []string {
	var names []string
	for s := 0; s < MaxSeats; s++ {
		if p := t.players[s]; p != nil && p.Stack == 0 && p.TotalBet == 0 {
			delete(t.players, s)
			names = append(names, p.Name)
		}
	}
	return names
}

// nextSeatWhere walks clockwise (ascending seat numbers, wrapping) from
// the seat after `from` and returns the first seat whose player
// satisfies pred, or -1.
func (t *Table) nextSeatWhere(from int, pred func(*Player) bool) int {
	for i := 1; i <= MaxSeats; i++ {
		seat := (from + i) % MaxSeats
		if p := t.players[seat]; p != nil && pred(p) {
			return seat
		}
	}
	return -1
}

// StartHand deals a new hand. Callers check LastResult/Phase before and
// broadcast afterwards.
func (t *Table) StartHand() error {
	if t.phase != PhaseWaiting && t.phase != PhaseHandOver {
		return ErrHandInProgress
	}
	eligible := t.eligibleSeats()
	if len(eligible) < 2 {
		t.phase = PhaseWaiting
		return fmt.Errorf("%w: need 2, have %d", ErrNotEnoughPlayers, len(eligible))
	}

	if t.dealerSeat < 0 {
		t.dealerSeat = eligible[0]
	} else {
		t.dealerSeat = t.nextSeatWhere(t.dealerSeat, t.eligible)
	}

	t.handNumber++
	t.community = nil
	t.actions = nil
	t.lastResult = nil
	t.runTwice = nil
	t.startStacks = make(map[string]int, len(t.players))
	for _, p := range t.players {
		p.resetForHand()
		t.startStacks[p.Name] = p.Stack
	}

	if t.rng != nil {
		t.deck = NewDeckWithRand(t.rng)
	} else {
		t.deck = NewDeck()
	}

	headsUp := len(eligible) == 2
	var sbSeat int
	if headsUp {
		sbSeat = t.dealerSeat
	} else {
		sbSeat = t.nextSeatWhere(t.dealerSeat, t.eligible)
	}
	bbSeat := t.nextSeatWhere(sbSeat, t.eligible)

	// Deal two cards to each player starting left of the dealer.
	t.dealtIn = nil
	seat := t.dealerSeat
	for range eligible {
		seat = t.nextSeatWhere(seat, t.eligible)
		cards, err := t.deck.Draw(2)
		if err != nil {
			return err
		}
		t.players[seat].HoleCards = cards
		t.dealtIn = append(t.dealtIn, t.players[seat].Name)
	}

	t.players[sbSeat].commit(t.settings.SmallBlind)
	t.players[bbSeat].commit(t.settings.BigBlind)
	t.currentBet = t.settings.BigBlind
	t.lastRaise = t.settings.BigBlind
	t.phase = PhasePreflop

	if headsUp {
		t.actingSeat = sbSeat
	} else {
		t.actingSeat = t.nextSeatWhere(bbSeat, func(p *Player) bool { return p.CanAct() })
	}
	return nil
}

// toAct reports whether the player still owes a decision this round.
func (t *Table) toAct(p *Player) bool {
	return p.CanAct() && (!p.HasActed || p.CurrentBet < t.currentBet)
}

func (t *Table) roundComplete() bool {
	for _, p := range t.players {
		if t.toAct(p) {
			return false
		}
	}
	return true
}

func (t *Table) inHandSeats() []int {
	var seats []int
	for s := 0; s < MaxSeats; s++ {
		if p := t.players[s]; p != nil && p.InHand() {
			seats = append(seats, s)
		}
	}
	return seats
}

// CallAmount returns the chips the named player would commit by
// calling right now.
func (t *Table) CallAmount(name string) int {
	p := t.PlayerByName(name)
	if p == nil || t.currentBet <= p.CurrentBet {
		return 0
	}
	owed := t.currentBet - p.CurrentBet
	if owed > p.Stack {
		owed = p.Stack
	}
	return owed
}

// ValidActions lists the actions available to the named player, empty
// unless it is their turn during a betting round.
func (t *Table) ValidActions(name string) []ValidAction {
	p := t.PlayerByName(name)
	if p == nil || !t.phase.Betting() || p.Seat != t.actingSeat || !p.CanAct() {
		return nil
	}
	actions := []ValidAction{{Action: string(ActionFold)}}
	if p.CurrentBet == t.currentBet {
		actions = append(actions, ValidAction{Action: string(ActionCheck)})
	} else if p.Stack > 0 {
		actions = append(actions, ValidAction{Action: string(ActionCall), Amount: t.CallAmount(name)})
	}
	maxTo := p.CurrentBet + p.Stack
	canRaise := !p.HasActed && maxTo > t.currentBet
	if canRaise {
		minTo := t.currentBet + t.lastRaise
		if minTo > maxTo {
			minTo = maxTo
		}
		actions = append(actions,
			ValidAction{Action: string(ActionRaise), Min: minTo, Max: maxTo},
			ValidAction{Action: string(ActionAllIn), Amount: p.Stack})
	} else if p.Stack > 0 && maxTo <= t.currentBet {
		// All-in for less than a call.
		actions = append(actions, ValidAction{Action: string(ActionAllIn), Amount: p.Stack})
	}
	return actions
}

// Apply validates and applies one action by the acting player, then
// advances the hand as far as it can without further input.
func (t *Table) Apply(name string, kind ActionType, amount int) error {
	p := t.PlayerByName(name)
	if p == nil {
		return fmt.Errorf("%w: %s", ErrNotSeated, name)
	}
	if !t.phase.Betting() {
		return fmt.Errorf("%w: no betting in phase %s", ErrInvalidAction, t.phase)
	}
	if p.Seat != t.actingSeat {
		return ErrNotYourTurn
	}

	recorded := amount
	switch kind {
	case ActionFold:
		p.Folded = true
		p.HasActed = true
		recorded = 0

	case ActionCheck:
		if p.CurrentBet != t.currentBet {
			return fmt.Errorf("%w: cannot check facing a bet of %d", ErrInvalidAction, t.currentBet)
		}
		p.HasActed = true
		recorded = 0

	case ActionCall:
		if t.currentBet <= p.CurrentBet {
			return fmt.Errorf("%w: nothing to call", ErrInvalidAction)
		}
		if p.Stack == 0 {
			return fmt.Errorf("%w: no chips", ErrInvalidAction)
		}
		recorded = p.commit(t.currentBet - p.CurrentBet)
		p.HasActed = true

	case ActionRaise:
		if err := t.applyRaise(p, amount); err != nil {
			return err
		}

	case ActionAllIn:
		if p.Stack == 0 {
			return fmt.Errorf("%w: no chips", ErrInvalidAction)
		}
		target := p.CurrentBet + p.Stack
		if target > t.currentBet {
			if err := t.applyRaise(p, target); err != nil {
				return err
			}
		} else {
			p.commit(p.Stack)
			p.HasActed = true
		}
		recorded = p.CurrentBet

	default:
		return fmt.Errorf("%w: unknown action %q", ErrInvalidAction, kind)
	}

	t.actions = append(t.actions, ActionRecord{
		PlayerName: name,
		Action:     string(kind),
		Amount:     recorded,
		Phase:      string(t.phase),
	})
	t.progress()
	return nil
}

// applyRaise raises the high bet to `to`. A raise below the minimum is
// legal only as an all-in; a short all-in neither resets other players'
// has-acted flags nor updates the last-raise size.
func (t *Table) applyRaise(p *Player, to int) error {
	if to <= t.currentBet {
		return fmt.Errorf("%w: raise to %d does not exceed current bet %d", ErrInvalidAction, to, t.currentBet)
	}
	if p.HasActed {
		return fmt.Errorf("%w: betting was not re-opened", ErrRaiseNotAllowed)
	}
	needed := to - p.CurrentBet
	if needed > p.Stack {
		return fmt.Errorf("%w: raise to %d needs %d chips, have %d", ErrInsufficientFund, to, needed, p.Stack)
	}
	increment := to - t.currentBet
	if increment < t.lastRaise && needed < p.Stack {
		return fmt.Errorf("%w: minimum raise is to %d", ErrBelowMinRaise, t.currentBet+t.lastRaise)
	}
	p.commit(needed)
	if increment >= t.lastRaise {
		t.lastRaise = increment
		for _, other := range t.players {
			if other != p && other.CanAct() {
				other.HasActed = false
			}
		}
	}
	t.currentBet = to
	p.HasActed = true
	return nil
}

// ForceFold folds a player regardless of turn order (leave or timeout),
// then advances the hand if that unblocked it.
func (t *Table) ForceFold(name string) error {
	p := t.PlayerByName(name)
	if p == nil {
		return fmt.Errorf("%w: %s", ErrNotSeated, name)
	}
	if !t.phase.Betting() || !p.InHand() {
		return nil
	}
	p.Folded = true
	p.HasActed = true
	t.actions = append(t.actions, ActionRecord{
		PlayerName: name, Action: string(ActionFold), Phase: string(t.phase),
	})
	// An out-of-turn fold must not advance past the current actor.
	if t.actingSeat == p.Seat || t.roundComplete() || len(t.inHandSeats()) <= 1 {
		t.progress()
	}
	return nil
}

// progress advances the hand after a mutation: passes the turn, closes
// the betting round, runs out all-in boards and settles finished hands.
func (t *Table) progress() {
	inHand := t.inHandSeats()
	if len(inHand) <= 1 {
		t.finishEarly(inHand)
		return
	}
	if !t.roundComplete() {
		next := t.nextSeatWhere(t.actingSeat, t.toAct)
		if next >= 0 {
			t.actingSeat = next
		}
		return
	}

	t.collectRound()
	actors := 0
	for _, seat := range inHand {
		if t.players[seat].CanAct() {
			actors++
		}
	}
	if t.phase == PhaseRiver {
		t.showdown()
		return
	}
	if actors <= 1 {
		t.runOut()
		return
	}
	t.advanceStreet()
}

func (t *Table) collectRound() {
	for _, p := range t.players {
		p.CurrentBet = 0
		p.HasActed = false
	}
	t.currentBet = 0
	t.lastRaise = t.settings.BigBlind
	t.actingSeat = -1
}

// advanceStreet deals the next street and hands the action to the first
// in-hand non-all-in seat left of the dealer.
func (t *Table) advanceStreet() {
	switch t.phase {
	case PhasePreflop:
		t.phase = PhaseFlop
		t.dealCommunity(3)
	case PhaseFlop:
		t.phase = PhaseTurn
		t.dealCommunity(1)
	case PhaseTurn:
		t.phase = PhaseRiver
		t.dealCommunity(1)
	}
	t.actingSeat = t.nextSeatWhere(t.dealerSeat, func(p *Player) bool { return p.CanAct() })
}

func (t *Table) dealCommunity(n int) {
	if err := t.deck.Burn(); err != nil {
		return
	}
	cards, err := t.deck.Draw(n)
	if err != nil {
		return
	}
	t.community = append(t.community, cards...)
}

// runOut finishes a hand whose betting is over before the river. With
// two or more contenders and an incomplete board the players first
// choose whether to run it twice.
func (t *Table) runOut() {
	if len(t.inHandSeats()) >= 2 && len(t.community) < 5 {
		t.beginRunTwiceChoice()
		return
	}
	t.dealRemaining()
	t.showdown()
}

func (t *Table) dealRemaining() {
	for len(t.community) < 5 {
		if len(t.community) == 0 {
			t.dealCommunity(3)
		} else {
			t.dealCommunity(1)
		}
	}
	t.actingSeat = -1
}

// ledger returns each seat's total contribution this hand and whether
// the seat is out of contention.
func (t *Table) ledger() (contribs map[int]int, folded map[int]bool) {
	contribs = map[int]int{}
	folded = map[int]bool{}
	for seat, p := range t.players {
		if p.TotalBet > 0 {
			contribs[seat] = p.TotalBet
			folded[seat] = !p.InHand()
		}
	}
	return contribs, folded
}

// refundUncalled returns any uncalled excess to its bettor and reports
// the adjusted contributions.
func (t *Table) refundUncalled(contribs map[int]int) map[int]int {
	seat, excess := UncalledBet(contribs)
	if excess > 0 {
		p := t.players[seat]
		p.Stack += excess
		p.TotalBet -= excess
		contribs[seat] -= excess
		if contribs[seat] == 0 {
			delete(contribs, seat)
		}
	}
	return contribs
}

// seatOrderFromDealer lists occupied seats clockwise starting left of
// the dealer. Used for the odd-chip tiebreak.
func (t *Table) seatOrderFromDealer() []int {
	var order []int
	for i := 1; i <= MaxSeats; i++ {
		seat := (t.dealerSeat + i) % MaxSeats
		if t.players[seat] != nil {
			order = append(order, seat)
		}
	}
	return order
}

// finishEarly awards everything to the last non-folded player without a
// showdown.
func (t *Table) finishEarly(inHand []int) {
	contribs, folded := t.ledger()
	contribs = t.refundUncalled(contribs)
	pots := BuildPots(contribs, folded)
	total := PotTotal(pots)

	outcome := &HandOutcome{
		HandNumber: t.handNumber,
		Pot:        total,
		Pots:       pots,
	}
	if len(inHand) == 1 {
		winner := t.players[inHand[0]]
		winner.Stack += total
		outcome.Winners = []string{winner.Name}
	}
	t.settle(outcome)
}

// showdown evaluates every remaining hand and distributes the pots.
func (t *Table) showdown() {
	t.phase = PhaseShowdown
	contribs, folded := t.ledger()
	contribs = t.refundUncalled(contribs)
	pots := BuildPots(contribs, folded)

	values := map[int]HandValue{}
	var results []PlayerOutcome
	for _, seat := range t.inHandSeats() {
		p := t.players[seat]
		v, err := BestHand(p.HoleCards, t.community)
		if err != nil {
			continue
		}
		values[seat] = v
		results = append(results, PlayerOutcome{PlayerName: p.Name, Description: v.Description})
	}

	winnings := AwardPots(pots, values, t.seatOrderFromDealer())
	for seat, amount := range winnings {
		t.players[seat].Stack += amount
	}

	t.settle(&HandOutcome{
		HandNumber: t.handNumber,
		Winners:    t.winnerNames(pots, values),
		Pot:        PotTotal(pots),
		Pots:       pots,
		Results:    results,
	})
}

// winnerNames is the union of every pot's winners, in seat order from
// the dealer.
func (t *Table) winnerNames(pots []Pot, values map[int]HandValue) []string {
	won := map[int]bool{}
	for _, pot := range pots {
		for _, seat := range potWinners(pot, values) {
			won[seat] = true
		}
	}
	var names []string
	for _, seat := range t.seatOrderFromDealer() {
		if won[seat] {
			names = append(names, t.players[seat].Name)
		}
	}
	return names
}

// settle closes out the hand: zeroes the betting ledger, fills in the
// outcome bookkeeping and parks the table in hand_over.
func (t *Table) settle(outcome *HandOutcome) {
	stacks := map[string]int{}
	profits := map[string]int{}
	for _, p := range t.players {
		p.CurrentBet = 0
		p.TotalBet = 0
		stacks[p.Name] = p.Stack
		if start, ok := t.startStacks[p.Name]; ok {
			profits[p.Name] = p.Stack - start
		}
	}
	outcome.Stacks = stacks
	outcome.Profits = profits
	outcome.Dealt = append([]string(nil), t.dealtIn...)
	outcome.Actions = t.actions
	t.lastResult = outcome
	t.phase = PhaseHandOver
	t.actingSeat = -1
	t.currentBet = 0
	t.runTwice = nil
}

// PositionName labels a seat for the current hand ("BTN", "SB", "BB",
// "UTG", ... "CO"). Empty for spectating or undealt seats.
func (t *Table) PositionName(seat int) string {
	p := t.players[seat]
	if p == nil || t.dealerSeat < 0 || len(p.HoleCards) == 0 {
		return ""
	}
	var dealt []int
	for i := 0; i < MaxSeats; i++ {
		s := (t.dealerSeat + i) % MaxSeats
		if q := t.players[s]; q != nil && len(q.HoleCards) > 0 {
			dealt = append(dealt, s)
		}
	}
	offset := -1
	for i, s := range dealt {
		if s == seat {
			offset = i
			break
		}
	}
	if offset < 0 {
		return ""
	}
	if len(dealt) == 2 {
		if offset == 0 {
			return "BTN/SB"
		}
		return "BB"
	}
	labels := []string{"BTN", "SB", "BB", "UTG", "UTG+1", "MP", "MP+1", "HJ", "CO"}
	return labels[offset]
}

// CheckInvariants verifies chip conservation and acting-seat
// consistency. A non-nil return wraps ErrInvariant and means the table
// state is corrupt.
func (t *Table) CheckInvariants() error {
	total := 0
	for _, p := range t.players {
		if p.Stack < 0 || p.CurrentBet < 0 || p.TotalBet < 0 {
			return fmt.Errorf("%w: negative ledger for %s", ErrInvariant, p.Name)
		}
		total += p.Stack + p.TotalBet
	}
	if total != t.chipTotal {
		return fmt.Errorf("%w: chips on table %d, expected %d", ErrInvariant, total, t.chipTotal)
	}
	if t.actingSeat >= 0 {
		p := t.players[t.actingSeat]
		if p == nil || !p.CanAct() {
			return fmt.Errorf("%w: acting seat %d cannot act", ErrInvariant, t.actingSeat)
		}
		if !t.phase.Betting() {
			return fmt.Errorf("%w: acting seat set in phase %s", ErrInvariant, t.phase)
		}
	}
	return nil
}
