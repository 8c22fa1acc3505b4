package poker

import (
	"errors"
	"testing"

	"github.com/berryhq/berrypoker/internal/randutil"
)

func testSettings() Settings {
	return Settings{SmallBlind: 1, BigBlind: 2, MinBuyIn: 10, MaxBuyIn: 500}
}

func newTestTable(t *testing.T, seed int64) *Table {
	t.Helper()
	tbl, err := NewTable("room1", testSettings(), WithRand(randutil.New(seed)))
	if err != nil {
		t.Fatal(err)
	}
	return tbl
}

func seat(t *testing.T, tbl *Table, name string, seatNum, buyIn int) *Player {
	t.Helper()
	p, err := tbl.AddPlayer(name, seatNum, buyIn)
	if err != nil {
		t.Fatalf("AddPlayer(%s): %v", name, err)
	}
	return p
}

func mustApply(t *testing.T, tbl *Table, name string, kind ActionType, amount int) {
	t.Helper()
	if err := tbl.Apply(name, kind, amount); err != nil {
		t.Fatalf("%s %s %d: %v", name, kind, amount, err)
	}
	if err := tbl.CheckInvariants(); err != nil {
		t.Fatalf("after %s %s: %v", name, kind, err)
	}
}

func hasAction(actions []ValidAction, kind ActionType) (ValidAction, bool) {
	for _, a := range actions {
		if a.Action == string(kind) {
			return a, true
		}
	}
	return ValidAction{}, false
}

func TestAddPlayerValidation(t *testing.T) {
	t.Parallel()

	tbl := newTestTable(t, 1)
	seat(t, tbl, "alice", 0, 100)

	if _, err := tbl.AddPlayer("alice", 3, 100); !errors.Is(err, ErrNameTaken) {
		t.Errorf("duplicate name: %v", err)
	}
	if _, err := tbl.AddPlayer("bob", 0, 100); !errors.Is(err, ErrSeatTaken) {
		t.Errorf("occupied seat: %v", err)
	}
	if _, err := tbl.AddPlayer("bob", 12, 100); !errors.Is(err, ErrInvalidSeat) {
		t.Errorf("out of range seat: %v", err)
	}
	if _, err := tbl.AddPlayer("bob", 1, 5); !errors.Is(err, ErrInvalidBuyIn) {
		t.Errorf("tiny buy-in: %v", err)
	}
	if _, err := tbl.AddPlayer("bob", 1, 9999); !errors.Is(err, ErrInvalidBuyIn) {
		t.Errorf("huge buy-in: %v", err)
	}

	p, err := tbl.AddPlayer("bob", -1, 100)
	if err != nil {
		t.Fatal(err)
	}
	if p.Seat != 1 {
		t.Errorf("auto seat = %d, want 1", p.Seat)
	}
}

func TestStartHandNeedsTwoPlayers(t *testing.T) {
	t.Parallel()

	tbl := newTestTable(t, 1)
	seat(t, tbl, "alice", 0, 100)
	if err := tbl.StartHand(); !errors.Is(err, ErrNotEnoughPlayers) {
		t.Fatalf("StartHand with one player: %v", err)
	}
	if tbl.Phase() != PhaseWaiting {
		t.Fatalf("phase = %s, want waiting", tbl.Phase())
	}
}

func TestStartHandBlindsAndOrder(t *testing.T) {
	t.Parallel()

	tbl := newTestTable(t, 1)
	seat(t, tbl, "alice", 0, 100)
	seat(t, tbl, "bob", 1, 100)
	seat(t, tbl, "carol", 2, 100)
	if err := tbl.StartHand(); err != nil {
		t.Fatal(err)
	}

	if tbl.DealerSeat() != 0 {
		t.Errorf("dealer = %d, want 0", tbl.DealerSeat())
	}
	if got := tbl.PlayerAt(1).TotalBet; got != 1 {
		t.Errorf("small blind posted %d, want 1", got)
	}
	if got := tbl.PlayerAt(2).TotalBet; got != 2 {
		t.Errorf("big blind posted %d, want 2", got)
	}
	if tbl.ActingSeat() != 0 {
		t.Errorf("first to act = %d, want 0", tbl.ActingSeat())
	}
	if tbl.Phase() != PhasePreflop {
		t.Errorf("phase = %s, want preflop", tbl.Phase())
	}
	for _, p := range tbl.Players() {
		if len(p.HoleCards) != 2 {
			t.Errorf("%s dealt %d cards", p.Name, len(p.HoleCards))
		}
	}
	if err := tbl.CheckInvariants(); err != nil {
		t.Fatal(err)
	}
}

func TestMinRaiseTracking(t *testing.T) {
	t.Parallel()

	tbl := newTestTable(t, 2)
	seat(t, tbl, "alice", 0, 200)
	seat(t, tbl, "bob", 1, 200)
	seat(t, tbl, "carol", 2, 200)
	if err := tbl.StartHand(); err != nil {
		t.Fatal(err)
	}

	// Raise to 6 over the 2 blind is a 4 increment; the next raise must
	// add at least 4 more.
	mustApply(t, tbl, "alice", ActionRaise, 6)
	if tbl.LastRaise() != 4 {
		t.Fatalf("lastRaise = %d, want 4", tbl.LastRaise())
	}

	raise, ok := hasAction(tbl.ValidActions("bob"), ActionRaise)
	if !ok {
		t.Fatal("bob cannot raise")
	}
	if raise.Min != 10 {
		t.Fatalf("raise min = %d, want 10", raise.Min)
	}
	if err := tbl.Apply("bob", ActionRaise, 8); !errors.Is(err, ErrBelowMinRaise) {
		t.Fatalf("raise to 8: %v", err)
	}
	mustApply(t, tbl, "bob", ActionRaise, 10)
	if tbl.LastRaise() != 4 {
		t.Fatalf("lastRaise after exact min raise = %d, want 4", tbl.LastRaise())
	}
}

func TestBigBlindOption(t *testing.T) {
	t.Parallel()

	tbl := newTestTable(t, 3)
	seat(t, tbl, "alice", 0, 200)
	seat(t, tbl, "bob", 1, 200)
	seat(t, tbl, "carol", 2, 200)
	if err := tbl.StartHand(); err != nil {
		t.Fatal(err)
	}

	mustApply(t, tbl, "alice", ActionCall, 0)
	mustApply(t, tbl, "bob", ActionCall, 0)

	// Everyone has matched the blind, but the big blind never acted and
	// still holds the option.
	if tbl.Phase() != PhasePreflop {
		t.Fatalf("phase = %s, want preflop", tbl.Phase())
	}
	if tbl.ActingSeat() != 2 {
		t.Fatalf("acting seat = %d, want big blind", tbl.ActingSeat())
	}
	actions := tbl.ValidActions("carol")
	if _, ok := hasAction(actions, ActionCheck); !ok {
		t.Errorf("big blind cannot check: %v", actions)
	}
	raise, ok := hasAction(actions, ActionRaise)
	if !ok || raise.Min != 4 {
		t.Errorf("big blind raise option = %+v, ok=%v, want min 4", raise, ok)
	}

	mustApply(t, tbl, "carol", ActionCheck, 0)
	if tbl.Phase() != PhaseFlop {
		t.Fatalf("phase = %s, want flop", tbl.Phase())
	}
	if len(tbl.Community()) != 3 {
		t.Fatalf("community = %d cards, want 3", len(tbl.Community()))
	}
}

func TestShortAllInDoesNotReopenBetting(t *testing.T) {
	t.Parallel()

	tbl := newTestTable(t, 4)
	seat(t, tbl, "alice", 0, 200)
	seat(t, tbl, "bob", 1, 27)
	seat(t, tbl, "carol", 2, 17)
	if err := tbl.StartHand(); err != nil {
		t.Fatal(err)
	}

	mustApply(t, tbl, "alice", ActionCall, 0)
	mustApply(t, tbl, "bob", ActionCall, 0)
	mustApply(t, tbl, "carol", ActionCheck, 0)
	if tbl.Phase() != PhaseFlop {
		t.Fatalf("phase = %s, want flop", tbl.Phase())
	}

	// Bob bets 10; carol's all-in to 15 is a short raise of 5, below the
	// 10 minimum, so it does not reopen betting for bob.
	mustApply(t, tbl, "bob", ActionRaise, 10)
	mustApply(t, tbl, "carol", ActionAllIn, 0)
	if tbl.CurrentBet() != 15 {
		t.Fatalf("currentBet = %d, want 15", tbl.CurrentBet())
	}
	if tbl.LastRaise() != 10 {
		t.Fatalf("lastRaise = %d, want 10 after short all-in", tbl.LastRaise())
	}

	// Alice never acted this street, so she may still raise.
	if _, ok := hasAction(tbl.ValidActions("alice"), ActionRaise); !ok {
		t.Fatal("alice should be able to raise over the short all-in")
	}
	mustApply(t, tbl, "alice", ActionCall, 0)

	// Bob faces 5 more but betting was not reopened for him.
	actions := tbl.ValidActions("bob")
	if _, ok := hasAction(actions, ActionRaise); ok {
		t.Fatalf("bob can raise after short all-in: %v", actions)
	}
	call, ok := hasAction(actions, ActionCall)
	if !ok || call.Amount != 5 {
		t.Fatalf("bob call option = %+v, ok=%v, want amount 5", call, ok)
	}
	if err := tbl.Apply("bob", ActionRaise, 30); !errors.Is(err, ErrRaiseNotAllowed) {
		t.Fatalf("bob raise: %v", err)
	}
	mustApply(t, tbl, "bob", ActionCall, 0)
	if tbl.Phase() != PhaseTurn {
		t.Fatalf("phase = %s, want turn", tbl.Phase())
	}
}

func TestFullRaiseReopensBetting(t *testing.T) {
	t.Parallel()

	tbl := newTestTable(t, 5)
	seat(t, tbl, "alice", 0, 200)
	seat(t, tbl, "bob", 1, 200)
	seat(t, tbl, "carol", 2, 200)
	if err := tbl.StartHand(); err != nil {
		t.Fatal(err)
	}

	mustApply(t, tbl, "alice", ActionRaise, 6)
	mustApply(t, tbl, "bob", ActionRaise, 12)

	// Bob's full raise reopens the action: alice may raise again.
	mustApply(t, tbl, "carol", ActionFold, 0)
	if _, ok := hasAction(tbl.ValidActions("alice"), ActionRaise); !ok {
		t.Fatal("alice should be able to reraise after a full raise")
	}
}

func TestOutOfTurnActionRejected(t *testing.T) {
	t.Parallel()

	tbl := newTestTable(t, 6)
	seat(t, tbl, "alice", 0, 100)
	seat(t, tbl, "bob", 1, 100)
	seat(t, tbl, "carol", 2, 100)
	if err := tbl.StartHand(); err != nil {
		t.Fatal(err)
	}

	if err := tbl.Apply("bob", ActionCall, 0); !errors.Is(err, ErrNotYourTurn) {
		t.Fatalf("out of turn: %v", err)
	}
	if err := tbl.Apply("alice", ActionCheck, 0); !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("check facing a bet: %v", err)
	}
}

func TestFoldToWinRefundsUncalled(t *testing.T) {
	t.Parallel()

	tbl := newTestTable(t, 7)
	seat(t, tbl, "alice", 0, 200)
	seat(t, tbl, "bob", 1, 200)
	if err := tbl.StartHand(); err != nil {
		t.Fatal(err)
	}

	// Heads-up: dealer posts the small blind and acts first.
	if tbl.ActingSeat() != 0 {
		t.Fatalf("acting seat = %d, want dealer", tbl.ActingSeat())
	}
	mustApply(t, tbl, "alice", ActionRaise, 10)
	mustApply(t, tbl, "bob", ActionFold, 0)

	if tbl.Phase() != PhaseHandOver {
		t.Fatalf("phase = %s, want hand_over", tbl.Phase())
	}
	res := tbl.LastResult()
	if res == nil {
		t.Fatal("no hand result")
	}
	// The 8 over the big blind was never called and comes back; alice
	// wins only the 4 that was actually contested.
	if res.Pot != 4 {
		t.Errorf("pot = %d, want 4", res.Pot)
	}
	if len(res.Winners) != 1 || res.Winners[0] != "alice" {
		t.Errorf("winners = %v, want [alice]", res.Winners)
	}
	if got := tbl.PlayerByName("alice").Stack; got != 202 {
		t.Errorf("alice stack = %d, want 202", got)
	}
	if got := tbl.PlayerByName("bob").Stack; got != 198 {
		t.Errorf("bob stack = %d, want 198", got)
	}
	if res.Profits["alice"] != 2 || res.Profits["bob"] != -2 {
		t.Errorf("profits = %v", res.Profits)
	}
}

func TestAllInRunoutPromptsRunTwice(t *testing.T) {
	t.Parallel()

	tbl := newTestTable(t, 8)
	seat(t, tbl, "alice", 0, 100)
	seat(t, tbl, "bob", 1, 100)
	if err := tbl.StartHand(); err != nil {
		t.Fatal(err)
	}

	mustApply(t, tbl, "alice", ActionAllIn, 0)
	mustApply(t, tbl, "bob", ActionAllIn, 0)

	if tbl.Phase() != PhaseRunTwice {
		t.Fatalf("phase = %s, want waiting_run_twice", tbl.Phase())
	}
	waiting := tbl.RunTwiceWaitingFor()
	if len(waiting) != 2 {
		t.Fatalf("waiting for %v, want both players", waiting)
	}

	if err := tbl.RunTwiceChoice("alice", true); err != nil {
		t.Fatal(err)
	}
	if tbl.Phase() != PhaseRunTwice {
		t.Fatalf("phase advanced before all votes: %s", tbl.Phase())
	}
	// One no vote means a single board.
	if err := tbl.RunTwiceChoice("bob", false); err != nil {
		t.Fatal(err)
	}

	if tbl.Phase() != PhaseHandOver {
		t.Fatalf("phase = %s, want hand_over", tbl.Phase())
	}
	if len(tbl.Community()) != 5 {
		t.Fatalf("board has %d cards, want 5", len(tbl.Community()))
	}
	res := tbl.LastResult()
	if res == nil || res.RunTwice {
		t.Fatalf("result = %+v, want single run", res)
	}
	total := 0
	for _, p := range tbl.Players() {
		total += p.Stack
	}
	if total != 200 {
		t.Fatalf("chips on table = %d, want 200", total)
	}
	if err := tbl.CheckInvariants(); err != nil {
		t.Fatal(err)
	}
}

func TestRunItTwiceSplitsPot(t *testing.T) {
	t.Parallel()

	tbl := newTestTable(t, 9)
	seat(t, tbl, "alice", 0, 100)
	seat(t, tbl, "bob", 1, 100)
	if err := tbl.StartHand(); err != nil {
		t.Fatal(err)
	}

	mustApply(t, tbl, "alice", ActionAllIn, 0)
	mustApply(t, tbl, "bob", ActionAllIn, 0)
	if err := tbl.RunTwiceChoice("alice", true); err != nil {
		t.Fatal(err)
	}
	if err := tbl.RunTwiceChoice("bob", true); err != nil {
		t.Fatal(err)
	}

	res := tbl.LastResult()
	if res == nil || !res.RunTwice {
		t.Fatalf("result = %+v, want run twice", res)
	}
	if res.FirstRun == nil || res.SecondRun == nil {
		t.Fatal("missing run outcomes")
	}
	if len(res.FirstRun.Board) != 5 || len(res.SecondRun.Board) != 5 {
		t.Fatalf("boards = %d/%d cards, want 5/5", len(res.FirstRun.Board), len(res.SecondRun.Board))
	}
	if len(res.FirstRun.Winners) == 0 || len(res.SecondRun.Winners) == 0 {
		t.Fatal("a run has no winners")
	}
	if res.Pot != 200 {
		t.Fatalf("pot = %d, want 200", res.Pot)
	}
	total := 0
	for _, p := range tbl.Players() {
		total += p.Stack
	}
	if total != 200 {
		t.Fatalf("chips on table = %d, want 200", total)
	}
	if err := tbl.CheckInvariants(); err != nil {
		t.Fatal(err)
	}
}

func TestRunTwiceChoiceGuards(t *testing.T) {
	t.Parallel()

	tbl := newTestTable(t, 10)
	seat(t, tbl, "alice", 0, 100)
	seat(t, tbl, "bob", 1, 100)
	if err := tbl.RunTwiceChoice("alice", true); !errors.Is(err, ErrNoChoicePending) {
		t.Fatalf("choice with no vote pending: %v", err)
	}

	if err := tbl.StartHand(); err != nil {
		t.Fatal(err)
	}
	mustApply(t, tbl, "alice", ActionAllIn, 0)
	mustApply(t, tbl, "bob", ActionAllIn, 0)
	if err := tbl.RunTwiceChoice("mallory", true); !errors.Is(err, ErrNoChoicePending) {
		t.Fatalf("outsider vote: %v", err)
	}
}

func TestBustedPlayersRemovedBetweenHands(t *testing.T) {
	t.Parallel()

	tbl := newTestTable(t, 11)
	seat(t, tbl, "alice", 0, 100)
	seat(t, tbl, "bob", 1, 100)
	if err := tbl.StartHand(); err != nil {
		t.Fatal(err)
	}
	mustApply(t, tbl, "alice", ActionAllIn, 0)
	mustApply(t, tbl, "bob", ActionAllIn, 0)
	if err := tbl.RunTwiceChoice("alice", false); err != nil {
		t.Fatal(err)
	}
	if err := tbl.RunTwiceChoice("bob", false); err != nil {
		t.Fatal(err)
	}

	var busted []string
	for _, p := range tbl.Players() {
		if p.Stack == 0 {
			busted = append(busted, p.Name)
		}
	}
	removed := tbl.RemoveBusted()
	if len(removed) != len(busted) {
		t.Fatalf("RemoveBusted = %v, want %v", removed, busted)
	}
	for _, name := range removed {
		if tbl.PlayerByName(name) != nil {
			t.Fatalf("%s still seated after bust", name)
		}
	}
	if err := tbl.CheckInvariants(); err != nil {
		t.Fatal(err)
	}
}

func TestSitOutSkipsDeal(t *testing.T) {
	t.Parallel()

	tbl := newTestTable(t, 12)
	seat(t, tbl, "alice", 0, 100)
	seat(t, tbl, "bob", 1, 100)
	seat(t, tbl, "carol", 2, 100)

	out, err := tbl.SitOutToggle("bob")
	if err != nil || !out {
		t.Fatalf("SitOutToggle = %v, %v", out, err)
	}
	if err := tbl.StartHand(); err != nil {
		t.Fatal(err)
	}
	if len(tbl.PlayerByName("bob").HoleCards) != 0 {
		t.Fatal("sitting-out player was dealt in")
	}
	if tbl.PositionName(0) != "BTN/SB" || tbl.PositionName(2) != "BB" {
		t.Fatalf("positions = %q/%q, want heads-up labels", tbl.PositionName(0), tbl.PositionName(2))
	}
	if tbl.PositionName(1) != "" {
		t.Fatalf("sitting-out position = %q, want empty", tbl.PositionName(1))
	}
}

func TestPositionNamesThreeHanded(t *testing.T) {
	t.Parallel()

	tbl := newTestTable(t, 13)
	seat(t, tbl, "alice", 0, 100)
	seat(t, tbl, "bob", 1, 100)
	seat(t, tbl, "carol", 2, 100)
	if err := tbl.StartHand(); err != nil {
		t.Fatal(err)
	}
	want := map[int]string{0: "BTN", 1: "SB", 2: "BB"}
	for s, label := range want {
		if got := tbl.PositionName(s); got != label {
			t.Errorf("PositionName(%d) = %q, want %q", s, got, label)
		}
	}
}

func TestAddChipsOnlyBetweenHands(t *testing.T) {
	t.Parallel()

	tbl := newTestTable(t, 14)
	seat(t, tbl, "alice", 0, 100)
	seat(t, tbl, "bob", 1, 100)
	if err := tbl.StartHand(); err != nil {
		t.Fatal(err)
	}
	if err := tbl.AddChips("alice", 50); !errors.Is(err, ErrHandInProgress) {
		t.Fatalf("mid-hand add: %v", err)
	}

	mustApply(t, tbl, "alice", ActionFold, 0)
	if err := tbl.AddChips("bob", 50); err != nil {
		t.Fatal(err)
	}
	if got := tbl.PlayerByName("bob").Stack; got != 151 {
		t.Fatalf("bob stack = %d, want 151", got)
	}
	if err := tbl.AddChips("bob", 9999); !errors.Is(err, ErrInvalidBuyIn) {
		t.Fatalf("over max: %v", err)
	}
	if err := tbl.CheckInvariants(); err != nil {
		t.Fatal(err)
	}
}

func TestRemovePlayerGuards(t *testing.T) {
	t.Parallel()

	tbl := newTestTable(t, 15)
	seat(t, tbl, "alice", 0, 100)
	seat(t, tbl, "bob", 1, 100)
	if err := tbl.StartHand(); err != nil {
		t.Fatal(err)
	}
	if _, err := tbl.RemovePlayer("alice"); !errors.Is(err, ErrHandInProgress) {
		t.Fatalf("remove mid-hand: %v", err)
	}
	mustApply(t, tbl, "alice", ActionFold, 0)
	if _, err := tbl.RemovePlayer("alice"); err != nil {
		t.Fatalf("remove after hand: %v", err)
	}
	if _, err := tbl.RemovePlayer("ghost"); !errors.Is(err, ErrNotSeated) {
		t.Fatalf("remove unknown: %v", err)
	}
	if err := tbl.CheckInvariants(); err != nil {
		t.Fatal(err)
	}
}

func TestForceFoldOutOfTurnKeepsActor(t *testing.T) {
	t.Parallel()

	tbl := newTestTable(t, 16)
	seat(t, tbl, "alice", 0, 100)
	seat(t, tbl, "bob", 1, 100)
	seat(t, tbl, "carol", 2, 100)
	if err := tbl.StartHand(); err != nil {
		t.Fatal(err)
	}

	// Carol leaves while it is alice's turn; alice keeps the action.
	if err := tbl.ForceFold("carol"); err != nil {
		t.Fatal(err)
	}
	if tbl.ActingSeat() != 0 {
		t.Fatalf("acting seat = %d, want 0", tbl.ActingSeat())
	}
	mustApply(t, tbl, "alice", ActionCall, 0)
	// Bob completes and the round ends; carol is out.
	mustApply(t, tbl, "bob", ActionCall, 0)
	if tbl.Phase() != PhaseFlop {
		t.Fatalf("phase = %s, want flop", tbl.Phase())
	}
}

func TestDealerButtonRotates(t *testing.T) {
	t.Parallel()

	tbl := newTestTable(t, 17)
	seat(t, tbl, "alice", 0, 100)
	seat(t, tbl, "bob", 1, 100)
	seat(t, tbl, "carol", 2, 100)

	if err := tbl.StartHand(); err != nil {
		t.Fatal(err)
	}
	if tbl.DealerSeat() != 0 {
		t.Fatalf("first dealer = %d, want 0", tbl.DealerSeat())
	}
	mustApply(t, tbl, "alice", ActionFold, 0)
	mustApply(t, tbl, "bob", ActionFold, 0)

	if err := tbl.StartHand(); err != nil {
		t.Fatal(err)
	}
	if tbl.DealerSeat() != 1 {
		t.Fatalf("second dealer = %d, want 1", tbl.DealerSeat())
	}
	if tbl.HandNumber() != 2 {
		t.Fatalf("hand number = %d, want 2", tbl.HandNumber())
	}
}
