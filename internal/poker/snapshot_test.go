package poker

import (
	"testing"
)

func TestSnapshotRoundTripMidHand(t *testing.T) {
	t.Parallel()

	tbl := newTestTable(t, 21)
	seat(t, tbl, "alice", 0, 200)
	seat(t, tbl, "bob", 1, 200)
	seat(t, tbl, "carol", 2, 200)
	if err := tbl.StartHand(); err != nil {
		t.Fatal(err)
	}
	mustApply(t, tbl, "alice", ActionRaise, 6)
	mustApply(t, tbl, "bob", ActionCall, 0)

	data, err := tbl.MarshalSnapshot()
	if err != nil {
		t.Fatal(err)
	}
	restored, err := UnmarshalSnapshot(data)
	if err != nil {
		t.Fatal(err)
	}

	if restored.ID() != tbl.ID() {
		t.Errorf("id = %q, want %q", restored.ID(), tbl.ID())
	}
	if restored.Phase() != tbl.Phase() || restored.ActingSeat() != tbl.ActingSeat() {
		t.Errorf("phase/acting = %s/%d, want %s/%d",
			restored.Phase(), restored.ActingSeat(), tbl.Phase(), tbl.ActingSeat())
	}
	if restored.CurrentBet() != tbl.CurrentBet() || restored.LastRaise() != tbl.LastRaise() {
		t.Errorf("bets = %d/%d, want %d/%d",
			restored.CurrentBet(), restored.LastRaise(), tbl.CurrentBet(), tbl.LastRaise())
	}
	if restored.Pot() != tbl.Pot() {
		t.Errorf("pot = %d, want %d", restored.Pot(), tbl.Pot())
	}
	for _, orig := range tbl.Players() {
		p := restored.PlayerAt(orig.Seat)
		if p == nil || p.Name != orig.Name || p.Stack != orig.Stack {
			t.Fatalf("seat %d = %+v, want %+v", orig.Seat, p, orig)
		}
		if len(p.HoleCards) != len(orig.HoleCards) {
			t.Fatalf("%s hole cards lost in round trip", orig.Name)
		}
		for i := range orig.HoleCards {
			if p.HoleCards[i] != orig.HoleCards[i] {
				t.Fatalf("%s hole card %d = %s, want %s", orig.Name, i, p.HoleCards[i], orig.HoleCards[i])
			}
		}
	}

	// The restored hand plays out on the preserved deck.
	mustApply(t, restored, "carol", ActionCall, 0)
	if restored.Phase() != PhaseFlop {
		t.Fatalf("phase = %s, want flop", restored.Phase())
	}
	if len(restored.Community()) != 3 {
		t.Fatalf("community = %d cards, want 3", len(restored.Community()))
	}
}

func TestSnapshotDeckOrderPreserved(t *testing.T) {
	t.Parallel()

	tbl := newTestTable(t, 22)
	seat(t, tbl, "alice", 0, 100)
	seat(t, tbl, "bob", 1, 100)
	if err := tbl.StartHand(); err != nil {
		t.Fatal(err)
	}

	// Play two copies of the snapshot forward; both boards must match.
	data, err := tbl.MarshalSnapshot()
	if err != nil {
		t.Fatal(err)
	}
	a, err := UnmarshalSnapshot(data)
	if err != nil {
		t.Fatal(err)
	}
	b, err := UnmarshalSnapshot(data)
	if err != nil {
		t.Fatal(err)
	}
	for _, tbl2 := range []*Table{a, b} {
		mustApply(t, tbl2, "alice", ActionCall, 0)
		mustApply(t, tbl2, "bob", ActionCheck, 0)
	}
	ca, cb := a.Community(), b.Community()
	if len(ca) != 3 || len(cb) != 3 {
		t.Fatalf("boards = %d/%d cards, want 3/3", len(ca), len(cb))
	}
	for i := range ca {
		if ca[i] != cb[i] {
			t.Fatalf("board diverges at %d: %s vs %s", i, ca[i], cb[i])
		}
	}
}

func TestSnapshotRunTwiceVoteSurvives(t *testing.T) {
	t.Parallel()

	tbl := newTestTable(t, 23)
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

	data, err := tbl.MarshalSnapshot()
	if err != nil {
		t.Fatal(err)
	}
	restored, err := UnmarshalSnapshot(data)
	if err != nil {
		t.Fatal(err)
	}
	if restored.Phase() != PhaseRunTwice {
		t.Fatalf("phase = %s, want waiting_run_twice", restored.Phase())
	}
	waiting := restored.RunTwiceWaitingFor()
	if len(waiting) != 1 || waiting[0] != "bob" {
		t.Fatalf("waiting for %v, want [bob]", waiting)
	}
	if err := restored.RunTwiceChoice("bob", false); err != nil {
		t.Fatal(err)
	}
	if restored.Phase() != PhaseHandOver {
		t.Fatalf("phase = %s, want hand_over", restored.Phase())
	}
	if err := restored.CheckInvariants(); err != nil {
		t.Fatal(err)
	}
}

func TestSnapshotRejectsUnknownVersion(t *testing.T) {
	t.Parallel()

	tbl := newTestTable(t, 24)
	seat(t, tbl, "alice", 0, 100)
	s := tbl.Snapshot()
	s.SchemaVersion = 99
	if _, err := FromSnapshot(s); err == nil {
		t.Fatal("expected version mismatch error")
	}
}
