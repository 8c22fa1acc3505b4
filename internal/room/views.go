package room

import (
	"github.com/berryhq/berrypoker/internal/poker"
	"github.com/berryhq/berrypoker/internal/protocol"
)

// Info is the room summary served by GET /api/rooms/{id}.
type Info struct {
	RoomID     string         `json:"room_id"`
	Settings   poker.Settings `json:"settings"`
	Phase      string         `json:"phase"`
	HandNumber int            `json:"hand_number"`
	Seats      []SeatInfo     `json:"seats"`
	Spectators int            `json:"spectators"`
}

// SeatInfo is one occupied seat in a room summary.
type SeatInfo struct {
	Seat       int    `json:"seat"`
	PlayerName string `json:"player_name"`
	Stack      int    `json:"stack"`
	SittingOut bool   `json:"sitting_out"`
}

func (r *Room) buildInfo() *Info {
	info := &Info{
		RoomID:     r.id,
		Settings:   r.table.Settings(),
		Phase:      string(r.table.Phase()),
		HandNumber: r.table.HandNumber(),
		Spectators: len(r.sessions) - len(r.byName),
	}
	if info.Spectators < 0 {
		info.Spectators = 0
	}
	for _, p := range r.table.Players() {
		info.Seats = append(info.Seats, SeatInfo{
			Seat: p.Seat, PlayerName: p.Name, Stack: p.Stack, SittingOut: p.SittingOut,
		})
	}
	return info
}

// stateFor renders the game_state envelope for one recipient. Hole
// cards are private until showdown; valid actions go only to the
// acting player.
func (r *Room) stateFor(viewer string) *protocol.Message {
	t := r.table
	settings := t.Settings()
	phase := t.Phase()

	// Cards flip face up once a showdown actually happened; a hand won
	// by folding everyone out reveals nothing.
	reveal := phase == poker.PhaseShowdown ||
		(phase == poker.PhaseHandOver && t.LastResult() != nil && len(t.LastResult().Results) > 0)

	state := protocol.GameState{
		RoomID:         r.id,
		SmallBlind:     settings.SmallBlind,
		BigBlind:       settings.BigBlind,
		MinBuyIn:       settings.MinBuyIn,
		MaxBuyIn:       settings.MaxBuyIn,
		Phase:          string(phase),
		CommunityCards: t.Community(),
		Pot:            t.Pot(),
		CurrentBet:     t.CurrentBet(),
		MinRaise:       t.LastRaise(),
		HandNumber:     t.HandNumber(),
	}
	if seat := t.ActingSeat(); seat >= 0 {
		state.CurrentPlayerSeat = &seat
	}
	if seat := t.DealerSeat(); seat >= 0 {
		state.DealerSeat = &seat
	}
	if phase == poker.PhaseHandOver {
		state.LastHandResult = t.LastResult()
	}

	for _, p := range t.Players() {
		view := protocol.PlayerView{
			Name:       p.Name,
			Seat:       p.Seat,
			Stack:      p.Stack,
			CurrentBet: p.CurrentBet,
			TotalBet:   p.TotalBet,
			Folded:     p.Folded,
			AllIn:      p.AllIn,
			SittingOut: p.SittingOut,
			Position:   t.PositionName(p.Seat),
			HasCards:   len(p.HoleCards) > 0,
		}
		if p.Name == viewer || (reveal && p.InHand()) {
			view.HoleCards = append([]poker.Card(nil), p.HoleCards...)
		}
		state.Players = append(state.Players, view)
	}

	if viewer != "" {
		if p := t.PlayerByName(viewer); p != nil {
			state.YourCards = append([]poker.Card(nil), p.HoleCards...)
			if p.Seat == t.ActingSeat() {
				state.ValidActions = t.ValidActions(viewer)
				state.CallAmount = t.CallAmount(viewer)
			}
		}
	}

	return protocol.MustNew(protocol.TypeGameState, state)
}
