package poker

// Player is a seated participant. Seat numbers are 0..MaxSeats-1 and
// sparse: an empty seat simply has no Player.
type Player struct {
	Name       string `json:"name"`
	Seat       int    `json:"seat"`
	Stack      int    `json:"stack"`
	HoleCards  []Card `json:"hole_cards,omitempty"`
	CurrentBet int    `json:"current_bet"`
	TotalBet   int    `json:"total_bet"`
	Folded     bool   `json:"folded"`
	AllIn      bool   `json:"all_in"`
	SittingOut bool   `json:"sitting_out"`
	HasActed   bool   `json:"has_acted"`
}

// InHand reports whether the player was dealt in and has not folded.
func (p *Player) InHand() bool {
	return len(p.HoleCards) > 0 && !p.Folded
}

// CanAct reports whether the player can still take betting actions.
func (p *Player) CanAct() bool {
	return p.InHand() && !p.AllIn
}

func (p *Player) resetForHand() {
	p.HoleCards = nil
	p.CurrentBet = 0
	p.TotalBet = 0
	p.Folded = false
	p.AllIn = false
	p.HasActed = false
}

// commit moves up to amount chips from the player's stack onto the
// table and returns how many actually moved. The player is all-in when
// the stack empties.
func (p *Player) commit(amount int) int {
	if amount > p.Stack {
		amount = p.Stack
	}
	p.Stack -= amount
	p.CurrentBet += amount
	p.TotalBet += amount
	if p.Stack == 0 {
		p.AllIn = true
	}
	return amount
}
