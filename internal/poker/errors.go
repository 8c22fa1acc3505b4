package poker

import "errors"

// Policy errors: expected rule violations reported back to the acting
// client. Anything not wrapping one of these is treated as an internal
// failure by the room engine.
var (
	ErrSeatTaken        = errors.New("seat is taken")
	ErrNameTaken        = errors.New("name already seated")
	ErrNotSeated        = errors.New("player not seated")
	ErrInvalidSeat      = errors.New("invalid seat")
	ErrInvalidBuyIn     = errors.New("buy-in out of range")
	ErrNotYourTurn      = errors.New("not your turn")
	ErrInvalidAction    = errors.New("invalid action")
	ErrBelowMinRaise    = errors.New("raise below minimum")
	ErrRaiseNotAllowed  = errors.New("raising is not allowed")
	ErrInsufficientFund = errors.New("insufficient chips")
	ErrHandInProgress   = errors.New("hand in progress")
	ErrNotEnoughPlayers = errors.New("not enough players")
	ErrNoChoicePending  = errors.New("no run-it-twice choice pending")
)

// ErrInvariant marks chip-conservation or state-machine violations.
// Unlike policy errors it is fatal: the room engine must stop the room
// rather than continue from corrupt state.
var ErrInvariant = errors.New("table invariant violated")

// IsPolicy reports whether err is a rule violation safe to report to
// the client and play on.
func IsPolicy(err error) bool {
	for _, policy := range []error{
		ErrSeatTaken, ErrNameTaken, ErrNotSeated, ErrInvalidSeat,
		ErrInvalidBuyIn, ErrNotYourTurn, ErrInvalidAction,
		ErrBelowMinRaise, ErrRaiseNotAllowed, ErrInsufficientFund,
		ErrHandInProgress, ErrNotEnoughPlayers, ErrNoChoicePending,
	} {
		if errors.Is(err, policy) {
			return true
		}
	}
	return false
}
