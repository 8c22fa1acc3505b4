package poker

import "sort"

// Pot is a main or side pot: an amount of chips plus the seats that can
// win it. Eligible seats are sorted ascending.
type Pot struct {
	Amount   int   `json:"amount"`
	Eligible []int `json:"eligible_seats"`
}

// UncalledBet finds the single seat, if any, whose total contribution
// exceeds every other seat's, and the excess over the second-highest
// contribution. That excess was never called and must be returned to
// the bettor before pots are built.
func UncalledBet(contribs map[int]int) (seat, excess int) {
	top, second := 0, 0
	topSeat := -1
	for s, c := range contribs {
		if c > top {
			second = top
			top, topSeat = c, s
		} else if c > second {
			second = c
		}
	}
	if topSeat >= 0 && top > second {
		return topSeat, top - second
	}
	return -1, 0
}

// BuildPots slices total contributions into a main pot and side pots.
// Levels are the sorted distinct contribution amounts; each level's pot
// collects the slice between it and the previous level from every seat
// that contributed at least that much, and is winnable by the
// non-folded seats among them. Call UncalledBet first; this function
// assumes the top contribution is called.
func BuildPots(contribs map[int]int, folded map[int]bool) []Pot {
	levels := make([]int, 0, len(contribs))
	seen := map[int]bool{}
	for _, c := range contribs {
		if c > 0 && !seen[c] {
			seen[c] = true
			levels = append(levels, c)
		}
	}
	sort.Ints(levels)

	var pots []Pot
	prev := 0
	carry := 0
	for _, level := range levels {
		amount := carry
		var eligible []int
		for seat, c := range contribs {
			if c >= level {
				amount += level - prev
				if !folded[seat] {
					eligible = append(eligible, seat)
				}
			}
		}
		prev = level
		if len(eligible) == 0 {
			// Every contributor at this level folded; the chips roll
			// into the next pot up.
			carry = amount
			continue
		}
		carry = 0
		sort.Ints(eligible)
		pots = append(pots, Pot{Amount: amount, Eligible: eligible})
	}
	if carry > 0 && len(pots) > 0 {
		pots[len(pots)-1].Amount += carry
	}
	return pots
}

// PotTotal sums the pots.
func PotTotal(pots []Pot) int {
	total := 0
	for _, p := range pots {
		total += p.Amount
	}
	return total
}

// AwardPots splits every pot among its best eligible hands. values maps
// seat to showdown hand value for every non-folded seat; seatOrder is
// the odd-chip priority, clockwise starting left of the dealer. The
// result maps seat to chips won.
func AwardPots(pots []Pot, values map[int]HandValue, seatOrder []int) map[int]int {
	winnings := map[int]int{}
	for _, pot := range pots {
		winners := potWinners(pot, values)
		if len(winners) == 0 {
			continue
		}
		share := pot.Amount / len(winners)
		remainder := pot.Amount % len(winners)
		isWinner := map[int]bool{}
		for _, s := range winners {
			winnings[s] += share
			isWinner[s] = true
		}
		for _, s := range seatOrder {
			if remainder == 0 {
				break
			}
			if isWinner[s] {
				winnings[s]++
				remainder--
			}
		}
	}
	return winnings
}

// potWinners returns the eligible seats holding the strongest hand,
// sorted ascending.
func potWinners(pot Pot, values map[int]HandValue) []int {
	var winners []int
	var best HandValue
	for _, seat := range pot.Eligible {
		v, ok := values[seat]
		if !ok {
			continue
		}
		if len(winners) == 0 {
			winners = []int{seat}
			best = v
			continue
		}
		switch Compare(v, best) {
		case 1:
			winners = []int{seat}
			best = v
		case 0:
			winners = append(winners, seat)
		}
	}
	sort.Ints(winners)
	return winners
}
