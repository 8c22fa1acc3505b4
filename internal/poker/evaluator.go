package poker

import (
	"fmt"
	"sort"
)

// HandCategory orders hand classes from weakest to strongest. An
// ace-high straight flush is the royal flush; it is not a separate
// category, only a description.
type HandCategory int

const (
	HighCard HandCategory = iota
	OnePair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
)

func (c HandCategory) String() string {
	switch c {
	case HighCard:
		return "High Card"
	case OnePair:
		return "Pair"
	case TwoPair:
		return "Two Pair"
	case ThreeOfAKind:
		return "Three of a Kind"
	case Straight:
		return "Straight"
	case Flush:
		return "Flush"
	case FullHouse:
		return "Full House"
	case FourOfAKind:
		return "Four of a Kind"
	case StraightFlush:
		return "Straight Flush"
	default:
		return fmt.Sprintf("HandCategory(%d)", int(c))
	}
}

// HandValue is a total-ordered hand strength: category first, then the
// tiebreak vector compared lexicographically. Hands of the same
// category always have tiebreak vectors of the same length.
type HandValue struct {
	Category    HandCategory `json:"category"`
	Tiebreaks   []Rank       `json:"tiebreaks"`
	Cards       []Card       `json:"cards"`
	Description string       `json:"description"`
}

// Compare returns -1, 0 or 1 as a is weaker than, equal to or stronger
// than b.
func Compare(a, b HandValue) int {
	if a.Category != b.Category {
		if a.Category < b.Category {
			return -1
		}
		return 1
	}
	for i := range a.Tiebreaks {
		if i >= len(b.Tiebreaks) {
			return 1
		}
		if a.Tiebreaks[i] != b.Tiebreaks[i] {
			if a.Tiebreaks[i] < b.Tiebreaks[i] {
				return -1
			}
			return 1
		}
	}
	if len(b.Tiebreaks) > len(a.Tiebreaks) {
		return -1
	}
	return 0
}

// BestHand evaluates the strongest 5-card hand from hole and community
// cards by enumerating every 5-card subset. With 2 hole and 5 community
// cards that is the 21-subset search.
func BestHand(hole, community []Card) (HandValue, error) {
	all := make([]Card, 0, len(hole)+len(community))
	all = append(all, hole...)
	all = append(all, community...)
	if len(all) < 5 {
		return HandValue{}, fmt.Errorf("evaluate: need at least 5 cards, have %d", len(all))
	}

	var best HandValue
	first := true
	idx := make([]int, 5)
	var walk func(start, depth int)
	walk = func(start, depth int) {
		if depth == 5 {
			five := [5]Card{all[idx[0]], all[idx[1]], all[idx[2]], all[idx[3]], all[idx[4]]}
			v := evaluateFive(five)
			if first || Compare(v, best) > 0 {
				best = v
				first = false
			}
			return
		}
		for i := start; i <= len(all)-(5-depth); i++ {
			idx[depth] = i
			walk(i+1, depth+1)
		}
	}
	walk(0, 0)
	return best, nil
}

// evaluateFive classifies exactly five cards.
func evaluateFive(five [5]Card) HandValue {
	cards := five[:]
	sorted := make([]Card, 5)
	copy(sorted, cards)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Rank > sorted[j].Rank })

	flush := true
	for _, c := range sorted[1:] {
		if c.Suit != sorted[0].Suit {
			flush = false
			break
		}
	}

	straight, straightHigh := straightHighRank(sorted)

	counts := map[Rank]int{}
	for _, c := range sorted {
		counts[c.Rank]++
	}
	// Group ranks by multiplicity, then by rank, both descending.
	type group struct {
		rank  Rank
		count int
	}
	groups := make([]group, 0, len(counts))
	for r, n := range counts {
		groups = append(groups, group{rank: r, count: n})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].count != groups[j].count {
			return groups[i].count > groups[j].count
		}
		return groups[i].rank > groups[j].rank
	})

	v := HandValue{Cards: sorted}
	switch {
	case straight && flush:
		v.Category = StraightFlush
		v.Tiebreaks = []Rank{straightHigh}
		if straightHigh == Ace {
			v.Description = "Royal Flush"
		} else {
			v.Description = fmt.Sprintf("Straight Flush, %s high", straightHigh.Name())
		}
	case groups[0].count == 4:
		v.Category = FourOfAKind
		v.Tiebreaks = []Rank{groups[0].rank, groups[1].rank}
		v.Description = fmt.Sprintf("Four of a Kind, %ss", groups[0].rank.Name())
	case groups[0].count == 3 && groups[1].count == 2:
		v.Category = FullHouse
		v.Tiebreaks = []Rank{groups[0].rank, groups[1].rank}
		v.Description = fmt.Sprintf("Full House, %ss over %ss", groups[0].rank.Name(), groups[1].rank.Name())
	case flush:
		v.Category = Flush
		v.Tiebreaks = ranksOf(sorted)
		v.Description = fmt.Sprintf("Flush, %s high", sorted[0].Rank.Name())
	case straight:
		v.Category = Straight
		v.Tiebreaks = []Rank{straightHigh}
		v.Description = fmt.Sprintf("Straight, %s high", straightHigh.Name())
	case groups[0].count == 3:
		v.Category = ThreeOfAKind
		v.Tiebreaks = []Rank{groups[0].rank, groups[1].rank, groups[2].rank}
		v.Description = fmt.Sprintf("Three of a Kind, %ss", groups[0].rank.Name())
	case groups[0].count == 2 && groups[1].count == 2:
		v.Category = TwoPair
		v.Tiebreaks = []Rank{groups[0].rank, groups[1].rank, groups[2].rank}
		v.Description = fmt.Sprintf("Two Pair, %ss and %ss", groups[0].rank.Name(), groups[1].rank.Name())
	case groups[0].count == 2:
		v.Category = OnePair
		v.Tiebreaks = []Rank{groups[0].rank, groups[1].rank, groups[2].rank, groups[3].rank}
		v.Description = fmt.Sprintf("Pair of %ss", groups[0].rank.Name())
	default:
		v.Category = HighCard
		v.Tiebreaks = ranksOf(sorted)
		v.Description = fmt.Sprintf("%s High", sorted[0].Rank.Name())
	}
	return v
}

// straightHighRank reports whether the five rank-descending cards form
// a straight and its high card. The wheel A-2-3-4-5 plays as five-high.
func straightHighRank(sorted []Card) (bool, Rank) {
	run := true
	for i := 1; i < 5; i++ {
		if sorted[i-1].Rank != sorted[i].Rank+1 {
			run = false
			break
		}
	}
	if run {
		return true, sorted[0].Rank
	}
	// Wheel: A,5,4,3,2 after descending sort.
	if sorted[0].Rank == Ace && sorted[1].Rank == Five && sorted[2].Rank == Four &&
		sorted[3].Rank == Three && sorted[4].Rank == Two {
		return true, Five
	}
	return false, 0
}

func ranksOf(cards []Card) []Rank {
	ranks := make([]Rank, len(cards))
	for i, c := range cards {
		ranks[i] = c.Rank
	}
	return ranks
}
