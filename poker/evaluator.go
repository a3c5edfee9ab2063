package poker

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrInvalidHandSize is returned when Evaluate is given fewer than 5 or more than 7 cards.
	ErrInvalidHandSize = errors.New("hand must contain 5 to 7 cards")
	// ErrInvalidCards is returned for duplicate or malformed cards.
	ErrInvalidCards = errors.New("invalid cards")
)

// Category enumerates the categories of poker hands ordered from weakest to strongest.
type Category uint8

const (
	HighCard Category = iota + 1
	OnePair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
	RoyalFlush
)

// String returns a human-readable category name.
func (c Category) String() string {
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
	case RoyalFlush:
		return "Royal Flush"
	default:
		return "Unknown"
	}
}

// HandRank is the value of the best five-card hand. Two ranks are compared by
// Category first and then element by element through Tiebreak.
type HandRank struct {
	Category Category
	Tiebreak []Rank
	Cards    []Card // the five cards that make the hand
}

// String returns the category name.
func (h HandRank) String() string {
	return h.Category.String()
}

// Describe returns a fuller description, e.g. "Full House, Kings over Fives".
func (h HandRank) Describe() string {
	if len(h.Tiebreak) == 0 {
		return h.Category.String()
	}
	tb := h.Tiebreak
	switch h.Category {
	case RoyalFlush:
		return "Royal Flush"
	case StraightFlush, Straight, Flush, HighCard:
		if h.Category == HighCard {
			return fmt.Sprintf("High Card, %s", tb[0].Name())
		}
		return fmt.Sprintf("%s, %s high", h.Category, tb[0].Name())
	case FourOfAKind, ThreeOfAKind:
		return fmt.Sprintf("%s, %s", h.Category, tb[0].Plural())
	case FullHouse:
		return fmt.Sprintf("Full House, %s over %s", tb[0].Plural(), tb[1].Plural())
	case TwoPair:
		return fmt.Sprintf("Two Pair, %s and %s", tb[0].Plural(), tb[1].Plural())
	case OnePair:
		return fmt.Sprintf("Pair of %s", tb[0].Plural())
	}
	return h.Category.String()
}

// Compare returns 1 if a beats b, -1 if b beats a and 0 on a tie.
func Compare(a, b HandRank) int {
	switch {
	case a.Category > b.Category:
		return 1
	case a.Category < b.Category:
		return -1
	}
	for i := 0; i < len(a.Tiebreak) && i < len(b.Tiebreak); i++ {
		switch {
		case a.Tiebreak[i] > b.Tiebreak[i]:
			return 1
		case a.Tiebreak[i] < b.Tiebreak[i]:
			return -1
		}
	}
	return 0
}

// Evaluate returns the best five-card hand that can be made from 5 to 7 cards.
// Every 5-card subset is ranked (at most C(7,5) = 21 of them).
func Evaluate(cards []Card) (HandRank, error) {
	if len(cards) < 5 || len(cards) > 7 {
		return HandRank{}, fmt.Errorf("%w: got %d", ErrInvalidHandSize, len(cards))
	}
	seen := make(map[Card]bool, len(cards))
	for _, c := range cards {
		if !c.Valid() || seen[c] {
			return HandRank{}, fmt.Errorf("%w: %s", ErrInvalidCards, FormatCards(cards))
		}
		seen[c] = true
	}

	var best HandRank
	var five [5]Card
	n := len(cards)
	for a := 0; a < n-4; a++ {
		for b := a + 1; b < n-3; b++ {
			for c := b + 1; c < n-2; c++ {
				for d := c + 1; d < n-1; d++ {
					for e := d + 1; e < n; e++ {
						five = [5]Card{cards[a], cards[b], cards[c], cards[d], cards[e]}
						rank := evaluate5(five)
						if best.Category == 0 || Compare(rank, best) > 0 {
							best = rank
						}
					}
				}
			}
		}
	}
	return best, nil
}

// MustEvaluate is Evaluate for inputs known to be valid; it panics on error.
func MustEvaluate(cards []Card) HandRank {
	rank, err := Evaluate(cards)
	if err != nil {
		panic(err)
	}
	return rank
}

type rankGroup struct {
	rank  Rank
	count int
}

func evaluate5(cards [5]Card) HandRank {
	var counts [Ace + 1]int
	flush := true
	for i, c := range cards {
		counts[c.Rank()]++
		if i > 0 && c.Suit() != cards[0].Suit() {
			flush = false
		}
	}

	groups := make([]rankGroup, 0, 5)
	for r := Ace; r >= Two; r-- {
		if counts[r] > 0 {
			groups = append(groups, rankGroup{rank: r, count: counts[r]})
		}
	}
	// Larger groups first, higher ranks first within a group size.
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].count > groups[j].count
	})

	tiebreak := make([]Rank, len(groups))
	for i, g := range groups {
		tiebreak[i] = g.rank
	}

	hand := HandRank{Cards: sortedCards(cards)}

	straightHigh := Rank(0)
	if len(groups) == 5 {
		high, low := tiebreak[0], tiebreak[4]
		switch {
		case high-low == 4:
			straightHigh = high
		case high == Ace && tiebreak[1] == Five:
			// A-2-3-4-5 plays as a five-high straight.
			straightHigh = Five
		}
	}

	switch {
	case straightHigh > 0 && flush && straightHigh == Ace:
		hand.Category = RoyalFlush
		hand.Tiebreak = []Rank{Ace}
	case straightHigh > 0 && flush:
		hand.Category = StraightFlush
		hand.Tiebreak = []Rank{straightHigh}
	case groups[0].count == 4:
		hand.Category = FourOfAKind
		hand.Tiebreak = tiebreak
	case groups[0].count == 3 && groups[1].count == 2:
		hand.Category = FullHouse
		hand.Tiebreak = tiebreak
	case flush:
		hand.Category = Flush
		hand.Tiebreak = tiebreak
	case straightHigh > 0:
		hand.Category = Straight
		hand.Tiebreak = []Rank{straightHigh}
	case groups[0].count == 3:
		hand.Category = ThreeOfAKind
		hand.Tiebreak = tiebreak
	case groups[0].count == 2 && groups[1].count == 2:
		hand.Category = TwoPair
		hand.Tiebreak = tiebreak
	case groups[0].count == 2:
		hand.Category = OnePair
		hand.Tiebreak = tiebreak
	default:
		hand.Category = HighCard
		hand.Tiebreak = tiebreak
	}
	return hand
}

func sortedCards(cards [5]Card) []Card {
	out := cards[:]
	out = append([]Card(nil), out...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rank() != out[j].Rank() {
			return out[i].Rank() > out[j].Rank()
		}
		return out[i].Suit() > out[j].Suit()
	})
	return out
}
