package poker

import (
	"errors"
	rand "math/rand/v2"
	"testing"

	oracle "github.com/paulhankin/poker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateCategories(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		cards    string
		category Category
		describe string
	}{
		{"high card", "As Kd 9h 7c 3s", HighCard, "High Card, Ace"},
		{"pair", "Js Jd 9h 7c 3s", OnePair, "Pair of Jacks"},
		{"two pair", "Js Jd 9h 9c 3s", TwoPair, "Two Pair, Jacks and Nines"},
		{"trips", "6s 6d 6h 9c 3s", ThreeOfAKind, "Three of a Kind, Sixes"},
		{"wheel", "As 2d 3h 4c 5s", Straight, "Straight, Five high"},
		{"broadway", "As Kd Qh Jc Ts", Straight, "Straight, Ace high"},
		{"flush", "As Js 9s 7s 3s", Flush, "Flush, Ace high"},
		{"full house", "Ks Kd Kh 5c 5s", FullHouse, "Full House, Kings over Fives"},
		{"quads", "9s 9d 9h 9c 3s", FourOfAKind, "Four of a Kind, Nines"},
		{"steel wheel", "Ah 2h 3h 4h 5h", StraightFlush, "Straight Flush, Five high"},
		{"royal", "As Ks Qs Js Ts", RoyalFlush, "Royal Flush"},
		{"best of seven", "2c 7d As Ks Qs Js Ts", RoyalFlush, "Royal Flush"},
		{"no wraparound", "Qs Kd Ah 2c 3s", HighCard, "High Card, Ace"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rank, err := Evaluate(MustParseCards(tt.cards))
			require.NoError(t, err)
			assert.Equal(t, tt.category, rank.Category)
			assert.Equal(t, tt.describe, rank.Describe())
			assert.Len(t, rank.Cards, 5)
		})
	}
}

func TestEvaluateRejectsBadInput(t *testing.T) {
	t.Parallel()
	_, err := Evaluate(MustParseCards("As Kd 9h 7c"))
	assert.True(t, errors.Is(err, ErrInvalidHandSize))

	_, err = Evaluate(MustParseCards("As Kd 9h 7c 3s 2s 4s 5s"))
	assert.True(t, errors.Is(err, ErrInvalidHandSize))

	_, err = Evaluate(MustParseCards("As As 9h 7c 3s"))
	assert.True(t, errors.Is(err, ErrInvalidCards))
}

func TestCompareOrdering(t *testing.T) {
	t.Parallel()
	ordered := []string{
		"As 2d 3h 4c 6s 8c 9d",  // ace high
		"2s 2d 5h 7c 9s Jc Kd",  // pair
		"2s 2d 3h 3c 9s Jc Kd",  // two pair
		"4s 4d 4h 7c 9s Jc Kd",  // trips
		"As 2d 3h 4c 5s 9c Jd",  // wheel
		"6s 7d 8h 9c Ts 2c 2d",  // six-high straight
		"2h 5h 7h 9h Jh Kc Kd",  // flush
		"3s 3d 3h 2c 2s Jc Kd",  // full house
		"2s 2d 2h 2c 9s Jc Kd",  // quads
		"As 2s 3s 4s 5s Jc Kd",  // steel wheel
		"9s Ts Js Qs Ks 2c 2d",  // king-high straight flush
		"Td Jd Qd Kd Ad 2c 2h",  // royal
	}
	ranks := make([]HandRank, len(ordered))
	for i, s := range ordered {
		ranks[i] = MustEvaluate(MustParseCards(s))
	}
	for i := range ranks {
		for j := range ranks {
			want := 0
			switch {
			case i > j:
				want = 1
			case i < j:
				want = -1
			}
			assert.Equal(t, want, Compare(ranks[i], ranks[j]), "%s vs %s", ordered[i], ordered[j])
		}
	}
}

func TestCompareKickers(t *testing.T) {
	t.Parallel()
	a := MustEvaluate(MustParseCards("Ks Kd 9h 7c 4s"))
	b := MustEvaluate(MustParseCards("Kh Kc 9d 7s 3s"))
	assert.Equal(t, 1, Compare(a, b))

	// Board plays: both hands use the same five cards.
	board := "As Ks Qs Js Ts"
	c := MustEvaluate(MustParseCards(board + " 2c 3d"))
	d := MustEvaluate(MustParseCards(board + " 4c 5d"))
	assert.Equal(t, 0, Compare(c, d))
}

func TestCompareProperties(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewPCG(11, 13))
	deck := NewDeck(rng)
	for range 500 {
		deck.Shuffle()
		var hands [3]HandRank
		for i := range hands {
			cards, err := deck.Draw(7)
			require.NoError(t, err)
			hands[i] = MustEvaluate(cards)
		}
		a, b, c := hands[0], hands[1], hands[2]
		require.Equal(t, Compare(a, b), -Compare(b, a))
		if Compare(a, b) >= 0 && Compare(b, c) >= 0 {
			require.GreaterOrEqual(t, Compare(a, c), 0)
		}
	}
}

func toOracle(t *testing.T, cards []Card) [7]oracle.Card {
	t.Helper()
	var out [7]oracle.Card
	for i, c := range cards {
		r := int(c.Rank())
		if c.Rank() == Ace {
			r = 1
		}
		oc, err := oracle.MakeCard(oracle.Suit(c.Suit()), oracle.Rank(r))
		require.NoError(t, err)
		out[i] = oc
	}
	return out
}

// The independent evaluator must agree on the order of every random pair.
func TestEvaluateMatchesOracle(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewPCG(2024, 7))
	deck := NewDeck(rng)
	for range 2000 {
		deck.Shuffle()
		a, err := deck.Draw(7)
		require.NoError(t, err)
		b, err := deck.Draw(7)
		require.NoError(t, err)

		oa, ob := toOracle(t, a), toOracle(t, b)
		want := 0
		switch sa, sb := oracle.Eval7(&oa), oracle.Eval7(&ob); {
		case sa > sb:
			want = 1
		case sa < sb:
			want = -1
		}
		got := Compare(MustEvaluate(a), MustEvaluate(b))
		require.Equal(t, want, got, "%s vs %s", FormatCards(a), FormatCards(b))
	}
}

func BenchmarkEvaluate7(b *testing.B) {
	cards := MustParseCards("As Kd 9h 7c 3s 2d Jh")
	b.ReportAllocs()
	for b.Loop() {
		_, _ = Evaluate(cards)
	}
}
