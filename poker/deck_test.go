package poker

import (
	"errors"
	rand "math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeckHas52UniqueCards(t *testing.T) {
	t.Parallel()
	d := NewDeck(rand.New(rand.NewPCG(1, 2)))
	require.Equal(t, DeckSize, d.Remaining())

	cards, err := d.Draw(DeckSize)
	require.NoError(t, err)

	seen := make(map[Card]bool)
	for _, c := range cards {
		require.True(t, c.Valid(), "card %d invalid", c)
		require.False(t, seen[c], "duplicate card %s", c)
		seen[c] = true
	}
	assert.Len(t, seen, DeckSize)
	assert.Equal(t, 0, d.Remaining())
}

func TestDeckDrawExhausted(t *testing.T) {
	t.Parallel()
	d := NewDeck(rand.New(rand.NewPCG(3, 4)))
	_, err := d.Draw(50)
	require.NoError(t, err)

	_, err = d.Draw(3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDeckExhausted))
	assert.Equal(t, 2, d.Remaining(), "failed draw must not consume cards")
}

func TestDeckShuffleDeterministicWithSeed(t *testing.T) {
	t.Parallel()
	a := NewDeck(rand.New(rand.NewPCG(42, 42)))
	b := NewDeck(rand.New(rand.NewPCG(42, 42)))
	ca, _ := a.Draw(10)
	cb, _ := b.Draw(10)
	assert.Equal(t, ca, cb)

	c := NewDeck(rand.New(rand.NewPCG(7, 7)))
	cc, _ := c.Draw(10)
	assert.NotEqual(t, ca, cc)
}

func TestDeckShuffleResets(t *testing.T) {
	t.Parallel()
	d := NewDeck(nil)
	_, err := d.Draw(20)
	require.NoError(t, err)
	d.Shuffle()
	assert.Equal(t, DeckSize, d.Remaining())
}

func TestShuffleIsRoughlyUniform(t *testing.T) {
	t.Parallel()
	// Position of the ace of spades after many shuffles should spread across the deck.
	rng := rand.New(rand.NewPCG(9, 9))
	d := NewDeck(rng)
	target := NewCard(Ace, Spades)
	var buckets [4]int
	const rounds = 4000
	for range rounds {
		d.Shuffle()
		cards, _ := d.Draw(DeckSize)
		for i, c := range cards {
			if c == target {
				buckets[i/13]++
			}
		}
	}
	for i, n := range buckets {
		assert.InDelta(t, rounds/4, n, rounds/10, "bucket %d", i)
	}
}

func TestStackedDeck(t *testing.T) {
	t.Parallel()
	top := MustParseCards("As Ks Qs")
	d, err := NewStackedDeck(top...)
	require.NoError(t, err)
	got, err := d.Draw(3)
	require.NoError(t, err)
	assert.Equal(t, top, got)
	assert.Equal(t, DeckSize-3, d.Remaining())

	_, err = NewStackedDeck(top[0], top[0])
	require.Error(t, err)
}
