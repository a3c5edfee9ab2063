package poker

import (
	"errors"
	"fmt"
	rand "math/rand/v2"
)

// ErrDeckExhausted is returned when more cards are drawn than remain.
var ErrDeckExhausted = errors.New("deck exhausted")

// DeckSize is the number of cards in a standard deck.
const DeckSize = 52

// Deck represents a standard 52-card deck
type Deck struct {
	cards [DeckSize]Card // Fixed size array
	next  int
	rng   *rand.Rand // nil uses the runtime's randomly seeded source
}

// NewDeck creates a new shuffled deck with explicit RNG
func NewDeck(rng *rand.Rand) *Deck {
	d := &Deck{rng: rng}
	d.fill()
	d.Shuffle()
	return d
}

// NewStackedDeck returns an unshuffled deck whose first cards are top, in
// order, followed by the remaining cards in canonical order. Used to deal
// known hands.
func NewStackedDeck(top ...Card) (*Deck, error) {
	d := &Deck{}
	seen := make(map[Card]bool, len(top))
	i := 0
	for _, c := range top {
		if !c.Valid() {
			return nil, fmt.Errorf("invalid card %d in stacked deck", uint8(c))
		}
		if seen[c] {
			return nil, fmt.Errorf("duplicate card %s in stacked deck", c)
		}
		seen[c] = true
		d.cards[i] = c
		i++
	}
	for _, c := range canonicalOrder() {
		if !seen[c] {
			d.cards[i] = c
			i++
		}
	}
	return d, nil
}

func canonicalOrder() []Card {
	cards := make([]Card, 0, DeckSize)
	for suit := Clubs; suit <= Spades; suit++ {
		for rank := Two; rank <= Ace; rank++ {
			cards = append(cards, NewCard(rank, suit))
		}
	}
	return cards
}

func (d *Deck) fill() {
	copy(d.cards[:], canonicalOrder())
	d.next = 0
}

// Shuffle restores all 52 cards and shuffles them using Fisher-Yates
func (d *Deck) Shuffle() {
	d.fill()
	for i := len(d.cards) - 1; i > 0; i-- {
		var j int
		if d.rng != nil {
			j = d.rng.IntN(i + 1)
		} else {
			j = rand.IntN(i + 1)
		}
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// Draw removes and returns the next n cards.
func (d *Deck) Draw(n int) ([]Card, error) {
	if n < 0 || d.next+n > len(d.cards) {
		return nil, fmt.Errorf("%w: want %d, have %d", ErrDeckExhausted, n, d.Remaining())
	}
	cards := make([]Card, n)
	copy(cards, d.cards[d.next:d.next+n])
	d.next += n
	return cards, nil
}

// Remaining returns the number of cards left in the deck
func (d *Deck) Remaining() int {
	return len(d.cards) - d.next
}
