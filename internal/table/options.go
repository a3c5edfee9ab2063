package table

import (
	rand "math/rand/v2"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"

	"github.com/lox/pokerroom/poker"
)

// Option configures a Table during creation.
type Option func(*Table)

// WithClock sets the clock used for every table timer. Tests pass
// quartz.NewMock.
func WithClock(clock quartz.Clock) Option {
	return func(t *Table) {
		t.clock = clock
	}
}

// WithRNG sets the random source used to shuffle. Ignored when a deck
// factory is installed.
func WithRNG(rng *rand.Rand) Option {
	return func(t *Table) {
		t.rng = rng
	}
}

// WithLogger sets the parent logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(t *Table) {
		t.logger = logger
	}
}

// WithObserver registers an observer before any event can fire.
func WithObserver(o Observer) Option {
	return func(t *Table) {
		t.observers = append(t.observers, o)
	}
}

// WithDeckFactory replaces the per-hand deck. The factory is called once at
// the start of every hand and must return a ready-to-draw deck.
func WithDeckFactory(f func() *poker.Deck) Option {
	return func(t *Table) {
		t.newDeck = f
	}
}

// WithID overrides the generated table id.
func WithID(id string) Option {
	return func(t *Table) {
		t.id = id
	}
}
