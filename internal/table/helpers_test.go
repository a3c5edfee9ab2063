package table

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/require"

	"github.com/lox/pokerroom/poker"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) OnTableEvent(_ string, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) all() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

func eventsOf[T Event](r *recorder) []T {
	var out []T
	for _, ev := range r.all() {
		if e, ok := ev.(T); ok {
			out = append(out, e)
		}
	}
	return out
}

type harness struct {
	t   *testing.T
	ctx context.Context
	clk *quartz.Mock
	tbl *Table
	rec *recorder
}

func testConfig() Config {
	return Config{
		Name:              "test",
		MaxPlayers:        6,
		SmallBlind:        10,
		BigBlind:          20,
		BuyIn:             1000,
		TurnTimeLimit:     30 * time.Second,
		ReadyUpDuration:   20 * time.Second,
		CountdownDuration: time.Second,
		ShowdownDelay:     5 * time.Second,
		DisconnectGrace:   time.Minute,
	}
}

func newHarness(t *testing.T, cfg Config, opts ...Option) *harness {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	clk := quartz.NewMock(t)
	rec := &recorder{}
	opts = append([]Option{WithClock(clk), WithObserver(rec), WithRNG(nil)}, opts...)
	tbl, err := NewTable(cfg, opts...)
	require.NoError(t, err)
	return &harness{t: t, ctx: ctx, clk: clk, tbl: tbl, rec: rec}
}

// seat joins players in order with the given stacks (zero means buy-in).
func (h *harness) seat(ids []string, chips ...int) {
	h.t.Helper()
	for i, id := range ids {
		c := 0
		if i < len(chips) {
			c = chips[i]
		}
		_, err := h.tbl.Join(Player{ID: id, Name: id, Chips: c}, i)
		require.NoError(h.t, err)
	}
}

// advance fires the next scheduled timer and waits for its callback.
func (h *harness) advance() {
	h.t.Helper()
	_, w := h.clk.AdvanceNext()
	w.MustWait(h.ctx)
}

// deal runs ready-up and the countdown until the hand starts.
func (h *harness) deal() {
	h.t.Helper()
	require.NoError(h.t, h.tbl.StartReadyUp(h.tbl.Config().CreatorID))
	for _, s := range h.tbl.State("").Seats {
		if s != nil && !s.Bot && !s.Ready && !s.SittingOut && s.Chips > 0 {
			require.NoError(h.t, h.tbl.Ready(s.PlayerID))
		}
	}
	for i := 0; h.tbl.Phase() == PhaseCountdown; i++ {
		require.Less(h.t, i, 100, "countdown never finished")
		h.advance()
	}
}

func (h *harness) act(id string, a Action) {
	h.t.Helper()
	require.NoError(h.t, h.tbl.SubmitAction(id, a))
}

// stackedDeck deals holes in deal order (first seat left of the dealer
// first) and then the board, with burn cards taken from unused cards.
func stackedDeck(t *testing.T, holes []string, board string) Option {
	t.Helper()
	hs := make([][]poker.Card, len(holes))
	used := make(map[poker.Card]bool)
	for i, h := range holes {
		hs[i] = poker.MustParseCards(h)
		for _, c := range hs[i] {
			used[c] = true
		}
	}
	b := poker.MustParseCards(board)
	for _, c := range b {
		used[c] = true
	}
	var burns []poker.Card
	for r := poker.Two; r <= poker.Ace && len(burns) < 3; r++ {
		for s := poker.Clubs; s <= poker.Spades && len(burns) < 3; s++ {
			if c := poker.NewCard(r, s); !used[c] {
				burns = append(burns, c)
				used[c] = true
			}
		}
	}

	var top []poker.Card
	for round := range 2 {
		for _, h := range hs {
			top = append(top, h[round])
		}
	}
	top = append(top, burns[0], b[0], b[1], b[2], burns[1], b[3], burns[2], b[4])
	return WithDeckFactory(func() *poker.Deck {
		d, err := poker.NewStackedDeck(top...)
		require.NoError(t, err)
		return d
	})
}

func totalChips(st TableState) int {
	sum := st.Pot
	for _, s := range st.Seats {
		if s != nil {
			sum += s.Chips
		}
	}
	return sum
}
