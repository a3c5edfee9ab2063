package bot

import (
	rand "math/rand/v2"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"

	"github.com/lox/pokerroom/internal/randutil"
	"github.com/lox/pokerroom/internal/table"
)

// DefaultThinkTime is how long a bot waits before acting.
const DefaultThinkTime = 750 * time.Millisecond

// Driver plays every bot seat at one table. It is a table.Observer: when a
// bot's turn starts it waits the think time on its clock, then decides from
// the bot's own view and submits through Table.SubmitAction.
type Driver struct {
	tbl     *table.Table
	clock   quartz.Clock
	think   time.Duration
	logger  zerolog.Logger
	resolve func(name string) Strategy

	mu     sync.Mutex
	rng    *rand.Rand
	timers map[string]*quartz.Timer
	closed bool
}

// Option configures a Driver.
type Option func(*Driver)

// WithClock sets the clock used for think time.
func WithClock(clock quartz.Clock) Option {
	return func(d *Driver) { d.clock = clock }
}

// WithThinkTime sets the delay before each decision. Zero acts immediately.
func WithThinkTime(think time.Duration) Option {
	return func(d *Driver) { d.think = think }
}

// WithLogger sets the parent logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(d *Driver) { d.logger = logger }
}

// WithRNG sets the decision random source.
func WithRNG(rng *rand.Rand) Option {
	return func(d *Driver) { d.rng = rng }
}

// WithResolver replaces ResolveStrategy for looking up a seat's strategy.
func WithResolver(resolve func(name string) Strategy) Option {
	return func(d *Driver) { d.resolve = resolve }
}

// NewDriver returns a driver for tbl. The caller registers it with
// tbl.AddObserver.
func NewDriver(tbl *table.Table, opts ...Option) *Driver {
	d := &Driver{
		tbl:     tbl,
		clock:   quartz.NewReal(),
		think:   DefaultThinkTime,
		logger:  zerolog.Nop(),
		resolve: ResolveStrategy,
		timers:  make(map[string]*quartz.Timer),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.rng == nil {
		d.rng = randutil.NewEntropy()
	}
	d.logger = d.logger.With().Str("component", "bot_driver").Str("table_id", tbl.ID()).Logger()
	return d
}

// OnTableEvent implements table.Observer.
func (d *Driver) OnTableEvent(_ string, ev table.Event) {
	switch e := ev.(type) {
	case table.TurnStarted:
		d.onTurn(e)
	case table.PlayerLeft:
		d.cancel(e.PlayerID)
	case table.TableClosed:
		d.Stop()
	}
}

func (d *Driver) onTurn(turn table.TurnStarted) {
	view := d.tbl.State(turn.PlayerID)
	seat := view.Seat(turn.Seat)
	if seat == nil || !seat.Bot {
		return
	}
	if d.think <= 0 {
		d.act(turn)
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	if tm, ok := d.timers[turn.PlayerID]; ok {
		tm.Stop()
	}
	d.timers[turn.PlayerID] = d.clock.AfterFunc(d.think, func() {
		d.act(turn)
	}, "bot", "think")
}

// act decides and submits for the turn, unless the turn has moved on.
func (d *Driver) act(turn table.TurnStarted) {
	view := d.tbl.State(turn.PlayerID)
	if view.ViewerSeat != turn.Seat || view.CurrentPlayer != turn.Seat || view.Turn != turn.Turn {
		return
	}
	seat := view.Seat(turn.Seat)
	strategy := d.resolve(seat.Strategy)

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	delete(d.timers, turn.PlayerID)
	a := strategy.Decide(view, d.rng)
	d.mu.Unlock()

	d.logger.Debug().
		Str("bot_id", turn.PlayerID).
		Str("strategy", strategy.Name()).
		Stringer("action", a).
		Int("to_call", view.ToCall).
		Msg("Bot decided")

	err := d.tbl.SubmitAction(turn.PlayerID, a)
	if err == nil {
		return
	}
	d.logger.Warn().Err(err).Str("bot_id", turn.PlayerID).Stringer("action", a).Msg("Bot action rejected, falling back")
	for _, fb := range []table.Action{table.Check(), table.Call(), table.AllIn(), table.Fold()} {
		if legal(view, fb.Kind) && d.tbl.SubmitAction(turn.PlayerID, fb) == nil {
			return
		}
	}
	d.logger.Error().Str("bot_id", turn.PlayerID).Msg("Bot could not act, leaving it to the turn timer")
}

func (d *Driver) cancel(playerID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if tm, ok := d.timers[playerID]; ok {
		tm.Stop()
		delete(d.timers, playerID)
	}
}

// Stop cancels pending decisions. The driver ignores later turns.
func (d *Driver) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	for id, tm := range d.timers {
		tm.Stop()
		delete(d.timers, id)
	}
}
