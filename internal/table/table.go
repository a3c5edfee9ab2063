package table

import (
	"errors"
	"fmt"
	rand "math/rand/v2"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lox/pokerroom/internal/randutil"
	"github.com/lox/pokerroom/poker"
)

// Player describes someone taking a seat.
type Player struct {
	ID       string
	Name     string
	Chips    int // zero takes the table buy-in
	Bot      bool
	Strategy string
}

// Table is one poker table and its hand state machine. Every mutation,
// whether a player call or a timer firing, runs to completion under mu.
// Events produced by a mutation are delivered after mu is released.
type Table struct {
	id      string
	cfg     Config
	clock   quartz.Clock
	rng     *rand.Rand
	logger  zerolog.Logger
	newDeck func() *poker.Deck

	mu          sync.Mutex
	phase       Phase
	generation  int
	seats       []*Seat
	dealer      int
	current     int
	sbSeat      int
	bbSeat      int
	smallBlind  int
	bigBlind    int
	nextBlinds  [2]int // applied at the next hand start when non-zero
	deck        *poker.Deck
	board       []poker.Card
	pot         int
	round       *BettingRound
	handID      string
	handNumber  int
	handsPlayed int
	handChips   int // chips in play at hand start, for conservation checks
	gameOver    bool
	revealed    map[int][]poker.Card
	lastResult  *HandComplete
	invites     map[string]*botInvite
	reserved    map[int]string

	turnSeq       int
	turnDeadline  time.Time
	readyDeadline time.Time
	countdownLeft time.Duration
	timers        [numTimerKinds]*quartz.Timer
	grace         map[string]*quartz.Timer
	graceSeq      map[string]int

	pending []Event // emitted under mu, flushed to outbox on unlock

	outMu     sync.Mutex
	outbox    []Event
	draining  bool
	observers []Observer
}

// NewTable validates cfg and returns a table in the waiting phase.
func NewTable(cfg Config, opts ...Option) (*Table, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	t := &Table{
		id:         uuid.NewString(),
		cfg:        cfg,
		clock:      quartz.NewReal(),
		logger:     zerolog.Nop(),
		phase:      PhaseWaiting,
		seats:      make([]*Seat, cfg.MaxPlayers),
		dealer:     -1,
		current:    -1,
		sbSeat:     -1,
		bbSeat:     -1,
		smallBlind: cfg.SmallBlind,
		bigBlind:   cfg.BigBlind,
		invites:    make(map[string]*botInvite),
		reserved:   make(map[int]string),
		grace:      make(map[string]*quartz.Timer),
		graceSeq:   make(map[string]int),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.rng == nil {
		t.rng = randutil.NewEntropy()
	}
	if t.newDeck == nil {
		t.newDeck = func() *poker.Deck { return poker.NewDeck(t.rng) }
	}
	t.logger = t.logger.With().Str("component", "table").Str("table_id", t.id).Logger()
	return t, nil
}

// ID returns the table id.
func (t *Table) ID() string { return t.id }

// Config returns the configuration the table was created with.
func (t *Table) Config() Config { return t.cfg }

// Phase returns the current phase.
func (t *Table) Phase() Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phase
}

// AddObserver registers o for all subsequent events.
func (t *Table) AddObserver(o Observer) {
	t.outMu.Lock()
	defer t.outMu.Unlock()
	t.observers = append(t.observers, o)
}

// mutate runs fn under the table lock, then delivers whatever it emitted.
func (t *Table) mutate(fn func() error) error {
	t.mu.Lock()
	var err error
	if t.phase == PhaseClosed {
		err = ErrTableClosed
	} else {
		err = t.run(fn)
	}
	if err == nil {
		t.emit(StateChanged{Phase: t.phase, Generation: t.generation})
	}
	t.outMu.Lock()
	t.outbox = append(t.outbox, t.pending...)
	t.outMu.Unlock()
	t.pending = nil
	t.mu.Unlock()

	t.drain()
	return err
}

func (t *Table) run(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error().
				Interface("panic", r).
				Str("phase", t.phase.String()).
				Str("hand_id", t.handID).
				Msg("Recovered panic in table mutation")
			err = fmt.Errorf("internal error: %v", r)
		}
	}()
	return fn()
}

func (t *Table) emit(ev Event) {
	t.pending = append(t.pending, ev)
}

// drain delivers queued events. Only one goroutine drains at a time so
// observers see events in commit order; events queued by re-entrant calls
// are picked up by the loop already running.
func (t *Table) drain() {
	t.outMu.Lock()
	if t.draining {
		t.outMu.Unlock()
		return
	}
	t.draining = true
	for len(t.outbox) > 0 {
		batch := t.outbox
		t.outbox = nil
		observers := append([]Observer(nil), t.observers...)
		t.outMu.Unlock()
		for _, ev := range batch {
			for _, o := range observers {
				o.OnTableEvent(t.id, ev)
			}
		}
		t.outMu.Lock()
	}
	t.draining = false
	t.outMu.Unlock()
}

func (t *Table) seatOf(playerID string) int {
	for i, s := range t.seats {
		if s != nil && s.PlayerID == playerID {
			return i
		}
	}
	return -1
}

func (t *Table) seatedCount() int {
	n := 0
	for _, s := range t.seats {
		if s != nil {
			n++
		}
	}
	return n
}

func (t *Table) playingCount() int {
	n := 0
	for _, s := range t.seats {
		if s.playing() {
			n++
		}
	}
	return n
}

// Join seats a player. seat < 0 picks the first free seat.
func (t *Table) Join(p Player, seat int) (int, error) {
	var idx int
	err := t.mutate(func() error {
		var err error
		idx, err = t.join(p, seat)
		return err
	})
	return idx, err
}

func (t *Table) join(p Player, seat int) (int, error) {
	if p.ID == "" {
		return -1, fmt.Errorf("%w: player id required", ErrNotSeated)
	}
	if t.seatOf(p.ID) >= 0 {
		return -1, ErrAlreadySeated
	}
	if seat >= len(t.seats) {
		return -1, fmt.Errorf("%w: %d", ErrInvalidSeat, seat)
	}
	if seat < 0 {
		seat = t.freeSeat()
		if seat < 0 {
			return -1, ErrTableFull
		}
	} else if t.seats[seat] != nil || t.reserved[seat] != "" {
		return -1, fmt.Errorf("%w: %d", ErrSeatTaken, seat)
	}
	chips := p.Chips
	if chips == 0 {
		chips = t.cfg.BuyIn
	}
	if chips < 0 {
		return -1, fmt.Errorf("%w: negative stack", ErrInsufficientChips)
	}
	name := p.Name
	if name == "" {
		name = p.ID
	}
	t.seats[seat] = &Seat{
		PlayerID:    p.ID,
		DisplayName: name,
		Chips:       chips,
		Connected:   true,
		Bot:         p.Bot,
		Strategy:    p.Strategy,
		Ready:       p.Bot,
	}
	t.logger.Info().Str("player_id", p.ID).Int("seat", seat).Int("chips", chips).Bool("bot", p.Bot).Msg("Player joined")
	t.emit(PlayerJoined{PlayerID: p.ID, DisplayName: name, Seat: seat, Chips: chips, Bot: p.Bot})
	if t.phase == PhaseReadyUp {
		t.checkAllReady()
	}
	return seat, nil
}

func (t *Table) freeSeat() int {
	for i, s := range t.seats {
		if s == nil && t.reserved[i] == "" {
			return i
		}
	}
	return -1
}

// Leave removes a player. Mid-hand the seat is folded and cleared once the
// hand ends so its chips stay accountable until then.
func (t *Table) Leave(playerID string) error {
	return t.mutate(func() error {
		return t.leave(playerID, "left")
	})
}

func (t *Table) leave(playerID, reason string) error {
	idx := t.seatOf(playerID)
	if idx < 0 {
		return ErrNotSeated
	}
	t.cancelGrace(playerID)
	s := t.seats[idx]
	if s.InHand() && t.phase.IsBetting() {
		s.leaving = true
		s.leaveReason = reason
		if s.Folded {
			return nil
		}
		if idx == t.current {
			return t.applyAction(idx, Fold(), false)
		}
		s.Folded = true
		t.emit(PlayerActed{PlayerID: playerID, Seat: idx, Action: Fold(), Pot: t.pot})
		if t.liveCount() <= 1 {
			return t.finishUncontested()
		}
		if t.round.IsClosed() {
			return t.endStreet()
		}
		return nil
	}
	t.removeSeat(idx, reason)
	t.stopBlindsIfIdle()
	if (t.phase == PhaseReadyUp || t.phase == PhaseCountdown) && t.playingCount() < 2 {
		t.logger.Info().Msg("Not enough players left, returning to waiting")
		t.cancelTimer(timerReadyUp)
		t.cancelTimer(timerCountdown)
		t.phase = PhaseWaiting
	} else if t.phase == PhaseReadyUp {
		t.checkAllReady()
	}
	return nil
}

func (t *Table) removeSeat(idx int, reason string) {
	s := t.seats[idx]
	t.cancelGrace(s.PlayerID)
	t.seats[idx] = nil
	t.logger.Info().Str("player_id", s.PlayerID).Int("seat", idx).Int("chips", s.Chips).Str("reason", reason).Msg("Player left")
	t.emit(PlayerLeft{PlayerID: s.PlayerID, Seat: idx, Chips: s.Chips, Bot: s.Bot, Reason: reason})
}

// StartReadyUp moves a waiting table into ready-up. Only the creator may
// start a table that has one.
func (t *Table) StartReadyUp(requesterID string) error {
	return t.mutate(func() error {
		if t.phase != PhaseWaiting {
			return fmt.Errorf("%w: table is %s", ErrWrongPhase, t.phase)
		}
		if t.cfg.CreatorID != "" && requesterID != t.cfg.CreatorID {
			return ErrNotCreator
		}
		if t.playingCount() < 2 {
			return ErrInsufficientPlayers
		}
		t.beginReadyUp()
		return nil
	})
}

func (t *Table) beginReadyUp() {
	t.phase = PhaseReadyUp
	for _, s := range t.seats {
		if s != nil {
			s.Ready = s.Bot
		}
	}
	t.readyDeadline = t.clock.Now().Add(t.cfg.ReadyUpDuration)
	t.logger.Debug().Dur("duration", t.cfg.ReadyUpDuration).Msg("Ready-up started")
	t.emit(ReadyPrompt{Deadline: t.readyDeadline})
	t.arm(timerReadyUp, t.cfg.ReadyUpDuration, t.onReadyUpExpired)
	t.checkAllReady()
}

// Ready confirms a seat for the coming hand. A sitting-out seat with chips
// sits back in.
func (t *Table) Ready(playerID string) error {
	return t.mutate(func() error {
		if t.phase != PhaseReadyUp {
			return fmt.Errorf("%w: table is %s", ErrWrongPhase, t.phase)
		}
		idx := t.seatOf(playerID)
		if idx < 0 {
			return ErrNotSeated
		}
		s := t.seats[idx]
		if s.Chips == 0 {
			return ErrInsufficientChips
		}
		if s.Ready && !s.SittingOut {
			return nil
		}
		s.Ready = true
		s.SittingOut = false
		t.emit(PlayerReadied{PlayerID: playerID, Seat: idx})
		t.checkAllReady()
		return nil
	})
}

func (t *Table) checkAllReady() {
	if t.playingCount() < 2 {
		return
	}
	for _, s := range t.seats {
		if s.playing() && !s.Ready {
			return
		}
	}
	t.cancelTimer(timerReadyUp)
	t.beginCountdown()
}

func (t *Table) onReadyUpExpired() error {
	if t.phase != PhaseReadyUp {
		return errStale
	}
	for i, s := range t.seats {
		if s.playing() && !s.Ready {
			s.SittingOut = true
			t.logger.Info().Str("player_id", s.PlayerID).Int("seat", i).Msg("Player not ready, sitting out")
			t.emit(PlayerNotReady{PlayerID: s.PlayerID, Seat: i})
		}
	}
	if t.playingCount() < 2 {
		t.phase = PhaseWaiting
		t.stopBlindsIfIdle()
		return nil
	}
	t.beginCountdown()
	return nil
}

func (t *Table) beginCountdown() {
	t.phase = PhaseCountdown
	t.countdownLeft = t.cfg.CountdownDuration
	t.emit(CountdownUpdate{Remaining: t.countdownLeft})
	t.armCountdownTick()
}

func (t *Table) armCountdownTick() {
	step := min(time.Second, t.countdownLeft)
	t.arm(timerCountdown, step, func() error {
		if t.phase != PhaseCountdown {
			return errStale
		}
		t.countdownLeft -= step
		if t.countdownLeft <= 0 {
			t.startHandOrWait()
			return nil
		}
		t.emit(CountdownUpdate{Remaining: t.countdownLeft})
		t.armCountdownTick()
		return nil
	})
}

// SitOut keeps the seat but skips it from the next hand on.
func (t *Table) SitOut(playerID string) error {
	return t.mutate(func() error {
		idx := t.seatOf(playerID)
		if idx < 0 {
			return ErrNotSeated
		}
		t.seats[idx].SittingOut = true
		return nil
	})
}

// SitIn returns a sitting-out seat to play.
func (t *Table) SitIn(playerID string) error {
	return t.mutate(func() error {
		idx := t.seatOf(playerID)
		if idx < 0 {
			return ErrNotSeated
		}
		s := t.seats[idx]
		if s.Chips == 0 {
			return ErrInsufficientChips
		}
		s.SittingOut = false
		if t.phase == PhaseReadyUp {
			t.checkAllReady()
		}
		return nil
	})
}

// Disconnect marks a seat unconnected. The seat keeps playing under the
// turn timer and is removed if the player does not return within the grace
// period.
func (t *Table) Disconnect(playerID string) error {
	return t.mutate(func() error {
		idx := t.seatOf(playerID)
		if idx < 0 {
			return ErrNotSeated
		}
		s := t.seats[idx]
		if !s.Connected {
			return nil
		}
		s.Connected = false
		grace := t.cfg.DisconnectGrace
		t.logger.Info().Str("player_id", playerID).Dur("grace", grace).Msg("Player disconnected")
		t.emit(PlayerDisconnected{PlayerID: playerID, Seat: idx, Grace: grace})
		t.armGrace(playerID, grace)
		return nil
	})
}

// Reconnect marks a disconnected seat connected again. Nothing else changes.
func (t *Table) Reconnect(playerID string) error {
	return t.mutate(func() error {
		idx := t.seatOf(playerID)
		if idx < 0 {
			return ErrNotSeated
		}
		s := t.seats[idx]
		if s.Connected {
			return nil
		}
		s.Connected = true
		t.cancelGrace(playerID)
		t.logger.Info().Str("player_id", playerID).Msg("Player reconnected")
		t.emit(PlayerReconnected{PlayerID: playerID, Seat: idx})
		return nil
	})
}

// ResetGame restarts the table in place: every seat returns to the buy-in,
// the hand counter and blinds reset, and timers armed before the reset
// become no-ops.
func (t *Table) ResetGame() error {
	return t.mutate(func() error {
		t.generation++
		t.cancelAllTimers()
		for i, s := range t.seats {
			if s == nil {
				continue
			}
			if s.leaving {
				t.removeSeat(i, s.leaveReason)
				continue
			}
			s.resetHand()
			s.Chips = t.cfg.BuyIn
			s.SittingOut = false
			s.Ready = s.Bot
		}
		t.clearHand()
		t.dropInvites()
		t.phase = PhaseWaiting
		t.dealer = -1
		t.handNumber = 0
		t.handsPlayed = 0
		t.gameOver = false
		t.lastResult = nil
		t.smallBlind, t.bigBlind = t.cfg.SmallBlind, t.cfg.BigBlind
		t.nextBlinds = [2]int{}
		t.logger.Info().Int("generation", t.generation).Msg("Table reset")
		return nil
	})
}

// Close tears the table down. Every seated player is reported as leaving
// with their stack, including chips committed to an unfinished hand.
func (t *Table) Close(reason string) error {
	err := t.mutate(func() error {
		t.generation++
		t.cancelAllTimers()
		for i, s := range t.seats {
			if s == nil {
				continue
			}
			if s.InHand() {
				s.Chips += s.TotalBet
			}
			t.removeSeat(i, "table closed")
		}
		t.clearHand()
		t.dropInvites()
		t.phase = PhaseClosed
		t.logger.Info().Str("reason", reason).Msg("Table closed")
		t.emit(TableClosed{Reason: reason})
		return nil
	})
	if errors.Is(err, ErrTableClosed) {
		return nil
	}
	return err
}

func (t *Table) clearHand() {
	t.current = -1
	t.round = nil
	t.deck = nil
	t.board = nil
	t.pot = 0
	t.handID = ""
	t.revealed = nil
}

func (t *Table) dropInvites() {
	t.invites = make(map[string]*botInvite)
	t.reserved = make(map[int]string)
}
