package server

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"
	"github.com/thoas/go-funk"

	"github.com/lox/pokerroom/internal/bot"
	"github.com/lox/pokerroom/internal/randutil"
	"github.com/lox/pokerroom/internal/store"
	"github.com/lox/pokerroom/internal/table"
)

// ErrTableNotFound is returned for an unknown table id.
var ErrTableNotFound = errors.New("table not found")

// Broadcaster receives every event from every table the manager owns.
type Broadcaster interface {
	TableEvent(tableID string, ev table.Event)
}

type tableEntry struct {
	table      *table.Table
	driver     *bot.Driver
	persistent bool
}

// GameManager owns the live tables. It seeds seat stacks from the profile
// store when players join, credits stacks back when they leave, keeps hand
// statistics and drives bot seats. A player sits at one table at a time.
type GameManager struct {
	logger   zerolog.Logger
	store    store.Store
	writer   *store.Writer
	clock    quartz.Clock
	bankroll int
	think    time.Duration
	seed     int64
	seeded   bool

	mu          sync.RWMutex
	tables      map[string]*tableEntry
	seats       map[string]string // player id -> table id
	profiles    map[string]*store.Profile
	created     int64
	broadcaster Broadcaster
}

// ManagerOption configures a GameManager.
type ManagerOption func(*GameManager)

// WithManagerClock sets the clock shared by tables, bot drivers and the
// profile writer.
func WithManagerClock(clock quartz.Clock) ManagerOption {
	return func(m *GameManager) { m.clock = clock }
}

// WithStartingBankroll sets the balance given to players with no profile.
func WithStartingBankroll(chips int) ManagerOption {
	return func(m *GameManager) { m.bankroll = chips }
}

// WithBotThinkTime sets how long bots wait before acting.
func WithBotThinkTime(d time.Duration) ManagerOption {
	return func(m *GameManager) { m.think = d }
}

// WithSeed makes shuffles and bot decisions reproducible.
func WithSeed(seed int64) ManagerOption {
	return func(m *GameManager) {
		m.seed = seed
		m.seeded = true
	}
}

// WithBroadcaster sets the event sink.
func WithBroadcaster(b Broadcaster) ManagerOption {
	return func(m *GameManager) { m.broadcaster = b }
}

// NewGameManager returns an empty manager backed by s.
func NewGameManager(logger zerolog.Logger, s store.Store, opts ...ManagerOption) *GameManager {
	m := &GameManager{
		logger:   logger.With().Str("component", "game_manager").Logger(),
		store:    s,
		clock:    quartz.NewReal(),
		bankroll: defaultStartingBankroll,
		think:    bot.DefaultThinkTime,
		tables:   make(map[string]*tableEntry),
		seats:    make(map[string]string),
		profiles: make(map[string]*store.Profile),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.writer = store.NewWriter(s, store.WithWriterClock(m.clock), store.WithWriterLogger(logger))
	return m
}

// SetBroadcaster replaces the event sink. Events already in flight may still
// reach the old one.
func (m *GameManager) SetBroadcaster(b Broadcaster) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.broadcaster = b
}

// CreateTable opens a table owned by creatorID. It is destroyed once its
// last human leaves.
func (m *GameManager) CreateTable(creatorID string, cfg table.Config) (*table.Table, error) {
	cfg.CreatorID = creatorID
	return m.createTable(cfg, false)
}

func (m *GameManager) createTable(cfg table.Config, persistent bool) (*table.Table, error) {
	m.mu.Lock()
	m.created++
	n := m.created
	m.mu.Unlock()

	opts := []table.Option{table.WithClock(m.clock), table.WithLogger(m.logger)}
	driverOpts := []bot.Option{bot.WithClock(m.clock), bot.WithThinkTime(m.think), bot.WithLogger(m.logger)}
	if m.seeded {
		opts = append(opts, table.WithRNG(randutil.New(m.seed+n)))
		driverOpts = append(driverOpts, bot.WithRNG(randutil.New(m.seed-n)))
	}
	tbl, err := table.NewTable(cfg, opts...)
	if err != nil {
		return nil, err
	}
	entry := &tableEntry{table: tbl, driver: bot.NewDriver(tbl, driverOpts...), persistent: persistent}
	tbl.AddObserver(table.ObserverFunc(m.onTableEvent))
	tbl.AddObserver(entry.driver)

	m.mu.Lock()
	m.tables[tbl.ID()] = entry
	m.mu.Unlock()

	m.logger.Info().
		Str("table_id", tbl.ID()).
		Str("name", cfg.Name).
		Str("creator_id", cfg.CreatorID).
		Bool("persistent", persistent).
		Msg("Table created")
	return tbl, nil
}

// Bootstrap creates the tables and bots declared in cfg. These tables live
// until shutdown.
func (m *GameManager) Bootstrap(cfg *ServerConfig) error {
	for _, tc := range cfg.Tables {
		tcfg, err := tc.TableConfig()
		if err != nil {
			return err
		}
		tbl, err := m.createTable(tcfg, true)
		if err != nil {
			return fmt.Errorf("table %s: %w", tc.Name, err)
		}
		for _, b := range cfg.BotsForTable(tc.Name) {
			profile := table.BotProfile{Name: b.Name, Strategy: b.Strategy}
			if _, err := tbl.InviteBot("", profile, b.BuyIn); err != nil {
				return fmt.Errorf("bot %s at table %s: %w", b.Name, tc.Name, err)
			}
		}
	}
	return nil
}

// Table returns a live table.
func (m *GameManager) Table(tableID string) (*table.Table, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.tables[tableID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, tableID)
	}
	return e.table, nil
}

// PlayerTable returns the id of the table playerID sits at, if any.
func (m *GameManager) PlayerTable(playerID string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.seats[playerID]
	return id, ok
}

func (m *GameManager) tableOf(playerID string) (*table.Table, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.seats[playerID]
	if !ok {
		return nil, table.ErrNotSeated
	}
	e, ok := m.tables[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, id)
	}
	return e.table, nil
}

// Profile returns the player's profile, creating one with the starting
// bankroll for a new player. Seated players get their cached copy.
func (m *GameManager) Profile(ctx context.Context, playerID, displayName string) (store.Profile, error) {
	m.mu.RLock()
	cached, ok := m.profiles[playerID]
	var p store.Profile
	if ok {
		p = *cached
	}
	m.mu.RUnlock()
	if ok {
		return p, nil
	}

	p, err := m.store.Load(ctx, playerID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		p = store.Profile{PlayerID: playerID, Chips: m.bankroll, UpdatedAt: m.clock.Now()}
	case err != nil:
		return store.Profile{}, err
	}
	if displayName != "" {
		p.DisplayName = displayName
	}
	return p, nil
}

// JoinTable seats playerID with min(balance, buy-in) chips taken from their
// profile. seat < 0 picks the first free seat.
func (m *GameManager) JoinTable(ctx context.Context, playerID, displayName, tableID string, seat int) (int, error) {
	if playerID == "" {
		return -1, fmt.Errorf("%w: player id required", table.ErrNotSeated)
	}
	tbl, err := m.Table(tableID)
	if err != nil {
		return -1, err
	}

	m.mu.Lock()
	if _, seated := m.seats[playerID]; seated {
		m.mu.Unlock()
		return -1, table.ErrAlreadySeated
	}
	m.seats[playerID] = tableID
	m.mu.Unlock()

	release := func() {
		m.mu.Lock()
		delete(m.seats, playerID)
		delete(m.profiles, playerID)
		m.mu.Unlock()
	}

	p, err := m.Profile(ctx, playerID, displayName)
	if err != nil {
		release()
		return -1, fmt.Errorf("load profile: %w", err)
	}
	chips := min(p.Chips, tbl.Config().BuyIn)
	if chips <= 0 {
		release()
		return -1, fmt.Errorf("%w: balance is %d", table.ErrInsufficientChips, p.Chips)
	}

	debited := p
	debited.Chips -= chips
	debited.UpdatedAt = m.clock.Now()
	m.mu.Lock()
	m.profiles[playerID] = &debited
	m.mu.Unlock()

	idx, err := tbl.Join(table.Player{ID: playerID, Name: p.DisplayName, Chips: chips}, seat)
	if err != nil {
		release()
		return -1, err
	}
	m.writer.Save(debited)
	return idx, nil
}

// LeaveTable removes playerID from their table. Mid-hand the stack is
// credited back once the hand ends.
func (m *GameManager) LeaveTable(playerID string) error {
	tbl, err := m.tableOf(playerID)
	if err != nil {
		return err
	}
	return tbl.Leave(playerID)
}

func (m *GameManager) StartReadyUp(playerID string) error {
	tbl, err := m.tableOf(playerID)
	if err != nil {
		return err
	}
	return tbl.StartReadyUp(playerID)
}

func (m *GameManager) PlayerReady(playerID string) error {
	tbl, err := m.tableOf(playerID)
	if err != nil {
		return err
	}
	return tbl.Ready(playerID)
}

func (m *GameManager) SubmitAction(playerID string, a table.Action) error {
	tbl, err := m.tableOf(playerID)
	if err != nil {
		return err
	}
	return tbl.SubmitAction(playerID, a)
}

func (m *GameManager) SitOut(playerID string) error {
	tbl, err := m.tableOf(playerID)
	if err != nil {
		return err
	}
	return tbl.SitOut(playerID)
}

func (m *GameManager) SitIn(playerID string) error {
	tbl, err := m.tableOf(playerID)
	if err != nil {
		return err
	}
	return tbl.SitIn(playerID)
}

// InviteBot asks for a bot at tableID. Bots play with house chips.
func (m *GameManager) InviteBot(inviterID, tableID string, profile table.BotProfile, buyIn int) (table.InviteResult, error) {
	tbl, err := m.Table(tableID)
	if err != nil {
		return table.InviteResult{}, err
	}
	return tbl.InviteBot(inviterID, profile, buyIn)
}

func (m *GameManager) ApproveBot(playerID, inviteID string, approve bool) error {
	tbl, err := m.tableOf(playerID)
	if err != nil {
		return err
	}
	return tbl.ApproveBot(playerID, inviteID, approve)
}

// Disconnect starts the grace period for a seated player whose connection
// dropped. Unseated players are ignored.
func (m *GameManager) Disconnect(playerID string) {
	tbl, err := m.tableOf(playerID)
	if err != nil {
		return
	}
	if err := tbl.Disconnect(playerID); err != nil && !errors.Is(err, table.ErrNotSeated) {
		m.logger.Warn().Err(err).Str("player_id", playerID).Msg("Failed to mark player disconnected")
	}
}

// Reconnect reattaches a returning player to their seat. It reports whether
// the player had one.
func (m *GameManager) Reconnect(playerID string) (string, bool) {
	tbl, err := m.tableOf(playerID)
	if err != nil {
		return "", false
	}
	if err := tbl.Reconnect(playerID); err != nil {
		return "", false
	}
	return tbl.ID(), true
}

// TableState returns tableID as viewerID sees it.
func (m *GameManager) TableState(tableID, viewerID string) (table.TableState, error) {
	tbl, err := m.Table(tableID)
	if err != nil {
		return table.TableState{}, err
	}
	return tbl.State(viewerID), nil
}

// ListTables returns the public tables, ordered by name.
func (m *GameManager) ListTables() []table.Summary {
	m.mu.RLock()
	entries := make([]*tableEntry, 0, len(m.tables))
	for _, e := range m.tables {
		entries = append(entries, e)
	}
	m.mu.RUnlock()

	public := funk.Filter(entries, func(e *tableEntry) bool {
		return !e.table.Config().IsPrivate
	}).([]*tableEntry)
	summaries := funk.Map(public, func(e *tableEntry) table.Summary {
		return e.table.Summary()
	}).([]table.Summary)
	slices.SortFunc(summaries, func(a, b table.Summary) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return summaries
}

// CloseTable closes tableID; seated players are credited their stacks.
func (m *GameManager) CloseTable(tableID, reason string) error {
	tbl, err := m.Table(tableID)
	if err != nil {
		return err
	}
	return tbl.Close(reason)
}

// Shutdown closes every table and waits for pending profile saves.
func (m *GameManager) Shutdown(ctx context.Context) error {
	m.mu.RLock()
	tables := make([]*table.Table, 0, len(m.tables))
	for _, e := range m.tables {
		tables = append(tables, e.table)
	}
	m.mu.RUnlock()

	for _, tbl := range tables {
		if err := tbl.Close("server shutdown"); err != nil {
			m.logger.Warn().Err(err).Str("table_id", tbl.ID()).Msg("Failed to close table")
		}
	}

	done := make(chan struct{})
	go func() {
		m.writer.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for profile saves: %w", ctx.Err())
	}
}

// WaitForSaves blocks until queued profile saves have finished.
func (m *GameManager) WaitForSaves() {
	m.writer.Wait()
}

func (m *GameManager) onTableEvent(tableID string, ev table.Event) {
	switch e := ev.(type) {
	case table.PlayerLeft:
		if !e.Bot {
			m.settle(tableID, e)
		}
	case table.HandComplete:
		m.recordHand(e)
	case table.GameOver:
		m.logger.Info().Str("table_id", tableID).Str("winner_id", e.WinnerID).Int("hands", e.Hands).Msg("Game over")
	case table.TableClosed:
		m.mu.Lock()
		delete(m.tables, tableID)
		m.mu.Unlock()
	}

	m.mu.RLock()
	b := m.broadcaster
	m.mu.RUnlock()
	if b != nil {
		b.TableEvent(tableID, ev)
	}
}

// settle credits a departing player's stack back to their profile and
// closes a created table that has no humans left.
func (m *GameManager) settle(tableID string, e table.PlayerLeft) {
	m.mu.Lock()
	var saved *store.Profile
	if m.seats[e.PlayerID] == tableID {
		delete(m.seats, e.PlayerID)
		if p, ok := m.profiles[e.PlayerID]; ok {
			p.Chips += e.Chips
			p.UpdatedAt = m.clock.Now()
			saved = p
			delete(m.profiles, e.PlayerID)
		}
	}
	entry := m.tables[tableID]
	m.mu.Unlock()

	if saved != nil {
		m.logger.Info().Str("player_id", e.PlayerID).Int("stack", e.Chips).Int("balance", saved.Chips).Str("reason", e.Reason).Msg("Credited stack")
		m.writer.Save(*saved)
	}

	if entry == nil || entry.persistent {
		return
	}
	st := entry.table.State("")
	if st.Phase == table.PhaseClosed {
		return
	}
	humans := funk.Filter(st.Seats, func(s *table.SeatView) bool {
		return s != nil && !s.Bot
	}).([]*table.SeatView)
	if len(humans) == 0 {
		if err := entry.table.Close("no players left"); err != nil {
			m.logger.Warn().Err(err).Str("table_id", tableID).Msg("Failed to close empty table")
		}
	}
}

func (m *GameManager) recordHand(e table.HandComplete) {
	winners := funk.Map(e.Winners, func(w table.Winner) string { return w.PlayerID }).([]string)

	m.mu.Lock()
	var updated []store.Profile
	for _, id := range e.Players {
		p, ok := m.profiles[id]
		if !ok {
			continue
		}
		p.HandsPlayed++
		if funk.ContainsString(winners, id) {
			p.HandsWon++
		}
		p.UpdatedAt = m.clock.Now()
		updated = append(updated, *p)
	}
	m.mu.Unlock()

	for _, p := range updated {
		m.writer.Save(p)
	}
}
