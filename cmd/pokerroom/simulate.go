package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lox/pokerroom/cmd/pokerroom/shared"
	"github.com/lox/pokerroom/internal/bot"
	"github.com/lox/pokerroom/internal/randutil"
	"github.com/lox/pokerroom/internal/table"
)

// SimulateCmd plays bot-only tables at accelerated speed and checks that
// chips are conserved after every hand.
type SimulateCmd struct {
	Tables     int           `default:"4" help:"Tables to run concurrently"`
	Players    int           `default:"6" help:"Bots per table (2-9)"`
	Games      int           `default:"10" help:"Games (until one bot holds every chip) per table"`
	MaxHands   int           `default:"2000" help:"Abandon a game after this many hands"`
	Strategies []string      `default:"calling,aggressive,random,fold" help:"Bot strategies, assigned to seats round-robin"`
	Speed      int           `default:"1000" help:"Divide every table timer by this factor"`
	Stall      time.Duration `default:"10s" help:"Abandon a game when no hand completes for this long"`
	Seed       int64         `help:"Deterministic RNG seed (0 for random)"`
	Debug      bool          `help:"Enable debug logging"`
}

type simStats struct {
	mu         sync.Mutex
	wins       map[string]int
	seats      map[string]int
	games      int
	unfinished int
	hands      int
	forced     int
	violations []string
}

func (s *simStats) record(fn func(*simStats)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
}

func (c *SimulateCmd) Run() error {
	if c.Players < 2 || c.Players > 9 {
		return fmt.Errorf("--players must be between 2 and 9, got %d", c.Players)
	}
	for _, name := range c.Strategies {
		if !isStrategy(name) {
			return fmt.Errorf("unknown strategy %q (want one of %s)", name, strings.Join(bot.Strategies, ", "))
		}
	}

	logger := shared.SetupLogger(c.Debug)
	if !c.Debug {
		logger = logger.Level(zerolog.WarnLevel)
	}
	ctx := shared.SetupSignalHandler(logger)

	stats := &simStats{wins: make(map[string]int), seats: make(map[string]int)}
	start := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < c.Tables; i++ {
		g.Go(func() error {
			return c.runTable(ctx, logger, i, stats)
		})
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	c.report(stats, time.Since(start))
	if len(stats.violations) > 0 {
		return fmt.Errorf("%d chip conservation violations", len(stats.violations))
	}
	return nil
}

func isStrategy(name string) bool {
	for _, s := range bot.Strategies {
		if s == name {
			return true
		}
	}
	return false
}

// simTable tracks one table's bots and the progress of its current game.
type simTable struct {
	tbl      *table.Table
	total    int
	strategy map[string]string // bot id to strategy
	gameOver chan table.GameOver
	hands    chan struct{}
}

func (c *SimulateCmd) runTable(ctx context.Context, logger zerolog.Logger, n int, stats *simStats) error {
	cfg := table.DefaultConfig()
	cfg.Name = fmt.Sprintf("sim-%d", n+1)
	cfg.MaxPlayers = c.Players
	cfg.AutoStart = true
	cfg.BlindIncreaseInterval = 10 * time.Minute
	cfg = cfg.Accelerated(c.Speed)

	opts := []table.Option{table.WithLogger(logger), table.WithClock(quartz.NewReal())}
	driverOpts := []bot.Option{bot.WithThinkTime(0), bot.WithLogger(logger)}
	if c.Seed != 0 {
		opts = append(opts, table.WithRNG(randutil.New(c.Seed+int64(n))))
		driverOpts = append(driverOpts, bot.WithRNG(randutil.New(c.Seed-int64(n)-1)))
	}
	tbl, err := table.NewTable(cfg, opts...)
	if err != nil {
		return err
	}
	defer func() { _ = tbl.Close("simulation finished") }()

	st := &simTable{
		tbl:      tbl,
		total:    c.Players * tbl.Config().BuyIn,
		strategy: make(map[string]string),
		gameOver: make(chan table.GameOver, 1),
		hands:    make(chan struct{}, 64),
	}
	tbl.AddObserver(table.ObserverFunc(func(_ string, ev table.Event) {
		st.onEvent(ev, stats)
	}))
	tbl.AddObserver(bot.NewDriver(tbl, driverOpts...))

	for game := 0; game < c.Games; game++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if game > 0 {
			if err := tbl.ResetGame(); err != nil {
				return err
			}
		}
		if err := c.seatBots(st); err != nil {
			return err
		}
		st.drain()
		if err := tbl.StartReadyUp(""); err != nil {
			return fmt.Errorf("%s: start game %d: %w", cfg.Name, game+1, err)
		}
		if err := c.playGame(ctx, st, stats); err != nil {
			return err
		}
	}
	return nil
}

// seatBots fills empty seats with bots. Bots that busted in the previous
// game were removed from the table.
func (c *SimulateCmd) seatBots(st *simTable) error {
	seated := make(map[string]bool)
	for _, s := range st.tbl.State("").Seats {
		if s != nil {
			seated[s.PlayerID] = true
		}
	}
	for id := range st.strategy {
		if !seated[id] {
			delete(st.strategy, id)
		}
	}

	counts := make(map[string]int)
	for _, name := range st.strategy {
		counts[name]++
	}
	for i := 0; i < c.Players; i++ {
		name := c.Strategies[i%len(c.Strategies)]
		if counts[name] > 0 {
			counts[name]--
			continue
		}
		res, err := st.tbl.InviteBot("", table.BotProfile{
			Name:     fmt.Sprintf("%s-%d", name, i+1),
			Strategy: name,
		}, 0)
		if err != nil {
			return fmt.Errorf("seat %s bot: %w", name, err)
		}
		st.strategy[res.BotID] = name
	}
	return nil
}

func (c *SimulateCmd) playGame(ctx context.Context, st *simTable, stats *simStats) error {
	stall := time.NewTimer(c.Stall)
	defer stall.Stop()

	for _, name := range st.strategy {
		stats.record(func(s *simStats) { s.seats[name]++ })
	}

	hands := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case over := <-st.gameOver:
			stats.record(func(s *simStats) {
				s.games++
				s.wins[st.strategy[over.WinnerID]]++
			})
			return nil
		case <-st.hands:
			hands++
			if hands >= c.MaxHands {
				stats.record(func(s *simStats) { s.unfinished++ })
				return nil
			}
			stall.Reset(c.Stall)
		case <-stall.C:
			stats.record(func(s *simStats) { s.unfinished++ })
			return nil
		}
	}
}

// drain drops signals left over from the previous game.
func (st *simTable) drain() {
	for {
		select {
		case <-st.hands:
		case <-st.gameOver:
		default:
			return
		}
	}
}

func (st *simTable) onEvent(ev table.Event, stats *simStats) {
	switch e := ev.(type) {
	case table.HandComplete:
		view := st.tbl.State("")
		sum := 0
		for _, s := range view.Seats {
			if s == nil {
				continue
			}
			sum += s.Chips
			if view.Phase.IsBetting() {
				sum += s.TotalBet
			}
		}
		stats.record(func(s *simStats) {
			s.hands++
			if e.Forced {
				s.forced++
			}
			// A reset may land before this observer runs.
			if view.HandsPlayed < e.HandNumber || view.Phase == table.PhaseClosed || sum == st.total {
				return
			}
			s.violations = append(s.violations, fmt.Sprintf("%s hand %d: %d chips, want %d", view.Name, e.HandNumber, sum, st.total))
		})
		select {
		case st.hands <- struct{}{}:
		default:
		}
	case table.GameOver:
		select {
		case st.gameOver <- e:
		default:
		}
	}
}

func (c *SimulateCmd) report(stats *simStats, elapsed time.Duration) {
	names := make([]string, 0, len(stats.seats))
	for name := range stats.seats {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if stats.wins[names[i]] != stats.wins[names[j]] {
			return stats.wins[names[i]] > stats.wins[names[j]]
		}
		return names[i] < names[j]
	})

	fmt.Printf("Simulated %d games (%d unfinished) over %d hands in %s (%.0f hands/sec)\n\n",
		stats.games, stats.unfinished, stats.hands, elapsed.Round(time.Millisecond),
		float64(stats.hands)/elapsed.Seconds())

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STRATEGY\tSEATS\tWINS\tWIN RATE")
	for _, name := range names {
		rate := 0.0
		if stats.seats[name] > 0 {
			rate = 100 * float64(stats.wins[name]) / float64(stats.seats[name])
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%.1f%%\n", name, stats.seats[name], stats.wins[name], rate)
	}
	_ = w.Flush()

	fmt.Printf("\nForced resolutions: %d\n", stats.forced)
	fmt.Printf("Conservation violations: %d\n", len(stats.violations))
	for _, v := range stats.violations {
		fmt.Printf("  %s\n", v)
	}
}
