package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lox/pokerroom/cmd/pokerroom/shared"
	"github.com/lox/pokerroom/internal/server"
	"github.com/lox/pokerroom/internal/store"
)

// ServerCmd runs the websocket server.
type ServerCmd struct {
	Addr             string        `env:"POKERROOM_ADDR" help:"Listen address (overrides the config file)"`
	Config           string        `default:"pokerroom.hcl" env:"POKERROOM_CONFIG" help:"HCL file declaring tables and bots; defaults apply when missing"`
	Debug            bool          `env:"POKERROOM_DEBUG" help:"Enable debug logging"`
	JSONLogs         bool          `name:"json-logs" env:"POKERROOM_JSON_LOGS" help:"Log JSON instead of console output"`
	Store            string        `default:"memory" enum:"memory,file,redis,sql" env:"POKERROOM_STORE" help:"Profile store backend (memory, file, redis, sql)"`
	StoreFile        string        `default:"profiles.json" env:"POKERROOM_STORE_FILE" help:"Profile file for the file store"`
	RedisAddr        string        `default:"localhost:6379" env:"REDIS_ADDR" help:"Redis address for the redis store"`
	RedisPassword    string        `env:"REDIS_PASSWORD" help:"Redis password"`
	RedisDB          int           `env:"REDIS_DB" help:"Redis database number"`
	ProfileTTL       time.Duration `env:"POKERROOM_PROFILE_TTL" help:"Expire idle redis profiles after this long (0 keeps them)"`
	DatabaseURL      string        `env:"DATABASE_URL" help:"Postgres DSN for the sql store"`
	StartingBankroll int           `env:"POKERROOM_STARTING_BANKROLL" help:"Chips given to new players (overrides the config file)"`
	Seed             int64         `help:"Deterministic RNG seed for shuffles and bots (0 for random)"`
}

func (c *ServerCmd) Run() error {
	logger := shared.NewLogger(c.Debug, c.JSONLogs)

	cfg, err := server.LoadServerConfig(c.Config)
	if err != nil {
		return err
	}
	if c.Addr != "" {
		cfg.Server.Address = c.Addr
	}
	if c.StartingBankroll > 0 {
		cfg.Server.StartingBankroll = c.StartingBankroll
	}
	think, err := cfg.Server.ThinkTime()
	if err != nil {
		return err
	}

	ctx := shared.SetupSignalHandler(logger)
	st, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn().Err(err).Msg("Closing profile store")
		}
	}()

	opts := []server.ManagerOption{
		server.WithStartingBankroll(cfg.Server.StartingBankroll),
		server.WithBotThinkTime(think),
	}
	if c.Seed != 0 {
		logger.Info().Int64("seed", c.Seed).Msg("Using deterministic seed")
		opts = append(opts, server.WithSeed(c.Seed))
	}
	manager := server.NewGameManager(logger, st, opts...)
	if err := manager.Bootstrap(cfg); err != nil {
		return fmt.Errorf("bootstrap tables: %w", err)
	}
	srv := server.NewServer(logger, manager, server.WithAllowedOrigins(cfg.Server.AllowedOrigins...))

	logger.Info().
		Str("address", cfg.Server.Address).
		Str("store", c.Store).
		Int("tables", len(cfg.Tables)).
		Int("bots", len(cfg.Bots)).
		Int("starting_bankroll", cfg.Server.StartingBankroll).
		Dur("bot_think_time", think).
		Msg("Starting pokerroom server")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Serve(ctx, cfg.Server.Address)
	})
	g.Go(func() error {
		reportLobby(ctx, logger, manager, time.Minute)
		return nil
	})
	return g.Wait()
}

func (c *ServerCmd) openStore(ctx context.Context) (store.Store, error) {
	switch c.Store {
	case "file":
		return store.NewFileStore(c.StoreFile)
	case "redis":
		return store.NewRedisStore(ctx, c.RedisAddr, c.RedisPassword, c.RedisDB, c.ProfileTTL)
	case "sql":
		if c.DatabaseURL == "" {
			return nil, fmt.Errorf("--database-url (or DATABASE_URL) is required for the sql store")
		}
		return store.NewSQLStore(c.DatabaseURL)
	default:
		return store.NewMemoryStore(), nil
	}
}

// reportLobby logs a lobby summary every interval until ctx ends.
func reportLobby(ctx context.Context, logger zerolog.Logger, manager *server.GameManager, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tables := manager.ListTables()
			players, hands := 0, 0
			for _, t := range tables {
				players += t.Players
				hands += t.HandsPlayed
			}
			logger.Info().Int("tables", len(tables)).Int("players", players).Int("hands", hands).Msg("Lobby status")
		}
	}
}
