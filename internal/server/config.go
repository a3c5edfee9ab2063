package server

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/thoas/go-funk"

	"github.com/lox/pokerroom/internal/bot"
	"github.com/lox/pokerroom/internal/table"
)

// ServerConfig is the optional HCL file read at boot. Tables declared in it
// are created when the server starts and are never destroyed for being
// empty; bots are seated at the tables they name.
type ServerConfig struct {
	Server *ServerSettings `hcl:"server,block"`
	Tables []TableConfig   `hcl:"table,block"`
	Bots   []BotConfig     `hcl:"bot,block"`
}

// ServerSettings holds process-level settings.
type ServerSettings struct {
	Address          string `hcl:"address,optional"`
	StartingBankroll int    `hcl:"starting_bankroll,optional"`
	BotThinkTime     string `hcl:"bot_think_time,optional"`

	// AllowedOrigins lists origins browsers may call the HTTP API from.
	AllowedOrigins []string `hcl:"allowed_origins,optional"`
}

// TableConfig declares one table. Durations use Go syntax ("30s", "10m").
type TableConfig struct {
	Name          string `hcl:"name,label"`
	MaxPlayers    int    `hcl:"max_players,optional"`
	SmallBlind    int    `hcl:"small_blind"`
	BigBlind      int    `hcl:"big_blind"`
	BuyIn         int    `hcl:"buy_in,optional"`
	TurnTime      string `hcl:"turn_time,optional"`
	ReadyUp       string `hcl:"ready_up,optional"`
	Countdown     string `hcl:"countdown,optional"`
	BlindIncrease string `hcl:"blind_increase,optional"`
	Private       bool   `hcl:"private,optional"`
	AutoStart     bool   `hcl:"auto_start,optional"`
}

// BotConfig seats a bot at each listed table, or at every table when none
// are listed.
type BotConfig struct {
	Name     string   `hcl:"name,label"`
	Strategy string   `hcl:"strategy"`
	Tables   []string `hcl:"tables,optional"`
	BuyIn    int      `hcl:"buy_in,optional"`
}

const (
	defaultAddress          = ":8080"
	defaultStartingBankroll = 10000
)

// DefaultServerConfig is used when no config file exists: one public
// auto-starting table and no bots.
func DefaultServerConfig() *ServerConfig {
	cfg := &ServerConfig{
		Tables: []TableConfig{{
			Name:       "main",
			MaxPlayers: 6,
			SmallBlind: 10,
			BigBlind:   20,
			AutoStart:  true,
		}},
	}
	cfg.applyDefaults()
	return cfg
}

// LoadServerConfig reads an HCL config file. A missing file yields the
// defaults.
func LoadServerConfig(filename string) (*ServerConfig, error) {
	src, err := os.ReadFile(filename)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultServerConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return ParseServerConfig(src, filename)
}

// ParseServerConfig decodes and validates HCL source.
func ParseServerConfig(src []byte, filename string) (*ServerConfig, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var cfg ServerConfig
	if diags := gohcl.DecodeBody(file.Body, nil, &cfg); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *ServerConfig) applyDefaults() {
	if c.Server == nil {
		c.Server = &ServerSettings{}
	}
	if c.Server.Address == "" {
		c.Server.Address = defaultAddress
	}
	if c.Server.StartingBankroll == 0 {
		c.Server.StartingBankroll = defaultStartingBankroll
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"*"}
	}
	for i := range c.Bots {
		if len(c.Bots[i].Tables) == 0 {
			c.Bots[i].Tables = funk.Map(c.Tables, func(t TableConfig) string { return t.Name }).([]string)
		}
	}
}

// Validate checks every table against the engine's own config rules and
// every bot against the known strategies and tables.
func (c *ServerConfig) Validate() error {
	if c.Server != nil {
		if c.Server.StartingBankroll < 0 {
			return fmt.Errorf("starting_bankroll must not be negative")
		}
		if _, err := c.Server.ThinkTime(); err != nil {
			return err
		}
	}

	names := make([]string, 0, len(c.Tables))
	for _, tc := range c.Tables {
		if funk.ContainsString(names, tc.Name) {
			return fmt.Errorf("table %s: declared twice", tc.Name)
		}
		names = append(names, tc.Name)
		cfg, err := tc.TableConfig()
		if err != nil {
			return err
		}
		if err := cfg.WithDefaults().Validate(); err != nil {
			return fmt.Errorf("table %s: %w", tc.Name, err)
		}
	}

	for _, b := range c.Bots {
		if !funk.ContainsString(bot.Strategies, strings.ToLower(b.Strategy)) {
			return fmt.Errorf("bot %s: invalid strategy %q (want one of %s)", b.Name, b.Strategy, strings.Join(bot.Strategies, ", "))
		}
		if b.BuyIn < 0 {
			return fmt.Errorf("bot %s: buy_in must not be negative", b.Name)
		}
		for _, name := range b.Tables {
			if !funk.ContainsString(names, name) {
				return fmt.Errorf("bot %s: unknown table %q", b.Name, name)
			}
		}
	}
	return nil
}

// ThinkTime parses bot_think_time. Empty means the bot package default.
func (s *ServerSettings) ThinkTime() (time.Duration, error) {
	if s.BotThinkTime == "" {
		return bot.DefaultThinkTime, nil
	}
	d, err := time.ParseDuration(s.BotThinkTime)
	if err != nil {
		return 0, fmt.Errorf("bot_think_time: %w", err)
	}
	return d, nil
}

// TableConfig converts the block to an engine config. The table has no
// creator, so any seated player may start it.
func (tc TableConfig) TableConfig() (table.Config, error) {
	cfg := table.Config{
		Name:       tc.Name,
		MaxPlayers: tc.MaxPlayers,
		SmallBlind: tc.SmallBlind,
		BigBlind:   tc.BigBlind,
		BuyIn:      tc.BuyIn,
		IsPrivate:  tc.Private,
		AutoStart:  tc.AutoStart,
	}
	durations := []struct {
		name string
		src  string
		dst  *time.Duration
	}{
		{"turn_time", tc.TurnTime, &cfg.TurnTimeLimit},
		{"ready_up", tc.ReadyUp, &cfg.ReadyUpDuration},
		{"countdown", tc.Countdown, &cfg.CountdownDuration},
		{"blind_increase", tc.BlindIncrease, &cfg.BlindIncreaseInterval},
	}
	for _, d := range durations {
		if d.src == "" {
			continue
		}
		v, err := time.ParseDuration(d.src)
		if err != nil {
			return table.Config{}, fmt.Errorf("table %s: %s: %w", tc.Name, d.name, err)
		}
		*d.dst = v
	}
	return cfg, nil
}

// BotsForTable returns the bots configured for the named table.
func (c *ServerConfig) BotsForTable(name string) []BotConfig {
	return funk.Filter(c.Bots, func(b BotConfig) bool {
		return funk.ContainsString(b.Tables, name)
	}).([]BotConfig)
}
