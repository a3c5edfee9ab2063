package table

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config describes a table. Durations of zero take the defaults.
type Config struct {
	Name                  string        `json:"name" validate:"required,max=64"`
	MaxPlayers            int           `json:"max_players" validate:"min=2,max=9"`
	SmallBlind            int           `json:"small_blind" validate:"gt=0"`
	BigBlind              int           `json:"big_blind" validate:"gtfield=SmallBlind"`
	BuyIn                 int           `json:"buy_in" validate:"gtefield=BigBlind"`
	TurnTimeLimit         time.Duration `json:"turn_time_limit" validate:"gt=0s"`
	ReadyUpDuration       time.Duration `json:"ready_up_duration" validate:"gt=0s"`
	CountdownDuration     time.Duration `json:"countdown_duration" validate:"gte=0s"`
	ShowdownDelay         time.Duration `json:"showdown_delay" validate:"gte=0s"`
	DisconnectGrace       time.Duration `json:"disconnect_grace" validate:"gte=0s"`
	BlindIncreaseInterval time.Duration `json:"blind_increase_interval" validate:"gte=0s"`
	IsPrivate             bool          `json:"is_private"`
	CreatorID             string        `json:"creator_id"`

	// AutoStart begins the next ready-up as soon as a hand finishes.
	AutoStart bool `json:"auto_start"`
}

// DefaultConfig returns the settings used for tables created without overrides.
func DefaultConfig() Config {
	return Config{
		Name:              "table",
		MaxPlayers:        6,
		SmallBlind:        10,
		BigBlind:          20,
		BuyIn:             1000,
		TurnTimeLimit:     30 * time.Second,
		ReadyUpDuration:   20 * time.Second,
		CountdownDuration: 3 * time.Second,
		ShowdownDelay:     5 * time.Second,
		DisconnectGrace:   60 * time.Second,
	}
}

// WithDefaults fills zero fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.Name == "" {
		c.Name = d.Name
	}
	if c.MaxPlayers == 0 {
		c.MaxPlayers = d.MaxPlayers
	}
	if c.SmallBlind == 0 && c.BigBlind == 0 {
		c.SmallBlind, c.BigBlind = d.SmallBlind, d.BigBlind
	}
	if c.BuyIn == 0 {
		c.BuyIn = c.BigBlind * 50
	}
	if c.TurnTimeLimit == 0 {
		c.TurnTimeLimit = d.TurnTimeLimit
	}
	if c.ReadyUpDuration == 0 {
		c.ReadyUpDuration = d.ReadyUpDuration
	}
	if c.CountdownDuration == 0 {
		c.CountdownDuration = d.CountdownDuration
	}
	if c.ShowdownDelay == 0 {
		c.ShowdownDelay = d.ShowdownDelay
	}
	if c.DisconnectGrace == 0 {
		c.DisconnectGrace = d.DisconnectGrace
	}
	return c
}

// Accelerated returns a copy with every timer divided by factor, for
// simulation and tests. The blind schedule is scaled too.
func (c Config) Accelerated(factor int) Config {
	if factor <= 1 {
		return c
	}
	f := time.Duration(factor)
	c.TurnTimeLimit /= f
	c.ReadyUpDuration /= f
	c.CountdownDuration /= f
	c.ShowdownDelay /= f
	c.DisconnectGrace /= f
	c.BlindIncreaseInterval /= f
	return c
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the config and wraps ErrInvalidConfig with every problem found.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, formatFieldError(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, ", "))
}

func formatFieldError(fe validator.FieldError) string {
	field, param := fe.Field(), fe.Param()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters long", field, param)
		}
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, param)
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "gtfield":
		return fmt.Sprintf("%s must be greater than %s", field, param)
	case "gtefield":
		return fmt.Sprintf("%s must be at least %s", field, param)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
