package table

import (
	"errors"

	"github.com/lox/pokerroom/poker"
)

// Caller-facing errors. Rule violations wrap ErrIllegalAction with a message
// naming the rule that was broken.
var (
	ErrIllegalAction       = errors.New("illegal action")
	ErrNotYourTurn         = errors.New("not your turn")
	ErrWrongPhase          = errors.New("wrong phase")
	ErrTableFull           = errors.New("table full")
	ErrSeatTaken           = errors.New("seat taken")
	ErrAlreadySeated       = errors.New("already seated")
	ErrNotSeated           = errors.New("not seated")
	ErrNotCreator          = errors.New("only the table creator can do that")
	ErrInsufficientPlayers = errors.New("not enough players")
	ErrInvalidSeat         = errors.New("invalid seat")
	ErrInvalidConfig       = errors.New("invalid table config")
	ErrTableClosed         = errors.New("table closed")
	ErrNoPendingInvite     = errors.New("no pending bot invite")
	ErrInsufficientChips   = errors.New("insufficient chips")
)

// errStale marks a timer callback whose state has been superseded.
var errStale = errors.New("stale timer")

var codes = []struct {
	err  error
	code string
}{
	{ErrIllegalAction, "illegal_action"},
	{ErrNotYourTurn, "not_your_turn"},
	{ErrWrongPhase, "wrong_phase"},
	{ErrTableFull, "table_full"},
	{ErrSeatTaken, "seat_taken"},
	{ErrAlreadySeated, "already_seated"},
	{ErrNotSeated, "not_seated"},
	{ErrNotCreator, "not_creator"},
	{ErrInsufficientPlayers, "insufficient_players"},
	{ErrInvalidSeat, "invalid_seat"},
	{ErrInvalidConfig, "invalid_config"},
	{ErrTableClosed, "table_closed"},
	{ErrNoPendingInvite, "no_pending_invite"},
	{ErrInsufficientChips, "insufficient_chips"},
	{poker.ErrDeckExhausted, "deck_exhausted"},
}

// Code returns a stable snake_case identifier for err, suitable for clients.
// Unknown errors map to "internal".
func Code(err error) string {
	if err == nil {
		return ""
	}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "internal"
}
