// Package bot plays table seats that belong to bots. Strategies turn a
// redacted table view into an action; the Driver watches a table and submits
// those actions through the same API human players use.
package bot

import (
	rand "math/rand/v2"
	"slices"
	"strings"

	"github.com/lox/pokerroom/internal/table"
	"github.com/lox/pokerroom/poker"
)

// Strategy decides a bot's action from its own view of the table. The view
// is the bot's redacted state, so LegalActions, ToCall and MinRaiseTo are set.
type Strategy interface {
	Name() string
	Decide(view table.TableState, rng *rand.Rand) table.Action
}

// Strategies lists the built-in strategy names.
var Strategies = []string{"calling", "aggressive", "random", "fold"}

// ResolveStrategy maps a strategy name or alias to a strategy. Unknown names
// play randomly.
func ResolveStrategy(name string) Strategy {
	switch strings.ToLower(name) {
	case "calling", "calling-station", "station", "call":
		return callingStation{}
	case "aggressive", "aggro":
		return aggressive{}
	case "fold", "folder", "tight":
		return folder{}
	default:
		return random{}
	}
}

func legal(view table.TableState, kind table.ActionKind) bool {
	return slices.Contains(view.LegalActions, kind)
}

func me(view table.TableState) *table.SeatView {
	return view.Seat(view.ViewerSeat)
}

// passive checks, then calls, then goes all-in for a call it cannot cover.
func passive(view table.TableState) table.Action {
	switch {
	case legal(view, table.ActionCheck):
		return table.Check()
	case legal(view, table.ActionCall):
		return table.Call()
	case legal(view, table.ActionAllIn) && view.ToCall > 0 && me(view) != nil && me(view).Chips <= view.ToCall:
		return table.AllIn()
	}
	return table.Fold()
}

// aggress bets or raises to roughly 'to', clamped to what the seat can put in.
func aggress(view table.TableState, to int) (table.Action, bool) {
	s := me(view)
	if s == nil {
		return table.Action{}, false
	}
	stack := s.CurrentBet + s.Chips
	switch {
	case legal(view, table.ActionBet):
		amount := max(to, view.BigBlind)
		if amount >= s.Chips {
			return table.AllIn(), legal(view, table.ActionAllIn)
		}
		return table.Bet(amount), true
	case legal(view, table.ActionRaise):
		amount := max(to, view.MinRaiseTo)
		if amount >= stack {
			return table.AllIn(), legal(view, table.ActionAllIn)
		}
		return table.Raise(amount), true
	case legal(view, table.ActionAllIn) && s.Chips <= view.ToCall:
		return table.AllIn(), true
	}
	return table.Action{}, false
}

type callingStation struct{}

func (callingStation) Name() string { return "calling" }

func (callingStation) Decide(view table.TableState, _ *rand.Rand) table.Action {
	return passive(view)
}

type folder struct{}

func (folder) Name() string { return "fold" }

func (folder) Decide(view table.TableState, _ *rand.Rand) table.Action {
	if legal(view, table.ActionCheck) {
		return table.Check()
	}
	return table.Fold()
}

// aggressive raises most of the time, and always with a strong starting hand.
type aggressive struct{}

func (aggressive) Name() string { return "aggressive" }

func (aggressive) Decide(view table.TableState, rng *rand.Rand) table.Action {
	odds := float32(0.7)
	if s := me(view); s != nil && len(s.HoleCards) == 2 && len(view.Board) == 0 {
		switch cat := poker.CategorizeHoleCards(s.HoleCards[0], s.HoleCards[1]); {
		case cat.AtLeast(poker.CategoryStrong):
			odds = 1
		case cat == poker.CategoryTrash:
			odds = 0.3
		}
	}
	if rng.Float32() < odds {
		to := view.MinRaiseTo
		if view.Pot > 0 {
			to = view.CurrentBet + view.Pot*(2+rng.IntN(2))
		}
		if a, ok := aggress(view, to); ok {
			return a
		}
	}
	return passive(view)
}

type random struct{}

func (random) Name() string { return "random" }

func (random) Decide(view table.TableState, rng *rand.Rand) table.Action {
	if len(view.LegalActions) == 0 {
		return table.Fold()
	}
	s := me(view)
	kind := view.LegalActions[rng.IntN(len(view.LegalActions))]
	switch kind {
	case table.ActionBet:
		lo, hi := min(view.BigBlind, s.Chips), s.Chips
		return table.Bet(lo + rng.IntN(hi-lo+1))
	case table.ActionRaise:
		lo, hi := view.MinRaiseTo, s.CurrentBet+s.Chips
		return table.Raise(lo + rng.IntN(hi-lo+1))
	}
	return table.Action{Kind: kind}
}
