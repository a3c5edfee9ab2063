package table

import (
	"fmt"
	"strings"
)

// ActionKind enumerates the moves a seat can make on its turn.
type ActionKind uint8

const (
	ActionFold ActionKind = iota
	ActionCheck
	ActionCall
	ActionBet
	ActionRaise
	ActionAllIn
)

var actionNames = [...]string{"fold", "check", "call", "bet", "raise", "allin"}

func (k ActionKind) String() string {
	if int(k) < len(actionNames) {
		return actionNames[k]
	}
	return fmt.Sprintf("action(%d)", uint8(k))
}

// MarshalText encodes the kind by name.
func (k ActionKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText accepts the names produced by String plus "all_in" and "all-in".
func (k *ActionKind) UnmarshalText(text []byte) error {
	parsed, err := ParseActionKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseActionKind parses an action name.
func ParseActionKind(s string) (ActionKind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	name = strings.NewReplacer("_", "", "-", "").Replace(name)
	for i, n := range actionNames {
		if n == name {
			return ActionKind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown action %q", ErrIllegalAction, s)
}

// Action is a seat's move. Amount is only meaningful for Bet (chips put in)
// and Raise (the total the seat's street bet is raised to).
type Action struct {
	Kind   ActionKind `json:"kind"`
	Amount int        `json:"amount,omitempty"`
}

func Fold() Action          { return Action{Kind: ActionFold} }
func Check() Action         { return Action{Kind: ActionCheck} }
func Call() Action          { return Action{Kind: ActionCall} }
func Bet(amount int) Action { return Action{Kind: ActionBet, Amount: amount} }
func Raise(to int) Action   { return Action{Kind: ActionRaise, Amount: to} }
func AllIn() Action         { return Action{Kind: ActionAllIn} }

func (a Action) String() string {
	switch a.Kind {
	case ActionBet, ActionRaise:
		return fmt.Sprintf("%s %d", a.Kind, a.Amount)
	default:
		return a.Kind.String()
	}
}

// ParseAction validates a loosely typed payload from a client. Amounts are
// required for bet and raise and rejected elsewhere.
func ParseAction(kind string, amount int) (Action, error) {
	k, err := ParseActionKind(kind)
	if err != nil {
		return Action{}, err
	}
	switch k {
	case ActionBet, ActionRaise:
		if amount <= 0 {
			return Action{}, fmt.Errorf("%w: %s requires a positive amount", ErrIllegalAction, k)
		}
		return Action{Kind: k, Amount: amount}, nil
	default:
		if amount != 0 {
			return Action{}, fmt.Errorf("%w: %s does not take an amount", ErrIllegalAction, k)
		}
		return Action{Kind: k}, nil
	}
}
