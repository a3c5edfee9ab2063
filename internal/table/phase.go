package table

import "fmt"

// Phase is a state of the table state machine.
type Phase uint8

const (
	PhaseWaiting Phase = iota
	PhaseReadyUp
	PhaseCountdown
	PhasePreflop
	PhaseFlop
	PhaseTurn
	PhaseRiver
	PhaseShowdown
	PhaseClosed
)

var phaseNames = [...]string{"waiting", "ready_up", "countdown", "preflop", "flop", "turn", "river", "showdown", "closed"}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("phase(%d)", uint8(p))
}

// IsBetting reports whether actions are accepted in this phase.
func (p Phase) IsBetting() bool {
	return p >= PhasePreflop && p <= PhaseRiver
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a phase name.
func (p *Phase) UnmarshalText(text []byte) error {
	for i, name := range phaseNames {
		if name == string(text) {
			*p = Phase(i)
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", text)
}
