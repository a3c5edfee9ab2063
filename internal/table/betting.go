package table

import "fmt"

// BettingRound enforces turn order and bet sizing for one street. It
// operates directly on the table's seat slice.
type BettingRound struct {
	seats         []*Seat
	bigBlind      int
	currentBet    int
	minRaise      int
	lastAggressor int
	acted         []bool // acted since the last full raise
	facedBet      []int  // currentBet right after the seat last acted
}

// NewBettingRound starts a street. currentBet is the big blind preflop and
// zero on later streets.
func NewBettingRound(seats []*Seat, bigBlind, currentBet int) *BettingRound {
	return &BettingRound{
		seats:         seats,
		bigBlind:      bigBlind,
		currentBet:    currentBet,
		minRaise:      bigBlind,
		lastAggressor: -1,
		acted:         make([]bool, len(seats)),
		facedBet:      make([]int, len(seats)),
	}
}

// markPosted records a forced bet as the seat's action, so a pot that is
// only called around closes without returning to the big blind.
func (br *BettingRound) markPosted(i int) {
	br.acted[i] = true
	br.facedBet[i] = br.currentBet
}

// CurrentBet is the street-level amount every live seat must match.
func (br *BettingRound) CurrentBet() int { return br.currentBet }

// MinRaise is the smallest legal raise increment.
func (br *BettingRound) MinRaise() int { return br.minRaise }

// LastAggressor is the seat that last bet or raised, or -1.
func (br *BettingRound) LastAggressor() int { return br.lastAggressor }

// ToCall returns the chips seat i needs to match the current bet.
func (br *BettingRound) ToCall(i int) int {
	s := br.seats[i]
	if s == nil {
		return 0
	}
	return max(br.currentBet-s.CurrentBet, 0)
}

// canRaise implements the incomplete-raise rule: a seat that already acted
// may only re-raise once it faces at least a full raise since it last acted.
func (br *BettingRound) canRaise(i int) bool {
	return !br.acted[i] || br.currentBet-br.facedBet[i] >= br.minRaise
}

// MinRaiseTo returns the smallest total seat i may raise to, capped by its stack.
func (br *BettingRound) MinRaiseTo(i int) int {
	s := br.seats[i]
	return min(br.currentBet+br.minRaise, s.CurrentBet+s.Chips)
}

// LegalActions lists the kinds seat i may submit right now.
func (br *BettingRound) LegalActions(i int) []ActionKind {
	s := br.seats[i]
	if !s.CanAct() {
		return nil
	}
	toCall := br.ToCall(i)
	kinds := []ActionKind{ActionFold}
	if toCall == 0 {
		kinds = append(kinds, ActionCheck)
	} else if s.Chips >= toCall {
		kinds = append(kinds, ActionCall)
	}
	if br.currentBet == 0 {
		kinds = append(kinds, ActionBet)
	} else if br.canRaise(i) && s.Chips > toCall {
		kinds = append(kinds, ActionRaise)
	}
	if br.canRaise(i) || s.Chips <= toCall {
		kinds = append(kinds, ActionAllIn)
	}
	return kinds
}

// Validate checks a against the betting rules for seat i without mutating
// anything.
func (br *BettingRound) Validate(i int, a Action) error {
	if i < 0 || i >= len(br.seats) || !br.seats[i].CanAct() {
		return fmt.Errorf("%w: seat cannot act", ErrIllegalAction)
	}
	s := br.seats[i]
	toCall := br.ToCall(i)

	switch a.Kind {
	case ActionFold:
		return nil
	case ActionCheck:
		if toCall > 0 {
			return fmt.Errorf("%w: cannot check facing %d to call", ErrIllegalAction, toCall)
		}
	case ActionCall:
		if toCall == 0 {
			return fmt.Errorf("%w: nothing to call, check instead", ErrIllegalAction)
		}
		if s.Chips < toCall {
			return fmt.Errorf("%w: stack of %d cannot cover a call of %d, go all-in instead", ErrIllegalAction, s.Chips, toCall)
		}
	case ActionBet:
		if br.currentBet > 0 {
			return fmt.Errorf("%w: cannot bet into an open bet of %d, raise instead", ErrIllegalAction, br.currentBet)
		}
		if a.Amount > s.Chips {
			return fmt.Errorf("%w: bet of %d exceeds stack of %d", ErrIllegalAction, a.Amount, s.Chips)
		}
		// Short stacks may bet less than the minimum only by going all-in.
		if a.Amount < br.bigBlind && a.Amount != s.Chips {
			return fmt.Errorf("%w: minimum bet is %d", ErrIllegalAction, br.bigBlind)
		}
	case ActionRaise:
		if br.currentBet == 0 {
			return fmt.Errorf("%w: no bet to raise, bet instead", ErrIllegalAction)
		}
		if !br.canRaise(i) {
			return fmt.Errorf("%w: betting was not reopened by the incomplete raise, call or fold", ErrIllegalAction)
		}
		add := a.Amount - s.CurrentBet
		if add > s.Chips {
			return fmt.Errorf("%w: raise to %d exceeds stack of %d", ErrIllegalAction, a.Amount, s.Chips+s.CurrentBet)
		}
		if a.Amount <= br.currentBet {
			return fmt.Errorf("%w: raise must exceed the current bet of %d", ErrIllegalAction, br.currentBet)
		}
		if a.Amount < br.currentBet+br.minRaise && add != s.Chips {
			return fmt.Errorf("%w: minimum raise is to %d", ErrIllegalAction, br.currentBet+br.minRaise)
		}
	case ActionAllIn:
		if s.Chips == 0 {
			return fmt.Errorf("%w: no chips left", ErrIllegalAction)
		}
		if s.Chips > toCall && !br.canRaise(i) {
			return fmt.Errorf("%w: betting was not reopened by the incomplete raise, call or fold", ErrIllegalAction)
		}
	default:
		return fmt.Errorf("%w: unknown action %s", ErrIllegalAction, a.Kind)
	}
	return nil
}

// Apply performs a validated action and returns the chips moved into the pot.
func (br *BettingRound) Apply(i int, a Action) int {
	s := br.seats[i]
	committed := 0
	switch a.Kind {
	case ActionFold:
		s.Folded = true
	case ActionCall:
		committed = s.commit(br.ToCall(i))
	case ActionBet, ActionRaise:
		committed = s.commit(a.Amount - s.CurrentBet)
	case ActionAllIn:
		committed = s.commit(s.Chips)
	}
	br.acted[i] = true

	if s.CurrentBet > br.currentBet {
		increase := s.CurrentBet - br.currentBet
		// An opening bet always reopens action; a raise only when it is full.
		if increase >= br.minRaise || br.currentBet == 0 {
			br.minRaise = max(increase, br.minRaise)
			for j := range br.acted {
				if j != i {
					br.acted[j] = false
				}
			}
		}
		br.currentBet = s.CurrentBet
		br.lastAggressor = i
	}
	br.facedBet[i] = br.currentBet
	return committed
}

// IsClosed reports whether the street is finished: every seat that can still
// act has acted since the last full raise and matched the current bet.
func (br *BettingRound) IsClosed() bool {
	live, active := 0, 0
	var last *Seat
	for _, s := range br.seats {
		if s.Live() {
			live++
		}
		if s.CanAct() {
			active++
			last = s
		}
	}
	if live <= 1 || active == 0 {
		return true
	}
	if active == 1 {
		// Nobody left to bet against.
		return last.CurrentBet >= br.currentBet
	}
	for i, s := range br.seats {
		if s.CanAct() && (!br.acted[i] || s.CurrentBet < br.currentBet) {
			return false
		}
	}
	return true
}

// NextActor returns the next seat clockwise from 'from' that still owes an
// action, or -1 when the street is closed.
func (br *BettingRound) NextActor(from int) int {
	if br.IsClosed() {
		return -1
	}
	n := len(br.seats)
	for k := 1; k <= n; k++ {
		j := ((from+k)%n + n) % n
		s := br.seats[j]
		if s.CanAct() && (!br.acted[j] || s.CurrentBet < br.currentBet) {
			return j
		}
	}
	return -1
}
