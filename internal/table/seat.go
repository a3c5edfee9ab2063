package table

import "github.com/lox/pokerroom/poker"

// Seat is one occupied position at a table. Chips persist across hands until
// the player leaves.
type Seat struct {
	PlayerID    string
	DisplayName string
	Chips       int
	CurrentBet  int // this street
	TotalBet    int // this hand, drives side pots
	HoleCards   []poker.Card
	Folded      bool
	AllIn       bool
	Connected   bool
	Bot         bool
	Strategy    string // bot strategy name, empty for humans
	Ready       bool
	SittingOut  bool

	inHand      bool   // dealt into the current hand
	leaving     bool   // clear the seat once the current hand ends
	leaveReason string // reported when the seat clears
}

// InHand reports whether the seat was dealt into the current hand.
func (s *Seat) InHand() bool { return s != nil && s.inHand }

// Live reports whether the seat still contests the pot.
func (s *Seat) Live() bool { return s.InHand() && !s.Folded }

// CanAct reports whether the seat may still take betting actions this hand.
func (s *Seat) CanAct() bool { return s.Live() && !s.AllIn }

// commit moves up to amount chips from the stack into the current bet and
// returns what was actually committed.
func (s *Seat) commit(amount int) int {
	amount = min(amount, s.Chips)
	s.Chips -= amount
	s.CurrentBet += amount
	s.TotalBet += amount
	if s.Chips == 0 {
		s.AllIn = true
	}
	return amount
}

func (s *Seat) resetHand() {
	s.CurrentBet = 0
	s.TotalBet = 0
	s.HoleCards = nil
	s.Folded = false
	s.AllIn = false
	s.inHand = false
}

// playing reports whether the seat should be dealt into the next hand.
func (s *Seat) playing() bool {
	return s != nil && !s.SittingOut && !s.leaving && s.Chips > 0
}
