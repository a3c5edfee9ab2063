package table

import (
	"time"

	"github.com/lox/pokerroom/poker"
)

// SeatView is one seat as seen by a particular viewer.
type SeatView struct {
	Index       int          `json:"index"`
	PlayerID    string       `json:"player_id"`
	DisplayName string       `json:"display_name"`
	Chips       int          `json:"chips"`
	CurrentBet  int          `json:"current_bet"`
	TotalBet    int          `json:"total_bet"`
	HoleCards   []poker.Card `json:"hole_cards,omitempty"`
	HasCards    bool         `json:"has_cards"`
	InHand      bool         `json:"in_hand"`
	Folded      bool         `json:"folded"`
	AllIn       bool         `json:"all_in"`
	Connected   bool         `json:"connected"`
	Bot         bool         `json:"bot"`
	Strategy    string       `json:"strategy,omitempty"`
	Ready       bool         `json:"ready"`
	SittingOut  bool         `json:"sitting_out"`
	Dealer      bool         `json:"dealer"`
}

// TableState is a snapshot of the table redacted for one viewer. Hole cards
// are visible to their owner and, after showdown, for seats that reached it.
type TableState struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Phase         Phase         `json:"phase"`
	Generation    int           `json:"generation"`
	Seats         []*SeatView   `json:"seats"`
	Board         []poker.Card  `json:"board"`
	Pot           int           `json:"pot"`
	Pots          []Pot         `json:"pots,omitempty"`
	CurrentBet    int           `json:"current_bet"`
	MinRaise      int           `json:"min_raise"`
	Dealer        int           `json:"dealer"`
	CurrentPlayer int           `json:"current_player"`
	TurnDeadline  time.Time     `json:"turn_deadline,omitzero"`
	Turn          int           `json:"turn,omitempty"` // matches TurnStarted.Turn while that turn is live
	ReadyDeadline time.Time     `json:"ready_deadline,omitzero"`
	Countdown     time.Duration `json:"countdown,omitempty"`
	SmallBlind    int           `json:"small_blind"`
	BigBlind      int           `json:"big_blind"`
	BuyIn         int           `json:"buy_in"`
	MaxPlayers    int           `json:"max_players"`
	HandID        string        `json:"hand_id,omitempty"`
	HandNumber    int           `json:"hand_number"`
	HandsPlayed   int           `json:"hands_played"`
	LastResult    *HandComplete `json:"last_result,omitempty"`

	// Viewer-specific fields.
	ViewerSeat   int          `json:"viewer_seat"`
	ToCall       int          `json:"to_call"`
	MinRaiseTo   int          `json:"min_raise_to,omitempty"`
	LegalActions []ActionKind `json:"legal_actions,omitempty"`
}

// Seat returns the view of seat i, or nil when it is empty.
func (s TableState) Seat(i int) *SeatView {
	if i < 0 || i >= len(s.Seats) {
		return nil
	}
	return s.Seats[i]
}

// State returns a snapshot for viewerID. An empty viewer sees a spectator view.
func (t *Table) State(viewerID string) TableState {
	t.mu.Lock()
	defer t.mu.Unlock()

	st := TableState{
		ID:            t.id,
		Name:          t.cfg.Name,
		Phase:         t.phase,
		Generation:    t.generation,
		Seats:         make([]*SeatView, len(t.seats)),
		Board:         append([]poker.Card(nil), t.board...),
		Pot:           t.pot,
		Dealer:        t.dealer,
		CurrentPlayer: t.current,
		SmallBlind:    t.smallBlind,
		BigBlind:      t.bigBlind,
		BuyIn:         t.cfg.BuyIn,
		MaxPlayers:    t.cfg.MaxPlayers,
		HandID:        t.handID,
		HandNumber:    t.handNumber,
		HandsPlayed:   t.handsPlayed,
		LastResult:    t.lastResult,
		ViewerSeat:    -1,
	}
	switch t.phase {
	case PhaseReadyUp:
		st.ReadyDeadline = t.readyDeadline
	case PhaseCountdown:
		st.Countdown = t.countdownLeft
	}
	if t.round != nil {
		st.CurrentBet = t.round.CurrentBet()
		st.MinRaise = t.round.MinRaise()
		st.Pots = BuildPots(t.contributions())
	}
	if t.current >= 0 {
		st.TurnDeadline = t.turnDeadline
		st.Turn = t.turnSeq
	}

	for i, s := range t.seats {
		if s == nil {
			continue
		}
		v := &SeatView{
			Index:       i,
			PlayerID:    s.PlayerID,
			DisplayName: s.DisplayName,
			Chips:       s.Chips,
			CurrentBet:  s.CurrentBet,
			TotalBet:    s.TotalBet,
			HasCards:    len(s.HoleCards) > 0,
			InHand:      s.inHand,
			Folded:      s.Folded,
			AllIn:       s.AllIn,
			Connected:   s.Connected,
			Bot:         s.Bot,
			Strategy:    s.Strategy,
			Ready:       s.Ready,
			SittingOut:  s.SittingOut,
			Dealer:      i == t.dealer,
		}
		if s.PlayerID == viewerID && viewerID != "" {
			st.ViewerSeat = i
			v.HoleCards = append([]poker.Card(nil), s.HoleCards...)
		} else if cards, ok := t.revealed[i]; ok {
			v.HoleCards = append([]poker.Card(nil), cards...)
		}
		st.Seats[i] = v
	}

	if st.ViewerSeat >= 0 && st.ViewerSeat == t.current && t.round != nil {
		st.ToCall = t.round.ToCall(t.current)
		st.MinRaiseTo = t.round.MinRaiseTo(t.current)
		st.LegalActions = t.round.LegalActions(t.current)
	}
	return st
}

// Summary is the lobby listing entry for a table.
type Summary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Phase       Phase  `json:"phase"`
	Players     int    `json:"players"`
	MaxPlayers  int    `json:"max_players"`
	SmallBlind  int    `json:"small_blind"`
	BigBlind    int    `json:"big_blind"`
	BuyIn       int    `json:"buy_in"`
	IsPrivate   bool   `json:"is_private"`
	CreatorID   string `json:"creator_id,omitempty"`
	HandsPlayed int    `json:"hands_played"`
}

// Summary returns the lobby listing entry.
func (t *Table) Summary() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Summary{
		ID:          t.id,
		Name:        t.cfg.Name,
		Phase:       t.phase,
		Players:     t.seatedCount(),
		MaxPlayers:  t.cfg.MaxPlayers,
		SmallBlind:  t.smallBlind,
		BigBlind:    t.bigBlind,
		BuyIn:       t.cfg.BuyIn,
		IsPrivate:   t.cfg.IsPrivate,
		CreatorID:   t.cfg.CreatorID,
		HandsPlayed: t.handsPlayed,
	}
}
