package table

import (
	"time"

	"github.com/lox/pokerroom/poker"
)

// Observer receives table events. Events are delivered in commit order after
// the table lock is released, so an observer may call back into the table.
type Observer interface {
	OnTableEvent(tableID string, ev Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(tableID string, ev Event)

func (f ObserverFunc) OnTableEvent(tableID string, ev Event) { f(tableID, ev) }

// Event is implemented by every table event type.
type Event interface {
	EventType() string
	event()
}

// StateChanged follows every committed mutation; observers pull State.
type StateChanged struct {
	Phase      Phase `json:"phase"`
	Generation int   `json:"generation"`
}

type PlayerJoined struct {
	PlayerID    string `json:"player_id"`
	DisplayName string `json:"display_name"`
	Seat        int    `json:"seat"`
	Chips       int    `json:"chips"`
	Bot         bool   `json:"bot"`
}

// PlayerLeft carries the final stack so it can be credited back.
type PlayerLeft struct {
	PlayerID string `json:"player_id"`
	Seat     int    `json:"seat"`
	Chips    int    `json:"chips"`
	Bot      bool   `json:"bot"`
	Reason   string `json:"reason"`
}

type PlayerActed struct {
	PlayerID  string `json:"player_id"`
	Seat      int    `json:"seat"`
	Action    Action `json:"action"`
	Committed int    `json:"committed"`
	Pot       int    `json:"pot"`
	IsTimeout bool   `json:"is_timeout"`
}

// TurnStarted announces the seat that must act next.
type TurnStarted struct {
	PlayerID string       `json:"player_id"`
	Seat     int          `json:"seat"`
	ToCall   int          `json:"to_call"`
	Legal    []ActionKind `json:"legal"`
	Deadline time.Time    `json:"deadline"`
	Turn     int          `json:"turn"` // increases with every turn the table starts
}

type ReadyPrompt struct {
	Deadline time.Time `json:"deadline"`
}

type PlayerReadied struct {
	PlayerID string `json:"player_id"`
	Seat     int    `json:"seat"`
}

// PlayerNotReady reports a seat moved to spectating when ready-up expired.
type PlayerNotReady struct {
	PlayerID string `json:"player_id"`
	Seat     int    `json:"seat"`
}

type CountdownUpdate struct {
	Remaining time.Duration `json:"remaining"`
}

type HandStarted struct {
	HandID     string `json:"hand_id"`
	HandNumber int    `json:"hand_number"`
	Dealer     int    `json:"dealer"`
	SmallBlind int    `json:"small_blind_seat"`
	BigBlind   int    `json:"big_blind_seat"`
	Blinds     [2]int `json:"blinds"`
	Seats      []int  `json:"seats"`
}

type StreetDealt struct {
	Phase Phase        `json:"phase"`
	Cards []poker.Card `json:"cards"`
	Board []poker.Card `json:"board"`
}

// PotResult is one resolved pot layer.
type PotResult struct {
	Amount   int    `json:"amount"`
	Eligible []int  `json:"eligible"`
	Winners  []int  `json:"winners"`
	HandName string `json:"hand_name,omitempty"`
}

// Winner summarises one seat's winnings over every pot.
type Winner struct {
	PlayerID string `json:"player_id"`
	Seat     int    `json:"seat"`
	Amount   int    `json:"amount"`
	HandName string `json:"hand_name,omitempty"`
}

type HandComplete struct {
	HandID      string               `json:"hand_id"`
	HandNumber  int                  `json:"hand_number"`
	Board       []poker.Card         `json:"board"`
	Pot         int                  `json:"pot"`
	Pots        []PotResult          `json:"pots"`
	Winners     []Winner             `json:"winners"`
	Awards      map[int]int          `json:"awards"`
	Revealed    map[int][]poker.Card `json:"revealed,omitempty"`
	Players     []string             `json:"players"`
	Uncontested bool                 `json:"uncontested"`
	Forced      bool                 `json:"forced,omitempty"`
}

// GameOver fires when only one seat has chips left.
type GameOver struct {
	WinnerID string `json:"winner_id"`
	Seat     int    `json:"seat"`
	Chips    int    `json:"chips"`
	Hands    int    `json:"hands"`
}

type AutoFold struct {
	PlayerID string `json:"player_id"`
	Seat     int    `json:"seat"`
}

type PlayerEliminated struct {
	PlayerID   string `json:"player_id"`
	Seat       int    `json:"seat"`
	HandNumber int    `json:"hand_number"`
	Remaining  int    `json:"remaining"`
}

type PlayerDisconnected struct {
	PlayerID string        `json:"player_id"`
	Seat     int           `json:"seat"`
	Grace    time.Duration `json:"grace"`
}

type PlayerReconnected struct {
	PlayerID string `json:"player_id"`
	Seat     int    `json:"seat"`
}

type BlindsIncreased struct {
	SmallBlind int `json:"small_blind"`
	BigBlind   int `json:"big_blind"`
}

type BotInvitePending struct {
	InviteID  string `json:"invite_id"`
	InviterID string `json:"inviter_id"`
	BotName   string `json:"bot_name"`
	Seat      int    `json:"seat"`
	Needed    int    `json:"needed"`
}

type BotInviteResolved struct {
	InviteID string `json:"invite_id"`
	Approved bool   `json:"approved"`
	BotID    string `json:"bot_id,omitempty"`
	Seat     int    `json:"seat"`
}

type TableClosed struct {
	Reason string `json:"reason"`
}

func (StateChanged) EventType() string       { return "state_changed" }
func (PlayerJoined) EventType() string       { return "player_joined" }
func (PlayerLeft) EventType() string         { return "player_left" }
func (PlayerActed) EventType() string        { return "player_acted" }
func (TurnStarted) EventType() string        { return "turn_started" }
func (ReadyPrompt) EventType() string        { return "ready_prompt" }
func (PlayerReadied) EventType() string      { return "player_readied" }
func (PlayerNotReady) EventType() string     { return "player_not_ready" }
func (CountdownUpdate) EventType() string    { return "countdown_update" }
func (HandStarted) EventType() string        { return "hand_started" }
func (StreetDealt) EventType() string        { return "street_dealt" }
func (HandComplete) EventType() string       { return "hand_complete" }
func (GameOver) EventType() string           { return "game_over" }
func (AutoFold) EventType() string           { return "auto_fold" }
func (PlayerEliminated) EventType() string   { return "player_eliminated" }
func (PlayerDisconnected) EventType() string { return "player_disconnected" }
func (PlayerReconnected) EventType() string  { return "player_reconnected" }
func (BlindsIncreased) EventType() string    { return "blinds_increased" }
func (BotInvitePending) EventType() string   { return "bot_invite_pending" }
func (BotInviteResolved) EventType() string  { return "bot_invite_resolved" }
func (TableClosed) EventType() string        { return "table_closed" }

func (StateChanged) event()       {}
func (PlayerJoined) event()       {}
func (PlayerLeft) event()         {}
func (PlayerActed) event()        {}
func (TurnStarted) event()        {}
func (ReadyPrompt) event()        {}
func (PlayerReadied) event()      {}
func (PlayerNotReady) event()     {}
func (CountdownUpdate) event()    {}
func (HandStarted) event()        {}
func (StreetDealt) event()        {}
func (HandComplete) event()       {}
func (GameOver) event()           {}
func (AutoFold) event()           {}
func (PlayerEliminated) event()   {}
func (PlayerDisconnected) event() {}
func (PlayerReconnected) event()  {}
func (BlindsIncreased) event()    {}
func (BotInvitePending) event()   {}
func (BotInviteResolved) event()  {}
func (TableClosed) event()        {}
