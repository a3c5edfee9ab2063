package server

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/lox/pokerroom/internal/table"
)

// MessageType names a websocket message.
type MessageType string

// Client to server.
const (
	TypeHello        MessageType = "hello"
	TypeCreateTable  MessageType = "create_table"
	TypeJoinTable    MessageType = "join_table"
	TypeLeaveTable   MessageType = "leave_table"
	TypeStartReadyUp MessageType = "start_ready_up"
	TypeReady        MessageType = "ready"
	TypeAction       MessageType = "action"
	TypeInviteBot    MessageType = "invite_bot"
	TypeApproveBot   MessageType = "approve_bot"
	TypeSitOut       MessageType = "sit_out"
	TypeSitIn        MessageType = "sit_in"
	TypeGetState     MessageType = "get_state"
	TypeListTables   MessageType = "list_tables"
)

// Server to client.
const (
	TypeResult MessageType = "result"
	TypeEvent  MessageType = "table_event"
	TypeState  MessageType = "state"
)

// Message is the envelope for every websocket frame.
type Message struct {
	Type      MessageType     `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp,omitzero"`
}

// NewMessage wraps data in an envelope stamped with now.
func NewMessage(t MessageType, data any) (*Message, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", t, err)
	}
	return &Message{Type: t, Data: raw, Timestamp: time.Now()}, nil
}

type HelloData struct {
	PlayerID    string `json:"player_id"`
	DisplayName string `json:"display_name,omitempty"`
}

// CreateTableData is a table config as clients send it. Durations are in
// seconds; zero takes the default.
type CreateTableData struct {
	Name                 string `json:"name"`
	MaxPlayers           int    `json:"max_players"`
	SmallBlind           int    `json:"small_blind"`
	BigBlind             int    `json:"big_blind"`
	BuyIn                int    `json:"buy_in"`
	TurnTimeSeconds      int    `json:"turn_time_seconds,omitempty"`
	ReadyUpSeconds       int    `json:"ready_up_seconds,omitempty"`
	CountdownSeconds     int    `json:"countdown_seconds,omitempty"`
	BlindIncreaseMinutes int    `json:"blind_increase_minutes,omitempty"`
	IsPrivate            bool   `json:"is_private"`
	AutoStart            bool   `json:"auto_start"`
}

// Config converts the request to a table config owned by creatorID.
func (d CreateTableData) Config(creatorID string) table.Config {
	return table.Config{
		Name:                  d.Name,
		MaxPlayers:            d.MaxPlayers,
		SmallBlind:            d.SmallBlind,
		BigBlind:              d.BigBlind,
		BuyIn:                 d.BuyIn,
		TurnTimeLimit:         time.Duration(d.TurnTimeSeconds) * time.Second,
		ReadyUpDuration:       time.Duration(d.ReadyUpSeconds) * time.Second,
		CountdownDuration:     time.Duration(d.CountdownSeconds) * time.Second,
		BlindIncreaseInterval: time.Duration(d.BlindIncreaseMinutes) * time.Minute,
		IsPrivate:             d.IsPrivate,
		AutoStart:             d.AutoStart,
		CreatorID:             creatorID,
	}
}

type JoinTableData struct {
	TableID string `json:"table_id"`
	Seat    *int   `json:"seat,omitempty"`
}

type TableRef struct {
	TableID string `json:"table_id"`
}

type ActionData struct {
	Action string `json:"action"`
	Amount int    `json:"amount,omitempty"`
}

type InviteBotData struct {
	TableID  string `json:"table_id"`
	Name     string `json:"name"`
	Strategy string `json:"strategy"`
	BuyIn    int    `json:"buy_in,omitempty"`
}

type ApproveBotData struct {
	InviteID string `json:"invite_id"`
	Approve  bool   `json:"approve"`
}

// ResultData answers every client request. Code is a stable identifier for
// failures, Error the human-readable rule that was broken.
type ResultData struct {
	Request MessageType `json:"request"`
	Success bool        `json:"success"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
	Data    any         `json:"data,omitempty"`
}

// EventData carries one table event to subscribers.
type EventData struct {
	TableID string      `json:"table_id"`
	Event   string      `json:"event"`
	Payload table.Event `json:"payload"`
}
