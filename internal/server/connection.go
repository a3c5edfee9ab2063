package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/lox/pokerroom/internal/table"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

var (
	ErrConnectionClosed = websocket.ErrCloseSent

	errInvalidMessage = errors.New("invalid message")
	errNoHello        = errors.New("send hello first")
	errUnknownType    = errors.New("unknown message type")
)

// errorCode maps a request failure to the code sent to clients.
func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrTableNotFound):
		return "table_not_found"
	case errors.Is(err, errInvalidMessage):
		return "invalid_message"
	case errors.Is(err, errNoHello):
		return "unauthenticated"
	case errors.Is(err, errUnknownType):
		return "unknown_type"
	}
	return table.Code(err)
}

// Connection is one websocket client. Requests are handled one at a time in
// the read loop and each gets a result carrying its request id.
type Connection struct {
	conn    *websocket.Conn
	send    chan *Message
	hub     *Hub
	manager *GameManager
	logger  zerolog.Logger
	ctx     context.Context
	cancel  context.CancelFunc

	mu          sync.RWMutex
	playerID    string
	displayName string
	tableID     string
	closeOnce   sync.Once
}

func newConnection(conn *websocket.Conn, hub *Hub, logger zerolog.Logger) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	return &Connection{
		conn:    conn,
		send:    make(chan *Message, 256),
		hub:     hub,
		manager: hub.manager,
		logger:  logger.With().Str("component", "conn").Str("remote", conn.RemoteAddr().String()).Logger(),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start begins handling the connection.
func (c *Connection) Start() {
	c.hub.register(c)
	go c.writePump()
	go c.readPump()
}

// Close closes the connection. The hub reports the player as disconnected.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		err = c.conn.Close()
		c.hub.unregister(c)
	})
	return err
}

// SendMessage queues msg without blocking. A client that cannot keep up is
// dropped.
func (c *Connection) SendMessage(msg *Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ErrConnectionClosed
		}
	}()

	select {
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
	}
	select {
	case c.send <- msg:
		return nil
	default:
		c.logger.Warn().Str("player_id", c.Player()).Msg("Connection send buffer full, closing connection")
		go c.Close()
		return ErrConnectionClosed
	}
}

// Player returns the player id bound by hello.
func (c *Connection) Player() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerID
}

// Table returns the watched table id.
func (c *Connection) Table() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tableID
}

func (c *Connection) setTable(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tableID = id
}

func (c *Connection) readPump() {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Warn().Err(err).Msg("WebSocket error")
			}
			return
		}
		c.handleMessage(&msg)
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Warn().Err(err).Msg("Failed to write message")
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// handleMessage runs one request and replies with its result. A panic in a
// handler is reported to the client as an internal error.
func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug().Str("type", string(msg.Type)).Str("player_id", c.Player()).Msg("Received message")

	var (
		data any
		err  error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error().Interface("panic", r).Str("type", string(msg.Type)).Msg("Request handler panicked")
				err = fmt.Errorf("internal error handling %s", msg.Type)
			}
		}()
		data, err = c.dispatch(msg)
	}()

	res := ResultData{Request: msg.Type, Success: err == nil, Data: data}
	if err != nil {
		res.Error = err.Error()
		res.Code = errorCode(err)
		c.logger.Debug().Err(err).Str("type", string(msg.Type)).Str("code", res.Code).Msg("Request failed")
	}
	reply, encErr := NewMessage(TypeResult, res)
	if encErr != nil {
		c.logger.Error().Err(encErr).Msg("Failed to encode result")
		return
	}
	reply.RequestID = msg.RequestID
	_ = c.SendMessage(reply)
}

func decode[T any](msg *Message) (T, error) {
	var v T
	if len(msg.Data) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(msg.Data, &v); err != nil {
		return v, fmt.Errorf("%w: %s: %v", errInvalidMessage, msg.Type, err)
	}
	return v, nil
}

func (c *Connection) dispatch(msg *Message) (any, error) {
	switch msg.Type {
	case TypeHello:
		return c.handleHello(msg)
	case TypeListTables:
		return c.manager.ListTables(), nil
	case TypeGetState:
		return c.handleGetState(msg)
	}

	playerID := c.Player()
	if playerID == "" {
		return nil, errNoHello
	}

	switch msg.Type {
	case TypeCreateTable:
		d, err := decode[CreateTableData](msg)
		if err != nil {
			return nil, err
		}
		tbl, err := c.manager.CreateTable(playerID, d.Config(playerID))
		if err != nil {
			return nil, err
		}
		c.hub.watch(c, tbl.ID())
		return tbl.Summary(), nil

	case TypeJoinTable:
		d, err := decode[JoinTableData](msg)
		if err != nil {
			return nil, err
		}
		seat := -1
		if d.Seat != nil {
			seat = *d.Seat
		}
		c.mu.RLock()
		name := c.displayName
		c.mu.RUnlock()
		idx, err := c.manager.JoinTable(c.ctx, playerID, name, d.TableID, seat)
		if err != nil {
			return nil, err
		}
		c.hub.watch(c, d.TableID)
		return map[string]int{"seat": idx}, nil

	case TypeLeaveTable:
		if err := c.manager.LeaveTable(playerID); err != nil {
			return nil, err
		}
		c.hub.unwatch(c)
		return nil, nil

	case TypeStartReadyUp:
		return nil, c.manager.StartReadyUp(playerID)

	case TypeReady:
		return nil, c.manager.PlayerReady(playerID)

	case TypeSitOut:
		return nil, c.manager.SitOut(playerID)

	case TypeSitIn:
		return nil, c.manager.SitIn(playerID)

	case TypeAction:
		d, err := decode[ActionData](msg)
		if err != nil {
			return nil, err
		}
		a, err := table.ParseAction(d.Action, d.Amount)
		if err != nil {
			return nil, err
		}
		return nil, c.manager.SubmitAction(playerID, a)

	case TypeInviteBot:
		d, err := decode[InviteBotData](msg)
		if err != nil {
			return nil, err
		}
		return c.manager.InviteBot(playerID, d.TableID, table.BotProfile{Name: d.Name, Strategy: d.Strategy}, d.BuyIn)

	case TypeApproveBot:
		d, err := decode[ApproveBotData](msg)
		if err != nil {
			return nil, err
		}
		return nil, c.manager.ApproveBot(playerID, d.InviteID, d.Approve)
	}
	return nil, fmt.Errorf("%w: %q", errUnknownType, msg.Type)
}

// handleHello binds the connection to a player. A player who still holds a
// seat gets it back and resumes watching that table.
func (c *Connection) handleHello(msg *Message) (any, error) {
	d, err := decode[HelloData](msg)
	if err != nil {
		return nil, err
	}
	if d.PlayerID == "" {
		return nil, fmt.Errorf("%w: player_id required", errInvalidMessage)
	}
	c.mu.Lock()
	if c.playerID != "" && c.playerID != d.PlayerID {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: connection already bound to %s", errInvalidMessage, c.playerID)
	}
	c.playerID = d.PlayerID
	c.displayName = d.DisplayName
	c.mu.Unlock()
	c.hub.bind(d.PlayerID, c)

	profile, err := c.manager.Profile(c.ctx, d.PlayerID, d.DisplayName)
	if err != nil {
		return nil, err
	}
	res := map[string]any{"profile": profile}
	if tableID, ok := c.manager.Reconnect(d.PlayerID); ok {
		c.hub.watch(c, tableID)
		res["table_id"] = tableID
	}
	return res, nil
}

// handleGetState returns a table as this connection sees it and starts
// watching it. Without a table id the watched table is used.
func (c *Connection) handleGetState(msg *Message) (any, error) {
	d, err := decode[TableRef](msg)
	if err != nil {
		return nil, err
	}
	id := d.TableID
	if id == "" {
		id = c.Table()
	}
	if id == "" {
		if seated, ok := c.manager.PlayerTable(c.Player()); ok {
			id = seated
		}
	}
	st, err := c.manager.TableState(id, c.Player())
	if err != nil {
		return nil, err
	}
	c.hub.watch(c, id)
	return st, nil
}
