package server

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/lox/pokerroom/internal/table"
)

// Hub fans table events out to websocket connections. A connection watches
// at most one table; on every state change it receives that table as its
// player sees it, so hole cards never reach other seats.
type Hub struct {
	logger  zerolog.Logger
	manager *GameManager

	mu       sync.RWMutex
	conns    map[*Connection]struct{}
	players  map[string]*Connection
	watchers map[string]map[*Connection]struct{}
}

// NewHub returns a hub and registers it as the manager's broadcaster.
func NewHub(logger zerolog.Logger, manager *GameManager) *Hub {
	h := &Hub{
		logger:   logger.With().Str("component", "hub").Logger(),
		manager:  manager,
		conns:    make(map[*Connection]struct{}),
		players:  make(map[string]*Connection),
		watchers: make(map[string]map[*Connection]struct{}),
	}
	manager.SetBroadcaster(h)
	return h
}

func (h *Hub) register(c *Connection) {
	h.mu.Lock()
	h.conns[c] = struct{}{}
	total := len(h.conns)
	h.mu.Unlock()
	h.logger.Info().Int("total", total).Msg("Client connected")
}

// unregister forgets c and reports the player as disconnected, unless a
// newer connection has already taken the player over.
func (h *Hub) unregister(c *Connection) {
	playerID := c.Player()
	h.mu.Lock()
	if _, ok := h.conns[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.conns, c)
	h.unwatchLocked(c)
	current := false
	if playerID != "" && h.players[playerID] == c {
		delete(h.players, playerID)
		current = true
	}
	total := len(h.conns)
	h.mu.Unlock()

	if current {
		h.manager.Disconnect(playerID)
	}
	h.logger.Info().Str("player_id", playerID).Int("total", total).Msg("Client disconnected")
}

// bind makes c the live connection for playerID.
func (h *Hub) bind(playerID string, c *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.players[playerID] = c
}

// watch subscribes c to tableID, replacing any earlier subscription.
func (h *Hub) watch(c *Connection, tableID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unwatchLocked(c)
	subs, ok := h.watchers[tableID]
	if !ok {
		subs = make(map[*Connection]struct{})
		h.watchers[tableID] = subs
	}
	subs[c] = struct{}{}
	c.setTable(tableID)
}

func (h *Hub) unwatch(c *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unwatchLocked(c)
}

func (h *Hub) unwatchLocked(c *Connection) {
	id := c.Table()
	if id == "" {
		return
	}
	if subs, ok := h.watchers[id]; ok {
		delete(subs, c)
		if len(subs) == 0 {
			delete(h.watchers, id)
		}
	}
	c.setTable("")
}

func (h *Hub) subscribers(tableID string) []*Connection {
	h.mu.RLock()
	defer h.mu.RUnlock()
	subs := make([]*Connection, 0, len(h.watchers[tableID]))
	for c := range h.watchers[tableID] {
		subs = append(subs, c)
	}
	return subs
}

// TableEvent implements Broadcaster.
func (h *Hub) TableEvent(tableID string, ev table.Event) {
	subs := h.subscribers(tableID)
	if len(subs) == 0 {
		return
	}

	if _, ok := ev.(table.StateChanged); ok {
		tbl, err := h.manager.Table(tableID)
		if err != nil {
			return
		}
		for _, c := range subs {
			h.send(c, TypeState, tbl.State(c.Player()))
		}
		return
	}

	msg, err := NewMessage(TypeEvent, EventData{TableID: tableID, Event: ev.EventType(), Payload: ev})
	if err != nil {
		h.logger.Error().Err(err).Str("event", ev.EventType()).Msg("Failed to encode event")
		return
	}
	for _, c := range subs {
		_ = c.SendMessage(msg)
	}

	if _, ok := ev.(table.TableClosed); ok {
		h.mu.Lock()
		for _, c := range subs {
			if c.Table() == tableID {
				c.setTable("")
			}
		}
		delete(h.watchers, tableID)
		h.mu.Unlock()
	}
}

func (h *Hub) send(c *Connection, t MessageType, data any) {
	msg, err := NewMessage(t, data)
	if err != nil {
		h.logger.Error().Err(err).Str("type", string(t)).Msg("Failed to encode message")
		return
	}
	_ = c.SendMessage(msg)
}

// closeAll drops every connection.
func (h *Hub) closeAll() {
	h.mu.RLock()
	conns := make([]*Connection, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()
	for _, c := range conns {
		_ = c.Close()
	}
}
