package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/wricardo/botarena/game/service"
)

const (
	// Deadline for a single write to a spectator
	writeWait = 10 * time.Second

	// A spectator that misses pongs for this long is dropped
	pongWait = 60 * time.Second

	// Ping interval, kept below pongWait
	pingPeriod = (pongWait * 9) / 10

	// Spectators only send control frames
	maxMessageSize = 512

	// Pending broadcasts before new ones are dropped.
	broadcastBuffer = 256
)

// EventSnapshot is sent to a spectator right after it connects
const EventSnapshot = "snapshot"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Spectating is read-only
		return true
	},
}

// Message is one event pushed to the spectators of a match
type Message struct {
	MatchID string      `json:"match_id"`
	Event   string      `json:"event"`
	Data    interface{} `json:"data,omitempty"`
}

// Client is one spectator connection
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	matchID string
}

type countRequest struct {
	matchID string
	reply   chan int
}

// Hub maintains the set of spectators per match and broadcasts match events
type Hub struct {
	// Registered clients by match ID
	matches map[string]map[*Client]bool

	// Outbound messages for a match
	broadcast chan *Message

	register   chan *Client
	unregister chan *Client

	counts chan countRequest

	// Closed when Run returns
	done chan struct{}
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		matches:    make(map[string]map[*Client]bool),
		broadcast:  make(chan *Message, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		counts:     make(chan countRequest),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's event loop and returns when ctx is done. A hub runs
// once; after Run returns new spectators are refused.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for _, clients := range h.matches {
				for client := range clients {
					h.unregisterClient(client)
				}
			}
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)

		case req := <-h.counts:
			req.reply <- len(h.matches[req.matchID])
		}
	}
}

// ServeWS upgrades a spectator connection for a match. The optional
// snapshot is sent first so the client has something to draw.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, matchID string, snapshot *service.MatchInfo) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("match_id", matchID).Msg("websocket upgrade failed")
		return
	}

	client := &Client{
		hub:     h,
		conn:    conn,
		send:    make(chan []byte, 256),
		matchID: matchID,
	}

	if snapshot != nil {
		if data, err := json.Marshal(&Message{MatchID: matchID, Event: EventSnapshot, Data: snapshot}); err == nil {
			client.send <- data
		}
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// BroadcastEvent sends an event to every spectator of a match. Events are
// dropped when the hub falls too far behind.
func (h *Hub) BroadcastEvent(matchID string, event string, data interface{}) {
	message := &Message{
		MatchID: matchID,
		Event:   event,
		Data:    data,
	}

	select {
	case h.broadcast <- message:
	default:
		log.Warn().Str("match_id", matchID).Str("event", event).Msg("websocket hub busy, dropping event")
	}
}

// ClientCount returns the number of spectators of a match. It is 0 once the
// hub has stopped.
func (h *Hub) ClientCount(matchID string) int {
	reply := make(chan int, 1)
	select {
	case h.counts <- countRequest{matchID: matchID, reply: reply}:
		return <-reply
	case <-h.done:
		return 0
	}
}

// registerClient adds a client to a match
func (h *Hub) registerClient(client *Client) {
	if h.matches[client.matchID] == nil {
		h.matches[client.matchID] = make(map[*Client]bool)
	}
	h.matches[client.matchID][client] = true

	log.Debug().Str("match_id", client.matchID).Int("clients", len(h.matches[client.matchID])).Msg("spectator registered")
}

// unregisterClient removes a client from a match
func (h *Hub) unregisterClient(client *Client) {
	if clients, ok := h.matches[client.matchID]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			close(client.send)

			// Clean up empty matches
			if len(clients) == 0 {
				delete(h.matches, client.matchID)
			}

			log.Debug().Str("match_id", client.matchID).Int("clients", len(clients)).Msg("spectator unregistered")
		}
	}
}

// broadcastMessage sends a message to all clients of a match
func (h *Hub) broadcastMessage(message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Error().Err(err).Str("match_id", message.MatchID).Msg("failed to marshal broadcast message")
		return
	}

	if clients, ok := h.matches[message.MatchID]; ok {
		for client := range clients {
			select {
			case client.send <- data:
			default:
				h.unregisterClient(client)
			}
		}
	}
}

// readPump discards spectator input and keeps the read deadline fresh
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		// Spectators only listen; reading keeps pongs and close frames flowing
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Debug().Err(err).Str("match_id", c.matchID).Msg("websocket error")
			}
			break
		}
	}
}

// writePump delivers queued events and keeps the connection alive with pings
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Unregistered by the hub
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
