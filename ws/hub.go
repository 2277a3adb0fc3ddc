package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/polysensus/chaintrap-arenastate/config"
	"github.com/polysensus/chaintrap-arenastate/transcript"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Channels a client can subscribe to: "all", or "game:<gid>".
const (
	ChannelAll  = "all"
	channelGame = "game:"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  config.WSReadBufferSize,
	WriteBufferSize: config.WSWriteBufferSize,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// GameChannel returns the channel name for a game instance.
func GameChannel(gid uint64) string {
	return channelGame + strconv.FormatUint(gid, 10)
}

// HistoryFunc loads stored entries for a game, sent on subscribe.
type HistoryFunc func(ctx context.Context, gid uint64) ([]*transcript.Entry, error)

// ClientConnection represents a connected client with their subscriptions
type ClientConnection struct {
	ID            string
	Conn          *websocket.Conn
	Subscriptions map[string]bool
	mu            sync.RWMutex
	Send          chan []byte
	hub           *Hub
}

// ClientMessage is a message from a client
type ClientMessage struct {
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data,omitempty"`
}

// Hub fans transcript entries out to subscribed clients.
type Hub struct {
	History HistoryFunc

	clients      map[*ClientConnection]bool
	clientsMutex sync.RWMutex

	broadcast  chan *transcript.Entry
	register   chan *ClientConnection
	unregister chan *ClientConnection
	done       chan struct{}
}

func NewHub(history HistoryFunc) *Hub {
	return &Hub{
		History:    history,
		clients:    make(map[*ClientConnection]bool),
		broadcast:  make(chan *transcript.Entry, 100),
		register:   make(chan *ClientConnection),
		unregister: make(chan *ClientConnection),
		done:       make(chan struct{}),
	}
}

// Run is the central message dispatcher. It returns when ctx is done.
func (h *Hub) Run(ctx context.Context) {
	log.Println("🚀 Transcript event hub started")

	for {
		select {
		case <-ctx.Done():
			close(h.done)
			// closing the sockets unblocks both pumps of every client
			h.clientsMutex.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				client.Conn.Close()
			}
			h.clientsMutex.Unlock()
			log.Println("🛑 Transcript event hub stopped")
			return

		case client := <-h.register:
			h.clientsMutex.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.clientsMutex.Unlock()
			log.Printf("✅ Client registered: %s (Total: %d)", client.ID, total)

		case client := <-h.unregister:
			h.clientsMutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}
			total := len(h.clients)
			h.clientsMutex.Unlock()
			log.Printf("👋 Client unregistered: %s (Total: %d)", client.ID, total)

		case entry := <-h.broadcast:
			h.dispatch(entry)
		}
	}
}

// Publish queues an entry for broadcast. Entries are dropped when the hub
// is backed up.
func (h *Hub) Publish(entry *transcript.Entry) {
	select {
	case h.broadcast <- entry:
	default:
		log.Printf("⚠️  Hub broadcast buffer full, dropping %s:%d", entry.TxHash.Hex(), entry.LogIndex)
	}
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	h.clientsMutex.RLock()
	defer h.clientsMutex.RUnlock()
	return len(h.clients)
}

func (h *Hub) dispatch(entry *transcript.Entry) {
	gid, err := entry.Instance()
	if err != nil {
		log.Printf("❌ Not broadcasting entry with bad token %s: %v", entry.GameToken.Hex(), err)
		return
	}
	channel := GameChannel(gid)

	data, err := json.Marshal(map[string]interface{}{
		"type":    "transcript_entry",
		"channel": channel,
		"entry":   entry,
	})
	if err != nil {
		log.Printf("❌ Failed to marshal entry for %s: %v", channel, err)
		return
	}

	h.clientsMutex.RLock()
	defer h.clientsMutex.RUnlock()

	for client := range h.clients {
		client.mu.RLock()
		subscribed := client.Subscriptions[channel] || client.Subscriptions[ChannelAll]
		client.mu.RUnlock()

		if subscribed {
			select {
			case client.Send <- data:
			default:
				log.Printf("⚠️  Client %s send buffer full, skipping message", client.ID)
			}
		}
	}
}

// ServeHTTP upgrades the connection and registers the client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log.Println("📥 WebSocket connection from:", r.RemoteAddr)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("❌ WebSocket upgrade failed:", err)
		return
	}

	client := &ClientConnection{
		ID:            uuid.NewString(),
		Conn:          conn,
		Subscriptions: make(map[string]bool),
		Send:          make(chan []byte, config.WSSendQueue),
		hub:           h,
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

// writePump sends queued messages and keeps the connection alive with pings
func (c *ClientConnection) writePump() {
	ticker := time.NewTicker(config.WSPingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(config.WSWriteDeadline))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("❌ Write error for client %s: %v", c.ID, err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(config.WSWriteDeadline))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump reads subscription requests until the connection closes
func (c *ClientConnection) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
			// the hub no longer dispatches, so this is the last sender
			close(c.Send)
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(config.WSReadDeadline))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(config.WSReadDeadline))
	})

	for {
		_, messageBytes, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("❌ Read error for client %s: %v", c.ID, err)
			}
			break
		}

		var msg ClientMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			log.Printf("❌ Failed to parse message from client %s: %v", c.ID, err)
			continue
		}

		c.handleMessage(msg)
	}
}

// handleMessage processes incoming client messages
func (c *ClientConnection) handleMessage(msg ClientMessage) {
	channel, _ := msg.Data["channel"].(string)

	switch msg.Type {
	case "subscribe":
		gid, isGame, err := parseChannel(channel)
		if err != nil {
			c.sendError(err.Error())
			return
		}
		c.mu.Lock()
		c.Subscriptions[channel] = true
		c.mu.Unlock()
		log.Printf("📡 Client %s subscribed to: %s", c.ID, channel)

		c.queue(map[string]interface{}{"type": "subscribed", "channel": channel})
		if isGame {
			c.sendHistory(channel, gid)
		}

	case "unsubscribe":
		c.mu.Lock()
		delete(c.Subscriptions, channel)
		c.mu.Unlock()
		log.Printf("📴 Client %s unsubscribed from: %s", c.ID, channel)

	default:
		log.Printf("⚠️  Unknown message type from client %s: %s", c.ID, msg.Type)
		c.sendError("unknown message type: " + msg.Type)
	}
}

// sendHistory sends the stored transcript when a client joins a game channel
func (c *ClientConnection) sendHistory(channel string, gid uint64) {
	if c.hub.History == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	history, err := c.hub.History(ctx, gid)
	if err != nil {
		log.Printf("⚠️  Failed to load history for %s: %v", channel, err)
		return
	}

	c.queue(map[string]interface{}{
		"type":    "transcript_history",
		"channel": channel,
		"entries": history,
	})
	log.Printf("📨 Client %s subscribed to %s - sent %d history entries", c.ID, channel, len(history))
}

func (c *ClientConnection) sendError(message string) {
	c.queue(map[string]interface{}{"type": "error", "error": message})
}

// queue hands a message to the write pump. Send is only closed by the hub
// after readPump has unregistered, and queue runs on the read goroutine.
func (c *ClientConnection) queue(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("❌ Failed to marshal message for client %s: %v", c.ID, err)
		return
	}
	select {
	case c.Send <- data:
	default:
		log.Printf("⚠️  Client %s send buffer full, skipping message", c.ID)
	}
}

func parseChannel(channel string) (gid uint64, isGame bool, err error) {
	if channel == ChannelAll {
		return 0, false, nil
	}
	if !strings.HasPrefix(channel, channelGame) {
		return 0, false, fmt.Errorf("unknown channel %q", channel)
	}
	gid, err = strconv.ParseUint(strings.TrimPrefix(channel, channelGame), 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("bad game channel %q", channel)
	}
	return gid, true, nil
}
