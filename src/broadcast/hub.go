package broadcast

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	logger "github.com/sirupsen/logrus"
)

// Message is the one-way fan-out payload observers receive for every
// processed event and every enforcement outcome.
type Message struct {
	EventType string      `json:"event_type"`
	AccountID string      `json:"account_id,omitempty"`
	Payload   interface{} `json:"payload"`
	SentAt    time.Time   `json:"sent_at"`
}

const subscriberBuffer = 64

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Observers are dashboards on the same host or trusted network.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type subscriber struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans messages out to connected observers, best effort. There is no
// acknowledgment and no backpressure: a subscriber whose buffer is full
// simply misses messages, and a dead connection is dropped.
type Hub struct {
	mu   sync.Mutex
	subs map[*subscriber]bool
}

func NewHub() *Hub {
	return &Hub{subs: make(map[*subscriber]bool)}
}

// Publish sends a message to every connected subscriber without blocking.
func (h *Hub) Publish(msg Message) {
	msg.SentAt = time.Now()
	raw, err := json.Marshal(msg)
	if err != nil {
		logger.WithError(err).Warn("Failed to marshal broadcast message")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		select {
		case sub.send <- raw:
		default:
			// Slow subscriber; skip this message for it.
		}
	}
}

// Subscribers returns the current connection count.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// ServeWS upgrades an observer connection and streams messages until the
// peer goes away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WithError(err).Warn("Broadcast upgrade failed")
		return
	}

	sub := &subscriber{conn: conn, send: make(chan []byte, subscriberBuffer)}
	h.mu.Lock()
	h.subs[sub] = true
	h.mu.Unlock()

	logger.WithField("remote", conn.RemoteAddr().String()).Info("Broadcast subscriber connected")

	go h.writeLoop(sub)
	h.readLoop(sub)
}

func (h *Hub) writeLoop(sub *subscriber) {
	for raw := range sub.send {
		if err := sub.conn.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
			break
		}
		if err := sub.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
			break
		}
	}
	sub.conn.Close()
}

// readLoop drains inbound frames (observers send nothing meaningful) and
// detects disconnects.
func (h *Hub) readLoop(sub *subscriber) {
	defer func() {
		h.mu.Lock()
		if h.subs[sub] {
			delete(h.subs, sub)
			close(sub.send)
		}
		h.mu.Unlock()
		sub.conn.Close()
		logger.Info("Broadcast subscriber disconnected")
	}()

	sub.conn.SetReadLimit(512)
	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			return
		}
	}
}
