package handlers

import (
	"log"
	"sync"
	"time"

	"card-battle-service/services"

	"github.com/gofiber/contrib/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 32
)

// wsClient adapts one WebSocket connection to services.EventSink. Events
// are queued on a buffered channel and written by a single pump goroutine;
// Send never blocks gameplay.
type wsClient struct {
	conn   *websocket.Conn
	send   chan services.Envelope
	done   chan struct{}
	once   sync.Once
	wallet string
}

func newWSClient(conn *websocket.Conn) *wsClient {
	return &wsClient{
		conn: conn,
		send: make(chan services.Envelope, sendBuffer),
		done: make(chan struct{}),
	}
}

func (c *wsClient) Send(env services.Envelope) {
	select {
	case <-c.done:
	case c.send <- env:
	default:
		log.Printf("⚠️ dropping %s event for %s: send buffer full", env.Event, c.wallet)
	}
}

func (c *wsClient) shutdown() {
	c.once.Do(func() { close(c.done) })
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case env := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(env); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
