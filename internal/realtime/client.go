package realtime

import (
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/AnshRaj112/econex-backend/internal/models"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 90 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 64 * 1024
)

var (
	ErrConnClosed     = errors.New("realtime: connection closed")
	ErrSendBufferFull = errors.New("realtime: send buffer full")
)

// Client is one authenticated WebSocket connection. Writes go through a buffered
// channel drained by WritePump so Send never blocks the caller.
type Client struct {
	id     string
	who    models.Identity
	socket *websocket.Conn
	send   chan []byte

	mu     sync.Mutex
	closed bool
}

func NewClient(socket *websocket.Conn, who models.Identity, buffer int) *Client {
	if buffer <= 0 {
		buffer = 64
	}
	return &Client{
		id:     uuid.NewString(),
		who:    who,
		socket: socket,
		send:   make(chan []byte, buffer),
	}
}

func (c *Client) ID() string                { return c.id }
func (c *Client) Identity() models.Identity { return c.who }

func (c *Client) Send(event string, payload interface{}) error {
	data, err := json.Marshal(Envelope{Type: event, Data: payload})
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Close stops accepting sends and lets WritePump flush and exit. Safe to call twice.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// PrepareRead applies the read limit and the pong-driven read deadline.
func (c *Client) PrepareRead() {
	c.socket.SetReadLimit(maxMessageSize)
	_ = c.socket.SetReadDeadline(time.Now().Add(pongWait))
	c.socket.SetPongHandler(func(string) error {
		return c.socket.SetReadDeadline(time.Now().Add(pongWait))
	})
}

// ReadFrame blocks for the next client frame.
func (c *Client) ReadFrame() (Inbound, error) {
	var in Inbound
	_, data, err := c.socket.ReadMessage()
	if err != nil {
		return in, err
	}
	// Any frame from the client counts as liveness.
	_ = c.socket.SetReadDeadline(time.Now().Add(pongWait))
	err = json.Unmarshal(data, &in)
	return in, err
}

// WritePump owns all writes to the socket until Close is called or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.socket.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.socket.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.socket.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("realtime: write failed for conn %s (%s): %v", c.id, c.who.ID.Hex(), err)
				return
			}
		case <-ticker.C:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
