package chat

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"realchat/logger"
)

const (
	writeWait = 5 * time.Second
	pingEvery = 25 * time.Second
	sendQueue = 256
)

// Client is one live connection of one authenticated user. A user may hold
// several clients at once (multiple devices); each keeps its own outbound
// queue drained by a single writer goroutine.
type Client struct {
	ConnID string
	UserID string
	WS     *websocket.Conn
	Send   chan []byte

	done chan struct{}

	mu      sync.Mutex
	viewing string // ephemeral "currently viewing thread" marker
}

func NewClient(connID, userID string, ws *websocket.Conn) *Client {
	return &Client{
		ConnID: connID,
		UserID: userID,
		WS:     ws,
		Send:   make(chan []byte, sendQueue),
		done:   make(chan struct{}),
	}
}

// SetViewing records the advisory viewing marker. It lives only on this
// connection and dies with it; a stale marker can only make an unseen
// counter stale, never lose data.
func (c *Client) SetViewing(threadID string) {
	c.mu.Lock()
	c.viewing = threadID
	c.mu.Unlock()
}

func (c *Client) Viewing() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewing
}

// Push enqueues without blocking; a slow client drops frames and re-syncs
// on its next pull.
func (c *Client) Push(payload []byte) {
	if len(payload) == 0 {
		return
	}
	select {
	case c.Send <- payload:
	default:
		logger.Warnf("[client] send queue full, dropping frame conn=%s user=%s", c.ConnID, c.UserID)
	}
}

// Close stops the writer goroutine. The websocket itself is closed by the
// read loop owner.
func (c *Client) Close() {
	select {
	case <-c.done:
	default:
		close(c.done)
	}
}

// WritePump is the single writer for this connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case data := <-c.Send:
			_ = c.WS.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.WS.WriteMessage(websocket.TextMessage, data); err != nil {
				logger.Debug("[client] write failed, stopping writer")
				return
			}
		case <-ticker.C:
			_ = c.WS.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.WS.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
