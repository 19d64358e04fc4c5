package server

import (
	"errors"
	"sync"
	"time"

	"trade-orders/src/logger"
	"trade-orders/src/models"
	"trade-orders/src/notification"

	"github.com/gorilla/websocket"
)

var (
	errSendQueueFull  = errors.New("send queue full")
	errConnectionGone = errors.New("connection gone")
)

var _ notification.Subscriber = (*Client)(nil)

// -----------------------------------------------------------------------------
// Client Structure
// -----------------------------------------------------------------------------

// Client is one /ws connection registered with the hub. The hub queues text
// on send; writePump drains it to the socket.
type Client struct {
	id     string
	hub    *notification.Hub
	conn   *websocket.Conn
	logger *logger.Logger

	writeWait      time.Duration
	pongWait       time.Duration
	pingPeriod     time.Duration
	maxMessageSize int64

	mu     sync.Mutex
	send   chan string
	closed bool

	done     chan struct{}
	doneOnce sync.Once
}

// -----------------------------------------------------------------------------

func newClient(id string, hub *notification.Hub, conn *websocket.Conn, cfg models.MWebSocketConfig, log *logger.Logger) *Client {
	pongWait := time.Duration(cfg.PongWaitSeconds) * time.Second
	return &Client{
		id:             id,
		hub:            hub,
		conn:           conn,
		logger:         log,
		writeWait:      time.Duration(cfg.WriteWaitSeconds) * time.Second,
		pongWait:       pongWait,
		pingPeriod:     (pongWait * 9) / 10,
		maxMessageSize: cfg.MaxMessageSize,
		send:           make(chan string, cfg.SendBuffer),
		done:           make(chan struct{}),
	}
}

// -----------------------------------------------------------------------------
// notification.Subscriber
// -----------------------------------------------------------------------------

// Send never blocks: a full queue means the client is too slow.
func (c *Client) Send(message string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return notification.ErrSubscriberClosed
	}

	select {
	case <-c.done:
		return errConnectionGone
	default:
	}

	select {
	case c.send <- message:
		return nil
	default:
		return errSendQueueFull
	}
}

// Close ends the outbound queue; writePump sends a close frame and exits.
func (c *Client) Close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	c.mu.Unlock()
	c.markDone()
}

func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) markDone() {
	c.doneOnce.Do(func() { close(c.done) })
}

// -----------------------------------------------------------------------------
// readPump - every inbound text is echoed to all subscribers
// Act as a Watchdog for the connection
// -----------------------------------------------------------------------------

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.Close()
		c.conn.Close()
		c.logger.Info("Client %s disconnected", c.id)
	}()

	c.conn.SetReadLimit(c.maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Warning("WebSocket error on client %s: %v", c.id, err)
			}
			break
		}
		c.hub.Broadcast(notification.OrderUpdateMessage(string(message)))
	}
}

// -----------------------------------------------------------------------------
// writePump - sends queued messages to the client
// -----------------------------------------------------------------------------

func (c *Client) writePump() {
	ticker := time.NewTicker(c.pingPeriod)
	defer func() {
		ticker.Stop()
		c.markDone()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, []byte(message)); err != nil {
				c.logger.Info("Write error on client %s: %v", c.id, err)
				c.markDone()
				c.hub.Unregister(c)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.markDone()
				c.hub.Unregister(c)
				return
			}
		}
	}
}
