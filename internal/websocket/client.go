package websocket

import (
	"errors"
	"sync"
	"time"

	"github.com/dafibh/qist/qist-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// Subscribers never send data frames; anything larger than a control
	// frame is a misbehaving peer.
	maxInboundSize = 512

	queueSize = 64
)

// ErrClientSlow is returned when a subscriber's queue is full. The event is
// dropped for that subscriber only; plan state is always reloadable over REST.
var ErrClientSlow = errors.New("client queue is full")

// Client is a push-only plan event subscriber bound to one channel.
type Client struct {
	id      string
	subject string
	channel string
	conn    *websocket.Conn
	hub     *Hub
	queue   chan []byte
	done    chan struct{}
	once    sync.Once
}

// NewClient subscribes an upgraded connection to the caller's channel.
// It fails with ErrNoChannel for callers that may not follow any plan.
func NewClient(conn *websocket.Conn, caller domain.Caller, hub *Hub) (*Client, error) {
	channel, err := ChannelFor(caller)
	if err != nil {
		return nil, err
	}
	return &Client{
		id:      uuid.NewString(),
		subject: caller.Subject,
		channel: channel,
		conn:    conn,
		hub:     hub,
		queue:   make(chan []byte, queueSize),
		done:    make(chan struct{}),
	}, nil
}

func (c *Client) ID() string      { return c.id }
func (c *Client) Channel() string { return c.channel }

// Send queues an encoded event without blocking the publisher.
func (c *Client) Send(data []byte) error {
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}
	select {
	case c.queue <- data:
		return nil
	default:
		return ErrClientSlow
	}
}

// Close sends a going-away frame and drops the connection. Safe to call
// from the hub and from both loops.
func (c *Client) Close() error {
	var err error
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
		err = c.conn.Close()
	})
	return err
}

// Start registers the client and runs its loops until the peer goes away
// or the hub closes it.
func (c *Client) Start() {
	c.hub.Register(c)
	c.logger().Info().Msg("Plan event subscriber connected")
	go c.writeLoop()
	go c.readLoop()
}

func (c *Client) logger() *zerolog.Logger {
	l := log.With().
		Str("client_id", c.id).
		Str("subject", c.subject).
		Str("channel", c.channel).
		Logger()
	return &l
}

// readLoop only keeps the read deadline fresh on pongs and notices when the
// peer disconnects.
func (c *Client) readLoop() {
	defer func() {
		c.hub.Unregister(c)
		c.Close()
	}()

	c.conn.SetReadLimit(maxInboundSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.NextReader(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger().Warn().Err(err).Msg("Plan event subscriber dropped")
			}
			return
		}
	}
}

// writeLoop is the connection's only data writer.
func (c *Client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case data := <-c.queue:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger().Warn().Err(err).Msg("Failed to push plan event")
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
