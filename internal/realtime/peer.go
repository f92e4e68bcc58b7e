package realtime

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"chatr/internal/config"
	"chatr/internal/protocol"
)

var (
	ErrSendBufferFull = errors.New("peer send buffer full")
	ErrPeerClosed     = errors.New("peer closed")
)

// Connection is a peer as seen by the dispatcher: it may carry a token
// subject from the upgrade request and an identity bound by identify.
type Connection interface {
	Peer
	UserID() string
	SetUserID(userID string)
	TokenSubject() string
}

// Conn is one websocket client. Frames are written by WritePump only.
type Conn struct {
	id     string
	ws     *websocket.Conn
	send   chan []byte
	done   chan struct{}
	once   sync.Once
	cfg    config.RealtimeConfig
	logger *zap.Logger

	mu      sync.RWMutex
	userID  string
	subject string
}

func NewConn(ws *websocket.Conn, cfg config.RealtimeConfig, subject string, logger *zap.Logger) *Conn {
	id := uuid.NewString()
	return &Conn{
		id:      id,
		ws:      ws,
		send:    make(chan []byte, cfg.SendBuffer),
		done:    make(chan struct{}),
		cfg:     cfg,
		subject: subject,
		logger:  logger.With(zap.String("peer", id)),
	}
}

func (c *Conn) ID() string { return c.id }

func (c *Conn) TokenSubject() string { return c.subject }

func (c *Conn) UserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

func (c *Conn) SetUserID(userID string) {
	c.mu.Lock()
	c.userID = userID
	c.mu.Unlock()
}

// Emit queues an event without blocking. A full buffer is reported to the
// caller, the connection itself stays up.
func (c *Conn) Emit(event string, payload interface{}) error {
	frame, err := protocol.Encode(event, payload)
	if err != nil {
		return err
	}

	select {
	case <-c.done:
		return ErrPeerClosed
	default:
	}

	select {
	case c.send <- frame:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Close stops the write pump. Safe to call more than once.
func (c *Conn) Close() {
	c.once.Do(func() { close(c.done) })
}

// ReadPump hands every text frame to handle until the socket fails.
func (c *Conn) ReadPump(handle func(frame []byte)) {
	defer c.Close()

	c.ws.SetReadLimit(c.cfg.MaxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	for {
		_, frame, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("websocket read failed", zap.Error(err))
			}
			return
		}
		handle(frame)
	}
}

// WritePump drains the send buffer and keeps the connection alive with pings.
func (c *Conn) WritePump() {
	ticker := time.NewTicker(c.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.logger.Debug("websocket write failed", zap.Error(err))
				c.Close()
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
