package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"chatr/internal/config"
	"chatr/internal/protocol"
	"chatr/internal/realtime"
)

var (
	// ErrTransport wraps dial, read and write failures on the live channel.
	ErrTransport = errors.New("transport failure")
	// ErrReconnectExhausted is returned by Run once the retry ceiling is hit.
	ErrReconnectExhausted = errors.New("reconnect attempts exhausted")
	ErrNotConnected       = errors.New("not connected")
	ErrAlreadyRunning     = errors.New("session already running")
)

const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second
)

// Transport is one live connection.
type Transport interface {
	Read() ([]byte, error)
	Write(frame []byte) error
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context, rawURL string) (Transport, error)
}

// Session keeps one identified websocket open, reconnecting with backoff.
type Session struct {
	cfg    *config.ClientConfig
	userID string
	url    string
	dialer Dialer
	logger *zap.Logger
	sleep  func(ctx context.Context, d time.Duration) error

	hookMu  sync.RWMutex
	onEvent func(protocol.Envelope)
	onState func(State)

	mu      sync.Mutex
	state   State
	conn    Transport
	running bool
}

func NewSession(cfg *config.ClientConfig, userID, token string, dialer Dialer, logger *zap.Logger) (*Session, error) {
	wsURL, err := WebSocketURL(cfg.ServerURL, token)
	if err != nil {
		return nil, err
	}
	if dialer == nil {
		dialer = NewWebSocketDialer(cfg.DialTimeout)
	}
	return &Session{
		cfg:    cfg,
		userID: userID,
		url:    wsURL,
		dialer: dialer,
		logger: logger.With(zap.String("user", userID)),
		sleep:  sleepContext,
	}, nil
}

// WebSocketURL maps the HTTP base URL onto the /ws endpoint.
func WebSocketURL(serverURL, token string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("invalid server url %q: %w", serverURL, err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("invalid server url %q: unsupported scheme", serverURL)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	q := url.Values{}
	if token != "" {
		q.Set("token", token)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// OnEvent receives every inbound envelope on the read goroutine.
func (s *Session) OnEvent(fn func(protocol.Envelope)) {
	s.hookMu.Lock()
	s.onEvent = fn
	s.hookMu.Unlock()
}

func (s *Session) OnStateChange(fn func(State)) {
	s.hookMu.Lock()
	s.onState = fn
	s.hookMu.Unlock()
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) UserID() string { return s.userID }

func (s *Session) transition(next func(State) State) State {
	s.mu.Lock()
	prev := s.state
	s.state = next(prev)
	cur := s.state
	s.mu.Unlock()

	if cur != prev {
		s.logger.Debug("session state", zap.Stringer("from", prev), zap.Stringer("to", cur))
		s.hookMu.RLock()
		fn := s.onState
		s.hookMu.RUnlock()
		if fn != nil {
			fn(cur)
		}
	}
	return cur
}

// Run connects and keeps the session alive until ctx is cancelled or the
// reconnect ceiling is exceeded. A Failed session may be Run again.
func (s *Session) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	s.transition(State.Connect)
	for {
		err := s.connectOnce(ctx)
		if ctx.Err() != nil {
			s.transition(State.Close)
			return ctx.Err()
		}

		ceiling := s.cfg.ReconnectAttempts
		st := s.transition(func(cur State) State { return cur.TransportError(ceiling) })
		if st.Phase == PhaseFailed {
			s.logger.Error("giving up on reconnect", zap.Int("attempts", st.Attempt), zap.Error(err))
			return fmt.Errorf("%w after %d attempts: %v", ErrReconnectExhausted, st.Attempt, err)
		}

		delay := Backoff(st.Attempt, s.cfg.ReconnectDelay, s.cfg.MaxReconnectDelay)
		s.logger.Warn("connection lost, retrying",
			zap.Int("attempt", st.Attempt), zap.Duration("delay", delay), zap.Error(err))
		if err := s.sleep(ctx, delay); err != nil {
			s.transition(State.Close)
			return err
		}
	}
}

// connectOnce dials, identifies and reads until the transport drops.
func (s *Session) connectOnce(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, s.cfg.DialTimeout)
	conn, err := s.dialer.Dial(dialCtx, s.url)
	cancel()
	if err != nil {
		return fmt.Errorf("%w: dial: %v", ErrTransport, err)
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
		_ = conn.Close()
	}()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	s.transition(State.Established)

	// the registry is wiped on disconnect, so every fresh connection identifies
	if err := s.write(conn, protocol.EventIdentify, s.userID); err != nil {
		return err
	}
	s.transition(State.Identify)

	for {
		frame, err := conn.Read()
		if err != nil {
			return fmt.Errorf("%w: read: %v", ErrTransport, err)
		}
		env, err := protocol.Decode(frame)
		if err != nil {
			s.logger.Warn("dropping malformed frame", zap.Error(err))
			continue
		}

		s.hookMu.RLock()
		fn := s.onEvent
		s.hookMu.RUnlock()
		if fn != nil {
			fn(env)
		}
	}
}

func (s *Session) write(conn Transport, event string, payload interface{}) error {
	frame, err := protocol.Encode(event, payload)
	if err != nil {
		return err
	}
	if err := conn.Write(frame); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrTransport, event, err)
	}
	return nil
}

// Send writes one event on the current connection.
func (s *Session) Send(event string, payload interface{}) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	return s.write(conn, event, payload)
}

func (s *Session) JoinRoom(peerID string) error {
	return s.Send(protocol.EventJoinRoom, realtime.RoomKey(s.userID, peerID))
}

func (s *Session) SendMessage(receiverID, text string) error {
	return s.Send(protocol.EventSendMessage, protocol.SendMessage{
		SenderID:   s.userID,
		ReceiverID: receiverID,
		Text:       text,
		Timestamp:  time.Now().UnixMilli(),
	})
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// wsTransport adapts a gorilla connection. Writes are serialized because the
// read goroutine answers pings while callers send events.
type wsTransport struct {
	ws *websocket.Conn
	mu sync.Mutex
}

type webSocketDialer struct {
	dialer *websocket.Dialer
}

func NewWebSocketDialer(timeout time.Duration) Dialer {
	return &webSocketDialer{
		dialer: &websocket.Dialer{
			Proxy:            websocket.DefaultDialer.Proxy,
			HandshakeTimeout: timeout,
		},
	}
}

func (d *webSocketDialer) Dial(ctx context.Context, rawURL string) (Transport, error) {
	ws, resp, err := d.dialer.DialContext(ctx, rawURL, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("%v (status %d)", err, resp.StatusCode)
		}
		return nil, err
	}

	t := &wsTransport{ws: ws}
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPingHandler(func(data string) error {
		_ = ws.SetReadDeadline(time.Now().Add(pongWait))
		t.mu.Lock()
		defer t.mu.Unlock()
		err := ws.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeWait))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})
	return t, nil
}

func (t *wsTransport) Read() ([]byte, error) {
	_, frame, err := t.ws.ReadMessage()
	return frame, err
}

func (t *wsTransport) Write(frame []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_ = t.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return t.ws.WriteMessage(websocket.TextMessage, frame)
}

func (t *wsTransport) Close() error {
	t.mu.Lock()
	_ = t.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	t.mu.Unlock()
	return t.ws.Close()
}
