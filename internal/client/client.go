package client

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"chatr/internal/config"
	"chatr/internal/protocol"
)

var ErrNoConversation = errors.New("no conversation open")

// Client ties a live Session to a Reconciler, falling back to the REST API
// for sends while the session is not identified.
type Client struct {
	self    string
	api     *API
	session *Session
	history *Reconciler
	logger  *zap.Logger

	mu      sync.Mutex
	runCtx  context.Context
	onState func(State)
	onError func(protocol.Error)
	synced  bool
}

func New(cfg *config.ClientConfig, self, token string, dialer Dialer, logger *zap.Logger) (*Client, error) {
	api := NewAPI(cfg.ServerURL, cfg.DialTimeout)
	api.SetToken(token)

	session, err := NewSession(cfg, self, token, dialer, logger)
	if err != nil {
		return nil, err
	}

	c := &Client{
		self:    self,
		api:     api,
		session: session,
		history: NewReconciler(self, api),
		logger:  logger.With(zap.String("user", self)),
	}
	session.OnEvent(c.handleEvent)
	session.OnStateChange(c.handleState)
	return c, nil
}

func (c *Client) Run(ctx context.Context) error {
	c.mu.Lock()
	c.runCtx = ctx
	c.synced = false
	c.mu.Unlock()
	return c.session.Run(ctx)
}

func (c *Client) API() *API { return c.api }

func (c *Client) Self() string { return c.self }

func (c *Client) State() State { return c.session.State() }

func (c *Client) Messages() []protocol.Message { return c.history.Messages() }

func (c *Client) Peer() string { return c.history.Peer() }

func (c *Client) OnChange(fn func([]protocol.Message)) { c.history.OnChange(fn) }

func (c *Client) OnStateChange(fn func(State)) {
	c.mu.Lock()
	c.onState = fn
	c.mu.Unlock()
}

// OnError receives error events reported by the server.
func (c *Client) OnError(fn func(protocol.Error)) {
	c.mu.Lock()
	c.onError = fn
	c.mu.Unlock()
}

// Open switches to the conversation with peer and joins its room when live.
func (c *Client) Open(ctx context.Context, peer string) error {
	if err := c.history.Open(ctx, peer); err != nil {
		return err
	}
	if c.session.State().Ready() {
		if err := c.session.JoinRoom(peer); err != nil {
			c.logger.Warn("join room failed", zap.String("peer", peer), zap.Error(err))
		}
	}
	return nil
}

// Send delivers text to the open conversation over the live channel, or
// through POST /messages when the channel is not ready.
func (c *Client) Send(ctx context.Context, text string) error {
	peer := c.history.Peer()
	if peer == "" {
		return ErrNoConversation
	}

	if c.session.State().Ready() {
		err := c.session.SendMessage(peer, text)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrNotConnected) && !errors.Is(err, ErrTransport) {
			return err
		}
		c.logger.Info("live send failed, using http", zap.Error(err))
	}

	msg, err := c.api.PostMessage(ctx, c.self, peer, text)
	if err != nil {
		return err
	}
	c.history.HandleEvent(*msg)
	return nil
}

func (c *Client) handleEvent(env protocol.Envelope) {
	switch env.Event {
	case protocol.EventReceiveMessage:
		var msg protocol.Message
		if err := env.DecodeData(&msg); err != nil {
			c.logger.Warn("bad receive-message payload", zap.Error(err))
			return
		}
		c.history.HandleEvent(msg)

	case protocol.EventError:
		var e protocol.Error
		if err := env.DecodeData(&e); err != nil {
			c.logger.Warn("bad error payload", zap.Error(err))
			return
		}
		c.logger.Warn("server error", zap.String("code", e.Code), zap.String("message", e.Message))
		c.mu.Lock()
		fn := c.onError
		c.mu.Unlock()
		if fn != nil {
			fn(e)
		}

	default:
		c.logger.Debug("ignoring event", zap.String("event", env.Event))
	}
}

// handleState rejoins the open room after every identify and refetches history
// after a reconnect, since live pushes were missed while offline.
func (c *Client) handleState(st State) {
	c.mu.Lock()
	fn := c.onState
	ctx := c.runCtx
	resync := false
	if st.Ready() {
		resync = c.synced
		c.synced = true
	}
	c.mu.Unlock()

	if fn != nil {
		fn(st)
	}
	if !st.Ready() {
		return
	}

	peer := c.history.Peer()
	if peer == "" {
		return
	}
	if err := c.session.JoinRoom(peer); err != nil {
		c.logger.Warn("rejoin room failed", zap.String("peer", peer), zap.Error(err))
	}
	if resync && ctx != nil {
		go func() {
			if err := c.history.Open(ctx, peer); err != nil && !errors.Is(err, ErrSuperseded) {
				c.logger.Warn("history resync failed", zap.String("peer", peer), zap.Error(err))
			}
		}()
	}
}
