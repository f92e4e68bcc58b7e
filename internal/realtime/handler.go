package realtime

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"chatr/internal/common"
	"chatr/internal/config"
)

// Handler upgrades GET /ws and runs the connection until it closes.
type Handler struct {
	upgrader   websocket.Upgrader
	dispatcher *Dispatcher
	tokens     *common.TokenManager
	cfg        config.RealtimeConfig
	logger     *zap.Logger

	mu       sync.Mutex
	conns    map[*Conn]struct{}
	stopping bool
	wg       sync.WaitGroup
}

func NewHandler(dispatcher *Dispatcher, tokens *common.TokenManager, cfg *config.Config, logger *zap.Logger) *Handler {
	return &Handler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// origins are enforced by the CORS middleware
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		dispatcher: dispatcher,
		tokens:     tokens,
		cfg:        cfg.Realtime,
		logger:     logger,
		conns:      make(map[*Conn]struct{}),
	}
}

func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	var subject string
	if token := r.URL.Query().Get("token"); token != "" {
		claims, err := h.tokens.ValidToken(token)
		if err != nil {
			common.WriteError(w, "invalid or expired token", err)
			return
		}
		subject = claims.UserID
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	conn := NewConn(ws, h.cfg, subject, h.logger)
	if !h.track(conn) {
		_ = ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		ws.Close()
		return
	}
	defer h.untrack(conn)
	h.logger.Debug("websocket connected", zap.String("peer", conn.ID()), zap.String("remote", r.RemoteAddr))

	// request contexts end once the handler hijacks the connection
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go conn.WritePump()
	conn.ReadPump(func(frame []byte) {
		h.dispatcher.Dispatch(ctx, conn, frame)
	})

	h.dispatcher.Disconnect(conn)
	h.logger.Debug("websocket disconnected", zap.String("peer", conn.ID()))
}

func (h *Handler) track(conn *Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopping {
		return false
	}
	h.conns[conn] = struct{}{}
	h.wg.Add(1)
	return true
}

func (h *Handler) untrack(conn *Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
	h.wg.Done()
}

// Shutdown closes every live websocket and waits for their sessions to be
// released. http.Server.Shutdown does not track hijacked connections, so the
// server calls this alongside it. New upgrades are refused from here on.
func (h *Handler) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.stopping = true
	open := make([]*Conn, 0, len(h.conns))
	for conn := range h.conns {
		open = append(open, conn)
	}
	h.mu.Unlock()

	for _, conn := range open {
		conn.Close()
	}
	h.logger.Info("closing websocket sessions", zap.Int("open", len(open)))

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Open reports how many websocket sessions are live.
func (h *Handler) Open() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}
