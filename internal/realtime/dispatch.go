package realtime

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"chatr/internal/common"
	"chatr/internal/protocol"
)

type eventHandler func(ctx context.Context, conn Connection, env protocol.Envelope) error

// Dispatcher routes inbound envelopes to a handler per event name. Handler
// errors are reported to the originating connection as error events.
type Dispatcher struct {
	registry Registry
	rooms    *Rooms
	relay    MessageRelay
	logger   *zap.Logger
	handlers map[string]eventHandler
}

func NewDispatcher(registry Registry, rooms *Rooms, relay MessageRelay, logger *zap.Logger) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		rooms:    rooms,
		relay:    relay,
		logger:   logger,
	}
	d.handlers = map[string]eventHandler{
		protocol.EventIdentify:    d.identify,
		protocol.EventJoinRoom:    d.joinRoom,
		protocol.EventSendMessage: d.sendMessage,
	}
	return d
}

// Dispatch decodes one frame and runs its handler.
func (d *Dispatcher) Dispatch(ctx context.Context, conn Connection, frame []byte) {
	env, err := protocol.Decode(frame)
	if err != nil {
		d.reject(conn, "", fmt.Errorf("%w: %v", common.ErrInvalidRequest, err))
		return
	}

	handle, ok := d.handlers[env.Event]
	if !ok {
		d.reject(conn, env.Event, fmt.Errorf("%w: unknown event %q", common.ErrInvalidRequest, env.Event))
		return
	}

	if err := handle(ctx, conn, env); err != nil {
		d.reject(conn, env.Event, err)
	}
}

// Disconnect releases everything the connection held.
func (d *Dispatcher) Disconnect(conn Connection) {
	if userID, removed := d.registry.Unregister(conn); removed {
		d.logger.Info("user offline", zap.String("user_id", userID), zap.String("peer", conn.ID()))
	}
	d.rooms.LeaveAll(conn)
}

func (d *Dispatcher) identify(_ context.Context, conn Connection, env protocol.Envelope) error {
	var userID string
	if err := env.DecodeData(&userID); err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidRequest, err)
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("%w: user id is required", common.ErrInvalidRequest)
	}
	if sub := conn.TokenSubject(); sub != "" && sub != userID {
		return fmt.Errorf("%w: identify does not match token subject", common.ErrUnauthorized)
	}

	conn.SetUserID(userID)
	d.registry.Register(userID, conn)
	for _, key := range d.rooms.Retain(conn, userID) {
		d.logger.Debug("left foreign room", zap.String("room", key), zap.String("peer", conn.ID()))
	}
	d.logger.Info("user online", zap.String("user_id", userID), zap.String("peer", conn.ID()))
	return nil
}

func (d *Dispatcher) joinRoom(_ context.Context, conn Connection, env protocol.Envelope) error {
	var key string
	if err := env.DecodeData(&key); err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidRequest, err)
	}
	if err := ValidateRoomKey(key); err != nil {
		return err
	}
	if self := identity(conn); self != "" && !RoomIncludes(key, self) {
		return fmt.Errorf("%w: room %q does not include %s", common.ErrUnauthorized, key, self)
	}

	d.rooms.Join(conn, key)
	d.logger.Debug("joined room", zap.String("room", key), zap.String("peer", conn.ID()))
	return nil
}

func (d *Dispatcher) sendMessage(ctx context.Context, conn Connection, env protocol.Envelope) error {
	var payload protocol.SendMessage
	if err := env.DecodeData(&payload); err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidRequest, err)
	}

	_, _, err := d.relay.Send(ctx, SendRequest{
		SenderID:        payload.SenderID,
		ReceiverID:      payload.ReceiverID,
		Text:            payload.Text,
		ClientTimestamp: protocol.ClientTime(payload.Timestamp),
		Caller:          identity(conn),
	})
	return err
}

// identity is the identified user, or the token subject before identify.
func identity(conn Connection) string {
	if id := conn.UserID(); id != "" {
		return id
	}
	return conn.TokenSubject()
}

func (d *Dispatcher) reject(conn Connection, event string, err error) {
	d.logger.Debug("event rejected", zap.String("event", event), zap.String("peer", conn.ID()), zap.Error(err))

	if emitErr := conn.Emit(protocol.EventError, protocol.Error{
		Code:    common.ErrorCode(err),
		Message: err.Error(),
		Event:   event,
	}); emitErr != nil {
		d.logger.Warn("error event not delivered", zap.String("peer", conn.ID()), zap.Error(emitErr))
	}
}
