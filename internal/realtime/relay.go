package realtime

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"chatr/internal/chat/service"
	"chatr/internal/common"
	"chatr/internal/dbmysql"
	"chatr/internal/protocol"
)

// SendRequest is a message submitted over the websocket or HTTP. Caller is
// the identity bound to the submitting connection or token, empty when the
// submitter is anonymous.
type SendRequest struct {
	SenderID        string
	ReceiverID      string
	Text            string
	ClientTimestamp *time.Time
	Caller          string
}

// Delivery reports what happened after a message was persisted.
type Delivery struct {
	Delivered []string // peer ids that accepted the event
	Missed    []string // user ids with no live peer
	Failed    []string // peer ids whose emit failed
}

// MessageRelay is what the transports depend on.
type MessageRelay interface {
	Send(ctx context.Context, req SendRequest) (*dbmysql.Message, Delivery, error)
}

type Relay struct {
	chat     service.ChatService
	registry Registry
	rooms    *Rooms
	logger   *zap.Logger
}

func NewRelay(chat service.ChatService, registry Registry, rooms *Rooms, logger *zap.Logger) *Relay {
	return &Relay{
		chat:     chat,
		registry: registry,
		rooms:    rooms,
		logger:   logger,
	}
}

// Send persists the message and then pushes it to the live peers of both
// participants and of the pair room. Delivery problems never undo the write.
func (r *Relay) Send(ctx context.Context, req SendRequest) (*dbmysql.Message, Delivery, error) {
	var delivery Delivery

	req.SenderID = strings.TrimSpace(req.SenderID)
	req.ReceiverID = strings.TrimSpace(req.ReceiverID)
	req.Caller = strings.TrimSpace(req.Caller)

	if req.SenderID == "" || req.ReceiverID == "" {
		return nil, delivery, fmt.Errorf("%w: senderId and receiverId are required", common.ErrInvalidRequest)
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, delivery, fmt.Errorf("%w: text is required", common.ErrInvalidRequest)
	}
	if req.Caller != "" && req.Caller != req.SenderID {
		return nil, delivery, fmt.Errorf("%w: senderId does not match the identified user", common.ErrInvalidRequest)
	}

	saved, err := r.chat.SendMessage(ctx, &dbmysql.Message{
		SenderID:        req.SenderID,
		ReceiverID:      req.ReceiverID,
		Text:            req.Text,
		ClientTimestamp: req.ClientTimestamp,
	})
	if err != nil {
		return nil, delivery, err
	}

	wire := service.ToWire(saved)
	seen := make(map[string]bool)

	targets := []string{saved.SenderID}
	if saved.ReceiverID != saved.SenderID {
		targets = append(targets, saved.ReceiverID)
	}
	for _, userID := range targets {
		peer, ok := r.registry.Lookup(userID)
		if !ok {
			r.logger.Debug("recipient offline", zap.String("user_id", userID), zap.String("message_id", saved.MessageID))
			delivery.Missed = append(delivery.Missed, userID)
			continue
		}
		if seen[peer.ID()] {
			continue
		}
		seen[peer.ID()] = true

		if err := peer.Emit(protocol.EventReceiveMessage, wire); err != nil {
			r.logger.Warn("delivery failed",
				zap.String("user_id", userID),
				zap.String("peer", peer.ID()),
				zap.String("message_id", saved.MessageID),
				zap.Error(err),
			)
			delivery.Failed = append(delivery.Failed, peer.ID())
			continue
		}
		delivery.Delivered = append(delivery.Delivered, peer.ID())
	}

	room := RoomKey(saved.SenderID, saved.ReceiverID)
	delivery.Delivered = append(delivery.Delivered,
		r.rooms.BroadcastExcept(room, protocol.EventReceiveMessage, wire, seen)...)

	return saved, delivery, nil
}
