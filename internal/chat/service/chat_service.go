package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"chatr/internal/chat/repository"
	"chatr/internal/common"
	"chatr/internal/dbmysql"
	"chatr/internal/protocol"
)

// ChatService defines the interface exposed to the relay and handler layers
type ChatService interface {
	SendMessage(ctx context.Context, msg *dbmysql.Message) (*dbmysql.Message, error)
	GetConversation(ctx context.Context, userID, otherUserID string) ([]*dbmysql.Message, error)
}

type chatService struct {
	repo  repository.ChatRepository
	now   func() time.Time
	newID func() string
}

// Constructor used in DI/wire
func NewChatService(r repository.ChatRepository) ChatService {
	return &chatService{
		repo:  r,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

// SendMessage validates and stores a new message. The id and the ordering
// timestamp are always assigned here.
func (s *chatService) SendMessage(ctx context.Context, msg *dbmysql.Message) (*dbmysql.Message, error) {
	if msg == nil {
		return nil, fmt.Errorf("%w: message is required", common.ErrInvalidRequest)
	}
	if msg.SenderID == "" {
		return nil, fmt.Errorf("%w: sender ID cannot be empty", common.ErrInvalidRequest)
	}
	if msg.ReceiverID == "" {
		return nil, fmt.Errorf("%w: receiver ID cannot be empty", common.ErrInvalidRequest)
	}
	if strings.TrimSpace(msg.Text) == "" {
		return nil, fmt.Errorf("%w: message text cannot be empty", common.ErrInvalidRequest)
	}

	msg.MessageID = s.newID()
	msg.Timestamp = s.now()

	if err := s.repo.Save(ctx, msg); err != nil {
		return nil, err
	}

	return msg, nil
}

// GetConversation returns the full history of the pair ordered by timestamp
func (s *chatService) GetConversation(ctx context.Context, userID, otherUserID string) ([]*dbmysql.Message, error) {
	if userID == "" || otherUserID == "" {
		return nil, fmt.Errorf("%w: userId and otherUserId are required", common.ErrInvalidRequest)
	}

	return s.repo.FetchConversation(ctx, userID, otherUserID)
}

// ToWire converts a stored message into its wire representation.
func ToWire(m *dbmysql.Message) protocol.Message {
	return protocol.Message{
		ID:              m.MessageID,
		SenderID:        m.SenderID,
		ReceiverID:      m.ReceiverID,
		Text:            m.Text,
		Timestamp:       m.Timestamp,
		ClientTimestamp: m.ClientTimestamp,
	}
}

func ToWireList(messages []*dbmysql.Message) []protocol.Message {
	out := make([]protocol.Message, 0, len(messages))
	for _, m := range messages {
		out = append(out, ToWire(m))
	}
	return out
}
