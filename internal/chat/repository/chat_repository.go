package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"chatr/internal/common"
	"chatr/internal/dbmysql"
)

// ChatRepository is the message store.
type ChatRepository interface {
	Save(ctx context.Context, msg *dbmysql.Message) error
	FetchConversation(ctx context.Context, userA, userB string) ([]*dbmysql.Message, error)
	FindPeers(ctx context.Context, userID string) ([]string, error)
}

type chatRepo struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepo{db: db}
}

func (r *chatRepo) Save(ctx context.Context, msg *dbmysql.Message) error {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return fmt.Errorf("%w: save message: %v", common.ErrPersistence, err)
	}
	return nil
}

// FetchConversation returns both directions of the pair, oldest first. Rows
// sharing a timestamp come back in the order they were stored.
func (r *chatRepo) FetchConversation(ctx context.Context, userA, userB string) ([]*dbmysql.Message, error) {
	var messages []*dbmysql.Message
	err := r.db.WithContext(ctx).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)", userA, userB, userB, userA).
		Order("timestamp ASC, seq ASC").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("%w: fetch conversation: %v", common.ErrPersistence, err)
	}
	return messages, nil
}

// FindPeers lists every user that sent to or received from userID.
func (r *chatRepo) FindPeers(ctx context.Context, userID string) ([]string, error) {
	var sentTo []string
	err := r.db.WithContext(ctx).
		Model(&dbmysql.Message{}).
		Where("sender_id = ?", userID).
		Distinct("receiver_id").
		Pluck("receiver_id", &sentTo).Error
	if err != nil {
		return nil, fmt.Errorf("%w: find peers: %v", common.ErrPersistence, err)
	}

	var receivedFrom []string
	err = r.db.WithContext(ctx).
		Model(&dbmysql.Message{}).
		Where("receiver_id = ?", userID).
		Distinct("sender_id").
		Pluck("sender_id", &receivedFrom).Error
	if err != nil {
		return nil, fmt.Errorf("%w: find peers: %v", common.ErrPersistence, err)
	}

	seen := make(map[string]bool, len(sentTo)+len(receivedFrom))
	peers := make([]string, 0, len(sentTo)+len(receivedFrom))
	for _, id := range append(sentTo, receivedFrom...) {
		if id == userID || seen[id] {
			continue
		}
		seen[id] = true
		peers = append(peers, id)
	}
	return peers, nil
}
