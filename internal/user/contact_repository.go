package user

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"chatr/internal/common"
	"chatr/internal/dbmysql"
)

type ContactRepository interface {
	AddContact(ctx context.Context, userID, contactID string) error
	ContactExists(ctx context.Context, userID, contactID string) (bool, error)
	ListContactIDs(ctx context.Context, userID string) ([]string, error)
	ListContacts(ctx context.Context, userID string) ([]*dbmysql.User, error)
}

type contactRepository struct {
	db *gorm.DB
}

func NewContactRepository(db *gorm.DB) ContactRepository {
	return &contactRepository{db: db}
}

func (r *contactRepository) AddContact(ctx context.Context, userID, contactID string) error {
	err := r.db.WithContext(ctx).Create(&dbmysql.Contact{UserID: userID, ContactID: contactID}).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: user already in contacts", common.ErrConflict)
		}
		return fmt.Errorf("%w: add contact: %v", common.ErrPersistence, err)
	}
	return nil
}

func (r *contactRepository) ContactExists(ctx context.Context, userID, contactID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&dbmysql.Contact{}).
		Where("user_id = ? AND contact_id = ?", userID, contactID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("%w: check contact: %v", common.ErrPersistence, err)
	}
	return count > 0, nil
}

// ListContactIDs returns contact ids in insertion order.
func (r *contactRepository) ListContactIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&dbmysql.Contact{}).
		Where("user_id = ?", userID).
		Order("id ASC").
		Pluck("contact_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("%w: list contacts: %v", common.ErrPersistence, err)
	}
	return ids, nil
}

func (r *contactRepository) ListContacts(ctx context.Context, userID string) ([]*dbmysql.User, error) {
	var users []*dbmysql.User
	err := r.db.WithContext(ctx).
		Joins("JOIN contacts ON contacts.contact_id = users.user_id").
		Where("contacts.user_id = ?", userID).
		Order("contacts.id ASC").
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("%w: list contacts: %v", common.ErrPersistence, err)
	}
	return users, nil
}
