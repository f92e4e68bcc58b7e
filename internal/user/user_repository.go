package user

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"chatr/internal/common"
	"chatr/internal/dbmysql"
)

// UserRepository is the account store. Missing rows are reported as
// common.ErrNotFound, driver failures as common.ErrPersistence.
type UserRepository interface {
	CreateUser(ctx context.Context, user *dbmysql.User) error
	GetUserByID(ctx context.Context, userID string) (*dbmysql.User, error)
	GetUserByPhone(ctx context.Context, phone string) (*dbmysql.User, error)
	CheckPhoneExists(ctx context.Context, phone string) (bool, error)
	ListUsers(ctx context.Context, excludeID string) ([]*dbmysql.User, error)
	ListUsersByIDs(ctx context.Context, ids []string, excludePhone string) ([]*dbmysql.User, error)
	UpdateUser(ctx context.Context, user *dbmysql.User) error
	DeleteUser(ctx context.Context, userID string) error
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) CreateUser(ctx context.Context, user *dbmysql.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: phone number already registered", common.ErrConflict)
		}
		return fmt.Errorf("%w: create user: %v", common.ErrPersistence, err)
	}
	return nil
}

func (r *userRepository) GetUserByID(ctx context.Context, userID string) (*dbmysql.User, error) {
	var user dbmysql.User
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&user).Error
	if err != nil {
		return nil, notFoundOr(err, "user not found")
	}
	return &user, nil
}

func (r *userRepository) GetUserByPhone(ctx context.Context, phone string) (*dbmysql.User, error) {
	var user dbmysql.User
	err := r.db.WithContext(ctx).Where("phone = ?", phone).First(&user).Error
	if err != nil {
		return nil, notFoundOr(err, "user not found")
	}
	return &user, nil
}

func (r *userRepository) CheckPhoneExists(ctx context.Context, phone string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&dbmysql.User{}).Where("phone = ?", phone).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("%w: check phone: %v", common.ErrPersistence, err)
	}
	return count > 0, nil
}

// ListUsers returns every account, minus excludeID when it is set.
func (r *userRepository) ListUsers(ctx context.Context, excludeID string) ([]*dbmysql.User, error) {
	var users []*dbmysql.User
	q := r.db.WithContext(ctx).Order("full_name ASC")
	if excludeID != "" {
		q = q.Where("user_id <> ?", excludeID)
	}
	if err := q.Find(&users).Error; err != nil {
		return nil, fmt.Errorf("%w: list users: %v", common.ErrPersistence, err)
	}
	return users, nil
}

func (r *userRepository) ListUsersByIDs(ctx context.Context, ids []string, excludePhone string) ([]*dbmysql.User, error) {
	if len(ids) == 0 {
		return []*dbmysql.User{}, nil
	}

	var users []*dbmysql.User
	q := r.db.WithContext(ctx).Where("user_id IN ?", ids)
	if excludePhone != "" {
		q = q.Where("phone <> ?", excludePhone)
	}
	if err := q.Find(&users).Error; err != nil {
		return nil, fmt.Errorf("%w: list users: %v", common.ErrPersistence, err)
	}
	return users, nil
}

func (r *userRepository) UpdateUser(ctx context.Context, user *dbmysql.User) error {
	if err := r.db.WithContext(ctx).Save(user).Error; err != nil {
		return fmt.Errorf("%w: update user: %v", common.ErrPersistence, err)
	}
	return nil
}

// DeleteUser removes the account, every message it sent or received and its
// contact rows in both directions. Either all of it goes or none of it does.
func (r *userRepository) DeleteUser(ctx context.Context, userID string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("sender_id = ? OR receiver_id = ?", userID, userID).Delete(&dbmysql.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ? OR contact_id = ?", userID, userID).Delete(&dbmysql.Contact{}).Error; err != nil {
			return err
		}
		res := tx.Where("user_id = ?", userID).Delete(&dbmysql.User{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return notFoundOr(err, "user not found")
	}
	return nil
}

func notFoundOr(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", common.ErrNotFound, msg)
	}
	return fmt.Errorf("%w: %v", common.ErrPersistence, err)
}
