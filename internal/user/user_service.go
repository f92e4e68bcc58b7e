package user

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	chatrepo "chatr/internal/chat/repository"
	"chatr/internal/common"
	"chatr/internal/dbmysql"
)

type UserService interface {
	RegisterUser(ctx context.Context, fullName, phone, password string) (*dbmysql.User, error)
	LoginUser(ctx context.Context, phone, password string) (*dbmysql.User, string, error)
	ListUsers(ctx context.Context, excludeID string) ([]*dbmysql.User, error)
	GetProfile(ctx context.Context, userID string) (*dbmysql.User, error)
	GetProfileByPhone(ctx context.Context, phone string) (*dbmysql.User, error)
	UpdateProfile(ctx context.Context, userID string, fullName, about *string) (*dbmysql.User, error)
	DeleteUser(ctx context.Context, userID string) error
	AddContact(ctx context.Context, userID, contactID string) ([]string, error)
	ListContacts(ctx context.Context, userID string) ([]*dbmysql.User, error)
	ListChats(ctx context.Context, userID string) ([]*dbmysql.User, error)
	SetProfilePhoto(ctx context.Context, userID, originalName, mimeType string, content io.Reader) (string, error)
	RemoveProfilePhoto(ctx context.Context, userID string) error
}

type userService struct {
	userRepo    UserRepository
	contactRepo ContactRepository
	chatRepo    chatrepo.ChatRepository
	blobs       common.BlobStore
	tokens      *common.TokenManager
	logger      *zap.Logger
	now         func() time.Time
}

func NewUserService(
	userRepo UserRepository,
	contactRepo ContactRepository,
	chatRepo chatrepo.ChatRepository,
	blobs common.BlobStore,
	tokens *common.TokenManager,
	logger *zap.Logger,
) UserService {
	return &userService{
		userRepo:    userRepo,
		contactRepo: contactRepo,
		chatRepo:    chatRepo,
		blobs:       blobs,
		tokens:      tokens,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *userService) RegisterUser(ctx context.Context, fullName, phone, password string) (*dbmysql.User, error) {
	fullName = strings.TrimSpace(fullName)
	phone = strings.TrimSpace(phone)
	if fullName == "" || phone == "" || password == "" {
		return nil, fmt.Errorf("%w: all fields are required", common.ErrInvalidRequest)
	}
	if err := common.ValidateFullName(fullName); err != nil {
		return nil, err
	}
	if err := common.ValidatePhone(phone); err != nil {
		return nil, err
	}
	if err := common.ValidatePassword(password); err != nil {
		return nil, err
	}

	exists, err := s.userRepo.CheckPhoneExists(ctx, phone)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: phone number already registered", common.ErrConflict)
	}

	hashed, err := common.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &dbmysql.User{
		UserID:       uuid.NewString(),
		FullName:     fullName,
		Phone:        phone,
		PasswordHash: hashed,
		About:        dbmysql.DefaultAbout,
	}
	if err := s.userRepo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", zap.String("user_id", user.UserID))
	return user, nil
}

func (s *userService) LoginUser(ctx context.Context, phone, password string) (*dbmysql.User, string, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" || password == "" {
		return nil, "", fmt.Errorf("%w: phone and password are required", common.ErrInvalidRequest)
	}

	user, err := s.userRepo.GetUserByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, "", fmt.Errorf("%w: phone number does not exist", common.ErrInvalidRequest)
		}
		return nil, "", err
	}

	if err := common.CheckPassword(password, user.PasswordHash); err != nil {
		return nil, "", fmt.Errorf("%w: password does not match", common.ErrInvalidRequest)
	}

	token, err := s.tokens.GenerateToken(user.UserID, user.Phone)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}
	return user, token, nil
}

func (s *userService) ListUsers(ctx context.Context, excludeID string) ([]*dbmysql.User, error) {
	return s.userRepo.ListUsers(ctx, excludeID)
}

func (s *userService) GetProfile(ctx context.Context, userID string) (*dbmysql.User, error) {
	return s.userRepo.GetUserByID(ctx, userID)
}

func (s *userService) GetProfileByPhone(ctx context.Context, phone string) (*dbmysql.User, error) {
	return s.userRepo.GetUserByPhone(ctx, strings.TrimSpace(phone))
}

// UpdateProfile changes only the fields that are set.
func (s *userService) UpdateProfile(ctx context.Context, userID string, fullName, about *string) (*dbmysql.User, error) {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if fullName != nil {
		name := strings.TrimSpace(*fullName)
		if err := common.ValidateFullName(name); err != nil {
			return nil, err
		}
		user.FullName = name
	}
	if about != nil {
		user.About = strings.TrimSpace(*about)
	}

	if err := s.userRepo.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteUser removes the account, its messages, contact rows and photo. The
// rows go in one transaction; the photo is removed afterwards and a failure
// there is only logged.
func (s *userService) DeleteUser(ctx context.Context, userID string) error {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.userRepo.DeleteUser(ctx, userID); err != nil {
		return err
	}

	if user.ProfilePhoto != "" {
		if err := s.blobs.Delete(ctx, user.ProfilePhoto); err != nil && !errors.Is(err, common.ErrNotFound) {
			s.logger.Warn("profile photo not removed",
				zap.String("user_id", userID),
				zap.String("photo", user.ProfilePhoto),
				zap.Error(err))
		}
	}

	s.logger.Info("user deleted", zap.String("user_id", userID))
	return nil
}

func (s *userService) AddContact(ctx context.Context, userID, contactID string) ([]string, error) {
	contactID = strings.TrimSpace(contactID)
	if contactID == "" {
		return nil, fmt.Errorf("%w: contactId is required", common.ErrInvalidRequest)
	}

	if _, err := s.userRepo.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}
	if _, err := s.userRepo.GetUserByID(ctx, contactID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("%w: contact not found", common.ErrNotFound)
		}
		return nil, err
	}

	exists, err := s.contactRepo.ContactExists(ctx, userID, contactID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: user already in contacts", common.ErrConflict)
	}

	if err := s.contactRepo.AddContact(ctx, userID, contactID); err != nil {
		return nil, err
	}
	return s.contactRepo.ListContactIDs(ctx, userID)
}

func (s *userService) ListContacts(ctx context.Context, userID string) ([]*dbmysql.User, error) {
	if _, err := s.userRepo.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.contactRepo.ListContacts(ctx, userID)
}

// ListChats is every contact plus everyone the user exchanged messages with,
// without the user itself and the operator account.
func (s *userService) ListChats(ctx context.Context, userID string) ([]*dbmysql.User, error) {
	if _, err := s.userRepo.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}

	contactIDs, err := s.contactRepo.ListContactIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	peers, err := s.chatRepo.FindPeers(ctx, userID)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{userID: true}
	ids := make([]string, 0, len(contactIDs)+len(peers))
	for _, id := range append(contactIDs, peers...) {
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}

	return s.userRepo.ListUsersByIDs(ctx, ids, common.AdminPhone)
}

func (s *userService) SetProfilePhoto(ctx context.Context, userID, originalName, mimeType string, content io.Reader) (string, error) {
	if !common.DetectFileType(mimeType).IsValid() {
		return "", fmt.Errorf("%w: profile photo must be an image", common.ErrInvalidRequest)
	}

	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return "", err
	}

	filename := fmt.Sprintf("%s_%d%s", userID, s.now().UnixMilli(), strings.ToLower(filepath.Ext(originalName)))
	if _, err := s.blobs.Save(ctx, filename, mimeType, userID, content); err != nil {
		return "", err
	}

	previous := user.ProfilePhoto
	user.ProfilePhoto = filename
	if err := s.userRepo.UpdateUser(ctx, user); err != nil {
		// roll the upload back so the bucket does not keep an orphan
		_ = s.blobs.Delete(ctx, filename)
		return "", err
	}

	if previous != "" {
		if err := s.blobs.Delete(ctx, previous); err != nil && !errors.Is(err, common.ErrNotFound) {
			s.logger.Warn("old profile photo not removed", zap.String("photo", previous), zap.Error(err))
		}
	}
	return filename, nil
}

func (s *userService) RemoveProfilePhoto(ctx context.Context, userID string) error {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.ProfilePhoto == "" {
		return nil
	}

	if err := s.blobs.Delete(ctx, user.ProfilePhoto); err != nil && !errors.Is(err, common.ErrNotFound) {
		return err
	}
	user.ProfilePhoto = ""
	return s.userRepo.UpdateUser(ctx, user)
}
