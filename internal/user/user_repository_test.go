package user

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"chatr/internal/common"
)

var userColumns = []string{
	"user_id", "full_name", "phone", "password_hash", "profile_photo", "about", "created_at", "updated_at",
}

func setupTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return gormDB, mock
}

func TestUserRepository_GetUserByID(t *testing.T) {
	db, mock := setupTestDB(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `users` WHERE user_id = ?")).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow("u1", "Alice", "+15550001", "hash", "", "Available", now, now))

	user, err := NewUserRepository(db).GetUserByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.FullName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetUserByPhone_NotFound(t *testing.T) {
	db, mock := setupTestDB(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `users` WHERE phone = ?")).
		WillReturnRows(sqlmock.NewRows(userColumns))

	user, err := NewUserRepository(db).GetUserByPhone(context.Background(), "+15559999")
	assert.Nil(t, user)
	assert.True(t, errors.Is(err, common.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_CheckPhoneExists(t *testing.T) {
	db, mock := setupTestDB(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM `users` WHERE phone = ?")).
		WithArgs("+15550001").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	exists, err := NewUserRepository(db).CheckPhoneExists(context.Background(), "+15550001")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_ListUsers(t *testing.T) {
	db, mock := setupTestDB(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `users` WHERE user_id <> ?")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow("u2", "Bob", "+15550002", "hash", "", "Available", now, now))

	users, err := NewUserRepository(db).ListUsers(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_ListUsersByIDs_Empty(t *testing.T) {
	db, mock := setupTestDB(t)

	users, err := NewUserRepository(db).ListUsersByIDs(context.Background(), nil, common.AdminPhone)
	require.NoError(t, err)
	assert.Empty(t, users)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_ListUsersByIDs(t *testing.T) {
	db, mock := setupTestDB(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `users` WHERE user_id IN (?,?) AND phone <> ?")).
		WithArgs("u2", "u3", common.AdminPhone).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow("u2", "Bob", "+15550002", "hash", "", "Available", now, now))

	users, err := NewUserRepository(db).ListUsersByIDs(context.Background(), []string{"u2", "u3"}, common.AdminPhone)
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_DeleteUser(t *testing.T) {
	t.Run("removes messages and contacts both ways", func(t *testing.T) {
		db, mock := setupTestDB(t)

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM `messages` WHERE sender_id = ? OR receiver_id = ?")).
			WithArgs("u1", "u1").
			WillReturnResult(sqlmock.NewResult(0, 5))
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM `contacts` WHERE user_id = ? OR contact_id = ?")).
			WithArgs("u1", "u1").
			WillReturnResult(sqlmock.NewResult(0, 3))
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM `users` WHERE user_id = ?")).
			WithArgs("u1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		assert.NoError(t, NewUserRepository(db).DeleteUser(context.Background(), "u1"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing user rolls back", func(t *testing.T) {
		db, mock := setupTestDB(t)

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM `messages`")).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM `contacts`")).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM `users`")).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := NewUserRepository(db).DeleteUser(context.Background(), "ghost")
		assert.True(t, errors.Is(err, common.ErrNotFound))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("user delete failure rolls back message delete", func(t *testing.T) {
		db, mock := setupTestDB(t)

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM `messages`")).
			WithArgs("u1", "u1").
			WillReturnResult(sqlmock.NewResult(0, 5))
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM `contacts`")).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM `users`")).
			WillReturnError(errors.New("lock wait timeout exceeded"))
		mock.ExpectRollback()

		err := NewUserRepository(db).DeleteUser(context.Background(), "u1")
		assert.True(t, errors.Is(err, common.ErrPersistence))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestContactRepository_AddAndList(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewContactRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `contacts`")).
		WithArgs("u1", "u2", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT `contact_id` FROM `contacts` WHERE user_id = ?")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"contact_id"}).AddRow("u2"))

	require.NoError(t, repo.AddContact(context.Background(), "u1", "u2"))

	ids, err := repo.ListContactIDs(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"u2"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContactRepository_ListContacts(t *testing.T) {
	db, mock := setupTestDB(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM `users` JOIN contacts")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow("u2", "Bob", "+15550002", "hash", "", "Available", now, now))

	users, err := NewContactRepository(db).ListContacts(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "Bob", users[0].FullName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContactRepository_ContactExists(t *testing.T) {
	db, mock := setupTestDB(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM `contacts`")).
		WithArgs("u1", "u2").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	exists, err := NewContactRepository(db).ContactExists(context.Background(), "u1", "u2")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}
