package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/akunflix/backend/internal/models"
)

var userCols = []string{
	"id", "first_name", "username", "role", "balance",
	"referred_by", "is_first_buy", "created_at", "updated_at",
}

func userRow(id, firstName, username, role string, balance int64, referredBy string, isFirstBuy bool) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(userCols).
		AddRow(id, firstName, username, role, balance, referredBy, isFirstBuy, now, now)
}

func TestUserService_GetOrCreateUser(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	service := NewUserService(db, NewBalanceService(db))

	mock.ExpectQuery("INSERT INTO users").
		WithArgs("user1", "Budi", "budi88").
		WillReturnRows(userRow("user1", "Budi", "budi88", "customer", 0, "", true))

	user, err := service.GetOrCreateUser(context.Background(), "user1", models.UserProfile{
		FirstName: "Budi", Username: "budi88",
	})
	assert.NoError(t, err)
	assert.Equal(t, "user1", user.ID)
	assert.Equal(t, "customer", user.Role)
	assert.True(t, user.IsFirstBuy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_GetUser(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	service := NewUserService(db, NewBalanceService(db))

	t.Run("existing user", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, first_name, username, role, balance, referred_by, is_first_buy, created_at, updated_at FROM users WHERE id = \\$1").
			WithArgs("user1").
			WillReturnRows(userRow("user1", "Budi", "budi88", "reseller_gold", 250000, "", false))

		user, err := service.GetUser(context.Background(), "user1")
		assert.NoError(t, err)
		assert.Equal(t, int64(250000), user.Balance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown user", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, first_name, username, role, balance, referred_by, is_first_buy, created_at, updated_at FROM users WHERE id = \\$1").
			WithArgs("ghost").
			WillReturnRows(sqlmock.NewRows(userCols))

		_, err := service.GetUser(context.Background(), "ghost")
		assert.ErrorIs(t, err, ErrUserNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUserService_UpdateUserRole(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	service := NewUserService(db, NewBalanceService(db))

	t.Run("legacy label is normalized", func(t *testing.T) {
		mock.ExpectExec("UPDATE users SET role = \\$1").
			WithArgs("reseller_gold", "user1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := service.UpdateUserRole(context.Background(), "user1", "Reseller Gold")
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown user", func(t *testing.T) {
		mock.ExpectExec("UPDATE users SET role = \\$1").
			WithArgs("customer", "ghost").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := service.UpdateUserRole(context.Background(), "ghost", "whatever")
		assert.ErrorIs(t, err, ErrUserNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUserService_ListUsers(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	service := NewUserService(db, NewBalanceService(db))

	t.Run("reseller target excludes customers", func(t *testing.T) {
		mock.ExpectQuery("FROM users WHERE role <> 'customer'").
			WillReturnRows(userRow("user1", "Budi", "", "reseller_silver", 0, "", false))

		users, err := service.ListUsers(context.Background(), models.TargetReseller)
		assert.NoError(t, err)
		assert.Len(t, users, 1)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("all target has no filter", func(t *testing.T) {
		rows := userRow("user1", "Budi", "", "customer", 0, "", true)
		now := time.Now()
		rows.AddRow("user2", "Sari", "", "reseller_gold", 100000, "", false, now, now)

		mock.ExpectQuery("SELECT id, first_name, username, role, balance, referred_by, is_first_buy, created_at, updated_at FROM users ORDER BY created_at").
			WillReturnRows(rows)

		users, err := service.ListUsers(context.Background(), models.TargetAll)
		assert.NoError(t, err)
		assert.Len(t, users, 2)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUserService_SetReferrer(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	service := NewUserService(db, NewBalanceService(db))

	t.Run("links once", func(t *testing.T) {
		mock.ExpectExec("UPDATE users SET referred_by = \\$2").
			WithArgs("user1", "referrer1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		linked, err := service.SetReferrer(context.Background(), "user1", "referrer1")
		assert.NoError(t, err)
		assert.True(t, linked)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("existing link is not overwritten", func(t *testing.T) {
		mock.ExpectExec("UPDATE users SET referred_by = \\$2").
			WithArgs("user1", "referrer2").
			WillReturnResult(sqlmock.NewResult(0, 0))

		linked, err := service.SetReferrer(context.Background(), "user1", "referrer2")
		assert.NoError(t, err)
		assert.False(t, linked)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("self referral rejected without touching the store", func(t *testing.T) {
		linked, err := service.SetReferrer(context.Background(), "user1", "user1")
		assert.NoError(t, err)
		assert.False(t, linked)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUserService_RewardReferrer(t *testing.T) {
	t.Run("first buy pays the referrer", func(t *testing.T) {
		db, mock := newMockDB(t)
		defer db.Close()

		service := NewUserService(db, NewBalanceService(db))

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT referred_by, is_first_buy FROM users WHERE id = \\$1 FOR UPDATE").
			WithArgs("user1").
			WillReturnRows(sqlmock.NewRows([]string{"referred_by", "is_first_buy"}).
				AddRow("referrer1", true))
		mock.ExpectExec("UPDATE users SET is_first_buy = false").
			WithArgs("user1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("SELECT balance FROM users WHERE id = \\$1 FOR UPDATE").
			WithArgs("referrer1").
			WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(4000))
		mock.ExpectExec("UPDATE users SET balance = \\$1, updated_at = now\\(\\) WHERE id = \\$2").
			WithArgs(int64(5000), "referrer1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO system_logs").
			WithArgs(sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := service.RewardReferrer(context.Background(), "user1")
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no referrer is a no-op after clearing the flag", func(t *testing.T) {
		db, mock := newMockDB(t)
		defer db.Close()

		service := NewUserService(db, NewBalanceService(db))

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT referred_by, is_first_buy FROM users WHERE id = \\$1 FOR UPDATE").
			WithArgs("user1").
			WillReturnRows(sqlmock.NewRows([]string{"referred_by", "is_first_buy"}).
				AddRow("", true))
		mock.ExpectExec("UPDATE users SET is_first_buy = false").
			WithArgs("user1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := service.RewardReferrer(context.Background(), "user1")
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("second buy never pays again", func(t *testing.T) {
		db, mock := newMockDB(t)
		defer db.Close()

		service := NewUserService(db, NewBalanceService(db))

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT referred_by, is_first_buy FROM users WHERE id = \\$1 FOR UPDATE").
			WithArgs("user1").
			WillReturnRows(sqlmock.NewRows([]string{"referred_by", "is_first_buy"}).
				AddRow("referrer1", false))
		mock.ExpectExec("UPDATE users SET is_first_buy = false").
			WithArgs("user1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := service.RewardReferrer(context.Background(), "user1")
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("deleted referrer does not fail the purchase", func(t *testing.T) {
		db, mock := newMockDB(t)
		defer db.Close()

		service := NewUserService(db, NewBalanceService(db))

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT referred_by, is_first_buy FROM users WHERE id = \\$1 FOR UPDATE").
			WithArgs("user1").
			WillReturnRows(sqlmock.NewRows([]string{"referred_by", "is_first_buy"}).
				AddRow("gone", true))
		mock.ExpectExec("UPDATE users SET is_first_buy = false").
			WithArgs("user1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("SELECT balance FROM users WHERE id = \\$1 FOR UPDATE").
			WithArgs("gone").
			WillReturnRows(sqlmock.NewRows([]string{"balance"}))
		mock.ExpectCommit()

		err := service.RewardReferrer(context.Background(), "user1")
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
