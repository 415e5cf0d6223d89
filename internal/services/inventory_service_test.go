package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
)

func TestInventoryService_ClaimAvailableAccount(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewInventoryService(db, nil)

	t.Run("claims oldest ready record", func(t *testing.T) {
		now := time.Now()

		mock.ExpectBegin()
		mock.ExpectQuery(claimQueryPattern).
			WithArgs("premium").
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "email", "password", "profile_name", "profile_pin",
				"package_type", "status", "created_at", "updated_at",
			}).AddRow("rec1", "acc@mail.com", "secret", "Profile 1", "1234",
				"premium", "ready", now, now))
		mock.ExpectExec("UPDATE inventory").
			WithArgs("rec1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("SELECT pg_notify").
			WithArgs("inventory", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		rec, err := service.ClaimAvailableAccount(context.Background(), "premium")
		assert.NoError(t, err)
		assert.Equal(t, "rec1", rec.ID)
		assert.Equal(t, "acc@mail.com", rec.Email)
		// The snapshot keeps the pre-claim status; callers read the
		// credentials, not the lifecycle state.
		assert.Equal(t, "ready", rec.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("out of stock", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(claimQueryPattern).
			WithArgs("sharing").
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "email", "password", "profile_name", "profile_pin",
				"package_type", "status", "created_at", "updated_at",
			}))
		mock.ExpectRollback()

		_, err := service.ClaimAvailableAccount(context.Background(), "sharing")
		assert.Error(t, err)
		assert.True(t, IsOutOfStock(err))

		var oos *OutOfStockError
		assert.ErrorAs(t, err, &oos)
		assert.Equal(t, "sharing", oos.PackageType)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestInventoryService_MarkSold(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewInventoryService(db, nil)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE inventory").
		WithArgs("rec1", "buyer1", "Budi").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("SELECT pg_notify").
		WithArgs("inventory", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err = service.MarkSold(context.Background(), "rec1", "buyer1", "Budi")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInventoryService_StockCount(t *testing.T) {
	t.Run("without cache", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		service := NewInventoryService(db, nil)

		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM inventory WHERE status = 'ready' AND package_type = \\$1").
			WithArgs("premium").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

		n, err := service.StockCount(context.Background(), "premium")
		assert.NoError(t, err)
		assert.Equal(t, 7, n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("cache hit skips the database", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		redisClient, redisMock := redismock.NewClientMock()
		service := NewInventoryService(db, redisClient)

		redisMock.ExpectGet("stock:premium").SetVal("12")

		n, err := service.StockCount(context.Background(), "premium")
		assert.NoError(t, err)
		assert.Equal(t, 12, n)
		assert.NoError(t, mock.ExpectationsWereMet())
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})

	t.Run("cache miss counts and fills the cache", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		redisClient, redisMock := redismock.NewClientMock()
		service := NewInventoryService(db, redisClient)

		redisMock.ExpectGet("stock:all").RedisNil()
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM inventory WHERE status = 'ready'").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
		redisMock.ExpectSet("stock:all", "3", stockCacheTTL).SetVal("OK")

		n, err := service.StockCount(context.Background(), "")
		assert.NoError(t, err)
		assert.Equal(t, 3, n)
		assert.NoError(t, mock.ExpectationsWereMet())
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})
}

func TestInventoryService_AddAccounts(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewInventoryService(db, nil)

	accounts := []NewAccount{
		{Email: "a@mail.com", Password: "pw1", PackageType: "premium"},
		{Email: "b@mail.com", Password: "pw2", PackageType: "sharing"},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO inventory").
		WithArgs(sqlmock.AnyArg(), "a@mail.com", "pw1", "", "", "premium").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO inventory").
		WithArgs(sqlmock.AnyArg(), "b@mail.com", "pw2", "", "", "sharing").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("SELECT pg_notify").
		WithArgs("inventory", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	ids, err := service.AddAccounts(context.Background(), accounts)
	assert.NoError(t, err)
	assert.Len(t, ids, 2)
	assert.NotEqual(t, ids[0], ids[1])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInventoryService_DeleteAccount(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewInventoryService(db, nil)

	t.Run("deletes unsold record", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM inventory WHERE id = \\$1 AND status <> 'sold'").
			WithArgs("rec1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := service.DeleteAccount(context.Background(), "rec1")
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("refuses sold record", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM inventory WHERE id = \\$1 AND status <> 'sold'").
			WithArgs("rec2").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := service.DeleteAccount(context.Background(), "rec2")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "not found or already sold")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
