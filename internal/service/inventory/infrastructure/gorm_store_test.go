package infrastructure

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/wangyingjie930/fulfillment/internal/pkg/apperr"
	"github.com/wangyingjie930/fulfillment/internal/service/inventory/domain"
)

// newMockDB 返回与 database.OpenMySQL 相同配置的 gorm 实例，底层是 sqlmock
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	db, err := gorm.Open(gormmysql.New(gormmysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{
		Logger:                 logger.Discard,
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = sqlDB.Close()
	})
	return db, mock
}

func inventoryRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "price", "available_qty", "created_at", "updated_at"})
}

func TestGormReserveLocksInAscendingOrderAndGuardsDecrement(t *testing.T) {
	ctx := context.Background()
	db, mock := newMockDB(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM .inventory. WHERE id IN \(\?,\?\) ORDER BY id FOR UPDATE`).
		WithArgs("a", "b").
		WillReturnRows(inventoryRows().
			AddRow("a", "Pen", 2.5, 5, now, now).
			AddRow("b", "Ink", 4.0, 1, now, now))
	mock.ExpectExec(`UPDATE .inventory. SET .*WHERE id = \? AND available_qty >= \?`).
		WithArgs(3, sqlmock.AnyArg(), "a", 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := NewGormStockStore(db).WithinTx(ctx, func(tx domain.StockTx) error {
		stock, err := tx.GetInventoryByIDs(ctx, []string{"b", "a"})
		if err != nil {
			return err
		}
		assert.Equal(t, 5, stock["a"].AvailableQty)
		assert.Equal(t, 1, stock["b"].AvailableQty)
		return tx.DecrementInventory(ctx, "a", 3)
	})
	require.NoError(t, err)
}

func TestGormDecrementGuardRollsBack(t *testing.T) {
	ctx := context.Background()
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE .inventory. SET .*WHERE id = \? AND available_qty >= \?`).
		WithArgs(4, sqlmock.AnyArg(), "a", 4).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := NewGormStockStore(db).WithinTx(ctx, func(tx domain.StockTx) error {
		return tx.DecrementInventory(ctx, "a", 4)
	})
	require.ErrorIs(t, err, domain.ErrStockChanged)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestGormDeadlockIsConflict(t *testing.T) {
	ctx := context.Background()
	db, mock := newMockDB(t)

	mock.ExpectExec(`UPDATE .inventory. SET .*WHERE id = \? AND available_qty >= \?`).
		WillReturnError(&mysql.MySQLError{Number: 1213, Message: "Deadlock found when trying to get lock"})

	err := (&gormTx{db: db}).DecrementInventory(ctx, "a", 1)
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestGormDuplicateLedgerMapsToLedgerExists(t *testing.T) {
	ctx := context.Background()
	db, mock := newMockDB(t)

	mock.ExpectExec("INSERT INTO .reserved_stock.").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'o1' for key 'order_id'"})

	ledger := domain.NewReservedStock("o1", "u1", map[string]int{"a": 1}, time.Now())
	err := (&gormTx{db: db}).CreateReservationLedger(ctx, ledger)
	require.ErrorIs(t, err, domain.ErrLedgerExists)
}

func TestGormIncrementMissingProduct(t *testing.T) {
	ctx := context.Background()
	db, mock := newMockDB(t)

	mock.ExpectExec(`UPDATE .inventory. SET .*WHERE id = \?`).
		WithArgs(3, sqlmock.AnyArg(), "gone").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := (&gormTx{db: db}).IncrementInventory(ctx, "gone", 3)
	require.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestGormZeroQuantityTouchesNothing(t *testing.T) {
	ctx := context.Background()
	db, _ := newMockDB(t)
	tx := &gormTx{db: db}

	// 未声明任何 SQL 预期，发出语句即失败
	require.NoError(t, tx.DecrementInventory(ctx, "a", 0))
	require.NoError(t, tx.IncrementInventory(ctx, "a", 0))
}
