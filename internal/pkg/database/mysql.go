// internal/pkg/database/mysql.go
package database

import (
	"context"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"
	pkgerrors "github.com/pkg/errors"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/wangyingjie930/fulfillment/internal/pkg/apperr"
	"github.com/wangyingjie930/fulfillment/internal/pkg/bootstrap"
)

// MySQL 错误码
const (
	errDuplicateEntry  = 1062
	errLockWaitTimeout = 1205
	errDeadlock        = 1213
)

// OpenMySQL 建立 gorm 连接池并做一次带超时的 ping。
func OpenMySQL(ctx context.Context, cfg bootstrap.MySQLConfig) (*gorm.DB, error) {
	db, err := gorm.Open(gormmysql.Open(cfg.DSN), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Warn),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(err, "open mysql")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, pkgerrors.Wrap(err, "get sql.DB")
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, pkgerrors.Wrap(err, "ping mysql")
	}
	return db, nil
}

// Close 关闭底层连接池。
func Close(db *gorm.DB) func(ctx context.Context) error {
	return func(context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
}

// IsDuplicateKey 判断是否违反唯一约束。
func IsDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == errDuplicateEntry
}

// Classify 把驱动层错误转换成带分类的应用错误。
// 死锁、锁等待超时、唯一键冲突属于可重试的并发冲突。
func Classify(err error, msg string) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case errDuplicateEntry, errLockWaitTimeout, errDeadlock:
			return apperr.Wrap(apperr.KindConflict, msg, err)
		}
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.Wrap(apperr.KindConflict, msg, err)
	}
	return apperr.Wrap(apperr.KindInternal, msg, pkgerrors.WithStack(err))
}
