package explorer

import (
	"context"
	"sync"

	"gorm.io/gorm"
)

// TransactionManager 管理数据库事务与目录树的结构锁
// 同一个实例被所有会修改目录树的服务共享，结构锁因此是进程级的
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error
	// WithTreeLock 持有结构锁并在事务中执行 fn
	WithTreeLock(ctx context.Context, fn func(tx *gorm.DB) error) error
	// Locked 只持有结构锁，不开启事务
	Locked(fn func() error) error
}

type transactionManager struct {
	db *gorm.DB
	mu sync.Mutex
}

func NewTransactionManager(db *gorm.DB) TransactionManager {
	return &transactionManager{db: db}
}

func (tm *transactionManager) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	tx := tm.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}

func (tm *transactionManager) WithTreeLock(ctx context.Context, fn func(tx *gorm.DB) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return tm.WithTransaction(ctx, fn)
}

func (tm *transactionManager) Locked(fn func() error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return fn()
}
