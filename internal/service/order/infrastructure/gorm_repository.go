package infrastructure

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wangyingjie930/fulfillment/internal/pkg/database"
	"github.com/wangyingjie930/fulfillment/internal/service/order/domain"
)

// GormOrderRepository 是 domain.OrderRepository 的 GORM/MySQL 实现
type GormOrderRepository struct {
	db *gorm.DB
}

func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// Save 在一个事务中写入订单头和明细
func (r *GormOrderRepository) Save(ctx context.Context, order *domain.Order) error {
	model := ToOrderModel(order)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(model).Error
	})
	if err != nil && (database.IsDuplicateKey(err) || errors.Is(err, gorm.ErrDuplicatedKey)) {
		return domain.ErrOrderAlreadyExists
	}
	return database.Classify(err, "save order")
}

func (r *GormOrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	var model OrderModel
	err := r.db.WithContext(ctx).Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, database.Classify(err, "find order")
	}
	return ToDomainOrder(&model), nil
}

func (r *GormOrderRepository) ListByUser(ctx context.Context, userID string, offset, limit int) ([]domain.Order, int64, error) {
	db := r.db.WithContext(ctx)

	var total int64
	if err := db.Model(&OrderModel{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, database.Classify(err, "count orders")
	}

	var models []OrderModel
	err := db.Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Where("user_id = ?", userID).
		Order("created_at DESC").Order("id").
		Offset(offset).Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, 0, database.Classify(err, "list orders")
	}

	orders := make([]domain.Order, 0, len(models))
	for i := range models {
		orders = append(orders, *ToDomainOrder(&models[i]))
	}
	return orders, total, nil
}

// UpdateState 锁定订单行后交给 mutate 校验流转，再写回状态
func (r *GormOrderRepository) UpdateState(ctx context.Context, id string, mutate func(*domain.Order) error) (*domain.Order, error) {
	var order *domain.Order
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model OrderModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Preload("Items").
			Where("id = ?", id).First(&model).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrOrderNotFound
			}
			return err
		}

		order = ToDomainOrder(&model)
		if err := mutate(order); err != nil {
			return err
		}
		return tx.Model(&OrderModel{}).Where("id = ?", id).
			Updates(map[string]interface{}{"status": string(order.State), "updated_at": order.UpdatedAt}).Error
	})
	if err != nil {
		return nil, database.Classify(err, "update order status")
	}
	return order, nil
}
