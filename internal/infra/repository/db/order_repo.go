package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/RoyceAzure/lab/marketplace/internal/domain/model"
	"github.com/RoyceAzure/lab/marketplace/internal/errs"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// IOrderRepository 訂單與訂單明細的關聯式儲存
// 所有寫入操作都接受交易中的tx, 由service層決定交易邊界
type IOrderRepository interface {
	CreateOrder(ctx context.Context, tx *gorm.DB, order *model.Order) error
	GetOrderByID(ctx context.Context, orderID uuid.UUID) (*model.Order, error)
	GetOrderItem(ctx context.Context, itemID uint, orderID uuid.UUID) (*model.OrderItem, error)
	GetOrderItemsByBuyer(ctx context.Context, buyerID string, page, size int) ([]model.OrderItem, error)
	GetOrderItemsBySeller(ctx context.Context, sellerID string, statuses []model.OrderStatus, page, size int) ([]model.OrderItem, error)
	UpdateOrderStatus(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, status model.OrderStatus) error

	// FinalizeOrderItem 條件式狀態轉移, 只有PENDING明細可以進入終態
	FinalizeOrderItem(ctx context.Context, tx *gorm.DB, orderItemID uint, status model.OrderStatus) error
}

type OrderRepo struct {
	db *DbDao
}

func NewOrderRepo(db *DbDao) *OrderRepo {
	return &OrderRepo{db: db}
}

// CreateOrder 建立訂單與全部明細, 需在呼叫端交易內
func (r *OrderRepo) CreateOrder(ctx context.Context, tx *gorm.DB, order *model.Order) error {
	return tx.WithContext(ctx).Create(order).Error
}

func (r *OrderRepo) GetOrderByID(ctx context.Context, orderID uuid.UUID) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).Preload("OrderItems").First(&order, "order_id = ?", orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: order %s", errs.ErrOrderNotFound, orderID)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *OrderRepo) GetOrderItem(ctx context.Context, itemID uint, orderID uuid.UUID) (*model.OrderItem, error) {
	var orderItem model.OrderItem
	err := r.db.WithContext(ctx).
		Where("item_id = ? AND order_id = ?", itemID, orderID).
		First(&orderItem).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: order %s item %d", errs.ErrOrderNotFound, orderID, itemID)
	}
	if err != nil {
		return nil, err
	}
	return &orderItem, nil
}

// GetOrderItemsByBuyer 分頁查詢買家訂單明細, 依下單日期新到舊
func (r *OrderRepo) GetOrderItemsByBuyer(ctx context.Context, buyerID string, page, size int) ([]model.OrderItem, error) {
	var orderItems []model.OrderItem
	err := r.db.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		Order("order_date DESC").
		Offset(page * size).
		Limit(size).
		Find(&orderItems).Error
	return orderItems, err
}

// GetOrderItemsBySeller 賣家視角, statuses 為 OR 過濾條件, 空代表不過濾
func (r *OrderRepo) GetOrderItemsBySeller(ctx context.Context, sellerID string, statuses []model.OrderStatus, page, size int) ([]model.OrderItem, error) {
	var orderItems []model.OrderItem
	query := r.db.WithContext(ctx).Where("seller_id = ?", sellerID)
	if len(statuses) > 0 {
		query = query.Where("order_status IN ?", statuses)
	}
	err := query.
		Order("order_date DESC").
		Offset(page * size).
		Limit(size).
		Find(&orderItems).Error
	return orderItems, err
}

func (r *OrderRepo) UpdateOrderStatus(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, status model.OrderStatus) error {
	return tx.WithContext(ctx).Model(&model.Order{}).
		Where("order_id = ?", orderID).
		Update("order_status", status).Error
}

// FinalizeOrderItem 終態轉移走條件式UPDATE, 與扣庫存同一套路
// 同一明細的併發取消/完成只有一個會改到row, 其餘拿到ErrAlreadyFinalized
func (r *OrderRepo) FinalizeOrderItem(ctx context.Context, tx *gorm.DB, orderItemID uint, status model.OrderStatus) error {
	result := tx.WithContext(ctx).Model(&model.OrderItem{}).
		Where("order_item_id = ? AND order_status = ?", orderItemID, model.OrderStatusPending).
		Update("order_status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// 明細不存在或已是終態, 區分兩者
		var count int64
		if err := tx.WithContext(ctx).Model(&model.OrderItem{}).
			Where("order_item_id = ?", orderItemID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return fmt.Errorf("%w: order item %d", errs.ErrOrderNotFound, orderItemID)
		}
		return fmt.Errorf("%w: order item %d", errs.ErrAlreadyFinalized, orderItemID)
	}
	return nil
}

var _ IOrderRepository = (*OrderRepo)(nil)
