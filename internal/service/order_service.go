package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/RoyceAzure/lab/marketplace/internal/domain/model"
	"github.com/RoyceAzure/lab/marketplace/internal/errs"
	"github.com/RoyceAzure/lab/marketplace/internal/infra/repository/db"
	"github.com/RoyceAzure/lab/marketplace/internal/infra/repository/redis_repo"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// IOrderService 下單工作流
// 每個寫入操作都包在單一db交易內: 要嘛整張訂單連同全部庫存異動一起成立, 要嘛全部不動
type IOrderService interface {
	CreateFromCart(ctx context.Context, buyerID string) (uuid.UUID, error)
	CreateFromItem(ctx context.Context, buyerID string, itemID uint, quantity int) (uuid.UUID, error)
	Cancel(ctx context.Context, buyerID string, orderID uuid.UUID, itemID uint) error
	Complete(ctx context.Context, sellerID string, orderID uuid.UUID, itemID uint) error
	ListForBuyer(ctx context.Context, buyerID string, page, size int) ([]model.OrderItem, error)
	ListForSeller(ctx context.Context, sellerID string, statuses []model.OrderStatus, page, size int) ([]model.OrderItem, error)
}

// ITransactor 讓訂單流程包在單一db交易內執行, *db.DbDao透過內嵌的*gorm.DB滿足此介面
type ITransactor interface {
	Transaction(fc func(tx *gorm.DB) error, opts ...*sql.TxOptions) error
}

type OrderService struct {
	dao        ITransactor
	orderRepo  db.IOrderRepository
	itemRepo   db.IItemRepository
	memberRepo db.IMemberRepository
	cartRepo   redis_repo.ICartRepository
	inventory  IInventoryService
	logger     *zerolog.Logger
}

func NewOrderService(
	dao ITransactor,
	orderRepo db.IOrderRepository,
	itemRepo db.IItemRepository,
	memberRepo db.IMemberRepository,
	cartRepo redis_repo.ICartRepository,
	inventory IInventoryService,
	logger *zerolog.Logger,
) *OrderService {
	return &OrderService{
		dao:        dao,
		orderRepo:  orderRepo,
		itemRepo:   itemRepo,
		memberRepo: memberRepo,
		cartRepo:   cartRepo,
		inventory:  inventory,
		logger:     logger,
	}
}

// CreateFromCart 從會員購物車建立訂單
// 先整批檢查庫存, 一次回報所有不足的商品讓買家修正後重試
// 全部通過才逐筆扣庫存並寫入訂單, 成功後清空購物車
func (s *OrderService) CreateFromCart(ctx context.Context, buyerID string) (uuid.UUID, error) {
	if _, err := s.memberRepo.GetMemberByLoginID(ctx, buyerID); err != nil {
		return uuid.Nil, err
	}

	cart, err := s.cartRepo.GetCart(ctx, buyerID)
	if err != nil {
		return uuid.Nil, err
	}
	if cart.IsEmpty() {
		return uuid.Nil, errs.ErrOrderNotAllowed
	}

	var orderID uuid.UUID
	err = s.dao.Transaction(func(tx *gorm.DB) error {
		itemIDs := make([]uint, 0, len(cart.Items))
		for _, line := range cart.Items {
			itemIDs = append(itemIDs, line.ItemID)
		}
		items, err := s.itemRepo.GetItemsByIDs(ctx, itemIDs)
		if err != nil {
			return err
		}
		itemsByID := make(map[uint]*model.Item, len(items))
		for i := range items {
			itemsByID[items[i].ItemID] = &items[i]
		}

		// 批次回報, 不是遇到第一筆不足就中斷
		var stockErrorIDs []uint
		for _, line := range cart.Items {
			item, ok := itemsByID[line.ItemID]
			if !ok {
				return fmt.Errorf("%w: item %d", errs.ErrItemNotFound, line.ItemID)
			}
			if !item.IsStockAvailable(line.Quantity) {
				stockErrorIDs = append(stockErrorIDs, line.ItemID)
			}
		}
		if len(stockErrorIDs) > 0 {
			return &errs.OutOfStockError{ItemIDs: stockErrorIDs}
		}

		for _, line := range cart.Items {
			if err := s.inventory.Decrease(ctx, tx, line.ItemID, line.Quantity); err != nil {
				// 預檢後仍可能輸給併發下單, 同樣整筆回滾
				return err
			}
		}

		order := &model.Order{
			OrderID:     uuid.New(),
			BuyerID:     buyerID,
			TotalCount:  cart.TotalCount(),
			TotalPrice:  cart.TotalPrice(),
			OrderDate:   time.Now(),
			OrderStatus: model.OrderStatusPending,
		}
		for _, line := range cart.Items {
			item := itemsByID[line.ItemID]
			seller, err := s.memberRepo.GetMemberByID(ctx, item.SellerID)
			if err != nil {
				return err
			}
			order.OrderItems = append(order.OrderItems, model.OrderItem{
				OrderID:     order.OrderID,
				ItemID:      line.ItemID,
				BuyerID:     buyerID,
				SellerID:    seller.LoginID,
				UnitCount:   line.Quantity,
				UnitPrice:   line.Price,
				ItemName:    line.ItemName,
				OrderStatus: model.OrderStatusPending,
				OrderDate:   order.OrderDate,
			})
		}
		if err := s.orderRepo.CreateOrder(ctx, tx, order); err != nil {
			return err
		}
		orderID = order.OrderID
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}

	// 訂單已成立, 清購物車失敗只記log, TTL會把殘留收掉
	if err := s.cartRepo.DeleteCart(ctx, buyerID); err != nil {
		s.logger.Warn().Err(err).Str("buyer_id", buyerID).Msg("failed to clear cart after order")
	}

	s.logger.Info().
		Str("order_id", orderID.String()).
		Str("buyer_id", buyerID).
		Int("lines", len(cart.Items)).
		Msg("order created from cart")
	return orderID, nil
}

// CreateFromItem 商品詳細頁直接下單的單行版本
func (s *OrderService) CreateFromItem(ctx context.Context, buyerID string, itemID uint, quantity int) (uuid.UUID, error) {
	if quantity < 1 {
		return uuid.Nil, fmt.Errorf("%w: quantity must be at least 1", errs.ErrInvalidRequest)
	}
	if _, err := s.memberRepo.GetMemberByLoginID(ctx, buyerID); err != nil {
		return uuid.Nil, err
	}

	var orderID uuid.UUID
	err := s.dao.Transaction(func(tx *gorm.DB) error {
		item, err := s.itemRepo.GetItemByID(ctx, itemID)
		if err != nil {
			return err
		}
		seller, err := s.memberRepo.GetMemberByID(ctx, item.SellerID)
		if err != nil {
			return err
		}

		if err := s.inventory.Decrease(ctx, tx, itemID, quantity); err != nil {
			return err
		}

		totalPrice := item.Price.Mul(decimal.NewFromInt(int64(quantity)))
		order := &model.Order{
			OrderID:     uuid.New(),
			BuyerID:     buyerID,
			TotalCount:  quantity,
			TotalPrice:  totalPrice,
			OrderDate:   time.Now(),
			OrderStatus: model.OrderStatusPending,
			OrderItems: []model.OrderItem{{
				ItemID:      itemID,
				BuyerID:     buyerID,
				SellerID:    seller.LoginID,
				UnitCount:   quantity,
				UnitPrice:   item.Price,
				ItemName:    item.ItemName,
				OrderStatus: model.OrderStatusPending,
			}},
		}
		order.OrderItems[0].OrderID = order.OrderID
		order.OrderItems[0].OrderDate = order.OrderDate

		if err := s.orderRepo.CreateOrder(ctx, tx, order); err != nil {
			return err
		}
		orderID = order.OrderID
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}

	s.logger.Info().
		Str("order_id", orderID.String()).
		Str("buyer_id", buyerID).
		Uint("item_id", itemID).
		Msg("order created from item")
	return orderID, nil
}

// Cancel 買家取消訂單明細
// 終態不可重入, 取消後把數量加回庫存
// 交易外的預讀只做授權檢查, 終態判定交給交易內的條件式轉移,
// 併發取消同一明細只有一個會成功加回庫存
func (s *OrderService) Cancel(ctx context.Context, buyerID string, orderID uuid.UUID, itemID uint) error {
	orderItem, err := s.orderRepo.GetOrderItem(ctx, itemID, orderID)
	if err != nil {
		return err
	}
	if orderItem.BuyerID != buyerID {
		return fmt.Errorf("%w: not the buyer of order %s", errs.ErrForbidden, orderID)
	}

	err = s.dao.Transaction(func(tx *gorm.DB) error {
		if err := s.orderRepo.FinalizeOrderItem(ctx, tx, orderItem.OrderItemID, model.OrderStatusCanceled); err != nil {
			return err
		}
		if err := s.orderRepo.UpdateOrderStatus(ctx, tx, orderID, model.OrderStatusCanceled); err != nil {
			return err
		}
		return s.inventory.Increase(ctx, tx, itemID, orderItem.UnitCount)
	})
	if err != nil {
		return err
	}

	s.logger.Info().
		Str("order_id", orderID.String()).
		Str("buyer_id", buyerID).
		Uint("item_id", itemID).
		Msg("order canceled")
	return nil
}

// Complete 賣家完成訂單明細
func (s *OrderService) Complete(ctx context.Context, sellerID string, orderID uuid.UUID, itemID uint) error {
	orderItem, err := s.orderRepo.GetOrderItem(ctx, itemID, orderID)
	if err != nil {
		return err
	}
	if orderItem.SellerID != sellerID {
		return fmt.Errorf("%w: not the seller of order %s", errs.ErrForbidden, orderID)
	}

	err = s.dao.Transaction(func(tx *gorm.DB) error {
		if err := s.orderRepo.FinalizeOrderItem(ctx, tx, orderItem.OrderItemID, model.OrderStatusCompleted); err != nil {
			return err
		}
		return s.orderRepo.UpdateOrderStatus(ctx, tx, orderID, model.OrderStatusCompleted)
	})
	if err != nil {
		return err
	}

	s.logger.Info().
		Str("order_id", orderID.String()).
		Str("seller_id", sellerID).
		Uint("item_id", itemID).
		Msg("order completed")
	return nil
}

func (s *OrderService) ListForBuyer(ctx context.Context, buyerID string, page, size int) ([]model.OrderItem, error) {
	return s.orderRepo.GetOrderItemsByBuyer(ctx, buyerID, page, size)
}

func (s *OrderService) ListForSeller(ctx context.Context, sellerID string, statuses []model.OrderStatus, page, size int) ([]model.OrderItem, error) {
	return s.orderRepo.GetOrderItemsBySeller(ctx, sellerID, statuses, page, size)
}

var _ IOrderService = (*OrderService)(nil)
