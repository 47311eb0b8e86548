package service

import (
	"context"
	"fmt"

	"github.com/RoyceAzure/lab/marketplace/internal/errs"
	"github.com/RoyceAzure/lab/marketplace/internal/infra/repository/db"
	"gorm.io/gorm"
)

// IInventoryService 庫存帳本
// Decrease/Increase 接受外部交易tx, 讓下單流程把多筆庫存異動包進同一個交易
// 任一筆失敗整個交易回滾
type IInventoryService interface {
	IsAvailable(ctx context.Context, itemID uint, quantity int) (bool, error)
	Decrease(ctx context.Context, tx *gorm.DB, itemID uint, quantity int) error
	Increase(ctx context.Context, tx *gorm.DB, itemID uint, quantity int) error
}

type InventoryService struct {
	itemRepo db.IItemRepository
}

func NewInventoryService(itemRepo db.IItemRepository) *InventoryService {
	return &InventoryService{itemRepo: itemRepo}
}

// IsAvailable 請求數量是否不超過現有庫存
// 錯誤:
//   - errs.ErrItemNotFound: 商品不存在
func (s *InventoryService) IsAvailable(ctx context.Context, itemID uint, quantity int) (bool, error) {
	item, err := s.itemRepo.GetItemByID(ctx, itemID)
	if err != nil {
		return false, err
	}
	return item.IsStockAvailable(quantity), nil
}

// Decrease 扣庫存, 條件式UPDATE保證不會超賣
// 錯誤:
//   - errs.OutOfStockError: 庫存不足
//   - errs.ErrItemNotFound: 商品不存在
func (s *InventoryService) Decrease(ctx context.Context, tx *gorm.DB, itemID uint, quantity int) error {
	if quantity < 1 {
		return fmt.Errorf("%w: quantity must be at least 1", errs.ErrInvalidRequest)
	}
	return s.itemRepo.DecreaseStock(ctx, tx, itemID, quantity)
}

// Increase 取消訂單時把數量加回去, 沒有上限檢查
func (s *InventoryService) Increase(ctx context.Context, tx *gorm.DB, itemID uint, quantity int) error {
	if quantity < 1 {
		return fmt.Errorf("%w: quantity must be at least 1", errs.ErrInvalidRequest)
	}
	return s.itemRepo.IncreaseStock(ctx, tx, itemID, quantity)
}

var _ IInventoryService = (*InventoryService)(nil)
