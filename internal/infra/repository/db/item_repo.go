package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/RoyceAzure/lab/marketplace/internal/domain/model"
	"github.com/RoyceAzure/lab/marketplace/internal/errs"
	"gorm.io/gorm"
)

// IItemRepository 商品與庫存的關聯式儲存
type IItemRepository interface {
	CreateItem(ctx context.Context, item *model.Item) error
	GetItemByID(ctx context.Context, itemID uint) (*model.Item, error)
	GetItemsByIDs(ctx context.Context, itemIDs []uint) ([]model.Item, error)
	GetRecentItems(ctx context.Context, limit int) ([]model.Item, error)
	GetItemsByCategory(ctx context.Context, category, categoryType string, page, size int) ([]model.Item, error)
	UpdateItem(ctx context.Context, item *model.Item) error
	DeleteItem(ctx context.Context, itemID uint) error
	AddViewCount(ctx context.Context, itemID uint) error

	// DecreaseStock 條件式扣庫存, 庫存不足不更新任何row
	DecreaseStock(ctx context.Context, tx *gorm.DB, itemID uint, quantity int) error
	// IncreaseStock 無上限加回庫存, 取消訂單使用
	IncreaseStock(ctx context.Context, tx *gorm.DB, itemID uint, quantity int) error
}

type ItemRepo struct {
	db *DbDao
}

func NewItemRepo(db *DbDao) *ItemRepo {
	return &ItemRepo{db: db}
}

func (r *ItemRepo) CreateItem(ctx context.Context, item *model.Item) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *ItemRepo) GetItemByID(ctx context.Context, itemID uint) (*model.Item, error) {
	var item model.Item
	err := r.db.WithContext(ctx).First(&item, "item_id = ?", itemID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: item %d", errs.ErrItemNotFound, itemID)
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *ItemRepo) GetItemsByIDs(ctx context.Context, itemIDs []uint) ([]model.Item, error) {
	var items []model.Item
	err := r.db.WithContext(ctx).Where("item_id IN ?", itemIDs).Find(&items).Error
	return items, err
}

// GetRecentItems 主頁最新上架商品
func (r *ItemRepo) GetRecentItems(ctx context.Context, limit int) ([]model.Item, error) {
	var items []model.Item
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&items).Error
	return items, err
}

func (r *ItemRepo) GetItemsByCategory(ctx context.Context, category, categoryType string, page, size int) ([]model.Item, error) {
	var items []model.Item
	query := r.db.WithContext(ctx).Where("category_name = ?", category)
	if categoryType != "" {
		query = query.Where("category_type = ?", categoryType)
	}
	err := query.
		Order("created_at DESC").
		Offset(page * size).
		Limit(size).
		Find(&items).Error
	return items, err
}

// UpdateItem 只更新商品資訊欄位
// stock_quantity與view_count各有自己的遞增/遞減路徑, 整row覆寫會吃掉併發異動
func (r *ItemRepo) UpdateItem(ctx context.Context, item *model.Item) error {
	return r.db.WithContext(ctx).Model(&model.Item{}).
		Where("item_id = ?", item.ItemID).
		Select("title", "item_name", "item_description", "price", "category_name", "category_type").
		Updates(item).Error
}

func (r *ItemRepo) DeleteItem(ctx context.Context, itemID uint) error {
	return r.db.WithContext(ctx).Where("item_id = ?", itemID).Delete(&model.Item{}).Error
}

func (r *ItemRepo) AddViewCount(ctx context.Context, itemID uint) error {
	return r.db.WithContext(ctx).Model(&model.Item{}).
		Where("item_id = ?", itemID).
		Update("view_count", gorm.Expr("view_count + ?", 1)).Error
}

// 扣庫存走單一條件式UPDATE, 由row lock序列化併發扣減, 不做先讀後寫
func (r *ItemRepo) DecreaseStock(ctx context.Context, tx *gorm.DB, itemID uint, quantity int) error {
	result := tx.WithContext(ctx).Model(&model.Item{}).
		Where("item_id = ? AND stock_quantity >= ?", itemID, quantity).
		Update("stock_quantity", gorm.Expr("stock_quantity - ?", quantity))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// 商品不存在或庫存不足, 區分兩者
		var count int64
		if err := tx.WithContext(ctx).Model(&model.Item{}).
			Where("item_id = ?", itemID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return fmt.Errorf("%w: item %d", errs.ErrItemNotFound, itemID)
		}
		return &errs.OutOfStockError{ItemIDs: []uint{itemID}}
	}
	return nil
}

func (r *ItemRepo) IncreaseStock(ctx context.Context, tx *gorm.DB, itemID uint, quantity int) error {
	result := tx.WithContext(ctx).Model(&model.Item{}).
		Where("item_id = ?", itemID).
		Update("stock_quantity", gorm.Expr("stock_quantity + ?", quantity))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: item %d", errs.ErrItemNotFound, itemID)
	}
	return nil
}

var _ IItemRepository = (*ItemRepo)(nil)
