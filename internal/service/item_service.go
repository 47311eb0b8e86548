package service

import (
	"context"
	"fmt"

	"github.com/RoyceAzure/lab/marketplace/internal/domain/model"
	"github.com/RoyceAzure/lab/marketplace/internal/errs"
	"github.com/RoyceAzure/lab/marketplace/internal/infra/repository/db"
	"github.com/RoyceAzure/lab/marketplace/internal/infra/repository/redis_repo"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ItemForm 上架與編輯共用的商品欄位
type ItemForm struct {
	Title           string
	ItemName        string
	ItemDescription string
	Price           decimal.Decimal
	StockQuantity   int
	CategoryName    string
	CategoryType    string
}

// IItemService 商品目錄
// 編輯與下架會同步維護排行榜: 編輯就地覆寫快照, 下架同時從計分與快照移除
type IItemService interface {
	Register(ctx context.Context, sellerLoginID string, form ItemForm) (*model.Item, error)
	GetDetail(ctx context.Context, itemID uint) (*model.Item, error)
	Update(ctx context.Context, loginID string, itemID uint, form ItemForm) error
	Remove(ctx context.Context, loginID string, itemID uint) error
	SearchByCategory(ctx context.Context, category, categoryType string, page, size int) ([]model.Item, error)
}

type ItemService struct {
	itemRepo    db.IItemRepository
	memberRepo  db.IMemberRepository
	rankingRepo redis_repo.IRankingRepository
	logger      *zerolog.Logger
}

func NewItemService(
	itemRepo db.IItemRepository,
	memberRepo db.IMemberRepository,
	rankingRepo redis_repo.IRankingRepository,
	logger *zerolog.Logger,
) *ItemService {
	return &ItemService{
		itemRepo:    itemRepo,
		memberRepo:  memberRepo,
		rankingRepo: rankingRepo,
		logger:      logger,
	}
}

func (s *ItemService) Register(ctx context.Context, sellerLoginID string, form ItemForm) (*model.Item, error) {
	if form.ItemName == "" || form.Price.IsNegative() || form.StockQuantity < 0 {
		return nil, fmt.Errorf("%w: bad item form", errs.ErrInvalidRequest)
	}

	seller, err := s.memberRepo.GetMemberByLoginID(ctx, sellerLoginID)
	if err != nil {
		return nil, err
	}

	item := &model.Item{
		Title:           form.Title,
		ItemName:        form.ItemName,
		ItemDescription: form.ItemDescription,
		Price:           form.Price,
		StockQuantity:   form.StockQuantity,
		CategoryName:    form.CategoryName,
		CategoryType:    form.CategoryType,
		SellerID:        seller.MemberID,
	}
	if err := s.itemRepo.CreateItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *ItemService) GetDetail(ctx context.Context, itemID uint) (*model.Item, error) {
	return s.itemRepo.GetItemByID(ctx, itemID)
}

// Update 只有商品擁有者可以修改
// 商品若在當期快照內就地覆寫, 不等下次refresh
// 庫存不在此更新, 只走下單/取消的遞增遞減路徑
func (s *ItemService) Update(ctx context.Context, loginID string, itemID uint, form ItemForm) error {
	item, seller, err := s.getOwnedItem(ctx, loginID, itemID)
	if err != nil {
		return err
	}

	item.Title = form.Title
	item.ItemName = form.ItemName
	item.ItemDescription = form.ItemDescription
	item.Price = form.Price
	item.CategoryName = form.CategoryName
	item.CategoryType = form.CategoryType

	if err := s.itemRepo.UpdateItem(ctx, item); err != nil {
		return err
	}
	return s.rankingRepo.OverwriteSnapshotEntry(ctx, model.NewItemSummary(item, seller.UserName))
}

// Remove 下架商品
// 先從排行榜移除再刪row, 避免已刪商品還掛在主頁上
func (s *ItemService) Remove(ctx context.Context, loginID string, itemID uint) error {
	if _, _, err := s.getOwnedItem(ctx, loginID, itemID); err != nil {
		return err
	}

	if err := s.rankingRepo.EvictItem(ctx, itemID); err != nil {
		return err
	}
	if err := s.itemRepo.DeleteItem(ctx, itemID); err != nil {
		return err
	}

	s.logger.Info().Uint("item_id", itemID).Str("seller", loginID).Msg("item removed")
	return nil
}

func (s *ItemService) SearchByCategory(ctx context.Context, category, categoryType string, page, size int) ([]model.Item, error) {
	return s.itemRepo.GetItemsByCategory(ctx, category, categoryType, page, size)
}

func (s *ItemService) getOwnedItem(ctx context.Context, loginID string, itemID uint) (*model.Item, *model.Member, error) {
	item, err := s.itemRepo.GetItemByID(ctx, itemID)
	if err != nil {
		return nil, nil, err
	}
	seller, err := s.memberRepo.GetMemberByID(ctx, item.SellerID)
	if err != nil {
		return nil, nil, err
	}
	if seller.LoginID != loginID {
		return nil, nil, fmt.Errorf("%w: item %d is not owned by %s", errs.ErrForbidden, itemID, loginID)
	}
	return item, seller, nil
}

var _ IItemService = (*ItemService)(nil)
