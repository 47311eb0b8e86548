package service

import (
	"context"
	"fmt"

	"github.com/RoyceAzure/lab/marketplace/internal/domain/model"
	"github.com/RoyceAzure/lab/marketplace/internal/errs"
	"github.com/RoyceAzure/lab/marketplace/internal/infra/repository/db"
	"github.com/RoyceAzure/lab/marketplace/internal/infra/repository/redis_repo"
	"github.com/RoyceAzure/lab/marketplace/internal/secure"
	"github.com/rs/zerolog"
)

// CartScope 購物車作用域, 匿名或登入會員二擇一
// LoginID為空時走匿名tier(client端加密token), 否則走redis tier
type CartScope struct {
	LoginID   string
	AnonToken string
}

func (s CartScope) isAnonymous() bool {
	return s.LoginID == ""
}

// CartResult 變動後的購物車與新的匿名token
// 匿名tier所有變動都會產生新token, 呼叫端要回寫給client
// ClearAnonToken為true時client應清除舊token
type CartResult struct {
	Cart           *model.Cart
	AnonToken      string
	ClearAnonToken bool
}

// ICartService 雙層購物車
type ICartService interface {
	AddLine(ctx context.Context, scope CartScope, itemID uint, quantity int) (*CartResult, error)
	GetCart(ctx context.Context, scope CartScope) (*model.Cart, error)
	EditLine(ctx context.Context, scope CartScope, itemID uint, quantity int) (*CartResult, error)
	RemoveLine(ctx context.Context, scope CartScope, itemID uint) (*CartResult, error)

	// MergeOnLogin 登入時把匿名購物車併進會員購物車
	// 同一個匿名token重複呼叫不會加倍數量, 合併失敗時兩邊都不變
	MergeOnLogin(ctx context.Context, loginID string, anonToken string) (*CartResult, error)
}

type CartService struct {
	cartRepo  redis_repo.ICartRepository
	itemRepo  db.IItemRepository
	inventory IInventoryService
	codec     *secure.CartCodec
	policy    redis_repo.MergePolicy
	logger    *zerolog.Logger
}

func NewCartService(
	cartRepo redis_repo.ICartRepository,
	itemRepo db.IItemRepository,
	inventory IInventoryService,
	codec *secure.CartCodec,
	policy redis_repo.MergePolicy,
	logger *zerolog.Logger,
) *CartService {
	return &CartService{
		cartRepo:  cartRepo,
		itemRepo:  itemRepo,
		inventory: inventory,
		codec:     codec,
		policy:    policy,
		logger:    logger,
	}
}

// AddLine 加入購物車
// 會先檢查庫存, 重複商品依policy決定數量相加或拒絕
func (s *CartService) AddLine(ctx context.Context, scope CartScope, itemID uint, quantity int) (*CartResult, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", errs.ErrInvalidRequest)
	}

	item, err := s.itemRepo.GetItemByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	available, err := s.inventory.IsAvailable(ctx, itemID, quantity)
	if err != nil {
		return nil, err
	}
	if !available {
		return nil, &errs.OutOfStockError{ItemIDs: []uint{itemID}}
	}

	line := model.CartItem{
		ItemID:   item.ItemID,
		ItemName: item.ItemName,
		Price:    item.Price,
		Quantity: quantity,
	}

	if scope.isAnonymous() {
		return s.addLineInToken(scope.AnonToken, line)
	}

	if err := s.cartRepo.PutLine(ctx, scope.LoginID, line, s.policy); err != nil {
		return nil, err
	}
	cart, err := s.cartRepo.GetCart(ctx, scope.LoginID)
	if err != nil {
		return nil, err
	}
	return &CartResult{Cart: cart}, nil
}

func (s *CartService) addLineInToken(anonToken string, line model.CartItem) (*CartResult, error) {
	cart, err := s.codec.Decode(anonToken)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		cart = model.NewCart()
	}

	if idx := cart.FindItem(line.ItemID); idx >= 0 {
		if s.policy == redis_repo.PolicyRejectDuplicate {
			return nil, fmt.Errorf("%w: item %d", errs.ErrDuplicateCartLine, line.ItemID)
		}
		cart.Items[idx].Quantity += line.Quantity
		cart.Items[idx].Price = line.Price
		cart.Items[idx].ItemName = line.ItemName
	} else {
		cart.Items = append(cart.Items, line)
	}

	token, err := s.codec.Encode(cart)
	if err != nil {
		return nil, err
	}
	return &CartResult{Cart: cart, AnonToken: token}, nil
}

// GetCart 取得目前購物車, 不存在時回傳空購物車
func (s *CartService) GetCart(ctx context.Context, scope CartScope) (*model.Cart, error) {
	if scope.isAnonymous() {
		cart, err := s.codec.Decode(scope.AnonToken)
		if err != nil {
			return nil, err
		}
		if cart == nil {
			cart = &model.Cart{}
		}
		return cart, nil
	}
	return s.cartRepo.GetCart(ctx, scope.LoginID)
}

// EditLine 修改數量, 商品必須已在購物車內
func (s *CartService) EditLine(ctx context.Context, scope CartScope, itemID uint, quantity int) (*CartResult, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", errs.ErrInvalidRequest)
	}

	item, err := s.itemRepo.GetItemByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	available, err := s.inventory.IsAvailable(ctx, itemID, quantity)
	if err != nil {
		return nil, err
	}
	if !available {
		return nil, &errs.OutOfStockError{ItemIDs: []uint{itemID}}
	}

	line := model.CartItem{
		ItemID:   item.ItemID,
		ItemName: item.ItemName,
		Price:    item.Price,
		Quantity: quantity,
	}

	if scope.isAnonymous() {
		cart, err := s.codec.Decode(scope.AnonToken)
		if err != nil {
			return nil, err
		}
		idx := -1
		if cart != nil {
			idx = cart.FindItem(itemID)
		}
		if idx < 0 {
			return nil, fmt.Errorf("%w: item %d", errs.ErrCartLineNotFound, itemID)
		}
		cart.Items[idx] = line
		token, err := s.codec.Encode(cart)
		if err != nil {
			return nil, err
		}
		return &CartResult{Cart: cart, AnonToken: token}, nil
	}

	if err := s.cartRepo.EditLine(ctx, scope.LoginID, line); err != nil {
		return nil, err
	}
	cart, err := s.cartRepo.GetCart(ctx, scope.LoginID)
	if err != nil {
		return nil, err
	}
	return &CartResult{Cart: cart}, nil
}

// RemoveLine 移除商品, 清空後整筆購物車刪除
func (s *CartService) RemoveLine(ctx context.Context, scope CartScope, itemID uint) (*CartResult, error) {
	if scope.isAnonymous() {
		cart, err := s.codec.Decode(scope.AnonToken)
		if err != nil {
			return nil, err
		}
		idx := -1
		if cart != nil {
			idx = cart.FindItem(itemID)
		}
		if idx < 0 {
			return nil, fmt.Errorf("%w: item %d", errs.ErrCartLineNotFound, itemID)
		}
		cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)

		// 空購物車不再發token, 請client清掉
		if cart.IsEmpty() {
			return &CartResult{Cart: &model.Cart{}, ClearAnonToken: true}, nil
		}
		token, err := s.codec.Encode(cart)
		if err != nil {
			return nil, err
		}
		return &CartResult{Cart: cart, AnonToken: token}, nil
	}

	if err := s.cartRepo.RemoveLine(ctx, scope.LoginID, itemID); err != nil {
		return nil, err
	}
	cart, err := s.cartRepo.GetCart(ctx, scope.LoginID)
	if err != nil {
		return nil, err
	}
	return &CartResult{Cart: cart}, nil
}

// MergeOnLogin 合併匿名購物車進會員購物車
// 冪等依據是匿名購物車的CartID, 合併成功或已合併過都會要求client清除token
// redis寫入失敗時直接回傳錯誤, 匿名token保持原樣, 下次登入重試
func (s *CartService) MergeOnLogin(ctx context.Context, loginID string, anonToken string) (*CartResult, error) {
	anonCart, err := s.codec.Decode(anonToken)
	if err != nil {
		return nil, err
	}
	if anonCart.IsEmpty() {
		cart, err := s.cartRepo.GetCart(ctx, loginID)
		if err != nil {
			return nil, err
		}
		return &CartResult{Cart: cart, ClearAnonToken: anonToken != ""}, nil
	}

	if err := s.cartRepo.MergeCart(ctx, loginID, anonCart.CartID, anonCart.Items, s.policy); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("login_id", loginID).
		Str("anon_cart_id", anonCart.CartID.String()).
		Int("merged_lines", len(anonCart.Items)).
		Msg("anonymous cart merged")

	cart, err := s.cartRepo.GetCart(ctx, loginID)
	if err != nil {
		return nil, err
	}
	return &CartResult{Cart: cart, ClearAnonToken: true}, nil
}

var _ ICartService = (*CartService)(nil)
