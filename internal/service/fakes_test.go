package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/RoyceAzure/lab/marketplace/internal/domain/model"
	"github.com/RoyceAzure/lab/marketplace/internal/errs"
	"github.com/RoyceAzure/lab/marketplace/internal/infra/repository/db"
	"github.com/RoyceAzure/lab/marketplace/internal/infra/repository/redis_repo"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 測試用in-memory實作, 模擬各repo的原子語意

type fakeTxRunner struct{}

func (f fakeTxRunner) Transaction(fc func(tx *gorm.DB) error, opts ...*sql.TxOptions) error {
	return fc(nil)
}

type fakeItemRepo struct {
	mu    sync.Mutex
	items map[uint]*model.Item
}

func newFakeItemRepo(items ...*model.Item) *fakeItemRepo {
	r := &fakeItemRepo{items: make(map[uint]*model.Item)}
	for _, item := range items {
		r.items[item.ItemID] = item
	}
	return r
}

func (r *fakeItemRepo) CreateItem(ctx context.Context, item *model.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if item.ItemID == 0 {
		item.ItemID = uint(len(r.items) + 1)
	}
	r.items[item.ItemID] = item
	return nil
}

func (r *fakeItemRepo) GetItemByID(ctx context.Context, itemID uint) (*model.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[itemID]
	if !ok {
		return nil, fmt.Errorf("%w: item %d", errs.ErrItemNotFound, itemID)
	}
	copied := *item
	return &copied, nil
}

func (r *fakeItemRepo) GetItemsByIDs(ctx context.Context, itemIDs []uint) ([]model.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var items []model.Item
	for _, id := range itemIDs {
		if item, ok := r.items[id]; ok {
			items = append(items, *item)
		}
	}
	return items, nil
}

func (r *fakeItemRepo) GetRecentItems(ctx context.Context, limit int) ([]model.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var items []model.Item
	for _, item := range r.items {
		items = append(items, *item)
	}
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (r *fakeItemRepo) GetItemsByCategory(ctx context.Context, category, categoryType string, page, size int) ([]model.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var items []model.Item
	for _, item := range r.items {
		if item.CategoryName == category {
			items = append(items, *item)
		}
	}
	return items, nil
}

// 與正式實作相同, 只覆寫商品資訊欄位, 計數欄位不動
func (r *fakeItemRepo) UpdateItem(ctx context.Context, item *model.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.items[item.ItemID]
	if !ok {
		return fmt.Errorf("%w: item %d", errs.ErrItemNotFound, item.ItemID)
	}
	existing.Title = item.Title
	existing.ItemName = item.ItemName
	existing.ItemDescription = item.ItemDescription
	existing.Price = item.Price
	existing.CategoryName = item.CategoryName
	existing.CategoryType = item.CategoryType
	return nil
}

func (r *fakeItemRepo) DeleteItem(ctx context.Context, itemID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, itemID)
	return nil
}

func (r *fakeItemRepo) AddViewCount(ctx context.Context, itemID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[itemID]
	if !ok {
		return fmt.Errorf("%w: item %d", errs.ErrItemNotFound, itemID)
	}
	item.ViewCount++
	return nil
}

// 條件式扣庫存, 與正式實作同樣不會讓庫存變負
func (r *fakeItemRepo) DecreaseStock(ctx context.Context, tx *gorm.DB, itemID uint, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[itemID]
	if !ok {
		return fmt.Errorf("%w: item %d", errs.ErrItemNotFound, itemID)
	}
	if item.StockQuantity < quantity {
		return &errs.OutOfStockError{ItemIDs: []uint{itemID}}
	}
	item.StockQuantity -= quantity
	return nil
}

func (r *fakeItemRepo) IncreaseStock(ctx context.Context, tx *gorm.DB, itemID uint, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[itemID]
	if !ok {
		return fmt.Errorf("%w: item %d", errs.ErrItemNotFound, itemID)
	}
	item.StockQuantity += quantity
	return nil
}

func (r *fakeItemRepo) stockOf(itemID uint) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.items[itemID].StockQuantity
}

type fakeMemberRepo struct {
	mu      sync.Mutex
	members map[string]*model.Member
}

func newFakeMemberRepo(members ...*model.Member) *fakeMemberRepo {
	r := &fakeMemberRepo{members: make(map[string]*model.Member)}
	for _, member := range members {
		r.members[member.LoginID] = member
	}
	return r
}

func (r *fakeMemberRepo) CreateMember(ctx context.Context, member *model.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[member.LoginID]; ok {
		return fmt.Errorf("%w: %s", errs.ErrAlreadyExistLoginID, member.LoginID)
	}
	if member.MemberID == 0 {
		member.MemberID = uint(len(r.members) + 1)
	}
	r.members[member.LoginID] = member
	return nil
}

func (r *fakeMemberRepo) GetMemberByLoginID(ctx context.Context, loginID string) (*model.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	member, ok := r.members[loginID]
	if !ok {
		return nil, fmt.Errorf("%w: login id %s", errs.ErrMemberNotFound, loginID)
	}
	return member, nil
}

func (r *fakeMemberRepo) GetMemberByID(ctx context.Context, memberID uint) (*model.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, member := range r.members {
		if member.MemberID == memberID {
			return member, nil
		}
	}
	return nil, fmt.Errorf("%w: member %d", errs.ErrMemberNotFound, memberID)
}

func (r *fakeMemberRepo) ExistsByLoginID(ctx context.Context, loginID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.members[loginID]
	return ok, nil
}

type fakeOrderRepo struct {
	mu         sync.Mutex
	nextItemID uint
	orders     map[uuid.UUID]*model.Order
	orderItems []*model.OrderItem
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[uuid.UUID]*model.Order)}
}

func (r *fakeOrderRepo) CreateOrder(ctx context.Context, tx *gorm.DB, order *model.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *order
	r.orders[order.OrderID] = &copied
	for i := range order.OrderItems {
		r.nextItemID++
		order.OrderItems[i].OrderItemID = r.nextItemID
		item := order.OrderItems[i]
		r.orderItems = append(r.orderItems, &item)
	}
	return nil
}

func (r *fakeOrderRepo) GetOrderByID(ctx context.Context, orderID uuid.UUID) (*model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("%w: order %s", errs.ErrOrderNotFound, orderID)
	}
	return order, nil
}

func (r *fakeOrderRepo) GetOrderItem(ctx context.Context, itemID uint, orderID uuid.UUID) (*model.OrderItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, orderItem := range r.orderItems {
		if orderItem.ItemID == itemID && orderItem.OrderID == orderID {
			copied := *orderItem
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("%w: order %s item %d", errs.ErrOrderNotFound, orderID, itemID)
}

func (r *fakeOrderRepo) GetOrderItemsByBuyer(ctx context.Context, buyerID string, page, size int) ([]model.OrderItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []model.OrderItem
	for _, orderItem := range r.orderItems {
		if orderItem.BuyerID == buyerID {
			result = append(result, *orderItem)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].OrderDate.After(result[j].OrderDate) })
	return result, nil
}

func (r *fakeOrderRepo) GetOrderItemsBySeller(ctx context.Context, sellerID string, statuses []model.OrderStatus, page, size int) ([]model.OrderItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []model.OrderItem
	for _, orderItem := range r.orderItems {
		if orderItem.SellerID != sellerID {
			continue
		}
		if len(statuses) > 0 {
			matched := false
			for _, status := range statuses {
				if orderItem.OrderStatus == status {
					matched = true
					break
				}
			}
			if !matched {
				continue
			}
		}
		result = append(result, *orderItem)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].OrderDate.After(result[j].OrderDate) })
	return result, nil
}

func (r *fakeOrderRepo) UpdateOrderStatus(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, status model.OrderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[orderID]
	if !ok {
		return fmt.Errorf("%w: order %s", errs.ErrOrderNotFound, orderID)
	}
	order.OrderStatus = status
	return nil
}

// 條件式終態轉移, 與正式實作同樣在單一臨界區內檢查並改寫
func (r *fakeOrderRepo) FinalizeOrderItem(ctx context.Context, tx *gorm.DB, orderItemID uint, status model.OrderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, orderItem := range r.orderItems {
		if orderItem.OrderItemID != orderItemID {
			continue
		}
		if orderItem.OrderStatus != model.OrderStatusPending {
			return fmt.Errorf("%w: order item %d", errs.ErrAlreadyFinalized, orderItemID)
		}
		orderItem.OrderStatus = status
		return nil
	}
	return fmt.Errorf("%w: order item %d", errs.ErrOrderNotFound, orderItemID)
}

// fakeCartRepo 模擬redis hash購物車, 含合併冪等標記
type fakeCartRepo struct {
	mu          sync.Mutex
	carts       map[string]map[uint]model.CartItem
	merged      map[uuid.UUID]bool
	unavailable bool
}

func newFakeCartRepo() *fakeCartRepo {
	return &fakeCartRepo{
		carts:  make(map[string]map[uint]model.CartItem),
		merged: make(map[uuid.UUID]bool),
	}
}

func (r *fakeCartRepo) checkAvailable() error {
	if r.unavailable {
		return fmt.Errorf("%w: redis down", errs.ErrUnavailable)
	}
	return nil
}

func (r *fakeCartRepo) PutLine(ctx context.Context, loginID string, item model.CartItem, policy redis_repo.MergePolicy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkAvailable(); err != nil {
		return err
	}
	cart := r.carts[loginID]
	if cart == nil {
		cart = make(map[uint]model.CartItem)
		r.carts[loginID] = cart
	}
	if prev, ok := cart[item.ItemID]; ok {
		if policy == redis_repo.PolicyRejectDuplicate {
			return fmt.Errorf("%w: item %d", errs.ErrDuplicateCartLine, item.ItemID)
		}
		item.Quantity += prev.Quantity
	}
	cart[item.ItemID] = item
	return nil
}

func (r *fakeCartRepo) EditLine(ctx context.Context, loginID string, item model.CartItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkAvailable(); err != nil {
		return err
	}
	cart := r.carts[loginID]
	if _, ok := cart[item.ItemID]; !ok {
		return fmt.Errorf("%w: item %d", errs.ErrCartLineNotFound, item.ItemID)
	}
	cart[item.ItemID] = item
	return nil
}

func (r *fakeCartRepo) RemoveLine(ctx context.Context, loginID string, itemID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkAvailable(); err != nil {
		return err
	}
	cart := r.carts[loginID]
	if _, ok := cart[itemID]; !ok {
		return fmt.Errorf("%w: item %d", errs.ErrCartLineNotFound, itemID)
	}
	delete(cart, itemID)
	if len(cart) == 0 {
		delete(r.carts, loginID)
	}
	return nil
}

func (r *fakeCartRepo) GetCart(ctx context.Context, loginID string) (*model.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkAvailable(); err != nil {
		return nil, err
	}
	cart := &model.Cart{}
	for _, item := range r.carts[loginID] {
		cart.Items = append(cart.Items, item)
	}
	sort.Slice(cart.Items, func(i, j int) bool { return cart.Items[i].ItemID < cart.Items[j].ItemID })
	return cart, nil
}

func (r *fakeCartRepo) DeleteCart(ctx context.Context, loginID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkAvailable(); err != nil {
		return err
	}
	delete(r.carts, loginID)
	return nil
}

func (r *fakeCartRepo) MergeCart(ctx context.Context, loginID string, markerID uuid.UUID, items []model.CartItem, policy redis_repo.MergePolicy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkAvailable(); err != nil {
		return err
	}
	if r.merged[markerID] {
		return nil
	}
	cart := r.carts[loginID]
	if cart == nil {
		cart = make(map[uint]model.CartItem)
		r.carts[loginID] = cart
	}
	for _, item := range items {
		if prev, ok := cart[item.ItemID]; ok {
			if policy == redis_repo.PolicyRejectDuplicate {
				return fmt.Errorf("%w: duplicate item during merge", errs.ErrDuplicateCartLine)
			}
			item.Quantity += prev.Quantity
		}
		cart[item.ItemID] = item
	}
	r.merged[markerID] = true
	return nil
}

// fakeRankingRepo 模擬zset計分與快照hash
type fakeRankingRepo struct {
	mu       sync.Mutex
	scores   map[uint]float64
	snapshot map[uint]model.ItemSummary
	epoch    string
}

func newFakeRankingRepo() *fakeRankingRepo {
	return &fakeRankingRepo{
		scores:   make(map[uint]float64),
		snapshot: make(map[uint]model.ItemSummary),
	}
}

func (r *fakeRankingRepo) IncrementScore(ctx context.Context, itemID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scores[itemID]++
	return nil
}

func (r *fakeRankingRepo) GetTopItemIDs(ctx context.Context, n int64) ([]uint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]uint, 0, len(r.scores))
	for id := range r.scores {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return r.scores[ids[i]] > r.scores[ids[j]] })
	if int64(len(ids)) > n {
		ids = ids[:n]
	}
	return ids, nil
}

func (r *fakeRankingRepo) ReplaceSnapshot(ctx context.Context, epoch string, summaries []model.ItemSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshot = make(map[uint]model.ItemSummary, len(summaries))
	for _, summary := range summaries {
		r.snapshot[summary.ItemID] = summary
	}
	r.epoch = epoch
	r.scores = make(map[uint]float64)
	return nil
}

func (r *fakeRankingRepo) GetSnapshot(ctx context.Context) (map[uint]model.ItemSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	snapshot := make(map[uint]model.ItemSummary, len(r.snapshot))
	for id, summary := range r.snapshot {
		snapshot[id] = summary
	}
	return snapshot, nil
}

func (r *fakeRankingRepo) GetSnapshotEpoch(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.epoch, nil
}

func (r *fakeRankingRepo) OverwriteSnapshotEntry(ctx context.Context, summary model.ItemSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.snapshot[summary.ItemID]; ok {
		r.snapshot[summary.ItemID] = summary
	}
	return nil
}

func (r *fakeRankingRepo) EvictItem(ctx context.Context, itemID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.scores, itemID)
	delete(r.snapshot, itemID)
	return nil
}

func (r *fakeRankingRepo) scoreOf(itemID uint) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scores[itemID]
}

type fakeReviewRepo struct {
	mu      sync.Mutex
	nextID  uint
	reviews map[uint]*model.Review
}

func newFakeReviewRepo() *fakeReviewRepo {
	return &fakeReviewRepo{nextID: 1, reviews: make(map[uint]*model.Review)}
}

func (r *fakeReviewRepo) CreateReview(ctx context.Context, review *model.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	review.ReviewID = r.nextID
	r.nextID++
	review.CreatedAt = time.Now().Add(time.Duration(review.ReviewID) * time.Millisecond)
	copied := *review
	r.reviews[review.ReviewID] = &copied
	return nil
}

func (r *fakeReviewRepo) GetReviewByID(ctx context.Context, reviewID uint) (*model.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	review, ok := r.reviews[reviewID]
	if !ok {
		return nil, fmt.Errorf("%w: review %d", errs.ErrReviewNotFound, reviewID)
	}
	copied := *review
	return &copied, nil
}

// 與正式實作相同, 只覆寫評分與留言
func (r *fakeReviewRepo) UpdateReview(ctx context.Context, review *model.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.reviews[review.ReviewID]
	if !ok {
		return fmt.Errorf("%w: review %d", errs.ErrReviewNotFound, review.ReviewID)
	}
	existing.Rating = review.Rating
	existing.Comment = review.Comment
	return nil
}

func (r *fakeReviewRepo) DeleteReview(ctx context.Context, reviewID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.reviews, reviewID)
	return nil
}

func (r *fakeReviewRepo) GetReviewsByItem(ctx context.Context, itemID uint, reviewSort db.ReviewSort, page, size int) ([]model.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []model.Review
	for _, review := range r.reviews {
		if review.ItemID == itemID {
			result = append(result, *review)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		switch reviewSort {
		case db.ReviewSortOldest:
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		case db.ReviewSortRatingAsc:
			return result[i].Rating < result[j].Rating
		case db.ReviewSortRatingDesc:
			return result[i].Rating > result[j].Rating
		default:
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
	})
	start := page * size
	if start >= len(result) {
		return nil, nil
	}
	end := start + size
	if end > len(result) {
		end = len(result)
	}
	return result[start:end], nil
}
