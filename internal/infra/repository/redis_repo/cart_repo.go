package redis_repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/RoyceAzure/lab/marketplace/internal/domain/model"
	"github.com/RoyceAzure/lab/marketplace/internal/errs"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// 登入會員購物車有效期, 每次寫入都會重新計時
const cartTTL = 24 * time.Hour

// MergePolicy 同一商品重複加入購物車時的處理方式
// 兩個儲存層與登入合併都套用同一policy
type MergePolicy string

const (
	PolicySumQuantity     MergePolicy = "sum"    // 數量相加
	PolicyRejectDuplicate MergePolicy = "reject" // 拒絕重複
)

// ICartRepository 登入會員購物車, redis hash, field為商品ID, value為CartItem JSON
type ICartRepository interface {
	PutLine(ctx context.Context, loginID string, item model.CartItem, policy MergePolicy) error
	EditLine(ctx context.Context, loginID string, item model.CartItem) error
	RemoveLine(ctx context.Context, loginID string, itemID uint) error
	GetCart(ctx context.Context, loginID string) (*model.Cart, error)
	DeleteCart(ctx context.Context, loginID string) error

	// MergeCart 合併匿名購物車, markerID冪等: 同一匿名購物車只會合併一次
	MergeCart(ctx context.Context, loginID string, markerID uuid.UUID, items []model.CartItem, policy MergePolicy) error
}

type CartRepo struct {
	cartCache *redis.Client
}

func NewCartRepo(cartCache *redis.Client) *CartRepo {
	return &CartRepo{cartCache: cartCache}
}

func generateCartKey(loginID string) string {
	return fmt.Sprintf("cart:%s:items", loginID)
}

func generateMergeMarkerKey(markerID uuid.UUID) string {
	return fmt.Sprintf("cart:merged:%s", markerID)
}

// 使用 Lua 腳本確保單一購物車上的讀改寫是原子的
const putLineScript = `
	local key = KEYS[1]
	local item_id = ARGV[1]
	local item_json = ARGV[2]
	local policy = ARGV[3]
	local ttl = tonumber(ARGV[4])

	local prev = redis.call('HGET', key, item_id)
	if prev then
		if policy == 'reject' then
			return -1
		end
		local prev_item = cjson.decode(prev)
		local new_item = cjson.decode(item_json)
		new_item['quantity'] = new_item['quantity'] + prev_item['quantity']
		item_json = cjson.encode(new_item)
	end

	redis.call('HSET', key, item_id, item_json)
	redis.call('EXPIRE', key, ttl)
	return 1
`

func (r *CartRepo) PutLine(ctx context.Context, loginID string, item model.CartItem, policy MergePolicy) error {
	itemJSON, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal cart item: %w", err)
	}

	result, err := r.cartCache.Eval(ctx, putLineScript,
		[]string{generateCartKey(loginID)},
		item.ItemID, string(itemJSON), string(policy), int(cartTTL.Seconds())).Result()
	if err != nil {
		return fmt.Errorf("%w: failed to put cart line: %v", errs.ErrUnavailable, err)
	}

	if v, ok := result.(int64); ok && v == -1 {
		return fmt.Errorf("%w: item %d", errs.ErrDuplicateCartLine, item.ItemID)
	}
	return nil
}

const editLineScript = `
	local key = KEYS[1]
	local item_id = ARGV[1]

	if redis.call('HEXISTS', key, item_id) == 0 then
		return -1
	end
	redis.call('HSET', key, item_id, ARGV[2])
	redis.call('EXPIRE', key, tonumber(ARGV[3]))
	return 1
`

func (r *CartRepo) EditLine(ctx context.Context, loginID string, item model.CartItem) error {
	itemJSON, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal cart item: %w", err)
	}

	result, err := r.cartCache.Eval(ctx, editLineScript,
		[]string{generateCartKey(loginID)},
		item.ItemID, string(itemJSON), int(cartTTL.Seconds())).Result()
	if err != nil {
		return fmt.Errorf("%w: failed to edit cart line: %v", errs.ErrUnavailable, err)
	}

	if v, ok := result.(int64); ok && v == -1 {
		return fmt.Errorf("%w: item %d", errs.ErrCartLineNotFound, item.ItemID)
	}
	return nil
}

// 刪除後購物車若為空, 直接刪掉整個key而不是保留空hash
const removeLineScript = `
	local key = KEYS[1]
	local item_id = ARGV[1]

	if redis.call('HDEL', key, item_id) == 0 then
		return -1
	end
	if redis.call('HLEN', key) == 0 then
		redis.call('DEL', key)
	end
	return 1
`

func (r *CartRepo) RemoveLine(ctx context.Context, loginID string, itemID uint) error {
	result, err := r.cartCache.Eval(ctx, removeLineScript,
		[]string{generateCartKey(loginID)}, itemID).Result()
	if err != nil {
		return fmt.Errorf("%w: failed to remove cart line: %v", errs.ErrUnavailable, err)
	}

	if v, ok := result.(int64); ok && v == -1 {
		return fmt.Errorf("%w: item %d", errs.ErrCartLineNotFound, itemID)
	}
	return nil
}

func (r *CartRepo) GetCart(ctx context.Context, loginID string) (*model.Cart, error) {
	fields, err := r.cartCache.HGetAll(ctx, generateCartKey(loginID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get cart: %v", errs.ErrUnavailable, err)
	}

	cart := &model.Cart{}
	for _, itemJSON := range fields {
		var item model.CartItem
		if err := json.Unmarshal([]byte(itemJSON), &item); err != nil {
			return nil, fmt.Errorf("invalid cart item payload: %w", err)
		}
		cart.Items = append(cart.Items, item)
	}
	return cart, nil
}

func (r *CartRepo) DeleteCart(ctx context.Context, loginID string) error {
	err := r.cartCache.Del(ctx, generateCartKey(loginID)).Err()
	if err != nil {
		return fmt.Errorf("%w: failed to delete cart: %v", errs.ErrUnavailable, err)
	}
	return nil
}

// 合併與冪等標記在同一個腳本內完成
// 標記已存在代表同一匿名購物車重複合併, 直接跳過不會加倍數量
// reject policy先整批檢查再寫入, 拒絕時購物車維持合併前狀態
const mergeCartScript = `
	local cart_key = KEYS[1]
	local marker_key = KEYS[2]
	local policy = ARGV[1]
	local ttl = tonumber(ARGV[2])

	if redis.call('EXISTS', marker_key) == 1 then
		return 0
	end

	if policy == 'reject' then
		for i = 3, #ARGV, 2 do
			if redis.call('HEXISTS', cart_key, ARGV[i]) == 1 then
				return -1
			end
		end
	end

	for i = 3, #ARGV, 2 do
		local item_id = ARGV[i]
		local item_json = ARGV[i+1]
		local prev = redis.call('HGET', cart_key, item_id)
		if prev then
			local prev_item = cjson.decode(prev)
			local new_item = cjson.decode(item_json)
			new_item['quantity'] = new_item['quantity'] + prev_item['quantity']
			item_json = cjson.encode(new_item)
		end
		redis.call('HSET', cart_key, item_id, item_json)
	end

	redis.call('EXPIRE', cart_key, ttl)
	redis.call('SET', marker_key, 1, 'EX', ttl)
	return 1
`

func (r *CartRepo) MergeCart(ctx context.Context, loginID string, markerID uuid.UUID, items []model.CartItem, policy MergePolicy) error {
	args := []interface{}{string(policy), int(cartTTL.Seconds())}
	for _, item := range items {
		itemJSON, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("failed to marshal cart item: %w", err)
		}
		args = append(args, item.ItemID, string(itemJSON))
	}

	result, err := r.cartCache.Eval(ctx, mergeCartScript,
		[]string{generateCartKey(loginID), generateMergeMarkerKey(markerID)}, args...).Result()
	if err != nil {
		return fmt.Errorf("%w: failed to merge cart: %v", errs.ErrUnavailable, err)
	}

	if v, ok := result.(int64); ok && v == -1 {
		return fmt.Errorf("%w: duplicate item during merge", errs.ErrDuplicateCartLine)
	}
	return nil
}

var _ ICartRepository = (*CartRepo)(nil)
