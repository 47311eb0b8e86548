package redis_repo

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/RoyceAzure/lab/marketplace/internal/domain/model"
	"github.com/RoyceAzure/lab/marketplace/internal/errs"
	"github.com/redis/go-redis/v9"
)

const (
	// 即時計分的sorted set, 每個ranking epoch結束時清空
	rankingKey = "RANKING_KEY"
	// 讀取側top-N快照, hash field為商品ID, value為ItemSummary JSON
	topRankingItemKey = "TOP_RANKING_ITEM_KEY"

	snapshotTTL = 7 * 24 * time.Hour
)

// IRankingRepository 人氣計分與top-N快照
type IRankingRepository interface {
	IncrementScore(ctx context.Context, itemID uint) error
	GetTopItemIDs(ctx context.Context, n int64) ([]uint, error)

	// ReplaceSnapshot 整顆替換快照並重置計分結構, 開始新的epoch
	ReplaceSnapshot(ctx context.Context, epoch string, summaries []model.ItemSummary) error
	GetSnapshot(ctx context.Context) (map[uint]model.ItemSummary, error)
	GetSnapshotEpoch(ctx context.Context) (string, error)

	// OverwriteSnapshotEntry 商品編輯後就地覆寫快照, 不等下個epoch
	OverwriteSnapshotEntry(ctx context.Context, summary model.ItemSummary) error
	// EvictItem 商品下架時同時從計分結構與快照移除
	EvictItem(ctx context.Context, itemID uint) error
}

type RankingRepo struct {
	rankCache *redis.Client
}

func NewRankingRepo(rankCache *redis.Client) *RankingRepo {
	return &RankingRepo{rankCache: rankCache}
}

func (r *RankingRepo) IncrementScore(ctx context.Context, itemID uint) error {
	err := r.rankCache.ZIncrBy(ctx, rankingKey, 1, strconv.FormatUint(uint64(itemID), 10)).Err()
	if err != nil {
		return fmt.Errorf("%w: failed to increment ranking score: %v", errs.ErrUnavailable, err)
	}
	return nil
}

func (r *RankingRepo) GetTopItemIDs(ctx context.Context, n int64) ([]uint, error) {
	members, err := r.rankCache.ZRevRange(ctx, rankingKey, 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read ranking: %v", errs.ErrUnavailable, err)
	}

	itemIDs := make([]uint, 0, len(members))
	for _, member := range members {
		id, err := strconv.ParseUint(member, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ranking member %q: %w", member, err)
		}
		itemIDs = append(itemIDs, uint(id))
	}
	return itemIDs, nil
}

// 快照替換與計分重置走同一個transaction pipeline
// 舊快照整顆刪除後重建, 讀取端不會看到半新半舊的內容
func (r *RankingRepo) ReplaceSnapshot(ctx context.Context, epoch string, summaries []model.ItemSummary) error {
	_, err := r.rankCache.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, topRankingItemKey)
		for _, summary := range summaries {
			summaryJSON, err := json.Marshal(summary)
			if err != nil {
				return fmt.Errorf("failed to marshal item summary: %w", err)
			}
			pipe.HSet(ctx, topRankingItemKey, strconv.FormatUint(uint64(summary.ItemID), 10), summaryJSON)
		}
		pipe.HSet(ctx, topRankingItemKey, "epoch", epoch)
		pipe.Expire(ctx, topRankingItemKey, snapshotTTL)
		pipe.Del(ctx, rankingKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: failed to replace ranking snapshot: %v", errs.ErrUnavailable, err)
	}
	return nil
}

func (r *RankingRepo) GetSnapshot(ctx context.Context) (map[uint]model.ItemSummary, error) {
	fields, err := r.rankCache.HGetAll(ctx, topRankingItemKey).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read ranking snapshot: %v", errs.ErrUnavailable, err)
	}

	snapshot := make(map[uint]model.ItemSummary, len(fields))
	for field, summaryJSON := range fields {
		if field == "epoch" {
			continue
		}
		id, err := strconv.ParseUint(field, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid snapshot field %q: %w", field, err)
		}
		var summary model.ItemSummary
		if err := json.Unmarshal([]byte(summaryJSON), &summary); err != nil {
			return nil, fmt.Errorf("invalid snapshot payload for item %d: %w", id, err)
		}
		snapshot[uint(id)] = summary
	}
	return snapshot, nil
}

func (r *RankingRepo) GetSnapshotEpoch(ctx context.Context) (string, error) {
	epoch, err := r.rankCache.HGet(ctx, topRankingItemKey, "epoch").Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: failed to read snapshot epoch: %v", errs.ErrUnavailable, err)
	}
	return epoch, nil
}

// 只在商品已存在於快照時覆寫
const overwriteSnapshotScript = `
	local key = KEYS[1]
	local item_id = ARGV[1]

	if redis.call('HEXISTS', key, item_id) == 0 then
		return 0
	end
	redis.call('HSET', key, item_id, ARGV[2])
	return 1
`

func (r *RankingRepo) OverwriteSnapshotEntry(ctx context.Context, summary model.ItemSummary) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal item summary: %w", err)
	}

	err = r.rankCache.Eval(ctx, overwriteSnapshotScript,
		[]string{topRankingItemKey},
		strconv.FormatUint(uint64(summary.ItemID), 10), string(summaryJSON)).Err()
	if err != nil {
		return fmt.Errorf("%w: failed to overwrite snapshot entry: %v", errs.ErrUnavailable, err)
	}
	return nil
}

func (r *RankingRepo) EvictItem(ctx context.Context, itemID uint) error {
	member := strconv.FormatUint(uint64(itemID), 10)
	_, err := r.rankCache.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, topRankingItemKey, member)
		pipe.ZRem(ctx, rankingKey, member)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: failed to evict item from ranking: %v", errs.ErrUnavailable, err)
	}
	return nil
}

var _ IRankingRepository = (*RankingRepo)(nil)
