package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/RoyceAzure/lab/marketplace/internal/domain/model"
	"github.com/RoyceAzure/lab/marketplace/internal/infra/repository/db"
	"github.com/RoyceAzure/lab/marketplace/internal/infra/repository/redis_repo"
	"github.com/rs/zerolog"
)

// 每個epoch進入快照的商品數
const topN = 15

// MainPageView 主頁資料: top-N快照 + 最新上架
type MainPageView struct {
	TopItems    map[uint]model.ItemSummary
	RecentItems []model.Item
}

// IRankingService 瀏覽計數與人氣排行
type IRankingService interface {
	// RegisterView 同一位訪客在同一個seen-set token內重看同一商品不re-increment
	// 回傳更新後的token與這次是否有計入
	RegisterView(ctx context.Context, visitorToken string, itemID uint) (string, bool, error)

	// RefreshTopN 讀取即時計分前topN, 抓商品摘要, 整顆替換快照並重置計分
	// epoch由排程端給定, 用來標示這一輪快照的起點
	RefreshTopN(ctx context.Context, epoch string) error

	GetMainPage(ctx context.Context) (*MainPageView, error)
}

type RankingService struct {
	rankingRepo redis_repo.IRankingRepository
	itemRepo    db.IItemRepository
	memberRepo  db.IMemberRepository
	logger      *zerolog.Logger
}

func NewRankingService(
	rankingRepo redis_repo.IRankingRepository,
	itemRepo db.IItemRepository,
	memberRepo db.IMemberRepository,
	logger *zerolog.Logger,
) *RankingService {
	return &RankingService{
		rankingRepo: rankingRepo,
		itemRepo:    itemRepo,
		memberRepo:  memberRepo,
		logger:      logger,
	}
}

// seen-set token格式沿用cookie值: "[1][5][12]"
func viewMarker(itemID uint) string {
	return "[" + strconv.FormatUint(uint64(itemID), 10) + "]"
}

func (s *RankingService) RegisterView(ctx context.Context, visitorToken string, itemID uint) (string, bool, error) {
	if _, err := s.itemRepo.GetItemByID(ctx, itemID); err != nil {
		return visitorToken, false, err
	}

	marker := viewMarker(itemID)
	if strings.Contains(visitorToken, marker) {
		return visitorToken, false, nil
	}

	if err := s.itemRepo.AddViewCount(ctx, itemID); err != nil {
		return visitorToken, false, err
	}
	if err := s.rankingRepo.IncrementScore(ctx, itemID); err != nil {
		return visitorToken, false, err
	}
	return visitorToken + marker, true, nil
}

func (s *RankingService) RefreshTopN(ctx context.Context, epoch string) error {
	itemIDs, err := s.rankingRepo.GetTopItemIDs(ctx, topN)
	if err != nil {
		return err
	}

	summaries := make([]model.ItemSummary, 0, len(itemIDs))
	if len(itemIDs) > 0 {
		items, err := s.itemRepo.GetItemsByIDs(ctx, itemIDs)
		if err != nil {
			return err
		}
		for i := range items {
			seller, err := s.memberRepo.GetMemberByID(ctx, items[i].SellerID)
			if err != nil {
				return fmt.Errorf("failed to load seller for item %d: %w", items[i].ItemID, err)
			}
			summaries = append(summaries, model.NewItemSummary(&items[i], seller.UserName))
		}
	}

	if err := s.rankingRepo.ReplaceSnapshot(ctx, epoch, summaries); err != nil {
		return err
	}

	s.logger.Info().
		Str("epoch", epoch).
		Int("snapshot_size", len(summaries)).
		Msg("ranking snapshot refreshed")
	return nil
}

func (s *RankingService) GetMainPage(ctx context.Context) (*MainPageView, error) {
	snapshot, err := s.rankingRepo.GetSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	recentItems, err := s.itemRepo.GetRecentItems(ctx, topN)
	if err != nil {
		return nil, err
	}
	return &MainPageView{TopItems: snapshot, RecentItems: recentItems}, nil
}

var _ IRankingService = (*RankingService)(nil)
