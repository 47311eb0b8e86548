package redis_repo

import (
	"context"
	"testing"

	"github.com/RoyceAzure/lab/marketplace/internal/domain/model"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type RankingRepoTestSuite struct {
	suite.Suite
	client      *redis.Client
	rankingRepo *RankingRepo
	ctx         context.Context
}

func (suite *RankingRepoTestSuite) SetupSuite() {
	suite.ctx = context.Background()
	suite.client = redis.NewClient(&redis.Options{
		Addr: testRedisAddr,
		DB:   testRedisDB,
	})
	suite.rankingRepo = NewRankingRepo(suite.client)
}

func (suite *RankingRepoTestSuite) SetupTest() {
	// 清空資料庫
	suite.client.FlushDB(suite.ctx)
}

func (suite *RankingRepoTestSuite) TearDownSuite() {
	suite.client.Close()
}

func TestRankingRepoSuite(t *testing.T) {
	suite.Run(t, new(RankingRepoTestSuite))
}

func testSummary(itemID uint, itemName string) model.ItemSummary {
	return model.ItemSummary{
		ItemID:     itemID,
		Title:      itemName,
		ItemName:   itemName,
		Price:      decimal.NewFromInt(10),
		SellerName: "Seller",
	}
}

func (suite *RankingRepoTestSuite) TestIncrementScoreAndTopN() {
	// item 2得兩分, item 1得一分
	require.NoError(suite.T(), suite.rankingRepo.IncrementScore(suite.ctx, 2))
	require.NoError(suite.T(), suite.rankingRepo.IncrementScore(suite.ctx, 2))
	require.NoError(suite.T(), suite.rankingRepo.IncrementScore(suite.ctx, 1))

	itemIDs, err := suite.rankingRepo.GetTopItemIDs(suite.ctx, 15)
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), []uint{2, 1}, itemIDs)

	// n截斷
	itemIDs, err = suite.rankingRepo.GetTopItemIDs(suite.ctx, 1)
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), []uint{2}, itemIDs)
}

func (suite *RankingRepoTestSuite) TestGetTopItemIDs_Empty() {
	itemIDs, err := suite.rankingRepo.GetTopItemIDs(suite.ctx, 15)
	require.NoError(suite.T(), err)
	require.Empty(suite.T(), itemIDs)
}

func (suite *RankingRepoTestSuite) TestReplaceSnapshot() {
	require.NoError(suite.T(), suite.rankingRepo.IncrementScore(suite.ctx, 1))

	err := suite.rankingRepo.ReplaceSnapshot(suite.ctx, "epoch-1", []model.ItemSummary{
		testSummary(1, "keyboard"),
		testSummary(2, "mouse"),
	})
	require.NoError(suite.T(), err)

	snapshot, err := suite.rankingRepo.GetSnapshot(suite.ctx)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), snapshot, 2)
	require.Equal(suite.T(), "keyboard", snapshot[1].ItemName)

	epoch, err := suite.rankingRepo.GetSnapshotEpoch(suite.ctx)
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), "epoch-1", epoch)

	// 計分結構同時被重置
	itemIDs, err := suite.rankingRepo.GetTopItemIDs(suite.ctx, 15)
	require.NoError(suite.T(), err)
	require.Empty(suite.T(), itemIDs)
}

func (suite *RankingRepoTestSuite) TestReplaceSnapshot_DropsOldEntries() {
	err := suite.rankingRepo.ReplaceSnapshot(suite.ctx, "epoch-1", []model.ItemSummary{
		testSummary(1, "keyboard"),
	})
	require.NoError(suite.T(), err)

	// 新epoch沒有item 1, 舊內容不能殘留
	err = suite.rankingRepo.ReplaceSnapshot(suite.ctx, "epoch-2", []model.ItemSummary{
		testSummary(2, "mouse"),
	})
	require.NoError(suite.T(), err)

	snapshot, err := suite.rankingRepo.GetSnapshot(suite.ctx)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), snapshot, 1)
	_, ok := snapshot[1]
	require.False(suite.T(), ok)
}

func (suite *RankingRepoTestSuite) TestGetSnapshotEpoch_NoSnapshot() {
	epoch, err := suite.rankingRepo.GetSnapshotEpoch(suite.ctx)
	require.NoError(suite.T(), err)
	require.Empty(suite.T(), epoch)
}

func (suite *RankingRepoTestSuite) TestOverwriteSnapshotEntry() {
	err := suite.rankingRepo.ReplaceSnapshot(suite.ctx, "epoch-1", []model.ItemSummary{
		testSummary(1, "keyboard"),
	})
	require.NoError(suite.T(), err)

	err = suite.rankingRepo.OverwriteSnapshotEntry(suite.ctx, testSummary(1, "keyboard v2"))
	require.NoError(suite.T(), err)

	snapshot, err := suite.rankingRepo.GetSnapshot(suite.ctx)
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), "keyboard v2", snapshot[1].ItemName)
}

func (suite *RankingRepoTestSuite) TestOverwriteSnapshotEntry_NotInSnapshot() {
	err := suite.rankingRepo.ReplaceSnapshot(suite.ctx, "epoch-1", []model.ItemSummary{
		testSummary(1, "keyboard"),
	})
	require.NoError(suite.T(), err)

	// 不在快照內的商品不會被塞進去
	err = suite.rankingRepo.OverwriteSnapshotEntry(suite.ctx, testSummary(42, "ghost"))
	require.NoError(suite.T(), err)

	snapshot, err := suite.rankingRepo.GetSnapshot(suite.ctx)
	require.NoError(suite.T(), err)
	_, ok := snapshot[42]
	require.False(suite.T(), ok)
}

func (suite *RankingRepoTestSuite) TestEvictItem() {
	require.NoError(suite.T(), suite.rankingRepo.IncrementScore(suite.ctx, 1))
	err := suite.rankingRepo.ReplaceSnapshot(suite.ctx, "epoch-1", []model.ItemSummary{
		testSummary(1, "keyboard"),
	})
	require.NoError(suite.T(), err)
	require.NoError(suite.T(), suite.rankingRepo.IncrementScore(suite.ctx, 1))

	require.NoError(suite.T(), suite.rankingRepo.EvictItem(suite.ctx, 1))

	snapshot, err := suite.rankingRepo.GetSnapshot(suite.ctx)
	require.NoError(suite.T(), err)
	require.Empty(suite.T(), snapshot)
	itemIDs, err := suite.rankingRepo.GetTopItemIDs(suite.ctx, 15)
	require.NoError(suite.T(), err)
	require.Empty(suite.T(), itemIDs)
}
