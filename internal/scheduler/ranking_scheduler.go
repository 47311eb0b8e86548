package scheduler

import (
	"context"
	"time"

	"github.com/RoyceAzure/lab/marketplace/internal/service"
	"github.com/rs/zerolog"
)

// RankingScheduler 固定週期觸發top-N快照更新
// 與一般請求處理併行, 單次失敗不重試, 等下一個tick
type RankingScheduler struct {
	ranking  service.IRankingService
	interval time.Duration
	logger   *zerolog.Logger
}

func NewRankingScheduler(ranking service.IRankingService, interval time.Duration, logger *zerolog.Logger) *RankingScheduler {
	return &RankingScheduler{
		ranking:  ranking,
		interval: interval,
		logger:   logger,
	}
}

// Run 阻塞執行到ctx結束
// epoch使用tick當下的時間戳, 標示這一輪快照涵蓋的計分起點
func (s *RankingScheduler) Run(ctx context.Context) {
	s.logger.Info().Dur("interval", s.interval).Msg("ranking scheduler started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("ranking scheduler stopped")
			return
		case tick := <-ticker.C:
			epoch := tick.UTC().Format(time.RFC3339)
			if err := s.ranking.RefreshTopN(ctx, epoch); err != nil {
				s.logger.Error().Err(err).Str("epoch", epoch).Msg("ranking refresh failed")
			}
		}
	}
}
