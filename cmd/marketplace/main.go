package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/RoyceAzure/lab/marketplace/internal/config"
	"github.com/RoyceAzure/lab/marketplace/internal/infra/repository/db"
	"github.com/RoyceAzure/lab/marketplace/internal/infra/repository/redis_repo"
	"github.com/RoyceAzure/lab/marketplace/internal/mail"
	"github.com/RoyceAzure/lab/marketplace/internal/scheduler"
	"github.com/RoyceAzure/lab/marketplace/internal/secure"
	"github.com/RoyceAzure/lab/marketplace/internal/service"
	"github.com/RoyceAzure/lab/marketplace/internal/token"
	"github.com/RoyceAzure/lab/marketplace/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// ApplicationContext 集中持有全部基礎設施與服務
type ApplicationContext struct {
	Cf               *config.Config
	DbDao            *db.DbDao
	RedisClient      *redis.Client
	IdentityProvider token.IIdentityProvider
	CartService      service.ICartService
	InventoryService service.IInventoryService
	OrderService     service.IOrderService
	RankingService   service.IRankingService
	ItemService      service.IItemService
	MemberService    service.IMemberService
	ReviewService    service.IReviewService
	RankingScheduler *scheduler.RankingScheduler
}

func NewApplicationContext(cf *config.Config) (*ApplicationContext, error) {
	l := logger.New("marketplace", cf.Environment)

	conn, err := db.GetDbConn(cf.DbName, cf.DbHost, cf.DbPort, cf.DbUser, cf.DbPas)
	if err != nil {
		return nil, err
	}
	dao := db.NewDbDao(conn)
	if err := dao.InitMigrate(); err != nil {
		return nil, err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cf.RedisAddr,
		Password: cf.RedisPassword,
		DB:       cf.RedisDB,
	})

	codec, err := secure.NewCartCodec([]byte(cf.CartAesKey))
	if err != nil {
		return nil, err
	}
	identityProvider, err := token.NewPasetoProvider(cf.AuthTokenKey)
	if err != nil {
		return nil, err
	}

	itemRepo := db.NewItemRepo(dao)
	orderRepo := db.NewOrderRepo(dao)
	memberRepo := db.NewMemberRepo(dao)
	reviewRepo := db.NewReviewRepo(dao)
	cartRepo := redis_repo.NewCartRepo(rdb)
	rankingRepo := redis_repo.NewRankingRepo(rdb)
	verificationRepo := redis_repo.NewVerificationRepo(rdb)

	inventoryService := service.NewInventoryService(itemRepo)
	cartService := service.NewCartService(
		cartRepo, itemRepo, inventoryService, codec,
		redis_repo.MergePolicy(cf.CartMergePolicy), l)
	orderService := service.NewOrderService(
		dao, orderRepo, itemRepo, memberRepo, cartRepo, inventoryService, l)
	rankingService := service.NewRankingService(rankingRepo, itemRepo, memberRepo, l)
	itemService := service.NewItemService(itemRepo, memberRepo, rankingRepo, l)
	reviewService := service.NewReviewService(reviewRepo, itemRepo, memberRepo, l)
	mailSender := mail.NewSMTPSender(cf.EmailAccount, cf.SmtpHost, cf.SmtpPort, cf.SmtpAuthKey, l)
	memberService := service.NewMemberService(
		memberRepo, verificationRepo, cartService, identityProvider, mailSender, l)

	return &ApplicationContext{
		Cf:               cf,
		DbDao:            dao,
		RedisClient:      rdb,
		IdentityProvider: identityProvider,
		CartService:      cartService,
		InventoryService: inventoryService,
		OrderService:     orderService,
		RankingService:   rankingService,
		ItemService:      itemService,
		MemberService:    memberService,
		ReviewService:    reviewService,
		RankingScheduler: scheduler.NewRankingScheduler(rankingService, cf.RankingInterval, l),
	}, nil
}

func main() {
	cf := config.GetConfig()

	app, err := NewApplicationContext(cf)
	if err != nil {
		log.Fatalf("failed to init application context: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 排行榜刷新與請求處理併行
	app.RankingScheduler.Run(ctx)
}
