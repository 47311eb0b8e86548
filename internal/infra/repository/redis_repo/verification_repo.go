package redis_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/RoyceAzure/lab/marketplace/internal/errs"
	"github.com/redis/go-redis/v9"
)

const verificationTTL = 10 * time.Minute

// IVerificationRepository 註冊信箱驗證碼, 驗證成功即銷毀
type IVerificationRepository interface {
	SaveCode(ctx context.Context, code string, payload string) error
	TakeCode(ctx context.Context, code string) (string, error)
}

type VerificationRepo struct {
	cache *redis.Client
}

func NewVerificationRepo(cache *redis.Client) *VerificationRepo {
	return &VerificationRepo{cache: cache}
}

func generateVerificationKey(code string) string {
	return fmt.Sprintf("signup:verification:%s", code)
}

func (r *VerificationRepo) SaveCode(ctx context.Context, code string, payload string) error {
	err := r.cache.Set(ctx, generateVerificationKey(code), payload, verificationTTL).Err()
	if err != nil {
		return fmt.Errorf("%w: failed to save verification code: %v", errs.ErrUnavailable, err)
	}
	return nil
}

// TakeCode 取出並刪除, 同一個驗證碼只能使用一次
func (r *VerificationRepo) TakeCode(ctx context.Context, code string) (string, error) {
	payload, err := r.cache.GetDel(ctx, generateVerificationKey(code)).Result()
	if err == redis.Nil {
		return "", errs.ErrVerificationCode
	}
	if err != nil {
		return "", fmt.Errorf("%w: failed to take verification code: %v", errs.ErrUnavailable, err)
	}
	return payload, nil
}

var _ IVerificationRepository = (*VerificationRepo)(nil)
