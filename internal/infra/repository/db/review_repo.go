package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/RoyceAzure/lab/marketplace/internal/domain/model"
	"github.com/RoyceAzure/lab/marketplace/internal/errs"
	"gorm.io/gorm"
)

// ReviewSort 商品評價列表的排序方式
type ReviewSort string

const (
	ReviewSortLatest     ReviewSort = "LATEST"
	ReviewSortOldest     ReviewSort = "OLDEST"
	ReviewSortRatingAsc  ReviewSort = "RATING_ASC"
	ReviewSortRatingDesc ReviewSort = "RATING_DESC"
)

// orderBy 未知的排序值一律用最新優先
func (s ReviewSort) orderBy() string {
	switch s {
	case ReviewSortOldest:
		return "created_at ASC"
	case ReviewSortRatingAsc:
		return "rating ASC, created_at DESC"
	case ReviewSortRatingDesc:
		return "rating DESC, created_at DESC"
	default:
		return "created_at DESC"
	}
}

// IReviewRepository 商品評價的關聯式儲存
type IReviewRepository interface {
	CreateReview(ctx context.Context, review *model.Review) error
	GetReviewByID(ctx context.Context, reviewID uint) (*model.Review, error)
	UpdateReview(ctx context.Context, review *model.Review) error
	DeleteReview(ctx context.Context, reviewID uint) error
	GetReviewsByItem(ctx context.Context, itemID uint, sort ReviewSort, page, size int) ([]model.Review, error)
}

type ReviewRepo struct {
	db *DbDao
}

func NewReviewRepo(db *DbDao) *ReviewRepo {
	return &ReviewRepo{db: db}
}

func (r *ReviewRepo) CreateReview(ctx context.Context, review *model.Review) error {
	return r.db.WithContext(ctx).Create(review).Error
}

func (r *ReviewRepo) GetReviewByID(ctx context.Context, reviewID uint) (*model.Review, error) {
	var review model.Review
	err := r.db.WithContext(ctx).First(&review, "review_id = ?", reviewID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: review %d", errs.ErrReviewNotFound, reviewID)
	}
	if err != nil {
		return nil, err
	}
	return &review, nil
}

// UpdateReview 只改評分與留言, 歸屬欄位不允許搬移
func (r *ReviewRepo) UpdateReview(ctx context.Context, review *model.Review) error {
	return r.db.WithContext(ctx).Model(&model.Review{}).
		Where("review_id = ?", review.ReviewID).
		Select("rating", "comment").
		Updates(review).Error
}

func (r *ReviewRepo) DeleteReview(ctx context.Context, reviewID uint) error {
	return r.db.WithContext(ctx).Where("review_id = ?", reviewID).Delete(&model.Review{}).Error
}

func (r *ReviewRepo) GetReviewsByItem(ctx context.Context, itemID uint, sort ReviewSort, page, size int) ([]model.Review, error) {
	var reviews []model.Review
	err := r.db.WithContext(ctx).
		Where("item_id = ?", itemID).
		Order(sort.orderBy()).
		Offset(page * size).
		Limit(size).
		Find(&reviews).Error
	return reviews, err
}

var _ IReviewRepository = (*ReviewRepo)(nil)
