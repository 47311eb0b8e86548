package service

import (
	"context"
	"fmt"

	"github.com/RoyceAzure/lab/marketplace/internal/domain/model"
	"github.com/RoyceAzure/lab/marketplace/internal/errs"
	"github.com/RoyceAzure/lab/marketplace/internal/infra/repository/db"
	"github.com/rs/zerolog"
)

// ReviewForm 撰寫與編輯共用的評價欄位
type ReviewForm struct {
	Rating  int
	Comment string
}

// IReviewService 商品評價
// 修改與刪除只開放給原作者
type IReviewService interface {
	Write(ctx context.Context, loginID string, itemID uint, form ReviewForm) (*model.Review, error)
	Edit(ctx context.Context, loginID string, reviewID uint, form ReviewForm) error
	Remove(ctx context.Context, loginID string, reviewID uint) error
	ListForItem(ctx context.Context, itemID uint, sort db.ReviewSort, page, size int) ([]model.Review, error)
}

type ReviewService struct {
	reviewRepo db.IReviewRepository
	itemRepo   db.IItemRepository
	memberRepo db.IMemberRepository
	logger     *zerolog.Logger
}

func NewReviewService(
	reviewRepo db.IReviewRepository,
	itemRepo db.IItemRepository,
	memberRepo db.IMemberRepository,
	logger *zerolog.Logger,
) *ReviewService {
	return &ReviewService{
		reviewRepo: reviewRepo,
		itemRepo:   itemRepo,
		memberRepo: memberRepo,
		logger:     logger,
	}
}

// Write 會員與商品都要存在才能留評價
func (s *ReviewService) Write(ctx context.Context, loginID string, itemID uint, form ReviewForm) (*model.Review, error) {
	if err := validateReviewForm(form); err != nil {
		return nil, err
	}

	member, err := s.memberRepo.GetMemberByLoginID(ctx, loginID)
	if err != nil {
		return nil, err
	}
	item, err := s.itemRepo.GetItemByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	review := &model.Review{
		ItemID:   item.ItemID,
		MemberID: member.MemberID,
		Rating:   form.Rating,
		Comment:  form.Comment,
	}
	if err := s.reviewRepo.CreateReview(ctx, review); err != nil {
		return nil, err
	}

	s.logger.Info().Uint("item_id", itemID).Str("member", loginID).Msg("review created")
	return review, nil
}

func (s *ReviewService) Edit(ctx context.Context, loginID string, reviewID uint, form ReviewForm) error {
	if err := validateReviewForm(form); err != nil {
		return err
	}

	review, err := s.getOwnedReview(ctx, loginID, reviewID)
	if err != nil {
		return err
	}

	review.Rating = form.Rating
	review.Comment = form.Comment
	return s.reviewRepo.UpdateReview(ctx, review)
}

func (s *ReviewService) Remove(ctx context.Context, loginID string, reviewID uint) error {
	if _, err := s.getOwnedReview(ctx, loginID, reviewID); err != nil {
		return err
	}
	return s.reviewRepo.DeleteReview(ctx, reviewID)
}

func (s *ReviewService) ListForItem(ctx context.Context, itemID uint, sort db.ReviewSort, page, size int) ([]model.Review, error) {
	return s.reviewRepo.GetReviewsByItem(ctx, itemID, sort, page, size)
}

func (s *ReviewService) getOwnedReview(ctx context.Context, loginID string, reviewID uint) (*model.Review, error) {
	review, err := s.reviewRepo.GetReviewByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	author, err := s.memberRepo.GetMemberByID(ctx, review.MemberID)
	if err != nil {
		return nil, err
	}
	if author.LoginID != loginID {
		return nil, fmt.Errorf("%w: review %d is not owned by %s", errs.ErrForbidden, reviewID, loginID)
	}
	return review, nil
}

func validateReviewForm(form ReviewForm) error {
	if form.Rating < 1 || form.Rating > 5 {
		return fmt.Errorf("%w: rating must be between 1 and 5", errs.ErrInvalidRequest)
	}
	if form.Comment == "" {
		return fmt.Errorf("%w: comment must not be empty", errs.ErrInvalidRequest)
	}
	return nil
}

var _ IReviewService = (*ReviewService)(nil)
