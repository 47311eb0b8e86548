package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/RoyceAzure/lab/marketplace/internal/domain/model"
	"github.com/RoyceAzure/lab/marketplace/internal/errs"
	"gorm.io/gorm"
)

type IMemberRepository interface {
	CreateMember(ctx context.Context, member *model.Member) error
	GetMemberByLoginID(ctx context.Context, loginID string) (*model.Member, error)
	GetMemberByID(ctx context.Context, memberID uint) (*model.Member, error)
	ExistsByLoginID(ctx context.Context, loginID string) (bool, error)
}

type MemberRepo struct {
	db *DbDao
}

func NewMemberRepo(db *DbDao) *MemberRepo {
	return &MemberRepo{db: db}
}

func (r *MemberRepo) CreateMember(ctx context.Context, member *model.Member) error {
	return r.db.WithContext(ctx).Create(member).Error
}

func (r *MemberRepo) GetMemberByLoginID(ctx context.Context, loginID string) (*model.Member, error) {
	var member model.Member
	err := r.db.WithContext(ctx).First(&member, "login_id = ?", loginID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: login id %s", errs.ErrMemberNotFound, loginID)
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *MemberRepo) GetMemberByID(ctx context.Context, memberID uint) (*model.Member, error) {
	var member model.Member
	err := r.db.WithContext(ctx).First(&member, "member_id = ?", memberID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: member %d", errs.ErrMemberNotFound, memberID)
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *MemberRepo) ExistsByLoginID(ctx context.Context, loginID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Member{}).
		Where("login_id = ?", loginID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

var _ IMemberRepository = (*MemberRepo)(nil)
