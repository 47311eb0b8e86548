package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/RoyceAzure/lab/marketplace/internal/domain/model"
	"github.com/RoyceAzure/lab/marketplace/internal/errs"
	"github.com/RoyceAzure/lab/marketplace/internal/infra/repository/db"
	"github.com/RoyceAzure/lab/marketplace/internal/infra/repository/redis_repo"
	"github.com/RoyceAzure/lab/marketplace/internal/mail"
	"github.com/RoyceAzure/lab/marketplace/internal/token"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const loginTokenDuration = 24 * time.Hour

// SignUpForm 註冊資料, 驗證完成前以JSON暫存在redis
type SignUpForm struct {
	LoginID  string `json:"login_id"`
	UserName string `json:"user_name"`
	Email    string `json:"email"`
	Address  string `json:"address"`
	Role     string `json:"role"`
}

// LoginResult 登入結果, 含合併後的購物車狀態
type LoginResult struct {
	AccessToken string
	Cart        *CartResult
}

// IMemberService 會員註冊與登入
type IMemberService interface {
	SignUp(ctx context.Context, form SignUpForm) error
	Verify(ctx context.Context, code string) (*model.Member, error)
	// Login 驗證身分並觸發匿名購物車合併
	Login(ctx context.Context, loginID string, anonCartToken string) (*LoginResult, error)
}

type MemberService struct {
	memberRepo       db.IMemberRepository
	verificationRepo redis_repo.IVerificationRepository
	cartService      ICartService
	identityProvider token.IIdentityProvider
	mailSender       mail.ISender
	logger           *zerolog.Logger
}

func NewMemberService(
	memberRepo db.IMemberRepository,
	verificationRepo redis_repo.IVerificationRepository,
	cartService ICartService,
	identityProvider token.IIdentityProvider,
	mailSender mail.ISender,
	logger *zerolog.Logger,
) *MemberService {
	return &MemberService{
		memberRepo:       memberRepo,
		verificationRepo: verificationRepo,
		cartService:      cartService,
		identityProvider: identityProvider,
		mailSender:       mailSender,
		logger:           logger,
	}
}

// SignUp 檢查重複帳號後寄出驗證碼, 會員資料等驗證成功才落地
func (s *MemberService) SignUp(ctx context.Context, form SignUpForm) error {
	if form.LoginID == "" || form.Email == "" {
		return fmt.Errorf("%w: login id and email are required", errs.ErrInvalidRequest)
	}

	exists, err := s.memberRepo.ExistsByLoginID(ctx, form.LoginID)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", errs.ErrAlreadyExistLoginID, form.LoginID)
	}

	formJSON, err := json.Marshal(form)
	if err != nil {
		return fmt.Errorf("failed to marshal signup form: %w", err)
	}

	code := uuid.New().String()
	if err := s.verificationRepo.SaveCode(ctx, code, string(formJSON)); err != nil {
		return err
	}

	// 寄信不擋主流程
	s.mailSender.SendVerificationCode(form.Email, code)
	return nil
}

// Verify 驗證碼換正式會員
func (s *MemberService) Verify(ctx context.Context, code string) (*model.Member, error) {
	formJSON, err := s.verificationRepo.TakeCode(ctx, code)
	if err != nil {
		return nil, err
	}

	var form SignUpForm
	if err := json.Unmarshal([]byte(formJSON), &form); err != nil {
		return nil, fmt.Errorf("invalid signup payload: %w", err)
	}

	role := form.Role
	if role == "" {
		role = model.RoleMember
	}
	member := &model.Member{
		MemberUID: uuid.New(),
		LoginID:   form.LoginID,
		UserName:  form.UserName,
		Email:     form.Email,
		Address:   form.Address,
		Role:      role,
	}
	if err := s.memberRepo.CreateMember(ctx, member); err != nil {
		return nil, err
	}

	s.logger.Info().Str("login_id", member.LoginID).Msg("member registered")
	return member, nil
}

// Login 發token並合併匿名購物車
// 合併失敗不影響登入本身, client保留匿名token下次重試
func (s *MemberService) Login(ctx context.Context, loginID string, anonCartToken string) (*LoginResult, error) {
	member, err := s.memberRepo.GetMemberByLoginID(ctx, loginID)
	if err != nil {
		return nil, err
	}

	accessToken, err := s.identityProvider.Issue(token.Identity{
		LoginID:   member.LoginID,
		MemberUID: member.MemberUID,
	}, loginTokenDuration)
	if err != nil {
		return nil, err
	}

	result := &LoginResult{AccessToken: accessToken}
	cartResult, err := s.cartService.MergeOnLogin(ctx, loginID, anonCartToken)
	if err != nil {
		s.logger.Warn().Err(err).Str("login_id", loginID).Msg("cart merge failed on login")
		return result, nil
	}
	result.Cart = cartResult
	return result, nil
}

var _ IMemberService = (*MemberService)(nil)
