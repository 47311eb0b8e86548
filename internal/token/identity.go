package token

import (
	"fmt"
	"time"

	"github.com/RoyceAzure/lab/marketplace/internal/errs"
	"github.com/RoyceAzure/rj/api/token"
	"github.com/google/uuid"
)

// Identity 已驗證的呼叫者身分
type Identity struct {
	LoginID   string
	MemberUID uuid.UUID
}

// IIdentityProvider 核心只依賴此介面, 不碰token格式
type IIdentityProvider interface {
	Issue(identity Identity, duration time.Duration) (string, error)
	Verify(tokenStr string) (*Identity, error)
}

type PasetoProvider struct {
	maker token.Maker[uuid.UUID]
}

func NewPasetoProvider(symmetricKey string) (*PasetoProvider, error) {
	maker, err := token.NewPasetoMaker[uuid.UUID](symmetricKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create token maker: %w", err)
	}
	return &PasetoProvider{maker: maker}, nil
}

func (p *PasetoProvider) Issue(identity Identity, duration time.Duration) (string, error) {
	tokenStr, _, err := p.maker.CreateToken(identity.LoginID, identity.MemberUID, duration)
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}
	return tokenStr, nil
}

func (p *PasetoProvider) Verify(tokenStr string) (*Identity, error) {
	payload, err := p.maker.VertifyToken(tokenStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrAuthFailure, err)
	}
	return &Identity{
		LoginID:   payload.UPN,
		MemberUID: payload.UserId,
	}, nil
}

var _ IIdentityProvider = (*PasetoProvider)(nil)
