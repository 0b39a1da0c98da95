package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/common"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/auth"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/models"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/tokenstore"
)

// TokenIssuer mints token pairs.
type TokenIssuer struct {
	tokens     *auth.Manager
	store      tokenstore.Store
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenIssuer(tokens *auth.Manager, store tokenstore.Store, refreshTTL time.Duration, opts ...Option) *TokenIssuer {
	o := newOptions(opts)
	return &TokenIssuer{tokens: tokens, store: store, refreshTTL: refreshTTL, now: o.now}
}

// Issue mints a pair for user and persists its refresh record.
func (i *TokenIssuer) Issue(ctx context.Context, user *models.User) (*models.TokenPair, error) {
	pair, record, err := i.mint(user)
	if err != nil {
		return nil, err
	}
	if err := i.store.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("save refresh token: %w", err)
	}
	return pair, nil
}

// mint builds a pair and the matching refresh record without storing it.
func (i *TokenIssuer) mint(user *models.User) (*models.TokenPair, *models.RefreshToken, error) {
	access, accessExp, err := i.tokens.GenerateAccessToken(user.ID, user.UserName, user.Role)
	if err != nil {
		return nil, nil, fmt.Errorf("sign access token: %w", err)
	}

	value, err := common.MakeRandHexString(common.RefreshTokenSize)
	if err != nil {
		return nil, nil, fmt.Errorf("generate refresh token: %w", err)
	}

	now := i.now()
	record := &models.RefreshToken{
		UserID:    user.ID,
		Token:     value,
		ExpiresAt: now.Add(i.refreshTTL),
		CreatedAt: now,
	}

	return &models.TokenPair{
		AccessToken:      access,
		RefreshToken:     value,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: record.ExpiresAt,
	}, record, nil
}
