package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/common"
	"github.com/dmitrijs2005/tokenkeeper/internal/dbx"
	"github.com/dmitrijs2005/tokenkeeper/internal/logging"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/auth"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/models"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/tokenstore"
)

// TokenRotator exchanges a (possibly expired) access token and its refresh
// token for a fresh pair. Each refresh token can be redeemed once.
type TokenRotator struct {
	db     dbx.DBTX
	repos  repomanager.RepositoryManager
	tokens *auth.Manager
	store  tokenstore.Store
	issuer *TokenIssuer
	now    func() time.Time
	log    logging.Logger
}

func NewTokenRotator(
	db dbx.DBTX,
	repos repomanager.RepositoryManager,
	tokens *auth.Manager,
	store tokenstore.Store,
	issuer *TokenIssuer,
	opts ...Option,
) *TokenRotator {
	o := newOptions(opts)
	return &TokenRotator{
		db:     db,
		repos:  repos,
		tokens: tokens,
		store:  store,
		issuer: issuer,
		now:    o.now,
		log:    o.log.With("module", "token_rotator"),
	}
}

// Rotate returns one of the rotation sentinels from package common on
// rejection. Callers outside the service must not reveal which one.
func (r *TokenRotator) Rotate(ctx context.Context, prevAccess, prevRefresh string) (*models.TokenPair, error) {
	pair, userID, err := r.rotate(ctx, prevAccess, prevRefresh)
	if err != nil {
		if common.IsRotationError(err) {
			r.log.Warn(ctx, "refresh rejected", "op", "rotate", "reason", rejectionReason(err), "user_id", userID)
		} else {
			r.log.Error(ctx, "refresh failed", "op", "rotate", "error", err)
		}
		return nil, err
	}

	r.log.Debug(ctx, "refresh rotated", "op", "rotate", "user_id", userID)
	return pair, nil
}

func (r *TokenRotator) rotate(ctx context.Context, prevAccess, prevRefresh string) (*models.TokenPair, string, error) {
	claims, err := r.tokens.ParseExpiredAccessToken(prevAccess)
	if err != nil {
		return nil, "", err
	}

	record, err := r.store.Find(ctx, prevRefresh)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, claims.UserID, common.ErrRefreshTokenNotFound
		}
		return nil, claims.UserID, fmt.Errorf("find refresh token: %w", err)
	}

	if record.UserID != claims.UserID {
		return nil, claims.UserID, common.ErrSubjectMismatch
	}
	if record.Expired(r.now()) {
		return nil, claims.UserID, common.ErrRefreshTokenExpired
	}

	// Claims may be stale, the pair is minted from the stored identity.
	user, err := r.repos.Users(r.db).GetUserByID(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, claims.UserID, common.ErrAccountInactive
		}
		return nil, claims.UserID, fmt.Errorf("load user: %w", err)
	}
	if !user.Active {
		return nil, claims.UserID, common.ErrAccountInactive
	}

	pair, next, err := r.issuer.mint(user)
	if err != nil {
		return nil, user.ID, err
	}

	if err := r.store.Replace(ctx, prevRefresh, next); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, user.ID, common.ErrRefreshTokenNotFound
		}
		return nil, user.ID, fmt.Errorf("replace refresh token: %w", err)
	}

	return pair, user.ID, nil
}

var rotationSentinels = []error{
	common.ErrInvalidToken,
	common.ErrRefreshTokenNotFound,
	common.ErrSubjectMismatch,
	common.ErrRefreshTokenExpired,
	common.ErrAccountInactive,
}

func rejectionReason(err error) string {
	for _, s := range rotationSentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return err.Error()
}
