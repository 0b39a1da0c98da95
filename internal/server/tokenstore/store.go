// Package tokenstore persists refresh token records. Every backend offers the
// same atomic Replace, which is what makes a refresh token single use.
package tokenstore

import (
	"context"
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/dbx"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/models"
)

// Backend names accepted by the token_store setting.
const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

// Store is the refresh token store. Find, Delete and Replace return
// common.ErrorNotFound when the token is not present.
type Store interface {
	Save(ctx context.Context, token *models.RefreshToken) error
	Find(ctx context.Context, token string) (*models.RefreshToken, error)
	Delete(ctx context.Context, token string) error

	// Replace removes oldToken and stores next as one atomic step. When
	// oldToken is already gone nothing is written. Of two concurrent calls
	// with the same oldToken at most one succeeds.
	Replace(ctx context.Context, oldToken string, next *models.RefreshToken) error

	DeleteByUser(ctx context.Context, userID string) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// TxRevoker is implemented by stores that share the users database. Their
// revocation can join the transaction that changes the user.
type TxRevoker interface {
	DeleteByUserTx(ctx context.Context, tx dbx.DBTX, userID string) (int64, error)
}
