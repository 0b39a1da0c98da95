// Package refreshtokens declares the server-side repository contract for
// refresh token records in persistent storage.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/server/models"
)

// Repository defines operations for storing, looking up and revoking refresh
// tokens. Implementations are bound to a dbx.DBTX so they can run inside a
// transaction.
type Repository interface {
	// Create stores token. An empty ID is filled with a new UUID.
	Create(ctx context.Context, token *models.RefreshToken) error

	// Find returns common.ErrorNotFound when the token is absent.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)

	// Delete removes exactly one record and returns common.ErrorNotFound when
	// nothing was deleted. Rotation relies on this to detect a lost race.
	Delete(ctx context.Context, token string) error

	DeleteByUser(ctx context.Context, userID string) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
