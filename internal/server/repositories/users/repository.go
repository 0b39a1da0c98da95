// Package users declares the identity repository used by the credential
// verifier and the rotator, plus its PostgreSQL implementation.
package users

import (
	"context"

	"github.com/dmitrijs2005/tokenkeeper/internal/server/models"
)

// Repository stores identities. Lookups return common.ErrorNotFound when the
// user is absent; updates return it when no row matched.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByLogin(ctx context.Context, userName string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	ExistsByUsername(ctx context.Context, userName string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	UpdateRole(ctx context.Context, id string, role models.Role) error
	UpdatePasswordHash(ctx context.Context, id string, hash string) error
	// Deactivate soft-deletes the user. Rows are never removed.
	Deactivate(ctx context.Context, id string) error
}
