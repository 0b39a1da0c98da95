package services

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/tokenkeeper/internal/common"
	"github.com/dmitrijs2005/tokenkeeper/internal/dbx"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/models"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/password"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// CredentialVerifier checks a login and password against the stored hash.
type CredentialVerifier struct {
	db        dbx.DBTX
	repos     repomanager.RepositoryManager
	hasher    *password.Hasher
	dummyHash string
}

// NewCredentialVerifier hashes a throwaway password once so that lookups of
// unknown users still pay for a bcrypt comparison.
func NewCredentialVerifier(db dbx.DBTX, repos repomanager.RepositoryManager, hasher *password.Hasher) (*CredentialVerifier, error) {
	dummy, err := hasher.Hash(hex.EncodeToString(common.GenerateRandByteArray(16)))
	if err != nil {
		return nil, fmt.Errorf("dummy hash: %w", err)
	}
	return &CredentialVerifier{db: db, repos: repos, hasher: hasher, dummyHash: dummy}, nil
}

// Verify resolves login as a username, then as a user ID when it parses as a
// UUID. Unknown users, wrong passwords and deactivated accounts all return
// common.ErrInvalidCredentials.
func (v *CredentialVerifier) Verify(ctx context.Context, login, pw string) (*models.User, error) {
	users := v.repos.Users(v.db)

	user, err := users.GetUserByLogin(ctx, login)
	if errors.Is(err, common.ErrorNotFound) {
		if _, perr := uuid.Parse(login); perr == nil {
			user, err = users.GetUserByID(ctx, login)
		}
	}
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			v.hasher.Compare(v.dummyHash, pw)
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if !v.hasher.Compare(user.PasswordHash, pw) {
		return nil, common.ErrInvalidCredentials
	}
	if !user.Active {
		return nil, common.ErrInvalidCredentials
	}

	return user, nil
}

func (v *CredentialVerifier) UsernameExists(ctx context.Context, userName string) (bool, error) {
	return v.repos.Users(v.db).ExistsByUsername(ctx, userName)
}

// EmailAvailable reports false for an empty address.
func (v *CredentialVerifier) EmailAvailable(ctx context.Context, email string) (bool, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return false, nil
	}
	taken, err := v.repos.Users(v.db).ExistsByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	return !taken, nil
}
