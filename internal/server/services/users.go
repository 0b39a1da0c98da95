package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/tokenkeeper/internal/common"
	"github.com/dmitrijs2005/tokenkeeper/internal/dbx"
	"github.com/dmitrijs2005/tokenkeeper/internal/logging"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/auth"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/models"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/password"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/repositories/repomanager"
	usersrepo "github.com/dmitrijs2005/tokenkeeper/internal/server/repositories/users"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/tokenstore"
)

const (
	minPasswordLen = 8
	maxUsernameLen = 64
)

// UserService is the entry point used by the transport layer.
type UserService struct {
	db       dbx.DBTX
	repos    repomanager.RepositoryManager
	store    tokenstore.Store
	hasher   *password.Hasher
	verifier *CredentialVerifier
	issuer   *TokenIssuer
	rotator  *TokenRotator
	log      logging.Logger
}

func NewUserService(
	db dbx.DBTX,
	repos repomanager.RepositoryManager,
	store tokenstore.Store,
	tokens *auth.Manager,
	hasher *password.Hasher,
	refreshTTL time.Duration,
	opts ...Option,
) (*UserService, error) {
	verifier, err := NewCredentialVerifier(db, repos, hasher)
	if err != nil {
		return nil, err
	}
	issuer := NewTokenIssuer(tokens, store, refreshTTL, opts...)
	o := newOptions(opts)

	return &UserService{
		db:       db,
		repos:    repos,
		store:    store,
		hasher:   hasher,
		verifier: verifier,
		issuer:   issuer,
		rotator:  NewTokenRotator(db, repos, tokens, store, issuer, opts...),
		log:      o.log.With("module", "user_service"),
	}, nil
}

func (s *UserService) Verifier() *CredentialVerifier { return s.verifier }

func (s *UserService) Register(ctx context.Context, userName, email, pw string) (*models.User, error) {
	userName = strings.TrimSpace(userName)
	email = strings.TrimSpace(email)

	if err := validateUsername(userName); err != nil {
		return nil, err
	}
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, fmt.Errorf("%w: malformed email", common.ErrorValidation)
		}
	}
	if err := validatePassword(pw); err != nil {
		return nil, err
	}

	exists, err := s.verifier.UsernameExists(ctx, userName)
	if err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if exists {
		return nil, common.ErrorAlreadyExists
	}
	if email != "" {
		free, err := s.verifier.EmailAvailable(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("check email: %w", err)
		}
		if !free {
			return nil, common.ErrorAlreadyExists
		}
	}

	hash, err := s.hasher.Hash(pw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}

	user, err := s.repos.Users(s.db).Create(ctx, &models.User{
		UserName:     userName,
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleUser,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "user registered", "user_id", user.ID)
	return user, nil
}

func (s *UserService) Login(ctx context.Context, login, pw string) (*models.TokenPair, error) {
	user, err := s.verifier.Verify(ctx, login, pw)
	if err != nil {
		if errors.Is(err, common.ErrInvalidCredentials) {
			s.log.Info(ctx, "login rejected", "login_fp", loginFingerprint(login))
		}
		return nil, err
	}
	return s.issuer.Issue(ctx, user)
}

func (s *UserService) Refresh(ctx context.Context, accessToken, refreshToken string) (*models.TokenPair, error) {
	return s.rotator.Rotate(ctx, accessToken, refreshToken)
}

// Logout revokes one refresh token owned by userID. Unknown tokens and
// tokens of other users are ignored, so the call is idempotent and does not
// disclose whether a value exists.
func (s *UserService) Logout(ctx context.Context, userID, refreshToken string) error {
	record, err := s.store.Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		return fmt.Errorf("find refresh token: %w", err)
	}
	if record.UserID != userID {
		return nil
	}

	if err := s.store.Delete(ctx, refreshToken); err != nil && !errors.Is(err, common.ErrorNotFound) {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	return nil
}

// LogoutAll revokes every refresh token of userID.
func (s *UserService) LogoutAll(ctx context.Context, userID string) (int64, error) {
	n, err := s.store.DeleteByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("revoke sessions: %w", err)
	}
	return n, nil
}

func (s *UserService) Profile(ctx context.Context, userID string) (*models.User, error) {
	return s.repos.Users(s.db).GetUserByID(ctx, userID)
}

// ChangePassword also revokes all sessions of the user. The new hash is only
// kept once revocation succeeded.
func (s *UserService) ChangePassword(ctx context.Context, userID, oldPw, newPw string) error {
	user, err := s.repos.Users(s.db).GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrInvalidCredentials
		}
		return fmt.Errorf("load user: %w", err)
	}
	if !s.hasher.Compare(user.PasswordHash, oldPw) {
		return common.ErrInvalidCredentials
	}
	if err := validatePassword(newPw); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPw)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}

	n, err := s.updateAndRevoke(ctx, userID,
		func(ctx context.Context, users usersrepo.Repository) error {
			return users.UpdatePasswordHash(ctx, userID, hash)
		},
		func(ctx context.Context, users usersrepo.Repository) error {
			return users.UpdatePasswordHash(ctx, userID, user.PasswordHash)
		},
	)
	if err != nil {
		return err
	}
	s.log.Info(ctx, "password changed", "user_id", userID, "revoked", n)
	return nil
}

// AssignRole changes the role of userID. Only a SuperAdmin may grant
// SuperAdmin or change the role of a SuperAdmin. The new role shows up in the
// next rotated access token.
func (s *UserService) AssignRole(ctx context.Context, actor models.Role, userID string, role models.Role) error {
	if !role.Valid() {
		return fmt.Errorf("%w: unknown role %q", common.ErrorValidation, role)
	}
	if role == models.RoleSuperAdmin && actor != models.RoleSuperAdmin {
		return common.ErrorUnauthorized
	}

	users := s.repos.Users(s.db)
	if actor != models.RoleSuperAdmin {
		target, err := users.GetUserByID(ctx, userID)
		if err != nil {
			return err
		}
		if target.Role == models.RoleSuperAdmin {
			return common.ErrorUnauthorized
		}
	}

	if err := users.UpdateRole(ctx, userID, role); err != nil {
		return err
	}
	s.log.Info(ctx, "role assigned", "user_id", userID, "role", role.String())
	return nil
}

// Deactivate soft-deletes userID and revokes its sessions.
func (s *UserService) Deactivate(ctx context.Context, userID string) error {
	n, err := s.updateAndRevoke(ctx, userID,
		func(ctx context.Context, users usersrepo.Repository) error {
			return users.Deactivate(ctx, userID)
		},
		nil,
	)
	if err != nil {
		return err
	}
	s.log.Info(ctx, "user deactivated", "user_id", userID, "revoked", n)
	return nil
}

// updateAndRevoke applies update to the user and revokes every session of
// userID as one unit. A store that shares the users database joins the same
// transaction. With any other store a failed revocation runs undo, when
// given, and reports the failure.
func (s *UserService) updateAndRevoke(
	ctx context.Context,
	userID string,
	update, undo func(context.Context, usersrepo.Repository) error,
) (int64, error) {
	if revoker, ok := s.store.(tokenstore.TxRevoker); ok {
		if beginner, ok := s.db.(dbx.TxBeginner); ok {
			var n int64
			err := dbx.WithTx(ctx, beginner, nil, func(ctx context.Context, tx dbx.DBTX) error {
				if err := update(ctx, s.repos.Users(tx)); err != nil {
					return err
				}
				var err error
				if n, err = revoker.DeleteByUserTx(ctx, tx, userID); err != nil {
					return fmt.Errorf("revoke sessions: %w", err)
				}
				return nil
			})
			return n, err
		}
	}

	users := s.repos.Users(s.db)
	if err := update(ctx, users); err != nil {
		return 0, err
	}
	n, err := s.LogoutAll(ctx, userID)
	if err == nil {
		return n, nil
	}
	if undo != nil {
		if uerr := undo(ctx, users); uerr != nil {
			s.log.Error(ctx, "undo after failed revocation", "user_id", userID, "error", uerr)
		}
	}
	return 0, err
}

// loginFingerprint lets rejected attempts on the same login be correlated in
// logs without recording what was typed, which is sometimes a password.
func loginFingerprint(login string) string {
	sum := sha256.Sum256([]byte(login))
	return hex.EncodeToString(sum[:6])
}

func validateUsername(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: username is required", common.ErrorValidation)
	case utf8.RuneCountInString(name) > maxUsernameLen:
		return fmt.Errorf("%w: username too long", common.ErrorValidation)
	case strings.ContainsAny(name, " \t\r\n"):
		return fmt.Errorf("%w: username contains whitespace", common.ErrorValidation)
	}
	return nil
}

func validatePassword(pw string) error {
	if utf8.RuneCountInString(pw) < minPasswordLen {
		return fmt.Errorf("%w: password too short", common.ErrorValidation)
	}
	if len(pw) > 72 {
		return fmt.Errorf("%w: %v", common.ErrorValidation, password.ErrTooLong)
	}
	return nil
}
