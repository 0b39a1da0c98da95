package grpc

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/tokenkeeper/internal/api/authv1"
	"github.com/dmitrijs2005/tokenkeeper/internal/common"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/models"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	errUnauthenticated = status.Error(codes.Unauthenticated, "unauthenticated")
	errInternal        = status.Error(codes.Internal, "internal error")
)

// handler implements authv1.AuthServiceServer on top of GRPCServer.
type handler struct {
	s *GRPCServer
}

func (h *handler) internal(ctx context.Context, op string, err error) error {
	h.s.logger.Error(ctx, "request failed", "op", op, "error", err)
	return errInternal
}

func toTokenPair(p *models.TokenPair) *authv1.TokenPair {
	return &authv1.TokenPair{
		AccessToken:      p.AccessToken,
		RefreshToken:     p.RefreshToken,
		AccessExpiresAt:  p.AccessExpiresAt,
		RefreshExpiresAt: p.RefreshExpiresAt,
	}
}

func mustClaims(ctx context.Context) (string, models.Role, error) {
	c, ok := ClaimsFromContext(ctx)
	if !ok {
		return "", "", errUnauthenticated
	}
	return c.UserID, models.Role(c.Role), nil
}

func (h *handler) Ping(context.Context, *authv1.PingRequest) (*authv1.PingResponse, error) {
	return &authv1.PingResponse{Status: "OK"}, nil
}

func (h *handler) Register(ctx context.Context, req *authv1.RegisterRequest) (*authv1.RegisterResponse, error) {
	h.s.logger.Info(ctx, "Registration request")

	user, err := h.s.users.Register(ctx, req.Username, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorAlreadyExists):
			return nil, status.Error(codes.AlreadyExists, "user already exists")
		case errors.Is(err, common.ErrorValidation):
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		return nil, h.internal(ctx, "register", err)
	}

	h.s.logger.Info(ctx, "Registered", "username", user.UserName)
	return &authv1.RegisterResponse{UserID: user.ID}, nil
}

func (h *handler) CheckUsername(ctx context.Context, req *authv1.CheckUsernameRequest) (*authv1.CheckUsernameResponse, error) {
	name := strings.TrimSpace(req.Username)
	if name == "" {
		return nil, status.Error(codes.InvalidArgument, "username is required")
	}
	exists, err := h.s.users.Verifier().UsernameExists(ctx, name)
	if err != nil {
		return nil, h.internal(ctx, "check_username", err)
	}
	return &authv1.CheckUsernameResponse{Exists: exists}, nil
}

func (h *handler) Login(ctx context.Context, req *authv1.LoginRequest) (*authv1.TokenPair, error) {
	pair, err := h.s.users.Login(ctx, req.Login, req.Password)
	if err != nil {
		if errors.Is(err, common.ErrInvalidCredentials) {
			return nil, errUnauthenticated
		}
		return nil, h.internal(ctx, "login", err)
	}
	return toTokenPair(pair), nil
}

// Refresh never tells the caller why a rotation was rejected.
func (h *handler) Refresh(ctx context.Context, req *authv1.RefreshRequest) (*authv1.TokenPair, error) {
	pair, err := h.s.users.Refresh(ctx, req.AccessToken, req.RefreshToken)
	if err != nil {
		if common.IsRotationError(err) {
			return nil, errUnauthenticated
		}
		return nil, h.internal(ctx, "refresh", err)
	}
	return toTokenPair(pair), nil
}

func (h *handler) Logout(ctx context.Context, req *authv1.LogoutRequest) (*authv1.LogoutResponse, error) {
	userID, _, err := mustClaims(ctx)
	if err != nil {
		return nil, err
	}

	if req.All {
		n, err := h.s.users.LogoutAll(ctx, userID)
		if err != nil {
			return nil, h.internal(ctx, "logout_all", err)
		}
		return &authv1.LogoutResponse{Revoked: n}, nil
	}

	if req.RefreshToken == "" {
		return nil, status.Error(codes.InvalidArgument, "refresh_token is required")
	}
	if err := h.s.users.Logout(ctx, userID, req.RefreshToken); err != nil {
		return nil, h.internal(ctx, "logout", err)
	}
	return &authv1.LogoutResponse{Revoked: 1}, nil
}

func (h *handler) WhoAmI(ctx context.Context, _ *authv1.WhoAmIRequest) (*authv1.WhoAmIResponse, error) {
	c, ok := ClaimsFromContext(ctx)
	if !ok {
		return nil, errUnauthenticated
	}
	return &authv1.WhoAmIResponse{UserID: c.UserID, Username: c.Username, Role: c.Role}, nil
}

func (h *handler) ChangePassword(ctx context.Context, req *authv1.ChangePasswordRequest) (*authv1.Empty, error) {
	userID, _, err := mustClaims(ctx)
	if err != nil {
		return nil, err
	}

	err = h.s.users.ChangePassword(ctx, userID, req.OldPassword, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrInvalidCredentials):
			return nil, status.Error(codes.PermissionDenied, "wrong password")
		case errors.Is(err, common.ErrorValidation):
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		return nil, h.internal(ctx, "change_password", err)
	}
	return &authv1.Empty{}, nil
}

func (h *handler) AssignRole(ctx context.Context, req *authv1.AssignRoleRequest) (*authv1.Empty, error) {
	_, actor, err := mustClaims(ctx)
	if err != nil {
		return nil, err
	}
	if err := validUserID(req.UserID); err != nil {
		return nil, err
	}
	role, err := models.ParseRole(req.Role)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	if err := h.s.users.AssignRole(ctx, actor, req.UserID, role); err != nil {
		return nil, h.adminError(ctx, "assign_role", err)
	}
	return &authv1.Empty{}, nil
}

func (h *handler) DeactivateUser(ctx context.Context, req *authv1.DeactivateUserRequest) (*authv1.Empty, error) {
	if err := validUserID(req.UserID); err != nil {
		return nil, err
	}
	if err := h.s.users.Deactivate(ctx, req.UserID); err != nil {
		return nil, h.adminError(ctx, "deactivate_user", err)
	}
	return &authv1.Empty{}, nil
}

// validUserID rejects IDs the users table could never hold.
func validUserID(id string) error {
	if id == "" {
		return status.Error(codes.InvalidArgument, "user_id is required")
	}
	if _, err := uuid.Parse(id); err != nil {
		return status.Error(codes.InvalidArgument, "user_id is not a valid UUID")
	}
	return nil
}

func (h *handler) adminError(ctx context.Context, op string, err error) error {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, "user not found")
	case errors.Is(err, common.ErrorUnauthorized):
		return status.Error(codes.PermissionDenied, "permission denied")
	case errors.Is(err, common.ErrorValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	}
	return h.internal(ctx, op, err)
}
