package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/api/authv1"
	"github.com/dmitrijs2005/tokenkeeper/internal/common"
	"golang.org/x/sync/singleflight"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// Methods that never carry an access token.
var publicMethods = map[string]bool{
	authv1.MethodPing:          true,
	authv1.MethodRegister:      true,
	authv1.MethodCheckUsername: true,
	authv1.MethodLogin:         true,
	authv1.MethodRefresh:       true,
}

type GRPCClient struct {
	endpointURL string
	timeout     time.Duration
	conn        *grpc.ClientConn
	client      authv1.AuthServiceClient

	mu           sync.RWMutex
	accessToken  string
	refreshToken string

	refreshGroup singleflight.Group
}

func NewTokenKeeperClient(endpointURL string, timeout time.Duration, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL, timeout: timeout}
	if err := c.InitGRPCClient(opts...); err != nil {
		return nil, err
	}
	return c, nil
}

// InitGRPCClient dials the endpoint. Extra options are appended after the
// defaults, so tests can swap the dialer.
func (s *GRPCClient) InitGRPCClient(opts ...grpc.DialOption) error {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(s.accessTokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(s.endpointURL, opts...)
	if err != nil {
		return err
	}
	s.conn = conn
	s.client = authv1.NewAuthServiceClient(conn)
	return nil
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) tokens() (string, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken, s.refreshToken
}

func (s *GRPCClient) setTokens(access, refresh string) {
	s.mu.Lock()
	s.accessToken, s.refreshToken = access, refresh
	s.mu.Unlock()
}

func (s *GRPCClient) LoggedIn() bool {
	_, refresh := s.tokens()
	return refresh != ""
}

func isTokenExpired(err error) bool {
	st, ok := status.FromError(err)
	return ok && st.Code() == codes.Unauthenticated && st.Message() == common.ErrTokenExpired.Error()
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if publicMethods[method] {
		return invoker(ctx, method, req, reply, cc, opts...)
	}

	access, _ := s.tokens()
	err := invoker(withAccessToken(ctx, access), method, req, reply, cc, opts...)
	if !isTokenExpired(err) {
		return err
	}

	if err := s.rotate(ctx, access); err != nil {
		return err
	}

	access, _ = s.tokens()
	return invoker(withAccessToken(ctx, access), method, req, reply, cc, opts...)
}

// rotate exchanges the current pair for a new one. stale is the access token
// the caller saw rejected; if another goroutine already replaced it there is
// nothing to do.
func (s *GRPCClient) rotate(ctx context.Context, stale string) error {
	_, err, _ := s.refreshGroup.Do("refresh", func() (any, error) {
		access, refresh := s.tokens()
		if access != stale {
			return nil, nil
		}
		if refresh == "" {
			return nil, ErrNotLoggedIn
		}

		resp, err := s.client.Refresh(ctx, &authv1.RefreshRequest{AccessToken: access, RefreshToken: refresh})
		if err != nil {
			if st, ok := status.FromError(err); ok && st.Code() == codes.Unauthenticated {
				// the pair is dead, a new login is needed
				s.setTokens("", "")
			}
			return nil, s.mapError(err)
		}

		s.setTokens(resp.AccessToken, resp.RefreshToken)
		return nil, nil
	})
	return err
}

func (s *GRPCClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.client.Ping(ctx, &authv1.PingRequest{})
	if err != nil {
		return s.mapError(err)
	}
	if resp.Status != "OK" {
		return ErrUnavailable
	}
	return nil
}

func (s *GRPCClient) Register(ctx context.Context, username, email, password string) (string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.client.Register(ctx, &authv1.RegisterRequest{Username: username, Email: email, Password: password})
	if err != nil {
		return "", s.mapError(err)
	}
	return resp.UserID, nil
}

func (s *GRPCClient) UsernameExists(ctx context.Context, username string) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.client.CheckUsername(ctx, &authv1.CheckUsernameRequest{Username: username})
	if err != nil {
		return false, s.mapError(err)
	}
	return resp.Exists, nil
}

func (s *GRPCClient) Login(ctx context.Context, login, password string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.client.Login(ctx, &authv1.LoginRequest{Login: login, Password: password})
	if err != nil {
		return s.mapError(err)
	}

	s.setTokens(resp.AccessToken, resp.RefreshToken)
	return nil
}

// Refresh rotates the token pair explicitly.
func (s *GRPCClient) Refresh(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	access, _ := s.tokens()
	return s.rotate(ctx, access)
}

func (s *GRPCClient) WhoAmI(ctx context.Context) (*Identity, error) {
	if !s.LoggedIn() {
		return nil, ErrNotLoggedIn
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.client.WhoAmI(ctx, &authv1.WhoAmIRequest{})
	if err != nil {
		return nil, s.mapError(err)
	}
	return &Identity{UserID: resp.UserID, Username: resp.Username, Role: resp.Role}, nil
}

// Logout revokes the current refresh token and forgets the pair. The local
// pair is dropped even if the server call fails.
func (s *GRPCClient) Logout(ctx context.Context) error {
	if !s.LoggedIn() {
		return ErrNotLoggedIn
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, refresh := s.tokens()
	_, err := s.client.Logout(ctx, &authv1.LogoutRequest{RefreshToken: refresh})
	s.setTokens("", "")
	if err != nil {
		return s.mapError(err)
	}
	return nil
}

// LogoutAll revokes every session of the current user.
func (s *GRPCClient) LogoutAll(ctx context.Context) (int64, error) {
	if !s.LoggedIn() {
		return 0, ErrNotLoggedIn
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.client.Logout(ctx, &authv1.LogoutRequest{All: true})
	s.setTokens("", "")
	if err != nil {
		return 0, s.mapError(err)
	}
	return resp.Revoked, nil
}

// ChangePassword also ends the local session; the server revokes every
// refresh token of the user.
func (s *GRPCClient) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	if !s.LoggedIn() {
		return ErrNotLoggedIn
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.client.ChangePassword(ctx, &authv1.ChangePasswordRequest{OldPassword: oldPassword, NewPassword: newPassword})
	if err != nil {
		return s.mapError(err)
	}
	s.setTokens("", "")
	return nil
}

func (s *GRPCClient) AssignRole(ctx context.Context, userID, role string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.client.AssignRole(ctx, &authv1.AssignRoleRequest{UserID: userID, Role: role})
	return s.mapError(err)
}

func (s *GRPCClient) DeactivateUser(ctx context.Context, userID string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.client.DeactivateUser(ctx, &authv1.DeactivateUserRequest{UserID: userID})
	return s.mapError(err)
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		// already a client error, or a local failure such as a dead context
		return err
	}
	switch st.Code() {
	case codes.Unauthenticated:
		return ErrUnauthorized
	case codes.PermissionDenied:
		return ErrPermissionDenied
	case codes.AlreadyExists:
		return ErrAlreadyExists
	case codes.NotFound:
		return ErrNotFound
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", ErrInvalidArgument, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
