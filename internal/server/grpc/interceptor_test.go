package grpc

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/logging"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/auth"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
)

func newInterceptorServer(t *testing.T) (*GRPCServer, *auth.Manager) {
	t.Helper()
	m, err := auth.NewManager(auth.Config{
		SigningMethod: auth.MethodHS256,
		SecretKey:     []byte("secret"),
		AccessTTL:     time.Minute,
	})
	require.NoError(t, err)
	return NewGRPCServer("", logging.Nop{}, nil, m), m
}

func TestInterceptor(t *testing.T) {
	s, m := newInterceptorServer(t)
	s.policy = Policy{
		"/svc/Public": {Public: true},
		"/svc/Any":    {},
		"/svc/Admin":  {Roles: []models.Role{models.RoleAdmin}},
	}

	userToken, _, err := m.GenerateAccessToken("u-1", "alice", models.RoleUser)
	require.NoError(t, err)
	adminToken, _, err := m.GenerateAccessToken("u-2", "root", models.RoleAdmin)
	require.NoError(t, err)

	tests := []struct {
		name     string
		method   string
		md       metadata.MD
		wantCode codes.Code
		wantMsg  string
	}{
		{name: "public without token", method: "/svc/Public", wantCode: codes.OK},
		{name: "unknown method", method: "/svc/Nope", wantCode: codes.PermissionDenied},
		{name: "missing token", method: "/svc/Any", wantCode: codes.Unauthenticated, wantMsg: "missing token"},
		{name: "garbage token", method: "/svc/Any", md: metadata.Pairs("access_token", "abc"), wantCode: codes.Unauthenticated, wantMsg: "invalid token"},
		{name: "any role", method: "/svc/Any", md: metadata.Pairs("access_token", userToken), wantCode: codes.OK},
		{name: "wrong role", method: "/svc/Admin", md: metadata.Pairs("access_token", userToken), wantCode: codes.PermissionDenied},
		{name: "right role via bearer", method: "/svc/Admin", md: metadata.Pairs("authorization", "bearer "+adminToken), wantCode: codes.OK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			if tt.md != nil {
				ctx = metadata.NewIncomingContext(ctx, tt.md)
			}

			called := false
			h := func(ctx context.Context, req any) (any, error) {
				called = true
				return "ok", nil
			}

			resp, err := s.accessTokenInterceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: tt.method}, h)
			if tt.wantCode == codes.OK {
				require.NoError(t, err)
				assert.True(t, called)
				assert.Equal(t, "ok", resp)
				return
			}
			assert.False(t, called)
			requireCode(t, err, tt.wantCode, tt.wantMsg)
		})
	}
}

func TestInterceptor_PutsClaimsInContext(t *testing.T) {
	s, m := newInterceptorServer(t)
	token, _, err := m.GenerateAccessToken("u-1", "alice", models.RoleUser)
	require.NoError(t, err)

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("access_token", token))
	info := &grpc.UnaryServerInfo{FullMethod: "/tokenkeeper.v1.AuthService/WhoAmI"}

	_, err = s.accessTokenInterceptor(ctx, nil, info, func(ctx context.Context, _ any) (any, error) {
		c, ok := ClaimsFromContext(ctx)
		require.True(t, ok)
		assert.Equal(t, "u-1", c.UserID)
		assert.Equal(t, "alice", c.Username)
		return nil, nil
	})
	require.NoError(t, err)

	_, ok := ClaimsFromContext(context.Background())
	assert.False(t, ok)
}

func TestTokenFromMetadata(t *testing.T) {
	tests := []struct {
		name string
		md   metadata.MD
		want string
	}{
		{"none", nil, ""},
		{"access_token", metadata.Pairs("access_token", "t1"), "t1"},
		{"access_token wins", metadata.Pairs("access_token", "t1", "authorization", "Bearer t2"), "t1"},
		{"bearer", metadata.Pairs("authorization", "Bearer t2"), "t2"},
		{"other scheme", metadata.Pairs("authorization", "Basic abc"), ""},
		{"no scheme", metadata.Pairs("authorization", "t3"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			if tt.md != nil {
				ctx = metadata.NewIncomingContext(ctx, tt.md)
			}
			assert.Equal(t, tt.want, tokenFromMetadata(ctx))
		})
	}
}

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()

	assert.True(t, p["/tokenkeeper.v1.AuthService/Refresh"].Public)
	assert.True(t, p["/grpc.health.v1.Health/Check"].Public)
	assert.False(t, p["/tokenkeeper.v1.AuthService/WhoAmI"].Public)

	deactivate := p["/tokenkeeper.v1.AuthService/DeactivateUser"]
	assert.True(t, deactivate.allows(models.RoleSuperAdmin))
	assert.False(t, deactivate.allows(models.RoleAdmin))

	assign := p["/tokenkeeper.v1.AuthService/AssignRole"]
	assert.True(t, assign.allows(models.RoleAdmin))
	assert.False(t, assign.allows(models.RoleUser))
}
