package client

import "context"

// Identity is what the server knows about the caller's access token.
type Identity struct {
	UserID   string
	Username string
	Role     string
}

type Client interface {
	Close() error
	Ping(ctx context.Context) error
	Register(ctx context.Context, username, email, password string) (string, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	Login(ctx context.Context, login, password string) error
	Refresh(ctx context.Context) error
	WhoAmI(ctx context.Context) (*Identity, error)
	Logout(ctx context.Context) error
	LogoutAll(ctx context.Context) (int64, error)
	ChangePassword(ctx context.Context, oldPassword, newPassword string) error
	AssignRole(ctx context.Context, userID, role string) error
	DeactivateUser(ctx context.Context, userID string) error
	LoggedIn() bool
}
