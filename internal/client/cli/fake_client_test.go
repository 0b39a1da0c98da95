package cli

import (
	"bufio"
	"context"
	"io"
	"testing"

	"github.com/dmitrijs2005/tokenkeeper/internal/client/client"
)

type fakeClient struct {
	loggedIn bool
	pingErr  error

	existing map[string]bool

	regUser, regEmail, regPass string
	regErr                     error

	loginUser, loginPass string
	loginErr             error

	identity *client.Identity
	whoErr   error

	refreshErr error
	logoutErr  error
	revoked    int64

	oldPass, newPass string
	changeErr        error

	roleUser, role string
	deactivated    string
	adminErr       error

	closed bool
}

func (f *fakeClient) Close() error                  { f.closed = true; return nil }
func (f *fakeClient) Ping(context.Context) error    { return f.pingErr }
func (f *fakeClient) LoggedIn() bool                { return f.loggedIn }
func (f *fakeClient) Refresh(context.Context) error { return f.refreshErr }

func (f *fakeClient) Register(_ context.Context, username, email, password string) (string, error) {
	f.regUser, f.regEmail, f.regPass = username, email, password
	if f.regErr != nil {
		return "", f.regErr
	}
	return "id-" + username, nil
}

func (f *fakeClient) UsernameExists(_ context.Context, username string) (bool, error) {
	return f.existing[username], nil
}

func (f *fakeClient) Login(_ context.Context, login, password string) error {
	f.loginUser, f.loginPass = login, password
	if f.loginErr != nil {
		return f.loginErr
	}
	f.loggedIn = true
	return nil
}

func (f *fakeClient) WhoAmI(context.Context) (*client.Identity, error) {
	return f.identity, f.whoErr
}

func (f *fakeClient) Logout(context.Context) error {
	f.loggedIn = false
	return f.logoutErr
}

func (f *fakeClient) LogoutAll(context.Context) (int64, error) {
	f.loggedIn = false
	return f.revoked, f.logoutErr
}

func (f *fakeClient) ChangePassword(_ context.Context, oldPassword, newPassword string) error {
	f.oldPass, f.newPass = oldPassword, newPassword
	if f.changeErr != nil {
		return f.changeErr
	}
	f.loggedIn = false
	return nil
}

func (f *fakeClient) AssignRole(_ context.Context, userID, role string) error {
	f.roleUser, f.role = userID, role
	return f.adminErr
}

func (f *fakeClient) DeactivateUser(_ context.Context, userID string) error {
	f.deactivated = userID
	return f.adminErr
}

// stubInputs feeds texts to successive readLine calls and secrets to
// successive readSecret calls.
func stubInputs(t *testing.T, texts []string, secrets ...string) {
	t.Helper()
	origLine, origSecret := readLine, readSecret
	readLine = func(_ *bufio.Reader, _ io.Writer, _ string) (string, error) {
		if len(texts) == 0 {
			return "", io.EOF
		}
		s := texts[0]
		texts = texts[1:]
		return s, nil
	}
	readSecret = func(_ io.Writer, _ string) ([]byte, error) {
		if len(secrets) == 0 {
			return nil, io.EOF
		}
		p := secrets[0]
		secrets = secrets[1:]
		return []byte(p), nil
	}
	t.Cleanup(func() {
		readLine = origLine
		readSecret = origSecret
	})
}
