package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/tokenkeeper/internal/client/client"
	"github.com/dmitrijs2005/tokenkeeper/internal/common"
)

// Input seams, replaced in tests.
var (
	readLine   = ReadLine
	readSecret = ReadSecret
)

func (a *App) askRequired(label string) (string, error) {
	s, err := readLine(a.reader, a.out, label)
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", fmt.Errorf("%s: %w", strings.ToLower(label), errEmptyInput)
	}
	return s, nil
}

// Register prompts for a username, an optional email and a password, and
// creates the account.
func (a *App) Register(ctx context.Context) error {
	userName, err := a.askRequired("Username")
	if err != nil {
		return err
	}

	exists, err := a.api.UsernameExists(ctx, userName)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("username %q is taken", userName)
	}

	email, err := readLine(a.reader, a.out, "Email (optional)")
	if err != nil {
		return err
	}

	password, err := confirmSecret(readSecret, a.out, "Password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	id, err := a.api.Register(ctx, userName, email, string(password))
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Registered, user id %s\n", id)
	return nil
}

// Login prompts for a username (or user id) and password and starts a
// session.
func (a *App) Login(ctx context.Context) error {
	userName, err := a.askRequired("Username or user id")
	if err != nil {
		return err
	}

	password, err := readSecret(a.out, "Password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.api.Login(ctx, userName, string(password)); err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			return errors.New("invalid username or password")
		}
		return err
	}

	a.userName = userName
	fmt.Fprintln(a.out, "Login successful")
	return nil
}

func (a *App) WhoAmI(ctx context.Context) error {
	id, err := a.api.WhoAmI(ctx)
	if err != nil {
		return a.sessionError(err)
	}
	fmt.Fprintf(a.out, "%s (%s) role=%s\n", id.Username, id.UserID, id.Role)
	return nil
}

func (a *App) Refresh(ctx context.Context) error {
	if err := a.api.Refresh(ctx); err != nil {
		return a.sessionError(err)
	}
	fmt.Fprintln(a.out, "Tokens rotated")
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	defer a.forget()
	return a.api.Logout(ctx)
}

func (a *App) LogoutAll(ctx context.Context) error {
	defer a.forget()
	n, err := a.api.LogoutAll(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Revoked %d session(s)\n", n)
	return nil
}

// ChangePassword ends every session, so the user has to log in again.
func (a *App) ChangePassword(ctx context.Context) error {
	oldPassword, err := readSecret(a.out, "Current password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(oldPassword)

	newPassword, err := confirmSecret(readSecret, a.out, "New password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(newPassword)

	if err := a.api.ChangePassword(ctx, string(oldPassword), string(newPassword)); err != nil {
		return a.sessionError(err)
	}

	a.forget()
	fmt.Fprintln(a.out, "Password changed, please log in again")
	return nil
}

func (a *App) AssignRole(ctx context.Context, userID, role string) error {
	if err := a.api.AssignRole(ctx, userID, role); err != nil {
		return a.sessionError(err)
	}
	fmt.Fprintf(a.out, "User %s is now %s\n", userID, role)
	return nil
}

func (a *App) Deactivate(ctx context.Context, userID string) error {
	if err := a.api.DeactivateUser(ctx, userID); err != nil {
		return a.sessionError(err)
	}
	fmt.Fprintf(a.out, "User %s deactivated\n", userID)
	return nil
}

func (a *App) forget() {
	a.userName = ""
}

// sessionError drops the prompt's username once the session is gone.
func (a *App) sessionError(err error) error {
	if !a.api.LoggedIn() {
		a.forget()
	}
	if errors.Is(err, client.ErrUnauthorized) {
		return errors.New("session expired, please log in again")
	}
	return err
}
