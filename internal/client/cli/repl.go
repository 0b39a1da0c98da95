package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Refresh(ctx context.Context) error
	Logout(ctx context.Context) error
	LogoutAll(ctx context.Context) error
	ChangePassword(ctx context.Context) error
	AssignRole(ctx context.Context, userID, role string) error
	Deactivate(ctx context.Context, userID string) error
}

// runREPL reads commands line by line from reader and dispatches them to a.
// It stops on EOF or on "exit"/"quit".
//
//	Not logged in:
//	  - help, register, login, exit | quit
//
//	Logged in:
//	  - whoami                 show the identity in the access token
//	  - refresh                rotate the token pair now
//	  - passwd                 change password (ends every session)
//	  - logout | logoutall     end this session | every session
//	  - role <user_id> <role>  assign a role (admins only)
//	  - deactivate <user_id>   deactivate a user (admins only)
//
// Handler errors are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("tk %s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var cmdErr error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: whoami, refresh, passwd, logout, logoutall, role, deactivate, exit")
			} else {
				printlnFn("Available commands: register, login, exit")
			}

		case "register":
			cmdErr = a.Register(ctx)

		case "login":
			cmdErr = a.Login(ctx)

		case "whoami":
			cmdErr = a.WhoAmI(ctx)

		case "refresh":
			cmdErr = a.Refresh(ctx)

		case "passwd":
			cmdErr = a.ChangePassword(ctx)

		case "logout":
			cmdErr = a.Logout(ctx)

		case "logoutall":
			cmdErr = a.LogoutAll(ctx)

		case "role":
			if len(args) != 2 {
				printlnFn("Usage: role <user_id> <role>")
				continue
			}
			cmdErr = a.AssignRole(ctx, args[0], args[1])

		case "deactivate":
			if len(args) != 1 {
				printlnFn("Usage: deactivate <user_id>")
				continue
			}
			cmdErr = a.Deactivate(ctx, args[0])

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if cmdErr != nil {
			printlnFn("Error:", cmdErr.Error())
		}
	}
}
