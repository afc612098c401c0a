package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/securecloud/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts for an email and password and creates the account.
// The password byte slice is wiped before returning.
func (a *App) Register(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	if _, err := a.api.Register(ctx, email, password); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "User registered successfully")
	return nil
}

// Login prompts for credentials and replaces the current session on
// success. A failed login leaves the previous session untouched.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	s, err := a.api.Login(ctx, email, password)
	if err != nil {
		return err
	}

	a.session = s
	fmt.Fprintf(a.out, "Login successful, session valid until %s\n", s.ExpiresAt.Local().Format("15:04:05"))
	return nil
}

// Logout forgets the session. Tokens are stateless, so nothing is sent to
// the server.
func (a *App) Logout(ctx context.Context) error {
	if a.session == nil {
		return nil
	}
	a.session.Clear()
	a.session = nil
	fmt.Fprintln(a.out, "Logged out")
	return nil
}
