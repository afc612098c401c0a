package cli

import (
	"context"
	"fmt"
)

func (a *App) getStatus() string {
	if !a.isLoggedIn() {
		return ""
	}
	return fmt.Sprintf("(%s)", a.session.Email)
}

// Root runs the interactive session until the user exits or input ends.
func (a *App) Root(ctx context.Context) {
	fmt.Fprintln(a.out, "Welcome to SecureCloud vaultctl (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, a.reader)
}
