package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/securecloud/internal/client/client"
	"github.com/dmitrijs2005/securecloud/internal/client/config"
)

type App struct {
	config  *config.Config
	api     client.Client
	session *client.Session
	reader  *bufio.Reader
	out     io.Writer
	now     func() time.Time
}

func NewApp(c *config.Config) (*App, error) {
	apiClient := client.NewHTTPClient(c.ServerURL, nil)
	return newApp(c, apiClient, os.Stdin, os.Stdout), nil
}

func newApp(c *config.Config, api client.Client, in io.Reader, out io.Writer) *App {
	return &App{
		config: c,
		api:    api,
		reader: bufio.NewReader(in),
		out:    out,
		now:    time.Now,
	}
}

func (a *App) Run(ctx context.Context) {
	a.Root(ctx)
}

func (a *App) isLoggedIn() bool {
	return a.session.Active(a.now())
}

// withTimeout bounds non-streaming calls by the configured request timeout.
func (a *App) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.config.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.config.RequestTimeout)
}

// requireSession returns the active session or ErrNotLoggedIn. An expired
// session is dropped.
func (a *App) requireSession() (*client.Session, error) {
	if !a.isLoggedIn() {
		a.session = nil
		return nil, client.ErrNotLoggedIn
	}
	return a.session, nil
}

// checkAuth drops the session when the server rejected its token.
func (a *App) checkAuth(err error) error {
	if errors.Is(err, client.ErrUnauthorized) {
		a.session.Clear()
		a.session = nil
		return errors.New("session expired, please log in again")
	}
	return err
}
