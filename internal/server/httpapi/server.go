// Package httpapi is the public HTTP surface of SecureCloud: JSON auth
// endpoints and the bearer-protected file endpoints.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/securecloud/internal/cryptox"
	"github.com/dmitrijs2005/securecloud/internal/logging"
	"github.com/dmitrijs2005/securecloud/internal/server/auth"
	"github.com/dmitrijs2005/securecloud/internal/server/models"
	"github.com/dmitrijs2005/securecloud/internal/server/services"
)

// AuthService is the part of services.UserService the transport needs.
type AuthService interface {
	Register(ctx context.Context, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*auth.Token, error)
	VerifyToken(token string) (string, error)
}

// FileVault is the part of services.FileService the transport needs.
type FileVault interface {
	Upload(ctx context.Context, req services.UploadRequest) (*models.FileRecord, error)
	Download(ctx context.Context, requesterID, fileID string, key cryptox.Key) (*services.Download, error)
	List(ctx context.Context, ownerID string) ([]*models.FileRecord, error)
	Delete(ctx context.Context, ownerID, fileID string) error
}

type Options struct {
	Addr           string
	AllowedOrigins []string
	MaxUploadBytes int64
}

type Server struct {
	opts   Options
	users  AuthService
	files  FileVault
	log    logging.Logger
	router http.Handler
}

func NewServer(opts Options, users AuthService, files FileVault, l logging.Logger) *Server {
	s := &Server{
		opts:  opts,
		users: users,
		files: files,
		log:   l.With("module", "http_server"),
	}
	s.router = s.NewRouter()
	return s
}

// Handler returns the configured router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	serveCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-serveCtx.Done()
		s.log.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Warn(ctx, "HTTP shutdown incomplete", "error", err)
		}
	}()

	s.log.Info(ctx, "Starting HTTP server", "address", ln.Addr().String())

	err := srv.Serve(ln)
	cancel()
	<-stopped
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
