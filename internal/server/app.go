// Package server initializes and runs the SecureCloud application.
// It opens the metadata database and blob store, wires the services, and
// runs the HTTP API and the gRPC health endpoint until a shutdown signal.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/securecloud/internal/cryptox"
	"github.com/dmitrijs2005/securecloud/internal/logging"
	"github.com/dmitrijs2005/securecloud/internal/server/auth"
	"github.com/dmitrijs2005/securecloud/internal/server/blobstore"
	"github.com/dmitrijs2005/securecloud/internal/server/config"
	"github.com/dmitrijs2005/securecloud/internal/server/httpapi"
	"github.com/dmitrijs2005/securecloud/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/securecloud/internal/server/services"

	gs "github.com/dmitrijs2005/securecloud/internal/server/grpc"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	userService *services.UserService
	fileService *services.FileService
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {

	if c.SecretKey == config.DefaultSecretKey {
		logger.Warn(ctx, "token secret is the development default; set -s or secret_key")
	}

	db, rm, err := repomanager.Open(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	blobs, err := newBlobStore(ctx, c)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("blob store init error: %w", err)
	}

	hasher := cryptox.PasswordHasher{
		Time:      c.Argon2Time,
		MemoryKiB: c.Argon2MemoryKiB,
		Threads:   c.Argon2Threads,
		KeyLen:    cryptox.KeySize,
	}
	tokens := auth.NewTokenIssuer([]byte(c.SecretKey), c.TokenValidity)

	us := services.NewUserService(db, rm, hasher, tokens, logger)
	fs := services.NewFileService(db, rm, blobs, c.MaxUploadBytes, logger)

	return &App{config: c, logger: logger, db: db, userService: us, fileService: fs}, nil
}

func newBlobStore(ctx context.Context, c *config.Config) (blobstore.Store, error) {
	switch c.BlobBackend {
	case config.BlobBackendFS, "":
		return blobstore.NewFSStore(c.BlobDir)
	case config.BlobBackendS3:
		return blobstore.NewS3Store(ctx, blobstore.S3Options{
			AccessKey:  c.S3RootUser,
			SecretKey:  c.S3RootPassword,
			Bucket:     c.S3Bucket,
			Region:     c.S3Region,
			Endpoint:   c.S3BaseEndpoint,
			StagingDir: filepath.Join(os.TempDir(), "securecloud-staging"),
		})
	default:
		return nil, fmt.Errorf("unknown blob backend %q", c.BlobBackend)
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := httpapi.NewServer(httpapi.Options{
		Addr:           app.config.HTTPAddr,
		AllowedOrigins: app.config.AllowedOrigins,
		MaxUploadBytes: app.config.MaxUploadBytes,
	}, app.userService, app.fileService, app.logger)

	app.logger.Info(ctx, "Starting HTTP server", "address", app.config.HTTPAddr)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startHealthServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewHealthServer(app.config.HealthAddr, app.logger, app.db, app.config.HealthProbeInterval)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is cancelled, a shutdown signal arrives or one of
// the servers fails, then closes the database.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	if app.config.HealthAddr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startHealthServer(ctx, cancelFunc)
		}()
	}

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "closing database", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
