// Package grpc runs the operational gRPC endpoint: the standard
// grpc.health.v1 service, with status driven by a periodic database ping.
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/securecloud/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service name reported alongside the overall
// ("") status.
const ServiceName = "securecloud.Vault"

// DefaultProbeInterval is used when the configured interval is not positive.
const DefaultProbeInterval = 10 * time.Second

const probeTimeout = 2 * time.Second

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthServer struct {
	address  string
	db       Pinger
	interval time.Duration
	logger   logging.Logger
	health   *health.Server
}

func NewHealthServer(a string, l logging.Logger, db Pinger, interval time.Duration) *HealthServer {
	if interval <= 0 {
		interval = DefaultProbeInterval
	}
	return &HealthServer{
		address:  a,
		db:       db,
		interval: interval,
		logger:   l.With("module", "grpc_server"),
		health:   health.NewServer(),
	}
}

func (s *HealthServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve serves the health service on ln until ctx is done.
func (s *HealthServer) Serve(ctx context.Context, ln net.Listener) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor))
	healthpb.RegisterHealthServer(srv, s.health)

	s.probe(ctx)

	serveCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		t := time.NewTicker(s.interval)
		defer t.Stop()
		for {
			select {
			case <-serveCtx.Done():
				s.logger.Info(ctx, "Stopping gRPC server...")
				// moves watchers to NOT_SERVING before the listener goes away
				s.health.Shutdown()
				srv.GracefulStop()
				return
			case <-t.C:
				s.probe(serveCtx)
			}
		}
	}()

	s.logger.Info(ctx, "Starting gRPC health server", "address", ln.Addr().String())

	// starts accepting incoming connections
	err := srv.Serve(ln)
	cancel()
	<-stopped

	return err
}

// probe pings the database and publishes the result.
func (s *HealthServer) probe(ctx context.Context) {
	st := healthpb.HealthCheckResponse_SERVING

	pctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if err := s.db.PingContext(pctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Warn(ctx, "database ping failed", "error", err)
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}

	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
}
