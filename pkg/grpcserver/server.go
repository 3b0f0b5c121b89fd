// Package grpcserver runs the internal gRPC endpoint of the song service.
// It serves the standard grpc.health.v1.Health service, whose status tracks
// the record store.
package grpcserver

import (
	"context"
	"fmt"
	"net"
	"runtime/debug"
	"time"

	"github.com/yohanna4/song-manager/pkg/logger"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
)

// Config holds gRPC server configuration.
type Config struct {
	// Port to listen on; 0 picks a free port.
	Port        int
	ServiceName string

	MaxConcurrentStreams uint32
	ConnectionTimeout    time.Duration
	MaxConnectionIdle    time.Duration
	MaxConnectionAge     time.Duration
	KeepaliveMinTime     time.Duration

	// EnableReflection is for debugging; keep it off in production.
	EnableReflection bool
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig(serviceName string, port int) *Config {
	return &Config{
		Port:                 port,
		ServiceName:          serviceName,
		MaxConcurrentStreams: 1000,
		ConnectionTimeout:    120 * time.Second,
		MaxConnectionIdle:    300 * time.Second,
		MaxConnectionAge:     600 * time.Second,
		KeepaliveMinTime:     60 * time.Second,
	}
}

// Server wraps a gRPC server with the health service.
type Server struct {
	*grpc.Server
	cfg      *Config
	health   *health.Server
	listener net.Listener
	log      logger.Logger
}

// New creates the server and binds its listener.
func New(cfg *Config, log logger.Logger) (*Server, error) {
	opts := []grpc.ServerOption{
		grpc.MaxConcurrentStreams(cfg.MaxConcurrentStreams),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             cfg.KeepaliveMinTime,
			PermitWithoutStream: true,
		}),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			MaxConnectionIdle: cfg.MaxConnectionIdle,
			MaxConnectionAge:  cfg.MaxConnectionAge,
			Time:              30 * time.Second,
			Timeout:           10 * time.Second,
		}),
		grpc.ConnectionTimeout(cfg.ConnectionTimeout),
		grpc.ChainUnaryInterceptor(recoveryInterceptor(log), loggingInterceptor(log)),
	}

	grpcServer := grpc.NewServer(opts...)

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(cfg.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	if cfg.EnableReflection {
		reflection.Register(grpcServer)
	}

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return nil, fmt.Errorf("failed to listen on port %d: %w", cfg.Port, err)
	}

	return &Server{
		Server:   grpcServer,
		cfg:      cfg,
		health:   healthServer,
		listener: listener,
		log:      log,
	}, nil
}

// Addr is the bound listener address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Serve blocks until the server stops.
func (s *Server) Serve() error {
	s.log.Info("gRPC server listening", logger.String("addr", s.Addr().String()))
	if err := s.Server.Serve(s.listener); err != nil && err != grpc.ErrServerStopped {
		return fmt.Errorf("gRPC server error: %w", err)
	}
	return nil
}

// SetServingStatus flips the health status of the service.
func (s *Server) SetServingStatus(serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(s.cfg.ServiceName, st)
	s.health.SetServingStatus("", st)
}

// WatchHealth runs check every interval until ctx is done and reports the
// result as the serving status.
func (s *Server) WatchHealth(ctx context.Context, interval time.Duration, check func(context.Context) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	serving := true
	for {
		checkCtx, cancel := context.WithTimeout(ctx, interval)
		err := check(checkCtx)
		cancel()

		if ok := err == nil; ok != serving {
			serving = ok
			s.SetServingStatus(ok)
			if ok {
				s.log.Info("record store recovered")
			} else {
				s.log.Warn("record store unhealthy", logger.Error(err))
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Shutdown marks the service as not serving and stops gracefully, forcing
// a stop when ctx expires first.
func (s *Server) Shutdown(ctx context.Context) error {
	s.health.Shutdown()

	stopped := make(chan struct{})
	go func() {
		s.Server.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
		return nil
	case <-ctx.Done():
		s.Server.Stop()
		return fmt.Errorf("graceful shutdown timeout")
	}
}

func recoveryInterceptor(log logger.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
		defer func() {
			if p := recover(); p != nil {
				log.Error("gRPC panic recovered",
					logger.String("method", info.FullMethod),
					logger.String("panic", fmt.Sprintf("%v", p)),
					logger.String("stack", string(debug.Stack())),
				)
				err = status.Errorf(codes.Internal, "panic recovered: %v", p)
			}
		}()
		return handler(ctx, req)
	}
}

func loggingInterceptor(log logger.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		fields := []logger.Field{
			logger.String("method", info.FullMethod),
			logger.Duration("duration", time.Since(start)),
			logger.String("code", status.Code(err).String()),
		}
		if err != nil {
			log.Warn("gRPC call failed", append(fields, logger.Error(err))...)
		} else {
			log.Debug("gRPC call", fields...)
		}
		return resp, err
	}
}
