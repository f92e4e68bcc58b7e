package admin

import (
	"context"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/protobuf/proto"

	"chatr/internal/config"
)

// ServiceName is the health entry tracking the chat backend.
const ServiceName = "chatr"

const defaultProbeInterval = 10 * time.Second

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Server exposes grpc health and reflection on the admin port.
type Server struct {
	grpc          *grpc.Server
	health        *health.Server
	db            Pinger
	addr          string
	probeInterval time.Duration
	logger        *zap.Logger

	stopOnce sync.Once
	stop     chan struct{}
}

func NewServer(cfg *config.Config, db Pinger, logger *zap.Logger) *Server {
	s := &Server{
		health:        health.NewServer(),
		db:            db,
		addr:          net.JoinHostPort(cfg.Server.Host, cfg.Server.AdminPort),
		probeInterval: defaultProbeInterval,
		logger:        logger,
		stop:          make(chan struct{}),
	}

	s.grpc = grpc.NewServer(
		grpc.UnaryInterceptor(s.loggingUnaryInterceptor),
		grpc.StreamInterceptor(s.loggingStreamInterceptor),
	)
	healthpb.RegisterHealthServer(s.grpc, s.health)
	reflection.Register(s.grpc)

	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	return s
}

// Start listens on the admin port and blocks until Stop.
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(lis)
}

func (s *Server) Serve(lis net.Listener) error {
	go s.probe()
	s.logger.Info("admin grpc listening", zap.String("addr", lis.Addr().String()))
	return s.grpc.Serve(lis)
}

func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
		s.health.Shutdown()
		s.grpc.GracefulStop()
	})
}

func (s *Server) probe() {
	ticker := time.NewTicker(s.probeInterval)
	defer ticker.Stop()

	s.checkDatabase()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.checkDatabase()
		}
	}
}

func (s *Server) checkDatabase() {
	if s.db == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.probeInterval/2)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := s.db.PingContext(ctx); err != nil {
		s.logger.Warn("database ping failed", zap.Error(err))
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus(ServiceName, status)
}

func (s *Server) loggingUnaryInterceptor(ctx context.Context, req interface{},
	info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {

	start := time.Now()
	resp, err := handler(ctx, req)

	fields := []zap.Field{zap.String("method", info.FullMethod), zap.Duration("duration", time.Since(start))}
	if m, ok := req.(proto.Message); ok {
		fields = append(fields, zap.Int("request_bytes", proto.Size(m)))
	}
	if err != nil {
		s.logger.Warn("grpc call failed", append(fields, zap.Error(err))...)
	} else {
		s.logger.Debug("grpc call completed", fields...)
	}
	return resp, err
}

func (s *Server) loggingStreamInterceptor(srv interface{}, stream grpc.ServerStream,
	info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {

	s.logger.Debug("grpc stream started", zap.String("method", info.FullMethod))
	err := handler(srv, stream)
	if err != nil {
		s.logger.Warn("grpc stream ended with error", zap.String("method", info.FullMethod), zap.Error(err))
	} else {
		s.logger.Debug("grpc stream completed", zap.String("method", info.FullMethod))
	}
	return err
}
