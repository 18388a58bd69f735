package node

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"hashring/internal/config"
	"hashring/internal/router"
	"hashring/internal/server"
)

const shutdownTimeout = 5 * time.Second

// Node is a ring daemon: a router served over gRPC, plus an optional
// metrics endpoint.
type Node struct {
	cfg        config.Config
	logger     log.Logger
	registry   *prometheus.Registry
	router     *router.Router
	grpcServer *grpc.Server

	mu         sync.Mutex
	httpServer *http.Server
}

// New creates a node whose ring is seeded with the configured members.
func New(cfg config.Config, logger log.Logger) *Node {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	n := &Node{
		cfg:      cfg,
		logger:   logger,
		registry: reg,
		router:   router.New(logger, reg, cfg.BuildRingNodes()...),
	}

	n.grpcServer = grpc.NewServer(grpc.ChainUnaryInterceptor(n.logRequests))
	server.RegisterRingServer(n.grpcServer, server.New(n.router, logger))
	// Enable gRPC reflection for grpcurl
	reflection.Register(n.grpcServer)

	return n
}

// Router returns the node's router.
func (n *Node) Router() *router.Router {
	return n.router
}

// Start listens on the configured address and serves until Stop is called.
func (n *Node) Start() error {
	lis, err := net.Listen("tcp", n.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", n.cfg.ListenAddr, err)
	}
	if n.cfg.MetricsAddr != "" {
		if err := n.startMetrics(); err != nil {
			lis.Close()
			return err
		}
	}
	return n.Serve(lis)
}

// Serve serves the ring service on lis until Stop is called.
func (n *Node) Serve(lis net.Listener) error {
	level.Info(n.logger).Log("msg", "starting node", "addr", lis.Addr().String(), "members", n.router.Len())

	if err := n.grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("failed to serve: %w", err)
	}
	return nil
}

// Stop gracefully stops the node.
func (n *Node) Stop() {
	level.Info(n.logger).Log("msg", "stopping node")

	n.mu.Lock()
	srv := n.httpServer
	n.mu.Unlock()
	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			level.Warn(n.logger).Log("msg", "metrics server shutdown failed", "err", err)
		}
	}

	n.grpcServer.GracefulStop()
}

// MetricsHandler returns the handler serving the node's metrics.
func (n *Node) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(n.registry, promhttp.HandlerOpts{Registry: n.registry})
}

func (n *Node) startMetrics() error {
	lis, err := net.Listen("tcp", n.cfg.MetricsAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", n.cfg.MetricsAddr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", n.MetricsHandler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	n.mu.Lock()
	n.httpServer = srv
	n.mu.Unlock()

	go func() {
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			level.Error(n.logger).Log("msg", "metrics server failed", "err", err)
		}
	}()
	level.Info(n.logger).Log("msg", "serving metrics", "addr", lis.Addr().String())
	return nil
}

// logRequests logs every unary call and its outcome at debug level.
func (n *Node) logRequests(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	logger := log.With(n.logger, "method", info.FullMethod, "duration", time.Since(start))
	if err != nil {
		level.Debug(logger).Log("msg", "request failed", "err", err)
	} else {
		level.Debug(logger).Log("msg", "request served")
	}
	return resp, err
}
