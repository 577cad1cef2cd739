// Package api exposes the filesystem syscall surface over HTTP/JSON.
//
// The adapter is the embedding boundary for the unsynchronized vfs core: all
// syscalls funnel through one mutex per Server, so concurrent HTTP requests
// observe each multi-step resolution atomically.
package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/marmos91/virtfs/internal/logger"
	"github.com/marmos91/virtfs/pkg/vfs"
)

// Server serves the syscall API over one filesystem instance.
type Server struct {
	fs      *vfs.Filesystem
	metrics *Metrics

	// mu is the single mutual-exclusion boundary required around the
	// filesystem instance.
	mu sync.Mutex

	httpServer      *http.Server
	shutdownTimeout time.Duration
}

// Config configures the Server.
type Config struct {
	// ListenAddr is the address to bind.
	ListenAddr string

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration

	// MetricsEnabled exposes Prometheus metrics on /metrics.
	MetricsEnabled bool

	// Registerer receives the adapter metrics; defaults to the global
	// prometheus registerer.
	Registerer prometheus.Registerer
}

// NewServer creates a Server over fs.
func NewServer(fs *vfs.Filesystem, cfg Config) *Server {
	s := &Server{
		fs:              fs,
		shutdownTimeout: cfg.ShutdownTimeout,
	}

	if cfg.MetricsEnabled {
		reg := cfg.Registerer
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		s.metrics = NewMetrics(reg)
	}

	s.httpServer = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s.Router(cfg.MetricsEnabled),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start serves until ctx is canceled, then shuts down gracefully within the
// configured timeout.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		logger.Info("syscall API listening", logger.KeyAddr, s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	logger.Info("shutting down syscall API")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// do serializes one syscall behind the instance mutex, records metrics, and
// either writes the success response via ok or maps the failure onto HTTP.
func (s *Server) do(w http.ResponseWriter, op string, call func() error, ok func()) {
	start := time.Now()

	s.mu.Lock()
	err := call()
	s.mu.Unlock()

	status := "ok"
	if err != nil {
		if code := vfs.CodeOf(err); code != 0 {
			status = code.String()
		} else {
			status = "error"
		}
	}

	if s.metrics != nil {
		s.metrics.SyscallsTotal.WithLabelValues(op, status).Inc()
		s.metrics.SyscallDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}

	if err != nil {
		logger.Debug("syscall failed",
			logger.KeyOp, op,
			logger.KeyStatus, status,
			logger.KeyError, err.Error(),
		)
		writeFsError(w, err)
		return
	}
	ok()
}

func (s *Server) descriptorOpened() {
	if s.metrics != nil {
		s.metrics.OpenDescriptors.Inc()
	}
}

func (s *Server) descriptorClosed() {
	if s.metrics != nil {
		s.metrics.OpenDescriptors.Dec()
	}
}
