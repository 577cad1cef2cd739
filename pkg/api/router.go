package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/marmos91/virtfs/internal/logger"
)

// Router builds the HTTP route tree for the syscall API.
func (s *Server) Router(metricsEnabled bool) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", s.Health)

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Byte-stream operations.
		r.Post("/open", s.Open)
		r.Post("/read", s.Read)
		r.Post("/write", s.Write)
		r.Post("/seek", s.Seek)
		r.Post("/close", s.Close)

		// Metadata operations.
		r.Get("/stat", s.Stat)
		r.Get("/lstat", s.Lstat)
		r.Get("/fstat", s.Fstat)
		r.Post("/chmod", s.Chmod)
		r.Post("/lchmod", s.Lchmod)
		r.Post("/fchmod", s.Fchmod)
		r.Post("/chown", s.Chown)
		r.Post("/lchown", s.Lchown)
		r.Post("/fchown", s.Fchown)
		r.Post("/umask", s.Umask)

		// Namespace operations.
		r.Post("/mkdir", s.Mkdir)
		r.Post("/link", s.Link)
		r.Post("/symlink", s.Symlink)
		r.Get("/readlink", s.Readlink)
		r.Post("/unlink", s.Unlink)
		r.Post("/rmdir", s.Rmdir)
		r.Post("/chdir", s.Chdir)
		r.Post("/fchdir", s.Fchdir)
		r.Get("/cwd", s.Cwd)
		r.Get("/readdir", s.ReadDir)
	})

	return r
}

// requestLogger logs each request at debug level with method, route and
// duration.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		logger.Debug("http request",
			logger.KeyMethod, r.Method,
			logger.KeyRoute, r.URL.Path,
			logger.KeyStatus, ww.Status(),
			logger.KeyDuration, time.Since(start).String(),
		)
	})
}
