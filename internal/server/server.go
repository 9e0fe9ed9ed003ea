// Package server exposes the simulators over HTTP and a websocket that
// streams auto-tuning progress.
package server

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/lawnchairsociety/bossbalance/internal/config"
	"github.com/lawnchairsociety/bossbalance/internal/database"
	"github.com/lawnchairsociety/bossbalance/internal/logger"
)

// maxBodyBytes bounds profile uploads on the JSON endpoints.
const maxBodyBytes = 1 << 20

// Server serves the simulation API.
type Server struct {
	cfg     *config.ServerConfig
	db      *database.Database
	limiter *RunLimiter
	router  *mux.Router
	seeds   func() int64
}

// New creates a server. db may be nil, in which case runs are not recorded
// and the history endpoints return 503.
func New(cfg *config.ServerConfig, db *database.Database) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	s := &Server{
		cfg:     cfg,
		db:      db,
		limiter: NewRunLimiter(cfg.Connections),
		seeds:   func() int64 { return time.Now().UnixNano() },
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(logRequests)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	api.HandleFunc("/profile/default", s.handleDefaultProfile).Methods(http.MethodGet)
	api.HandleFunc("/threat", s.handleThreat).Methods(http.MethodPost)
	api.HandleFunc("/single", s.limited(s.handleSingle)).Methods(http.MethodPost)
	api.HandleFunc("/encounter", s.limited(s.handleEncounter)).Methods(http.MethodPost)
	api.HandleFunc("/tune", s.limited(s.handleTune)).Methods(http.MethodPost)
	api.HandleFunc("/runs/encounter", s.handleEncounterRuns).Methods(http.MethodGet)
	api.HandleFunc("/runs/tuning", s.handleTuningRuns).Methods(http.MethodGet)
	api.HandleFunc("/runs/tuning/{id:[0-9]+}", s.handleTuningRun).Methods(http.MethodGet)

	r.HandleFunc("/ws/tune", s.handleTuneWebSocket)
	return r
}

// Handler returns the HTTP handler of the API.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.HTTP.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: s.cfg.HTTP.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "address", s.cfg.HTTP.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// limited wraps a handler that runs a simulation with the per-IP run limit.
func (s *Server) limited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientIP := getRealIP(r)
		if !s.limiter.TryAcquire(clientIP) {
			logger.Warning("Run rejected - limit exceeded", "remote_addr", r.RemoteAddr, "client_ip", clientIP)
			writeError(w, http.StatusTooManyRequests, "too many concurrent runs, try again later")
			return
		}
		defer s.limiter.Release(clientIP)
		next(w, r)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Hijack passes the connection through for the websocket upgrade.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	})
}
