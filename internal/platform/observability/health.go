// Package observability provides health checks and metrics for the service.
//
// The Server exposes:
//   - /healthz: liveness probe (always returns OK)
//   - /readyz: readiness probe (pings the store)
//   - /metrics: Prometheus metrics endpoint
package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const (
	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 10 * time.Second
)

// Pinger is the narrow contract the health server needs from the store —
// satisfied by ports.Store.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	store      Pinger
	port       int
	logger     *zerolog.Logger
	apiHandler http.Handler
}

func NewServer(store Pinger, port int, logger *zerolog.Logger) *Server {
	return &Server{store: store, port: port, logger: logger}
}

// NewServerWithAPI builds a health/ready/metrics server that also mounts
// the internal/api batch-trigger handler on the same mux and port,
// matching the teacher's own NewServerWithHandlers composition of the
// health server with expandedview/research handlers.
func NewServerWithAPI(store Pinger, port int, apiHandler http.Handler, logger *zerolog.Logger) *Server {
	return &Server{store: store, port: port, logger: logger, apiHandler: apiHandler}
}

func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprint(w, "OK")
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := s.store.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = fmt.Fprintf(w, "store error: %v", err)

			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprint(w, "OK")
	})

	mux.Handle("/metrics", promhttp.Handler())

	if s.apiHandler != nil {
		mux.Handle("/batch/trigger", s.apiHandler)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		//nolint:errcheck,contextcheck // shutdown in signal handler is best-effort, non-inherited context intentional
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info().Int("port", s.port).Msg("health check server starting")

	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}

	return nil
}
