package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/autopeer-io/fleetpeer/internal/hub/changefeed"
	"github.com/autopeer-io/fleetpeer/internal/hub/core/service"
	"github.com/autopeer-io/fleetpeer/pkg/log"
	"github.com/autopeer-io/fleetpeer/pkg/options"
)

// ReadyCheck reports whether a dependency is able to serve traffic.
type ReadyCheck func(ctx context.Context) error

type Server struct {
	server  *http.Server
	options *options.HttpOptions
	svc     *service.Service
	broker  *changefeed.Broker
	checks  map[string]ReadyCheck
	logger  log.Logger
}

// NewServer builds the HTTP API. broker may be nil, which disables the change feed endpoint.
func NewServer(opts *options.HttpOptions, svc *service.Service, broker *changefeed.Broker, checks map[string]ReadyCheck) *Server {
	s := &Server{
		options: opts,
		svc:     svc,
		broker:  broker,
		checks:  checks,
		logger:  log.WithName("http"),
	}

	s.server = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       opts.Timeout,
		// No write timeout: the change feed is a long-lived stream.
		IdleTimeout: 2 * opts.Timeout,
	}
	return s
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	r.HandleFunc("/healthz", s.healthz).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.readyz).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	authed := func(h http.HandlerFunc) http.Handler { return s.authenticate(h) }

	r.Handle("/api/admin/drivers", authed(s.createDriver)).Methods(http.MethodPost)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/auth/sign-in", s.signIn).Methods(http.MethodPost)
	api.Handle("/auth/sign-out", authed(s.signOut)).Methods(http.MethodPost)
	api.Handle("/auth/session", authed(s.session)).Methods(http.MethodGet)
	api.Handle("/positions/me", authed(s.reportPosition)).Methods(http.MethodPut)
	api.Handle("/roster", authed(s.roster)).Methods(http.MethodGet)
	api.Handle("/roster/exports", authed(s.exportRoster)).Methods(http.MethodPost)
	api.Handle("/drivers/{id}/position", authed(s.driverPosition)).Methods(http.MethodGet)
	if s.broker != nil {
		api.Handle("/changes", authed(s.changes)).Methods(http.MethodGet)
	}

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting HTTP Server", "addr", s.server.Addr)

	ln, err := net.Listen(s.options.Network, s.server.Addr)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.options.ShutdownTimeout)
		defer cancel()
		s.logger.Info("Shutting down HTTP Server")
		return s.server.Shutdown(shutdownCtx)
	}
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			s.logger.Warn("Readiness check failed", "check", name, "error", err.Error())
			http.Error(w, name+": "+err.Error(), http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
