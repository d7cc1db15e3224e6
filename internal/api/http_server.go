package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"gatisathi/internal/config"
	"gatisathi/internal/service"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// Services bundles the application services exposed over HTTP.
type Services struct {
	Reservations *service.ReservationService
	Bookings     *service.BookingQuery
	Rides        *service.RideService
	Users        *service.UserService
}

// ReadinessCheck is one dependency probed by /readyz.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// HTTPServer exposes the booking API.
type HTTPServer struct {
	cfg      config.APIConfig
	services Services
	tokens   TokenValidator
	checks   []ReadinessCheck
	limiter  *clientLimiter
	logger   *zerolog.Logger
	router   *mux.Router
	server   *http.Server
}

func NewHTTPServer(cfg config.APIConfig, services Services, tokens TokenValidator, checks []ReadinessCheck, logger *zerolog.Logger) *HTTPServer {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("component", "http").Logger()

	srv := &HTTPServer{
		cfg:      cfg,
		services: services,
		tokens:   tokens,
		checks:   checks,
		limiter:  newClientLimiter(cfg.RateLimit),
		logger:   &l,
		router:   mux.NewRouter(),
	}
	srv.routes()

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}
	return srv
}

func (s *HTTPServer) routes() {
	r := s.router
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})
	r.Use(s.logRequests, s.identify, s.rateLimit)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)

	r.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	r.Handle("/users/me", s.requireAuth(s.handleMe)).Methods(http.MethodGet)
	r.Handle("/users/profile", s.requireAuth(s.handleUpdateProfile)).Methods(http.MethodPut)

	r.HandleFunc("/rides", s.handleSearchRides).Methods(http.MethodGet)
	r.Handle("/rides", s.requireAuth(s.handlePublishRide)).Methods(http.MethodPost)
	r.Handle("/rides/mine", s.requireAuth(s.handleMyRides)).Methods(http.MethodGet)
	r.HandleFunc("/rides/{id}", s.handleGetRide).Methods(http.MethodGet)
	r.Handle("/rides/{id}/status", s.requireAuth(s.handleRideStatus)).Methods(http.MethodPatch)

	r.Handle("/bookings", s.requireAuth(s.handleBookSeat)).Methods(http.MethodPost)
	r.Handle("/bookings/mine", s.requireAuth(s.handleMyBookings)).Methods(http.MethodGet)
	r.Handle("/bookings/{id}/cancel", s.requireAuth(s.handleCancelBooking)).Methods(http.MethodPost)
}

// Handler returns the fully wrapped handler tree.
func (s *HTTPServer) Handler() http.Handler {
	return s.recoverPanics(s.requestID(s.cors(s.router)))
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	failed := map[string]string{}
	for _, c := range s.checks {
		if err := c.Check(ctx); err != nil {
			failed[c.Name] = err.Error()
		}
	}
	if len(failed) > 0 {
		s.logger.Warn().Interface("failed", failed).Msg("readiness check failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "failed": failed})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message, "code": code})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
