package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"rentbook/internal/config"
	"rentbook/internal/domain"
	"rentbook/internal/models"
	"rentbook/internal/security"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// BookingAPI is what the REST surface needs from the booking engine.
type BookingAPI interface {
	domain.BookingService
	ExportBookings(ctx context.Context, userID string, perspective models.Perspective) ([]*models.Booking, error)
	Ping(ctx context.Context) error
}

// HTTPServer serves the booking REST API.
type HTTPServer struct {
	cfg      config.APIConfig
	bookings BookingAPI
	tokens   *security.TokenManager
	validate *validator.Validate
	limiter  *rateLimiter
	server   *http.Server
	now      func() time.Time
	logger   *zerolog.Logger
}

func NewHTTPServer(cfg config.APIConfig, bookings BookingAPI, tokens *security.TokenManager, logger *zerolog.Logger) *HTTPServer {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("component", "http").Logger()

	srv := &HTTPServer{
		cfg:      cfg,
		bookings: bookings,
		tokens:   tokens,
		validate: newValidator(),
		limiter:  newRateLimiter(cfg.RateLimit),
		now:      time.Now,
		logger:   &l,
	}

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	return srv
}

func (s *HTTPServer) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(requestIDMiddleware, recoverMiddleware(s.logger), loggingMiddleware(s.logger))
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, "route not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReadyz).Methods(http.MethodGet)

	api := r.NewRoute().Subrouter()
	api.Use(
		bodyLimitMiddleware(s.cfg.HTTP.MaxBodyBytes),
		jwtAuthMiddleware(s.tokens, s.logger),
		rateLimitMiddleware(s.limiter),
	)

	// /bookings/my* must be registered before /bookings/{id}.
	api.HandleFunc("/bookings", s.handleCreateBooking).Methods(http.MethodPost)
	api.HandleFunc("/bookings/my", s.handleListMyBookings).Methods(http.MethodGet)
	api.HandleFunc("/bookings/my/stats", s.handleMyStats).Methods(http.MethodGet)
	api.HandleFunc("/bookings/my/export", s.handleExportMyBookings).Methods(http.MethodGet)
	api.HandleFunc("/bookings/{id}", s.handleGetBooking).Methods(http.MethodGet)
	api.HandleFunc("/bookings/{id}/status", s.handleUpdateStatus).Methods(http.MethodPut)
	api.HandleFunc("/bookings/{id}/{action:confirm|start|complete|cancel|dispute}", s.handleAction).Methods(http.MethodPut)
	api.HandleFunc("/bookings/{id}/rating", s.handleRate).Methods(http.MethodPost)
	api.HandleFunc("/items/{id}/availability", s.handleAvailability).Methods(http.MethodGet)
	api.HandleFunc("/items/{id}/quote", s.handleQuote).Methods(http.MethodGet)

	return r
}

// Handler exposes the router, mostly for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
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

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeData(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.bookings.Ping(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("readiness check failed")
		writeError(w, http.StatusServiceUnavailable, codeUnavailable, "storage unavailable")
		return
	}
	writeData(w, http.StatusOK, map[string]string{"status": "ready"})
}
