// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/okian/scoreline/internal/domain/model"
	"github.com/okian/scoreline/pkg/logger"
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	UserDependencies
	MatchDependencies
	PredictionDependencies
	AnalyticsDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler     *HealthHandler
	userHandler       *UserHandler
	matchHandler      *MatchHandler
	predictionHandler *PredictionHandler
	analyticsHandler  *AnalyticsHandler
	allowedOrigins    []string
	logger            logger.Logger
	docs              func(chi.Router)
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithAllowedOrigins sets the CORS origins. Empty means any origin.
func WithAllowedOrigins(origins []string) ServerOption {
	return func(s *Server) {
		if len(origins) > 0 {
			s.allowedOrigins = origins
		}
	}
}

// WithHealthChecks adds named dependency checks to /healthz.
func WithHealthChecks(checks map[string]Pinger) ServerOption {
	return func(s *Server) {
		for name, p := range checks {
			s.healthHandler.checks[name] = p
		}
	}
}

// WithLogger sets the logger used for unexpected failures.
func WithLogger(l logger.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithDocs mounts extra documentation routes.
func WithDocs(register func(chi.Router)) ServerOption {
	return func(s *Server) {
		s.docs = register
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...ServerOption) *Server {
	s := &Server{
		healthHandler:  NewHealthHandler(),
		allowedOrigins: []string{"*"},
		logger:         logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.userHandler = NewUserHandler(deps, s.logger)
	s.matchHandler = NewMatchHandler(deps, s.logger)
	s.predictionHandler = NewPredictionHandler(deps, s.logger)
	s.analyticsHandler = NewAnalyticsHandler(deps, s.logger)
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler(ctx context.Context) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(MetricsMiddleware)

	r.Get("/healthz", s.healthHandler.HandleHealth)
	r.Handle("/metrics", s.healthHandler.MetricsHandler())
	if s.docs != nil {
		s.docs(r)
	}

	r.Route("/users", func(r chi.Router) {
		r.Get("/", s.userHandler.HandleList)
		r.Post("/", s.userHandler.HandleRegister)
		r.Get("/by-email", s.userHandler.HandleByEmail)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.userHandler.HandleGet)
			r.Patch("/", s.userHandler.HandleUpdate)
			r.Delete("/", s.userHandler.HandleDelete)
			r.Post("/recalculate", s.userHandler.HandleRecalculate)
			r.Post("/activate", s.userHandler.HandleActivate)
			r.Post("/deactivate", s.userHandler.HandleDeactivate)
			r.Get("/stats", s.analyticsHandler.HandleUserStats)
			r.Get("/trend", s.analyticsHandler.HandleUserTrend)
			r.Get("/predictions", s.predictionHandler.HandleListByUser)
		})
	})

	r.Route("/matches", func(r chi.Router) {
		r.Get("/", s.matchHandler.HandleList)
		r.Post("/", s.matchHandler.HandleCreate)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.matchHandler.HandleGet)
			r.Patch("/", s.matchHandler.HandleUpdate)
			r.Post("/start", s.matchHandler.HandleStart)
			r.Post("/finish", s.matchHandler.HandleFinish)
			r.Post("/cancel", s.matchHandler.HandleCancel)
			r.Post("/postpone", s.matchHandler.HandlePostpone)
			r.Post("/reschedule", s.matchHandler.HandleReschedule)
			r.Post("/lock", s.matchHandler.HandleLock)
			r.Post("/unlock", s.matchHandler.HandleUnlock)
			r.Get("/summary", s.analyticsHandler.HandleMatchSummary)
			r.Get("/predictions", s.predictionHandler.HandleListByMatch)
		})
	})

	r.Route("/predictions", func(r chi.Router) {
		r.Post("/", s.predictionHandler.HandleCreate)
		r.Get("/{id}", s.predictionHandler.HandleGet)
		r.Patch("/{id}", s.predictionHandler.HandleUpdate)
		r.Delete("/{id}", s.predictionHandler.HandleDelete)
	})

	r.Get("/leaderboard", s.analyticsHandler.HandleLeaderboard)
	r.Get("/analytics/distribution", s.analyticsHandler.HandleDistribution)
	r.Get("/analytics/system", s.analyticsHandler.HandleSystem)
	r.Get("/analytics/leagues", s.analyticsHandler.HandleLeagues)

	return r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type listResponse[T any] struct {
	Items  []T `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// errorStatus maps domain error kinds onto HTTP statuses and codes.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrValidation), errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, model.ErrPredictionNotAllowed):
		return http.StatusForbidden, "prediction_not_allowed"
	case errors.Is(err, model.ErrDuplicate):
		return http.StatusConflict, "already_exists"
	case errors.Is(err, model.ErrInvalidState):
		return http.StatusConflict, "invalid_state"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// writeServiceError renders err with the status its kind maps to.
func writeServiceError(ctx context.Context, w http.ResponseWriter, log logger.Logger, op string, err error) {
	status, code := errorStatus(err)
	if status >= http.StatusInternalServerError {
		log.Error(ctx, "request failed", logger.String("op", op), logger.Error(err))
		writeError(w, status, code, nil)
		return
	}
	writeError(w, status, code, err)
}
