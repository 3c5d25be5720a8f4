package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/okian/scoreline/internal/domain/model"
	"github.com/okian/scoreline/pkg/logger"
)

// UserDependencies defines the user operations the handlers need.
type UserDependencies interface {
	RegisterUser(ctx context.Context, username, email, displayName string) (model.User, error)
	GetUser(ctx context.Context, id string) (model.User, error)
	ListUsers(ctx context.Context, f model.UserFilter) ([]model.User, int, error)
	UpdateUser(ctx context.Context, id string, upd model.UserUpdate) (model.User, error)
	ActivateUser(ctx context.Context, id string) (model.User, error)
	DeactivateUser(ctx context.Context, id string) (model.User, error)
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
	DeleteUser(ctx context.Context, id string, hard bool) error
	RecalculateUserTotals(ctx context.Context, id string) (model.User, error)
}

type registerUserRequest struct {
	Username    string `json:"username" validate:"required,min=3,max=30"`
	Email       string `json:"email" validate:"required,email"`
	DisplayName string `json:"display_name" validate:"max=50"`
}

type updateUserRequest struct {
	Email       *string `json:"email" validate:"omitempty,email"`
	DisplayName *string `json:"display_name" validate:"omitempty,max=50"`
}

type userResponse struct {
	model.User
	EffectiveName string  `json:"effective_name"`
	AveragePoints float64 `json:"average_points"`
}

func newUserResponse(u model.User) userResponse {
	return userResponse{User: u, EffectiveName: u.Name(), AveragePoints: u.AveragePoints()}
}

// UserHandler handles /users requests.
type UserHandler struct {
	deps   UserDependencies
	logger logger.Logger
}

// NewUserHandler creates a new user handler.
func NewUserHandler(deps UserDependencies, l logger.Logger) *UserHandler {
	return &UserHandler{deps: deps, logger: l}
}

// HandleRegister handles POST /users.
func (h *UserHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	const op = "api.register_user"
	var req registerUserRequest
	if err := decode(w, r, &req); err != nil {
		writeServiceError(r.Context(), w, h.logger, op, err)
		return
	}
	u, err := h.deps.RegisterUser(r.Context(), req.Username, req.Email, req.DisplayName)
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, newUserResponse(u))
}

// HandleGet handles GET /users/{id}.
func (h *UserHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	u, err := h.deps.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, "api.get_user", err)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(u))
}

// HandleList handles GET /users?search=&active=&limit=&offset=.
func (h *UserHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_users"
	f := model.UserFilter{Search: r.URL.Query().Get("search")}
	active, err := queryBool(r, "active")
	if err == nil && active != nil {
		f.ActiveOnly = *active
	}
	if err == nil {
		f.Limit, err = queryInt(r, "limit", 50)
	}
	if err == nil {
		f.Offset, err = queryInt(r, "offset", 0)
	}
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, op, err)
		return
	}
	users, total, err := h.deps.ListUsers(r.Context(), f)
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, op, err)
		return
	}
	items := make([]userResponse, len(users))
	for i, u := range users {
		items[i] = newUserResponse(u)
	}
	writeJSON(w, http.StatusOK, listResponse[userResponse]{Items: items, Total: total, Limit: f.Limit, Offset: f.Offset})
}

// HandleUpdate handles PATCH /users/{id}.
func (h *UserHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	const op = "api.update_user"
	var req updateUserRequest
	if err := decode(w, r, &req); err != nil {
		writeServiceError(r.Context(), w, h.logger, op, err)
		return
	}
	u, err := h.deps.UpdateUser(r.Context(), chi.URLParam(r, "id"), model.UserUpdate{Email: req.Email, DisplayName: req.DisplayName})
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(u))
}

// HandleActivate handles POST /users/{id}/activate.
func (h *UserHandler) HandleActivate(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "api.activate_user", h.deps.ActivateUser)
}

// HandleDeactivate handles POST /users/{id}/deactivate.
func (h *UserHandler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "api.deactivate_user", h.deps.DeactivateUser)
}

// HandleRecalculate handles POST /users/{id}/recalculate.
func (h *UserHandler) HandleRecalculate(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "api.recalculate_user", h.deps.RecalculateUserTotals)
}

// HandleByEmail handles GET /users/by-email?email=.
func (h *UserHandler) HandleByEmail(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_user_by_email"
	email := r.URL.Query().Get("email")
	if email == "" {
		writeServiceError(r.Context(), w, h.logger, op, fmt.Errorf("%w: email is required", ErrBadRequest))
		return
	}
	u, err := h.deps.GetUserByEmail(r.Context(), email)
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(u))
}

// HandleDelete handles DELETE /users/{id}?hard=. Without hard the user is
// only deactivated.
func (h *UserHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_user"
	hard, err := queryBool(r, "hard")
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, op, err)
		return
	}
	if err := h.deps.DeleteUser(r.Context(), chi.URLParam(r, "id"), hard != nil && *hard); err != nil {
		writeServiceError(r.Context(), w, h.logger, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *UserHandler) respond(w http.ResponseWriter, r *http.Request, op string, fn func(context.Context, string) (model.User, error)) {
	u, err := fn(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(u))
}
