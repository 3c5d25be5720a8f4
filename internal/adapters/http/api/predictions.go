package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/okian/scoreline/internal/domain/model"
	"github.com/okian/scoreline/pkg/logger"
)

// PredictionDependencies defines the prediction operations the handlers need.
type PredictionDependencies interface {
	CreatePrediction(ctx context.Context, userID, matchID string, home, away int) (model.Prediction, error)
	GetPrediction(ctx context.Context, id string) (model.Prediction, error)
	UpdatePrediction(ctx context.Context, id, userID string, home, away *int) (model.Prediction, error)
	DeletePrediction(ctx context.Context, id, userID string) error
	UserPredictions(ctx context.Context, userID string, scoredOnly bool, limit, offset int) ([]model.Prediction, error)
	MatchPredictions(ctx context.Context, matchID string) ([]model.Prediction, error)
}

type createPredictionRequest struct {
	UserID        string `json:"user_id" validate:"required"`
	MatchID       string `json:"match_id" validate:"required"`
	PredictedHome *int   `json:"predicted_home" validate:"required,min=0,max=99"`
	PredictedAway *int   `json:"predicted_away" validate:"required,min=0,max=99"`
}

type updatePredictionRequest struct {
	UserID        string `json:"user_id" validate:"required"`
	PredictedHome *int   `json:"predicted_home" validate:"omitempty,min=0,max=99"`
	PredictedAway *int   `json:"predicted_away" validate:"omitempty,min=0,max=99"`
}

type predictionResponse struct {
	model.Prediction
	PredictedOutcome    model.Outcome `json:"predicted_outcome"`
	PredictedDifference int           `json:"predicted_goal_difference"`
}

func newPredictionResponse(p model.Prediction) predictionResponse {
	return predictionResponse{Prediction: p, PredictedOutcome: p.PredictedOutcome(), PredictedDifference: p.PredictedDifference()}
}

func newPredictionList(ps []model.Prediction) listResponse[predictionResponse] {
	items := make([]predictionResponse, len(ps))
	for i, p := range ps {
		items[i] = newPredictionResponse(p)
	}
	return listResponse[predictionResponse]{Items: items, Total: len(items)}
}

// PredictionHandler handles /predictions requests.
type PredictionHandler struct {
	deps   PredictionDependencies
	logger logger.Logger
}

// NewPredictionHandler creates a new prediction handler.
func NewPredictionHandler(deps PredictionDependencies, l logger.Logger) *PredictionHandler {
	return &PredictionHandler{deps: deps, logger: l}
}

// HandleCreate handles POST /predictions.
func (h *PredictionHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_prediction"
	var req createPredictionRequest
	if err := decode(w, r, &req); err != nil {
		writeServiceError(r.Context(), w, h.logger, op, err)
		return
	}
	p, err := h.deps.CreatePrediction(r.Context(), req.UserID, req.MatchID, *req.PredictedHome, *req.PredictedAway)
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, newPredictionResponse(p))
}

// HandleGet handles GET /predictions/{id}.
func (h *PredictionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	p, err := h.deps.GetPrediction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, "api.get_prediction", err)
		return
	}
	writeJSON(w, http.StatusOK, newPredictionResponse(p))
}

// HandleUpdate handles PATCH /predictions/{id}.
func (h *PredictionHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	const op = "api.update_prediction"
	var req updatePredictionRequest
	if err := decode(w, r, &req); err != nil {
		writeServiceError(r.Context(), w, h.logger, op, err)
		return
	}
	if req.PredictedHome == nil && req.PredictedAway == nil {
		writeServiceError(r.Context(), w, h.logger, op, fmt.Errorf("%w: no scores to update", ErrBadRequest))
		return
	}
	p, err := h.deps.UpdatePrediction(r.Context(), chi.URLParam(r, "id"), req.UserID, req.PredictedHome, req.PredictedAway)
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, newPredictionResponse(p))
}

// HandleDelete handles DELETE /predictions/{id}?user_id=.
func (h *PredictionHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_prediction"
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeServiceError(r.Context(), w, h.logger, op, fmt.Errorf("%w: user_id is required", ErrBadRequest))
		return
	}
	if err := h.deps.DeletePrediction(r.Context(), chi.URLParam(r, "id"), userID); err != nil {
		writeServiceError(r.Context(), w, h.logger, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleListByUser handles GET /users/{id}/predictions?scored=&limit=&offset=.
func (h *PredictionHandler) HandleListByUser(w http.ResponseWriter, r *http.Request) {
	const op = "api.user_predictions"
	scored, err := queryBool(r, "scored")
	var limit, offset int
	if err == nil {
		limit, err = queryInt(r, "limit", 0)
	}
	if err == nil {
		offset, err = queryInt(r, "offset", 0)
	}
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, op, err)
		return
	}
	ps, err := h.deps.UserPredictions(r.Context(), chi.URLParam(r, "id"), scored != nil && *scored, limit, offset)
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, newPredictionList(ps))
}

// HandleListByMatch handles GET /matches/{id}/predictions.
func (h *PredictionHandler) HandleListByMatch(w http.ResponseWriter, r *http.Request) {
	ps, err := h.deps.MatchPredictions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, "api.match_predictions", err)
		return
	}
	writeJSON(w, http.StatusOK, newPredictionList(ps))
}
