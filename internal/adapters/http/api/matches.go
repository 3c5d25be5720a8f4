package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/okian/scoreline/internal/domain/model"
	"github.com/okian/scoreline/pkg/logger"
)

// MatchDependencies defines the match operations the handlers need.
type MatchDependencies interface {
	CreateMatch(ctx context.Context, spec model.MatchSpec) (model.Match, error)
	GetMatch(ctx context.Context, id string) (model.Match, error)
	ListMatches(ctx context.Context, f model.MatchFilter) ([]model.Match, int, error)
	UpdateMatchDetails(ctx context.Context, id string, d model.MatchDetails) (model.Match, error)
	StartMatch(ctx context.Context, id string) (model.Match, error)
	FinishMatch(ctx context.Context, id string, home, away int) (model.Match, int, error)
	CancelMatch(ctx context.Context, id, reason string) (model.Match, error)
	PostponeMatch(ctx context.Context, id string, newTime *time.Time) (model.Match, error)
	RescheduleMatch(ctx context.Context, id string, at time.Time) (model.Match, error)
	LockMatch(ctx context.Context, id string) (model.Match, error)
	UnlockMatch(ctx context.Context, id string) (model.Match, error)
}

type createMatchRequest struct {
	HomeTeam    string    `json:"home_team" validate:"required,max=100"`
	AwayTeam    string    `json:"away_team" validate:"required,max=100"`
	ScheduledAt time.Time `json:"scheduled_at" validate:"required"`
	Sport       string    `json:"sport" validate:"omitempty,oneof=football hockey basketball tennis"`
	League      string    `json:"league" validate:"max=100"`
	Season      string    `json:"season" validate:"max=20"`
}

type updateMatchRequest struct {
	HomeTeam *string `json:"home_team" validate:"omitempty,max=100"`
	AwayTeam *string `json:"away_team" validate:"omitempty,max=100"`
	Sport    *string `json:"sport" validate:"omitempty,oneof=football hockey basketball tennis"`
	League   *string `json:"league" validate:"omitempty,max=100"`
	Season   *string `json:"season" validate:"omitempty,max=20"`
}

type finishMatchRequest struct {
	HomeScore *int `json:"home_score" validate:"required,min=0,max=99"`
	AwayScore *int `json:"away_score" validate:"required,min=0,max=99"`
}

type cancelMatchRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type postponeMatchRequest struct {
	NewTime *time.Time `json:"new_time"`
}

type rescheduleMatchRequest struct {
	ScheduledAt time.Time `json:"scheduled_at" validate:"required"`
}

type matchResponse struct {
	model.Match
	Predictable  bool   `json:"predictable"`
	DisplayScore string `json:"display_score"`
}

func newMatchResponse(m model.Match) matchResponse {
	return matchResponse{Match: m, Predictable: m.Predictable(), DisplayScore: m.ScoreLine()}
}

type finishMatchResponse struct {
	Match  matchResponse `json:"match"`
	Scored int           `json:"predictions_scored"`
}

// MatchHandler handles /matches requests.
type MatchHandler struct {
	deps   MatchDependencies
	logger logger.Logger
}

// NewMatchHandler creates a new match handler.
func NewMatchHandler(deps MatchDependencies, l logger.Logger) *MatchHandler {
	return &MatchHandler{deps: deps, logger: l}
}

// HandleCreate handles POST /matches.
func (h *MatchHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_match"
	var req createMatchRequest
	if err := decode(w, r, &req); err != nil {
		writeServiceError(r.Context(), w, h.logger, op, err)
		return
	}
	m, err := h.deps.CreateMatch(r.Context(), model.MatchSpec{
		HomeTeam:    req.HomeTeam,
		AwayTeam:    req.AwayTeam,
		ScheduledAt: req.ScheduledAt,
		Sport:       model.Sport(req.Sport),
		League:      req.League,
		Season:      req.Season,
	})
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, newMatchResponse(m))
}

// HandleGet handles GET /matches/{id}.
func (h *MatchHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	m, err := h.deps.GetMatch(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, "api.get_match", err)
		return
	}
	writeJSON(w, http.StatusOK, newMatchResponse(m))
}

// HandleList handles GET /matches with optional filters:
// status (comma separated), sport, league, season, team, from, to,
// predictable, limit, offset.
func (h *MatchHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_matches"
	f, err := matchFilterFrom(r)
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, op, err)
		return
	}
	ms, total, err := h.deps.ListMatches(r.Context(), f)
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, op, err)
		return
	}
	items := make([]matchResponse, len(ms))
	for i, m := range ms {
		items[i] = newMatchResponse(m)
	}
	writeJSON(w, http.StatusOK, listResponse[matchResponse]{Items: items, Total: total, Limit: f.Limit, Offset: f.Offset})
}

func matchFilterFrom(r *http.Request) (model.MatchFilter, error) {
	q := r.URL.Query()
	f := model.MatchFilter{
		Sport:  model.Sport(q.Get("sport")),
		League: q.Get("league"),
		Season: q.Get("season"),
		Team:   q.Get("team"),
	}
	if raw := q.Get("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			st, err := model.ParseMatchStatus(part)
			if err != nil {
				return f, err
			}
			f.Statuses = append(f.Statuses, st)
		}
	}
	for name, dst := range map[string]*time.Time{"from": &f.ScheduledFrom, "to": &f.ScheduledTo} {
		if raw := q.Get(name); raw != "" {
			t, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				return f, fmt.Errorf("%w: %s must be RFC3339", ErrBadRequest, name)
			}
			*dst = t
		}
	}
	var err error
	if f.Predictable, err = queryBool(r, "predictable"); err != nil {
		return f, err
	}
	if f.Limit, err = queryInt(r, "limit", 50); err != nil {
		return f, err
	}
	if f.Offset, err = queryInt(r, "offset", 0); err != nil {
		return f, err
	}
	return f, nil
}

// HandleUpdate handles PATCH /matches/{id}.
func (h *MatchHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	const op = "api.update_match"
	var req updateMatchRequest
	if err := decode(w, r, &req); err != nil {
		writeServiceError(r.Context(), w, h.logger, op, err)
		return
	}
	d := model.MatchDetails{HomeTeam: req.HomeTeam, AwayTeam: req.AwayTeam, League: req.League, Season: req.Season}
	if req.Sport != nil {
		sp := model.Sport(*req.Sport)
		d.Sport = &sp
	}
	if d.Empty() {
		writeServiceError(r.Context(), w, h.logger, op, fmt.Errorf("%w: no fields to update", ErrBadRequest))
		return
	}
	h.respond(w, r, op, func(ctx context.Context, id string) (model.Match, error) {
		return h.deps.UpdateMatchDetails(ctx, id, d)
	})
}

// HandleStart handles POST /matches/{id}/start.
func (h *MatchHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "api.start_match", h.deps.StartMatch)
}

// HandleLock handles POST /matches/{id}/lock.
func (h *MatchHandler) HandleLock(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "api.lock_match", h.deps.LockMatch)
}

// HandleUnlock handles POST /matches/{id}/unlock.
func (h *MatchHandler) HandleUnlock(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "api.unlock_match", h.deps.UnlockMatch)
}

// HandleFinish handles POST /matches/{id}/finish.
func (h *MatchHandler) HandleFinish(w http.ResponseWriter, r *http.Request) {
	const op = "api.finish_match"
	var req finishMatchRequest
	if err := decode(w, r, &req); err != nil {
		writeServiceError(r.Context(), w, h.logger, op, err)
		return
	}
	m, n, err := h.deps.FinishMatch(r.Context(), chi.URLParam(r, "id"), *req.HomeScore, *req.AwayScore)
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, finishMatchResponse{Match: newMatchResponse(m), Scored: n})
}

// HandleCancel handles POST /matches/{id}/cancel.
func (h *MatchHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	const op = "api.cancel_match"
	var req cancelMatchRequest
	if err := decodeOptional(w, r, &req); err != nil {
		writeServiceError(r.Context(), w, h.logger, op, err)
		return
	}
	h.respond(w, r, op, func(ctx context.Context, id string) (model.Match, error) {
		return h.deps.CancelMatch(ctx, id, req.Reason)
	})
}

// HandlePostpone handles POST /matches/{id}/postpone.
func (h *MatchHandler) HandlePostpone(w http.ResponseWriter, r *http.Request) {
	const op = "api.postpone_match"
	var req postponeMatchRequest
	if err := decodeOptional(w, r, &req); err != nil {
		writeServiceError(r.Context(), w, h.logger, op, err)
		return
	}
	h.respond(w, r, op, func(ctx context.Context, id string) (model.Match, error) {
		return h.deps.PostponeMatch(ctx, id, req.NewTime)
	})
}

// HandleReschedule handles POST /matches/{id}/reschedule.
func (h *MatchHandler) HandleReschedule(w http.ResponseWriter, r *http.Request) {
	const op = "api.reschedule_match"
	var req rescheduleMatchRequest
	if err := decode(w, r, &req); err != nil {
		writeServiceError(r.Context(), w, h.logger, op, err)
		return
	}
	h.respond(w, r, op, func(ctx context.Context, id string) (model.Match, error) {
		return h.deps.RescheduleMatch(ctx, id, req.ScheduledAt)
	})
}

func (h *MatchHandler) respond(w http.ResponseWriter, r *http.Request, op string, fn func(context.Context, string) (model.Match, error)) {
	m, err := fn(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, newMatchResponse(m))
}
