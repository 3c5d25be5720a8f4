package postgres

import (
	"fmt"
	"strings"

	"github.com/okian/scoreline/internal/domain/model"
)

// where accumulates positional filter conditions.
type where struct {
	sql  string
	args []any
}

func newWhere() *where { return &where{sql: " WHERE 1=1"} }

// arg binds v and returns its placeholder.
func (w *where) arg(v any) string {
	w.args = append(w.args, v)
	return fmt.Sprintf("$%d", len(w.args))
}

func (w *where) and(cond string) { w.sql += " AND " + cond }

// page appends ORDER BY and pagination.
func (w *where) page(order string, limit, offset int) string {
	q := w.sql + " ORDER BY " + order
	if limit > 0 {
		q += " LIMIT " + w.arg(limit)
	}
	if offset > 0 {
		q += " OFFSET " + w.arg(offset)
	}
	return q
}

// contains builds a LIKE pattern for a case-folded substring search.
func contains(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(model.Fold(s)) + "%"
}

const predictableCond = "(status IN ('pending', 'postponed') AND NOT predictions_locked)"

func matchWhere(f model.MatchFilter) *where {
	w := newWhere()
	if len(f.Statuses) > 0 {
		ss := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			ss[i] = string(s)
		}
		w.and("status = ANY(" + w.arg(ss) + ")")
	}
	if f.Sport != "" {
		w.and("sport = " + w.arg(string(f.Sport)))
	}
	if f.League != "" {
		w.and("lower(league) LIKE " + w.arg(contains(f.League)))
	}
	if f.Season != "" {
		w.and("season = " + w.arg(f.Season))
	}
	if f.Team != "" {
		p := w.arg(contains(f.Team))
		w.and("(lower(home_team) LIKE " + p + " OR lower(away_team) LIKE " + p + ")")
	}
	if !f.ScheduledFrom.IsZero() {
		w.and("scheduled_at >= " + w.arg(f.ScheduledFrom))
	}
	if !f.ScheduledTo.IsZero() {
		w.and("scheduled_at <= " + w.arg(f.ScheduledTo))
	}
	if f.Predictable != nil {
		if *f.Predictable {
			w.and(predictableCond)
		} else {
			w.and("NOT " + predictableCond)
		}
	}
	return w
}

func predictionWhere(f model.PredictionFilter) *where {
	w := newWhere()
	if f.UserID != "" {
		w.and("user_id = " + w.arg(f.UserID))
	}
	if f.MatchID != "" {
		w.and("match_id = " + w.arg(f.MatchID))
	}
	if f.Scored != nil {
		w.and("is_scored = " + w.arg(*f.Scored))
	}
	if !f.ScoredFrom.IsZero() {
		w.and("scored_at >= " + w.arg(f.ScoredFrom))
	}
	if !f.ScoredTo.IsZero() {
		w.and("scored_at <= " + w.arg(f.ScoredTo))
	}
	return w
}

func userWhere(f model.UserFilter) *where {
	w := newWhere()
	if f.ActiveOnly {
		w.and("is_active")
	}
	if f.Search != "" {
		p := w.arg(contains(f.Search))
		w.and("(lower(username) LIKE " + p + " OR lower(display_name) LIKE " + p + ")")
	}
	return w
}
