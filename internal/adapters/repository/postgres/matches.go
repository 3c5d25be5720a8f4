package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/okian/scoreline/internal/domain/model"
)

const matchColumns = `id, home_team, away_team, sport, league, season, scheduled_at, status,
	home_score, away_score, predictions_locked, total_predictions,
	started_at, finished_at, cancelled_at, cancel_reason, created_at, updated_at`

type matches struct {
	q querier
}

func scanMatch(row pgx.CollectableRow) (model.Match, error) {
	var (
		m      model.Match
		sport  string
		status string
	)
	err := row.Scan(&m.ID, &m.HomeTeam, &m.AwayTeam, &sport, &m.League, &m.Season, &m.ScheduledAt, &status,
		&m.HomeScore, &m.AwayScore, &m.PredictionsLocked, &m.TotalPredictions,
		&m.StartedAt, &m.FinishedAt, &m.CancelledAt, &m.CancelReason, &m.CreatedAt, &m.UpdatedAt)
	m.Sport = model.Sport(sport)
	m.Status = model.MatchStatus(status)
	return m, err
}

func (r matches) Create(ctx context.Context, m model.Match) (err error) {
	defer track("matches.create", time.Now(), &err)
	if err := m.Check(); err != nil {
		return err
	}
	_, err = r.q.Exec(ctx, `INSERT INTO matches (`+matchColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		m.ID, m.HomeTeam, m.AwayTeam, string(m.Sport), m.League, m.Season, m.ScheduledAt, string(m.Status),
		m.HomeScore, m.AwayScore, m.PredictionsLocked, m.TotalPredictions,
		m.StartedAt, m.FinishedAt, m.CancelledAt, m.CancelReason, m.CreatedAt, m.UpdatedAt)
	return mapErr(err, "match", m.ID)
}

const (
	selectMatchSQL          = `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`
	selectMatchForUpdateSQL = selectMatchSQL + ` FOR UPDATE`
)

func (r matches) Get(ctx context.Context, id string) (model.Match, error) {
	return r.get(ctx, "matches.get", selectMatchSQL, id)
}

func (r matches) GetForUpdate(ctx context.Context, id string) (model.Match, error) {
	return r.get(ctx, "matches.get_for_update", selectMatchForUpdateSQL, id)
}

func (r matches) get(ctx context.Context, op, sql, id string) (model.Match, error) {
	start := time.Now()
	rows, err := r.q.Query(ctx, sql, id)
	if err != nil {
		observe(op, start, err)
		return model.Match{}, mapErr(err, "match", id)
	}
	m, err := pgx.CollectExactlyOneRow(rows, scanMatch)
	observe(op, start, err)
	return m, mapErr(err, "match", id)
}

func (r matches) List(ctx context.Context, f model.MatchFilter) ([]model.Match, error) {
	start := time.Now()
	w := matchWhere(f)
	rows, err := r.q.Query(ctx, `SELECT `+matchColumns+` FROM matches`+w.page("scheduled_at, id", f.Limit, f.Offset), w.args...)
	if err != nil {
		observe("matches.list", start, err)
		return nil, fmt.Errorf("matches.list: %w", err)
	}
	out, err := pgx.CollectRows(rows, scanMatch)
	observe("matches.list", start, err)
	if err != nil {
		return nil, fmt.Errorf("matches.list: %w", err)
	}
	return out, nil
}

func (r matches) Count(ctx context.Context, f model.MatchFilter) (int, error) {
	w := matchWhere(f)
	var n int
	err := r.q.QueryRow(ctx, `SELECT count(*) FROM matches`+w.sql, w.args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("matches.count: %w", err)
	}
	return n, nil
}

func (r matches) Update(ctx context.Context, m model.Match, expected model.MatchStatus) (err error) {
	defer track("matches.update", time.Now(), &err)
	if err := m.Check(); err != nil {
		return err
	}
	tag, err := r.q.Exec(ctx, `UPDATE matches SET
			home_team = $2, away_team = $3, sport = $4, league = $5, season = $6, scheduled_at = $7,
			status = $8, home_score = $9, away_score = $10, predictions_locked = $11,
			started_at = $12, finished_at = $13, cancelled_at = $14, cancel_reason = $15, updated_at = $16
		WHERE id = $1 AND status = $17`,
		m.ID, m.HomeTeam, m.AwayTeam, string(m.Sport), m.League, m.Season, m.ScheduledAt,
		string(m.Status), m.HomeScore, m.AwayScore, m.PredictionsLocked,
		m.StartedAt, m.FinishedAt, m.CancelledAt, m.CancelReason, m.UpdatedAt, string(expected))
	if err != nil {
		return mapErr(err, "match", m.ID)
	}
	if tag.RowsAffected() == 0 {
		return missingOrConflict(ctx, r.q, "matches", "match", m.ID, "left status "+string(expected))
	}
	return nil
}

func (r matches) IncrementPredictions(ctx context.Context, id string, delta int) (err error) {
	defer track("matches.increment", time.Now(), &err)
	tag, err := r.q.Exec(ctx,
		`UPDATE matches SET total_predictions = GREATEST(total_predictions + $2, 0) WHERE id = $1`, id, delta)
	if err != nil {
		return mapErr(err, "match", id)
	}
	if tag.RowsAffected() == 0 {
		return model.NotFound("match", id)
	}
	return nil
}

func (r matches) LockDue(ctx context.Context, cutoff, now time.Time) (n int, err error) {
	defer track("matches.lock_due", time.Now(), &err)
	tag, err := r.q.Exec(ctx, `UPDATE matches SET predictions_locked = TRUE, updated_at = $2
		WHERE NOT predictions_locked AND status IN ('pending', 'postponed') AND scheduled_at <= $1`,
		cutoff, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("matches.lock_due: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
