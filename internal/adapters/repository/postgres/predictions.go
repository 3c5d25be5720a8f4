package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/okian/scoreline/internal/domain/model"
)

const predictionColumns = `id, user_id, match_id, predicted_home, predicted_away, is_scored, points,
	rationale, actual_home, actual_away, created_at, updated_at, scored_at`

type predictions struct {
	q querier
}

func scanPrediction(row pgx.CollectableRow) (model.Prediction, error) {
	var p model.Prediction
	err := row.Scan(&p.ID, &p.UserID, &p.MatchID, &p.PredictedHome, &p.PredictedAway, &p.IsScored, &p.Points,
		&p.Rationale, &p.ActualHome, &p.ActualAway, &p.CreatedAt, &p.UpdatedAt, &p.ScoredAt)
	return p, err
}

func (r predictions) Create(ctx context.Context, p model.Prediction) (err error) {
	defer track("predictions.create", time.Now(), &err)
	_, err = r.q.Exec(ctx, `INSERT INTO predictions (`+predictionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		p.ID, p.UserID, p.MatchID, p.PredictedHome, p.PredictedAway, p.IsScored, p.Points,
		p.Rationale, p.ActualHome, p.ActualAway, p.CreatedAt, p.UpdatedAt, p.ScoredAt)
	return mapErr(err, "prediction", p.ID)
}

func (r predictions) one(ctx context.Context, op, key, cond string, args ...any) (model.Prediction, error) {
	start := time.Now()
	rows, err := r.q.Query(ctx, `SELECT `+predictionColumns+` FROM predictions WHERE `+cond, args...)
	if err != nil {
		observe(op, start, err)
		return model.Prediction{}, mapErr(err, "prediction", key)
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanPrediction)
	observe(op, start, err)
	return p, mapErr(err, "prediction", key)
}

func (r predictions) Get(ctx context.Context, id string) (model.Prediction, error) {
	return r.one(ctx, "predictions.get", id, "id = $1", id)
}

func (r predictions) GetByUserAndMatch(ctx context.Context, userID, matchID string) (model.Prediction, error) {
	return r.one(ctx, "predictions.get_pair", userID+"/"+matchID, "user_id = $1 AND match_id = $2", userID, matchID)
}

func (r predictions) List(ctx context.Context, f model.PredictionFilter) ([]model.Prediction, error) {
	start := time.Now()
	w := predictionWhere(f)
	rows, err := r.q.Query(ctx, `SELECT `+predictionColumns+` FROM predictions`+w.page("created_at, id", f.Limit, f.Offset), w.args...)
	if err != nil {
		observe("predictions.list", start, err)
		return nil, fmt.Errorf("predictions.list: %w", err)
	}
	out, err := pgx.CollectRows(rows, scanPrediction)
	observe("predictions.list", start, err)
	if err != nil {
		return nil, fmt.Errorf("predictions.list: %w", err)
	}
	return out, nil
}

func (r predictions) Count(ctx context.Context, f model.PredictionFilter) (int, error) {
	w := predictionWhere(f)
	var n int
	if err := r.q.QueryRow(ctx, `SELECT count(*) FROM predictions`+w.sql, w.args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("predictions.count: %w", err)
	}
	return n, nil
}

func (r predictions) Update(ctx context.Context, p model.Prediction) (err error) {
	defer track("predictions.update", time.Now(), &err)
	tag, err := r.q.Exec(ctx, `UPDATE predictions SET predicted_home = $2, predicted_away = $3, updated_at = $4
		WHERE id = $1 AND NOT is_scored`, p.ID, p.PredictedHome, p.PredictedAway, p.UpdatedAt)
	if err != nil {
		return mapErr(err, "prediction", p.ID)
	}
	if tag.RowsAffected() == 0 {
		return missingOrConflict(ctx, r.q, "predictions", "prediction", p.ID, "already scored")
	}
	return nil
}

func (r predictions) Settle(ctx context.Context, p model.Prediction) (settled bool, err error) {
	defer track("predictions.settle", time.Now(), &err)
	if !p.IsScored || p.Points == nil {
		return false, model.Invalid("prediction", "settle requires a scored prediction")
	}
	tag, err := r.q.Exec(ctx, `UPDATE predictions SET is_scored = TRUE, points = $2, rationale = $3,
			actual_home = $4, actual_away = $5, scored_at = $6
		WHERE id = $1 AND NOT is_scored`,
		p.ID, p.Points, p.Rationale, p.ActualHome, p.ActualAway, p.ScoredAt)
	if err != nil {
		return false, mapErr(err, "prediction", p.ID)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}
	ok, err := exists(ctx, r.q, "predictions", p.ID)
	if err != nil {
		return false, mapErr(err, "prediction", p.ID)
	}
	if !ok {
		return false, model.NotFound("prediction", p.ID)
	}
	return false, nil
}

func (r predictions) Delete(ctx context.Context, id string) (err error) {
	defer track("predictions.delete", time.Now(), &err)
	tag, err := r.q.Exec(ctx, `DELETE FROM predictions WHERE id = $1 AND NOT is_scored`, id)
	if err != nil {
		return mapErr(err, "prediction", id)
	}
	if tag.RowsAffected() == 0 {
		return missingOrConflict(ctx, r.q, "predictions", "prediction", id, "already scored")
	}
	return nil
}

func (r predictions) DeleteByUser(ctx context.Context, userID string) (n int, err error) {
	defer track("predictions.delete_user", time.Now(), &err)
	tag, err := r.q.Exec(ctx, `DELETE FROM predictions WHERE user_id = $1`, userID)
	if err != nil {
		return 0, mapErr(err, "user", userID)
	}
	return int(tag.RowsAffected()), nil
}
