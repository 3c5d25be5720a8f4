package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/okian/scoreline/internal/domain/model"
)

const userColumns = `id, username, email, display_name, is_active, total_predictions, total_points,
	last_login_at, created_at, updated_at`

type users struct {
	q querier
}

func scanUser(row pgx.CollectableRow) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.DisplayName, &u.Active, &u.TotalPredictions, &u.TotalPoints,
		&u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (r users) Create(ctx context.Context, u model.User) (err error) {
	defer track("users.create", time.Now(), &err)
	_, err = r.q.Exec(ctx, `INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		u.ID, u.Username, u.Email, u.DisplayName, u.Active, u.TotalPredictions, u.TotalPoints,
		u.LastLoginAt, u.CreatedAt, u.UpdatedAt)
	return mapErr(err, "user", u.Username)
}

func (r users) one(ctx context.Context, op, key, cond string, arg any) (model.User, error) {
	start := time.Now()
	rows, err := r.q.Query(ctx, `SELECT `+userColumns+` FROM users WHERE `+cond, arg)
	if err != nil {
		observe(op, start, err)
		return model.User{}, mapErr(err, "user", key)
	}
	u, err := pgx.CollectExactlyOneRow(rows, scanUser)
	observe(op, start, err)
	return u, mapErr(err, "user", key)
}

func (r users) Get(ctx context.Context, id string) (model.User, error) {
	return r.one(ctx, "users.get", id, "id = $1", id)
}

func (r users) GetByUsername(ctx context.Context, username string) (model.User, error) {
	return r.one(ctx, "users.get_username", username, "lower(username) = lower($1)", username)
}

func (r users) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return r.one(ctx, "users.get_email", email, "email = $1", email)
}

func (r users) List(ctx context.Context, f model.UserFilter) ([]model.User, error) {
	start := time.Now()
	w := userWhere(f)
	rows, err := r.q.Query(ctx, `SELECT `+userColumns+` FROM users`+w.page("created_at, id", f.Limit, f.Offset), w.args...)
	if err != nil {
		observe("users.list", start, err)
		return nil, fmt.Errorf("users.list: %w", err)
	}
	out, err := pgx.CollectRows(rows, scanUser)
	observe("users.list", start, err)
	if err != nil {
		return nil, fmt.Errorf("users.list: %w", err)
	}
	return out, nil
}

func (r users) Count(ctx context.Context, f model.UserFilter) (int, error) {
	w := userWhere(f)
	var n int
	if err := r.q.QueryRow(ctx, `SELECT count(*) FROM users`+w.sql, w.args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("users.count: %w", err)
	}
	return n, nil
}

func (r users) Update(ctx context.Context, u model.User) (err error) {
	defer track("users.update", time.Now(), &err)
	tag, err := r.q.Exec(ctx, `UPDATE users SET email = $2, display_name = $3, is_active = $4,
			last_login_at = $5, updated_at = $6
		WHERE id = $1`, u.ID, u.Email, u.DisplayName, u.Active, u.LastLoginAt, u.UpdatedAt)
	if err != nil {
		return mapErr(err, "user", u.ID)
	}
	if tag.RowsAffected() == 0 {
		return model.NotFound("user", u.ID)
	}
	return nil
}

func (r users) IncrementTotals(ctx context.Context, id string, predictions, points int) (err error) {
	defer track("users.increment", time.Now(), &err)
	tag, err := r.q.Exec(ctx, `UPDATE users SET
			total_predictions = GREATEST(total_predictions + $2, 0),
			total_points = total_points + $3
		WHERE id = $1`, id, predictions, points)
	if err != nil {
		return mapErr(err, "user", id)
	}
	if tag.RowsAffected() == 0 {
		return model.NotFound("user", id)
	}
	return nil
}

func (r users) SetTotals(ctx context.Context, id string, predictions, points int, now time.Time) (err error) {
	defer track("users.set_totals", time.Now(), &err)
	tag, err := r.q.Exec(ctx, `UPDATE users SET total_predictions = $2, total_points = $3, updated_at = $4
		WHERE id = $1`, id, predictions, points, now)
	if err != nil {
		return mapErr(err, "user", id)
	}
	if tag.RowsAffected() == 0 {
		return model.NotFound("user", id)
	}
	return nil
}

func (r users) Delete(ctx context.Context, id string) (err error) {
	defer track("users.delete", time.Now(), &err)
	tag, err := r.q.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return mapErr(err, "user", id)
	}
	if tag.RowsAffected() == 0 {
		return model.NotFound("user", id)
	}
	return nil
}
