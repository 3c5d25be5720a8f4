package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okian/scoreline/internal/domain/lifecycle"
	"github.com/okian/scoreline/internal/domain/model"
	"github.com/okian/scoreline/pkg/metrics"
)

const backendMemory = "memory"

type pairKey struct{ user, match string }

// state is one consistent version of every table.
type state struct {
	matches     map[string]model.Match
	predictions map[string]model.Prediction
	pairs       map[pairKey]string
	users       map[string]model.User
	usernames   map[string]string // folded username -> id
	emails      map[string]string // email -> id
}

func newState() *state {
	return &state{
		matches:     make(map[string]model.Match),
		predictions: make(map[string]model.Prediction),
		pairs:       make(map[pairKey]string),
		users:       make(map[string]model.User),
		usernames:   make(map[string]string),
		emails:      make(map[string]string),
	}
}

// clone copies the maps. Entity values are copied by value; their pointer
// fields are never mutated in place, so sharing them is safe.
func (s *state) clone() *state {
	c := &state{
		matches:     make(map[string]model.Match, len(s.matches)),
		predictions: make(map[string]model.Prediction, len(s.predictions)),
		pairs:       make(map[pairKey]string, len(s.pairs)),
		users:       make(map[string]model.User, len(s.users)),
		usernames:   make(map[string]string, len(s.usernames)),
		emails:      make(map[string]string, len(s.emails)),
	}
	for k, v := range s.matches {
		c.matches[k] = v
	}
	for k, v := range s.predictions {
		c.predictions[k] = v
	}
	for k, v := range s.pairs {
		c.pairs[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.usernames {
		c.usernames[k] = v
	}
	for k, v := range s.emails {
		c.emails[k] = v
	}
	return c
}

// access is how a repository view reaches its state.
type access interface {
	read(ctx context.Context, op string, fn func(*state) error) error
	write(ctx context.Context, op string, fn func(*state) error) error
}

// MemoryStore keeps every table in process memory.
//
// Writers are serialized by wmu. Single writes mutate the live state under
// mu; transactions work on a private clone and swap it in on commit, so
// readers never observe a half-applied transaction.
type MemoryStore struct {
	wmu sync.Mutex
	mu  sync.RWMutex
	st  *state
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{st: newState()}
}

// Close is a no-op; the data lives as long as the store value.
func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) Matches() MatchRepository           { return memMatches{acc: s} }
func (s *MemoryStore) Predictions() PredictionRepository { return memPredictions{acc: s} }
func (s *MemoryStore) Users() UserRepository             { return memUsers{acc: s} }

func (s *MemoryStore) read(ctx context.Context, op string, fn func(*state) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	s.mu.RLock()
	err := fn(s.st)
	s.mu.RUnlock()
	observe(op, start, err)
	return err
}

func (s *MemoryStore) write(ctx context.Context, op string, fn func(*state) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	s.wmu.Lock()
	s.mu.Lock()
	err := fn(s.st)
	s.mu.Unlock()
	s.wmu.Unlock()
	observe(op, start, err)
	return err
}

// Tx runs fn on a clone of the current state. fn must only use tx; calling
// back into s from inside fn deadlocks.
func (s *MemoryStore) Tx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	s.wmu.Lock()
	defer s.wmu.Unlock()

	work := s.st.clone()
	view := &memTx{st: work}
	if err := fn(ctx, view); err != nil {
		observe("tx", start, err)
		return err
	}
	if err := ctx.Err(); err != nil {
		observe("tx", start, err)
		return err
	}
	s.mu.Lock()
	s.st = work
	s.mu.Unlock()
	observe("tx", start, nil)
	return nil
}

func observe(op string, start time.Time, err error) {
	metrics.RecordStoreOperation(backendMemory, op, float64(time.Since(start).Microseconds())/1000)
	if err != nil {
		metrics.RecordStoreError(backendMemory, op)
	}
}

// memTx is the view handed to a transaction body.
type memTx struct {
	st *state
}

func (t *memTx) Matches() MatchRepository           { return memMatches{acc: t} }
func (t *memTx) Predictions() PredictionRepository { return memPredictions{acc: t} }
func (t *memTx) Users() UserRepository             { return memUsers{acc: t} }
func (t *memTx) Close() error                      { return nil }

// Tx inside a transaction joins it.
func (t *memTx) Tx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	return fn(ctx, t)
}

func (t *memTx) read(ctx context.Context, _ string, fn func(*state) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(t.st)
}

func (t *memTx) write(ctx context.Context, op string, fn func(*state) error) error {
	return t.read(ctx, op, fn)
}

// ---- matches ----

type memMatches struct {
	acc access
}

func (r memMatches) Create(ctx context.Context, m model.Match) error {
	if err := m.Check(); err != nil {
		return err
	}
	return r.acc.write(ctx, "matches.create", func(st *state) error {
		if _, ok := st.matches[m.ID]; ok {
			return fmt.Errorf("%w: match %s", model.ErrDuplicate, m.ID)
		}
		st.matches[m.ID] = m
		return nil
	})
}

func (r memMatches) Get(ctx context.Context, id string) (model.Match, error) {
	var out model.Match
	err := r.acc.read(ctx, "matches.get", func(st *state) error {
		m, ok := st.matches[id]
		if !ok {
			return model.NotFound("match", id)
		}
		out = m
		return nil
	})
	return out, err
}

// GetForUpdate is Get. Transactions already run one at a time.
func (r memMatches) GetForUpdate(ctx context.Context, id string) (model.Match, error) {
	return r.Get(ctx, id)
}

func (r memMatches) List(ctx context.Context, f model.MatchFilter) ([]model.Match, error) {
	var out []model.Match
	err := r.acc.read(ctx, "matches.list", func(st *state) error {
		for _, m := range st.matches {
			if f.Matches(m) {
				out = append(out, m)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScheduledAt.Equal(out[j].ScheduledAt) {
			return out[i].ScheduledAt.Before(out[j].ScheduledAt)
		}
		return out[i].ID < out[j].ID
	})
	lo, hi := page(len(out), f.Offset, f.Limit)
	return out[lo:hi], nil
}

func (r memMatches) Count(ctx context.Context, f model.MatchFilter) (int, error) {
	n := 0
	err := r.acc.read(ctx, "matches.count", func(st *state) error {
		for _, m := range st.matches {
			if f.Matches(m) {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r memMatches) Update(ctx context.Context, m model.Match, expected model.MatchStatus) error {
	if err := m.Check(); err != nil {
		return err
	}
	return r.acc.write(ctx, "matches.update", func(st *state) error {
		cur, ok := st.matches[m.ID]
		if !ok {
			return model.NotFound("match", m.ID)
		}
		if cur.Status != expected {
			return fmt.Errorf("%w: match %s is %s, expected %s", ErrConflict, m.ID, cur.Status, expected)
		}
		m.TotalPredictions = cur.TotalPredictions
		st.matches[m.ID] = m
		return nil
	})
}

func (r memMatches) IncrementPredictions(ctx context.Context, id string, delta int) error {
	return r.acc.write(ctx, "matches.increment", func(st *state) error {
		m, ok := st.matches[id]
		if !ok {
			return model.NotFound("match", id)
		}
		m.TotalPredictions += delta
		if m.TotalPredictions < 0 {
			m.TotalPredictions = 0
		}
		st.matches[id] = m
		return nil
	})
}

func (r memMatches) LockDue(ctx context.Context, cutoff, now time.Time) (int, error) {
	n := 0
	err := r.acc.write(ctx, "matches.lock_due", func(st *state) error {
		for id, m := range st.matches {
			if !lifecycle.DueForLock(m, cutoff) {
				continue
			}
			locked, _ := lifecycle.Lock(m, now)
			st.matches[id] = locked
			n++
		}
		return nil
	})
	return n, err
}

// ---- predictions ----

type memPredictions struct {
	acc access
}

func (r memPredictions) Create(ctx context.Context, p model.Prediction) error {
	return r.acc.write(ctx, "predictions.create", func(st *state) error {
		key := pairKey{p.UserID, p.MatchID}
		if _, ok := st.pairs[key]; ok {
			return fmt.Errorf("%w: prediction by user %s for match %s", model.ErrDuplicate, p.UserID, p.MatchID)
		}
		if _, ok := st.predictions[p.ID]; ok {
			return fmt.Errorf("%w: prediction %s", model.ErrDuplicate, p.ID)
		}
		st.predictions[p.ID] = p
		st.pairs[key] = p.ID
		return nil
	})
}

func (r memPredictions) Get(ctx context.Context, id string) (model.Prediction, error) {
	var out model.Prediction
	err := r.acc.read(ctx, "predictions.get", func(st *state) error {
		p, ok := st.predictions[id]
		if !ok {
			return model.NotFound("prediction", id)
		}
		out = p
		return nil
	})
	return out, err
}

func (r memPredictions) GetByUserAndMatch(ctx context.Context, userID, matchID string) (model.Prediction, error) {
	var out model.Prediction
	err := r.acc.read(ctx, "predictions.get_pair", func(st *state) error {
		id, ok := st.pairs[pairKey{userID, matchID}]
		if !ok {
			return model.NotFound("prediction", userID+"/"+matchID)
		}
		out = st.predictions[id]
		return nil
	})
	return out, err
}

func (r memPredictions) List(ctx context.Context, f model.PredictionFilter) ([]model.Prediction, error) {
	var out []model.Prediction
	err := r.acc.read(ctx, "predictions.list", func(st *state) error {
		for _, p := range st.predictions {
			if f.Matches(p) {
				out = append(out, p)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	lo, hi := page(len(out), f.Offset, f.Limit)
	return out[lo:hi], nil
}

func (r memPredictions) Count(ctx context.Context, f model.PredictionFilter) (int, error) {
	n := 0
	err := r.acc.read(ctx, "predictions.count", func(st *state) error {
		for _, p := range st.predictions {
			if f.Matches(p) {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r memPredictions) Update(ctx context.Context, p model.Prediction) error {
	return r.acc.write(ctx, "predictions.update", func(st *state) error {
		cur, ok := st.predictions[p.ID]
		if !ok {
			return model.NotFound("prediction", p.ID)
		}
		if cur.IsScored {
			return fmt.Errorf("%w: prediction %s already scored", ErrConflict, p.ID)
		}
		cur.PredictedHome = p.PredictedHome
		cur.PredictedAway = p.PredictedAway
		cur.UpdatedAt = p.UpdatedAt
		st.predictions[p.ID] = cur
		return nil
	})
}

func (r memPredictions) Settle(ctx context.Context, p model.Prediction) (bool, error) {
	if !p.IsScored || p.Points == nil {
		return false, model.Invalid("prediction", "settle requires a scored prediction")
	}
	settled := false
	err := r.acc.write(ctx, "predictions.settle", func(st *state) error {
		cur, ok := st.predictions[p.ID]
		if !ok {
			return model.NotFound("prediction", p.ID)
		}
		if cur.IsScored {
			return nil
		}
		cur.IsScored = true
		cur.Points = p.Points
		cur.Rationale = p.Rationale
		cur.ActualHome = p.ActualHome
		cur.ActualAway = p.ActualAway
		cur.ScoredAt = p.ScoredAt
		st.predictions[p.ID] = cur
		settled = true
		return nil
	})
	return settled, err
}

func (r memPredictions) Delete(ctx context.Context, id string) error {
	return r.acc.write(ctx, "predictions.delete", func(st *state) error {
		cur, ok := st.predictions[id]
		if !ok {
			return model.NotFound("prediction", id)
		}
		if cur.IsScored {
			return fmt.Errorf("%w: prediction %s already scored", ErrConflict, id)
		}
		delete(st.predictions, id)
		delete(st.pairs, pairKey{cur.UserID, cur.MatchID})
		return nil
	})
}

func (r memPredictions) DeleteByUser(ctx context.Context, userID string) (int, error) {
	n := 0
	err := r.acc.write(ctx, "predictions.delete_user", func(st *state) error {
		for id, p := range st.predictions {
			if p.UserID != userID {
				continue
			}
			delete(st.predictions, id)
			delete(st.pairs, pairKey{p.UserID, p.MatchID})
			n++
		}
		return nil
	})
	return n, err
}

// ---- users ----

type memUsers struct {
	acc access
}

func (r memUsers) Create(ctx context.Context, u model.User) error {
	return r.acc.write(ctx, "users.create", func(st *state) error {
		if _, ok := st.users[u.ID]; ok {
			return fmt.Errorf("%w: user %s", model.ErrDuplicate, u.ID)
		}
		folded := model.Fold(u.Username)
		if _, ok := st.usernames[folded]; ok {
			return fmt.Errorf("%w: username %q", model.ErrDuplicate, u.Username)
		}
		if _, ok := st.emails[u.Email]; ok {
			return fmt.Errorf("%w: email %q", model.ErrDuplicate, u.Email)
		}
		st.users[u.ID] = u
		st.usernames[folded] = u.ID
		st.emails[u.Email] = u.ID
		return nil
	})
}

func (r memUsers) Get(ctx context.Context, id string) (model.User, error) {
	var out model.User
	err := r.acc.read(ctx, "users.get", func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return model.NotFound("user", id)
		}
		out = u
		return nil
	})
	return out, err
}

func (r memUsers) GetByUsername(ctx context.Context, username string) (model.User, error) {
	var out model.User
	err := r.acc.read(ctx, "users.get_username", func(st *state) error {
		id, ok := st.usernames[model.Fold(username)]
		if !ok {
			return model.NotFound("user", username)
		}
		out = st.users[id]
		return nil
	})
	return out, err
}

func (r memUsers) GetByEmail(ctx context.Context, email string) (model.User, error) {
	var out model.User
	err := r.acc.read(ctx, "users.get_email", func(st *state) error {
		id, ok := st.emails[email]
		if !ok {
			return model.NotFound("user", email)
		}
		out = st.users[id]
		return nil
	})
	return out, err
}

func (r memUsers) List(ctx context.Context, f model.UserFilter) ([]model.User, error) {
	var out []model.User
	err := r.acc.read(ctx, "users.list", func(st *state) error {
		for _, u := range st.users {
			if f.Matches(u) {
				out = append(out, u)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	lo, hi := page(len(out), f.Offset, f.Limit)
	return out[lo:hi], nil
}

func (r memUsers) Count(ctx context.Context, f model.UserFilter) (int, error) {
	n := 0
	err := r.acc.read(ctx, "users.count", func(st *state) error {
		for _, u := range st.users {
			if f.Matches(u) {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r memUsers) Update(ctx context.Context, u model.User) error {
	return r.acc.write(ctx, "users.update", func(st *state) error {
		cur, ok := st.users[u.ID]
		if !ok {
			return model.NotFound("user", u.ID)
		}
		if u.Email != cur.Email {
			if owner, taken := st.emails[u.Email]; taken && owner != u.ID {
				return fmt.Errorf("%w: email %q", model.ErrDuplicate, u.Email)
			}
			delete(st.emails, cur.Email)
			st.emails[u.Email] = u.ID
		}
		cur.Email = u.Email
		cur.DisplayName = u.DisplayName
		cur.Active = u.Active
		cur.LastLoginAt = u.LastLoginAt
		cur.UpdatedAt = u.UpdatedAt
		st.users[u.ID] = cur
		return nil
	})
}

func (r memUsers) IncrementTotals(ctx context.Context, id string, predictions, points int) error {
	return r.acc.write(ctx, "users.increment", func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return model.NotFound("user", id)
		}
		u.TotalPredictions += predictions
		if u.TotalPredictions < 0 {
			u.TotalPredictions = 0
		}
		u.TotalPoints += points
		st.users[id] = u
		return nil
	})
}

func (r memUsers) SetTotals(ctx context.Context, id string, predictions, points int, now time.Time) error {
	return r.acc.write(ctx, "users.set_totals", func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return model.NotFound("user", id)
		}
		u.TotalPredictions = predictions
		u.TotalPoints = points
		u.UpdatedAt = now
		st.users[id] = u
		return nil
	})
}

func (r memUsers) Delete(ctx context.Context, id string) error {
	return r.acc.write(ctx, "users.delete", func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return model.NotFound("user", id)
		}
		for k, p := range st.pairs {
			if k.user == id {
				return fmt.Errorf("%w: user %s still owns prediction %s", ErrConflict, id, p)
			}
		}
		delete(st.users, id)
		delete(st.usernames, model.Fold(u.Username))
		delete(st.emails, u.Email)
		return nil
	})
}
