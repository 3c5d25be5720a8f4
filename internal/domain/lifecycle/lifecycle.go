// Package lifecycle holds the match state machine. Every transition is a pure
// function from a match to its next state.
//
//	pending   -> live, finished, cancelled, postponed
//	postponed -> pending (reschedule), live, finished, cancelled, postponed
//	live      -> finished, cancelled, postponed
//	finished, cancelled are terminal
package lifecycle

import (
	"strings"
	"time"

	"github.com/okian/scoreline/internal/domain/model"
)

// Transition names used for metrics and logs.
const (
	TransitionStart      = "start"
	TransitionFinish     = "finish"
	TransitionCancel     = "cancel"
	TransitionPostpone   = "postpone"
	TransitionReschedule = "reschedule"
	TransitionLock       = "lock"
	TransitionUnlock     = "unlock"
)

func stateErr(op string, m model.Match) error {
	return &model.StateError{Op: op, Entity: "match", Status: string(m.Status)}
}

// Start moves a pending or postponed match to live and locks predictions.
func Start(m model.Match, now time.Time) (model.Match, error) {
	if m.Status != model.StatusPending && m.Status != model.StatusPostponed {
		return model.Match{}, stateErr(TransitionStart, m)
	}
	t := now.UTC()
	m.Status = model.StatusLive
	m.PredictionsLocked = true
	if m.StartedAt == nil {
		m.StartedAt = &t
	}
	m.UpdatedAt = t
	return m, nil
}

// Finish records the final score of a match that has not ended yet.
func Finish(m model.Match, home, away int, now time.Time) (model.Match, error) {
	if err := model.ValidateScore("home_score", home); err != nil {
		return model.Match{}, err
	}
	if err := model.ValidateScore("away_score", away); err != nil {
		return model.Match{}, err
	}
	if m.Status == model.StatusFinished || m.Status == model.StatusCancelled {
		return model.Match{}, stateErr(TransitionFinish, m)
	}
	t := now.UTC()
	m.Status = model.StatusFinished
	m.HomeScore = &home
	m.AwayScore = &away
	m.PredictionsLocked = true
	m.FinishedAt = &t
	m.UpdatedAt = t
	return m, nil
}

// Cancel ends a match that has not finished. Cancelling a cancelled match
// again restamps it and replaces the reason when a new one is given.
func Cancel(m model.Match, reason string, now time.Time) (model.Match, error) {
	reason = strings.TrimSpace(reason)
	if len(reason) > model.MaxCancelReason {
		return model.Match{}, model.Invalid("reason", "must be at most %d characters", model.MaxCancelReason)
	}
	if m.Status == model.StatusFinished {
		return model.Match{}, stateErr(TransitionCancel, m)
	}
	t := now.UTC()
	if m.Status != model.StatusCancelled || reason != "" {
		m.CancelReason = reason
	}
	m.Status = model.StatusCancelled
	m.PredictionsLocked = true
	m.CancelledAt = &t
	m.UpdatedAt = t
	return m, nil
}

// Postpone defers a match that has not ended. A new kickoff in the future reopens
// predictions; without one the lock state is kept.
func Postpone(m model.Match, newTime *time.Time, now time.Time) (model.Match, error) {
	if m.Status == model.StatusFinished || m.Status == model.StatusCancelled {
		return model.Match{}, stateErr(TransitionPostpone, m)
	}
	m.Status = model.StatusPostponed
	if newTime != nil {
		m.ScheduledAt = newTime.UTC()
		if newTime.After(now) {
			m.PredictionsLocked = false
		}
	}
	m.UpdatedAt = now.UTC()
	return m, nil
}

// Reschedule sets a new future kickoff and returns the match to pending with
// predictions open.
func Reschedule(m model.Match, at time.Time, now time.Time) (model.Match, error) {
	if !at.After(now) {
		return model.Match{}, model.Invalid("scheduled_at", "must be in the future")
	}
	if m.Status != model.StatusPending && m.Status != model.StatusPostponed {
		return model.Match{}, stateErr(TransitionReschedule, m)
	}
	m.ScheduledAt = at.UTC()
	m.Status = model.StatusPending
	m.PredictionsLocked = false
	m.UpdatedAt = now.UTC()
	return m, nil
}

// Lock closes predictions. It reports false when the match was already locked.
func Lock(m model.Match, now time.Time) (model.Match, bool) {
	if m.PredictionsLocked {
		return m, false
	}
	m.PredictionsLocked = true
	m.UpdatedAt = now.UTC()
	return m, true
}

// Unlock reopens predictions on a pending or postponed match.
func Unlock(m model.Match, now time.Time) (model.Match, error) {
	if m.Status != model.StatusPending && m.Status != model.StatusPostponed {
		return model.Match{}, stateErr(TransitionUnlock, m)
	}
	m.PredictionsLocked = false
	m.UpdatedAt = now.UTC()
	return m, nil
}

// Predictable reports whether predictions may be placed or edited.
func Predictable(m model.Match) bool { return m.Predictable() }

// LockCutoff is the instant before which unstarted matches get locked.
func LockCutoff(now time.Time, minutesBefore int) time.Time {
	if minutesBefore < 0 {
		minutesBefore = 0
	}
	return now.Add(time.Duration(minutesBefore) * time.Minute)
}

// DueForLock reports whether the auto-lock sweep should lock m.
func DueForLock(m model.Match, cutoff time.Time) bool {
	if m.PredictionsLocked {
		return false
	}
	if m.Status != model.StatusPending && m.Status != model.StatusPostponed {
		return false
	}
	return !m.ScheduledAt.After(cutoff)
}
