package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Prediction is one user's forecast of one match's final score.
type Prediction struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	MatchID       string     `json:"match_id"`
	PredictedHome int        `json:"predicted_home"`
	PredictedAway int        `json:"predicted_away"`
	IsScored      bool       `json:"is_scored"`
	Points        *int       `json:"points,omitempty"`
	Rationale     string     `json:"rationale,omitempty"`
	ActualHome    *int       `json:"actual_home,omitempty"`
	ActualAway    *int       `json:"actual_away,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
	ScoredAt      *time.Time `json:"scored_at,omitempty"`
}

// NewPrediction validates the identifiers and scores and returns an unscored prediction.
func NewPrediction(userID, matchID string, home, away int, now time.Time) (Prediction, error) {
	if err := ValidateID("user_id", userID); err != nil {
		return Prediction{}, err
	}
	if err := ValidateID("match_id", matchID); err != nil {
		return Prediction{}, err
	}
	if err := ValidateScore("predicted_home", home); err != nil {
		return Prediction{}, err
	}
	if err := ValidateScore("predicted_away", away); err != nil {
		return Prediction{}, err
	}
	return Prediction{
		ID:            uuid.NewString(),
		UserID:        userID,
		MatchID:       matchID,
		PredictedHome: home,
		PredictedAway: away,
		CreatedAt:     now.UTC(),
	}, nil
}

// WithScores returns a copy with the given score changes applied. Nil means unchanged.
func (p Prediction) WithScores(home, away *int, now time.Time) (Prediction, error) {
	if p.IsScored {
		return Prediction{}, &StateError{Op: "update", Entity: "prediction", Status: "scored"}
	}
	if home != nil {
		if err := ValidateScore("predicted_home", *home); err != nil {
			return Prediction{}, err
		}
		p.PredictedHome = *home
	}
	if away != nil {
		if err := ValidateScore("predicted_away", *away); err != nil {
			return Prediction{}, err
		}
		p.PredictedAway = *away
	}
	t := now.UTC()
	p.UpdatedAt = &t
	return p, nil
}

// Settle records the scoring outcome. A prediction can be settled once.
func (p Prediction) Settle(points int, rationale string, actualHome, actualAway int, at time.Time) (Prediction, error) {
	if p.IsScored {
		return Prediction{}, &StateError{Op: "score", Entity: "prediction", Status: "scored"}
	}
	t := at.UTC()
	p.IsScored = true
	p.Points = &points
	p.Rationale = rationale
	p.ActualHome = &actualHome
	p.ActualAway = &actualAway
	p.ScoredAt = &t
	return p, nil
}

// PredictedOutcome classifies the predicted scoreline.
func (p Prediction) PredictedOutcome() Outcome {
	return OutcomeOf(p.PredictedHome, p.PredictedAway)
}

// PredictedDifference is predicted home minus predicted away.
func (p Prediction) PredictedDifference() int {
	return p.PredictedHome - p.PredictedAway
}

// PredictedLine renders "h-a".
func (p Prediction) PredictedLine() string {
	return fmt.Sprintf("%d-%d", p.PredictedHome, p.PredictedAway)
}

// PointsValue returns awarded points, zero while unscored.
func (p Prediction) PointsValue() int {
	if p.Points == nil {
		return 0
	}
	return *p.Points
}

// Hit reports a scored prediction that earned points.
func (p Prediction) Hit() bool {
	return p.IsScored && p.PointsValue() > 0
}

// PredictionFilter narrows prediction listings. Zero values mean "any".
type PredictionFilter struct {
	UserID     string
	MatchID    string
	Scored     *bool
	ScoredFrom time.Time
	ScoredTo   time.Time
	Limit      int
	Offset     int
}

// Matches reports whether p passes every set criterion. Pagination is ignored.
func (f PredictionFilter) Matches(p Prediction) bool {
	if f.UserID != "" && p.UserID != f.UserID {
		return false
	}
	if f.MatchID != "" && p.MatchID != f.MatchID {
		return false
	}
	if f.Scored != nil && p.IsScored != *f.Scored {
		return false
	}
	if !f.ScoredFrom.IsZero() || !f.ScoredTo.IsZero() {
		if p.ScoredAt == nil {
			return false
		}
		if !f.ScoredFrom.IsZero() && p.ScoredAt.Before(f.ScoredFrom) {
			return false
		}
		if !f.ScoredTo.IsZero() && p.ScoredAt.After(f.ScoredTo) {
			return false
		}
	}
	return true
}
