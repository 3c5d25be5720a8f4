// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MatchStatus is the lifecycle state of a match.
type MatchStatus string

const (
	StatusPending   MatchStatus = "pending"
	StatusLive      MatchStatus = "live"
	StatusFinished  MatchStatus = "finished"
	StatusCancelled MatchStatus = "cancelled"
	StatusPostponed MatchStatus = "postponed"
)

// Valid reports whether s is a known status.
func (s MatchStatus) Valid() bool {
	switch s {
	case StatusPending, StatusLive, StatusFinished, StatusCancelled, StatusPostponed:
		return true
	}
	return false
}

// ParseMatchStatus validates a status string.
func ParseMatchStatus(s string) (MatchStatus, error) {
	st := MatchStatus(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", Invalid("status", "unknown match status %q", s)
	}
	return st, nil
}

// Sport is the discipline a match belongs to.
type Sport string

const (
	SportFootball   Sport = "football"
	SportHockey     Sport = "hockey"
	SportBasketball Sport = "basketball"
	SportTennis     Sport = "tennis"
)

// Valid reports whether s is a supported sport.
func (s Sport) Valid() bool {
	switch s {
	case SportFootball, SportHockey, SportBasketball, SportTennis:
		return true
	}
	return false
}

// Outcome is the result class of a scoreline.
type Outcome string

const (
	OutcomeHomeWin Outcome = "home_win"
	OutcomeAwayWin Outcome = "away_win"
	OutcomeDraw    Outcome = "draw"
)

// OutcomeOf classifies a scoreline.
func OutcomeOf(home, away int) Outcome {
	switch {
	case home > away:
		return OutcomeHomeWin
	case away > home:
		return OutcomeAwayWin
	default:
		return OutcomeDraw
	}
}

// Match is a scheduled contest between two teams.
type Match struct {
	ID                string      `json:"id"`
	HomeTeam          string      `json:"home_team"`
	AwayTeam          string      `json:"away_team"`
	Sport             Sport       `json:"sport"`
	League            string      `json:"league,omitempty"`
	Season            string      `json:"season,omitempty"`
	ScheduledAt       time.Time   `json:"scheduled_at"`
	Status            MatchStatus `json:"status"`
	HomeScore         *int        `json:"home_score,omitempty"`
	AwayScore         *int        `json:"away_score,omitempty"`
	PredictionsLocked bool        `json:"predictions_locked"`
	TotalPredictions  int         `json:"total_predictions"`
	StartedAt         *time.Time  `json:"started_at,omitempty"`
	FinishedAt        *time.Time  `json:"finished_at,omitempty"`
	CancelledAt       *time.Time  `json:"cancelled_at,omitempty"`
	CancelReason      string      `json:"cancel_reason,omitempty"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

// MatchSpec is the input for scheduling a new match.
type MatchSpec struct {
	HomeTeam    string
	AwayTeam    string
	ScheduledAt time.Time
	Sport       Sport
	League      string
	Season      string
}

// NewMatch validates spec and returns a pending, unlocked match.
func NewMatch(spec MatchSpec, now time.Time) (Match, error) {
	m := Match{
		ID:          uuid.NewString(),
		HomeTeam:    strings.TrimSpace(spec.HomeTeam),
		AwayTeam:    strings.TrimSpace(spec.AwayTeam),
		Sport:       spec.Sport,
		League:      strings.TrimSpace(spec.League),
		Season:      strings.TrimSpace(spec.Season),
		ScheduledAt: spec.ScheduledAt.UTC(),
		Status:      StatusPending,
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	}
	if m.Sport == "" {
		m.Sport = SportFootball
	}
	if err := m.validateDetails(); err != nil {
		return Match{}, err
	}
	if !m.ScheduledAt.After(now) {
		return Match{}, Invalid("scheduled_at", "must be in the future")
	}
	return m, nil
}

func (m Match) validateDetails() error {
	if err := validateLength("home_team", m.HomeTeam, 1, MaxTeamNameLen); err != nil {
		return err
	}
	if err := validateLength("away_team", m.AwayTeam, 1, MaxTeamNameLen); err != nil {
		return err
	}
	if Fold(m.HomeTeam) == Fold(m.AwayTeam) {
		return Invalid("away_team", "home and away teams must differ")
	}
	if !m.Sport.Valid() {
		return Invalid("sport", "unsupported sport %q", m.Sport)
	}
	if err := validateLength("league", m.League, 0, MaxLeagueLen); err != nil {
		return err
	}
	return validateLength("season", m.Season, 0, MaxSeasonLen)
}

// MatchDetails carries optional descriptive changes. Nil fields are left alone.
type MatchDetails struct {
	HomeTeam *string
	AwayTeam *string
	Sport    *Sport
	League   *string
	Season   *string
}

// Empty reports whether no field is set.
func (d MatchDetails) Empty() bool {
	return d.HomeTeam == nil && d.AwayTeam == nil && d.Sport == nil && d.League == nil && d.Season == nil
}

// WithDetails returns a copy of m with d applied and validated.
func (m Match) WithDetails(d MatchDetails, now time.Time) (Match, error) {
	if m.Status == StatusFinished || m.Status == StatusCancelled {
		return Match{}, &StateError{Op: "edit", Entity: "match", Status: string(m.Status)}
	}
	if d.HomeTeam != nil {
		m.HomeTeam = strings.TrimSpace(*d.HomeTeam)
	}
	if d.AwayTeam != nil {
		m.AwayTeam = strings.TrimSpace(*d.AwayTeam)
	}
	if d.Sport != nil {
		m.Sport = *d.Sport
	}
	if d.League != nil {
		m.League = strings.TrimSpace(*d.League)
	}
	if d.Season != nil {
		m.Season = strings.TrimSpace(*d.Season)
	}
	if err := m.validateDetails(); err != nil {
		return Match{}, err
	}
	m.UpdatedAt = now.UTC()
	return m, nil
}

// Predictable reports whether new or edited predictions are accepted.
func (m Match) Predictable() bool {
	return (m.Status == StatusPending || m.Status == StatusPostponed) && !m.PredictionsLocked
}

// Finished reports whether the final score is recorded.
func (m Match) Finished() bool {
	return m.Status == StatusFinished && m.HomeScore != nil && m.AwayScore != nil
}

// Outcome returns the result class once the match is finished.
func (m Match) Outcome() (Outcome, bool) {
	if !m.Finished() {
		return "", false
	}
	return OutcomeOf(*m.HomeScore, *m.AwayScore), true
}

// GoalDifference returns home minus away once finished.
func (m Match) GoalDifference() (int, bool) {
	if !m.Finished() {
		return 0, false
	}
	return *m.HomeScore - *m.AwayScore, true
}

// TotalGoals returns the combined score once finished.
func (m Match) TotalGoals() (int, bool) {
	if !m.Finished() {
		return 0, false
	}
	return *m.HomeScore + *m.AwayScore, true
}

// ScoreLine renders "h-a", or "vs" while the score is unknown.
func (m Match) ScoreLine() string {
	if m.HomeScore == nil || m.AwayScore == nil {
		return "vs"
	}
	return fmt.Sprintf("%d-%d", *m.HomeScore, *m.AwayScore)
}

func (m Match) String() string {
	return fmt.Sprintf("%s %s %s", m.HomeTeam, m.ScoreLine(), m.AwayTeam)
}

// Check verifies the structural rules a stored match must satisfy.
func (m Match) Check() error {
	if !m.Status.Valid() {
		return Invalid("status", "unknown match status %q", m.Status)
	}
	hasScore := m.HomeScore != nil && m.AwayScore != nil
	if (m.Status == StatusFinished) != hasScore {
		return Invalid("status", "scores must be present exactly when finished")
	}
	if (m.Status == StatusFinished) != (m.FinishedAt != nil) {
		return Invalid("finished_at", "must be present exactly when finished")
	}
	if m.Status == StatusLive && !m.PredictionsLocked {
		return Invalid("predictions_locked", "live match must be locked")
	}
	if m.TotalPredictions < 0 {
		return Invalid("total_predictions", "must not be negative")
	}
	return nil
}

// MatchFilter narrows match listings. Zero values mean "any".
type MatchFilter struct {
	Statuses      []MatchStatus
	Sport         Sport
	League        string
	Season        string
	Team          string
	ScheduledFrom time.Time
	ScheduledTo   time.Time
	Predictable   *bool
	Limit         int
	Offset        int
}

// Matches reports whether m passes every set criterion. Pagination is ignored.
func (f MatchFilter) Matches(m Match) bool {
	if len(f.Statuses) > 0 {
		ok := false
		for _, s := range f.Statuses {
			if m.Status == s {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if f.Sport != "" && m.Sport != f.Sport {
		return false
	}
	if f.League != "" && !strings.Contains(Fold(m.League), Fold(f.League)) {
		return false
	}
	if f.Season != "" && m.Season != f.Season {
		return false
	}
	if f.Team != "" {
		t := Fold(f.Team)
		if !strings.Contains(Fold(m.HomeTeam), t) && !strings.Contains(Fold(m.AwayTeam), t) {
			return false
		}
	}
	if !f.ScheduledFrom.IsZero() && m.ScheduledAt.Before(f.ScheduledFrom) {
		return false
	}
	if !f.ScheduledTo.IsZero() && m.ScheduledAt.After(f.ScheduledTo) {
		return false
	}
	if f.Predictable != nil && m.Predictable() != *f.Predictable {
		return false
	}
	return true
}
