package model

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]*$`)

// User is a registered predictor.
type User struct {
	ID               string     `json:"id"`
	Username         string     `json:"username"`
	Email            string     `json:"email"`
	DisplayName      string     `json:"display_name,omitempty"`
	Active           bool       `json:"is_active"`
	TotalPredictions int        `json:"total_predictions"`
	TotalPoints      int        `json:"total_points"`
	LastLoginAt      *time.Time `json:"last_login_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// NewUser validates the registration fields and returns an active user.
func NewUser(username, email, displayName string, now time.Time) (User, error) {
	u := User{
		ID:          uuid.NewString(),
		Username:    strings.TrimSpace(username),
		Email:       strings.ToLower(strings.TrimSpace(email)),
		DisplayName: strings.TrimSpace(displayName),
		Active:      true,
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	}
	if err := ValidateUsername(u.Username); err != nil {
		return User{}, err
	}
	if err := validateEmail(u.Email); err != nil {
		return User{}, err
	}
	if err := validateLength("display_name", u.DisplayName, 0, MaxDisplayNameLen); err != nil {
		return User{}, err
	}
	return u, nil
}

// ValidateUsername enforces length and character rules.
func ValidateUsername(username string) error {
	if err := validateLength("username", username, MinUsernameLen, MaxUsernameLen); err != nil {
		return err
	}
	if !usernamePattern.MatchString(username) {
		return Invalid("username", "must start with a letter and contain only letters, digits, '_' or '-'")
	}
	return nil
}

// UserUpdate carries optional profile changes.
type UserUpdate struct {
	Email       *string
	DisplayName *string
}

// WithUpdate returns a copy of u with upd applied and validated.
func (u User) WithUpdate(upd UserUpdate, now time.Time) (User, error) {
	if upd.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*upd.Email))
		if err := validateEmail(email); err != nil {
			return User{}, err
		}
		u.Email = email
	}
	if upd.DisplayName != nil {
		name := strings.TrimSpace(*upd.DisplayName)
		if err := validateLength("display_name", name, 0, MaxDisplayNameLen); err != nil {
			return User{}, err
		}
		u.DisplayName = name
	}
	u.UpdatedAt = now.UTC()
	return u, nil
}

// Name returns the display name, falling back to the username.
func (u User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}

// AveragePoints is total points per prediction, zero with no predictions.
func (u User) AveragePoints() float64 {
	if u.TotalPredictions == 0 {
		return 0
	}
	return float64(u.TotalPoints) / float64(u.TotalPredictions)
}

// UserFilter narrows user listings.
type UserFilter struct {
	ActiveOnly bool
	Search     string
	Limit      int
	Offset     int
}

// Matches reports whether u passes the filter. Search is a case-insensitive
// substring over username and display name.
func (f UserFilter) Matches(u User) bool {
	if f.ActiveOnly && !u.Active {
		return false
	}
	if f.Search != "" {
		q := Fold(f.Search)
		if !strings.Contains(Fold(u.Username), q) && !strings.Contains(Fold(u.DisplayName), q) {
			return false
		}
	}
	return true
}
