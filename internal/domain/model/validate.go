package model

import (
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/text/cases"
)

// Input limits.
const (
	MaxScore          = 99
	MaxTeamNameLen    = 100
	MaxLeagueLen      = 100
	MaxSeasonLen      = 20
	MinUsernameLen    = 3
	MaxUsernameLen    = 30
	MaxDisplayNameLen = 50
	MaxCancelReason   = 500
)

var validate = validator.New(validator.WithRequiredStructEnabled())

var fold = cases.Fold()

// Fold returns the case-folded, trimmed form of s used for case-insensitive comparison.
func Fold(s string) string {
	return fold.String(strings.TrimSpace(s))
}

// ValidateID checks that id is a well-formed UUID.
func ValidateID(field, id string) error {
	if id == "" {
		return Invalid(field, "is required")
	}
	if _, err := uuid.Parse(id); err != nil {
		return Invalid(field, "malformed identifier %q", id)
	}
	return nil
}

// ValidateScore checks that a goal count lies in [0, MaxScore].
func ValidateScore(field string, v int) error {
	if v < 0 || v > MaxScore {
		return Invalid(field, "must be between 0 and %d, got %d", MaxScore, v)
	}
	return nil
}

func validateLength(field, v string, min, max int) error {
	n := utf8.RuneCountInString(v)
	if n < min {
		if min == 1 {
			return Invalid(field, "is required")
		}
		return Invalid(field, "must be at least %d characters", min)
	}
	if n > max {
		return Invalid(field, "must be at most %d characters", max)
	}
	return nil
}

func validateEmail(email string) error {
	if err := validate.Var(email, "required,email"); err != nil {
		return Invalid("email", "invalid address %q", email)
	}
	return nil
}
