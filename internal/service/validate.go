package service

import (
	"fmt"
	netmail "net/mail"
	"strconv"
	"strings"
	"unicode/utf8"

	"matchmaker/internal/models"
)

const (
	MaxReportReason   = 500
	MaxBio            = 2000
	maxDisplayName    = 120
	maxCity           = 120
	minAge, maxAge    = 18, 120
	maxEmailLength    = 254
	allowedGenderList = "male, female, other"
)

// ValidationError reports malformed user input; the request is not applied.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

type RegisterInput struct {
	Email       string
	Password    string
	DisplayName string
	Age         string
	Gender      string
	City        string
	Bio         string
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) validateRegistration(in RegisterInput) (string, models.Profile, error) {
	email := NormalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return "", models.Profile{}, invalid("email", "email and password are required")
	}
	if len(email) > maxEmailLength {
		return "", models.Profile{}, invalid("email", "email is too long")
	}
	addr, err := netmail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", models.Profile{}, invalid("email", "invalid email address")
	}
	if n := utf8.RuneCountInString(in.Password); n < s.cfg.PasswordMinLength || n > s.cfg.PasswordMaxLength {
		return "", models.Profile{}, invalid("password", "password must be %d-%d characters", s.cfg.PasswordMinLength, s.cfg.PasswordMaxLength)
	}

	p := models.Profile{
		DisplayName: strings.TrimSpace(in.DisplayName),
		Gender:      strings.ToLower(strings.TrimSpace(in.Gender)),
		City:        strings.TrimSpace(in.City),
		Bio:         truncateRunes(strings.TrimSpace(in.Bio), MaxBio),
	}
	if p.DisplayName == "" {
		return "", models.Profile{}, invalid("display_name", "name is required")
	}
	if utf8.RuneCountInString(p.DisplayName) > maxDisplayName {
		return "", models.Profile{}, invalid("display_name", "name must be at most %d characters", maxDisplayName)
	}
	if utf8.RuneCountInString(p.City) > maxCity {
		return "", models.Profile{}, invalid("city", "city must be at most %d characters", maxCity)
	}
	switch p.Gender {
	case "", "male", "female", "other":
	default:
		return "", models.Profile{}, invalid("gender", "gender must be one of: %s", allowedGenderList)
	}
	if v := strings.TrimSpace(in.Age); v != "" {
		age, err := strconv.Atoi(v)
		if err != nil || age < minAge || age > maxAge {
			return "", models.Profile{}, invalid("age", "age must be a number between %d and %d", minAge, maxAge)
		}
		p.Age = &age
	}
	return email, p, nil
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max])
}
