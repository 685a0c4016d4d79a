package osuapi

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrAuth is returned when the client-credentials exchange fails or the API keeps
	// rejecting a freshly issued token.
	ErrAuth = errors.New("osu! authentication failed")
	// ErrUserNotFound covers both an explicit upstream "no such user" and a user payload
	// that cannot be built into a User.
	ErrUserNotFound = errors.New("osu! user not found")
	// ErrBeatmapNotFound is returned when the beatmap endpoint answers with an error field.
	ErrBeatmapNotFound = errors.New("osu! beatmap not found")
)

// AuthError wraps the underlying cause of an authentication failure.
type AuthError struct {
	Cause error
}

func (e *AuthError) Error() string {
	if e.Cause == nil {
		return ErrAuth.Error()
	}
	return ErrAuth.Error() + ": " + e.Cause.Error()
}

func (e *AuthError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrAuth}
	}
	return []error{ErrAuth, e.Cause}
}

// InvalidCategoryError is returned before any request is made when a category falls outside
// the enumerated set for the endpoint.
type InvalidCategoryError struct {
	Kind    string // "Beatmap" or "Score"
	Given   string
	Allowed []string
}

func (e *InvalidCategoryError) Error() string {
	return fmt.Sprintf("%s type must be in %s", e.Kind, strings.Join(e.Allowed, ", "))
}

// StatusError is an unexpected non-2xx response from the statistics API.
type StatusError struct {
	Endpoint string
	Status   int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("osu! api %s: unexpected status %d: %s", e.Endpoint, e.Status, e.Body)
}

// constructionError reports a missing or malformed strict field while building a value object.
type constructionError struct {
	Entity string
	Field  string
}

func (e *constructionError) Error() string {
	return fmt.Sprintf("build %s: missing required field %q", e.Entity, e.Field)
}
