// Package services defines the business logic for sessions, authentication,
// analytics, and principal administration. This file centralizes common
// service-level error values so that they can be consistently returned by
// service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler/middleware layer.
package services

import "errors"

// Session and authentication errors.
var (
	// ErrSessionNotFound indicates that no session exists for the presented
	// token, or that the session is inactive or expired.
	ErrSessionNotFound = errors.New("session not found or expired")

	// ErrInvalidLogin is returned when the platform-native login proof fails
	// verification (bad hash, stale auth date, malformed payload).
	ErrInvalidLogin = errors.New("invalid login payload")

	// ErrInvalidToken is returned when a bearer token fails signature or
	// claim validation.
	ErrInvalidToken = errors.New("invalid token")

	// ErrPrincipalBlocked is returned when the owning principal of a session
	// or login attempt is currently blocked.
	ErrPrincipalBlocked = errors.New("principal is blocked")
)

// Principal administration errors.
var (
	// ErrPrincipalNotFound indicates that the requested principal does not exist.
	ErrPrincipalNotFound = errors.New("principal not found")
)

// Analytics errors.
var (
	// ErrBadPeriod is returned when a named period is unknown or a custom
	// range is incomplete or inverted.
	ErrBadPeriod = errors.New("invalid analytics period")

	// ErrBadGranularity is returned when an activity granularity is not one
	// of hour, day, week, month.
	ErrBadGranularity = errors.New("invalid activity granularity")
)
