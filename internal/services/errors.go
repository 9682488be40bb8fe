// Package services holds the use-cases of the story backend: accounts,
// stories and comments, and the AI writing assistant.
//
// This file centralizes the service-level error values. Services wrap them
// with detail via fmt.Errorf("%w: ...") and handlers map them to HTTP
// statuses with errors.Is, so a wrapped message never changes the status.
package services

import "errors"

var (
	// ErrInvalidRequest indicates missing or malformed input.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrNotFound indicates the target entity does not exist, or is hidden
	// from the caller.
	ErrNotFound = errors.New("not found")

	// ErrForbidden indicates the caller may not act on an existing entity.
	ErrForbidden = errors.New("forbidden")

	// ErrUnauthenticated is returned when an operation needs an identity and
	// none was supplied.
	ErrUnauthenticated = errors.New("authentication required")

	// ErrInvalidCredentials is the single answer to a failed login, whether
	// the username or the password was wrong.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrUsernameTaken is returned on register or rename to an existing username.
	ErrUsernameTaken = errors.New("username already taken")

	// ErrUpstream indicates the completion provider failed. The raw provider
	// error is logged, never wrapped into the returned value.
	ErrUpstream = errors.New("error generating AI response")

	// ErrNotConfigured is returned when the assistant has no provider.
	ErrNotConfigured = errors.New("AI assistant is not configured")

	// ErrInternal indicates a persistence or other unexpected failure.
	ErrInternal = errors.New("internal error")
)
