// Package services defines the business logic of the commit database:
// webhook imports, history queries, and the commit-detail viewer. This file
// centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// Translation into HTTP status codes is performed at the handler layer.
package services

import "errors"

var (
	// ErrWritePermission is returned when the sender lacks write permission
	// for the target repository. Nothing is imported.
	ErrWritePermission = errors.New("missing write permission for repository")

	// ErrFilterRejected is returned when a query parameter fails a configured
	// privacy/validation pattern. The query is rejected before execution.
	ErrFilterRejected = errors.New("missing permissions for query")

	// ErrCommitNotFound indicates that the requested commit does not exist in
	// the requested repository.
	ErrCommitNotFound = errors.New("commit not found")

	// ErrBadPattern indicates a configured permission or filter pattern that
	// does not compile; requests are rejected rather than allowed through.
	ErrBadPattern = errors.New("configured pattern does not compile")
)
