package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Workflow internals and service
// mocks return these (optionally wrapped) so callers can translate them into
// domain errors.
//
// - ErrStaleCompletion: a continuation resolved after its run was superseded
// - ErrInvalidState: the workflow is in the wrong stage for the operation
// - ErrUnavailable: a collaborator could not be reached
// - ErrMalformed: a collaborator was handed an input it cannot interpret
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrStaleCompletion = errors.New("stale completion")
	ErrInvalidState    = errors.New("invalid state")
	ErrUnavailable     = errors.New("unavailable")
	ErrMalformed       = errors.New("malformed")
)
