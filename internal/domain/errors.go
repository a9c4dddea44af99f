package domain

import "errors"

// Sentinel errors for the pipeline's error taxonomy (spec §7). Wrap with
// fmt.Errorf("...: %w", ErrX) to attach context; callers compare with
// errors.Is.
var (
	// ErrSourceUnavailable means every lead hour for a model failed to download.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrDecodeFailure means downloaded bytes could not be parsed.
	ErrDecodeFailure = errors.New("decode failure")
	// ErrUnexpectedSchema means a required variable was absent from the decoded set.
	ErrUnexpectedSchema = errors.New("unexpected schema")
	// ErrInvalidGrid means field coordinates are neither regular nor projected.
	ErrInvalidGrid = errors.New("invalid grid")
	// ErrDuplicateRun means a non-error run already exists for (model, init_time).
	ErrDuplicateRun = errors.New("duplicate run")
	// ErrConcurrentRunInProgress means a pending run already exists for (model, init_time).
	ErrConcurrentRunInProgress = errors.New("concurrent run in progress")
	// ErrStorageFailure wraps relational or array-store I/O errors.
	ErrStorageFailure = errors.New("storage failure")
	// ErrPartialLeadHourFailure is internal: never surfaced to a caller, only
	// logged and counted by the orchestrator.
	ErrPartialLeadHourFailure = errors.New("partial lead hour failure")
)
