package apierr

// Code is a machine-readable error code returned in API responses.
type Code string

// Common errors.
const (
	CodeInvalidRequestBody Code = "INVALID_REQUEST_BODY"
	CodeInvalidID          Code = "INVALID_ID"
	CodeInternalError      Code = "INTERNAL_ERROR"
)

// Repository errors.
const (
	CodeRepoNotFound   Code = "REPO_NOT_FOUND"
	CodeInvalidRepo    Code = "INVALID_REPO"
	CodeRepoListFailed Code = "REPO_LIST_FAILED"
)

// Ingest run errors.
const (
	CodeRunNotFound     Code = "RUN_NOT_FOUND"
	CodeInvalidRunID    Code = "INVALID_RUN_ID"
	CodeRunCreateFailed Code = "RUN_CREATE_FAILED"
	CodeRunListFailed   Code = "RUN_LIST_FAILED"
	CodeEnqueueFailed   Code = "ENQUEUE_FAILED"
)

// Health errors.
const (
	CodeDatabaseNotReady Code = "DATABASE_NOT_READY"
)
