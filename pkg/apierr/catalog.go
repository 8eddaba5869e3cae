package apierr

import "net/http"

// --- Common ---

func InvalidRequestBody() *Error {
	return New(CodeInvalidRequestBody, http.StatusBadRequest, "Invalid request body")
}

func InvalidID(entity string) *Error {
	return New(CodeInvalidID, http.StatusBadRequest, "Invalid "+entity+" ID")
}

func InternalError(cause error) *Error {
	return Wrap(CodeInternalError, http.StatusInternalServerError, "Internal server error", cause)
}

// --- Repository ---

func RepoNotFound() *Error {
	return New(CodeRepoNotFound, http.StatusNotFound, "Repository not found")
}

func InvalidRepo() *Error {
	return New(CodeInvalidRepo, http.StatusBadRequest, "Owner and repository name must be non-empty")
}

func RepoListFailed(cause error) *Error {
	return Wrap(CodeRepoListFailed, http.StatusInternalServerError, "Failed to list repositories", cause)
}

// --- Ingest run ---

func RunNotFound() *Error {
	return New(CodeRunNotFound, http.StatusNotFound, "Ingest run not found")
}

func InvalidRunID() *Error {
	return New(CodeInvalidRunID, http.StatusBadRequest, "Invalid run ID")
}

func RunCreateFailed(cause error) *Error {
	return Wrap(CodeRunCreateFailed, http.StatusInternalServerError, "Failed to create ingest run", cause)
}

func RunListFailed(cause error) *Error {
	return Wrap(CodeRunListFailed, http.StatusInternalServerError, "Failed to list ingest runs", cause)
}

func EnqueueFailed(cause error) *Error {
	return Wrap(CodeEnqueueFailed, http.StatusInternalServerError, "Failed to enqueue ingest job", cause)
}

// --- Health ---

func DatabaseNotReady() *Error {
	return New(CodeDatabaseNotReady, http.StatusServiceUnavailable, "Database not ready")
}
