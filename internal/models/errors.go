package models

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrJobActive is returned when a submission arrives while a job is outstanding
	ErrJobActive = errors.New("a download job is already in progress")

	// ErrNoDescriptor is returned when format selection happens before analysis
	ErrNoDescriptor = errors.New("no analyzed media to select a format from")
)

// Default user-facing messages when the backend gives none
const (
	DefaultAnalyzeMessage  = "Failed to analyze video"
	DefaultQueueMessage    = "Failed to queue download"
	DefaultStatusMessage   = "Failed to fetch job status"
	DefaultDownloadMessage = "File not ready or job failed"
	DefaultJobFailure      = "Download failed"
)

// ValidationError is raised before any network call for bad input
type ValidationError struct {
	Field      string
	Message    string
	Suggestion string
}

func (e *ValidationError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("invalid %s: %s (did you mean %q?)", e.Field, e.Message, e.Suggestion)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// TransportError wraps a network-level failure of an outbound request
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: request failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// BackendError is a non-success HTTP status carrying the backend message
type BackendError struct {
	Op         string
	StatusCode int
	Message    string
}

// Error returns the backend message verbatim so it can be shown to the user
func (e *BackendError) Error() string {
	return e.Message
}

// JobFailure is a backend-reported failed job
type JobFailure struct {
	JobID   string
	Message string
}

func (e *JobFailure) Error() string {
	return e.Message
}

// StalledError is the client-observed outcome of a job that stopped answering
type StalledError struct {
	JobID               string
	Reason              string
	ConsecutiveFailures int
	Elapsed             time.Duration
	LastErr             error
}

func (e *StalledError) Error() string {
	return fmt.Sprintf("job %s stalled: %s", e.JobID, e.Reason)
}

func (e *StalledError) Unwrap() error {
	return e.LastErr
}

// IsTransport reports whether err is, or wraps, a TransportError
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// UserMessage returns the text to surface for err
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var (
		be *BackendError
		jf *JobFailure
		te *TransportError
	)
	switch {
	case errors.As(err, &be):
		return be.Message
	case errors.As(err, &jf):
		return jf.Message
	case errors.As(err, &te):
		return "Network error: could not reach the download service"
	}
	return err.Error()
}
