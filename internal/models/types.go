package models

// FormatKind represents the stream composition of a backend format
type FormatKind string

const (
	FormatKindVideo FormatKind = "video" // Video only, audio merged server-side
	FormatKindAudio FormatKind = "audio"
	FormatKindMuxed FormatKind = "muxed" // Video and audio in one stream
)

// DescriptorType is the discriminator carried by analyze responses
type DescriptorType string

const (
	DescriptorTypeVideo    DescriptorType = "video"
	DescriptorTypePlaylist DescriptorType = "playlist"
)

// JobStatus represents the backend status of a download job
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// String returns the string representation of JobStatus
func (s JobStatus) String() string {
	return string(s)
}

// IsTerminal returns true if no further progress updates are expected
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// IsKnown returns true for the four statuses the backend emits
func (s JobStatus) IsKnown() bool {
	switch s {
	case JobStatusQueued, JobStatusProcessing, JobStatusCompleted, JobStatusFailed:
		return true
	}
	return false
}

// State represents the client-side orchestrator state
type State string

const (
	StateIdle       State = "idle"
	StateQueued     State = "queued"
	StateProcessing State = "processing"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
	StateError      State = "error" // Transport failure or stall, no backend verdict
)

// String returns the string representation of State
func (s State) String() string {
	return string(s)
}

// IsActive returns true while a job is outstanding and being polled
func (s State) IsActive() bool {
	return s == StateQueued || s == StateProcessing
}

// AcceptsSubmit returns true if a new job may be submitted
func (s State) AcceptsSubmit() bool {
	return s == StateIdle
}

// StateFromStatus maps a polled job status onto the orchestrator state
func StateFromStatus(status JobStatus) State {
	switch status {
	case JobStatusQueued:
		return StateQueued
	case JobStatusProcessing:
		return StateProcessing
	case JobStatusCompleted:
		return StateCompleted
	case JobStatusFailed:
		return StateFailed
	default:
		return StateError
	}
}
