package models

import "time"

// AudioQualityTier is a client-defined audio transcoding target in kbps
type AudioQualityTier string

const (
	AudioTier320 AudioQualityTier = "320"
	AudioTier256 AudioQualityTier = "256"
	AudioTier192 AudioQualityTier = "192"
	AudioTier128 AudioQualityTier = "128"
)

// JobRequest is the job-creation payload sent to the backend
type JobRequest struct {
	URL          string           `json:"url"`
	FormatID     string           `json:"format_id"`
	IsAudioOnly  bool             `json:"is_audio_only"`
	AudioQuality AudioQualityTier `json:"audio_quality,omitempty"`
}

// JobStatusPayload is one poll response from the backend
type JobStatusPayload struct {
	Status   JobStatus `json:"status"`
	Progress float64   `json:"progress"`
	Error    string    `json:"error,omitempty"`
	Filename string    `json:"filename,omitempty"` // From data.filename
}

// DownloadJob is the client-side mirror of a backend job
type DownloadJob struct {
	JobID           string    `json:"job_id,omitempty"`
	Status          JobStatus `json:"status"`
	ProgressPercent float64   `json:"progress_percent"`
	ErrorMessage    string    `json:"error_message,omitempty"` // Only set when Status is failed
	ResultFilename  string    `json:"result_filename,omitempty"` // Only set when Status is completed
	SubmittedAt     time.Time `json:"submitted_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Apply overwrites the mirror with a poll response, keeping the
// filename and error fields consistent with the status.
func (j *DownloadJob) Apply(p *JobStatusPayload, now time.Time) {
	j.Status = p.Status
	j.ProgressPercent = clampPercent(p.Progress)
	j.ErrorMessage = ""
	j.ResultFilename = ""

	switch p.Status {
	case JobStatusCompleted:
		j.ProgressPercent = 100
		j.ResultFilename = p.Filename
	case JobStatusFailed:
		j.ErrorMessage = p.Error
	}
	j.UpdatedAt = now
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
