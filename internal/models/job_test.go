package models

import (
	"testing"
	"time"
)

func TestDownloadJobApply(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	job := &DownloadJob{JobID: "J1", Status: JobStatusQueued}

	job.Apply(&JobStatusPayload{Status: JobStatusProcessing, Progress: 42.5, Filename: "early.mp4", Error: "noise"}, now)
	if job.ProgressPercent != 42.5 {
		t.Errorf("Expected progress 42.5, got %v", job.ProgressPercent)
	}
	if job.ResultFilename != "" || job.ErrorMessage != "" {
		t.Errorf("Filename and error must stay empty while processing: %+v", job)
	}
	if !job.UpdatedAt.Equal(now) {
		t.Errorf("Expected UpdatedAt to be set")
	}

	job.Apply(&JobStatusPayload{Status: JobStatusCompleted, Progress: 99, Filename: "x.mp4"}, now)
	if job.ProgressPercent != 100 || job.ResultFilename != "x.mp4" {
		t.Errorf("Unexpected completed mirror %+v", job)
	}

	job.Apply(&JobStatusPayload{Status: JobStatusFailed, Error: "codec unsupported", Filename: "x.mp4"}, now)
	if job.ErrorMessage != "codec unsupported" || job.ResultFilename != "" {
		t.Errorf("Unexpected failed mirror %+v", job)
	}
}

func TestDownloadJobApplyClamps(t *testing.T) {
	job := &DownloadJob{}

	job.Apply(&JobStatusPayload{Status: JobStatusProcessing, Progress: 180}, time.Now())
	if job.ProgressPercent != 100 {
		t.Errorf("Expected clamp to 100, got %v", job.ProgressPercent)
	}

	job.Apply(&JobStatusPayload{Status: JobStatusProcessing, Progress: -3}, time.Now())
	if job.ProgressPercent != 0 {
		t.Errorf("Expected clamp to 0, got %v", job.ProgressPercent)
	}
}
