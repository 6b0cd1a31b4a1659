package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/sirupsen/logrus"

	"github.com/amaumene/vortex/internal/models"
)

// enqueueResponse is the job-creation response
type enqueueResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// jobResponse is one poll response
type jobResponse struct {
	Status   string   `json:"status"`
	Progress *float64 `json:"progress"`
	Error    *string  `json:"error"`
	Data     *struct {
		Filename *string `json:"filename"`
	} `json:"data"`
}

// Enqueue creates a job and returns its id
func (c *Client) Enqueue(ctx context.Context, req models.JobRequest) (string, error) {
	var result enqueueResponse
	if err := c.doJSON(ctx, "enqueue", http.MethodPost, "/api/queue", req, &result, models.DefaultQueueMessage); err != nil {
		return "", err
	}

	if result.JobID == "" {
		return "", &models.BackendError{Op: "enqueue", StatusCode: http.StatusOK, Message: "backend returned no job id"}
	}

	c.logger.WithFields(logrus.Fields{
		"job_id":    result.JobID,
		"format_id": req.FormatID,
		"audio":     req.IsAudioOnly,
	}).Info("Created download job")

	return result.JobID, nil
}

// JobStatus fetches the current status of a job
func (c *Client) JobStatus(ctx context.Context, jobID string) (*models.JobStatusPayload, error) {
	var result jobResponse
	path := "/api/jobs/" + url.PathEscape(jobID)
	if err := c.doJSON(ctx, "poll", http.MethodGet, path, nil, &result, models.DefaultStatusMessage); err != nil {
		return nil, err
	}

	return result.payload(), nil
}

func (r *jobResponse) payload() *models.JobStatusPayload {
	p := &models.JobStatusPayload{
		Status:   models.JobStatus(r.Status),
		Progress: floatOrZero(r.Progress),
	}
	if r.Error != nil {
		p.Error = *r.Error
	}
	if r.Data != nil && r.Data.Filename != nil {
		p.Filename = *r.Data.Filename
	}
	return p
}
