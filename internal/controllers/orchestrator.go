package controllers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/amaumene/vortex/internal/config"
	"github.com/amaumene/vortex/internal/metrics"
	"github.com/amaumene/vortex/internal/models"
	"github.com/amaumene/vortex/internal/scheduler"
	"github.com/amaumene/vortex/internal/services/backend"
)

// Job outcomes as reported to metrics
const (
	outcomeCompleted = "completed"
	outcomeFailed    = "failed"
	outcomeStalled   = "stalled"
	outcomeError     = "error"
)

var (
	// ErrClosed is returned once the orchestrator has been shut down
	ErrClosed = errors.New("orchestrator is closed")

	// ErrNoJob is returned by Wait when nothing was ever submitted
	ErrNoJob = errors.New("no job has been submitted")
)

// JobBackend creates jobs and reports their status
type JobBackend interface {
	Enqueue(ctx context.Context, req models.JobRequest) (string, error)
	JobStatus(ctx context.Context, jobID string) (*models.JobStatusPayload, error)
}

// ArtifactRetriever fetches the result of a completed job
type ArtifactRetriever interface {
	Retrieve(ctx context.Context, jobID string) (string, error)
}

// Options controls polling and terminal handling
type Options struct {
	PollInterval   time.Duration
	CompletionHold time.Duration
	StallThreshold int
	JobTimeout     time.Duration // 0 disables
}

// OptionsFromConfig builds orchestrator options from configuration
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		PollInterval:   cfg.PollInterval,
		CompletionHold: cfg.CompletionHold,
		StallThreshold: cfg.StallThreshold,
		JobTimeout:     cfg.JobTimeout,
	}
}

// SubmitRequest is a format selection for a source URL
type SubmitRequest struct {
	URL          string
	FormatID     string
	IsAudioOnly  bool
	AudioQuality models.AudioQualityTier
}

// Snapshot is a read-only view of the orchestrator
type Snapshot struct {
	State         models.State        `json:"state"`
	Job           *models.DownloadJob `json:"job,omitempty"`
	Error         string              `json:"error,omitempty"`
	InteractionID string              `json:"interaction_id,omitempty"`
}

// Outcome is the terminal result of one submission
type Outcome struct {
	JobID        string
	State        models.State
	Filename     string
	ArtifactPath string
	Err          error
}

// run is one submission from Submit to its terminal outcome
type run struct {
	interactionID string
	ctx           context.Context
	cancel        context.CancelFunc
	submittedAt   time.Time
	jobID         string

	seqIssued  uint64
	seqApplied uint64
	failures   int
	lastErr    error

	stopPoll func()
	hold     *time.Timer

	finished bool
	done     chan struct{}
	outcome  Outcome
}

// Orchestrator drives one download job at a time through its lifecycle.
// It owns the job mirror exclusively; callers read it through Snapshot.
type Orchestrator struct {
	backend   JobBackend
	retriever ArtifactRetriever
	ticker    scheduler.Ticker
	opts      Options
	metrics   *metrics.Collector
	logger    *logrus.Logger
	now       func() time.Time

	mu      sync.Mutex
	state   models.State
	job     *models.DownloadJob
	lastErr string
	current *run
	closed  bool
}

// NewOrchestrator creates an idle orchestrator. retriever and collector may be nil.
func NewOrchestrator(jobs JobBackend, retriever ArtifactRetriever, ticker scheduler.Ticker, opts Options, collector *metrics.Collector, logger *logrus.Logger) *Orchestrator {
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.StallThreshold <= 0 {
		opts.StallThreshold = 1
	}

	return &Orchestrator{
		backend:   jobs,
		retriever: retriever,
		ticker:    ticker,
		opts:      opts,
		metrics:   collector,
		logger:    logger,
		now:       time.Now,
		state:     models.StateIdle,
	}
}

// Submit creates a backend job for req and starts polling it. The state is
// QUEUED before the job-creation request is sent. A submission is accepted
// only from IDLE.
func (o *Orchestrator) Submit(ctx context.Context, req SubmitRequest) error {
	source, err := ValidateURL(req.URL)
	if err != nil {
		return err
	}
	formatID := strings.TrimSpace(req.FormatID)
	if formatID == "" {
		return &models.ValidationError{Field: "format", Message: "must not be empty"}
	}
	if req.IsAudioOnly && req.AudioQuality == "" {
		return &models.ValidationError{Field: "audio quality", Message: "required for audio downloads"}
	}

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ErrClosed
	}
	if !o.state.AcceptsSubmit() {
		state := o.state
		o.mu.Unlock()
		o.logger.WithField("state", state).Warn("Rejected submission while a job is outstanding")
		return models.ErrJobActive
	}

	now := o.now()
	r := &run{
		interactionID: uuid.NewString(),
		submittedAt:   now,
		done:          make(chan struct{}),
	}
	r.ctx, r.cancel = context.WithCancel(backend.WithRequestID(context.Background(), r.interactionID))

	o.current = r
	o.state = models.StateQueued
	o.lastErr = ""
	o.job = &models.DownloadJob{
		Status:          models.JobStatusQueued,
		ProgressPercent: 0,
		SubmittedAt:     now,
		UpdatedAt:       now,
	}
	o.mu.Unlock()

	log := o.logger.WithFields(logrus.Fields{
		"interaction_id": r.interactionID,
		"url":            source,
		"format_id":      formatID,
		"audio":          req.IsAudioOnly,
	})
	log.Info("Submitting download job")

	jobReq := models.JobRequest{
		URL:         source,
		FormatID:    formatID,
		IsAudioOnly: req.IsAudioOnly,
	}
	if req.IsAudioOnly {
		jobReq.AudioQuality = req.AudioQuality
	}

	jobID, err := o.backend.Enqueue(backend.WithRequestID(ctx, r.interactionID), jobReq)

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.current != r || r.finished {
		// Closed while the request was in flight.
		return ErrClosed
	}

	if err != nil {
		log.WithError(err).Error("Failed to create download job")
		o.state = models.StateError
		o.job = nil
		o.lastErr = models.UserMessage(err)
		o.finish(r, Outcome{State: models.StateError, Err: err}, outcomeError)
		o.startHold(r)
		return err
	}

	r.jobID = jobID
	o.job.JobID = jobID
	r.stopPoll = o.ticker.Every(o.opts.PollInterval, func() { o.poll(r) })

	log.WithField("job_id", jobID).Info("Download job queued, polling for status")
	return nil
}

// poll runs one status request for r. Responses are applied in request
// order; anything older than the last applied response is dropped, failures
// included.
func (o *Orchestrator) poll(r *run) {
	o.mu.Lock()
	if o.current != r || !o.state.IsActive() {
		o.mu.Unlock()
		return
	}
	r.seqIssued++
	seq := r.seqIssued
	jobID := r.jobID
	o.mu.Unlock()

	payload, err := o.backend.JobStatus(r.ctx, jobID)

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.current != r || !o.state.IsActive() {
		return
	}

	log := o.logger.WithFields(logrus.Fields{
		"job_id": jobID,
		"seq":    seq,
	})

	if err == nil && !payload.Status.IsKnown() {
		err = &models.BackendError{Op: "poll", Message: fmt.Sprintf("unknown job status %q", payload.Status)}
	}

	if seq <= r.seqApplied {
		o.metrics.ObservePoll(metrics.PollStale)
		log.WithField("applied", r.seqApplied).Debug("Discarding stale status response")
		return
	}

	if err != nil {
		r.failures++
		r.lastErr = err
		o.metrics.ObservePoll(metrics.PollFailed)
		log.WithError(err).WithField("failures", r.failures).Warn("Job status poll failed")

		if r.failures >= o.opts.StallThreshold {
			o.stall(r, fmt.Sprintf("%d consecutive failed status polls", r.failures))
			return
		}
		o.checkTimeout(r)
		return
	}

	r.seqApplied = seq
	r.failures = 0
	r.lastErr = nil

	o.job.Apply(payload, o.now())
	o.metrics.ObservePoll(metrics.PollApplied)
	o.metrics.ObserveProgress(o.job.ProgressPercent)

	switch payload.Status {
	case models.JobStatusCompleted:
		o.complete(r)
	case models.JobStatusFailed:
		o.fail(r)
	default:
		state := models.StateFromStatus(payload.Status)
		if state != o.state {
			log.WithField("state", state).Info("Job state changed")
		}
		o.state = state
		o.checkTimeout(r)
	}
}

// checkTimeout stalls r once the maximum wait has elapsed. Caller holds o.mu.
func (o *Orchestrator) checkTimeout(r *run) {
	if o.opts.JobTimeout <= 0 {
		return
	}
	if elapsed := o.now().Sub(r.submittedAt); elapsed >= o.opts.JobTimeout {
		o.stall(r, fmt.Sprintf("no terminal status after %s", elapsed.Round(time.Second)))
	}
}

// complete handles a completed status. Caller holds o.mu.
func (o *Orchestrator) complete(r *run) {
	r.stopPoll()
	o.state = models.StateCompleted

	filename := o.job.ResultFilename
	o.logger.WithFields(logrus.Fields{
		"job_id":   r.jobID,
		"filename": filename,
	}).Info("Download job completed")

	o.startHold(r)

	outcome := Outcome{
		JobID:    r.jobID,
		State:    models.StateCompleted,
		Filename: filename,
	}
	go o.retrieve(r, outcome)
}

// retrieve fetches the artifact of a completed job exactly once
func (o *Orchestrator) retrieve(r *run, outcome Outcome) {
	if o.retriever != nil {
		path, err := o.retriever.Retrieve(r.ctx, r.jobID)
		outcome.ArtifactPath = path
		if err != nil {
			o.logger.WithError(err).WithField("job_id", r.jobID).Error("Failed to retrieve artifact")
			outcome.Err = fmt.Errorf("retrieve artifact: %w", err)
		}
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if outcome.Err != nil && o.current == r {
		o.lastErr = models.UserMessage(outcome.Err)
	}
	o.finish(r, outcome, outcomeCompleted)
}

// startHold schedules the reset of a COMPLETED or ERROR state to IDLE.
// Caller holds o.mu.
func (o *Orchestrator) startHold(r *run) {
	r.hold = time.AfterFunc(o.opts.CompletionHold, func() { o.releaseHold(r) })
}

// releaseHold resets a terminal state to IDLE after the display window. The
// user-visible error is kept until the next submission.
func (o *Orchestrator) releaseHold(r *run) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.current != r || (o.state != models.StateCompleted && o.state != models.StateError) {
		return
	}
	o.logger.WithFields(logrus.Fields{
		"job_id": r.jobID,
		"state":  o.state,
	}).Debug("Display hold elapsed")
	o.state = models.StateIdle
	o.job = nil
}

// fail handles a failed status. Caller holds o.mu.
func (o *Orchestrator) fail(r *run) {
	r.stopPoll()

	message := o.job.ErrorMessage
	if message == "" {
		message = models.DefaultJobFailure
	}
	o.logger.WithFields(logrus.Fields{
		"job_id": r.jobID,
		"error":  message,
	}).Error("Download job failed")

	o.state = models.StateIdle
	o.job = nil
	o.lastErr = message
	o.finish(r, Outcome{
		JobID: r.jobID,
		State: models.StateFailed,
		Err:   &models.JobFailure{JobID: r.jobID, Message: message},
	}, outcomeFailed)
}

// stall ends r with a client-observed error. Caller holds o.mu.
func (o *Orchestrator) stall(r *run, reason string) {
	r.stopPoll()

	err := &models.StalledError{
		JobID:               r.jobID,
		Reason:              reason,
		ConsecutiveFailures: r.failures,
		Elapsed:             o.now().Sub(r.submittedAt),
		LastErr:             r.lastErr,
	}
	o.logger.WithFields(logrus.Fields{
		"job_id":   r.jobID,
		"failures": r.failures,
		"elapsed":  err.Elapsed,
	}).Error("Download job stalled")

	o.state = models.StateError
	o.job = nil
	o.lastErr = err.Error()
	o.finish(r, Outcome{JobID: r.jobID, State: models.StateError, Err: err}, outcomeStalled)
	o.startHold(r)
}

// finish records the outcome of r and releases waiters. Caller holds o.mu.
func (o *Orchestrator) finish(r *run, outcome Outcome, metric string) {
	if r.finished {
		return
	}
	r.finished = true
	r.outcome = outcome
	r.cancel()
	close(r.done)
	o.metrics.ObserveJob(metric, o.now().Sub(r.submittedAt).Seconds())
}

// Snapshot returns a copy of the current state and mirror
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := Snapshot{
		State: o.state,
		Error: o.lastErr,
	}
	if o.job != nil {
		job := *o.job
		s.Job = &job
	}
	if o.current != nil {
		s.InteractionID = o.current.interactionID
	}
	return s
}

// Wait blocks until the latest submission has a terminal outcome and any
// artifact retrieval has finished. The returned error is the outcome's
// error, or ctx's error if ctx ends first.
func (o *Orchestrator) Wait(ctx context.Context) (Outcome, error) {
	o.mu.Lock()
	r := o.current
	o.mu.Unlock()

	if r == nil {
		return Outcome{}, ErrNoJob
	}

	select {
	case <-r.done:
		return r.outcome, r.outcome.Err
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// Close stops all timers and abandons the tracked job locally. The
// backend job is left running.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return
	}
	o.closed = true

	r := o.current
	if r == nil {
		return
	}
	if r.stopPoll != nil {
		r.stopPoll()
	}
	if r.hold != nil {
		r.hold.Stop()
	}
	if o.state.IsActive() {
		o.state = models.StateIdle
		o.job = nil
		o.finish(r, Outcome{JobID: r.jobID, State: models.StateIdle, Err: ErrClosed}, outcomeError)
	}
	r.cancel()
}
