package controllers

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/pool"
	"golang.org/x/time/rate"

	"github.com/amaumene/vortex/internal/models"
	"github.com/amaumene/vortex/internal/utils"
)

// DefaultEntryURLTemplate rebuilds a source URL from an entry id
const DefaultEntryURLTemplate = "https://www.youtube.com/watch?v=%s"

// Selector picks a format for an analyzed entry
type Selector func(media *models.MediaDescriptor) (*utils.Selection, error)

// JobRunner runs one submission to completion
type JobRunner interface {
	Submit(ctx context.Context, req SubmitRequest) error
	Wait(ctx context.Context) (Outcome, error)
	Close()
}

// RunnerFactory creates a fresh job pipeline for one entry
type RunnerFactory func() JobRunner

// EntryResult is the result of one entry in a batch
type EntryResult struct {
	Index   int
	Entry   models.PlaylistEntry
	URL     string
	Outcome Outcome
	Err     error
}

// PlaylistOptions controls batch processing
type PlaylistOptions struct {
	URLTemplate string
	Parallel    int
	Rate        float64 // Analyze calls per second, 0 disables pacing
}

// PlaylistController expands playlist entries into the single-item path
type PlaylistController struct {
	analyze   *AnalyzeController
	newRunner RunnerFactory
	opts      PlaylistOptions
	logger    *logrus.Logger
}

// NewPlaylistController creates a new playlist controller
func NewPlaylistController(analyze *AnalyzeController, newRunner RunnerFactory, opts PlaylistOptions, logger *logrus.Logger) *PlaylistController {
	if opts.URLTemplate == "" {
		opts.URLTemplate = DefaultEntryURLTemplate
	}
	if opts.Parallel < 1 {
		opts.Parallel = 1
	}

	return &PlaylistController{
		analyze:   analyze,
		newRunner: newRunner,
		opts:      opts,
		logger:    logger,
	}
}

// EntryURL returns the entry's canonical URL, or the template applied to its id
func EntryURL(entry models.PlaylistEntry, template string) (string, error) {
	if u := strings.TrimSpace(entry.CanonicalURL); u != "" {
		return u, nil
	}
	if entry.ID == "" {
		return "", &models.ValidationError{Field: "entry", Message: fmt.Sprintf("%q has neither a URL nor an id", entry.Title)}
	}
	if template == "" {
		template = DefaultEntryURLTemplate
	}
	return fmt.Sprintf(template, entry.ID), nil
}

// EntryURL resolves the source URL of entry with the configured template
func (c *PlaylistController) EntryURL(entry models.PlaylistEntry) (string, error) {
	return EntryURL(entry, c.opts.URLTemplate)
}

// SelectEntry analyzes the entry at index as if its URL had been entered directly
func (c *PlaylistController) SelectEntry(ctx context.Context, playlist *models.PlaylistDescriptor, index int) (*models.Descriptor, error) {
	if playlist == nil {
		return nil, models.ErrNoDescriptor
	}
	if index < 0 || index >= len(playlist.Entries) {
		return nil, &models.ValidationError{
			Field:   "entry",
			Message: fmt.Sprintf("index %d out of range, playlist has %d entries", index+1, len(playlist.Entries)),
		}
	}

	entry := playlist.Entries[index]
	source, err := c.EntryURL(entry)
	if err != nil {
		return nil, err
	}

	c.logger.WithFields(logrus.Fields{
		"index": index,
		"title": entry.Title,
		"url":   source,
	}).Info("Selected playlist entry")

	return c.analyze.Analyze(ctx, source)
}

// DownloadAll runs every entry through its own pipeline with bounded
// concurrency. Entries are independent: one failing does not stop the
// others. Results are returned in entry order.
func (c *PlaylistController) DownloadAll(ctx context.Context, playlist *models.PlaylistDescriptor, selector Selector) ([]EntryResult, error) {
	if playlist == nil {
		return nil, models.ErrNoDescriptor
	}

	var limiter *rate.Limiter
	if c.opts.Rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(c.opts.Rate), 1)
	}

	c.logger.WithFields(logrus.Fields{
		"playlist": playlist.Title,
		"entries":  len(playlist.Entries),
		"parallel": c.opts.Parallel,
	}).Info("Starting playlist batch")

	results := make([]EntryResult, len(playlist.Entries))
	p := pool.New().WithMaxGoroutines(c.opts.Parallel)
	for i, entry := range playlist.Entries {
		i, entry := i, entry
		p.Go(func() {
			results[i] = c.runEntry(ctx, i, entry, selector, limiter)
		})
	}
	p.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	c.logger.WithFields(logrus.Fields{
		"playlist": playlist.Title,
		"entries":  len(results),
		"failed":   failed,
	}).Info("Playlist batch finished")

	return results, ctx.Err()
}

func (c *PlaylistController) runEntry(ctx context.Context, index int, entry models.PlaylistEntry, selector Selector, limiter *rate.Limiter) EntryResult {
	result := EntryResult{Index: index, Entry: entry}
	log := c.logger.WithFields(logrus.Fields{
		"index": index,
		"title": entry.Title,
	})

	source, err := c.EntryURL(entry)
	if err != nil {
		result.Err = err
		return result
	}
	result.URL = source

	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			result.Err = err
			return result
		}
	}

	descriptor, err := c.analyze.Analyze(ctx, source)
	if err != nil {
		result.Err = err
		return result
	}
	if descriptor.IsPlaylist() {
		result.Err = &models.ValidationError{Field: "entry", Message: "nested playlists are not supported"}
		return result
	}

	selection, err := selector(descriptor.Media)
	if err != nil {
		result.Err = err
		return result
	}

	runner := c.newRunner()
	defer runner.Close()

	if err := runner.Submit(ctx, SubmitRequest{
		URL:          source,
		FormatID:     selection.FormatID,
		IsAudioOnly:  selection.IsAudioOnly,
		AudioQuality: selection.AudioQuality,
	}); err != nil {
		log.WithError(err).Warn("Playlist entry submission failed")
		result.Err = err
		return result
	}

	result.Outcome, result.Err = runner.Wait(ctx)
	if result.Err != nil {
		log.WithError(result.Err).Warn("Playlist entry did not complete")
	} else {
		log.WithField("path", result.Outcome.ArtifactPath).Info("Playlist entry completed")
	}
	return result
}

// BestVideoSelector picks the highest-quality video option
func BestVideoSelector(media *models.MediaDescriptor) (*utils.Selection, error) {
	selection, ok := utils.BestVideo(media)
	if !ok {
		return nil, &models.ValidationError{Field: "format", Message: "no video options available"}
	}
	return selection, nil
}

// FormatSelector picks formatID, which must be a video option of every entry
func FormatSelector(formatID string) Selector {
	return func(media *models.MediaDescriptor) (*utils.Selection, error) {
		return utils.SelectVideo(media, formatID)
	}
}

// AudioSelector picks the same audio tier for every entry
func AudioSelector(tier string) Selector {
	return func(*models.MediaDescriptor) (*utils.Selection, error) {
		return utils.SelectAudio(tier)
	}
}
