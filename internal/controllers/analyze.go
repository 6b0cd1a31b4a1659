package controllers

import (
	"context"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/amaumene/vortex/internal/models"
)

// Analyzer fetches normalized metadata for a URL
type Analyzer interface {
	Analyze(ctx context.Context, url string) (*models.Descriptor, error)
}

// AnalyzeController validates user input and runs analysis
type AnalyzeController struct {
	analyzer Analyzer
	logger   *logrus.Logger
}

// NewAnalyzeController creates a new analyze controller
func NewAnalyzeController(analyzer Analyzer, logger *logrus.Logger) *AnalyzeController {
	return &AnalyzeController{
		analyzer: analyzer,
		logger:   logger,
	}
}

// Analyze validates rawURL and returns its descriptor
func (c *AnalyzeController) Analyze(ctx context.Context, rawURL string) (*models.Descriptor, error) {
	source, err := ValidateURL(rawURL)
	if err != nil {
		return nil, err
	}

	c.logger.WithField("url", source).Info("Analyzing URL")

	descriptor, err := c.analyzer.Analyze(ctx, source)
	if err != nil {
		c.logger.WithError(err).WithField("url", source).Error("Analysis failed")
		return nil, err
	}

	fields := logrus.Fields{
		"url":   source,
		"type":  descriptor.Type,
		"title": descriptor.Title(),
	}
	if descriptor.IsPlaylist() {
		fields["entries"] = len(descriptor.Playlist.Entries)
	} else {
		fields["formats"] = len(descriptor.Media.Formats)
	}
	c.logger.WithFields(fields).Info("Analysis completed")

	return descriptor, nil
}

// ValidateURL rejects empty or non-http(s) input and returns the trimmed URL
func ValidateURL(rawURL string) (string, error) {
	source := strings.TrimSpace(rawURL)
	if source == "" {
		return "", &models.ValidationError{Field: "url", Message: "must not be empty"}
	}

	u, err := url.Parse(source)
	if err != nil {
		return "", &models.ValidationError{Field: "url", Message: "could not be parsed"}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", &models.ValidationError{Field: "url", Message: "must start with http:// or https://"}
	}
	if u.Host == "" {
		return "", &models.ValidationError{Field: "url", Message: "must include a host"}
	}

	return source, nil
}
