package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/amaumene/vortex/internal/models"
	"github.com/amaumene/vortex/internal/utils"
)

// Downloader retrieves finished artifacts into a local directory
type Downloader struct {
	client *Client
	dir    string
}

// NewDownloader creates a downloader writing into dir
func NewDownloader(client *Client, dir string) *Downloader {
	return &Downloader{client: client, dir: dir}
}

// Retrieve downloads the artifact of a completed job and returns its path
func (d *Downloader) Retrieve(ctx context.Context, jobID string) (string, error) {
	return d.client.Download(ctx, jobID, d.dir)
}

// Download streams GET /api/download/{job_id} into dir. The file name comes
// from Content-Disposition, falling back to the job id.
func (c *Client) Download(ctx context.Context, jobID, dir string) (string, error) {
	ctx, span := c.tracer.Start(ctx, "backend.download",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("job.id", jobID)))
	defer span.End()

	path, err := c.download(ctx, jobID, dir)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return path, nil
}

func (c *Client) download(ctx context.Context, jobID, dir string) (string, error) {
	fullURL := c.baseURL + "/api/download/" + url.PathEscape(jobID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	if id := requestID(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &models.TransportError{Op: "download", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		message := extractDetail(body)
		if message == "" {
			message = models.DefaultDownloadMessage
		}
		return "", &models.BackendError{Op: "download", StatusCode: resp.StatusCode, Message: message}
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create download directory: %w", err)
	}

	name := utils.SanitizeFilename(dispositionFilename(resp.Header.Get("Content-Disposition")), jobID+".bin")
	tmp, err := os.CreateTemp(dir, ".vortex-*.part")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	written, err := io.Copy(tmp, resp.Body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", &models.TransportError{Op: "download", Err: fmt.Errorf("failed to write artifact: %w", err)}
	}

	final, err := placeArtifact(tmp.Name(), dir, name)
	if err != nil {
		return "", err
	}

	c.metrics.ObserveRequest("download", time.Since(start).Seconds())
	c.logger.WithFields(logrus.Fields{
		"job_id":     jobID,
		"path":       final,
		"size_bytes": written,
	}).Info("Artifact downloaded")

	return final, nil
}

// maxNameAttempts bounds the numbered variants tried for a taken name
const maxNameAttempts = 1000

// placeArtifact links tmp into dir under name, or under "name (N).ext" when
// name is taken. Existing files are never replaced.
func placeArtifact(tmp, dir, name string) (string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	for i := 0; i < maxNameAttempts; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s (%d)%s", stem, i, ext)
		}
		final := filepath.Join(dir, candidate)

		err := os.Link(tmp, final)
		if err == nil {
			return final, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("failed to move artifact into place: %w", err)
		}
	}
	return "", fmt.Errorf("failed to move artifact into place: no free name for %q", name)
}

// dispositionFilename extracts the file name parameter, preferring the
// RFC 5987 filename* form which mime decodes into filename.
func dispositionFilename(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return params["filename"]
}
