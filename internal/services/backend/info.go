package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/amaumene/vortex/internal/models"
)

// infoRequest is the analyze request body
type infoRequest struct {
	URL string `json:"url"`
}

// rawInfo is the analyze response, covering both shapes
type rawInfo struct {
	Type       string      `json:"type"`
	ID         string      `json:"id"`
	Title      string      `json:"title"`
	Uploader   string      `json:"uploader"`
	Duration   *float64    `json:"duration"`
	Thumbnail  string      `json:"thumbnail"`
	ViewCount  *float64    `json:"view_count"`
	WebpageURL string      `json:"webpage_url"`
	IsLive     bool        `json:"is_live"`
	Formats    []rawFormat `json:"formats"`
	Entries    []*rawEntry `json:"entries"`
}

type rawFormat struct {
	FormatID   string   `json:"format_id"`
	Ext        string   `json:"ext"`
	Resolution string   `json:"resolution"`
	Filesize   *float64 `json:"filesize"`
	Height     *float64 `json:"height"`
	Note       string   `json:"note"`
	Type       string   `json:"type"`
	Abr        *float64 `json:"abr"`
}

type rawEntry struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Duration  *float64 `json:"duration"`
	Thumbnail string   `json:"thumbnail"`
	Uploader  string   `json:"uploader"`
	URL       string   `json:"url"`
}

// Analyze fetches metadata for url and normalizes it. It does not cache.
func (c *Client) Analyze(ctx context.Context, url string) (*models.Descriptor, error) {
	var raw json.RawMessage
	if err := c.doJSON(ctx, "analyze", http.MethodPost, "/api/info", infoRequest{URL: url}, &raw, models.DefaultAnalyzeMessage); err != nil {
		return nil, err
	}

	descriptor, err := Normalize(raw)
	if err != nil {
		return nil, &models.BackendError{Op: "analyze", StatusCode: http.StatusOK, Message: models.DefaultAnalyzeMessage}
	}

	c.logger.WithFields(logrus.Fields{
		"url":   url,
		"type":  descriptor.Type,
		"title": descriptor.Title(),
	}).Debug("Analysis completed")

	return descriptor, nil
}

// Normalize converts a raw analyze response into a descriptor. Only an
// exact "playlist" discriminator yields a playlist.
func Normalize(body []byte) (*models.Descriptor, error) {
	var raw rawInfo
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode analyze response: %w", err)
	}

	if raw.Type == string(models.DescriptorTypePlaylist) {
		return &models.Descriptor{
			Type:     models.DescriptorTypePlaylist,
			Playlist: normalizePlaylist(&raw),
		}, nil
	}

	return &models.Descriptor{
		Type:  models.DescriptorTypeVideo,
		Media: normalizeMedia(&raw),
	}, nil
}

func normalizeMedia(raw *rawInfo) *models.MediaDescriptor {
	media := &models.MediaDescriptor{
		ID:              raw.ID,
		Title:           raw.Title,
		UploaderName:    raw.Uploader,
		DurationSeconds: floatOrZero(raw.Duration),
		ThumbnailURL:    raw.Thumbnail,
		ViewCount:       int64(floatOrZero(raw.ViewCount)),
		CanonicalURL:    raw.WebpageURL,
		IsLive:          raw.IsLive,
		Formats:         make([]models.Format, 0, len(raw.Formats)),
	}

	for _, f := range raw.Formats {
		format := models.Format{
			FormatID:        f.FormatID,
			Kind:            models.FormatKind(f.Type),
			Extension:       f.Ext,
			ResolutionLabel: f.Resolution,
			Note:            f.Note,
		}
		if f.Height != nil {
			h := int(*f.Height)
			format.HeightPx = &h
			if format.ResolutionLabel == "" {
				format.ResolutionLabel = fmt.Sprintf("%dp", h)
			}
		}
		if f.Filesize != nil {
			size := int64(*f.Filesize)
			format.ApproxFilesizeBytes = &size
		}
		if f.Abr != nil {
			abr := *f.Abr
			format.AudioBitrateKbps = &abr
		}
		media.Formats = append(media.Formats, format)
	}

	return media
}

func normalizePlaylist(raw *rawInfo) *models.PlaylistDescriptor {
	playlist := &models.PlaylistDescriptor{
		ID:           raw.ID,
		Title:        raw.Title,
		UploaderName: raw.Uploader,
		CanonicalURL: raw.WebpageURL,
		Entries:      make([]models.PlaylistEntry, 0, len(raw.Entries)),
	}

	for _, e := range raw.Entries {
		if e == nil {
			continue
		}
		playlist.Entries = append(playlist.Entries, models.PlaylistEntry{
			ID:              e.ID,
			Title:           e.Title,
			DurationSeconds: floatOrZero(e.Duration),
			ThumbnailURL:    e.Thumbnail,
			UploaderName:    e.Uploader,
			CanonicalURL:    e.URL,
		})
	}

	return playlist
}

func floatOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
