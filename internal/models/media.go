package models

// Descriptor is the normalized result of an analysis. Exactly one of
// Media or Playlist is set, matching Type.
type Descriptor struct {
	Type     DescriptorType
	Media    *MediaDescriptor
	Playlist *PlaylistDescriptor
}

// IsPlaylist reports whether the descriptor holds a playlist
func (d *Descriptor) IsPlaylist() bool {
	return d != nil && d.Type == DescriptorTypePlaylist && d.Playlist != nil
}

// Title returns the title of whichever shape is held
func (d *Descriptor) Title() string {
	switch {
	case d == nil:
		return ""
	case d.Playlist != nil:
		return d.Playlist.Title
	case d.Media != nil:
		return d.Media.Title
	}
	return ""
}

// MediaDescriptor represents a single analyzed media item
type MediaDescriptor struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	UploaderName    string   `json:"uploader_name"`
	DurationSeconds float64  `json:"duration_seconds"`
	ThumbnailURL    string   `json:"thumbnail_url,omitempty"`
	ViewCount       int64    `json:"view_count"`
	CanonicalURL    string   `json:"canonical_url"`
	IsLive          bool     `json:"is_live"`
	Formats         []Format `json:"formats"`
}

// Format represents one backend-enumerated download option
type Format struct {
	FormatID            string     `json:"format_id"` // Opaque, used verbatim as a job parameter
	Kind                FormatKind `json:"kind"`
	Extension           string     `json:"extension"`
	ResolutionLabel     string     `json:"resolution_label,omitempty"`
	HeightPx            *int       `json:"height_px,omitempty"`
	ApproxFilesizeBytes *int64     `json:"approx_filesize_bytes,omitempty"`
	Note                string     `json:"note,omitempty"`
	AudioBitrateKbps    *float64   `json:"audio_bitrate_kbps,omitempty"`
}

// Height returns the pixel height or 0 when unknown
func (f Format) Height() int {
	if f.HeightPx == nil {
		return 0
	}
	return *f.HeightPx
}

// PlaylistDescriptor represents an analyzed playlist
type PlaylistDescriptor struct {
	ID           string          `json:"id,omitempty"`
	Title        string          `json:"title"`
	UploaderName string          `json:"uploader_name"`
	CanonicalURL string          `json:"canonical_url,omitempty"`
	Entries      []PlaylistEntry `json:"entries"`
}

// PlaylistEntry represents one item of a playlist. CanonicalURL may be
// empty, in which case the source URL is rebuilt from ID.
type PlaylistEntry struct {
	ID              string  `json:"id,omitempty"`
	Title           string  `json:"title"`
	DurationSeconds float64 `json:"duration_seconds"`
	ThumbnailURL    string  `json:"thumbnail_url,omitempty"`
	UploaderName    string  `json:"uploader_name,omitempty"`
	CanonicalURL    string  `json:"canonical_url,omitempty"`
}
