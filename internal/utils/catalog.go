package utils

import (
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/amaumene/vortex/internal/models"
)

// HDMinHeight is the height from which a rendition is flagged HD
const HDMinHeight = 1080

// maxSuggestionDistance bounds how far a typo may be from a known id
const maxSuggestionDistance = 3

// VideoOption is a displayable video rendition
type VideoOption struct {
	Format models.Format
	HD     bool
}

// AudioOption is a displayable audio transcoding target
type AudioOption struct {
	Tier        models.AudioQualityTier
	Label       string
	Description string
}

var audioOptions = []AudioOption{
	{Tier: models.AudioTier320, Label: "Ultra High", Description: "Studio Quality (Slowest)"},
	{Tier: models.AudioTier256, Label: "High", Description: "Premium Quality"},
	{Tier: models.AudioTier192, Label: "Medium", Description: "Standard Quality"},
	{Tier: models.AudioTier128, Label: "Low", Description: "Data Saver (Fastest)"},
}

// Selection is a validated format choice ready for submission
type Selection struct {
	FormatID     string
	IsAudioOnly  bool
	AudioQuality models.AudioQualityTier
}

// VideoOptions returns the video and muxed formats, highest quality first.
// The backend emits formats in ascending quality so the order is reversed.
func VideoOptions(media *models.MediaDescriptor) []VideoOption {
	if media == nil {
		return nil
	}

	options := make([]VideoOption, 0, len(media.Formats))
	for i := len(media.Formats) - 1; i >= 0; i-- {
		f := media.Formats[i]
		if f.Kind != models.FormatKindVideo && f.Kind != models.FormatKindMuxed {
			continue
		}
		options = append(options, VideoOption{Format: f, HD: IsHD(f)})
	}
	return options
}

// AudioOptions returns the fixed audio tiers, highest bitrate first
func AudioOptions() []AudioOption {
	out := make([]AudioOption, len(audioOptions))
	copy(out, audioOptions)
	return out
}

// IsHD reports whether a format is at least 1080 pixels high
func IsHD(f models.Format) bool {
	return f.Height() >= HDMinHeight
}

// SelectVideo validates formatID against the displayed video options
func SelectVideo(media *models.MediaDescriptor, formatID string) (*Selection, error) {
	if media == nil {
		return nil, models.ErrNoDescriptor
	}

	formatID = strings.TrimSpace(formatID)
	ids := make([]string, 0, len(media.Formats))
	for _, opt := range VideoOptions(media) {
		if opt.Format.FormatID == formatID {
			return &Selection{FormatID: formatID}, nil
		}
		ids = append(ids, opt.Format.FormatID)
	}

	return nil, &models.ValidationError{
		Field:      "format",
		Message:    fmt.Sprintf("%q is not a video option for this media", formatID),
		Suggestion: closest(formatID, ids),
	}
}

// SelectAudio validates an audio tier. The tier doubles as the format id.
func SelectAudio(tier string) (*Selection, error) {
	tier = strings.TrimSuffix(strings.TrimSpace(tier), "k")

	ids := make([]string, 0, len(audioOptions))
	for _, opt := range audioOptions {
		if string(opt.Tier) == tier {
			return &Selection{
				FormatID:     tier,
				IsAudioOnly:  true,
				AudioQuality: opt.Tier,
			}, nil
		}
		ids = append(ids, string(opt.Tier))
	}

	return nil, &models.ValidationError{
		Field:      "audio quality",
		Message:    fmt.Sprintf("%q is not one of %s kbps", tier, strings.Join(ids, "/")),
		Suggestion: closest(tier, ids),
	}
}

// BestVideo returns the highest-quality video selection, if any
func BestVideo(media *models.MediaDescriptor) (*Selection, bool) {
	options := VideoOptions(media)
	if len(options) == 0 {
		return nil, false
	}
	return &Selection{FormatID: options[0].Format.FormatID}, true
}

// closest returns the nearest candidate within maxSuggestionDistance
func closest(input string, candidates []string) string {
	if input == "" {
		return ""
	}

	best := ""
	bestDistance := maxSuggestionDistance + 1
	for _, c := range candidates {
		d := levenshtein.ComputeDistance(strings.ToLower(input), strings.ToLower(c))
		if d < bestDistance {
			best, bestDistance = c, d
		}
	}
	return best
}
