package controllers

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/amaumene/vortex/internal/models"
	"github.com/amaumene/vortex/internal/utils"
)

type fakeAnalyzer struct {
	mu          sync.Mutex
	urls        []string
	descriptors map[string]*models.Descriptor
	errs        map[string]error
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, url string) (*models.Descriptor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.urls = append(f.urls, url)
	if err := f.errs[url]; err != nil {
		return nil, err
	}
	if d, ok := f.descriptors[url]; ok {
		return d, nil
	}
	return mediaDescriptor(url), nil
}

func (f *fakeAnalyzer) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.urls...)
}

func mediaDescriptor(url string) *models.Descriptor {
	height := 1080
	return &models.Descriptor{
		Type: models.DescriptorTypeVideo,
		Media: &models.MediaDescriptor{
			Title:        "Clip",
			CanonicalURL: url,
			Formats: []models.Format{
				{FormatID: "f1", Kind: models.FormatKindVideo, Extension: "mp4", HeightPx: &height},
			},
		},
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		input string
		want  string
		valid bool
	}{
		{"https://youtu.be/abc", "https://youtu.be/abc", true},
		{"  http://example.com/v  ", "http://example.com/v", true},
		{"HTTPS://EXAMPLE.COM/v", "HTTPS://EXAMPLE.COM/v", true},
		{"", "", false},
		{"   ", "", false},
		{"youtu.be/abc", "", false},
		{"ftp://example.com/file", "", false},
		{"https://", "", false},
		{"http://[::1", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ValidateURL(tt.input)
			if tt.valid {
				if err != nil {
					t.Fatalf("Expected valid, got %v", err)
				}
				if got != tt.want {
					t.Errorf("Expected %q, got %q", tt.want, got)
				}
				return
			}
			var ve *models.ValidationError
			if !errors.As(err, &ve) {
				t.Errorf("Expected ValidationError, got %v", err)
			}
		})
	}
}

func TestAnalyzeRejectsBeforeNetwork(t *testing.T) {
	analyzer := &fakeAnalyzer{}
	c := NewAnalyzeController(analyzer, utils.NewDiscardLogger())

	if _, err := c.Analyze(context.Background(), "not a url"); err == nil {
		t.Fatal("Expected error for invalid URL")
	}
	if len(analyzer.calls()) != 0 {
		t.Error("Invalid URL reached the backend")
	}
}

func TestAnalyzePassesThroughErrors(t *testing.T) {
	backendErr := &models.BackendError{Op: "analyze", StatusCode: 400, Message: "Unsupported URL"}
	analyzer := &fakeAnalyzer{errs: map[string]error{"https://youtu.be/bad": backendErr}}
	c := NewAnalyzeController(analyzer, utils.NewDiscardLogger())

	_, err := c.Analyze(context.Background(), "https://youtu.be/bad")
	if !errors.Is(err, backendErr) {
		t.Fatalf("Expected backend error passed through, got %v", err)
	}
	if err.Error() != "Unsupported URL" {
		t.Errorf("Expected verbatim message, got %q", err.Error())
	}
}

func TestAnalyzeTrimsURL(t *testing.T) {
	analyzer := &fakeAnalyzer{}
	c := NewAnalyzeController(analyzer, utils.NewDiscardLogger())

	d, err := c.Analyze(context.Background(), " https://youtu.be/abc\n")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if d.IsPlaylist() {
		t.Error("Expected single item")
	}
	if calls := analyzer.calls(); len(calls) != 1 || calls[0] != "https://youtu.be/abc" {
		t.Errorf("Unexpected analyzed URLs %v", calls)
	}
}
