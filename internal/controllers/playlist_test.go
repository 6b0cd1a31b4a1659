package controllers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/amaumene/vortex/internal/models"
	"github.com/amaumene/vortex/internal/utils"
)

type fakeRunner struct {
	tracker *runnerTracker
	req     SubmitRequest
	closed  bool
}

type runnerTracker struct {
	mu        sync.Mutex
	running   int
	maxSeen   int
	submitted []SubmitRequest
	runners   []*fakeRunner
	failURL   string
}

func (r *runnerTracker) factory() RunnerFactory {
	return func() JobRunner {
		r.mu.Lock()
		defer r.mu.Unlock()
		runner := &fakeRunner{tracker: r}
		r.runners = append(r.runners, runner)
		return runner
	}
}

func (f *fakeRunner) Submit(ctx context.Context, req SubmitRequest) error {
	f.tracker.mu.Lock()
	defer f.tracker.mu.Unlock()
	f.req = req
	f.tracker.submitted = append(f.tracker.submitted, req)
	return nil
}

func (f *fakeRunner) Wait(ctx context.Context) (Outcome, error) {
	f.tracker.mu.Lock()
	f.tracker.running++
	if f.tracker.running > f.tracker.maxSeen {
		f.tracker.maxSeen = f.tracker.running
	}
	fail := f.req.URL == f.tracker.failURL
	f.tracker.mu.Unlock()

	time.Sleep(20 * time.Millisecond)

	f.tracker.mu.Lock()
	f.tracker.running--
	f.tracker.mu.Unlock()

	if fail {
		err := &models.JobFailure{Message: "codec unsupported"}
		return Outcome{State: models.StateFailed, Err: err}, err
	}
	return Outcome{State: models.StateCompleted, ArtifactPath: "/downloads/" + f.req.URL}, nil
}

func (f *fakeRunner) Close() {
	f.tracker.mu.Lock()
	defer f.tracker.mu.Unlock()
	f.closed = true
}

func testPlaylist() *models.PlaylistDescriptor {
	return &models.PlaylistDescriptor{
		Title: "Mix",
		Entries: []models.PlaylistEntry{
			{ID: "a", Title: "First", CanonicalURL: "https://example.com/a"},
			{ID: "b", Title: "Second"},
			{Title: "Broken"},
			{ID: "d", Title: "Fourth"},
		},
	}
}

func TestEntryURL(t *testing.T) {
	tests := []struct {
		name     string
		entry    models.PlaylistEntry
		template string
		want     string
		wantErr  bool
	}{
		{"canonical wins", models.PlaylistEntry{ID: "abc", CanonicalURL: "https://example.com/v/abc"}, "", "https://example.com/v/abc", false},
		{"id fallback", models.PlaylistEntry{ID: "abc"}, DefaultEntryURLTemplate, "https://www.youtube.com/watch?v=abc", false},
		{"default template", models.PlaylistEntry{ID: "abc"}, "", "https://www.youtube.com/watch?v=abc", false},
		{"custom template", models.PlaylistEntry{ID: "abc"}, "https://vimeo.com/%s", "https://vimeo.com/abc", false},
		{"blank canonical", models.PlaylistEntry{ID: "abc", CanonicalURL: "  "}, "", "https://www.youtube.com/watch?v=abc", false},
		{"nothing", models.PlaylistEntry{Title: "x"}, "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EntryURL(tt.entry, tt.template)
			if tt.wantErr {
				var ve *models.ValidationError
				if !errors.As(err, &ve) {
					t.Errorf("Expected ValidationError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestSelectEntry(t *testing.T) {
	analyzer := &fakeAnalyzer{}
	tracker := &runnerTracker{}
	c := NewPlaylistController(NewAnalyzeController(analyzer, utils.NewDiscardLogger()), tracker.factory(), PlaylistOptions{}, utils.NewDiscardLogger())
	pl := testPlaylist()

	d, err := c.SelectEntry(context.Background(), pl, 1)
	if err != nil {
		t.Fatalf("SelectEntry failed: %v", err)
	}
	if d.Media.CanonicalURL != "https://www.youtube.com/watch?v=b" {
		t.Errorf("Unexpected analyzed URL %q", d.Media.CanonicalURL)
	}

	if _, err := c.SelectEntry(context.Background(), pl, 9); err == nil {
		t.Error("Expected out of range error")
	}
	if _, err := c.SelectEntry(context.Background(), nil, 0); !errors.Is(err, models.ErrNoDescriptor) {
		t.Errorf("Expected ErrNoDescriptor, got %v", err)
	}

	if calls := analyzer.calls(); len(calls) != 1 {
		t.Errorf("Expected exactly one analysis, got %v", calls)
	}
	if len(tracker.submitted) != 0 {
		t.Error("Selecting an entry must not queue a job")
	}
}

func TestDownloadAll(t *testing.T) {
	analyzer := &fakeAnalyzer{
		errs: map[string]error{
			"https://www.youtube.com/watch?v=d": &models.BackendError{Op: "analyze", Message: "Video unavailable"},
		},
	}
	tracker := &runnerTracker{failURL: "https://www.youtube.com/watch?v=b"}
	c := NewPlaylistController(
		NewAnalyzeController(analyzer, utils.NewDiscardLogger()),
		tracker.factory(),
		PlaylistOptions{Parallel: 2},
		utils.NewDiscardLogger(),
	)

	results, err := c.DownloadAll(context.Background(), testPlaylist(), BestVideoSelector)
	if err != nil {
		t.Fatalf("DownloadAll failed: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("Expected 4 results, got %d", len(results))
	}
	for i, r := range results {
		if r.Index != i {
			t.Errorf("Result %d out of order (index %d)", i, r.Index)
		}
	}

	if results[0].Err != nil || results[0].Outcome.ArtifactPath != "/downloads/https://example.com/a" {
		t.Errorf("Entry 0 should succeed, got %+v", results[0])
	}
	var jf *models.JobFailure
	if !errors.As(results[1].Err, &jf) {
		t.Errorf("Entry 1 should fail with JobFailure, got %v", results[1].Err)
	}
	var ve *models.ValidationError
	if !errors.As(results[2].Err, &ve) {
		t.Errorf("Entry 2 should fail validation, got %v", results[2].Err)
	}
	if results[3].Err == nil || results[3].Err.Error() != "Video unavailable" {
		t.Errorf("Entry 3 should carry the analyze error, got %v", results[3].Err)
	}

	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	if len(tracker.submitted) != 2 {
		t.Errorf("Expected 2 submissions, got %d", len(tracker.submitted))
	}
	for _, req := range tracker.submitted {
		if req.FormatID != "f1" {
			t.Errorf("Expected best format f1, got %q", req.FormatID)
		}
	}
	if tracker.maxSeen > 2 {
		t.Errorf("Concurrency exceeded limit: %d", tracker.maxSeen)
	}
	for _, r := range tracker.runners {
		if !r.closed {
			t.Error("Runner not closed")
		}
	}
}

func TestDownloadAllAudio(t *testing.T) {
	tracker := &runnerTracker{}
	c := NewPlaylistController(
		NewAnalyzeController(&fakeAnalyzer{}, utils.NewDiscardLogger()),
		tracker.factory(),
		PlaylistOptions{Parallel: 4, Rate: 1000},
		utils.NewDiscardLogger(),
	)

	pl := &models.PlaylistDescriptor{Entries: []models.PlaylistEntry{{ID: "a"}, {ID: "b"}}}
	results, err := c.DownloadAll(context.Background(), pl, AudioSelector("320"))
	if err != nil {
		t.Fatalf("DownloadAll failed: %v", err)
	}
	for _, r := range results {
		if r.Err != nil {
			t.Errorf("Unexpected error for entry %d: %v", r.Index, r.Err)
		}
	}

	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	for _, req := range tracker.submitted {
		if !req.IsAudioOnly || req.FormatID != "320" || req.AudioQuality != models.AudioTier320 {
			t.Errorf("Unexpected audio submission %+v", req)
		}
	}
}

func TestDownloadAllWithOrchestrators(t *testing.T) {
	b := &fakeBackend{
		jobID: "J1",
		responses: []pollResponse{
			status(models.JobStatusCompleted, 100),
		},
	}
	r := &fakeRetriever{}
	opts := testOptions()
	opts.CompletionHold = 0

	factory := func() JobRunner {
		return NewOrchestrator(b, r, immediateTicker{}, opts, nil, utils.NewDiscardLogger())
	}
	c := NewPlaylistController(NewAnalyzeController(&fakeAnalyzer{}, utils.NewDiscardLogger()), factory, PlaylistOptions{}, utils.NewDiscardLogger())

	pl := &models.PlaylistDescriptor{Entries: []models.PlaylistEntry{{ID: "a"}}}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	results, err := c.DownloadAll(ctx, pl, FormatSelector("f1"))
	if err != nil {
		t.Fatalf("DownloadAll failed: %v", err)
	}
	if results[0].Err != nil {
		t.Fatalf("Entry failed: %v", results[0].Err)
	}
	if results[0].Outcome.ArtifactPath != "/downloads/J1.mp4" {
		t.Errorf("Unexpected artifact %q", results[0].Outcome.ArtifactPath)
	}
	if calls := r.calls(); len(calls) != 1 {
		t.Errorf("Expected one retrieval, got %v", calls)
	}
}

// immediateTicker fires the task from a goroutine until stopped
type immediateTicker struct{}

func (immediateTicker) Every(_ time.Duration, fn func()) func() {
	stop := make(chan struct{})
	var once sync.Once
	go func() {
		t := time.NewTicker(time.Millisecond)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				fn()
			}
		}
	}()
	return func() { once.Do(func() { close(stop) }) }
}
