package models

import "testing"

func TestJobStatusIsTerminal(t *testing.T) {
	tests := []struct {
		status   JobStatus
		terminal bool
		known    bool
	}{
		{JobStatusQueued, false, true},
		{JobStatusProcessing, false, true},
		{JobStatusCompleted, true, true},
		{JobStatusFailed, true, true},
		{JobStatus("error"), false, false},
		{JobStatus(""), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			if got := tt.status.IsTerminal(); got != tt.terminal {
				t.Errorf("IsTerminal() = %v, want %v", got, tt.terminal)
			}
			if got := tt.status.IsKnown(); got != tt.known {
				t.Errorf("IsKnown() = %v, want %v", got, tt.known)
			}
		})
	}
}

func TestStateTransitions(t *testing.T) {
	tests := []struct {
		state   State
		active  bool
		accepts bool
	}{
		{StateIdle, false, true},
		{StateQueued, true, false},
		{StateProcessing, true, false},
		{StateCompleted, false, false},
		{StateFailed, false, false},
		{StateError, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			if got := tt.state.IsActive(); got != tt.active {
				t.Errorf("IsActive() = %v, want %v", got, tt.active)
			}
			if got := tt.state.AcceptsSubmit(); got != tt.accepts {
				t.Errorf("AcceptsSubmit() = %v, want %v", got, tt.accepts)
			}
		})
	}
}

func TestStateFromStatus(t *testing.T) {
	tests := map[JobStatus]State{
		JobStatusQueued:     StateQueued,
		JobStatusProcessing: StateProcessing,
		JobStatusCompleted:  StateCompleted,
		JobStatusFailed:     StateFailed,
		JobStatus("weird"):  StateError,
	}

	for status, want := range tests {
		if got := StateFromStatus(status); got != want {
			t.Errorf("StateFromStatus(%q) = %s, want %s", status, got, want)
		}
	}
}

func TestDescriptorShape(t *testing.T) {
	var nilDescriptor *Descriptor
	if nilDescriptor.IsPlaylist() || nilDescriptor.Title() != "" {
		t.Error("nil descriptor should be empty")
	}

	media := &Descriptor{Type: DescriptorTypeVideo, Media: &MediaDescriptor{Title: "Clip"}}
	if media.IsPlaylist() || media.Title() != "Clip" {
		t.Errorf("Unexpected media descriptor behaviour")
	}

	playlist := &Descriptor{Type: DescriptorTypePlaylist, Playlist: &PlaylistDescriptor{Title: "Mix"}}
	if !playlist.IsPlaylist() || playlist.Title() != "Mix" {
		t.Errorf("Unexpected playlist descriptor behaviour")
	}
}
