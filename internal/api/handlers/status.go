package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/amaumene/vortex/internal/controllers"
)

// SnapshotSource exposes the tracked job read-only
type SnapshotSource interface {
	Snapshot() controllers.Snapshot
}

// StatusHandler handles status requests
type StatusHandler struct {
	source SnapshotSource
	logger *logrus.Logger
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(source SnapshotSource, logger *logrus.Logger) *StatusHandler {
	return &StatusHandler{
		source: source,
		logger: logger,
	}
}

// StatusResponse represents the status response
type StatusResponse struct {
	controllers.Snapshot
	Active bool `json:"active"`
}

// ServeHTTP handles the status endpoint
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if h.source == nil {
		http.Error(w, "No job tracked", http.StatusServiceUnavailable)
		return
	}

	snapshot := h.source.Snapshot()
	response := StatusResponse{
		Snapshot: snapshot,
		Active:   snapshot.State.IsActive(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.WithError(err).Error("Failed to write status response")
	}
}
