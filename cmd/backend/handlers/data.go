package handlers

import (
	"net/http"

	"github.com/hairizuan-noorazman/dashboard-watch/logger"
	"github.com/hairizuan-noorazman/dashboard-watch/state"
)

// DataHandler serves the latest dashboard snapshot.
type DataHandler struct {
	state  state.Store
	logger logger.Logger
}

// NewDataHandler creates a new data handler.
func NewDataHandler(st state.Store, log logger.Logger) *DataHandler {
	return &DataHandler{
		state:  st,
		logger: log,
	}
}

// Get returns the current status and the last successfully extracted data, which is null until
// the first successful capture.
func (h *DataHandler) Get(w http.ResponseWriter, r *http.Request) {
	snap := h.state.Snapshot()
	h.logger.Debug(r.Context(), "serving dashboard data", map[string]interface{}{
		"status":   snap.Status,
		"has_data": snap.Data != nil,
	})
	respondJSON(w, http.StatusOK, snap)
}
