package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/hairizuan-noorazman/dashboard-watch/artifact"
	"github.com/hairizuan-noorazman/dashboard-watch/logger"
	"github.com/hairizuan-noorazman/dashboard-watch/storage"
)

// ArtifactReader is the read side of the artifact store.
type ArtifactReader interface {
	LatestCapture(ctx context.Context) (io.ReadCloser, error)
	LatestDebug(ctx context.Context) (io.ReadCloser, error)
	ListDebug(ctx context.Context) ([]artifact.Entry, error)
}

// ArtifactHandler serves capture and debug screenshots.
type ArtifactHandler struct {
	artifacts ArtifactReader
	logger    logger.Logger
}

// NewArtifactHandler creates a new artifact handler.
func NewArtifactHandler(artifacts ArtifactReader, log logger.Logger) *ArtifactHandler {
	return &ArtifactHandler{
		artifacts: artifacts,
		logger:    log,
	}
}

// DebugScreenshot serves the most recent debug screenshot.
func (h *ArtifactHandler) DebugScreenshot(w http.ResponseWriter, r *http.Request) {
	h.servePNG(w, r, h.artifacts.LatestDebug, "debug screenshot not found")
}

// DashboardScreenshot serves the screenshot from the last successful capture.
func (h *ArtifactHandler) DashboardScreenshot(w http.ResponseWriter, r *http.Request) {
	h.servePNG(w, r, h.artifacts.LatestCapture, "dashboard screenshot not found")
}

func (h *ArtifactHandler) servePNG(w http.ResponseWriter, r *http.Request, open func(context.Context) (io.ReadCloser, error), notFound string) {
	rc, err := open(r.Context())
	if err != nil {
		if errors.Is(err, storage.ErrFileNotFound) {
			respondError(w, http.StatusNotFound, notFound)
			return
		}
		h.logger.Error(r.Context(), "failed to open screenshot", map[string]interface{}{
			"path":  r.URL.Path,
			"error": err.Error(),
		})
		respondError(w, http.StatusInternalServerError, "failed to read screenshot")
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn(r.Context(), "failed to write screenshot", map[string]interface{}{
			"path":  r.URL.Path,
			"error": err.Error(),
		})
	}
}

// ListDebug lists retained debug screenshots, newest first.
func (h *ArtifactHandler) ListDebug(w http.ResponseWriter, r *http.Request) {
	entries, err := h.artifacts.ListDebug(r.Context())
	if err != nil {
		h.logger.Error(r.Context(), "failed to list debug screenshots", map[string]interface{}{
			"error": err.Error(),
		})
		respondError(w, http.StatusInternalServerError, "failed to list debug screenshots")
		return
	}

	limit, offset := parsePagination(r)
	total := len(entries)
	start := min(offset, total)
	end := min(start+limit, total)

	respondJSON(w, http.StatusOK, NewPaginatedResponse(entries[start:end], total, limit, offset))
}
