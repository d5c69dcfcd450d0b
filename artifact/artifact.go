// Package artifact stores the screenshots produced by the capture loop: the latest capture
// and a bounded history of debug screenshots taken on timeout and error paths.
package artifact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hairizuan-noorazman/dashboard-watch/logger"
	"github.com/hairizuan-noorazman/dashboard-watch/storage"
)

const (
	// LatestCapturePath holds the screenshot from the most recent successful capture.
	LatestCapturePath = "capture/latest.png"

	// LatestDebugPath holds the most recent debug screenshot.
	LatestDebugPath = "debug/latest.png"

	debugPrefix     = "debug/"
	timestampLayout = "20060102T150405.000Z"
)

var unsafeReason = regexp.MustCompile(`[^a-z0-9-]+`)

// Entry is one retained debug screenshot.
type Entry struct {
	Path string `json:"path"`
	URL  string `json:"url,omitempty"`
}

// Store writes screenshots to blob storage.
type Store struct {
	blobs     storage.BlobStorage
	retention int
	now       func() time.Time
	logger    logger.Logger
}

// NewStore creates a Store keeping at most retention timestamped debug screenshots.
// A retention below one keeps only debug/latest.png.
func NewStore(blobs storage.BlobStorage, retention int, log logger.Logger) *Store {
	return &Store{
		blobs:     blobs,
		retention: retention,
		now:       time.Now,
		logger:    logger.ForComponent(log, "artifacts"),
	}
}

// SaveCapture replaces the latest capture screenshot.
func (s *Store) SaveCapture(ctx context.Context, image []byte) error {
	if err := s.blobs.Upload(ctx, LatestCapturePath, bytes.NewReader(image)); err != nil {
		return fmt.Errorf("failed to store capture: %w", err)
	}
	return nil
}

// SaveDebug stores image as the latest debug screenshot and, when retention allows, under a
// timestamped key, then prunes the oldest timestamped keys.
func (s *Store) SaveDebug(ctx context.Context, image []byte, reason string) error {
	if err := s.blobs.Upload(ctx, LatestDebugPath, bytes.NewReader(image)); err != nil {
		return fmt.Errorf("failed to store debug screenshot: %w", err)
	}
	if s.retention < 1 {
		return nil
	}

	key := s.debugKey(reason)
	if err := s.blobs.Upload(ctx, key, bytes.NewReader(image)); err != nil {
		return fmt.Errorf("failed to store debug screenshot: %w", err)
	}
	s.logger.Info(ctx, "debug screenshot saved", map[string]interface{}{
		"path":   key,
		"reason": reason,
	})

	return s.prune(ctx)
}

func (s *Store) debugKey(reason string) string {
	reason = unsafeReason.ReplaceAllString(strings.ToLower(reason), "-")
	reason = strings.Trim(reason, "-")
	if reason == "" {
		reason = "debug"
	}
	id := uuid.NewString()[:8]
	return fmt.Sprintf("%s%s-%s-%s.png", debugPrefix, s.now().UTC().Format(timestampLayout), reason, id)
}

func (s *Store) timestamped(ctx context.Context) ([]string, error) {
	paths, err := s.blobs.List(ctx, debugPrefix)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if p != LatestDebugPath {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Store) prune(ctx context.Context) error {
	paths, err := s.timestamped(ctx)
	if err != nil {
		return fmt.Errorf("failed to list debug screenshots: %w", err)
	}
	if len(paths) <= s.retention {
		return nil
	}

	for _, p := range paths[:len(paths)-s.retention] {
		if err := s.blobs.Delete(ctx, p); err != nil && !errors.Is(err, storage.ErrFileNotFound) {
			return fmt.Errorf("failed to prune debug screenshot %s: %w", p, err)
		}
	}
	return nil
}

// LatestCapture opens the latest capture screenshot. It returns storage.ErrFileNotFound when
// no capture has succeeded yet.
func (s *Store) LatestCapture(ctx context.Context) (io.ReadCloser, error) {
	return s.blobs.Download(ctx, LatestCapturePath)
}

// LatestDebug opens the latest debug screenshot. It returns storage.ErrFileNotFound when none
// has been taken yet.
func (s *Store) LatestDebug(ctx context.Context) (io.ReadCloser, error) {
	return s.blobs.Download(ctx, LatestDebugPath)
}

// ListDebug returns retained timestamped debug screenshots, newest first.
func (s *Store) ListDebug(ctx context.Context) ([]Entry, error) {
	paths, err := s.timestamped(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list debug screenshots: %w", err)
	}

	entries := make([]Entry, 0, len(paths))
	for i := len(paths) - 1; i >= 0; i-- {
		entry := Entry{Path: paths[i]}
		if url, err := s.blobs.GetURL(ctx, paths[i]); err == nil {
			entry.URL = url
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
