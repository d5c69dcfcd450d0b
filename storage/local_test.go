package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewLocalStorage(t *testing.T) {
	tests := []struct {
		name      string
		baseDir   string
		wantError bool
	}{
		{name: "valid base directory", baseDir: t.TempDir()},
		{name: "creates non-existent directory", baseDir: filepath.Join(t.TempDir(), "artifacts")},
		{name: "empty base directory", baseDir: "", wantError: true},
		{name: "dot as base directory", baseDir: ".", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage, err := NewLocalStorage(tt.baseDir)
			if tt.wantError {
				if err == nil {
					t.Error("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if _, err := os.Stat(storage.baseDir); err != nil {
				t.Errorf("base directory not created: %v", err)
			}
		})
	}
}

func TestLocalStorage_UploadReplacesAndDownloads(t *testing.T) {
	ctx := context.Background()
	storage, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}

	if err := storage.Upload(ctx, "debug/latest.png", strings.NewReader("first")); err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if err := storage.Upload(ctx, "debug/latest.png", strings.NewReader("second")); err != nil {
		t.Fatalf("second upload failed: %v", err)
	}

	rc, err := storage.Download(ctx, "debug/latest.png")
	if err != nil {
		t.Fatalf("download failed: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if !bytes.Equal(data, []byte("second")) {
		t.Errorf("content = %q, want %q", data, "second")
	}

	entries, err := os.ReadDir(filepath.Join(storage.baseDir, "debug"))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the final file in directory, found %d entries", len(entries))
	}
}

func TestLocalStorage_RejectsTraversal(t *testing.T) {
	ctx := context.Background()
	storage, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}

	for _, p := range []string{"", "../outside.png", "debug/../../outside.png"} {
		if err := storage.Upload(ctx, p, strings.NewReader("x")); !errors.Is(err, ErrInvalidPath) {
			t.Errorf("Upload(%q) error = %v, want ErrInvalidPath", p, err)
		}
		if _, err := storage.Download(ctx, p); !errors.Is(err, ErrInvalidPath) {
			t.Errorf("Download(%q) error = %v, want ErrInvalidPath", p, err)
		}
	}
}

func TestLocalStorage_MissingFiles(t *testing.T) {
	ctx := context.Background()
	storage, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}

	if _, err := storage.Download(ctx, "debug/latest.png"); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("Download error = %v, want ErrFileNotFound", err)
	}
	if err := storage.Delete(ctx, "debug/latest.png"); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("Delete error = %v, want ErrFileNotFound", err)
	}
	if _, err := storage.GetURL(ctx, "debug/latest.png"); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("GetURL error = %v, want ErrFileNotFound", err)
	}
	exists, err := storage.Exists(ctx, "debug/latest.png")
	if err != nil || exists {
		t.Errorf("Exists = %v, %v; want false, nil", exists, err)
	}
}

func TestLocalStorage_List(t *testing.T) {
	ctx := context.Background()
	storage, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}

	for _, p := range []string{
		"debug/20240101T100002Z-timeout.png",
		"debug/20240101T100000Z-error.png",
		"capture/latest.png",
	} {
		if err := storage.Upload(ctx, p, strings.NewReader("img")); err != nil {
			t.Fatalf("upload %s: %v", p, err)
		}
	}

	got, err := storage.List(ctx, "debug/")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	want := []string{
		"debug/20240101T100000Z-error.png",
		"debug/20240101T100002Z-timeout.png",
	}
	if len(got) != len(want) {
		t.Fatalf("List = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("List[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	all, err := storage.List(ctx, "")
	if err != nil {
		t.Fatalf("list all failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("List(\"\") returned %d paths, want 3", len(all))
	}
}
