package storage

import (
	"context"
	"testing"
	"time"
)

func TestNewS3Storage(t *testing.T) {
	tests := []struct {
		name      string
		bucket    string
		region    string
		wantError bool
	}{
		{
			name:   "valid bucket and region",
			bucket: "capture-artifacts",
			region: "us-east-1",
		},
		{
			name:      "empty bucket",
			region:    "us-east-1",
			wantError: true,
		},
		{
			name:      "empty region",
			bucket:    "capture-artifacts",
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage, err := NewS3Storage(context.Background(), tt.bucket, tt.region)
			if tt.wantError {
				if err == nil {
					t.Error("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if storage.bucket != tt.bucket {
				t.Errorf("bucket mismatch: got %q, want %q", storage.bucket, tt.bucket)
			}
			if storage.presignExpiration != 15*time.Minute {
				t.Errorf("default presign expiration = %v, want 15m", storage.presignExpiration)
			}
		})
	}
}

func TestObjectKey(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		want      string
		wantError bool
	}{
		{name: "simple key", path: "debug/latest.png", want: "debug/latest.png"},
		{name: "cleaned inner traversal", path: "debug/../capture/latest.png", want: "capture/latest.png"},
		{name: "leading dot slash", path: "./debug/latest.png", want: "debug/latest.png"},
		{name: "empty", path: "", wantError: true},
		{name: "escaping traversal", path: "../secrets.png", wantError: true},
		{name: "absolute", path: "/etc/passwd", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := objectKey(tt.path)
			if tt.wantError {
				if err == nil {
					t.Errorf("expected error for path %q but got none", tt.path)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error for path %q: %v", tt.path, err)
			}
			if got != tt.want {
				t.Errorf("objectKey(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestNewBlobStorage(t *testing.T) {
	ctx := context.Background()

	if _, err := NewBlobStorage(ctx, Config{Type: "local"}); err == nil {
		t.Error("expected error for local storage without base dir")
	}
	if _, err := NewBlobStorage(ctx, Config{Type: "ftp"}); err == nil {
		t.Error("expected error for unsupported storage type")
	}

	s, err := NewBlobStorage(ctx, Config{Type: "s3", S3Bucket: "b", S3Region: "eu-west-1", S3PresignExpiry: time.Hour})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s3s, ok := s.(*S3Storage)
	if !ok {
		t.Fatalf("expected *S3Storage, got %T", s)
	}
	if s3s.presignExpiration != time.Hour {
		t.Errorf("presign expiration = %v, want 1h", s3s.presignExpiration)
	}

	local, err := NewBlobStorage(ctx, Config{Type: "LOCAL", BaseDir: t.TempDir()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := local.(*LocalStorage); !ok {
		t.Errorf("expected *LocalStorage, got %T", local)
	}
}
