package s3

import (
	"context"
	"strings"
	"testing"
)

func TestValidateKey(t *testing.T) {
	b := &S3Backend{bucket: "test-bucket"}

	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{"valid simple key", "creator/user1/2026-08-30/image/photo.jpg", false},
		{"valid nested key", "member/u/d/other/file.bin", false},
		{"empty key", "", true},
		{"path traversal", "creator/../admin/file", true},
		{"leading traversal", "../etc/passwd", true},
		{"null byte", "file\x00name", true},
		{"url encoded", "file%2e%2e/name", true},
		{"dot only", ".", true},
		{"root only", "/", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := b.validateKey(tt.key)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateKey(%q) error = %v, wantErr %v", tt.key, err, tt.wantErr)
			}
		})
	}
}

func TestValidateTransferID(t *testing.T) {
	b := &S3Backend{bucket: "test-bucket"}

	if err := b.validateTransferID(""); err == nil {
		t.Error("expected error for empty transfer ID")
	}
	if err := b.validateTransferID("abc\x00def"); err == nil {
		t.Error("expected error for transfer ID with null byte")
	}
	if err := b.validateTransferID("2~kT3qXyz"); err != nil {
		t.Errorf("unexpected error for valid transfer ID: %v", err)
	}
	// S3 transfer IDs can be long opaque strings
	if err := b.validateTransferID(strings.Repeat("a", 512)); err != nil {
		t.Errorf("unexpected error for long transfer ID: %v", err)
	}
}

func TestNewS3BackendRequiresBucket(t *testing.T) {
	_, err := NewS3Backend(context.Background(), S3Config{})
	if err == nil {
		t.Fatal("expected error when bucket is empty")
	}
	if !strings.Contains(err.Error(), "bucket") {
		t.Errorf("error should mention bucket, got: %v", err)
	}
}
