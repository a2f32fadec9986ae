package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"server/internal/domain"
)

func TestFileStoreRoundtrip(t *testing.T) {
	s, err := NewFileStore(t.TempDir(), "http://localhost:8080/v1/files")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	ctx := context.Background()

	payload := []byte("image bytes")
	url, err := s.Upload(ctx, "abc123.jpg", payload, "image/jpeg")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if url != "http://localhost:8080/v1/files/abc123.jpg" {
		t.Fatalf("url = %s", url)
	}

	rc, err := s.GetStream(ctx, "abc123.jpg")
	if err != nil {
		t.Fatalf("GetStream: %v", err)
	}
	defer rc.Close()
	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("payload changed: %q", got)
	}
}

func TestFileStoreSignedURL(t *testing.T) {
	s, err := NewFileStore(t.TempDir(), "http://localhost:8080/v1/files")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	url, err := s.SignedURL(context.Background(), "abc123_thumb.jpg", 5*time.Minute)
	if err != nil {
		t.Fatalf("SignedURL: %v", err)
	}
	if url != "http://localhost:8080/v1/files/abc123_thumb.jpg" {
		t.Fatalf("url = %s", url)
	}

	// Resolving the same key again keeps working and yields the same URL.
	again, err := s.SignedURL(context.Background(), "abc123_thumb.jpg", 5*time.Minute)
	if err != nil {
		t.Fatalf("second SignedURL: %v", err)
	}
	if again != url {
		t.Fatalf("second resolution returned %s, first returned %s", again, url)
	}
}

func TestFileStoreMissingKey(t *testing.T) {
	s, err := NewFileStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if _, err := s.GetStream(context.Background(), "nope.jpg"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFileStoreRejectsTraversal(t *testing.T) {
	s, err := NewFileStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	ctx := context.Background()

	for _, key := range []string{"../escape.jpg", "..\\escape.jpg", "", "   ", "a/../../b"} {
		if _, err := s.Upload(ctx, key, []byte("x"), "image/jpeg"); err == nil {
			t.Fatalf("key %q accepted", key)
		}
	}
}

func TestSanitizeKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{in: "abc.jpg", want: "abc.jpg", ok: true},
		{in: "/abc.jpg", want: "abc.jpg", ok: true},
		{in: "./abc.jpg", want: "abc.jpg", ok: true},
		{in: "dir/abc.jpg", want: "dir/abc.jpg", ok: true},
		{in: "dir/../abc.jpg", want: "abc.jpg", ok: true},
		{in: "../abc.jpg", ok: false},
		{in: "..", ok: false},
		{in: "", ok: false},
	}
	for _, tt := range tests {
		got, err := sanitizeKey(tt.in)
		if tt.ok && (err != nil || got != tt.want) {
			t.Fatalf("sanitizeKey(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
		if !tt.ok && err == nil {
			t.Fatalf("sanitizeKey(%q) accepted as %q", tt.in, got)
		}
	}
}
