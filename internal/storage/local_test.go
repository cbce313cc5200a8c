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

	"sheet2pdf/internal/security"
)

func TestLocalProvider_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	p := NewLocalProvider(dir)
	ctx := context.Background()

	n, err := Put(ctx, p, "outputs/job.pdf", strings.NewReader("%PDF-1.3 body"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if n != 13 {
		t.Errorf("Expected 13 bytes, got %d", n)
	}

	r, err := p.OpenFile(ctx, "outputs/job.pdf")
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer r.Close()
	data, _ := io.ReadAll(r)
	if string(data) != "%PDF-1.3 body" {
		t.Errorf("Expected stored content, got %q", data)
	}

	if _, err := os.Stat(filepath.Join(dir, "outputs", "job.pdf.tmp")); !os.IsNotExist(err) {
		t.Error("Expected temporary file to be renamed away")
	}
}

func TestLocalProvider_NotVisibleUntilClose(t *testing.T) {
	dir := t.TempDir()
	p := NewLocalProvider(dir)

	w, done := p.StreamToFile(context.Background(), "a.pdf")
	if _, err := w.Write([]byte("partial")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "a.pdf")); !os.IsNotExist(err) {
		t.Error("Expected no object before Close")
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("done: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "a.pdf")); err != nil {
		t.Errorf("Expected object after Close: %v", err)
	}
}

func TestLocalProvider_Abort(t *testing.T) {
	dir := t.TempDir()
	p := NewLocalProvider(dir)
	cause := errors.New("render failed")

	w, done := p.StreamToFile(context.Background(), "b.pdf")
	_, _ = w.Write([]byte("partial"))
	if err := Abort(w, cause); err != nil {
		t.Fatalf("Abort: %v", err)
	}
	if err := <-done; !errors.Is(err, cause) {
		t.Errorf("Expected abort cause, got %v", err)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("Expected empty directory, got %d entries", len(entries))
	}
}

func TestLocalProvider_InvalidKey(t *testing.T) {
	p := NewLocalProvider(t.TempDir())

	w, done := p.StreamToFile(context.Background(), "../escape.pdf")
	if w != nil {
		t.Error("Expected nil writer")
	}
	if err := <-done; !errors.Is(err, security.ErrInvalidKey) {
		t.Errorf("Expected ErrInvalidKey, got %v", err)
	}

	if _, err := Put(context.Background(), p, "/abs.pdf", bytes.NewReader(nil)); !errors.Is(err, security.ErrInvalidKey) {
		t.Errorf("Expected ErrInvalidKey from Put, got %v", err)
	}
	if _, err := p.OpenFile(context.Background(), "../x"); !errors.Is(err, security.ErrInvalidKey) {
		t.Errorf("Expected ErrInvalidKey from OpenFile, got %v", err)
	}
}

func TestLocalProvider_GetDownloadURL(t *testing.T) {
	dir := t.TempDir()
	p := NewLocalProvider(dir)

	got := p.GetDownloadURL("outputs/x.pdf")
	if !strings.HasPrefix(got, "file://") || !strings.HasSuffix(got, filepath.Join("outputs", "x.pdf")) {
		t.Errorf("Unexpected URL %q", got)
	}
}

func TestContentType(t *testing.T) {
	tests := map[string]string{
		"a.pdf":     "application/pdf",
		"a.pdf.gz":  "application/gzip",
		"in.XLSX":   "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"something": "application/octet-stream",
	}
	for key, want := range tests {
		if got := ContentType(key); got != want {
			t.Errorf("ContentType(%q): expected %q, got %q", key, want, got)
		}
	}
}
