package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"sheet2pdf/internal/security"
)

type LocalProvider struct {
	basePath string
}

func NewLocalProvider(basePath string) *LocalProvider {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		slog.Error("Failed to ensure local storage directory exists", "path", basePath, "error", err)
	}
	return &LocalProvider{
		basePath: basePath,
	}
}

// StreamToFile writes into <key>.tmp and renames it over key on Close, so a
// reader never sees a half-written PDF.
func (p *LocalProvider) StreamToFile(ctx context.Context, key string) (io.WriteCloser, <-chan error) {
	errChan := make(chan error, 1)

	if err := security.ValidateKey(key); err != nil {
		errChan <- err
		close(errChan)
		return nil, errChan
	}

	fullPath := filepath.Join(p.basePath, key)
	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		errChan <- fmt.Errorf("failed to create directory %s: %w", dir, err)
		close(errChan)
		return nil, errChan
	}

	tmpPath := fullPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		errChan <- fmt.Errorf("failed to create file %s: %w", tmpPath, err)
		close(errChan)
		return nil, errChan
	}

	return &localWriter{
		f:       f,
		errChan: errChan,
		path:    fullPath,
		tmpPath: tmpPath,
	}, errChan
}

func (p *LocalProvider) OpenFile(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := security.ValidateKey(key); err != nil {
		return nil, err
	}
	return os.Open(filepath.Join(p.basePath, key))
}

func (p *LocalProvider) GetDownloadURL(key string) string {
	fullPath := filepath.Join(p.basePath, key)
	abs, _ := filepath.Abs(fullPath)
	return fmt.Sprintf("file://%s", abs)
}

type localWriter struct {
	f       *os.File
	errChan chan error
	path    string
	tmpPath string
	closed  bool
}

func (w *localWriter) Write(p []byte) (n int, err error) {
	return w.f.Write(p)
}

func (w *localWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	err := w.f.Close()
	if err == nil {
		err = os.Rename(w.tmpPath, w.path)
	}
	if err != nil {
		_ = os.Remove(w.tmpPath)
		w.errChan <- err
	} else {
		slog.Info("Local file write completed", "path", w.path)
		w.errChan <- nil
	}
	close(w.errChan)
	return err
}

// CloseWithError discards the temporary file and reports cause on the
// completion channel.
func (w *localWriter) CloseWithError(cause error) error {
	if w.closed {
		return nil
	}
	w.closed = true

	err := w.f.Close()
	if rmErr := os.Remove(w.tmpPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
		err = errors.Join(err, rmErr)
	}
	if cause == nil {
		cause = errors.New("write aborted")
	}
	w.errChan <- cause
	close(w.errChan)
	return err
}
