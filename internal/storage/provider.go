package storage

import (
	"context"
	"io"
)

// Provider stores uploaded workbooks and rendered PDFs.
type Provider interface {
	// StreamToFile returns a WriteCloser. Data written to it is streamed to the storage destination.
	// The key is the relative path/filename for the object.
	// The returned channel receives a single error (or nil) when the storage operation completes.
	StreamToFile(ctx context.Context, key string) (io.WriteCloser, <-chan error)

	// OpenFile opens the stored file for reading.
	OpenFile(ctx context.Context, key string) (io.ReadCloser, error)

	// GetDownloadURL returns a viewable/downloadable URL for the stored item.
	GetDownloadURL(key string) string
}

// Abort closes a writer returned by StreamToFile without committing the
// object, when the writer supports it. Otherwise it falls back to Close.
func Abort(w io.WriteCloser, cause error) error {
	if a, ok := w.(interface{ CloseWithError(error) error }); ok {
		return a.CloseWithError(cause)
	}
	return w.Close()
}

// Put streams r into key and waits for the store to confirm.
func Put(ctx context.Context, p Provider, key string, r io.Reader) (int64, error) {
	w, done := p.StreamToFile(ctx, key)
	if w == nil {
		return 0, <-done
	}

	n, err := io.Copy(w, r)
	if err != nil {
		_ = Abort(w, err)
		<-done
		return n, err
	}
	if err := w.Close(); err != nil {
		<-done
		return n, err
	}
	return n, <-done
}
