package middleware

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"sheet2pdf/internal/security"
)

// Signature rejects requests whose X-Signature header is not the HMAC of
// method, path, body and X-Timestamp under secret. The body is buffered, at
// most maxBody bytes, and handed on unchanged. An empty secret disables the
// check.
func Signature(secret string, maxBody int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
			if err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
					return
				}
				http.Error(w, "Failed to read request body", http.StatusBadRequest)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			err = security.VerifyHMAC(secret, r.Method, r.URL.Path, body,
				r.Header.Get("X-Timestamp"), r.Header.Get("X-Signature"))
			if err != nil {
				slog.Warn("Rejected request signature", "path", r.URL.Path, "remote", r.RemoteAddr, "error", err)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
