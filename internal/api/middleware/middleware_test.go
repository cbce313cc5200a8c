package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"sheet2pdf/internal/security"
)

func echoBody() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Write(body)
	})
}

func TestSignature(t *testing.T) {
	handler := Signature("secret", 1024)(echoBody())
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	body := "PK\x03\x04data"

	tests := []struct {
		name      string
		signature string
		body      string
		want      int
	}{
		{"valid", security.Sign("secret", "POST", "/convert", []byte(body), ts), body, http.StatusOK},
		{"bad signature", "deadbeef", body, http.StatusUnauthorized},
		{"tampered body", security.Sign("secret", "POST", "/convert", []byte(body), ts), body + "x", http.StatusUnauthorized},
		{"too large", "", strings.Repeat("x", 2048), http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/convert", strings.NewReader(tt.body))
			req.Header.Set("X-Timestamp", ts)
			req.Header.Set("X-Signature", tt.signature)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("Expected status %d, got %d", tt.want, rec.Code)
			}
			if tt.want == http.StatusOK && rec.Body.String() != tt.body {
				t.Errorf("Expected body to reach handler unchanged, got %q", rec.Body.String())
			}
		})
	}
}

func TestSignature_Disabled(t *testing.T) {
	handler := Signature("", 1024)(echoBody())
	req := httptest.NewRequest(http.MethodPost, "/convert", strings.NewReader("hello"))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || rec.Body.String() != "hello" {
		t.Errorf("Expected pass-through, got %d %q", rec.Code, rec.Body.String())
	}
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name       string
		allowed    []string
		origin     string
		method     string
		wantOrigin string
		wantStatus int
	}{
		{"wildcard", []string{"*"}, "https://a.example", http.MethodGet, "*", http.StatusOK},
		{"listed origin", []string{"https://a.example"}, "https://a.example", http.MethodGet, "https://a.example", http.StatusOK},
		{"unlisted origin", []string{"https://a.example"}, "https://b.example", http.MethodGet, "", http.StatusOK},
		{"preflight", []string{"*"}, "https://a.example", http.MethodOptions, "*", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })
			req := httptest.NewRequest(tt.method, "/jobs", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()

			CORS(tt.allowed, "production")(next).ServeHTTP(rec, req)

			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Expected allow origin %q, got %q", tt.wantOrigin, got)
			}
			if rec.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if called == (tt.method == http.MethodOptions) {
				t.Errorf("Unexpected next handler call state %v", called)
			}
		})
	}
}
