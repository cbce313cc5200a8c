package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"sheet2pdf/internal/hub"
	"sheet2pdf/internal/render"
	"sheet2pdf/internal/security"
	"sheet2pdf/internal/storage"
	"sheet2pdf/internal/store"
	"sheet2pdf/internal/worker"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS middleware governs browser access
	},
}

// History looks up persisted jobs.
type History interface {
	Get(ctx context.Context, id string) (*store.Conversion, error)
	List(ctx context.Context, limit int) ([]store.Conversion, error)
	Ping(ctx context.Context) error
}

type Handler struct {
	Pool    *worker.Pool
	Storage storage.Provider
	// History is nil when no database is configured.
	History        History
	Hub            *hub.Hub
	MaxUploadBytes int64
	JobTimeout     time.Duration
}

// HandleConvert renders the uploaded workbook and responds with the PDF.
func (h *Handler) HandleConvert(w http.ResponseWriter, r *http.Request) {
	data, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	var pdf bytes.Buffer
	res, err := h.Pool.ConvertSync(r.Context(), bytes.NewReader(data), &pdf)
	if err != nil {
		slog.Error("Conversion failed", "error", err)
		http.Error(w, "Conversion failed: "+err.Error(), statusFor(err))
		return
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		name = "workbook.xlsx"
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", pdfName(name)))
	w.Header().Set("Content-Length", strconv.Itoa(pdf.Len()))
	w.Header().Set("X-Sheets", strconv.Itoa(res.Sheets))
	if _, err := pdf.WriteTo(w); err != nil {
		slog.Warn("Failed to write PDF response", "error", err)
	}
}

// HandleSubmit stores the upload and queues it for background conversion.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	emailAddr := r.URL.Query().Get("email")
	if emailAddr != "" {
		if err := security.ValidateEmail(emailAddr); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	data, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	job := worker.NewConversionJob("", emailAddr, h.JobTimeout)
	if _, err := storage.Put(r.Context(), h.Storage, job.InputKey, bytes.NewReader(data)); err != nil {
		job.Cancel()
		slog.Error("Failed to store upload", "job_id", job.ID, "error", err)
		http.Error(w, "Failed to store upload", http.StatusInternalServerError)
		return
	}

	if err := h.Pool.Submit(job); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Location", "/jobs/"+job.ID)
	writeJSON(w, http.StatusAccepted, job.Snapshot())
}

func (h *Handler) HandleGetJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if snap, ok := h.Pool.Get(id); ok {
		writeJSON(w, http.StatusOK, snap)
		return
	}
	if h.History == nil {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}

	c, err := h.History.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	} else if err != nil {
		slog.Error("Job lookup failed", "job_id", id, "error", err)
		http.Error(w, "Job lookup failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) HandleListJobs(w http.ResponseWriter, r *http.Request) {
	if h.History == nil {
		http.Error(w, "Job history is not configured", http.StatusNotImplemented)
		return
	}

	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n > 500 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	jobs, err := h.History.List(r.Context(), limit)
	if err != nil {
		slog.Error("List jobs failed", "error", err)
		http.Error(w, "Failed to list jobs", http.StatusInternalServerError)
		return
	}
	if jobs == nil {
		jobs = []store.Conversion{}
	}
	writeJSON(w, http.StatusOK, jobs)
}

// HandleStream upgrades to a websocket that receives every job update.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Stream upgrade failed", "error", err)
		return
	}

	h.Hub.Register(conn)

	// Keep connection open
	for {
		if _, _, err := conn.NextReader(); err != nil {
			h.Hub.Unregister(conn)
			break
		}
	}
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok"}
	code := http.StatusOK
	if h.History != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.History.Ping(ctx); err != nil {
			status["status"] = "degraded"
			status["database"] = err.Error()
			code = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, code, status)
}

// readUpload reads and validates the workbook in the request body. It writes
// the error response itself and reports ok == false on failure.
func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body := io.Reader(r.Body)
	if h.MaxUploadBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, security.ErrUploadTooLarge.Error(), http.StatusRequestEntityTooLarge)
			return nil, false
		}
		http.Error(w, "Failed to read upload", http.StatusBadRequest)
		return nil, false
	}

	if err := security.ValidateUpload(data, h.MaxUploadBytes); err != nil {
		code := http.StatusBadRequest
		if errors.Is(err, security.ErrUploadTooLarge) {
			code = http.StatusRequestEntityTooLarge
		}
		http.Error(w, err.Error(), code)
		return nil, false
	}
	return data, true
}

// statusFor maps conversion errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, render.ErrSourceRead), errors.Is(err, render.ErrLayout):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func pdfName(upload string) string {
	base := path.Base(strings.ReplaceAll(upload, "\\", "/"))
	return strings.TrimSuffix(base, path.Ext(base)) + ".pdf"
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to encode response", "error", err)
	}
}
