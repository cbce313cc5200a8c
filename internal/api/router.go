package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"sheet2pdf/internal/api/middleware"
)

// RouterConfig holds the settings the HTTP surface needs.
type RouterConfig struct {
	AllowedOrigins []string
	Env            string
	APISecret      string
}

// NewRouter wires the routes. Conversion and job routes require a request
// signature when APISecret is set; the progress stream and health check do
// not.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", h.HandleHealth).Methods(http.MethodGet)
	r.HandleFunc("/jobs/stream", h.HandleStream).Methods(http.MethodGet)

	maxBody := h.MaxUploadBytes
	if maxBody <= 0 {
		maxBody = 32 << 20
	}
	signed := r.NewRoute().Subrouter()
	signed.Use(mux.MiddlewareFunc(middleware.Signature(cfg.APISecret, maxBody)))
	signed.HandleFunc("/convert", h.HandleConvert).Methods(http.MethodPost)
	signed.HandleFunc("/jobs", h.HandleSubmit).Methods(http.MethodPost)
	signed.HandleFunc("/jobs", h.HandleListJobs).Methods(http.MethodGet)
	signed.HandleFunc("/jobs/{id}", h.HandleGetJob).Methods(http.MethodGet)

	return middleware.CORS(cfg.AllowedOrigins, cfg.Env)(r)
}
