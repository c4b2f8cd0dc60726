// Package api implements the indexer's HTTP surface: POST /v1/normalize
// and GET /v1/health, matching observix_indexer/api.py's two routes.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/theeghanprojecthub/Observix-Pro-Max/internal/indexer/profiles"
)

type errorBody struct {
	Detail string `json:"detail"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Detail: message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// Handler serves the indexer's two routes.
type Handler struct {
	logger *zap.Logger
}

// NewHandler creates a Handler.
func NewHandler(logger *zap.Logger) *Handler {
	return &Handler{logger: logger.Named("indexer_handler")}
}

type normalizeRequest struct {
	Profile     string `json:"profile"`
	Raw         string `json:"raw"`
	IncludeMeta bool   `json:"include_meta"`
}

// Normalize handles POST /v1/normalize. Defaults profile to "passthrough"
// when omitted, matching the Python reference's pydantic default.
func (h *Handler) Normalize(w http.ResponseWriter, r *http.Request) {
	var req normalizeRequest
	req.Profile = "passthrough"

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	profile, err := profiles.Lookup(req.Profile)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	doc, err := profile.Normalize(req.Raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := map[string]any{"ok": true, "doc": doc}
	if req.IncludeMeta {
		resp["meta"] = map[string]any{"profile": req.Profile}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Health handles GET /v1/health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// NewRouter builds the indexer's chi router.
func NewRouter(h *Handler, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/v1/health", h.Health)
	r.Post("/v1/normalize", h.Normalize)

	return r
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
