package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/theeghanprojecthub/Observix-Pro-Max/internal/controlplane/db"
	"github.com/theeghanprojecthub/Observix-Pro-Max/internal/controlplane/repository"
	"github.com/theeghanprojecthub/Observix-Pro-Max/internal/controlplane/spec"
)

// PipelineHandler exposes create/update/list for pipeline definitions.
type PipelineHandler struct {
	pipelines repository.PipelineRepository
	logger    *zap.Logger
}

// NewPipelineHandler creates a PipelineHandler.
func NewPipelineHandler(pipelines repository.PipelineRepository, logger *zap.Logger) *PipelineHandler {
	return &PipelineHandler{pipelines: pipelines, logger: logger.Named("pipeline_handler")}
}

type pipelineRequest struct {
	Name    string         `json:"name"`
	Enabled *bool          `json:"enabled"`
	Spec    map[string]any `json:"spec"`
}

type pipelineResponse struct {
	PipelineID string `json:"pipeline_id"`
	Name       string `json:"name"`
	Enabled    bool   `json:"enabled"`
	Version    int64  `json:"version"`
	Spec       any    `json:"spec"`
	UpdatedAt  string `json:"updated_at"`
}

func toPipelineResponse(p db.Pipeline) pipelineResponse {
	var cleaned map[string]any
	_ = json.Unmarshal([]byte(p.Spec), &cleaned)
	return pipelineResponse{
		PipelineID: p.ID.String(),
		Name:       p.Name,
		Enabled:    p.Enabled,
		Version:    p.Version,
		Spec:       cleaned,
		UpdatedAt:  p.UpdatedAt.UTC().Format(rfc3339Nano),
	}
}

const rfc3339Nano = "2006-01-02T15:04:05.999999999Z07:00"

// Create handles POST /v1/pipelines. The request spec may be wrapped in a
// {"spec": ...} envelope (up to two levels deep); Normalize and Validate
// reject anything that still lacks source/destination after unwrapping.
func (h *PipelineHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req pipelineRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Name == "" {
		Error(w, http.StatusBadRequest, "name is required")
		return
	}

	cleaned := spec.Normalize(req.Spec)
	if err := spec.Validate(cleaned); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	specJSON, err := json.Marshal(cleaned)
	if err != nil {
		h.logger.Error("failed to marshal pipeline spec", zap.Error(err))
		Error(w, http.StatusInternalServerError, "internal_error")
		return
	}

	pipeline := &db.Pipeline{
		Name:    req.Name,
		Enabled: enabled,
		Spec:    string(specJSON),
	}
	if err := h.pipelines.Create(r.Context(), pipeline); err != nil {
		h.logger.Error("failed to create pipeline", zap.Error(err))
		Error(w, http.StatusInternalServerError, "internal_error")
		return
	}

	JSON(w, http.StatusCreated, map[string]any{"pipeline_id": pipeline.ID.String()})
}

// Update handles PUT /v1/pipelines/{id}. Version is bumped unconditionally
// by the repository, even for a byte-identical spec.
func (h *PipelineHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid pipeline id")
		return
	}

	var req pipelineRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Name == "" {
		Error(w, http.StatusBadRequest, "name is required")
		return
	}

	cleaned := spec.Normalize(req.Spec)
	if err := spec.Validate(cleaned); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	specJSON, err := json.Marshal(cleaned)
	if err != nil {
		h.logger.Error("failed to marshal pipeline spec", zap.Error(err))
		Error(w, http.StatusInternalServerError, "internal_error")
		return
	}

	_, err = h.pipelines.Update(r.Context(), id, req.Name, enabled, string(specJSON))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			Error(w, http.StatusNotFound, "pipeline_not_found")
			return
		}
		h.logger.Error("failed to update pipeline", zap.String("pipeline_id", id.String()), zap.Error(err))
		Error(w, http.StatusInternalServerError, "internal_error")
		return
	}

	JSON(w, http.StatusOK, map[string]any{"ok": true})
}

// List handles GET /v1/pipelines.
func (h *PipelineHandler) List(w http.ResponseWriter, r *http.Request) {
	pipelines, _, err := h.pipelines.List(r.Context(), repository.ListOptions{})
	if err != nil {
		h.logger.Error("failed to list pipelines", zap.Error(err))
		Error(w, http.StatusInternalServerError, "internal_error")
		return
	}

	items := make([]pipelineResponse, len(pipelines))
	for i := range pipelines {
		items[i] = toPipelineResponse(pipelines[i])
	}

	JSON(w, http.StatusOK, map[string]any{"pipelines": items})
}
