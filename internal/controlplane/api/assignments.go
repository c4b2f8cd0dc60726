package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/theeghanprojecthub/Observix-Pro-Max/internal/controlplane/repository"
)

// AssignmentHandler exposes create/delete for agent-to-pipeline bindings.
type AssignmentHandler struct {
	assignments repository.AssignmentRepository
	agents      repository.AgentRepository
	pipelines   repository.PipelineRepository
	logger      *zap.Logger
}

// NewAssignmentHandler creates an AssignmentHandler.
func NewAssignmentHandler(assignments repository.AssignmentRepository, agents repository.AgentRepository, pipelines repository.PipelineRepository, logger *zap.Logger) *AssignmentHandler {
	return &AssignmentHandler{
		assignments: assignments,
		agents:      agents,
		pipelines:   pipelines,
		logger:      logger.Named("assignment_handler"),
	}
}

type createAssignmentRequest struct {
	AgentID    string `json:"agent_id"`
	Region     string `json:"region"`
	PipelineID string `json:"pipeline_id"`
}

type assignmentResponse struct {
	AssignmentID string `json:"assignment_id"`
	AgentID      string `json:"agent_id"`
	Region       string `json:"region"`
	PipelineID   string `json:"pipeline_id"`
}

// Create handles POST /v1/assignments. Both the agent and the pipeline
// must already exist; creating the same (agent_id, region, pipeline_id)
// triple twice returns the existing assignment rather than erroring.
func (h *AssignmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createAssignmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.AgentID == "" || req.Region == "" || req.PipelineID == "" {
		Error(w, http.StatusBadRequest, "agent_id, region, and pipeline_id are required")
		return
	}

	pipelineID, err := uuid.Parse(req.PipelineID)
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid pipeline_id")
		return
	}

	if _, err := h.agents.GetByID(r.Context(), req.AgentID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			Error(w, http.StatusNotFound, "agent_not_found")
			return
		}
		h.logger.Error("failed to look up agent", zap.String("agent_id", req.AgentID), zap.Error(err))
		Error(w, http.StatusInternalServerError, "internal_error")
		return
	}
	if _, err := h.pipelines.GetByID(r.Context(), pipelineID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			Error(w, http.StatusNotFound, "pipeline_not_found")
			return
		}
		h.logger.Error("failed to look up pipeline", zap.String("pipeline_id", req.PipelineID), zap.Error(err))
		Error(w, http.StatusInternalServerError, "internal_error")
		return
	}

	assignment, err := h.assignments.GetOrCreate(r.Context(), req.AgentID, req.Region, pipelineID)
	if err != nil {
		h.logger.Error("failed to create assignment", zap.Error(err))
		Error(w, http.StatusInternalServerError, "internal_error")
		return
	}

	JSON(w, http.StatusCreated, assignmentResponse{
		AssignmentID: assignment.ID.String(),
		AgentID:      assignment.AgentID,
		Region:       assignment.Region,
		PipelineID:   assignment.PipelineID.String(),
	})
}

// Delete handles DELETE /v1/assignments/{id}.
func (h *AssignmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid assignment id")
		return
	}

	if err := h.assignments.Delete(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			Error(w, http.StatusNotFound, "assignment_not_found")
			return
		}
		h.logger.Error("failed to delete assignment", zap.String("assignment_id", id.String()), zap.Error(err))
		Error(w, http.StatusInternalServerError, "internal_error")
		return
	}

	JSON(w, http.StatusOK, map[string]any{"ok": true})
}
