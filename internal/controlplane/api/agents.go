package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/theeghanprojecthub/Observix-Pro-Max/internal/common/model"
	"github.com/theeghanprojecthub/Observix-Pro-Max/internal/controlplane/db"
	"github.com/theeghanprojecthub/Observix-Pro-Max/internal/controlplane/repository"
	"github.com/theeghanprojecthub/Observix-Pro-Max/internal/controlplane/spec"
)

// AgentHandler groups the register/heartbeat/list/assignments-pull
// handlers, the four endpoints that make up the agent-facing half of the
// assignment service contract.
type AgentHandler struct {
	agents      repository.AgentRepository
	assignments repository.AssignmentRepository
	pipelines   repository.PipelineRepository
	// offlineThreshold is how long since last_seen_at an agent is still
	// considered ONLINE.
	offlineThreshold time.Duration
	logger           *zap.Logger
}

// NewAgentHandler creates an AgentHandler.
func NewAgentHandler(agents repository.AgentRepository, assignments repository.AssignmentRepository, pipelines repository.PipelineRepository, offlineThreshold time.Duration, logger *zap.Logger) *AgentHandler {
	return &AgentHandler{
		agents:           agents,
		assignments:      assignments,
		pipelines:        pipelines,
		offlineThreshold: offlineThreshold,
		logger:           logger.Named("agent_handler"),
	}
}

type registerRequest struct {
	AgentID      string   `json:"agent_id"`
	Region       string   `json:"region"`
	AdminPort    *int     `json:"admin_port,omitempty"`
	Capabilities []string `json:"capabilities"`
	Token        string   `json:"token,omitempty"`
}

// Register handles POST /v1/agents/register. Upserts the agent and sets
// last_seen_at = now, never failing on an unknown agent_id.
func (h *AgentHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.AgentID == "" {
		Error(w, http.StatusBadRequest, "agent_id is required")
		return
	}
	if req.Region == "" {
		Error(w, http.StatusBadRequest, "region is required")
		return
	}

	caps, err := json.Marshal(req.Capabilities)
	if err != nil {
		h.logger.Error("failed to marshal capabilities", zap.Error(err))
		Error(w, http.StatusInternalServerError, "internal_error")
		return
	}

	agent := &db.Agent{
		ID:           req.AgentID,
		Region:       req.Region,
		AdminPort:    req.AdminPort,
		Capabilities: string(caps),
	}
	if err := h.agents.Upsert(r.Context(), agent); err != nil {
		h.logger.Error("failed to upsert agent", zap.String("agent_id", req.AgentID), zap.Error(err))
		Error(w, http.StatusInternalServerError, "internal_error")
		return
	}

	JSON(w, http.StatusOK, map[string]any{"ok": true})
}

type heartbeatRequest struct {
	Region       string   `json:"region"`
	AdminPort    *int     `json:"admin_port,omitempty"`
	Capabilities []string `json:"capabilities"`
}

// Heartbeat handles POST /v1/agents/{agent_id}/heartbeat. Requires the
// agent to already exist — a 404 here is the signal that tells the agent
// to re-register on its next cycle.
func (h *AgentHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agent_id")

	var req heartbeatRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var capsJSON string
	if req.Capabilities != nil {
		b, err := json.Marshal(req.Capabilities)
		if err != nil {
			h.logger.Error("failed to marshal capabilities", zap.Error(err))
			Error(w, http.StatusInternalServerError, "internal_error")
			return
		}
		capsJSON = string(b)
	}

	_, err := h.agents.Touch(r.Context(), agentID, req.Region, req.AdminPort, capsJSON)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			Error(w, http.StatusNotFound, "agent_not_found")
			return
		}
		h.logger.Error("failed to heartbeat agent", zap.String("agent_id", agentID), zap.Error(err))
		Error(w, http.StatusInternalServerError, "internal_error")
		return
	}

	JSON(w, http.StatusOK, map[string]any{"ok": true})
}

type agentResponse struct {
	AgentID      string   `json:"agent_id"`
	Region       string   `json:"region"`
	TenantID     string   `json:"tenant_id,omitempty"`
	AdminPort    *int     `json:"admin_port,omitempty"`
	Capabilities []string `json:"capabilities"`
	CreatedAt    string   `json:"created_at"`
	LastSeenAt   string   `json:"last_seen_at"`
	Status       string   `json:"status"`
}

func (h *AgentHandler) toResponse(a db.Agent) agentResponse {
	var caps []string
	_ = json.Unmarshal([]byte(a.Capabilities), &caps)

	status := "OFFLINE"
	if time.Since(a.LastSeenAt) <= h.offlineThreshold {
		status = "ONLINE"
	}

	return agentResponse{
		AgentID:      a.ID,
		Region:       a.Region,
		TenantID:     a.TenantID,
		AdminPort:    a.AdminPort,
		Capabilities: caps,
		CreatedAt:    a.CreatedAt.UTC().Format(time.RFC3339Nano),
		LastSeenAt:   a.LastSeenAt.UTC().Format(time.RFC3339Nano),
		Status:       status,
	}
}

// List handles GET /v1/agents.
func (h *AgentHandler) List(w http.ResponseWriter, r *http.Request) {
	agents, _, err := h.agents.List(r.Context(), repository.ListOptions{})
	if err != nil {
		h.logger.Error("failed to list agents", zap.Error(err))
		Error(w, http.StatusInternalServerError, "internal_error")
		return
	}

	items := make([]agentResponse, len(agents))
	for i := range agents {
		items[i] = h.toResponse(agents[i])
	}

	JSON(w, http.StatusOK, map[string]any{"agents": items})
}

// GetAssignments handles GET /v1/agents/{agent_id}/assignments?region=...,
// the hot-path pull an agent polls on its reconcile cadence. It touches
// the agent's last_seen_at the same as a heartbeat would (the pull is
// itself proof of liveness), then returns every assignment bound to
// (agent_id, region) together with an ETag computed over the exact
// (assignment_id, pipeline_id, version, updated_at) tuples returned.
func (h *AgentHandler) GetAssignments(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agent_id")
	region := r.URL.Query().Get("region")
	if region == "" {
		Error(w, http.StatusBadRequest, "region is required")
		return
	}

	agent, err := h.agents.GetByID(r.Context(), agentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			Error(w, http.StatusNotFound, "agent_not_found")
			return
		}
		h.logger.Error("failed to look up agent", zap.String("agent_id", agentID), zap.Error(err))
		Error(w, http.StatusInternalServerError, "internal_error")
		return
	}
	if _, err := h.agents.Touch(r.Context(), agentID, region, agent.AdminPort, agent.Capabilities); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			Error(w, http.StatusNotFound, "agent_not_found")
			return
		}
		h.logger.Error("failed to touch agent on pull", zap.String("agent_id", agentID), zap.Error(err))
		Error(w, http.StatusInternalServerError, "internal_error")
		return
	}

	rows, err := h.assignments.ListForAgentRegionWithPipelines(r.Context(), agentID, region)
	if err != nil {
		h.logger.Error("failed to list assignments", zap.String("agent_id", agentID), zap.Error(err))
		Error(w, http.StatusInternalServerError, "internal_error")
		return
	}

	// A bound pipeline that fails to decode is a stored-data problem, not an
	// agent-input problem: it must surface as a 500 and must not silently
	// shrink the assignment set out from under the ETag, which would leave
	// the digest covering a row the response no longer contains.
	etagRows := make([]spec.ETagRow, 0, len(rows))
	assignments := make([]model.Assignment, 0, len(rows))
	for _, row := range rows {
		var cleaned map[string]any
		if err := json.Unmarshal([]byte(row.Pipeline.Spec), &cleaned); err != nil {
			h.logger.Error("stored pipeline spec is not valid json", zap.String("pipeline_id", row.Pipeline.ID.String()), zap.Error(err))
			Error(w, http.StatusInternalServerError, spec.ErrMissingSourceOrDestination.Error())
			return
		}
		dto, err := spec.ToDTO(row.Pipeline.ID.String(), row.Pipeline.Name, row.Pipeline.Enabled, row.Pipeline.Version, row.Pipeline.UpdatedAt, cleaned)
		if err != nil {
			h.logger.Error("stored pipeline spec failed validation on read", zap.String("pipeline_id", row.Pipeline.ID.String()), zap.Error(err))
			Error(w, http.StatusInternalServerError, err.Error())
			return
		}

		etagRows = append(etagRows, spec.ETagRow{
			AssignmentID: row.Assignment.ID.String(),
			PipelineID:   row.Pipeline.ID.String(),
			Version:      row.Pipeline.Version,
			UpdatedAt:    row.Pipeline.UpdatedAt,
		})
		assignments = append(assignments, model.Assignment{
			AssignmentID: row.Assignment.ID.String(),
			AgentID:      row.Assignment.AgentID,
			Region:       row.Assignment.Region,
			Pipeline:     dto,
			Revision:     row.Pipeline.Version,
			UpdatedAt:    row.Pipeline.UpdatedAt,
		})
	}

	resp := model.AssignmentsResponse{
		AgentID:     agentID,
		Region:      region,
		ETag:        spec.ComputeETag(etagRows),
		Assignments: assignments,
	}

	w.Header().Set("ETag", resp.ETag)
	JSON(w, http.StatusOK, resp)
}
