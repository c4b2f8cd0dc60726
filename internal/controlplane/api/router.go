package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// NewRouter assembles the full control plane HTTP surface: chi's standard
// RequestID/RealIP/Recoverer middleware, the zap-backed RequestLogger, a
// health check, and the v1 agent/pipeline/assignment routes.
func NewRouter(agentH *AgentHandler, pipelineH *PipelineHandler, assignmentH *AssignmentHandler, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Route("/agents", func(r chi.Router) {
			r.Post("/register", agentH.Register)
			r.Get("/", agentH.List)
			r.Post("/{agent_id}/heartbeat", agentH.Heartbeat)
			r.Get("/{agent_id}/assignments", agentH.GetAssignments)
		})

		r.Route("/pipelines", func(r chi.Router) {
			r.Post("/", pipelineH.Create)
			r.Get("/", pipelineH.List)
			r.Put("/{id}", pipelineH.Update)
		})

		r.Route("/assignments", func(r chi.Router) {
			r.Post("/", assignmentH.Create)
			r.Delete("/{id}", assignmentH.Delete)
		})
	})

	return r
}
