package reconciler

import (
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/theeghanprojecthub/Observix-Pro-Max/internal/common/model"
)

func newTestReconciler(t *testing.T) *Reconciler {
	t.Helper()
	return New(Config{AgentID: "agent-1", Region: "us-east"}, nil, zap.NewNop())
}

func pipelineSpec(t *testing.T, id string, revision int64, enabled bool) model.PipelineSpec {
	t.Helper()
	return model.PipelineSpec{
		PipelineID: id,
		Name:       "demo-" + id,
		Enabled:    enabled,
		Source:     model.SourceSpec{Type: "file_tail", Options: map[string]any{"path": filepath.Join(t.TempDir(), "in.log")}},
		Destination: model.DestinationSpec{
			Type:    "file",
			Options: map[string]any{"path": filepath.Join(t.TempDir(), "out.log")},
		},
		BatchMaxEvents:  200,
		BatchMaxSeconds: 1,
		Revision:        revision,
		UpdatedAt:       time.Now().UTC(),
	}
}

func TestReconcileStartsAndStopsRunners(t *testing.T) {
	r := newTestReconciler(t)

	resp := model.AssignmentsResponse{
		ETag: "h1",
		Assignments: []model.Assignment{
			{AssignmentID: "a1", Pipeline: pipelineSpec(t, "p1", 1, true)},
		},
	}
	r.reconcile(resp)
	if len(r.runners) != 1 {
		t.Fatalf("expected one runner after first reconcile, got %d", len(r.runners))
	}

	resp2 := model.AssignmentsResponse{ETag: "h2", Assignments: nil}
	r.reconcile(resp2)
	if len(r.runners) != 0 {
		t.Fatalf("expected zero runners once the assignment is dropped, got %d", len(r.runners))
	}
}

func TestReconcileSkipsDisabledPipelines(t *testing.T) {
	r := newTestReconciler(t)

	resp := model.AssignmentsResponse{
		ETag: "h1",
		Assignments: []model.Assignment{
			{AssignmentID: "a1", Pipeline: pipelineSpec(t, "p1", 1, false)},
		},
	}
	r.reconcile(resp)
	if len(r.runners) != 0 {
		t.Fatalf("expected disabled pipeline to stay unstarted, got %d runners", len(r.runners))
	}
}

func TestReconcileIsNoOpWhenETagUnchanged(t *testing.T) {
	r := newTestReconciler(t)
	spec := pipelineSpec(t, "p1", 1, true)

	resp := model.AssignmentsResponse{ETag: "h1", Assignments: []model.Assignment{{AssignmentID: "a1", Pipeline: spec}}}
	r.reconcile(resp)
	firstRunner := r.runners["p1"]

	r.reconcile(resp)
	if r.runners["p1"] != firstRunner {
		t.Fatal("expected the same runner instance to survive a no-op reconcile (unchanged etag)")
	}
}

func TestReconcileRestartsRunnerOnRevisionChange(t *testing.T) {
	r := newTestReconciler(t)
	spec := pipelineSpec(t, "p1", 1, true)

	r.reconcile(model.AssignmentsResponse{ETag: "h1", Assignments: []model.Assignment{{AssignmentID: "a1", Pipeline: spec}}})
	firstRunner := r.runners["p1"]

	bumped := spec
	bumped.Revision = 2
	r.reconcile(model.AssignmentsResponse{ETag: "h2", Assignments: []model.Assignment{{AssignmentID: "a1", Pipeline: bumped}}})

	secondRunner := r.runners["p1"]
	if secondRunner == firstRunner {
		t.Fatal("expected a revision bump to replace the runner instance, not mutate it in place")
	}
	if secondRunner.Revision() != 2 {
		t.Fatalf("expected the new runner to carry the bumped revision, got %d", secondRunner.Revision())
	}
}
