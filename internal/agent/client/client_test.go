package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestRegisterSucceeds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/agents/register" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	if err := c.Register(context.Background(), "agent-1", "us-east", nil, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHeartbeatUnknownAgentIsPermanentNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"agent_not_found"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	err := c.Heartbeat(context.Background(), "ghost", "us-east", nil, nil)
	if err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected exactly one call for a permanent failure, got %d", calls)
	}
}

func TestHeartbeatRetriesTransientFailureThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	if err := c.Heartbeat(context.Background(), "agent-1", "us-east", nil, nil); err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if atomic.LoadInt32(&calls) < 2 {
		t.Fatalf("expected at least one retry, got %d calls", calls)
	}
}

func TestGetAssignmentsDecodesResponseAndSetsETag(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"agent_id":    "agent-1",
			"region":      "us-east",
			"etag":        "abc123",
			"assignments": []any{},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	resp, err := c.GetAssignments(context.Background(), "agent-1", "us-east")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.ETag != "abc123" || len(resp.Assignments) != 0 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}
