package processor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/theeghanprojecthub/Observix-Pro-Max/internal/common/model"
)

func newIndexedForServer(t *testing.T, body string, status int) *indexedProcessor {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	p, err := newIndexedProcessor(map[string]any{"indexer_url": srv.URL}, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return p
}

func TestIndexedProcessorAcceptsDocWrapperMissingRaw(t *testing.T) {
	p := newIndexedForServer(t, `{"doc":{"message":"hello"}}`, http.StatusOK)

	out, err := p.Process(context.Background(), []model.Event{{Raw: "original"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 || out[0].Raw != "hello" {
		t.Fatalf("expected raw derived from message field, got %+v", out)
	}
}

func TestIndexedProcessorAcceptsBareList(t *testing.T) {
	p := newIndexedForServer(t, `[{"raw":"one"},{"raw":"two"}]`, http.StatusOK)

	out, err := p.Process(context.Background(), []model.Event{{Raw: "original"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 || out[0].Raw != "one" || out[1].Raw != "two" {
		t.Fatalf("expected both bare-list docs converted, got %+v", out)
	}
}

func TestIndexedProcessorEmptyResponseFails(t *testing.T) {
	p := newIndexedForServer(t, `{"events":[]}`, http.StatusOK)

	_, err := p.Process(context.Background(), []model.Event{{Raw: "original"}})
	if err == nil {
		t.Fatal("expected an error for an empty events list")
	}
}

func TestIndexedProcessor422IsInvalidRequest(t *testing.T) {
	p := newIndexedForServer(t, `{"detail":"bad profile"}`, http.StatusUnprocessableEntity)

	_, err := p.Process(context.Background(), []model.Event{{Raw: "original"}})
	if err == nil {
		t.Fatal("expected an IndexerInvalidRequest error on 422")
	}
}

func TestNormalizeIndexerURLCollapsesRepeatedSuffix(t *testing.T) {
	got := normalizeIndexerURL("http://indexer/v1/normalize/v1/normalize")
	want := "http://indexer/v1/normalize"
	if got != want {
		t.Fatalf("expected collapsed suffix %q, got %q", want, got)
	}
}

func TestNormalizeIndexerURLAppendsSuffixWhenAbsent(t *testing.T) {
	got := normalizeIndexerURL("http://indexer")
	want := "http://indexer/v1/normalize"
	if got != want {
		t.Fatalf("expected suffix appended, got %q", got)
	}
}
