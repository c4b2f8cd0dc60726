package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/theeghanprojecthub/Observix-Pro-Max/internal/agent/pipeline/errkind"
	"github.com/theeghanprojecthub/Observix-Pro-Max/internal/common/model"
)

const defaultIndexerTimeout = 5 * time.Second

// indexedProcessor normalizes each event with one HTTP call to the
// indexer's /v1/normalize endpoint — the endpoint is documented single-doc
// per call, so there is no batching here even though the runner hands us a
// whole batch at once.
type indexedProcessor struct {
	url         string
	profile     string
	includeMeta bool
	client      *http.Client
	logger      *zap.Logger
}

func newIndexedProcessor(options map[string]any, logger *zap.Logger) (*indexedProcessor, error) {
	return &indexedProcessor{
		url:         normalizeIndexerURL(optString(options, "indexer_url", "")),
		profile:     optString(options, "profile", "passthrough"),
		includeMeta: optBool(options, "include_meta", false),
		client:      &http.Client{Timeout: defaultIndexerTimeout},
		logger:      logger.Named("indexed_processor"),
	}, nil
}

// normalizeIndexerURL ensures the configured base ends in exactly one
// "/v1/normalize" suffix, collapsing accidental repeats (e.g. a config
// value that already included the path once, then got it appended again
// by an earlier version of this code).
func normalizeIndexerURL(base string) string {
	trimmed := strings.TrimRight(base, "/")
	for strings.HasSuffix(trimmed, "/v1/normalize") {
		trimmed = strings.TrimSuffix(trimmed, "/v1/normalize")
		trimmed = strings.TrimRight(trimmed, "/")
	}
	return trimmed + "/v1/normalize"
}

type normalizeRequest struct {
	Profile     string `json:"profile"`
	Raw         string `json:"raw"`
	IncludeMeta bool   `json:"include_meta"`
}

func (p *indexedProcessor) Process(ctx context.Context, batch []model.Event) ([]model.Event, error) {
	out := make([]model.Event, 0, len(batch))
	for _, ev := range batch {
		normalized, err := p.normalizeOne(ctx, ev)
		if err != nil {
			return nil, err
		}
		out = append(out, normalized...)
	}
	return out, nil
}

func (p *indexedProcessor) normalizeOne(ctx context.Context, ev model.Event) ([]model.Event, error) {
	reqBody, err := json.Marshal(normalizeRequest{Profile: p.profile, Raw: ev.Raw, IncludeMeta: p.includeMeta})
	if err != nil {
		return nil, errkind.IndexerInvalidRequest("marshal request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, errkind.IndexerInvalidRequest("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, errkind.DestinationSend("indexer: request to %s: %v", p.url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errkind.DestinationSend("indexer: read response: %v", err)
	}

	if resp.StatusCode == http.StatusUnprocessableEntity {
		return nil, errkind.IndexerInvalidRequest("%s", string(body))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errkind.DestinationSend("indexer: %s returned %d: %s", p.url, resp.StatusCode, string(body))
	}

	docs, err := extractDocs(body)
	if err != nil {
		return nil, errkind.IndexerInvalidRequest("unrecognized response shape: %v", err)
	}
	if len(docs) == 0 {
		return nil, errkind.IndexerEmptyResponse("indexer returned no documents for profile %q", p.profile)
	}

	events := make([]model.Event, 0, len(docs))
	for _, doc := range docs {
		events = append(events, docToEvent(doc, ev))
	}
	return events, nil
}

// extractDocs accepts any of {events:[…]}, {event:{…}}, {docs:[…]},
// {doc:{…}}, or a bare list of mappings.
func extractDocs(body []byte) ([]map[string]any, error) {
	var asList []map[string]any
	if err := json.Unmarshal(body, &asList); err == nil {
		return asList, nil
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return nil, fmt.Errorf("neither a list nor an object: %w", err)
	}

	for _, listKey := range []string{"events", "docs"} {
		if raw, ok := wrapper[listKey]; ok {
			var list []map[string]any
			if err := json.Unmarshal(raw, &list); err != nil {
				return nil, fmt.Errorf("%s is not a list of objects: %w", listKey, err)
			}
			return list, nil
		}
	}
	for _, singleKey := range []string{"event", "doc"} {
		if raw, ok := wrapper[singleKey]; ok {
			var single map[string]any
			if err := json.Unmarshal(raw, &single); err != nil {
				return nil, fmt.Errorf("%s is not an object: %w", singleKey, err)
			}
			return []map[string]any{single}, nil
		}
	}
	return nil, fmt.Errorf("no events/event/docs/doc key present")
}

// docToEvent converts one indexer response document to an Event, deriving
// raw from the first present field among raw/message/text/line/body and
// falling back to the original event's raw if none are present.
func docToEvent(doc map[string]any, original model.Event) model.Event {
	raw := original.Raw
	for _, key := range []string{"raw", "message", "text", "line", "body"} {
		if v, ok := doc[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				raw = s
				break
			}
		}
	}

	structured := make(map[string]any, len(doc))
	for k, v := range doc {
		structured[k] = v
	}

	meta := map[string]any{}
	for k, v := range original.Meta {
		meta[k] = v
	}

	return model.Event{
		TS:         original.TS,
		Raw:        raw,
		Structured: structured,
		Meta:       meta,
	}
}
