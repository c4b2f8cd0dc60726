package destination

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/theeghanprojecthub/Observix-Pro-Max/internal/agent/pipeline/errkind"
	"github.com/theeghanprojecthub/Observix-Pro-Max/internal/common/model"
)

const defaultHTTPTimeout = 5 * time.Second

// httpDestination POSTs each batch as a JSON array. One pooled *http.Client
// is reused across every Send call for the lifetime of the destination.
type httpDestination struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

func newHTTPDestination(options map[string]any, logger *zap.Logger) (*httpDestination, error) {
	url := optString(options, "url", "")
	timeoutSeconds := optInt(options, "timeout_seconds", 0)
	timeout := defaultHTTPTimeout
	if timeoutSeconds > 0 {
		timeout = time.Duration(timeoutSeconds) * time.Second
	}
	return &httpDestination{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger.Named("http_destination"),
	}, nil
}

func (h *httpDestination) Send(ctx context.Context, batch []model.Event) error {
	payload := make([]map[string]any, len(batch))
	for i, ev := range batch {
		payload[i] = ev.AsJSONMap()
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return errkind.DestinationSend("http: marshal batch: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(data))
	if err != nil {
		return errkind.DestinationSend("http: build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return errkind.DestinationSend("http: request to %s: %v", h.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return errkind.DestinationSend("http: %s returned %s: %s", h.url, fmt.Sprint(resp.StatusCode), string(body))
	}
	return nil
}
