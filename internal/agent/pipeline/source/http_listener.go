package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/theeghanprojecthub/Observix-Pro-Max/internal/agent/pipeline/errkind"
	"github.com/theeghanprojecthub/Observix-Pro-Max/internal/common/model"
)

// httpListener binds its own HTTP server on construction, exposing an
// ingest path and a health check. Received events land in a bounded queue
// the same way syslogUDP's receiver does; Poll only drains it.
type httpListener struct {
	path     string
	queue    chan model.Event
	server   *http.Server
	listener net.Listener
	logger   *zap.Logger
}

func newHTTPListener(options map[string]any, logger *zap.Logger) (*httpListener, error) {
	addr := optString(options, "listen_addr", "0.0.0.0")
	port := optInt(options, "port", 0)
	path := optString(options, "path", "/ingest")
	capacity := optInt(options, "queue_capacity", defaultQueueCapacity)

	ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", addr, port))
	if err != nil {
		return nil, errkind.SourceOpen("http_listener: listen on %s:%d: %v", addr, port, err)
	}

	h := &httpListener{
		path:     path,
		queue:    make(chan model.Event, capacity),
		listener: ln,
		logger:   logger.Named("http_listener"),
	}

	router := chi.NewRouter()
	router.Post(path, h.handleIngest)
	router.Get("/v1/health", h.handleHealth)
	h.server = &http.Server{Handler: router}

	go func() {
		if err := h.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			h.logger.Error("http listener serve error", zap.Error(err))
		}
	}()

	return h, nil
}

func (h *httpListener) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"ok":true}`))
}

func (h *httpListener) handleIngest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 16<<20))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	meta := map[string]any{
		"source":     "http_listener",
		"path":       h.path,
		"client":     r.RemoteAddr,
		"user_agent": r.UserAgent(),
	}

	parsed := h.parseEvents(body, r.Header.Get("Content-Type"), meta)
	events := parsed[:0]
	for _, ev := range parsed {
		if ev.Raw != "" {
			events = append(events, ev)
		}
	}

	accepted := 0
	for _, ev := range events {
		select {
		case h.queue <- ev:
			accepted++
		default:
			h.logger.Warn("http_listener queue full, dropping event")
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if accepted == 0 && len(events) > 0 {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"detail":"queue full"}`))
		return
	}
	w.WriteHeader(http.StatusAccepted)
	_, _ = w.Write([]byte(fmt.Sprintf(`{"accepted":%d}`, accepted)))
}

func (h *httpListener) parseEvents(body []byte, contentType string, meta map[string]any) []model.Event {
	now := time.Now().UTC()

	if !strings.Contains(contentType, "application/json") {
		return []model.Event{rawTextEvent(string(body), now, meta)}
	}

	var asArray []json.RawMessage
	if err := json.Unmarshal(body, &asArray); err == nil {
		events := make([]model.Event, 0, len(asArray))
		for _, item := range asArray {
			events = append(events, jsonItemToEvent(item, now, meta))
		}
		return events
	}

	return []model.Event{jsonItemToEvent(body, now, meta)}
}

func jsonItemToEvent(raw json.RawMessage, ts time.Time, meta map[string]any) model.Event {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return rawTextEvent(s, ts, meta)
	}

	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err == nil {
		ev := model.Event{TS: ts, Structured: obj, Meta: cloneMeta(meta)}
		if r, ok := firstNonEmptyString(obj, "raw", "message", "text", "line", "body"); ok {
			ev.Raw = r
		} else {
			ev.Raw = string(raw)
		}
		return ev
	}

	return rawTextEvent(string(raw), ts, meta)
}

func rawTextEvent(text string, ts time.Time, meta map[string]any) model.Event {
	return model.Event{TS: ts, Raw: text, Meta: cloneMeta(meta)}
}

func cloneMeta(meta map[string]any) map[string]any {
	out := make(map[string]any, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}

func firstNonEmptyString(obj map[string]any, keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := obj[k]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s, true
			}
		}
	}
	return "", false
}

func (h *httpListener) Poll(ctx context.Context, maxEvents int) ([]model.Event, error) {
	events := make([]model.Event, 0, maxEvents)
	for len(events) < maxEvents {
		select {
		case ev := <-h.queue:
			events = append(events, ev)
		default:
			return events, nil
		}
	}
	return events, nil
}

func (h *httpListener) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return h.server.Shutdown(ctx)
}
