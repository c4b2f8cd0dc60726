// Package source implements the three pull-side inputs a pipeline runner
// can poll: tailing a local file, receiving syslog datagrams over UDP, and
// accepting pushed events over a small HTTP listener.
package source

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/theeghanprojecthub/Observix-Pro-Max/internal/common/model"
)

// Source is polled by the owning pipeline runner once per tick. Poll must
// return at most maxEvents items and must not block beyond a short bound —
// sources that receive asynchronously (syslog, HTTP) buffer into their own
// queue from a background goroutine and Poll only drains it.
type Source interface {
	Poll(ctx context.Context, maxEvents int) ([]model.Event, error)
	Close() error
}

// New dispatches on spec.Type to build a concrete Source. Returns an error
// for any type other than the three the runner contract names.
func New(spec model.SourceSpec, logger *zap.Logger) (Source, error) {
	switch spec.Type {
	case "file_tail":
		return newFileTail(spec.Options, logger)
	case "syslog_udp":
		return newSyslogUDP(spec.Options, logger)
	case "http_listener":
		return newHTTPListener(spec.Options, logger)
	default:
		return nil, fmt.Errorf("source: unknown type %q", spec.Type)
	}
}

func optString(options map[string]any, key, def string) string {
	if v, ok := options[key]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return def
}

func optInt(options map[string]any, key string, def int) int {
	if v, ok := options[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case int64:
			return int(n)
		case float64:
			return int(n)
		}
	}
	return def
}

func optBool(options map[string]any, key string, def bool) bool {
	if v, ok := options[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}
