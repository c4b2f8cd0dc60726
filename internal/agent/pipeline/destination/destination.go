// Package destination implements the three sinks a pipeline runner can
// send a batch to: append-to-file, HTTP POST, and syslog UDP emission.
package destination

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/theeghanprojecthub/Observix-Pro-Max/internal/common/model"
)

// Destination either durably accepts a whole batch or returns an error.
// There is no partial-batch acknowledgement — the runner treats any
// failure as a whole-batch failure and retries the entire batch.
type Destination interface {
	Send(ctx context.Context, batch []model.Event) error
}

// New dispatches on spec.Type to build a concrete Destination.
func New(spec model.DestinationSpec, logger *zap.Logger) (Destination, error) {
	switch spec.Type {
	case "file":
		return newFileDestination(spec.Options, logger)
	case "http":
		return newHTTPDestination(spec.Options, logger)
	case "syslog_udp":
		return newSyslogUDPDestination(spec.Options, logger)
	default:
		return nil, fmt.Errorf("destination: unknown type %q", spec.Type)
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
