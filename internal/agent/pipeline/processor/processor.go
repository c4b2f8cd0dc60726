// Package processor implements the two transform modes a pipeline runner
// can apply to a batch before it reaches a destination: raw passthrough and
// indexed normalization via the indexer's HTTP contract.
package processor

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/theeghanprojecthub/Observix-Pro-Max/internal/common/model"
)

// Processor transforms a batch of events. Mode "raw" returns it unchanged;
// mode "indexed" calls out to the indexer once per event.
type Processor interface {
	Process(ctx context.Context, batch []model.Event) ([]model.Event, error)
}

// New dispatches on spec.Mode, defaulting to "raw" when empty (matching a
// stored spec that omitted processor entirely).
func New(spec model.ProcessorSpec, logger *zap.Logger) (Processor, error) {
	mode := spec.Mode
	if mode == "" {
		mode = "raw"
	}
	switch mode {
	case "raw":
		return rawProcessor{}, nil
	case "indexed":
		return newIndexedProcessor(spec.Options, logger)
	default:
		return nil, fmt.Errorf("processor: unknown mode %q", mode)
	}
}

type rawProcessor struct{}

func (rawProcessor) Process(ctx context.Context, batch []model.Event) ([]model.Event, error) {
	return batch, nil
}

func optString(options map[string]any, key, def string) string {
	if v, ok := options[key]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
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
