// Package spec implements the control plane's pipeline-spec normalization,
// sanitization, and assignment ETag algorithm — the three pieces of logic
// that have to stay bit-for-bit exact for the protocol to behave (§4.1 of
// the assignment service contract).
package spec

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/theeghanprojecthub/Observix-Pro-Max/internal/common/model"
)

// ErrMissingSourceOrDestination is the InternalError a stored spec raises
// on read if it lacks source or destination — a data integrity violation
// that must never reach an agent as an incoherent DTO.
var ErrMissingSourceOrDestination = fmt.Errorf("pipeline_spec_invalid_missing_source_or_destination")

// metadataKeys are the fields control-plane metadata owns; they are
// stripped from the spec blob on write and re-joined into the DTO on read.
var metadataKeys = []string{"pipeline_id", "name", "enabled", "version"}

// Normalize accepts either the canonical spec shape or a singly/doubly
// wrapped {"spec": ...} form (legacy inputs) and returns the cleaned inner
// mapping with metadata keys stripped. It unwraps at most two levels: if
// after one unwrap the result still only contains a "spec" key wrapping
// another mapping, it unwraps once more.
func Normalize(raw map[string]any) map[string]any {
	candidate := raw
	for i := 0; i < 2; i++ {
		if hasSpecShape(candidate) {
			break
		}
		inner, ok := unwrapSpecKey(candidate)
		if !ok {
			break
		}
		candidate = inner
	}
	return sanitize(candidate)
}

// hasSpecShape reports whether m already looks like a canonical spec body,
// i.e. it contains at least one of source/destination/processor.
func hasSpecShape(m map[string]any) bool {
	if m == nil {
		return false
	}
	_, hasSource := m["source"]
	_, hasDest := m["destination"]
	_, hasProc := m["processor"]
	return hasSource || hasDest || hasProc
}

// unwrapSpecKey returns m["spec"] as a map if present, else ok=false.
func unwrapSpecKey(m map[string]any) (map[string]any, bool) {
	v, ok := m["spec"]
	if !ok {
		return nil, false
	}
	inner, ok := v.(map[string]any)
	return inner, ok
}

// sanitize strips the control-plane-owned metadata keys; every other key,
// including ones outside the pipeline-spec shape, is kept as-is.
func sanitize(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	for _, k := range metadataKeys {
		delete(out, k)
	}
	return out
}

// Validate fails with ErrMissingSourceOrDestination if the cleaned spec
// lacks source or destination — called by the Create/Update handlers before
// persisting and by ToDTO when re-hydrating a stored spec for an agent.
// Normalize does not itself validate.
func Validate(cleaned map[string]any) error {
	if !hasSpecShape(cleaned) {
		return ErrMissingSourceOrDestination
	}
	if _, ok := cleaned["source"]; !ok {
		return ErrMissingSourceOrDestination
	}
	if _, ok := cleaned["destination"]; !ok {
		return ErrMissingSourceOrDestination
	}
	return nil
}

// ToDTO re-joins control-plane metadata with a cleaned spec blob to produce
// the agent-facing PipelineSpec DTO.
func ToDTO(pipelineID, name string, enabled bool, version int64, updatedAt time.Time, cleaned map[string]any) (model.PipelineSpec, error) {
	if err := Validate(cleaned); err != nil {
		return model.PipelineSpec{}, err
	}

	source, err := toSourceSpec(cleaned["source"])
	if err != nil {
		return model.PipelineSpec{}, err
	}
	dest, err := toDestinationSpec(cleaned["destination"])
	if err != nil {
		return model.PipelineSpec{}, err
	}
	proc := toProcessorSpec(cleaned["processor"])

	batchMaxEvents := 200
	if v, ok := numeric(cleaned["batch_max_events"]); ok {
		batchMaxEvents = int(v)
	}
	batchMaxSeconds := 1.0
	if v, ok := numeric(cleaned["batch_max_seconds"]); ok {
		batchMaxSeconds = v
	}

	return model.PipelineSpec{
		PipelineID:      pipelineID,
		Name:            name,
		Enabled:         enabled,
		Source:          source,
		Processor:       proc,
		Destination:     dest,
		BatchMaxEvents:  batchMaxEvents,
		BatchMaxSeconds: batchMaxSeconds,
		Revision:        version,
		UpdatedAt:       updatedAt,
	}, nil
}

func toSourceSpec(v any) (model.SourceSpec, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return model.SourceSpec{}, ErrMissingSourceOrDestination
	}
	typ, _ := m["type"].(string)
	if typ == "" {
		return model.SourceSpec{}, ErrMissingSourceOrDestination
	}
	opts, _ := m["options"].(map[string]any)
	return model.SourceSpec{Type: typ, Options: opts}, nil
}

func toDestinationSpec(v any) (model.DestinationSpec, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return model.DestinationSpec{}, ErrMissingSourceOrDestination
	}
	typ, _ := m["type"].(string)
	if typ == "" {
		return model.DestinationSpec{}, ErrMissingSourceOrDestination
	}
	opts, _ := m["options"].(map[string]any)
	return model.DestinationSpec{Type: typ, Options: opts}, nil
}

func toProcessorSpec(v any) model.ProcessorSpec {
	m, ok := v.(map[string]any)
	if !ok {
		return model.ProcessorSpec{Mode: "raw"}
	}
	mode, _ := m["mode"].(string)
	if mode == "" {
		mode = "raw"
	}
	opts, _ := m["options"].(map[string]any)
	return model.ProcessorSpec{Mode: mode, Options: opts}
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// ETagRow is one tuple contributing to the assignment ETag: assignment_id,
// pipeline_id, pipeline.version, pipeline.updated_at. Rows must already be
// ordered by assignment creation timestamp ascending before calling
// ComputeETag — the function does not re-sort.
type ETagRow struct {
	AssignmentID string    `json:"assignment_id"`
	PipelineID   string    `json:"pipeline_id"`
	Version      int64     `json:"version"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ComputeETag serializes rows canonically (stable key order via struct tag
// order, compact separators, RFC3339Nano/ISO-8601 timestamps) and returns
// the SHA-256 hex digest. ETag changes iff the set of assignments or any
// bound pipeline's version changes — it must never depend on agent
// heartbeat time, which is why ETagRow carries no agent fields at all.
func ComputeETag(rows []ETagRow) string {
	if rows == nil {
		rows = []ETagRow{}
	}
	data, err := json.Marshal(rows)
	if err != nil {
		// Marshal of a plain slice of structs with only string/int64/time
		// fields cannot fail; panicking here would indicate a programming
		// error in ETagRow's shape, not a runtime condition to recover from.
		panic(fmt.Errorf("spec: compute etag: %w", err))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
