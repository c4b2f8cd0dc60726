// Package model holds the types shared across process boundaries: the
// pipeline-spec DTO exchanged between control plane and agent, and the
// Event type that flows through every pipeline runner.
package model

import "time"

// Event is the unit of data flowing through a pipeline: source -> buffer ->
// processor -> destination. Raw is always non-empty by the time an event
// leaves a source. Meta is stamped by the runner with routing metadata
// just before a batch is sent; sources may seed it with their own
// provenance fields (e.g. remote_addr for syslog).
type Event struct {
	TS         time.Time      `json:"ts"`
	Raw        string         `json:"raw"`
	Structured map[string]any `json:"structured,omitempty"`
	Meta       map[string]any `json:"meta,omitempty"`
}

// AsJSONMap renders the event the way destinations that serialize whole
// events (the jsonl file format and the http destination) expect to see it.
func (e Event) AsJSONMap() map[string]any {
	out := map[string]any{
		"ts":  e.TS,
		"raw": e.Raw,
	}
	if e.Structured != nil {
		out["structured"] = e.Structured
	} else {
		out["structured"] = map[string]any{}
	}
	if e.Meta != nil {
		out["meta"] = e.Meta
	} else {
		out["meta"] = map[string]any{}
	}
	return out
}

// MetaString returns meta[key] as a string, or "" if absent or not a string.
func (e Event) MetaString(key string) string {
	if e.Meta == nil {
		return ""
	}
	v, ok := e.Meta[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// SourceSpec is the tagged-variant DTO for a pipeline's source.
type SourceSpec struct {
	Type    string         `json:"type"`
	Options map[string]any `json:"options,omitempty"`
}

// ProcessorSpec is the tagged-variant DTO for a pipeline's processor.
// Mode defaults to "raw" when omitted from a stored spec.
type ProcessorSpec struct {
	Mode    string         `json:"mode"`
	Options map[string]any `json:"options,omitempty"`
}

// DestinationSpec is the tagged-variant DTO for a pipeline's destination.
type DestinationSpec struct {
	Type    string         `json:"type"`
	Options map[string]any `json:"options,omitempty"`
}

// PipelineSpec is the agent-facing view of a pipeline: control-plane
// metadata (pipeline_id, name, enabled, revision, updated_at) re-joined
// with the normalized spec blob (source/processor/destination/batch_*).
type PipelineSpec struct {
	PipelineID      string          `json:"pipeline_id"`
	Name            string          `json:"name"`
	Enabled         bool            `json:"enabled"`
	Source          SourceSpec      `json:"source"`
	Processor       ProcessorSpec   `json:"processor"`
	Destination     DestinationSpec `json:"destination"`
	BatchMaxEvents  int             `json:"batch_max_events"`
	BatchMaxSeconds float64         `json:"batch_max_seconds"`
	Revision        int64           `json:"revision"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Assignment is one binding of a pipeline to an (agent, region) pair, as
// returned by the assignments-pull endpoint.
type Assignment struct {
	AssignmentID string       `json:"assignment_id"`
	AgentID      string       `json:"agent_id"`
	Region       string       `json:"region"`
	Pipeline     PipelineSpec `json:"pipeline"`
	Revision     int64        `json:"revision"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// AssignmentsResponse is the body of GET /v1/agents/{agent_id}/assignments.
type AssignmentsResponse struct {
	AgentID     string       `json:"agent_id"`
	Region      string       `json:"region"`
	ETag        string       `json:"etag"`
	Assignments []Assignment `json:"assignments"`
}
