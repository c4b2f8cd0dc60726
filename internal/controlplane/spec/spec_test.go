package spec

import (
	"testing"
	"time"
)

func canonicalSpec() map[string]any {
	return map[string]any{
		"source":      map[string]any{"type": "syslog_udp", "options": map[string]any{"port": float64(5514)}},
		"destination": map[string]any{"type": "file", "options": map[string]any{"path": "/tmp/out.log"}},
	}
}

func TestNormalizeStripsMetadataKeys(t *testing.T) {
	raw := canonicalSpec()
	raw["pipeline_id"] = "p1"
	raw["name"] = "demo"
	raw["enabled"] = true
	raw["version"] = 3

	cleaned := Normalize(raw)

	for _, k := range []string{"pipeline_id", "name", "enabled", "version"} {
		if _, ok := cleaned[k]; ok {
			t.Errorf("expected %q to be stripped, got %v", k, cleaned[k])
		}
	}
	if _, ok := cleaned["source"]; !ok {
		t.Error("expected source to survive normalization")
	}
	if _, ok := cleaned["destination"]; !ok {
		t.Error("expected destination to survive normalization")
	}
}

func TestNormalizeUnwrapsSingleSpecWrapper(t *testing.T) {
	wrapped := map[string]any{"spec": canonicalSpec()}
	cleaned := Normalize(wrapped)
	if err := Validate(cleaned); err != nil {
		t.Fatalf("expected valid spec after single unwrap, got %v", err)
	}
}

func TestNormalizeUnwrapsDoubleSpecWrapper(t *testing.T) {
	wrapped := map[string]any{"spec": map[string]any{"spec": canonicalSpec()}}
	cleaned := Normalize(wrapped)
	if err := Validate(cleaned); err != nil {
		t.Fatalf("expected valid spec after double unwrap, got %v", err)
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	raw := canonicalSpec()
	raw["name"] = "demo"

	once := Normalize(raw)
	twice := Normalize(once)

	if len(once) != len(twice) {
		t.Fatalf("normalize is not idempotent: %v vs %v", once, twice)
	}
	for k, v := range once {
		if twice[k] == nil && v != nil {
			t.Errorf("key %q lost on second normalize", k)
		}
	}
}

func TestValidateFailsOnMissingDestination(t *testing.T) {
	cleaned := map[string]any{"source": map[string]any{"type": "file_tail"}}
	if err := Validate(cleaned); err != ErrMissingSourceOrDestination {
		t.Fatalf("expected ErrMissingSourceOrDestination, got %v", err)
	}
}

func TestComputeETagStableAcrossNoOpPulls(t *testing.T) {
	rows := []ETagRow{
		{AssignmentID: "a1", PipelineID: "p1", Version: 1, UpdatedAt: time.Unix(1000, 0).UTC()},
	}
	first := ComputeETag(rows)
	second := ComputeETag(rows)
	if first != second {
		t.Fatalf("etag must be stable across repeated pulls: %s != %s", first, second)
	}
}

func TestComputeETagChangesOnVersionBump(t *testing.T) {
	base := []ETagRow{
		{AssignmentID: "a1", PipelineID: "p1", Version: 1, UpdatedAt: time.Unix(1000, 0).UTC()},
	}
	bumped := []ETagRow{
		{AssignmentID: "a1", PipelineID: "p1", Version: 2, UpdatedAt: time.Unix(2000, 0).UTC()},
	}
	if ComputeETag(base) == ComputeETag(bumped) {
		t.Fatal("etag must change when a bound pipeline's version changes")
	}
}

func TestComputeETagChangesOnAssignmentSetChange(t *testing.T) {
	base := []ETagRow{
		{AssignmentID: "a1", PipelineID: "p1", Version: 1, UpdatedAt: time.Unix(1000, 0).UTC()},
	}
	withExtra := append(append([]ETagRow{}, base...), ETagRow{
		AssignmentID: "a2", PipelineID: "p2", Version: 1, UpdatedAt: time.Unix(1000, 0).UTC(),
	})
	if ComputeETag(base) == ComputeETag(withExtra) {
		t.Fatal("etag must change when the assignment set changes")
	}
}

func TestToDTORejectsIncompleteStoredSpec(t *testing.T) {
	_, err := ToDTO("p1", "demo", true, 1, time.Now(), map[string]any{"source": map[string]any{"type": "file_tail"}})
	if err != ErrMissingSourceOrDestination {
		t.Fatalf("expected ErrMissingSourceOrDestination, got %v", err)
	}
}

func TestToDTODefaultsProcessorToRaw(t *testing.T) {
	dto, err := ToDTO("p1", "demo", true, 1, time.Now(), canonicalSpec())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dto.Processor.Mode != "raw" {
		t.Fatalf("expected default processor mode raw, got %q", dto.Processor.Mode)
	}
	if dto.BatchMaxEvents != 200 || dto.BatchMaxSeconds != 1.0 {
		t.Fatalf("expected default batch settings, got %d/%v", dto.BatchMaxEvents, dto.BatchMaxSeconds)
	}
}
