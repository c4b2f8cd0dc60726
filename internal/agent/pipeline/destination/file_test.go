package destination

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/theeghanprojecthub/Observix-Pro-Max/internal/common/model"
)

func TestFileDestinationRawFormatAppendsLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.log")
	d, err := newFileDestination(map[string]any{"path": path}, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := d.Send(context.Background(), []model.Event{{Raw: "one"}, {Raw: "two"}}); err != nil {
		t.Fatalf("unexpected send error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 2 || lines[0] != "one" || lines[1] != "two" {
		t.Fatalf("expected two raw lines, got %q", string(data))
	}
}

func TestFileDestinationJSONLFormatEmitsOneObjectPerLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	d, err := newFileDestination(map[string]any{"path": path, "format": "jsonl"}, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := d.Send(context.Background(), []model.Event{{Raw: "hello"}}); err != nil {
		t.Fatalf("unexpected send error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	if !strings.Contains(string(data), `"raw":"hello"`) {
		t.Fatalf("expected jsonl output to contain the raw field, got %q", string(data))
	}
}
