package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func TestFileTailFailsOpenOnMissingPath(t *testing.T) {
	ft, err := newFileTail(map[string]any{"path": filepath.Join(t.TempDir(), "missing.log")}, zap.NewNop())
	if err != nil {
		t.Fatalf("constructor should not fail eagerly: %v", err)
	}
	if _, err := ft.Poll(context.Background(), 10); err == nil {
		t.Fatal("expected SourceOpenFailure on first poll of a missing file")
	}
}

func TestFileTailFromStartReadsExistingContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	if err := os.WriteFile(path, []byte("line one\nline two\n"), 0o644); err != nil {
		t.Fatalf("failed to seed file: %v", err)
	}

	ft, err := newFileTail(map[string]any{"path": path, "from_start": true}, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer ft.Close()

	events, err := ft.Poll(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected poll error: %v", err)
	}
	if len(events) != 2 || events[0].Raw != "line one" || events[1].Raw != "line two" {
		t.Fatalf("expected two lines from start, got %+v", events)
	}
}

func TestFileTailDefaultsToEndOfFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	if err := os.WriteFile(path, []byte("already here\n"), 0o644); err != nil {
		t.Fatalf("failed to seed file: %v", err)
	}

	ft, err := newFileTail(map[string]any{"path": path}, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer ft.Close()

	events, err := ft.Poll(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected poll error: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no events tailing from EOF, got %+v", events)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("failed to reopen for append: %v", err)
	}
	if _, err := f.WriteString("new line\n"); err != nil {
		t.Fatalf("failed to append: %v", err)
	}
	f.Close()

	events, err = ft.Poll(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected poll error: %v", err)
	}
	if len(events) != 1 || events[0].Raw != "new line" {
		t.Fatalf("expected the appended line only, got %+v", events)
	}
}

func TestFileTailHoldsPartialLineUntilNewlineArrives(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	if err := os.WriteFile(path, []byte(""), 0o644); err != nil {
		t.Fatalf("failed to seed file: %v", err)
	}

	ft, err := newFileTail(map[string]any{"path": path, "from_start": true}, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer ft.Close()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("failed to reopen for append: %v", err)
	}
	defer f.Close()

	if _, err := f.WriteString("partial chunk"); err != nil {
		t.Fatalf("failed to write partial line: %v", err)
	}

	events, err := ft.Poll(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected poll error: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no events while the line is still unterminated, got %+v", events)
	}

	if _, err := f.WriteString(" completed\n"); err != nil {
		t.Fatalf("failed to complete the line: %v", err)
	}

	events, err = ft.Poll(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected poll error: %v", err)
	}
	if len(events) != 1 || events[0].Raw != "partial chunk completed" {
		t.Fatalf("expected the held partial and its completion joined into one line, got %+v", events)
	}
}

func TestRepairEscapedPathRestoresLiteralTabEscape(t *testing.T) {
	// A literal tab character (as if "\t" in a Windows path got interpreted
	// before reaching us) must come back as the two-character sequence
	// backslash-t.
	got := repairEscapedPath("C:\tdata\tout.log")
	want := `C:\tdata\tout.log`
	if got != want {
		t.Fatalf("expected literal tab repaired to backslash-t, got %q", got)
	}
}
