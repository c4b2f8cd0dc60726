package source

import (
	"bufio"
	"context"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/theeghanprojecthub/Observix-Pro-Max/internal/agent/pipeline/errkind"
	"github.com/theeghanprojecthub/Observix-Pro-Max/internal/common/model"
)

// fileTail tails a single file, opening it lazily on the first Poll call so
// construction itself never fails on a path that appears later. Rotation is
// not detected: once open, a truncated or renamed file is not reopened.
type fileTail struct {
	path      string
	fromStart bool
	logger    *zap.Logger

	file    *os.File
	reader  *bufio.Reader
	pending string // bytes read since the last newline, not yet a whole line
}

func newFileTail(options map[string]any, logger *zap.Logger) (*fileTail, error) {
	path := repairEscapedPath(optString(options, "path", ""))
	return &fileTail{
		path:      path,
		fromStart: optBool(options, "from_start", false),
		logger:    logger.Named("file_tail"),
	}, nil
}

// repairEscapedPath substitutes literal TAB/CR/LF characters back to
// \t/\r/\n. These show up when a YAML value like "C:\temp\out.log" is
// parsed as an unescaped string and backslash-t/r/n get interpreted as
// actual control characters by an upstream tool before reaching us.
func repairEscapedPath(path string) string {
	r := strings.NewReplacer("\t", "\\t", "\r", "\\r", "\n", "\\n")
	return r.Replace(path)
}

func (f *fileTail) Poll(ctx context.Context, maxEvents int) ([]model.Event, error) {
	if f.file == nil {
		if err := f.open(); err != nil {
			return nil, err
		}
	}

	events := make([]model.Event, 0, maxEvents)
	now := time.Now().UTC()
	for len(events) < maxEvents {
		chunk, err := f.reader.ReadString('\n')
		if chunk != "" {
			f.pending += chunk
		}
		if err != nil {
			// Whatever's in f.pending is a line still being written — hold
			// it rather than emitting a partial, and pick up where we left
			// off on the next poll once the writer appends the newline.
			break
		}

		line := strings.TrimRight(f.pending, "\r\n")
		f.pending = ""
		if line != "" {
			events = append(events, model.Event{TS: now, Raw: line})
		}
	}
	return events, nil
}

func (f *fileTail) open() error {
	if _, err := os.Stat(f.path); err != nil {
		if os.IsNotExist(err) {
			return errkind.SourceOpen("file_tail: path %q does not exist", f.path)
		}
		return errkind.SourceOpen("file_tail: stat %q: %v", f.path, err)
	}

	file, err := os.Open(f.path)
	if err != nil {
		return errkind.SourceOpen("file_tail: open %q: %v", f.path, err)
	}
	if !f.fromStart {
		if _, err := file.Seek(0, os.SEEK_END); err != nil {
			file.Close()
			return errkind.SourceOpen("file_tail: seek end of %q: %v", f.path, err)
		}
	}
	f.file = file
	f.reader = bufio.NewReader(file)
	f.logger.Info("opened file for tailing", zap.String("path", f.path), zap.Bool("from_start", f.fromStart))
	return nil
}

func (f *fileTail) Close() error {
	if f.file == nil {
		return nil
	}
	return f.file.Close()
}
