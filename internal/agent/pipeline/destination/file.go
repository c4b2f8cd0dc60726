package destination

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/theeghanprojecthub/Observix-Pro-Max/internal/agent/pipeline/errkind"
	"github.com/theeghanprojecthub/Observix-Pro-Max/internal/common/model"
)

// fileDestination appends each event in a batch to a configured path, in
// either raw (one line per event) or jsonl format. The file is opened once
// and kept open across sends; each batch's writes are followed by one Sync
// so the batch is durable on disk before Send returns.
type fileDestination struct {
	path   string
	format string
	logger *zap.Logger

	file *os.File
}

func newFileDestination(options map[string]any, logger *zap.Logger) (*fileDestination, error) {
	path := optString(options, "path", "")
	format := optString(options, "format", "raw")

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, errkind.DestinationOpen("file destination: create parent dir for %q: %v", path, err)
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, errkind.DestinationOpen("file destination: open %q: %v", path, err)
	}

	return &fileDestination{
		path:   path,
		format: format,
		logger: logger.Named("file_destination"),
		file:   file,
	}, nil
}

func (f *fileDestination) Send(ctx context.Context, batch []model.Event) error {
	for _, ev := range batch {
		var line []byte
		if f.format == "jsonl" {
			encoded, err := json.Marshal(ev.AsJSONMap())
			if err != nil {
				return errkind.DestinationSend("file: marshal event: %v", err)
			}
			line = append(encoded, '\n')
		} else {
			line = append([]byte(ev.Raw), '\n')
		}
		if _, err := f.file.Write(line); err != nil {
			return errkind.DestinationSend("file: write to %q: %v", f.path, err)
		}
	}
	if err := f.file.Sync(); err != nil {
		return errkind.DestinationSend("file: sync %q: %v", f.path, err)
	}
	return nil
}
