// Package errkind defines the typed pipeline error kinds shared by
// sources, destinations, processors, and the runner that reports them in
// lastErr. Kept separate from package pipeline so source/destination/
// processor implementations can construct these errors without importing
// the runner package that in turn imports them.
package errkind

import "fmt"

// Error formats as "<Kind>: <message>", the exact shape the runner stores
// verbatim in lastErr and the metrics line reports.
type Error struct {
	Kind    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func newf(kind, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// SourceOpen wraps a source's open failure: file_tail's on its first poll
// (e.g. the configured path does not exist), syslog_udp's and
// http_listener's when binding at construction.
func SourceOpen(format string, args ...any) error {
	return newf("SourceOpenFailure", format, args...)
}

// DestinationSend wraps any destination.Send failure.
func DestinationSend(format string, args ...any) error {
	return newf("DestinationSendFailure", format, args...)
}

// DestinationOpen wraps a destination's construction-time failure (e.g. the
// configured file path's parent directory cannot be created). It fails
// runner construction, so the reconciler logs it and the pipeline stays
// absent until a later reconcile replaces it.
func DestinationOpen(format string, args ...any) error {
	return newf("DestinationOpenFailure", format, args...)
}

// IndexerInvalidRequest wraps a 422 from the indexer.
func IndexerInvalidRequest(format string, args ...any) error {
	return newf("IndexerInvalidRequest", format, args...)
}

// IndexerEmptyResponse wraps an indexer response with no usable docs.
func IndexerEmptyResponse(format string, args ...any) error {
	return newf("IndexerEmptyResponse", format, args...)
}
