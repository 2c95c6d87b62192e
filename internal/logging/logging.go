// Package logging provides the structured JSON-line logger used by the
// ingest controller and the CLI.
package logging

import (
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Level orders log severity from most to least verbose.
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "debug"
	case Info:
		return "info"
	case Warn:
		return "warn"
	case Error:
		return "error"
	default:
		return "info"
	}
}

// Entry is one structured log line.
type Entry struct {
	Timestamp string         `json:"timestamp"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Component string         `json:"component,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// Logger writes newline-delimited JSON Entry values to an io.Writer,
// filtering by minimum level. The zero value is not usable; construct with
// New. Safe for concurrent use.
type Logger struct {
	mu        sync.Mutex
	out       io.Writer
	minLevel  Level
	component string
}

// New creates a logger writing to out (stderr by default, so stdout stays
// reserved for the CLI's single JSON result object) at the given minimum
// level.
func New(out io.Writer, minLevel Level) *Logger {
	return &Logger{out: out, minLevel: minLevel}
}

// WithComponent returns a logger that tags every entry with component,
// sharing the parent's writer and level filter.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{out: l.out, minLevel: l.minLevel, component: component}
}

func (l *Logger) log(level Level, message string, fields map[string]any) {
	if level < l.minLevel {
		return
	}
	entry := Entry{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Level:     level.String(),
		Message:   message,
		Component: l.component,
		Fields:    fields,
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	enc := json.NewEncoder(l.out)
	_ = enc.Encode(entry)
}

func (l *Logger) Debugf(message string, fields map[string]any) { l.log(Debug, message, fields) }
func (l *Logger) Infof(message string, fields map[string]any)  { l.log(Info, message, fields) }
func (l *Logger) Warnf(message string, fields map[string]any)  { l.log(Warn, message, fields) }
func (l *Logger) Errorf(message string, fields map[string]any) { l.log(Error, message, fields) }

// TapeWritten logs a tape file having been staged to disk.
func (l *Logger) TapeWritten(tapeID string, bytes int) {
	l.Infof("tape written", map[string]any{"tape_id": tapeID, "bytes": bytes})
}

// EdgeInserted logs a span edge having been folded into the index.
func (l *Logger) EdgeInserted(from, to string, confidence float32) {
	l.Debugf("edge inserted", map[string]any{"from": from, "to": to, "confidence": confidence})
}

// IngestFileFailed logs one input file's ingest failure; the controller
// continues with the remaining inputs.
func (l *Logger) IngestFileFailed(path string, err error) {
	l.Warnf("ingest file failed", map[string]any{"path": path, "error": err.Error()})
}

// GCRemoved logs a tape file removed by garbage collection.
func (l *Logger) GCRemoved(tapeID string) {
	l.Infof("gc removed tape", map[string]any{"tape_id": tapeID})
}
