package nutripilot

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// SessionLogger is the interface for pipeline audit logging.
type SessionLogger interface {
	LogPhase(phase PhaseLog) error
}

// NewSessionLogFilePath returns a file path keyed by user id so logs from
// different analysis sessions are easy to tell apart.
func NewSessionLogFilePath(userID string) string {
	return fmt.Sprintf(
		"./logs/%d.%s.json",
		time.Now().Unix(),
		strings.ReplaceAll(strings.ToLower(userID), ":", "_"),
	)
}

// PhaseLog records one phase of a pipeline run.
type PhaseLog struct {
	Phase      string    `json:"phase"`
	Timestamp  time.Time `json:"timestamp"`
	SessionID  string    `json:"session_id"`
	Input      any       `json:"input,omitempty"`
	Output     any       `json:"output,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
}

// FileSessionLogger logs to a file, accumulating phases and flushing at the end.
type FileSessionLogger struct {
	phases []PhaseLog
	writer io.Writer
}

// NewFileSessionLogger creates a new file-based session logger.
func NewFileSessionLogger(writer io.Writer) *FileSessionLogger {
	return &FileSessionLogger{
		phases: make([]PhaseLog, 0),
		writer: writer,
	}
}

// LogPhase logs a phase to the buffer (does not flush immediately).
func (l *FileSessionLogger) LogPhase(phase PhaseLog) error {
	l.phases = append(l.phases, phase)
	return nil
}

// Flush flushes all accumulated phases to the writer.
func (l *FileSessionLogger) Flush() error {
	if l.writer == nil {
		return nil
	}

	data, err := json.MarshalIndent(map[string]any{
		"analysis_session": map[string]any{
			"timestamp": time.Now(),
			"phases":    l.phases,
		},
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session log: %w", err)
	}

	if _, err := l.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write session log: %w", err)
	}

	// Clear the buffer after successful write
	l.phases = l.phases[:0]
	return nil
}

// NoOpSessionLogger is a logger that discards all log entries.
type NoOpSessionLogger struct{}

// NewNoOpSessionLogger creates a new no-op session logger.
func NewNoOpSessionLogger() *NoOpSessionLogger {
	return &NoOpSessionLogger{}
}

// LogPhase discards the phase log (no-op).
func (nop *NoOpSessionLogger) LogPhase(phase PhaseLog) error {
	return nil
}

// StdoutSessionLogger logs each phase as a JSON line to stdout (for
// Lambda/CloudWatch).
type StdoutSessionLogger struct{}

// NewStdoutSessionLogger creates a new stdout-based session logger.
func NewStdoutSessionLogger() *StdoutSessionLogger {
	return &StdoutSessionLogger{}
}

// LogPhase writes the phase as a JSON line to os.Stdout.
func (l *StdoutSessionLogger) LogPhase(phase PhaseLog) error {
	data, err := json.Marshal(phase)
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, string(data))
	return nil
}
