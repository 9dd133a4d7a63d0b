package nutriagent

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// SessionLogger is the interface for per-request audit logging.
type SessionLogger interface {
	LogStage(stage StageLog) error
}

// NewSessionLogFilePath returns a file path derived from a cleaned-up profile
// name so logs for different users are easy to tell apart.
func NewSessionLogFilePath(profileName string) string {
	return fmt.Sprintf(
		"./logs/%d.%s.json",
		time.Now().Unix(),
		strings.ReplaceAll(strings.ToLower(profileName), " ", "_"),
	)
}

// StageLog records one pipeline stage of a plan request.
type StageLog struct {
	Stage       string            `json:"stage"`
	Timestamp   time.Time         `json:"timestamp"`
	DurationMs  int64             `json:"duration_ms"`
	Adaptations []AdaptationEvent `json:"adaptations,omitempty"`
	Error       string            `json:"error,omitempty"`
}

// FileSessionLogger accumulates stage logs and flushes them as one JSON
// document at the end of the session.
type FileSessionLogger struct {
	stages []StageLog
	writer io.Writer
}

// NewFileSessionLogger creates a new file-based session logger.
func NewFileSessionLogger(writer io.Writer) *FileSessionLogger {
	return &FileSessionLogger{
		stages: make([]StageLog, 0),
		writer: writer,
	}
}

// LogStage buffers a stage log (does not flush immediately).
func (l *FileSessionLogger) LogStage(stage StageLog) error {
	l.stages = append(l.stages, stage)
	return nil
}

// Flush writes all accumulated stage logs to the writer.
func (l *FileSessionLogger) Flush() error {
	if l.writer == nil {
		return nil
	}

	data, err := json.MarshalIndent(map[string]any{
		"plan_session": map[string]any{
			"timestamp": time.Now(),
			"stages":    l.stages,
		},
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session log: %w", err)
	}

	if _, err := l.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write session log: %w", err)
	}

	l.stages = l.stages[:0]
	return nil
}

// NoOpSessionLogger discards all log entries.
type NoOpSessionLogger struct{}

// NewNoOpSessionLogger creates a new no-op session logger.
func NewNoOpSessionLogger() *NoOpSessionLogger {
	return &NoOpSessionLogger{}
}

// LogStage discards the stage log.
func (l *NoOpSessionLogger) LogStage(stage StageLog) error {
	return nil
}

// StdoutSessionLogger writes each stage as a JSON line to stdout (for
// Lambda/CloudWatch).
type StdoutSessionLogger struct{}

// NewStdoutSessionLogger creates a new stdout-based session logger.
func NewStdoutSessionLogger() *StdoutSessionLogger {
	return &StdoutSessionLogger{}
}

// LogStage writes the stage log as a JSON line to os.Stdout.
func (l *StdoutSessionLogger) LogStage(stage StageLog) error {
	data, err := json.Marshal(stage)
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, string(data))
	return nil
}
