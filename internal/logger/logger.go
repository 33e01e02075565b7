// Package logger writes one structured JSON-lines log file per run,
// recording every lifecycle event of a graph's execution.
package logger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Entry lists the fields of a logged event. LogEvent writes them through
// slog's JSON handler, which names Timestamp "time" and Event "msg" and adds
// a "level" field; run_id, component and payload keep the names below.
type Entry struct {
	Timestamp string      `json:"timestamp"`
	RunID     string      `json:"run_id"`
	Component string      `json:"component"`
	Event     string      `json:"event"`
	Payload   interface{} `json:"payload"`
}

var (
	currentLogger *slog.Logger
	logFile       *os.File
)

// InitLogger opens <logDir>/<runID>.jsonl and installs it as the sink for
// LogEvent for the remainder of the process. If runID is empty, one is
// generated.
func InitLogger(logDir, runID string) error {
	if runID == "" {
		runID = GenerateRunID()
	}
	if logDir == "" {
		logDir = "./logs"
	}

	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return fmt.Errorf("failed to create log dir: %w", err)
	}

	path := filepath.Join(logDir, fmt.Sprintf("%s.jsonl", runID))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	logFile = f

	handler := slog.NewJSONHandler(f, &slog.HandlerOptions{Level: slog.LevelInfo})
	currentLogger = slog.New(handler)

	LogEvent(context.Background(), runID, "orchestrator", "session_start", map[string]string{
		"message": "run started",
	})
	return nil
}

// LogEvent writes a structured log entry for the given run.
func LogEvent(ctx context.Context, runID, component, event string, payload interface{}) {
	if currentLogger == nil {
		currentLogger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	currentLogger.Info(event,
		slog.String("run_id", runID),
		slog.String("component", component),
		slog.Any("payload", payload),
	)
}

// GenerateRunID returns a fresh UUIDv4 run identifier.
func GenerateRunID() string {
	return uuid.New().String()
}

// Close flushes and closes the current run's log file.
func Close() {
	if logFile != nil {
		logFile.Close()
	}
}
