// Package logging routes the standard logger to stderr and an optional file.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var (
	mu      sync.Mutex
	logFile *os.File
	out     io.Writer = os.Stderr
)

// Init sends log output to stderr and, when logPath is set, appends it to that file.
func Init(logPath string) error {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}

	writers := []io.Writer{os.Stderr}
	if logPath != "" {
		if dir := filepath.Dir(logPath); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("failed to create log dir: %w", err)
			}
		}
		file, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		logFile = file
		writers = append(writers, logFile)
	}

	out = io.MultiWriter(writers...)
	log.SetOutput(out)
	return nil
}

// Close releases the log file and restores stderr output.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	out = os.Stderr
	log.SetOutput(os.Stderr)
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	return err
}

// Writer returns the current log destination, for handing to other loggers.
func Writer() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	return out
}

// LogEvent writes a formatted line.
func LogEvent(format string, args ...any) {
	log.Println(fmt.Sprintf(format, args...))
}

// LogError writes a formatted line tagged as an error.
func LogError(format string, args ...any) {
	log.Println("[ERROR] " + fmt.Sprintf(format, args...))
}

// LogScore records a scoring event for a candidate.
func LogScore(source, candidate, exam string, payload any) {
	log.Println(buildScoreMessage(source, candidate, exam, payload))
}

func buildScoreMessage(source, candidate, exam string, payload any) string {
	src := strings.ToUpper(strings.TrimSpace(source))
	if src == "" {
		src = "SCORE"
	}
	who := strings.TrimSpace(candidate)
	if who == "" {
		who = "anonymous"
	}
	parts := []string{fmt.Sprintf("[%s]", src), fmt.Sprintf("candidate=%s", who)}
	if exam = strings.TrimSpace(exam); exam != "" {
		parts = append(parts, fmt.Sprintf("exam=%s", exam))
	}
	parts = append(parts, fmt.Sprintf("payload=%s", formatPayload(payload)))
	return strings.Join(parts, " ")
}

func formatPayload(payload any) string {
	switch v := payload.(type) {
	case nil:
		return "null"
	case string:
		if strings.TrimSpace(v) == "" {
			return `""`
		}
		return v
	case fmt.Stringer:
		return v.String()
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}
