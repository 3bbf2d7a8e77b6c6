package helpers

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"sjsage522/listupjorei/logger"
)

// LoggerInterface defines the interface for skip report implementations
type LoggerInterface interface {
	LogError(ref string, err error)
	LogInfo(format string, args ...interface{})
}

// Logger appends per-record failures to a plain-text file so a long crawl
// leaves a reviewable list of skipped ordinances behind.
type Logger struct {
	errorFile string
}

// NewLogger creates a new logger instance
func NewLogger(errorFile string) *Logger {
	return &Logger{
		errorFile: errorFile,
	}
}

// LogError appends an error line with reference and timestamp
func (l *Logger) LogError(ref string, err error) {
	if dir := filepath.Dir(l.errorFile); dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}

	f, fileErr := os.OpenFile(l.errorFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if fileErr != nil {
		logger.Error("failed to open error log: %v", fileErr)
		return
	}
	defer f.Close()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	fmt.Fprintf(f, "[%s] [%s] %s\n", timestamp, ref, err.Error())
}

// LogInfo logs an informational message to the console
func (l *Logger) LogInfo(format string, args ...interface{}) {
	logger.Info(format, args...)
}
