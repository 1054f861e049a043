// Package logging provides categorized file-based debug logging for the MZ
// assistant core. Logs are written under <data dir>/logs/ with one file per
// category. When debug mode is off, every call is a silent no-op.
package logging

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Category represents a log category/subsystem.
type Category string

const (
	CategoryBoot    Category = "boot"    // Startup and configuration
	CategoryChat    Category = "chat"    // Conversation orchestration
	CategoryGateway Category = "gateway" // Remote generation calls
	CategoryPoller  Category = "poller"  // Long-running job polling
	CategoryLedger  Category = "ledger"  // Creations ledger
	CategoryStore   Category = "store"   // Persistence
)

// Log levels.
const (
	LevelDebug = 0
	LevelInfo  = 1
	LevelWarn  = 2
	LevelError = 3
)

// Logger wraps a standard logger bound to one category file.
type Logger struct {
	category Category
	logger   *log.Logger
	file     *os.File
}

var (
	loggers   = make(map[Category]*Logger)
	loggersMu sync.RWMutex
	logsDir   string
	debugMode bool
	logLevel  = LevelInfo
	stateMu   sync.RWMutex
)

// Init points the logging system at the data directory and enables or
// disables debug output. Call once at startup, before any Get.
func Init(dataDir string, debug bool, level string) error {
	stateMu.Lock()
	debugMode = debug
	switch level {
	case "debug":
		logLevel = LevelDebug
	case "warn", "warning":
		logLevel = LevelWarn
	case "error":
		logLevel = LevelError
	default:
		logLevel = LevelInfo
	}
	stateMu.Unlock()

	if !debug {
		return nil
	}

	dir := filepath.Join(dataDir, "logs")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}
	stateMu.Lock()
	logsDir = dir
	stateMu.Unlock()

	boot := Get(CategoryBoot)
	boot.Info("=== MZ logging initialized ===")
	boot.Info("Logs directory: %s", dir)
	return nil
}

// IsDebugMode reports whether debug logging is enabled.
func IsDebugMode() bool {
	stateMu.RLock()
	defer stateMu.RUnlock()
	return debugMode
}

// Get returns (or creates) the logger for a category. Returns a no-op
// logger when debug mode is disabled.
func Get(category Category) *Logger {
	stateMu.RLock()
	enabled := debugMode && logsDir != ""
	dir := logsDir
	stateMu.RUnlock()
	if !enabled {
		return &Logger{category: category}
	}

	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	loggersMu.Lock()
	defer loggersMu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}

	date := time.Now().Format("2006-01-02")
	logPath := filepath.Join(dir, fmt.Sprintf("%s_%s.log", date, category))
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[logging] Warning: could not open log file %s: %v\n", logPath, err)
		return &Logger{category: category}
	}

	l := &Logger{
		category: category,
		file:     file,
		logger:   log.New(file, "", log.Ldate|log.Ltime|log.Lmicroseconds),
	}
	loggers[category] = l
	return l
}

// Close flushes and closes all open log files.
func Close() {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	for cat, l := range loggers {
		if l.file != nil {
			l.file.Close()
		}
		delete(loggers, cat)
	}
}

func currentLevel() int {
	stateMu.RLock()
	defer stateMu.RUnlock()
	return logLevel
}

// Debug logs a debug message.
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.logger == nil || currentLevel() > LevelDebug {
		return
	}
	l.logger.Printf("[DEBUG] %s", fmt.Sprintf(format, args...))
}

// Info logs an informational message.
func (l *Logger) Info(format string, args ...interface{}) {
	if l.logger == nil || currentLevel() > LevelInfo {
		return
	}
	l.logger.Printf("[INFO] %s", fmt.Sprintf(format, args...))
}

// Warn logs a warning message.
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.logger == nil || currentLevel() > LevelWarn {
		return
	}
	l.logger.Printf("[WARN] %s", fmt.Sprintf(format, args...))
}

// Error logs an error message.
func (l *Logger) Error(format string, args ...interface{}) {
	if l.logger == nil {
		return
	}
	l.logger.Printf("[ERROR] %s", fmt.Sprintf(format, args...))
}

// Convenience helpers, one pair per busy category.

// Chat logs at info level to the chat category.
func Chat(format string, args ...interface{}) { Get(CategoryChat).Info(format, args...) }

// ChatDebug logs at debug level to the chat category.
func ChatDebug(format string, args ...interface{}) { Get(CategoryChat).Debug(format, args...) }

// Gateway logs at info level to the gateway category.
func Gateway(format string, args ...interface{}) { Get(CategoryGateway).Info(format, args...) }

// GatewayDebug logs at debug level to the gateway category.
func GatewayDebug(format string, args ...interface{}) { Get(CategoryGateway).Debug(format, args...) }

// Poller logs at info level to the poller category.
func Poller(format string, args ...interface{}) { Get(CategoryPoller).Info(format, args...) }

// PollerDebug logs at debug level to the poller category.
func PollerDebug(format string, args ...interface{}) { Get(CategoryPoller).Debug(format, args...) }

// Ledger logs at info level to the ledger category.
func Ledger(format string, args ...interface{}) { Get(CategoryLedger).Info(format, args...) }

// Store logs at info level to the store category.
func Store(format string, args ...interface{}) { Get(CategoryStore).Info(format, args...) }

// StoreDebug logs at debug level to the store category.
func StoreDebug(format string, args ...interface{}) { Get(CategoryStore).Debug(format, args...) }
