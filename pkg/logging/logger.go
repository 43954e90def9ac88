// Package logging provides per-component debug logging for redpen.
// All components of one run share a session log file under
// ~/.redpen/logs/<session-id>-redpen.log; if the file cannot be opened the
// logger falls back to stderr.
package logging

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	sessionID     string
	sessionIDOnce sync.Once

	logDir   string
	initOnce sync.Once
	initErr  error
)

// SessionID returns the process-wide session identifier, creating it on
// first use.
func SessionID() string {
	sessionIDOnce.Do(func() {
		sessionID = uuid.New().String()
	})
	return sessionID
}

func initLogDir() error {
	initOnce.Do(func() {
		home, err := os.UserHomeDir()
		if err != nil {
			initErr = fmt.Errorf("resolve home directory: %w", err)
			return
		}
		logDir = filepath.Join(home, ".redpen", "logs")
		if err := os.MkdirAll(logDir, 0750); err != nil {
			initErr = fmt.Errorf("create log directory: %w", err)
		}
	})
	return initErr
}

// Logger writes timestamped, component-tagged entries to the session log.
type Logger struct {
	component string
	logger    *log.Logger
	file      *os.File
	path      string
	mu        sync.Mutex
	closeOnce sync.Once
}

// New creates a logger for the named component. On initialization failure
// it returns a stderr-backed logger together with the error so callers can
// warn about the degraded mode.
func New(component string) (*Logger, error) {
	if err := initLogDir(); err != nil {
		return fallbackLogger(component), err
	}

	path := filepath.Join(logDir, fmt.Sprintf("%s-redpen.log", SessionID()))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fallbackLogger(component), fmt.Errorf("open log file: %w", err)
	}

	return &Logger{
		component: component,
		logger:    log.New(file, "", 0),
		file:      file,
		path:      path,
	}, nil
}

func fallbackLogger(component string) *Logger {
	return &Logger{
		component: component,
		logger:    log.New(os.Stderr, "", 0),
	}
}

func (l *Logger) write(level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ts := time.Now().Format("2006-01-02 15:04:05.000")
	l.logger.Printf("[%s] [%s] [%s] %s", ts, l.component, level, fmt.Sprintf(format, args...))
}

// Debugf logs a debug-level message.
func (l *Logger) Debugf(format string, args ...interface{}) { l.write("DEBUG", format, args...) }

// Infof logs an info-level message.
func (l *Logger) Infof(format string, args ...interface{}) { l.write("INFO", format, args...) }

// Warnf logs a warning-level message.
func (l *Logger) Warnf(format string, args ...interface{}) { l.write("WARN", format, args...) }

// Errorf logs an error-level message.
func (l *Logger) Errorf(format string, args ...interface{}) { l.write("ERROR", format, args...) }

// Path returns the log file path, or an empty string in fallback mode.
func (l *Logger) Path() string { return l.path }

// Close closes the underlying file. Safe to call multiple times.
func (l *Logger) Close() error {
	var err error
	l.closeOnce.Do(func() {
		if l.file != nil {
			err = l.file.Close()
		}
	})
	return err
}
