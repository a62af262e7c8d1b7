// Package logger provides the structured logging interface used across the
// relay, backed by zerolog, with optional daily-rotated file output.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Field represents a key-value pair attached to a log entry.
type Field struct {
	Key   string
	Value any
}

// Logger is the structured logging interface. Implementations write entries
// at the usual levels and may be derived with With for component-scoped
// fields.
type Logger interface {
	// Debug logs a message at debug level with optional structured fields.
	Debug(msg string, fields ...Field)

	// Info logs a message at info level with optional structured fields.
	Info(msg string, fields ...Field)

	// Warn logs a message at warn level with optional structured fields.
	Warn(msg string, fields ...Field)

	// Error logs a message at error level with optional structured fields.
	Error(msg string, fields ...Field)

	// With returns a derived Logger that includes the given fields in every
	// subsequent entry. The receiver is unchanged.
	With(fields ...Field) Logger

	// Close releases resources held by the logger, such as file handles.
	// Safe to call multiple times.
	Close() error
}

type zerologLogger struct {
	logger     zerolog.Logger
	fileWriter *dailyFileWriter
	ownsFile   bool
}

// NewConsoleLogger returns a Logger writing human-readable entries to stderr,
// tagged with the given service name and filtered by level.
//
// Parameters:
//   - serviceName: Added as a "service" field to every entry
//   - level: Minimum level to log
//
// Returns:
//   - A console-backed Logger
func NewConsoleLogger(serviceName string, level zerolog.Level) Logger {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return &zerologLogger{
		logger: zerolog.New(out).With().Str("service", serviceName).Timestamp().Logger().Level(level),
	}
}

// NewFileLogger returns a Logger writing to stderr and to daily-rotated files
// named {serviceName}_{date}.log inside logDir. The directory is created if
// it does not exist.
//
// Parameters:
//   - serviceName: Added as a "service" field and used in log file names
//   - logDir: Directory for log files
//   - level: Minimum level to log
//
// Returns:
//   - The Logger, or an error if the directory or initial file cannot be created
func NewFileLogger(serviceName string, logDir string, level zerolog.Level) (Logger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	fw, err := newDailyFileWriter(serviceName, logDir)
	if err != nil {
		return nil, err
	}

	multi := io.MultiWriter(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}, fw)
	return &zerologLogger{
		logger:     zerolog.New(multi).With().Str("service", serviceName).Timestamp().Logger().Level(level),
		fileWriter: fw,
		ownsFile:   true,
	}, nil
}

// Nop returns a Logger that discards every entry. Used in tests.
func Nop() Logger {
	return &zerologLogger{logger: zerolog.Nop()}
}

// Debug implements Logger.
func (z *zerologLogger) Debug(msg string, fields ...Field) {
	z.logger.Debug().Fields(toMap(fields)).Msg(msg)
}

// Info implements Logger.
func (z *zerologLogger) Info(msg string, fields ...Field) {
	z.logger.Info().Fields(toMap(fields)).Msg(msg)
}

// Warn implements Logger.
func (z *zerologLogger) Warn(msg string, fields ...Field) {
	z.logger.Warn().Fields(toMap(fields)).Msg(msg)
}

// Error implements Logger.
func (z *zerologLogger) Error(msg string, fields ...Field) {
	z.logger.Error().Fields(toMap(fields)).Msg(msg)
}

// With implements Logger.
func (z *zerologLogger) With(fields ...Field) Logger {
	return &zerologLogger{
		logger:     z.logger.With().Fields(toMap(fields)).Logger(),
		fileWriter: z.fileWriter,
		ownsFile:   false,
	}
}

// Close implements Logger.
func (z *zerologLogger) Close() error {
	if z.fileWriter != nil && z.ownsFile {
		return z.fileWriter.Close()
	}

	return nil
}

func toMap(fields []Field) map[string]any {
	if len(fields) == 0 {
		return nil
	}

	m := make(map[string]any, len(fields))
	for _, f := range fields {
		m[f.Key] = f.Value
	}

	return m
}

// dailyFileWriter writes to {service}_{date}.log and switches files on the
// first write of a new day. Safe for concurrent use.
type dailyFileWriter struct {
	service  string
	dir      string
	mu       sync.Mutex
	file     *os.File
	currDate string
	closed   bool
}

func newDailyFileWriter(service string, dir string) (*dailyFileWriter, error) {
	w := &dailyFileWriter{service: service, dir: dir}
	if err := w.rotate(); err != nil {
		return nil, err
	}

	return w, nil
}

// Write implements io.Writer.
func (w *dailyFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, fmt.Errorf("log writer is closed")
	}

	if date := time.Now().Format("2006-01-02"); date != w.currDate {
		if err := w.rotate(); err != nil {
			return 0, err
		}
	}

	return w.file.Write(p)
}

// Close closes the current log file. Safe to call multiple times.
func (w *dailyFileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}

	w.closed = true
	if w.file != nil {
		err := w.file.Close()
		w.file = nil
		return err
	}

	return nil
}

// rotate opens the file for the current date. Callers other than the
// constructor must hold w.mu.
func (w *dailyFileWriter) rotate() error {
	if w.file != nil {
		_ = w.file.Close()
		w.file = nil
	}

	date := time.Now().Format("2006-01-02")
	name := filepath.Join(w.dir, fmt.Sprintf("%s_%s.log", w.service, date))
	file, err := os.OpenFile(name, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open log file %s: %w", name, err)
	}

	w.file = file
	w.currDate = date
	return nil
}
