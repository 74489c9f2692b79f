package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger provides file and console logging with one log file per run
type Logger struct {
	mu      sync.Mutex
	logFile *os.File
	logPath string // Full path to current log file, empty when file logging is off
	zl      *zap.Logger
	sugar   *zap.SugaredLogger
}

var globalLogger *Logger
var globalLoggerMu sync.Mutex

// InitLogger initializes the global logger. An empty logDir disables the
// log file and keeps console output only.
func InitLogger(logDir string, debug bool) error {
	globalLoggerMu.Lock()
	defer globalLoggerMu.Unlock()

	logger, err := NewLogger(logDir, debug)
	if err != nil {
		return err
	}
	if globalLogger != nil {
		_ = globalLogger.Close()
	}
	globalLogger = logger
	return nil
}

// GetLogger returns the global logger instance, falling back to console only
func GetLogger() *Logger {
	globalLoggerMu.Lock()
	defer globalLoggerMu.Unlock()
	if globalLogger == nil {
		globalLogger, _ = NewLogger("", false)
	}
	return globalLogger
}

// NewLogger creates a new logger instance with a per-run log file
func NewLogger(logDir string, debug bool) (*Logger, error) {
	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006/01/02 15:04:05")
	consoleEncCfg := encCfg
	consoleEncCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEncCfg), zapcore.Lock(os.Stdout), level),
	}

	logger := &Logger{}

	if logDir != "" {
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		// Format: YYYY-MM-DD_HH-MM-SS.log
		logFileName := fmt.Sprintf("%s.log", time.Now().Format("2006-01-02_15-04-05"))
		logPath := filepath.Join(logDir, logFileName)

		file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		logger.logFile = file
		logger.logPath = logPath

		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(file), level))
	}

	logger.zl = zap.New(zapcore.NewTee(cores...))
	logger.sugar = logger.zl.Sugar()
	return logger, nil
}

// Path returns the current log file path, or "" when logging to console only
func (l *Logger) Path() string {
	return l.logPath
}

// Zap exposes the underlying structured logger
func (l *Logger) Zap() *zap.Logger {
	return l.zl
}

// Printf logs a formatted message to both console and file
func (l *Logger) Printf(format string, v ...interface{}) {
	l.sugar.Infof(format, v...)
}

// Debugf logs only when debug level is enabled
func (l *Logger) Debugf(format string, v ...interface{}) {
	l.sugar.Debugf(format, v...)
}

// Errorf logs at error level
func (l *Logger) Errorf(format string, v ...interface{}) {
	l.sugar.Errorf(format, v...)
}

// Close flushes and closes the log file
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	_ = l.zl.Sync()
	if l.logFile != nil {
		err := l.logFile.Close()
		l.logFile = nil
		return err
	}
	return nil
}

// Global convenience functions that use the global logger

// Logf logs using the global logger
func Logf(format string, v ...interface{}) {
	GetLogger().Printf(format, v...)
}

// Debugf logs at debug level using the global logger
func Debugf(format string, v ...interface{}) {
	GetLogger().Debugf(format, v...)
}

// Errorf logs at error level using the global logger
func Errorf(format string, v ...interface{}) {
	GetLogger().Errorf(format, v...)
}

// CloseLogger closes the global logger if one was created
func CloseLogger() error {
	globalLoggerMu.Lock()
	defer globalLoggerMu.Unlock()
	if globalLogger == nil {
		return nil
	}
	err := globalLogger.Close()
	globalLogger = nil
	return err
}
