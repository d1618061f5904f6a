package logger

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
	zaplogfmt "github.com/sykesm/zap-logfmt"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global logger instance
	Logger *zap.SugaredLogger
	// Mutex to protect logger initialization
	loggerMutex sync.RWMutex
)

// LogLevel represents the logging level
type LogLevel string

const (
	DebugLevel LogLevel = "debug"
	InfoLevel  LogLevel = "info"
	WarnLevel  LogLevel = "warn"
	ErrorLevel LogLevel = "error"
)

// Supported encodings
const (
	ConsoleEncoding = "console"
	JSONEncoding    = "json"
	LogfmtEncoding  = "logfmt"
)

func init() {
	if err := zap.RegisterEncoder(LogfmtEncoding, func(cfg zapcore.EncoderConfig) (zapcore.Encoder, error) {
		return zaplogfmt.NewEncoder(cfg), nil
	}); err != nil {
		panic("Failed to register logfmt encoder: " + err.Error())
	}
}

// Config holds the logger configuration
type Config struct {
	Level       LogLevel `json:"level" mapstructure:"level"`
	Development bool     `json:"development" mapstructure:"development"`
	Encoding    string   `json:"encoding" mapstructure:"encoding"` // "console", "json" or "logfmt"
}

// DefaultConfig returns a default logger configuration
func DefaultConfig() *Config {
	return &Config{
		Level:       InfoLevel,
		Development: false,
		Encoding:    ConsoleEncoding,
	}
}

// DevelopmentConfig returns a development logger configuration
func DevelopmentConfig() *Config {
	return &Config{
		Level:       DebugLevel,
		Development: true,
		Encoding:    ConsoleEncoding,
	}
}

// Initialize initializes the global logger with the given configuration
func Initialize(config *Config) error {
	loggerMutex.Lock()
	defer loggerMutex.Unlock()
	return initialize(config)
}

// InitializeDefault initializes the global logger with default configuration
func InitializeDefault() error {
	return Initialize(DefaultConfig())
}

// InitializeDevelopment initializes the global logger with development configuration
func InitializeDevelopment() error {
	return Initialize(DevelopmentConfig())
}

// GetLogger returns the global logger instance
func GetLogger() *zap.SugaredLogger {
	loggerMutex.RLock()
	if Logger != nil {
		defer loggerMutex.RUnlock()
		return Logger
	}
	loggerMutex.RUnlock()

	loggerMutex.Lock()
	defer loggerMutex.Unlock()

	// Double-check pattern - another goroutine might have initialized
	if Logger != nil {
		return Logger
	}

	if err := initialize(DefaultConfig()); err != nil {
		panic("Failed to initialize default logger: " + err.Error())
	}
	return Logger
}

// initialize is the internal initialization function (without mutex)
func initialize(config *Config) error {
	if config == nil {
		config = DefaultConfig()
	}

	var zapConfig zap.Config
	if config.Development {
		zapConfig = zap.NewDevelopmentConfig()
	} else {
		zapConfig = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(string(config.Level))
	if err != nil {
		return errors.Wrapf(err, "invalid log level %q", config.Level)
	}
	zapConfig.Level = zap.NewAtomicLevelAt(level)

	switch config.Encoding {
	case "", ConsoleEncoding:
		zapConfig.Encoding = ConsoleEncoding
		if config.Development {
			zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
	case JSONEncoding, LogfmtEncoding:
		zapConfig.Encoding = config.Encoding
	default:
		return errors.Errorf("unsupported log encoding %q", config.Encoding)
	}

	// Customize encoder config for better readability
	zapConfig.EncoderConfig.TimeKey = "timestamp"
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapConfig.EncoderConfig.CallerKey = "caller"
	zapConfig.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	logger, err := zapConfig.Build(zap.AddCallerSkip(1))
	if err != nil {
		return err
	}

	Logger = logger.Sugar()
	return nil
}

// Debug logs a debug message
func Debug(args ...any) {
	GetLogger().Debug(args...)
}

// Debugf logs a formatted debug message
func Debugf(template string, args ...any) {
	GetLogger().Debugf(template, args...)
}

// Info logs an info message
func Info(args ...any) {
	GetLogger().Info(args...)
}

// Infof logs a formatted info message
func Infof(template string, args ...any) {
	GetLogger().Infof(template, args...)
}

// Warnf logs a formatted warning message
func Warnf(template string, args ...any) {
	GetLogger().Warnf(template, args...)
}

// Errorf logs a formatted error message
func Errorf(template string, args ...any) {
	GetLogger().Errorf(template, args...)
}

// With adds structured context to the logger
func With(args ...any) *zap.SugaredLogger {
	return GetLogger().With(args...)
}

// Named creates a named logger
func Named(name string) *zap.SugaredLogger {
	return GetLogger().Named(name)
}

// Sync flushes any buffered log entries
func Sync() error {
	loggerMutex.RLock()
	defer loggerMutex.RUnlock()
	if Logger != nil {
		return Logger.Sync()
	}
	return nil
}

// WrapError logs an error with additional context and returns a wrapped error
func WrapError(err error, msg string, args ...any) error {
	if err == nil {
		return nil
	}

	contextMsg := msg
	if len(args) > 0 {
		contextMsg = fmt.Sprintf(msg, args...)
	}

	GetLogger().With(
		"error", err.Error(),
		"context", contextMsg,
	).Error("Error occurred with context")

	return errors.Wrap(err, contextMsg)
}
