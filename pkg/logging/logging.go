// Package logging sets up the process-wide zerolog logger for envdeploy and
// provides the field conventions deploy code logs with: every run carries a
// run_id, every node failure names its environment, module and origin.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/arthur-debert/envdeploy/pkg/paths"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// EnvLogFile overrides the log file location
const EnvLogFile = "ENVDEPLOY_LOG_FILE"

// Field names shared by every component
const (
	FieldComponent   = "component"
	FieldRunID       = "run_id"
	FieldEnvironment = "environment"
	FieldModule      = "module"
	FieldOrigin      = "origin"
)

// SetupLogger configures the global logger based on verbosity level
// It sets up dual output to both console and a log file
func SetupLogger(verbosity int) {
	// Configure zerolog based on verbosity
	switch verbosity {
	case 0:
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case 1:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case 2:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	}

	// Console output for the operator running the deploy
	consoleWriter := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.Kitchen,
		PartsExclude: []string{
			zerolog.CallerFieldName,
		},
	}
	if verbosity >= 2 {
		consoleWriter.PartsExclude = nil
	}

	writers := []io.Writer{consoleWriter}

	// Deploys usually run from cron or a webhook, the file keeps every
	// level the console shows as JSON for later inspection
	logFile := getLogFilePath()
	logFileHandle, err := setupLogFile(logFile)
	if err == nil {
		writers = append(writers, logFileHandle)
	}

	multi := io.MultiWriter(writers...)
	log.Logger = zerolog.New(multi).With().Timestamp().Logger()

	// If we couldn't create the log file, log the error now with the new logger
	if err != nil {
		log.Warn().Err(err).Str("path", logFile).Msg("Failed to create log file, logging to console only")
	}

	// Add caller information for debug and trace levels
	if verbosity >= 2 {
		log.Logger = log.Logger.With().Caller().Logger()
	}

	log.Debug().Int("verbosity", verbosity).Str("logFile", logFile).Msg("Logger initialized")
}

// GetLogger returns a contextualized logger with the given name
func GetLogger(name string) zerolog.Logger {
	return log.With().Str(FieldComponent, name).Logger()
}

// WithRun returns logger tagged with the run id. Everything logged during
// one deploy can be found by it, and the post-deploy hook receives it too.
func WithRun(logger zerolog.Logger, runID string) zerolog.Logger {
	return logger.With().Str(FieldRunID, runID).Logger()
}

// WithEnvironment returns logger tagged with an environment dirname
func WithEnvironment(logger zerolog.Logger, dirname string) zerolog.Logger {
	return logger.With().Str(FieldEnvironment, dirname).Logger()
}

// WithModule returns logger tagged with a module and its origin kind.
// environment may be empty when the caller's logger already carries it.
func WithModule(logger zerolog.Logger, environment, module, origin string) zerolog.Logger {
	ctx := logger.With()
	if environment != "" {
		ctx = ctx.Str(FieldEnvironment, environment)
	}
	return ctx.Str(FieldModule, module).Str(FieldOrigin, origin).Logger()
}

// getLogFilePath returns the path to the log file
// $ENVDEPLOY_LOG_FILE wins, otherwise the XDG state directory is used
func getLogFilePath() string {
	if path := os.Getenv(EnvLogFile); path != "" {
		return paths.ExpandHome(path)
	}
	// Pick up XDG_* changes made after process start
	xdg.Reload()
	return filepath.Join(paths.StateDir(), paths.LogFileName)
}

// setupLogFile creates the log file and its parent directories
func setupLogFile(logPath string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	// Append, several deploys share one file
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return file, nil
}

// LogCommand logs a command execution with its arguments
func LogCommand(logger zerolog.Logger, cmd string, args []string) {
	logger.Debug().
		Str("command", cmd).
		Strs("args", args).
		Msg("Executing command")
}

// LogDuration logs how long an operation took since start
func LogDuration(logger zerolog.Logger, start time.Time, operation string) {
	logger.Debug().
		Str("operation", operation).
		Dur("duration", time.Since(start)).
		Msg("Operation completed")
}

// LogOperationStart logs the start of an operation and returns a function to log its completion
func LogOperationStart(logger zerolog.Logger, operation string) func() {
	start := time.Now()
	logger.Debug().
		Str("operation", operation).
		Msg("Operation started")

	return func() {
		LogDuration(logger, start, operation)
	}
}
