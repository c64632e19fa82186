package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
)

func TestSetupLogger(t *testing.T) {
	tests := []struct {
		name      string
		verbosity int
		wantLevel zerolog.Level
	}{
		{"default warn level", 0, zerolog.WarnLevel},
		{"info level", 1, zerolog.InfoLevel},
		{"debug level", 2, zerolog.DebugLevel},
		{"trace level", 3, zerolog.TraceLevel},
		{"high verbosity defaults to trace", 5, zerolog.TraceLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tempDir := t.TempDir()
			t.Setenv("XDG_STATE_HOME", tempDir)
			t.Setenv(EnvLogFile, "")

			SetupLogger(tt.verbosity)

			assert.Equal(t, tt.wantLevel, zerolog.GlobalLevel())

			logPath := filepath.Join(tempDir, "envdeploy", "envdeploy.log")
			_, err := os.Stat(logPath)
			assert.NoError(t, err, "log file should be created at %s", logPath)
		})
	}
}

func TestGetLogFilePath(t *testing.T) {
	t.Run("with XDG_STATE_HOME", func(t *testing.T) {
		t.Setenv(EnvLogFile, "")
		t.Setenv("XDG_STATE_HOME", "/custom/state")
		assert.Equal(t, filepath.Join("/custom/state", "envdeploy", "envdeploy.log"), getLogFilePath())
	})

	t.Run("without XDG_STATE_HOME", func(t *testing.T) {
		t.Setenv(EnvLogFile, "")
		t.Setenv("XDG_STATE_HOME", "")
		t.Setenv("HOME", "/home/deployer")
		assert.Equal(t, filepath.Join("/home/deployer", ".local", "state", "envdeploy", "envdeploy.log"), getLogFilePath())
	})

	t.Run("explicit log file", func(t *testing.T) {
		t.Setenv(EnvLogFile, "/var/log/envdeploy/deploy.log")
		assert.Equal(t, "/var/log/envdeploy/deploy.log", getLogFilePath())
	})
}

func TestGetLogger(t *testing.T) {
	var buf bytes.Buffer
	log.Logger = zerolog.New(&buf)
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	logger := GetLogger("engine")
	logger.Info().Msg("test message")

	assert.Contains(t, buf.String(), `"component":"engine"`)
	assert.Contains(t, buf.String(), "test message")
}

func TestRunAndNodeFields(t *testing.T) {
	var buf bytes.Buffer
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	base := zerolog.New(&buf)

	run := WithRun(base, "run-1")
	logger := WithModule(run, "production", "apache", "git")
	logger.Error().Msg("Failed to sync module")

	output := buf.String()
	assert.Contains(t, output, `"run_id":"run-1"`)
	assert.Contains(t, output, `"environment":"production"`)
	assert.Contains(t, output, `"module":"apache"`)
	assert.Contains(t, output, `"origin":"git"`)

	buf.Reset()
	env := WithEnvironment(run, "staging")
	logger = WithModule(env, "", "ntp", "forge")
	logger.Warn().Msg("skipped")
	assert.Equal(t, 1, strings.Count(buf.String(), `"environment"`))
	assert.Contains(t, buf.String(), `"environment":"staging"`)
}

func TestLogCommand(t *testing.T) {
	var buf bytes.Buffer
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)

	LogCommand(logger, "git", []string{"fetch", "origin"})

	output := buf.String()
	assert.Contains(t, output, "git")
	assert.Contains(t, output, "fetch")
	assert.Contains(t, output, "Executing command")
}

func TestLogOperationStart(t *testing.T) {
	var buf bytes.Buffer
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)

	done := LogOperationStart(logger, "traversal")
	time.Sleep(time.Millisecond)
	done()

	output := buf.String()
	assert.Contains(t, output, "Operation started")
	assert.Contains(t, output, "Operation completed")
	assert.Contains(t, output, "duration")
}
