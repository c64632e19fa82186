// Package command runs external commands on behalf of a deploy: type
// generation for an environment and the post-deploy hook.
package command

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/arthur-debert/envdeploy/pkg/errors"
	"github.com/arthur-debert/envdeploy/pkg/logging"
	"github.com/rs/zerolog"
)

// Command is one subprocess invocation.
type Command struct {
	Argv []string
	Dir  string
	Env  map[string]string

	// Timeout bounds the run. Zero means no limit beyond ctx.
	Timeout time.Duration

	// Code is the error code failures are reported with.
	Code errors.ErrorCode
}

// Result holds the outcome of a command that was started.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Executor runs commands and logs their output.
type Executor struct {
	logger zerolog.Logger
}

// NewExecutor creates an Executor logging as component.
func NewExecutor(component string) *Executor {
	return &Executor{logger: logging.GetLogger(component)}
}

// Run executes cmd and waits for it. A non-zero exit is an error; the
// result is still returned so callers can report the output.
func (e *Executor) Run(ctx context.Context, cmd Command) (Result, error) {
	code := cmd.Code
	if code == "" {
		code = errors.ErrInternal
	}
	if len(cmd.Argv) == 0 || cmd.Argv[0] == "" {
		return Result{}, errors.New(errors.ErrInvalidInput, "command requires a program")
	}

	if cmd.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cmd.Timeout)
		defer cancel()
	}

	logging.LogCommand(e.logger, cmd.Argv[0], cmd.Argv[1:])

	c := exec.CommandContext(ctx, cmd.Argv[0], cmd.Argv[1:]...)
	if cmd.Dir != "" {
		if _, err := os.Stat(cmd.Dir); err != nil {
			return Result{}, errors.Wrapf(err, code, "working directory does not exist: %s", cmd.Dir)
		}
		c.Dir = cmd.Dir
	}
	c.Env = os.Environ()
	for key, value := range cmd.Env {
		c.Env = append(c.Env, fmt.Sprintf("%s=%s", key, value))
	}

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	start := time.Now()
	err := c.Run()
	result := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if stdout.Len() > 0 {
		e.logger.Debug().Str("output", strings.TrimSpace(result.Stdout)).Msg("Command stdout")
	}
	if stderr.Len() > 0 {
		e.logger.Debug().Str("output", strings.TrimSpace(result.Stderr)).Msg("Command stderr")
	}

	if err != nil {
		var exitErr *exec.ExitError
		if stderrors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = -1
		}
		return result, errors.Wrapf(err, code, "command failed: %s", strings.Join(cmd.Argv, " ")).
			WithDetail("exit_code", result.ExitCode).
			WithDetail("stderr", strings.TrimSpace(result.Stderr))
	}

	e.logger.Debug().
		Str("command", cmd.Argv[0]).
		Dur("duration", result.Duration).
		Msg("Command executed successfully")
	return result, nil
}
