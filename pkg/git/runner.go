package git

import (
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/arthur-debert/envdeploy/pkg/errors"
	"github.com/arthur-debert/envdeploy/pkg/logging"
	"github.com/rs/zerolog"
)

// Runner executes a git command in dir and returns its trimmed output.
// An empty dir runs in the process working directory.
type Runner interface {
	Run(ctx context.Context, dir string, args ...string) (string, error)
}

// CLI runs the git binary.
type CLI struct {
	Binary string
	logger zerolog.Logger
}

// NewCLI returns a Runner using the git found on PATH.
func NewCLI() *CLI {
	return &CLI{Binary: "git", logger: logging.GetLogger("git")}
}

// Run implements Runner.
func (c *CLI) Run(ctx context.Context, dir string, args ...string) (string, error) {
	fullArgs := args
	if dir != "" {
		fullArgs = append([]string{"-C", dir}, args...)
	}
	logging.LogCommand(c.logger, c.Binary, fullArgs)

	cmd := exec.CommandContext(ctx, c.Binary, fullArgs...)
	// Never wait on a credential prompt during an unattended deploy
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")

	output, err := cmd.CombinedOutput()
	trimmed := strings.TrimSpace(string(output))
	if err != nil {
		sub := ""
		if len(args) > 0 {
			sub = args[0]
		}
		return trimmed, errors.Wrapf(err, errors.ErrGit, "git %s failed: %s", sub, trimmed).
			WithDetail("dir", dir).
			WithDetail("args", args)
	}
	return trimmed, nil
}
