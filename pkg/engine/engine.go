package engine

import (
	"context"
	"strings"
	"time"

	"github.com/arthur-debert/envdeploy/pkg/command"
	"github.com/arthur-debert/envdeploy/pkg/config"
	"github.com/arthur-debert/envdeploy/pkg/errors"
	"github.com/arthur-debert/envdeploy/pkg/filesystem"
	"github.com/arthur-debert/envdeploy/pkg/lock"
	"github.com/arthur-debert/envdeploy/pkg/logging"
	"github.com/arthur-debert/envdeploy/pkg/paths"
	"github.com/arthur-debert/envdeploy/pkg/record"
	"github.com/arthur-debert/envdeploy/pkg/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Tokens substituted in the post-deploy hook
const (
	TokenModifiedEnvs = "$modifiedenvs"
	TokenRunID        = "$runid"
)

// Options are the deploy settings the engine acts on.
type Options struct {
	PurgeLevels config.PurgeLevels

	// PurgeAllowlist and its deprecated spelling PurgeWhitelist; at most
	// one may be set.
	PurgeAllowlist []string
	PurgeWhitelist []string

	GenerateTypes bool

	// Modules forces the manifest and module visit of environments that
	// are already present.
	Modules bool

	// NoForce keeps local modifications of modules.
	NoForce bool

	DefaultBranchOverride string

	// Postrun is the post-deploy hook argv.
	Postrun config.Command

	// LockRoot is the directory holding the write lock.
	LockRoot string

	// WriteLock is an administrative message; when set, deploys are
	// refused.
	WriteLock string

	// ModuleWorkers above 1 syncs the modules of an environment in
	// parallel.
	ModuleWorkers int

	// FS receives deploy records. Defaults to the OS filesystem.
	FS types.FS

	// Executor runs the hook. Defaults to a new executor.
	Executor *command.Executor
}

// Engine runs deploys of one deployment.
type Engine struct {
	deployment types.Deployment
	opts       Options
	allowlist  []string
	records    *record.Writer
	executor   *command.Executor
	logger     zerolog.Logger
}

// New creates an engine. Conflicting allowlist settings are rejected here,
// before anything is touched.
func New(deployment types.Deployment, opts Options) (*Engine, error) {
	allowlist, err := config.ResolveAllowlist(opts.PurgeAllowlist, opts.PurgeWhitelist)
	if err != nil {
		return nil, err
	}
	if opts.LockRoot == "" {
		return nil, errors.New(errors.ErrConfigInvalid, "no lock root configured")
	}
	if opts.PurgeLevels == nil {
		opts.PurgeLevels = config.PurgeLevels{}
	}
	if opts.FS == nil {
		opts.FS = filesystem.NewOS()
	}
	executor := opts.Executor
	if executor == nil {
		executor = command.NewExecutor("hook")
	}

	return &Engine{
		deployment: deployment,
		opts:       opts,
		allowlist:  allowlist,
		records:    record.NewWriter(opts.FS),
		executor:   executor,
		logger:     logging.GetLogger("engine"),
	}, nil
}

// SanitizeNames applies the environment name sanitization to requested
// names, dropping duplicates and keeping order.
func SanitizeNames(names []string) []string {
	seen := make(map[string]bool, len(names))
	var out []string
	for _, n := range names {
		s := paths.SanitizeName(n)
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// Run deploys the environments named in requested, or all of them when
// requested is empty. A returned error is fatal: the write lock, the
// preload or the validation failed. Otherwise Result.Success tells
// whether every part of the run succeeded.
func (e *Engine) Run(ctx context.Context, requested []string) (*Result, error) {
	rc := newRunContext(uuid.NewString(), SanitizeNames(requested), !e.opts.NoForce, e.logger)
	res := &Result{RunID: rc.runID, StartedAt: time.Now()}
	logger := rc.logger

	if err := lock.CheckDisabled(e.opts.WriteLock); err != nil {
		return nil, err
	}
	wl, err := lock.Acquire(e.opts.LockRoot)
	if err != nil {
		return nil, err
	}

	released := false
	release := func() {
		if released {
			return
		}
		released = true
		if err := wl.Release(); err != nil {
			logger.Warn().Err(err).Msg("Failed to release write lock")
		}
	}
	defer func() {
		release()
		e.postflight(ctx, rc, res)
		res.FinishedAt = time.Now()
	}()

	done := logging.LogOperationStart(logger, "deploy")
	defer done()

	if err := e.deployment.Preload(ctx); err != nil {
		res.Success = false
		return res, errors.Wrap(err, errors.ErrPreload, "cannot enumerate environments")
	}
	if err := e.deployment.Validate(); err != nil {
		res.Success = false
		return res, errors.Wrap(err, errors.ErrValidate, "deployment is not valid")
	}

	res.Undeployable = e.undeployable(rc)
	if len(res.Undeployable) > 0 {
		rc.ok.And(false)
		logger.Error().
			Strs("environments", res.Undeployable).
			Msgf("Environment(s) %s cannot be found in any source and will not be deployed", strings.Join(res.Undeployable, ", "))
	}

	out := e.visit(ctx, rc, deploymentNode(e.deployment))
	res.Environments = out.environments

	if e.opts.PurgeLevels.Has(config.PurgeDeployment) {
		if rc.ok.Value() {
			if err := e.deployment.Purge(); err != nil {
				logger.Error().Err(err).Msg("Failed to purge stale environments")
			} else {
				res.DeploymentPurged = true
			}
		} else {
			logger.Info().Msg("Not purging unmanaged environments due to prior deploy failures")
		}
	}

	res.Success = rc.ok.Value()
	return res, nil
}

// undeployable returns requested names no source provides.
func (e *Engine) undeployable(rc *runContext) []string {
	if len(rc.requested) == 0 {
		return nil
	}
	known := make(map[string]bool)
	for _, env := range e.deployment.Environments() {
		known[env.Dirname()] = true
	}
	var missing []string
	for _, name := range rc.requested {
		if !known[name] {
			missing = append(missing, name)
		}
	}
	return missing
}

// modifiedEnvironments are the environments eligible for this run: the
// requested ones that exist, or all known ones.
func (e *Engine) modifiedEnvironments(rc *runContext) []string {
	var out []string
	for _, env := range e.deployment.Environments() {
		if rc.selects(env.Dirname()) {
			out = append(out, env.Dirname())
		}
	}
	return out
}

// postflight runs the post-deploy hook. Its outcome never changes the run
// result.
func (e *Engine) postflight(ctx context.Context, rc *runContext, res *Result) {
	if e.opts.Postrun.IsEmpty() {
		return
	}

	tokens := map[string]string{TokenRunID: rc.runID}
	if e.opts.Postrun.Contains(TokenModifiedEnvs) {
		tokens[TokenModifiedEnvs] = strings.Join(e.modifiedEnvironments(rc), " ")
	}
	argv := e.opts.Postrun.Expand(tokens)

	res.HookRan = true
	_, err := e.executor.Run(context.WithoutCancel(ctx), command.Command{
		Argv: argv,
		Env:  map[string]string{"ENVDEPLOY_RUN_ID": rc.runID},
		Code: errors.ErrHook,
	})
	if err != nil {
		res.HookError = err.Error()
		rc.logger.Error().Err(err).Msg("Post-deploy hook failed")
		return
	}
	rc.logger.Info().Strs("command", argv).Msg("Post-deploy hook finished")
}
