package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/arthur-debert/envdeploy/pkg/config"
	"github.com/arthur-debert/envdeploy/pkg/logging"
	"github.com/arthur-debert/envdeploy/pkg/types"
)

// NodeKind tags the nodes of the deploy tree.
type NodeKind int

const (
	KindDeployment NodeKind = iota
	KindSource
	KindEnvironment
	KindManifest
	KindModule
)

func (k NodeKind) String() string {
	switch k {
	case KindDeployment:
		return "deployment"
	case KindSource:
		return "source"
	case KindEnvironment:
		return "environment"
	case KindManifest:
		return "manifest"
	case KindModule:
		return "module"
	}
	return fmt.Sprintf("NodeKind(%d)", int(k))
}

// node is one element of the deploy tree. Exactly the field matching Kind
// is set; env is also set for manifest and module nodes.
type node struct {
	Kind       NodeKind
	deployment types.Deployment
	source     types.Source
	env        types.Environment
	manifest   types.Manifest
	module     types.Module
}

func deploymentNode(d types.Deployment) node { return node{Kind: KindDeployment, deployment: d} }
func sourceNode(s types.Source) node         { return node{Kind: KindSource, source: s} }
func environmentNode(e types.Environment) node {
	return node{Kind: KindEnvironment, env: e}
}
func manifestNode(e types.Environment, m types.Manifest) node {
	return node{Kind: KindManifest, env: e, manifest: m}
}
func moduleNode(e types.Environment, m types.Module) node {
	return node{Kind: KindModule, env: e, module: m}
}

// outcome is what a visit returns to its parent.
type outcome struct {
	state NodeState

	// ok is the node's own success, ANDed into the parent's local ok.
	ok bool

	environments []EnvironmentOutcome
	modules      []ModuleOutcome
	errors       []string
}

// visit dispatches on the node kind.
func (e *Engine) visit(ctx context.Context, rc *runContext, n node) outcome {
	switch n.Kind {
	case KindDeployment:
		return e.visitDeployment(ctx, rc, n.deployment)
	case KindSource:
		return e.visitSource(ctx, rc, n.source)
	case KindEnvironment:
		return e.visitEnvironment(ctx, rc, n.env)
	case KindManifest:
		return e.visitManifest(ctx, rc, n.env, n.manifest)
	case KindModule:
		return e.visitModule(ctx, rc, n.env, n.module)
	}
	panic(fmt.Sprintf("engine: unknown node kind %s", n.Kind))
}

func (e *Engine) visitDeployment(ctx context.Context, rc *runContext, d types.Deployment) outcome {
	out := outcome{state: StateVisitedOK, ok: true}
	for _, src := range d.Sources() {
		child := e.visit(ctx, rc, sourceNode(src))
		out.environments = append(out.environments, child.environments...)
		out.ok = out.ok && child.ok
	}
	if !out.ok {
		out.state = StateVisitedFailed
	}
	return out
}

// visitSource does no filtering of its own.
func (e *Engine) visitSource(ctx context.Context, rc *runContext, src types.Source) outcome {
	out := outcome{state: StateVisitedOK, ok: true}
	for _, env := range src.Environments() {
		child := e.visit(ctx, rc, environmentNode(env))
		if len(child.environments) > 0 {
			child.environments[0].Source = src.Name()
		}
		out.environments = append(out.environments, child.environments...)
		out.ok = out.ok && child.ok
	}
	if !out.ok {
		out.state = StateVisitedFailed
	}
	return out
}

func (e *Engine) visitEnvironment(ctx context.Context, rc *runContext, env types.Environment) outcome {
	res := EnvironmentOutcome{Name: env.Name(), Dirname: env.Dirname(), State: StatePending}
	logger := logging.WithEnvironment(rc.logger, env.Dirname())

	if !rc.selects(env.Dirname()) {
		logger.Debug().Msg("Environment not requested, skipping")
		res.State = StateSkipped
		return outcome{state: StateSkipped, ok: true, environments: []EnvironmentOutcome{res}}
	}

	res.StartedAt = time.Now()
	res.Status = env.Status()
	logger.Info().Str("status", string(res.Status)).Str("path", env.Path()).Msg("Deploying environment")

	finish := func(state NodeState, ok bool) outcome {
		res.State = state
		res.Signature = env.Signature()
		res.FinishedAt = time.Now()
		res.Duration = res.FinishedAt.Sub(res.StartedAt)
		return outcome{state: state, ok: ok, environments: []EnvironmentOutcome{res}}
	}

	if err := env.Sync(ctx); err != nil {
		logger.Error().Err(err).Msg("Failed to sync environment")
		res.Errors = append(res.Errors, err.Error())
		rc.ok.And(false)
		return finish(StateVisitedFailed, false)
	}
	logger.Info().Str("signature", env.Signature()).Msg("Environment is now at its source revision")

	var environmentOK bool
	if res.Status.IsAbsent() || e.opts.Modules {
		res.Descended = true
		child := e.visit(ctx, rc, manifestNode(env, env.Manifest()))
		res.Modules = child.modules
		res.Errors = append(res.Errors, child.errors...)
		for _, m := range child.modules {
			if m.Error != "" {
				res.Errors = append(res.Errors, m.Error)
			}
		}
		environmentOK = child.ok
		rc.ok.And(child.ok)
	} else {
		logger.Debug().Msg("Environment already present, skipping modules")
		environmentOK = rc.ok.Value()
	}
	res.OK = environmentOK

	if e.opts.PurgeLevels.Has(config.PurgeEnvironment) {
		if rc.ok.Value() {
			err := env.Purge(types.PurgeOptions{Recurse: true, Allowlist: env.Allowlist(e.allowlist)})
			if err != nil {
				logger.Error().Err(err).Msg("Failed to purge unmanaged content")
			} else {
				res.Purged = true
			}
		} else {
			logger.Info().Msg("Not purging unmanaged content due to prior deploy failures")
		}
	}

	if e.opts.GenerateTypes {
		if environmentOK {
			if err := env.GenerateTypes(ctx); err != nil {
				logger.Error().Err(err).Msg("Failed to generate types")
			} else {
				res.TypesGenerated = true
			}
		} else {
			logger.Info().Msg("Not generating types due to environment deploy failures")
		}
	}

	if err := e.records.Write(env, res.StartedAt, time.Now(), rc.ok.Value()); err != nil {
		logger.Error().Err(err).Msg("Failed to write deploy record")
	} else {
		res.RecordWritten = true
	}

	state := StateVisitedOK
	if res.Descended && !environmentOK {
		state = StateVisitedFailed
	}
	return finish(state, !res.Descended || environmentOK)
}

// visitManifest loads the manifest and visits its modules. A nil manifest
// declares nothing.
func (e *Engine) visitManifest(ctx context.Context, rc *runContext, env types.Environment, m types.Manifest) outcome {
	if m == nil {
		return outcome{state: StateVisitedOK, ok: true}
	}
	logger := logging.WithEnvironment(rc.logger, env.Dirname())

	if err := m.Load(e.opts.DefaultBranchOverride); err != nil {
		logger.Error().Err(err).Msg("Failed to load Deployfile")
		return outcome{state: StateVisitedFailed, ok: false, errors: []string{err.Error()}}
	}

	mods := m.Modules()
	results := e.visitModules(ctx, rc, env, mods)

	out := outcome{state: StateVisitedOK, ok: true}
	for _, r := range results {
		out.modules = append(out.modules, r.modules...)
		out.ok = out.ok && r.ok
	}

	if e.opts.PurgeLevels.Has(config.PurgeManifest) {
		if err := m.Purge(); err != nil {
			logger.Error().Err(err).Msg("Failed to purge unmanaged modules")
		}
	}

	if !out.ok {
		out.state = StateVisitedFailed
	}
	return out
}

// visitModule syncs one module. A failure is reported and does not stop
// its siblings.
func (e *Engine) visitModule(ctx context.Context, rc *runContext, env types.Environment, m types.Module) outcome {
	res := ModuleOutcome{Name: m.Name(), Origin: m.Origin(), State: StateVisitedOK}
	if err := m.Sync(ctx, rc.force); err != nil {
		logger := logging.WithModule(rc.logger, env.Dirname(), m.Name(), string(m.Origin()))
		logger.Error().Err(err).Msg("Failed to sync module")
		res.State = StateVisitedFailed
		res.Error = err.Error()
		return outcome{state: StateVisitedFailed, ok: false, modules: []ModuleOutcome{res}}
	}
	rc.logger.Debug().Str("environment", env.Dirname()).Str("module", m.Name()).Msg("Module synced")
	return outcome{state: StateVisitedOK, ok: true, modules: []ModuleOutcome{res}}
}
