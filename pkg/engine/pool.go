package engine

import (
	"context"
	"sync"

	"github.com/arthur-debert/envdeploy/pkg/types"
	"golang.org/x/sync/semaphore"
)

// visitModules visits mods in order, or with up to ModuleWorkers syncs in
// flight. Results keep declaration order either way, and all visits are
// complete when it returns.
func (e *Engine) visitModules(ctx context.Context, rc *runContext, env types.Environment, mods []types.Module) []outcome {
	results := make([]outcome, len(mods))
	workers := int64(e.opts.ModuleWorkers)
	if workers <= 1 || len(mods) <= 1 {
		for i, m := range mods {
			results[i] = e.visit(ctx, rc, moduleNode(env, m))
		}
		return results
	}

	sem := semaphore.NewWeighted(workers)
	var wg sync.WaitGroup
	for i, m := range mods {
		if err := sem.Acquire(ctx, 1); err != nil {
			results[i] = outcome{
				state:   StateVisitedFailed,
				modules: []ModuleOutcome{{Name: m.Name(), Origin: m.Origin(), State: StateVisitedFailed, Error: err.Error()}},
			}
			continue
		}
		wg.Add(1)
		go func(i int, m types.Module) {
			defer wg.Done()
			defer sem.Release(1)
			results[i] = e.visit(ctx, rc, moduleNode(env, m))
		}(i, m)
	}
	wg.Wait()
	return results
}
