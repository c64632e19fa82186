package engine

import (
	"sync"

	"github.com/arthur-debert/envdeploy/pkg/logging"
	"github.com/rs/zerolog"
)

// accumulator is an AND over outcomes, safe for concurrent use.
type accumulator struct {
	mu sync.Mutex
	ok bool
}

func newAccumulator() *accumulator {
	return &accumulator{ok: true}
}

// And folds ok into the accumulated value.
func (a *accumulator) And(ok bool) {
	a.mu.Lock()
	a.ok = a.ok && ok
	a.mu.Unlock()
}

// Value returns the accumulated value.
func (a *accumulator) Value() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ok
}

// runContext is the state of one run, passed down the traversal.
type runContext struct {
	runID string

	// requested are the sanitized requested names, in request order.
	requested []string
	filter    map[string]bool

	// force is passed to every module sync.
	force bool

	// ok is the run-wide ok value.
	ok *accumulator

	logger zerolog.Logger
}

func newRunContext(runID string, requested []string, force bool, logger zerolog.Logger) *runContext {
	filter := make(map[string]bool, len(requested))
	for _, name := range requested {
		filter[name] = true
	}
	return &runContext{
		runID:     runID,
		requested: requested,
		filter:    filter,
		force:     force,
		ok:        newAccumulator(),
		logger:    logging.WithRun(logger, runID),
	}
}

// selects reports whether the environment dirname takes part in the run.
func (rc *runContext) selects(dirname string) bool {
	return len(rc.filter) == 0 || rc.filter[dirname]
}
