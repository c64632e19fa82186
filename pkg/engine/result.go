package engine

import (
	"time"

	"github.com/arthur-debert/envdeploy/pkg/types"
)

// NodeState is where a node is in a run. Skipped, VisitedOK and
// VisitedFailed are terminal.
type NodeState string

const (
	StatePending       NodeState = "pending"
	StateSkipped       NodeState = "skipped"
	StateVisitedOK     NodeState = "visited-ok"
	StateVisitedFailed NodeState = "visited-failed"
)

// ModuleOutcome is the result of one module visit.
type ModuleOutcome struct {
	Name   string           `json:"name"`
	Origin types.ModuleKind `json:"origin"`
	State  NodeState        `json:"state"`
	Error  string           `json:"error,omitempty"`
}

// EnvironmentOutcome is the result of one environment visit.
type EnvironmentOutcome struct {
	Name      string       `json:"name"`
	Dirname   string       `json:"dirname"`
	Source    string       `json:"source"`
	Signature string       `json:"signature,omitempty"`
	Status    types.Status `json:"status,omitempty"`
	State     NodeState    `json:"state"`

	// OK is the environment ok value type generation was gated on.
	OK bool `json:"ok"`

	// Descended is set when the manifest and its modules were visited.
	Descended      bool `json:"descended"`
	Purged         bool `json:"purged"`
	TypesGenerated bool `json:"types_generated"`
	RecordWritten  bool `json:"record_written"`

	Modules []ModuleOutcome `json:"modules,omitempty"`
	Errors  []string        `json:"errors,omitempty"`

	StartedAt  time.Time     `json:"started_at,omitempty"`
	FinishedAt time.Time     `json:"finished_at,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// ModuleCounts returns how many modules were visited and how many of
// them failed.
func (o EnvironmentOutcome) ModuleCounts() (visited, failed int) {
	for _, m := range o.Modules {
		switch m.State {
		case StateVisitedOK:
			visited++
		case StateVisitedFailed:
			visited++
			failed++
		}
	}
	return visited, failed
}

// Result is the outcome of a run.
type Result struct {
	RunID string `json:"run_id"`

	// Success is the run-wide ok value.
	Success bool `json:"success"`

	// Undeployable lists requested names no source provides.
	Undeployable []string `json:"undeployable,omitempty"`

	Environments []EnvironmentOutcome `json:"environments"`

	// DeploymentPurged is set when the deployment level purge ran.
	DeploymentPurged bool `json:"deployment_purged"`

	HookRan   bool   `json:"hook_ran"`
	HookError string `json:"hook_error,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Environment returns the outcome for dirname.
func (r *Result) Environment(dirname string) (EnvironmentOutcome, bool) {
	for _, e := range r.Environments {
		if e.Dirname == dirname {
			return e, true
		}
	}
	return EnvironmentOutcome{}, false
}

// Visited returns the dirnames of the environments that were not
// skipped, in visiting order.
func (r *Result) Visited() []string {
	var out []string
	for _, e := range r.Environments {
		if e.State != StateSkipped {
			out = append(out, e.Dirname)
		}
	}
	return out
}
