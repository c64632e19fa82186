package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/arthur-debert/envdeploy/pkg/engine"
)

// stylize applies a named style to s. Plain text passes s through.
type stylize func(style, s string) string

func plain(_, s string) string { return s }

// layout is the line oriented rendering shared by the terminal and text
// formats.
type layout struct {
	w     io.Writer
	style stylize
}

func (l layout) printf(format string, args ...interface{}) error {
	_, err := fmt.Fprintf(l.w, format, args...)
	return err
}

func shortSignature(sig string) string {
	if len(sig) > 12 {
		return sig[:12]
	}
	return sig
}

func (l layout) stateMark(state engine.NodeState) string {
	switch state {
	case engine.StateVisitedOK:
		return l.style("Success", "ok")
	case engine.StateVisitedFailed:
		return l.style("Failure", "failed")
	case engine.StateSkipped:
		return l.style("Skipped", "skipped")
	}
	return string(state)
}

func (l layout) run(res *engine.Result) error {
	if err := l.printf("%s %s\n", l.style("Title", "Deploy run"), l.style("Muted", res.RunID)); err != nil {
		return err
	}

	for _, env := range res.Environments {
		line := fmt.Sprintf("  %-8s %s", l.stateMark(env.State), l.style("Name", env.Dirname))
		if env.State != engine.StateSkipped {
			if sig := shortSignature(env.Signature); sig != "" {
				line += " " + l.style("Signature", sig)
			}
			if env.Descended {
				visited, failed := env.ModuleCounts()
				line += fmt.Sprintf(" modules=%d", visited)
				if failed > 0 {
					line += " " + l.style("Failure", fmt.Sprintf("failed=%d", failed))
				}
			}
			line += " " + l.style("Muted", env.Duration.Round(time.Millisecond).String())
		}
		if err := l.printf("%s\n", line); err != nil {
			return err
		}
		for _, m := range env.Modules {
			if m.State != engine.StateVisitedFailed {
				continue
			}
			if err := l.printf("      %s %s: %s\n", l.style("Failure", "module"), m.Name, m.Error); err != nil {
				return err
			}
		}
		for _, msg := range env.Errors {
			if isModuleError(env, msg) {
				continue
			}
			if err := l.printf("      %s\n", l.style("Failure", msg)); err != nil {
				return err
			}
		}
	}

	if len(res.Undeployable) > 0 {
		if err := l.printf("  %s %s\n", l.style("Warning", "not found:"), strings.Join(res.Undeployable, ", ")); err != nil {
			return err
		}
	}
	if res.HookError != "" {
		if err := l.printf("  %s %s\n", l.style("Warning", "post-deploy hook failed:"), res.HookError); err != nil {
			return err
		}
	}

	verdict := l.style("Success", "Deploy succeeded")
	if !res.Success {
		verdict = l.style("Failure", "Deploy failed")
	}
	return l.printf("%s\n", verdict)
}

func isModuleError(env engine.EnvironmentOutcome, msg string) bool {
	for _, m := range env.Modules {
		if m.Error == msg {
			return true
		}
	}
	return false
}

func (l layout) inventory(inv Inventory) error {
	if len(inv.Sources) == 0 {
		return l.printf("%s\n", l.style("Muted", "No sources configured"))
	}
	for i, src := range inv.Sources {
		if i > 0 {
			if err := l.printf("\n"); err != nil {
				return err
			}
		}
		if err := l.printf("%s %s\n", l.style("Title", src.Name), l.style("Muted", src.Remote)); err != nil {
			return err
		}
		if len(src.Environments) == 0 {
			if err := l.printf("  %s\n", l.style("Muted", "no environments")); err != nil {
				return err
			}
			continue
		}
		for _, env := range src.Environments {
			line := fmt.Sprintf("  %s", l.style("Name", env.Dirname))
			if env.Name != env.Dirname {
				line += " " + l.style("Muted", "("+env.Name+")")
			}
			line += " " + env.Status
			if sig := shortSignature(env.Signature); sig != "" {
				line += " " + l.style("Signature", sig)
			}
			if err := l.printf("%s\n", line); err != nil {
				return err
			}
		}
	}
	return nil
}
