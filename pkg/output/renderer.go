package output

import (
	"fmt"
	"io"
	"os"

	"github.com/arthur-debert/envdeploy/pkg/engine"
)

// Inventory is what deploy display shows: the sources and the
// environments they provide.
type Inventory struct {
	Sources []SourceView `json:"sources"`
}

// SourceView describes one source.
type SourceView struct {
	Name         string            `json:"name"`
	Remote       string            `json:"remote,omitempty"`
	Basedir      string            `json:"basedir,omitempty"`
	Environments []EnvironmentView `json:"environments"`
}

// EnvironmentView describes one environment of a source.
type EnvironmentView struct {
	Name      string `json:"name"`
	Dirname   string `json:"dirname"`
	Path      string `json:"path"`
	Status    string `json:"status"`
	Signature string `json:"signature,omitempty"`
}

// Renderer writes results in one output format.
type Renderer interface {
	// RenderRun renders the summary of a deploy run.
	RenderRun(res *engine.Result) error

	// RenderInventory renders the sources and their environments.
	RenderInventory(inv Inventory) error

	RenderError(err error) error
	RenderMessage(msg string) error
}

// NewRenderer creates a renderer for format writing to w.
func NewRenderer(format Format, w io.Writer) (Renderer, error) {
	switch format {
	case FormatAuto:
		if file, ok := w.(*os.File); ok {
			return NewRenderer(DetectFormat(file), w)
		}
		return NewRenderer(FormatText, w)
	case FormatTerminal:
		return newTerminal(w)
	case FormatText:
		return newText(w), nil
	case FormatJSON:
		return newJSON(w), nil
	default:
		return nil, fmt.Errorf("unknown format: %v", format)
	}
}
