package output

import (
	"fmt"
	"io"

	"github.com/arthur-debert/envdeploy/pkg/engine"
	"github.com/arthur-debert/envdeploy/pkg/logging"
	"github.com/charmbracelet/lipgloss"
)

// terminalRenderer styles the shared layout with lipgloss.
type terminalRenderer struct {
	w      io.Writer
	styles map[string]lipgloss.Style
}

func newTerminal(w io.Writer) (*terminalRenderer, error) {
	r := lipgloss.NewRenderer(w)
	styles, err := loadStyles(r)
	if err != nil {
		return nil, err
	}
	logger := logging.GetLogger("output")
	logger.Debug().
		Str("colorProfile", fmt.Sprintf("%v", r.ColorProfile())).
		Msg("Terminal renderer created")
	return &terminalRenderer{w: w, styles: styles}, nil
}

func (r *terminalRenderer) style(name, s string) string {
	if style, ok := r.styles[name]; ok {
		return style.Render(s)
	}
	return s
}

func (r *terminalRenderer) layout() layout {
	return layout{w: r.w, style: r.style}
}

func (r *terminalRenderer) RenderRun(res *engine.Result) error {
	return r.layout().run(res)
}

func (r *terminalRenderer) RenderInventory(inv Inventory) error {
	return r.layout().inventory(inv)
}

func (r *terminalRenderer) RenderError(err error) error {
	_, werr := fmt.Fprintf(r.w, "%s %v\n", r.style("Failure", "Error:"), err)
	return werr
}

func (r *terminalRenderer) RenderMessage(msg string) error {
	_, err := fmt.Fprintln(r.w, msg)
	return err
}
