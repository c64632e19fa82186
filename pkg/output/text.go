package output

import (
	"fmt"
	"io"

	"github.com/arthur-debert/envdeploy/pkg/engine"
)

// textRenderer prints the shared layout without styling.
type textRenderer struct {
	w io.Writer
}

func newText(w io.Writer) *textRenderer {
	return &textRenderer{w: w}
}

func (r *textRenderer) RenderRun(res *engine.Result) error {
	return layout{w: r.w, style: plain}.run(res)
}

func (r *textRenderer) RenderInventory(inv Inventory) error {
	return layout{w: r.w, style: plain}.inventory(inv)
}

func (r *textRenderer) RenderError(err error) error {
	_, werr := fmt.Fprintf(r.w, "Error: %v\n", err)
	return werr
}

func (r *textRenderer) RenderMessage(msg string) error {
	_, err := fmt.Fprintln(r.w, msg)
	return err
}
