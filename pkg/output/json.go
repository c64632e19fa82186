package output

import (
	"encoding/json"
	"io"

	"github.com/arthur-debert/envdeploy/pkg/engine"
)

// jsonRenderer encodes every value as one indented JSON document.
type jsonRenderer struct {
	encoder *json.Encoder
}

func newJSON(w io.Writer) *jsonRenderer {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return &jsonRenderer{encoder: encoder}
}

func (r *jsonRenderer) RenderRun(res *engine.Result) error {
	return r.encoder.Encode(res)
}

func (r *jsonRenderer) RenderInventory(inv Inventory) error {
	return r.encoder.Encode(inv)
}

func (r *jsonRenderer) RenderError(err error) error {
	return r.encoder.Encode(map[string]string{"error": err.Error()})
}

func (r *jsonRenderer) RenderMessage(msg string) error {
	return r.encoder.Encode(map[string]string{"message": msg})
}
