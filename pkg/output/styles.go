package output

import (
	_ "embed"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"
)

//go:embed embedded/styles.yaml
var stylesYAML []byte

type colorDef struct {
	Light string `yaml:"light"`
	Dark  string `yaml:"dark"`
}

type styleDef struct {
	Bold       bool   `yaml:"bold,omitempty"`
	Italic     bool   `yaml:"italic,omitempty"`
	Foreground string `yaml:"foreground,omitempty"`
}

type stylesConfig struct {
	Colors map[string]colorDef `yaml:"colors"`
	Styles map[string]styleDef `yaml:"styles"`
}

// loadStyles builds the named styles for r from the embedded definitions.
func loadStyles(r *lipgloss.Renderer) (map[string]lipgloss.Style, error) {
	var cfg stylesConfig
	if err := yaml.Unmarshal(stylesYAML, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse styles: %w", err)
	}

	styles := make(map[string]lipgloss.Style, len(cfg.Styles))
	for name, def := range cfg.Styles {
		style := r.NewStyle().Bold(def.Bold).Italic(def.Italic)
		if def.Foreground != "" {
			color, ok := cfg.Colors[def.Foreground]
			if !ok {
				return nil, fmt.Errorf("style %s uses unknown color %s", name, def.Foreground)
			}
			style = style.Foreground(lipgloss.AdaptiveColor{Light: color.Light, Dark: color.Dark})
		}
		styles[name] = style
	}
	return styles, nil
}
