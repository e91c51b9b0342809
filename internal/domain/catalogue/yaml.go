package catalogue

import (
	model "github.com/okian/rummy/internal/domain/model"
	"gopkg.in/yaml.v3"
)

// presetFile is the on-disk shape of an exported preset list.
type presetFile struct {
	Presets []model.Configuration `yaml:"presets"`
}

// ParseYAML reads a preset file. Every entry must be a valid rule set.
func ParseYAML(data []byte) ([]model.Configuration, error) {
	var f presetFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, model.Validationf("malformed preset file: %v", err)
	}
	if len(f.Presets) == 0 {
		return nil, model.Validationf("preset file has no presets")
	}
	for _, cfg := range f.Presets {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return f.Presets, nil
}

// MarshalYAML writes the user rule sets of c as a preset file. Built-in
// defaults are included only when withDefaults is set.
func MarshalYAML(c Catalogue, withDefaults bool) ([]byte, error) {
	f := presetFile{Presets: make([]model.Configuration, 0, len(c.Configs))}
	for _, cfg := range c.Configs {
		if cfg.IsDefault && !withDefaults {
			continue
		}
		f.Presets = append(f.Presets, cfg)
	}
	return yaml.Marshal(f)
}
