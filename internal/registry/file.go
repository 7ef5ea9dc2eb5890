package registry

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// manifest is the on-disk form of a component list.
type manifest struct {
	Components []*Spec `yaml:"components"`
}

// LoadFile reads a YAML component manifest and merges it into r. Components
// already present are replaced in place; new ones are appended after the
// existing catalog.
func LoadFile(r *Registry, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("parse manifest %s: %w", path, err)
	}
	for _, spec := range m.Components {
		if spec.Name == "" {
			return fmt.Errorf("manifest %s: component with empty name", path)
		}
		if spec.Repo == "" {
			return fmt.Errorf("manifest %s: component %s has no repo", path, spec.Name)
		}
		r.Add(spec)
	}
	return nil
}
