package compose

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Manifest is the subset of a compose file this tool inspects for status
// reporting. Manifests are static declarative input, never generated or
// rewritten.
type Manifest struct {
	Services map[string]ManifestService `yaml:"services"`
	Volumes  map[string]yaml.Node       `yaml:"volumes"`
	Networks map[string]yaml.Node       `yaml:"networks"`
}

// ManifestService is the declared shape of one service.
type ManifestService struct {
	Image         string `yaml:"image"`
	ContainerName string `yaml:"container_name"`
}

// LoadManifest parses the compose manifest at path.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	if len(m.Services) == 0 {
		return nil, fmt.Errorf("manifest %s declares no services", path)
	}
	return &m, nil
}

// ServiceNames returns the declared service names in sorted order.
func (m *Manifest) ServiceNames() []string {
	names := make([]string, 0, len(m.Services))
	for name := range m.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
