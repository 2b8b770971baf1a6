// Package registry maps file extensions to human readable type labels and
// groups them into selectable presets.
package registry

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/temirov/codeagg/internal/types"
	"github.com/temirov/codeagg/internal/utils"
)

const (
	unknownPresetMessageFormat = "unknown preset %q (available: %s)"
	parseRegistryMessageFormat = "parse type registry: %w"
)

//go:embed types.yaml
var registryDocument []byte

// Entry is one known file type.
type Entry struct {
	Extension string `yaml:"extension"`
	Label     string `yaml:"label"`
	Category  string `yaml:"category"`
}

type registryFile struct {
	Types []Entry `yaml:"types"`
}

// Registry is an immutable extension table.
type Registry struct {
	entries      []Entry
	labels       map[string]string
	categoryKeys map[string][]string
}

var (
	defaultRegistry     *Registry
	defaultRegistryErr  error
	defaultRegistryOnce sync.Once
)

// Default returns the embedded registry, parsed on first use.
func Default() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry, defaultRegistryErr = Parse(registryDocument)
	})
	if defaultRegistryErr != nil {
		panic(defaultRegistryErr)
	}
	return defaultRegistry
}

// Parse builds a registry from a YAML document. Later duplicates of an
// extension are ignored.
func Parse(document []byte) (*Registry, error) {
	var file registryFile
	if unmarshalError := yaml.Unmarshal(document, &file); unmarshalError != nil {
		return nil, fmt.Errorf(parseRegistryMessageFormat, unmarshalError)
	}
	registry := &Registry{
		labels:       make(map[string]string, len(file.Types)),
		categoryKeys: make(map[string][]string),
	}
	for _, entry := range file.Types {
		entry.Extension = utils.NormalizeExtension(entry.Extension)
		entry.Category = strings.ToLower(strings.TrimSpace(entry.Category))
		if entry.Extension == "" {
			continue
		}
		if _, exists := registry.labels[entry.Extension]; exists {
			continue
		}
		registry.labels[entry.Extension] = entry.Label
		registry.entries = append(registry.entries, entry)
		if entry.Category != "" {
			registry.categoryKeys[entry.Category] = append(registry.categoryKeys[entry.Category], entry.Extension)
		}
	}
	sort.Slice(registry.entries, func(left, right int) bool {
		return registry.entries[left].Extension < registry.entries[right].Extension
	})
	return registry, nil
}

// Label returns the display label for extension, or types.UnknownTypeLabel.
func (registry *Registry) Label(extension string) string {
	if label, known := registry.labels[utils.NormalizeExtension(extension)]; known {
		return label
	}
	return types.UnknownTypeLabel
}

// LabelForName returns the display label for a file name.
func (registry *Registry) LabelForName(fileName string) string {
	extension := utils.FileExtension(fileName)
	if extension == "" {
		return types.UnknownTypeLabel
	}
	return registry.Label(extension)
}

// IsKnown reports whether extension has a registered label.
func (registry *Registry) IsKnown(extension string) bool {
	_, known := registry.labels[utils.NormalizeExtension(extension)]
	return known
}

// Entries returns every entry sorted by extension.
func (registry *Registry) Entries() []Entry {
	return append([]Entry(nil), registry.entries...)
}

// Extensions returns every registered extension in sorted order.
func (registry *Registry) Extensions() []string {
	extensions := make([]string, 0, len(registry.entries))
	for _, entry := range registry.entries {
		extensions = append(extensions, entry.Extension)
	}
	return extensions
}

// PresetNames lists the available preset names in sorted order.
func (registry *Registry) PresetNames() []string {
	names := make([]string, 0, len(registry.categoryKeys))
	for name := range registry.categoryKeys {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Preset returns the extensions of the named categories, in registry order.
func (registry *Registry) Preset(names ...string) ([]string, error) {
	var extensions []string
	for _, name := range names {
		normalizedName := strings.ToLower(strings.TrimSpace(name))
		categoryExtensions, known := registry.categoryKeys[normalizedName]
		if !known {
			return nil, fmt.Errorf(unknownPresetMessageFormat, name, strings.Join(registry.PresetNames(), ", "))
		}
		extensions = append(extensions, categoryExtensions...)
	}
	return utils.DeduplicatePatterns(extensions), nil
}
