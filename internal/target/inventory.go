package target

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Inventory is a named collection of targets.
type Inventory struct {
	// Path is the file path the inventory was loaded from.
	Path string

	// Targets maps target names to their definitions.
	Targets map[string]*Target
}

// inventoryFile is the on-disk layout of an inventory.
type inventoryFile struct {
	Targets []*Target `yaml:"targets"`
}

// ParseFile parses an inventory from a YAML file.
func ParseFile(path string) (*Inventory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read inventory: %w", err)
	}

	inv, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse inventory %s: %w", path, err)
	}

	inv.Path = path
	return inv, nil
}

// Parse parses an inventory from YAML data.
func Parse(data []byte) (*Inventory, error) {
	var file inventoryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("invalid inventory format: %w", err)
	}

	inv := &Inventory{Targets: make(map[string]*Target)}

	for i, t := range file.Targets {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("target %d: %w", i+1, err)
		}
		if _, exists := inv.Targets[t.Name]; exists {
			return nil, fmt.Errorf("duplicate target name %q", t.Name)
		}
		inv.Targets[t.Name] = t
	}

	return inv, nil
}

// Get looks up a target by name.
func (i *Inventory) Get(name string) (*Target, error) {
	t, ok := i.Targets[name]
	if !ok {
		return nil, fmt.Errorf("unknown target '%s' (available: %v)", name, i.Names())
	}
	return t, nil
}

// Names returns the sorted target names.
func (i *Inventory) Names() []string {
	names := make([]string, 0, len(i.Targets))
	for name := range i.Targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
