package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/mrhappynice/bplus-searchrs/internal/search"
)

// providerFile is the on-disk shape of providers.yaml. File order is
// declaration order, which governs merge precedence.
type providerFile struct {
	Providers []search.ProviderSpec `yaml:"providers"`
}

// ProvidersPath returns the provider registry file path
func ProvidersPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "providers.yaml"), nil
}

// LoadProviders loads the operator-defined provider specs. A missing
// file means no user providers, not an error. Duplicate names are
// rejected so every citation label stays unambiguous.
func LoadProviders() ([]search.ProviderSpec, error) {
	path, err := ProvidersPath()
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read providers file: %w", err)
	}

	var file providerFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse providers file: %w", err)
	}

	seen := make(map[string]bool)
	for _, spec := range file.Providers {
		if seen[spec.Name] {
			return nil, fmt.Errorf("duplicate provider name %q in providers file", spec.Name)
		}
		seen[spec.Name] = true
	}

	return file.Providers, nil
}

// SaveProviders writes the user provider list back to providers.yaml.
func SaveProviders(specs []search.ProviderSpec) error {
	path, err := ProvidersPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(providerFile{Providers: specs})
	if err != nil {
		return fmt.Errorf("failed to serialize providers: %w", err)
	}

	content := "# bplus-searchrs Provider Registry\n# File order is provider declaration order.\n\n" + string(data)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write providers file: %w", err)
	}
	return nil
}

// AddProvider appends a new spec to the registry.
func AddProvider(spec search.ProviderSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}
	specs, err := LoadProviders()
	if err != nil {
		return err
	}
	for _, existing := range specs {
		if existing.Name == spec.Name {
			return fmt.Errorf("provider %q already exists", spec.Name)
		}
	}
	return SaveProviders(append(specs, spec))
}

// RemoveProvider deletes a spec from the registry by name.
func RemoveProvider(name string) error {
	specs, err := LoadProviders()
	if err != nil {
		return err
	}
	kept := specs[:0]
	found := false
	for _, spec := range specs {
		if spec.Name == name {
			found = true
			continue
		}
		kept = append(kept, spec)
	}
	if !found {
		return fmt.Errorf("provider %q not found", name)
	}
	return SaveProviders(kept)
}

// ActiveSpecs assembles the full provider list for one query, in
// declaration order: SearXNG (when configured), then the built-in
// native providers, then the operator's own. The engine consumes this
// snapshot; registry edits take effect on the next query.
func (c *Config) ActiveSpecs() ([]search.ProviderSpec, error) {
	var specs []search.ProviderSpec
	if spec, ok := search.SearXNGSpec(c.Search.SearXNGURL, c.Search.SearXNGUsername, c.Search.SearXNGPassword); ok {
		specs = append(specs, spec)
	}
	specs = append(specs, search.NativeSpecs()...)

	user, err := LoadProviders()
	if err != nil {
		return nil, err
	}
	builtin := make(map[string]bool, len(specs))
	for _, spec := range specs {
		builtin[spec.Name] = true
	}
	for _, spec := range user {
		if builtin[spec.Name] {
			return nil, fmt.Errorf("provider %q shadows a built-in provider", spec.Name)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}
