package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// ModuleManifest declares which modules consume the AI core and their defaults.
//
//	modules:
//	  - name: crm
//	    provider: openai-main
//	    model: gpt-4o-mini
//	    max_tokens: 1024
//	    temperature: 0.3
type ModuleManifest struct {
	Modules []ModuleEntry `koanf:"modules"`
}

// ModuleEntry is one module in the manifest. Provider and Model refer to
// catalog rows by provider name and model identifier.
type ModuleEntry struct {
	Name        string   `koanf:"name"`
	Provider    string   `koanf:"provider"`
	Model       string   `koanf:"model"`
	MaxTokens   *int     `koanf:"max_tokens"`
	Temperature *float64 `koanf:"temperature"`
	Streaming   bool     `koanf:"streaming"`
	Priority    int      `koanf:"priority"`
	Active      *bool    `koanf:"active"`
}

// IsActive defaults to true when the manifest omits the flag.
func (e ModuleEntry) IsActive() bool {
	return e.Active == nil || *e.Active
}

// LoadManifest parses a YAML manifest. A missing file yields an empty manifest.
func LoadManifest(path string) (*ModuleManifest, error) {
	m := &ModuleManifest{}
	if path == "" {
		return m, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return m, nil
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to read module manifest: %w", err)
	}
	if err := k.Unmarshal("", m); err != nil {
		return nil, fmt.Errorf("failed to decode module manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate rejects blank or duplicate module names and out of range values.
func (m *ModuleManifest) Validate() error {
	seen := make(map[string]bool, len(m.Modules))
	for i, entry := range m.Modules {
		name := strings.TrimSpace(entry.Name)
		if name == "" {
			return fmt.Errorf("module manifest entry %d has no name", i)
		}
		if seen[name] {
			return fmt.Errorf("module %q declared more than once", name)
		}
		seen[name] = true

		if entry.MaxTokens != nil && *entry.MaxTokens <= 0 {
			return fmt.Errorf("module %q: max_tokens must be positive", name)
		}
		if entry.Temperature != nil && (*entry.Temperature < 0 || *entry.Temperature > 2) {
			return fmt.Errorf("module %q: temperature must be between 0 and 2", name)
		}
	}
	return nil
}
