// Package compilerconfig loads the optional project-level `whammc.yaml`
// config file (spec.md's ambient "Configuration" addition): which
// registry providers are enabled by default, default verbosity, and
// registry doc overrides. Entirely optional. `whammc compile` reads only
// Providers (fed into internal/compiler.Options); Verbosity and
// DocOverrides are parsed but no command reads them.
package compilerconfig

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk shape of whammc.yaml.
type Config struct {
	// Providers restricts spec expansion to these top-level registry
	// providers. Empty/omitted means every provider is enabled.
	Providers []string `yaml:"providers"`
	// Verbosity names a logrus level ("debug", "info", "warn", ...). It is
	// parsed but not applied: the log level comes from the -v flag alone.
	Verbosity string `yaml:"verbosity"`
	// DocOverrides maps a registry path ("wasm:bytecode:call:before") to
	// extra documentation text. It is parsed but `whammc doc` does not load
	// the config file, so the text is never shown.
	DocOverrides map[string]string `yaml:"doc_overrides"`
}

// Load reads and parses path. A missing file is not an error: it
// returns the zero Config, since whammc.yaml is optional.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Config{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}
