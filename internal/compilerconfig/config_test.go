package compilerconfig_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ejrgilbert/whammc/internal/compilerconfig"
)

func TestLoadMissingFileReturnsZeroConfig(t *testing.T) {
	cfg, err := compilerconfig.Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Empty(t, cfg.Providers)
	assert.Empty(t, cfg.Verbosity)
	assert.Empty(t, cfg.DocOverrides)
}

func TestLoadParsesProvidersVerbosityAndDocOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "whammc.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
providers:
  - wasm
  - core
verbosity: debug
doc_overrides:
  "wasm:bytecode:call:before": "extra project-specific note"
`), 0o644))

	cfg, err := compilerconfig.Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"wasm", "core"}, cfg.Providers)
	assert.Equal(t, "debug", cfg.Verbosity)
	assert.Equal(t, "extra project-specific note", cfg.DocOverrides["wasm:bytecode:call:before"])
}

func TestLoadMalformedYAMLReturnsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "whammc.yaml")
	require.NoError(t, os.WriteFile(path, []byte("providers: [unterminated"), 0o644))

	_, err := compilerconfig.Load(path)
	assert.Error(t, err)
}
