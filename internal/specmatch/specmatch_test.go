package specmatch_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ejrgilbert/whammc/internal/ast"
	"github.com/ejrgilbert/whammc/internal/diagnostics"
	"github.com/ejrgilbert/whammc/internal/registry"
	"github.com/ejrgilbert/whammc/internal/specmatch"
)

func TestParseSpecTextBareBeginEnd(t *testing.T) {
	assert.Equal(t, specmatch.ParsedSpec{Provider: "core", Package: "*", Event: "*", Mode: "begin"}, specmatch.ParseSpecText("BEGIN", diagnostics.Location{}))
	assert.Equal(t, specmatch.ParsedSpec{Provider: "core", Package: "*", Event: "*", Mode: "end"}, specmatch.ParseSpecText("end", diagnostics.Location{}))
}

func TestParseSpecTextRightAligns(t *testing.T) {
	got := specmatch.ParseSpecText("call:before", diagnostics.Location{})
	assert.Equal(t, "*", got.Provider)
	assert.Equal(t, "*", got.Package)
	assert.Equal(t, "call", got.Event)
	assert.Equal(t, "before", got.Mode)
}

func TestParseSpecTextEmptyComponentDefaultsToStar(t *testing.T) {
	got := specmatch.ParseSpecText("wasm::call:before", diagnostics.Location{})
	assert.Equal(t, "*", got.Package)
}

func TestExpandExactMatch(t *testing.T) {
	reg := registry.New()
	errs := diagnostics.NewCollector()
	spec := specmatch.ParsedSpec{Provider: "wasm", Package: "bytecode", Event: "call", Mode: "before"}
	got := specmatch.Expand(reg, spec, errs)
	want := []specmatch.Tuple{{Provider: "wasm", Package: "bytecode", Event: "call", Mode: "before"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Expand mismatch (-want +got):\n%s", diff)
	}
	assert.False(t, errs.HasErrors())
}

func TestExpandGlobAllModes(t *testing.T) {
	reg := registry.New()
	errs := diagnostics.NewCollector()
	spec := specmatch.ParsedSpec{Provider: "wasm", Package: "bytecode", Event: "call", Mode: "*"}
	got := specmatch.Expand(reg, spec, errs)
	require.Len(t, got, 3)
}

func TestExpandNoMatchesReportsDiagnostic(t *testing.T) {
	reg := registry.New()
	errs := diagnostics.NewCollector()
	spec := specmatch.ParsedSpec{Provider: "nonexistent", Package: "*", Event: "*", Mode: "*"}
	got := specmatch.Expand(reg, spec, errs)
	assert.Nil(t, got)
	assert.True(t, errs.HasErrors())
}

func TestAttachProbeClonesIntoEachMatchedLeaf(t *testing.T) {
	script := &ast.Script{}
	tuples := []specmatch.Tuple{
		{Provider: "wasm", Package: "bytecode", Event: "call", Mode: "before"},
		{Provider: "wasm", Package: "bytecode", Event: "call", Mode: "after"},
	}
	template := &ast.Probe{}
	specmatch.AttachProbe(script, tuples, template)

	event := script.Providers["wasm"].Packages["bytecode"].Events["call"]
	require.Len(t, event.ProbeMap["before"], 1)
	require.Len(t, event.ProbeMap["after"], 1)
	assert.NotSame(t, template, event.ProbeMap["before"][0])
}
