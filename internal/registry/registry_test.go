package registry_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ejrgilbert/whammc/internal/registry"
)

func TestProvidersOrder(t *testing.T) {
	reg := registry.New()
	got := reg.Providers()
	want := []string{"core", "wasm"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Providers() mismatch (-want +got):\n%s", diff)
	}
}

func TestLookupCoreLifecycleModes(t *testing.T) {
	reg := registry.New()
	begin := reg.Lookup("core", "", "", "begin")
	require.NotNil(t, begin)
	assert.Equal(t, "begin", begin.Name)

	end := reg.Lookup("core", "", "", "end")
	require.NotNil(t, end)
	assert.Equal(t, "end", end.Name)
}

func TestLookupMissingPathReturnsNil(t *testing.T) {
	reg := registry.New()
	assert.Nil(t, reg.Lookup("core", "nope"))
	assert.Nil(t, reg.Lookup("nonexistent"))
}

func TestLookupWasmBytecodeEventModes(t *testing.T) {
	reg := registry.New()
	for _, mode := range []string{"before", "after", "alt"} {
		n := reg.Lookup("wasm", "bytecode", "call", mode)
		require.NotNilf(t, n, "mode %s", mode)
	}
}

func TestEventGlobalsForCall(t *testing.T) {
	reg := registry.New()
	got := reg.EventGlobals("wasm", "bytecode", "call")
	want := []string{"target_fn_type", "target_imp_module", "target_imp_name", "target_fn_name", "new_target_fn_name"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("EventGlobals(call) mismatch (-want +got):\n%s", diff)
	}
}

func TestEventGlobalsForEventsWithoutGlobals(t *testing.T) {
	reg := registry.New()
	assert.Empty(t, reg.EventGlobals("wasm", "bytecode", "drop"))
}

func TestEventGlobalsUnknownPath(t *testing.T) {
	reg := registry.New()
	assert.Nil(t, reg.EventGlobals("wasm", "bytecode", "does_not_exist"))
}

func TestChildNamesStableOrder(t *testing.T) {
	reg := registry.New()
	bytecode := reg.Lookup("wasm", "bytecode")
	require.NotNil(t, bytecode)
	names := bytecode.ChildNames()
	require.NotEmpty(t, names)
	assert.Equal(t, "block", names[0])
	assert.Equal(t, "loop", names[1])
}
