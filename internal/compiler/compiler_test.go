package compiler_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ejrgilbert/whammc/internal/compiler"
	"github.com/ejrgilbert/whammc/internal/wasmmod"
)

// buildBrModule builds a minimal single-function module whose only body
// instruction is an unconditional Br to the function's implicit outer
// block (relative_depth 0), the same shape spec.md §8 scenario 1 rewrites.
func buildBrModule(t *testing.T) []byte {
	t.Helper()
	mod := &wasmmod.Module{
		Types:     []wasmmod.FuncType{{}},
		FuncTypes: []uint32{0},
		Code: []wasmmod.Code{{
			Body: []wasmmod.Instr{
				{Op: wasmmod.OpBr, I32: 0},
				{Op: wasmmod.OpEnd},
			},
		}},
	}
	return wasmmod.Encode(mod)
}

// TestCompileScenario1ImplicitGlobal exercises spec.md §8 scenario 1:
// `wasm:bytecode:br:before { i = 0; }` assigns to a name with no preceding
// declaration anywhere in scope, so it must be promoted to a newly created
// Wasm global and a store into it emitted immediately before the preserved
// Br.
func TestCompileScenario1ImplicitGlobal(t *testing.T) {
	src := []byte(`wasm:bytecode:br:before { i = 0; }`)
	wasmBytes := buildBrModule(t)

	res, errs := compiler.Compile([]compiler.ScriptSource{{Path: "t.mm", Text: string(src)}}, wasmBytes, compiler.Options{})
	require.False(t, errs.Fatal, "unexpected fatal diagnostics: %v", errs.Diagnostics)
	require.NotNil(t, res)

	out, err := wasmmod.Decode(res.Wasm)
	require.NoError(t, err)
	require.Len(t, out.Globals, 1, "expected exactly one newly created global")
	assert.Equal(t, wasmmod.ValueTypeI32, out.Globals[0].Type)
	assert.True(t, out.Globals[0].Mutable)

	require.Len(t, out.Code, 1)
	body := out.Code[0].Body

	var setIdx, brIdx = -1, -1
	for i, in := range body {
		if in.Op == wasmmod.OpGlobalSet && setIdx == -1 {
			setIdx = i
		}
		if in.Op == wasmmod.OpBr {
			brIdx = i
		}
	}
	require.NotEqual(t, -1, setIdx, "expected a global.set in the rewritten body")
	require.NotEqual(t, -1, brIdx, "original Br must be preserved")
	assert.Less(t, setIdx, brIdx, "the store must happen before the branch")
}

// TestCompileScenario6NoMatches exercises spec.md §8 scenario 6: a probe
// mode that the registry doesn't recognize for the matched event reports a
// "no matches" diagnostic pointing at the unmatched segment, rather than
// silently producing no-op instrumentation.
func TestCompileScenario6NoMatches(t *testing.T) {
	src := []byte(`wasm:bytecode:call:dne { }`)
	wasmBytes := buildBrModule(t)

	_, errs := compiler.Compile([]compiler.ScriptSource{{Path: "t.mm", Text: string(src)}}, wasmBytes, compiler.Options{})
	require.True(t, errs.HasErrors())

	found := false
	for _, d := range errs.Diagnostics {
		if d.Kind.String() == "no matches" {
			found = true
		}
	}
	assert.True(t, found, "expected a no-matches diagnostic, got: %v", errs.Diagnostics)
}
