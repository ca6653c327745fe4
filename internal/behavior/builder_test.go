package behavior_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ejrgilbert/whammc/internal/ast"
	"github.com/ejrgilbert/whammc/internal/behavior"
)

func oneEventWhamm(modes ...string) *ast.Whamm {
	probeMap := map[string][]*ast.Probe{}
	for _, mode := range modes {
		probeMap[mode] = []*ast.Probe{{Mode: mode}}
	}
	event := &ast.Event{Name: "call", ProbeMap: probeMap}
	pkg := &ast.Package{Name: "bytecode", Events: map[string]*ast.Event{"call": event}}
	provider := &ast.Provider{Name: "wasm", Packages: map[string]*ast.Package{"bytecode": pkg}}
	script := &ast.Script{Name: "s", Providers: map[string]*ast.Provider{"wasm": provider}}
	w := ast.NewWhamm()
	w.Scripts = append(w.Scripts, script)
	return w
}

func TestBuildPopulatesSimpleASTByContextKey(t *testing.T) {
	w := oneEventWhamm("before", "after")
	_, simple := behavior.NewBuilder().Build(w)

	before, ok := simple.ProbesByContext["s:wasm:bytecode:call:before"]
	require.True(t, ok)
	require.Len(t, before, 1)
	assert.Equal(t, "before", before[0].Mode)

	after, ok := simple.ProbesByContext["s:wasm:bytecode:call:after"]
	require.True(t, ok)
	require.Len(t, after, 1)
}

func TestBuildEventSubtreeIsGuardedByIsInstrDecorator(t *testing.T) {
	w := oneEventWhamm("before")
	tree, _ := behavior.NewBuilder().Build(w)

	// root -> Sequence(scripts) -> EnterScope(action), EmitGlobalStmts(action) precede
	// the provider scope, but the package's ActionWithChild wraps a
	// Fallback over a per-event Decorator(IsInstr) node.
	var found bool
	for _, n := range tree.Nodes {
		if n.Kind == behavior.KindDecorator && n.DecoratorTy == behavior.DecoratorIsInstr {
			require.Equal(t, []string{"call"}, n.InstrNames)
			found = true
		}
	}
	assert.True(t, found, "expected an IsInstr decorator gating the call event")
}

func TestBuildAltModeUsesEmitIfElseWithHasAltCallDecorator(t *testing.T) {
	w := oneEventWhamm("alt")
	tree, simple := behavior.NewBuilder().Build(w)

	_, ok := simple.ProbesByContext["s:wasm:bytecode:call:alt"]
	require.True(t, ok)

	var sawEmitIfElse, sawHasAltCall bool
	for _, n := range tree.Nodes {
		if n.Kind == behavior.KindParameterizedAction && n.ParamActionTy == behavior.ParamActionEmitIfElse {
			sawEmitIfElse = true
		}
		if n.Kind == behavior.KindDecorator && n.DecoratorTy == behavior.DecoratorHasAltCall {
			sawHasAltCall = true
		}
	}
	assert.True(t, sawEmitIfElse, "alt mode should use EmitIfElse, not EmitIf")
	assert.True(t, sawHasAltCall, "alt mode's conseq should gate EmitAltCall on DecoratorHasAltCall")
}
