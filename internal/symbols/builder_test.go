package symbols_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ejrgilbert/whammc/internal/ast"
	"github.com/ejrgilbert/whammc/internal/diagnostics"
	"github.com/ejrgilbert/whammc/internal/symbols"
)

func whammWithOneScript() (*ast.Whamm, *ast.Script) {
	script := &ast.Script{
		Name:      "script0",
		Providers: map[string]*ast.Provider{},
		Globals: map[string]ast.Global{
			"counter": {Name: "counter", Ty: ast.I32},
		},
	}
	w := ast.NewWhamm()
	w.Scripts = append(w.Scripts, script)
	return w, script
}

func TestBuildRegistersScriptGlobal(t *testing.T) {
	w, _ := whammWithOneScript()
	errs := diagnostics.NewCollector()
	table := symbols.NewBuilder(errs).Build(w)

	require.False(t, errs.HasErrors())
	require.True(t, table.EnterNamedScope("script0"))
	id, ok := table.LookupLocal("counter")
	require.True(t, ok)
	assert.Equal(t, symbols.RecVar, table.Record(id).Kind)
	assert.True(t, table.Record(id).VarTy.Equal(ast.I32))
}

func TestBuildDuplicateFnWithLocationsReportsDuplicateIdentifier(t *testing.T) {
	locA := diagnostics.Location{}
	locB := diagnostics.Location{}
	w := ast.NewWhamm()
	w.Scripts = append(w.Scripts, &ast.Script{
		Name:      "s",
		Providers: map[string]*ast.Provider{},
		Globals: map[string]ast.Global{
			"x": {Name: "x", Ty: ast.I32, Loc: &locA},
		},
	})
	// Two user-declared fns sharing a name exercises addFn's own duplicate
	// check, the Fn-specific counterpart to checkDuplicate.
	fn := &ast.Fn{Name: ast.FnId{Name: "f", Loc: &locA}}
	fnDup := &ast.Fn{Name: ast.FnId{Name: "f", Loc: &locB}}
	w.Scripts[0].Fns = append(w.Scripts[0].Fns, fn, fnDup)

	errs := diagnostics.NewCollector()
	symbols.NewBuilder(errs).Build(w)
	assert.True(t, errs.HasErrors())
}

func TestBuildProviderPackageEventProbeScopeNesting(t *testing.T) {
	w := ast.NewWhamm()
	probe := &ast.Probe{Mode: "before", Loc: diagnostics.Location{}}
	event := &ast.Event{Name: "call", ProbeMap: map[string][]*ast.Probe{"before": {probe}}}
	pkg := &ast.Package{Name: "bytecode", Events: map[string]*ast.Event{"call": event}}
	provider := &ast.Provider{Name: "wasm", Packages: map[string]*ast.Package{"bytecode": pkg}}
	script := &ast.Script{Name: "s", Providers: map[string]*ast.Provider{"wasm": provider}}
	w.Scripts = append(w.Scripts, script)

	errs := diagnostics.NewCollector()
	table := symbols.NewBuilder(errs).Build(w)
	require.False(t, errs.HasErrors())

	require.True(t, table.EnterNamedScope("s"))
	require.True(t, table.EnterNamedScope("wasm"))
	require.True(t, table.EnterNamedScope("bytecode"))
	require.True(t, table.EnterNamedScope("call"))
	require.True(t, table.EnterNamedScope("before"))
	assert.Equal(t, symbols.ScopeProbe, table.CurrScope().Type)
}

func TestLookupWidensToOuterScope(t *testing.T) {
	w := ast.NewWhamm()
	w.Globals = map[string]ast.Global{"g": {Name: "g", Ty: ast.I32}}
	provider := &ast.Provider{Name: "wasm", Packages: map[string]*ast.Package{}}
	script := &ast.Script{Name: "s", Providers: map[string]*ast.Provider{"wasm": provider}}
	w.Scripts = append(w.Scripts, script)

	errs := diagnostics.NewCollector()
	table := symbols.NewBuilder(errs).Build(w)
	require.False(t, errs.HasErrors())

	require.True(t, table.EnterNamedScope("s"))
	require.True(t, table.EnterNamedScope("wasm"))
	_, foundLocal := table.LookupLocal("g")
	assert.False(t, foundLocal, "g is declared at whamm scope, not provider scope")
	_, found := table.Lookup("g")
	assert.True(t, found, "Lookup should widen past the provider scope to find g")
}

func TestDeclareOverwritesBindingInCurrentScope(t *testing.T) {
	table := symbols.NewTable()
	firstID := table.Declare("arg0", symbols.Record{Kind: symbols.RecVar, Name: "arg0", VarTy: ast.I32})
	secondID := table.Declare("arg0", symbols.Record{Kind: symbols.RecVar, Name: "arg0", VarTy: ast.U32})

	id, ok := table.LookupLocal("arg0")
	require.True(t, ok)
	assert.Equal(t, secondID, id)
	assert.NotEqual(t, firstID, secondID)
	assert.True(t, table.Record(id).VarTy.Equal(ast.U32))
}
