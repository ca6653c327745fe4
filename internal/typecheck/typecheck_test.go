package typecheck_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ejrgilbert/whammc/internal/ast"
	"github.com/ejrgilbert/whammc/internal/diagnostics"
	"github.com/ejrgilbert/whammc/internal/symbols"
	"github.com/ejrgilbert/whammc/internal/typecheck"
)

var loc = diagnostics.Location{}

func prim(v ast.Value) ast.Expr { return ast.NewPrimitive(loc, v) }

// buildAndCheck runs the symbols builder then the checker over w, returning
// the collector so callers can assert on reported diagnostics.
func buildAndCheck(w *ast.Whamm) *diagnostics.Collector {
	errs := diagnostics.NewCollector()
	table := symbols.NewBuilder(errs).Build(w)
	typecheck.NewChecker(table, errs).Check(w)
	return errs
}

func scriptWithAssign(declTy ast.DataType, rhs ast.Expr) *ast.Whamm {
	assign := ast.NewAssign(loc, ast.NewVarId(loc, "x", false), rhs)
	script := &ast.Script{
		Name:      "s",
		Providers: map[string]*ast.Provider{},
		Globals:   map[string]ast.Global{"x": {Name: "x", Ty: declTy}},
		GlobalStmts: []ast.Statement{
			ast.NewDecl(loc, declTy, ast.NewVarId(loc, "x", false)),
			assign,
		},
	}
	w := ast.NewWhamm()
	w.Scripts = append(w.Scripts, script)
	return w
}

func TestCheckAssignMatchingTypesOK(t *testing.T) {
	w := scriptWithAssign(ast.I32, prim(ast.Value{Ty: ast.I32, I32: 7}))
	errs := buildAndCheck(w)
	assert.False(t, errs.HasErrors())
}

func TestCheckAssignMismatchedTypesReportsTypeError(t *testing.T) {
	w := scriptWithAssign(ast.I32, prim(ast.Value{Ty: ast.Boolean, Bool: true}))
	errs := buildAndCheck(w)
	assert.True(t, errs.HasErrors())
}

func TestCheckUnresolvedIdentifierInExpr(t *testing.T) {
	assign := ast.NewAssign(loc, ast.NewVarId(loc, "x", false), ast.NewVarId(loc, "nope", false))
	script := &ast.Script{
		Name:      "s",
		Providers: map[string]*ast.Provider{},
		Globals:   map[string]ast.Global{"x": {Name: "x", Ty: ast.I32}},
		GlobalStmts: []ast.Statement{
			ast.NewDecl(loc, ast.I32, ast.NewVarId(loc, "x", false)),
			assign,
		},
	}
	w := ast.NewWhamm()
	w.Scripts = append(w.Scripts, script)
	errs := buildAndCheck(w)
	assert.True(t, errs.HasErrors())
}

func TestCheckBinOpAndRequiresBoolOperands(t *testing.T) {
	bad := ast.NewBinOp(loc, ast.BinAnd, prim(ast.Value{Ty: ast.I32, I32: 1}), prim(ast.Value{Ty: ast.Boolean, Bool: true}))
	w := scriptWithAssign(ast.Boolean, bad)
	errs := buildAndCheck(w)
	assert.True(t, errs.HasErrors())
}

func TestCheckBinOpArithmeticWidensToU32(t *testing.T) {
	add := ast.NewBinOp(loc, ast.BinAdd, prim(ast.Value{Ty: ast.U32, I32: 1}), prim(ast.Value{Ty: ast.I32, I32: 2}))
	w := scriptWithAssign(ast.U32, add)
	errs := buildAndCheck(w)
	require.False(t, errs.HasErrors())
	assert.True(t, add.Type().Equal(ast.U32))
}

func TestCheckRelOpAcceptsTwoStrings(t *testing.T) {
	rel := ast.NewBinOp(loc, ast.BinLt, prim(ast.Value{Ty: ast.Str, Str: "abc"}), prim(ast.Value{Ty: ast.Str, Str: "abd"}))
	w := scriptWithAssign(ast.Boolean, rel)
	errs := buildAndCheck(w)
	assert.False(t, errs.HasErrors())
}

func TestCheckTernaryBranchesMustAgree(t *testing.T) {
	tern := ast.NewTernary(loc,
		prim(ast.Value{Ty: ast.Boolean, Bool: true}),
		prim(ast.Value{Ty: ast.I32, I32: 1}),
		prim(ast.Value{Ty: ast.Str, Str: "x"}),
	)
	w := scriptWithAssign(ast.AssumeGood, tern)
	errs := buildAndCheck(w)
	assert.True(t, errs.HasErrors())
}

func TestCheckCallArgCountAndTypeMismatchReportsTypeError(t *testing.T) {
	fn := &ast.Fn{
		Name:     ast.FnId{Name: "f"},
		Params:   []ast.Param{{VarId: ast.NewVarId(loc, "p", false), Ty: ast.I32}},
		ReturnTy: ast.Boolean,
	}
	call := ast.NewCall(loc, "f", []ast.Expr{prim(ast.Value{Ty: ast.Str, Str: "oops"})})
	script := &ast.Script{
		Name:      "s",
		Providers: map[string]*ast.Provider{},
		Globals:   map[string]ast.Global{"x": {Name: "x", Ty: ast.Boolean}},
		Fns:       []*ast.Fn{fn},
		GlobalStmts: []ast.Statement{
			ast.NewDecl(loc, ast.Boolean, ast.NewVarId(loc, "x", false)),
			ast.NewAssign(loc, ast.NewVarId(loc, "x", false), call),
		},
	}
	w := ast.NewWhamm()
	w.Scripts = append(w.Scripts, script)
	errs := buildAndCheck(w)
	assert.True(t, errs.HasErrors())
}
