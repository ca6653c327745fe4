package fold_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ejrgilbert/whammc/internal/ast"
	"github.com/ejrgilbert/whammc/internal/diagnostics"
	"github.com/ejrgilbert/whammc/internal/fold"
)

var loc = diagnostics.Location{}

func prim(v ast.Value) ast.Expr { return ast.NewPrimitive(loc, v) }

func TestFoldArithmetic(t *testing.T) {
	e := ast.NewBinOp(loc, ast.BinAdd, prim(ast.IntValue(2)), prim(ast.IntValue(3)))
	got := fold.Fold(e, fold.MapEnv{})
	p, ok := got.(*ast.Primitive)
	require.True(t, ok, "expected a fully folded primitive")
	assert.Equal(t, int32(5), p.Val.I32)
}

func TestFoldAndShortCircuitsOnFalse(t *testing.T) {
	// The right side is an unresolved variable; folding must still reduce
	// to `false` without needing its value.
	e := ast.NewBinOp(loc, ast.BinAnd, prim(ast.BoolValue(false)), ast.NewVarId(loc, "unbound", true))
	got := fold.Fold(e, fold.MapEnv{})
	b, known := fold.GetSingleBool(got)
	require.True(t, known)
	assert.False(t, b)
}

func TestFoldOrShortCircuitsOnTrue(t *testing.T) {
	e := ast.NewBinOp(loc, ast.BinOr, prim(ast.BoolValue(true)), ast.NewVarId(loc, "unbound", true))
	got := fold.Fold(e, fold.MapEnv{})
	b, known := fold.GetSingleBool(got)
	require.True(t, known)
	assert.True(t, b)
}

func TestFoldVarIdLookup(t *testing.T) {
	env := fold.MapEnv{"x": ast.IntValue(7)}
	e := ast.NewVarId(loc, "x", true)
	got := fold.Fold(e, env)
	p, ok := got.(*ast.Primitive)
	require.True(t, ok)
	assert.Equal(t, int32(7), p.Val.I32)
}

func TestFoldVarIdUnresolvedStaysVarId(t *testing.T) {
	e := ast.NewVarId(loc, "y", true)
	got := fold.Fold(e, fold.MapEnv{})
	_, ok := got.(*ast.VarId)
	assert.True(t, ok, "unresolved variable should remain a VarId, not fold away")
}

func TestFoldDivisionByZeroDoesNotFold(t *testing.T) {
	e := ast.NewBinOp(loc, ast.BinDiv, prim(ast.IntValue(1)), prim(ast.IntValue(0)))
	got := fold.Fold(e, fold.MapEnv{})
	_, ok := got.(*ast.Primitive)
	assert.False(t, ok, "division by zero must not fold to a primitive")
}

func TestFoldTernary(t *testing.T) {
	e := ast.NewTernary(loc, prim(ast.BoolValue(true)), prim(ast.IntValue(1)), prim(ast.IntValue(2)))
	got := fold.Fold(e, fold.MapEnv{})
	p, ok := got.(*ast.Primitive)
	require.True(t, ok)
	assert.Equal(t, int32(1), p.Val.I32)
}

func TestFoldStringComparison(t *testing.T) {
	e := ast.NewBinOp(loc, ast.BinLt, prim(ast.StrValue("abc")), prim(ast.StrValue("abd")))
	got := fold.Fold(e, fold.MapEnv{})
	b, known := fold.GetSingleBool(got)
	require.True(t, known)
	assert.True(t, b)
}

func TestGetSingleBoolRejectsNonBoolean(t *testing.T) {
	_, known := fold.GetSingleBool(prim(ast.IntValue(1)))
	assert.False(t, known)
}

func TestFoldCallNeverReduces(t *testing.T) {
	e := ast.NewCall(loc, "some_fn", []ast.Expr{prim(ast.IntValue(1))})
	got := fold.Fold(e, fold.MapEnv{})
	_, ok := got.(*ast.Call)
	assert.True(t, ok, "calls are never folded since they may have side effects")
}
