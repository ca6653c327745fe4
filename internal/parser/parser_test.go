package parser_test

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ejrgilbert/whammc/internal/ast"
	"github.com/ejrgilbert/whammc/internal/diagnostics"
	"github.com/ejrgilbert/whammc/internal/parser"
)

func parseOne(t *testing.T, src string) *ast.Script {
	t.Helper()
	errs := diagnostics.NewCollector()
	script := parser.Parse(src, "test.mm", errs)
	require.False(t, errs.HasErrors(), "unexpected parse errors: %v", errs.Diagnostics)
	return script
}

func TestParseGlobalDecl(t *testing.T) {
	script := parseOne(t, `i32 counter;`)
	require.Len(t, script.GlobalStmts, 1)
	decl, ok := script.GlobalStmts[0].(*ast.Decl)
	require.True(t, ok)
	assert.Equal(t, "counter", decl.VarId.Name)
	assert.True(t, decl.Ty.Equal(ast.I32))
}

func TestParseProbeWithPredicateAndBody(t *testing.T) {
	script := parseOne(t, `wasm:bytecode:call:before / arg0 > 0 / { i32 x; x = arg0 + 1; }`)
	require.Len(t, script.PendingSpecs, 1)
	pending := script.PendingSpecs[0]
	assert.Equal(t, "wasm", pending.Spec.Provider)
	assert.Equal(t, "bytecode", pending.Spec.Package)
	assert.Equal(t, "call", pending.Spec.Event)
	assert.Equal(t, "before", pending.Spec.Mode)
	require.NotNil(t, pending.Probe.Predicate)
	require.Len(t, pending.Probe.Body.Stmts, 2)
}

func TestParseExpressionPrecedence(t *testing.T) {
	script := parseOne(t, `x = 1 + 2 * 3;`)
	stmt := script.GlobalStmts[0].(*ast.Assign)
	bin, ok := stmt.Expr.(*ast.BinOp)
	require.True(t, ok)
	assert.Equal(t, ast.BinAdd, bin.Op)
	rhs, ok := bin.R.(*ast.BinOp)
	require.True(t, ok, "2 * 3 should bind tighter than +")
	assert.Equal(t, ast.BinMul, rhs.Op)
}

func TestParseTernaryIsRightAssociativeAndLowestPrecedence(t *testing.T) {
	script := parseOne(t, `x = a > 0 ? 1 : 2;`)
	stmt := script.GlobalStmts[0].(*ast.Assign)
	tern, ok := stmt.Expr.(*ast.Ternary)
	require.True(t, ok)
	_, condIsRel := tern.Cond.(*ast.BinOp)
	assert.True(t, condIsRel)
}

func TestParseTupleLiteral(t *testing.T) {
	script := parseOne(t, `x = (1, 2, 3);`)
	stmt := script.GlobalStmts[0].(*ast.Assign)
	call, ok := stmt.Expr.(*ast.Call)
	require.True(t, ok)
	assert.Equal(t, ast.TupleCallTarget, call.Target)
	assert.Len(t, call.Args, 3)
}

// summarizeExpr projects an expression into a plain, exported-only shape so
// cmp.Diff never has to walk ast's unexported exprBase/stmtBase fields.
func summarizeExpr(e ast.Expr) any {
	switch v := e.(type) {
	case nil:
		return nil
	case *ast.UnOp:
		return fmt.Sprintf("UnOp(%s, %v)", v.Op, summarizeExpr(v.E))
	case *ast.BinOp:
		return fmt.Sprintf("BinOp(%s, %v, %v)", v.Op, summarizeExpr(v.L), summarizeExpr(v.R))
	case *ast.Ternary:
		return fmt.Sprintf("Ternary(%v, %v, %v)", summarizeExpr(v.Cond), summarizeExpr(v.Conseq), summarizeExpr(v.Alt))
	case *ast.Call:
		args := make([]any, len(v.Args))
		for i, a := range v.Args {
			args[i] = summarizeExpr(a)
		}
		return fmt.Sprintf("Call(%s, %v)", v.Target, args)
	case *ast.VarId:
		return fmt.Sprintf("VarId(%s, compProvided=%v)", v.Name, v.IsCompProvided)
	case *ast.Primitive:
		return fmt.Sprintf("Primitive(%v)", v.Val)
	default:
		t := fmt.Sprintf("%T", e)
		panic("summarizeExpr: unhandled expr type " + t)
	}
}

func summarizeStmt(s ast.Statement) any {
	switch v := s.(type) {
	case nil:
		return nil
	case *ast.Decl:
		return fmt.Sprintf("Decl(%s, %s)", v.VarId.Name, v.Ty)
	case *ast.Assign:
		return fmt.Sprintf("Assign(%s, %v)", v.VarId.Name, summarizeExpr(v.Expr))
	case *ast.ExprStmt:
		return fmt.Sprintf("ExprStmt(%v)", summarizeExpr(v.Expr))
	case *ast.Return:
		return fmt.Sprintf("Return(%v)", summarizeExpr(v.Expr))
	case *ast.Block:
		stmts := make([]any, len(v.Stmts))
		for i, st := range v.Stmts {
			stmts[i] = summarizeStmt(st)
		}
		return stmts
	default:
		t := fmt.Sprintf("%T", s)
		panic("summarizeStmt: unhandled statement type " + t)
	}
}

func summarizeBlock(b *ast.Block) []any {
	out := make([]any, len(b.Stmts))
	for i, st := range b.Stmts {
		out[i] = summarizeStmt(st)
	}
	return out
}

// TestParseRoundTripStructuralEquality parses the same source text twice and
// asserts the two resulting probe bodies are structurally identical, the
// property spec.md's grammar round-trip test names. Comparison goes through
// summarizeBlock rather than cmp.Diff on the raw AST, since ast's node types
// embed unexported base structs that cmp cannot traverse from outside the
// package.
func TestParseRoundTripStructuralEquality(t *testing.T) {
	src := `wasm:bytecode:call:before { i32 x; x = arg0 + 1; return x; }`
	first := parseOne(t, src)
	second := parseOne(t, src)

	require.Len(t, first.PendingSpecs, 1)
	require.Len(t, second.PendingSpecs, 1)

	firstBody := summarizeBlock(first.PendingSpecs[0].Probe.Body)
	secondBody := summarizeBlock(second.PendingSpecs[0].Probe.Body)

	if diff := cmp.Diff(firstBody, secondBody); diff != "" {
		t.Errorf("re-parsing identical source produced a different AST (-first +second):\n%s", diff)
	}
}

func TestParseMalformedDeclReportsErrorWithoutPanicking(t *testing.T) {
	errs := diagnostics.NewCollector()
	assert.NotPanics(t, func() {
		parser.Parse(`i32 ;`, "test.mm", errs)
	})
	assert.True(t, errs.HasErrors())
}
