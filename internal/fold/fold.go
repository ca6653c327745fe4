// Package fold implements C7: a pure constant folder over the typed
// expression AST, used by the instrumentation driver (C8) to evaluate
// probe predicates statically where possible (spec.md §4.6).
package fold

import "github.com/ejrgilbert/whammc/internal/ast"

// Env supplies the concrete Value bound to a compiler-provided variable
// name in the current probe's scope, if any (spec.md §4.6 "where
// compiler variables may be bound to Value").
type Env interface {
	Lookup(name string) (ast.Value, bool)
}

// MapEnv is the simplest Env: a plain name -> Value map.
type MapEnv map[string]ast.Value

func (e MapEnv) Lookup(name string) (ast.Value, bool) {
	v, ok := e[name]
	return v, ok
}

// Fold reduces e as far as possible given env, returning a *ast.Primitive
// wrapping the concrete Value if full reduction succeeded, or the
// original (possibly partially-folded) Expr otherwise.
func Fold(e ast.Expr, env Env) ast.Expr {
	switch n := e.(type) {
	case *ast.Primitive:
		return n
	case *ast.VarId:
		if v, ok := env.Lookup(n.Name); ok {
			return ast.NewPrimitive(n.Loc(), v)
		}
		return n
	case *ast.UnOp:
		return foldUnOp(n, env)
	case *ast.BinOp:
		return foldBinOp(n, env)
	case *ast.Ternary:
		return foldTernary(n, env)
	case *ast.Call:
		// Calls are never folded (spec.md §4.6): they may have
		// observable side effects or depend on the runtime stack.
		return n
	default:
		return e
	}
}

func foldUnOp(n *ast.UnOp, env Env) ast.Expr {
	inner := Fold(n.E, env)
	prim, ok := inner.(*ast.Primitive)
	if !ok {
		return ast.NewUnOp(n.Loc(), n.Op, inner)
	}
	switch n.Op {
	case ast.UnNot:
		if prim.Val.Ty.Equal(ast.Boolean) {
			return ast.NewPrimitive(n.Loc(), ast.BoolValue(!prim.Val.Bool))
		}
	case ast.UnNeg:
		if prim.Val.Ty.IsNumeric() {
			return ast.NewPrimitive(n.Loc(), ast.IntValue(-prim.Val.I32))
		}
	}
	return ast.NewUnOp(n.Loc(), n.Op, inner)
}

func foldBinOp(n *ast.BinOp, env Env) ast.Expr {
	l := Fold(n.L, env)
	lPrim, lOK := l.(*ast.Primitive)

	// Short-circuit and/or when one side is a concrete boolean that
	// already determines the result (spec.md §4.6).
	if n.Op == ast.BinAnd && lOK && lPrim.Val.Ty.Equal(ast.Boolean) && !lPrim.Val.Bool {
		return ast.NewPrimitive(n.Loc(), ast.BoolValue(false))
	}
	if n.Op == ast.BinOr && lOK && lPrim.Val.Ty.Equal(ast.Boolean) && lPrim.Val.Bool {
		return ast.NewPrimitive(n.Loc(), ast.BoolValue(true))
	}

	r := Fold(n.R, env)
	rPrim, rOK := r.(*ast.Primitive)
	if !lOK || !rOK {
		return ast.NewBinOp(n.Loc(), n.Op, l, r)
	}

	v, ok := evalBinOp(n.Op, lPrim.Val, rPrim.Val)
	if !ok {
		return ast.NewBinOp(n.Loc(), n.Op, l, r)
	}
	return ast.NewPrimitive(n.Loc(), v)
}

func evalBinOp(op ast.BinOpKind, l, r ast.Value) (ast.Value, bool) {
	switch op {
	case ast.BinAnd:
		return ast.BoolValue(l.Bool && r.Bool), true
	case ast.BinOr:
		return ast.BoolValue(l.Bool || r.Bool), true
	case ast.BinEq:
		return ast.BoolValue(valuesEqual(l, r)), true
	case ast.BinNe:
		return ast.BoolValue(!valuesEqual(l, r)), true
	case ast.BinGe:
		return relational(l, r, func(c int) bool { return c >= 0 })
	case ast.BinGt:
		return relational(l, r, func(c int) bool { return c > 0 })
	case ast.BinLe:
		return relational(l, r, func(c int) bool { return c <= 0 })
	case ast.BinLt:
		return relational(l, r, func(c int) bool { return c < 0 })
	case ast.BinAdd:
		return ast.IntValue(l.I32 + r.I32), l.Ty.IsNumeric()
	case ast.BinSub:
		return ast.IntValue(l.I32 - r.I32), l.Ty.IsNumeric()
	case ast.BinMul:
		return ast.IntValue(l.I32 * r.I32), l.Ty.IsNumeric()
	case ast.BinDiv:
		if r.I32 == 0 {
			return ast.Value{}, false
		}
		return ast.IntValue(l.I32 / r.I32), l.Ty.IsNumeric()
	case ast.BinMod:
		if r.I32 == 0 {
			return ast.Value{}, false
		}
		return ast.IntValue(l.I32 % r.I32), l.Ty.IsNumeric()
	default:
		return ast.Value{}, false
	}
}

func valuesEqual(l, r ast.Value) bool {
	if l.Ty.Equal(ast.Str) {
		return l.Str == r.Str
	}
	if l.Ty.Equal(ast.Boolean) {
		return l.Bool == r.Bool
	}
	return l.I32 == r.I32
}

// relational compares l and r per spec.md §4.4's rule ("numeric×numeric
// or Str,Str"), reducing both to a three-way comparison then applying
// cmp to classify it.
func relational(l, r ast.Value, cmp func(int) bool) (ast.Value, bool) {
	switch {
	case l.Ty.IsNumeric() && r.Ty.IsNumeric():
		return ast.BoolValue(cmp(int(l.I32 - r.I32))), true
	case l.Ty.Equal(ast.Str) && r.Ty.Equal(ast.Str):
		switch {
		case l.Str < r.Str:
			return ast.BoolValue(cmp(-1)), true
		case l.Str > r.Str:
			return ast.BoolValue(cmp(1)), true
		default:
			return ast.BoolValue(cmp(0)), true
		}
	default:
		return ast.Value{}, false
	}
}

func foldTernary(n *ast.Ternary, env Env) ast.Expr {
	cond := Fold(n.Cond, env)
	if prim, ok := cond.(*ast.Primitive); ok && prim.Val.Ty.Equal(ast.Boolean) {
		if prim.Val.Bool {
			return Fold(n.Conseq, env)
		}
		return Fold(n.Alt, env)
	}
	return ast.NewTernary(n.Loc(), cond, Fold(n.Conseq, env), Fold(n.Alt, env))
}

// GetSingleBool returns (b, true) iff e is a folded Primitive Boolean
// (spec.md §4.6 get_single_bool), used by C8 to short-circuit alt probes
// before any emission.
func GetSingleBool(e ast.Expr) (bool, bool) {
	prim, ok := e.(*ast.Primitive)
	if !ok || !prim.Val.Ty.Equal(ast.Boolean) {
		return false, false
	}
	return prim.Val.Bool, true
}
