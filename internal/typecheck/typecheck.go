// Package typecheck implements C5: the verifier pass that resolves every
// VarId to its symbol-table Var record and assigns a DataType to every
// expression, validating operator operand shapes per spec.md §4.4.
package typecheck

import (
	"fmt"

	"github.com/ejrgilbert/whammc/internal/ast"
	"github.com/ejrgilbert/whammc/internal/diagnostics"
	"github.com/ejrgilbert/whammc/internal/symbols"
)

// Checker re-walks the same AST the symbols.Builder walked, re-entering
// scopes in lockstep so VarId lookups resolve against the record that
// scope's declarations created.
type Checker struct {
	table *symbols.Table
	errs  *diagnostics.Collector
}

func NewChecker(table *symbols.Table, errs *diagnostics.Collector) *Checker {
	return &Checker{table: table, errs: errs}
}

// Check starts from the whamm scope the builder leaves current, re-enters
// the script/provider/package/event/probe scopes beneath it in the same
// order the builder created them, and type-checks every expression
// reachable from a probe predicate or body, plus every global's
// initializer. The table is left at the whamm scope.
func (c *Checker) Check(w *ast.Whamm) {
	if c.table.CurrScope().RecordID < 0 {
		c.errs.InternalError(true, "typecheck: no whamm scope built")
		return
	}

	for _, f := range w.Fns {
		c.checkFn(f)
	}
	for _, script := range w.Scripts {
		c.checkScript(script)
	}
}

func (c *Checker) checkScript(script *ast.Script) {
	if !c.table.EnterNamedScope(script.Name) {
		return
	}
	defer c.table.ExitScope()

	for _, stmt := range script.GlobalStmts {
		c.checkStmt(stmt)
	}
	for _, f := range script.Fns {
		c.checkFn(f)
	}
	for _, provider := range script.Providers {
		c.checkProvider(provider)
	}
}

func (c *Checker) checkProvider(p *ast.Provider) {
	if !c.table.EnterNamedScope(p.Name) {
		return
	}
	defer c.table.ExitScope()
	for _, f := range p.Fns {
		c.checkFn(f)
	}
	for _, pkg := range p.Packages {
		c.checkPackage(pkg)
	}
}

func (c *Checker) checkPackage(p *ast.Package) {
	if !c.table.EnterNamedScope(p.Name) {
		return
	}
	defer c.table.ExitScope()
	for _, f := range p.Fns {
		c.checkFn(f)
	}
	for _, evt := range p.Events {
		c.checkEvent(evt)
	}
}

func (c *Checker) checkEvent(e *ast.Event) {
	if !c.table.EnterNamedScope(e.Name) {
		return
	}
	defer c.table.ExitScope()
	for _, f := range e.Fns {
		c.checkFn(f)
	}
	for mode, probes := range e.ProbeMap {
		for _, probe := range probes {
			c.checkProbe(mode, probe)
		}
	}
}

func (c *Checker) checkProbe(mode string, probe *ast.Probe) {
	if !c.table.EnterNamedScope(mode) {
		return
	}
	defer c.table.ExitScope()

	if probe.Predicate != nil {
		ty := c.checkExpr(probe.Predicate)
		if !ty.Equal(ast.Boolean) && !ty.Equal(ast.AssumeGood) {
			c.errs.TypeError(probe.Predicate.Loc(), fmt.Sprintf("probe predicate must be bool, found %s", ty))
		}
	}
	if probe.Body != nil {
		for _, stmt := range probe.Body.Stmts {
			c.checkStmt(stmt)
		}
	}
	for _, f := range probe.Fns {
		c.checkFn(f)
	}
}

func (c *Checker) checkFn(f *ast.Fn) {
	if !c.table.EnterNamedScope(f.Name.Name) {
		return
	}
	defer c.table.ExitScope()
	if f.Body != nil {
		for _, stmt := range f.Body.Stmts {
			c.checkStmt(stmt)
		}
	}
}

func (c *Checker) checkStmt(stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.Decl:
		// The record already carries the declared type; nothing further
		// to check, there is no initializer on a Decl (spec.md §6).
	case *ast.Assign:
		declTy := c.resolveVarType(s.VarId)
		exprTy := c.checkExpr(s.Expr)
		if !declTy.Equal(exprTy) && !declTy.Equal(ast.AssumeGood) && !exprTy.Equal(ast.AssumeGood) {
			c.errs.TypeError(s.Loc(), fmt.Sprintf("cannot assign %s to %s-typed %q", exprTy, declTy, s.VarId.Name))
		}
	case *ast.ExprStmt:
		c.checkExpr(s.Expr)
	case *ast.Return:
		if s.Expr != nil {
			c.checkExpr(s.Expr)
		}
	}
}

func (c *Checker) resolveVarType(v *ast.VarId) ast.DataType {
	id, ok := c.table.Lookup(v.Name)
	if !ok {
		c.errs.UnresolvedIdentifier(v.Loc(), v.Name)
		return ast.AssumeGood
	}
	rec := c.table.Record(id)
	if rec.Kind != symbols.RecVar {
		c.errs.UnresolvedIdentifier(v.Loc(), v.Name)
		return ast.AssumeGood
	}
	return rec.VarTy
}

// checkExpr assigns and returns the DataType of e, recording it on the
// node via Expr.SetType so later phases (C6-C9) don't need to re-derive
// it.
func (c *Checker) checkExpr(e ast.Expr) ast.DataType {
	ty := c.inferExpr(e)
	e.SetType(ty)
	return ty
}

func (c *Checker) inferExpr(e ast.Expr) ast.DataType {
	switch n := e.(type) {
	case *ast.Primitive:
		return n.Val.Ty
	case *ast.VarId:
		id, ok := c.table.Lookup(n.Name)
		if !ok {
			c.errs.UnresolvedIdentifier(n.Loc(), n.Name)
			return ast.AssumeGood
		}
		rec := c.table.Record(id)
		if rec.Kind != symbols.RecVar {
			c.errs.UnresolvedIdentifier(n.Loc(), n.Name)
			return ast.AssumeGood
		}
		return rec.VarTy
	case *ast.UnOp:
		return c.checkUnOp(n)
	case *ast.BinOp:
		return c.checkBinOp(n)
	case *ast.Ternary:
		condTy := c.checkExpr(n.Cond)
		if !condTy.Equal(ast.Boolean) && !condTy.Equal(ast.AssumeGood) {
			c.errs.TypeError(n.Cond.Loc(), fmt.Sprintf("ternary condition must be bool, found %s", condTy))
		}
		conseqTy := c.checkExpr(n.Conseq)
		altTy := c.checkExpr(n.Alt)
		if !conseqTy.Equal(altTy) {
			c.errs.TypeError(n.Loc(), fmt.Sprintf("ternary branches must agree: %s vs %s", conseqTy, altTy))
			return ast.AssumeGood
		}
		return conseqTy
	case *ast.Call:
		return c.checkCall(n)
	default:
		c.errs.InternalError(true, "typecheck: unhandled Expr variant")
		return ast.AssumeGood
	}
}

func (c *Checker) checkUnOp(n *ast.UnOp) ast.DataType {
	ty := c.checkExpr(n.E)
	switch n.Op {
	case ast.UnNot:
		if !ty.Equal(ast.Boolean) && !ty.Equal(ast.AssumeGood) {
			c.errs.TypeError(n.Loc(), fmt.Sprintf("'not' requires bool, found %s", ty))
			return ast.AssumeGood
		}
		return ast.Boolean
	case ast.UnNeg:
		if !ty.IsNumeric() && !ty.Equal(ast.AssumeGood) {
			c.errs.TypeError(n.Loc(), fmt.Sprintf("unary '-' requires a numeric operand, found %s", ty))
			return ast.AssumeGood
		}
		return ty
	default:
		return ast.AssumeGood
	}
}

// checkBinOp validates operand shapes per spec.md §4.4's operator table.
func (c *Checker) checkBinOp(n *ast.BinOp) ast.DataType {
	lTy := c.checkExpr(n.L)
	rTy := c.checkExpr(n.R)
	if lTy.Equal(ast.AssumeGood) || rTy.Equal(ast.AssumeGood) {
		return ast.AssumeGood
	}

	switch n.Op {
	case ast.BinAnd, ast.BinOr:
		if lTy.Equal(ast.Boolean) && rTy.Equal(ast.Boolean) {
			return ast.Boolean
		}
		c.errs.TypeError(n.Loc(), fmt.Sprintf("%s requires bool operands, found %s and %s", n.Op, lTy, rTy))
		return ast.AssumeGood

	case ast.BinEq, ast.BinNe:
		if lTy.Equal(rTy) {
			return ast.Boolean
		}
		c.errs.TypeError(n.Loc(), fmt.Sprintf("%s requires operands of the same type, found %s and %s", n.Op, lTy, rTy))
		return ast.AssumeGood

	case ast.BinGe, ast.BinGt, ast.BinLe, ast.BinLt:
		if (lTy.IsNumeric() && rTy.IsNumeric()) || (lTy.Equal(ast.Str) && rTy.Equal(ast.Str)) {
			return ast.Boolean
		}
		c.errs.TypeError(n.Loc(), fmt.Sprintf("%s requires two numerics or two strings, found %s and %s", n.Op, lTy, rTy))
		return ast.AssumeGood

	case ast.BinAdd, ast.BinSub, ast.BinMul, ast.BinDiv, ast.BinMod:
		if lTy.IsNumeric() && rTy.IsNumeric() {
			return widen(lTy, rTy)
		}
		c.errs.TypeError(n.Loc(), fmt.Sprintf("%s requires numeric operands, found %s and %s", n.Op, lTy, rTy))
		return ast.AssumeGood

	default:
		c.errs.InternalError(true, "typecheck: unhandled BinOpKind")
		return ast.AssumeGood
	}
}

// widen picks the wider of two numeric types for an arithmetic result
// (spec.md §4.4 "numeric (widened)"); u32 is treated as wider than i32
// since it is the type used for addresses and indices throughout the
// registry (spec.md §4.1).
func widen(l, r ast.DataType) ast.DataType {
	if l.Equal(ast.U32) || r.Equal(ast.U32) {
		return ast.U32
	}
	return ast.I32
}

func (c *Checker) checkCall(n *ast.Call) ast.DataType {
	if n.Target == ast.TupleCallTarget {
		var tys []ast.DataType
		for _, a := range n.Args {
			tys = append(tys, c.checkExpr(a))
		}
		return ast.Tuple(tys...)
	}

	id, ok := c.table.Lookup(n.Target)
	if !ok {
		c.errs.UnresolvedIdentifier(n.Loc(), n.Target)
		for _, a := range n.Args {
			c.checkExpr(a)
		}
		return ast.AssumeGood
	}
	rec := c.table.Record(id)
	if rec.Kind != symbols.RecFn {
		c.errs.UnresolvedIdentifier(n.Loc(), n.Target)
		for _, a := range n.Args {
			c.checkExpr(a)
		}
		return ast.AssumeGood
	}
	for i, a := range n.Args {
		argTy := c.checkExpr(a)
		if i < len(rec.FnParams) {
			paramTy := rec.FnParams[i].Ty
			if !argTy.Equal(paramTy) && !paramTy.Equal(ast.AssumeGood) {
				c.errs.TypeError(a.Loc(), fmt.Sprintf("argument %d to %q: expected %s, found %s", i+1, n.Target, paramTy, argTy))
			}
		}
	}
	return rec.FnRetTy
}
