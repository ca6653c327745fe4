// Package emitter implements C9: a stateful editor over a mutable
// wasmmod.Module plus a symbols.Table, driven by the instrumentation
// driver (internal/driver, C8) one behavior-tree Action at a time
// (spec.md §4.8). It owns the instruction cursor the driver walks and
// the Wasm-bytecode rewriting that results from each emitter call.
package emitter

import (
	"fmt"
	"os"

	"github.com/bits-and-blooms/bitset"

	"github.com/ejrgilbert/whammc/internal/ast"
	"github.com/ejrgilbert/whammc/internal/diagnostics"
	"github.com/ejrgilbert/whammc/internal/fold"
	"github.com/ejrgilbert/whammc/internal/symbols"
	"github.com/ejrgilbert/whammc/internal/wasmmod"
)

// instrPos addresses one instruction by (function, index-in-body).
type instrPos struct {
	fn  int
	idx int
}

// funcState is the per-function rewriting state: the original body being
// consumed left to right, and the rewritten body being accumulated.
type funcState struct {
	orig []wasmmod.Instr
	out  []wasmmod.Instr
	next int // index into orig not yet consumed
}

// Emitter is C9's concrete editor. Exactly one Emitter rewrites one
// Module for the duration of a driver run.
type Emitter struct {
	Module *wasmmod.Module
	Table  *symbols.Table
	Errs   *diagnostics.Collector

	funcs []funcState

	filter   *bitset.BitSet // dense opcode-byte -> "is an instruction-of-interest"
	curPos   instrPos
	curValid bool
	consumed bool

	altCalls map[string]uint32 // scope name -> Wasm func idx of registered alt handler

	localCount []int // per-function running local count, seeded from param+local counts

	savedParams map[string][]int // scope name -> local indices holding saved params

	strcmpFuncIdx int // -1 until the shared strcmp helper has been synthesized
	branchStack   []openBranch
	fatal         bool
}

// New builds an Emitter over m and table. Every originally-decoded
// function body is copied into working state so edits never mutate m's
// decoded slices in place; Finish() writes the rewritten bodies back.
func New(m *wasmmod.Module, table *symbols.Table, errs *diagnostics.Collector) *Emitter {
	e := &Emitter{
		Module:      m,
		Table:       table,
		Errs:        errs,
		altCalls:    map[string]uint32{},
		savedParams: map[string][]int{},
		strcmpFuncIdx: -1,
	}
	e.funcs = make([]funcState, len(m.Code))
	e.localCount = make([]int, len(m.Code))
	for i, c := range m.Code {
		e.funcs[i] = funcState{orig: c.Body}
		n := paramCount(m, i)
		for _, l := range c.Locals {
			n += int(l.Count)
		}
		e.localCount[i] = n
	}
	return e
}

// fail records a recoverable emitter-contract failure (spec.md §4.8
// failure semantics) and returns false for the caller to propagate.
func (e *Emitter) fail(format string, args ...any) bool {
	e.Errs.InternalError(false, fmt.Sprintf(format, args...))
	return false
}

// ==================== scope ====================

func (e *Emitter) EnterNamedScope(name string) bool {
	return e.Table.EnterNamedScope(name)
}

func (e *Emitter) ExitScope() { e.Table.ExitScope() }

// ResetChildren clears instruction-cursor state between independent runs
// of the same Emitter over a freshly-decoded module (spec.md §4.8
// reset_children); the symbol table itself is rebuilt per-run by C4.
func (e *Emitter) ResetChildren() {
	e.curValid = false
	e.consumed = false
}

// ==================== instruction iteration ====================

// InitInstrIter resets the cursor over every function's code and
// restricts matches to opcodes whose canonical event name is in opcodes.
// The filter is a dense byte-indexed bitset rather than a map[string]bool:
// every instruction scanned tests a single bit instead of allocating a
// string-keyed lookup on the hot path (spec.md's domain-stack wiring for
// bits-and-blooms/bitset).
func (e *Emitter) InitInstrIter(opcodes []string) {
	wanted := make(map[string]bool, len(opcodes))
	for _, o := range opcodes {
		wanted[o] = true
	}
	e.filter = bitset.New(256)
	for _, op := range wasmmod.AllOpcodes {
		if wanted[wasmmod.EventName(op)] {
			e.filter.Set(uint(op))
		}
	}
	e.curPos = instrPos{fn: 0, idx: 0}
	e.curValid = false
	e.consumed = true
}

// HasNextInstr reports whether another matching instruction exists,
// flushing every skipped (non-matching) instruction verbatim into the
// owning function's rewritten output as it scans past them.
func (e *Emitter) HasNextInstr() bool {
	if e.curValid && !e.consumed {
		// the walk left the current instruction undecided: keep it as is
		e.EmitOrig()
	}
	for fn := e.curPos.fn; fn < len(e.funcs); fn++ {
		fs := &e.funcs[fn]
		for idx := fs.next; idx < len(fs.orig); idx++ {
			if e.filter.Test(uint(fs.orig[idx].Op)) {
				e.flushUpto(fn, idx)
				e.curPos = instrPos{fn: fn, idx: idx}
				e.curValid = true
				e.consumed = false
				return true
			}
		}
		e.flushUpto(fn, len(fs.orig))
	}
	return false
}

// flushUpto copies orig[fs.next:idx] verbatim into out and advances
// fs.next to idx, for function fn.
func (e *Emitter) flushUpto(fn, idx int) {
	fs := &e.funcs[fn]
	for ; fs.next < idx; fs.next++ {
		fs.out = append(fs.out, fs.orig[fs.next])
	}
}

// NextInstr confirms the advance HasNextInstr already staged.
func (e *Emitter) NextInstr() bool {
	return e.curValid && !e.consumed
}

// CurrInstrType returns the current instruction's canonical event name.
func (e *Emitter) CurrInstrType() string {
	if !e.curValid {
		return ""
	}
	return wasmmod.EventName(e.curInstr().Op)
}

func (e *Emitter) curInstr() *wasmmod.Instr {
	fs := &e.funcs[e.curPos.fn]
	return &fs.orig[e.curPos.idx]
}

func (e *Emitter) curFunc() *funcState { return &e.funcs[e.curPos.fn] }

// CurrentInstr returns the instruction the cursor is on, or the zero
// Instr if nothing is current (spec.md §4.7 lifecycle probes, which run
// outside any instruction iteration).
func (e *Emitter) CurrentInstr() *wasmmod.Instr {
	if !e.curValid {
		return &wasmmod.Instr{}
	}
	return e.curInstr()
}

// markConsumed advances past the current instruction once the driver has
// decided its fate (emit_orig/remove_orig), and bumps fs.next so the next
// HasNextInstr scan resumes after it.
func (e *Emitter) markConsumed() {
	e.consumed = true
	fs := e.curFunc()
	if fs.next == e.curPos.idx {
		fs.next++
	}
}

// ==================== params ====================

// HasParams reports whether the current instruction carries values that
// must be saved/restored around instrumentation (spec.md §4.8). Only a
// call to a locally defined function reports params (its callee's
// declared parameter count); calls to imported functions and every other
// instruction report none.
func (e *Emitter) HasParams() bool {
	if !e.curValid {
		return false
	}
	return len(e.currentParamTypes()) > 0
}

func (e *Emitter) currentParamTypes() []wasmmod.ValueType {
	if !e.curValid {
		return nil
	}
	in := e.curInstr()
	if in.Op == wasmmod.OpCall {
		callee := int(in.FuncIdx) - e.Module.NumImportedFuncs()
		if callee >= 0 && callee < len(e.Module.FuncTypes) {
			ft := e.Module.Types[e.Module.FuncTypes[callee]]
			return ft.Params
		}
	}
	return nil
}

// SaveParams pops the current instruction's stack values into freshly
// allocated locals in the current function, scoped under name so
// EmitParams can push them back later.
func (e *Emitter) SaveParams(name string) bool {
	types := e.currentParamTypes()
	if len(types) == 0 {
		return true
	}
	fs := e.curFunc()
	fn := e.curPos.fn
	locals := make([]int, len(types))
	for i := len(types) - 1; i >= 0; i-- {
		idx := e.localCount[fn]
		e.localCount[fn]++
		locals[i] = idx
		fs.out = append(fs.out, wasmmod.Instr{Op: wasmmod.OpLocalSet, LocalIdx: uint32(idx)})
	}
	e.savedParams[name] = locals
	return true
}

// SavedParamLocals returns the local indices SaveParams(name) allocated,
// so the driver can bind dynamically declared arg0..argN symbol records
// to concrete storage.
func (e *Emitter) SavedParamLocals(name string) []int {
	return e.savedParams[name]
}

// EmitParams re-pushes a previously saved parameter set in order.
func (e *Emitter) EmitParams(name string) bool {
	locals, ok := e.savedParams[name]
	if !ok {
		return true
	}
	fs := e.curFunc()
	for _, idx := range locals {
		fs.out = append(fs.out, wasmmod.Instr{Op: wasmmod.OpLocalGet, LocalIdx: uint32(idx)})
	}
	return true
}

// ==================== alt-call / orig ====================

// HasAltCall reports whether the currently entered scope's alt probe has
// assigned new_target_fn_name (spec.md §4.8 has_alt_call).
func (e *Emitter) HasAltCall() bool {
	_, ok := e.altCalls[e.Table.CurrScope().Name]
	return ok
}

// registerAltCallTarget resolves expr (expected to fold to a function-name
// string literal) against the symbol table and records it as the current
// scope's alt-call target.
func (e *Emitter) registerAltCallTarget(expr ast.Expr) bool {
	folded := fold.Fold(expr, emptyEnv{})
	prim, ok := folded.(*ast.Primitive)
	if !ok || !prim.Val.Ty.Equal(ast.Str) {
		return e.fail("new_target_fn_name must fold to a string literal")
	}
	id, found := e.Table.Lookup(prim.Val.Str)
	if !found {
		return e.fail("new_target_fn_name: unresolved function %q", prim.Val.Str)
	}
	rec := e.Table.Record(id)
	if rec.VarAddr == nil {
		return e.fail("new_target_fn_name: function %q has no assigned Wasm index", prim.Val.Str)
	}
	e.altCalls[e.Table.CurrScope().Name] = uint32(*rec.VarAddr)
	return true
}

func (e *Emitter) EmitAltCall() bool {
	idx, ok := e.altCalls[e.Table.CurrScope().Name]
	if !ok {
		return e.fail("emit_alt_call: no alt handler registered for scope %s", e.Table.CurrScope().Name)
	}
	e.curFunc().out = append(e.curFunc().out, wasmmod.Instr{Op: wasmmod.OpCall, FuncIdx: idx})
	return true
}

func (e *Emitter) EmitOrig() bool {
	if !e.curValid {
		return e.fail("emit_orig: no current instruction")
	}
	e.curFunc().out = append(e.curFunc().out, *e.curInstr())
	e.markConsumed()
	return true
}

func (e *Emitter) RemoveOrig() bool {
	if !e.curValid {
		return e.fail("remove_orig: no current instruction")
	}
	e.markConsumed()
	return true
}

// ==================== structured control flow ====================

// branchKind tracks which of emit_if/emit_if_else opened the current
// structured block, so FinishBranch knows whether to expect an else.
type branchKind int

const (
	branchIf branchKind = iota
	branchIfElse
)

type openBranch struct {
	kind branchKind
	fn   int
}

func (e *Emitter) EmitIf() bool {
	e.curFunc().out = append(e.curFunc().out, wasmmod.Instr{Op: wasmmod.OpIf, BlockTy: wasmmod.BlockType{Empty: true}})
	e.branchStack = append(e.branchStack, openBranch{kind: branchIf, fn: e.curPos.fn})
	return true
}

func (e *Emitter) EmitIfElse() bool {
	e.curFunc().out = append(e.curFunc().out, wasmmod.Instr{Op: wasmmod.OpIf, BlockTy: wasmmod.BlockType{Empty: true}})
	e.branchStack = append(e.branchStack, openBranch{kind: branchIfElse, fn: e.curPos.fn})
	return true
}

// EmitCondition/EmitConsequent are no-ops on this editor: the driver
// emits the cond/conseq subtrees directly as ordinary
// Action/ParameterizedAction dispatch, and EmitIf/EmitIfElse already
// opened the block they fall inside of. The driver calls neither; in this
// flat-instruction-stream encoding the only phase transition is the else
// that EmitAlternate writes.
func (e *Emitter) EmitCondition() bool  { return true }
func (e *Emitter) EmitConsequent() bool { return true }

func (e *Emitter) EmitAlternate() bool {
	if len(e.branchStack) == 0 {
		return e.fail("emit_alternate: no open if/else")
	}
	top := e.branchStack[len(e.branchStack)-1]
	if top.kind != branchIfElse {
		return e.fail("emit_alternate: current branch has no else")
	}
	e.funcs[top.fn].out = append(e.funcs[top.fn].out, wasmmod.Instr{Op: wasmmod.OpElse})
	return true
}

func (e *Emitter) FinishBranch() bool {
	if len(e.branchStack) == 0 {
		return e.fail("finish_branch: no open if/else")
	}
	top := e.branchStack[len(e.branchStack)-1]
	e.branchStack = e.branchStack[:len(e.branchStack)-1]
	e.funcs[top.fn].out = append(e.funcs[top.fn].out, wasmmod.Instr{Op: wasmmod.OpEnd})
	return true
}

// ==================== expression / statement compilation ====================

// FoldExpr applies C7 and returns the folded expression. The documented
// contract calls this "in place"; Go's Expr is an immutable-by-convention
// interface value, so here the driver must use the returned Expr rather
// than relying on e mutating its argument.
func (e *Emitter) FoldExpr(expr ast.Expr, env fold.Env) ast.Expr {
	return fold.Fold(expr, env)
}

func (e *Emitter) emit(in wasmmod.Instr) {
	e.curFunc().out = append(e.curFunc().out, in)
}

// EmitExpr compiles expr to Wasm, pushing its value on the stack.
func (e *Emitter) EmitExpr(expr ast.Expr) bool {
	switch n := expr.(type) {
	case *ast.Primitive:
		return e.emitValue(n.Val)
	case *ast.VarId:
		return e.emitVarLoad(n.Name)
	case *ast.UnOp:
		if !e.EmitExpr(n.E) {
			return false
		}
		switch n.Op {
		case ast.UnNot:
			e.emit(wasmmod.Instr{Op: wasmmod.OpI32Eqz})
		case ast.UnNeg:
			e.emit(wasmmod.Instr{Op: wasmmod.OpI32Const, I32: -1})
			e.emit(wasmmod.Instr{Op: wasmmod.OpI32Mul})
		}
		return true
	case *ast.BinOp:
		if !e.EmitExpr(n.L) || !e.EmitExpr(n.R) {
			return false
		}
		return e.emitBinOp(n.Op)
	case *ast.Ternary:
		return e.emitTernary(n)
	case *ast.Call:
		return e.emitCall(n)
	default:
		return e.fail("emit_expr: unsupported expression")
	}
}

func (e *Emitter) emitValue(v ast.Value) bool {
	switch v.Ty.Kind {
	case ast.DataTypeBoolean:
		i := int32(0)
		if v.Bool {
			i = 1
		}
		e.emit(wasmmod.Instr{Op: wasmmod.OpI32Const, I32: i})
	case ast.DataTypeStr:
		addr := e.internString(v.Str)
		e.emit(wasmmod.Instr{Op: wasmmod.OpI32Const, I32: int32(addr.Offset)})
		e.emit(wasmmod.Instr{Op: wasmmod.OpI32Const, I32: int32(addr.Length)})
	default:
		e.emit(wasmmod.Instr{Op: wasmmod.OpI32Const, I32: v.I32})
	}
	return true
}

// internString appends s's bytes to a synthetic data segment (segment 0
// of e's literal pool, created lazily) and returns its address.
func (e *Emitter) internString(s string) ast.StrAddr {
	if len(e.Module.Data) == 0 {
		e.Module.Data = append(e.Module.Data, wasmmod.DataSegment{MemIdx: 0, Offset: []wasmmod.Instr{
			{Op: wasmmod.OpI32Const, I32: 0}, {Op: wasmmod.OpEnd},
		}})
	}
	seg := &e.Module.Data[0]
	off := uint32(len(seg.Bytes))
	seg.Bytes = append(seg.Bytes, s...)
	return ast.StrAddr{DataSegment: 0, Offset: off, Length: uint32(len(s))}
}

func (e *Emitter) emitVarLoad(name string) bool {
	id, ok := e.Table.Lookup(name)
	if !ok {
		return e.fail("emit_expr: unresolved variable %q", name)
	}
	rec := e.Table.Record(id)
	if rec.VarValue != nil {
		return e.emitValue(*rec.VarValue)
	}
	if rec.VarAddr == nil {
		return e.fail("emit_expr: variable %q has no assigned storage", name)
	}
	if rec.VarIsCompProvided || !isGlobalScope(rec.VarScope) {
		e.emit(wasmmod.Instr{Op: wasmmod.OpLocalGet, LocalIdx: uint32(*rec.VarAddr)})
	} else {
		e.emit(wasmmod.Instr{Op: wasmmod.OpGlobalGet, GlobalIdx: uint32(*rec.VarAddr)})
	}
	return true
}

func (e *Emitter) emitBinOp(op ast.BinOpKind) bool {
	switch op {
	case ast.BinAnd:
		e.emit(wasmmod.Instr{Op: wasmmod.OpI32Mul})
	case ast.BinOr:
		e.emit(wasmmod.Instr{Op: wasmmod.OpI32Add})
		e.emit(wasmmod.Instr{Op: wasmmod.OpI32Const, I32: 0})
		e.emit(wasmmod.Instr{Op: wasmmod.OpI32Ne})
	case ast.BinEq:
		e.emit(wasmmod.Instr{Op: wasmmod.OpI32Eq})
	case ast.BinNe:
		e.emit(wasmmod.Instr{Op: wasmmod.OpI32Ne})
	case ast.BinGe:
		e.emit(wasmmod.Instr{Op: wasmmod.OpI32GeS})
	case ast.BinGt:
		e.emit(wasmmod.Instr{Op: wasmmod.OpI32GtS})
	case ast.BinLe:
		e.emit(wasmmod.Instr{Op: wasmmod.OpI32LeS})
	case ast.BinLt:
		e.emit(wasmmod.Instr{Op: wasmmod.OpI32LtS})
	case ast.BinAdd:
		e.emit(wasmmod.Instr{Op: wasmmod.OpI32Add})
	case ast.BinSub:
		e.emit(wasmmod.Instr{Op: wasmmod.OpI32Sub})
	case ast.BinMul:
		e.emit(wasmmod.Instr{Op: wasmmod.OpI32Mul})
	case ast.BinDiv:
		e.emit(wasmmod.Instr{Op: wasmmod.OpI32DivS})
	case ast.BinMod:
		e.emit(wasmmod.Instr{Op: wasmmod.OpI32RemS})
	default:
		return e.fail("emit_expr: unsupported operator %v", op)
	}
	return true
}

// emitTernary compiles c ? a : b as a value-producing structured if,
// using the single-result-type BlockType this editor supports.
func (e *Emitter) emitTernary(n *ast.Ternary) bool {
	if !e.EmitExpr(n.Cond) {
		return false
	}
	e.emit(wasmmod.Instr{Op: wasmmod.OpIf, BlockTy: wasmmod.BlockType{Val: wasmmod.ValueTypeI32}})
	if !e.EmitExpr(n.Conseq) {
		return false
	}
	e.emit(wasmmod.Instr{Op: wasmmod.OpElse})
	if !e.EmitExpr(n.Alt) {
		return false
	}
	e.emit(wasmmod.Instr{Op: wasmmod.OpEnd})
	return true
}

func (e *Emitter) emitCall(n *ast.Call) bool {
	if n.Target == ast.TupleCallTarget {
		ok := true
		for _, a := range n.Args {
			ok = e.EmitExpr(a) && ok
		}
		return ok
	}
	if n.Target == "strcmp" {
		return e.emitStrcmp(n)
	}
	id, ok := e.Table.Lookup(n.Target)
	if !ok {
		return e.fail("emit_expr: unresolved function %q", n.Target)
	}
	rec := e.Table.Record(id)
	for _, a := range n.Args {
		if !e.EmitExpr(a) {
			return false
		}
	}
	if rec.VarAddr == nil {
		return e.fail("emit_expr: function %q has no assigned Wasm index", n.Target)
	}
	e.emit(wasmmod.Instr{Op: wasmmod.OpCall, FuncIdx: uint32(*rec.VarAddr)})
	return true
}

// emitStrcmp lowers a strcmp(str_expr, "literal") call to a call of the
// lazily-synthesized shared comparison function (spec.md §4.8).
func (e *Emitter) emitStrcmp(n *ast.Call) bool {
	if len(n.Args) != 2 {
		return e.fail("strcmp: expected 2 arguments")
	}
	lit, ok := n.Args[1].(*ast.Primitive)
	if !ok || !lit.Val.Ty.Equal(ast.Str) {
		return e.fail("strcmp: second argument must be a string literal")
	}
	if !e.EmitExpr(n.Args[0]) { // pushes (offset, len)
		return false
	}
	addr := e.internString(lit.Val.Str)
	e.emit(wasmmod.Instr{Op: wasmmod.OpI32Const, I32: int32(addr.Offset)})
	e.emit(wasmmod.Instr{Op: wasmmod.OpI32Const, I32: int32(addr.Length)})
	idx := e.ensureStrcmpFunc()
	e.emit(wasmmod.Instr{Op: wasmmod.OpCall, FuncIdx: idx})
	return true
}

// ensureStrcmpFunc synthesizes the shared strcmp(off1,len1,off2,len2)->i32
// helper on first use and records its Wasm function id on the symbol
// table's strcmp record, per spec.md §4.8.
func (e *Emitter) ensureStrcmpFunc() uint32 {
	if e.strcmpFuncIdx >= 0 {
		return uint32(e.strcmpFuncIdx)
	}
	typeIdx := uint32(len(e.Module.Types))
	e.Module.Types = append(e.Module.Types, wasmmod.FuncType{
		Params:  []wasmmod.ValueType{wasmmod.ValueTypeI32, wasmmod.ValueTypeI32, wasmmod.ValueTypeI32, wasmmod.ValueTypeI32},
		Results: []wasmmod.ValueType{wasmmod.ValueTypeI32},
	})
	body := strcmpBody()
	funcIdx := e.Module.NumImportedFuncs() + len(e.Module.FuncTypes)
	e.Module.FuncTypes = append(e.Module.FuncTypes, typeIdx)
	e.Module.Code = append(e.Module.Code, wasmmod.Code{Body: body})
	e.funcs = append(e.funcs, funcState{orig: body})
	e.localCount = append(e.localCount, 5)
	e.strcmpFuncIdx = funcIdx
	if id, ok := e.Table.Lookup("strcmp"); ok {
		rec := e.Table.Record(id)
		v := funcIdx
		rec.VarAddr = &v
	}
	return uint32(funcIdx)
}

// strcmpBody hand-assembles the byte-wise comparison described in
// spec.md §4.8: unequal lengths -> 0; equal offsets -> 1 (same region);
// else compare byte by byte via a loop, short-circuiting to 0 on the
// first mismatch and falling through to 1.
func strcmpBody() []wasmmod.Instr {
	// locals: 0=off1 1=len1 2=off2 3=len2 (params), 4=i (loop counter)
	const i = 4
	return []wasmmod.Instr{
		{Op: wasmmod.OpLocalGet, LocalIdx: 1},
		{Op: wasmmod.OpLocalGet, LocalIdx: 3},
		{Op: wasmmod.OpI32Ne},
		{Op: wasmmod.OpIf, BlockTy: wasmmod.BlockType{Empty: true}},
		{Op: wasmmod.OpI32Const, I32: 0},
		{Op: wasmmod.OpReturn},
		{Op: wasmmod.OpEnd},
		{Op: wasmmod.OpLocalGet, LocalIdx: 0},
		{Op: wasmmod.OpLocalGet, LocalIdx: 2},
		{Op: wasmmod.OpI32Eq},
		{Op: wasmmod.OpIf, BlockTy: wasmmod.BlockType{Empty: true}},
		{Op: wasmmod.OpI32Const, I32: 1},
		{Op: wasmmod.OpReturn},
		{Op: wasmmod.OpEnd},
		{Op: wasmmod.OpI32Const, I32: 0},
		{Op: wasmmod.OpLocalSet, LocalIdx: i},
		{Op: wasmmod.OpLoop, BlockTy: wasmmod.BlockType{Empty: true}},
		{Op: wasmmod.OpLocalGet, LocalIdx: i},
		{Op: wasmmod.OpLocalGet, LocalIdx: 1},
		{Op: wasmmod.OpI32LtS},
		{Op: wasmmod.OpIf, BlockTy: wasmmod.BlockType{Empty: true}},
		{Op: wasmmod.OpLocalGet, LocalIdx: 0},
		{Op: wasmmod.OpLocalGet, LocalIdx: i},
		{Op: wasmmod.OpI32Add},
		{Op: wasmmod.OpI32Load, Mem: wasmmod.MemArg{Align: 0, Offset: 0}},
		{Op: wasmmod.OpLocalGet, LocalIdx: 2},
		{Op: wasmmod.OpLocalGet, LocalIdx: i},
		{Op: wasmmod.OpI32Add},
		{Op: wasmmod.OpI32Load, Mem: wasmmod.MemArg{Align: 0, Offset: 0}},
		{Op: wasmmod.OpI32Ne},
		{Op: wasmmod.OpIf, BlockTy: wasmmod.BlockType{Empty: true}},
		{Op: wasmmod.OpI32Const, I32: 0},
		{Op: wasmmod.OpReturn},
		{Op: wasmmod.OpEnd},
		{Op: wasmmod.OpLocalGet, LocalIdx: i},
		{Op: wasmmod.OpI32Const, I32: 1},
		{Op: wasmmod.OpI32Add},
		{Op: wasmmod.OpLocalSet, LocalIdx: i},
		{Op: wasmmod.OpBr, I32: 1},
		{Op: wasmmod.OpEnd},
		{Op: wasmmod.OpEnd},
		{Op: wasmmod.OpI32Const, I32: 1},
		{Op: wasmmod.OpEnd},
	}
}

// EmitBody compiles a statement block, declaring Decl'd variables as new
// locals in the current function and resolving Assign targets against
// the symbol table.
func (e *Emitter) EmitBody(stmts []ast.Statement) bool {
	ok := true
	for _, s := range stmts {
		ok = e.emitStmt(s) && ok
	}
	return ok
}

// EmitGlobalStmts compiles script-level global declarations/initializers
// as module globals rather than function locals (spec.md §4.5's
// Sequence-level EmitGlobalStmts action, run once per script).
func (e *Emitter) EmitGlobalStmts(stmts []ast.Statement) bool {
	ok := true
	for _, s := range stmts {
		switch st := s.(type) {
		case *ast.Decl:
			ok = e.EmitGlobal(st.VarId.Name, st.Ty, nil) && ok
		case *ast.Assign:
			id, found := e.Table.Lookup(st.VarId.Name)
			if !found {
				ok = e.fail("emit_global_stmts: unresolved global %q", st.VarId.Name) && false
				continue
			}
			rec := e.Table.Record(id)
			if rec.VarAddr == nil {
				ok = e.EmitGlobal(st.VarId.Name, rec.VarTy, nil) && ok
			}
			folded := fold.Fold(st.Expr, emptyEnv{})
			if prim, isPrim := folded.(*ast.Primitive); isPrim {
				rec2 := e.Table.Record(id)
				g := &e.Module.Globals[*rec2.VarAddr]
				g.Init = []wasmmod.Instr{{Op: wasmmod.OpI32Const, I32: prim.Val.I32}, {Op: wasmmod.OpEnd}}
			}
		default:
			ok = e.fail("emit_global_stmts: unsupported top-level statement") && false
		}
	}
	return ok
}

type emptyEnv struct{}

func (emptyEnv) Lookup(string) (ast.Value, bool) { return ast.Value{}, false }

func (e *Emitter) emitStmt(s ast.Statement) bool {
	switch st := s.(type) {
	case *ast.Decl:
		return e.declareLocal(st.VarId.Name, st.Ty)
	case *ast.Assign:
		// Assigning the well-known new_target_fn_name compiler var
		// (registry.go: the "call" event's alt-mode redirect) is a
		// compile-time decision, not a runtime store: it names which
		// Wasm function an alt probe's emit_alt_call should invoke
		// instead of emitting any code for the assignment itself.
		if st.VarId.Name == "new_target_fn_name" {
			return e.registerAltCallTarget(st.Expr)
		}
		if !e.EmitExpr(st.Expr) {
			return false
		}
		return e.emitVarStore(st.VarId.Name)
	case *ast.ExprStmt:
		return e.EmitExpr(st.Expr)
	case *ast.Return:
		if st.Expr != nil {
			if !e.EmitExpr(st.Expr) {
				return false
			}
		}
		e.emit(wasmmod.Instr{Op: wasmmod.OpReturn})
		return true
	default:
		return e.fail("emit_body: unsupported statement")
	}
}

func (e *Emitter) declareLocal(name string, ty ast.DataType) bool {
	id, ok := e.Table.Lookup(name)
	if !ok {
		return e.fail("emit_body: declared variable %q missing from symbol table", name)
	}
	fn := e.curPos.fn
	idx := e.localCount[fn]
	e.localCount[fn]++
	rec := e.Table.Record(id)
	rec.VarAddr = &idx
	return true
}

// isGlobalScope reports whether a Var declared in scope ty should be
// backed by a Wasm global rather than a function-local: everything above
// probe/fn granularity is shared module-wide state (spec.md §6 "typed
// global declarations"), while a probe or fn body's own `i32 x;` is scoped
// to one emission.
func isGlobalScope(ty symbols.ScopeType) bool {
	switch ty {
	case symbols.ScopeWhamm, symbols.ScopeScript, symbols.ScopeProvider, symbols.ScopePackage, symbols.ScopeEvent:
		return true
	default:
		return false
	}
}

func (e *Emitter) emitVarStore(name string) bool {
	id, ok := e.Table.Lookup(name)
	if !ok {
		return e.fail("emit_body: unresolved assignment target %q", name)
	}
	rec := e.Table.Record(id)
	if rec.VarAddr == nil {
		if isGlobalScope(rec.VarScope) {
			return e.EmitGlobal(name, rec.VarTy, nil) && e.emitVarStore(name)
		}
		return e.declareLocal(name, rec.VarTy) && e.emitVarStore(name)
	}
	if rec.VarIsCompProvided || !isGlobalScope(rec.VarScope) {
		e.emit(wasmmod.Instr{Op: wasmmod.OpLocalSet, LocalIdx: uint32(*rec.VarAddr)})
	} else {
		e.emit(wasmmod.Instr{Op: wasmmod.OpGlobalSet, GlobalIdx: uint32(*rec.VarAddr)})
	}
	return true
}

// ==================== globals / compiler vars ====================

// EmitGlobal allocates a new Wasm global of type ty (zero-initialized
// unless init is given) and writes its index back to name's symbol table
// record.
func (e *Emitter) EmitGlobal(name string, ty ast.DataType, init *ast.Value) bool {
	id, ok := e.Table.Lookup(name)
	if !ok {
		return e.fail("emit_global: unresolved %q", name)
	}
	var initExpr []wasmmod.Instr
	if init != nil {
		initExpr = []wasmmod.Instr{{Op: wasmmod.OpI32Const, I32: init.I32}, {Op: wasmmod.OpEnd}}
	} else {
		initExpr = []wasmmod.Instr{{Op: wasmmod.OpI32Const, I32: 0}, {Op: wasmmod.OpEnd}}
	}
	idx := len(e.Module.Globals)
	e.Module.Globals = append(e.Module.Globals, wasmmod.Global{Type: wasmmod.ValueTypeI32, Mutable: true, Init: initExpr})
	rec := e.Table.Record(id)
	rec.VarAddr = &idx
	return true
}

// DefineCompilerVar binds a compiler-provided name already declared in
// the current scope (e.g. target_fn_name; spec.md §4.1/§4.8) to the
// concrete value v and marks its record compiler-provided. It allocates
// no local; context only names the scope in the failure message.
func (e *Emitter) DefineCompilerVar(context string, name string, v ast.Value) bool {
	id, ok := e.Table.LookupLocal(name)
	if !ok {
		return e.fail("define_compiler_var: %q not declared in scope %q", name, context)
	}
	rec := e.Table.Record(id)
	rec.VarIsCompProvided = true
	rec.VarValue = &v
	return true
}

// ==================== output ====================

// Finish copies every function's accumulated rewritten body back onto
// the Module (flushing any not-yet-matched tail first) and returns the
// serialized binary.
func (e *Emitter) Finish() []byte {
	for fn := range e.funcs {
		e.flushUpto(fn, len(e.funcs[fn].orig))
		e.Module.Code[fn].Body = e.funcs[fn].out
		if n := e.localCount[fn] - paramCount(e.Module, fn); n > 0 {
			e.Module.Code[fn].Locals = []wasmmod.Local{{Count: uint32(n), Type: wasmmod.ValueTypeI32}}
		}
	}
	return wasmmod.Encode(e.Module)
}

func paramCount(m *wasmmod.Module, fn int) int {
	if fn >= len(m.FuncTypes) {
		return 0
	}
	return len(m.Types[m.FuncTypes[fn]].Params)
}

// DumpToFile serializes the modified module to path.
func (e *Emitter) DumpToFile(path string) error {
	return os.WriteFile(path, e.Finish(), 0o644)
}
