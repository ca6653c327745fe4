// Package driver implements C8: the instrumentation driver that walks the
// static behavior tree (internal/behavior, C6) once, interpreting each
// node against the concrete Wasm module the emitter (internal/emitter,
// C9) is rewriting (spec.md §4.7). Driver implements behavior.Visitor;
// since that interface is void-returning, success/failure of the node
// most recently visited is threaded through the ok field the way a
// return value would be in a non-void dispatch.
package driver

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ejrgilbert/whammc/internal/ast"
	"github.com/ejrgilbert/whammc/internal/behavior"
	"github.com/ejrgilbert/whammc/internal/diagnostics"
	"github.com/ejrgilbert/whammc/internal/emitter"
	"github.com/ejrgilbert/whammc/internal/fold"
	"github.com/ejrgilbert/whammc/internal/registry"
	"github.com/ejrgilbert/whammc/internal/symbols"
	"github.com/ejrgilbert/whammc/internal/wasmmod"
)

// Driver owns one pass over Tree/AST against Emit. Fields below curr*
// are set by set_context_info as the walk crosses each ActionWithChild
// boundary, mirroring the original's curr_provider_name/curr_package_name/
// curr_event_name/curr_probe_mode bookkeeping (spec.md §4.7).
type Driver struct {
	Tree     *behavior.Tree
	AST      *behavior.SimpleAST
	Table    *symbols.Table
	Emit     *emitter.Emitter
	Registry *registry.Registry
	Errs     *diagnostics.Collector
	Log      *logrus.Entry

	ok bool

	currScript, currProvider, currPackage, currEvent, currMode string
	currProbe                                                  *ast.Probe
	foldedPred                                                  ast.Expr
	inLifecycle                                                 bool
}

func New(tree *behavior.Tree, simpleAST *behavior.SimpleAST, table *symbols.Table, emit *emitter.Emitter, reg *registry.Registry, errs *diagnostics.Collector, log *logrus.Entry) *Driver {
	return &Driver{Tree: tree, AST: simpleAST, Table: table, Emit: emit, Registry: reg, Errs: errs, Log: log}
}

// Run clears the emitter's per-run instruction cursor and then walks the
// tree from its root exactly once (spec.md §4.7).
func (d *Driver) Run() bool {
	d.Emit.ResetChildren()
	d.ok = true
	behavior.Walk(d, d.Tree, d.Tree.CurrIdx())
	return d.ok
}

func (d *Driver) walk(idx int) bool {
	if idx == 0 {
		// 0 is both the root node's id and the zero value of an unset
		// floating-child slot (Cond/Conseq/Alt default to 0 when a
		// ParameterizedAction wasn't given all three). Only the root
		// itself is ever actually walked at id 0, and the driver never
		// walks the root as someone else's child, so treating an unset
		// slot as a no-op success is safe here.
		d.ok = true
		return true
	}
	behavior.Walk(d, d.Tree, idx)
	return d.ok
}

func (d *Driver) fail(format string, args ...any) bool {
	d.Errs.InternalError(false, fmt.Sprintf(format, args...))
	return false
}

// ==================== control dispatch ====================

func (d *Driver) VisitRoot(t *behavior.Tree, n *behavior.Node) {
	d.ok = d.walk(n.Child)
}

// VisitSequence runs every child in order, stopping at the first failure
// (spec.md §4.5/§4.7 "a Sequence visits all of them... stops at the first
// failure").
func (d *Driver) VisitSequence(t *behavior.Tree, n *behavior.Node) {
	for _, c := range n.Children {
		if !d.walk(c) {
			d.ok = false
			return
		}
	}
	d.ok = true
}

// VisitFallback runs children until one succeeds.
func (d *Driver) VisitFallback(t *behavior.Tree, n *behavior.Node) {
	for _, c := range n.Children {
		if d.walk(c) {
			d.ok = true
			return
		}
	}
	d.ok = false
}

// VisitDecorator gates its child per DecoratorTy. IsInstr/IsProbeMode act
// as selectors inside a Fallback: a mismatch must fail so a sibling event
// gets a turn. PredIs/HasAltCall act as optional gates inside a Sequence:
// a mismatch must still report success so emit_orig/remove_orig
// downstream still runs (spec.md §4.7).
func (d *Driver) VisitDecorator(t *behavior.Tree, n *behavior.Node) {
	switch n.DecoratorTy {
	case behavior.DecoratorIsInstr:
		if !d.instrMatches(n.InstrNames) {
			d.ok = false
			return
		}
		d.ok = d.walk(n.Child)

	case behavior.DecoratorIsProbeMode:
		if d.currMode != n.ProbeMode {
			d.ok = false
			return
		}
		d.ok = d.walk(n.Child)

	case behavior.DecoratorPredIs:
		b, known := fold.GetSingleBool(d.foldedPred)
		if known && b != n.PredVal {
			d.ok = true
			return
		}
		d.ok = d.walk(n.Child)

	case behavior.DecoratorHasAltCall:
		if !d.Emit.HasAltCall() {
			d.ok = true
			return
		}
		d.ok = d.walk(n.Child)

	default:
		d.ok = d.fail("unhandled decorator type")
	}
}

func (d *Driver) instrMatches(names []string) bool {
	if d.inLifecycle {
		for _, n := range names {
			if n == "" {
				return true
			}
		}
		return false
	}
	cur := d.Emit.CurrInstrType()
	for _, n := range names {
		if n == cur {
			return true
		}
	}
	return false
}

// VisitParameterizedAction drives emit_if/emit_if_else: the condition
// subtree runs first (pushing the predicate value), then the emitter opens
// the structured branch, then the consequent (and, for if/else, the
// alternate) subtree runs, then the branch is closed (spec.md §4.7;
// EmitCondition/EmitConsequent/EmitAlternate are no-ops on this editor
// except the else transition, which the emitter's EmitAlternate performs).
func (d *Driver) VisitParameterizedAction(t *behavior.Tree, n *behavior.Node) {
	switch n.ParamActionTy {
	case behavior.ParamActionEmitIf:
		if !d.walk(n.Cond) {
			d.ok = false
			return
		}
		if !d.Emit.EmitIf() {
			d.ok = false
			return
		}
		ok := d.walk(n.Conseq)
		if !d.Emit.FinishBranch() {
			ok = false
		}
		d.ok = ok

	case behavior.ParamActionEmitIfElse:
		if !d.walk(n.Cond) {
			d.ok = false
			return
		}
		if !d.Emit.EmitIfElse() {
			d.ok = false
			return
		}
		ok := d.walk(n.Conseq)
		if !d.Emit.EmitAlternate() {
			ok = false
		}
		if !d.walk(n.Alt) {
			ok = false
		}
		if !d.Emit.FinishBranch() {
			ok = false
		}
		d.ok = ok

	default:
		d.ok = d.fail("unhandled parameterized action type")
	}
}

// VisitArgAction drives save_params/emit_params, and binds arg0..argN-1
// symbol records into the live scope once their storage is known (spec.md
// §4.1 "positional argument names arg0…argN"): the arity depends on the
// concrete instruction, so it can't be declared statically by C4.
func (d *Driver) VisitArgAction(t *behavior.Tree, n *behavior.Node) {
	switch n.ArgActionTy {
	case behavior.ArgActionSaveParams:
		if !d.Emit.HasParams() {
			d.ok = n.ForceSuccess
			return
		}
		ok := d.Emit.SaveParams(n.ScopeName)
		if ok {
			d.declareArgs(n.ScopeName)
		}
		d.ok = ok

	case behavior.ArgActionEmitParams:
		if !d.Emit.HasParams() {
			d.ok = n.ForceSuccess
			return
		}
		d.ok = d.Emit.EmitParams(n.ScopeName)

	default:
		d.ok = d.fail("unhandled arg action type")
	}
}

func (d *Driver) declareArgs(name string) {
	for i, idx := range d.Emit.SavedParamLocals(name) {
		argName := fmt.Sprintf("arg%d", i)
		addr := idx
		d.Table.Declare(argName, symbols.Record{
			Kind:              symbols.RecVar,
			Name:              argName,
			VarTy:             ast.I32,
			VarIsCompProvided: true,
			VarAddr:           &addr,
		})
	}
}

// VisitActionWithChild drives EnterPackage (iterate every matching Wasm
// instruction, or run once for a lifecycle package with no instructions
// to iterate) and EnterProbe (run every attached before/after/lifecycle
// probe, or only the first alt-style probe, per spec.md §4.7).
func (d *Driver) VisitActionWithChild(t *behavior.Tree, n *behavior.Node) {
	switch n.ActionWithChildTy {
	case behavior.ActionWithChildEnterPackage:
		d.setContextInfo(n.Context)
		if !d.Emit.EnterNamedScope(n.ScopeName) {
			d.ok = d.fail("enter_package: no scope %q", n.ScopeName)
			return
		}
		defer d.Emit.ExitScope()

		lifecycle := len(n.Events) == 1 && n.Events[0] == ""
		if lifecycle {
			prev := d.inLifecycle
			d.inLifecycle = true
			d.ok = d.walk(n.Child)
			d.inLifecycle = prev
			return
		}

		d.Emit.InitInstrIter(n.Events)
		result := true
		for d.Emit.HasNextInstr() {
			d.Emit.NextInstr()
			if !d.walk(n.Child) {
				result = false
			}
		}
		d.ok = result

	case behavior.ActionWithChildEnterProbe:
		d.setContextInfo(n.Context)
		probes := d.AST.ProbesByContext[n.Context]
		if len(probes) == 0 {
			d.ok = true
			return
		}
		if !d.Emit.EnterNamedScope(n.ScopeName) {
			d.ok = d.fail("enter_probe: no scope %q", n.ScopeName)
			return
		}
		defer d.Emit.ExitScope()

		switch n.ScopeName {
		case "before", "after", "begin", "end":
			ok := true
			for _, p := range probes {
				d.currProbe = p
				if !d.walk(n.Child) {
					ok = false
				}
			}
			d.ok = ok
		default:
			// alt (or any user-defined alternate mode): only the
			// first-declared probe can replace the instruction
			// (spec.md "Ambiguities to preserve"); warn rather than
			// silently dropping the rest.
			if len(probes) > 1 {
				d.Log.Warnf("multiple %s probes matched %s; only the first fires", n.ScopeName, n.Context)
				d.Errs.InternalError(false, fmt.Sprintf("multiple %s probes matched %s; only the first fires", n.ScopeName, n.Context))
			}
			d.currProbe = probes[0]
			d.ok = d.walk(n.Child)
		}

	default:
		d.ok = d.fail("unhandled action-with-child type")
	}
}

// VisitAction drives every leaf action.
func (d *Driver) VisitAction(t *behavior.Tree, n *behavior.Node) {
	switch n.ActionTy {
	case behavior.ActionEnterScope:
		d.ok = d.Emit.EnterNamedScope(n.ScopeName)
	case behavior.ActionExitScope:
		d.Emit.ExitScope()
		d.ok = true
	case behavior.ActionDefine:
		d.setContextInfo(n.Context)
		d.defineCompilerGlobals()
		d.ok = true
	case behavior.ActionEmitGlobalStmts:
		d.ok = d.Emit.EmitGlobalStmts(n.GlobalStmts)
	case behavior.ActionEmitPred:
		d.ok = d.Emit.EmitExpr(d.foldedPred)
	case behavior.ActionFoldPred:
		d.foldPredicate()
		d.ok = true
	case behavior.ActionReset:
		d.Tree.Reset()
		d.ok = true
	case behavior.ActionEmitBody:
		d.ok = d.emitCurrentBody()
	case behavior.ActionEmitAltCall:
		d.ok = d.Emit.EmitAltCall()
	case behavior.ActionRemoveOrig:
		d.ok = d.Emit.RemoveOrig()
	case behavior.ActionEmitOrig:
		d.ok = d.Emit.EmitOrig()
	case behavior.ActionForceSuccess:
		d.ok = true
	default:
		d.ok = d.fail("unhandled action type")
	}
}

// ==================== helpers ====================

// setContextInfo splits an ActionWithChild's context key
// ("script:provider:package:event:mode") and records each part, mirroring
// the original's set_context_info (spec.md §4.7).
func (d *Driver) setContextInfo(context string) {
	parts := strings.SplitN(context, ":", 5)
	for len(parts) < 5 {
		parts = append(parts, "")
	}
	d.currScript, d.currProvider, d.currPackage, d.currEvent, d.currMode = parts[0], parts[1], parts[2], parts[3], parts[4]
}

func (d *Driver) foldPredicate() {
	if d.currProbe == nil || d.currProbe.Predicate == nil {
		d.foldedPred = ast.NewPrimitive(diagnostics.Location{}, ast.BoolValue(true))
		return
	}
	d.foldedPred = d.Emit.FoldExpr(d.currProbe.Predicate, tableEnv{d.Table})
}

func (d *Driver) emitCurrentBody() bool {
	if d.currProbe == nil || d.currProbe.Body == nil {
		return true
	}
	return d.Emit.EmitBody(d.currProbe.Body.Stmts)
}

// defineCompilerGlobals binds every registry-documented compiler global
// visible at the current event to a concrete value computed from the
// instruction the emitter's cursor is on (spec.md §4.1): target_fn_name
// for a call, local_idx for a local access, and so on.
// new_target_fn_name is skipped: it is write-only (an alt probe assigns
// it to redirect a call; emitter.go's emitStmt special-cases the
// assignment instead of reading this binding).
func (d *Driver) defineCompilerGlobals() {
	if d.currProvider == "" || d.currEvent == "" {
		return
	}
	for _, name := range d.Registry.EventGlobals(d.currProvider, d.currPackage, d.currEvent) {
		if name == "new_target_fn_name" {
			continue
		}
		v, ok := computeCompilerGlobal(d.currEvent, name, d.Emit.CurrentInstr(), d.Emit.Module)
		if !ok {
			continue
		}
		d.Emit.DefineCompilerVar(d.currEvent, name, v)
	}
}

type tableEnv struct{ table *symbols.Table }

func (e tableEnv) Lookup(name string) (ast.Value, bool) {
	id, ok := e.table.Lookup(name)
	if !ok {
		return ast.Value{}, false
	}
	rec := e.table.Record(id)
	if rec.Kind != symbols.RecVar || rec.VarValue == nil {
		return ast.Value{}, false
	}
	return *rec.VarValue, true
}

// ==================== compiler-global computation ====================

func computeCompilerGlobal(eventName, globalName string, instr *wasmmod.Instr, mod *wasmmod.Module) (ast.Value, bool) {
	switch globalName {
	case "local_idx":
		return ast.IntValue(int32(instr.LocalIdx)), true
	case "global_idx":
		return ast.IntValue(int32(instr.GlobalIdx)), true
	case "relative_depth":
		return ast.IntValue(instr.I32), true
	case "target_table_idx":
		return ast.IntValue(int32(instr.TableIdx)), true
	case "const_value":
		return ast.IntValue(instr.I32), true
	case "mem_offset":
		return ast.IntValue(int32(instr.Mem.Offset)), true
	case "mem_align":
		return ast.IntValue(int32(instr.Mem.Align)), true
	case "op":
		return ast.StrValue(eventName), true
	case "target_fn_type":
		return ast.StrValue(funcSignature(mod, instr)), true
	case "target_imp_module":
		m, _, ok := importedCallee(mod, instr)
		return ast.StrValue(m), ok
	case "target_imp_name":
		_, n, ok := importedCallee(mod, instr)
		return ast.StrValue(n), ok
	case "target_fn_name":
		return ast.StrValue(calleeName(mod, instr)), true
	default:
		return ast.Value{}, false
	}
}

func funcSignature(mod *wasmmod.Module, instr *wasmmod.Instr) string {
	var ft wasmmod.FuncType
	switch instr.Op {
	case wasmmod.OpCall:
		callee := int(instr.FuncIdx) - mod.NumImportedFuncs()
		if callee < 0 || callee >= len(mod.FuncTypes) {
			return ""
		}
		ft = mod.Types[mod.FuncTypes[callee]]
	case wasmmod.OpCallIndirect:
		if int(instr.TypeIdx) >= len(mod.Types) {
			return ""
		}
		ft = mod.Types[instr.TypeIdx]
	default:
		return ""
	}
	return formatFuncType(ft)
}

func formatFuncType(ft wasmmod.FuncType) string {
	var b strings.Builder
	b.WriteByte('(')
	for i, p := range ft.Params {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(wasmmod.ValueTypeName(p))
	}
	b.WriteString(")->(")
	for i, r := range ft.Results {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(wasmmod.ValueTypeName(r))
	}
	b.WriteByte(')')
	return b.String()
}

// importedCallee returns the (module, name) an OpCall targets if its
// callee is an import rather than a locally-defined function.
func importedCallee(mod *wasmmod.Module, instr *wasmmod.Instr) (string, string, bool) {
	if instr.Op != wasmmod.OpCall {
		return "", "", false
	}
	if int(instr.FuncIdx) >= mod.NumImportedFuncs() {
		return "", "", false
	}
	funcImportIdx := -1
	for _, imp := range mod.Imports {
		if imp.Kind != wasmmod.ExternKindFunc {
			continue
		}
		funcImportIdx++
		if funcImportIdx == int(instr.FuncIdx) {
			return imp.Module, imp.Name, true
		}
	}
	return "", "", false
}

func calleeName(mod *wasmmod.Module, instr *wasmmod.Instr) string {
	if instr.Op != wasmmod.OpCall {
		return ""
	}
	for _, exp := range mod.Exports {
		if exp.Kind == wasmmod.ExternKindFunc && exp.Index == instr.FuncIdx {
			return exp.Name
		}
	}
	if m, n, ok := importedCallee(mod, instr); ok {
		return m + "." + n
	}
	return fmt.Sprintf("func_%d", instr.FuncIdx)
}
