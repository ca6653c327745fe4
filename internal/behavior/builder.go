package behavior

import (
	"fmt"

	"github.com/ejrgilbert/whammc/internal/ast"
)

// SimpleAST is the flat probe lookup map C6 produces alongside the tree
// (spec.md §2 data-flow: "behavior tree + SimpleAST (flat probe lookup
// map)"): a context key "script:provider:package:event:mode" to the
// concrete probes attached there, so the driver (C8) doesn't need to
// re-walk the nested AST once it's iterating Wasm instructions.
type SimpleAST struct {
	ProbesByContext map[string][]*ast.Probe
}

func newSimpleAST() *SimpleAST {
	return &SimpleAST{ProbesByContext: map[string][]*ast.Probe{}}
}

func contextKey(script, provider, pkg, event, mode string) string {
	return fmt.Sprintf("%s:%s:%s:%s:%s", script, provider, pkg, event, mode)
}

// Builder constructs the canonical behavior tree from a verified Whamm AST
// (spec.md §4.5): one static tree shared by every Wasm instruction the
// driver visits, with per-event/per-probe subtrees gated by decorators
// the driver evaluates using its current-instruction state.
type Builder struct {
	tree *Tree
	ast  *SimpleAST
}

func NewBuilder() *Builder {
	return &Builder{tree: NewTree(), ast: newSimpleAST()}
}

// Build walks w in order Whamm -> Script -> Provider -> Package -> Event ->
// Mode and returns the resulting tree plus its SimpleAST sibling.
func (b *Builder) Build(w *ast.Whamm) (*Tree, *SimpleAST) {
	b.tree.Sequence()
	for _, script := range w.Scripts {
		b.buildScript(script)
	}
	b.tree.ExitSequence()
	return b.tree, b.ast
}

func (b *Builder) buildScript(script *ast.Script) {
	b.tree.EnterScope(script.Name)
	b.tree.EmitGlobalStmts(script.GlobalStmts)
	for _, provider := range script.Providers {
		b.buildProvider(script.Name, provider)
	}
	b.tree.ExitScope()
}

func (b *Builder) buildProvider(scriptName string, provider *ast.Provider) {
	b.tree.EnterScope(provider.Name)
	for _, pkg := range provider.Packages {
		b.buildPackage(scriptName, provider.Name, pkg)
	}
	b.tree.ExitScope()
}

// buildPackage opens an ActionWithChild(EnterPackage) node: entering the
// package's scope and evaluating the fallback-over-events it wraps is a
// single unit of work at runtime, one per Wasm instruction the driver
// encounters (spec.md §4.5 "the driver iterates instructions here at
// run-time").
func (b *Builder) buildPackage(scriptName, providerName string, pkg *ast.Package) {
	t := b.tree
	eventNames := make([]string, 0, len(pkg.Events))
	for name := range pkg.Events {
		eventNames = append(eventNames, name)
	}

	t.putChildAndEnter(Node{
		Kind:              KindActionWithChild,
		ActionWithChildTy: ActionWithChildEnterPackage,
		Context:           contextKey(scriptName, providerName, pkg.Name, "", ""),
		ScopeName:         pkg.Name,
		Events:            eventNames,
	})

	t.Fallback()
	for name, evt := range pkg.Events {
		b.buildEvent(scriptName, providerName, pkg.Name, name, evt)
	}
	t.ExitFallback()

	t.ExitActionWithChild()
}

func (b *Builder) buildEvent(scriptName, providerName, pkgName, eventName string, evt *ast.Event) {
	t := b.tree
	t.Decorator(DecoratorIsInstr)
	t.Nodes[t.CurrIdx()].InstrNames = []string{eventName}

	t.Sequence()
	t.EnterScope(eventName)
	t.Define(contextKey(scriptName, providerName, pkgName, eventName, ""), "")
	// Only a call's operands are ever saved as params (emitter.HasParams),
	// so every other event's SaveParams/EmitParams forces success.
	hasParams := eventName == "call"
	t.SaveParams(eventName, !hasParams)

	for mode, probes := range evt.ProbeMap {
		key := contextKey(scriptName, providerName, pkgName, eventName, mode)
		b.ast.ProbesByContext[key] = append(b.ast.ProbesByContext[key], probes...)
		b.buildProbeMode(key, mode, eventName, hasParams)
	}
	t.ExitScope()
	t.ExitSequence()

	t.ExitDecorator()
}

// buildProbeMode builds the per-mode subtree (spec.md §4.5): an
// EnterProbe wrapper (ActionWithChild) around the before/after/alt shape.
func (b *Builder) buildProbeMode(context, mode, eventName string, hasParams bool) {
	t := b.tree
	t.putChildAndEnter(Node{
		Kind:              KindActionWithChild,
		ActionWithChildTy: ActionWithChildEnterProbe,
		Context:           context,
		ScopeName:         mode,
	})

	switch mode {
	case "before":
		b.buildBefore(eventName, hasParams)
	case "after":
		b.buildAfter(eventName, hasParams)
	case "begin", "end":
		b.buildLifecycle()
	default: // "alt" and any user-defined alternate mode
		b.buildAlt(eventName, hasParams)
	}

	t.ExitActionWithChild()
}

func (b *Builder) buildBefore(eventName string, hasParams bool) {
	t := b.tree
	t.Sequence()
	t.FoldPred()
	t.Decorator(DecoratorPredIs)
	t.Nodes[t.CurrIdx()].PredVal = true

	t.ParameterizedAction(ParamActionEmitIf)
	t.Sequence()
	t.EmitPred()
	t.ExitSequence() // attached as cond (idx 0)
	t.Sequence()
	t.EmitBody()
	t.ExitSequence() // attached as conseq (idx 1)
	t.ExitParameterizedAction()

	t.ExitDecorator()
	t.EmitParams(eventName, !hasParams)
	t.EmitOrig()
	t.ExitSequence()
}

func (b *Builder) buildAfter(eventName string, hasParams bool) {
	t := b.tree
	t.Sequence()
	t.EmitParams(eventName, !hasParams)
	t.EmitOrig()
	t.FoldPred()
	t.Decorator(DecoratorPredIs)
	t.Nodes[t.CurrIdx()].PredVal = true

	t.ParameterizedAction(ParamActionEmitIf)
	t.Sequence()
	t.EmitPred()
	t.ExitSequence()
	t.Sequence()
	t.EmitBody()
	t.ExitSequence()
	t.ExitParameterizedAction()

	t.ExitDecorator()
	t.ExitSequence()
}

// buildLifecycle builds the subtree for core's begin/end modes (spec.md
// §4.3 "core... a single empty package/event and modes begin, end"): there
// is no underlying Wasm instruction to preserve or replace, so this is
// just a conditional body emission, not emit_orig/remove_orig.
func (b *Builder) buildLifecycle() {
	t := b.tree
	t.Sequence()
	t.FoldPred()
	t.Decorator(DecoratorPredIs)
	t.Nodes[t.CurrIdx()].PredVal = true

	t.ParameterizedAction(ParamActionEmitIf)
	t.Sequence()
	t.EmitPred()
	t.ExitSequence()
	t.Sequence()
	t.EmitBody()
	t.ExitSequence()
	t.ExitParameterizedAction()

	t.ExitDecorator()
	t.ExitSequence()
}

func (b *Builder) buildAlt(eventName string, hasParams bool) {
	t := b.tree
	t.Sequence()
	t.FoldPred()
	t.Decorator(DecoratorPredIs)
	t.Nodes[t.CurrIdx()].PredVal = true

	t.ParameterizedAction(ParamActionEmitIfElse)
	t.Sequence()
	t.EmitPred()
	t.ExitSequence() // cond
	t.Sequence()
	t.EmitBody()
	t.Decorator(DecoratorHasAltCall)
	t.EmitAltCall()
	t.ExitDecorator()
	t.ExitSequence() // conseq
	t.Sequence()
	t.EmitParams(eventName, !hasParams)
	t.EmitOrig()
	t.ExitSequence() // alt
	t.ExitParameterizedAction()

	t.ExitDecorator()
	t.RemoveOrig()
	t.ExitSequence()
}
