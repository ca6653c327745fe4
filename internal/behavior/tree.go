// Package behavior implements C6: the flat, index-based behavior-tree IR
// that the instrumentation driver (C8) walks to emit Wasm bytecode. Nodes
// live in a single slice addressed by integer index (spec.md §9 "Graph
// cycles... all back-references are by integer index into stable arenas");
// there are no pointers between nodes, which keeps the tree trivially
// clonable and avoids the ownership gymnastics a pointer-linked tree would
// need in a language with a borrow checker.
package behavior

import "github.com/ejrgilbert/whammc/internal/ast"

// NodeKind is the closed sum of behavior-tree node shapes (spec.md §4.5).
type NodeKind int

const (
	KindRoot NodeKind = iota
	KindSequence
	KindFallback
	KindDecorator
	KindParameterizedAction
	KindArgAction
	KindActionWithChild
	KindAction
)

// DecoratorType is a guard that gates whether its single child runs,
// matching the driver's documented decorator contract (spec.md §4.7).
type DecoratorType int

const (
	// DecoratorIsInstr gates a per-event subtree on the current Wasm
	// instruction's canonical event name matching one of InstrNames
	// (spec.md §4.5's package-level fallback sketch).
	DecoratorIsInstr DecoratorType = iota
	// DecoratorIsProbeMode gates a subtree on the probe mode currently
	// being visited equaling ProbeMode (spec.md §4.7).
	DecoratorIsProbeMode
	// DecoratorHasAltCall gates a subtree on the emitter reporting that
	// an alt-call is defined for the current probe (spec.md §4.7).
	DecoratorHasAltCall
	// DecoratorPredIs gates a subtree on the current probe's folded
	// predicate being the constant PredVal (spec.md §4.5, §4.7).
	DecoratorPredIs
)

// ParamActionType parameterizes a control node whose children are floating
// sub-trees addressed by role (cond/conseq/alt) rather than position.
type ParamActionType int

const (
	ParamActionEmitIf ParamActionType = iota
	ParamActionEmitIfElse
)

// ArgActionType is an action keyed off the event's SaveParams/EmitParams
// pair, which needs to know whether the event had zero params (in which
// case SaveParams also runs ForceSuccess, per spec.md §4.5 "SaveParams
// (force_success = true if no params)").
type ArgActionType int

const (
	ArgActionSaveParams ArgActionType = iota
	ArgActionEmitParams
)

// ActionWithChildType is an action that both does something and wraps a
// single nested subtree, used where a scope needs to be entered, acted
// within, then exited as one indivisible unit (EnterPackage/EnterProbe).
type ActionWithChildType int

const (
	ActionWithChildEnterPackage ActionWithChildType = iota
	ActionWithChildEnterProbe
)

// ActionType is a leaf action with no children.
type ActionType int

const (
	ActionEnterScope ActionType = iota
	ActionExitScope
	ActionDefine
	ActionEmitGlobalStmts
	ActionEmitPred
	ActionFoldPred
	ActionReset
	ActionEmitBody
	ActionEmitAltCall
	ActionRemoveOrig
	ActionEmitOrig
	ActionForceSuccess
)

// Node is the closed sum from spec.md §4.5, encoded as one struct with a
// Kind discriminant: only the fields matching Kind are meaningful. Parent
// is -1 for the root.
type Node struct {
	ID     int
	Parent int
	Kind   NodeKind

	// Sequence, Fallback
	Children []int

	// Decorator, ActionWithChild: single child
	Child int

	// Decorator
	DecoratorTy DecoratorType
	InstrNames  []string // IsInstr
	ProbeMode   string   // IsProbeMode
	PredVal     bool     // PredIs

	// ParameterizedAction
	ParamActionTy ParamActionType
	Cond, Conseq, Alt int // floating child ids; 0 means unset

	// ArgAction
	ArgActionTy   ArgActionType
	ForceSuccess  bool

	// ActionWithChild
	ActionWithChildTy ActionWithChildType
	Context           string
	ScopeName         string
	Events            []string

	// Action
	ActionTy ActionType
	VarName  string

	// ActionEmitGlobalStmts: baked in at build time since there is exactly
	// one global-statement list per script, unlike EmitBody/EmitPred which
	// read the driver's current-probe state because the same subtree is
	// shared across every probe attached to a context.
	GlobalStmts []ast.Statement
}

// Tree is the behavior tree: a node arena plus a cursor (spec.md §4.5
// "Node creation is via a builder API with a curr cursor").
type Tree struct {
	Nodes []Node
	curr  int
}

func NewTree() *Tree {
	return &Tree{Nodes: []Node{{ID: 0, Parent: -1, Kind: KindRoot}}, curr: 0}
}

func (t *Tree) Reset() { t.curr = 0 }

func (t *Tree) Node(idx int) *Node { return &t.Nodes[idx] }
func (t *Tree) Root() *Node        { return &t.Nodes[0] }
func (t *Tree) Curr() *Node        { return &t.Nodes[t.curr] }
func (t *Tree) CurrIdx() int       { return t.curr }

// putChild appends node to the arena and attaches it as a child of curr
// per that node kind's child-storage shape, returning the new node's id
// (or -1 if curr cannot take a child, e.g. it's a leaf Action).
func (t *Tree) putChild(n Node) int {
	newID := len(t.Nodes)
	n.ID = newID
	n.Parent = t.curr
	attached := true
	switch curr := &t.Nodes[t.curr]; curr.Kind {
	case KindRoot:
		curr.Child = newID
	case KindSequence, KindFallback:
		curr.Children = append(curr.Children, newID)
	case KindDecorator, KindActionWithChild:
		curr.Child = newID
	case KindParameterizedAction:
		idx := len(curr.Children)
		curr.Children = append(curr.Children, newID)
		t.assignParamSlot(curr, idx, newID)
	default:
		attached = false
	}
	if !attached {
		return -1
	}
	t.Nodes = append(t.Nodes, n)
	return newID
}

func (t *Tree) assignParamSlot(curr *Node, idx, id int) {
	switch curr.ParamActionTy {
	case ParamActionEmitIf:
		if idx == 0 {
			curr.Cond = id
		} else {
			curr.Conseq = id
		}
	case ParamActionEmitIfElse:
		switch idx {
		case 0:
			curr.Cond = id
		case 1:
			curr.Conseq = id
		default:
			curr.Alt = id
		}
	}
}

func (t *Tree) putChildAndEnter(n Node) int {
	id := t.putChild(n)
	if id >= 0 {
		t.curr = id
	}
	return id
}

// PutFloatingChild appends a node to the arena without attaching it to any
// parent's child list, for use as a ParameterizedAction's cond/conseq/alt
// argument; the slot itself is filled in separately by AttachParamSlot,
// which writes the floating subtree's root id into the parameterized
// action's cond/conseq/alt slot (spec.md §4.5 "Floating
// children... are created with put_floating_child, then attached by
// writing the specific slot").
func (t *Tree) PutFloatingChild(n Node) int {
	id := len(t.Nodes)
	n.ID = id
	t.Nodes = append(t.Nodes, n)
	return id
}

// AttachParamSlot writes a previously floating subtree's root id into
// curr's cond (0), conseq (1), or alt (2) slot, for callers that build the
// cond/conseq/alt subtrees out of order relative to the parameterized
// action's own child-index assignment.
func (t *Tree) AttachParamSlot(idx, id int) {
	curr := &t.Nodes[t.curr]
	if curr.Kind != KindParameterizedAction {
		return
	}
	curr.Children = append(curr.Children, id)
	t.assignParamSlot(curr, idx, id)
}

// ==================== control nodes ====================

func (t *Tree) Sequence() *Tree {
	t.putChildAndEnter(Node{Kind: KindSequence})
	return t
}

func (t *Tree) ExitSequence() *Tree { return t.exitToParent(KindSequence) }

func (t *Tree) Fallback() *Tree {
	t.putChildAndEnter(Node{Kind: KindFallback})
	return t
}

func (t *Tree) ExitFallback() *Tree { return t.exitToParent(KindFallback) }

func (t *Tree) Decorator(ty DecoratorType) *Tree {
	t.putChildAndEnter(Node{Kind: KindDecorator, DecoratorTy: ty})
	return t
}

func (t *Tree) ExitDecorator() *Tree { return t.exitToParent(KindDecorator) }

func (t *Tree) ParameterizedAction(ty ParamActionType) *Tree {
	t.putChildAndEnter(Node{Kind: KindParameterizedAction, ParamActionTy: ty})
	return t
}

func (t *Tree) ExitParameterizedAction() *Tree { return t.exitToParent(KindParameterizedAction) }

func (t *Tree) ActionWithChild(ty ActionWithChildType) *Tree {
	t.putChildAndEnter(Node{Kind: KindActionWithChild, ActionWithChildTy: ty})
	return t
}

func (t *Tree) ExitActionWithChild() *Tree { return t.exitToParent(KindActionWithChild) }

func (t *Tree) exitToParent(want NodeKind) *Tree {
	if t.Nodes[t.curr].Kind == want {
		t.curr = t.Nodes[t.curr].Parent
	}
	return t
}

// ==================== leaf actions ====================

func (t *Tree) Define(context, varName string) *Tree {
	t.putChild(Node{Kind: KindAction, ActionTy: ActionDefine, Context: context, VarName: varName})
	return t
}

func (t *Tree) EmitGlobalStmts(stmts []ast.Statement) *Tree {
	t.putChild(Node{Kind: KindAction, ActionTy: ActionEmitGlobalStmts, GlobalStmts: stmts})
	return t
}

func (t *Tree) EmitBody() *Tree {
	t.putChild(Node{Kind: KindAction, ActionTy: ActionEmitBody})
	return t
}

func (t *Tree) EmitOrig() *Tree {
	t.putChild(Node{Kind: KindAction, ActionTy: ActionEmitOrig})
	return t
}

func (t *Tree) EmitAltCall() *Tree {
	t.putChild(Node{Kind: KindAction, ActionTy: ActionEmitAltCall})
	return t
}

func (t *Tree) RemoveOrig() *Tree {
	t.putChild(Node{Kind: KindAction, ActionTy: ActionRemoveOrig})
	return t
}

func (t *Tree) EmitPred() *Tree {
	t.putChild(Node{Kind: KindAction, ActionTy: ActionEmitPred})
	return t
}

func (t *Tree) FoldPred() *Tree {
	t.putChild(Node{Kind: KindAction, ActionTy: ActionFoldPred})
	return t
}

func (t *Tree) ResetAction() *Tree {
	t.putChild(Node{Kind: KindAction, ActionTy: ActionReset})
	return t
}

func (t *Tree) EnterScope(scopeName string) *Tree {
	t.putChild(Node{Kind: KindAction, ActionTy: ActionEnterScope, ScopeName: scopeName})
	return t
}

func (t *Tree) ExitScope() *Tree {
	t.putChild(Node{Kind: KindAction, ActionTy: ActionExitScope})
	return t
}

func (t *Tree) ForceSuccessAction() *Tree {
	t.putChild(Node{Kind: KindAction, ActionTy: ActionForceSuccess})
	return t
}

// SaveParams pops the current instruction's operands into locals scoped
// under name, so the probe body can read them as arg0..argN and so they
// can be restored before the original instruction re-emits (EmitParams).
func (t *Tree) SaveParams(name string, forceSuccess bool) *Tree {
	t.putChild(Node{Kind: KindArgAction, ArgActionTy: ArgActionSaveParams, ScopeName: name, ForceSuccess: forceSuccess})
	return t
}

func (t *Tree) EmitParams(name string, forceSuccess bool) *Tree {
	t.putChild(Node{Kind: KindArgAction, ArgActionTy: ArgActionEmitParams, ScopeName: name, ForceSuccess: forceSuccess})
	return t
}
