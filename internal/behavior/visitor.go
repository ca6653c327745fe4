package behavior

// Visitor is the closed-sum dispatch contract for a behavior-tree walk
// (spec.md "Design Notes": "prefer closed sum types with exhaustive
// pattern matching per visitor... eliminates unreachable branches"). C8's
// instrumentation driver implements this; Walk drives the exhaustive
// switch so every node kind has exactly one call site.
type Visitor interface {
	VisitRoot(t *Tree, n *Node)
	VisitSequence(t *Tree, n *Node)
	VisitFallback(t *Tree, n *Node)
	VisitDecorator(t *Tree, n *Node)
	VisitParameterizedAction(t *Tree, n *Node)
	VisitArgAction(t *Tree, n *Node)
	VisitActionWithChild(t *Tree, n *Node)
	VisitAction(t *Tree, n *Node)
}

// Walk dispatches node to the matching Visitor method. It does not
// recurse on its own; each Visitor method decides whether and how to
// visit its children (a Fallback stops at the first successful child, a
// Sequence visits all of them, a Decorator may skip its child entirely).
func Walk(v Visitor, t *Tree, idx int) {
	n := &t.Nodes[idx]
	switch n.Kind {
	case KindRoot:
		v.VisitRoot(t, n)
	case KindSequence:
		v.VisitSequence(t, n)
	case KindFallback:
		v.VisitFallback(t, n)
	case KindDecorator:
		v.VisitDecorator(t, n)
	case KindParameterizedAction:
		v.VisitParameterizedAction(t, n)
	case KindArgAction:
		v.VisitArgAction(t, n)
	case KindActionWithChild:
		v.VisitActionWithChild(t, n)
	case KindAction:
		v.VisitAction(t, n)
	}
}
