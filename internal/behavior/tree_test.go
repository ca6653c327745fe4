package behavior_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ejrgilbert/whammc/internal/behavior"
)

func TestNewTreeStartsAtRoot(t *testing.T) {
	tree := behavior.NewTree()
	assert.Equal(t, 0, tree.CurrIdx())
	assert.Equal(t, behavior.KindRoot, tree.Root().Kind)
}

func TestSequenceAppendsChildrenInOrder(t *testing.T) {
	tree := behavior.NewTree()
	tree.Sequence().Define("probe", "a").Define("probe", "b").ExitSequence()

	seqID := tree.Root().Child
	seq := tree.Node(seqID)
	require.Equal(t, behavior.KindSequence, seq.Kind)
	require.Len(t, seq.Children, 2)
	assert.Equal(t, "a", tree.Node(seq.Children[0]).VarName)
	assert.Equal(t, "b", tree.Node(seq.Children[1]).VarName)
	assert.Equal(t, 0, tree.CurrIdx(), "ExitSequence should return to root")
}

func TestDecoratorWrapsSingleChild(t *testing.T) {
	tree := behavior.NewTree()
	tree.Decorator(behavior.DecoratorIsProbeMode).EmitBody().ExitDecorator()

	dec := tree.Node(tree.Root().Child)
	require.Equal(t, behavior.KindDecorator, dec.Kind)
	child := tree.Node(dec.Child)
	assert.Equal(t, behavior.ActionEmitBody, child.ActionTy)
}

func TestParameterizedActionAssignsCondConseqAltSlots(t *testing.T) {
	tree := behavior.NewTree()
	tree.ParameterizedAction(behavior.ParamActionEmitIfElse)
	tree.EmitPred()
	tree.FoldPred()
	tree.ResetAction()
	tree.ExitParameterizedAction()

	action := tree.Node(tree.Root().Child)
	require.Equal(t, behavior.KindParameterizedAction, action.Kind)
	assert.Equal(t, behavior.ActionEmitPred, tree.Node(action.Cond).ActionTy)
	assert.Equal(t, behavior.ActionFoldPred, tree.Node(action.Conseq).ActionTy)
	assert.Equal(t, behavior.ActionReset, tree.Node(action.Alt).ActionTy)
}

func TestSaveParamsAndEmitParamsCarryScopeAndForceSuccess(t *testing.T) {
	tree := behavior.NewTree()
	tree.SaveParams("call", true)
	first := tree.Node(tree.Root().Child)
	assert.Equal(t, behavior.ArgActionSaveParams, first.ArgActionTy)
	assert.Equal(t, "call", first.ScopeName)
	assert.True(t, first.ForceSuccess)

	tree.EmitParams("call", true)
	second := tree.Node(tree.Root().Child)
	assert.Equal(t, behavior.ArgActionEmitParams, second.ArgActionTy)
	assert.Equal(t, "call", second.ScopeName)
	assert.True(t, second.ForceSuccess)
}

// recordingVisitor tallies which Visit* method fired for each node kind,
// confirming Walk's switch dispatches to the correct Visitor method.
type recordingVisitor struct {
	visited []behavior.NodeKind
}

func (r *recordingVisitor) VisitRoot(t *behavior.Tree, n *behavior.Node) {
	r.visited = append(r.visited, n.Kind)
	behavior.Walk(r, t, t.Root().Child)
}
func (r *recordingVisitor) VisitSequence(t *behavior.Tree, n *behavior.Node) {
	r.visited = append(r.visited, n.Kind)
	for _, c := range n.Children {
		behavior.Walk(r, t, c)
	}
}
func (r *recordingVisitor) VisitFallback(t *behavior.Tree, n *behavior.Node) {
	r.visited = append(r.visited, n.Kind)
}
func (r *recordingVisitor) VisitDecorator(t *behavior.Tree, n *behavior.Node) {
	r.visited = append(r.visited, n.Kind)
}
func (r *recordingVisitor) VisitParameterizedAction(t *behavior.Tree, n *behavior.Node) {
	r.visited = append(r.visited, n.Kind)
}
func (r *recordingVisitor) VisitArgAction(t *behavior.Tree, n *behavior.Node) {
	r.visited = append(r.visited, n.Kind)
}
func (r *recordingVisitor) VisitActionWithChild(t *behavior.Tree, n *behavior.Node) {
	r.visited = append(r.visited, n.Kind)
}
func (r *recordingVisitor) VisitAction(t *behavior.Tree, n *behavior.Node) {
	r.visited = append(r.visited, n.Kind)
}

func TestWalkDispatchesToMatchingVisitorMethod(t *testing.T) {
	tree := behavior.NewTree()
	tree.Sequence().Define("probe", "a").EmitBody().ExitSequence()

	v := &recordingVisitor{}
	behavior.Walk(v, tree, 0)

	require.Len(t, v.visited, 4)
	assert.Equal(t, behavior.KindRoot, v.visited[0])
	assert.Equal(t, behavior.KindSequence, v.visited[1])
	assert.Equal(t, behavior.KindAction, v.visited[2])
	assert.Equal(t, behavior.KindAction, v.visited[3])
}
