// Package registry implements C1: the static tree of provider -> package ->
// event -> mode tuples, with per-node docs and compiler-provided globals,
// against which user probe specs are matched (spec.md §4.1).
package registry

// Node is one level of the registry tree. Leaf nodes (modes) carry no
// children; every other level carries Children keyed by name.
type Node struct {
	Name     string
	Docs     string
	Globals  []string // compiler-provided globals visible at this scope
	Children map[string]*Node
	order    []string // insertion order of Children keys, for stable iteration
}

func newNode(name, docs string) *Node {
	return &Node{Name: name, Docs: docs, Children: map[string]*Node{}}
}

func (n *Node) addChild(name, docs string, globals ...string) *Node {
	c := newNode(name, docs)
	c.Globals = globals
	n.Children[name] = c
	n.order = append(n.order, name)
	return c
}

// orderedChildNames returns the Children keys in registry declaration
// order (spec.md §4.3 "keep order stable by iteration over the registry
// in insertion order").
func (n *Node) orderedChildNames() []string {
	return n.order
}

// ChildNames exposes orderedChildNames to callers outside this package,
// such as `whammc doc`, that need to walk the tree in declaration order.
func (n *Node) ChildNames() []string {
	return n.orderedChildNames()
}

// Registry is the root of the provider tree (spec.md §4.1): two top-level
// providers, `core` and `wasm`.
type Registry struct {
	Root *Node
}

// coreBody are the (package, event) pair "core" provides: a single empty
// package/event pair.
const coreBody = "(empty)"

// wasmBytecodeEvents enumerates one event per Wasm opcode family named in
// spec.md §4.1, each with modes before/after/alt and documented
// compiler-provided globals per event.
var wasmBytecodeEvents = []struct {
	name    string
	docs    string
	globals []string
}{
	{"block", "Entry to a `block` structured control-flow region.", nil},
	{"loop", "Entry to a `loop` structured control-flow region.", nil},
	{"call", "A direct function call.", []string{"target_fn_type", "target_imp_module", "target_imp_name", "target_fn_name", "new_target_fn_name"}},
	{"call_indirect", "An indirect (table-dispatched) function call.", []string{"target_fn_type", "target_table_idx"}},
	{"local_get", "Read of a local variable.", []string{"local_idx"}},
	{"local_set", "Write of a local variable.", []string{"local_idx"}},
	{"local_tee", "Write-and-keep of a local variable.", []string{"local_idx"}},
	{"global_get", "Read of a global variable.", []string{"global_idx"}},
	{"global_set", "Write of a global variable.", []string{"global_idx"}},
	{"const", "Push of a constant operand.", []string{"const_value"}},
	{"binop", "A binary numeric operator.", []string{"op"}},
	{"unop", "A unary numeric operator.", []string{"op"}},
	{"select", "A value-select instruction.", nil},
	{"unreachable", "The `unreachable` trap instruction.", nil},
	{"br", "An unconditional branch.", []string{"relative_depth"}},
	{"br_if", "A conditional branch.", []string{"relative_depth"}},
	{"if_else", "An `if`/`else` structured region.", nil},
	{"br_table", "A jump-table branch.", nil},
	{"drop", "A stack-drop instruction.", nil},
	{"return", "A function return.", nil},
	{"memory_size", "Query of linear memory size.", nil},
	{"memory_grow", "Growth of linear memory.", nil},
	{"memory_init", "Initialization from a passive data segment.", nil},
	{"data_drop", "Release of a passive data segment.", nil},
	{"memory_copy", "Bulk copy within linear memory.", nil},
	{"memory_fill", "Bulk fill of linear memory.", nil},
	{"load", "A typed memory load.", []string{"mem_offset", "mem_align"}},
	{"store", "A typed memory store.", []string{"mem_offset", "mem_align"}},
	{"atomic_notify", "A threads-proposal atomic notify.", nil},
	{"atomic_wait", "A threads-proposal atomic wait.", nil},
	{"atomic_fence", "A threads-proposal atomic fence.", nil},
	{"atomic_rmw", "A threads-proposal atomic read-modify-write.", nil},
	{"table_get", "Read of a table element.", nil},
	{"table_set", "Write of a table element.", nil},
	{"table_init", "Initialization of table elements.", nil},
	{"table_copy", "Bulk copy between tables.", nil},
	{"table_grow", "Growth of a table.", nil},
	{"table_size", "Query of table size.", nil},
	{"table_fill", "Bulk fill of a table.", nil},
	{"elem_drop", "Release of a passive element segment.", nil},
	{"ref_null", "Push of a null reference.", nil},
	{"ref_is_null", "Test of a reference for null.", nil},
	{"ref_func", "Push of a function reference.", nil},
	{"v128_load", "A SIMD vector load.", nil},
	{"v128_store", "A SIMD vector store.", nil},
	{"v128_const", "A SIMD vector constant.", nil},
	{"v128_binop", "A SIMD vector binary operator.", nil},
	{"v128_unop", "A SIMD vector unary operator.", nil},
	{"v128_bitselect", "A SIMD lane-wise bit-select.", nil},
	{"i8x16_swizzle", "A SIMD byte-lane swizzle.", nil},
	{"i8x16_shuffle", "A SIMD byte-lane shuffle.", nil},
}

var probeModes = []string{"before", "after", "alt"}
var coreModes = []string{"begin", "end"}

// New constructs the static registry tree described in spec.md §4.1.
func New() *Registry {
	root := newNode("", "root")

	core := root.addChild("core", "Lifecycle probes that fire once per instrumented program run.")
	corePkg := core.addChild("", coreBody)
	coreEvt := corePkg.addChild("", coreBody)
	for _, m := range coreModes {
		coreEvt.addChild(m, "Fires at program "+m+".")
	}

	wasm := root.addChild("wasm", "Probes attached directly to Wasm bytecode locations.")
	bytecode := wasm.addChild("bytecode", "One event per Wasm opcode family.")
	for _, e := range wasmBytecodeEvents {
		evt := bytecode.addChild(e.name, e.docs, e.globals...)
		for _, m := range probeModes {
			evt.addChild(m, modeDocs(m))
		}
	}

	return &Registry{Root: root}
}

func modeDocs(mode string) string {
	switch mode {
	case "before":
		return "Fires immediately before the matched instruction; the original instruction is preserved."
	case "after":
		return "Fires immediately after the matched instruction; the original instruction is preserved."
	case "alt":
		return "Replaces the matched instruction; the original only emits if the predicate is false (or absent) and no alt call was taken."
	default:
		return ""
	}
}

// Providers returns the top-level provider names, in declaration order.
func (r *Registry) Providers() []string {
	return r.Root.orderedChildNames()
}

// Lookup descends provider -> package -> event -> mode, returning the node
// at that exact path, or nil if any segment is absent. An empty segment
// (used by `core`'s single anonymous package/event) matches the "" key.
func (r *Registry) Lookup(path ...string) *Node {
	n := r.Root
	for _, seg := range path {
		if n == nil {
			return nil
		}
		n = n.Children[seg]
	}
	return n
}

// EventGlobals returns the compiler-provided globals documented for the
// concrete (provider, pkg, event) triple.
func (r *Registry) EventGlobals(provider, pkg, event string) []string {
	n := r.Lookup(provider, pkg, event)
	if n == nil {
		return nil
	}
	return n.Globals
}
