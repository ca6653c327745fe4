// Package symbols implements C4: a scope-stack symbol table builder over a
// verified ast.Whamm. Records live in a flat arena (spec.md §9 "Graph
// cycles": "all back-references are by integer index into stable arenas");
// scopes form a tree of frames with a curr_scope cursor, entering a
// container pushes a child frame, exiting pops to parent.
package symbols

import (
	"github.com/ejrgilbert/whammc/internal/ast"
	"github.com/ejrgilbert/whammc/internal/diagnostics"
)

// ScopeType names the kind of container a Scope frame represents, used by
// lookups that need to stop widening past a particular boundary (e.g. a
// probe body can see its event's globals but not a sibling probe's).
type ScopeType int

const (
	ScopeWhamm ScopeType = iota
	ScopeScript
	ScopeProvider
	ScopePackage
	ScopeEvent
	ScopeProbe
	ScopeFn
)

func (t ScopeType) String() string {
	names := [...]string{"whamm", "script", "provider", "package", "event", "probe", "fn"}
	if int(t) < len(names) {
		return names[t]
	}
	return "?"
}

// RecordKind discriminates the Record union.
type RecordKind int

const (
	RecVar RecordKind = iota
	RecFn
	RecWhamm
	RecScript
	RecProvider
	RecPackage
	RecEvent
	RecProbe
)

// Record is one entry in the table's arena. Exactly the fields matching
// Kind are meaningful; this mirrors the original's enum-of-structs Record
// type as a single struct with a discriminant, the common Go encoding of a
// closed sum when each variant needs different fields but the rest of the
// compiler wants one handle type to index by.
type Record struct {
	Kind RecordKind
	Name string
	Loc  *diagnostics.Location

	// Var
	VarTy             ast.DataType
	VarValue          *ast.Value
	VarIsCompProvided bool
	VarAddr           *int
	// VarScope is the ScopeType the var was declared in, so the emitter
	// can tell a script/provider/package/event-scoped global (backed by a
	// Wasm global once materialized) from a probe/fn-scoped local (backed
	// by a Wasm local) when it lazily allocates storage on first use.
	VarScope ScopeType

	// Fn
	FnParams []ast.Param
	FnRetTy  ast.DataType
	FnIsComp bool

	// Container records (Whamm/Script/Provider/Package/Event/Probe): ids of
	// child records, scoped by kind.
	Fns      []int
	Globals  []int
	Scripts  []int
	Probes   []int
	Children []int // providers, packages, or events, depending on Kind

	// Probe-only
	Mode string
}

// Scope is one frame of the scope tree; ChildByName resolves an identifier
// declared directly in this frame.
type Scope struct {
	Name        string
	Type        ScopeType
	Parent      int            // index into Table.scopes; -1 for the root
	ChildByName map[string]int // name -> record id, for lookups
	RecordID    int            // the record this scope was opened for (-1 for the synthetic root)

	// childScopes maps a sub-scope's name to its index in Table.scopes, so
	// a later pass (typecheck, the instrumentation driver) can re-enter
	// the exact scope the builder created instead of opening a fresh,
	// empty one (spec.md §4.7 ModuleEditor.enter_named_scope).
	childScopes map[string]int
}

// Table is the symbol table: a record arena plus a scope tree and a
// current-scope cursor, built by Builder and consumed by the verifier (C5)
// and later phases for name resolution.
type Table struct {
	records []Record
	scopes  []Scope
	curr    int // index into scopes

	CurrWhamm, CurrScript, CurrProvider, CurrPackage, CurrEvent, CurrProbe, CurrFn int
}

func NewTable() *Table {
	t := &Table{CurrWhamm: -1, CurrScript: -1, CurrProvider: -1, CurrPackage: -1, CurrEvent: -1, CurrProbe: -1, CurrFn: -1}
	t.scopes = append(t.scopes, Scope{Name: "root", Type: ScopeWhamm, Parent: -1, ChildByName: map[string]int{}, childScopes: map[string]int{}, RecordID: -1})
	t.curr = 0
	return t
}

func (t *Table) Record(id int) *Record { return &t.records[id] }

// put inserts a record into the arena and registers it by name in the
// current scope.
func (t *Table) put(name string, r Record) int {
	id := len(t.records)
	t.records = append(t.records, r)
	t.scopes[t.curr].ChildByName[name] = id
	return id
}

// EnterScope pushes a new child frame of the given type, naming it and
// recording which arena record it belongs to. The frame is registered
// under the current scope so a later pass can return to it by name via
// EnterNamedScope.
func (t *Table) EnterScope(name string, ty ScopeType, recordID int) {
	t.scopes = append(t.scopes, Scope{Name: name, Type: ty, Parent: t.curr, ChildByName: map[string]int{}, childScopes: map[string]int{}, RecordID: recordID})
	id := len(t.scopes) - 1
	t.scopes[t.curr].childScopes[name] = id
	t.curr = id
}

// EnterNamedScope pushes the existing child scope of the current frame
// matching name (created earlier by EnterScope), returning false if no
// such child scope exists (spec.md §4.7).
func (t *Table) EnterNamedScope(name string) bool {
	id, ok := t.scopes[t.curr].childScopes[name]
	if !ok {
		return false
	}
	t.curr = id
	return true
}

// ExitScope pops back to the parent frame.
func (t *Table) ExitScope() {
	if t.scopes[t.curr].Parent >= 0 {
		t.curr = t.scopes[t.curr].Parent
	}
}

// CurrScope returns the active frame.
func (t *Table) CurrScope() *Scope { return &t.scopes[t.curr] }

// Lookup resolves name by widening from the current scope outward to the
// root, per spec.md §4.4 ("resolves each VarId to a Var record").
func (t *Table) Lookup(name string) (int, bool) {
	for s := t.curr; s >= 0; {
		if id, ok := t.scopes[s].ChildByName[name]; ok {
			return id, true
		}
		s = t.scopes[s].Parent
	}
	return 0, false
}

// LookupLocal resolves name only within the current scope (used by the
// duplicate-identifier check, which must not see shadowed outer names).
func (t *Table) LookupLocal(name string) (int, bool) {
	id, ok := t.scopes[t.curr].ChildByName[name]
	return id, ok
}

// Declare inserts rec into the current scope under name, overwriting any
// existing binding. Used by the instrumentation driver (C8) to bind
// per-instruction dynamic names (arg0..argN, whose count depends on the
// concrete instruction being visited) that the static builder pass could
// never have seen.
func (t *Table) Declare(name string, rec Record) int {
	return t.put(name, rec)
}
