package ast

import "github.com/ejrgilbert/whammc/internal/diagnostics"

// FnId names a function, with the optional Location used to distinguish a
// user declaration (has a span) from a compiler-provided one (does not) —
// the distinction check_duplicate_id in spec.md §4.4 relies on.
type FnId struct {
	Name string
	Loc  *diagnostics.Location
}

type Fn struct {
	Name           FnId
	Params         []Param
	ReturnTy       DataType
	Body           *Block
	IsCompProvided bool
}

type Param struct {
	VarId *VarId
	Ty    DataType
}

// Global is a provider/package/event/probe-scoped global variable
// declaration, as named in spec.md §3 and populated either by the user
// (global_stmts) or by the compiler (provided globals, e.g. `arg0`).
type Global struct {
	Name           string
	Ty             DataType
	IsCompProvided bool
	Value          *Value
	Loc            *diagnostics.Location
}

// ProvidedFunctionality carries human-readable docs for a compiler
// provided global or function, mirroring the registry's per-node docs
// (spec.md §4.1).
type ProvidedFunctionality struct {
	Docs string
}

type Probe struct {
	Mode      string
	Predicate Expr // nil if absent
	Body      *Block
	Fns       []*Fn
	Globals   map[string]Global
	Loc       diagnostics.Location
}

func (p *Probe) Clone() *Probe {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}

type Event struct {
	Name     string
	ProbeMap map[string][]*Probe // mode -> probes
	Fns      []*Fn
	Globals  map[string]Global
}

type Package struct {
	Name    string
	Events  map[string]*Event
	Fns     []*Fn
	Globals map[string]Global
}

type Provider struct {
	Name     string
	Packages map[string]*Package
	Fns      []*Fn
	Globals  map[string]Global
}

type Script struct {
	Name        string
	Providers   map[string]*Provider
	Fns         []*Fn
	Globals     map[string]Global
	GlobalStmts []Statement

	// PendingSpecs holds probe templates parsed but not yet expanded
	// against the registry; internal/compiler drains this after parsing
	// every script, via internal/specmatch.Expand + AttachProbe.
	PendingSpecs []PendingSpec
}

// PendingSpec pairs a parsed-but-unexpanded probe spec with the probe
// template it guards, bridging C2 (parser) and C3 (spec matching).
type PendingSpec struct {
	Spec  ParsedSpec
	Probe *Probe
}

// ParsedSpec mirrors specmatch.ParsedSpec's shape without importing the
// specmatch package (which itself imports ast), to avoid an import cycle.
// internal/compiler converts between the two with a trivial field copy.
type ParsedSpec struct {
	Provider, Package, Event, Mode string
	Loc                            diagnostics.Location
}

type Whamm struct {
	ProvidedProbes map[string]*Provider // the registry-backed provider tree, pre-matching
	Globals        map[string]Global
	Fns            []*Fn
	Scripts        []*Script
}

func NewWhamm() *Whamm {
	return &Whamm{
		ProvidedProbes: map[string]*Provider{},
		Globals:        map[string]Global{},
	}
}
