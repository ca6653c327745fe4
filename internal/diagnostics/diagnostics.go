// Package diagnostics defines the error kinds produced across the whammc
// pipeline (spec.md §7) and renders them with a source-span caret, the way
// a compiler frontend reports user-facing errors.
package diagnostics

import "fmt"

// Kind is one of the seven error kinds the pipeline reports (spec.md §7).
type Kind int

const (
	KindParse Kind = iota
	KindUnresolvedIdentifier
	KindDuplicateIdentifier
	KindCompilerFnOverload
	KindType
	KindNoMatches
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindParse:
		return "parse error"
	case KindUnresolvedIdentifier:
		return "unresolved identifier"
	case KindDuplicateIdentifier:
		return "duplicate identifier"
	case KindCompilerFnOverload:
		return "compiler-function overload"
	case KindType:
		return "type error"
	case KindNoMatches:
		return "no matches"
	case KindInternal:
		return "internal error"
	default:
		return "error"
	}
}

// Diagnostic is one reported problem. A KindInternal diagnostic recorded
// with InternalError(true, ...) sets Collector.Fatal; everything else
// (including InternalError(false, ...)) is accumulated so
// that a single run can surface as many real problems as possible
// (spec.md §7 policy).
type Diagnostic struct {
	Kind     Kind
	Message  string
	Loc      Location
	OtherLoc *Location // set for duplicate-identifier errors referencing a second declaration
	Expected []string  // expected-token set for parse errors
}

func (d *Diagnostic) Error() string {
	if d.OtherLoc != nil {
		return fmt.Sprintf("%s: %s (%s) [also declared at %s]", d.Loc, d.Kind, d.Message, *d.OtherLoc)
	}
	return fmt.Sprintf("%s: %s (%s)", d.Loc, d.Kind, d.Message)
}

// Collector accumulates diagnostics across a compile run. Phases C2-C5
// continue collecting after a non-fatal error; a fatal one short-circuits
// the compile (spec.md §7).
type Collector struct {
	Diagnostics []*Diagnostic
	Fatal       bool
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) add(d *Diagnostic) {
	c.Diagnostics = append(c.Diagnostics, d)
}

func (c *Collector) ParseError(loc Location, msg string, expected []string) {
	c.add(&Diagnostic{Kind: KindParse, Message: msg, Loc: loc, Expected: expected})
}

func (c *Collector) UnresolvedIdentifier(loc Location, name string) {
	c.add(&Diagnostic{Kind: KindUnresolvedIdentifier, Message: fmt.Sprintf("unresolved identifier %q", name), Loc: loc})
}

func (c *Collector) DuplicateIdentifier(loc Location, other *Location, name string) {
	c.add(&Diagnostic{Kind: KindDuplicateIdentifier, Message: fmt.Sprintf("%q is already declared in this scope", name), Loc: loc, OtherLoc: other})
}

func (c *Collector) CompilerFnOverload(loc Location, name string) {
	c.add(&Diagnostic{Kind: KindCompilerFnOverload, Message: fmt.Sprintf("%q redeclares a compiler-provided name", name), Loc: loc})
}

func (c *Collector) TypeError(loc Location, msg string) {
	c.add(&Diagnostic{Kind: KindType, Message: msg, Loc: loc})
}

func (c *Collector) NoMatches(loc Location, part string) {
	c.add(&Diagnostic{Kind: KindNoMatches, Message: fmt.Sprintf("probe spec segment %q matched no instrumentation points", part), Loc: loc})
}

// InternalError marks the run fatal. fatal should almost always be true;
// it is a parameter (mirroring the original's ErrorGen.unexpected_error)
// so a caller can record a non-fatal "this looks like a bug" note during
// development without aborting the whole compile.
func (c *Collector) InternalError(fatal bool, msg string) {
	c.add(&Diagnostic{Kind: KindInternal, Message: msg})
	if fatal {
		c.Fatal = true
	}
}

func (c *Collector) HasErrors() bool {
	return len(c.Diagnostics) > 0
}
