// Package compiler orchestrates C2 through C9 into the single entry point
// a caller (cmd/whammc, or an embedder) uses to turn one or more whamm
// scripts plus a Wasm binary into an instrumented Wasm binary (spec.md §2
// "one Compile call strings C2->C9 together").
package compiler

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ejrgilbert/whammc/internal/ast"
	"github.com/ejrgilbert/whammc/internal/behavior"
	"github.com/ejrgilbert/whammc/internal/diagnostics"
	"github.com/ejrgilbert/whammc/internal/driver"
	"github.com/ejrgilbert/whammc/internal/emitter"
	"github.com/ejrgilbert/whammc/internal/parser"
	"github.com/ejrgilbert/whammc/internal/registry"
	"github.com/ejrgilbert/whammc/internal/specmatch"
	"github.com/ejrgilbert/whammc/internal/symbols"
	"github.com/ejrgilbert/whammc/internal/typecheck"
	"github.com/ejrgilbert/whammc/internal/wasmmod"
)

// Log is the compiler's package-level logger (spec.md's ambient-stack rule
// carries structured logging even where functional non-goals exclude an
// observability layer). A caller embedding whammc can redirect its output
// via Log.SetOutput/Log.SetFormatter before calling Compile.
var Log = logrus.New()

// ScriptSource is one whamm source file to parse, named the way the
// parser's error spans reference it.
type ScriptSource struct {
	Path string
	Text string
}

// Options controls which registry providers a compile run may match
// against, letting a project's whammc.yaml (internal/compilerconfig)
// narrow the surface without touching scripts.
type Options struct {
	// EnabledProviders restricts spec expansion to these top-level
	// registry providers. Empty means every provider is enabled.
	EnabledProviders []string
}

// Result is a successful compile's output.
type Result struct {
	Wasm []byte
}

func (o Options) providerEnabled(name string) bool {
	if len(o.EnabledProviders) == 0 {
		return true
	}
	for _, p := range o.EnabledProviders {
		if p == name {
			return true
		}
	}
	return false
}

// Compile parses every source, expands and attaches its probe specs
// against the registry, verifies the result, builds the canonical
// behavior tree, decodes wasmBytes, and runs the instrumentation driver
// over it (spec.md §2 data flow; §7 "any unexpected-internal-error sets a
// fatal flag; the compile returns failure and no output is produced").
func Compile(sources []ScriptSource, wasmBytes []byte, opts Options) (*Result, *diagnostics.Collector) {
	errs := diagnostics.NewCollector()
	reg := registry.New()

	w := parsePhase(sources, errs)
	if errs.Fatal {
		return nil, errs
	}

	matchPhase(reg, w, opts, errs)
	seedCompilerGlobals(reg, w)
	seedImplicitGlobals(w)
	if errs.Fatal {
		return nil, errs
	}

	table := symbolsPhase(w, errs)
	if errs.Fatal {
		return nil, errs
	}

	typecheckPhase(table, w, errs)
	if errs.Fatal {
		return nil, errs
	}

	tree, simpleAST := behaviorPhase(w)

	mod, err := wasmmod.Decode(wasmBytes)
	if err != nil {
		errs.InternalError(true, fmt.Sprintf("decode wasm: %v", err))
		return nil, errs
	}

	out := emitPhase(tree, simpleAST, table, mod, reg, errs)
	if errs.Fatal {
		return nil, errs
	}
	return &Result{Wasm: out}, errs
}

func parsePhase(sources []ScriptSource, errs *diagnostics.Collector) *ast.Whamm {
	log := Log.WithField("phase", "parse")
	w := ast.NewWhamm()
	for _, src := range sources {
		log.Debugf("parsing %s", src.Path)
		script := parser.Parse(src.Text, src.Path, errs)
		w.Scripts = append(w.Scripts, script)
	}
	return w
}

// matchPhase drains every script's PendingSpecs (left by the parser)
// through C3, attaching each probe template to every concrete
// (provider, package, event, mode) tuple its spec names.
func matchPhase(reg *registry.Registry, w *ast.Whamm, opts Options, errs *diagnostics.Collector) {
	log := Log.WithField("phase", "specmatch")
	for _, script := range w.Scripts {
		for _, pending := range script.PendingSpecs {
			spec := specmatch.ParsedSpec{
				Provider: pending.Spec.Provider,
				Package:  pending.Spec.Package,
				Event:    pending.Spec.Event,
				Mode:     pending.Spec.Mode,
				Loc:      pending.Spec.Loc,
			}
			tuples := specmatch.Expand(reg, spec, errs)
			tuples = filterEnabledProviders(tuples, opts)
			log.Debugf("%s expanded to %d tuple(s)", spec.Provider+":"+spec.Package+":"+spec.Event+":"+spec.Mode, len(tuples))
			specmatch.AttachProbe(script, tuples, pending.Probe)
		}
		script.PendingSpecs = nil
	}
}

func filterEnabledProviders(tuples []specmatch.Tuple, opts Options) []specmatch.Tuple {
	if len(opts.EnabledProviders) == 0 {
		return tuples
	}
	out := tuples[:0]
	for _, t := range tuples {
		if opts.providerEnabled(t.Provider) {
			out = append(out, t)
		}
	}
	return out
}

// compilerGlobalTypes names the DataType each registry-documented
// compiler-provided global carries, so seedCompilerGlobals can declare a
// Var record the verifier (C5) checks real user expressions against.
var compilerGlobalTypes = map[string]ast.DataType{
	"target_fn_type":     ast.Str,
	"target_imp_module":  ast.Str,
	"target_imp_name":    ast.Str,
	"target_fn_name":     ast.Str,
	"new_target_fn_name": ast.Str,
	"op":                 ast.Str,
	"local_idx":          ast.I32,
	"global_idx":         ast.I32,
	"const_value":        ast.I32,
	"relative_depth":     ast.I32,
	"target_table_idx":   ast.I32,
	"mem_offset":         ast.I32,
	"mem_align":          ast.I32,
}

// seedCompilerGlobals declares a Var global for every registry-documented
// compiler-provided name visible at each matched event, so C4's builder
// creates a symbol record the driver can later bind a concrete value into
// (internal/driver.defineCompilerGlobals) and user expressions can
// reference by name during typechecking (spec.md §4.1).
func seedCompilerGlobals(reg *registry.Registry, w *ast.Whamm) {
	for _, script := range w.Scripts {
		for provName, provider := range script.Providers {
			for pkgName, pkg := range provider.Packages {
				for evtName, evt := range pkg.Events {
					for _, name := range reg.EventGlobals(provName, pkgName, evtName) {
						if _, exists := evt.Globals[name]; exists {
							continue
						}
						ty, ok := compilerGlobalTypes[name]
						if !ok {
							ty = ast.AssumeGood
						}
						evt.Globals[name] = ast.Global{Name: name, Ty: ty, IsCompProvided: true}
					}
				}
			}
		}
	}
}

// seedImplicitGlobals closes the other gap between C3 and C4: a probe
// body (or a script's bare top-level statements) may assign to a name
// with no preceding `i32 x;`-style Decl at all (spec.md §8 scenario 1,
// "wasm:bytecode:br:before { i = 0; } ... emit a store 0 into a newly
// created global i"). Such a name is promoted to a script-level global,
// inferring its DataType from the assigned literal where possible (any
// non-literal initializer falls back to ast.AssumeGood, same as a type
// error recovery path) — a name already declared by a Decl in the same
// body is a local, not a global, and is left alone.
func seedImplicitGlobals(w *ast.Whamm) {
	for _, script := range w.Scripts {
		promoteAssigns(script, script.GlobalStmts, map[string]ast.Global{})
		for _, provider := range script.Providers {
			for _, pkg := range provider.Packages {
				for _, evt := range pkg.Events {
					for _, probes := range evt.ProbeMap {
						for _, probe := range probes {
							if probe.Body == nil {
								continue
							}
							promoteAssigns(script, probe.Body.Stmts, evt.Globals)
						}
					}
				}
			}
		}
	}
}

// promoteAssigns scans stmts for `name = expr;` where name is neither
// Decl'd directly in stmts (a local) nor already known (alreadyKnown,
// e.g. the event's compiler-provided globals), declaring a script-level
// Global for every such name the first time it's seen.
func promoteAssigns(script *ast.Script, stmts []ast.Statement, alreadyKnown map[string]ast.Global) {
	locals := map[string]bool{}
	for _, s := range stmts {
		if d, ok := s.(*ast.Decl); ok {
			locals[d.VarId.Name] = true
		}
	}
	for _, s := range stmts {
		as, ok := s.(*ast.Assign)
		if !ok || locals[as.VarId.Name] {
			continue
		}
		name := as.VarId.Name
		if name == "new_target_fn_name" {
			continue // write-only compiler var; never a user global
		}
		if _, ok := alreadyKnown[name]; ok {
			continue
		}
		if _, ok := script.Globals[name]; ok {
			continue
		}
		loc := as.Loc()
		script.Globals[name] = ast.Global{Name: name, Ty: inferAssignType(as.Expr), Loc: &loc}
	}
}

// inferAssignType infers an implicit global's DataType from its first
// assigned value when it's a literal; anything else (an expression whose
// type can only be known after C5 resolves its operands) widens to
// AssumeGood, the same wildcard spec.md §3 documents for error recovery.
func inferAssignType(e ast.Expr) ast.DataType {
	if p, ok := e.(*ast.Primitive); ok {
		return p.Val.Ty
	}
	return ast.AssumeGood
}

func symbolsPhase(w *ast.Whamm, errs *diagnostics.Collector) *symbols.Table {
	Log.WithField("phase", "symbols").Debug("building symbol table")
	return symbols.NewBuilder(errs).Build(w)
}

func typecheckPhase(table *symbols.Table, w *ast.Whamm, errs *diagnostics.Collector) {
	Log.WithField("phase", "typecheck").Debug("verifying")
	typecheck.NewChecker(table, errs).Check(w)
}

func behaviorPhase(w *ast.Whamm) (*behavior.Tree, *behavior.SimpleAST) {
	Log.WithField("phase", "behavior").Debug("building behavior tree")
	return behavior.NewBuilder().Build(w)
}

func emitPhase(tree *behavior.Tree, simpleAST *behavior.SimpleAST, table *symbols.Table, mod *wasmmod.Module, reg *registry.Registry, errs *diagnostics.Collector) []byte {
	log := Log.WithField("phase", "emit")
	log.Debug("running instrumentation driver")
	em := emitter.New(mod, table, errs)
	drv := driver.New(tree, simpleAST, table, em, reg, errs, log)
	if !drv.Run() {
		log.Warn("instrumentation driver reported failure; output may be incomplete")
	}
	return em.Finish()
}
