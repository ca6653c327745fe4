package symbols

import (
	"github.com/ejrgilbert/whammc/internal/ast"
	"github.com/ejrgilbert/whammc/internal/diagnostics"
)

// Builder walks a Whamm AST and materializes its symbol table: a scope per
// container (Whamm/Script/Provider/Package/Event/Probe/Fn) and a record per
// declaration (spec.md §4.4).
type Builder struct {
	Table *Table
	errs  *diagnostics.Collector
}

func NewBuilder(errs *diagnostics.Collector) *Builder {
	return &Builder{Table: NewTable(), errs: errs}
}

// Build populates and returns the symbol table for w.
func (b *Builder) Build(w *ast.Whamm) *Table {
	whammRec := Record{Kind: RecWhamm, Name: "whamm"}
	id := b.Table.put("whamm", whammRec)
	b.Table.EnterScope("whamm", ScopeWhamm, id)

	for name, g := range w.Globals {
		b.addGlobal(name, g)
	}
	for _, f := range w.Fns {
		b.addFn(f)
	}
	for _, script := range w.Scripts {
		b.addScript(script)
	}
	return b.Table
}

// checkDuplicate reports a duplicate-identifier or compiler-fn-overload
// error if name is already bound in the current scope, per spec.md §4.4:
// "if a redeclaration of a compiler-provided name appears at user scope,
// emit an overload error; if both declarations have locations, emit a
// duplicate-identifier error referencing both."
func (b *Builder) checkDuplicate(name string, loc *diagnostics.Location) bool {
	other, ok := b.Table.LookupLocal(name)
	if !ok {
		return false
	}
	rec := b.Table.Record(other)
	if loc != nil && rec.Loc != nil {
		b.errs.DuplicateIdentifier(*loc, rec.Loc, name)
		return true
	}
	if loc != nil && rec.Loc == nil && ((rec.Kind == RecFn && rec.FnIsComp) || (rec.Kind == RecVar && rec.VarIsCompProvided)) {
		b.errs.CompilerFnOverload(*loc, name)
		return true
	}
	return true
}

func (b *Builder) addGlobal(name string, g ast.Global) {
	if b.checkDuplicate(name, g.Loc) {
		return
	}
	id := b.Table.put(name, Record{
		Kind: RecVar, Name: name, Loc: g.Loc,
		VarTy: g.Ty, VarValue: g.Value, VarIsCompProvided: g.IsCompProvided,
		VarScope: b.Table.CurrScope().Type,
	})
	b.addGlobalIDToCurrRec(id)
}

func (b *Builder) addGlobalIDToCurrRec(id int) {
	rec := b.Table.Record(b.Table.CurrScope().RecordID)
	rec.Globals = append(rec.Globals, id)
}

func (b *Builder) addFnIDToCurrRec(id int) {
	rec := b.Table.Record(b.Table.CurrScope().RecordID)
	rec.Fns = append(rec.Fns, id)
}

func (b *Builder) addFn(f *ast.Fn) {
	if other, ok := b.Table.LookupLocal(f.Name.Name); ok {
		rec := b.Table.Record(other)
		switch {
		case f.Name.Loc != nil && rec.Loc != nil:
			b.errs.DuplicateIdentifier(*f.Name.Loc, rec.Loc, f.Name.Name)
		case f.Name.Loc != nil && rec.Kind == RecFn && rec.FnIsComp:
			b.errs.CompilerFnOverload(*f.Name.Loc, f.Name.Name)
		}
		return
	}

	id := b.Table.put(f.Name.Name, Record{
		Kind: RecFn, Name: f.Name.Name, Loc: f.Name.Loc,
		FnParams: f.Params, FnRetTy: f.ReturnTy, FnIsComp: f.IsCompProvided,
	})
	b.addFnIDToCurrRec(id)

	b.Table.EnterScope(f.Name.Name, ScopeFn, id)
	for _, param := range f.Params {
		b.Table.put(param.VarId.Name, Record{
			Kind: RecVar, Name: param.VarId.Name, Loc: paramLoc(param), VarTy: param.Ty,
		})
	}
	if f.Body != nil {
		b.addBodyLocals(f.Body.Stmts)
	}
	b.Table.ExitScope()
}

// addBodyLocals declares a Var record for every `i32 x;`-style Decl found
// directly in stmts, so the emitter's declareLocal (driven by the
// ActionEmitBody/ActionEmitPred behavior-tree actions, C9) finds a record
// to attach a local index to instead of failing "missing from symbol
// table". whamm statements are flat (spec.md §3 Statement has no nested
// block forms), so a single non-recursive pass over stmts is exhaustive.
func (b *Builder) addBodyLocals(stmts []ast.Statement) {
	for _, s := range stmts {
		d, ok := s.(*ast.Decl)
		if !ok {
			continue
		}
		loc := d.VarId.Loc()
		if b.checkDuplicate(d.VarId.Name, &loc) {
			continue
		}
		b.Table.put(d.VarId.Name, Record{
			Kind: RecVar, Name: d.VarId.Name, Loc: &loc, VarTy: d.Ty,
			VarScope: b.Table.CurrScope().Type,
		})
	}
}

func paramLoc(p ast.Param) *diagnostics.Location {
	if p.VarId == nil {
		return nil
	}
	l := p.VarId.Loc()
	return &l
}

func (b *Builder) addScript(script *ast.Script) {
	if b.checkDuplicate(script.Name, nil) {
		return
	}
	id := b.Table.put(script.Name, Record{Kind: RecScript, Name: script.Name})
	whammRec := b.Table.Record(b.Table.CurrScope().RecordID)
	whammRec.Scripts = append(whammRec.Scripts, id)

	b.Table.EnterScope(script.Name, ScopeScript, id)
	b.Table.CurrScript = id

	for name, g := range script.Globals {
		b.addGlobal(name, g)
	}
	for _, f := range script.Fns {
		b.addFn(f)
	}
	for _, provider := range script.Providers {
		b.addProvider(provider)
	}
	b.Table.ExitScope()
}

func (b *Builder) addProvider(provider *ast.Provider) {
	if b.checkDuplicate(provider.Name, nil) {
		return
	}
	id := b.Table.put(provider.Name, Record{Kind: RecProvider, Name: provider.Name})
	scriptRec := b.Table.Record(b.Table.CurrScope().RecordID)
	scriptRec.Children = append(scriptRec.Children, id)

	b.Table.EnterScope(provider.Name, ScopeProvider, id)
	b.Table.CurrProvider = id
	for name, g := range provider.Globals {
		b.addGlobal(name, g)
	}
	for _, f := range provider.Fns {
		b.addFn(f)
	}
	for _, pkg := range provider.Packages {
		b.addPackage(pkg)
	}
	b.Table.ExitScope()
}

func (b *Builder) addPackage(pkg *ast.Package) {
	if b.checkDuplicate(pkg.Name, nil) {
		return
	}
	id := b.Table.put(pkg.Name, Record{Kind: RecPackage, Name: pkg.Name})
	provRec := b.Table.Record(b.Table.CurrScope().RecordID)
	provRec.Children = append(provRec.Children, id)

	b.Table.EnterScope(pkg.Name, ScopePackage, id)
	b.Table.CurrPackage = id
	for name, g := range pkg.Globals {
		b.addGlobal(name, g)
	}
	for _, f := range pkg.Fns {
		b.addFn(f)
	}
	for _, evt := range pkg.Events {
		b.addEvent(evt)
	}
	b.Table.ExitScope()
}

func (b *Builder) addEvent(evt *ast.Event) {
	if b.checkDuplicate(evt.Name, nil) {
		return
	}
	id := b.Table.put(evt.Name, Record{Kind: RecEvent, Name: evt.Name})
	pkgRec := b.Table.Record(b.Table.CurrScope().RecordID)
	pkgRec.Children = append(pkgRec.Children, id)

	b.Table.EnterScope(evt.Name, ScopeEvent, id)
	b.Table.CurrEvent = id
	for name, g := range evt.Globals {
		b.addGlobal(name, g)
	}
	for _, f := range evt.Fns {
		b.addFn(f)
	}
	for mode, probes := range evt.ProbeMap {
		for _, probe := range probes {
			b.addProbe(mode, probe)
		}
	}
	b.Table.ExitScope()
}

func (b *Builder) addProbe(mode string, probe *ast.Probe) {
	id := b.Table.put(mode, Record{Kind: RecProbe, Name: mode, Mode: mode, Loc: &probe.Loc})
	evtRec := b.Table.Record(b.Table.CurrScope().RecordID)
	evtRec.Probes = append(evtRec.Probes, id)

	b.Table.EnterScope(mode, ScopeProbe, id)
	b.Table.CurrProbe = id
	for name, g := range probe.Globals {
		b.addGlobal(name, g)
	}
	for _, f := range probe.Fns {
		b.addFn(f)
	}
	if probe.Body != nil {
		b.addBodyLocals(probe.Body.Stmts)
	}
	b.Table.ExitScope()
}
