// Package specmatch implements C3: expanding a user's glob-style probe
// spec (`provider:package:event:mode`) against the C1 registry into the
// concrete set of (provider, package, event, mode) tuples it names, then
// cloning the user's probe into each matched leaf (spec.md §4.3).
package specmatch

import (
	"strings"

	"github.com/ejrgilbert/whammc/internal/ast"
	"github.com/ejrgilbert/whammc/internal/diagnostics"
	"github.com/ejrgilbert/whammc/internal/registry"
)

// ParsedSpec is a parsed `provider:package:event:mode` probe spec. Any
// part may be a glob pattern, may be empty (defaulting to "*" for
// everything but core's anonymous package/event position), or may carry
// `|` alternation, per spec.md §4.2.
type ParsedSpec struct {
	Provider, Package, Event, Mode string
	Loc                            diagnostics.Location
}

// ParseSpecText parses a colon-delimited probe spec string into a
// ParsedSpec. A bare single-word spec (`BEGIN`, `END`) is special-cased to
// `core:*:*:begin|end`'s mode component per spec.md §4.2; any other
// leading component left unspecified defaults to `*`.
func ParseSpecText(text string, loc diagnostics.Location) ParsedSpec {
	switch strings.ToUpper(text) {
	case "BEGIN":
		return ParsedSpec{Provider: "core", Package: "*", Event: "*", Mode: "begin", Loc: loc}
	case "END":
		return ParsedSpec{Provider: "core", Package: "*", Event: "*", Mode: "end", Loc: loc}
	}

	parts := strings.Split(text, ":")
	// Right-align: a spec always names its mode last; any missing leading
	// components default to "*" (spec.md §4.2).
	for len(parts) < 4 {
		parts = append([]string{"*"}, parts...)
	}
	p := parts[len(parts)-4:]
	for i, v := range p {
		if v == "" {
			p[i] = "*"
		}
	}
	return ParsedSpec{Provider: p[0], Package: p[1], Event: p[2], Mode: p[3], Loc: loc}
}

// Tuple is one concrete instrumentation point produced by expansion.
type Tuple struct {
	Provider, Package, Event, Mode string
}

// Expand computes the cross product of glob matches at each of the four
// levels against reg, in registry insertion order (spec.md §4.3 "keep
// order stable"). It reports a NoMatches diagnostic at the first level
// with zero matches and stops descending further, mirroring the original:
// an empty match at any level is an error, not silently-empty output.
func Expand(reg *registry.Registry, spec ParsedSpec, errs *diagnostics.Collector) []Tuple {
	providers := matchLevel(reg.Root, spec.Provider)
	if len(providers) == 0 {
		errs.NoMatches(spec.Loc, spec.Provider)
		return nil
	}

	var out []Tuple
	for _, prov := range providers {
		provNode := reg.Root.Children[prov]
		pkgs := matchLevel(provNode, spec.Package)
		if len(pkgs) == 0 {
			errs.NoMatches(spec.Loc, spec.Package)
			continue
		}
		for _, pkg := range pkgs {
			pkgNode := provNode.Children[pkg]
			events := matchLevel(pkgNode, spec.Event)
			if len(events) == 0 {
				errs.NoMatches(spec.Loc, spec.Event)
				continue
			}
			for _, evt := range events {
				evtNode := pkgNode.Children[evt]
				modes := matchLevel(evtNode, spec.Mode)
				if len(modes) == 0 {
					errs.NoMatches(spec.Loc, spec.Mode)
					continue
				}
				for _, mode := range modes {
					out = append(out, Tuple{prov, pkg, evt, mode})
				}
			}
		}
	}
	return out
}

// matchLevel returns the child keys of n whose name matches pattern,
// iterating in a stable (sorted-by-insertion, i.e. registry declaration)
// order. The registry itself only ever has one anonymous ("") child for
// core's package/event level; that still participates in normal glob
// matching since "*" matches the empty string.
func matchLevel(n *registry.Node, pattern string) []string {
	if n == nil {
		return nil
	}
	var out []string
	for _, name := range n.orderedChildNames() {
		if globMatch(pattern, name) {
			out = append(out, name)
		}
	}
	return out
}

// AttachProbe clones probeTemplate into the AST script tree at every
// matched leaf, creating Provider/Package/Event containers on demand the
// first time they're visited for this script (spec.md §4.3).
func AttachProbe(script *ast.Script, tuples []Tuple, probeTemplate *ast.Probe) {
	for _, t := range tuples {
		provider := ensureProvider(script, t.Provider)
		pkg := ensurePackage(provider, t.Package)
		event := ensureEvent(pkg, t.Event)

		probe := probeTemplate.Clone()
		probe.Mode = t.Mode
		event.ProbeMap[t.Mode] = append(event.ProbeMap[t.Mode], probe)
	}
}

func ensureProvider(script *ast.Script, name string) *ast.Provider {
	if script.Providers == nil {
		script.Providers = map[string]*ast.Provider{}
	}
	p, ok := script.Providers[name]
	if !ok {
		p = &ast.Provider{Name: name, Packages: map[string]*ast.Package{}, Globals: map[string]ast.Global{}}
		script.Providers[name] = p
	}
	return p
}

func ensurePackage(provider *ast.Provider, name string) *ast.Package {
	p, ok := provider.Packages[name]
	if !ok {
		p = &ast.Package{Name: name, Events: map[string]*ast.Event{}, Globals: map[string]ast.Global{}}
		provider.Packages[name] = p
	}
	return p
}

func ensureEvent(pkg *ast.Package, name string) *ast.Event {
	e, ok := pkg.Events[name]
	if !ok {
		e = &ast.Event{Name: name, ProbeMap: map[string][]*ast.Probe{}, Globals: map[string]ast.Global{}}
		pkg.Events[name] = e
	}
	return e
}
