package parser

import (
	"strings"

	"github.com/ejrgilbert/whammc/internal/ast"
	"github.com/ejrgilbert/whammc/internal/lexer"
	"github.com/ejrgilbert/whammc/internal/specmatch"
)

// specTokenKinds is the set of token kinds that can appear inside a probe
// spec: identifiers, `:` separators, and the glob metacharacters `*`, `?`,
// `|` (spec.md §4.2).
func isSpecToken(k lexer.Kind) bool {
	switch k {
	case lexer.Ident, lexer.Colon, lexer.Star, lexer.Question, lexer.Pipe:
		return true
	default:
		return false
	}
}

// parseProbeDef parses `SPEC ('/' predicate '/')? '{' stmt* '}'` and
// records the raw probe template on script.GlobalStmts's sibling list of
// pending specs; expansion against the registry happens later (C3, driven
// by internal/compiler) once every script has been parsed.
func (p *Parser) parseProbeDef(script *ast.Script) {
	start := p.cur.Loc
	var sb strings.Builder
	end := start
	for isSpecToken(p.cur.Kind) {
		sb.WriteString(p.cur.Text)
		end = p.cur.Loc
		p.advance()
	}
	specText := sb.String()
	specLoc := spanFrom(start, end)

	if specText == "" {
		p.errs.ParseError(p.cur.Loc, "expected a probe spec (e.g. wasm:bytecode:call:before)", nil)
		p.recoverTopLevel()
		return
	}

	var predicate ast.Expr
	if p.cur.Kind == lexer.Slash {
		p.advance()
		predicate = p.parseExpr()
		p.expect(lexer.Slash)
	}

	body := p.parseBlock()

	probe := &ast.Probe{
		Mode:      "", // filled in per matched tuple by specmatch.AttachProbe
		Predicate: predicate,
		Body:      body,
		Globals:   map[string]ast.Global{},
		Loc:       spanFrom(specLoc, body.Loc()),
	}

	parsed := specmatch.ParseSpecText(specText, specLoc)
	script.PendingSpecs = append(script.PendingSpecs, ast.PendingSpec{
		Spec: ast.ParsedSpec{
			Provider: parsed.Provider,
			Package:  parsed.Package,
			Event:    parsed.Event,
			Mode:     parsed.Mode,
			Loc:      parsed.Loc,
		},
		Probe: probe,
	})
}
