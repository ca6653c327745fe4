// Package parser implements C2: a PEG-style recursive-descent parser with
// operator-precedence expression parsing (spec.md §4.2), producing a
// *ast.Script per source file. On failure it emits diagnostics.ParseError
// with a caret span and recovers per top-level item where possible.
package parser

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ejrgilbert/whammc/internal/ast"
	"github.com/ejrgilbert/whammc/internal/diagnostics"
	"github.com/ejrgilbert/whammc/internal/lexer"
)

type Parser struct {
	lex  *lexer.Lexer
	path string
	errs *diagnostics.Collector

	cur, peek lexer.Token
}

// Parse parses one whamm source file into a Script. The script's name is
// the file's base name without extension, matching how a caller typically
// invokes one `.mm` file as one script.
func Parse(source, path string, errs *diagnostics.Collector) *ast.Script {
	p := &Parser{lex: lexer.New(source, path), path: path, errs: errs}
	p.advance()
	p.advance()

	script := &ast.Script{
		Name:      scriptNameFromPath(path),
		Providers: map[string]*ast.Provider{},
		Globals:   map[string]ast.Global{},
	}

	for p.cur.Kind != lexer.EOF {
		p.parseTopLevel(script)
	}
	return script
}

func scriptNameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (p *Parser) advance() {
	p.cur = p.peek
	p.peek = p.lex.NextToken()
}

func (p *Parser) at(k lexer.Kind) bool { return p.cur.Kind == k }

func (p *Parser) atKeyword(kw string) bool {
	return p.cur.Kind == lexer.Ident && p.cur.Text == kw
}

func (p *Parser) expect(k lexer.Kind) lexer.Token {
	if p.cur.Kind != k {
		p.errs.ParseError(p.cur.Loc, "unexpected "+describe(p.cur)+", expected "+k.String(), []string{k.String()})
	}
	t := p.cur
	p.advance()
	return t
}

func describe(t lexer.Token) string {
	if t.Kind == lexer.Ident || t.Kind == lexer.Int || t.Kind == lexer.Str {
		return t.Kind.String() + " " + strconv.Quote(t.Text)
	}
	return t.Kind.String()
}

// recoverTopLevel skips tokens until it finds a plausible start of the
// next top-level item (just past a ';' or a balanced '}'), per spec.md
// §4.2 "recovery is per-top-level-item where possible."
func (p *Parser) recoverTopLevel() {
	depth := 0
	for p.cur.Kind != lexer.EOF {
		switch p.cur.Kind {
		case lexer.LBrace:
			depth++
		case lexer.RBrace:
			if depth == 0 {
				p.advance()
				return
			}
			depth--
		case lexer.Semi:
			if depth == 0 {
				p.advance()
				return
			}
		}
		p.advance()
	}
}
