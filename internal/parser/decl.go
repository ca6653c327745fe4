package parser

import (
	"github.com/ejrgilbert/whammc/internal/ast"
	"github.com/ejrgilbert/whammc/internal/diagnostics"
	"github.com/ejrgilbert/whammc/internal/lexer"
)

var typeKeywords = map[string]bool{"i32": true, "u32": true, "bool": true, "str": true, "map": true}

// parseTopLevel parses one top-level item: a typed global declaration, a
// bare global re-assignment, or a probe definition (spec.md §6). Parse
// errors recover to the next top-level item rather than aborting the
// whole file.
func (p *Parser) parseTopLevel(script *ast.Script) {
	startErrs := len(p.errs.Diagnostics)
	defer func() {
		if len(p.errs.Diagnostics) > startErrs && p.errs.Diagnostics[len(p.errs.Diagnostics)-1].Kind == diagnostics.KindParse {
			p.recoverTopLevel()
		}
	}()

	if p.cur.Kind == lexer.Ident && typeKeywords[p.cur.Text] {
		stmt := p.parseDecl()
		script.GlobalStmts = append(script.GlobalStmts, stmt)
		if d, ok := stmt.(*ast.Decl); ok {
			script.Globals[d.VarId.Name] = ast.Global{Name: d.VarId.Name, Ty: d.Ty, Loc: locPtr(d.Loc())}
		}
		return
	}
	if p.cur.Kind == lexer.Ident && p.peek.Kind == lexer.Assign {
		stmt := p.parseAssign()
		script.GlobalStmts = append(script.GlobalStmts, stmt)
		return
	}
	p.parseProbeDef(script)
}

func locPtr(l diagnostics.Location) *diagnostics.Location { return &l }

func (p *Parser) parseDecl() ast.Statement {
	start := p.cur.Loc
	ty := p.parseType()
	name := p.expect(lexer.Ident)
	p.expect(lexer.Semi)
	loc := spanFrom(start, name.Loc)
	v := ast.NewVarId(name.Loc, name.Text, false)
	return ast.NewDecl(loc, ty, v)
}

func (p *Parser) parseAssign() ast.Statement {
	name := p.expect(lexer.Ident)
	p.expect(lexer.Assign)
	e := p.parseExpr()
	end := p.cur.Loc
	p.expect(lexer.Semi)
	v := ast.NewVarId(name.Loc, name.Text, false)
	return ast.NewAssign(spanFrom(name.Loc, end), v, e)
}

// parseBlock parses `{` Stmt* `}`.
func (p *Parser) parseBlock() *ast.Block {
	start := p.cur.Loc
	p.expect(lexer.LBrace)
	var stmts []ast.Statement
	for p.cur.Kind != lexer.RBrace && p.cur.Kind != lexer.EOF {
		stmts = append(stmts, p.parseStmt())
	}
	end := p.cur.Loc
	p.expect(lexer.RBrace)
	return ast.NewBlock(spanFrom(start, end), stmts)
}

func (p *Parser) parseStmt() ast.Statement {
	if p.cur.Kind == lexer.Ident && typeKeywords[p.cur.Text] {
		return p.parseDecl()
	}
	if p.atKeyword("return") {
		start := p.cur.Loc
		p.advance()
		if p.cur.Kind == lexer.Semi {
			p.advance()
			return ast.NewReturn(start, nil)
		}
		e := p.parseExpr()
		p.expect(lexer.Semi)
		return ast.NewReturn(spanFrom(start, e.Loc()), e)
	}
	if p.cur.Kind == lexer.Ident && p.peek.Kind == lexer.Assign {
		return p.parseAssign()
	}
	start := p.cur.Loc
	e := p.parseExpr()
	end := p.cur.Loc
	p.expect(lexer.Semi)
	return ast.NewExprStmt(spanFrom(start, end), e)
}
