package parser

import (
	"github.com/ejrgilbert/whammc/internal/ast"
	"github.com/ejrgilbert/whammc/internal/lexer"
)

// Expression precedence, low -> high (spec.md §4.2):
//   ternary  (lowest; right-associative)
//   and | or
//   eq | ne | ge | gt | le | lt
//   add | subtract
//   multiply | divide | modulo
//   prefix neg/not            (highest)

func (p *Parser) parseExpr() ast.Expr {
	return p.parseTernary()
}

func (p *Parser) parseTernary() ast.Expr {
	cond := p.parseOr()
	if p.cur.Kind != lexer.Question {
		return cond
	}
	p.advance()
	conseq := p.parseExpr()
	p.expect(lexer.Colon)
	alt := p.parseExpr()
	return ast.NewTernary(spanFrom(cond.Loc(), alt.Loc()), cond, conseq, alt)
}

func (p *Parser) parseOr() ast.Expr {
	left := p.parseAnd()
	for p.cur.Kind == lexer.OrOr {
		p.advance()
		right := p.parseAnd()
		left = ast.NewBinOp(spanFrom(left.Loc(), right.Loc()), ast.BinOr, left, right)
	}
	return left
}

func (p *Parser) parseAnd() ast.Expr {
	left := p.parseRel()
	for p.cur.Kind == lexer.AndAnd {
		p.advance()
		right := p.parseRel()
		left = ast.NewBinOp(spanFrom(left.Loc(), right.Loc()), ast.BinAnd, left, right)
	}
	return left
}

var relOps = map[lexer.Kind]ast.BinOpKind{
	lexer.EqEq: ast.BinEq, lexer.NotEq: ast.BinNe,
	lexer.GtEq: ast.BinGe, lexer.RAngle: ast.BinGt,
	lexer.LtEq: ast.BinLe, lexer.LAngle: ast.BinLt,
}

func (p *Parser) parseRel() ast.Expr {
	left := p.parseAdd()
	for {
		op, ok := relOps[p.cur.Kind]
		if !ok {
			return left
		}
		p.advance()
		right := p.parseAdd()
		left = ast.NewBinOp(spanFrom(left.Loc(), right.Loc()), op, left, right)
	}
}

var addOps = map[lexer.Kind]ast.BinOpKind{lexer.Plus: ast.BinAdd, lexer.Minus: ast.BinSub}

func (p *Parser) parseAdd() ast.Expr {
	left := p.parseMul()
	for {
		op, ok := addOps[p.cur.Kind]
		if !ok {
			return left
		}
		p.advance()
		right := p.parseMul()
		left = ast.NewBinOp(spanFrom(left.Loc(), right.Loc()), op, left, right)
	}
}

var mulOps = map[lexer.Kind]ast.BinOpKind{lexer.Star: ast.BinMul, lexer.Slash: ast.BinDiv, lexer.Percent: ast.BinMod}

func (p *Parser) parseMul() ast.Expr {
	left := p.parseUnary()
	for {
		op, ok := mulOps[p.cur.Kind]
		if !ok {
			return left
		}
		p.advance()
		right := p.parseUnary()
		left = ast.NewBinOp(spanFrom(left.Loc(), right.Loc()), op, left, right)
	}
}

func (p *Parser) parseUnary() ast.Expr {
	switch p.cur.Kind {
	case lexer.Minus:
		start := p.cur.Loc
		p.advance()
		e := p.parseUnary()
		return ast.NewUnOp(spanFrom(start, e.Loc()), ast.UnNeg, e)
	case lexer.Bang:
		start := p.cur.Loc
		p.advance()
		e := p.parseUnary()
		return ast.NewUnOp(spanFrom(start, e.Loc()), ast.UnNot, e)
	default:
		return p.parsePrimary()
	}
}

func (p *Parser) parsePrimary() ast.Expr {
	switch p.cur.Kind {
	case lexer.Int:
		return p.parseIntLiteral()
	case lexer.Str:
		t := p.cur
		p.advance()
		return ast.NewPrimitive(t.Loc, ast.StrValue(t.Text))
	case lexer.LParen:
		return p.parseParenOrTuple()
	case lexer.Ident:
		return p.parseIdentOrCall()
	default:
		p.errs.ParseError(p.cur.Loc, "unexpected "+describe(p.cur)+" in expression", []string{"identifier", "literal", "'('"})
		t := p.cur
		p.advance()
		return ast.NewPrimitive(t.Loc, ast.IntValue(0))
	}
}

func (p *Parser) parseIntLiteral() ast.Expr {
	t := p.cur
	p.advance()
	var v int64
	for _, r := range t.Text {
		v = v*10 + int64(r-'0')
	}
	return ast.NewPrimitive(t.Loc, ast.IntValue(int32(v)))
}

// parseParenOrTuple parses `(e)` as a grouped expression, or `(e, e, ...)`
// as a tuple literal (spec.md §6), represented as a Call to the
// compiler-internal "$tuple" pseudo-function so the type checker and
// emitter have a single uniform Expr shape to dispatch on.
func (p *Parser) parseParenOrTuple() ast.Expr {
	start := p.cur.Loc
	p.advance() // consume '('
	first := p.parseExpr()
	if p.cur.Kind != lexer.Comma {
		end := p.cur.Loc
		p.expect(lexer.RParen)
		_ = end
		return first
	}
	elems := []ast.Expr{first}
	for p.cur.Kind == lexer.Comma {
		p.advance()
		elems = append(elems, p.parseExpr())
	}
	end := p.cur.Loc
	p.expect(lexer.RParen)
	return ast.NewCall(spanFrom(start, end), ast.TupleCallTarget, elems)
}

func (p *Parser) parseIdentOrCall() ast.Expr {
	t := p.cur
	p.advance()
	if t.Text == "true" || t.Text == "false" {
		return ast.NewPrimitive(t.Loc, ast.BoolValue(t.Text == "true"))
	}
	if p.cur.Kind != lexer.LParen {
		return ast.NewVarId(t.Loc, t.Text, false)
	}
	p.advance() // consume '('
	var args []ast.Expr
	if p.cur.Kind != lexer.RParen {
		args = append(args, p.parseExpr())
		for p.cur.Kind == lexer.Comma {
			p.advance()
			args = append(args, p.parseExpr())
		}
	}
	end := p.cur.Loc
	p.expect(lexer.RParen)
	return ast.NewCall(spanFrom(t.Loc, end), t.Text, args)
}
