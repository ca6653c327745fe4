package parser

import (
	"github.com/ejrgilbert/whammc/internal/ast"
	"github.com/ejrgilbert/whammc/internal/diagnostics"
	"github.com/ejrgilbert/whammc/internal/lexer"
)

// parseType parses a DataType annotation: `i32`, `u32`, `bool`, `str`, or
// `map<K,V>` (spec.md §3/§6).
func (p *Parser) parseType() ast.DataType {
	switch {
	case p.atKeyword("i32"):
		p.advance()
		return ast.I32
	case p.atKeyword("u32"):
		p.advance()
		return ast.U32
	case p.atKeyword("bool"):
		p.advance()
		return ast.Boolean
	case p.atKeyword("str"):
		p.advance()
		return ast.Str
	case p.atKeyword("map"):
		p.advance()
		p.expect(lexer.LAngle)
		key := p.parseType()
		p.expect(lexer.Comma)
		val := p.parseType()
		p.expect(lexer.RAngle)
		return ast.Map(key, val)
	default:
		p.errs.ParseError(p.cur.Loc, "expected a type (i32, u32, bool, str, map<K,V>)", []string{"i32", "u32", "bool", "str", "map"})
		return ast.AssumeGood
	}
}

func spanFrom(start, end diagnostics.Location) diagnostics.Location {
	return diagnostics.Location{Path: start.Path, Start: start.Start, End: end.End}
}
