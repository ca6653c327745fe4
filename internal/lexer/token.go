// Package lexer tokenizes whamm source text (spec.md §6): UTF-8 text with
// `//` line comments and `/* */` block comments, identifiers, integers,
// double-quoted strings, and the punctuation the parser needs to
// recognize probe specs, predicates, and statement bodies.
package lexer

import "github.com/ejrgilbert/whammc/internal/diagnostics"

type Kind int

const (
	EOF Kind = iota
	Ident
	Int
	Str

	Colon     // :
	Semi      // ;
	Comma     // ,
	LParen    // (
	RParen    // )
	LBrace    // {
	RBrace    // }
	LAngle    // <
	RAngle    // >
	Assign    // =
	Question  // ?
	Slash     // /
	Pipe      // |
	Star      // *
	Bang      // !
	Plus      // +
	Minus     // -
	Percent   // %
	AndAnd    // &&
	OrOr      // ||
	EqEq      // ==
	NotEq     // !=
	GtEq      // >=
	LtEq      // <=
)

var kindNames = map[Kind]string{
	EOF: "EOF", Ident: "identifier", Int: "integer", Str: "string",
	Colon: "':'", Semi: "';'", Comma: "','", LParen: "'('", RParen: "')'",
	LBrace: "'{'", RBrace: "'}'", LAngle: "'<'", RAngle: "'>'", Assign: "'='",
	Question: "'?'", Slash: "'/'", Pipe: "'|'", Star: "'*'", Bang: "'!'",
	Plus: "'+'", Minus: "'-'", Percent: "'%'", AndAnd: "'&&'", OrOr: "'||'",
	EqEq: "'=='", NotEq: "'!='", GtEq: "'>='", LtEq: "'<='",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "?"
}

type Token struct {
	Kind Kind
	Text string // raw text; for Str, the unescaped contents; for Int, the digit run
	Loc  diagnostics.Location
}
