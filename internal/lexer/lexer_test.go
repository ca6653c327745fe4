package lexer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ejrgilbert/whammc/internal/lexer"
)

func tokenKinds(src string) []lexer.Kind {
	l := lexer.New(src, "test.mm")
	var kinds []lexer.Kind
	for {
		tok := l.NextToken()
		kinds = append(kinds, tok.Kind)
		if tok.Kind == lexer.EOF {
			return kinds
		}
	}
}

func TestNextTokenPunctuationAndOperators(t *testing.T) {
	got := tokenKinds(`: ; , ( ) { } ? | || * + - % / < > <= >= = == != &&`)
	want := []lexer.Kind{
		lexer.Colon, lexer.Semi, lexer.Comma, lexer.LParen, lexer.RParen,
		lexer.LBrace, lexer.RBrace, lexer.Question, lexer.Pipe, lexer.OrOr,
		lexer.Star, lexer.Plus, lexer.Minus, lexer.Percent, lexer.Slash,
		lexer.LAngle, lexer.RAngle, lexer.LtEq, lexer.GtEq, lexer.Assign,
		lexer.EqEq, lexer.NotEq, lexer.AndAnd, lexer.EOF,
	}
	assert.Equal(t, want, got)
}

func TestNextTokenIdentInt(t *testing.T) {
	l := lexer.New("wasm123 42", "test.mm")
	id := l.NextToken()
	require.Equal(t, lexer.Ident, id.Kind)
	assert.Equal(t, "wasm123", id.Text)

	num := l.NextToken()
	require.Equal(t, lexer.Int, num.Kind)
	assert.Equal(t, "42", num.Text)
}

func TestNextTokenStringEscapes(t *testing.T) {
	l := lexer.New(`"hello\nworld\t\"quoted\""`, "test.mm")
	tok := l.NextToken()
	require.Equal(t, lexer.Str, tok.Kind)
	assert.Equal(t, "hello\nworld\t\"quoted\"", tok.Text)
}

func TestNextTokenSkipsLineAndBlockComments(t *testing.T) {
	got := tokenKinds("// a comment\n/* block\ncomment */ident")
	require.Len(t, got, 2)
	assert.Equal(t, lexer.Ident, got[0])
	assert.Equal(t, lexer.EOF, got[1])
}

func TestNextTokenLocationTracksLineAndColumn(t *testing.T) {
	l := lexer.New("a\nbc", "test.mm")
	first := l.NextToken()
	assert.Equal(t, 1, first.Loc.Start.Line)
	second := l.NextToken()
	assert.Equal(t, 2, second.Loc.Start.Line)
}
