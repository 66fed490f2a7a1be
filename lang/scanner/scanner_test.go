package scanner_test

import (
	"testing"

	"github.com/mna/wisp/lang/scanner"
	"github.com/mna/wisp/lang/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scanAll(t *testing.T, src string) []token.Token {
	t.Helper()
	var s scanner.Scanner
	s.Init([]byte(src))

	var toks []token.Token
	for {
		tok, err := s.Scan()
		require.NoError(t, err)
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			return toks
		}
	}
}

func TestScanPunctuationAndKeywords(t *testing.T) {
	toks := scanAll(t, `class A < B { def init() { this.x = 1; } }`)
	var kinds []token.Kind
	for _, tok := range toks {
		kinds = append(kinds, tok.Kind)
	}
	assert.Equal(t, []token.Kind{
		token.CLASS, token.IDENT, token.LESS, token.IDENT, token.LEFT_BRACE,
		token.DEF, token.IDENT, token.LEFT_PAREN, token.RIGHT_PAREN, token.LEFT_BRACE,
		token.THIS, token.DOT, token.IDENT, token.EQUAL, token.NUMBER, token.SEMICOLON,
		token.RIGHT_BRACE, token.RIGHT_BRACE, token.EOF,
	}, kinds)
}

func TestScanCompoundOperators(t *testing.T) {
	toks := scanAll(t, `a += b -= c *= d /= e &= f ^= g |= h ** i ++ --j`)
	var kinds []token.Kind
	for _, tok := range toks {
		kinds = append(kinds, tok.Kind)
	}
	assert.Equal(t, []token.Kind{
		token.IDENT, token.PLUS_EQUALS, token.IDENT, token.MINUS_EQUALS, token.IDENT,
		token.MULTIPLY_EQUALS, token.IDENT, token.DIVIDE_EQUALS, token.IDENT,
		token.AMPERSAND_EQUALS, token.IDENT, token.CARET_EQUALS, token.IDENT,
		token.PIPE_EQUALS, token.IDENT, token.STAR_STAR, token.IDENT, token.PLUS_PLUS,
		token.MINUS_MINUS, token.IDENT, token.EOF,
	}, kinds)
}

func TestScanStringKeepsRawEscapes(t *testing.T) {
	toks := scanAll(t, `"a\nb"`)
	require.Len(t, toks, 2)
	assert.Equal(t, token.STRING, toks[0].Kind)
	assert.Equal(t, `"a\nb"`, toks[0].Lexeme)
}

func TestScanLineTracking(t *testing.T) {
	toks := scanAll(t, "var a = 1;\nvar b = 2;")
	assert.Equal(t, 1, toks[0].Line)
	// "var" "b" "=" "2" ";" and the EOF token on line 2
	var onLine2 int
	for _, tok := range toks {
		if tok.Line == 2 {
			onLine2++
		}
	}
	assert.Equal(t, 6, onLine2)
}

func TestScanUnterminatedString(t *testing.T) {
	var s scanner.Scanner
	s.Init([]byte(`"abc`))
	_, err := s.Scan()
	require.Error(t, err)
}

func TestScanLineComment(t *testing.T) {
	toks := scanAll(t, "var a = 1; // trailing comment\nvar b;")
	assert.Equal(t, token.VAR, toks[0].Kind)
}

func TestMarkReset(t *testing.T) {
	var s scanner.Scanner
	s.Init([]byte(`{ }`))
	m := s.Mark()
	tok1, err := s.Scan()
	require.NoError(t, err)
	assert.Equal(t, token.LEFT_BRACE, tok1.Kind)

	s.Reset(m)
	tok2, err := s.Scan()
	require.NoError(t, err)
	assert.Equal(t, tok1, tok2)
}
