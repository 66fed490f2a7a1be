package token_test

import (
	"testing"

	"github.com/mna/wisp/lang/token"
	"github.com/stretchr/testify/assert"
)

func TestLookup(t *testing.T) {
	cases := []struct {
		lit  string
		kind token.Kind
	}{
		{"class", token.CLASS},
		{"trait", token.TRAIT},
		{"def", token.DEF},
		{"static", token.STATIC},
		{"var", token.VAR},
		{"while", token.WHILE},
		{"for", token.FOR},
		{"break", token.BREAK},
		{"continue", token.CONTINUE},
		{"return", token.RETURN},
		{"import", token.IMPORT},
		{"with", token.WITH},
		{"use", token.USE},
		{"this", token.THIS},
		{"super", token.SUPER},
		{"and", token.AND},
		{"or", token.OR},
		{"nil", token.NIL},
		{"true", token.TRUE},
		{"false", token.FALSE},
		{"frobnicate", token.IDENT},
		{"classy", token.IDENT},
	}
	for _, c := range cases {
		assert.Equal(t, c.kind, token.Lookup(c.lit), c.lit)
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "+", token.PLUS.String())
	assert.Equal(t, "**", token.STAR_STAR.String())
	assert.Equal(t, "end of file", token.EOF.String())
}
