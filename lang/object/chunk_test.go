package object_test

import (
	"testing"

	"github.com/mna/wisp/lang/object"
	"github.com/stretchr/testify/assert"
)

func TestChunkWriteAppendsCodeAndLine(t *testing.T) {
	var c object.Chunk
	c.Write(1, 10)
	c.Write(2, 10)
	c.Write(3, 11)

	assert.Equal(t, []byte{1, 2, 3}, c.Code)
	assert.Equal(t, []int{10, 10, 11}, c.Lines)
}

func TestChunkAddConstantReturnsIndex(t *testing.T) {
	var c object.Chunk
	i0 := c.AddConstant(object.Double(1))
	i1 := c.AddConstant(object.String("x"))

	assert.Equal(t, 0, i0)
	assert.Equal(t, 1, i1)
	assert.Equal(t, object.Double(1), c.Constants[0])
	assert.Equal(t, object.String("x"), c.Constants[1])
}

func TestStringsInternDedupesByContent(t *testing.T) {
	s := object.NewStrings()

	_, ok := s.Index("a")
	assert.False(t, ok)

	s.Put("a", 3)
	idx, ok := s.Index("a")
	assert.True(t, ok)
	assert.Equal(t, uint32(3), idx)
}
