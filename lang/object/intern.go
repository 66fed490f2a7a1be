package object

import "github.com/dolthub/swiss"

// Strings is the per-chunk interned-string-constants table: it maps a source
// identifier to the index it already occupies in a chunk's constant pool, so
// the compiler never appends the same identifier name twice (spec.md §3
// "InternedStringConstants", testable property 7). String literals do not go
// through this table. Backed
// by swiss.Map rather than a built-in map for the same reason the teacher
// stack reaches for it: open-addressing beats Go's map for the
// write-heavy, rarely-deleted workload a compiler's constant table sees.
type Strings struct {
	m *swiss.Map[string, uint32]
}

// NewStrings returns an empty interned-string table.
func NewStrings() *Strings {
	return &Strings{m: swiss.NewMap[string, uint32](8)}
}

// Index returns the constant pool index already assigned to s, and true, if
// s was interned before; otherwise it returns false and the caller must
// intern it with Put.
func (t *Strings) Index(s string) (uint32, bool) {
	return t.m.Get(s)
}

// Put records that s now occupies constant pool index idx.
func (t *Strings) Put(s string, idx uint32) {
	t.m.Put(s, idx)
}
