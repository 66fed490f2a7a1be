// Package object is the thin boundary the compiler writes through: the
// constant-pool value types, the chunk (code + line table + constants) and
// the function object a compiled unit is returned as. It stands in for the
// external VM's allocation API (spec.md §6: newFunction, copyString,
// writeChunk, addConstant) — the VM itself (opcode execution, the garbage
// collector, native methods) is out of scope (spec.md §1).
package object

import "fmt"

// Value is the interface implemented by every value the compiler may place
// in a chunk's constant pool.
type Value interface {
	String() string
	Type() string
}

// Double is wisp's only numeric type (spec.md §6: "numeric literals parsed
// as IEEE-754 doubles").
type Double float64

func (d Double) String() string { return fmt.Sprintf("%g", float64(d)) }
func (d Double) Type() string   { return "number" }

// String is a string constant. The compiler places an identifier name in a
// chunk's constant pool at most once, looked up by content through Strings
// (spec.md §3 "InternedStringConstants" / testable property 7); string
// literals are added once per occurrence and may repeat.
type String string

func (s String) String() string { return string(s) }
func (s String) Type() string   { return "string" }

var (
	_ Value = Double(0)
	_ Value = String("")
	_ Value = (*Function)(nil)
)
