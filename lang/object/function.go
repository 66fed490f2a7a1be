package object

import "fmt"

// Function is a compiled function, method, initializer, static method, or
// the top-level script body. Corresponds to the external VM's ObjFunction
// (spec.md §3 "Frame (FunctionKind)" drives how one of these is built).
type Function struct {
	Chunk Chunk

	// Name is empty for the top-level script; the compiler never reads it,
	// only a disassembler or stack trace printer would (both out of scope).
	Name string

	Arity         int // required, positional parameter count
	ArityOptional int // parameters with a default expression
	UpvalueCount  int
	IsStatic      bool
}

func (f *Function) String() string {
	if f.Name == "" {
		return "<top-level>"
	}
	return fmt.Sprintf("<function %s>", f.Name)
}
func (f *Function) Type() string { return "function" }

// NewFunction allocates a function object under construction, mirroring the
// external VM's newFunction(vm, isStatic) (spec.md §6).
func NewFunction(isStatic bool) *Function {
	return &Function{IsStatic: isStatic}
}
