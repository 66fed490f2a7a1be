package compiler

import "github.com/mna/wisp/lang/object"

// Kind identifies what sort of callable a Frame is compiling; it decides
// what slot 0 holds, whether a bare "return;" is legal, and how emitReturn
// behaves (spec.md §4.5/§4.6).
type Kind int

const (
	KindTopLevel Kind = iota
	KindFunction
	KindMethod
	KindInitializer
	KindStatic
)

// maxLocals bounds how many local slots a single frame may use; a local's
// slot index is encoded as a single byte operand (spec.md §3 invariants).
const maxLocals = 256

// Local is one resolved local-variable slot.
type Local struct {
	Name     string
	Depth    int // -1 while "declared but not yet defined"
	Captured bool
}

// Upvalue records where a frame's closure pulls one free variable from:
// either a local slot in the immediately enclosing frame, or an upvalue
// already captured by that enclosing frame (spec.md §4.3).
type Upvalue struct {
	Index   uint8
	IsLocal bool
}

// ClassFrame tracks compile-time state for the class or trait body
// currently being compiled, threaded as a linked list so nested class
// declarations each see their own superclass/static-method state while a
// method body still sees its enclosing class (spec.md §4.6).
type ClassFrame struct {
	Name          string
	HasSuperclass bool
	StaticMethod  bool
	Enclosing     *ClassFrame
}

// LoopFrame tracks the bytecode range of a loop body so that break can be
// emitted as a placeholder and retargeted once the loop's exit address is
// known (spec.md §4.7).
type LoopFrame struct {
	Start      int // offset to loop back to
	Body       int // offset where the loop body's bytecode begins
	End        int // offset of the exit jump's placeholder, or -1
	ScopeDepth int
	Enclosing  *LoopFrame
}

// Frame is the compiler's per-function compilation state: one exists for
// the top-level script and one for every nested function, method or
// static method, linked through Enclosing the way the reference compiler
// links Compiler structs (spec.md §4.3).
type Frame struct {
	Enclosing *Frame

	Function *object.Function
	Kind     Kind

	Locals     []Local
	ScopeDepth int
	Upvalues   []Upvalue

	Class *ClassFrame
	Loop  *LoopFrame

	// Strings deduplicates identifier/global-name constants within this
	// frame's chunk (spec.md §3 "InternedStringConstants").
	Strings *object.Strings
}

func newFrame(enclosing *Frame, kind Kind, name string) *Frame {
	f := &Frame{
		Enclosing: enclosing,
		Function:  object.NewFunction(kind == KindStatic),
		Kind:      kind,
		Strings:   object.NewStrings(),
	}
	if enclosing != nil {
		f.Class = enclosing.Class
		f.Loop = enclosing.Loop
	}
	if kind != KindTopLevel {
		f.Function.Name = name
	}

	// Slot 0 is reserved: named "this" in the top-level frame and in a
	// method/initializer, or anonymous (unreferenceable) in a plain
	// function or static method, holding the function/receiver the VM
	// pushes before the call (spec.md §4.3).
	slot0 := Local{Depth: 0}
	if kind != KindFunction && kind != KindStatic {
		slot0.Name = "this"
	}
	f.Locals = append(f.Locals, slot0)
	return f
}

func (f *Frame) chunk() *object.Chunk { return &f.Function.Chunk }

func (f *Frame) beginScope() { f.ScopeDepth++ }
