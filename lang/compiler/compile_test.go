package compiler_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/kylelemons/godebug/diff"
	"github.com/mna/wisp/lang/compiler"
	"github.com/mna/wisp/lang/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dumpCode renders a chunk's raw opcode bytes one per line, purely so a
// failed assertion's diff is readable; it is not a disassembler (no
// operand-aware decoding), since that belongs to the side of the
// toolchain this package does not implement.
func dumpCode(code []byte) string {
	var sb strings.Builder
	for _, b := range code {
		fmt.Fprintf(&sb, "%d\n", b)
	}
	return sb.String()
}

func assertCode(t *testing.T, want, got []byte) {
	t.Helper()
	if !assert.Equal(t, want, got) {
		t.Log(diff.Diff(dumpCode(want), dumpCode(got)))
	}
}

func mustCompile(t *testing.T, src string) *object.Function {
	t.Helper()
	fn, diags := compiler.Compile([]byte(src), compiler.Options{})
	require.Nil(t, diags, "unexpected diagnostics: %v", diags)
	require.NotNil(t, fn)
	return fn
}

func compileErr(t *testing.T, src string) compiler.Diagnostics {
	t.Helper()
	fn, diags := compiler.Compile([]byte(src), compiler.Options{})
	require.Nil(t, fn)
	require.NotEmpty(t, diags)
	return diags
}

func TestSimpleExpressionStatement(t *testing.T) {
	fn := mustCompile(t, "1 + 2;")

	want := []byte{
		byte(compiler.OpConstant), 0,
		byte(compiler.OpConstant), 1,
		byte(compiler.OpAdd),
		byte(compiler.OpPop),
		byte(compiler.OpNil),
		byte(compiler.OpReturn),
	}
	assertCode(t, want, fn.Chunk.Code)
	require.Len(t, fn.Chunk.Constants, 2)
	assert.Equal(t, object.Double(1), fn.Chunk.Constants[0])
	assert.Equal(t, object.Double(2), fn.Chunk.Constants[1])
}

func TestREPLModePopsWithPopRepl(t *testing.T) {
	fn, diags := compiler.Compile([]byte("1;"), compiler.Options{REPLMode: true})
	require.Nil(t, diags)
	want := []byte{
		byte(compiler.OpConstant), 0,
		byte(compiler.OpPopRepl),
		byte(compiler.OpNil),
		byte(compiler.OpReturn),
	}
	assertCode(t, want, fn.Chunk.Code)
}

func TestSubtractionLowersToNegateAdd(t *testing.T) {
	fn := mustCompile(t, "1 - 2;")
	want := []byte{
		byte(compiler.OpConstant), 0,
		byte(compiler.OpConstant), 1,
		byte(compiler.OpNegate),
		byte(compiler.OpAdd),
		byte(compiler.OpPop),
		byte(compiler.OpNil),
		byte(compiler.OpReturn),
	}
	assertCode(t, want, fn.Chunk.Code)
}

func TestGlobalNameConstantIsInterned(t *testing.T) {
	fn := mustCompile(t, "var a = 1; a; a;")
	// "a" should occupy exactly one slot in the constant pool even though
	// it is referenced as a global three times (declaration + two reads).
	var names int
	for _, c := range fn.Chunk.Constants {
		if s, ok := c.(object.String); ok && string(s) == "a" {
			names++
		}
	}
	assert.Equal(t, 1, names)
}

func TestDuplicateLocalDeclarationIsAnError(t *testing.T) {
	diags := compileErr(t, "{ var a; var a; }")
	found := false
	for _, d := range diags {
		if strings.Contains(d.Message, "already declared in this scope") {
			found = true
		}
	}
	assert.True(t, found, "diagnostics: %v", diags)
}

func TestBreakOutsideLoopIsAnError(t *testing.T) {
	diags := compileErr(t, "break;")
	assert.Contains(t, diags[0].Message, "Cannot utilise 'break' outside of a loop.")
}

func TestContinueOutsideLoopIsAnError(t *testing.T) {
	diags := compileErr(t, "continue;")
	assert.Contains(t, diags[0].Message, "Cannot utilise 'continue' outside of a loop.")
}

func TestInvalidAssignmentTargetIsAnError(t *testing.T) {
	diags := compileErr(t, "1 + 2 = 3;")
	found := false
	for _, d := range diags {
		if strings.Contains(d.Message, "Invalid assignment target.") {
			found = true
		}
	}
	assert.True(t, found, "diagnostics: %v", diags)
}

func TestClassMayUseItsOwnNameAsSuperclass(t *testing.T) {
	// "A" is referenced as a superclass before its own OP_DEFINE_GLOBAL is
	// emitted; this is a valid (if useless) program at compile time, since
	// resolving "A" just falls back to an as-yet-undefined global.
	fn, diags := compiler.Compile([]byte("class A < A {}"), compiler.Options{})
	require.Nil(t, diags)
	require.NotNil(t, fn)
}

func TestClosureCapturesEnclosingLocalAsUpvalue(t *testing.T) {
	fn := mustCompile(t, `
		def outer() {
			var result;
			{
				var x = 1;
				def inner() {
					return x;
				}
				result = inner;
			}
			return result;
		}
	`)

	// The top-level chunk holds both "outer"'s name constant (for its
	// OP_DEFINE_GLOBAL) and the compiled *object.Function itself (for the
	// OP_CLOSURE that builds it).
	var outerFn *object.Function
	for _, c := range fn.Chunk.Constants {
		if f, ok := c.(*object.Function); ok {
			outerFn = f
		}
	}
	require.NotNil(t, outerFn)
	assert.Equal(t, "outer", outerFn.Name)

	var closures, closeUpvalues int
	for _, b := range outerFn.Chunk.Code {
		switch compiler.Opcode(b) {
		case compiler.OpClosure:
			closures++
		case compiler.OpCloseUpvalue:
			closeUpvalues++
		}
	}
	assert.Equal(t, 1, closures)
	assert.Equal(t, 1, closeUpvalues)

	var innerFn *object.Function
	for _, c := range outerFn.Chunk.Constants {
		if f, ok := c.(*object.Function); ok && f.Name == "inner" {
			innerFn = f
		}
	}
	require.NotNil(t, innerFn)
	assert.Equal(t, 1, innerFn.UpvalueCount)

	var gotUpvalue bool
	for _, b := range innerFn.Chunk.Code {
		if compiler.Opcode(b) == compiler.OpGetUpvalue {
			gotUpvalue = true
		}
	}
	assert.True(t, gotUpvalue)
}

func TestStringEscapeSequencesAreResolvedByTheCompiler(t *testing.T) {
	fn := mustCompile(t, `"a\nb";`)
	require.Len(t, fn.Chunk.Constants, 1)
	s, ok := fn.Chunk.Constants[0].(object.String)
	require.True(t, ok)
	assert.Equal(t, "a\nb", string(s))
	assert.Len(t, string(s), 3)
}

func TestUnknownEscapeLeavesBackslashInPlace(t *testing.T) {
	fn := mustCompile(t, `"a\qb";`)
	s := fn.Chunk.Constants[0].(object.String)
	assert.Equal(t, `a\qb`, string(s))
}

func TestCompoundAssignmentOnLocal(t *testing.T) {
	fn := mustCompile(t, "{ var x = 1; x += 2; }")
	var sawAdd, sawSetLocal bool
	for _, b := range fn.Chunk.Code {
		switch compiler.Opcode(b) {
		case compiler.OpAdd:
			sawAdd = true
		case compiler.OpSetLocal:
			sawSetLocal = true
		}
	}
	assert.True(t, sawAdd)
	assert.True(t, sawSetLocal)
}

func TestSubscriptCompoundAssignmentPushesBeforeOp(t *testing.T) {
	fn := mustCompile(t, "var a = [1]; a[0] += 1;")
	code := fn.Chunk.Code
	var pushIdx, addIdx, assignIdx = -1, -1, -1
	for i, b := range code {
		switch compiler.Opcode(b) {
		case compiler.OpPush:
			if pushIdx == -1 {
				pushIdx = i
			}
		case compiler.OpAdd:
			if addIdx == -1 {
				addIdx = i
			}
		case compiler.OpSubscriptAssign:
			if assignIdx == -1 {
				assignIdx = i
			}
		}
	}
	require.NotEqual(t, -1, pushIdx)
	require.NotEqual(t, -1, addIdx)
	require.NotEqual(t, -1, assignIdx)
	assert.True(t, pushIdx < addIdx)
	assert.True(t, addIdx < assignIdx)
}

func TestWithStatementOpensAndClosesFile(t *testing.T) {
	fn := mustCompile(t, `with ("f.txt", "r") { var x = 1; }`)
	var open, close bool
	for _, b := range fn.Chunk.Code {
		switch compiler.Opcode(b) {
		case compiler.OpOpenFile:
			open = true
		case compiler.OpCloseFile:
			close = true
		}
	}
	assert.True(t, open)
	assert.True(t, close)
}

func TestImportStatementEmitsImportThenPop(t *testing.T) {
	fn := mustCompile(t, `import "path/to/mod";`)
	code := fn.Chunk.Code
	require.True(t, len(code) >= 4)
	// OP_CONSTANT idx, OP_IMPORT, OP_POP, then the implicit OP_NIL/OP_RETURN.
	assert.Equal(t, byte(compiler.OpConstant), code[0])
	assert.Equal(t, byte(compiler.OpImport), code[2])
	assert.Equal(t, byte(compiler.OpPop), code[3])

	s, ok := fn.Chunk.Constants[0].(object.String)
	require.True(t, ok)
	assert.Equal(t, "path/to/mod", string(s))
}

func TestDictVsBlockDisambiguation(t *testing.T) {
	dictFn := mustCompile(t, `{"k": 1};`)
	var sawNewDict bool
	for _, b := range dictFn.Chunk.Code {
		if compiler.Opcode(b) == compiler.OpNewDict {
			sawNewDict = true
		}
	}
	assert.True(t, sawNewDict, "expected a dict literal statement to emit OP_NEW_DICT")

	blockFn := mustCompile(t, `{ var x = 1; }`)
	for _, b := range blockFn.Chunk.Code {
		assert.NotEqual(t, byte(compiler.OpNewDict), b)
	}
}

func TestLoopBodyTooLargeIsAnError(t *testing.T) {
	var body strings.Builder
	body.WriteString("def f() { var x = 1; while (true) {")
	for i := 0; i < 25000; i++ {
		body.WriteString("x;")
	}
	body.WriteString("} }")

	diags := compileErr(t, body.String())
	found := false
	for _, d := range diags {
		if strings.Contains(d.Message, "Loop body too large.") {
			found = true
		}
	}
	assert.True(t, found, "diagnostics: %v", diags)
}
