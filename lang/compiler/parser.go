package compiler

import (
	"github.com/mna/wisp/lang/object"
	"github.com/mna/wisp/lang/scanner"
	"github.com/mna/wisp/lang/token"
)

// Options configures a single compilation.
type Options struct {
	// REPLMode selects OP_POP_REPL over OP_POP for every expression
	// statement, at any nesting depth, so a REPL can print the discarded
	// value (spec.md §4.12).
	REPLMode bool
}

// parser drives the scanner and holds the frame stack; it plays the role
// the reference implementation splits across its Parser and Compiler
// structs, merged here since Go has no need to pass both separately.
type parser struct {
	scanner *scanner.Scanner
	opts    Options

	previous token.Token
	current  token.Token

	diags     Diagnostics
	panicMode bool

	frame *Frame
}

func newParser(src []byte, opts Options) *parser {
	sc := &scanner.Scanner{}
	sc.Init(src)
	return &parser{scanner: sc, opts: opts}
}

// --- token stream -----------------------------------------------------

func (p *parser) advance() {
	p.previous = p.current
	for {
		tok, err := p.scanner.Scan()
		p.current = tok
		if err == nil {
			break
		}
		p.errorAtCurrent(err.Error())
	}
}

func (p *parser) check(k token.Kind) bool { return p.current.Kind == k }

func (p *parser) match(k token.Kind) bool {
	if !p.check(k) {
		return false
	}
	p.advance()
	return true
}

func (p *parser) consume(k token.Kind, msg string) {
	if p.current.Kind == k {
		p.advance()
		return
	}
	p.errorAtCurrent(msg)
}

// --- diagnostics --------------------------------------------------------

func (p *parser) errorAt(tok token.Token, msg string) {
	if p.panicMode {
		return
	}
	p.panicMode = true

	where := tok.Lexeme
	if tok.Kind == token.EOF {
		where = "end"
	} else if tok.Kind == token.ILLEGAL {
		where = ""
	}
	p.diags = append(p.diags, Diagnostic{Line: tok.Line, Where: where, Message: msg})
}

func (p *parser) error(msg string)        { p.errorAt(p.previous, msg) }
func (p *parser) errorAtCurrent(msg string) { p.errorAt(p.current, msg) }

// synchronize discards tokens until it reaches one that plausibly starts a
// new statement, so one mistake produces one diagnostic instead of a
// cascade (spec.md §4.1).
func (p *parser) synchronize() {
	p.panicMode = false

	for p.current.Kind != token.EOF {
		if p.previous.Kind == token.SEMICOLON {
			return
		}
		switch p.current.Kind {
		case token.CLASS, token.TRAIT, token.DEF, token.STATIC, token.VAR,
			token.FOR, token.IF, token.WHILE, token.BREAK, token.RETURN,
			token.IMPORT, token.WITH:
			return
		}
		p.advance()
	}
}

// --- bytecode emission --------------------------------------------------

func (p *parser) emitByte(b byte) {
	p.frame.chunk().Write(b, p.previous.Line)
}

func (p *parser) emitOp(op Opcode) { p.emitByte(byte(op)) }

func (p *parser) emitBytes(b1, b2 byte) {
	p.emitByte(b1)
	p.emitByte(b2)
}

func (p *parser) emitOpByte(op Opcode, b byte) { p.emitBytes(byte(op), b) }

func (p *parser) emitOps(op1, op2 Opcode) { p.emitBytes(byte(op1), byte(op2)) }

// emitJump emits instruction followed by a two-byte placeholder offset and
// returns the offset of the placeholder, for a later patchJump call
// (spec.md §4.8).
func (p *parser) emitJump(op Opcode) int {
	p.emitOp(op)
	p.emitByte(0xff)
	p.emitByte(0xff)
	return len(p.frame.chunk().Code) - 2
}

// patchJump backfills the placeholder at offset with the distance from
// just past it to the current end of bytecode.
func (p *parser) patchJump(offset int) {
	chunk := p.frame.chunk()
	jump := len(chunk.Code) - offset - 2
	if jump > 0xffff {
		p.error("Too much code to jump over.")
	}
	chunk.Code[offset] = byte((jump >> 8) & 0xff)
	chunk.Code[offset+1] = byte(jump & 0xff)
}

// emitLoop emits OP_LOOP with a backward offset to loopStart.
func (p *parser) emitLoop(loopStart int) {
	p.emitOp(OpLoop)
	offset := len(p.frame.chunk().Code) - loopStart + 2
	if offset > 0xffff {
		p.error("Loop body too large.")
	}
	p.emitByte(byte((offset >> 8) & 0xff))
	p.emitByte(byte(offset & 0xff))
}

func (p *parser) emitReturn() {
	if p.frame.Kind == KindInitializer {
		p.emitOpByte(OpGetLocal, 0)
	} else {
		p.emitOp(OpNil)
	}
	p.emitOp(OpReturn)
}

func (p *parser) makeConstant(v object.Value) byte {
	idx := p.frame.chunk().AddConstant(v)
	if idx > 0xff {
		p.error("Too many constants in one chunk.")
		return 0
	}
	return byte(idx)
}

func (p *parser) emitConstant(v object.Value) {
	p.emitOpByte(OpConstant, p.makeConstant(v))
}

// --- frames and scopes --------------------------------------------------

// pushFrame begins compiling a nested function/method; name is only used
// when kind is not KindTopLevel.
func (p *parser) pushFrame(kind Kind, name string) {
	p.frame = newFrame(p.frame, kind, name)
}

// popFrame finishes the current frame, wiring it into its enclosing
// frame's bytecode as a closure (emitting its upvalue capture list) and
// restoring that enclosing frame as current. Returns the compiled
// function (spec.md §4.5).
func (p *parser) popFrame() *object.Function {
	p.emitReturn()
	fn := p.frame.Function
	enclosing := p.frame.Enclosing

	if enclosing != nil {
		save := p.frame
		p.frame = enclosing
		p.emitOpByte(OpClosure, p.makeConstant(fn))
		for _, uv := range save.Upvalues {
			if uv.IsLocal {
				p.emitByte(1)
			} else {
				p.emitByte(0)
			}
			p.emitByte(uv.Index)
		}
	} else {
		p.frame = nil
	}
	return fn
}

func (p *parser) endScope() {
	f := p.frame
	f.ScopeDepth--
	for len(f.Locals) > 0 && f.Locals[len(f.Locals)-1].Depth > f.ScopeDepth {
		last := f.Locals[len(f.Locals)-1]
		if last.Captured {
			p.emitOp(OpCloseUpvalue)
		} else {
			p.emitOp(OpPop)
		}
		f.Locals = f.Locals[:len(f.Locals)-1]
	}
}

// identifierConstant interns lexeme as a string constant, reusing an
// existing slot in this frame's chunk if the same name was already
// interned (spec.md §3 "InternedStringConstants").
func (p *parser) identifierConstant(lexeme string) byte {
	if idx, ok := p.frame.Strings.Index(lexeme); ok {
		return byte(idx)
	}
	idx := p.makeConstant(object.String(lexeme))
	p.frame.Strings.Put(lexeme, uint32(idx))
	return idx
}

func identifiersEqual(a, b string) bool { return a == b }

// resolveLocal looks up name among f's locals, most-nested first, so
// shadowing resolves correctly. inFunction suppresses the
// own-initializer error, used when resolving a name for a *closure*
// rather than as a plain reference (spec.md §4.3).
func resolveLocal(f *Frame, name string, inFunction bool) int {
	for i := len(f.Locals) - 1; i >= 0; i-- {
		if identifiersEqual(name, f.Locals[i].Name) {
			if !inFunction && f.Locals[i].Depth == -1 {
				return -2 // sentinel: own-initializer read
			}
			return i
		}
	}
	return -1
}

func (p *parser) resolveLocal(f *Frame, name string) int {
	idx := resolveLocal(f, name, false)
	if idx == -2 {
		p.error("Cannot read local variable in its own initializer.")
		return -1
	}
	return idx
}

// addUpvalue records that f's function closes over index (a slot in its
// immediately enclosing frame if isLocal, else an upvalue slot in it),
// deduplicating against upvalues already captured.
func (p *parser) addUpvalue(f *Frame, index uint8, isLocal bool) int {
	for i, uv := range f.Upvalues {
		if uv.Index == index && uv.IsLocal == isLocal {
			return i
		}
	}
	if len(f.Upvalues) == 0xff {
		p.error("Too many closure variables in function.")
		return 0
	}
	f.Upvalues = append(f.Upvalues, Upvalue{Index: index, IsLocal: isLocal})
	f.Function.UpvalueCount = len(f.Upvalues)
	return len(f.Upvalues) - 1
}

// resolveUpvalue walks f's enclosing-frame chain looking for name,
// flattening the closure by adding an upvalue to every intermediate
// frame on the way down to f (spec.md §4.3).
func (p *parser) resolveUpvalue(f *Frame, name string) int {
	if f.Enclosing == nil {
		return -1
	}
	if local := resolveLocal(f.Enclosing, name, true); local != -1 {
		f.Enclosing.Locals[local].Captured = true
		return p.addUpvalue(f, uint8(local), true)
	}
	if up := p.resolveUpvalue(f.Enclosing, name); up != -1 {
		return p.addUpvalue(f, uint8(up), false)
	}
	return -1
}

func (p *parser) addLocal(name string) {
	if len(p.frame.Locals) == maxLocals {
		p.error("Too many local variables in function.")
		return
	}
	p.frame.Locals = append(p.frame.Locals, Local{Name: name, Depth: -1})
}

// declareVariable registers previous's lexeme as a local in the current
// scope; at scope depth 0 it does nothing, since globals are declared
// implicitly (spec.md §4.3).
func (p *parser) declareVariable() {
	if p.frame.ScopeDepth == 0 {
		return
	}
	name := p.previous.Lexeme
	for i := len(p.frame.Locals) - 1; i >= 0; i-- {
		local := p.frame.Locals[i]
		if local.Depth != -1 && local.Depth < p.frame.ScopeDepth {
			break
		}
		if identifiersEqual(name, local.Name) {
			p.error("Variable with this name already declared in this scope.")
		}
	}
	p.addLocal(name)
}

// parseVariable consumes an identifier and either interns it as a global
// name constant (depth 0) or declares it as a local, per spec.md §4.3.
func (p *parser) parseVariable(msg string) byte {
	p.consume(token.IDENT, msg)
	if p.frame.ScopeDepth == 0 {
		return p.identifierConstant(p.previous.Lexeme)
	}
	p.declareVariable()
	return 0
}

func (p *parser) markLocalInitialized() {
	if p.frame.ScopeDepth == 0 {
		return
	}
	p.frame.Locals[len(p.frame.Locals)-1].Depth = p.frame.ScopeDepth
}

func (p *parser) defineVariable(global byte) {
	if p.frame.ScopeDepth == 0 {
		p.emitOpByte(OpDefineGlobal, global)
		return
	}
	p.markLocalInitialized()
}
