package compiler

import (
	"github.com/mna/wisp/lang/object"
	"github.com/mna/wisp/lang/token"
)

// objectStringLiteral strips a string token's surrounding quotes without
// resolving escapes, used for import paths (spec.md §4.9: the reference
// compiler's importStatement copies the raw bytes between the quotes
// verbatim, unlike a string expression).
func objectStringLiteral(raw string) object.String {
	return object.String(raw[1 : len(raw)-1])
}

func (p *parser) statement() {
	switch {
	case p.match(token.FOR):
		p.forStatement()
	case p.match(token.IF):
		p.ifStatement()
	case p.match(token.RETURN):
		p.returnStatement()
	case p.match(token.WITH):
		p.withStatement()
	case p.match(token.IMPORT):
		p.importStatement()
	case p.match(token.BREAK):
		p.breakStatement()
	case p.match(token.WHILE):
		p.whileStatement()
	case p.check(token.LEFT_BRACE):
		p.braceStatement()
	case p.match(token.CONTINUE):
		p.continueStatement()
	default:
		p.expressionStatement()
	}
}

// braceStatement resolves the "{" ambiguity: a block, an empty dict
// literal ("{}"), or a dict literal ("{k: v, ...}") all start the same
// way (spec.md §4.11). It peeks one or two tokens past the brace using
// the scanner's Mark/Reset snapshot, decides which of the three it is
// looking at, rewinds, and then reparses for real either as a block or
// as an expression statement — the Go-idiomatic stand-in for the
// reference implementation's raw per-character stream backtrack.
func (p *parser) braceStatement() {
	mark := p.scanner.Mark()
	prevBeforeBrace := p.previous
	brace := p.current

	p.advance() // consume "{"
	first := p.current

	var isDict bool
	switch {
	case first.Kind == token.RIGHT_BRACE:
		// "{}" — ambiguous between an empty block and an empty dict literal
		// used as a statement ("{};"); peek one more token to tell them apart.
		innerMark := p.scanner.Mark()
		prevSnap, curSnap := p.previous, p.current
		p.advance() // consume "}"
		isDict = p.check(token.SEMICOLON)
		p.scanner.Reset(innerMark)
		p.previous, p.current = prevSnap, curSnap
	case first.Kind == token.COLON:
		// "{:" can only start a dict (a key expression followed by ':').
		isDict = true
	default:
		innerMark := p.scanner.Mark()
		prevSnap, curSnap := p.previous, p.current
		p.advance()
		isDict = p.check(token.COLON)
		p.scanner.Reset(innerMark)
		p.previous, p.current = prevSnap, curSnap
	}

	// Rewind fully: let whichever path wins reparse "{" the normal way.
	p.scanner.Reset(mark)
	p.previous = prevBeforeBrace
	p.current = brace

	if isDict {
		p.expressionStatement()
		return
	}

	p.advance() // consume "{" for the block path
	p.frame.beginScope()
	p.block()
	p.endScope()
}

func (p *parser) expressionStatement() {
	p.expression()
	p.consume(token.SEMICOLON, "Expect ';' after expression.")
	if p.opts.REPLMode {
		p.emitOp(OpPopRepl)
	} else {
		p.emitOp(OpPop)
	}
}

// endLoop patches a while/for loop's exit jump (if any) and rewrites every
// OP_BREAK emitted in its body into a proper OP_JUMP targeting the loop's
// exit, since a break's target is not known until the whole loop has
// been compiled (spec.md §4.7).
func (p *parser) endLoop() {
	loop := p.frame.Loop
	if loop.End != -1 {
		p.patchJump(loop.End)
		p.emitOp(OpPop)
	}

	code := p.frame.chunk().Code
	i := loop.Body
	for i < len(code) {
		if Opcode(code[i]) == OpBreak {
			code[i] = byte(OpJump)
			p.patchJump(i + 1)
			i += 3
		} else {
			i++
		}
	}

	p.frame.Loop = loop.Enclosing
}

func (p *parser) forStatement() {
	p.frame.beginScope()

	p.consume(token.LEFT_PAREN, "Expect '(' after 'for'.")
	switch {
	case p.match(token.VAR):
		p.varDeclaration()
	case p.match(token.SEMICOLON):
	default:
		p.expressionStatement()
	}

	loop := &LoopFrame{
		Start:      len(p.frame.chunk().Code),
		ScopeDepth: p.frame.ScopeDepth,
		Enclosing:  p.frame.Loop,
		End:        -1,
	}
	p.frame.Loop = loop

	if !p.match(token.SEMICOLON) {
		p.expression()
		p.consume(token.SEMICOLON, "Expect ';' after loop condition.")
		loop.End = p.emitJump(OpJumpIfFalse)
		p.emitOp(OpPop)
	}

	if !p.match(token.RIGHT_PAREN) {
		bodyJump := p.emitJump(OpJump)

		incrementStart := len(p.frame.chunk().Code)
		p.expression()
		p.emitOp(OpPop)
		p.consume(token.RIGHT_PAREN, "Expect ')' after for clauses.")

		p.emitLoop(loop.Start)
		loop.Start = incrementStart

		p.patchJump(bodyJump)
	}

	loop.Body = len(p.frame.chunk().Code)
	p.statement()

	p.emitLoop(loop.Start)
	p.endLoop()
	p.endScope()
}

func (p *parser) whileStatement() {
	loop := &LoopFrame{
		Start:      len(p.frame.chunk().Code),
		ScopeDepth: p.frame.ScopeDepth,
		Enclosing:  p.frame.Loop,
	}
	p.frame.Loop = loop

	if p.check(token.LEFT_BRACE) {
		p.emitOp(OpTrue)
	} else {
		p.consume(token.LEFT_PAREN, "Expect '(' after 'while'.")
		p.expression()
		p.consume(token.RIGHT_PAREN, "Expect ')' after condition.")
	}

	loop.End = p.emitJump(OpJumpIfFalse)

	p.emitOp(OpPop)
	loop.Body = len(p.frame.chunk().Code)
	p.statement()

	p.emitLoop(loop.Start)
	p.endLoop()
}

func (p *parser) breakStatement() {
	if p.frame.Loop == nil {
		p.error("Cannot utilise 'break' outside of a loop.")
		return
	}
	p.consume(token.SEMICOLON, "Expected semicolon after break")

	for i := len(p.frame.Locals) - 1; i >= 0 && p.frame.Locals[i].Depth > p.frame.Loop.ScopeDepth; i-- {
		p.emitOp(OpPop)
	}
	p.emitJump(OpBreak)
}

func (p *parser) continueStatement() {
	if p.frame.Loop == nil {
		p.error("Cannot utilise 'continue' outside of a loop.")
		return
	}
	p.consume(token.SEMICOLON, "Expect ';' after 'continue'.")

	for i := len(p.frame.Locals) - 1; i >= 0 && p.frame.Locals[i].Depth > p.frame.Loop.ScopeDepth; i-- {
		p.emitOp(OpPop)
	}
	p.emitLoop(p.frame.Loop.Start)
}

func (p *parser) ifStatement() {
	p.consume(token.LEFT_PAREN, "Expect '(' after 'if'.")
	p.expression()
	p.consume(token.RIGHT_PAREN, "Expect ')' after condition.")

	elseJump := p.emitJump(OpJumpIfFalse)
	p.emitOp(OpPop)
	p.statement()

	endJump := p.emitJump(OpJump)

	p.patchJump(elseJump)
	p.emitOp(OpPop)

	if p.match(token.ELSE) {
		p.statement()
	}
	p.patchJump(endJump)
}

// withStatement opens a resource (e.g. a file) for the duration of a
// single statement and emits OP_CLOSE_FILE after the body, on the normal
// exit path only: a return or break inside the body jumps past it
// (spec.md §4.10).
func (p *parser) withStatement() {
	p.consume(token.LEFT_PAREN, "Expect '(' after 'with'.")
	p.expression()
	p.consume(token.COMMA, "Expect comma")
	p.expression()
	p.consume(token.RIGHT_PAREN, "Expect ')' after 'with'.")

	p.frame.beginScope()
	p.frame.Locals = append(p.frame.Locals, Local{Name: "file", Depth: p.frame.ScopeDepth})

	p.emitOp(OpOpenFile)
	p.statement()
	p.emitOp(OpCloseFile)
	p.endScope()
}

func (p *parser) returnStatement() {
	if p.frame.Kind == KindTopLevel {
		p.error("Cannot return from top-level code.")
	}

	if p.match(token.SEMICOLON) {
		p.emitReturn()
		return
	}

	if p.frame.Kind == KindInitializer {
		p.error("Cannot return a value from an initializer.")
	}

	p.expression()
	p.consume(token.SEMICOLON, "Expect ';' after return value.")
	p.emitOp(OpReturn)
}

func (p *parser) importStatement() {
	p.consume(token.STRING, "Expect string after import.")
	raw := p.previous.Lexeme
	p.emitConstant(objectStringLiteral(raw))
	p.consume(token.SEMICOLON, "Expect ';' after import.")

	p.emitOp(OpImport)
	p.emitOp(OpPop)
}
