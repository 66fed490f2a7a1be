package compiler

import "github.com/mna/wisp/lang/token"

// declaration is the entry point for anything that can appear at
// statement position, including the declarations (class/trait/def/var)
// that statement() itself does not handle. A panic-mode error is
// resynchronized here so one bad declaration does not cascade into every
// one after it (spec.md §4.1).
func (p *parser) declaration() {
	switch {
	case p.match(token.CLASS):
		p.classDeclaration()
	case p.match(token.TRAIT):
		p.traitDeclaration()
	case p.match(token.DEF):
		p.funDeclaration()
	case p.match(token.VAR):
		p.varDeclaration()
	default:
		p.statement()
	}
	if p.panicMode {
		p.synchronize()
	}
}

func (p *parser) block() {
	for !p.check(token.RIGHT_BRACE) && !p.check(token.EOF) {
		p.declaration()
	}
	p.consume(token.RIGHT_BRACE, "Expect '}' after block.")
}

// function compiles a parameter list and body into a new Frame, then
// closes it into the enclosing frame's bytecode as OP_CLOSURE (spec.md
// §4.5). Optional parameters (those with a "= expr" default) are emitted
// via OP_DEFINE_OPTIONAL once the whole parameter list is known.
func (p *parser) function(kind Kind) {
	p.pushFrame(kind, p.previous.Lexeme)
	p.frame.beginScope()

	p.consume(token.LEFT_PAREN, "Expect '(' after function name.")
	if !p.check(token.RIGHT_PAREN) {
		optional := false
		for {
			param := p.parseVariable("Expect parameter name.")
			p.defineVariable(param)

			if p.match(token.EQUAL) {
				p.frame.Function.ArityOptional++
				optional = true
				p.expression()
			} else {
				p.frame.Function.Arity++
				if optional {
					p.error("Cannot have non-optional parameter after optional.")
				}
			}
			if p.frame.Function.Arity+p.frame.Function.ArityOptional > 255 {
				p.error("Cannot have more than 255 parameters.")
			}
			if !p.match(token.COMMA) {
				break
			}
		}
		if p.frame.Function.ArityOptional > 0 {
			p.emitOp(OpDefineOptional)
		}
	}
	p.consume(token.RIGHT_PAREN, "Expect ')' after parameters.")
	p.consume(token.LEFT_BRACE, "Expect '{' before function body.")
	p.block()

	// No endScope here: popFrame emits the return directly, and the
	// function's locals are not popped one by one, matching the reference
	// compiler.
	p.popFrame()
}

func (p *parser) method(trait bool) {
	kind := KindMethod
	if p.check(token.STATIC) {
		p.consume(token.STATIC, "Expect static.")
		kind = KindStatic
		p.frame.Class.StaticMethod = true
	} else {
		p.frame.Class.StaticMethod = false
	}

	p.consume(token.IDENT, "Expect method name.")
	name := p.previous.Lexeme
	constant := p.identifierConstant(name)

	if name == "init" {
		kind = KindInitializer
	}

	p.function(kind)

	if trait {
		p.emitOpByte(OpTraitMethod, constant)
	} else {
		p.emitOpByte(OpMethod, constant)
	}
}

// useStatement pulls a trait's methods into the class currently being
// compiled (spec.md §4.6).
func (p *parser) useStatement() {
	if p.frame.Class == nil {
		p.error("Cannot utilise 'use' outside of a class.")
	}
	for {
		p.consume(token.IDENT, "Expect trait name after use statement.")
		p.namedVariable(p.previous.Lexeme, false)
		p.emitOp(OpUse)
		if !p.match(token.COMMA) {
			break
		}
	}
	p.consume(token.SEMICOLON, "Expect ';' after use statement.")
}

func syntheticName(name string) string { return name }

func (p *parser) classDeclaration() {
	p.consume(token.IDENT, "Expect class name.")
	nameConstant := p.identifierConstant(p.previous.Lexeme)
	p.declareVariable()

	class := &ClassFrame{Name: p.previous.Lexeme, Enclosing: p.frame.Class}
	p.frame.Class = class

	if p.match(token.LESS) {
		p.consume(token.IDENT, "Expect superclass name.")
		class.HasSuperclass = true

		p.frame.beginScope()
		p.namedVariable(p.previous.Lexeme, false)
		p.addLocal(syntheticName("super"))

		p.emitOpByte(OpSubclass, nameConstant)
	} else {
		p.emitOpByte(OpClass, nameConstant)
	}

	p.consume(token.LEFT_BRACE, "Expect '{' before class body.")
	for !p.check(token.RIGHT_BRACE) && !p.check(token.EOF) {
		if p.match(token.USE) {
			p.useStatement()
		} else {
			p.method(false)
		}
	}
	p.consume(token.RIGHT_BRACE, "Expect '}' after class body.")

	if class.HasSuperclass {
		p.endScope()
	}

	p.defineVariable(nameConstant)
	p.frame.Class = class.Enclosing
}

func (p *parser) traitDeclaration() {
	p.consume(token.IDENT, "Expect trait name.")
	nameConstant := p.identifierConstant(p.previous.Lexeme)
	p.declareVariable()

	class := &ClassFrame{Name: p.previous.Lexeme, Enclosing: p.frame.Class}
	p.frame.Class = class

	p.emitOpByte(OpTrait, nameConstant)

	p.consume(token.LEFT_BRACE, "Expect '{' before trait body.")
	for !p.check(token.RIGHT_BRACE) && !p.check(token.EOF) {
		p.method(true)
	}
	p.consume(token.RIGHT_BRACE, "Expect '}' after trait body.")

	p.defineVariable(nameConstant)
	p.frame.Class = class.Enclosing
}

func (p *parser) funDeclaration() {
	global := p.parseVariable("Expect function name.")
	p.function(KindFunction)
	p.defineVariable(global)
}

func (p *parser) varDeclaration() {
	for {
		global := p.parseVariable("Expect variable name.")
		if p.match(token.EQUAL) {
			p.expression()
		} else {
			p.emitOp(OpNil)
		}
		p.defineVariable(global)
		if !p.match(token.COMMA) {
			break
		}
	}
	p.consume(token.SEMICOLON, "Expect ';' after variable declaration.")
}
