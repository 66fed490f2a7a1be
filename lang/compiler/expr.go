package compiler

import (
	"strconv"
	"strings"

	"github.com/mna/wisp/lang/object"
	"github.com/mna/wisp/lang/token"
)

// precedence orders binding strength from loosest to tightest, mirroring
// the reference compiler's Precedence enum exactly so the generalized
// rule table below reads the same way (spec.md §4.2).
type precedence int

const (
	precNone       precedence = iota
	precAssignment            // =
	precOr                    // or
	precAnd                   // and
	precEquality              // == !=
	precComparison            // < > <= >=
	precBitwiseOr             // |
	precBitwiseXor            // ^
	precBitwiseAnd            // &
	precTerm                  // + -
	precFactor                // * / %
	precIndices               // **
	precUnary                 // ! -
	precCall                  // . () []
	precPrimary
)

type parseFn func(p *parser, canAssign bool)

type parseRule struct {
	prefix     parseFn
	infix      parseFn
	precedence precedence
}

// rules is indexed by token.Kind and decides, for every token that can
// start or continue an expression, which function parses it and at what
// precedence an infix use binds (spec.md §4.2). Unlisted kinds default to
// the zero value (no prefix, no infix, precNone), which parsePrecedence
// treats as "not an expression token". It is filled in init because the
// parse functions it holds refer back to it through getRule.
var rules map[token.Kind]parseRule

func init() {
	rules = map[token.Kind]parseRule{
		token.LEFT_PAREN:    {grouping, call, precCall},
		token.LEFT_BRACE:    {dictLiteral, nil, precNone},
		token.LEFT_BRACKET:  {listLiteral, subscript, precCall},
		token.DOT:           {nil, dot, precCall},
		token.MINUS:         {unary, binary, precTerm},
		token.PLUS:          {nil, binary, precTerm},
		token.PLUS_PLUS:     {prefixIncDec, nil, precNone},
		token.MINUS_MINUS:   {prefixIncDec, nil, precNone},
		token.SLASH:         {nil, binary, precFactor},
		token.STAR:          {nil, binary, precFactor},
		token.STAR_STAR:     {nil, binary, precIndices},
		token.PERCENT:       {nil, binary, precFactor},
		token.AMPERSAND:     {nil, binary, precBitwiseAnd},
		token.CARET:         {nil, binary, precBitwiseXor},
		token.PIPE:          {nil, binary, precBitwiseOr},
		token.BANG:          {unary, nil, precNone},
		token.BANG_EQUAL:    {nil, binary, precEquality},
		token.EQUAL_EQUAL:   {nil, binary, precEquality},
		token.GREATER:       {nil, binary, precComparison},
		token.GREATER_EQUAL: {nil, binary, precComparison},
		token.LESS:          {nil, binary, precComparison},
		token.LESS_EQUAL:    {nil, binary, precComparison},
		token.IDENT:         {variable, nil, precNone},
		token.STRING:        {stringLiteral, nil, precNone},
		token.NUMBER:        {number, nil, precNone},
		token.STATIC:        {static_, nil, precNone},
		token.THIS:          {this_, nil, precNone},
		token.SUPER:         {super_, nil, precNone},
		token.AND:           {nil, and_, precAnd},
		token.OR:            {nil, or_, precOr},
		token.TRUE:          {literal, nil, precNone},
		token.FALSE:         {literal, nil, precNone},
		token.NIL:           {literal, nil, precNone},
	}
}

func getRule(k token.Kind) parseRule {
	if r, ok := rules[k]; ok {
		return r
	}
	return parseRule{}
}

func (p *parser) expression() { p.parsePrecedence(precAssignment) }

func (p *parser) parsePrecedence(prec precedence) {
	p.advance()
	prefixRule := getRule(p.previous.Kind).prefix
	if prefixRule == nil {
		p.error("Expect expression.")
		return
	}

	canAssign := prec <= precAssignment
	prefixRule(p, canAssign)

	for prec <= getRule(p.current.Kind).precedence {
		p.advance()
		infixRule := getRule(p.previous.Kind).infix
		infixRule(p, canAssign)
	}

	if canAssign && p.match(token.EQUAL) {
		p.error("Invalid assignment target.")
	}
}

func (p *parser) argumentList() int {
	argCount := 0
	if !p.check(token.RIGHT_PAREN) {
		for {
			p.expression()
			argCount++
			if argCount > 255 {
				p.error("Cannot have more than 255 arguments.")
			}
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	p.consume(token.RIGHT_PAREN, "Expect ')' after arguments.")
	return argCount
}

// and_/or_ short-circuit by jumping around the right operand rather than
// always evaluating both sides (spec.md §4.2).
func and_(p *parser, canAssign bool) {
	endJump := p.emitJump(OpJumpIfFalse)
	p.emitOp(OpPop)
	p.parsePrecedence(precAnd)
	p.patchJump(endJump)
}

func or_(p *parser, canAssign bool) {
	elseJump := p.emitJump(OpJumpIfFalse)
	endJump := p.emitJump(OpJump)
	p.patchJump(elseJump)
	p.emitOp(OpPop)
	p.parsePrecedence(precOr)
	p.patchJump(endJump)
}

// binary lowers every two-operand operator to its opcode(s). Subtraction
// has no dedicated opcode: "a - b" lowers to negate-then-add, matching
// the external VM's stack-order contract for OP_ADD exactly (kept as-is,
// see the design note recorded for this choice).
func binary(p *parser, canAssign bool) {
	op := p.previous.Kind
	rule := getRule(op)
	p.parsePrecedence(rule.precedence + 1)

	switch op {
	case token.BANG_EQUAL:
		p.emitOps(OpEqual, OpNot)
	case token.EQUAL_EQUAL:
		p.emitOp(OpEqual)
	case token.GREATER:
		p.emitOp(OpGreater)
	case token.GREATER_EQUAL:
		p.emitOps(OpLess, OpNot)
	case token.LESS:
		p.emitOp(OpLess)
	case token.LESS_EQUAL:
		p.emitOps(OpGreater, OpNot)
	case token.PLUS:
		p.emitOp(OpAdd)
	case token.MINUS:
		p.emitOps(OpNegate, OpAdd)
	case token.STAR:
		p.emitOp(OpMultiply)
	case token.STAR_STAR:
		p.emitOp(OpPow)
	case token.SLASH:
		p.emitOp(OpDivide)
	case token.PERCENT:
		p.emitOp(OpMod)
	case token.AMPERSAND:
		p.emitOp(OpBitwiseAnd)
	case token.CARET:
		p.emitOp(OpBitwiseXor)
	case token.PIPE:
		p.emitOp(OpBitwiseOr)
	}
}

func call(p *parser, canAssign bool) {
	argCount := p.argumentList()
	p.emitOpByte(OpCall, byte(argCount))
}

// compoundOp maps a compound-assignment token to the opcode that combines
// it with the already-pushed old value (every case except MINUS_EQUALS,
// which emitCompoundOp handles directly since it lowers to two opcodes).
func compoundOp(k token.Kind) (Opcode, bool) {
	switch k {
	case token.PLUS_EQUALS:
		return OpAdd, true
	case token.MULTIPLY_EQUALS:
		return OpMultiply, true
	case token.DIVIDE_EQUALS:
		return OpDivide, true
	case token.AMPERSAND_EQUALS:
		return OpBitwiseAnd, true
	case token.CARET_EQUALS:
		return OpBitwiseXor, true
	case token.PIPE_EQUALS:
		return OpBitwiseOr, true
	}
	return 0, false
}

var compoundAssignTokens = []token.Kind{
	token.PLUS_EQUALS, token.MINUS_EQUALS, token.MULTIPLY_EQUALS,
	token.DIVIDE_EQUALS, token.AMPERSAND_EQUALS, token.CARET_EQUALS,
	token.PIPE_EQUALS,
}

func dot(p *parser, canAssign bool) {
	p.consume(token.IDENT, "Expect property name after '.'.")
	name := p.identifierConstant(p.previous.Lexeme)

	switch {
	case canAssign && p.match(token.EQUAL):
		p.expression()
		p.emitOpByte(OpSetProperty, name)
	case p.match(token.LEFT_PAREN):
		argCount := p.argumentList()
		p.emitOpByte(OpInvoke, byte(argCount))
		p.emitByte(name)
	case canAssign && p.matchAny(compoundAssignTokens...):
		op := p.previous.Kind
		p.emitOpByte(OpGetPropertyNoPop, name)
		p.expression()
		emitCompoundOp(p, op)
		p.emitOpByte(OpSetProperty, name)
	default:
		p.emitOpByte(OpGetProperty, name)
	}
}

func (p *parser) matchAny(kinds ...token.Kind) bool {
	for _, k := range kinds {
		if p.match(k) {
			return true
		}
	}
	return false
}

// emitCompoundOp emits the opcode(s) combining a previously-pushed old
// value with the value just pushed by evaluating the right-hand side, for
// the compound-assignment operator op (spec.md §4.4). MINUS_EQUALS has no
// dedicated opcode, same as binary subtraction: negate then add.
func emitCompoundOp(p *parser, op token.Kind) {
	switch op {
	case token.MINUS_EQUALS:
		p.emitOps(OpNegate, OpAdd)
	default:
		o, ok := compoundOp(op)
		if ok {
			p.emitOp(o)
		}
	}
}

func literal(p *parser, canAssign bool) {
	switch p.previous.Kind {
	case token.FALSE:
		p.emitOp(OpFalse)
	case token.NIL:
		p.emitOp(OpNil)
	case token.TRUE:
		p.emitOp(OpTrue)
	}
}

func grouping(p *parser, canAssign bool) {
	p.expression()
	p.consume(token.RIGHT_PAREN, "Expect ')' after expression.")
}

func number(p *parser, canAssign bool) {
	v, _ := strconv.ParseFloat(p.previous.Lexeme, 64)
	p.emitConstant(object.Double(v))
}

// unescape processes the backslash escapes the scanner deliberately left
// untouched (spec.md §4.9): \n \t \r \v and an escaped quote. Any other
// character following a backslash is left with the backslash in place,
// preserved as-is per the recorded design decision for this edge case.
func unescape(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case 'n':
				sb.WriteByte('\n')
				i++
				continue
			case 't':
				sb.WriteByte('\t')
				i++
				continue
			case 'r':
				sb.WriteByte('\r')
				i++
				continue
			case 'v':
				sb.WriteByte('\v')
				i++
				continue
			case '\'', '"':
				sb.WriteByte(s[i+1])
				i++
				continue
			}
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

// stringLiteral strips the surrounding quotes the scanner kept and
// resolves escape sequences, then adds the result to the constant pool
// (spec.md §4.9). Unlike identifier names, string literals are not
// deduplicated: each occurrence gets its own constant.
func stringLiteral(p *parser, canAssign bool) {
	raw := p.previous.Lexeme
	inner := raw[1 : len(raw)-1]
	p.emitConstant(object.String(unescape(inner)))
}

func listLiteral(p *parser, canAssign bool) {
	p.emitOp(OpNewList)
	for !p.check(token.RIGHT_BRACKET) {
		p.expression()
		p.emitOp(OpAddList)
		if !p.match(token.COMMA) {
			break
		}
	}
	p.consume(token.RIGHT_BRACKET, "Expected closing ']'")
}

func dictLiteral(p *parser, canAssign bool) {
	p.emitOp(OpNewDict)
	for !p.check(token.RIGHT_BRACE) {
		p.expression()
		p.consume(token.COLON, "Expected ':'")
		p.expression()
		p.emitOp(OpAddDict)
		if !p.match(token.COMMA) {
			break
		}
	}
	p.consume(token.RIGHT_BRACE, "Expected closing '}'")
}

// subscript parses the bracketed suffix after an indexable expression:
// x[i], x[a:b] slices, and subscript (compound) assignment (spec.md
// §4.9). Slice forms use OP_EMPTY for an omitted bound.
func subscript(p *parser, canAssign bool) {
	if p.match(token.COLON) {
		p.emitOp(OpEmpty)
		p.expression()
		p.emitOp(OpSlice)
		p.consume(token.RIGHT_BRACKET, "Expected closing ']'")
		return
	}

	p.expression()

	if p.match(token.COLON) {
		if p.check(token.RIGHT_BRACKET) {
			p.emitOp(OpEmpty)
		} else {
			p.expression()
		}
		p.emitOp(OpSlice)
		p.consume(token.RIGHT_BRACKET, "Expected closing ']'")
		return
	}

	p.consume(token.RIGHT_BRACKET, "Expected closing ']'")

	switch {
	case canAssign && p.match(token.EQUAL):
		p.expression()
		p.emitOp(OpSubscriptAssign)
	case canAssign && p.matchAny(compoundAssignTokens...):
		op := p.previous.Kind
		p.expression()
		p.emitOp(OpPush)
		emitCompoundOp(p, op)
		p.emitOp(OpSubscriptAssign)
	default:
		p.emitOp(OpSubscript)
	}
}

// namedVariable resolves name against locals, then upvalues, then falls
// back to a global, and compiles a plain read, a plain assignment, or a
// compound assignment accordingly (spec.md §4.3/§4.4).
func (p *parser) namedVariable(name string, canAssign bool) {
	var getOp, setOp Opcode
	arg := p.resolveLocal(p.frame, name)
	if arg != -1 {
		getOp, setOp = OpGetLocal, OpSetLocal
	} else if arg = p.resolveUpvalue(p.frame, name); arg != -1 {
		getOp, setOp = OpGetUpvalue, OpSetUpvalue
	} else {
		arg = int(p.identifierConstant(name))
		getOp, setOp = OpGetGlobal, OpSetGlobal
	}

	switch {
	case canAssign && p.match(token.EQUAL):
		p.expression()
		p.emitOpByte(setOp, byte(arg))
	case canAssign && p.matchAny(compoundAssignTokens...):
		op := p.previous.Kind
		p.namedVariable(name, false)
		p.expression()
		emitCompoundOp(p, op)
		p.emitOpByte(setOp, byte(arg))
	default:
		p.emitOpByte(getOp, byte(arg))
	}
}

func variable(p *parser, canAssign bool) {
	p.namedVariable(p.previous.Lexeme, canAssign)
}

const syntheticSuper = "super"
const syntheticThis = "this"

func pushSuperclass(p *parser) {
	if p.frame.Class == nil {
		return
	}
	p.namedVariable(syntheticSuper, false)
}

func super_(p *parser, canAssign bool) {
	if p.frame.Class == nil {
		p.error("Cannot utilise 'super' outside of a class.")
	} else if !p.frame.Class.HasSuperclass {
		p.error("Cannot utilise 'super' in a class with no superclass.")
	}

	p.consume(token.DOT, "Expect '.' after 'super'.")
	p.consume(token.IDENT, "Expect superclass method name.")
	name := p.identifierConstant(p.previous.Lexeme)

	p.namedVariable(syntheticThis, false)

	if p.match(token.LEFT_PAREN) {
		argCount := p.argumentList()
		pushSuperclass(p)
		p.emitOpByte(OpSuper, byte(argCount))
		p.emitByte(name)
	} else {
		pushSuperclass(p)
		p.emitOpByte(OpGetSuper, name)
	}
}

func this_(p *parser, canAssign bool) {
	if p.frame.Class == nil {
		p.error("Cannot utilise 'this' outside of a class.")
	} else if p.frame.Class.StaticMethod {
		p.error("Cannot utilise 'this' inside a static method.")
	} else {
		variable(p, false)
	}
}

func static_(p *parser, canAssign bool) {
	if p.frame.Class == nil {
		p.error("Cannot utilise 'static' outside of a class.")
	}
}

func unary(p *parser, canAssign bool) {
	op := p.previous.Kind
	p.parsePrecedence(precUnary)
	switch op {
	case token.BANG:
		p.emitOp(OpNot)
	case token.MINUS:
		p.emitOp(OpNegate)
	}
}

// prefixIncDec compiles "++x", "--x", "++obj.field" and "--obj.field":
// read, bump, write back, yielding the updated value (spec.md §4.4).
func prefixIncDec(p *parser, canAssign bool) {
	op := p.previous.Kind
	cur := p.current
	p.consume(token.IDENT, "Expected variable")
	p.namedVariable(p.previous.Lexeme, true)

	var arg byte
	instance := false

	if p.match(token.DOT) {
		p.consume(token.IDENT, "Expect property name after '.'.")
		arg = p.identifierConstant(p.previous.Lexeme)
		p.emitOpByte(OpGetPropertyNoPop, arg)
		instance = true
	}

	switch op {
	case token.PLUS_PLUS:
		p.emitOp(OpIncrement)
	case token.MINUS_MINUS:
		p.emitOp(OpDecrement)
	}

	if instance {
		p.emitOpByte(OpSetProperty, arg)
		return
	}

	var setOp Opcode
	slot := p.resolveLocal(p.frame, cur.Lexeme)
	if slot != -1 {
		setOp = OpSetLocal
		arg = byte(slot)
	} else if slot = p.resolveUpvalue(p.frame, cur.Lexeme); slot != -1 {
		setOp = OpSetUpvalue
		arg = byte(slot)
	} else {
		setOp = OpSetGlobal
		arg = p.identifierConstant(cur.Lexeme)
	}
	p.emitOpByte(setOp, arg)
}
