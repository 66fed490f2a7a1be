package compiler

import (
	"github.com/mna/wisp/lang/object"
	"github.com/mna/wisp/lang/token"
)

// Compile tokenizes and compiles src into a function representing the
// top-level script, fusing scanning, parsing and bytecode emission into a
// single left-to-right pass with no intermediate AST (spec.md §1/§4).
//
// On success it returns the compiled function and a nil Diagnostics. If
// any error was encountered, the returned function is nil and diags
// describes every error found (parsing continues past the first one via
// panic-mode recovery, spec.md §4.1).
func Compile(src []byte, opts Options) (*object.Function, Diagnostics) {
	p := newParser(src, opts)
	p.pushFrame(KindTopLevel, "")

	p.advance()
	if !p.match(token.EOF) {
		for {
			p.declaration()
			if p.match(token.EOF) {
				break
			}
		}
	}

	fn := p.popFrame()

	if len(p.diags) > 0 {
		p.diags.sort()
		return nil, p.diags
	}
	return fn, nil
}
