// Package compiler fuses scanning, parsing and code generation into a
// single pass: there is no intermediate AST. Source text goes in, a
// compiled *object.Function (and any diagnostics) comes out.
package compiler

import (
	"fmt"
	"sort"
	"strings"
)

// Diagnostic is a single compile-time error, formatted the way the
// reference implementation reports them: "[line N] Error at 'lexeme': msg"
// or "[line N] Error at end: msg" for an error at EOF.
type Diagnostic struct {
	Line    int
	Where   string // "", "end", or a lexeme
	Message string
}

func (d Diagnostic) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[line %d] Error", d.Line)
	switch d.Where {
	case "":
	case "end":
		sb.WriteString(" at end")
	default:
		fmt.Fprintf(&sb, " at '%s'", d.Where)
	}
	fmt.Fprintf(&sb, ": %s", d.Message)
	return sb.String()
}

// Diagnostics accumulates every error produced while compiling a single
// source file, in source order, in the manner of go/scanner.ErrorList.
type Diagnostics []Diagnostic

func (d Diagnostics) Error() string {
	switch len(d) {
	case 0:
		return "no errors"
	case 1:
		return d[0].Error()
	}
	var sb strings.Builder
	for i, diag := range d {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(diag.Error())
	}
	return sb.String()
}

// Unwrap lets errors.Is/As reach down into individual diagnostics.
func (d Diagnostics) Unwrap() []error {
	errs := make([]error, len(d))
	for i := range d {
		errs[i] = d[i]
	}
	return errs
}

// sort orders diagnostics by line, then by insertion order for ties
// (stable), matching the scanner/parser convention of reporting errors as
// they are discovered in a left-to-right pass.
func (d Diagnostics) sort() {
	sort.SliceStable(d, func(i, j int) bool { return d[i].Line < d[j].Line })
}
