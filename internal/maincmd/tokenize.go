package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"
	"github.com/mna/wisp/lang/scanner"
	"github.com/mna/wisp/lang/token"
)

func (c *Cmd) Tokenize(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return TokenizeFiles(ctx, stdio, args...)
}

// TokenizeFiles runs the scanner alone over each file and prints its
// token stream, one token per line, in the spirit of the package's
// "inspect a single phase" tooling.
func TokenizeFiles(ctx context.Context, stdio mainer.Stdio, files ...string) error {
	var firstErr error
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return printError(stdio, err)
		}

		src, err := os.ReadFile(file)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			fmt.Fprintf(stdio.Stderr, "%s: %s\n", file, err)
			continue
		}

		var s scanner.Scanner
		s.Init(src)
		for {
			tok, scanErr := s.Scan()
			if scanErr != nil {
				fmt.Fprintf(stdio.Stderr, "%s:%d: %s\n", file, tok.Line, scanErr)
				if firstErr == nil {
					firstErr = scanErr
				}
				continue
			}
			fmt.Fprintf(stdio.Stdout, "%s:%d: %s", file, tok.Line, tok.Kind)
			if tok.Lexeme != "" {
				fmt.Fprintf(stdio.Stdout, " %q", tok.Lexeme)
			}
			fmt.Fprintln(stdio.Stdout)
			if tok.Kind == token.EOF {
				break
			}
		}
	}
	return firstErr
}
