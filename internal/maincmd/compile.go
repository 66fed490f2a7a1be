package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"
	"github.com/mna/wisp/lang/compiler"
)

func (c *Cmd) Compile(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return CompileFiles(ctx, stdio, compiler.Options{REPLMode: c.REPL}, args...)
}

// CompileFiles runs the full single-pass compiler over each file and
// reports either a bytecode summary or the diagnostics produced. Full
// bytecode disassembly is outside this tool's job (that belongs to the
// VM side of the toolchain); this only proves a file compiles cleanly
// and gives a rough sense of how much code it produced.
func CompileFiles(ctx context.Context, stdio mainer.Stdio, opts compiler.Options, files ...string) error {
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

		fn, diags := compiler.Compile(src, opts)
		if diags != nil {
			for _, d := range diags {
				fmt.Fprintf(stdio.Stderr, "%s: %s\n", file, d.Error())
			}
			if firstErr == nil {
				firstErr = diags
			}
			continue
		}

		fmt.Fprintf(stdio.Stdout, "%s: ok, %d bytes of code, %d constants\n",
			file, len(fn.Chunk.Code), len(fn.Chunk.Constants))
	}
	return firstErr
}
