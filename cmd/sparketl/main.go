// Command sparketl loads the sparkify song catalog and listening logs into
// PostgreSQL. See `sparketl load --help`.
package main

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"github.com/vvka-141/sparketl/internal/cli"
	"github.com/vvka-141/sparketl/pkg/sparketl"
)

func main() {
	os.Exit(run(cli.Execute, os.Stderr))
}

// run executes the CLI and maps its outcome to a process exit code.
// A panic is reported with its stack as ExitPanic.
func run(execute func() error, stderr io.Writer) (code int) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(stderr, "sparketl: internal error: %v\n%s\n", r, debug.Stack())
			code = sparketl.ExitPanic
		}
	}()

	if err := execute(); err != nil {
		return sparketl.ExitCodeForError(err)
	}
	return sparketl.ExitSuccess
}
