// Command codesim uploads source files to a code similarity service and
// runs pairwise, one-vs-all and batch comparisons, either from the
// terminal UI or from scriptable subcommands.
//
// Usage:
//
//	codesim                          Terminal UI (same as codesim tui)
//	codesim list                     Library page as a table
//	codesim upload a.go b.go         Upload files (language from extension)
//	codesim compare pair 1 2         Pairwise similarity
//	codesim compare all 1            One file against the library
//	codesim compare batch 1 2 3      Target against chosen files
//	codesim history                  Recent comparison runs
//	codesim events                   JSONL event log viewer
//	codesim config show|init         Effective configuration
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "codesim:", err)
		os.Exit(1)
	}
}
