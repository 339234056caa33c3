// Command tachyon is the external CLI contract of spec.md §6: a thin
// consumer of the tachyon package, with no codec logic of its own.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tachyon-genomics/tachyon"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tachyon",
		Short:         "Tachyon columnar variant-call archive tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newImportCmd(), newViewCmd())
	return root
}

func main() {
	os.Exit(run())
}

func run() int {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "tachyon:", err)
		if kind := tachyon.Classify(err); kind != tachyon.ErrUnknown {
			return tachyon.ExitCode(kind)
		}
		return 1
	}
	return 0
}
