package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is overridden at build time with -ldflags "-X main.version=...",
// the way the teacher's own cmd/wazero stamps its release version.
var version = "dev"

func newVersionCmd(stdOut *os.File) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the whammc version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(stdOut, version)
			return nil
		},
	}
}
