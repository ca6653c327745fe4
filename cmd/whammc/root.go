package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// rootFlags holds the persistent flags shared by every subcommand
// (spec.md's ambient CLI addition: `--color`, `-v` need to reach every
// subcommand's body, which is exactly what cobra.Command.PersistentFlags
// is for and a plain flag.FlagSet per subcommand is not).
type rootFlags struct {
	color   string // "auto", "always", "never"
	verbose int    // -v, -vv, -vvv raise the logrus level
}

func newRootCmd(stdOut, stdErr *os.File) *cobra.Command {
	var flags rootFlags

	root := &cobra.Command{
		Use:           "whammc",
		Short:         "Compile whamm instrumentation scripts into instrumented Wasm binaries",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			applyVerbosity(flags.verbose)
		},
	}
	root.PersistentFlags().StringVar(&flags.color, "color", "auto", "colorize diagnostic output: auto, always, never")
	root.PersistentFlags().CountVarP(&flags.verbose, "verbose", "v", "increase log verbosity (-v, -vv, -vvv)")

	root.AddCommand(newCompileCmd(stdOut, stdErr, &flags))
	root.AddCommand(newDocCmd(stdOut, stdErr))
	root.AddCommand(newVersionCmd(stdOut))
	return root
}

func applyVerbosity(v int) {
	switch {
	case v >= 2:
		logrus.SetLevel(logrus.TraceLevel)
	case v == 1:
		logrus.SetLevel(logrus.DebugLevel)
	default:
		logrus.SetLevel(logrus.WarnLevel)
	}
}
