// Command whammc compiles whamm instrumentation scripts against a
// WebAssembly binary, producing an instrumented binary (spec.md §6
// "CLI (external collaborator, not core)").
package main

import (
	"os"

	"github.com/sirupsen/logrus"
)

func main() {
	os.Exit(doMain(os.Stdout, os.Stderr))
}

// doMain is separated from main for the purpose of unit testing, the way
// the teacher's own cmd/wazero splits doMain from main.
func doMain(stdOut, stdErr *os.File) int {
	root := newRootCmd(stdOut, stdErr)
	if err := root.Execute(); err != nil {
		logrus.WithError(err).Error("whammc failed")
		return 1
	}
	return 0
}
