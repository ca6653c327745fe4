package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ejrgilbert/whammc/api"
	"github.com/ejrgilbert/whammc/internal/compilerconfig"
	"github.com/ejrgilbert/whammc/internal/diagnostics"
)

func newCompileCmd(stdOut, stdErr *os.File, flags *rootFlags) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "compile <script.mm> <input.wasm> <output.wasm>",
		Short: "Instrument a Wasm binary with a whamm script",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(stdOut, stdErr, flags, configPath, args[0], args[1], args[2])
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "whammc.yaml", "project config file (optional)")
	return cmd
}

func runCompile(stdOut, stdErr *os.File, flags *rootFlags, configPath, scriptPath, wasmInPath, wasmOutPath string) error {
	cfg, err := compilerconfig.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading %s: %w", configPath, err)
	}

	scriptText, err := os.ReadFile(scriptPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", scriptPath, err)
	}
	wasmIn, err := os.ReadFile(wasmInPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", wasmInPath, err)
	}

	scripts := []api.Script{{Path: scriptPath, Text: string(scriptText)}}
	opts := api.Options{EnabledProviders: cfg.Providers}

	result, compileErr := api.Compile(scripts, wasmIn, opts)

	reporter := newReporter(stdErr, flags.color)
	reporter.LoadSource(scriptPath, string(scriptText))
	for _, d := range result.Diagnostics {
		reporter.Report(d)
	}

	if compileErr != nil {
		return compileErr
	}

	if err := os.WriteFile(wasmOutPath, result.Wasm, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", wasmOutPath, err)
	}
	fmt.Fprintf(stdOut, "wrote %s (%d bytes)\n", wasmOutPath, len(result.Wasm))
	return nil
}

func newReporter(stdErr *os.File, color string) *diagnostics.Reporter {
	r := diagnostics.NewReporter(stdErr)
	switch color {
	case "always":
		r.ForceColor(true)
	case "never":
		r.ForceColor(false)
	}
	return r
}
