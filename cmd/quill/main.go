package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"quill/internal/version"
)

var rootCmd = &cobra.Command{
	Use:           "quill",
	Short:         "Quill semantic checker",
	Long:          `Quill type-checks contract declarations, resolves module paths and emits the ABI description`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// errDiagnostics signals that diagnostics with errors were already printed.
var errDiagnostics = errors.New("checking failed")

func init() {
	// Глобальные флаги
	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress non-essential output")
	rootCmd.PersistentFlags().Int("max-diagnostics", 0, "maximum number of diagnostics per package (0 = manifest value or unlimited)")
	rootCmd.PersistentFlags().String("trace", "", "trace output file (\"-\" for stderr)")
	rootCmd.PersistentFlags().String("trace-level", "off", "trace level (off|error|phase|detail|debug)")
	rootCmd.PersistentFlags().String("trace-mode", "stream", "trace storage (stream|ring|both)")
	rootCmd.PersistentFlags().Int("trace-ring-size", 4096, "events kept by the ring tracer")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(abiCmd)
	rootCmd.AddCommand(treeCmd)
	rootCmd.AddCommand(versionCmd)
}

// main sets the version and runs the root command. Any error exits with status 1;
// errDiagnostics is not printed because the diagnostics already were.
func main() {
	rootCmd.Version = version.Version

	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errDiagnostics) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

// isTerminal проверяет, является ли файл терминалом
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// colorEnabled resolves --color against the terminal state of stdout.
func colorEnabled(cmd *cobra.Command) (bool, error) {
	mode, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return false, fmt.Errorf("failed to get color flag: %w", err)
	}
	switch mode {
	case "on":
		return true, nil
	case "off":
		return false, nil
	case "auto":
		f, ok := cmd.OutOrStdout().(*os.File)
		return ok && isTerminal(f), nil
	}
	return false, fmt.Errorf("invalid color mode: %q (expected: auto|on|off)", mode)
}
