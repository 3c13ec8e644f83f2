package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"quill/internal/driver"
)

var abiCmd = &cobra.Command{
	Use:   "abi [flags] [dir]",
	Short: "Print the JSON ABI of a quill project",
	Long:  `Check the project containing dir and print the interface description of its public functions and concrete types`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runABI,
}

func init() {
	addRenderFlags(abiCmd)
	addDriverFlags(abiCmd)
	abiCmd.Flags().StringP("output", "o", "", "write the ABI to a file instead of stdout")
}

func runABI(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}
	render, err := readRenderOptions(cmd)
	if err != nil {
		return err
	}
	opts, err := readDriverOptions(cmd)
	if err != nil {
		return err
	}
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return fmt.Errorf("failed to get output flag: %w", err)
	}

	cleanup, dump, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := driver.Check(cmd.Context(), dir, opts)
	if err != nil {
		return err
	}
	// ABI идёт в stdout, поэтому диагностики печатаем в stderr
	if res.Bag.Len() > 0 && render.format != "json" {
		renderResult(cmd.ErrOrStderr(), res, render)
	} else if res.Bag.Len() > 0 {
		if err := renderJSON(cmd.ErrOrStderr(), []driver.ProjectResult{{Dir: dir, Result: res}}, render); err != nil {
			return fmt.Errorf("failed to format diagnostics: %w", err)
		}
	}
	if res.HasErrors() || res.ABI == nil {
		dump(cmd.ErrOrStderr(), res.SessionID.String())
		return errDiagnostics
	}

	if output == "" {
		return res.ABI.WriteJSON(cmd.OutOrStdout())
	}
	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", output, err)
	}
	if err := res.ABI.WriteJSON(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
