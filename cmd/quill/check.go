package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"quill/internal/driver"
)

var checkCmd = &cobra.Command{
	Use:   "check [flags] [dir...]",
	Short: "Type-check quill projects",
	Long: `Check the project containing each directory (the current one by default) together with its dependencies.
Projects are checked in parallel, each in its own session.`,
	RunE: runCheck,
}

func init() {
	addRenderFlags(checkCmd)
	addDriverFlags(checkCmd)
	checkCmd.Flags().Int("jobs", 0, "max projects checked in parallel (0=auto)")
	checkCmd.Flags().Bool("timings", false, "print how long every phase took (stderr, or \"timings\" in json)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	dirs := args
	if len(dirs) == 0 {
		dirs = []string{"."}
	}
	render, err := readRenderOptions(cmd)
	if err != nil {
		return err
	}
	opts, err := readDriverOptions(cmd)
	if err != nil {
		return err
	}
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return fmt.Errorf("failed to get jobs flag: %w", err)
	}
	if opts.Timings, err = cmd.Flags().GetBool("timings"); err != nil {
		return fmt.Errorf("failed to get timings flag: %w", err)
	}

	stopProf, err := startProfiling(cmd)
	if err != nil {
		return err
	}
	defer stopProf()

	cleanup, dump, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	results, err := driver.CheckAll(cmd.Context(), dirs, opts, jobs)
	if err != nil {
		return err
	}

	failed := false
	var failedSessions []string
	for _, r := range results {
		if r.Err != nil || r.Result.HasErrors() {
			failed = true
		}
		if r.Result.HasErrors() {
			failedSessions = append(failedSessions, r.Result.SessionID.String())
		}
	}

	out := cmd.OutOrStdout()
	if render.format == "json" {
		if err := renderJSON(out, results, render); err != nil {
			return fmt.Errorf("failed to format diagnostics: %w", err)
		}
	} else {
		for _, r := range results {
			if r.Err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "error: %s: %v\n", r.Dir, r.Err)
				continue
			}
			if len(results) > 1 && !render.quiet {
				fmt.Fprintf(out, "== %s (%s)\n", r.Result.Root.Name(), r.Dir)
			}
			renderResult(out, r.Result, render)
			if opts.Timings {
				r.Result.Timings.WriteSummary(cmd.ErrOrStderr())
			}
		}
	}

	if failed {
		// без сессий (только ошибки манифеста) выводится весь буфер
		dump(cmd.ErrOrStderr(), failedSessions...)
		return errDiagnostics
	}
	return nil
}
