package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"quill/internal/diagfmt"
	"quill/internal/driver"
	"quill/internal/observ"
)

// renderOptions are the diagnostic output flags shared by check and abi.
type renderOptions struct {
	format    string
	pathMode  diagfmt.PathMode
	withNotes bool
	color     bool
	quiet     bool
}

func addRenderFlags(cmd *cobra.Command) {
	cmd.Flags().String("format", "pretty", "diagnostic format (pretty|short|json)")
	cmd.Flags().String("path-mode", "auto", "how to print file paths (auto|absolute|relative|basename)")
	cmd.Flags().Bool("with-notes", true, "include diagnostic notes")
}

func readRenderOptions(cmd *cobra.Command) (renderOptions, error) {
	var opts renderOptions
	var err error
	if opts.format, err = cmd.Flags().GetString("format"); err != nil {
		return opts, fmt.Errorf("failed to get format flag: %w", err)
	}
	switch opts.format {
	case "pretty", "short", "json":
	default:
		return opts, fmt.Errorf("unknown format: %s", opts.format)
	}
	pathMode, err := cmd.Flags().GetString("path-mode")
	if err != nil {
		return opts, fmt.Errorf("failed to get path-mode flag: %w", err)
	}
	if opts.pathMode, err = diagfmt.ParsePathMode(pathMode); err != nil {
		return opts, err
	}
	if opts.withNotes, err = cmd.Flags().GetBool("with-notes"); err != nil {
		return opts, fmt.Errorf("failed to get with-notes flag: %w", err)
	}
	if opts.quiet, err = cmd.Root().PersistentFlags().GetBool("quiet"); err != nil {
		return opts, fmt.Errorf("failed to get quiet flag: %w", err)
	}
	if opts.color, err = colorEnabled(cmd); err != nil {
		return opts, err
	}
	return opts, nil
}

// readDriverOptions collects the flags that shape a check session.
func readDriverOptions(cmd *cobra.Command) (driver.Options, error) {
	var opts driver.Options
	var err error
	if opts.MaxDiagnostics, err = cmd.Root().PersistentFlags().GetInt("max-diagnostics"); err != nil {
		return opts, fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	if opts.MaxDiagnostics < 0 {
		return opts, fmt.Errorf("--max-diagnostics must not be negative")
	}
	if opts.WarningsAsErrors, err = cmd.Flags().GetBool("warnings-as-errors"); err != nil {
		return opts, fmt.Errorf("failed to get warnings-as-errors flag: %w", err)
	}
	useCache, err := cmd.Flags().GetBool("cache")
	if err != nil {
		return opts, fmt.Errorf("failed to get cache flag: %w", err)
	}
	cacheDir, err := cmd.Flags().GetString("cache-dir")
	if err != nil {
		return opts, fmt.Errorf("failed to get cache-dir flag: %w", err)
	}
	switch {
	case cacheDir != "":
		opts.Cache, err = driver.NewDiskCache(cacheDir)
	case useCache:
		opts.Cache, err = driver.OpenDiskCache("quill")
	}
	if err != nil {
		return opts, fmt.Errorf("failed to open cache: %w", err)
	}
	return opts, nil
}

func addDriverFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("warnings-as-errors", false, "treat warnings as errors")
	cmd.Flags().Bool("cache", false, "reuse results of unchanged projects from the user cache directory")
	cmd.Flags().String("cache-dir", "", "cache directory (implies --cache)")
}

// renderResult prints the diagnostics of one project.
func renderResult(w io.Writer, res *driver.Result, opts renderOptions) {
	switch opts.format {
	case "short":
		diagfmt.Short(w, res.Bag, res.Files, opts.pathMode, opts.withNotes)
	default:
		diagfmt.Pretty(w, res.Bag, res.Files, diagfmt.PrettyOpts{
			Color:     opts.color,
			Context:   2,
			PathMode:  opts.pathMode,
			ShowNotes: opts.withNotes,
		})
		if res.Bag.Len() > 0 && !opts.quiet {
			fmt.Fprintln(w)
			diagfmt.Summary(w, res.Bag, opts.color)
		}
	}
}

type projectJSON struct {
	Dir     string `json:"dir"`
	Package string `json:"package,omitempty"`
	Cached  bool   `json:"cached,omitempty"`
	Error   string `json:"error,omitempty"`
	diagfmt.DiagnosticsOutput
	Timings *observ.Report `json:"timings,omitempty"`
}

// renderJSON prints every project as one JSON array.
func renderJSON(w io.Writer, results []driver.ProjectResult, opts renderOptions) error {
	out := make([]projectJSON, 0, len(results))
	for _, r := range results {
		p := projectJSON{Dir: r.Dir, DiagnosticsOutput: diagfmt.DiagnosticsOutput{Diagnostics: []diagfmt.DiagnosticJSON{}}}
		if r.Err != nil {
			p.Error = r.Err.Error()
		}
		if r.Result != nil {
			p.Package = r.Result.Root.Name()
			p.Cached = r.Result.Cached
			p.DiagnosticsOutput = diagfmt.BuildDiagnosticsOutput(r.Result.Bag, r.Result.Files, diagfmt.JSONOpts{
				IncludePositions: true,
				PathMode:         opts.pathMode,
				IncludeNotes:     opts.withNotes,
			})
			if len(r.Result.Timings.Phases) > 0 {
				p.Timings = &r.Result.Timings
			}
		}
		out = append(out, p)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
