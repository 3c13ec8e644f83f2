package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"quill/internal/driver"
	"quill/internal/namespace"
)

var treeCmd = &cobra.Command{
	Use:   "tree [flags] [dir]",
	Short: "Print the module tree of a quill project",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTree,
}

func init() {
	treeCmd.Flags().Bool("all", false, "also print the modules of dependencies")
	treeCmd.Flags().Bool("items", true, "print the declarations of every module")
}

func runTree(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}
	showAll, err := cmd.Flags().GetBool("all")
	if err != nil {
		return fmt.Errorf("failed to get all flag: %w", err)
	}
	showItems, err := cmd.Flags().GetBool("items")
	if err != nil {
		return fmt.Errorf("failed to get items flag: %w", err)
	}
	maxDiagnostics, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	useColor, err := colorEnabled(cmd)
	if err != nil {
		return err
	}

	cleanup, dump, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := driver.Check(cmd.Context(), dir, driver.Options{MaxDiagnostics: maxDiagnostics})
	if err != nil {
		return err
	}
	if res.Bag.Len() > 0 {
		renderResult(cmd.ErrOrStderr(), res, renderOptions{format: "pretty", color: useColor, withNotes: true, quiet: true})
	}
	if res.Namespace != nil {
		renderModuleTree(cmd.OutOrStdout(), res.Namespace.RootModule(), treeOptions{
			external: showAll,
			items:    showItems,
			color:    useColor,
		})
	}
	if res.HasErrors() || res.Namespace == nil {
		dump(cmd.ErrOrStderr(), res.SessionID.String())
		return errDiagnostics
	}
	return nil
}

type treeOptions struct {
	external bool
	items    bool
	color    bool
}

type treeStyles struct {
	enabled  bool
	module   lipgloss.Style
	external lipgloss.Style
	kind     lipgloss.Style
	pub      lipgloss.Style
	branch   lipgloss.Style
}

func newTreeStyles(w io.Writer, enabled bool) treeStyles {
	r := lipgloss.NewRenderer(w)
	return treeStyles{
		enabled:  enabled,
		module:   r.NewStyle().Bold(true),
		external: r.NewStyle().Faint(true),
		kind:     r.NewStyle().Foreground(lipgloss.Color("6")),
		pub:      r.NewStyle().Foreground(lipgloss.Color("2")),
		branch:   r.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

func (s treeStyles) render(st lipgloss.Style, text string) string {
	if !s.enabled {
		return text
	}
	return st.Render(text)
}

type treeEntry struct {
	label string
	sub   *namespace.Module
}

// renderModuleTree prints root and its submodules as a tree. Dependency
// modules are collapsed to one line unless opts.external is set.
func renderModuleTree(w io.Writer, root *namespace.Module, opts treeOptions) {
	st := newTreeStyles(w, opts.color)
	fmt.Fprintln(w, st.render(st.module, root.Name()))
	renderChildren(w, root, "", opts, st)
}

func renderChildren(w io.Writer, mod *namespace.Module, prefix string, opts treeOptions, st treeStyles) {
	var entries []treeEntry
	if opts.items {
		for _, item := range mod.Items.All() {
			entries = append(entries, treeEntry{label: itemLabel(item, st)})
		}
	}
	for _, sub := range mod.Submodules() {
		entries = append(entries, treeEntry{label: moduleLabel(sub, mod, st), sub: sub})
	}
	for i, e := range entries {
		last := i == len(entries)-1
		branch, indent := "├── ", "│   "
		if last {
			branch, indent = "└── ", "    "
		}
		fmt.Fprintf(w, "%s%s%s\n", prefix, st.render(st.branch, branch), e.label)
		if e.sub == nil {
			continue
		}
		// внешние модули раскрываются только с --all
		if e.sub.IsExternal && !mod.IsExternal && !opts.external {
			continue
		}
		renderChildren(w, e.sub, prefix+st.render(st.branch, indent), opts, st)
	}
}

func moduleLabel(sub, parent *namespace.Module, st treeStyles) string {
	label := st.render(st.module, sub.Name())
	if sub.Visibility.IsPublic() {
		label = st.render(st.pub, "pub") + " " + label
	}
	if sub.IsExternal && !parent.IsExternal {
		label += " " + st.render(st.external, "[external]")
	}
	return label
}

func itemLabel(item *namespace.Item, st treeStyles) string {
	kind := "fn"
	switch item.Kind {
	case namespace.ItemStruct:
		kind = "struct"
	case namespace.ItemEnum:
		kind = "enum"
	}
	label := st.render(st.kind, kind) + " " + item.Name
	if item.Vis.IsPublic() {
		label = st.render(st.pub, "pub") + " " + label
	}
	return label
}
