package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"quill/internal/abi"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// newProject creates lib and app packages and returns the app directory.
func newProject(t *testing.T, appDecls string) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "lib", "quill.toml"), "[package]\nname = \"lib\"\n")
	writeFile(t, filepath.Join(root, "lib", "src", "lib.yaml"), `
structs:
  - name: Coin
    pub: true
    fields:
      - {name: amount, type: u64}
`)
	writeFile(t, filepath.Join(root, "app", "quill.toml"), "[package]\nname = \"app\"\n\n[dependencies]\nlib = \"../lib\"\n")
	writeFile(t, filepath.Join(root, "app", "src", "app.yaml"), appDecls)
	return filepath.Join(root, "app")
}

const appYAML = `
structs:
  - name: Wallet
    pub: true
    fields:
      - {name: coin, type: "lib::Coin"}
functions:
  - name: total
    pub: true
    returns: u64
`

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestTreeCommand(t *testing.T) {
	dir := newProject(t, appYAML)

	out, stderr, err := execute(t, "tree", dir)
	if err != nil {
		t.Fatalf("tree: %v\n%s", err, stderr)
	}
	for _, want := range []string{"app\n", "├── pub struct Wallet\n", "├── pub fn total\n", "└── pub lib [external]\n"} {
		if !strings.Contains(out, want) {
			t.Fatalf("tree output misses %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Coin") {
		t.Fatalf("dependency modules must stay collapsed:\n%s", out)
	}

	out, _, err = execute(t, "tree", "--all", dir)
	if err != nil {
		t.Fatalf("tree --all: %v", err)
	}
	if !strings.Contains(out, "    └── pub struct Coin\n") {
		t.Fatalf("--all should expand dependencies:\n%s", out)
	}
}

func TestCheckCommandFails(t *testing.T) {
	dir := newProject(t, `
structs:
  - name: Wallet
    fields:
      - {name: coin, type: u65}
`)
	out, _, err := execute(t, "check", "--format", "short", dir)
	if !errors.Is(err, errDiagnostics) {
		t.Fatalf("expected errDiagnostics, got %v", err)
	}
	if !strings.Contains(out, "app.yaml:") || !strings.Contains(out, "u65") {
		t.Fatalf("short output = %q", out)
	}
}

func TestCheckCommandJSON(t *testing.T) {
	dir := newProject(t, appYAML)
	out, _, err := execute(t, "check", "--format", "json", dir)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !strings.Contains(out, `"package": "app"`) || !strings.Contains(out, `"count": 0`) {
		t.Fatalf("json output = %s", out)
	}
}

func TestABICommand(t *testing.T) {
	dir := newProject(t, appYAML)
	out, stderr, err := execute(t, "abi", dir)
	if err != nil {
		t.Fatalf("abi: %v\n%s", err, stderr)
	}
	prog, err := abi.ReadJSON(strings.NewReader(out))
	if err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if prog.Package != "app" {
		t.Fatalf("package = %q", prog.Package)
	}
	if _, ok := prog.Function("total"); !ok {
		t.Fatalf("abi misses total: %+v", prog.Functions)
	}
}

func TestVersionCommandJSON(t *testing.T) {
	out, _, err := execute(t, "version", "--format", "json")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out, `"tool": "quill"`) {
		t.Fatalf("version output = %s", out)
	}
	versionFormat = "pretty"
}

func TestCheckCommandTimingsAndProfile(t *testing.T) {
	t.Cleanup(func() {
		_ = checkCmd.Flags().Set("timings", "false")
		_ = checkCmd.Flags().Set("format", "pretty")
		_ = rootCmd.PersistentFlags().Set("cpuprofile", "")
	})
	dir := newProject(t, appYAML)
	cpu := filepath.Join(t.TempDir(), "cpu.pprof")
	out, stderr, err := execute(t, "check", "--format", "json", "--timings", "--cpuprofile", cpu, dir)
	if err != nil {
		t.Fatalf("check: %v\n%s", err, stderr)
	}
	if !strings.Contains(out, `"timings"`) || !strings.Contains(out, `"name": "check"`) {
		t.Fatalf("json output has no timings: %s", out)
	}
	if _, err := os.Stat(cpu); err != nil {
		t.Fatalf("cpu profile not written: %v", err)
	}
}
