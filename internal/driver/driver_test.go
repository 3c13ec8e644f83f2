package driver

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"quill/internal/diag"
	"quill/internal/trace"
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

// writePackage creates dir/quill.toml and dir/src/decls.yaml.
func writePackage(t *testing.T, dir, name string, deps map[string]string, decls string) {
	t.Helper()
	var sb strings.Builder
	sb.WriteString("[package]\nname = \"" + name + "\"\n")
	if len(deps) > 0 {
		sb.WriteString("\n[dependencies]\n")
		for dep, path := range deps {
			sb.WriteString(dep + " = \"" + path + "\"\n")
		}
	}
	writeFile(t, filepath.Join(dir, "quill.toml"), sb.String())
	writeFile(t, filepath.Join(dir, "src", "decls.yaml"), decls)
}

const libDecls = `
structs:
  - name: Coin
    pub: true
    fields:
      - {name: amount, type: u64}
  - name: Secret
    fields:
      - {name: key, type: b256}
functions:
  - name: value
    pub: true
    returns: u64
`

const appDecls = `
structs:
  - name: Wallet
    pub: true
    fields:
      - {name: coin, type: "lib::Coin"}
functions:
  - name: total
    pub: true
    returns: u64
    body:
      - call: lib::value
`

func codes(bag *diag.Bag) []string {
	out := make([]string, 0, bag.Len())
	for _, d := range bag.Items() {
		out = append(out, d.Code.ID()+" "+d.Message)
	}
	return out
}

func newWorkspace(t *testing.T, app string) string {
	t.Helper()
	root := t.TempDir()
	writePackage(t, filepath.Join(root, "lib"), "lib", nil, libDecls)
	writePackage(t, filepath.Join(root, "app"), "app", map[string]string{"lib": "../lib"}, app)
	return filepath.Join(root, "app")
}

func TestCheckWithDependency(t *testing.T) {
	dir := newWorkspace(t, appDecls)
	res, err := Check(context.Background(), dir, Options{})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if res.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", codes(res.Bag))
	}
	if len(res.Packages) != 2 || res.Packages[0].Name() != "lib" || res.Packages[1].Name() != "app" {
		t.Fatalf("packages not in dependency order: %+v", res.Packages)
	}
	if res.ABI == nil || res.ABI.Package != "app" {
		t.Fatalf("abi = %+v", res.ABI)
	}
	if _, ok := res.ABI.Function("total"); !ok {
		t.Fatalf("abi has no total: %+v", res.ABI.Functions)
	}
	if _, ok := res.ABI.Function("value"); ok {
		t.Fatalf("dependency functions must not leak into the abi")
	}
	lib, ok := res.Namespace.RootModule().Submodule("lib")
	if !ok {
		t.Fatalf("lib is not attached to the module tree")
	}
	if !lib.IsExternal {
		t.Fatalf("attached dependency must be external")
	}
	if res.Root.Meta.Hash == res.Root.Meta.ContentHash {
		t.Fatalf("package hash must include dependency hashes")
	}
}

func TestCheckPrivateDependencyItem(t *testing.T) {
	dir := newWorkspace(t, `
structs:
  - name: Vault
    fields:
      - {name: s, type: "lib::Secret"}
`)
	res, err := Check(context.Background(), dir, Options{})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if n := res.Bag.Count(diag.SemaPrivateItem); n != 1 {
		t.Fatalf("expected one private item error, got %v", codes(res.Bag))
	}
	if res.Packages[0].Broken {
		t.Fatalf("lib has no errors of its own")
	}
	if !res.Root.Broken {
		t.Fatalf("app must be broken")
	}
}

func TestCheckBrokenDependency(t *testing.T) {
	root := t.TempDir()
	writePackage(t, filepath.Join(root, "lib"), "lib", nil, `
structs:
  - name: Coin
    pub: true
    fields:
      - {name: amount, type: u65}
`)
	writePackage(t, filepath.Join(root, "app"), "app", map[string]string{"lib": "../lib"}, "{}\n")
	res, err := Check(context.Background(), filepath.Join(root, "app"), Options{})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if n := res.Bag.Count(diag.SemaUnknownType); n != 1 {
		t.Fatalf("expected the unknown type in lib, got %v", codes(res.Bag))
	}
	if n := res.Bag.Count(diag.ProjDependencyFailed); n != 1 {
		t.Fatalf("expected a failed dependency report, got %v", codes(res.Bag))
	}
	for _, d := range res.Bag.Items() {
		if d.Code != diag.ProjDependencyFailed {
			continue
		}
		if len(d.Notes) != 1 || !strings.Contains(d.Notes[0].Msg, "u65") {
			t.Fatalf("note should quote the first error of lib: %+v", d.Notes)
		}
	}
	if !res.Root.Broken {
		t.Fatalf("app must be broken by its dependency")
	}
}

func TestCheckDependencyCycle(t *testing.T) {
	root := t.TempDir()
	writePackage(t, filepath.Join(root, "a"), "a", map[string]string{"b": "../b"}, "{}\n")
	writePackage(t, filepath.Join(root, "b"), "b", map[string]string{"a": "../a"}, "{}\n")
	res, err := Check(context.Background(), filepath.Join(root, "a"), Options{})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if n := res.Bag.Count(diag.ProjDependencyCycle); n != 2 {
		t.Fatalf("expected a cycle report per package, got %v", codes(res.Bag))
	}
	if res.Root.Result != nil {
		t.Fatalf("packages in a cycle must not be checked")
	}
	if res.ABI != nil {
		t.Fatalf("no abi expected for a cyclic graph")
	}
}

func TestCheckDependencyProblems(t *testing.T) {
	root := t.TempDir()
	writePackage(t, filepath.Join(root, "other"), "other", nil, "{}\n")
	writePackage(t, filepath.Join(root, "app"), "app", map[string]string{
		"missing": "../missing",
		"lib":     "../other",
	}, "{}\n")
	res, err := Check(context.Background(), filepath.Join(root, "app"), Options{})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if n := res.Bag.Count(diag.ProjMissingDependency); n != 1 {
		t.Fatalf("expected one missing dependency, got %v", codes(res.Bag))
	}
	if n := res.Bag.Count(diag.ProjManifest); n != 1 {
		t.Fatalf("expected one name mismatch, got %v", codes(res.Bag))
	}
	f := res.Files.Get(res.Bag.Items()[0].Primary.File)
	if f == nil || filepath.Base(f.Path) != "quill.toml" {
		t.Fatalf("dependency problems should point into the manifest")
	}
}

func TestCheckNoManifest(t *testing.T) {
	_, err := Check(context.Background(), t.TempDir(), Options{})
	if !errors.Is(err, ErrNoManifest) {
		t.Fatalf("expected ErrNoManifest, got %v", err)
	}
}

func TestCheckWarningsAsErrors(t *testing.T) {
	dir := t.TempDir()
	writePackage(t, dir, "app", nil, `
functions:
  - name: lazy
    storage: [write]
`)
	res, err := Check(context.Background(), dir, Options{})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if res.HasErrors() || res.Bag.Count(diag.SemaUnneededStorageAnnotation) != 1 {
		t.Fatalf("expected a single warning, got %v", codes(res.Bag))
	}

	res, err = Check(context.Background(), dir, Options{WarningsAsErrors: true})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !res.HasErrors() {
		t.Fatalf("warning should be promoted: %v", codes(res.Bag))
	}
}

func TestCheckTracesSessionID(t *testing.T) {
	var buf bytes.Buffer
	tracer := trace.NewStreamTracer(&buf, trace.LevelDebug, trace.FormatNDJSON)
	ctx := trace.WithTracer(context.Background(), tracer)

	dir := newWorkspace(t, appDecls)
	res, err := Check(ctx, dir, Options{})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if err := tracer.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, res.SessionID.String()) {
		t.Fatalf("trace does not carry the session id:\n%s", out)
	}
	if !strings.Contains(out, "sema.bodies") {
		t.Fatalf("trace misses checker phases:\n%s", out)
	}
}

func TestCheckAll(t *testing.T) {
	ok := newWorkspace(t, appDecls)
	missing := t.TempDir()

	results, err := CheckAll(context.Background(), []string{ok, missing, ok}, Options{}, 2)
	if err != nil {
		t.Fatalf("CheckAll: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("results = %d", len(results))
	}
	if results[0].Err != nil || results[0].Result.HasErrors() {
		t.Fatalf("first project failed: %v", results[0].Err)
	}
	if !errors.Is(results[1].Err, ErrNoManifest) {
		t.Fatalf("second project: %v", results[1].Err)
	}
	if results[0].Result.SessionID == results[2].Result.SessionID {
		t.Fatalf("every project needs its own session")
	}
}

func TestCheckAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := CheckAll(ctx, []string{t.TempDir()}, Options{}, 1)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

func TestCheckTimings(t *testing.T) {
	dir := newWorkspace(t, appDecls)
	res, err := Check(context.Background(), dir, Options{})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(res.Timings.Phases) != 0 {
		t.Fatalf("timings recorded without being asked for: %+v", res.Timings)
	}

	res, err = Check(context.Background(), dir, Options{Timings: true})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	var names []string
	for _, p := range res.Timings.Phases {
		names = append(names, p.Name+" "+p.Package)
	}
	want := []string{"load ", "graph ", "cache.restore ", "check lib", "check app", "cache.store "}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Fatalf("phases = %q, want %q", names, want)
	}
	if slow := res.Timings.Slowest(1); len(slow) != 1 || slow[0].Package == "" {
		t.Fatalf("slowest = %+v", slow)
	}
}
