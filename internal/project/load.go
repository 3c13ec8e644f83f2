package project

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"fortio.org/safecast"
	"gopkg.in/yaml.v3"

	"quill/internal/ast"
	"quill/internal/diag"
	"quill/internal/source"
)

// Loader reads YAML declaration files into ast packages.
// Format problems are reported as diagnostics; only I/O failures are returned as errors.
type Loader struct {
	Files    *source.FileSet
	Strings  *source.Interner
	Reporter diag.Reporter
}

func NewLoader(files *source.FileSet, strs *source.Interner, r diag.Reporter) *Loader {
	return &Loader{Files: files, Strings: strs, Reporter: r}
}

// LoadPackage reads every declaration file of m into a fresh package.
func (l *Loader) LoadPackage(m *Manifest) (*ast.Package, error) {
	paths, err := m.SourceFiles()
	if err != nil {
		return nil, err
	}
	pkg := ast.NewPackage(m.Name())
	for _, path := range paths {
		if err := l.LoadFile(pkg, path); err != nil {
			return nil, err
		}
	}
	return pkg, nil
}

// LoadFile reads one declaration file from disk into pkg.
func (l *Loader) LoadFile(pkg *ast.Package, path string) error {
	id, err := l.Files.Load(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	l.decode(pkg, id)
	return nil
}

// LoadSource adds in-memory content as a virtual file of pkg.
func (l *Loader) LoadSource(pkg *ast.Package, name string, content []byte) source.FileID {
	id := l.Files.AddVirtual(name, content)
	l.decode(pkg, id)
	return id
}

// ManifestSpan loads the manifest into the file set and returns a span at its [package] header.
func (l *Loader) ManifestSpan(m *Manifest) (source.Span, error) {
	id, err := l.Files.Load(m.Path)
	if err != nil {
		return source.Span{}, fmt.Errorf("failed to read %s: %w", m.Path, err)
	}
	f := l.Files.Get(id)
	return keySpan(f, "[package]"), nil
}

// DependencySpan returns the span of name's entry in the manifest file, or the file start.
func (l *Loader) DependencySpan(manifest source.Span, name string) source.Span {
	f := l.Files.Get(manifest.File)
	if f == nil {
		return manifest
	}
	return keySpan(f, name)
}

func keySpan(f *source.File, key string) source.Span {
	for i := 0; i <= len(f.LineIdx); i++ {
		line, err := safecast.Conv[uint32](i + 1)
		if err != nil {
			break
		}
		text := f.GetLine(line)
		trimmed := strings.TrimSpace(text)
		if trimmed == key || strings.HasPrefix(trimmed, key+" ") || strings.HasPrefix(trimmed, key+"=") {
			col, err := safecast.Conv[uint32](strings.Index(text, key) + 1)
			if err != nil {
				break
			}
			return f.LineSpan(source.LineCol{Line: line, Col: col})
		}
	}
	return source.Span{File: f.ID}
}

var yamlLineRE = regexp.MustCompile(`line (\d+)`)

func (l *Loader) decode(pkg *ast.Package, id source.FileID) {
	f := l.Files.Get(id)
	pkg.Files = append(pkg.Files, id)
	d := &fileDecoder{l: l, file: f, pkg: pkg}

	var doc yaml.Node
	if err := yaml.Unmarshal(f.Content, &doc); err != nil {
		d.reportYAMLError(err)
		return
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return // пустой файл
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		d.errorf(root, "declaration file must be a mapping")
		return
	}
	d.items(root, &pkg.Root, true)
}

type fileDecoder struct {
	l    *Loader
	file *source.File
	pkg  *ast.Package
}

func (d *fileDecoder) reportYAMLError(err error) {
	line := uint32(1)
	msg := err.Error()
	var te *yaml.TypeError
	if errors.As(err, &te) && len(te.Errors) > 0 {
		msg = te.Errors[0]
	}
	if m := yamlLineRE.FindStringSubmatch(msg); m != nil {
		if n, convErr := strconv.ParseUint(m[1], 10, 32); convErr == nil && n > 0 {
			line = uint32(n)
		}
	}
	sp := d.file.LineSpan(source.LineCol{Line: line, Col: 1})
	diag.ReportError(d.l.Reporter, diag.ProjDeclFile, sp, msg).Emit()
}

// span covers a scalar's text; collections get the rest of their first line.
func (d *fileDecoder) span(n *yaml.Node) source.Span {
	line, err := safecast.Conv[uint32](n.Line)
	if err != nil {
		panic(fmt.Errorf("yaml line overflow: %w", err))
	}
	col, err := safecast.Conv[uint32](n.Column)
	if err != nil {
		panic(fmt.Errorf("yaml column overflow: %w", err))
	}
	pos := source.LineCol{Line: line, Col: col}
	if n.Kind != yaml.ScalarNode {
		return d.file.LineSpan(pos)
	}
	start := d.file.Offset(pos)
	if n.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle) != 0 {
		start++
	}
	width, err := safecast.Conv[uint32](len(n.Value))
	if err != nil {
		panic(fmt.Errorf("yaml scalar overflow: %w", err))
	}
	line0 := d.file.LineSpan(pos)
	end := start + width
	if end > line0.End {
		end = line0.End
	}
	if start > end {
		start = end
	}
	return source.Span{File: d.file.ID, Start: start, End: end}
}

func (d *fileDecoder) errorf(n *yaml.Node, format string, args ...any) {
	diag.ReportError(d.l.Reporter, diag.ProjDeclFile, d.span(n), fmt.Sprintf(format, args...)).Emit()
}

// fields iterates a mapping, reporting keys outside allowed and repeated keys.
func (d *fileDecoder) fields(n *yaml.Node, what string, allowed []string, fn func(key string, val *yaml.Node)) {
	if n.Kind != yaml.MappingNode {
		d.errorf(n, "%s must be a mapping", what)
		return
	}
	seen := make(map[string]*yaml.Node, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if prev, dup := seen[k.Value]; dup {
			diag.ReportError(d.l.Reporter, diag.ProjDeclFile, d.span(k), fmt.Sprintf("duplicate key %q in %s", k.Value, what)).
				WithNote(d.span(prev), "first written here").
				Emit()
			continue
		}
		seen[k.Value] = k
		if !slices.Contains(allowed, k.Value) {
			d.errorf(k, "unknown key %q in %s (expected one of: %s)", k.Value, what, strings.Join(allowed, ", "))
			continue
		}
		fn(k.Value, v)
	}
}

func (d *fileDecoder) seq(n *yaml.Node, what string, fn func(*yaml.Node)) {
	if n.Kind != yaml.SequenceNode {
		d.errorf(n, "%s must be a list", what)
		return
	}
	for _, item := range n.Content {
		fn(item)
	}
}

func (d *fileDecoder) scalar(n *yaml.Node, what string) (string, bool) {
	if n.Kind != yaml.ScalarNode {
		d.errorf(n, "%s must be a string", what)
		return "", false
	}
	return n.Value, true
}

func (d *fileDecoder) ident(n *yaml.Node, what string) (ast.Ident, bool) {
	raw, ok := d.scalar(n, what)
	if !ok {
		return ast.Ident{}, false
	}
	name := NormalizeIdent(raw)
	if !IsValidIdent(name) {
		d.errorf(n, "invalid %s %q", what, raw)
		return ast.Ident{}, false
	}
	return ast.Ident{Name: d.l.Strings.Intern(name), Span: d.span(n)}, true
}

func (d *fileDecoder) idents(n *yaml.Node, what string) []ast.Ident {
	var out []ast.Ident
	d.seq(n, what+" list", func(item *yaml.Node) {
		if id, ok := d.ident(item, what); ok {
			out = append(out, id)
		}
	})
	return out
}

func (d *fileDecoder) visibility(n *yaml.Node) ast.Visibility {
	var pub bool
	if err := n.Decode(&pub); err != nil {
		d.errorf(n, "pub must be true or false")
		return ast.VisPrivate
	}
	if pub {
		return ast.VisPublic
	}
	return ast.VisPrivate
}

// path splits a::b::c into interned segments.
func (d *fileDecoder) path(n *yaml.Node, what string) ([]source.StringID, bool) {
	raw, ok := d.scalar(n, what)
	if !ok {
		return nil, false
	}
	parts := strings.Split(strings.TrimSpace(raw), "::")
	out := make([]source.StringID, 0, len(parts))
	for _, part := range parts {
		name := NormalizeIdent(part)
		if !IsValidIdent(name) {
			d.errorf(n, "invalid %s %q", what, raw)
			return nil, false
		}
		out = append(out, d.l.Strings.Intern(name))
	}
	return out, true
}

func (d *fileDecoder) typeExpr(n *yaml.Node) ast.TypeExprID {
	if n.Kind != yaml.ScalarNode {
		d.errorf(n, "type must be a string; quote array types like \"[u8; 32]\"")
		return ast.NoTypeExprID
	}
	base := d.span(n)
	id, err := ParseTypeExpr(n.Value, base, d.l.Strings, d.pkg.Types)
	if err != nil {
		sp := base
		var te *TypeExprError
		if errors.As(err, &te) {
			sp = te.Span(base)
		}
		diag.ReportError(d.l.Reporter, diag.ProjTypeExpr, sp, err.Error()).Emit()
		return ast.NoTypeExprID
	}
	return id
}

var itemKeys = []string{"structs", "enums", "functions", "impls", "modules", "storage"}

func (d *fileDecoder) items(n *yaml.Node, items *ast.Items, root bool) {
	d.fields(n, "module", itemKeys, func(key string, val *yaml.Node) {
		switch key {
		case "structs":
			d.seq(val, "structs", func(item *yaml.Node) {
				if s, ok := d.structDecl(item); ok {
					items.Structs = append(items.Structs, s)
				}
			})
		case "enums":
			d.seq(val, "enums", func(item *yaml.Node) {
				if e, ok := d.enumDecl(item); ok {
					items.Enums = append(items.Enums, e)
				}
			})
		case "functions":
			d.seq(val, "functions", func(item *yaml.Node) {
				if f, ok := d.fnDecl(item); ok {
					items.Fns = append(items.Fns, f)
				}
			})
		case "impls":
			d.seq(val, "impls", func(item *yaml.Node) {
				if im, ok := d.implDecl(item); ok {
					items.Impls = append(items.Impls, im)
				}
			})
		case "modules":
			d.seq(val, "modules", func(item *yaml.Node) {
				if m, ok := d.modDecl(item); ok {
					items.Mods = append(items.Mods, m)
				}
			})
		case "storage":
			if !root {
				d.errorf(val, "storage can only be declared at the package root")
				return
			}
			d.storage(val)
		}
	})
}

func (d *fileDecoder) storage(n *yaml.Node) {
	sp := d.span(n)
	if prev := d.pkg.Storage; prev != nil {
		diag.ReportError(d.l.Reporter, diag.ProjDeclFile, sp, "storage declared more than once").
			WithNote(prev.Span, "previous storage declaration").
			Emit()
		return
	}
	d.pkg.Storage = &ast.StorageDecl{Fields: d.fieldList(n, "storage"), Span: sp}
}

func (d *fileDecoder) fieldList(n *yaml.Node, what string) []ast.Field {
	var out []ast.Field
	d.seq(n, what, func(item *yaml.Node) {
		if item.Kind != yaml.MappingNode {
			d.errorf(item, "field must be a mapping with name and type")
			return
		}
		var f ast.Field
		ok := true
		d.fields(item, "field", []string{"name", "type"}, func(key string, val *yaml.Node) {
			switch key {
			case "name":
				f.Name, ok = d.ident(val, "field name")
			case "type":
				f.Type = d.typeExpr(val)
			}
		})
		if !ok || f.Name.Name == source.NoStringID {
			if ok {
				d.errorf(item, "field needs a name")
			}
			return
		}
		if !f.Type.IsValid() {
			if !hasKey(item, "type") {
				d.errorf(item, "field %q needs a type", d.l.Strings.MustLookup(f.Name.Name))
			}
			return
		}
		f.Span = d.span(item)
		out = append(out, f)
	})
	return out
}

func (d *fileDecoder) structDecl(n *yaml.Node) (ast.StructDecl, bool) {
	s := ast.StructDecl{Span: d.span(n)}
	ok := true
	d.fields(n, "struct", []string{"name", "pub", "type_params", "fields"}, func(key string, val *yaml.Node) {
		switch key {
		case "name":
			s.Name, ok = d.ident(val, "struct name")
		case "pub":
			s.Vis = d.visibility(val)
		case "type_params":
			s.TypeParams = d.idents(val, "type parameter")
		case "fields":
			s.Fields = d.fieldList(val, "fields")
		}
	})
	return s, d.named(n, s.Name, ok, "struct")
}

func (d *fileDecoder) enumDecl(n *yaml.Node) (ast.EnumDecl, bool) {
	e := ast.EnumDecl{Span: d.span(n)}
	ok := true
	d.fields(n, "enum", []string{"name", "pub", "type_params", "variants"}, func(key string, val *yaml.Node) {
		switch key {
		case "name":
			e.Name, ok = d.ident(val, "enum name")
		case "pub":
			e.Vis = d.visibility(val)
		case "type_params":
			e.TypeParams = d.idents(val, "type parameter")
		case "variants":
			d.seq(val, "variants", func(item *yaml.Node) {
				if v, vok := d.variant(item); vok {
					e.Variants = append(e.Variants, v)
				}
			})
		}
	})
	return e, d.named(n, e.Name, ok, "enum")
}

// variant accepts either a bare name (unit payload) or {name, type}.
func (d *fileDecoder) variant(n *yaml.Node) (ast.Variant, bool) {
	v := ast.Variant{Span: d.span(n)}
	if n.Kind == yaml.ScalarNode {
		id, ok := d.ident(n, "variant name")
		v.Name = id
		return v, ok
	}
	ok := true
	d.fields(n, "variant", []string{"name", "type"}, func(key string, val *yaml.Node) {
		switch key {
		case "name":
			v.Name, ok = d.ident(val, "variant name")
		case "type":
			v.Type = d.typeExpr(val)
		}
	})
	return v, d.named(n, v.Name, ok, "variant")
}

func (d *fileDecoder) fnDecl(n *yaml.Node) (ast.FnDecl, bool) {
	f := ast.FnDecl{Span: d.span(n)}
	ok := true
	d.fields(n, "function", []string{"name", "pub", "storage", "params", "returns", "body"}, func(key string, val *yaml.Node) {
		switch key {
		case "name":
			f.Name, ok = d.ident(val, "function name")
		case "pub":
			f.Vis = d.visibility(val)
		case "storage":
			f.Attrs = append(f.Attrs, d.storageAttr(val))
		case "params":
			f.Params = d.params(val)
		case "returns":
			f.Returns = d.typeExpr(val)
		case "body":
			f.Body = d.body(val)
		}
	})
	return f, d.named(n, f.Name, ok, "function")
}

// storageAttr keeps the arguments unchecked; the checker validates read/write.
func (d *fileDecoder) storageAttr(n *yaml.Node) ast.Attr {
	attr := ast.Attr{Name: ast.Ident{Name: d.l.Strings.Intern("storage"), Span: d.span(n)}, Span: d.span(n)}
	if n.Kind == yaml.ScalarNode {
		if id, ok := d.ident(n, "storage argument"); ok {
			attr.Args = append(attr.Args, id)
		}
		return attr
	}
	attr.Args = d.idents(n, "storage argument")
	return attr
}

func (d *fileDecoder) params(n *yaml.Node) []ast.Param {
	fields := d.fieldList(n, "params")
	out := make([]ast.Param, len(fields))
	for i, f := range fields {
		out[i] = ast.Param(f)
	}
	return out
}

var effectKinds = map[string]ast.EffectKind{
	"read":  ast.EffectRead,
	"write": ast.EffectWrite,
	"call":  ast.EffectCall,
	"log":   ast.EffectLog,
}

// body reads statements of the form "- read: counter" or "- call: Type::method".
func (d *fileDecoder) body(n *yaml.Node) []ast.Effect {
	var out []ast.Effect
	d.seq(n, "body", func(item *yaml.Node) {
		if item.Kind != yaml.MappingNode || len(item.Content) != 2 {
			d.errorf(item, "statement must be a single read, write, call or log entry")
			return
		}
		k, v := item.Content[0], item.Content[1]
		kind, known := effectKinds[k.Value]
		if !known {
			d.errorf(k, "unknown statement %q (expected read, write, call or log)", k.Value)
			return
		}
		target, ok := d.path(v, kind.String()+" target")
		if !ok {
			return
		}
		out = append(out, ast.Effect{Kind: kind, Target: target, Span: d.span(v)})
	})
	return out
}

func (d *fileDecoder) implDecl(n *yaml.Node) (ast.ImplDecl, bool) {
	im := ast.ImplDecl{Span: d.span(n)}
	d.fields(n, "impl", []string{"target", "type_params", "methods"}, func(key string, val *yaml.Node) {
		switch key {
		case "target":
			im.Target = d.typeExpr(val)
		case "type_params":
			im.TypeParams = d.idents(val, "type parameter")
		case "methods":
			d.seq(val, "methods", func(item *yaml.Node) {
				if f, ok := d.fnDecl(item); ok {
					im.Methods = append(im.Methods, f)
				}
			})
		}
	})
	if !im.Target.IsValid() {
		if n.Kind == yaml.MappingNode && !hasKey(n, "target") {
			d.errorf(n, "impl needs a target")
		}
		return im, false
	}
	return im, true
}

func (d *fileDecoder) modDecl(n *yaml.Node) (ast.ModDecl, bool) {
	m := ast.ModDecl{Span: d.span(n)}
	ok := true
	rest := &yaml.Node{Kind: yaml.MappingNode, Line: n.Line, Column: n.Column}
	d.fields(n, "module", append([]string{"name", "pub"}, itemKeys...), func(key string, val *yaml.Node) {
		switch key {
		case "name":
			m.Name, ok = d.ident(val, "module name")
		case "pub":
			m.Vis = d.visibility(val)
		default:
			rest.Content = append(rest.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: key}, val)
		}
	})
	if !d.named(n, m.Name, ok, "module") {
		return m, false
	}
	d.items(rest, &m.Items, false)
	return m, true
}

// named reports a declaration without a name; ok=false means a bad name was already reported.
func (d *fileDecoder) named(n *yaml.Node, name ast.Ident, ok bool, what string) bool {
	if !ok {
		return false
	}
	if name.Name == source.NoStringID {
		if n.Kind == yaml.MappingNode {
			d.errorf(n, "%s needs a name", what)
		}
		return false
	}
	return true
}

func hasKey(n *yaml.Node, key string) bool {
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return true
		}
	}
	return false
}

