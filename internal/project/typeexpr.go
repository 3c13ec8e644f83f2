package project

import (
	"fmt"
	"strconv"
	"unicode"
	"unicode/utf8"

	"fortio.org/safecast"

	"quill/internal/ast"
	"quill/internal/source"
)

// TypeExprError reports a malformed type expression with the byte offset of the problem.
type TypeExprError struct {
	Src    string
	Offset int
	Msg    string
}

func (e *TypeExprError) Error() string {
	return fmt.Sprintf("invalid type %q at offset %d: %s", e.Src, e.Offset, e.Msg)
}

// Span maps the error offset into the span the expression was written at.
func (e *TypeExprError) Span(base source.Span) source.Span {
	return subSpan(base, e.Offset, e.Offset+1)
}

// ParseTypeExpr parses the type mini-syntax into exprs:
//
//	()  u64  T  Option<u64>  a::b::Point<T>  (u64, bool)  (T,)  [u8; 32]  str[8]
//
// base is the span of src inside its file; nested nodes get sub-spans of it.
func ParseTypeExpr(src string, base source.Span, strs *source.Interner, exprs *ast.TypeExprs) (ast.TypeExprID, error) {
	p := &typeParser{src: src, base: base, strs: strs, exprs: exprs}
	p.skipSpace()
	id, err := p.parseType()
	if err != nil {
		return ast.NoTypeExprID, err
	}
	p.skipSpace()
	if p.pos < len(p.src) {
		return ast.NoTypeExprID, p.errorf("unexpected %q", p.rest())
	}
	return id, nil
}

type typeParser struct {
	src   string
	pos   int
	depth int
	base  source.Span
	strs  *source.Interner
	exprs *ast.TypeExprs
}

const maxTypeDepth = 64

func (p *typeParser) parseType() (ast.TypeExprID, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > maxTypeDepth {
		return ast.NoTypeExprID, p.errorf("type is nested too deeply")
	}
	start := p.pos
	switch {
	case p.peek() == '(':
		return p.parseTuple(start)
	case p.peek() == '[':
		return p.parseArray(start)
	case isIdentStart(p.peekRune()):
		return p.parseNamed(start)
	case p.pos >= len(p.src):
		return ast.NoTypeExprID, p.errorf("expected a type")
	default:
		return ast.NoTypeExprID, p.errorf("unexpected %q", p.rest())
	}
}

func (p *typeParser) parseTuple(start int) (ast.TypeExprID, error) {
	p.pos++ // (
	p.skipSpace()
	if p.eat(')') {
		return p.exprs.NewUnit(p.span(start, p.pos)), nil
	}
	var elems []ast.TypeExprID
	trailingComma := false
	for {
		elem, err := p.parseType()
		if err != nil {
			return ast.NoTypeExprID, err
		}
		elems = append(elems, elem)
		p.skipSpace()
		if p.eat(')') {
			break
		}
		if !p.eat(',') {
			return ast.NoTypeExprID, p.errorf("expected ',' or ')'")
		}
		p.skipSpace()
		if p.eat(')') {
			trailingComma = true
			break
		}
	}
	// (T) только группирует, (T,) - кортеж из одного элемента
	if len(elems) == 1 && !trailingComma {
		return elems[0], nil
	}
	return p.exprs.NewTuple(elems, p.span(start, p.pos)), nil
}

func (p *typeParser) parseArray(start int) (ast.TypeExprID, error) {
	p.pos++ // [
	p.skipSpace()
	elem, err := p.parseType()
	if err != nil {
		return ast.NoTypeExprID, err
	}
	p.skipSpace()
	if !p.eat(';') {
		return ast.NoTypeExprID, p.errorf("expected ';' in array type")
	}
	p.skipSpace()
	n, err := p.parseLen()
	if err != nil {
		return ast.NoTypeExprID, err
	}
	p.skipSpace()
	if !p.eat(']') {
		return ast.NoTypeExprID, p.errorf("expected ']'")
	}
	return p.exprs.NewArray(elem, n, p.span(start, p.pos)), nil
}

func (p *typeParser) parseNamed(start int) (ast.TypeExprID, error) {
	first := p.ident()
	if first == "str" {
		save := p.pos
		p.skipSpace()
		if p.eat('[') {
			p.skipSpace()
			n, err := p.parseLen()
			if err != nil {
				return ast.NoTypeExprID, err
			}
			p.skipSpace()
			if !p.eat(']') {
				return ast.NoTypeExprID, p.errorf("expected ']'")
			}
			return p.exprs.NewStr(n, p.span(start, p.pos)), nil
		}
		p.pos = save
	}
	path := []source.StringID{p.strs.Intern(NormalizeIdent(first))}
	for p.hasPrefix("::") {
		p.pos += 2
		if !isIdentStart(p.peekRune()) {
			return ast.NoTypeExprID, p.errorf("expected a name after '::'")
		}
		path = append(path, p.strs.Intern(NormalizeIdent(p.ident())))
	}
	save := p.pos
	p.skipSpace()
	var args []ast.TypeExprID
	if !p.eat('<') {
		p.pos = save
	} else {
		for {
			p.skipSpace()
			arg, err := p.parseType()
			if err != nil {
				return ast.NoTypeExprID, err
			}
			args = append(args, arg)
			p.skipSpace()
			if p.eat('>') {
				break
			}
			if !p.eat(',') {
				return ast.NoTypeExprID, p.errorf("expected ',' or '>'")
			}
		}
	}
	return p.exprs.NewNamed(path, args, p.span(start, p.pos)), nil
}

func (p *typeParser) parseLen() (uint64, error) {
	start := p.pos
	for p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
		p.pos++
	}
	if start == p.pos {
		p.pos = start
		return 0, p.errorf("expected a length")
	}
	n, err := strconv.ParseUint(p.src[start:p.pos], 10, 64)
	if err != nil {
		p.pos = start
		return 0, p.errorf("length out of range")
	}
	return n, nil
}

func (p *typeParser) ident() string {
	start := p.pos
	for p.pos < len(p.src) {
		r, size := utf8.DecodeRuneInString(p.src[p.pos:])
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.Is(unicode.Mn, r) {
			break
		}
		p.pos += size
	}
	return p.src[start:p.pos]
}

func (p *typeParser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *typeParser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *typeParser) peekRune() rune {
	if p.pos >= len(p.src) {
		return utf8.RuneError
	}
	r, _ := utf8.DecodeRuneInString(p.src[p.pos:])
	return r
}

func (p *typeParser) eat(c byte) bool {
	if p.peek() == c {
		p.pos++
		return true
	}
	return false
}

func (p *typeParser) hasPrefix(s string) bool {
	return len(p.src)-p.pos >= len(s) && p.src[p.pos:p.pos+len(s)] == s
}

func (p *typeParser) rest() string {
	r := p.src[p.pos:]
	if len(r) > 16 {
		r = r[:16] + "..."
	}
	return r
}

func (p *typeParser) span(start, end int) source.Span {
	return subSpan(p.base, start, end)
}

func (p *typeParser) errorf(format string, args ...any) error {
	return &TypeExprError{Src: p.src, Offset: p.pos, Msg: fmt.Sprintf(format, args...)}
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

// subSpan clamps [start, end) to base; zero bases stay zero-length.
func subSpan(base source.Span, start, end int) source.Span {
	s, err := safecast.Conv[uint32](start)
	if err != nil {
		panic(fmt.Errorf("type offset overflow: %w", err))
	}
	e, err := safecast.Conv[uint32](end)
	if err != nil {
		panic(fmt.Errorf("type offset overflow: %w", err))
	}
	out := source.Span{File: base.File, Start: base.Start + s, End: base.Start + e}
	if base.End > base.Start {
		if out.End > base.End {
			out.End = base.End
		}
		if out.Start > out.End {
			out.Start = out.End
		}
	}
	return out
}
