package ast

import (
	"quill/internal/source"
)

// TypeExprID indexes a TypeExprs arena.
type TypeExprID uint32

const NoTypeExprID TypeExprID = 0

func (id TypeExprID) IsValid() bool { return id != NoTypeExprID }

type TypeExprKind uint8

const (
	TypeExprUnit  TypeExprKind = iota // ()
	TypeExprNamed                     // a::b::Name<Args>
	TypeExprTuple                     // (A, B)
	TypeExprArray                     // [T; N]
	TypeExprStr                       // str[N]
)

// TypeExpr is an unresolved type as written in a declaration.
type TypeExpr struct {
	Kind  TypeExprKind
	Span  source.Span
	Path  []source.StringID // named: qualifier segments followed by the name
	Args  []TypeExprID      // named: generic arguments
	Elems []TypeExprID      // tuple
	Elem  TypeExprID        // array
	Len   uint64            // array length, string capacity
}

// Name returns the last path segment of a named type.
func (t *TypeExpr) Name() source.StringID {
	if len(t.Path) == 0 {
		return source.NoStringID
	}
	return t.Path[len(t.Path)-1]
}

// Qualifier returns the path segments before the name.
func (t *TypeExpr) Qualifier() []source.StringID {
	if len(t.Path) == 0 {
		return nil
	}
	return t.Path[:len(t.Path)-1]
}

type TypeExprs struct {
	Arena *Arena[TypeExpr]
}

func NewTypeExprs(capHint uint) *TypeExprs {
	return &TypeExprs{
		Arena: NewArena[TypeExpr](capHint),
	}
}

func (t *TypeExprs) New(expr TypeExpr) TypeExprID {
	return TypeExprID(t.Arena.Allocate(expr))
}

func (t *TypeExprs) NewUnit(span source.Span) TypeExprID {
	return t.New(TypeExpr{Kind: TypeExprUnit, Span: span})
}

func (t *TypeExprs) NewNamed(path []source.StringID, args []TypeExprID, span source.Span) TypeExprID {
	return t.New(TypeExpr{Kind: TypeExprNamed, Path: path, Args: args, Span: span})
}

func (t *TypeExprs) NewTuple(elems []TypeExprID, span source.Span) TypeExprID {
	return t.New(TypeExpr{Kind: TypeExprTuple, Elems: elems, Span: span})
}

func (t *TypeExprs) NewArray(elem TypeExprID, n uint64, span source.Span) TypeExprID {
	return t.New(TypeExpr{Kind: TypeExprArray, Elem: elem, Len: n, Span: span})
}

func (t *TypeExprs) NewStr(n uint64, span source.Span) TypeExprID {
	return t.New(TypeExpr{Kind: TypeExprStr, Len: n, Span: span})
}

func (t *TypeExprs) Get(id TypeExprID) *TypeExpr {
	return t.Arena.Get(uint32(id))
}
