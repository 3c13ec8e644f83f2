package diag

import (
	"testing"

	"quill/internal/source"
)

func TestBagLimitAndErrors(t *testing.T) {
	bag := NewBag(2)
	if !bag.Add(New(SevWarning, SemaUnneededStorageAnnotation, source.Span{}, "w")) {
		t.Fatalf("first add must succeed")
	}
	if bag.HasErrors() {
		t.Fatalf("warning must not count as error")
	}
	bag.Add(NewError(SemaUnknownType, source.Span{}, "e"))
	if bag.Add(NewError(SemaUnknownType, source.Span{}, "dropped")) {
		t.Fatalf("add past the limit must fail")
	}
	if !bag.HasErrors() || !bag.HasWarnings() || bag.Len() != 2 {
		t.Fatalf("unexpected bag state: len=%d", bag.Len())
	}
}

func TestBagSortAndDedup(t *testing.T) {
	bag := NewBag(0)
	bag.Add(NewError(SemaUnknownType, source.Span{File: 1, Start: 10, End: 12}, "b"))
	bag.Add(NewError(SemaUnknownField, source.Span{File: 0, Start: 4, End: 5}, "a"))
	bag.Add(NewError(SemaUnknownField, source.Span{File: 0, Start: 4, End: 5}, "a"))
	bag.Dedup()
	bag.Sort()
	items := bag.Items()
	if len(items) != 2 {
		t.Fatalf("expected 2 items after dedup, got %d", len(items))
	}
	if items[0].Message != "a" || items[1].Message != "b" {
		t.Fatalf("unexpected order: %q, %q", items[0].Message, items[1].Message)
	}
}

func TestReportBuilderEmitsOnce(t *testing.T) {
	bag := NewBag(10)
	r := BagReporter{Bag: bag}
	b := ReportError(r, SemaUnknownField, source.Span{File: 2}, "no field `c`").
		WithNote(source.Span{File: 2}, "available fields: a, b")
	b.Emit()
	b.Emit()
	if bag.Len() != 1 {
		t.Fatalf("expected single diagnostic, got %d", bag.Len())
	}
	d := bag.Items()[0]
	if len(d.Notes) != 1 || d.Code != SemaUnknownField {
		t.Fatalf("unexpected diagnostic %+v", d)
	}
	if bag.Count(SemaUnknownField) != 1 {
		t.Fatalf("Count mismatch")
	}
}

func TestPromoteWarnings(t *testing.T) {
	bag := NewBag(0)
	bag.Add(New(SevWarning, SemaUnneededStorageAnnotation, source.Span{}, "w"))
	bag.PromoteWarnings()
	if !bag.HasErrors() {
		t.Fatalf("warnings must become errors")
	}
}

func TestCodeID(t *testing.T) {
	if got := SemaUnknownField.ID(); got != "SEM3004" {
		t.Fatalf("unexpected id %q", got)
	}
	if got := ProjManifest.ID(); got != "PRJ5001" {
		t.Fatalf("unexpected id %q", got)
	}
	if Code(9999).Title() != "Unknown error" {
		t.Fatalf("unknown code title mismatch")
	}
}
