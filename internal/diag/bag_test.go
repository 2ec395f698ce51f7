package diag

import (
	"testing"

	"plasma/internal/source"
)

func TestBagCap(t *testing.T) {
	b := NewBag(2)
	if !b.Add(NewError(SemaTypeMismatch, source.Span{}, "a")) {
		t.Fatal("first add rejected")
	}
	if !b.Add(NewError(SemaTypeMismatch, source.Span{}, "b")) {
		t.Fatal("second add rejected")
	}
	if b.Add(NewError(SemaTypeMismatch, source.Span{}, "c")) {
		t.Fatal("third add should hit the cap")
	}
	if b.Len() != 2 {
		t.Fatalf("len = %d, want 2", b.Len())
	}
}

func TestBagSortAndDedup(t *testing.T) {
	b := NewBag(10)
	sp := func(start uint32) source.Span { return source.Span{File: 1, Start: start, End: start + 1} }
	b.Add(NewError(SemaArityMismatch, sp(20), "late"))
	b.Add(NewError(SemaTypeMismatch, sp(5), "early"))
	b.Add(NewError(SemaTypeMismatch, sp(5), "early"))
	b.Sort()
	b.Dedup()
	if b.Len() != 2 {
		t.Fatalf("len = %d, want 2 after dedup", b.Len())
	}
	if b.Items()[0].Message != "early" {
		t.Errorf("sort order wrong: %q first", b.Items()[0].Message)
	}
}

func TestHasInternal(t *testing.T) {
	b := NewBag(10)
	b.Add(NewError(SemaTypeMismatch, source.Span{}, "user error"))
	if b.HasInternal() {
		t.Fatal("no internal diagnostic yet")
	}
	b.Add(NewInternal("codegen", source.Span{}, "unexpected shape"))
	if !b.HasInternal() {
		t.Fatal("internal diagnostic not detected")
	}
	if !b.HasErrors() {
		t.Fatal("internal should also count as error")
	}
}

func TestLimitationCodes(t *testing.T) {
	for _, c := range []Code{LimMutualRecursion, LimSecondaryTags, LimNonASCIIString} {
		if !c.IsLimitation() {
			t.Errorf("%s should be a limitation", c.ID())
		}
	}
	if SemaTypeMismatch.IsLimitation() {
		t.Error("type mismatch is not a limitation")
	}
}
