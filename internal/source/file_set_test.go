package source

import (
	"testing"
)

func TestResolveLineCol(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("test.p", []byte("func main() {\n    print(\"hi\")\n}\n"))

	tests := []struct {
		name   string
		offset uint32
		line   uint32
		col    uint32
	}{
		{"start of file", 0, 1, 1},
		{"middle of first line", 5, 1, 6},
		{"start of second line", 14, 2, 1},
		{"inside second line", 18, 2, 5},
		{"third line", 30, 3, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, _ := fs.Resolve(Span{File: id, Start: tt.offset, End: tt.offset})
			if start.Line != tt.line || start.Col != tt.col {
				t.Errorf("offset %d: got %d:%d, want %d:%d", tt.offset, start.Line, start.Col, tt.line, tt.col)
			}
		})
	}
}

func TestGetLine(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("test.p", []byte("one\ntwo\nthree"))
	f := fs.Get(id)

	if got := f.GetLine(1); got != "one" {
		t.Errorf("line 1: got %q", got)
	}
	if got := f.GetLine(2); got != "two" {
		t.Errorf("line 2: got %q", got)
	}
	if got := f.GetLine(3); got != "three" {
		t.Errorf("line 3: got %q", got)
	}
	if got := f.GetLine(4); got != "" {
		t.Errorf("line 4: got %q, want empty", got)
	}
}

func TestSpanCover(t *testing.T) {
	a := Span{File: 1, Start: 4, End: 8}
	b := Span{File: 1, Start: 2, End: 6}
	c := a.Cover(b)
	if c.Start != 2 || c.End != 8 {
		t.Errorf("cover: got %v", c)
	}
	other := Span{File: 2, Start: 0, End: 100}
	if got := a.Cover(other); got != a {
		t.Errorf("cover across files must not extend: got %v", got)
	}
}
