package token

import "testing"

func TestFileSetPosition(t *testing.T) {
	fs := NewFileSet()
	f := fs.AddFile("test.lox", -1, 10)
	// source: "ab\ncd\nefgh" (10 bytes, newlines at offset 2 and 5)
	f.AddLine(3)
	f.AddLine(6)

	cases := []struct {
		offset   int
		wantLine int
		wantCol  int
	}{
		{0, 1, 1},
		{1, 1, 2},
		{3, 2, 1},
		{4, 2, 2},
		{6, 3, 1},
		{9, 3, 4},
	}
	for _, c := range cases {
		p := f.Pos(c.offset)
		pos := f.Position(p)
		if pos.Line != c.wantLine || pos.Column != c.wantCol {
			t.Errorf("offset %d: got line=%d col=%d, want line=%d col=%d",
				c.offset, pos.Line, pos.Column, c.wantLine, c.wantCol)
		}
	}
}

func TestFileSetMultipleFiles(t *testing.T) {
	fs := NewFileSet()
	f1 := fs.AddFile("a.lox", -1, 5)
	f2 := fs.AddFile("b.lox", -1, 5)

	p1 := f1.Pos(2)
	p2 := f2.Pos(2)

	if got := fs.File(p1); got != f1 {
		t.Errorf("fs.File(p1) = %v, want f1", got)
	}
	if got := fs.File(p2); got != f2 {
		t.Errorf("fs.File(p2) = %v, want f2", got)
	}
	if fs.Position(p1).Filename != "a.lox" {
		t.Errorf("fs.Position(p1).Filename = %q", fs.Position(p1).Filename)
	}
	if fs.Position(p2).Filename != "b.lox" {
		t.Errorf("fs.Position(p2).Filename = %q", fs.Position(p2).Filename)
	}
}
