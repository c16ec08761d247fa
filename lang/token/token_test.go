package token

import "testing"

func TestLookupIdent(t *testing.T) {
	cases := []struct {
		in   string
		want Token
	}{
		{"class", CLASS},
		{"fun", FUN},
		{"print", PRINT},
		{"nil", NIL},
		{"foobar", IDENT},
		{"", IDENT},
	}
	for _, c := range cases {
		if got := LookupIdent(c.in); got != c.want {
			t.Errorf("LookupIdent(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestTokenString(t *testing.T) {
	if EOF.String() != "end of file" {
		t.Errorf("EOF.String() = %q", EOF.String())
	}
	if PLUS.GoString() != "'+'" {
		t.Errorf("PLUS.GoString() = %q", PLUS.GoString())
	}
	if IDENT.GoString() != "identifier" {
		t.Errorf("IDENT.GoString() = %q", IDENT.GoString())
	}
}

func TestIsKeyword(t *testing.T) {
	if !CLASS.IsKeyword() {
		t.Error("CLASS should be a keyword")
	}
	if PLUS.IsKeyword() {
		t.Error("PLUS should not be a keyword")
	}
}
