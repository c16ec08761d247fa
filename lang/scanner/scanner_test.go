package scanner

import (
	"testing"

	"github.com/mna/glox/lang/token"
)

func scanAll(t *testing.T, src string) ([]token.Token, []token.Value) {
	t.Helper()
	fs := token.NewFileSet()
	f := fs.AddFile("test.lox", -1, len(src))

	var s Scanner
	var errs []string
	s.Init(f, []byte(src), func(pos token.Position, msg string) {
		errs = append(errs, pos.String()+": "+msg)
	})

	var toks []token.Token
	var vals []token.Value
	for {
		var v token.Value
		tok := s.Scan(&v)
		toks = append(toks, tok)
		vals = append(vals, v)
		if tok == token.EOF {
			break
		}
	}
	if len(errs) > 0 {
		t.Fatalf("unexpected scan errors: %v", errs)
	}
	return toks, vals
}

func TestScanPunctuationAndOperators(t *testing.T) {
	toks, _ := scanAll(t, "(){}[],.-+;/* */*?:-=+=/=*=!!====<<=>>=")
	want := []token.Token{
		token.LPAREN, token.RPAREN, token.LBRACE, token.RBRACE,
		token.LBRACK, token.RBRACK, token.COMMA, token.DOT, token.MINUS, token.PLUS,
		token.SEMICOLON, token.STAR, token.QUESTION_COLON,
		token.MINUS_EQ, token.PLUS_EQ, token.SLASH_EQ, token.STAR_EQ,
		token.BANG, token.BANG_EQ, token.EQ_EQ, token.EQ, token.LT, token.LT_EQ, token.GT, token.GT_EQ,
		token.EOF,
	}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(toks), len(want), toks)
	}
	for i, tok := range toks {
		if tok != want[i] {
			t.Errorf("token %d: got %v, want %v", i, tok, want[i])
		}
	}
}

func TestScanKeywordsAndIdentifiers(t *testing.T) {
	toks, vals := scanAll(t, "class foobar print nil")
	want := []token.Token{token.CLASS, token.IDENT, token.PRINT, token.NIL, token.EOF}
	for i, tok := range toks {
		if tok != want[i] {
			t.Fatalf("token %d: got %v, want %v", i, tok, want[i])
		}
	}
	if vals[1].Raw != "foobar" {
		t.Errorf("identifier raw = %q, want foobar", vals[1].Raw)
	}
}

func TestScanNumber(t *testing.T) {
	toks, vals := scanAll(t, "123 4.5")
	if toks[0] != token.NUMBER || vals[0].Number != 123 {
		t.Errorf("got %v %v, want NUMBER 123", toks[0], vals[0].Number)
	}
	if toks[1] != token.NUMBER || vals[1].Number != 4.5 {
		t.Errorf("got %v %v, want NUMBER 4.5", toks[1], vals[1].Number)
	}
}

func TestScanPlainString(t *testing.T) {
	toks, vals := scanAll(t, `"hello world"`)
	if toks[0] != token.STRING {
		t.Fatalf("got %v, want STRING", toks[0])
	}
	if vals[0].String != "hello world" {
		t.Errorf("got %q, want %q", vals[0].String, "hello world")
	}
}

func TestScanStringEscapes(t *testing.T) {
	toks, vals := scanAll(t, `"a\nb\tc\\d\"e"`)
	if toks[0] != token.STRING {
		t.Fatalf("got %v, want STRING", toks[0])
	}
	if want := "a\nb\tc\\d\"e"; vals[0].String != want {
		t.Errorf("got %q, want %q", vals[0].String, want)
	}
}

func TestScanStringInterpolation(t *testing.T) {
	// "x+y=${x+y}" -> STRING("x+y=") INTERPOLATION IDENT(x) PLUS IDENT(y) RBRACE-as-STRING("")
	toks, vals := scanAll(t, `"x+y=${x+y}"`)
	want := []token.Token{
		token.STRING, token.INTERPOLATION, token.IDENT, token.PLUS, token.IDENT,
		token.STRING, token.EOF,
	}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens %v, want %d %v", len(toks), toks, len(want), want)
	}
	for i, tok := range toks {
		if tok != want[i] {
			t.Fatalf("token %d: got %v, want %v", i, tok, want[i])
		}
	}
	if vals[0].String != "x+y=" {
		t.Errorf("prefix = %q, want %q", vals[0].String, "x+y=")
	}
	if vals[5].String != "" {
		t.Errorf("suffix = %q, want empty", vals[5].String)
	}
}

func TestScanNestedInterpolation(t *testing.T) {
	toks, _ := scanAll(t, `"a${"b${1}c"}d"`)
	want := []token.Token{
		token.STRING, token.INTERPOLATION,
		token.STRING, token.INTERPOLATION, token.NUMBER, token.STRING,
		token.STRING, token.EOF,
	}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens %v, want %d %v", len(toks), toks, len(want), want)
	}
	for i, tok := range toks {
		if tok != want[i] {
			t.Fatalf("token %d: got %v, want %v", i, tok, want[i])
		}
	}
}

func TestScanBlockBraceVsInterpolationBrace(t *testing.T) {
	toks, _ := scanAll(t, `{ "a${1}b" }`)
	want := []token.Token{
		token.LBRACE, token.STRING, token.INTERPOLATION, token.NUMBER, token.STRING,
		token.RBRACE, token.EOF,
	}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens %v, want %d %v", len(toks), toks, len(want), want)
	}
	for i, tok := range toks {
		if tok != want[i] {
			t.Fatalf("token %d: got %v, want %v", i, tok, want[i])
		}
	}
}

func TestScanUnmatchedBrace(t *testing.T) {
	var s Scanner
	fs := token.NewFileSet()
	f := fs.AddFile("test.lox", -1, 1)
	var errs []string
	s.Init(f, []byte("}"), func(pos token.Position, msg string) { errs = append(errs, msg) })
	var v token.Value
	tok := s.Scan(&v)
	if tok != token.ILLEGAL {
		t.Fatalf("got %v, want ILLEGAL", tok)
	}
	if len(errs) != 1 || errs[0] != "unmatched '}'" {
		t.Errorf("got errs %v, want [unmatched '}']", errs)
	}
}

func TestScanUnterminatedString(t *testing.T) {
	var s Scanner
	fs := token.NewFileSet()
	src := `"abc`
	f := fs.AddFile("test.lox", -1, len(src))
	var errs []string
	s.Init(f, []byte(src), func(pos token.Position, msg string) { errs = append(errs, msg) })
	var v token.Value
	tok := s.Scan(&v)
	if tok != token.ILLEGAL {
		t.Fatalf("got %v, want ILLEGAL", tok)
	}
	if len(errs) != 1 || errs[0] != "unterminated string" {
		t.Errorf("got errs %v, want [unterminated string]", errs)
	}
}

func TestScanLineComment(t *testing.T) {
	toks, _ := scanAll(t, "1 // comment\n2")
	want := []token.Token{token.NUMBER, token.NUMBER, token.EOF}
	for i, tok := range toks {
		if tok != want[i] {
			t.Fatalf("token %d: got %v, want %v", i, tok, want[i])
		}
	}
}

func TestScanNestedBlockComment(t *testing.T) {
	toks, _ := scanAll(t, "1 /* outer /* inner */ still outer */ 2")
	want := []token.Token{token.NUMBER, token.NUMBER, token.EOF}
	for i, tok := range toks {
		if tok != want[i] {
			t.Fatalf("token %d: got %v, want %v", i, tok, want[i])
		}
	}
}
