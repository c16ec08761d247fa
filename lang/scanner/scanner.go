// Some of the scanner package is adapted from the Go source code:
// https://cs.opensource.google/go/go/+/refs/tags/go1.22.1:src/go/scanner/scanner.go
//
// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package scanner tokenizes glox source text. It produces a lazy sequence of
// tokens: the caller repeatedly calls Scan to pull the next token, rather
// than tokenizing the whole file up front.
package scanner

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"unicode"
	"unicode/utf8"

	"github.com/mna/glox/lang/token"
)

// Error represents a single scanning, parsing or resolving error, in the
// shape of go/scanner.Error but reporting against a lang/token.Position.
type Error struct {
	Pos token.Position
	Msg string
}

func (e Error) Error() string {
	if e.Pos.Filename != "" || e.Pos.IsValid() {
		return e.Pos.String() + ": " + e.Msg
	}
	return e.Msg
}

// ErrorList is a list of *Error, sortable by position. The zero value is an
// empty list ready to use.
type ErrorList []*Error

// Add appends an Error with the given position and message to the list.
func (l *ErrorList) Add(pos token.Position, msg string) {
	*l = append(*l, &Error{Pos: pos, Msg: msg})
}

// Reset empties the list.
func (l *ErrorList) Reset() { *l = (*l)[:0] }

func (l ErrorList) Len() int      { return len(l) }
func (l ErrorList) Swap(i, j int) { l[i], l[j] = l[j], l[i] }

func (l ErrorList) Less(i, j int) bool {
	e, f := &l[i].Pos, &l[j].Pos
	if e.Filename != f.Filename {
		return e.Filename < f.Filename
	}
	if e.Line != f.Line {
		return e.Line < f.Line
	}
	return e.Column < f.Column
}

// Sort sorts the list by source position.
func (l ErrorList) Sort() { sort.Sort(l) }

func (l ErrorList) Error() string {
	switch len(l) {
	case 0:
		return "no errors"
	case 1:
		return l[0].Error()
	}
	return fmt.Sprintf("%s (and %d more errors)", l[0], len(l)-1)
}

// Unwrap returns the list's entries as errors, for errors.Is/errors.As.
func (l ErrorList) Unwrap() []error {
	errs := make([]error, len(l))
	for i, e := range l {
		errs[i] = e
	}
	return errs
}

// Err returns l as an error, or nil if l is empty.
func (l ErrorList) Err() error {
	if len(l) == 0 {
		return nil
	}
	return l
}

// PrintError writes err to w, one message per line if err is an ErrorList.
func PrintError(w io.Writer, err error) {
	if list, ok := err.(ErrorList); ok {
		for _, e := range list {
			fmt.Fprintln(w, e)
		}
	} else if err != nil {
		fmt.Fprintln(w, err)
	}
}

// maxBraceDepth bounds the nesting of string interpolation (and the
// ordinary '{'/'}' blocks interleaved with it) the scanner will track.
const maxBraceDepth = 256

// TokenAndValue combines the token type with the token value type in the
// same struct.
type TokenAndValue struct {
	Token token.Token
	Value token.Value
}

// ScanFiles is a helper function that tokenizes the source files and returns
// the list of tokens, grouped by the file at the same index, and produces
// any error encountered. The error, if non-nil, is guaranteed to implement
// Unwrap() []error.
func ScanFiles(ctx context.Context, files ...string) (*token.FileSet, [][]TokenAndValue, error) {
	if len(files) == 0 {
		return nil, nil, nil
	}

	var (
		s      Scanner
		tokVal token.Value
		el     ErrorList
	)

	fs := token.NewFileSet()
	tokensByFile := make([][]TokenAndValue, len(files))
	for i, file := range files {
		b, err := os.ReadFile(file)
		if err != nil {
			el.Add(token.Position{Filename: file}, err.Error())
			continue
		}

		fsf := fs.AddFile(file, -1, len(b))
		s.Init(fsf, b, el.Add)
		for {
			tok := s.Scan(&tokVal)
			tokensByFile[i] = append(tokensByFile[i], TokenAndValue{Token: tok, Value: tokVal})
			if tok == token.EOF {
				break
			}
		}
	}
	el.Sort()
	return fs, tokensByFile, el.Err()
}

// braceKind records, for each currently open '{', whether its matching '}'
// closes a string interpolation or an ordinary block/map literal.
type braceKind bool

const (
	blockBrace       braceKind = false
	interpolateBrace braceKind = true
)

// Scanner tokenizes a single source file for the parser to consume.
type Scanner struct {
	// immutable state after Init
	file *token.File
	src  []byte
	err  func(pos token.Position, msg string)

	// mutable scanning state
	cur rune // current character, -1 at EOF
	off int  // byte offset of cur
	roff int // byte offset just past cur

	// string interpolation state: for each open '{', whether its '}' closes
	// back into a string literal.
	braces []braceKind
	// quote character of the string literal currently suspended because we
	// are inside one of its "${ ... }" interpolations, one per open
	// interpolateBrace entry (parallel, sparse: only meaningful at
	// braces[i]==interpolateBrace).
	quotes []byte

	// pendingInterp is set by stringBody right after it has consumed a "${"
	// and returned the STRING token for the prefix; the very next Scan call
	// must emit the INTERPOLATION marker token before resuming ordinary
	// tokenization of the embedded expression.
	pendingInterp    bool
	pendingInterpPos token.Pos
}

// Init initializes the scanner to tokenize a new file. It panics if the file
// size does not match len(src).
func (s *Scanner) Init(file *token.File, src []byte, errHandler func(token.Position, string)) {
	if file.Size() != len(src) {
		panic(fmt.Sprintf("file size (%d) does not match src len (%d)", file.Size(), len(src)))
	}

	s.file = file
	s.src = src
	s.err = errHandler
	s.cur = ' '
	s.off = 0
	s.roff = 0
	s.braces = s.braces[:0]
	s.quotes = s.quotes[:0]
	s.pendingInterp = false

	var bom = [3]byte{0xEF, 0xBB, 0xBF}
	if len(src) >= len(bom) && bytes.Equal(src[:len(bom)], bom[:]) {
		s.roff += len(bom)
	}
	s.advance()
}

func (s *Scanner) peek() byte {
	if s.roff < len(s.src) {
		return s.src[s.roff]
	}
	return 0
}

func (s *Scanner) advance() {
	if s.roff >= len(s.src) {
		s.off = len(s.src)
		if s.cur == '\n' {
			s.file.AddLine(s.off)
		}
		s.cur = -1
		return
	}

	s.off = s.roff
	if s.cur == '\n' {
		s.file.AddLine(s.off)
	}

	r, w := rune(s.src[s.roff]), 1
	if r >= utf8.RuneSelf {
		r, w = utf8.DecodeRune(s.src[s.roff:])
		if r == utf8.RuneError && w == 1 {
			s.error(s.off, "illegal UTF-8 encoding")
		}
	}
	s.roff += w
	s.cur = r
}

func (s *Scanner) error(off int, msg string) {
	if s.err != nil {
		s.err(s.file.Position(s.file.Pos(off)), msg)
	}
}

func (s *Scanner) errorf(off int, format string, args ...any) {
	s.error(off, fmt.Sprintf(format, args...))
}

func (s *Scanner) advanceIf(b byte) bool {
	if s.cur == rune(b) {
		s.advance()
		return true
	}
	return false
}

// pushBrace records a newly opened '{' of the given kind, erroring if the
// nesting cap is exceeded.
func (s *Scanner) pushBrace(k braceKind, off int) {
	if len(s.braces) >= maxBraceDepth {
		s.error(off, "string interpolation nested too deeply")
		return
	}
	s.braces = append(s.braces, k)
}

// Scan returns the next token in the source file.
func (s *Scanner) Scan(tokVal *token.Value) (tok token.Token) {
	if s.pendingInterp {
		s.pendingInterp = false
		*tokVal = token.Value{Raw: "${", Pos: s.pendingInterpPos}
		return token.INTERPOLATION
	}

	s.skipWhitespaceAndComments()

	pos := s.file.Pos(s.off)
	start := s.off

	switch cur := s.cur; {
	case isLetter(cur):
		lit := s.ident()
		tok = token.LookupIdent(lit)
		*tokVal = token.Value{Raw: lit, Pos: pos}

	case isDigit(cur) || (cur == '.' && isDigit(rune(s.peek()))):
		lit, val := s.number()
		*tokVal = token.Value{Raw: lit, Pos: pos, Number: val}
		tok = token.NUMBER

	default:
		s.advance() // always make progress
		switch cur {
		case '"':
			tok = s.stringBody('"', start, tokVal)
			tokVal.Pos = pos
			return tok

		case '}':
			tok = s.closeBrace(start, pos, tokVal)
			return tok

		case '(':
			tok = token.LPAREN
		case ')':
			tok = token.RPAREN
		case '[':
			tok = token.LBRACK
		case ']':
			tok = token.RBRACK
		case ',':
			tok = token.COMMA
		case ';':
			tok = token.SEMICOLON
		case '?':
			tok = token.QUESTION
			if s.advanceIf(':') {
				tok = token.QUESTION_COLON
			}
		case ':':
			tok = token.COLON

		case '{':
			s.pushBrace(blockBrace, start)
			tok = token.LBRACE

		case '.':
			tok = token.DOT
		case '-':
			tok = token.MINUS
			if s.advanceIf('=') {
				tok = token.MINUS_EQ
			}
		case '+':
			tok = token.PLUS
			if s.advanceIf('=') {
				tok = token.PLUS_EQ
			}
		case '*':
			tok = token.STAR
			if s.advanceIf('=') {
				tok = token.STAR_EQ
			}
		case '/':
			tok = token.SLASH
			if s.advanceIf('=') {
				tok = token.SLASH_EQ
			}
		case '!':
			tok = token.BANG
			if s.advanceIf('=') {
				tok = token.BANG_EQ
			}
		case '=':
			tok = token.EQ
			if s.advanceIf('=') {
				tok = token.EQ_EQ
			}
		case '<':
			tok = token.LT
			if s.advanceIf('=') {
				tok = token.LT_EQ
			}
		case '>':
			tok = token.GT
			if s.advanceIf('=') {
				tok = token.GT_EQ
			}

		case -1:
			tok = token.EOF
			*tokVal = token.Value{Raw: "", Pos: pos}
			return tok
		default:
			s.errorf(start, "unexpected character %#U", cur)
			tok = token.ILLEGAL
		}
		*tokVal = token.Value{Raw: string(s.src[start:s.off]), Pos: pos}
	}
	return tok
}

// closeBrace handles a '}' seen at the top level: if it closes a string
// interpolation, it resumes string-body lexing instead of emitting RBRACE.
func (s *Scanner) closeBrace(start int, pos token.Pos, tokVal *token.Value) token.Token {
	if len(s.braces) == 0 {
		s.error(start, "unmatched '}'")
		*tokVal = token.Value{Raw: "}", Pos: pos}
		return token.ILLEGAL
	}
	kind := s.braces[len(s.braces)-1]
	s.braces = s.braces[:len(s.braces)-1]
	if kind == blockBrace {
		*tokVal = token.Value{Raw: "}", Pos: pos}
		return token.RBRACE
	}
	quote := s.quotes[len(s.quotes)-1]
	s.quotes = s.quotes[:len(s.quotes)-1]
	return s.stringBody(quote, s.off, tokVal)
}

// stringBody scans the contents of a string literal (or the resumption of
// one after a closing interpolation brace) starting right after the quote
// (or right after the interpolation's closing '}'). It stops at the
// matching quote, at an unescaped "${" (pushing an interpolateBrace and
// returning STRING for the prefix; the following Scan call emits the
// INTERPOLATION marker), or at a newline or EOF (unterminated string).
func (s *Scanner) stringBody(quote byte, start int, tokVal *token.Value) token.Token {
	var buf bytes.Buffer
	for {
		switch {
		case s.cur == -1 || s.cur == '\n':
			s.error(start, "unterminated string")
			*tokVal = token.Value{Raw: string(s.src[start:s.off]), Pos: s.file.Pos(start), String: buf.String()}
			return token.ILLEGAL

		case s.cur == rune(quote):
			s.advance()
			*tokVal = token.Value{Raw: string(s.src[start:s.off]), Pos: s.file.Pos(start), String: buf.String()}
			return token.STRING

		case s.cur == '$' && s.peek() == '{':
			interpPos := s.file.Pos(s.off)
			s.advance() // '$'
			s.advance() // '{'
			s.pushBrace(interpolateBrace, start)
			s.quotes = append(s.quotes, quote)
			s.pendingInterp = true
			s.pendingInterpPos = interpPos
			*tokVal = token.Value{Raw: string(s.src[start:s.off]), Pos: s.file.Pos(start), String: buf.String()}
			return token.STRING

		case s.cur == '\\':
			s.advance()
			buf.WriteByte(escapeByte(s.cur))
			s.advance()

		default:
			buf.WriteRune(s.cur)
			s.advance()
		}
	}
}

// escapeByte decodes the character following a backslash inside a string
// literal. Unrecognized escapes pass the character through unchanged.
func escapeByte(c rune) byte {
	switch c {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	case '\\':
		return '\\'
	case '"':
		return '"'
	case '$':
		return '$'
	default:
		return byte(c)
	}
}

func (s *Scanner) ident() string {
	start := s.off
	for isLetter(s.cur) || isDigit(s.cur) {
		s.advance()
	}
	return string(s.src[start:s.off])
}

func (s *Scanner) skipWhitespaceAndComments() {
	for {
		switch {
		case isWhitespace(s.cur):
			s.advance()
		case s.cur == '/' && s.peek() == '/':
			for s.cur != '\n' && s.cur != -1 {
				s.advance()
			}
		case s.cur == '/' && s.peek() == '*':
			s.blockComment()
		default:
			return
		}
	}
}

func (s *Scanner) blockComment() {
	start := s.off
	s.advance() // '/'
	s.advance() // '*'
	depth := 1
	for depth > 0 {
		switch {
		case s.cur == -1:
			s.error(start, "unterminated block comment")
			return
		case s.cur == '/' && s.peek() == '*':
			s.advance()
			s.advance()
			depth++
		case s.cur == '*' && s.peek() == '/':
			s.advance()
			s.advance()
			depth--
		default:
			s.advance()
		}
	}
}

func isWhitespace(rn rune) bool { return rn == ' ' || rn == '\t' || rn == '\n' || rn == '\r' }

func isLetter(rn rune) bool {
	return 'a' <= rn && rn <= 'z' || 'A' <= rn && rn <= 'Z' || rn == '_' ||
		rn >= utf8.RuneSelf && unicode.IsLetter(rn)
}

func isDigit(rn rune) bool { return '0' <= rn && rn <= '9' }
