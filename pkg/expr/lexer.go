// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package expr

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokenEOF tokenKind = iota
	// tokenIdent is a context root, property, keyword, or function name.
	tokenIdent
	// tokenNumber is a numeric literal, with its value in token.num.
	tokenNumber
	// tokenString is a quoted string literal, with its decoded value in
	// token.text.
	tokenString
	// tokenPunct is one of ( ) [ ] , . *
	tokenPunct
	// tokenOp is one of == != <= >= < > && || !
	tokenOp
)

func (k tokenKind) String() string {
	switch k {
	case tokenEOF:
		return "end of expression"
	case tokenIdent:
		return "identifier"
	case tokenNumber:
		return "number"
	case tokenString:
		return "string"
	case tokenPunct:
		return "punctuation"
	case tokenOp:
		return "operator"
	default:
		return "invalid"
	}
}

type token struct {
	kind tokenKind
	// text is the identifier name, decoded string value, or the operator /
	// punctuation spelling.
	text string
	// num is the parsed value for tokenNumber.
	num float64
	// pos is the byte offset of the token in the expression text.
	pos int
}

func (t token) describe() string {
	if t.kind == tokenEOF {
		return t.kind.String()
	}
	return fmt.Sprintf("%q", t.text)
}

// lexer scans an expression string into tokens. The whole input is consumed
// in one pass; whitespace is insignificant outside string literals.
type lexer struct {
	src string
	pos int
}

// tokenize scans the full input, returning the token stream terminated by a
// tokenEOF entry.
func tokenize(src string) ([]token, error) {
	l := &lexer{src: src}
	var toks []token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.kind == tokenEOF {
			return toks, nil
		}
	}
}

var twoCharOps = [...]string{"==", "!=", "<=", ">=", "&&", "||"}

func (l *lexer) next() (token, error) {
	l.skipSpace()
	if l.pos >= len(l.src) {
		return token{kind: tokenEOF, pos: l.pos}, nil
	}

	start := l.pos
	c := l.src[l.pos]

	// Two-character operators take priority over their one-character
	// prefixes.
	if l.pos+1 < len(l.src) {
		op := l.src[l.pos : l.pos+2]
		for _, known := range twoCharOps {
			if op == known {
				l.pos += 2
				return token{kind: tokenOp, text: op, pos: start}, nil
			}
		}
	}

	switch {
	case c == '<' || c == '>' || c == '!':
		l.pos++
		return token{kind: tokenOp, text: string(c), pos: start}, nil
	case strings.IndexByte("()[],.*", c) >= 0:
		l.pos++
		return token{kind: tokenPunct, text: string(c), pos: start}, nil
	case c == '\'' || c == '"':
		return l.scanString()
	case c >= '0' && c <= '9':
		return l.scanNumber()
	case c == '-' && l.pos+1 < len(l.src) && l.src[l.pos+1] >= '0' && l.src[l.pos+1] <= '9':
		return l.scanNumber()
	case isIdentStart(rune(c)):
		return l.scanIdent()
	}

	r, _ := utf8.DecodeRuneInString(l.src[l.pos:])
	if isIdentStart(r) {
		return l.scanIdent()
	}
	return token{}, &SyntaxError{Offset: start, Message: fmt.Sprintf("unexpected character %q", r)}
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.src) {
		r, size := utf8.DecodeRuneInString(l.src[l.pos:])
		if !unicode.IsSpace(r) {
			return
		}
		l.pos += size
	}
}

// scanString decodes a single- or double-quoted literal. A backslash escapes
// the following character; \\ and \<quote> are the meaningful escapes, any
// other escaped character stands for itself.
func (l *lexer) scanString() (token, error) {
	start := l.pos
	quote := l.src[l.pos]
	l.pos++
	var b strings.Builder
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch c {
		case quote:
			l.pos++
			return token{kind: tokenString, text: b.String(), pos: start}, nil
		case '\\':
			if l.pos+1 >= len(l.src) {
				return token{}, &SyntaxError{Offset: start, Message: "unterminated string literal"}
			}
			b.WriteByte(l.src[l.pos+1])
			l.pos += 2
		default:
			b.WriteByte(c)
			l.pos++
		}
	}
	return token{}, &SyntaxError{Offset: start, Message: "unterminated string literal"}
}

// scanNumber accepts decimal literals with optional sign, fraction, and
// exponent, plus 0x hexadecimal integers.
func (l *lexer) scanNumber() (token, error) {
	start := l.pos
	if l.src[l.pos] == '-' {
		l.pos++
	}

	if strings.HasPrefix(l.src[l.pos:], "0x") || strings.HasPrefix(l.src[l.pos:], "0X") {
		l.pos += 2
		digits := l.pos
		for l.pos < len(l.src) && isHexDigit(l.src[l.pos]) {
			l.pos++
		}
		if l.pos == digits {
			return token{}, &SyntaxError{Offset: start, Message: "malformed hexadecimal literal"}
		}
		u, err := strconv.ParseUint(l.src[digits:l.pos], 16, 64)
		if err != nil {
			return token{}, &SyntaxError{Offset: start, Message: fmt.Sprintf("malformed number %q", l.src[start:l.pos])}
		}
		f := float64(u)
		if l.src[start] == '-' {
			f = -f
		}
		return token{kind: tokenNumber, text: l.src[start:l.pos], num: f, pos: start}, nil
	}

	l.digits()
	if l.pos < len(l.src) && l.src[l.pos] == '.' && l.pos+1 < len(l.src) && isDigit(l.src[l.pos+1]) {
		l.pos++
		l.digits()
	}
	if l.pos < len(l.src) && (l.src[l.pos] == 'e' || l.src[l.pos] == 'E') {
		mark := l.pos
		l.pos++
		if l.pos < len(l.src) && (l.src[l.pos] == '+' || l.src[l.pos] == '-') {
			l.pos++
		}
		if l.pos >= len(l.src) || !isDigit(l.src[l.pos]) {
			l.pos = mark // not an exponent, back out
		} else {
			l.digits()
		}
	}

	text := l.src[start:l.pos]
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return token{}, &SyntaxError{Offset: start, Message: fmt.Sprintf("malformed number %q", text)}
	}
	return token{kind: tokenNumber, text: text, num: f, pos: start}, nil
}

func (l *lexer) digits() {
	for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
		l.pos++
	}
}

func (l *lexer) scanIdent() (token, error) {
	start := l.pos
	for l.pos < len(l.src) {
		r, size := utf8.DecodeRuneInString(l.src[l.pos:])
		if !isIdentPart(r) {
			break
		}
		l.pos += size
	}
	return token{kind: tokenIdent, text: l.src[start:l.pos], pos: start}, nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || r == '-' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
