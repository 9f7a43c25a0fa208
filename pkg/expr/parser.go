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
	"strings"
)

// Grammar, lowest precedence first; all binary operators left-associative:
//
//	Or       = And { '||' And }
//	And      = Equality { '&&' Equality }
//	Equality = Relation { ('==' | '!=') Relation }
//	Relation = Unary { ('<' | '<=' | '>' | '>=') Unary }
//	Unary    = '!' Unary | Postfix
//	Postfix  = Primary { '.' name | '.' '*' | '[' Or ']' }
//	Primary  = number | string | 'true' | 'false' | 'null'
//	         | name '(' [ Or { ',' Or } ] ')' | name | '(' Or ')'

// maxParseDepth bounds expression nesting so pathological input fails with
// a SyntaxError instead of exhausting the stack. Evaluation recursion is
// bounded by the same limit, since it follows the parsed tree.
const maxParseDepth = 100

// Expression is a parsed expression, ready to be evaluated against any
// number of snapshots. It holds no evaluation state.
type Expression struct {
	root node
	src  string
}

// Source returns the expression text after delimiter stripping.
func (x *Expression) Source() string {
	return x.src
}

// Unwrap removes an optional ${{ ... }} wrapper and surrounding whitespace
// from an expression string.
func Unwrap(input string) string {
	s := strings.TrimSpace(input)
	if strings.HasPrefix(s, "${{") && strings.HasSuffix(s, "}}") {
		s = strings.TrimSpace(s[3 : len(s)-2])
	}
	return s
}

// Parse converts an expression string, optionally wrapped in ${{ }}, into a
// reusable Expression. Parsing is non-backtracking; time is linear in the
// input length.
func Parse(input string) (*Expression, error) {
	src := Unwrap(input)
	toks, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokenEOF {
		return nil, &SyntaxError{Offset: tok.pos, Message: fmt.Sprintf("unexpected %s after expression", tok.describe())}
	}
	return &Expression{root: root, src: src}, nil
}

type parser struct {
	toks  []token
	pos   int
	depth int
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) next() token {
	tok := p.toks[p.pos]
	if tok.kind != tokenEOF {
		p.pos++
	}
	return tok
}

// accept consumes the next token if it matches kind and text.
func (p *parser) accept(kind tokenKind, text string) bool {
	tok := p.peek()
	if tok.kind == kind && tok.text == text {
		p.next()
		return true
	}
	return false
}

func (p *parser) expect(kind tokenKind, text string) error {
	tok := p.peek()
	if tok.kind != kind || tok.text != text {
		return &SyntaxError{Offset: tok.pos, Message: fmt.Sprintf("expected %q, found %s", text, tok.describe())}
	}
	p.next()
	return nil
}

func (p *parser) enter() error {
	p.depth++
	if p.depth > maxParseDepth {
		return &SyntaxError{Offset: p.peek().pos, Message: "expression is nested too deeply"}
	}
	return nil
}

func (p *parser) leave() {
	p.depth--
}

func (p *parser) parseOr() (node, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		if tok.kind != tokenOp || tok.text != "||" {
			return left, nil
		}
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &binaryOp{pos: tok.pos, op: opOr, left: left, right: right}
	}
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		if tok.kind != tokenOp || tok.text != "&&" {
			return left, nil
		}
		p.next()
		right, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		left = &binaryOp{pos: tok.pos, op: opAnd, left: left, right: right}
	}
}

func (p *parser) parseEquality() (node, error) {
	left, err := p.parseRelation()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		var op binOp
		switch {
		case tok.kind == tokenOp && tok.text == "==":
			op = opEq
		case tok.kind == tokenOp && tok.text == "!=":
			op = opNe
		default:
			return left, nil
		}
		p.next()
		right, err := p.parseRelation()
		if err != nil {
			return nil, err
		}
		left = &binaryOp{pos: tok.pos, op: op, left: left, right: right}
	}
}

func (p *parser) parseRelation() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		var op binOp
		switch {
		case tok.kind == tokenOp && tok.text == "<":
			op = opLt
		case tok.kind == tokenOp && tok.text == "<=":
			op = opLe
		case tok.kind == tokenOp && tok.text == ">":
			op = opGt
		case tok.kind == tokenOp && tok.text == ">=":
			op = opGe
		default:
			return left, nil
		}
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &binaryOp{pos: tok.pos, op: op, left: left, right: right}
	}
}

func (p *parser) parseUnary() (node, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	tok := p.peek()
	if tok.kind == tokenOp && tok.text == "!" {
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &unaryNot{pos: tok.pos, operand: operand}, nil
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() (node, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	// Every chain link nests the tree one level deeper, so each counts
	// against the depth limit; a long flat chain would otherwise parse
	// shallow but recurse per link during evaluation.
	links := 0
	defer func() { p.depth -= links }()
	for {
		tok := p.peek()
		switch {
		case tok.kind == tokenPunct && tok.text == ".":
			if err := p.enter(); err != nil {
				return nil, err
			}
			links++
			p.next()
			name := p.peek()
			switch {
			case name.kind == tokenIdent:
				p.next()
				base = &propertyAccess{pos: tok.pos, base: base, name: name.text}
			case name.kind == tokenPunct && name.text == "*":
				p.next()
				base = &wildcard{pos: tok.pos, base: base}
			default:
				return nil, &SyntaxError{Offset: name.pos, Message: fmt.Sprintf("expected property name after '.', found %s", name.describe())}
			}
		case tok.kind == tokenPunct && tok.text == "[":
			if err := p.enter(); err != nil {
				return nil, err
			}
			links++
			p.next()
			index, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			if err := p.expect(tokenPunct, "]"); err != nil {
				return nil, err
			}
			base = &indexAccess{pos: tok.pos, base: base, index: index}
		default:
			return base, nil
		}
	}
}

func (p *parser) parsePrimary() (node, error) {
	tok := p.peek()
	switch tok.kind {
	case tokenNumber:
		p.next()
		return &literal{pos: tok.pos, val: Number(tok.num)}, nil
	case tokenString:
		p.next()
		return &literal{pos: tok.pos, val: String(tok.text)}, nil
	case tokenIdent:
		p.next()
		switch {
		case strings.EqualFold(tok.text, "true"):
			return &literal{pos: tok.pos, val: Boolean(true)}, nil
		case strings.EqualFold(tok.text, "false"):
			return &literal{pos: tok.pos, val: Boolean(false)}, nil
		case strings.EqualFold(tok.text, "null"):
			return &literal{pos: tok.pos, val: Null{}}, nil
		}
		if p.peek().kind == tokenPunct && p.peek().text == "(" {
			return p.parseCall(tok)
		}
		return &contextRoot{pos: tok.pos, name: tok.text}, nil
	case tokenPunct:
		if tok.text == "(" {
			p.next()
			inner, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			if err := p.expect(tokenPunct, ")"); err != nil {
				return nil, err
			}
			return inner, nil
		}
	}
	return nil, &SyntaxError{Offset: tok.pos, Message: fmt.Sprintf("unexpected %s", tok.describe())}
}

// parseCall parses the argument list of name(...). Arguments are full
// expressions, so nested calls, commas inside string literals, and
// bracketed sub-expressions are handled structurally.
func (p *parser) parseCall(name token) (node, error) {
	p.next() // consume '('
	call := &functionCall{pos: name.pos, name: name.text}
	if p.accept(tokenPunct, ")") {
		return call, nil
	}
	for {
		arg, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		call.args = append(call.args, arg)
		if p.accept(tokenPunct, ",") {
			continue
		}
		if err := p.expect(tokenPunct, ")"); err != nil {
			return nil, err
		}
		return call, nil
	}
}
