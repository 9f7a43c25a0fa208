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

// node is a node in the abstract syntax tree of an expression. Nodes are
// built once per parse and are immutable afterwards.
type node interface {
	// at returns the byte offset of the node in the expression text.
	at() int
}

// literal is an inline value: a number, string, true, false, or null.
type literal struct {
	pos int
	val Value
}

// contextRoot references one of the fixed context roots by name.
type contextRoot struct {
	pos  int
	name string
}

// propertyAccess is base.name.
type propertyAccess struct {
	pos  int
	base node
	name string
}

// indexAccess is base[index].
type indexAccess struct {
	pos   int
	base  node
	index node
}

// wildcard is base.*, projecting every element of an array or every value
// of an object.
type wildcard struct {
	pos  int
	base node
}

// functionCall is name(args...).
type functionCall struct {
	pos  int
	name string
	args []node
}

// unaryNot is !operand.
type unaryNot struct {
	pos     int
	operand node
}

// binOp identifies a binary operator.
type binOp int

const (
	opEq binOp = iota
	opNe
	opLt
	opLe
	opGt
	opGe
	opAnd
	opOr
)

func (op binOp) String() string {
	switch op {
	case opEq:
		return "=="
	case opNe:
		return "!="
	case opLt:
		return "<"
	case opLe:
		return "<="
	case opGt:
		return ">"
	case opGe:
		return ">="
	case opAnd:
		return "&&"
	case opOr:
		return "||"
	default:
		return "invalid"
	}
}

// binaryOp is left op right.
type binaryOp struct {
	pos   int
	op    binOp
	left  node
	right node
}

func (n *literal) at() int        { return n.pos }
func (n *contextRoot) at() int    { return n.pos }
func (n *propertyAccess) at() int { return n.pos }
func (n *indexAccess) at() int    { return n.pos }
func (n *wildcard) at() int       { return n.pos }
func (n *functionCall) at() int   { return n.pos }
func (n *unaryNot) at() int       { return n.pos }
func (n *binaryOp) at() int       { return n.pos }
