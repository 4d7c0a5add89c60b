package timeexpr

import (
	"strconv"
	"strings"
)

// Expr is a node of a parsed time expression.
type Expr interface {
	String() string
	node()
}

// Unit is the suffix of a numeric literal.
type Unit int

const (
	UnitSeconds Unit = iota // bare number or "s"
	UnitFrames              // "f"
	UnitMillis              // "ms"
)

func (u Unit) suffix() string {
	switch u {
	case UnitFrames:
		return "f"
	case UnitMillis:
		return "ms"
	default:
		return ""
	}
}

// Number is a numeric literal with an optional unit.
type Number struct {
	Value float64
	Unit  Unit
}

// Ident is a bare identifier such as prev, next or timeline.
type Ident struct {
	Name string
}

// Str is a quoted string, only meaningful as an id argument.
type Str struct {
	Value string
}

// Call is a function call: name(args...).
type Call struct {
	Name string
	Args []Expr
}

// Member is a property access: target.prop.
type Member struct {
	Target Expr
	Prop   string
}

// Unary is a prefix + or - applied to X.
type Unary struct {
	Op byte
	X  Expr
}

// Binary is an infix arithmetic operation.
type Binary struct {
	Op   byte
	L, R Expr
}

func (*Number) node() {}
func (*Ident) node()  {}
func (*Str) node()    {}
func (*Call) node()   {}
func (*Member) node() {}
func (*Unary) node()  {}
func (*Binary) node() {}

func (n *Number) String() string {
	return strconv.FormatFloat(n.Value, 'g', -1, 64) + n.Unit.suffix()
}

func (n *Ident) String() string { return n.Name }

func (n *Str) String() string { return strconv.Quote(n.Value) }

func (n *Call) String() string {
	args := make([]string, len(n.Args))
	for i, a := range n.Args {
		args[i] = a.String()
	}
	return n.Name + "(" + strings.Join(args, ", ") + ")"
}

func (n *Member) String() string { return n.Target.String() + "." + n.Prop }

func (n *Unary) String() string { return string(n.Op) + n.X.String() }

func (n *Binary) String() string {
	return "(" + n.L.String() + " " + string(n.Op) + " " + n.R.String() + ")"
}
