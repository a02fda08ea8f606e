// Package query parses string filter and sort parameters into typed
// expressions and evaluates them against snapshots of a collection.
//
// Parsing and evaluation are separate: ParseFilter and ParseSort turn raw
// strings into FilterExpr and SortSpec, and only typed values reach Match
// and the sort comparator.
package query

import (
	"strings"

	"github.com/mesh-intelligence/thingstore/internal/errors"
	"github.com/mesh-intelligence/thingstore/pkg/types"
)

// Op is a filter comparison operator.
type Op int

// Filter operators.
const (
	OpEq Op = iota
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
)

// prefixes maps expression prefixes to operators. Two-character prefixes
// are listed first so ">=" is not read as ">" followed by "=3".
var prefixes = []struct {
	prefix string
	op     Op
}{
	{">=", OpGe},
	{"<=", OpLe},
	{"!", OpNe},
	{">", OpGt},
	{"<", OpLt},
}

// String returns the expression prefix for o; equality has none.
func (o Op) String() string {
	for _, p := range prefixes {
		if p.op == o {
			return p.prefix
		}
	}
	return ""
}

// Ordering reports whether the operator needs an order on the field kind.
func (o Op) Ordering() bool {
	return o == OpLt || o == OpLe || o == OpGt || o == OpGe
}

// FilterExpr is one parsed condition on one field.
type FilterExpr struct {
	Field string
	Op    Op
	Value types.Value
}

// String renders the expression in the input grammar, e.g. "int>=3".
func (e FilterExpr) String() string {
	return e.Field + e.Op.String() + e.Value.String()
}

// splitOperator separates the operator prefix from the literal.
func splitOperator(expr string) (Op, string) {
	for _, p := range prefixes {
		if strings.HasPrefix(expr, p.prefix) {
			return p.op, expr[len(p.prefix):]
		}
	}
	return OpEq, expr
}

// ParseFilter parses expr for the named field of def.
func ParseFilter(def *types.EntityDefinition, field, expr string) (FilterExpr, error) {
	f, ok := def.Field(field)
	if !ok {
		return FilterExpr{}, errors.Wrapf(types.ErrUnknownField, "entity %q field %q", def.Name(), field)
	}
	op, literal := splitOperator(expr)
	if op.Ordering() && !f.Kind.Orderable() {
		return FilterExpr{}, errors.Wrapf(types.ErrUnsupportedFilterOperator,
			"operator %q on %s field %q", op.String(), f.Kind, field)
	}
	v, err := types.ParseLiteral(f, literal)
	if err != nil {
		return FilterExpr{}, err
	}
	return FilterExpr{Field: field, Op: op, Value: v}, nil
}

// Match reports whether v satisfies the expression. An unset v only
// satisfies OpNe.
func (e FilterExpr) Match(v types.Value) bool {
	if !v.IsSet() {
		return e.Op == OpNe
	}
	switch e.Op {
	case OpEq:
		return types.EqualValues(v, e.Value)
	case OpNe:
		return !types.EqualValues(v, e.Value)
	}

	ord, err := types.Compare(e.Value.Kind(), v, e.Value)
	if err != nil {
		return false
	}
	switch e.Op {
	case OpLt:
		return ord == types.Less
	case OpLe:
		return ord != types.Greater
	case OpGt:
		return ord == types.Greater
	case OpGe:
		return ord != types.Less
	}
	return false
}
