package query

import (
	"sort"
	"strings"

	"github.com/mesh-intelligence/thingstore/internal/errors"
	"github.com/mesh-intelligence/thingstore/pkg/types"
)

// SortParam is the request parameter key that carries the sort expression
// alongside the field filters.
const SortParam = "sortby"

// Row is one instance in a collection snapshot.
type Row struct {
	Handle types.Handle
	Values map[string]types.Value
}

// SortSpec orders rows by one field.
type SortSpec struct {
	Field      string
	Kind       types.Kind
	Descending bool
}

// ParseSort parses "+field", "-field" or "field". A leading space is
// treated as "+", which is what a URL-decoded "+" becomes. An empty raw
// string returns nil: rows keep their collection order.
func ParseSort(def *types.EntityDefinition, raw string) (*SortSpec, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	spec := &SortSpec{}
	name := raw
	switch raw[0] {
	case '-':
		spec.Descending = true
		name = raw[1:]
	case '+', ' ':
		name = raw[1:]
	}
	name = strings.TrimSpace(name)

	f, ok := def.Field(name)
	if !ok {
		return nil, errors.Wrapf(types.ErrUnknownField, "entity %q sort field %q", def.Name(), name)
	}
	if !f.Kind.Orderable() {
		return nil, errors.Wrapf(types.ErrIncomparable, "cannot sort on %s field %q", f.Kind, name)
	}
	spec.Field = name
	spec.Kind = f.Kind
	return spec, nil
}

// Query is a compiled set of AND-combined filters and an optional sort.
type Query struct {
	entity  string
	filters []FilterExpr
	sort    *SortSpec
}

// Compile parses name-keyed filters and a sort expression against def.
// The map shape allows one condition per field; callers needing more use
// CompileExprs. Fields are parsed in name order so the first reported
// error is deterministic.
func Compile(def *types.EntityDefinition, filters map[string]string, sortExpr string) (*Query, error) {
	names := make([]string, 0, len(filters))
	for name := range filters {
		names = append(names, name)
	}
	sort.Strings(names)

	exprs := make([]FilterExpr, 0, len(names))
	for _, name := range names {
		expr, err := ParseFilter(def, name, filters[name])
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, expr)
	}
	return compile(def, exprs, sortExpr)
}

// CompileExprs builds a query from already-parsed expressions, any number
// per field. Each expression is checked against def.
func CompileExprs(def *types.EntityDefinition, exprs []FilterExpr, sortExpr string) (*Query, error) {
	for _, e := range exprs {
		f, ok := def.Field(e.Field)
		if !ok {
			return nil, errors.Wrapf(types.ErrUnknownField, "entity %q field %q", def.Name(), e.Field)
		}
		if e.Op.Ordering() && !f.Kind.Orderable() {
			return nil, errors.Wrapf(types.ErrUnsupportedFilterOperator,
				"operator %q on %s field %q", e.Op.String(), f.Kind, e.Field)
		}
		if e.Value.IsSet() && e.Value.Kind() != f.Kind {
			return nil, errors.Wrapf(types.ErrInvalidFieldValue,
				"field %q expects %s, expression holds %s", e.Field, f.Kind, e.Value.Kind())
		}
	}
	return compile(def, append([]FilterExpr(nil), exprs...), sortExpr)
}

func compile(def *types.EntityDefinition, exprs []FilterExpr, sortExpr string) (*Query, error) {
	spec, err := ParseSort(def, sortExpr)
	if err != nil {
		return nil, err
	}
	return &Query{entity: def.Name(), filters: exprs, sort: spec}, nil
}

// Filters returns the compiled filter expressions.
func (q *Query) Filters() []FilterExpr {
	return append([]FilterExpr(nil), q.filters...)
}

// Sort returns the compiled sort, or nil.
func (q *Query) Sort() *SortSpec {
	return q.sort
}

// Matches reports whether row satisfies every filter.
func (q *Query) Matches(row Row) bool {
	for _, f := range q.filters {
		if !f.Match(row.Values[f.Field]) {
			return false
		}
	}
	return true
}

// Apply filters rows and stable-sorts the survivors. The input slice is
// not modified. The result is never nil.
func (q *Query) Apply(rows []Row) []Row {
	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		if q.Matches(row) {
			out = append(out, row)
		}
	}
	if q.sort == nil {
		return out
	}

	field, kind, desc := q.sort.Field, q.sort.Kind, q.sort.Descending
	sort.SliceStable(out, func(i, j int) bool {
		ord, err := types.Compare(kind, out[i].Values[field], out[j].Values[field])
		if err != nil {
			return false
		}
		if desc {
			return ord == types.Greater
		}
		return ord == types.Less
	})
	return out
}

// Evaluate compiles filters and sortExpr against def and applies them.
func Evaluate(def *types.EntityDefinition, rows []Row, filters map[string]string, sortExpr string) ([]Row, error) {
	q, err := Compile(def, filters, sortExpr)
	if err != nil {
		return nil, err
	}
	return q.Apply(rows), nil
}

// Handles extracts the handles of rows, preserving order.
func Handles(rows []Row) []types.Handle {
	out := make([]types.Handle, len(rows))
	for i, r := range rows {
		out[i] = r.Handle
	}
	return out
}

// SplitParams separates request-style parameters into field filters and
// the sort expression carried under SortParam. params is not modified.
func SplitParams(params map[string]string) (filters map[string]string, sortExpr string) {
	filters = make(map[string]string, len(params))
	for k, v := range params {
		if k == SortParam {
			sortExpr = v
			continue
		}
		filters[k] = v
	}
	return filters, sortExpr
}
