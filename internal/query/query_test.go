package query

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/thingstore/pkg/types"
)

func thingDef(t *testing.T) *types.EntityDefinition {
	t.Helper()
	b := types.NewSchema()
	b.DefineEntity("thing", "").AddFields(
		types.Field("id", types.KindAutoIncrement, types.PrimaryKey()),
		types.Field("guid", types.KindAutoGUID),
		types.Field("int", types.KindInteger),
		types.Field("name", types.KindString),
		types.Field("when", types.KindDate),
		types.Enum("enum", []string{"one", "two"}),
	)
	schema, err := b.Build()
	require.NoError(t, err)
	def, err := schema.Entity("thing")
	require.NoError(t, err)
	return def
}

// rowsOf builds rows whose int field holds the given values, in order.
func rowsOf(t *testing.T, def *types.EntityDefinition, ints ...int) []Row {
	t.Helper()
	f, _ := def.Field("int")
	rows := make([]Row, len(ints))
	for i, n := range ints {
		v, err := types.ParseValue(f, strconv.Itoa(n))
		require.NoError(t, err)
		rows[i] = Row{
			Handle: types.Handle{Namespace: "default", Entity: "thing", Slot: int64(i + 1)},
			Values: map[string]types.Value{"int": v},
		}
	}
	return rows
}

func ints(rows []Row) []int64 {
	out := make([]int64, len(rows))
	for i, r := range rows {
		out[i] = r.Values["int"].Int()
	}
	return out
}

func TestEvaluateIntegerGrid(t *testing.T) {
	def := thingDef(t)
	rows := rowsOf(t, def, 3, 1, 4, 2)

	tests := []struct {
		name   string
		filter string
		sort   string
		want   []int64
	}{
		{name: "equal", filter: "1", want: []int64{1}},
		{name: "not equal sorted", filter: "!1", sort: "+int", want: []int64{2, 3, 4}},
		{name: "greater sorted", filter: ">1", sort: "+int", want: []int64{2, 3, 4}},
		{name: "less", filter: "<2", want: []int64{1}},
		{name: "less than minimum", filter: "<1", want: []int64{}},
		{name: "greater or equal sorted", filter: ">=3", sort: "+int", want: []int64{3, 4}},
		{name: "less or equal sorted", filter: "<=3", sort: "+int", want: []int64{1, 2, 3}},
		{name: "descending no filter", sort: "-int", want: []int64{4, 3, 2, 1}},
		{name: "ascending no filter", sort: "+int", want: []int64{1, 2, 3, 4}},
		{name: "bare field sorts ascending", sort: "int", want: []int64{1, 2, 3, 4}},
		{name: "decoded plus sorts ascending", sort: " int", want: []int64{1, 2, 3, 4}},
		{name: "no filter keeps order", want: []int64{3, 1, 4, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filters := map[string]string{}
			if tt.filter != "" {
				filters["int"] = tt.filter
			}
			got, err := Evaluate(def, rows, filters, tt.sort)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ints(got))
		})
	}
	assert.Equal(t, []int64{3, 1, 4, 2}, ints(rows), "input rows must not be reordered")
}

func TestParseFilterOperators(t *testing.T) {
	def := thingDef(t)
	tests := []struct {
		expr    string
		wantOp  Op
		wantLit string
	}{
		{"5", OpEq, "5"},
		{"!5", OpNe, "5"},
		{">5", OpGt, "5"},
		{"<5", OpLt, "5"},
		{">=5", OpGe, "5"},
		{"<=5", OpLe, "5"},
		{"-5", OpEq, "-5"},
		{">=-5", OpGe, "-5"},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			e, err := ParseFilter(def, "int", tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOp, e.Op)
			assert.Equal(t, tt.wantLit, e.Value.String())
			assert.Equal(t, "int"+tt.expr, e.String())
		})
	}
}

func TestParseFilterErrors(t *testing.T) {
	def := thingDef(t)
	tests := []struct {
		name    string
		field   string
		expr    string
		wantErr error
	}{
		{"unknown field", "nope", "1", types.ErrUnknownField},
		{"bad integer", "int", ">x", types.ErrInvalidFieldValue},
		{"bad date", "when", "<yesterday", types.ErrInvalidFieldValue},
		{"ordering on guid", "guid", ">abc", types.ErrUnsupportedFilterOperator},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFilter(def, tt.field, tt.expr)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParseSortErrors(t *testing.T) {
	def := thingDef(t)

	_, err := ParseSort(def, "-missing")
	assert.ErrorIs(t, err, types.ErrUnknownField)

	_, err = ParseSort(def, "+guid")
	assert.ErrorIs(t, err, types.ErrIncomparable)

	spec, err := ParseSort(def, "")
	require.NoError(t, err)
	assert.Nil(t, spec)
}

func TestUnsetValuesMatchOnlyNotEqual(t *testing.T) {
	def := thingDef(t)
	rows := rowsOf(t, def, 2)
	rows = append(rows, Row{
		Handle: types.Handle{Namespace: "default", Entity: "thing", Slot: 9},
		Values: map[string]types.Value{"int": types.NullValue(types.KindInteger)},
	})

	tests := []struct {
		filter string
		want   int
	}{
		{"2", 1},
		{"!2", 1},
		{"!5", 2},
		{"<5", 1},
		{">=0", 1},
	}
	for _, tt := range tests {
		t.Run(tt.filter, func(t *testing.T) {
			got, err := Evaluate(def, rows, map[string]string{"int": tt.filter}, "")
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}

	sorted, err := Evaluate(def, rows, nil, "+int")
	require.NoError(t, err)
	assert.Equal(t, int64(9), sorted[0].Handle.Slot, "unset values sort first")
}

func TestFiltersAreAnded(t *testing.T) {
	def := thingDef(t)
	enum, _ := def.Field("enum")
	rows := rowsOf(t, def, 1, 2, 3)
	for i, label := range []string{"one", "two", "two"} {
		v, err := types.ParseValue(enum, label)
		require.NoError(t, err)
		rows[i].Values["enum"] = v
	}

	got, err := Evaluate(def, rows, map[string]string{"enum": "two", "int": "<3"}, "")
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, ints(got))
}

func TestCompileExprsRange(t *testing.T) {
	def := thingDef(t)
	lo, err := ParseFilter(def, "int", ">1")
	require.NoError(t, err)
	hi, err := ParseFilter(def, "int", "<4")
	require.NoError(t, err)

	q, err := CompileExprs(def, []FilterExpr{lo, hi}, "-int")
	require.NoError(t, err)
	assert.Len(t, q.Filters(), 2)
	assert.True(t, q.Sort().Descending)

	got := q.Apply(rowsOf(t, def, 3, 1, 4, 2))
	assert.Equal(t, []int64{3, 2}, ints(got))
}

func TestCompileExprsKindMismatch(t *testing.T) {
	def := thingDef(t)
	_, err := CompileExprs(def, []FilterExpr{{Field: "int", Op: OpEq, Value: types.GUIDValue("x")}}, "")
	assert.ErrorIs(t, err, types.ErrInvalidFieldValue)
}

func TestSplitParams(t *testing.T) {
	params := map[string]string{"int": ">1", SortParam: "-int"}
	filters, sortExpr := SplitParams(params)
	assert.Equal(t, map[string]string{"int": ">1"}, filters)
	assert.Equal(t, "-int", sortExpr)
	assert.Len(t, params, 2)
}

func TestHandles(t *testing.T) {
	def := thingDef(t)
	rows := rowsOf(t, def, 5, 6)
	hs := Handles(rows)
	require.Len(t, hs, 2)
	assert.Equal(t, int64(1), hs[0].Slot)
	assert.Equal(t, int64(2), hs[1].Slot)
}
