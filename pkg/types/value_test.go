package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
	}{
		{"STRING", KindString},
		{"integer", KindInteger},
		{" Float ", KindFloat},
		{"boolean", KindBoolean},
		{"date", KindDate},
		{"enum", KindEnum},
		{"auto_guid", KindAutoGUID},
		{"auto-increment", KindAutoIncrement},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKind(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseKind("decimal")
	assert.ErrorIs(t, err, ErrSchemaDefinition)
}

func TestKindPredicates(t *testing.T) {
	assert.True(t, KindAutoGUID.IsAuto())
	assert.True(t, KindAutoIncrement.IsAuto())
	assert.False(t, KindString.IsAuto())
	assert.False(t, KindAutoGUID.Orderable())
	assert.True(t, KindDate.Orderable())
	assert.True(t, KindAutoIncrement.IsNumeric())
	assert.False(t, KindBoolean.IsNumeric())
	assert.False(t, Kind(0).Valid())
	assert.Equal(t, "UNKNOWN", Kind(99).String())
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		name    string
		field   FieldDefinition
		raw     string
		want    string
		wantErr bool
	}{
		{name: "string", field: Field("s", KindString), raw: "hello", want: "hello"},
		{name: "empty optional string", field: Field("s", KindString), raw: "", want: ""},
		{name: "empty mandatory string", field: Field("s", KindString, Mandatory()), raw: "", wantErr: true},
		{name: "string max length", field: Field("s", KindString, MaxLength(3)), raw: "abcd", wantErr: true},
		{name: "string whitelist", field: Field("s", KindString, Allowed("a", "b")), raw: "c", wantErr: true},
		{name: "integer", field: Field("i", KindInteger), raw: " 42 ", want: "42"},
		{name: "negative integer", field: Field("i", KindInteger), raw: "-7", want: "-7"},
		{name: "integer rejects float", field: Field("i", KindInteger), raw: "4.2", wantErr: true},
		{name: "integer in range", field: Field("i", KindInteger, Range(1, 10)), raw: "10", want: "10"},
		{name: "integer out of range", field: Field("i", KindInteger, Range(1, 10)), raw: "11", wantErr: true},
		{name: "float", field: Field("f", KindFloat), raw: "2.50", want: "2.5"},
		{name: "float rejects NaN", field: Field("f", KindFloat), raw: "NaN", wantErr: true},
		{name: "boolean", field: Field("b", KindBoolean), raw: "TRUE", want: "true"},
		{name: "boolean rejects yes", field: Field("b", KindBoolean), raw: "yes", wantErr: true},
		{name: "date default layout", field: Field("d", KindDate), raw: "2024-03-01", want: "2024-03-01"},
		{name: "date rfc3339", field: Field("d", KindDate), raw: "2024-03-01T10:00:00Z", want: "2024-03-01T10:00:00Z"},
		{name: "date custom layout", field: Field("d", KindDate, Layouts("02/01/2006")), raw: "01/03/2024", want: "01/03/2024"},
		{name: "date rejects garbage", field: Field("d", KindDate), raw: "March", wantErr: true},
		{name: "enum member", field: Enum("e", []string{"one", "two"}), raw: "two", want: "two"},
		{name: "enum non-member", field: Enum("e", []string{"one", "two"}), raw: "three", wantErr: true},
		{name: "auto increment", field: Field("n", KindAutoIncrement), raw: "5", want: "5"},
		{name: "auto guid empty", field: Field("g", KindAutoGUID), raw: " ", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := ParseValue(tt.field, tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidFieldValue)
				return
			}
			require.NoError(t, err)
			assert.True(t, v.IsSet())
			assert.Equal(t, tt.field.Kind, v.Kind())
			assert.Equal(t, tt.want, v.String())
		})
	}
}

func TestParseLiteralSkipsConstraints(t *testing.T) {
	f := Field("i", KindInteger, Range(1, 10))
	v, err := ParseLiteral(f, "0")
	require.NoError(t, err)
	assert.Equal(t, int64(0), v.Int())
}

func TestCompare(t *testing.T) {
	integer := Field("i", KindInteger)
	date := Field("d", KindDate)
	parse := func(f FieldDefinition, raw string) Value {
		v, err := ParseValue(f, raw)
		require.NoError(t, err)
		return v
	}

	tests := []struct {
		name string
		kind Kind
		a, b Value
		want Ordering
	}{
		{"integer less", KindInteger, parse(integer, "1"), parse(integer, "2"), Less},
		{"integer equal", KindInteger, parse(integer, "2"), parse(integer, "2"), Equal},
		{"integer greater", KindInteger, parse(integer, "3"), parse(integer, "-3"), Greater},
		{"date order", KindDate, parse(date, "2023-12-31"), parse(date, "2024-01-01"), Less},
		{"mixed date layouts", KindDate, parse(date, "2024-01-01T12:00:00Z"), parse(date, "2024-01-01"), Greater},
		{"boolean false first", KindBoolean, parse(Field("b", KindBoolean), "false"), parse(Field("b", KindBoolean), "true"), Less},
		{"string lexical", KindString, parse(Field("s", KindString), "apple"), parse(Field("s", KindString), "banana"), Less},
		{"unset first", KindInteger, NullValue(KindInteger), parse(integer, "-100"), Less},
		{"both unset", KindInteger, NullValue(KindInteger), NullValue(KindInteger), Equal},
		{"auto increment", KindAutoIncrement, AutoIncrementValue(9), AutoIncrementValue(10), Less},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compare(tt.kind, tt.a, tt.b)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompareIncomparable(t *testing.T) {
	_, err := Compare(KindAutoGUID, GUIDValue("a"), GUIDValue("b"))
	assert.ErrorIs(t, err, ErrIncomparable)

	_, err = Compare(KindInteger, AutoIncrementValue(1), AutoIncrementValue(2))
	assert.ErrorIs(t, err, ErrIncomparable)
}

func TestEqualValues(t *testing.T) {
	assert.True(t, EqualValues(GUIDValue("x"), GUIDValue("x")))
	assert.False(t, EqualValues(GUIDValue("x"), GUIDValue("y")))
	assert.True(t, EqualValues(NullValue(KindString), NullValue(KindString)))
	assert.False(t, EqualValues(NullValue(KindInteger), AutoIncrementValue(0)))
	assert.False(t, EqualValues(AutoIncrementValue(1), GUIDValue("1")))
}

func TestValueConversions(t *testing.T) {
	f, err := ParseValue(Field("f", KindFloat), "3.9")
	require.NoError(t, err)
	assert.Equal(t, int64(3), f.Int())
	assert.True(t, f.Bool())

	b, err := ParseValue(Field("b", KindBoolean), "true")
	require.NoError(t, err)
	assert.Equal(t, int64(1), b.Int())

	assert.False(t, NullValue(KindString).Bool())
	assert.Equal(t, "", NullValue(KindDate).String())
}
