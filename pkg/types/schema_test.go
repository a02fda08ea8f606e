package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func thingSchema(t *testing.T) *Schema {
	t.Helper()
	b := NewSchema()
	b.DefineEntity("thing", "").
		AddFields(
			Field("id", KindAutoIncrement, PrimaryKey()),
			Field("guid", KindAutoGUID),
			Field("name", KindString, Mandatory()),
			Field("int", KindInteger, Default("0")),
			Enum("enum", []string{"one", "two"}),
		).
		AddRelationship("owner", "person", "things")
	b.DefineEntity("person", "people").
		AddFields(Field("id", KindAutoIncrement, PrimaryKey())).
		AddRelationship("things", "thing", "owner")
	schema, err := b.Build()
	require.NoError(t, err)
	return schema
}

func TestSchemaBuild(t *testing.T) {
	schema := thingSchema(t)

	entities := schema.Entities()
	require.Len(t, entities, 2)
	assert.Equal(t, "thing", entities[0].Name())
	assert.Equal(t, "things", entities[0].Plural())
	assert.Equal(t, []string{"id", "guid", "name", "int", "enum"}, entities[0].FieldNames())

	byPlural, err := schema.Entity("people")
	require.NoError(t, err)
	assert.Equal(t, "person", byPlural.Name())

	_, err = schema.Entity("widget")
	assert.ErrorIs(t, err, ErrUnknownEntity)

	pk, ok := entities[0].PrimaryKey()
	require.True(t, ok)
	assert.Equal(t, "id", pk.Name)

	f, ok := entities[0].Field("int")
	require.True(t, ok)
	def, has := f.DefaultValue()
	require.True(t, has)
	assert.Equal(t, int64(0), def.Int())
	assert.True(t, def.IsSet())

	rel, ok := entities[0].Relationship("owner")
	require.True(t, ok)
	assert.Equal(t, RelationshipDefinition{Name: "owner", Target: "person", Inverse: "things"}, rel)
}

func TestSchemaDefinitionCopies(t *testing.T) {
	schema := thingSchema(t)
	def, err := schema.Entity("thing")
	require.NoError(t, err)

	fields := def.Fields()
	fields[4].Allowed[0] = "changed"
	again, _ := def.Field("enum")
	assert.Equal(t, []string{"one", "two"}, again.Allowed)
}

func TestSchemaBuildErrors(t *testing.T) {
	tests := []struct {
		name   string
		define func(b *SchemaBuilder)
	}{
		{
			name: "duplicate entity",
			define: func(b *SchemaBuilder) {
				b.DefineEntity("thing", "")
				b.DefineEntity("thing", "others")
			},
		},
		{
			name: "plural clashes with entity name",
			define: func(b *SchemaBuilder) {
				b.DefineEntity("thing", "")
				b.DefineEntity("other", "thing")
			},
		},
		{
			name: "duplicate field",
			define: func(b *SchemaBuilder) {
				b.DefineEntity("thing", "").AddFields(Field("a", KindString), Field("a", KindInteger))
			},
		},
		{
			name: "two primary keys",
			define: func(b *SchemaBuilder) {
				b.DefineEntity("thing", "").AddFields(
					Field("a", KindAutoIncrement, PrimaryKey()),
					Field("b", KindAutoGUID, PrimaryKey()))
			},
		},
		{
			name: "primary key on plain field",
			define: func(b *SchemaBuilder) {
				b.DefineEntity("thing", "").AddFields(Field("a", KindString, PrimaryKey()))
			},
		},
		{
			name: "enum without values",
			define: func(b *SchemaBuilder) {
				b.DefineEntity("thing", "").AddFields(Enum("e", nil))
			},
		},
		{
			name: "range on string",
			define: func(b *SchemaBuilder) {
				b.DefineEntity("thing", "").AddFields(Field("s", KindString, Range(0, 1)))
			},
		},
		{
			name: "empty range",
			define: func(b *SchemaBuilder) {
				b.DefineEntity("thing", "").AddFields(Field("i", KindInteger, Range(5, 1)))
			},
		},
		{
			name: "layouts on integer",
			define: func(b *SchemaBuilder) {
				b.DefineEntity("thing", "").AddFields(Field("i", KindInteger, Layouts("2006")))
			},
		},
		{
			name: "default on auto field",
			define: func(b *SchemaBuilder) {
				b.DefineEntity("thing", "").AddFields(Field("n", KindAutoIncrement, Default("1")))
			},
		},
		{
			name: "invalid default",
			define: func(b *SchemaBuilder) {
				b.DefineEntity("thing", "").AddFields(Field("i", KindInteger, Default("x")))
			},
		},
		{
			name: "default outside range",
			define: func(b *SchemaBuilder) {
				b.DefineEntity("thing", "").AddFields(Field("i", KindInteger, Range(1, 2), Default("3")))
			},
		},
		{
			name: "relationship clashes with field",
			define: func(b *SchemaBuilder) {
				b.DefineEntity("thing", "").AddFields(Field("owner", KindString)).AddRelationship("owner", "thing", "")
			},
		},
		{
			name: "undefined target",
			define: func(b *SchemaBuilder) {
				b.DefineEntity("thing", "").AddRelationship("owner", "person", "")
			},
		},
		{
			name: "missing inverse",
			define: func(b *SchemaBuilder) {
				b.DefineEntity("thing", "").AddRelationship("owner", "person", "things")
				b.DefineEntity("person", "people")
			},
		},
		{
			name: "inverse does not point back",
			define: func(b *SchemaBuilder) {
				b.DefineEntity("thing", "").AddRelationship("owner", "person", "things")
				b.DefineEntity("person", "people").AddRelationship("things", "thing", "")
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewSchema()
			tt.define(b)
			_, err := b.Build()
			assert.ErrorIs(t, err, ErrSchemaDefinition)
		})
	}
}

func TestSelfRelationship(t *testing.T) {
	b := NewSchema()
	b.DefineEntity("node", "").
		AddFields(Field("id", KindAutoIncrement, PrimaryKey())).
		AddRelationship("children", "node", "parent").
		AddRelationship("parent", "node", "children")
	_, err := b.Build()
	assert.NoError(t, err)
}
