package types

// RelationshipDefinition is a named, directed vector from its owning
// entity to Target. When Inverse is set, Target declares a relationship
// of that name pointing back, and links update both sides.
type RelationshipDefinition struct {
	Name    string
	Target  string
	Inverse string
}

// EntityDefinition is a built, read-only entity schema.
type EntityDefinition struct {
	name          string
	plural        string
	fields        []FieldDefinition
	fieldIndex    map[string]int
	primaryKey    int
	relationships []RelationshipDefinition
	relIndex      map[string]int
}

// Name returns the entity name.
func (e *EntityDefinition) Name() string { return e.name }

// Plural returns the plural display name.
func (e *EntityDefinition) Plural() string { return e.plural }

// Fields returns the field definitions in declaration order.
func (e *EntityDefinition) Fields() []FieldDefinition {
	out := make([]FieldDefinition, len(e.fields))
	for i, f := range e.fields {
		out[i] = f.clone()
	}
	return out
}

// FieldNames returns the field names in declaration order.
func (e *EntityDefinition) FieldNames() []string {
	names := make([]string, len(e.fields))
	for i, f := range e.fields {
		names[i] = f.Name
	}
	return names
}

// Field returns the named field definition.
func (e *EntityDefinition) Field(name string) (FieldDefinition, bool) {
	i, ok := e.fieldIndex[name]
	if !ok {
		return FieldDefinition{}, false
	}
	return e.fields[i].clone(), true
}

// PrimaryKey returns the primary-key field, if the entity declares one.
func (e *EntityDefinition) PrimaryKey() (FieldDefinition, bool) {
	if e.primaryKey < 0 {
		return FieldDefinition{}, false
	}
	return e.fields[e.primaryKey].clone(), true
}

// Relationships returns the relationship definitions in declaration order.
func (e *EntityDefinition) Relationships() []RelationshipDefinition {
	return append([]RelationshipDefinition(nil), e.relationships...)
}

// Relationship returns the named relationship definition.
func (e *EntityDefinition) Relationship(name string) (RelationshipDefinition, bool) {
	i, ok := e.relIndex[name]
	if !ok {
		return RelationshipDefinition{}, false
	}
	return e.relationships[i], true
}
