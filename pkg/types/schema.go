package types

import (
	"github.com/mesh-intelligence/thingstore/internal/errors"
)

// SchemaBuilder collects entity declarations until Build.
type SchemaBuilder struct {
	entities []*EntityBuilder
}

// EntityBuilder collects one entity's fields and relationships.
type EntityBuilder struct {
	name          string
	plural        string
	fields        []FieldDefinition
	relationships []RelationshipDefinition
}

// Schema is the built, immutable set of entity definitions.
type Schema struct {
	entities []*EntityDefinition
	byName   map[string]*EntityDefinition
	byPlural map[string]*EntityDefinition
}

// NewSchema starts a schema declaration.
func NewSchema() *SchemaBuilder {
	return &SchemaBuilder{}
}

// DefineEntity declares an entity. An empty plural defaults to name+"s".
func (s *SchemaBuilder) DefineEntity(name, plural string) *EntityBuilder {
	if plural == "" {
		plural = name + "s"
	}
	e := &EntityBuilder{name: name, plural: plural}
	s.entities = append(s.entities, e)
	return e
}

// AddFields appends fields in declaration order.
func (e *EntityBuilder) AddFields(fields ...FieldDefinition) *EntityBuilder {
	for _, f := range fields {
		e.fields = append(e.fields, f.clone())
	}
	return e
}

// AddRelationship declares a relationship vector toward target. inverse
// names the relationship on target that points back; empty means the
// vector is one-directional.
func (e *EntityBuilder) AddRelationship(name, target, inverse string) *EntityBuilder {
	e.relationships = append(e.relationships, RelationshipDefinition{Name: name, Target: target, Inverse: inverse})
	return e
}

// Build validates every declaration and returns the schema. All problems
// are reported as ErrSchemaDefinition; nothing is deferred to first use.
func (s *SchemaBuilder) Build() (*Schema, error) {
	schema := &Schema{
		byName:   make(map[string]*EntityDefinition, len(s.entities)),
		byPlural: make(map[string]*EntityDefinition, len(s.entities)),
	}

	for _, eb := range s.entities {
		def, err := eb.build()
		if err != nil {
			return nil, err
		}
		if def.name == "" {
			return nil, errors.Wrap(ErrSchemaDefinition, "entity name must not be empty")
		}
		if schema.lookup(def.name) != nil {
			return nil, errors.Wrapf(ErrSchemaDefinition, "entity %q declared twice", def.name)
		}
		if other := schema.lookup(def.plural); other != nil {
			return nil, errors.Wrapf(ErrSchemaDefinition, "entity %q plural %q clashes with entity %q", def.name, def.plural, other.name)
		}
		schema.entities = append(schema.entities, def)
		schema.byName[def.name] = def
		schema.byPlural[def.plural] = def
	}

	for _, def := range schema.entities {
		if err := schema.checkRelationships(def); err != nil {
			return nil, err
		}
	}
	return schema, nil
}

func (e *EntityBuilder) build() (*EntityDefinition, error) {
	def := &EntityDefinition{
		name:       e.name,
		plural:     e.plural,
		fieldIndex: make(map[string]int, len(e.fields)),
		primaryKey: -1,
		relIndex:   make(map[string]int, len(e.relationships)),
	}

	for _, f := range e.fields {
		if err := checkField(e.name, &f); err != nil {
			return nil, err
		}
		if _, dup := def.fieldIndex[f.Name]; dup {
			return nil, errors.Wrapf(ErrSchemaDefinition, "entity %q field %q declared twice", e.name, f.Name)
		}
		if f.PrimaryKey {
			if def.primaryKey >= 0 {
				return nil, errors.Wrapf(ErrSchemaDefinition, "entity %q declares primary key twice (%q and %q)",
					e.name, def.fields[def.primaryKey].Name, f.Name)
			}
			def.primaryKey = len(def.fields)
		}
		def.fieldIndex[f.Name] = len(def.fields)
		def.fields = append(def.fields, f)
	}

	for _, r := range e.relationships {
		if r.Name == "" {
			return nil, errors.Wrapf(ErrSchemaDefinition, "entity %q has a relationship without a name", e.name)
		}
		if _, dup := def.relIndex[r.Name]; dup {
			return nil, errors.Wrapf(ErrSchemaDefinition, "entity %q relationship %q declared twice", e.name, r.Name)
		}
		if _, clash := def.fieldIndex[r.Name]; clash {
			return nil, errors.Wrapf(ErrSchemaDefinition, "entity %q relationship %q clashes with a field", e.name, r.Name)
		}
		def.relIndex[r.Name] = len(def.relationships)
		def.relationships = append(def.relationships, r)
	}
	return def, nil
}

// checkField validates one field and resolves its default.
func checkField(entity string, f *FieldDefinition) error {
	fail := func(format string, args ...any) error {
		return errors.Wrapf(ErrSchemaDefinition, "entity %q field %q: "+format, append([]any{entity, f.Name}, args...)...)
	}

	switch {
	case f.Name == "":
		return errors.Wrapf(ErrSchemaDefinition, "entity %q has a field without a name", entity)
	case !f.Kind.Valid():
		return fail("invalid kind %d", int(f.Kind))
	case f.PrimaryKey && !f.Kind.IsAuto():
		return fail("primary key must be AUTO_GUID or AUTO_INCREMENT, not %s", f.Kind)
	case f.Kind == KindEnum && len(f.Allowed) == 0:
		return fail("ENUM declares no values")
	case len(f.Allowed) > 0 && f.Kind != KindEnum && f.Kind != KindString:
		return fail("allowed values apply to STRING and ENUM only")
	case f.Range != nil && !f.Kind.IsNumeric():
		return fail("range applies to numeric kinds only")
	case f.Range != nil && f.Range.Min > f.Range.Max:
		return fail("range %s is empty", f.Range)
	case f.MaxLength < 0 || (f.MaxLength > 0 && f.Kind != KindString):
		return fail("max length applies to STRING only")
	case len(f.Layouts) > 0 && f.Kind != KindDate:
		return fail("layouts apply to DATE only")
	case f.Kind.IsAuto() && (f.HasDefault || f.Mandatory):
		return fail("%s fields are generated and take no default or mandatory flag", f.Kind)
	}

	if f.HasDefault {
		v, err := ParseValue(*f, f.DefaultRaw)
		if err != nil {
			return fail("invalid default: %v", err)
		}
		f.defaultValue = v
	}
	return nil
}

// checkRelationships verifies targets exist and declared inverses point
// back at def.
func (s *Schema) checkRelationships(def *EntityDefinition) error {
	for _, r := range def.relationships {
		target, ok := s.byName[r.Target]
		if !ok {
			return errors.Wrapf(ErrSchemaDefinition, "entity %q relationship %q targets undefined entity %q",
				def.name, r.Name, r.Target)
		}
		if r.Inverse == "" {
			continue
		}
		inv, ok := target.Relationship(r.Inverse)
		if !ok {
			return errors.Wrapf(ErrSchemaDefinition, "entity %q relationship %q: inverse %q not declared on %q",
				def.name, r.Name, r.Inverse, target.name)
		}
		if inv.Target != def.name || inv.Inverse != r.Name {
			return errors.Wrapf(ErrSchemaDefinition, "entity %q relationship %q: inverse %q on %q does not point back",
				def.name, r.Name, r.Inverse, target.name)
		}
	}
	return nil
}

func (s *Schema) lookup(name string) *EntityDefinition {
	if def, ok := s.byName[name]; ok {
		return def
	}
	return s.byPlural[name]
}

// Entities returns the entity definitions in declaration order.
func (s *Schema) Entities() []*EntityDefinition {
	return append([]*EntityDefinition(nil), s.entities...)
}

// Entity resolves an entity by name or plural name.
func (s *Schema) Entity(nameOrPlural string) (*EntityDefinition, error) {
	if def := s.lookup(nameOrPlural); def != nil {
		return def, nil
	}
	return nil, errors.Wrapf(ErrUnknownEntity, "entity %q", nameOrPlural)
}
