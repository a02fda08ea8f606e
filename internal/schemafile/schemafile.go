// Package schemafile reads entity schemas from YAML documents.
//
//	entities:
//	  - name: thing
//	    plural: things
//	    fields:
//	      - {name: id, kind: AUTO_INCREMENT, primary_key: true}
//	      - {name: title, kind: STRING, mandatory: true, max_length: 50}
//	      - {name: status, kind: ENUM, allowed: [open, done], default: open}
//	    relationships:
//	      - {name: owner, target: person, inverse: things}
package schemafile

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/thingstore/internal/errors"
	"github.com/mesh-intelligence/thingstore/pkg/types"
)

// Document is the YAML shape of a schema.
type Document struct {
	Entities []EntityDoc `json:"entities" yaml:"entities"`
}

// EntityDoc is one entity declaration.
type EntityDoc struct {
	Name          string            `json:"name" yaml:"name"`
	Plural        string            `json:"plural,omitempty" yaml:"plural,omitempty"`
	Fields        []FieldDoc        `json:"fields" yaml:"fields"`
	Relationships []RelationshipDoc `json:"relationships,omitempty" yaml:"relationships,omitempty"`
}

// FieldDoc is one field declaration. Pointer members distinguish absent
// from zero.
type FieldDoc struct {
	Name       string   `json:"name" yaml:"name"`
	Kind       string   `json:"kind" yaml:"kind"`
	PrimaryKey bool     `json:"primary_key,omitempty" yaml:"primary_key,omitempty"`
	Mandatory  bool     `json:"mandatory,omitempty" yaml:"mandatory,omitempty"`
	Default    *string  `json:"default,omitempty" yaml:"default,omitempty"`
	Allowed    []string `json:"allowed,omitempty" yaml:"allowed,omitempty"`
	Min        *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max        *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	MaxLength  int      `json:"max_length,omitempty" yaml:"max_length,omitempty"`
	Layouts    []string `json:"layouts,omitempty" yaml:"layouts,omitempty"`
}

// RelationshipDoc is one relationship declaration.
type RelationshipDoc struct {
	Name    string `json:"name" yaml:"name"`
	Target  string `json:"target" yaml:"target"`
	Inverse string `json:"inverse,omitempty" yaml:"inverse,omitempty"`
}

// Load reads and builds the schema at path.
func Load(path string) (*types.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading schema %s", path)
	}
	schema, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "schema %s", path)
	}
	return schema, nil
}

// Parse decodes a YAML document and builds the schema.
func Parse(data []byte) (*types.Schema, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(types.ErrSchemaDefinition, err.Error())
	}
	return doc.Build()
}

// Build converts the document into a validated schema.
func (d Document) Build() (*types.Schema, error) {
	b := types.NewSchema()
	for _, e := range d.Entities {
		eb := b.DefineEntity(e.Name, e.Plural)
		for _, f := range e.Fields {
			def, err := f.definition()
			if err != nil {
				return nil, errors.Wrapf(err, "entity %q", e.Name)
			}
			eb.AddFields(def)
		}
		for _, r := range e.Relationships {
			eb.AddRelationship(r.Name, r.Target, r.Inverse)
		}
	}
	return b.Build()
}

func (f FieldDoc) definition() (types.FieldDefinition, error) {
	kind, err := types.ParseKind(f.Kind)
	if err != nil {
		return types.FieldDefinition{}, errors.Wrapf(err, "field %q", f.Name)
	}

	var opts []types.FieldOption
	if f.PrimaryKey {
		opts = append(opts, types.PrimaryKey())
	}
	if f.Mandatory {
		opts = append(opts, types.Mandatory())
	}
	if f.Default != nil {
		opts = append(opts, types.Default(*f.Default))
	}
	if len(f.Allowed) > 0 {
		opts = append(opts, types.Allowed(f.Allowed...))
	}
	if f.Min != nil || f.Max != nil {
		if f.Min == nil || f.Max == nil {
			return types.FieldDefinition{}, errors.Wrapf(types.ErrSchemaDefinition, "field %q: min and max must be given together", f.Name)
		}
		opts = append(opts, types.Range(*f.Min, *f.Max))
	}
	if f.MaxLength > 0 {
		opts = append(opts, types.MaxLength(f.MaxLength))
	}
	if len(f.Layouts) > 0 {
		opts = append(opts, types.Layouts(f.Layouts...))
	}
	return types.Field(f.Name, kind, opts...), nil
}

// Describe converts a built schema back into a document, for printing.
func Describe(schema *types.Schema) Document {
	var doc Document
	for _, def := range schema.Entities() {
		e := EntityDoc{Name: def.Name(), Plural: def.Plural()}
		for _, f := range def.Fields() {
			fd := FieldDoc{
				Name:       f.Name,
				Kind:       f.Kind.String(),
				PrimaryKey: f.PrimaryKey,
				Mandatory:  f.Mandatory,
				Allowed:    f.Allowed,
				MaxLength:  f.MaxLength,
				Layouts:    f.Layouts,
			}
			if f.HasDefault {
				raw := f.DefaultRaw
				fd.Default = &raw
			}
			if f.Range != nil {
				lo, hi := f.Range.Min, f.Range.Max
				fd.Min, fd.Max = &lo, &hi
			}
			e.Fields = append(e.Fields, fd)
		}
		for _, r := range def.Relationships() {
			e.Relationships = append(e.Relationships, RelationshipDoc{Name: r.Name, Target: r.Target, Inverse: r.Inverse})
		}
		doc.Entities = append(doc.Entities, e)
	}
	return doc
}
