package types

import "strconv"

// NumericRange bounds INTEGER, FLOAT and AUTO_INCREMENT values, inclusive.
type NumericRange struct {
	Min float64
	Max float64
}

// String renders the range as "[min, max]".
func (r NumericRange) String() string {
	return "[" + strconv.FormatFloat(r.Min, 'f', -1, 64) + ", " + strconv.FormatFloat(r.Max, 'f', -1, 64) + "]"
}

// FieldDefinition describes one named, typed field of an entity. Build
// copies definitions into the schema; the copies are never mutated.
type FieldDefinition struct {
	Name       string
	Kind       Kind
	Mandatory  bool
	PrimaryKey bool
	Allowed    []string      // ENUM values, or an optional whitelist for STRING.
	Range      *NumericRange // Optional bounds for numeric kinds.
	MaxLength  int           // Optional STRING length limit in runes; 0 means none.
	Layouts    []string      // DATE layouts; defaults to 2006-01-02 then RFC 3339.
	DefaultRaw string        // Raw default applied on create, if HasDefault.
	HasDefault bool

	defaultValue Value
}

// FieldOption configures a FieldDefinition built by Field.
type FieldOption func(*FieldDefinition)

// Field returns a definition for name and kind with the given options.
func Field(name string, kind Kind, opts ...FieldOption) FieldDefinition {
	f := FieldDefinition{Name: name, Kind: kind}
	for _, opt := range opts {
		opt(&f)
	}
	return f
}

// Enum returns an ENUM definition restricted to values.
func Enum(name string, values []string, opts ...FieldOption) FieldDefinition {
	return Field(name, KindEnum, append([]FieldOption{Allowed(values...)}, opts...)...)
}

// Mandatory requires a value when instances are created with CreateWith.
func Mandatory() FieldOption {
	return func(f *FieldDefinition) { f.Mandatory = true }
}

// PrimaryKey marks the field as the entity's primary key.
func PrimaryKey() FieldOption {
	return func(f *FieldDefinition) { f.PrimaryKey = true }
}

// Default sets the raw default value, parsed against the kind at Build.
func Default(raw string) FieldOption {
	return func(f *FieldDefinition) {
		f.DefaultRaw = raw
		f.HasDefault = true
	}
}

// Allowed restricts values to the given set.
func Allowed(values ...string) FieldOption {
	return func(f *FieldDefinition) { f.Allowed = append([]string(nil), values...) }
}

// Range bounds numeric values to [min, max].
func Range(min, max float64) FieldOption {
	return func(f *FieldDefinition) { f.Range = &NumericRange{Min: min, Max: max} }
}

// MaxLength limits STRING values to n runes.
func MaxLength(n int) FieldOption {
	return func(f *FieldDefinition) { f.MaxLength = n }
}

// Layouts sets the accepted DATE layouts, first one canonical for output.
func Layouts(layouts ...string) FieldOption {
	return func(f *FieldDefinition) { f.Layouts = append([]string(nil), layouts...) }
}

// DefaultValue returns the parsed default and whether one is declared.
func (f FieldDefinition) DefaultValue() (Value, bool) {
	return f.defaultValue, f.HasDefault
}

func (f FieldDefinition) allows(raw string) bool {
	for _, a := range f.Allowed {
		if a == raw {
			return true
		}
	}
	return false
}

// clone deep-copies the slice and pointer members.
func (f FieldDefinition) clone() FieldDefinition {
	c := f
	c.Allowed = append([]string(nil), f.Allowed...)
	c.Layouts = append([]string(nil), f.Layouts...)
	if f.Range != nil {
		r := *f.Range
		c.Range = &r
	}
	return c
}
