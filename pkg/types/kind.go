package types

import (
	"strings"

	"github.com/mesh-intelligence/thingstore/internal/errors"
)

// Kind enumerates the field kinds a schema may declare.
type Kind int

// Field kinds. AUTO_GUID and AUTO_INCREMENT are system-generated and
// read-only to callers.
const (
	KindString Kind = iota + 1
	KindInteger
	KindFloat
	KindBoolean
	KindDate
	KindEnum
	KindAutoGUID
	KindAutoIncrement
)

var kindNames = map[Kind]string{
	KindString:        "STRING",
	KindInteger:       "INTEGER",
	KindFloat:         "FLOAT",
	KindBoolean:       "BOOLEAN",
	KindDate:          "DATE",
	KindEnum:          "ENUM",
	KindAutoGUID:      "AUTO_GUID",
	KindAutoIncrement: "AUTO_INCREMENT",
}

// String returns the upper-case kind name, or "UNKNOWN".
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "UNKNOWN"
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// IsAuto reports whether values of this kind are generated by the store.
func (k Kind) IsAuto() bool {
	return k == KindAutoGUID || k == KindAutoIncrement
}

// Orderable reports whether Compare defines an order for this kind.
// AUTO_GUID tokens support equality only.
func (k Kind) Orderable() bool {
	return k.Valid() && k != KindAutoGUID
}

// IsNumeric reports whether values of this kind compare numerically.
func (k Kind) IsNumeric() bool {
	return k == KindInteger || k == KindFloat || k == KindAutoIncrement
}

// ParseKind maps a kind name to its Kind. Matching ignores case, and
// "-" may stand in for "_" (auto-increment, auto-guid).
func ParseKind(name string) (Kind, error) {
	norm := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(name), "-", "_"))
	for k, n := range kindNames {
		if n == norm {
			return k, nil
		}
	}
	return 0, errors.Wrapf(ErrSchemaDefinition, "unknown field kind %q", name)
}
