package types

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mesh-intelligence/thingstore/internal/errors"
)

// Ordering is the result of comparing two values.
type Ordering int

// Orderings returned by Compare.
const (
	Less    Ordering = -1
	Equal   Ordering = 0
	Greater Ordering = 1
)

// String returns "LESS", "EQUAL" or "GREATER".
func (o Ordering) String() string {
	switch {
	case o < 0:
		return "LESS"
	case o > 0:
		return "GREATER"
	default:
		return "EQUAL"
	}
}

// Default date layouts, tried in order when a field declares none.
var defaultDateLayouts = []string{"2006-01-02", time.RFC3339}

// Value is a typed field value. The zero Value is unset. Values are
// immutable; setters in the store replace them whole.
type Value struct {
	kind   Kind
	set    bool
	s      string
	i      int64
	f      float64
	b      bool
	t      time.Time
	layout string
}

// NullValue returns an unset value of the given kind.
func NullValue(k Kind) Value {
	return Value{kind: k}
}

// AutoIncrementValue returns a set AUTO_INCREMENT value.
func AutoIncrementValue(n int64) Value {
	return Value{kind: KindAutoIncrement, set: true, i: n}
}

// GUIDValue returns a set AUTO_GUID value.
func GUIDValue(token string) Value {
	return Value{kind: KindAutoGUID, set: true, s: token}
}

// Kind returns the kind the value was parsed against.
func (v Value) Kind() Kind { return v.kind }

// IsSet reports whether the value holds data.
func (v Value) IsSet() bool { return v.set }

// String renders the canonical form of the value. ParseValue accepts
// every string String produces. Unset values render as "".
func (v Value) String() string {
	if !v.set {
		return ""
	}
	switch v.kind {
	case KindInteger, KindAutoIncrement:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case KindBoolean:
		return strconv.FormatBool(v.b)
	case KindDate:
		return v.t.Format(v.layout)
	default:
		return v.s
	}
}

// Int renders the value as an integer. Floats truncate, booleans map to
// 0/1, dates to Unix seconds, and strings parse or yield 0.
func (v Value) Int() int64 {
	switch v.kind {
	case KindInteger, KindAutoIncrement:
		return v.i
	case KindFloat:
		return int64(v.f)
	case KindBoolean:
		if v.b {
			return 1
		}
		return 0
	case KindDate:
		return v.t.Unix()
	default:
		n, _ := strconv.ParseInt(v.s, 10, 64)
		return n
	}
}

// Float renders the value as a float.
func (v Value) Float() float64 {
	switch v.kind {
	case KindFloat:
		return v.f
	case KindInteger, KindAutoIncrement, KindBoolean, KindDate:
		return float64(v.Int())
	default:
		f, _ := strconv.ParseFloat(v.s, 64)
		return f
	}
}

// Bool renders the value as a boolean. Non-boolean kinds are true when
// set and non-zero.
func (v Value) Bool() bool {
	switch v.kind {
	case KindBoolean:
		return v.b
	case KindString, KindEnum, KindAutoGUID:
		return v.set && v.s != ""
	default:
		return v.set && v.Float() != 0
	}
}

// Time returns the DATE value, or the zero time for other kinds.
func (v Value) Time() time.Time {
	return v.t
}

// ParseLiteral parses raw against the field's kind without checking the
// field's constraints. Query literals go through ParseLiteral so that
// "<1" works on a field whose range starts at 1.
func ParseLiteral(f FieldDefinition, raw string) (Value, error) {
	v := Value{kind: f.Kind, set: true}
	switch f.Kind {
	case KindString, KindEnum:
		v.s = raw
	case KindAutoGUID:
		v.s = strings.TrimSpace(raw)
		if v.s == "" {
			return Value{}, invalidValue(f, raw, "empty token")
		}
	case KindInteger, KindAutoIncrement:
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return Value{}, invalidValue(f, raw, "not an integer")
		}
		v.i = n
	case KindFloat:
		n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return Value{}, invalidValue(f, raw, "not a finite number")
		}
		v.f = n
	case KindBoolean:
		switch strings.ToLower(strings.TrimSpace(raw)) {
		case "true":
			v.b = true
		case "false":
			v.b = false
		default:
			return Value{}, invalidValue(f, raw, "not true or false")
		}
	case KindDate:
		layouts := f.Layouts
		if len(layouts) == 0 {
			layouts = defaultDateLayouts
		}
		trimmed := strings.TrimSpace(raw)
		for _, layout := range layouts {
			if t, err := time.Parse(layout, trimmed); err == nil {
				v.t = t
				v.layout = layout
				return v, nil
			}
		}
		return Value{}, invalidValue(f, raw, "not a date in "+strings.Join(layouts, " or "))
	default:
		return Value{}, invalidValue(f, raw, "unknown kind")
	}
	return v, nil
}

// ParseValue validates raw against the field's kind and constraints and
// returns the typed value. Failures wrap ErrInvalidFieldValue and name the
// field and the raw value.
func ParseValue(f FieldDefinition, raw string) (Value, error) {
	v, err := ParseLiteral(f, raw)
	if err != nil {
		return Value{}, err
	}
	if f.Mandatory && f.Kind == KindString && raw == "" {
		return Value{}, invalidValue(f, raw, "mandatory field is empty")
	}
	if len(f.Allowed) > 0 && (f.Kind == KindString || f.Kind == KindEnum) && !f.allows(raw) {
		return Value{}, invalidValue(f, raw, "not one of "+strings.Join(f.Allowed, ", "))
	}
	if f.MaxLength > 0 && utf8.RuneCountInString(raw) > f.MaxLength {
		return Value{}, invalidValue(f, raw, "longer than "+strconv.Itoa(f.MaxLength)+" characters")
	}
	if f.Range != nil && f.Kind.IsNumeric() {
		n := v.Float()
		if n < f.Range.Min || n > f.Range.Max {
			return Value{}, invalidValue(f, raw, "outside range "+f.Range.String())
		}
	}
	return v, nil
}

func invalidValue(f FieldDefinition, raw, reason string) error {
	err := errors.Wrapf(ErrInvalidFieldValue, "field %q value %q", f.Name, raw)
	return errors.WithDetail(err, reason)
}

// Compare orders a and b under kind. Unset values order before set ones.
// AUTO_GUID and mismatched kinds return ErrIncomparable.
func Compare(kind Kind, a, b Value) (Ordering, error) {
	if !kind.Orderable() {
		return Equal, errors.Wrapf(ErrIncomparable, "kind %s has no order", kind)
	}
	if (a.set && a.kind != kind) || (b.set && b.kind != kind) {
		return Equal, errors.Wrapf(ErrIncomparable, "compare %s with %s under %s", a.kind, b.kind, kind)
	}
	switch {
	case !a.set && !b.set:
		return Equal, nil
	case !a.set:
		return Less, nil
	case !b.set:
		return Greater, nil
	}
	switch kind {
	case KindInteger, KindAutoIncrement:
		return order(a.i < b.i, a.i > b.i), nil
	case KindFloat:
		return order(a.f < b.f, a.f > b.f), nil
	case KindBoolean:
		return order(!a.b && b.b, a.b && !b.b), nil
	case KindDate:
		return order(a.t.Before(b.t), a.t.After(b.t)), nil
	default:
		return order(a.s < b.s, a.s > b.s), nil
	}
}

func order(less, greater bool) Ordering {
	switch {
	case less:
		return Less
	case greater:
		return Greater
	default:
		return Equal
	}
}

// EqualValues reports whether a and b hold the same value. It is defined
// for every kind, AUTO_GUID included. Two unset values are equal.
func EqualValues(a, b Value) bool {
	if a.set != b.set {
		return false
	}
	if !a.set {
		return true
	}
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindInteger, KindAutoIncrement:
		return a.i == b.i
	case KindFloat:
		return a.f == b.f
	case KindBoolean:
		return a.b == b.b
	case KindDate:
		return a.t.Equal(b.t)
	default:
		return a.s == b.s
	}
}
