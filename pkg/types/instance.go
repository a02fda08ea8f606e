package types

import (
	"strconv"
	"time"
)

// DefaultNamespace is used when a caller passes an empty namespace.
const DefaultNamespace = "default"

// Handle addresses one instance in the store arena. Slots are assigned
// per namespace and never reused, so a handle to a deleted instance stays
// dead.
type Handle struct {
	Namespace string
	Entity    string
	Slot      int64
}

// String renders the handle as namespace/entity#slot.
func (h Handle) String() string {
	return h.Namespace + "/" + h.Entity + "#" + strconv.FormatInt(h.Slot, 10)
}

// InstanceState records how an instance entered the store.
type InstanceState int

// Instance states.
const (
	StateCreated InstanceState = iota
	StateRestored
)

// String returns "created" or "restored".
func (s InstanceState) String() string {
	if s == StateRestored {
		return "restored"
	}
	return "created"
}

// Instance is a point-in-time copy of one stored instance. Mutating it
// does not affect the store.
type Instance struct {
	Handle     Handle
	State      InstanceState
	CreatedAt  time.Time
	AccessedAt time.Time
	Values     map[string]Value
	Relations  map[string][]Handle
}

// Value returns the named field value; unknown names yield an unset value.
func (i *Instance) Value(field string) Value {
	return i.Values[field]
}

// Strings renders every set value in canonical form.
func (i *Instance) Strings() map[string]string {
	out := make(map[string]string, len(i.Values))
	for name, v := range i.Values {
		if v.IsSet() {
			out[name] = v.String()
		}
	}
	return out
}

// Record is the persistence snapshot of one instance: an external
// identifier, the entity name and canonical field strings. Relationships
// are not carried.
type Record struct {
	ID     string            `json:"id" bson:"id" yaml:"id"`
	Entity string            `json:"entity" bson:"entity" yaml:"entity"`
	Fields map[string]string `json:"fields" bson:"fields" yaml:"fields"`
}

// Outcome reports a persistence call. Failures are reported here and never
// returned as errors.
type Outcome struct {
	Success bool
	Record  *Record
	Message string
}
