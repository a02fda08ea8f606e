package types

import "context"

// Store holds instances of a built schema, partitioned by namespace.
// Entity arguments accept the entity name or its plural. An empty
// namespace means DefaultNamespace.
type Store interface {
	// Schema returns the schema the store was built with.
	Schema() *Schema

	// Create allocates an instance, assigns its generated fields and
	// defaults, and inserts it. Returns ErrUnknownEntity for undefined
	// entities.
	Create(namespace, entity string) (Handle, error)

	// CreateWith validates values and mandatory fields before creating.
	// No instance is created on failure.
	CreateWith(namespace, entity string, values map[string]string) (Handle, error)

	// Set validates raw against the field and stores it. Returns
	// ErrReadOnlyField for generated fields and ErrUnknownField for
	// undeclared names.
	Set(h Handle, field, raw string) error

	// SetFields applies several writes, all or nothing.
	SetFields(h Handle, values map[string]string) error

	// Get returns a snapshot of the instance or ErrNotFound.
	Get(h Handle) (*Instance, error)

	// Link adds other to h's relationship vector and, when the
	// relationship declares an inverse, h to other's inverse vector.
	Link(h Handle, relationship string, other Handle) error

	// Unlink removes the pair from both vectors.
	Unlink(h Handle, relationship string, other Handle) error

	// Related returns the handles in h's relationship vector.
	Related(h Handle, relationship string) ([]Handle, error)

	// Delete removes the instance and every reference to it in its
	// namespace. Deleting an absent instance is a no-op.
	Delete(h Handle) error

	// FindByPrimaryKey parses key per the primary-key kind and returns the
	// matching instance or ErrNotFound.
	FindByPrimaryKey(namespace, entity, key string) (Handle, error)

	// List returns the entity's instances in insertion order.
	List(namespace, entity string) ([]Handle, error)

	// Query filters and sorts the entity's instances. filters maps field
	// names to expressions such as "3", "!3", ">3", "<=3"; sort is "+field"
	// or "-field". Only one condition per field can be expressed.
	Query(namespace, entity string, filters map[string]string, sort string) ([]Handle, error)

	// Record copies the instance's canonical field values under id.
	Record(h Handle, id string) (Record, error)

	// Restore reconstructs an instance from a record, keeping its
	// generated values, and marks it StateRestored.
	Restore(namespace string, rec Record) (Handle, error)

	// Touch refreshes the instance's last-accessed time.
	Touch(h Handle) error

	// Namespaces lists namespaces holding data, sorted.
	Namespaces() []string

	// DropNamespace discards a namespace and all of its instances.
	DropNamespace(namespace string)
}

// RecordStore is the part of a Store that persistence reads from and
// restores into. Store satisfies it.
type RecordStore interface {
	Record(h Handle, id string) (Record, error)
	Restore(namespace string, rec Record) (Handle, error)
	Touch(h Handle) error
}

// Persister saves and loads records keyed by an external identifier. It
// never fails with an error; outcomes carry success and a message.
type Persister interface {
	Save(ctx context.Context, id string, rec Record) Outcome
	Load(ctx context.Context, id string) Outcome

	// SaveInstance copies h out of store and saves it under id.
	SaveInstance(ctx context.Context, store RecordStore, h Handle, id string) Outcome

	// LoadInto loads the record under id, restores it into namespace,
	// marks it StateRestored and refreshes its last-accessed time. The
	// handle is only meaningful when the outcome succeeds.
	LoadInto(ctx context.Context, store RecordStore, namespace, id string) (Handle, Outcome)

	WillAutoPersist() bool
	Close() error
}
