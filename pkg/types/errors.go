package types

import "github.com/mesh-intelligence/thingstore/internal/errors"

// Schema construction errors. Build wraps ErrSchemaDefinition with the
// offending entity, field or relationship.
var (
	ErrSchemaDefinition = errors.New("schema definition error")
)

// Lookup errors.
var (
	ErrUnknownEntity       = errors.New("unknown entity")
	ErrUnknownField        = errors.New("unknown field")
	ErrUnknownRelationship = errors.New("unknown relationship")
	ErrNotFound            = errors.New("instance not found")
	ErrNoPrimaryKey        = errors.New("entity declares no primary key")
)

// Write errors. A rejected write leaves the instance unchanged.
var (
	ErrInvalidFieldValue         = errors.New("invalid field value")
	ErrMissingField              = errors.New("mandatory field missing")
	ErrReadOnlyField             = errors.New("field is read-only")
	ErrDuplicateKey              = errors.New("duplicate primary key")
	ErrNamespaceMismatch         = errors.New("instances belong to different namespaces")
	ErrInvalidRelationshipTarget = errors.New("instance is not of the relationship target entity")
)

// Query errors.
var (
	ErrUnsupportedFilterOperator = errors.New("unsupported filter operator")
	ErrIncomparable              = errors.New("values are not comparable")
)
