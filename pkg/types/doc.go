// Package types defines the schema model, typed field values, instance
// handles, persistence records, configuration, the Store and Persister
// interfaces, and the standard errors for thingstore.
//
// A schema is declared once through NewSchema, DefineEntity, AddFields and
// AddRelationship, validated by Build, and read-only afterward. Raw string
// values cross into the typed world through ParseValue and are ordered by
// Compare.
package types
