// Package errors re-exports github.com/cockroachdb/errors so the rest of the
// module wraps and inspects errors through a single import.
//
//	err := errors.Wrapf(types.ErrUnknownField, "entity %q field %q", entity, name)
//	if errors.Is(err, types.ErrUnknownField) { ... }
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Creation and wrapping.
var (
	New        = crdb.New
	Wrap       = crdb.Wrap
	Wrapf      = crdb.Wrapf
	WithDetail = crdb.WithDetail
)

// Inspection.
var (
	Is    = crdb.Is
	IsAny = crdb.IsAny
	As    = crdb.As
)
