// Package memory provides the public factory for the in-memory instance
// store while keeping its implementation internal.
package memory

import (
	"go.uber.org/zap"

	"github.com/mesh-intelligence/thingstore/internal/memory"
	"github.com/mesh-intelligence/thingstore/pkg/types"
)

// NewStore creates an empty store for a built schema. A nil logger
// discards output.
//
// Example:
//
//	b := types.NewSchema()
//	b.DefineEntity("thing", "things").
//	    AddFields(types.Field("id", types.KindAutoIncrement, types.PrimaryKey()))
//	schema, err := b.Build()
//	store := memory.NewStore(schema, nil)
//	h, err := store.Create(types.DefaultNamespace, "thing")
func NewStore(schema *types.Schema, log *zap.SugaredLogger) types.Store {
	return memory.NewStore(schema, memory.WithLogger(log))
}
