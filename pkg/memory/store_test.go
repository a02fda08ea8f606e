package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/thingstore/pkg/types"
)

func TestNewStore(t *testing.T) {
	b := types.NewSchema()
	b.DefineEntity("thing", "things").
		AddFields(types.Field("id", types.KindAutoIncrement, types.PrimaryKey()))
	schema, err := b.Build()
	require.NoError(t, err)

	store := NewStore(schema, nil)
	h, err := store.Create(types.DefaultNamespace, "thing")
	require.NoError(t, err)

	found, err := store.FindByPrimaryKey("", "things", "1")
	require.NoError(t, err)
	assert.Equal(t, h, found)
	assert.Same(t, schema, store.Schema())
}
