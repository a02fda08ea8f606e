package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/thingstore/pkg/memory"
	"github.com/mesh-intelligence/thingstore/pkg/types"
)

func TestNew(t *testing.T) {
	ctx := context.Background()

	p, err := New(ctx, types.PersistenceConfig{
		Strategy: types.StrategyLocal,
		Local:    types.LocalConfig{Dir: t.TempDir(), Engine: types.EngineFile},
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, p.Close()) })
	assert.True(t, p.WillAutoPersist())

	rec := types.Record{Entity: "thing", Fields: map[string]string{"id": "1"}}
	require.True(t, p.Save(ctx, "thing-1", rec).Success)
	out := p.Load(ctx, "thing-1")
	require.True(t, out.Success, out.Message)
	assert.Equal(t, "thing-1", out.Record.ID)

	none, err := New(ctx, types.PersistenceConfig{}, nil)
	require.NoError(t, err)
	assert.Equal(t, NoPersistenceMessage, none.Save(ctx, "thing-1", rec).Message)

	bad, err := New(ctx, types.PersistenceConfig{Strategy: types.StrategyLocal}, nil)
	assert.ErrorIs(t, err, types.ErrLocalDirEmpty)
	assert.Nil(t, bad)
}

func TestInstanceRoundTrip(t *testing.T) {
	ctx := context.Background()
	b := types.NewSchema()
	b.DefineEntity("thing", "").AddFields(
		types.Field("id", types.KindAutoIncrement, types.PrimaryKey()),
		types.Field("name", types.KindString),
	)
	schema, err := b.Build()
	require.NoError(t, err)
	store := memory.NewStore(schema, nil)

	h, err := store.CreateWith("", "thing", map[string]string{"name": "kept"})
	require.NoError(t, err)

	p, err := New(ctx, types.PersistenceConfig{
		Strategy: types.StrategyLocal,
		Local:    types.LocalConfig{Dir: t.TempDir(), Engine: types.EngineSQLite},
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, p.Close()) })

	out := p.SaveInstance(ctx, store, h, "thing-1")
	require.True(t, out.Success, out.Message)

	restored, out := p.LoadInto(ctx, store, "restored", "thing-1")
	require.True(t, out.Success, out.Message)
	inst, err := store.Get(restored)
	require.NoError(t, err)
	assert.Equal(t, types.StateRestored, inst.State)
	assert.Equal(t, "restored", restored.Namespace)
	assert.Equal(t, "kept", inst.Value("name").String())
	assert.Equal(t, "1", inst.Value("id").String())

	_, out = p.LoadInto(ctx, store, "restored", "thing-1")
	assert.False(t, out.Success, "restoring the same key twice fails")

	none, err := New(ctx, types.PersistenceConfig{}, nil)
	require.NoError(t, err)
	_, out = none.LoadInto(ctx, store, "", "thing-1")
	assert.Equal(t, NoPersistenceMessage, out.Message)
}
