package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/thingstore/internal/memory"
	"github.com/mesh-intelligence/thingstore/pkg/types"
)

// panicBackend fails every call by panicking.
type panicBackend struct{}

func (panicBackend) Name() string { return "panic" }
func (panicBackend) Save(context.Context, string, types.Record) error {
	panic("disk on fire")
}
func (panicBackend) Load(context.Context, string) (types.Record, error) {
	panic("disk on fire")
}
func (panicBackend) Close() error { return nil }

// failingBackend returns err from every call.
type failingBackend struct{ err error }

func (b failingBackend) Name() string { return "failing" }
func (b failingBackend) Save(context.Context, string, types.Record) error {
	return b.err
}
func (b failingBackend) Load(context.Context, string) (types.Record, error) {
	return types.Record{}, b.err
}
func (b failingBackend) Close() error { return nil }

func newLayer(t *testing.T, cfg types.PersistenceConfig, opts ...Option) *Layer {
	t.Helper()
	l, err := New(context.Background(), cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, l.Close()) })
	return l
}

func cloudConfig(save, load bool) types.PersistenceConfig {
	return types.PersistenceConfig{
		Strategy: types.StrategyCloud,
		Cloud:    types.CloudConfig{Bucket: "records", AllowSave: save, AllowLoad: load},
	}
}

func TestNoneStrategyStaysInMemory(t *testing.T) {
	l := newLayer(t, types.PersistenceConfig{})
	assert.Equal(t, types.StrategyNone, l.Strategy())
	assert.False(t, l.WillAutoPersist())

	out := l.Save(context.Background(), "thing-1", sampleRecord())
	assert.False(t, out.Success)
	assert.Equal(t, NoPersistenceMessage, out.Message)

	out = l.Load(context.Background(), "thing-1")
	assert.False(t, out.Success)
	assert.Nil(t, out.Record)
	assert.Equal(t, NoPersistenceMessage, out.Message)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := New(context.Background(), types.PersistenceConfig{Strategy: types.StrategyLocal})
	assert.ErrorIs(t, err, types.ErrLocalDirEmpty)

	_, err = New(context.Background(), types.PersistenceConfig{Strategy: "hybrid"})
	assert.ErrorIs(t, err, types.ErrStrategyUnknown)
}

func TestWillAutoPersist(t *testing.T) {
	tests := []struct {
		name string
		cfg  types.PersistenceConfig
		opts []Option
		want bool
	}{
		{"none", types.PersistenceConfig{Strategy: types.StrategyNone}, nil, false},
		{"local file", types.PersistenceConfig{Strategy: types.StrategyLocal, Local: types.LocalConfig{Dir: "placeholder"}}, nil, true},
		{"cloud save allowed", cloudConfig(true, false), []Option{WithObjectAPI(newFakeObjects())}, true},
		{"cloud save disabled", cloudConfig(false, true), []Option{WithObjectAPI(newFakeObjects())}, false},
		{"cloud without bucket", types.PersistenceConfig{Strategy: types.StrategyCloud, Cloud: types.CloudConfig{AllowSave: true}}, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			if cfg.Local.Dir != "" {
				cfg.Local.Dir = t.TempDir()
			}
			l := newLayer(t, cfg, tt.opts...)
			assert.Equal(t, tt.want, l.WillAutoPersist())
		})
	}
}

func TestCloudFlagsGateCalls(t *testing.T) {
	ctx := context.Background()
	objects := newFakeObjects()

	saveOnly := newLayer(t, cloudConfig(true, false), WithObjectAPI(objects))
	out := saveOnly.Save(ctx, "thing-1", sampleRecord())
	require.True(t, out.Success, out.Message)
	assert.Equal(t, 1, objects.puts)

	out = saveOnly.Load(ctx, "thing-1")
	assert.False(t, out.Success)
	assert.Equal(t, NoPersistenceMessage, out.Message, "load is disabled even though the object exists")

	loadOnly := newLayer(t, cloudConfig(false, true), WithObjectAPI(objects))
	out = loadOnly.Save(ctx, "thing-2", sampleRecord())
	assert.False(t, out.Success)
	assert.Equal(t, NoPersistenceMessage, out.Message)
	assert.Equal(t, 1, objects.puts, "disabled save never reaches the backend")

	out = loadOnly.Load(ctx, "thing-1")
	require.True(t, out.Success, out.Message)
	assert.Equal(t, "widget", out.Record.Fields["name"])
}

func TestCloudWithoutBucketDegrades(t *testing.T) {
	l := newLayer(t, types.PersistenceConfig{
		Strategy: types.StrategyCloud,
		Cloud:    types.CloudConfig{AllowSave: true, AllowLoad: true},
	}, WithObjectAPI(newFakeObjects()))

	assert.Equal(t, types.StrategyCloud, l.Strategy())
	out := l.Save(context.Background(), "thing-1", sampleRecord())
	assert.False(t, out.Success)
	assert.Equal(t, NoPersistenceMessage, out.Message)
}

func TestLocalEnginesThroughLayer(t *testing.T) {
	for _, engine := range []string{types.EngineFile, types.EngineSQLite, types.EngineBadger} {
		t.Run(engine, func(t *testing.T) {
			ctx := context.Background()
			l := newLayer(t, types.PersistenceConfig{
				Strategy: types.StrategyLocal,
				Local:    types.LocalConfig{Dir: t.TempDir(), Engine: engine},
			})
			require.True(t, l.WillAutoPersist())

			rec := sampleRecord()
			rec.ID = "ignored"
			out := l.Save(ctx, "thing-1", rec)
			require.True(t, out.Success, out.Message)

			out = l.Load(ctx, "thing-1")
			require.True(t, out.Success, out.Message)
			assert.Equal(t, "thing-1", out.Record.ID, "the identifier passed to Save wins")
			assert.Equal(t, rec.Fields, out.Record.Fields)

			out = l.Load(ctx, "missing")
			assert.False(t, out.Success)
			assert.Contains(t, out.Message, "missing")
		})
	}
}

func TestEmptyIdentifier(t *testing.T) {
	l := newLayer(t, types.PersistenceConfig{}, WithBackend(failingBackend{}))
	assert.Equal(t, NoPersistenceMessage, l.Save(context.Background(), "", sampleRecord()).Message)

	local := newLayer(t, types.PersistenceConfig{
		Strategy: types.StrategyLocal,
		Local:    types.LocalConfig{Dir: t.TempDir()},
	})
	out := local.Save(context.Background(), "", sampleRecord())
	assert.False(t, out.Success)
	assert.Equal(t, "identifier must not be empty", out.Message)
}

func TestBackendFailuresBecomeOutcomes(t *testing.T) {
	local := types.PersistenceConfig{Strategy: types.StrategyLocal, Local: types.LocalConfig{Dir: "unused"}}
	tests := []struct {
		name    string
		backend Backend
		want    string
	}{
		{"error", failingBackend{err: errors.New("quota exceeded")}, "quota exceeded"},
		{"panic", panicBackend{}, "disk on fire"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newLayer(t, local, WithBackend(tt.backend))
			out := l.Save(context.Background(), "thing-1", sampleRecord())
			assert.False(t, out.Success)
			assert.Contains(t, out.Message, tt.want)

			out = l.Load(context.Background(), "thing-1")
			assert.False(t, out.Success)
			assert.Contains(t, out.Message, tt.want)
		})
	}
}

func instanceSchema(t *testing.T) *types.Schema {
	t.Helper()
	b := types.NewSchema()
	b.DefineEntity("thing", "").AddFields(
		types.Field("id", types.KindAutoIncrement, types.PrimaryKey()),
		types.Field("name", types.KindString),
		types.Field("int", types.KindInteger),
	)
	schema, err := b.Build()
	require.NoError(t, err)
	return schema
}

func TestSaveInstanceAndLoadInto(t *testing.T) {
	ctx := context.Background()
	l := newLayer(t, types.PersistenceConfig{
		Strategy: types.StrategyLocal,
		Local:    types.LocalConfig{Dir: t.TempDir()},
	})

	src := memory.NewStore(instanceSchema(t))
	h, err := src.CreateWith("", "thing", map[string]string{"name": "widget", "int": "3"})
	require.NoError(t, err)

	out := l.SaveInstance(ctx, src, h, "thing-1")
	require.True(t, out.Success, out.Message)

	dst := memory.NewStore(instanceSchema(t))
	loaded, out := l.LoadInto(ctx, dst, "restored", "thing-1")
	require.True(t, out.Success, out.Message)
	assert.Equal(t, "restored", loaded.Namespace)

	inst, err := dst.Get(loaded)
	require.NoError(t, err)
	assert.Equal(t, types.StateRestored, inst.State)
	assert.Equal(t, "widget", inst.Value("name").String())
	assert.Equal(t, "1", inst.Value("id").String())
	assert.False(t, inst.AccessedAt.Before(inst.CreatedAt))

	_, out = l.LoadInto(ctx, dst, "restored", "thing-1")
	assert.False(t, out.Success, "restoring the same key twice fails")
	assert.Contains(t, out.Message, "restore")

	gone := h
	gone.Slot = 99
	out = l.SaveInstance(ctx, src, gone, "thing-99")
	assert.False(t, out.Success)
}

func TestSaveInstanceWithoutPersistence(t *testing.T) {
	l := newLayer(t, types.PersistenceConfig{})
	src := memory.NewStore(instanceSchema(t))
	h, err := src.Create("", "thing")
	require.NoError(t, err)

	out := l.SaveInstance(context.Background(), src, h, "thing-1")
	assert.False(t, out.Success)
	assert.Equal(t, NoPersistenceMessage, out.Message)
}
