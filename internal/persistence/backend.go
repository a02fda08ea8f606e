package persistence

import (
	"context"
	"net/url"

	"github.com/mesh-intelligence/thingstore/internal/errors"
	"github.com/mesh-intelligence/thingstore/pkg/types"
)

// Backend stores records keyed by identifier.
type Backend interface {
	// Name identifies the backend in messages and logs.
	Name() string

	// Save writes rec under id, replacing any earlier record.
	Save(ctx context.Context, id string, rec types.Record) error

	// Load returns the record under id, or ErrRecordNotFound.
	Load(ctx context.Context, id string) (types.Record, error)

	// Close releases resources. Idempotent.
	Close() error
}

// Backend errors.
var (
	ErrRecordNotFound = errors.New("record not found")
	ErrBucketMissing  = errors.New("cloud bucket is not configured")
)

// openBackend starts the backend selected by cfg.
func openBackend(ctx context.Context, cfg types.PersistenceConfig, objects ObjectAPI) (Backend, error) {
	switch cfg.GetStrategy() {
	case types.StrategyLocal:
		switch cfg.Local.GetEngine() {
		case types.EngineFile:
			return NewFileBackend(cfg.Local.Dir)
		case types.EngineSQLite:
			return NewSQLiteBackend(ctx, cfg.Local.Dir)
		case types.EngineBadger:
			return NewBadgerBackend(cfg.Local.Dir)
		}
		return nil, errors.Wrapf(types.ErrLocalEngineUnknown, "engine %q", cfg.Local.Engine)
	case types.StrategyCloud:
		return NewS3Backend(ctx, cfg.Cloud, objects)
	}
	return nil, errors.Wrapf(types.ErrStrategyUnknown, "strategy %q", cfg.Strategy)
}

// objectName maps an identifier to a file or object name. Identifiers are
// opaque tokens; escaping keeps separators out of paths.
func objectName(id string) string {
	return url.PathEscape(id) + ".json"
}
