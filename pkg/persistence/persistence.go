// Package persistence provides the public factory for the persistence
// layer while keeping the backends internal.
package persistence

import (
	"context"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/thingstore/internal/persistence"
	"github.com/mesh-intelligence/thingstore/pkg/types"
)

// NoPersistenceMessage is the Outcome message of calls that had no
// backend to reach.
const NoPersistenceMessage = persistence.NoPersistenceMessage

// New validates cfg and opens the backend it selects. Backend start-up
// failures are logged and degrade the returned Persister to no
// persistence; only an invalid cfg is an error.
//
// Example:
//
//	p, err := persistence.New(ctx, types.PersistenceConfig{
//	    Strategy: types.StrategyLocal,
//	    Local:    types.LocalConfig{Dir: ".thingstore-db", Engine: types.EngineSQLite},
//	}, nil)
//	defer p.Close()
//	out := p.SaveInstance(ctx, store, h, token)
//	restored, out := p.LoadInto(ctx, store, "restored", token)
func New(ctx context.Context, cfg types.PersistenceConfig, log *zap.SugaredLogger) (types.Persister, error) {
	layer, err := persistence.New(ctx, cfg, persistence.WithLogger(log))
	if err != nil {
		return nil, err
	}
	return layer, nil
}
