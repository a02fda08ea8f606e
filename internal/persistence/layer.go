// Package persistence saves and loads single instance records through a
// backend chosen by an explicit strategy. It never fails with an error:
// every call returns an Outcome, and a strategy whose backend is absent,
// disabled or failed to start behaves as if no persistence were
// configured.
package persistence

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/thingstore/internal/logging"
	"github.com/mesh-intelligence/thingstore/pkg/types"
)

// NoPersistenceMessage explains an Outcome from a call that had nowhere to
// go.
const NoPersistenceMessage = "no persistence configured - store in memory only"

// RecordStore is the part of the instance store the layer needs.
type RecordStore = types.RecordStore

// Layer routes save and load calls to the configured backend.
type Layer struct {
	strategy types.Strategy
	cloud    types.CloudConfig
	backend  Backend
	log      *zap.SugaredLogger
}

var _ types.Persister = (*Layer)(nil)

type options struct {
	log     *zap.SugaredLogger
	backend Backend
	objects ObjectAPI
}

// Option configures New.
type Option func(*options)

// WithLogger sets the logger. The default discards output.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(o *options) { o.log = logging.OrNop(log) }
}

// WithBackend uses b instead of opening the strategy's backend. It has no
// effect under StrategyNone.
func WithBackend(b Backend) Option {
	return func(o *options) { o.backend = b }
}

// WithObjectAPI supplies the object-storage client for StrategyCloud
// instead of one built from the default AWS configuration.
func WithObjectAPI(api ObjectAPI) Option {
	return func(o *options) { o.objects = api }
}

// New validates cfg and opens its backend. An invalid config is an error;
// a backend that cannot start is logged and the layer degrades to no
// persistence.
func New(ctx context.Context, cfg types.PersistenceConfig, opts ...Option) (*Layer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := options{log: logging.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	l := &Layer{strategy: cfg.GetStrategy(), cloud: cfg.Cloud, log: o.log}
	switch {
	case l.strategy == types.StrategyNone:
	case o.backend != nil:
		l.backend = o.backend
	default:
		b, err := openBackend(ctx, cfg, o.objects)
		if err != nil {
			l.log.Warnw("persistence backend unavailable, continuing in memory",
				logging.FieldStrategy, string(l.strategy),
				logging.FieldError, err)
			break
		}
		l.backend = b
	}

	l.log.Infow("persistence configured",
		logging.FieldStrategy, string(l.strategy),
		logging.FieldBackend, l.backendName())
	return l, nil
}

func (l *Layer) backendName() string {
	if l.backend == nil {
		return "none"
	}
	return l.backend.Name()
}

// Strategy returns the configured strategy.
func (l *Layer) Strategy() types.Strategy {
	return l.strategy
}

func (l *Layer) canSave() bool {
	if l.backend == nil {
		return false
	}
	return l.strategy == types.StrategyLocal || (l.strategy == types.StrategyCloud && l.cloud.AllowSave)
}

func (l *Layer) canLoad() bool {
	if l.backend == nil {
		return false
	}
	return l.strategy == types.StrategyLocal || (l.strategy == types.StrategyCloud && l.cloud.AllowLoad)
}

// WillAutoPersist reports whether Save calls will reach a backend.
func (l *Layer) WillAutoPersist() bool {
	return l.canSave()
}

func noPersistence() types.Outcome {
	return types.Outcome{Message: NoPersistenceMessage}
}

// recoverOutcome turns a backend panic into a failed outcome.
func (l *Layer) recoverOutcome(out *types.Outcome, op, id string) {
	if r := recover(); r != nil {
		l.log.Errorw("persistence backend panicked",
			"operation", op,
			logging.FieldIdentifier, id,
			logging.FieldBackend, l.backendName(),
			logging.FieldError, r)
		*out = types.Outcome{Message: fmt.Sprintf("%s %q via %s failed: %v", op, id, l.backendName(), r)}
	}
}

// Save writes rec under id.
func (l *Layer) Save(ctx context.Context, id string, rec types.Record) (out types.Outcome) {
	if !l.canSave() {
		return noPersistence()
	}
	if id == "" {
		return types.Outcome{Message: "identifier must not be empty"}
	}
	defer l.recoverOutcome(&out, "save", id)

	rec.ID = id
	if err := l.backend.Save(ctx, id, rec); err != nil {
		l.log.Warnw("persistence save failed",
			logging.FieldIdentifier, id,
			logging.FieldBackend, l.backendName(),
			logging.FieldError, err)
		return types.Outcome{Message: fmt.Sprintf("save %q via %s failed: %v", id, l.backendName(), err)}
	}
	return types.Outcome{Success: true, Message: fmt.Sprintf("saved %q via %s", id, l.backendName())}
}

// Load reads the record stored under id.
func (l *Layer) Load(ctx context.Context, id string) (out types.Outcome) {
	if !l.canLoad() {
		return noPersistence()
	}
	if id == "" {
		return types.Outcome{Message: "identifier must not be empty"}
	}
	defer l.recoverOutcome(&out, "load", id)

	rec, err := l.backend.Load(ctx, id)
	if err != nil {
		l.log.Warnw("persistence load failed",
			logging.FieldIdentifier, id,
			logging.FieldBackend, l.backendName(),
			logging.FieldError, err)
		return types.Outcome{Message: fmt.Sprintf("load %q via %s failed: %v", id, l.backendName(), err)}
	}
	return types.Outcome{Success: true, Record: &rec, Message: fmt.Sprintf("loaded %q via %s", id, l.backendName())}
}

// SaveInstance copies h out of the store and saves it under id. No store
// lock is held while the backend runs.
func (l *Layer) SaveInstance(ctx context.Context, store RecordStore, h types.Handle, id string) types.Outcome {
	if !l.canSave() {
		return noPersistence()
	}
	rec, err := store.Record(h, id)
	if err != nil {
		return types.Outcome{Message: fmt.Sprintf("read %s: %v", h, err)}
	}
	return l.Save(ctx, id, rec)
}

// LoadInto loads the record under id and restores it into namespace. The
// restored instance is marked restored and its last-accessed time is
// refreshed. The handle is only meaningful when the outcome succeeds.
func (l *Layer) LoadInto(ctx context.Context, store RecordStore, namespace, id string) (types.Handle, types.Outcome) {
	out := l.Load(ctx, id)
	if !out.Success {
		return types.Handle{}, out
	}
	h, err := store.Restore(namespace, *out.Record)
	if err != nil {
		return types.Handle{}, types.Outcome{Record: out.Record, Message: fmt.Sprintf("restore %q: %v", id, err)}
	}
	if err := store.Touch(h); err != nil {
		return types.Handle{}, types.Outcome{Record: out.Record, Message: fmt.Sprintf("touch %s: %v", h, err)}
	}
	l.log.Debugw("instance loaded from persistence",
		logging.FieldIdentifier, id,
		logging.FieldHandle, h.String())
	return h, out
}

// Close releases the backend.
func (l *Layer) Close() error {
	if l.backend == nil {
		return nil
	}
	return l.backend.Close()
}
