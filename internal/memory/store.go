// Package memory implements the in-memory instance store.
//
// Instances live in a per-namespace arena of slots. Relationship vectors
// hold slot indices, never pointers, so link, unlink and delete work on
// integers and no instance owns another. Each namespace has its own
// RWMutex: writes take it exclusively, which makes key allocation, both
// sides of a link, and delete-with-cleanup atomic to readers.
package memory

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/thingstore/internal/errors"
	"github.com/mesh-intelligence/thingstore/internal/logging"
	"github.com/mesh-intelligence/thingstore/pkg/types"
)

// Store implements types.Store.
type Store struct {
	schema  *types.Schema
	log     *zap.SugaredLogger
	now     func() time.Time
	newGUID func() string

	mu         sync.RWMutex
	namespaces map[string]*namespace
	// lastSlots outlives DropNamespace so a recreated namespace never
	// hands out a slot that a stale handle still names.
	lastSlots  map[string]*atomic.Int64
}

var _ types.Store = (*Store)(nil)

// namespace is one isolated arena.
type namespace struct {
	mu          sync.RWMutex
	name        string
	lastSlot    *atomic.Int64
	slots       map[int64]*instance
	collections map[string]*collection
}

// collection tracks the live instances of one entity in one namespace.
type collection struct {
	def      *types.EntityDefinition
	order    []int64                     // live slots in insertion order
	counters map[string]int64            // last value issued per AUTO_INCREMENT field
	keys     map[string]int64            // canonical primary key -> slot
	auto     map[string]map[string]int64 // generated field -> canonical value -> slot
}

type instance struct {
	slot     int64
	entity   string
	values   map[string]types.Value
	rels     map[string][]int64
	state    types.InstanceState
	created  time.Time
	accessed time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. The default discards output.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(s *Store) { s.log = logging.OrNop(log) }
}

// WithClock replaces time.Now for created and accessed timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithGUIDSource replaces the AUTO_GUID token generator.
func WithGUIDSource(gen func() string) Option {
	return func(s *Store) { s.newGUID = gen }
}

// NewStore creates an empty store for schema.
func NewStore(schema *types.Schema, opts ...Option) *Store {
	s := &Store{
		schema:     schema,
		log:        logging.Nop(),
		now:        time.Now,
		newGUID:    generateUUID,
		namespaces: make(map[string]*namespace),
		lastSlots:  make(map[string]*atomic.Int64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// generateUUID returns a UUID v7 string, falling back to v4.
func generateUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// Schema returns the store's schema.
func (s *Store) Schema() *types.Schema {
	return s.schema
}

func normalize(ns string) string {
	if ns == "" {
		return types.DefaultNamespace
	}
	return ns
}

// space returns the named namespace, creating it when create is set.
// A nil result means the namespace holds nothing.
func (s *Store) space(name string, create bool) *namespace {
	name = normalize(name)
	s.mu.RLock()
	ns := s.namespaces[name]
	s.mu.RUnlock()
	if ns != nil || !create {
		return ns
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if ns = s.namespaces[name]; ns == nil {
		last := s.lastSlots[name]
		if last == nil {
			last = new(atomic.Int64)
			s.lastSlots[name] = last
		}
		ns = &namespace{
			name:        name,
			lastSlot:    last,
			slots:       make(map[int64]*instance),
			collections: make(map[string]*collection),
		}
		s.namespaces[name] = ns
	}
	return ns
}

// collection returns the entity's collection, creating it on first use.
// Callers hold ns.mu for writing.
func (ns *namespace) collection(def *types.EntityDefinition) *collection {
	c := ns.collections[def.Name()]
	if c == nil {
		c = &collection{
			def:      def,
			counters: make(map[string]int64),
			keys:     make(map[string]int64),
			auto:     make(map[string]map[string]int64),
		}
		for _, f := range def.Fields() {
			if f.Kind.IsAuto() {
				c.auto[f.Name] = make(map[string]int64)
			}
		}
		ns.collections[def.Name()] = c
	}
	return c
}

// lookup resolves h inside ns. Callers hold ns.mu.
func (ns *namespace) lookup(h types.Handle) (*instance, error) {
	inst, ok := ns.slots[h.Slot]
	if !ok || inst.entity != h.Entity {
		return nil, errors.Wrapf(types.ErrNotFound, "handle %s", h)
	}
	return inst, nil
}

func (ns *namespace) handle(inst *instance) types.Handle {
	return types.Handle{Namespace: ns.name, Entity: inst.entity, Slot: inst.slot}
}

// Namespaces lists namespaces that have been written to, sorted.
func (s *Store) Namespaces() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.namespaces))
	for name := range s.namespaces {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DropNamespace discards a namespace. Handles into it become dead and
// stay dead: slots keep counting if the namespace is written to again.
func (s *Store) DropNamespace(name string) {
	name = normalize(name)
	s.mu.Lock()
	delete(s.namespaces, name)
	s.mu.Unlock()
	s.log.Debugw("namespace dropped", logging.FieldNamespace, name)
}

// Count returns the number of live instances of entity in namespace.
func (s *Store) Count(namespace, entity string) (int, error) {
	def, err := s.schema.Entity(entity)
	if err != nil {
		return 0, err
	}
	ns := s.space(namespace, false)
	if ns == nil {
		return 0, nil
	}
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	if c := ns.collections[def.Name()]; c != nil {
		return len(c.order), nil
	}
	return 0, nil
}
