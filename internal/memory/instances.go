package memory

import (
	"sort"
	"time"

	"github.com/mesh-intelligence/thingstore/internal/errors"
	"github.com/mesh-intelligence/thingstore/internal/logging"
	"github.com/mesh-intelligence/thingstore/pkg/types"
)

// Create allocates an instance of entity in namespace with generated
// fields and defaults applied.
func (s *Store) Create(namespace, entity string) (types.Handle, error) {
	return s.create(namespace, entity, nil, false)
}

// CreateWith validates values and mandatory fields, then creates the
// instance with values applied. Nothing is created on failure.
func (s *Store) CreateWith(namespace, entity string, values map[string]string) (types.Handle, error) {
	return s.create(namespace, entity, values, true)
}

func (s *Store) create(namespace, entity string, raw map[string]string, requireMandatory bool) (types.Handle, error) {
	def, err := s.schema.Entity(entity)
	if err != nil {
		return types.Handle{}, err
	}
	values, err := parseWrites(def, raw)
	if err != nil {
		return types.Handle{}, err
	}
	if requireMandatory {
		for _, f := range def.Fields() {
			if _, ok := values[f.Name]; f.Mandatory && !ok && !f.HasDefault {
				return types.Handle{}, errors.Wrapf(types.ErrMissingField, "entity %q field %q", def.Name(), f.Name)
			}
		}
	}

	ns := s.space(namespace, true)
	ns.mu.Lock()
	defer ns.mu.Unlock()

	c := ns.collection(def)
	inst := ns.allocate(def, s.now())
	for _, f := range def.Fields() {
		if v, ok := values[f.Name]; ok {
			inst.values[f.Name] = v
			continue
		}
		s.fill(c, inst, f)
	}
	if err := c.claimKey(inst); err != nil {
		return types.Handle{}, err
	}
	ns.insert(c, inst)

	h := ns.handle(inst)
	s.log.Debugw("instance created", logging.FieldHandle, h.String())
	return h, nil
}

// fill assigns a generated value or the default to an unsupplied field.
func (s *Store) fill(c *collection, inst *instance, f types.FieldDefinition) {
	switch f.Kind {
	case types.KindAutoIncrement:
		c.counters[f.Name]++
		inst.values[f.Name] = types.AutoIncrementValue(c.counters[f.Name])
	case types.KindAutoGUID:
		inst.values[f.Name] = types.GUIDValue(s.newGUID())
	default:
		if dv, ok := f.DefaultValue(); ok {
			inst.values[f.Name] = dv
		}
	}
}

// allocate reserves the next slot. Every declared field starts unset.
func (ns *namespace) allocate(def *types.EntityDefinition, now time.Time) *instance {
	inst := &instance{
		slot:     ns.lastSlot.Add(1),
		entity:   def.Name(),
		values:   make(map[string]types.Value),
		rels:     make(map[string][]int64),
		state:    types.StateCreated,
		created:  now,
		accessed: now,
	}
	for _, f := range def.Fields() {
		inst.values[f.Name] = types.NullValue(f.Kind)
	}
	return inst
}

// claimKey checks that the instance's primary key and generated values
// are unused in the collection.
func (c *collection) claimKey(inst *instance) error {
	return c.conflict(inst.values)
}

// conflict reports ErrDuplicateKey when a set primary key or generated
// value in values is already held by a live instance.
func (c *collection) conflict(values map[string]types.Value) error {
	if pk, ok := c.def.PrimaryKey(); ok {
		if v := values[pk.Name]; v.IsSet() {
			if _, dup := c.keys[v.String()]; dup {
				return errors.Wrapf(types.ErrDuplicateKey, "entity %q key %q", c.def.Name(), v.String())
			}
		}
	}
	for _, f := range c.def.Fields() {
		index, ok := c.auto[f.Name]
		if !ok {
			continue
		}
		v := values[f.Name]
		if !v.IsSet() {
			continue
		}
		if _, dup := index[v.String()]; dup {
			return errors.Wrapf(types.ErrDuplicateKey, "entity %q field %q value %q", c.def.Name(), f.Name, v.String())
		}
	}
	return nil
}

func (ns *namespace) insert(c *collection, inst *instance) {
	ns.slots[inst.slot] = inst
	c.order = append(c.order, inst.slot)
	if pk, ok := c.def.PrimaryKey(); ok {
		c.keys[inst.values[pk.Name].String()] = inst.slot
	}
	for name, index := range c.auto {
		if v := inst.values[name]; v.IsSet() {
			index[v.String()] = inst.slot
		}
	}
}

// forget drops the instance from the collection's order and indexes.
func (c *collection) forget(inst *instance) {
	c.order = removeSlot(c.order, inst.slot)
	if pk, ok := c.def.PrimaryKey(); ok {
		delete(c.keys, inst.values[pk.Name].String())
	}
	for name, index := range c.auto {
		delete(index, inst.values[name].String())
	}
}

// parseWrites validates caller-supplied raw values. Generated fields are
// read-only. Names are checked in sorted order so errors are stable.
func parseWrites(def *types.EntityDefinition, raw map[string]string) (map[string]types.Value, error) {
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	values := make(map[string]types.Value, len(raw))
	for _, name := range names {
		f, ok := def.Field(name)
		if !ok {
			return nil, errors.Wrapf(types.ErrUnknownField, "entity %q field %q", def.Name(), name)
		}
		if f.Kind.IsAuto() {
			return nil, errors.Wrapf(types.ErrReadOnlyField, "entity %q field %q is %s", def.Name(), name, f.Kind)
		}
		v, err := types.ParseValue(f, raw[name])
		if err != nil {
			return nil, err
		}
		values[name] = v
	}
	return values, nil
}

// Set validates raw and stores it in the named field.
func (s *Store) Set(h types.Handle, field, raw string) error {
	return s.SetFields(h, map[string]string{field: raw})
}

// SetFields validates every value before applying any of them.
func (s *Store) SetFields(h types.Handle, values map[string]string) error {
	def, err := s.schema.Entity(h.Entity)
	if err != nil {
		return err
	}
	parsed, err := parseWrites(def, values)
	if err != nil {
		return err
	}

	ns := s.space(h.Namespace, false)
	if ns == nil {
		return errors.Wrapf(types.ErrNotFound, "handle %s", h)
	}
	ns.mu.Lock()
	defer ns.mu.Unlock()
	inst, err := ns.lookup(h)
	if err != nil {
		return err
	}
	for name, v := range parsed {
		inst.values[name] = v
	}
	inst.accessed = s.now()
	return nil
}

// Get returns a copy of the instance.
func (s *Store) Get(h types.Handle) (*types.Instance, error) {
	ns := s.space(h.Namespace, false)
	if ns == nil {
		return nil, errors.Wrapf(types.ErrNotFound, "handle %s", h)
	}
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	inst, err := ns.lookup(h)
	if err != nil {
		return nil, err
	}
	return ns.snapshot(inst), nil
}

func (ns *namespace) snapshot(inst *instance) *types.Instance {
	out := &types.Instance{
		Handle:     ns.handle(inst),
		State:      inst.state,
		CreatedAt:  inst.created,
		AccessedAt: inst.accessed,
		Values:     make(map[string]types.Value, len(inst.values)),
		Relations:  make(map[string][]types.Handle, len(inst.rels)),
	}
	for name, v := range inst.values {
		out.Values[name] = v
	}
	for name, refs := range inst.rels {
		out.Relations[name] = ns.handles(refs)
	}
	return out
}

// handles converts live slots to handles. Callers hold ns.mu.
func (ns *namespace) handles(slots []int64) []types.Handle {
	out := make([]types.Handle, 0, len(slots))
	for _, slot := range slots {
		if inst, ok := ns.slots[slot]; ok {
			out = append(out, ns.handle(inst))
		}
	}
	return out
}

// Value returns one field value of the instance.
func (s *Store) Value(h types.Handle, field string) (types.Value, error) {
	inst, err := s.Get(h)
	if err != nil {
		return types.Value{}, err
	}
	v, ok := inst.Values[field]
	if !ok {
		return types.Value{}, errors.Wrapf(types.ErrUnknownField, "entity %q field %q", h.Entity, field)
	}
	return v, nil
}

// Touch refreshes the last-accessed time.
func (s *Store) Touch(h types.Handle) error {
	ns := s.space(h.Namespace, false)
	if ns == nil {
		return errors.Wrapf(types.ErrNotFound, "handle %s", h)
	}
	ns.mu.Lock()
	defer ns.mu.Unlock()
	inst, err := ns.lookup(h)
	if err != nil {
		return err
	}
	inst.accessed = s.now()
	return nil
}

// Delete removes the instance and strips it from every relationship
// vector in its namespace. Absent instances are ignored.
func (s *Store) Delete(h types.Handle) error {
	ns := s.space(h.Namespace, false)
	if ns == nil {
		return nil
	}
	ns.mu.Lock()
	defer ns.mu.Unlock()
	inst, err := ns.lookup(h)
	if err != nil {
		return nil
	}

	ns.collections[inst.entity].forget(inst)
	delete(ns.slots, inst.slot)

	stripped := 0
	for _, other := range ns.slots {
		for name, refs := range other.rels {
			if kept := removeSlot(refs, inst.slot); len(kept) != len(refs) {
				other.rels[name] = kept
				stripped++
			}
		}
	}
	s.log.Debugw("instance deleted", logging.FieldHandle, h.String(), logging.FieldCount, stripped)
	return nil
}

// removeSlot returns refs without slot, reusing the backing array.
func removeSlot(refs []int64, slot int64) []int64 {
	out := refs[:0]
	for _, r := range refs {
		if r != slot {
			out = append(out, r)
		}
	}
	return out
}

// FindByPrimaryKey resolves key, parsed per the primary-key kind.
func (s *Store) FindByPrimaryKey(namespace, entity, key string) (types.Handle, error) {
	def, err := s.schema.Entity(entity)
	if err != nil {
		return types.Handle{}, err
	}
	pk, ok := def.PrimaryKey()
	if !ok {
		return types.Handle{}, errors.Wrapf(types.ErrNoPrimaryKey, "entity %q", def.Name())
	}
	v, err := types.ParseLiteral(pk, key)
	if err != nil {
		return types.Handle{}, err
	}

	notFound := errors.Wrapf(types.ErrNotFound, "entity %q key %q", def.Name(), key)
	ns := s.space(namespace, false)
	if ns == nil {
		return types.Handle{}, notFound
	}
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	c := ns.collections[def.Name()]
	if c == nil {
		return types.Handle{}, notFound
	}
	slot, ok := c.keys[v.String()]
	if !ok {
		return types.Handle{}, notFound
	}
	return ns.handle(ns.slots[slot]), nil
}

// List returns the entity's instances in insertion order.
func (s *Store) List(namespace, entity string) ([]types.Handle, error) {
	def, err := s.schema.Entity(entity)
	if err != nil {
		return nil, err
	}
	ns := s.space(namespace, false)
	if ns == nil {
		return []types.Handle{}, nil
	}
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	c := ns.collections[def.Name()]
	if c == nil {
		return []types.Handle{}, nil
	}
	return ns.handles(c.order), nil
}
