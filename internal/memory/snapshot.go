package memory

import (
	"sort"

	"github.com/mesh-intelligence/thingstore/internal/errors"
	"github.com/mesh-intelligence/thingstore/internal/logging"
	"github.com/mesh-intelligence/thingstore/internal/query"
	"github.com/mesh-intelligence/thingstore/pkg/types"
)

// Query filters and sorts a snapshot of the entity's collection. The
// snapshot is copied under the namespace read lock; filtering and sorting
// run without it.
func (s *Store) Query(namespace, entity string, filters map[string]string, sortExpr string) ([]types.Handle, error) {
	def, err := s.schema.Entity(entity)
	if err != nil {
		return nil, err
	}
	q, err := query.Compile(def, filters, sortExpr)
	if err != nil {
		return nil, err
	}
	return query.Handles(q.Apply(s.rows(namespace, def))), nil
}

// QueryExprs is Query for already-parsed expressions, which may hold
// several conditions on one field.
func (s *Store) QueryExprs(namespace, entity string, exprs []query.FilterExpr, sortExpr string) ([]types.Handle, error) {
	def, err := s.schema.Entity(entity)
	if err != nil {
		return nil, err
	}
	q, err := query.CompileExprs(def, exprs, sortExpr)
	if err != nil {
		return nil, err
	}
	return query.Handles(q.Apply(s.rows(namespace, def))), nil
}

// rows copies the collection in insertion order.
func (s *Store) rows(namespace string, def *types.EntityDefinition) []query.Row {
	ns := s.space(namespace, false)
	if ns == nil {
		return nil
	}
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	c := ns.collections[def.Name()]
	if c == nil {
		return nil
	}

	rows := make([]query.Row, 0, len(c.order))
	for _, slot := range c.order {
		inst := ns.slots[slot]
		values := make(map[string]types.Value, len(inst.values))
		for name, v := range inst.values {
			values[name] = v
		}
		rows = append(rows, query.Row{Handle: ns.handle(inst), Values: values})
	}
	return rows
}

// Record copies the instance's set values in canonical form.
func (s *Store) Record(h types.Handle, id string) (types.Record, error) {
	inst, err := s.Get(h)
	if err != nil {
		return types.Record{}, err
	}
	return types.Record{ID: id, Entity: inst.Handle.Entity, Fields: inst.Strings()}, nil
}

// Restore reconstructs an instance from rec. Generated values in the
// record are kept, AUTO_INCREMENT counters move past them, and missing
// generated values are assigned fresh. A primary key or generated value
// already held by a live instance fails with ErrDuplicateKey.
func (s *Store) Restore(namespace string, rec types.Record) (types.Handle, error) {
	def, err := s.schema.Entity(rec.Entity)
	if err != nil {
		return types.Handle{}, err
	}

	names := make([]string, 0, len(rec.Fields))
	for name := range rec.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	values := make(map[string]types.Value, len(names))
	for _, name := range names {
		f, ok := def.Field(name)
		if !ok {
			return types.Handle{}, errors.Wrapf(types.ErrUnknownField, "entity %q field %q", def.Name(), name)
		}
		v, err := types.ParseValue(f, rec.Fields[name])
		if err != nil {
			return types.Handle{}, err
		}
		values[name] = v
	}

	ns := s.space(namespace, true)
	ns.mu.Lock()
	defer ns.mu.Unlock()

	c := ns.collection(def)
	if err := c.conflict(values); err != nil {
		return types.Handle{}, err
	}

	inst := ns.allocate(def, s.now())
	inst.state = types.StateRestored
	for _, f := range def.Fields() {
		v, ok := values[f.Name]
		if !ok {
			s.fill(c, inst, f)
			continue
		}
		inst.values[f.Name] = v
		if f.Kind == types.KindAutoIncrement && v.Int() > c.counters[f.Name] {
			c.counters[f.Name] = v.Int()
		}
	}
	if err := c.claimKey(inst); err != nil {
		return types.Handle{}, err
	}
	ns.insert(c, inst)

	h := ns.handle(inst)
	s.log.Debugw("instance restored",
		logging.FieldHandle, h.String(),
		logging.FieldIdentifier, rec.ID)
	return h, nil
}
