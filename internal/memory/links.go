package memory

import (
	"github.com/mesh-intelligence/thingstore/internal/errors"
	"github.com/mesh-intelligence/thingstore/internal/logging"
	"github.com/mesh-intelligence/thingstore/pkg/types"
)

// Link adds other to h's relationship vector and, when the relationship
// declares an inverse, h to other's inverse vector. Both sides change
// under one namespace lock. Linking an existing pair is a no-op.
func (s *Store) Link(h types.Handle, relationship string, other types.Handle) error {
	return s.relink(h, relationship, other, true)
}

// Unlink removes the pair from both vectors. Unlinking a pair that is not
// linked is a no-op.
func (s *Store) Unlink(h types.Handle, relationship string, other types.Handle) error {
	return s.relink(h, relationship, other, false)
}

func (s *Store) relink(h types.Handle, relationship string, other types.Handle, add bool) error {
	if normalize(h.Namespace) != normalize(other.Namespace) {
		return errors.Wrapf(types.ErrNamespaceMismatch, "%s and %s", h, other)
	}
	def, err := s.schema.Entity(h.Entity)
	if err != nil {
		return err
	}
	rel, ok := def.Relationship(relationship)
	if !ok {
		return errors.Wrapf(types.ErrUnknownRelationship, "entity %q relationship %q", def.Name(), relationship)
	}

	ns := s.space(h.Namespace, false)
	if ns == nil {
		return errors.Wrapf(types.ErrNotFound, "handle %s", h)
	}
	ns.mu.Lock()
	defer ns.mu.Unlock()

	src, err := ns.lookup(h)
	if err != nil {
		return err
	}
	dst, err := ns.lookup(other)
	if err != nil {
		return err
	}
	if dst.entity != rel.Target {
		return errors.Wrapf(types.ErrInvalidRelationshipTarget,
			"relationship %q targets %q, got %q", relationship, rel.Target, dst.entity)
	}

	if add {
		src.rels[rel.Name] = addSlot(src.rels[rel.Name], dst.slot)
		if rel.Inverse != "" {
			dst.rels[rel.Inverse] = addSlot(dst.rels[rel.Inverse], src.slot)
		}
	} else {
		src.rels[rel.Name] = removeSlot(src.rels[rel.Name], dst.slot)
		if rel.Inverse != "" {
			dst.rels[rel.Inverse] = removeSlot(dst.rels[rel.Inverse], src.slot)
		}
	}

	s.log.Debugw("relationship updated",
		logging.FieldHandle, h.String(),
		"relationship", rel.Name,
		"other", other.String(),
		"linked", add)
	return nil
}

func addSlot(refs []int64, slot int64) []int64 {
	for _, r := range refs {
		if r == slot {
			return refs
		}
	}
	return append(refs, slot)
}

// Related returns the live handles in h's relationship vector, in link
// order.
func (s *Store) Related(h types.Handle, relationship string) ([]types.Handle, error) {
	def, err := s.schema.Entity(h.Entity)
	if err != nil {
		return nil, err
	}
	if _, ok := def.Relationship(relationship); !ok {
		return nil, errors.Wrapf(types.ErrUnknownRelationship, "entity %q relationship %q", def.Name(), relationship)
	}

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
	return ns.handles(inst.rels[relationship]), nil
}
