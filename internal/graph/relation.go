package graph

import (
	"github.com/google/uuid"

	"anoa.com/pharmatrade/internal/entity"
)

// Relation is one bidirectional 1:N pair. The child side is the foreign key
// reached through fk; the parent side is the collection kept here.
type Relation[P, C entity.Entity] struct {
	fk       func(C) **uint
	parents  map[uuid.UUID]P
	children map[uuid.UUID]*collection[C]
	parentOf map[uuid.UUID]uuid.UUID
	touch    func(entity.Entity)
}

func newRelation[P, C entity.Entity](fk func(C) **uint, touch func(entity.Entity)) *Relation[P, C] {
	return &Relation[P, C]{
		fk:       fk,
		parents:  make(map[uuid.UUID]P),
		children: make(map[uuid.UUID]*collection[C]),
		parentOf: make(map[uuid.UUID]uuid.UUID),
		touch:    touch,
	}
}

// Add puts child in parent's collection, creating it when absent, and points
// the child's foreign key at parent. A child held by another parent is taken
// out of that parent's collection first.
func (r *Relation[P, C]) Add(parent P, child C) {
	pid, cid := key(parent), key(child)

	if prev, ok := r.parentOf[cid]; ok && prev != pid {
		if coll := r.children[prev]; coll != nil {
			coll.remove(cid)
		}
	}

	r.collectionOf(parent).add(child)
	r.parentOf[cid] = pid
	r.bind(parent, child)
	r.touch(child)
}

// Remove takes child out of parent's collection and clears the foreign key
// when it points at parent. Nothing happens to a collection never loaded, and
// a child referencing some other parent keeps its reference.
func (r *Relation[P, C]) Remove(parent P, child C) {
	pid, cid := key(parent), key(child)

	if coll := r.children[pid]; coll != nil {
		coll.remove(cid)
	}

	fk := r.fk(child)
	held, tracked := r.parentOf[cid]
	pointsAt := tracked && held == pid
	if id := parent.Meta().ID; id != 0 && *fk != nil && **fk == id {
		pointsAt = true
	}
	if !pointsAt {
		return
	}

	delete(r.parentOf, cid)
	*fk = nil
	r.touch(child)
}

// Attach records children already persisted under parent without marking
// anything dirty. Children whose key points elsewhere are ignored. Attaching
// with no children still marks the collection as loaded.
func (r *Relation[P, C]) Attach(parent P, children ...C) {
	coll := r.collectionOf(parent)
	id := parent.Meta().ID
	for _, child := range children {
		fk := *r.fk(child)
		if fk == nil || *fk != id {
			continue
		}
		coll.add(child)
		r.parentOf[key(child)] = key(parent)
	}
}

// Children returns a copy of parent's collection, nil when never loaded.
func (r *Relation[P, C]) Children(parent P) []C {
	coll := r.children[key(parent)]
	if coll == nil {
		return nil
	}
	out := make([]C, len(coll.items))
	copy(out, coll.items)
	return out
}

// Loaded reports whether parent's collection exists.
func (r *Relation[P, C]) Loaded(parent P) bool {
	_, ok := r.children[key(parent)]
	return ok
}

func (r *Relation[P, C]) collectionOf(parent P) *collection[C] {
	pid := key(parent)
	coll := r.children[pid]
	if coll == nil {
		coll = &collection[C]{}
		r.children[pid] = coll
	}
	r.parents[pid] = parent
	return coll
}

func (r *Relation[P, C]) bind(parent P, child C) {
	if id := parent.Meta().ID; id != 0 {
		*r.fk(child) = &id
		return
	}
	// resolved by syncKeys once the parent has been inserted
	*r.fk(child) = nil
}

// syncKeys points every collected child at its parent's current key.
func (r *Relation[P, C]) syncKeys() {
	for pid, coll := range r.children {
		id := r.parents[pid].Meta().ID
		if id == 0 {
			continue
		}
		for _, child := range coll.items {
			fk := r.fk(child)
			if *fk == nil || **fk != id {
				v := id
				*fk = &v
			}
		}
	}
}

// forget drops e from both sides of the relation without touching keys.
func (r *Relation[P, C]) forget(e entity.Entity) {
	id := key(e)
	delete(r.children, id)
	delete(r.parents, id)
	if pid, ok := r.parentOf[id]; ok {
		if coll := r.children[pid]; coll != nil {
			coll.remove(id)
		}
		delete(r.parentOf, id)
	}
}

type collection[C entity.Entity] struct {
	items []C
}

func (c *collection[C]) add(item C) {
	id := key(item)
	for _, existing := range c.items {
		if key(existing) == id {
			return
		}
	}
	c.items = append(c.items, item)
}

func (c *collection[C]) remove(id uuid.UUID) {
	for i, existing := range c.items {
		if key(existing) == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return
		}
	}
}

func key(e entity.Entity) uuid.UUID {
	return e.Meta().UUID
}
