// Package graph holds the entities loaded by one unit of work. Entities never
// point at each other: every reference is a foreign key and every collection
// lives in a Relation owned by the Graph.
package graph

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"anoa.com/pharmatrade/internal/entity"
)

// Writer persists single rows. The store implements it over a transaction.
type Writer interface {
	Insert(ctx context.Context, e entity.Entity) error
	Update(ctx context.Context, e entity.Entity) error
	Delete(ctx context.Context, e entity.Entity) error
}

type Graph struct {
	identity   map[uuid.UUID]entity.Entity
	users      map[uint]*entity.User
	pharmacies map[uint]*entity.Pharmacy
	contacts   map[uint]*entity.PharmacyContact
	records    map[uint]*entity.TradeRecord

	Owned            *Relation[*entity.User, *entity.Pharmacy]
	UserContacts     *Relation[*entity.User, *entity.PharmacyContact]
	PharmacyContacts *Relation[*entity.Pharmacy, *entity.PharmacyContact]
	Given            *Relation[*entity.Pharmacy, *entity.TradeRecord]
	Received         *Relation[*entity.Pharmacy, *entity.TradeRecord]
	Recorded         *Relation[*entity.User, *entity.TradeRecord]

	inserts []entity.Entity
	updates []entity.Entity
	deletes []entity.Entity
	state   map[uuid.UUID]pending
}

type pending int

const (
	clean pending = iota
	inserted
	updated
	deleted
)

func New() *Graph {
	g := &Graph{
		identity:   make(map[uuid.UUID]entity.Entity),
		users:      make(map[uint]*entity.User),
		pharmacies: make(map[uint]*entity.Pharmacy),
		contacts:   make(map[uint]*entity.PharmacyContact),
		records:    make(map[uint]*entity.TradeRecord),
		state:      make(map[uuid.UUID]pending),
	}

	g.Owned = newRelation[*entity.User](func(p *entity.Pharmacy) **uint { return &p.UserID }, g.MarkDirty)
	g.UserContacts = newRelation[*entity.User](func(c *entity.PharmacyContact) **uint { return &c.UserID }, g.MarkDirty)
	g.PharmacyContacts = newRelation[*entity.Pharmacy](func(c *entity.PharmacyContact) **uint { return &c.PharmacyID }, g.MarkDirty)
	g.Given = newRelation[*entity.Pharmacy](func(r *entity.TradeRecord) **uint { return &r.GiverID }, g.MarkDirty)
	g.Received = newRelation[*entity.Pharmacy](func(r *entity.TradeRecord) **uint { return &r.ReceiverID }, g.MarkDirty)
	g.Recorded = newRelation[*entity.User](func(r *entity.TradeRecord) **uint { return &r.RecorderID }, g.MarkDirty)

	return g
}

// Track registers a loaded entity and returns the instance the graph holds
// for its identity, which is e itself the first time it is seen.
func Track[T entity.Entity](g *Graph, e T) T {
	id := e.Meta().UUID
	if existing, ok := g.identity[id]; ok {
		if t, ok := existing.(T); ok {
			return t
		}
	}
	g.identity[id] = e
	g.index(e)
	return e
}

// Add registers a new entity to be inserted on the next flush.
func (g *Graph) Add(e entity.Entity) {
	base := e.Meta()
	if base.UUID == uuid.Nil {
		base.UUID = uuid.New()
	}
	if _, ok := g.identity[base.UUID]; ok {
		return
	}
	g.identity[base.UUID] = e
	g.state[base.UUID] = inserted
	g.inserts = append(g.inserts, e)
}

// MarkDirty schedules an update of a tracked entity. New and deleted
// entities are left as they are.
func (g *Graph) MarkDirty(e entity.Entity) {
	id := e.Meta().UUID
	if g.state[id] != clean {
		return
	}
	if _, ok := g.identity[id]; !ok {
		return
	}
	g.state[id] = updated
	g.updates = append(g.updates, e)
}

// Remove schedules a physical delete. An entity added in this unit of work is
// simply dropped.
func (g *Graph) Remove(e entity.Entity) {
	id := e.Meta().UUID
	switch g.state[id] {
	case deleted:
		return
	case inserted:
		g.inserts = without(g.inserts, id)
		delete(g.state, id)
	case updated:
		g.updates = without(g.updates, id)
		g.state[id] = deleted
		g.deletes = append(g.deletes, e)
	default:
		g.state[id] = deleted
		g.deletes = append(g.deletes, e)
	}

	delete(g.identity, id)
	g.unindex(e)
	g.Owned.forget(e)
	g.UserContacts.forget(e)
	g.PharmacyContacts.forget(e)
	g.Given.forget(e)
	g.Received.forget(e)
	g.Recorded.forget(e)
}

// Deleted reports whether e is scheduled for deletion.
func (g *Graph) Deleted(e entity.Entity) bool {
	return g.state[e.Meta().UUID] == deleted
}

// Flush writes pending changes: inserts and updates parents first, deletes
// children first. Foreign keys of children whose parent was just inserted
// are filled in before the child is written.
func (g *Graph) Flush(ctx context.Context, w Writer) error {
	inserts := byRank(g.inserts, false)
	for _, e := range inserts {
		g.syncKeys()
		if err := w.Insert(ctx, e); err != nil {
			return err
		}
		g.index(e)
	}

	g.syncKeys()
	for _, e := range byRank(g.updates, false) {
		if err := w.Update(ctx, e); err != nil {
			return err
		}
	}
	for _, e := range byRank(g.deletes, true) {
		if err := w.Delete(ctx, e); err != nil {
			return err
		}
	}

	g.inserts, g.updates, g.deletes = nil, nil, nil
	g.state = make(map[uuid.UUID]pending)
	return nil
}

func (g *Graph) syncKeys() {
	g.Owned.syncKeys()
	g.UserContacts.syncKeys()
	g.PharmacyContacts.syncKeys()
	g.Given.syncKeys()
	g.Received.syncKeys()
	g.Recorded.syncKeys()
}

func (g *Graph) User(id uint) (*entity.User, bool) {
	u, ok := g.users[id]
	return u, ok
}

func (g *Graph) Pharmacy(id uint) (*entity.Pharmacy, bool) {
	p, ok := g.pharmacies[id]
	return p, ok
}

func (g *Graph) Contact(id uint) (*entity.PharmacyContact, bool) {
	c, ok := g.contacts[id]
	return c, ok
}

func (g *Graph) Record(id uint) (*entity.TradeRecord, bool) {
	r, ok := g.records[id]
	return r, ok
}

// Records lists every tracked trade record ordered by id.
func (g *Graph) Records() []*entity.TradeRecord {
	out := make([]*entity.TradeRecord, 0, len(g.records))
	for _, r := range g.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (g *Graph) index(e entity.Entity) {
	id := e.Meta().ID
	if id == 0 {
		return
	}
	switch v := e.(type) {
	case *entity.User:
		g.users[id] = v
	case *entity.Pharmacy:
		g.pharmacies[id] = v
	case *entity.PharmacyContact:
		g.contacts[id] = v
	case *entity.TradeRecord:
		g.records[id] = v
	}
}

func (g *Graph) unindex(e entity.Entity) {
	id := e.Meta().ID
	switch e.(type) {
	case *entity.User:
		delete(g.users, id)
	case *entity.Pharmacy:
		delete(g.pharmacies, id)
	case *entity.PharmacyContact:
		delete(g.contacts, id)
	case *entity.TradeRecord:
		delete(g.records, id)
	}
}

// rank orders tables by dependency: a table only references lower ranks.
func rank(e entity.Entity) int {
	switch e.(type) {
	case *entity.User:
		return 0
	case *entity.Pharmacy:
		return 1
	default:
		return 2
	}
}

func byRank(in []entity.Entity, reverse bool) []entity.Entity {
	out := make([]entity.Entity, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool {
		if reverse {
			return rank(out[i]) > rank(out[j])
		}
		return rank(out[i]) < rank(out[j])
	})
	return out
}

func without(in []entity.Entity, id uuid.UUID) []entity.Entity {
	out := in[:0]
	for _, e := range in {
		if e.Meta().UUID != id {
			out = append(out, e)
		}
	}
	return out
}
