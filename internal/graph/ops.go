package graph

import "anoa.com/pharmatrade/internal/entity"

func (g *Graph) AddPharmacy(u *entity.User, p *entity.Pharmacy)    { g.Owned.Add(u, p) }
func (g *Graph) RemovePharmacy(u *entity.User, p *entity.Pharmacy) { g.Owned.Remove(u, p) }
func (g *Graph) PharmaciesOf(u *entity.User) []*entity.Pharmacy    { return g.Owned.Children(u) }

func (g *Graph) AddUserContact(u *entity.User, c *entity.PharmacyContact) {
	g.UserContacts.Add(u, c)
}

func (g *Graph) RemoveUserContact(u *entity.User, c *entity.PharmacyContact) {
	g.UserContacts.Remove(u, c)
}

func (g *Graph) ContactsOfUser(u *entity.User) []*entity.PharmacyContact {
	return g.UserContacts.Children(u)
}

func (g *Graph) AddPharmacyContact(p *entity.Pharmacy, c *entity.PharmacyContact) {
	g.PharmacyContacts.Add(p, c)
}

func (g *Graph) RemovePharmacyContact(p *entity.Pharmacy, c *entity.PharmacyContact) {
	g.PharmacyContacts.Remove(p, c)
}

func (g *Graph) ContactsOfPharmacy(p *entity.Pharmacy) []*entity.PharmacyContact {
	return g.PharmacyContacts.Children(p)
}

func (g *Graph) AddGivenRecord(p *entity.Pharmacy, r *entity.TradeRecord)    { g.Given.Add(p, r) }
func (g *Graph) RemoveGivenRecord(p *entity.Pharmacy, r *entity.TradeRecord) { g.Given.Remove(p, r) }
func (g *Graph) GivenRecords(p *entity.Pharmacy) []*entity.TradeRecord       { return g.Given.Children(p) }

func (g *Graph) AddReceivedRecord(p *entity.Pharmacy, r *entity.TradeRecord)    { g.Received.Add(p, r) }
func (g *Graph) RemoveReceivedRecord(p *entity.Pharmacy, r *entity.TradeRecord) { g.Received.Remove(p, r) }
func (g *Graph) ReceivedRecords(p *entity.Pharmacy) []*entity.TradeRecord       { return g.Received.Children(p) }

func (g *Graph) AddRecordedRecord(u *entity.User, r *entity.TradeRecord)    { g.Recorded.Add(u, r) }
func (g *Graph) RemoveRecordedRecord(u *entity.User, r *entity.TradeRecord) { g.Recorded.Remove(u, r) }
func (g *Graph) RecordedRecords(u *entity.User) []*entity.TradeRecord       { return g.Recorded.Children(u) }

// SetLastModifiedBy is a plain reference without an inverse collection.
func (g *Graph) SetLastModifiedBy(r *entity.TradeRecord, u *entity.User) {
	if u == nil {
		r.LastModifiedByID = nil
	} else {
		id := u.ID
		r.LastModifiedByID = &id
	}
	g.MarkDirty(r)
}

// DetachUser unlinks everything loaded around u ahead of its deletion.
// Owned pharmacies and recorded trades lose their reference to u. Contacts
// cannot exist without their user, so they are unlinked from their pharmacy
// too and scheduled for deletion.
func (g *Graph) DetachUser(u *entity.User) {
	for _, p := range g.PharmaciesOf(u) {
		g.RemovePharmacy(u, p)
	}
	for _, c := range g.ContactsOfUser(u) {
		g.RemoveUserContact(u, c)
		if c.PharmacyID != nil {
			if p, ok := g.Pharmacy(*c.PharmacyID); ok {
				g.RemovePharmacyContact(p, c)
			}
		}
		g.Remove(c)
	}
	for _, r := range g.RecordedRecords(u) {
		g.RemoveRecordedRecord(u, r)
	}
	for _, r := range g.Records() {
		if r.LastModifiedByID != nil && *r.LastModifiedByID == u.ID {
			g.SetLastModifiedBy(r, nil)
		}
	}
}

// DetachPharmacy unlinks everything loaded around p ahead of its deletion.
// Trades keep existing with the side pointing at p cleared; contacts of p
// are removed.
func (g *Graph) DetachPharmacy(p *entity.Pharmacy) {
	if p.UserID != nil {
		if u, ok := g.User(*p.UserID); ok {
			g.RemovePharmacy(u, p)
		}
	}
	for _, c := range g.ContactsOfPharmacy(p) {
		g.RemovePharmacyContact(p, c)
		if c.UserID != nil {
			if u, ok := g.User(*c.UserID); ok {
				g.RemoveUserContact(u, c)
			}
		}
		g.Remove(c)
	}
	for _, r := range g.GivenRecords(p) {
		g.RemoveGivenRecord(p, r)
	}
	for _, r := range g.ReceivedRecords(p) {
		g.RemoveReceivedRecord(p, r)
	}
}
