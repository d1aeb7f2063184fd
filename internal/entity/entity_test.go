package entity

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreInsert(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	u := &User{Username: "alice"}

	u.PreInsert(now)

	assert.NotEqual(t, uuid.Nil, u.UUID)
	assert.Equal(t, now, u.CreatedAt)
	assert.Equal(t, now, u.UpdatedAt)

	id := u.UUID
	later := now.Add(time.Hour)
	u.PreUpdate(later)
	assert.Equal(t, id, u.UUID)
	assert.Equal(t, now, u.CreatedAt)
	assert.Equal(t, later, u.UpdatedAt)
}

func TestSameAs(t *testing.T) {
	a := &Pharmacy{Base: NewBase(), Name: "North"}
	partial := &Pharmacy{Base: Base{ID: 9, UUID: a.UUID}}

	assert.True(t, SameAs(a, partial), "same identity regardless of loaded fields")
	assert.False(t, SameAs(a, &Pharmacy{Base: NewBase(), Name: "North"}))

	fresh := &Pharmacy{Name: "South"}
	assert.False(t, SameAs(fresh, fresh), "unsaved values are never equal")
	assert.False(t, SameAs(a, nil))

	u := &User{Base: Base{UUID: a.UUID}}
	assert.False(t, SameAs(a, u), "different tables")
}

func TestPharmacyOwnedBy(t *testing.T) {
	owner := uint(3)
	p := &Pharmacy{UserID: &owner}

	assert.True(t, p.OwnedBy(3))
	assert.False(t, p.OwnedBy(4))
	assert.False(t, (&Pharmacy{}).OwnedBy(3))

	var missing *Pharmacy
	assert.False(t, missing.OwnedBy(3))
}

func TestMarkDeleted(t *testing.T) {
	tests := []struct {
		name              string
		giver, receiver   bool
		side              Side
		wantGiver, wantRx bool
		wantBoth          bool
	}{
		{"fresh by giver", false, false, SideGiver, true, false, false},
		{"fresh by receiver", false, false, SideReceiver, false, true, false},
		{"giver twice", true, false, SideGiver, true, false, false},
		{"receiver completes", true, false, SideReceiver, true, true, true},
		{"giver completes", false, true, SideGiver, true, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &TradeRecord{DeletedByGiver: tt.giver, DeletedByReceiver: tt.receiver}
			assert.Equal(t, tt.wantBoth, r.MarkDeleted(tt.side))
			assert.Equal(t, tt.wantGiver, r.DeletedByGiver)
			assert.Equal(t, tt.wantRx, r.DeletedByReceiver)
		})
	}
}

func TestSchemas(t *testing.T) {
	field, err := PharmacySchema.Resolve("user.username")
	require.NoError(t, err)
	assert.Equal(t, "j_user.username", field.Column)

	field, err = TradeRecordSchema.Resolve("giver.user.username")
	require.NoError(t, err)
	assert.Equal(t, "j_giver_user.username", field.Column)
	require.Len(t, field.Joins, 2)
	assert.Equal(t, "pharmacies", field.Joins[0].Table)
	assert.Equal(t, "users", field.Joins[1].Table)

	field, err = ContactSchema.Resolve("pharmacy.id")
	require.NoError(t, err)
	assert.Equal(t, "pharmacy_contacts.pharmacy_id", field.Column)
	assert.Empty(t, field.Joins)
}
