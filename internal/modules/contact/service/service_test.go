package contact

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"anoa.com/pharmatrade/internal/entity"
	"anoa.com/pharmatrade/internal/modules/contact/dto"
	"anoa.com/pharmatrade/internal/store"
	"anoa.com/pharmatrade/internal/testutil"
	"anoa.com/pharmatrade/pkg/apperror"
)

func newService(t *testing.T) (ContactService, *gorm.DB) {
	t.Helper()
	db := testutil.NewDB(t)
	return NewContactService(store.NewTxManager(db)), db
}

func TestCreateContact(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice", entity.RoleRegular)
	p := testutil.CreatePharmacy(t, db, "Beta", nil)

	res, err := svc.Create(ctx, alice.ID, dto.CreateContactRequest{PharmacyID: p.ID, ContactName: "Beta front desk"})
	require.NoError(t, err)
	assert.NotZero(t, res.ID)
	assert.Equal(t, "alice", res.Username)
	assert.Equal(t, "Beta", res.PharmacyName)
	require.NotNil(t, res.UserID)
	assert.Equal(t, alice.ID, *res.UserID)

	ok, err := svc.Exists(ctx, alice.ID, p.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCreateDuplicateContact(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice", entity.RoleRegular)
	p := testutil.CreatePharmacy(t, db, "Beta", nil)
	testutil.CreateContact(t, db, alice, p, "first")

	_, err := svc.Create(ctx, alice.ID, dto.CreateContactRequest{PharmacyID: p.ID, ContactName: "second"})
	assert.ErrorIs(t, err, apperror.ErrAlreadyExists)

	var n int64
	require.NoError(t, db.Model(&entity.PharmacyContact{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)

	_, err = svc.Create(ctx, alice.ID, dto.CreateContactRequest{PharmacyID: 999, ContactName: "ghost"})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestUpdateAndDeleteAuthorization(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice", entity.RoleRegular)
	bob := testutil.CreateUser(t, db, "bob", entity.RoleRegular)
	admin := testutil.CreateUser(t, db, "root", entity.RoleAdmin)
	p := testutil.CreatePharmacy(t, db, "Beta", bob)
	c := testutil.CreateContact(t, db, alice, p, "Beta")

	_, err := svc.Update(ctx, bob.ID, c.ID, dto.UpdateContactRequest{ContactName: "mine now"})
	assert.ErrorIs(t, err, apperror.ErrNotAuthorized)

	res, err := svc.Update(ctx, alice.ID, c.ID, dto.UpdateContactRequest{ContactName: "Beta (night)"})
	require.NoError(t, err)
	assert.Equal(t, "Beta (night)", res.ContactName)
	assert.Equal(t, "Beta", res.PharmacyName)

	_, err = svc.GetByID(ctx, bob.ID, c.ID)
	assert.ErrorIs(t, err, apperror.ErrNotAuthorized)

	assert.ErrorIs(t, svc.Delete(ctx, bob.ID, c.ID), apperror.ErrNotAuthorized)
	require.NoError(t, svc.Delete(ctx, admin.ID, c.ID))

	ok, err := svc.Exists(ctx, alice.ID, p.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	var pharmacy entity.Pharmacy
	require.NoError(t, db.First(&pharmacy, p.ID).Error)
	assert.Equal(t, bob.ID, *pharmacy.UserID, "deleting a contact leaves the pharmacy alone")
}

func TestListContacts(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice", entity.RoleRegular)
	bob := testutil.CreateUser(t, db, "bob", entity.RoleRegular)
	admin := testutil.CreateUser(t, db, "root", entity.RoleAdmin)
	north := testutil.CreatePharmacy(t, db, "North Care", nil)
	south := testutil.CreatePharmacy(t, db, "South Health", nil)
	testutil.CreateContact(t, db, alice, north, "Nora")
	testutil.CreateContact(t, db, alice, south, "Sam")
	testutil.CreateContact(t, db, bob, north, "North")

	own, err := svc.List(ctx, alice.ID, dto.ContactFilter{})
	require.NoError(t, err)
	require.Len(t, own, 2)
	assert.Equal(t, "Nora", own[0].ContactName)
	assert.Equal(t, "North Care", own[0].PharmacyName)

	filtered, err := svc.List(ctx, alice.ID, dto.ContactFilter{PharmacyName: "health"})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "Sam", filtered[0].ContactName)

	all, err := svc.List(ctx, admin.ID, dto.ContactFilter{PharmacyName: "north"})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
