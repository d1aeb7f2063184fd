package pharmacy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"anoa.com/pharmatrade/internal/entity"
	"anoa.com/pharmatrade/internal/modules/pharmacy/dto"
	search "anoa.com/pharmatrade/internal/modules/search/service"
	"anoa.com/pharmatrade/internal/store"
	"anoa.com/pharmatrade/internal/testutil"
	"anoa.com/pharmatrade/pkg/apperror"
)

type fakeSearch struct {
	enabled bool
	failing bool
	indexed []search.PharmacyDocument
	deleted []uint
}

func (f *fakeSearch) IndexPharmacies(docs ...search.PharmacyDocument) error {
	f.indexed = append(f.indexed, docs...)
	return nil
}

func (f *fakeSearch) DeletePharmacies(ids ...uint) error {
	f.deleted = append(f.deleted, ids...)
	return nil
}

func (f *fakeSearch) SearchPharmacies(query string, limit int) ([]search.PharmacyDocument, error) {
	if f.failing {
		return nil, errors.New("index unavailable")
	}
	return []search.PharmacyDocument{{ID: 42, Name: "From Index", Owner: "nobody"}}, nil
}

func (f *fakeSearch) Enabled() bool { return f.enabled }

func newService(t *testing.T) (PharmacyService, *gorm.DB, *fakeSearch) {
	t.Helper()
	db := testutil.NewDB(t)
	fake := &fakeSearch{}
	return NewPharmacyService(store.NewTxManager(db), fake), db, fake
}

func TestCreate(t *testing.T) {
	svc, db, fake := newService(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice", entity.RoleRegular)

	res, err := svc.Create(ctx, alice.ID, dto.CreatePharmacyRequest{Name: "  <b>Central</b>  Care "})
	require.NoError(t, err)
	assert.Equal(t, "Central Care", res.Name)
	assert.Equal(t, "alice", res.OwnerUsername)
	require.NotNil(t, res.OwnerID)
	assert.Equal(t, alice.ID, *res.OwnerID)

	require.Len(t, fake.indexed, 1)
	assert.Equal(t, res.ID, fake.indexed[0].ID)

	_, err = svc.Create(ctx, alice.ID, dto.CreatePharmacyRequest{Name: "Central Care"})
	assert.ErrorIs(t, err, apperror.ErrAlreadyExists)

	_, err = svc.Create(ctx, 999, dto.CreatePharmacyRequest{Name: "Ghost"})
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = svc.Create(ctx, alice.ID, dto.CreatePharmacyRequest{Name: "<p></p>"})
	assert.ErrorIs(t, err, apperror.ErrInvalidArgument)
}

func TestUpdateAuthorization(t *testing.T) {
	svc, db, _ := newService(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice", entity.RoleRegular)
	bob := testutil.CreateUser(t, db, "bob", entity.RoleRegular)
	admin := testutil.CreateUser(t, db, "root", entity.RoleAdmin)
	p := testutil.CreatePharmacy(t, db, "Alpha", alice)
	testutil.CreatePharmacy(t, db, "Beta", bob)

	_, err := svc.Update(ctx, bob.ID, p.ID, dto.UpdatePharmacyRequest{Name: "Stolen"})
	assert.ErrorIs(t, err, apperror.ErrNotAuthorized)

	_, err = svc.Update(ctx, alice.ID, p.ID, dto.UpdatePharmacyRequest{Name: "Beta"})
	assert.ErrorIs(t, err, apperror.ErrAlreadyExists)

	res, err := svc.Update(ctx, alice.ID, p.ID, dto.UpdatePharmacyRequest{Name: "Alpha"})
	require.NoError(t, err, "keeping its own name is not a conflict")
	assert.Equal(t, "Alpha", res.Name)

	res, err = svc.Update(ctx, admin.ID, p.ID, dto.UpdatePharmacyRequest{Name: "Alpha Prime"})
	require.NoError(t, err)
	assert.Equal(t, "Alpha Prime", res.Name)
	assert.Equal(t, "alice", res.OwnerUsername)
}

func TestDeleteCascades(t *testing.T) {
	svc, db, fake := newService(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice", entity.RoleRegular)
	bob := testutil.CreateUser(t, db, "bob", entity.RoleRegular)
	a := testutil.CreatePharmacy(t, db, "Alpha", alice)
	b := testutil.CreatePharmacy(t, db, "Beta", bob)
	testutil.CreateContact(t, db, bob, a, "Alpha desk")
	keep := testutil.CreateContact(t, db, alice, b, "Beta desk")
	given := testutil.CreateRecord(t, db, a, b, alice, 10, time.Now().Add(-time.Hour))
	received := testutil.CreateRecord(t, db, b, a, bob, 20, time.Now().Add(-time.Hour))

	err := svc.Delete(ctx, bob.ID, a.ID)
	assert.ErrorIs(t, err, apperror.ErrNotAuthorized)

	require.NoError(t, svc.Delete(ctx, alice.ID, a.ID))
	assert.Equal(t, []uint{a.ID}, fake.deleted)

	var n int64
	require.NoError(t, db.Model(&entity.Pharmacy{}).Where("id = ?", a.ID).Count(&n).Error)
	assert.Zero(t, n)

	var contacts []entity.PharmacyContact
	require.NoError(t, db.Find(&contacts).Error)
	require.Len(t, contacts, 1)
	assert.Equal(t, keep.ID, contacts[0].ID)

	var g, r entity.TradeRecord
	require.NoError(t, db.First(&g, given.ID).Error)
	require.NoError(t, db.First(&r, received.ID).Error)
	assert.Nil(t, g.GiverID)
	assert.Equal(t, b.ID, *g.ReceiverID)
	assert.Nil(t, r.ReceiverID)
	assert.Equal(t, b.ID, *r.GiverID)
}

func TestQueries(t *testing.T) {
	svc, db, _ := newService(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice", entity.RoleRegular)
	bob := testutil.CreateUser(t, db, "bob", entity.RoleRegular)
	testutil.CreatePharmacy(t, db, "North Care", alice)
	testutil.CreatePharmacy(t, db, "South Care", bob)
	testutil.CreatePharmacy(t, db, "East Health", alice)
	testutil.CreatePharmacy(t, db, "Orphan", nil)

	got, err := svc.GetByName(ctx, "South Care")
	require.NoError(t, err)
	assert.Equal(t, "bob", got.OwnerUsername)

	_, err = svc.GetByName(ctx, "south care")
	assert.ErrorIs(t, err, apperror.ErrNotFound, "exact lookup is case-sensitive")

	byName, err := svc.SearchByName(ctx, "CARE")
	require.NoError(t, err)
	assert.Len(t, byName, 2)

	byUser, err := svc.SearchByUser(ctx, "ALICE")
	require.NoError(t, err)
	require.Len(t, byUser, 2)
	assert.Equal(t, "East Health", byUser[0].Name)

	all, err := svc.List(ctx, dto.PharmacyFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "", all[2].OwnerUsername)

	n, err := svc.Count(ctx, dto.PharmacyFilter{Owner: "alice", Name: "north"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	page, err := svc.ListPaginated(ctx, dto.PharmacyFilter{}, 1, 3)
	require.NoError(t, err)
	assert.Len(t, page.Data, 1)
	assert.Equal(t, int64(4), page.Meta.TotalItems)

	ok, err := svc.NameExists(ctx, "Orphan")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSearchFallsBackToDatabase(t *testing.T) {
	svc, db, fake := newService(t)
	ctx := context.Background()
	testutil.CreatePharmacy(t, db, "North Care", nil)

	res, err := svc.Search(ctx, dto.SearchQuery{Q: "north"})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "North Care", res[0].Name)

	fake.enabled = true
	res, err = svc.Search(ctx, dto.SearchQuery{Q: "north"})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "From Index", res[0].Name)

	fake.failing = true
	res, err = svc.Search(ctx, dto.SearchQuery{Q: "north"})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "North Care", res[0].Name)
}
