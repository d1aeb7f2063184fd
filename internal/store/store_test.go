package store_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"anoa.com/pharmatrade/internal/criteria"
	"anoa.com/pharmatrade/internal/entity"
	"anoa.com/pharmatrade/internal/store"
	"anoa.com/pharmatrade/internal/testutil"
	"anoa.com/pharmatrade/pkg/apperror"
)

func seedPharmacies(t *testing.T, db *gorm.DB) (*entity.User, []*entity.Pharmacy) {
	t.Helper()
	ctx := context.Background()

	users := store.NewRepo[entity.User](db, entity.UserSchema, "User")
	pharmacies := store.NewRepo[entity.Pharmacy](db, entity.PharmacySchema, "Pharmacy")

	alice := &entity.User{Username: "Alice", Email: "alice@example.com", PasswordHash: "x", Role: entity.RoleRegular}
	require.NoError(t, users.Insert(ctx, alice))

	names := []string{"North Care", "South Care", "East Health", "West Health", "Central Drugs"}
	var out []*entity.Pharmacy
	for i, name := range names {
		p := &entity.Pharmacy{Name: name}
		if i%2 == 0 {
			p.UserID = &alice.ID
		}
		require.NoError(t, pharmacies.Insert(ctx, p))
		out = append(out, p)
	}
	return alice, out
}

func TestRepoInsertStampsBase(t *testing.T) {
	db := testutil.NewDB(t)
	_, pharmacies := seedPharmacies(t, db)

	p := pharmacies[0]
	assert.NotZero(t, p.ID)
	assert.NotEqual(t, [16]byte{}, [16]byte(p.UUID))
	assert.False(t, p.CreatedAt.IsZero())
	assert.Equal(t, p.CreatedAt, p.UpdatedAt)
}

func TestRepoFindByID(t *testing.T) {
	db := testutil.NewDB(t)
	_, seeded := seedPharmacies(t, db)
	repo := store.NewRepo[entity.Pharmacy](db, entity.PharmacySchema, "Pharmacy")
	ctx := context.Background()

	got, err := repo.FindByID(ctx, seeded[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "South Care", got.Name)
	assert.True(t, entity.SameAs(seeded[1], got))

	_, err = repo.FindByID(ctx, 999)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestRepoFindByField(t *testing.T) {
	db := testutil.NewDB(t)
	seedPharmacies(t, db)
	repo := store.NewRepo[entity.Pharmacy](db, entity.PharmacySchema, "Pharmacy")
	ctx := context.Background()

	got, err := repo.FindByField(ctx, "name", "East Health")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "East Health", got.Name)

	missing, err := repo.FindByField(ctx, "name", "east health")
	require.NoError(t, err)
	assert.Nil(t, missing, "single field lookup is exact")

	_, err = repo.FindByField(ctx, "colour", "red")
	assert.ErrorIs(t, err, apperror.ErrInvalidArgument)
}

func TestRepoListCriteria(t *testing.T) {
	db := testutil.NewDB(t)
	alice, _ := seedPharmacies(t, db)
	repo := store.NewRepo[entity.Pharmacy](db, entity.PharmacySchema, "Pharmacy")
	ctx := context.Background()

	tests := []struct {
		name  string
		where criteria.Criteria
		want  []string
	}{
		{"all", nil, []string{"North Care", "South Care", "East Health", "West Health", "Central Drugs"}},
		{"fold equality", criteria.Criteria{"name": "NORTH CARE"}, []string{"North Care"}},
		{"pattern", criteria.Criteria{"name": "%health"}, []string{"East Health", "West Health"}},
		{"membership", criteria.Criteria{"name": []string{"North Care", "West Health", "Nowhere"}}, []string{"North Care", "West Health"}},
		{"navigated", criteria.Criteria{"user.username": "alice"}, []string{"North Care", "East Health", "Central Drugs"}},
		{"navigated pattern", criteria.Criteria{"user.username": "%LIC%", "name": "%care"}, []string{"North Care"}},
		{"owner key", criteria.Criteria{"user.id": alice.ID}, []string{"North Care", "East Health", "Central Drugs"}},
		{"no owner", criteria.Criteria{"user.id": criteria.NullValue}, []string{"South Care", "West Health"}},
		{"has owner", criteria.Criteria{"user.id": criteria.NotNullValue}, []string{"North Care", "East Health", "Central Drugs"}},
		{"incomparable range ignored", criteria.Criteria{"name": criteria.Range{From: 1, To: "z"}}, []string{"North Care", "South Care", "East Health", "West Health", "Central Drugs"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := repo.List(ctx, tt.where)
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(rows))
		})
	}
}

func TestRepoListNonASCIIName(t *testing.T) {
	db := testutil.NewDB(t)
	repo := store.NewRepo[entity.Pharmacy](db, entity.PharmacySchema, "Pharmacy")
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, &entity.Pharmacy{Name: "Φαρμακείο Αθηνών"}))
	require.NoError(t, repo.Insert(ctx, &entity.Pharmacy{Name: "Φαρμακείο Πειραιά"}))

	rows, err := repo.List(ctx, criteria.Criteria{"name": "Φαρμακείο Αθηνών"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Φαρμακείο Αθηνών"}, names(rows))

	rows, err = repo.List(ctx, criteria.Criteria{"name": "Φαρμακείο%"})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestRepoListUnknownPath(t *testing.T) {
	db := testutil.NewDB(t)
	repo := store.NewRepo[entity.Pharmacy](db, entity.PharmacySchema, "Pharmacy")

	_, err := repo.List(context.Background(), criteria.Criteria{"user.password": "x"})
	assert.ErrorIs(t, err, apperror.ErrInvalidArgument)
	assert.ErrorIs(t, err, criteria.ErrUnknownField)
}

func TestRepoListPageIsContiguous(t *testing.T) {
	db := testutil.NewDB(t)
	seedPharmacies(t, db)
	repo := store.NewRepo[entity.Pharmacy](db, entity.PharmacySchema, "Pharmacy")
	ctx := context.Background()

	all, err := repo.List(ctx, nil)
	require.NoError(t, err)

	for size := 1; size <= 6; size++ {
		for page := 0; page*size <= len(all); page++ {
			t.Run(fmt.Sprintf("page %d size %d", page, size), func(t *testing.T) {
				rows, err := repo.ListPage(ctx, nil, page, size)
				require.NoError(t, err)
				assert.LessOrEqual(t, len(rows), size)

				start := page * size
				end := min(start+size, len(all))
				assert.Equal(t, names(all[start:end]), names(rows))
			})
		}
	}
}

func TestRepoListPageRejectsBadArguments(t *testing.T) {
	db := testutil.NewDB(t)
	repo := store.NewRepo[entity.Pharmacy](db, entity.PharmacySchema, "Pharmacy")
	ctx := context.Background()

	_, err := repo.ListPage(ctx, nil, -1, 10)
	assert.ErrorIs(t, err, apperror.ErrInvalidArgument)

	_, err = repo.ListPage(ctx, nil, 0, 0)
	assert.ErrorIs(t, err, apperror.ErrInvalidArgument)
}

func TestRepoCountAndExists(t *testing.T) {
	db := testutil.NewDB(t)
	seedPharmacies(t, db)
	repo := store.NewRepo[entity.Pharmacy](db, entity.PharmacySchema, "Pharmacy")
	ctx := context.Background()

	n, err := repo.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	n, err = repo.Count(ctx, criteria.Criteria{"user.username": "Alice"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	ok, err := repo.Exists(ctx, criteria.Criteria{"name": "south care"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Exists(ctx, criteria.Criteria{"name": "Nowhere"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRepoRangeOnTime(t *testing.T) {
	db := testutil.NewDB(t)
	_, pharmacies := seedPharmacies(t, db)
	repo := store.NewRepo[entity.TradeRecord](db, entity.TradeRecordSchema, "TradeRecord")
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Insert(ctx, &entity.TradeRecord{
			Amount:          float64(10 * (i + 1)),
			TransactionDate: base.AddDate(0, 0, i),
			GiverID:         &pharmacies[0].ID,
			ReceiverID:      &pharmacies[1].ID,
		}))
	}

	rows, err := repo.List(ctx, criteria.Criteria{
		"transaction_date": criteria.Range{From: base.AddDate(0, 0, 1), To: base.AddDate(0, 0, 3)},
	})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, 20.0, rows[0].Amount)

	rows, err = repo.List(ctx, criteria.Criteria{"amount": map[string]any{"from": 35, "to": 100}})
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rows, err = repo.Find(ctx, store.Query{
		Where: criteria.Criteria{"giver.name": "north care"},
		Order: []criteria.OrderBy{{Path: "transaction_date", Desc: true}},
		Limit: 2,
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 50.0, rows[0].Amount)
	assert.Equal(t, 40.0, rows[1].Amount)
}

func TestTxManagerRollsBack(t *testing.T) {
	db := testutil.NewDB(t)
	seedPharmacies(t, db)
	tm := store.NewTxManager(db)
	ctx := context.Background()

	err := tm.Do(ctx, func(ctx context.Context, uow *store.UnitOfWork) error {
		uow.Graph.Add(&entity.Pharmacy{Name: "Pending"})
		if err := uow.Flush(ctx); err != nil {
			return err
		}
		return apperror.NotAuthorized("Pharmacy", "nope")
	})
	assert.ErrorIs(t, err, apperror.ErrNotAuthorized)

	err = tm.Do(ctx, func(ctx context.Context, uow *store.UnitOfWork) error {
		return errors.New("driver exploded")
	})
	assert.ErrorIs(t, err, apperror.ErrServer)

	var n int64
	require.NoError(t, db.Model(&entity.Pharmacy{}).Count(&n).Error)
	assert.Equal(t, int64(5), n)
}

func TestTxManagerLogsOnlyServerErrors(t *testing.T) {
	db := testutil.NewDB(t)
	tm := store.NewTxManager(db)
	ctx := context.Background()

	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	err := tm.Do(ctx, func(ctx context.Context, uow *store.UnitOfWork) error {
		_, err := uow.Pharmacy(ctx, 999)
		return err
	})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.Empty(t, buf.String())

	err = tm.Do(ctx, func(ctx context.Context, uow *store.UnitOfWork) error {
		return errors.New("driver exploded")
	})
	assert.ErrorIs(t, err, apperror.ErrServer)
	assert.Contains(t, buf.String(), "driver exploded")
}

func TestUnitOfWorkFlushesGraph(t *testing.T) {
	db := testutil.NewDB(t)
	tm := store.NewTxManager(db)
	ctx := context.Background()

	var pharmacyID uint
	err := tm.Do(ctx, func(ctx context.Context, uow *store.UnitOfWork) error {
		owner := &entity.User{Username: "bob", Email: "bob@example.com", PasswordHash: "x", Role: entity.RoleRegular}
		p := &entity.Pharmacy{Name: "Bob's"}
		uow.Graph.Add(owner)
		uow.Graph.Add(p)
		uow.Graph.AddPharmacy(owner, p)
		if err := uow.Flush(ctx); err != nil {
			return err
		}
		pharmacyID = p.ID
		return nil
	})
	require.NoError(t, err)

	err = tm.Do(ctx, func(ctx context.Context, uow *store.UnitOfWork) error {
		p, err := uow.Pharmacy(ctx, pharmacyID)
		if err != nil {
			return err
		}
		require.NotNil(t, p.UserID)

		owner, err := uow.User(ctx, *p.UserID)
		if err != nil {
			return err
		}
		owned, err := uow.PharmaciesOf(ctx, owner)
		if err != nil {
			return err
		}
		require.Len(t, owned, 1)
		assert.Same(t, p, owned[0], "the graph hands out one instance per row")

		uow.Graph.DetachPharmacy(p)
		uow.Graph.Remove(p)
		return nil
	})
	require.NoError(t, err)

	var n int64
	require.NoError(t, db.Model(&entity.Pharmacy{}).Count(&n).Error)
	assert.Zero(t, n)
}

func names(rows []*entity.Pharmacy) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Name
	}
	return out
}

func TestUnitOfWorkAddLoadsCollectionFirst(t *testing.T) {
	db := testutil.NewDB(t)
	alice, _ := seedPharmacies(t, db)
	tm := store.NewTxManager(db)
	ctx := context.Background()

	err := tm.Do(ctx, func(ctx context.Context, uow *store.UnitOfWork) error {
		owner, err := uow.User(ctx, alice.ID)
		if err != nil {
			return err
		}
		p := &entity.Pharmacy{Base: entity.NewBase(), Name: "Harbour Drugs"}
		uow.Graph.Add(p)
		if err := uow.AddPharmacy(ctx, owner, p); err != nil {
			return err
		}

		owned, err := uow.PharmaciesOf(ctx, owner)
		if err != nil {
			return err
		}
		assert.Len(t, owned, 4)
		return nil
	})
	require.NoError(t, err)

	var n int64
	require.NoError(t, db.Model(&entity.Pharmacy{}).Where("user_id = ?", alice.ID).Count(&n).Error)
	assert.Equal(t, int64(4), n)
}
