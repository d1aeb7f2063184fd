package testutil

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"anoa.com/pharmatrade/internal/entity"
)

// Password is the plain password of every fixture user.
const Password = "password123"

func insert(t testing.TB, db *gorm.DB, e entity.Entity) {
	t.Helper()
	e.Meta().PreInsert(time.Now().UTC())
	require.NoError(t, db.Create(e).Error)
}

func CreateUser(t testing.TB, db *gorm.DB, username string, role entity.Role) *entity.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	require.NoError(t, err)

	u := &entity.User{
		Username:     username,
		Email:        strings.ToLower(username) + "@example.com",
		PasswordHash: string(hash),
		Role:         role,
	}
	insert(t, db, u)
	return u
}

// CreatePharmacy inserts a pharmacy owned by owner, or by nobody when owner
// is nil.
func CreatePharmacy(t testing.TB, db *gorm.DB, name string, owner *entity.User) *entity.Pharmacy {
	t.Helper()
	p := &entity.Pharmacy{Name: name}
	if owner != nil {
		p.UserID = &owner.ID
	}
	insert(t, db, p)
	return p
}

func CreateContact(t testing.TB, db *gorm.DB, owner *entity.User, p *entity.Pharmacy, name string) *entity.PharmacyContact {
	t.Helper()
	c := &entity.PharmacyContact{UserID: &owner.ID, PharmacyID: &p.ID, ContactName: name}
	insert(t, db, c)
	return c
}

func CreateRecord(t testing.TB, db *gorm.DB, giver, receiver *entity.Pharmacy, recorder *entity.User, amount float64, at time.Time) *entity.TradeRecord {
	t.Helper()
	r := &entity.TradeRecord{
		Description:      "fixture trade",
		Amount:           amount,
		TransactionDate:  at.UTC(),
		GiverID:          &giver.ID,
		ReceiverID:       &receiver.ID,
		RecorderID:       &recorder.ID,
		LastModifiedByID: &recorder.ID,
	}
	insert(t, db, r)
	return r
}
