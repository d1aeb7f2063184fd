package entity

import (
	"time"

	"github.com/google/uuid"
)

// Base is embedded by value in every entity. UUID is the identity used for
// equality; ID is only the storage key.
type Base struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UUID      uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"uuid"`
	CreatedAt time.Time `gorm:"autoCreateTime:false;not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime:false;not null" json:"updated_at"`
}

// Entity is implemented by every persisted type through its embedded Base.
type Entity interface {
	Meta() *Base
	TableName() string
}

func NewBase() Base {
	return Base{UUID: uuid.New()}
}

func (b *Base) Meta() *Base { return b }

// PreInsert assigns the surrogate identity and both timestamps. The store
// calls it right before the row is written.
func (b *Base) PreInsert(now time.Time) {
	if b.UUID == uuid.Nil {
		b.UUID = uuid.New()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
}

// PreUpdate refreshes the modification timestamp.
func (b *Base) PreUpdate(now time.Time) {
	b.UpdatedAt = now
}

// SameAs reports whether a and b are the same entity. Values without an
// identity yet are never equal, not even to themselves.
func SameAs(a, b Entity) bool {
	if a == nil || b == nil {
		return false
	}
	ua, ub := a.Meta().UUID, b.Meta().UUID
	if ua == uuid.Nil || ub == uuid.Nil {
		return false
	}
	return a.TableName() == b.TableName() && ua == ub
}
