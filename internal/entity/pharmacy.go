package entity

type Pharmacy struct {
	Base
	Name   string `gorm:"size:150;uniqueIndex;not null" json:"name"`
	UserID *uint  `gorm:"index" json:"user_id"`
}

func (*Pharmacy) TableName() string { return "pharmacies" }

// OwnedBy reports whether userID is the pharmacy's owner. A nil pharmacy or
// one without an owner is owned by nobody.
func (p *Pharmacy) OwnedBy(userID uint) bool {
	return p != nil && p.UserID != nil && *p.UserID == userID
}
