package entity

// PharmacyContact is a user's own label for a pharmacy. One per pair.
type PharmacyContact struct {
	Base
	UserID      *uint  `gorm:"uniqueIndex:idx_contact_pair,priority:1" json:"user_id"`
	PharmacyID  *uint  `gorm:"uniqueIndex:idx_contact_pair,priority:2;index" json:"pharmacy_id"`
	ContactName string `gorm:"size:150;not null" json:"contact_name"`
}

func (*PharmacyContact) TableName() string { return "pharmacy_contacts" }
