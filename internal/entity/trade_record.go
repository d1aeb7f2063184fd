package entity

import "time"

type TradeRecord struct {
	Base
	Description       string    `gorm:"type:text" json:"description"`
	Amount            float64   `gorm:"type:decimal(14,2);not null" json:"amount"`
	TransactionDate   time.Time `gorm:"index;not null" json:"transaction_date"`
	GiverID           *uint     `gorm:"index" json:"giver_id"`
	ReceiverID        *uint     `gorm:"index" json:"receiver_id"`
	RecorderID        *uint     `gorm:"index" json:"recorder_id"`
	LastModifiedByID  *uint     `gorm:"index" json:"last_modified_by_id"`
	DeletedByGiver    bool      `gorm:"not null;default:false" json:"deleted_by_giver"`
	DeletedByReceiver bool      `gorm:"not null;default:false" json:"deleted_by_receiver"`
}

func (*TradeRecord) TableName() string { return "trade_records" }

// Side is the party of a trade record acting on it.
type Side int

const (
	SideNone Side = iota
	SideGiver
	SideReceiver
)

// MarkDeleted sets the flag of side and reports whether both parties have
// now asked for deletion.
func (r *TradeRecord) MarkDeleted(side Side) bool {
	switch side {
	case SideGiver:
		r.DeletedByGiver = true
	case SideReceiver:
		r.DeletedByReceiver = true
	}
	return r.DeletedByGiver && r.DeletedByReceiver
}
