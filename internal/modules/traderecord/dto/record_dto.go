package dto

import (
	"time"

	commonDto "anoa.com/pharmatrade/pkg/dto"
)

type CreateRecordRequest struct {
	Description     string    `json:"description" binding:"required,min=2,max=255"`
	Amount          float64   `json:"amount" binding:"required,gt=0"`
	TransactionDate time.Time `json:"transaction_date" binding:"required,notfuture"`
	GiverID         uint      `json:"giver_id" binding:"required"`
	ReceiverID      uint      `json:"receiver_id" binding:"required,nefield=GiverID"`
}

// UpdateRecordRequest replaces every editable field of a record.
type UpdateRecordRequest struct {
	Description     string    `json:"description" binding:"required,min=2,max=255"`
	Amount          float64   `json:"amount" binding:"required,gt=0"`
	TransactionDate time.Time `json:"transaction_date" binding:"required,notfuture"`
	GiverID         uint      `json:"giver_id" binding:"required"`
	ReceiverID      uint      `json:"receiver_id" binding:"required,nefield=GiverID"`
}

type RecordResponse struct {
	ID                     uint      `json:"id"`
	Description            string    `json:"description"`
	Amount                 float64   `json:"amount"`
	GiverID                *uint     `json:"giver_id"`
	GiverName              string    `json:"giver_name"`
	ReceiverID             *uint     `json:"receiver_id"`
	ReceiverName           string    `json:"receiver_name"`
	RecorderUsername       string    `json:"recorder_username"`
	LastModifiedByUsername string    `json:"last_modified_by_username"`
	TransactionDate        time.Time `json:"transaction_date"`
	DeletedByGiver         bool      `json:"deleted_by_giver"`
	DeletedByReceiver      bool      `json:"deleted_by_receiver"`
}

// RecordFilter binds list filters. Description and the pharmacy names match
// as substrings; From and To bound the transaction date together.
type RecordFilter struct {
	Description  string    `form:"description"`
	GiverID      uint      `form:"giver_id"`
	ReceiverID   uint      `form:"receiver_id"`
	GiverName    string    `form:"giver_name"`
	ReceiverName string    `form:"receiver_name"`
	From         time.Time `form:"from" time_format:"2006-01-02"`
	To           time.Time `form:"to" time_format:"2006-01-02"`
	commonDto.PageQuery
}

type PaginatedRecordResponse struct {
	Data []RecordResponse         `json:"data"`
	Meta commonDto.PaginationMeta `json:"meta"`
}

type DeleteRecordResponse struct {
	Removed bool `json:"removed"`
}

// PairQuery names the two pharmacies of a balance or history request. The
// figures are from the point of view of PharmacyID.
type PairQuery struct {
	PharmacyID     uint      `form:"pharmacy_id" binding:"required"`
	CounterpartyID uint      `form:"counterparty_id" binding:"required,nefield=PharmacyID"`
	From           time.Time `form:"from" time_format:"2006-01-02"`
	To             time.Time `form:"to" time_format:"2006-01-02"`
	Limit          int       `form:"limit" binding:"omitempty,min=1,max=100"`
}

type RecentQuery struct {
	PharmacyID uint `form:"pharmacy_id" binding:"required"`
	Limit      int  `form:"limit" binding:"omitempty,min=1,max=100"`
}

type BalanceListQuery struct {
	PharmacyID uint   `form:"pharmacy_id" binding:"required"`
	SortBy     string `form:"sort_by" binding:"omitempty,oneof=name amount"`
}

// BalanceResponse is the standing of one pharmacy against a counterparty:
// received minus given.
type BalanceResponse struct {
	ContactName  string           `json:"contact_name"`
	PharmacyName string           `json:"pharmacy_name"`
	PharmacyID   uint             `json:"pharmacy_id"`
	Amount       float64          `json:"amount"`
	RecentTrades []RecordResponse `json:"recent_trades"`
	TradeCount   int              `json:"trade_count"`
}
