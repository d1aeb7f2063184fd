package dto

import (
	"time"

	"github.com/google/uuid"

	commonDto "anoa.com/pharmatrade/pkg/dto"
)

type CreatePharmacyRequest struct {
	Name string `json:"name" binding:"required,max=150"`
}

type UpdatePharmacyRequest struct {
	Name string `json:"name" binding:"required,max=150"`
}

type PharmacyResponse struct {
	ID            uint      `json:"id"`
	UUID          uuid.UUID `json:"uuid"`
	Name          string    `json:"name"`
	OwnerID       *uint     `json:"owner_id"`
	OwnerUsername string    `json:"owner_username"`
	CreatedAt     time.Time `json:"created_at"`
}

// PharmacyFilter binds list filters. Name matches as a substring, owner is
// the exact owner username.
type PharmacyFilter struct {
	Name  string `form:"name"`
	Owner string `form:"owner"`
	commonDto.PageQuery
}

type PaginatedPharmacyResponse struct {
	Data []PharmacyResponse       `json:"data"`
	Meta commonDto.PaginationMeta `json:"meta"`
}

type SearchQuery struct {
	Q     string `form:"q" binding:"required"`
	Limit int    `form:"limit" binding:"omitempty,min=1,max=50"`
}

type SearchResult struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Owner string `json:"owner"`
}
