package dto

import (
	"time"

	"github.com/google/uuid"

	commonDto "anoa.com/pharmatrade/pkg/dto"
)

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Email    string `json:"email" binding:"required,email,max=100"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

// UpdateUserRequest leaves fields that are nil untouched. Only admins may
// change a role.
type UpdateUserRequest struct {
	Username *string `json:"username" binding:"omitempty,min=3,max=50"`
	Email    *string `json:"email" binding:"omitempty,email,max=100"`
	Password *string `json:"password" binding:"omitempty,min=8,max=72"`
	Role     *string `json:"role" binding:"omitempty,oneof=regular admin"`
}

type UserResponse struct {
	ID        uint      `json:"id"`
	UUID      uuid.UUID `json:"uuid"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// UserFilter binds list filters. Username and email match as substrings.
type UserFilter struct {
	Username string `form:"username"`
	Email    string `form:"email"`
	Role     string `form:"role" binding:"omitempty,oneof=regular admin"`
	commonDto.PageQuery
}

type PaginatedUserResponse struct {
	Data []UserResponse           `json:"data"`
	Meta commonDto.PaginationMeta `json:"meta"`
}

type PharmacySummary struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type ContactSummary struct {
	ID           uint   `json:"id"`
	ContactName  string `json:"contact_name"`
	PharmacyID   *uint  `json:"pharmacy_id"`
	PharmacyName string `json:"pharmacy_name"`
}

type ExistsResponse struct {
	Exists bool `json:"exists"`
}
