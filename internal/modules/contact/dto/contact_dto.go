package dto

import "time"

type CreateContactRequest struct {
	PharmacyID  uint   `json:"pharmacy_id" binding:"required"`
	ContactName string `json:"contact_name" binding:"required,max=55"`
}

type UpdateContactRequest struct {
	ContactName string `json:"contact_name" binding:"required,max=55"`
}

type ContactResponse struct {
	ID           uint      `json:"id"`
	UserID       *uint     `json:"user_id"`
	Username     string    `json:"username"`
	PharmacyID   *uint     `json:"pharmacy_id"`
	PharmacyName string    `json:"pharmacy_name"`
	ContactName  string    `json:"contact_name"`
	CreatedAt    time.Time `json:"created_at"`
}

// ContactFilter binds list filters; both match as substrings.
type ContactFilter struct {
	ContactName  string `form:"contact_name"`
	PharmacyName string `form:"pharmacy_name"`
}
