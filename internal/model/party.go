package model

import "github.com/google/uuid"

// Party is the user profile data needed on contract documents and exports.
type Party struct {
	ID       uuid.UUID `json:"id"`
	FullName string    `json:"full_name"`
	Email    string    `json:"email,omitempty"`
	Phone    string    `json:"phone,omitempty"`
	Role     Role      `json:"role"`
}
