package model

import "github.com/google/uuid"

type Role string

const (
	RoleClient       Role = "CLIENT"
	RolePhotographer Role = "PHOTOGRAPHER"
	RoleAdmin        Role = "ADMIN"
)

// Principal is the authenticated identity carried through every operation.
// There is no ambient session state; handlers resolve it from the request
// token and pass it down explicitly.
type Principal struct {
	UserID uuid.UUID
	Role   Role
}

func (p Principal) IsClient() bool       { return p.Role == RoleClient }
func (p Principal) IsPhotographer() bool { return p.Role == RolePhotographer }
func (p Principal) IsAdmin() bool        { return p.Role == RoleAdmin }
