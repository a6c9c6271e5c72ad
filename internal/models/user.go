package models

import "trohub/app/internal/utils"

// Role defines what a staff account may do.
type Role string

const (
	RoleAdmin    Role = "admin"    // Everything, across all owners
	RoleLandlord Role = "landlord" // Owns buildings; mutates only their own
	RoleStaff    Role = "staff"    // Day-to-day operations on the landlord's buildings
)

// User represents a staff account able to sign in.
type User struct {
	Base         `bson:",inline"`
	Name         string      `bson:"name" json:"name"`
	Email        string      `bson:"email" json:"email"`
	Phone        string      `bson:"phone,omitempty" json:"phone,omitempty"`
	PasswordHash string      `bson:"password" json:"-"` // Store hash, not plaintext
	Role         Role        `bson:"role" json:"role"`
	ManagerID    utils.SixID `bson:"manager_id,omitempty" json:"manager_id,omitempty"` // Landlord a staff member works for
	Suspended    bool        `bson:"suspended" json:"suspended"`
	Deleted      bool        `bson:"deleted" json:"-"` // Soft delete flag
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// OwnerScope is the landlord whose buildings the user may mutate.
func (u *User) OwnerScope() utils.SixID {
	if u.Role == RoleStaff && !u.ManagerID.IsZero() {
		return u.ManagerID
	}
	return u.ID
}
