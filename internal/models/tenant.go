package models

import "time"

type TenantStatus string

const (
	TenantRenting     TenantStatus = "renting"
	TenantVacated     TenantStatus = "vacated"
	TenantNeverRented TenantStatus = "never_rented"
)

// Tenant (khách thuê) is a person renting or having rented a room.
type Tenant struct {
	Base        `bson:",inline"`
	FullName    string       `bson:"full_name" json:"full_name"`
	Phone       string       `bson:"phone" json:"phone"`
	Email       string       `bson:"email,omitempty" json:"email,omitempty"`
	IDNumber    string       `bson:"id_number" json:"id_number"` // CCCD/CMND
	DateOfBirth *time.Time   `bson:"date_of_birth,omitempty" json:"date_of_birth,omitempty"`
	Hometown    string       `bson:"hometown,omitempty" json:"hometown,omitempty"`
	Occupation  string       `bson:"occupation,omitempty" json:"occupation,omitempty"`
	Status      TenantStatus `bson:"status" json:"status"` // Cached, see Room.Status
}
