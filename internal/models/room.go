package models

import "trohub/app/internal/utils"

// RoomStatus is derived from contracts, except RoomMaintenance which staff set by hand.
type RoomStatus string

const (
	RoomVacant      RoomStatus = "vacant"
	RoomReserved    RoomStatus = "reserved"
	RoomOccupied    RoomStatus = "occupied"
	RoomMaintenance RoomStatus = "maintenance"
)

// Room (phòng) is a rentable unit of a building.
type Room struct {
	Base        `bson:",inline"`
	BuildingID  utils.SixID `bson:"building_id" json:"building_id"`
	Code        string      `bson:"code" json:"code"` // e.g. "P101", unique per building
	Floor       int         `bson:"floor" json:"floor"`
	Area        float64     `bson:"area" json:"area"` // m²
	BaseRent    int64       `bson:"base_rent" json:"base_rent"`
	Deposit     int64       `bson:"deposit" json:"deposit"`
	MaxTenants  int         `bson:"max_tenants" json:"max_tenants"`
	Description string      `bson:"description,omitempty" json:"description,omitempty"`
	Amenities   []string    `bson:"amenities,omitempty" json:"amenities,omitempty"`
	// Status is a cached value of the contract-derived status, refreshed whenever the room is read
	// or one of its contracts is written.
	Status RoomStatus `bson:"status" json:"status"`
}
