package models

import "trohub/app/internal/utils"

// Address is a Vietnamese postal address.
type Address struct {
	Street   string `bson:"street" json:"street" binding:"required"`
	Ward     string `bson:"ward" json:"ward"`
	District string `bson:"district" json:"district"`
	City     string `bson:"city" json:"city" binding:"required"`
}

// Building (toà nhà) groups rooms under one owner.
type Building struct {
	Base        `bson:",inline"`
	Name        string      `bson:"name" json:"name"`
	Address     Address     `bson:"address" json:"address"`
	OwnerID     utils.SixID `bson:"owner_id" json:"owner_id"`
	Description string      `bson:"description,omitempty" json:"description,omitempty"`
	Amenities   []string    `bson:"amenities,omitempty" json:"amenities,omitempty"`
	TotalRooms  int         `bson:"-" json:"total_rooms"` // Filled on read
}
