package models

import (
	"time"

	"trohub/app/internal/utils"
)

// MeterReading (chỉ số điện nước) is one room's meter snapshot for a billing period.
type MeterReading struct {
	Base             `bson:",inline"`
	RoomID           utils.SixID `bson:"room_id" json:"room_id"`
	Month            int         `bson:"month" json:"month"`
	Year             int         `bson:"year" json:"year"`
	ElectricityOld   int64       `bson:"electricity_old" json:"electricity_old"`
	ElectricityNew   int64       `bson:"electricity_new" json:"electricity_new"`
	WaterOld         int64       `bson:"water_old" json:"water_old"`
	WaterNew         int64       `bson:"water_new" json:"water_new"`
	ElectricityUsage int64       `bson:"electricity_usage" json:"electricity_usage"`
	WaterUsage       int64       `bson:"water_usage" json:"water_usage"`
	ReadAt           time.Time   `bson:"read_at" json:"read_at"`
	RecordedBy       utils.SixID `bson:"recorded_by,omitempty" json:"recorded_by,omitempty"`
	Note             string      `bson:"note,omitempty" json:"note,omitempty"`
}
