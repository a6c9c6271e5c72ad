package models

import (
	"time"

	"trohub/app/internal/utils"
)

type ContractStatus string

const (
	ContractActive    ContractStatus = "active"
	ContractExpired   ContractStatus = "expired"
	ContractCancelled ContractStatus = "cancelled"
)

type PaymentCycle string

const (
	CycleMonthly   PaymentCycle = "monthly"
	CycleQuarterly PaymentCycle = "quarterly"
	CycleYearly    PaymentCycle = "yearly"
)

// ServiceFee is a flat named add-on charge, e.g. Wi-Fi or parking.
type ServiceFee struct {
	Name  string `bson:"name" json:"name" binding:"required"`
	Price int64  `bson:"price" json:"price" binding:"gte=0"`
}

// MeterPair holds one electricity and one water meter value.
type MeterPair struct {
	Electricity int64 `bson:"electricity" json:"electricity"`
	Water       int64 `bson:"water" json:"water"`
}

// Contract (hợp đồng) leases one room to one or more tenants.
type Contract struct {
	Base             `bson:",inline"`
	Code             string         `bson:"code" json:"code"`
	RoomID           utils.SixID    `bson:"room_id" json:"room_id"`
	TenantIDs        []utils.SixID  `bson:"tenant_ids" json:"tenant_ids"`
	RepresentativeID utils.SixID    `bson:"representative_id" json:"representative_id"`
	StartDate        time.Time      `bson:"start_date" json:"start_date"`
	EndDate          time.Time      `bson:"end_date" json:"end_date"`
	Rent             int64          `bson:"rent" json:"rent"`
	Deposit          int64          `bson:"deposit" json:"deposit"`
	PaymentCycle     PaymentCycle   `bson:"payment_cycle" json:"payment_cycle"`
	PaymentDay       int            `bson:"payment_day" json:"payment_day"`           // Day of month invoices fall due
	ElectricityRate  int64          `bson:"electricity_rate" json:"electricity_rate"` // đồng per kWh
	WaterRate        int64          `bson:"water_rate" json:"water_rate"`             // đồng per m³
	InitialReadings  MeterPair      `bson:"initial_readings" json:"initial_readings"`
	ServiceFees      []ServiceFee   `bson:"service_fees" json:"service_fees"`
	Terms            string         `bson:"terms,omitempty" json:"terms,omitempty"`
	Status           ContractStatus `bson:"status" json:"status"`
	TerminatedAt     *time.Time     `bson:"terminated_at,omitempty" json:"terminated_at,omitempty"`
}

// HasTenant reports whether id is a listed tenant or the representative.
func (c *Contract) HasTenant(id utils.SixID) bool {
	if c.RepresentativeID == id {
		return true
	}
	for _, t := range c.TenantIDs {
		if t == id {
			return true
		}
	}
	return false
}
