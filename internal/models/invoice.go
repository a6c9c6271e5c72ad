package models

import (
	"time"

	"trohub/app/internal/utils"
)

type InvoiceStatus string

const (
	InvoiceUnpaid        InvoiceStatus = "unpaid"
	InvoicePartiallyPaid InvoiceStatus = "partially_paid"
	InvoicePaid          InvoiceStatus = "paid"
	InvoiceOverdue       InvoiceStatus = "overdue"
)

// Invoice (hoá đơn) is one billing period's statement for a contract.
// Total, Remaining and Status are always recomputed together; none is set on its own.
type Invoice struct {
	Base             `bson:",inline"`
	Code             string        `bson:"code" json:"code"`
	ContractID       utils.SixID   `bson:"contract_id" json:"contract_id"`
	RoomID           utils.SixID   `bson:"room_id" json:"room_id"`
	TenantID         utils.SixID   `bson:"tenant_id" json:"tenant_id"` // Contract representative
	Month            int           `bson:"month" json:"month"`
	Year             int           `bson:"year" json:"year"`
	Rent             int64         `bson:"rent" json:"rent"`
	ElectricityStart int64         `bson:"electricity_start" json:"electricity_start"`
	ElectricityEnd   int64         `bson:"electricity_end" json:"electricity_end"`
	ElectricityUsage int64         `bson:"electricity_usage" json:"electricity_usage"`
	ElectricityCost  int64         `bson:"electricity_cost" json:"electricity_cost"`
	WaterStart       int64         `bson:"water_start" json:"water_start"`
	WaterEnd         int64         `bson:"water_end" json:"water_end"`
	WaterUsage       int64         `bson:"water_usage" json:"water_usage"`
	WaterCost        int64         `bson:"water_cost" json:"water_cost"`
	ServiceFees      []ServiceFee  `bson:"service_fees" json:"service_fees"`
	Total            int64         `bson:"total" json:"total"`
	Paid             int64         `bson:"paid" json:"paid"`
	Remaining        int64         `bson:"remaining" json:"remaining"`
	Status           InvoiceStatus `bson:"status" json:"status"`
	DueDate          time.Time     `bson:"due_date" json:"due_date"`
	Note             string        `bson:"note,omitempty" json:"note,omitempty"`
	Generated        bool          `bson:"generated" json:"generated"` // Created by the auto-invoice run
}
