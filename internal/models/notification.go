package models

import "trohub/app/internal/utils"

type NotificationType string

const (
	NotifyGeneral  NotificationType = "general"
	NotifyInvoice  NotificationType = "invoice"
	NotifyPayment  NotificationType = "payment"
	NotifyIncident NotificationType = "incident"
	NotifyContract NotificationType = "contract"
)

// Notification (thông báo) is addressed to staff users and optionally mirrored to tenants by email/SMS.
type Notification struct {
	Base         `bson:",inline"`
	Title        string           `bson:"title" json:"title"`
	Content      string           `bson:"content" json:"content"`
	Type         NotificationType `bson:"type" json:"type"`
	RecipientIDs []utils.SixID    `bson:"recipient_ids" json:"recipient_ids"`
	ReadBy       []utils.SixID    `bson:"read_by" json:"read_by"`
	TenantIDs    []utils.SixID    `bson:"tenant_ids,omitempty" json:"tenant_ids,omitempty"`
	CreatedBy    utils.SixID      `bson:"created_by" json:"created_by"`
}
