package models

const (
	TemplateInvoiceCreated  = "invoice_created"
	TemplateOverdueReminder = "overdue_reminder"
	TemplatePaymentReceived = "payment_received"
)

// EmailTemplate defines the structure for email templates stored in the DB.
type EmailTemplate struct {
	Base       `bson:",inline"`
	TemplateID string `bson:"template_id" json:"template_id"` // One of the Template* constants
	Locale     string `bson:"locale" json:"locale"`           // e.g. "vi-VN"
	Subject    string `bson:"subject" json:"subject"`
	Body       string `bson:"body" json:"body"` // text/template source
}
