package models

import (
	"time"

	"trohub/app/internal/utils"
)

type PaymentMethod string

const (
	MethodCash         PaymentMethod = "cash"
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodEWallet      PaymentMethod = "e_wallet"
)

// TransferInfo is required for bank transfers.
type TransferInfo struct {
	Bank          string `bson:"bank" json:"bank"`
	AccountNumber string `bson:"account_number" json:"account_number"`
	Reference     string `bson:"reference" json:"reference"`
}

// Payment (thanh toán) is one money transfer applied against an invoice.
type Payment struct {
	Base         `bson:",inline"`
	InvoiceID    utils.SixID   `bson:"invoice_id" json:"invoice_id"`
	RoomID       utils.SixID   `bson:"room_id" json:"room_id"` // Copied from the invoice for scoped reads
	Amount       int64         `bson:"amount" json:"amount"`
	Method       PaymentMethod `bson:"method" json:"method"`
	TransferInfo *TransferInfo `bson:"transfer_info,omitempty" json:"transfer_info,omitempty"`
	PaidAt       time.Time     `bson:"paid_at" json:"paid_at"`
	RecordedBy   utils.SixID   `bson:"recorded_by" json:"recorded_by"`
	Note         string        `bson:"note,omitempty" json:"note,omitempty"`
}
