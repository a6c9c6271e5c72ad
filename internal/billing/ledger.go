package billing

import (
	"errors"
	"fmt"
	"time"

	"trohub/app/internal/models"
)

var (
	ErrNonPositiveAmount    = errors.New("payment amount must be greater than zero")
	ErrExceedsRemaining     = errors.New("payment amount exceeds the invoice's remaining balance")
	ErrTransferInfoRequired = errors.New("bank transfer details are required for bank transfer payments")
	ErrUnknownMethod        = errors.New("unknown payment method")
	ErrReversalExceedsPaid  = errors.New("reversal amount exceeds the invoice's paid amount")
)

// ValidateMethod checks the method and its metadata.
func ValidateMethod(method models.PaymentMethod, info *models.TransferInfo) error {
	switch method {
	case models.MethodCash, models.MethodEWallet:
		return nil
	case models.MethodBankTransfer:
		if info == nil || (info.Bank == "" && info.Reference == "" && info.AccountNumber == "") {
			return ErrTransferInfoRequired
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}
}

// ApplyPayment returns the settlement after taking amount. On error s is
// returned unchanged, so a rejected payment mutates nothing.
func ApplyPayment(s Settlement, amount int64, now time.Time) (Settlement, error) {
	if amount <= 0 {
		return s, ErrNonPositiveAmount
	}
	if amount > s.Total-s.Paid {
		return s, fmt.Errorf("%w: %d > %d", ErrExceedsRemaining, amount, s.Total-s.Paid)
	}
	s.Paid += amount
	Settle(&s, now)
	return s, nil
}

// ReversePayment undoes ApplyPayment for the same amount.
func ReversePayment(s Settlement, amount int64, now time.Time) (Settlement, error) {
	if amount <= 0 {
		return s, ErrNonPositiveAmount
	}
	if amount > s.Paid {
		return s, fmt.Errorf("%w: %d > %d", ErrReversalExceedsPaid, amount, s.Paid)
	}
	s.Paid -= amount
	Settle(&s, now)
	return s, nil
}

// ReapplyPayment replaces a recorded amount with a new one: the old amount is
// reversed first, then the new one must fit the balance that frees up.
func ReapplyPayment(s Settlement, oldAmount, newAmount int64, now time.Time) (Settlement, error) {
	reversed, err := ReversePayment(s, oldAmount, now)
	if err != nil {
		return s, err
	}
	applied, err := ApplyPayment(reversed, newAmount, now)
	if err != nil {
		return s, err
	}
	return applied, nil
}

// Rebuild sets Paid from the full payment set and re-settles.
func Rebuild(s Settlement, payments []models.Payment, now time.Time) Settlement {
	var paid int64
	for _, p := range payments {
		paid += p.Amount
	}
	s.Paid = paid
	Settle(&s, now)
	return s
}
