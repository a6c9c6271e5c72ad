package services

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"trohub/app/internal/billing"
	"trohub/app/internal/config"
	"trohub/app/internal/db"
	"trohub/app/internal/models"
	"trohub/app/internal/utils"
)

const paymentsCollection = "payments"

type PaymentInput struct {
	InvoiceID    utils.SixID          `json:"invoice_id"`
	Amount       int64                `json:"amount" binding:"required,gt=0"`
	Method       models.PaymentMethod `json:"method" binding:"required,oneof=cash bank_transfer e_wallet"`
	TransferInfo *models.TransferInfo `json:"transfer_info"`
	PaidAt       *time.Time           `json:"paid_at"`
	Note         string               `json:"note" binding:"max=500"`
}

type PaymentFilter struct {
	InvoiceID utils.SixID
	Method    models.PaymentMethod
	From      *time.Time
	To        *time.Time
}

// IPaymentService is the payment ledger. Every write moves the invoice's
// paid amount by exactly the payment delta, in the same transaction.
type IPaymentService interface {
	Create(ctx context.Context, actor Actor, in PaymentInput) (*models.Payment, *models.Invoice, error)
	FindByID(ctx context.Context, id utils.SixID) (*models.Payment, error)
	List(ctx context.Context, actor Actor, filter PaymentFilter, page models.Page) ([]models.Payment, int64, error)
	Update(ctx context.Context, actor Actor, id utils.SixID, in PaymentInput) (*models.Payment, *models.Invoice, error)
	Delete(ctx context.Context, actor Actor, id utils.SixID) (*models.Invoice, error)
}

type paymentService struct {
	db    *mongo.Database
	cfg   *config.Config
	rooms IRoomService
	now   Clock
}

func NewPaymentService(db *mongo.Database, cfg *config.Config, rooms IRoomService) IPaymentService {
	return &paymentService{db: db, cfg: cfg, rooms: rooms, now: NewClock(cfg)}
}

func (s *paymentService) coll() *mongo.Collection {
	return s.db.Collection(paymentsCollection)
}

func (s *paymentService) invoices() *mongo.Collection {
	return s.db.Collection(invoicesCollection)
}

// inTx runs fn in a transaction when enabled. Without transactions, the
// optimistic paid guard still rejects lost updates, and undo compensates
// the payment write when the invoice write fails.
func (s *paymentService) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.WithTransaction(ctx, s.db.Client(), s.cfg.MongoTransactions, fn)
}

func (s *paymentService) Create(ctx context.Context, actor Actor, in PaymentInput) (*models.Payment, *models.Invoice, error) {
	if in.InvoiceID.IsZero() {
		return nil, nil, NewValidationError("invoice_id is required")
	}
	if err := billing.ValidateMethod(in.Method, in.TransferInfo); err != nil {
		return nil, nil, ledgerErr(err)
	}

	var payment *models.Payment
	var invoice *models.Invoice
	err := s.inTx(ctx, func(ctx context.Context) error {
		inv, err := findByID[models.Invoice](ctx, s.invoices(), "invoice", in.InvoiceID)
		if err != nil {
			return err
		}
		if err := authorizeRoom(ctx, s.rooms, actor, inv.RoomID); err != nil {
			return err
		}
		now := s.now()
		next, err := billing.ApplyPayment(billing.SettlementOf(inv), in.Amount, now)
		if err != nil {
			return ledgerErr(err)
		}

		p := &models.Payment{InvoiceID: inv.ID, RoomID: inv.RoomID, RecordedBy: actor.UserID}
		applyPaymentInput(p, in, now)
		if p, err = db.InsertOne(ctx, s.coll(), p, now); err != nil {
			return err
		}
		if err := s.storeSettlement(ctx, inv, next, now); err != nil {
			s.undo(ctx, func(ctx context.Context) error {
				_, err := s.coll().DeleteOne(ctx, bson.M{"_id": p.ID})
				return err
			})
			return err
		}
		payment, invoice = p, inv
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	zap.S().Infof("Payment %s of %d recorded on invoice %s (%s)", payment.ID, payment.Amount, invoice.Code, invoice.Status)
	return payment, invoice, nil
}

func applyPaymentInput(p *models.Payment, in PaymentInput, now time.Time) {
	p.Amount = in.Amount
	p.Method = in.Method
	p.TransferInfo = nil
	if in.Method == models.MethodBankTransfer {
		p.TransferInfo = in.TransferInfo
	}
	p.PaidAt = now
	if in.PaidAt != nil {
		p.PaidAt = *in.PaidAt
	}
	p.Note = in.Note
}

// storeSettlement writes the new balance, guarded on the paid amount the
// settlement was computed from.
func (s *paymentService) storeSettlement(ctx context.Context, inv *models.Invoice, next billing.Settlement, now time.Time) error {
	update := bson.M{"$set": bson.M{
		"paid":       next.Paid,
		"remaining":  next.Remaining,
		"status":     next.Status,
		"updated_at": now,
	}}
	res, err := s.invoices().UpdateOne(ctx, bson.M{"_id": inv.ID, "paid": inv.Paid}, update)
	if err != nil {
		return fmt.Errorf("failed to update invoice %s balance: %w", inv.ID, err)
	}
	if res.MatchedCount == 0 {
		return NewConflictError("invoice %s was modified concurrently, please retry", inv.Code)
	}
	next.ApplyTo(inv)
	inv.UpdatedAt = now
	return nil
}

// undo compensates a half-applied write when running without transactions.
func (s *paymentService) undo(ctx context.Context, fn func(ctx context.Context) error) {
	if s.cfg.MongoTransactions {
		return
	}
	if err := fn(ctx); err != nil {
		zap.S().Errorf("Failed to roll back payment write, run reconcile: %v", err)
	}
}

func (s *paymentService) FindByID(ctx context.Context, id utils.SixID) (*models.Payment, error) {
	return findByID[models.Payment](ctx, s.coll(), "payment", id)
}

func (s *paymentService) List(ctx context.Context, actor Actor, filter PaymentFilter, page models.Page) ([]models.Payment, int64, error) {
	scope, err := s.rooms.Scope(ctx, actor)
	if err != nil {
		return nil, 0, err
	}
	q := bson.M{}
	if !filter.InvoiceID.IsZero() {
		q["invoice_id"] = filter.InvoiceID
	}
	if filter.Method != "" {
		q["method"] = filter.Method
	}
	paidAt := bson.M{}
	if filter.From != nil {
		paidAt["$gte"] = *filter.From
	}
	if filter.To != nil {
		paidAt["$lt"] = *filter.To
	}
	if len(paidAt) > 0 {
		q["paid_at"] = paidAt
	}
	scope.restrict(q, "room_id")
	return findPage[models.Payment](ctx, s.coll(), q, bson.D{{Key: "paid_at", Value: -1}}, page)
}

// Update changes a payment's amount or details. The invoice moves by the
// difference between the old and new amounts; the invoice itself is fixed.
func (s *paymentService) Update(ctx context.Context, actor Actor, id utils.SixID, in PaymentInput) (*models.Payment, *models.Invoice, error) {
	if err := billing.ValidateMethod(in.Method, in.TransferInfo); err != nil {
		return nil, nil, ledgerErr(err)
	}

	var payment *models.Payment
	var invoice *models.Invoice
	err := s.inTx(ctx, func(ctx context.Context) error {
		p, err := s.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if !in.InvoiceID.IsZero() && in.InvoiceID != p.InvoiceID {
			return NewValidationError("a payment cannot be moved to another invoice")
		}
		inv, err := findByID[models.Invoice](ctx, s.invoices(), "invoice", p.InvoiceID)
		if err != nil {
			return err
		}
		if err := authorizeRoom(ctx, s.rooms, actor, inv.RoomID); err != nil {
			return err
		}

		now := s.now()
		next, err := billing.ReapplyPayment(billing.SettlementOf(inv), p.Amount, in.Amount, now)
		if err != nil {
			return ledgerErr(err)
		}

		old := *p
		applyPaymentInput(p, in, old.PaidAt)
		p.RecordedBy = actor.UserID
		p.Touch(now)
		if _, err := s.coll().ReplaceOne(ctx, bson.M{"_id": id}, p); err != nil {
			return fmt.Errorf("failed to update payment %s: %w", id, err)
		}
		if err := s.storeSettlement(ctx, inv, next, now); err != nil {
			s.undo(ctx, func(ctx context.Context) error {
				_, err := s.coll().ReplaceOne(ctx, bson.M{"_id": id}, old)
				return err
			})
			return err
		}
		payment, invoice = p, inv
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return payment, invoice, nil
}

// Delete removes a payment and takes its amount back off the invoice.
func (s *paymentService) Delete(ctx context.Context, actor Actor, id utils.SixID) (*models.Invoice, error) {
	var invoice *models.Invoice
	err := s.inTx(ctx, func(ctx context.Context) error {
		p, err := s.FindByID(ctx, id)
		if err != nil {
			return err
		}
		inv, err := findByID[models.Invoice](ctx, s.invoices(), "invoice", p.InvoiceID)
		if err != nil {
			return err
		}
		if err := authorizeRoom(ctx, s.rooms, actor, inv.RoomID); err != nil {
			return err
		}

		now := s.now()
		next, err := billing.ReversePayment(billing.SettlementOf(inv), p.Amount, now)
		if err != nil {
			return ledgerErr(err)
		}
		if _, err := s.coll().DeleteOne(ctx, bson.M{"_id": id}); err != nil {
			return fmt.Errorf("failed to delete payment %s: %w", id, err)
		}
		if err := s.storeSettlement(ctx, inv, next, now); err != nil {
			s.undo(ctx, func(ctx context.Context) error {
				_, err := s.coll().InsertOne(ctx, p)
				return err
			})
			return err
		}
		invoice = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	zap.S().Infof("Payment %s deleted by %s; invoice %s now %s", id, actor.UserID, invoice.Code, invoice.Status)
	return invoice, nil
}
