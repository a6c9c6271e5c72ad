package services

import (
	"context"
	"fmt"
	"strings"
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

const invoicesCollection = "invoices"

// InvoiceInput is a manually entered invoice. On update the contract and
// period are fixed; nil Rent and ServiceFees keep the current values.
type InvoiceInput struct {
	ID               utils.SixID         `json:"id"`
	ContractID       utils.SixID         `json:"contract_id"`
	Month            int                 `json:"month" binding:"omitempty,min=1,max=12"`
	Year             int                 `json:"year" binding:"omitempty,min=2000,max=9999"`
	ElectricityStart int64               `json:"electricity_start" binding:"gte=0"`
	ElectricityEnd   int64               `json:"electricity_end" binding:"gte=0"`
	WaterStart       int64               `json:"water_start" binding:"gte=0"`
	WaterEnd         int64               `json:"water_end" binding:"gte=0"`
	Rent             *int64              `json:"rent" binding:"omitempty,gte=0"`
	ServiceFees      []models.ServiceFee `json:"service_fees" binding:"omitempty,dive"`
	DueDate          *time.Time          `json:"due_date"`
	Note             string              `json:"note" binding:"max=1000"`
}

type InvoiceFilter struct {
	ContractID utils.SixID
	RoomID     utils.SixID
	TenantID   utils.SixID
	Status     models.InvoiceStatus
	Month      int
	Year       int
	Search     string
}

type IInvoiceService interface {
	Create(ctx context.Context, actor Actor, in InvoiceInput) (*models.Invoice, error)
	// Insert stores a fully computed invoice, assigning its code.
	Insert(ctx context.Context, inv *models.Invoice) (*models.Invoice, error)
	// FindByID loads an invoice without an ownership check, for background jobs.
	FindByID(ctx context.Context, id utils.SixID) (*models.Invoice, error)
	Get(ctx context.Context, actor Actor, id utils.SixID) (*models.Invoice, error)
	List(ctx context.Context, actor Actor, filter InvoiceFilter, page models.Page) ([]models.Invoice, int64, error)
	Update(ctx context.Context, actor Actor, in InvoiceInput) (*models.Invoice, error)
	Delete(ctx context.Context, actor Actor, id utils.SixID) error
	ExistsForPeriod(ctx context.Context, contractID utils.SixID, month, year int) (bool, error)
	// RefreshOverdue flips open invoices past their due date to overdue.
	RefreshOverdue(ctx context.Context, now time.Time) (int64, error)
	FindOverdue(ctx context.Context) ([]models.Invoice, error)
	// Reconcile recomputes paid from the invoice's payments.
	Reconcile(ctx context.Context, actor Actor, id utils.SixID) (*models.Invoice, error)
}

type invoiceService struct {
	db        *mongo.Database
	cfg       *config.Config
	contracts IContractService
	rooms     IRoomService
	settings  IConfigService
	now       Clock
}

func NewInvoiceService(db *mongo.Database, cfg *config.Config, contracts IContractService, rooms IRoomService, settings IConfigService) IInvoiceService {
	return &invoiceService{db: db, cfg: cfg, contracts: contracts, rooms: rooms, settings: settings, now: NewClock(cfg)}
}

func (s *invoiceService) coll() *mongo.Collection {
	return s.db.Collection(invoicesCollection)
}

func (s *invoiceService) Create(ctx context.Context, actor Actor, in InvoiceInput) (*models.Invoice, error) {
	if in.ContractID.IsZero() {
		return nil, NewValidationError("contract_id is required")
	}
	p := billing.Period{Month: in.Month, Year: in.Year}
	if !p.Valid() {
		return nil, NewValidationError("month and year are required")
	}
	c, err := s.contracts.FindByID(ctx, in.ContractID)
	if err != nil {
		return nil, err
	}
	if err := authorizeRoom(ctx, s.rooms, actor, c.RoomID); err != nil {
		return nil, err
	}
	exists, err := s.ExistsForPeriod(ctx, c.ID, p.Month, p.Year)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, NewConflictError("contract %s already has an invoice for %s", c.Code, p)
	}

	now := s.now()
	inv := &models.Invoice{
		ContractID: c.ID,
		RoomID:     c.RoomID,
		TenantID:   c.RepresentativeID,
		Month:      p.Month,
		Year:       p.Year,
		Rent:       c.Rent,
		Note:       in.Note,
	}
	if err := s.compute(inv, c, in); err != nil {
		return nil, err
	}
	inv.DueDate = billing.DueDate(p, c.PaymentDay, now)
	if in.DueDate != nil {
		inv.DueDate = *in.DueDate
	}
	billing.SettleInvoice(inv, now)

	created, err := s.Insert(ctx, inv)
	if err != nil {
		return nil, err
	}
	zap.S().Infof("Invoice %s created manually by %s", created.Code, actor.UserID)
	return created, nil
}

// compute fills the charge fields of inv from the submitted readings.
func (s *invoiceService) compute(inv *models.Invoice, c *models.Contract, in InvoiceInput) error {
	if in.ElectricityEnd < in.ElectricityStart {
		return NewValidationError("electricity_end must not be less than electricity_start")
	}
	if in.WaterEnd < in.WaterStart {
		return NewValidationError("water_end must not be less than water_start")
	}
	calc := billing.Input{
		Rent:            inv.Rent,
		ElectricityRate: c.ElectricityRate,
		WaterRate:       c.WaterRate,
		Start:           models.MeterPair{Electricity: in.ElectricityStart, Water: in.WaterStart},
		End:             models.MeterPair{Electricity: in.ElectricityEnd, Water: in.WaterEnd},
		Fees:            inv.ServiceFees,
	}
	if in.Rent != nil {
		calc.Rent = *in.Rent
	}
	if in.ServiceFees != nil {
		calc.Fees = in.ServiceFees
	} else if calc.Fees == nil {
		calc.Fees = c.ServiceFees
	}
	billing.Calculate(calc).Fill(inv, calc)
	return nil
}

func (s *invoiceService) Insert(ctx context.Context, inv *models.Invoice) (*models.Invoice, error) {
	prefix := s.cfg.InvoiceCodePrefix
	if s.settings != nil {
		prefix = s.settings.GetString(ctx, "INVOICE_CODE_PREFIX", prefix)
	}
	inv, err := db.InsertOne(ctx, s.coll(), inv, s.now(), func() {
		inv.Code = fmt.Sprintf("%s%04d%02d-%s", prefix, inv.Year, inv.Month, randomCode(5))
	})
	if err != nil {
		return nil, writeErr(err, fmt.Sprintf("an invoice for %02d/%d already exists for this contract", inv.Month, inv.Year))
	}
	return inv, nil
}

func (s *invoiceService) FindByID(ctx context.Context, id utils.SixID) (*models.Invoice, error) {
	inv, err := findByID[models.Invoice](ctx, s.coll(), "invoice", id)
	if err != nil {
		return nil, err
	}
	items := []models.Invoice{*inv}
	s.resettle(ctx, items)
	return &items[0], nil
}

func (s *invoiceService) Get(ctx context.Context, actor Actor, id utils.SixID) (*models.Invoice, error) {
	inv, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeRoom(ctx, s.rooms, actor, inv.RoomID); err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *invoiceService) List(ctx context.Context, actor Actor, filter InvoiceFilter, page models.Page) ([]models.Invoice, int64, error) {
	scope, err := s.rooms.Scope(ctx, actor)
	if err != nil {
		return nil, 0, err
	}
	q := bson.M{}
	if !filter.ContractID.IsZero() {
		q["contract_id"] = filter.ContractID
	}
	if !filter.RoomID.IsZero() {
		q["room_id"] = filter.RoomID
	}
	if !filter.TenantID.IsZero() {
		q["tenant_id"] = filter.TenantID
	}
	if filter.Month != 0 {
		q["month"] = filter.Month
	}
	if filter.Year != 0 {
		q["year"] = filter.Year
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		q["code"] = containsFold(search)
	}
	scope.restrict(q, "room_id")
	if filter.Status != "" {
		// The stored status may lag behind the clock.
		if _, err := s.RefreshOverdue(ctx, s.now()); err != nil {
			return nil, 0, err
		}
		q["status"] = filter.Status
	}

	sort := bson.D{{Key: "year", Value: -1}, {Key: "month", Value: -1}, {Key: "created_at", Value: -1}}
	items, total, err := findPage[models.Invoice](ctx, s.coll(), q, sort, page)
	if err != nil {
		return nil, 0, err
	}
	s.resettle(ctx, items)
	return items, total, nil
}

// resettle re-derives status in place and writes back the ones that changed.
func (s *invoiceService) resettle(ctx context.Context, items []models.Invoice) {
	now := s.now()
	var writes []mongo.WriteModel
	for i := range items {
		before := items[i].Status
		billing.SettleInvoice(&items[i], now)
		if items[i].Status != before {
			writes = append(writes, mongo.NewUpdateOneModel().
				SetFilter(bson.M{"_id": items[i].ID, "paid": items[i].Paid}).
				SetUpdate(bson.M{"$set": bson.M{"status": items[i].Status, "remaining": items[i].Remaining}}))
		}
	}
	if len(writes) == 0 {
		return
	}
	if _, err := s.coll().BulkWrite(ctx, writes); err != nil {
		zap.S().Warnf("Failed to write back %d invoice status(es): %v", len(writes), err)
	}
}

// Update recomputes charges from the submitted readings. Paid is kept, so the
// new total may not drop below it.
func (s *invoiceService) Update(ctx context.Context, actor Actor, in InvoiceInput) (*models.Invoice, error) {
	if in.ID.IsZero() {
		return nil, NewValidationError("id is required")
	}
	inv, err := findByID[models.Invoice](ctx, s.coll(), "invoice", in.ID)
	if err != nil {
		return nil, err
	}
	if err := authorizeRoom(ctx, s.rooms, actor, inv.RoomID); err != nil {
		return nil, err
	}
	c, err := s.contracts.FindByID(ctx, inv.ContractID)
	if err != nil {
		return nil, err
	}

	paid := inv.Paid
	if err := s.compute(inv, c, in); err != nil {
		return nil, err
	}
	if inv.Total < paid {
		return nil, NewValidationError("new total %d is less than the amount already paid %d", inv.Total, paid)
	}
	if in.DueDate != nil {
		inv.DueDate = *in.DueDate
	}
	inv.Note = in.Note

	now := s.now()
	billing.SettleInvoice(inv, now)
	inv.Touch(now)

	res, err := s.coll().ReplaceOne(ctx, bson.M{"_id": inv.ID, "paid": paid}, inv)
	if err != nil {
		return nil, fmt.Errorf("failed to update invoice %s: %w", inv.ID, err)
	}
	if res.MatchedCount == 0 {
		return nil, NewConflictError("invoice %s changed while it was being edited, please retry", inv.Code)
	}
	zap.S().Infof("Invoice %s updated by %s", inv.Code, actor.UserID)
	return inv, nil
}

// Delete refuses while payments are recorded against the invoice.
func (s *invoiceService) Delete(ctx context.Context, actor Actor, id utils.SixID) error {
	inv, err := findByID[models.Invoice](ctx, s.coll(), "invoice", id)
	if err != nil {
		return err
	}
	if err := authorizeRoom(ctx, s.rooms, actor, inv.RoomID); err != nil {
		return err
	}
	n, err := s.db.Collection(paymentsCollection).CountDocuments(ctx, bson.M{"invoice_id": id})
	if err != nil {
		return fmt.Errorf("failed to count payments of invoice %s: %w", id, err)
	}
	if n > 0 {
		return NewConflictError("invoice %s has %d payment(s); delete them first", inv.Code, n)
	}
	if _, err := s.coll().DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("failed to delete invoice %s: %w", id, err)
	}
	zap.S().Infof("Invoice %s deleted by %s", inv.Code, actor.UserID)
	return nil
}

func (s *invoiceService) ExistsForPeriod(ctx context.Context, contractID utils.SixID, month, year int) (bool, error) {
	n, err := s.coll().CountDocuments(ctx, bson.M{"contract_id": contractID, "month": month, "year": year})
	if err != nil {
		return false, fmt.Errorf("failed to check invoice for contract %s: %w", contractID, err)
	}
	return n > 0, nil
}

func (s *invoiceService) RefreshOverdue(ctx context.Context, now time.Time) (int64, error) {
	filter := bson.M{
		"status":    bson.M{"$in": bson.A{models.InvoiceUnpaid, models.InvoicePartiallyPaid}},
		"remaining": bson.M{"$gt": 0},
		"due_date":  bson.M{"$lt": now},
	}
	res, err := s.coll().UpdateMany(ctx, filter, bson.M{"$set": bson.M{"status": models.InvoiceOverdue}})
	if err != nil {
		return 0, fmt.Errorf("failed to refresh overdue invoices: %w", err)
	}
	return res.ModifiedCount, nil
}

func (s *invoiceService) FindOverdue(ctx context.Context) ([]models.Invoice, error) {
	return findAll[models.Invoice](ctx, s.coll(), bson.M{"status": models.InvoiceOverdue})
}

func (s *invoiceService) Reconcile(ctx context.Context, actor Actor, id utils.SixID) (*models.Invoice, error) {
	var result *models.Invoice
	err := db.WithTransaction(ctx, s.db.Client(), s.cfg.MongoTransactions, func(ctx context.Context) error {
		inv, err := findByID[models.Invoice](ctx, s.coll(), "invoice", id)
		if err != nil {
			return err
		}
		if err := authorizeRoom(ctx, s.rooms, actor, inv.RoomID); err != nil {
			return err
		}
		payments, err := findAll[models.Payment](ctx, s.db.Collection(paymentsCollection), bson.M{"invoice_id": id})
		if err != nil {
			return err
		}

		now := s.now()
		before := inv.Paid
		billing.Rebuild(billing.SettlementOf(inv), payments, now).ApplyTo(inv)
		inv.Touch(now)
		update := bson.M{"$set": bson.M{
			"paid":       inv.Paid,
			"remaining":  inv.Remaining,
			"status":     inv.Status,
			"updated_at": inv.UpdatedAt,
		}}
		if _, err := s.coll().UpdateOne(ctx, bson.M{"_id": id}, update); err != nil {
			return fmt.Errorf("failed to store reconciled invoice %s: %w", id, err)
		}
		if before != inv.Paid {
			zap.S().Warnf("Invoice %s paid drifted from %d to %d, repaired", inv.Code, before, inv.Paid)
		}
		result = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
