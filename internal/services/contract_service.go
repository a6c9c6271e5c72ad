package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"trohub/app/internal/config"
	"trohub/app/internal/db"
	"trohub/app/internal/models"
	"trohub/app/internal/utils"
)

const contractsCollection = "contracts"

type ContractInput struct {
	Code             string              `json:"code" binding:"max=30"` // Generated when empty
	RoomID           utils.SixID         `json:"room_id"`
	TenantIDs        []utils.SixID       `json:"tenant_ids" binding:"required,min=1"`
	RepresentativeID utils.SixID         `json:"representative_id"` // Defaults to the first tenant
	StartDate        time.Time           `json:"start_date" binding:"required"`
	EndDate          time.Time           `json:"end_date" binding:"required"`
	Rent             int64               `json:"rent" binding:"gte=0"`
	Deposit          int64               `json:"deposit" binding:"gte=0"`
	PaymentCycle     models.PaymentCycle `json:"payment_cycle" binding:"omitempty,oneof=monthly quarterly yearly"`
	PaymentDay       int                 `json:"payment_day" binding:"omitempty,min=1,max=31"`
	ElectricityRate  int64               `json:"electricity_rate" binding:"gte=0"`
	WaterRate        int64               `json:"water_rate" binding:"gte=0"`
	InitialReadings  models.MeterPair    `json:"initial_readings"`
	ServiceFees      []models.ServiceFee `json:"service_fees" binding:"dive"`
	Terms            string              `json:"terms" binding:"max=10000"`
}

// TerminateInput ends a contract early. Cancel marks it cancelled instead of expired.
type TerminateInput struct {
	EndDate *time.Time `json:"end_date"`
	Cancel  bool       `json:"cancel"`
}

type ContractFilter struct {
	RoomID   utils.SixID
	TenantID utils.SixID
	Status   models.ContractStatus
	Search   string
}

type IContractService interface {
	Create(ctx context.Context, actor Actor, in ContractInput) (*models.Contract, error)
	FindByID(ctx context.Context, id utils.SixID) (*models.Contract, error)
	List(ctx context.Context, filter ContractFilter, page models.Page) ([]models.Contract, int64, error)
	Update(ctx context.Context, actor Actor, id utils.SixID, in ContractInput) (*models.Contract, error)
	Terminate(ctx context.Context, actor Actor, id utils.SixID, in TerminateInput) (*models.Contract, error)
	Delete(ctx context.Context, actor Actor, id utils.SixID) error
	// FindActiveAt returns active contracts whose date range covers now.
	FindActiveAt(ctx context.Context, now time.Time) ([]models.Contract, error)
	// ExpireEnded marks active contracts that ended before now as expired.
	ExpireEnded(ctx context.Context, now time.Time) (int64, error)
}

type contractService struct {
	db      *mongo.Database
	cfg     *config.Config
	rooms   IRoomService
	tenants ITenantService
	now     Clock
}

func NewContractService(db *mongo.Database, cfg *config.Config, rooms IRoomService, tenants ITenantService) IContractService {
	return &contractService{db: db, cfg: cfg, rooms: rooms, tenants: tenants, now: NewClock(cfg)}
}

func (s *contractService) coll() *mongo.Collection {
	return s.db.Collection(contractsCollection)
}

func (s *contractService) Create(ctx context.Context, actor Actor, in ContractInput) (*models.Contract, error) {
	c := &models.Contract{Status: models.ContractActive}
	if err := s.apply(ctx, actor, c, in); err != nil {
		return nil, err
	}
	if err := s.checkOverlap(ctx, c); err != nil {
		return nil, err
	}

	generated := c.Code == ""
	c, err := db.InsertOne(ctx, s.coll(), c, s.now(), func() {
		if generated {
			c.Code = fmt.Sprintf("CT%s-%s", c.StartDate.In(s.loc()).Format("0601"), randomCode(4))
		}
	})
	if err != nil {
		return nil, writeErr(err, fmt.Sprintf("contract code %s already exists", c.Code))
	}

	zap.S().Infof("Contract %s (%s) created for room %s", c.Code, c.ID, c.RoomID)
	s.refresh(ctx, c.RoomID, c.TenantIDs)
	return c, nil
}

// apply validates the input against referenced rooms and tenants and copies it onto c.
func (s *contractService) apply(ctx context.Context, actor Actor, c *models.Contract, in ContractInput) error {
	if in.RoomID.IsZero() {
		return NewValidationError("room_id is required")
	}
	if !in.EndDate.After(in.StartDate) {
		return NewValidationError("end_date must be after start_date")
	}
	if in.InitialReadings.Electricity < 0 || in.InitialReadings.Water < 0 {
		return NewValidationError("initial readings must not be negative")
	}
	if _, err := s.rooms.Authorize(ctx, actor, in.RoomID); err != nil {
		return err
	}

	tenantIDs := dedupeIDs(in.TenantIDs)
	if len(tenantIDs) == 0 {
		return NewValidationError("at least one tenant is required")
	}
	if _, err := s.tenants.FindByIDs(ctx, tenantIDs); err != nil {
		return err
	}
	rep := in.RepresentativeID
	if rep.IsZero() {
		rep = tenantIDs[0]
	}
	if !containsID(tenantIDs, rep) {
		return NewValidationError("representative_id must be one of tenant_ids")
	}

	c.Code = strings.TrimSpace(in.Code)
	c.RoomID = in.RoomID
	c.TenantIDs = tenantIDs
	c.RepresentativeID = rep
	c.StartDate = in.StartDate
	c.EndDate = in.EndDate
	c.Rent = in.Rent
	c.Deposit = in.Deposit
	c.PaymentCycle = in.PaymentCycle
	if c.PaymentCycle == "" {
		c.PaymentCycle = models.CycleMonthly
	}
	c.PaymentDay = in.PaymentDay
	if c.PaymentDay == 0 {
		c.PaymentDay = s.cfg.DefaultPaymentDay
	}
	c.ElectricityRate = in.ElectricityRate
	c.WaterRate = in.WaterRate
	c.InitialReadings = in.InitialReadings
	c.ServiceFees = in.ServiceFees
	if c.ServiceFees == nil {
		c.ServiceFees = []models.ServiceFee{}
	}
	c.Terms = in.Terms
	return nil
}

// checkOverlap enforces at most one active contract per room for any instant.
func (s *contractService) checkOverlap(ctx context.Context, c *models.Contract) error {
	if c.Status != models.ContractActive {
		return nil
	}
	filter := bson.M{
		"room_id":    c.RoomID,
		"status":     models.ContractActive,
		"start_date": bson.M{"$lte": c.EndDate},
		"end_date":   bson.M{"$gte": c.StartDate},
	}
	if !c.ID.IsZero() {
		filter["_id"] = bson.M{"$ne": c.ID}
	}
	var other models.Contract
	err := s.coll().FindOne(ctx, filter).Decode(&other)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to check contract overlap: %w", err)
	}
	return NewConflictError("room already has active contract %s overlapping this period", other.Code)
}

func (s *contractService) FindByID(ctx context.Context, id utils.SixID) (*models.Contract, error) {
	return findByID[models.Contract](ctx, s.coll(), "contract", id)
}

func (s *contractService) List(ctx context.Context, filter ContractFilter, page models.Page) ([]models.Contract, int64, error) {
	q := bson.M{}
	if !filter.RoomID.IsZero() {
		q["room_id"] = filter.RoomID
	}
	if !filter.TenantID.IsZero() {
		q["$or"] = tenantContractsFilter(filter.TenantID)["$or"]
	}
	if filter.Status != "" {
		q["status"] = filter.Status
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		q["code"] = containsFold(search)
	}
	return findPage[models.Contract](ctx, s.coll(), q, bson.D{{Key: "start_date", Value: -1}}, page)
}

func (s *contractService) Update(ctx context.Context, actor Actor, id utils.SixID, in ContractInput) (*models.Contract, error) {
	c, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.rooms.Authorize(ctx, actor, c.RoomID); err != nil {
		return nil, err
	}
	prevRoom, prevTenants := c.RoomID, c.TenantIDs
	code := c.Code

	if err := s.apply(ctx, actor, c, in); err != nil {
		return nil, err
	}
	if c.Code == "" {
		c.Code = code
	}
	if err := s.checkOverlap(ctx, c); err != nil {
		return nil, err
	}
	c.Touch(s.now())

	if _, err := s.coll().ReplaceOne(ctx, bson.M{"_id": id}, c); err != nil {
		return nil, writeErr(err, fmt.Sprintf("contract code %s already exists", c.Code))
	}

	s.refresh(ctx, c.RoomID, c.TenantIDs)
	if prevRoom != c.RoomID {
		s.refresh(ctx, prevRoom, nil)
	}
	s.refresh(ctx, utils.SixID{}, prevTenants)
	return c, nil
}

// Terminate ends an active contract. The end date defaults to now and may
// not precede the start date.
func (s *contractService) Terminate(ctx context.Context, actor Actor, id utils.SixID, in TerminateInput) (*models.Contract, error) {
	c, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.rooms.Authorize(ctx, actor, c.RoomID); err != nil {
		return nil, err
	}
	if c.Status != models.ContractActive {
		return nil, NewValidationError("contract is already %s", c.Status)
	}

	now := s.now()
	end := now
	if in.EndDate != nil {
		end = *in.EndDate
	}
	if end.Before(c.StartDate) && !in.Cancel {
		return nil, NewValidationError("end_date must not be before the contract start")
	}

	c.Status = models.ContractExpired
	if in.Cancel {
		c.Status = models.ContractCancelled
	}
	if end.Before(c.EndDate) && !end.Before(c.StartDate) {
		c.EndDate = end
	}
	c.TerminatedAt = &now
	c.Touch(now)

	update := bson.M{"$set": bson.M{
		"status":        c.Status,
		"end_date":      c.EndDate,
		"terminated_at": c.TerminatedAt,
		"updated_at":    c.UpdatedAt,
	}}
	if _, err := s.coll().UpdateOne(ctx, bson.M{"_id": id}, update); err != nil {
		return nil, fmt.Errorf("failed to terminate contract %s: %w", id, err)
	}
	zap.S().Infof("Contract %s %s by %s", c.Code, c.Status, actor.UserID)
	s.refresh(ctx, c.RoomID, c.TenantIDs)
	return c, nil
}

// Delete refuses once invoices have been issued against the contract.
func (s *contractService) Delete(ctx context.Context, actor Actor, id utils.SixID) error {
	c, err := s.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.rooms.Authorize(ctx, actor, c.RoomID); err != nil {
		return err
	}
	n, err := s.db.Collection(invoicesCollection).CountDocuments(ctx, bson.M{"contract_id": id})
	if err != nil {
		return fmt.Errorf("failed to count invoices of contract %s: %w", id, err)
	}
	if n > 0 {
		return NewConflictError("contract has %d invoice(s); terminate it instead", n)
	}
	if _, err := s.coll().DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("failed to delete contract %s: %w", id, err)
	}
	s.refresh(ctx, c.RoomID, c.TenantIDs)
	return nil
}

func (s *contractService) FindActiveAt(ctx context.Context, now time.Time) ([]models.Contract, error) {
	filter := bson.M{
		"status":     models.ContractActive,
		"start_date": bson.M{"$lte": now},
		"end_date":   bson.M{"$gte": now},
	}
	return findAll[models.Contract](ctx, s.coll(), filter)
}

func (s *contractService) ExpireEnded(ctx context.Context, now time.Time) (int64, error) {
	filter := bson.M{"status": models.ContractActive, "end_date": bson.M{"$lt": now}}
	res, err := s.coll().UpdateMany(ctx, filter, bson.M{"$set": bson.M{"status": models.ContractExpired, "updated_at": now}})
	if err != nil {
		return 0, fmt.Errorf("failed to expire ended contracts: %w", err)
	}
	return res.ModifiedCount, nil
}

// refresh recomputes cached room and tenant statuses after a contract write.
// Failures are logged; the next read repairs them.
func (s *contractService) refresh(ctx context.Context, roomID utils.SixID, tenantIDs []utils.SixID) {
	if !roomID.IsZero() {
		if _, err := s.rooms.RefreshStatus(ctx, roomID); err != nil {
			zap.S().Warnf("Failed to refresh status of room %s: %v", roomID, err)
		}
	}
	for _, id := range tenantIDs {
		if _, err := s.tenants.RefreshStatus(ctx, id); err != nil {
			zap.S().Warnf("Failed to refresh status of tenant %s: %v", id, err)
		}
	}
}

func (s *contractService) loc() *time.Location {
	if s.cfg.Timezone != nil {
		return s.cfg.Timezone
	}
	return time.Local
}

func dedupeIDs(ids []utils.SixID) []utils.SixID {
	out := make([]utils.SixID, 0, len(ids))
	for _, id := range ids {
		if !id.IsZero() && !containsID(out, id) {
			out = append(out, id)
		}
	}
	return out
}

func containsID(ids []utils.SixID, id utils.SixID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
