package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"trohub/app/internal/billing"
	"trohub/app/internal/config"
	"trohub/app/internal/db"
	"trohub/app/internal/models"
	"trohub/app/internal/utils"
)

const meterReadingsCollection = "meter_readings"

// MeterReadingInput records one period's meters. Old values default to the
// previous period's new values, or the active contract's initial readings.
type MeterReadingInput struct {
	RoomID         utils.SixID `json:"room_id"`
	Month          int         `json:"month" binding:"required,min=1,max=12"`
	Year           int         `json:"year" binding:"required,min=2000,max=9999"`
	ElectricityOld *int64      `json:"electricity_old" binding:"omitempty,gte=0"`
	ElectricityNew int64       `json:"electricity_new" binding:"gte=0"`
	WaterOld       *int64      `json:"water_old" binding:"omitempty,gte=0"`
	WaterNew       int64       `json:"water_new" binding:"gte=0"`
	ReadAt         *time.Time  `json:"read_at"`
	Note           string      `json:"note" binding:"max=500"`
}

type MeterReadingFilter struct {
	RoomID utils.SixID
	Month  int
	Year   int
}

type IMeterReadingService interface {
	Create(ctx context.Context, actor Actor, in MeterReadingInput) (*models.MeterReading, error)
	FindByID(ctx context.Context, id utils.SixID) (*models.MeterReading, error)
	// FindForPeriod returns a NotFoundError when the room has no reading for the period.
	FindForPeriod(ctx context.Context, roomID utils.SixID, month, year int) (*models.MeterReading, error)
	List(ctx context.Context, filter MeterReadingFilter, page models.Page) ([]models.MeterReading, int64, error)
	Update(ctx context.Context, actor Actor, id utils.SixID, in MeterReadingInput) (*models.MeterReading, error)
	Delete(ctx context.Context, actor Actor, id utils.SixID) error
}

type meterReadingService struct {
	db    *mongo.Database
	rooms IRoomService
	now   Clock
}

func NewMeterReadingService(db *mongo.Database, cfg *config.Config, rooms IRoomService) IMeterReadingService {
	return &meterReadingService{db: db, rooms: rooms, now: NewClock(cfg)}
}

func (s *meterReadingService) coll() *mongo.Collection {
	return s.db.Collection(meterReadingsCollection)
}

func (s *meterReadingService) Create(ctx context.Context, actor Actor, in MeterReadingInput) (*models.MeterReading, error) {
	if in.RoomID.IsZero() {
		return nil, NewValidationError("room_id is required")
	}
	if _, err := s.rooms.Authorize(ctx, actor, in.RoomID); err != nil {
		return nil, err
	}

	p := billing.Period{Month: in.Month, Year: in.Year}
	prev, err := s.carriedForward(ctx, in.RoomID, p)
	if err != nil {
		return nil, err
	}

	r := &models.MeterReading{RoomID: in.RoomID, Month: in.Month, Year: in.Year, RecordedBy: actor.UserID}
	if err := s.apply(r, in, prev); err != nil {
		return nil, err
	}
	r, err = db.InsertOne(ctx, s.coll(), r, s.now())
	if err != nil {
		return nil, writeErr(err, fmt.Sprintf("room already has a meter reading for %s", p))
	}
	return r, nil
}

// carriedForward finds the meter values the period starts from.
func (s *meterReadingService) carriedForward(ctx context.Context, roomID utils.SixID, p billing.Period) (models.MeterPair, error) {
	prev, err := s.FindForPeriod(ctx, roomID, p.Prev().Month, p.Prev().Year)
	if err == nil {
		return models.MeterPair{Electricity: prev.ElectricityNew, Water: prev.WaterNew}, nil
	}
	if !IsNotFound(err) {
		return models.MeterPair{}, err
	}

	var c models.Contract
	filter := bson.M{"room_id": roomID, "status": models.ContractActive}
	err = s.db.Collection(contractsCollection).FindOne(ctx, filter).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.MeterPair{}, nil
	}
	if err != nil {
		return models.MeterPair{}, fmt.Errorf("failed to find contract for room %s: %w", roomID, err)
	}
	return c.InitialReadings, nil
}

func (s *meterReadingService) apply(r *models.MeterReading, in MeterReadingInput, prev models.MeterPair) error {
	r.ElectricityOld = prev.Electricity
	if in.ElectricityOld != nil {
		r.ElectricityOld = *in.ElectricityOld
	}
	r.WaterOld = prev.Water
	if in.WaterOld != nil {
		r.WaterOld = *in.WaterOld
	}
	r.ElectricityNew = in.ElectricityNew
	r.WaterNew = in.WaterNew

	if r.ElectricityNew < r.ElectricityOld {
		return NewValidationError("electricity_new (%d) must not be less than electricity_old (%d)", r.ElectricityNew, r.ElectricityOld)
	}
	if r.WaterNew < r.WaterOld {
		return NewValidationError("water_new (%d) must not be less than water_old (%d)", r.WaterNew, r.WaterOld)
	}
	r.ElectricityUsage = r.ElectricityNew - r.ElectricityOld
	r.WaterUsage = r.WaterNew - r.WaterOld

	r.ReadAt = s.now()
	if in.ReadAt != nil {
		r.ReadAt = *in.ReadAt
	}
	r.Note = in.Note
	return nil
}

func (s *meterReadingService) FindByID(ctx context.Context, id utils.SixID) (*models.MeterReading, error) {
	return findByID[models.MeterReading](ctx, s.coll(), "meter reading", id)
}

func (s *meterReadingService) FindForPeriod(ctx context.Context, roomID utils.SixID, month, year int) (*models.MeterReading, error) {
	var r models.MeterReading
	err := s.coll().FindOne(ctx, bson.M{"room_id": roomID, "month": month, "year": year}).Decode(&r)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, &NotFoundError{Resource: "meter reading", ID: fmt.Sprintf("%s %02d/%d", roomID, month, year)}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find meter reading for room %s: %w", roomID, err)
	}
	return &r, nil
}

func (s *meterReadingService) List(ctx context.Context, filter MeterReadingFilter, page models.Page) ([]models.MeterReading, int64, error) {
	q := bson.M{}
	if !filter.RoomID.IsZero() {
		q["room_id"] = filter.RoomID
	}
	if filter.Month != 0 {
		q["month"] = filter.Month
	}
	if filter.Year != 0 {
		q["year"] = filter.Year
	}
	sort := bson.D{{Key: "year", Value: -1}, {Key: "month", Value: -1}}
	return findPage[models.MeterReading](ctx, s.coll(), q, sort, page)
}

// Update rewrites the values of a reading. Room and period are fixed.
func (s *meterReadingService) Update(ctx context.Context, actor Actor, id utils.SixID, in MeterReadingInput) (*models.MeterReading, error) {
	r, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.rooms.Authorize(ctx, actor, r.RoomID); err != nil {
		return nil, err
	}
	prev := models.MeterPair{Electricity: r.ElectricityOld, Water: r.WaterOld}
	if err := s.apply(r, in, prev); err != nil {
		return nil, err
	}
	r.RecordedBy = actor.UserID
	r.Touch(s.now())
	if _, err := s.coll().ReplaceOne(ctx, bson.M{"_id": id}, r); err != nil {
		return nil, fmt.Errorf("failed to update meter reading %s: %w", id, err)
	}
	return r, nil
}

func (s *meterReadingService) Delete(ctx context.Context, actor Actor, id utils.SixID) error {
	r, err := s.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.rooms.Authorize(ctx, actor, r.RoomID); err != nil {
		return err
	}
	if _, err := s.coll().DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("failed to delete meter reading %s: %w", id, err)
	}
	return nil
}
