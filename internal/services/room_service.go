package services

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"trohub/app/internal/billing"
	"trohub/app/internal/config"
	"trohub/app/internal/db"
	"trohub/app/internal/models"
	"trohub/app/internal/utils"
)

const roomsCollection = "rooms"

type RoomInput struct {
	BuildingID  utils.SixID `json:"building_id"`
	Code        string      `json:"code" binding:"required,max=20"`
	Floor       int         `json:"floor" binding:"gte=0"`
	Area        float64     `json:"area" binding:"gt=0"`
	BaseRent    int64       `json:"base_rent" binding:"gte=0"`
	Deposit     int64       `json:"deposit" binding:"gte=0"`
	MaxTenants  int         `json:"max_tenants" binding:"gte=1"`
	Description string      `json:"description" binding:"max=2000"`
	Amenities   []string    `json:"amenities"`
}

type RoomFilter struct {
	BuildingID utils.SixID
	Status     models.RoomStatus
	Search     string
}

// RoomScope is the set of rooms an actor may read billing data for.
// All is set for admins.
type RoomScope struct {
	All bool
	IDs []utils.SixID
}

func (r RoomScope) Allows(id utils.SixID) bool {
	if r.All {
		return true
	}
	for _, v := range r.IDs {
		if v == id {
			return true
		}
	}
	return false
}

// restrict narrows q on field to the scope. An exact id already in q is kept
// when allowed and turned into a match-nothing clause otherwise.
func (r RoomScope) restrict(q bson.M, field string) {
	if r.All {
		return
	}
	if id, ok := q[field].(utils.SixID); ok {
		if !r.Allows(id) {
			q[field] = bson.M{"$in": bson.A{}}
		}
		return
	}
	ids := make(bson.A, len(r.IDs))
	for i, id := range r.IDs {
		ids[i] = id
	}
	q[field] = bson.M{"$in": ids}
}

type IRoomService interface {
	Create(ctx context.Context, actor Actor, in RoomInput) (*models.Room, error)
	FindByID(ctx context.Context, id utils.SixID) (*models.Room, error)
	List(ctx context.Context, filter RoomFilter, page models.Page) ([]models.Room, int64, error)
	Update(ctx context.Context, actor Actor, id utils.SixID, in RoomInput) (*models.Room, error)
	Delete(ctx context.Context, actor Actor, id utils.SixID) error
	SetMaintenance(ctx context.Context, actor Actor, id utils.SixID, on bool) (*models.Room, error)
	// Authorize loads the room and checks the actor manages its building.
	Authorize(ctx context.Context, actor Actor, id utils.SixID) (*models.Room, error)
	// Scope resolves the rooms in buildings the actor manages.
	Scope(ctx context.Context, actor Actor) (RoomScope, error)
	RefreshStatus(ctx context.Context, id utils.SixID) (models.RoomStatus, error)
	RefreshAll(ctx context.Context) (int, error)
}

type roomService struct {
	db        *mongo.Database
	buildings IBuildingService
	now       Clock
}

func NewRoomService(db *mongo.Database, cfg *config.Config, buildings IBuildingService) IRoomService {
	return &roomService{db: db, buildings: buildings, now: NewClock(cfg)}
}

func (s *roomService) coll() *mongo.Collection {
	return s.db.Collection(roomsCollection)
}

func (s *roomService) Create(ctx context.Context, actor Actor, in RoomInput) (*models.Room, error) {
	if in.BuildingID.IsZero() {
		return nil, NewValidationError("building_id is required")
	}
	if _, err := s.buildings.Authorize(ctx, actor, in.BuildingID); err != nil {
		return nil, err
	}

	room := &models.Room{
		BuildingID:  in.BuildingID,
		Code:        strings.TrimSpace(in.Code),
		Floor:       in.Floor,
		Area:        in.Area,
		BaseRent:    in.BaseRent,
		Deposit:     in.Deposit,
		MaxTenants:  in.MaxTenants,
		Description: in.Description,
		Amenities:   in.Amenities,
		Status:      models.RoomVacant,
	}
	room, err := db.InsertOne(ctx, s.coll(), room, s.now())
	if err != nil {
		return nil, writeErr(err, fmt.Sprintf("room code %s already exists in this building", room.Code))
	}
	return room, nil
}

func (s *roomService) FindByID(ctx context.Context, id utils.SixID) (*models.Room, error) {
	room, err := findByID[models.Room](ctx, s.coll(), "room", id)
	if err != nil {
		return nil, err
	}
	s.derive(ctx, room)
	return room, nil
}

// List filters on the cached status, then refreshes each returned room.
func (s *roomService) List(ctx context.Context, filter RoomFilter, page models.Page) ([]models.Room, int64, error) {
	q := bson.M{}
	if !filter.BuildingID.IsZero() {
		q["building_id"] = filter.BuildingID
	}
	if filter.Status != "" {
		q["status"] = filter.Status
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		q["code"] = containsFold(search)
	}
	rooms, total, err := findPage[models.Room](ctx, s.coll(), q, bson.D{{Key: "building_id", Value: 1}, {Key: "code", Value: 1}}, page)
	if err != nil {
		return nil, 0, err
	}
	for i := range rooms {
		s.derive(ctx, &rooms[i])
	}
	return rooms, total, nil
}

func (s *roomService) Authorize(ctx context.Context, actor Actor, id utils.SixID) (*models.Room, error) {
	room, err := findByID[models.Room](ctx, s.coll(), "room", id)
	if err != nil {
		return nil, err
	}
	if _, err := s.buildings.Authorize(ctx, actor, room.BuildingID); err != nil {
		return nil, err
	}
	return room, nil
}

func (s *roomService) Scope(ctx context.Context, actor Actor) (RoomScope, error) {
	if actor.IsAdmin() {
		return RoomScope{All: true}, nil
	}
	if actor.OwnerID.IsZero() {
		return RoomScope{}, nil
	}
	idOnly := options.Find().SetProjection(bson.M{"_id": 1})
	buildings, err := findAll[models.Building](ctx, s.db.Collection(buildingsCollection), bson.M{"owner_id": actor.OwnerID}, idOnly)
	if err != nil {
		return RoomScope{}, err
	}
	if len(buildings) == 0 {
		return RoomScope{}, nil
	}
	buildingIDs := make(bson.A, len(buildings))
	for i := range buildings {
		buildingIDs[i] = buildings[i].ID
	}
	rooms, err := findAll[models.Room](ctx, s.coll(), bson.M{"building_id": bson.M{"$in": buildingIDs}}, idOnly)
	if err != nil {
		return RoomScope{}, err
	}
	scope := RoomScope{IDs: make([]utils.SixID, len(rooms))}
	for i := range rooms {
		scope.IDs[i] = rooms[i].ID
	}
	return scope, nil
}

func (s *roomService) Update(ctx context.Context, actor Actor, id utils.SixID, in RoomInput) (*models.Room, error) {
	room, err := s.Authorize(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !in.BuildingID.IsZero() && in.BuildingID != room.BuildingID {
		if _, err := s.buildings.Authorize(ctx, actor, in.BuildingID); err != nil {
			return nil, err
		}
		room.BuildingID = in.BuildingID
	}

	room.Code = strings.TrimSpace(in.Code)
	room.Floor = in.Floor
	room.Area = in.Area
	room.BaseRent = in.BaseRent
	room.Deposit = in.Deposit
	room.MaxTenants = in.MaxTenants
	room.Description = in.Description
	room.Amenities = in.Amenities
	room.Touch(s.now())

	if _, err := s.coll().ReplaceOne(ctx, bson.M{"_id": id}, room); err != nil {
		return nil, writeErr(err, fmt.Sprintf("room code %s already exists in this building", room.Code))
	}
	s.derive(ctx, room)
	return room, nil
}

// Delete refuses while any contract references the room.
func (s *roomService) Delete(ctx context.Context, actor Actor, id utils.SixID) error {
	if _, err := s.Authorize(ctx, actor, id); err != nil {
		return err
	}
	n, err := s.db.Collection(contractsCollection).CountDocuments(ctx, bson.M{"room_id": id})
	if err != nil {
		return fmt.Errorf("failed to count contracts of room %s: %w", id, err)
	}
	if n > 0 {
		return NewConflictError("room is referenced by %d contract(s)", n)
	}
	if _, err := s.coll().DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("failed to delete room %s: %w", id, err)
	}
	_, _ = s.db.Collection(meterReadingsCollection).DeleteMany(ctx, bson.M{"room_id": id})
	return nil
}

// SetMaintenance toggles the manual maintenance flag. A room under an active
// contract cannot enter maintenance.
func (s *roomService) SetMaintenance(ctx context.Context, actor Actor, id utils.SixID, on bool) (*models.Room, error) {
	room, err := s.Authorize(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	contracts, err := s.contractsOf(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	status := billing.RoomStatus(contracts, now, models.RoomVacant)
	if on {
		if status != models.RoomVacant {
			return nil, NewConflictError("room is %s and cannot be put under maintenance", status)
		}
		status = models.RoomMaintenance
	}

	if _, err := s.coll().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"status": status, "updated_at": now}}); err != nil {
		return nil, fmt.Errorf("failed to update room %s status: %w", id, err)
	}
	room.Status = status
	room.UpdatedAt = now
	return room, nil
}

func (s *roomService) RefreshStatus(ctx context.Context, id utils.SixID) (models.RoomStatus, error) {
	room, err := findByID[models.Room](ctx, s.coll(), "room", id)
	if err != nil {
		return "", err
	}
	contracts, err := s.contractsOf(ctx, id)
	if err != nil {
		return room.Status, err
	}
	if err := s.store(ctx, room, billing.RoomStatus(contracts, s.now(), room.Status)); err != nil {
		return room.Status, err
	}
	return room.Status, nil
}

// RefreshAll recomputes every room's cached status and returns how many changed.
func (s *roomService) RefreshAll(ctx context.Context) (int, error) {
	rooms, err := findAll[models.Room](ctx, s.coll(), bson.M{})
	if err != nil {
		return 0, err
	}
	byRoom, err := s.contractsByRoom(ctx)
	if err != nil {
		return 0, err
	}

	now := s.now()
	changed := 0
	for i := range rooms {
		status := billing.RoomStatus(byRoom[rooms[i].ID], now, rooms[i].Status)
		if status == rooms[i].Status {
			continue
		}
		if err := s.store(ctx, &rooms[i], status); err != nil {
			return changed, err
		}
		changed++
	}
	return changed, nil
}

// derive refreshes room.Status in place. Lookup failures keep the cached
// value and are only logged.
func (s *roomService) derive(ctx context.Context, room *models.Room) {
	contracts, err := s.contractsOf(ctx, room.ID)
	if err != nil {
		zap.S().Warnf("Keeping cached status of room %s: %v", room.ID, err)
		return
	}
	if err := s.store(ctx, room, billing.RoomStatus(contracts, s.now(), room.Status)); err != nil {
		zap.S().Warnf("Failed to write back status of room %s: %v", room.ID, err)
	}
}

func (s *roomService) store(ctx context.Context, room *models.Room, status models.RoomStatus) error {
	if status == room.Status {
		return nil
	}
	if _, err := s.coll().UpdateOne(ctx, bson.M{"_id": room.ID}, bson.M{"$set": bson.M{"status": status}}); err != nil {
		return fmt.Errorf("failed to store status of room %s: %w", room.ID, err)
	}
	room.Status = status
	return nil
}

func (s *roomService) contractsOf(ctx context.Context, roomID utils.SixID) ([]models.Contract, error) {
	return findAll[models.Contract](ctx, s.db.Collection(contractsCollection), bson.M{"room_id": roomID, "status": models.ContractActive})
}

func (s *roomService) contractsByRoom(ctx context.Context) (map[utils.SixID][]models.Contract, error) {
	contracts, err := findAll[models.Contract](ctx, s.db.Collection(contractsCollection), bson.M{"status": models.ContractActive})
	if err != nil {
		return nil, err
	}
	byRoom := make(map[utils.SixID][]models.Contract)
	for _, c := range contracts {
		byRoom[c.RoomID] = append(byRoom[c.RoomID], c)
	}
	return byRoom, nil
}
