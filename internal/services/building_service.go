package services

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"trohub/app/internal/config"
	"trohub/app/internal/db"
	"trohub/app/internal/models"
	"trohub/app/internal/utils"
)

const buildingsCollection = "buildings"

// BuildingInput carries the editable fields of a building.
type BuildingInput struct {
	Name        string         `json:"name" binding:"required,max=200"`
	Address     models.Address `json:"address"`
	Description string         `json:"description" binding:"max=2000"`
	Amenities   []string       `json:"amenities"`
	OwnerID     utils.SixID    `json:"owner_id"` // Honoured for admins only
}

type IBuildingService interface {
	Create(ctx context.Context, actor Actor, in BuildingInput) (*models.Building, error)
	FindByID(ctx context.Context, id utils.SixID) (*models.Building, error)
	List(ctx context.Context, actor Actor, search string, page models.Page) ([]models.Building, int64, error)
	Update(ctx context.Context, actor Actor, id utils.SixID, in BuildingInput) (*models.Building, error)
	Delete(ctx context.Context, actor Actor, id utils.SixID) error
	// Authorize loads the building and checks the actor may mutate it.
	Authorize(ctx context.Context, actor Actor, id utils.SixID) (*models.Building, error)
}

type buildingService struct {
	db  *mongo.Database
	now Clock
}

func NewBuildingService(db *mongo.Database, cfg *config.Config) IBuildingService {
	return &buildingService{db: db, now: NewClock(cfg)}
}

func (s *buildingService) coll() *mongo.Collection {
	return s.db.Collection(buildingsCollection)
}

func (s *buildingService) Create(ctx context.Context, actor Actor, in BuildingInput) (*models.Building, error) {
	owner := actor.OwnerID
	if actor.IsAdmin() && !in.OwnerID.IsZero() {
		owner = in.OwnerID
	}
	if owner.IsZero() {
		return nil, NewValidationError("owner_id is required")
	}

	b := &models.Building{
		Name:        strings.TrimSpace(in.Name),
		Address:     in.Address,
		OwnerID:     owner,
		Description: in.Description,
		Amenities:   in.Amenities,
	}
	b, err := db.InsertOne(ctx, s.coll(), b, s.now())
	if err != nil {
		return nil, err
	}
	zap.S().Infof("Building %s created by %s", b.ID, actor.UserID)
	return b, nil
}

func (s *buildingService) FindByID(ctx context.Context, id utils.SixID) (*models.Building, error) {
	b, err := findByID[models.Building](ctx, s.coll(), "building", id)
	if err != nil {
		return nil, err
	}
	counts, err := s.roomCounts(ctx, []utils.SixID{id})
	if err != nil {
		return nil, err
	}
	b.TotalRooms = counts[id]
	return b, nil
}

func (s *buildingService) List(ctx context.Context, actor Actor, search string, page models.Page) ([]models.Building, int64, error) {
	filter := bson.M{}
	if !actor.IsAdmin() {
		filter["owner_id"] = actor.OwnerID
	}
	if search = strings.TrimSpace(search); search != "" {
		filter["$or"] = bson.A{
			bson.M{"name": containsFold(search)},
			bson.M{"address.street": containsFold(search)},
			bson.M{"address.district": containsFold(search)},
		}
	}
	items, total, err := findPage[models.Building](ctx, s.coll(), filter, bson.D{{Key: "created_at", Value: -1}}, page)
	if err != nil {
		return nil, 0, err
	}

	ids := make([]utils.SixID, len(items))
	for i := range items {
		ids[i] = items[i].ID
	}
	counts, err := s.roomCounts(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range items {
		items[i].TotalRooms = counts[items[i].ID]
	}
	return items, total, nil
}

func (s *buildingService) Authorize(ctx context.Context, actor Actor, id utils.SixID) (*models.Building, error) {
	b, err := findByID[models.Building](ctx, s.coll(), "building", id)
	if err != nil {
		return nil, err
	}
	if !actor.CanManage(b.OwnerID) {
		return nil, &PermissionError{Message: "you do not manage this building"}
	}
	return b, nil
}

func (s *buildingService) Update(ctx context.Context, actor Actor, id utils.SixID, in BuildingInput) (*models.Building, error) {
	b, err := s.Authorize(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	b.Name = strings.TrimSpace(in.Name)
	b.Address = in.Address
	b.Description = in.Description
	b.Amenities = in.Amenities
	if actor.IsAdmin() && !in.OwnerID.IsZero() {
		b.OwnerID = in.OwnerID
	}
	b.Touch(s.now())

	if _, err := s.coll().ReplaceOne(ctx, bson.M{"_id": id}, b); err != nil {
		return nil, fmt.Errorf("failed to update building %s: %w", id, err)
	}
	return s.FindByID(ctx, id)
}

// Delete refuses while rooms still reference the building.
func (s *buildingService) Delete(ctx context.Context, actor Actor, id utils.SixID) error {
	if _, err := s.Authorize(ctx, actor, id); err != nil {
		return err
	}
	rooms, err := s.db.Collection(roomsCollection).CountDocuments(ctx, bson.M{"building_id": id})
	if err != nil {
		return fmt.Errorf("failed to count rooms of building %s: %w", id, err)
	}
	if rooms > 0 {
		return NewConflictError("building still has %d room(s)", rooms)
	}
	if _, err := s.coll().DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("failed to delete building %s: %w", id, err)
	}
	zap.S().Infof("Building %s deleted by %s", id, actor.UserID)
	return nil
}

func (s *buildingService) roomCounts(ctx context.Context, ids []utils.SixID) (map[utils.SixID]int, error) {
	counts := make(map[utils.SixID]int, len(ids))
	if len(ids) == 0 {
		return counts, nil
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"building_id": bson.M{"$in": ids}}}},
		{{Key: "$group", Value: bson.M{"_id": "$building_id", "count": bson.M{"$sum": 1}}}},
	}
	cursor, err := s.db.Collection(roomsCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to count rooms: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		ID    utils.SixID `bson:"_id"`
		Count int         `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode room counts: %w", err)
	}
	for _, r := range rows {
		counts[r.ID] = r.Count
	}
	return counts, nil
}
