package services

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"trohub/app/internal/config"
	"trohub/app/internal/db"
	"trohub/app/internal/models"
	"trohub/app/internal/utils"
)

const incidentsCollection = "incidents"

type IncidentInput struct {
	RoomID      utils.SixID             `json:"room_id"`
	TenantID    utils.SixID             `json:"tenant_id"`
	Title       string                  `json:"title" binding:"required,max=200"`
	Description string                  `json:"description" binding:"required,max=5000"`
	Category    string                  `json:"category" binding:"max=50"`
	Priority    models.IncidentPriority `json:"priority" binding:"omitempty,oneof=low medium high urgent"`
}

// IncidentUpdate changes only the fields that are set.
type IncidentUpdate struct {
	Title       *string                  `json:"title" binding:"omitempty,max=200"`
	Description *string                  `json:"description" binding:"omitempty,max=5000"`
	Priority    *models.IncidentPriority `json:"priority" binding:"omitempty,oneof=low medium high urgent"`
	Status      *models.IncidentStatus   `json:"status" binding:"omitempty,oneof=open in_progress resolved cancelled"`
	AssigneeID  *utils.SixID             `json:"assignee_id"`
	Resolution  *string                  `json:"resolution" binding:"omitempty,max=5000"`
}

type IncidentFilter struct {
	RoomID   utils.SixID
	Status   models.IncidentStatus
	Priority models.IncidentPriority
}

type IIncidentService interface {
	Create(ctx context.Context, actor Actor, in IncidentInput) (*models.Incident, error)
	FindByID(ctx context.Context, id utils.SixID) (*models.Incident, error)
	List(ctx context.Context, filter IncidentFilter, page models.Page) ([]models.Incident, int64, error)
	Update(ctx context.Context, actor Actor, id utils.SixID, upd IncidentUpdate) (*models.Incident, error)
	Delete(ctx context.Context, actor Actor, id utils.SixID) error
}

// incidentTransitions lists the statuses each status may move to.
var incidentTransitions = map[models.IncidentStatus][]models.IncidentStatus{
	models.IncidentOpen:       {models.IncidentInProgress, models.IncidentResolved, models.IncidentCancelled},
	models.IncidentInProgress: {models.IncidentOpen, models.IncidentResolved, models.IncidentCancelled},
	models.IncidentResolved:   {models.IncidentOpen},
	models.IncidentCancelled:  {models.IncidentOpen},
}

func canTransition(from, to models.IncidentStatus) bool {
	if from == to {
		return true
	}
	for _, s := range incidentTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type incidentService struct {
	db    *mongo.Database
	rooms IRoomService
	now   Clock
}

func NewIncidentService(db *mongo.Database, cfg *config.Config, rooms IRoomService) IIncidentService {
	return &incidentService{db: db, rooms: rooms, now: NewClock(cfg)}
}

func (s *incidentService) coll() *mongo.Collection {
	return s.db.Collection(incidentsCollection)
}

func (s *incidentService) Create(ctx context.Context, actor Actor, in IncidentInput) (*models.Incident, error) {
	if in.RoomID.IsZero() {
		return nil, NewValidationError("room_id is required")
	}
	if _, err := findByID[models.Room](ctx, s.db.Collection(roomsCollection), "room", in.RoomID); err != nil {
		return nil, err
	}
	if !in.TenantID.IsZero() {
		if _, err := findByID[models.Tenant](ctx, s.db.Collection(tenantsCollection), "tenant", in.TenantID); err != nil {
			return nil, err
		}
	}

	inc := &models.Incident{
		RoomID:      in.RoomID,
		TenantID:    in.TenantID,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Category:    in.Category,
		Priority:    in.Priority,
		Status:      models.IncidentOpen,
		ReportedBy:  actor.UserID,
	}
	if inc.Priority == "" {
		inc.Priority = models.PriorityMedium
	}
	return db.InsertOne(ctx, s.coll(), inc, s.now())
}

func (s *incidentService) FindByID(ctx context.Context, id utils.SixID) (*models.Incident, error) {
	return findByID[models.Incident](ctx, s.coll(), "incident", id)
}

func (s *incidentService) List(ctx context.Context, filter IncidentFilter, page models.Page) ([]models.Incident, int64, error) {
	q := bson.M{}
	if !filter.RoomID.IsZero() {
		q["room_id"] = filter.RoomID
	}
	if filter.Status != "" {
		q["status"] = filter.Status
	}
	if filter.Priority != "" {
		q["priority"] = filter.Priority
	}
	return findPage[models.Incident](ctx, s.coll(), q, bson.D{{Key: "created_at", Value: -1}}, page)
}

func (s *incidentService) Update(ctx context.Context, actor Actor, id utils.SixID, upd IncidentUpdate) (*models.Incident, error) {
	inc, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.now()

	if upd.Title != nil {
		inc.Title = strings.TrimSpace(*upd.Title)
	}
	if upd.Description != nil {
		inc.Description = *upd.Description
	}
	if upd.Priority != nil {
		inc.Priority = *upd.Priority
	}
	if upd.AssigneeID != nil {
		inc.AssigneeID = *upd.AssigneeID
		if inc.Status == models.IncidentOpen && !inc.AssigneeID.IsZero() && upd.Status == nil {
			inc.Status = models.IncidentInProgress
		}
	}
	if upd.Resolution != nil {
		inc.Resolution = *upd.Resolution
	}
	if upd.Status != nil {
		if !canTransition(inc.Status, *upd.Status) {
			return nil, NewValidationError("incident cannot move from %s to %s", inc.Status, *upd.Status)
		}
		inc.Status = *upd.Status
	}
	switch {
	case inc.Status == models.IncidentResolved && inc.ResolvedAt == nil:
		inc.ResolvedAt = &now
	case inc.Status != models.IncidentResolved:
		inc.ResolvedAt = nil
	}
	inc.Touch(now)

	if _, err := s.coll().ReplaceOne(ctx, bson.M{"_id": id}, inc); err != nil {
		return nil, fmt.Errorf("failed to update incident %s: %w", id, err)
	}
	return inc, nil
}

func (s *incidentService) Delete(ctx context.Context, actor Actor, id utils.SixID) error {
	res, err := s.coll().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete incident %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return notFound("incident", id)
	}
	return nil
}
