package services

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"trohub/app/internal/config"
	"trohub/app/internal/db"
	"trohub/app/internal/models"
	"trohub/app/internal/utils"
)

const notificationsCollection = "notifications"

// NotificationInput addresses staff users. No recipients means everyone.
type NotificationInput struct {
	Title        string                  `json:"title" binding:"required,max=200"`
	Content      string                  `json:"content" binding:"required,max=5000"`
	Type         models.NotificationType `json:"type" binding:"omitempty,oneof=general invoice payment incident contract"`
	RecipientIDs []utils.SixID           `json:"recipient_ids"`
	TenantIDs    []utils.SixID           `json:"tenant_ids"`
}

// NotificationView is a notification as seen by one user.
type NotificationView struct {
	models.Notification
	Read bool `json:"read"`
}

type INotificationService interface {
	Create(ctx context.Context, actor Actor, in NotificationInput) (*models.Notification, error)
	ListForUser(ctx context.Context, userID utils.SixID, unreadOnly bool, page models.Page) ([]NotificationView, int64, error)
	MarkRead(ctx context.Context, userID, id utils.SixID) error
	Delete(ctx context.Context, actor Actor, id utils.SixID) error
}

type notificationService struct {
	db  *mongo.Database
	now Clock
}

func NewNotificationService(db *mongo.Database, cfg *config.Config) INotificationService {
	return &notificationService{db: db, now: NewClock(cfg)}
}

func (s *notificationService) coll() *mongo.Collection {
	return s.db.Collection(notificationsCollection)
}

func (s *notificationService) Create(ctx context.Context, actor Actor, in NotificationInput) (*models.Notification, error) {
	n := &models.Notification{
		Title:        in.Title,
		Content:      in.Content,
		Type:         in.Type,
		RecipientIDs: dedupeIDs(in.RecipientIDs),
		ReadBy:       []utils.SixID{},
		TenantIDs:    dedupeIDs(in.TenantIDs),
		CreatedBy:    actor.UserID,
	}
	if n.Type == "" {
		n.Type = models.NotifyGeneral
	}
	return db.InsertOne(ctx, s.coll(), n, s.now())
}

func visibleTo(userID utils.SixID) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{"recipient_ids": userID},
		bson.M{"recipient_ids": bson.M{"$size": 0}},
	}}
}

func (s *notificationService) ListForUser(ctx context.Context, userID utils.SixID, unreadOnly bool, page models.Page) ([]NotificationView, int64, error) {
	filter := visibleTo(userID)
	if unreadOnly {
		filter["read_by"] = bson.M{"$ne": userID}
	}
	items, total, err := findPage[models.Notification](ctx, s.coll(), filter, bson.D{{Key: "created_at", Value: -1}}, page)
	if err != nil {
		return nil, 0, err
	}
	views := make([]NotificationView, len(items))
	for i := range items {
		views[i] = NotificationView{Notification: items[i], Read: containsID(items[i].ReadBy, userID)}
	}
	return views, total, nil
}

func (s *notificationService) MarkRead(ctx context.Context, userID, id utils.SixID) error {
	filter := visibleTo(userID)
	filter["_id"] = id
	res, err := s.coll().UpdateOne(ctx, filter, bson.M{"$addToSet": bson.M{"read_by": userID}})
	if err != nil {
		return fmt.Errorf("failed to mark notification %s read: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return notFound("notification", id)
	}
	return nil
}

// Delete is allowed to the author and to admins.
func (s *notificationService) Delete(ctx context.Context, actor Actor, id utils.SixID) error {
	n, err := findByID[models.Notification](ctx, s.coll(), "notification", id)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() && n.CreatedBy != actor.UserID {
		return &PermissionError{Message: "only the author or an admin may delete this notification"}
	}
	if _, err := s.coll().DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("failed to delete notification %s: %w", id, err)
	}
	return nil
}
