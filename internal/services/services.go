package services

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"trohub/app/internal/config"
	"trohub/app/internal/models"
	"trohub/app/internal/utils"
)

// Actor is the authenticated user a mutation is performed for.
type Actor struct {
	UserID  utils.SixID
	Role    models.Role
	OwnerID utils.SixID // Landlord scope; see models.User.OwnerScope
}

// SystemActor is used by background jobs.
var SystemActor = Actor{Role: models.RoleAdmin}

func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

// CanManage reports whether the actor may mutate resources owned by owner.
func (a Actor) CanManage(owner utils.SixID) bool {
	return a.IsAdmin() || (!a.OwnerID.IsZero() && a.OwnerID == owner)
}

// authorizeRoom checks the actor manages the building of roomID. Admins pass
// without a lookup, so records with no room stay reachable for them.
func authorizeRoom(ctx context.Context, rooms IRoomService, actor Actor, roomID utils.SixID) error {
	if actor.IsAdmin() {
		return nil
	}
	_, err := rooms.Authorize(ctx, actor, roomID)
	return err
}

// Clock returns the reference time for status derivation.
type Clock func() time.Time

// NewClock returns wall-clock time in the configured business timezone.
func NewClock(cfg *config.Config) Clock {
	loc := time.Local
	if cfg != nil && cfg.Timezone != nil {
		loc = cfg.Timezone
	}
	return func() time.Time { return time.Now().In(loc) }
}

// findPage runs a filtered, sorted, paginated query and the matching count.
func findPage[T any](ctx context.Context, coll *mongo.Collection, filter bson.M, sort bson.D, page models.Page) ([]T, int64, error) {
	page = page.Normalize()
	total, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count %s: %w", coll.Name(), err)
	}

	opts := options.Find().SetSort(sort).SetSkip(page.Skip()).SetLimit(int64(page.Limit))
	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query %s: %w", coll.Name(), err)
	}
	defer cursor.Close(ctx)

	items := []T{}
	if err := cursor.All(ctx, &items); err != nil {
		return nil, 0, fmt.Errorf("failed to decode %s: %w", coll.Name(), err)
	}
	return items, total, nil
}

// findAll decodes every document matching filter.
func findAll[T any](ctx context.Context, coll *mongo.Collection, filter interface{}, opts ...*options.FindOptions) ([]T, error) {
	cursor, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", coll.Name(), err)
	}
	defer cursor.Close(ctx)

	items := []T{}
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", coll.Name(), err)
	}
	return items, nil
}

// findByID decodes one document by _id, mapping absence to NotFoundError.
func findByID[T any](ctx context.Context, coll *mongo.Collection, resource string, id utils.SixID) (*T, error) {
	var doc T
	if err := coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return nil, lookupErr(err, resource, id)
	}
	return &doc, nil
}

// containsFold builds a case-insensitive substring match.
func containsFold(s string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
}

// randomCode returns n Crockford characters for human-facing codes.
func randomCode(n int) string {
	return utils.NewSixID().String()[:n]
}
