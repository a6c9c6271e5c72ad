package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
	"trohub/app/internal/models"
)

// ConnectDB initializes and returns a MongoDB client and database instance.
func ConnectDB(uri, dbName string) (*mongo.Client, *mongo.Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	ctxPing, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelPing()
	if err := client.Ping(ctxPing, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	zap.S().Infof("Connected to MongoDB database %q", dbName)
	return client, client.Database(dbName), nil
}

// DisconnectDB closes the MongoDB client connection.
func DisconnectDB(client *mongo.Client) error {
	if client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect MongoDB: %w", err)
	}
	zap.S().Info("MongoDB connection closed")
	return nil
}

// EnsureIndexes creates the given indexes per collection. Existing identical
// indexes are left alone by the server.
func EnsureIndexes(ctx context.Context, database *mongo.Database, indexes map[string][]mongo.IndexModel) error {
	for collection, idx := range indexes {
		if len(idx) == 0 {
			continue
		}
		if _, err := database.Collection(collection).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", collection, err)
		}
	}
	return nil
}

// InsertOne stamps and inserts doc, retrying with a fresh ID on duplicate keys.
// Each attempt runs the optional prepare hooks first, so values covered by other
// unique indexes (invoice codes) are regenerated too.
func InsertOne[T models.IBase](ctx context.Context, coll *mongo.Collection, doc T, now time.Time, prepare ...func()) (T, error) {
	doc.GenIDIfEmpty()
	doc.Touch(now)
	err := WithRetries(ctx, func(attempt int) error {
		if attempt > 0 {
			doc.GenID()
		}
		for _, p := range prepare {
			p()
		}
		_, err := coll.InsertOne(ctx, doc)
		return err
	}, insertRetries(ctx), IsDuplicateKey)
	if err != nil {
		return doc, fmt.Errorf("failed to insert into %s: %w", coll.Name(), err)
	}
	return doc, nil
}

// insertRetries is DefaultMaxRetries outside a session. A failed write aborts
// the surrounding transaction, so a retry inside one can never succeed.
func insertRetries(ctx context.Context) int {
	if mongo.SessionFromContext(ctx) != nil {
		return 0
	}
	return DefaultMaxRetries
}

// WithTransaction runs fn inside a multi-document transaction when enabled.
// Otherwise fn runs directly with ctx; standalone servers do not support
// transactions, so deployments on them turn this off.
func WithTransaction(ctx context.Context, client *mongo.Client, enabled bool, fn func(ctx context.Context) error) error {
	if !enabled || client == nil {
		return fn(ctx)
	}
	session, err := client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}
