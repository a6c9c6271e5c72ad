package services

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"trohub/app/internal/db"
)

// Indexes lists every index the services rely on, unique ones included.
func Indexes() map[string][]mongo.IndexModel {
	unique := options.Index().SetUnique(true)
	return map[string][]mongo.IndexModel{
		buildingsCollection: {
			{Keys: bson.D{{Key: "owner_id", Value: 1}}},
		},
		roomsCollection: {
			{Keys: bson.D{{Key: "building_id", Value: 1}, {Key: "code", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "status", Value: 1}}},
		},
		tenantsCollection: {
			{Keys: bson.D{{Key: "id_number", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "phone", Value: 1}}},
		},
		contractsCollection: {
			{Keys: bson.D{{Key: "code", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "room_id", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "tenant_ids", Value: 1}}},
			{Keys: bson.D{{Key: "representative_id", Value: 1}}},
		},
		meterReadingsCollection: {
			{Keys: bson.D{{Key: "room_id", Value: 1}, {Key: "year", Value: 1}, {Key: "month", Value: 1}}, Options: unique},
		},
		invoicesCollection: {
			{Keys: bson.D{{Key: "code", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "contract_id", Value: 1}, {Key: "year", Value: 1}, {Key: "month", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "due_date", Value: 1}}},
			{Keys: bson.D{{Key: "room_id", Value: 1}}},
		},
		paymentsCollection: {
			{Keys: bson.D{{Key: "invoice_id", Value: 1}}},
			{Keys: bson.D{{Key: "room_id", Value: 1}}},
			{Keys: bson.D{{Key: "paid_at", Value: -1}}},
		},
		incidentsCollection: {
			{Keys: bson.D{{Key: "room_id", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}}},
		},
		notificationsCollection: {
			{Keys: bson.D{{Key: "recipient_ids", Value: 1}}},
		},
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique},
		},
		apiConfigCollection: {
			{Keys: bson.D{{Key: "endpoint", Value: 1}}, Options: unique},
		},
		emailTemplatesCollection: {
			{Keys: bson.D{{Key: "template_id", Value: 1}, {Key: "locale", Value: 1}}, Options: unique},
		},
	}
}

func EnsureIndexes(ctx context.Context, database *mongo.Database) error {
	return db.EnsureIndexes(ctx, database, Indexes())
}
