package storage

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Collection names used by the durable backend.
const (
	collUsers         = "users"
	collReports       = "reports"
	collChatRooms     = "chat_rooms"
	collMessages      = "messages"
	collNotifications = "notifications"
	collAdminRequests = "admin_requests"
)

// MongoDB holds the MongoDB client and database
type MongoDB struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// NewMongoDB creates a new MongoDB connection
func NewMongoDB(uri, dbName string, maxPoolSize uint64, logger *zap.SugaredLogger) (*MongoDB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(uri).SetMaxPoolSize(maxPoolSize)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Ping to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logger.Info("Connected to MongoDB successfully")

	return &MongoDB{
		Client:   client,
		Database: client.Database(dbName),
	}, nil
}

// HealthCheck performs a health check on the MongoDB connection
func (m *MongoDB) HealthCheck(ctx context.Context) error {
	return m.Client.Ping(ctx, nil)
}

// Close closes the MongoDB connection
func (m *MongoDB) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}

// MongoStore is the durable persistence backend. Every entity lives in its
// own collection; ids are ObjectID hex strings assigned on insert.
type MongoStore struct {
	db     *mongo.Database
	logger *zap.SugaredLogger
}

// NewMongoStore wraps an established MongoDB connection as a Store.
func NewMongoStore(mongoDB *MongoDB, logger *zap.SugaredLogger) *MongoStore {
	return &MongoStore{
		db:     mongoDB.Database,
		logger: logger,
	}
}

// Name identifies the backend in logs.
func (s *MongoStore) Name() string { return "mongodb" }

// EnsureIndexes creates the indexes the queries depend on. Safe to call on
// every startup; index creation is idempotent.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	// Unique email for registered accounts only; anonymous users carry no
	// email at all.
	_, err := s.db.Collection(collUsers).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "email", Value: 1}},
		Options: options.Index().
			SetUnique(true).
			SetPartialFilterExpression(bson.M{"email": bson.M{"$exists": true, "$type": "string"}}),
	})
	if err != nil {
		return fmt.Errorf("failed to create users email index: %w", err)
	}

	// One room per report; the unique index makes the bijection hold even
	// under concurrent room creation.
	_, err = s.db.Collection(collChatRooms).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "report_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create chat_rooms report index: %w", err)
	}

	_, err = s.db.Collection(collMessages).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "room_id", Value: 1}, {Key: "timestamp", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create messages room index: %w", err)
	}

	_, err = s.db.Collection(collNotifications).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "recipient", Value: 1}, {Key: "timestamp", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create notifications recipient index: %w", err)
	}

	_, err = s.db.Collection(collReports).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "reporter_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create reports reporter index: %w", err)
	}

	return nil
}
