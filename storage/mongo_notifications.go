package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"campuswatch/core"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CreateNotification inserts a notification and assigns its ID.
func (s *MongoStore) CreateNotification(ctx context.Context, n *core.Notification) error {
	n.ID = primitive.NewObjectID().Hex()
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now().UTC()
	}

	_, err := s.db.Collection(collNotifications).InsertOne(ctx, n)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// ListNotificationsFor returns the recipient's notifications newest first.
func (s *MongoStore) ListNotificationsFor(ctx context.Context, recipient string) ([]core.Notification, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}})

	cursor, err := s.db.Collection(collNotifications).Find(ctx, bson.M{"recipient": recipient}, findOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to find notifications: %w", err)
	}
	defer cursor.Close(ctx)

	notifications := make([]core.Notification, 0)
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, fmt.Errorf("failed to decode notifications: %w", err)
	}
	return notifications, nil
}

// MarkNotificationRead flips the read flag. The recipient is part of the
// filter, so marking someone else's notification reads as not-found.
func (s *MongoStore) MarkNotificationRead(ctx context.Context, id, recipient string) (*core.Notification, error) {
	filter := bson.M{"_id": id, "recipient": recipient}
	update := bson.M{"$set": bson.M{"read": true}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var n core.Notification
	err := s.db.Collection(collNotifications).FindOneAndUpdate(ctx, filter, update, opts).Decode(&n)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotificationNotFound
		}
		return nil, fmt.Errorf("failed to mark notification read: %w", err)
	}
	return &n, nil
}
