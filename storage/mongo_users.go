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
)

// CreateUser inserts a new user and assigns its ID.
func (s *MongoStore) CreateUser(ctx context.Context, user *core.User) error {
	user.ID = primitive.NewObjectID().Hex()

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.LastActive.IsZero() {
		user.LastActive = now
	}
	if user.RetentionDate.IsZero() {
		user.RetentionDate = now.Add(core.DefaultUserRetention)
	}

	_, err := s.db.Collection(collUsers).InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// GetUser retrieves a user by ID.
func (s *MongoStore) GetUser(ctx context.Context, id string) (*core.User, error) {
	var user core.User
	err := s.db.Collection(collUsers).FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

// GetUserByEmail retrieves a user by email.
func (s *MongoStore) GetUserByEmail(ctx context.Context, email string) (*core.User, error) {
	var user core.User
	err := s.db.Collection(collUsers).FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return &user, nil
}

// UpdateUser replaces the stored user document.
func (s *MongoStore) UpdateUser(ctx context.Context, user *core.User) error {
	user.UpdatedAt = time.Now().UTC()

	result, err := s.db.Collection(collUsers).ReplaceOne(ctx, bson.M{"_id": user.ID}, user)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpdateUserRole mutates only the role field.
func (s *MongoStore) UpdateUserRole(ctx context.Context, id string, role core.Role) error {
	update := bson.M{"$set": bson.M{
		"role":       role,
		"updated_at": time.Now().UTC(),
	}}
	result, err := s.db.Collection(collUsers).UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to update user role: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

// CountUsers returns the total number of users.
func (s *MongoStore) CountUsers(ctx context.Context) (int64, error) {
	count, err := s.db.Collection(collUsers).CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}
