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

// CreateAdminRequest inserts a role-upgrade request and assigns its ID.
func (s *MongoStore) CreateAdminRequest(ctx context.Context, req *core.AdminRequest) error {
	req.ID = primitive.NewObjectID().Hex()
	req.Status = core.RequestPending
	req.CreatedAt = time.Now().UTC()

	_, err := s.db.Collection(collAdminRequests).InsertOne(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to insert admin request: %w", err)
	}
	return nil
}

// GetAdminRequest retrieves a request by ID.
func (s *MongoStore) GetAdminRequest(ctx context.Context, id string) (*core.AdminRequest, error) {
	var req core.AdminRequest
	err := s.db.Collection(collAdminRequests).FindOne(ctx, bson.M{"_id": id}).Decode(&req)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrAdminRequestNotFound
		}
		return nil, fmt.Errorf("failed to find admin request: %w", err)
	}
	return &req, nil
}

// ListAdminRequests filters by status; the empty status lists all.
func (s *MongoStore) ListAdminRequests(ctx context.Context, status core.RequestStatus) ([]core.AdminRequest, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	findOptions := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})

	cursor, err := s.db.Collection(collAdminRequests).Find(ctx, filter, findOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to find admin requests: %w", err)
	}
	defer cursor.Close(ctx)

	requests := make([]core.AdminRequest, 0)
	if err := cursor.All(ctx, &requests); err != nil {
		return nil, fmt.Errorf("failed to decode admin requests: %w", err)
	}
	return requests, nil
}

// ReviewAdminRequest records the terminal review outcome. The filter only
// matches pending requests, so two reviewers racing on the same request
// cannot both record an outcome.
func (s *MongoStore) ReviewAdminRequest(ctx context.Context, id string, status core.RequestStatus, reviewerID, notes string) (*core.AdminRequest, error) {
	filter := bson.M{"_id": id, "status": core.RequestPending}
	update := bson.M{"$set": bson.M{
		"status":       status,
		"reviewed_by":  reviewerID,
		"review_notes": notes,
		"reviewed_at":  time.Now().UTC(),
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var req core.AdminRequest
	err := s.db.Collection(collAdminRequests).FindOneAndUpdate(ctx, filter, update, opts).Decode(&req)
	if err == nil {
		return &req, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to review admin request: %w", err)
	}

	// No match: missing request or one already reviewed.
	count, countErr := s.db.Collection(collAdminRequests).CountDocuments(ctx, bson.M{"_id": id})
	if countErr != nil {
		return nil, fmt.Errorf("failed to check admin request existence: %w", countErr)
	}
	if count == 0 {
		return nil, ErrAdminRequestNotFound
	}
	return nil, core.ErrRequestReviewed
}
