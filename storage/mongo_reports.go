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

// CreateReport inserts a new report and assigns its ID.
func (s *MongoStore) CreateReport(ctx context.Context, report *core.Report) error {
	report.ID = primitive.NewObjectID().Hex()

	now := time.Now().UTC()
	report.CreatedAt = now
	report.UpdatedAt = now

	_, err := s.db.Collection(collReports).InsertOne(ctx, report)
	if err != nil {
		return fmt.Errorf("failed to insert report: %w", err)
	}
	return nil
}

// GetReport retrieves a report by ID.
func (s *MongoStore) GetReport(ctx context.Context, id string) (*core.Report, error) {
	var report core.Report
	err := s.db.Collection(collReports).FindOne(ctx, bson.M{"_id": id}).Decode(&report)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("failed to find report: %w", err)
	}
	return &report, nil
}

// UpdateReport replaces the stored report document.
func (s *MongoStore) UpdateReport(ctx context.Context, report *core.Report) error {
	report.UpdatedAt = time.Now().UTC()

	result, err := s.db.Collection(collReports).ReplaceOne(ctx, bson.M{"_id": report.ID}, report)
	if err != nil {
		return fmt.Errorf("failed to update report: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrReportNotFound
	}
	return nil
}

// ListReports returns matching reports newest-first plus the total match
// count before pagination.
func (s *MongoStore) ListReports(ctx context.Context, filters *ReportFilters) ([]core.Report, int64, error) {
	if filters == nil {
		filters = &ReportFilters{}
	}
	filter := reportFilterQuery(filters)

	coll := s.db.Collection(collReports)

	total, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count reports: %w", err)
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(filters.Skip))
	if filters.Limit > 0 {
		findOptions.SetLimit(int64(filters.Limit))
	}

	cursor, err := coll.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find reports: %w", err)
	}
	defer cursor.Close(ctx)

	reports := make([]core.Report, 0)
	if err := cursor.All(ctx, &reports); err != nil {
		return nil, 0, fmt.Errorf("failed to decode reports: %w", err)
	}
	return reports, total, nil
}

func reportFilterQuery(filters *ReportFilters) bson.M {
	filter := bson.M{}
	if filters.ReporterID != "" {
		filter["reporter_id"] = filters.ReporterID
	}
	if filters.Category != "" {
		filter["category"] = filters.Category
	}
	if filters.Status != "" {
		filter["status"] = filters.Status
	}
	if filters.Priority != "" {
		filter["priority"] = filters.Priority
	}
	timeRange := bson.M{}
	if !filters.Start.IsZero() {
		timeRange["$gte"] = filters.Start
	}
	if !filters.End.IsZero() {
		timeRange["$lte"] = filters.End
	}
	if len(timeRange) > 0 {
		filter["created_at"] = timeRange
	}
	return filter
}

// AssignReport claims a report for actorID. The filter matches only while
// the report is unassigned, so check and set are one server-side operation
// and two concurrent claims can never both win.
func (s *MongoStore) AssignReport(ctx context.Context, reportID, actorID string) error {
	filter := bson.M{
		"_id": reportID,
		"$or": []bson.M{
			{"assigned_to": bson.M{"$exists": false}},
			{"assigned_to": ""},
		},
	}
	update := bson.M{"$set": bson.M{
		"assigned_to": actorID,
		"updated_at":  time.Now().UTC(),
	}}

	err := s.db.Collection(collReports).FindOneAndUpdate(ctx, filter, update).Err()
	if err == nil {
		return nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("failed to assign report: %w", err)
	}

	// No match: either the report does not exist or it is already claimed.
	count, countErr := s.db.Collection(collReports).CountDocuments(ctx, bson.M{"_id": reportID})
	if countErr != nil {
		return fmt.Errorf("failed to check report existence: %w", countErr)
	}
	if count == 0 {
		return ErrReportNotFound
	}
	return core.ErrAlreadyAssigned
}

// SetReportStatus updates the lifecycle status.
func (s *MongoStore) SetReportStatus(ctx context.Context, reportID string, status core.ReportStatus) error {
	update := bson.M{"$set": bson.M{
		"status":     status,
		"updated_at": time.Now().UTC(),
	}}
	result, err := s.db.Collection(collReports).UpdateOne(ctx, bson.M{"_id": reportID}, update)
	if err != nil {
		return fmt.Errorf("failed to set report status: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrReportNotFound
	}
	return nil
}

// AddAdminNote appends a private note to the report.
func (s *MongoStore) AddAdminNote(ctx context.Context, reportID string, note core.AdminNote) error {
	update := bson.M{
		"$push": bson.M{"admin_notes": note},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	}
	result, err := s.db.Collection(collReports).UpdateOne(ctx, bson.M{"_id": reportID}, update)
	if err != nil {
		return fmt.Errorf("failed to add admin note: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrReportNotFound
	}
	return nil
}

// AddPublicUpdate appends a reporter-visible update to the report.
func (s *MongoStore) AddPublicUpdate(ctx context.Context, reportID string, update core.PublicUpdate) error {
	change := bson.M{
		"$push": bson.M{"public_updates": update},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	}
	result, err := s.db.Collection(collReports).UpdateOne(ctx, bson.M{"_id": reportID}, change)
	if err != nil {
		return fmt.Errorf("failed to add public update: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrReportNotFound
	}
	return nil
}

// CountReports counts reports in the given status; the empty status counts
// everything.
func (s *MongoStore) CountReports(ctx context.Context, status core.ReportStatus) (int64, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	count, err := s.db.Collection(collReports).CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count reports: %w", err)
	}
	return count, nil
}
