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

// CreateRoom inserts a new chat room and assigns its ID. The unique index
// on report_id turns a concurrent duplicate into ErrDuplicateRoom.
func (s *MongoStore) CreateRoom(ctx context.Context, room *core.ChatRoom) error {
	room.ID = primitive.NewObjectID().Hex()
	room.CreatedAt = time.Now().UTC()
	if room.Participants == nil {
		room.Participants = []string{}
	}

	_, err := s.db.Collection(collChatRooms).InsertOne(ctx, room)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateRoom
		}
		return fmt.Errorf("failed to insert chat room: %w", err)
	}
	return nil
}

// GetRoom retrieves a chat room by ID.
func (s *MongoStore) GetRoom(ctx context.Context, id string) (*core.ChatRoom, error) {
	var room core.ChatRoom
	err := s.db.Collection(collChatRooms).FindOne(ctx, bson.M{"_id": id}).Decode(&room)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to find chat room: %w", err)
	}
	return &room, nil
}

// GetRoomByReport retrieves the room bound to a report.
func (s *MongoStore) GetRoomByReport(ctx context.Context, reportID string) (*core.ChatRoom, error) {
	var room core.ChatRoom
	err := s.db.Collection(collChatRooms).FindOne(ctx, bson.M{"report_id": reportID}).Decode(&room)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to find chat room by report: %w", err)
	}
	return &room, nil
}

// AddParticipant joins userID to the room. $addToSet gives the grow-only
// set semantics server-side; a repeat join changes nothing.
func (s *MongoStore) AddParticipant(ctx context.Context, roomID, userID string) (*core.ChatRoom, error) {
	update := bson.M{"$addToSet": bson.M{"participants": userID}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var room core.ChatRoom
	err := s.db.Collection(collChatRooms).FindOneAndUpdate(ctx, bson.M{"_id": roomID}, update, opts).Decode(&room)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to add participant: %w", err)
	}
	return &room, nil
}

// ListRoomsFor returns every room containing userID, newest first.
func (s *MongoStore) ListRoomsFor(ctx context.Context, userID string) ([]core.ChatRoom, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})

	cursor, err := s.db.Collection(collChatRooms).Find(ctx, bson.M{"participants": userID}, findOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to find chat rooms: %w", err)
	}
	defer cursor.Close(ctx)

	rooms := make([]core.ChatRoom, 0)
	if err := cursor.All(ctx, &rooms); err != nil {
		return nil, fmt.Errorf("failed to decode chat rooms: %w", err)
	}
	return rooms, nil
}

// ListRooms returns every room, newest first.
func (s *MongoStore) ListRooms(ctx context.Context) ([]core.ChatRoom, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})

	cursor, err := s.db.Collection(collChatRooms).Find(ctx, bson.M{}, findOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to find chat rooms: %w", err)
	}
	defer cursor.Close(ctx)

	rooms := make([]core.ChatRoom, 0)
	if err := cursor.All(ctx, &rooms); err != nil {
		return nil, fmt.Errorf("failed to decode chat rooms: %w", err)
	}
	return rooms, nil
}

// CreateMessage appends a message to the room's log and assigns its ID.
func (s *MongoStore) CreateMessage(ctx context.Context, msg *core.Message) error {
	count, err := s.db.Collection(collChatRooms).CountDocuments(ctx, bson.M{"_id": msg.RoomID})
	if err != nil {
		return fmt.Errorf("failed to check room existence: %w", err)
	}
	if count == 0 {
		return ErrRoomNotFound
	}

	msg.ID = primitive.NewObjectID().Hex()
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	_, err = s.db.Collection(collMessages).InsertOne(ctx, msg)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

// ListMessages returns room messages in ascending timestamp order, with
// ObjectID hex breaking same-tick ties in insertion order.
func (s *MongoStore) ListMessages(ctx context.Context, roomID string, page MessagePage) ([]core.Message, error) {
	filter := bson.M{"room_id": roomID}

	if page.After != "" {
		var anchor core.Message
		err := s.db.Collection(collMessages).FindOne(ctx, bson.M{"_id": page.After, "room_id": roomID}).Decode(&anchor)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				// Unknown cursor: treat as the start of the history.
				anchor = core.Message{}
			} else {
				return nil, fmt.Errorf("failed to resolve message cursor: %w", err)
			}
		}
		if anchor.ID != "" {
			filter["$or"] = []bson.M{
				{"timestamp": bson.M{"$gt": anchor.Timestamp}},
				{"timestamp": anchor.Timestamp, "_id": bson.M{"$gt": anchor.ID}},
			}
		}
	}

	findOptions := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}, {Key: "_id", Value: 1}})
	if page.Limit > 0 {
		findOptions.SetLimit(int64(page.Limit))
	}

	cursor, err := s.db.Collection(collMessages).Find(ctx, filter, findOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to find messages: %w", err)
	}
	defer cursor.Close(ctx)

	messages := make([]core.Message, 0)
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("failed to decode messages: %w", err)
	}
	return messages, nil
}
