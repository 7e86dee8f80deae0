package records

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"attendtrack/backend/internal/shared"
)

// Store is the persistence boundary for attendance records. Records are
// independent top-level documents, not owned by any teacher profile, so that
// multi-teacher and admin reporting can read across all of them.
type Store interface {
	Insert(ctx context.Context, rec *shared.AttendanceRecord) error
	Get(ctx context.Context, id string) (*shared.AttendanceRecord, error)
	Replace(ctx context.Context, rec *shared.AttendanceRecord) error

	// CountForDay counts existing attempts for a dimension tuple on a date,
	// used to assign the next record number.
	CountForDay(ctx context.Context, date, stream string, semester int32, subject string) (int64, error)

	// FindByDimensions returns all attempts for the tuple, newest-created first.
	FindByDimensions(ctx context.Context, date, subject, stream string, semester int32) ([]shared.AttendanceRecord, error)

	// FindByStream returns records for a stream/semester, optionally bounded
	// by an inclusive [from, to] date range (empty string means unbounded).
	FindByStream(ctx context.Context, stream string, semester int32, from, to string) ([]shared.AttendanceRecord, error)

	// MarkReconciliation flags a record whose queue move failed after the
	// record write succeeded.
	MarkReconciliation(ctx context.Context, id string) error
}

// MongoStore persists records in the attendance_records collection.
type MongoStore struct {
	col *mongo.Collection
}

// NewMongoStore creates a store over db's attendance_records collection.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{col: db.Collection(shared.ColAttendanceRecords)}
}

func (s *MongoStore) Insert(ctx context.Context, rec *shared.AttendanceRecord) error {
	queryCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := s.col.InsertOne(queryCtx, rec); err != nil {
		return fmt.Errorf("%w: insert attendance record: %v", shared.ErrUnavailable, err)
	}
	return nil
}

func (s *MongoStore) Get(ctx context.Context, id string) (*shared.AttendanceRecord, error) {
	queryCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var rec shared.AttendanceRecord
	err := s.col.FindOne(queryCtx, bson.M{"_id": id}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: attendance record %s", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get attendance record: %v", shared.ErrUnavailable, err)
	}
	return &rec, nil
}

func (s *MongoStore) Replace(ctx context.Context, rec *shared.AttendanceRecord) error {
	queryCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := s.col.ReplaceOne(queryCtx, bson.M{"_id": rec.ID}, rec)
	if err != nil {
		return fmt.Errorf("%w: replace attendance record: %v", shared.ErrUnavailable, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: attendance record %s", shared.ErrNotFound, rec.ID)
	}
	return nil
}

func (s *MongoStore) CountForDay(ctx context.Context, date, stream string, semester int32, subject string) (int64, error) {
	filter := bson.M{"date": date, "stream": stream, "semester": semester, "subject": subject}
	count, err := shared.CountDocumentsWithTimeout(ctx, s.col, filter, 5*time.Second)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", shared.ErrUnavailable, err)
	}
	return count, nil
}

func (s *MongoStore) FindByDimensions(ctx context.Context, date, subject, stream string, semester int32) ([]shared.AttendanceRecord, error) {
	filter := bson.M{"date": date, "subject": subject, "stream": stream, "semester": semester}
	return s.find(ctx, filter)
}

func (s *MongoStore) FindByStream(ctx context.Context, stream string, semester int32, from, to string) ([]shared.AttendanceRecord, error) {
	filter := bson.M{"stream": stream, "semester": semester}
	dateRange := bson.M{}
	if from != "" {
		dateRange["$gte"] = from
	}
	if to != "" {
		dateRange["$lte"] = to
	}
	if len(dateRange) > 0 {
		filter["date"] = dateRange
	}
	return s.find(ctx, filter)
}

func (s *MongoStore) MarkReconciliation(ctx context.Context, id string) error {
	queryCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	update := bson.M{"$set": bson.M{"needs_reconciliation": true, "last_updated": time.Now()}}
	res, err := s.col.UpdateOne(queryCtx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("%w: mark reconciliation: %v", shared.ErrUnavailable, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: attendance record %s", shared.ErrNotFound, id)
	}
	return nil
}

func (s *MongoStore) find(ctx context.Context, filter bson.M) ([]shared.AttendanceRecord, error) {
	queryCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := shared.BuildFindOptions(0, "created_at", -1)
	cursor, err := s.col.Find(queryCtx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: find attendance records: %v", shared.ErrUnavailable, err)
	}
	defer cursor.Close(queryCtx)

	var out []shared.AttendanceRecord
	if err := cursor.All(queryCtx, &out); err != nil {
		return nil, fmt.Errorf("%w: decode attendance records: %v", shared.ErrUnavailable, err)
	}
	return out, nil
}
