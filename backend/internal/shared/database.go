// ============================================================================
// backend/internal/shared/database.go
// MongoDB connection and helper utilities
// ============================================================================

package shared

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Collection names.
const (
	ColAttendanceRecords = "attendance_records"
	ColTeacherProfiles   = "teacher_profiles"
)

// MongoConfig holds MongoDB connection configuration.
type MongoConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
	MaxPoolSize    uint64
	MinPoolSize    uint64
	MaxIdleTime    time.Duration
}

// ConnectMongoDB establishes a connection to MongoDB with pooling configured.
func ConnectMongoDB(config *MongoConfig) (*mongo.Client, *mongo.Database, error) {
	if config == nil {
		return nil, nil, fmt.Errorf("mongo config cannot be nil")
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.ConnectTimeout)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(config.URI).
		SetMaxPoolSize(config.MaxPoolSize).
		SetMinPoolSize(config.MinPoolSize).
		SetMaxConnIdleTime(config.MaxIdleTime).
		SetServerSelectionTimeout(10 * time.Second).
		SetConnectTimeout(config.ConnectTimeout)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	log.Println("INFO: Successfully connected to MongoDB")
	return client, client.Database(config.Database), nil
}

// EnsureIndexes creates the indexes the record and profile queries rely on.
// Safe to call on every startup; Mongo treats existing indexes as no-ops.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	records := db.Collection(ColAttendanceRecords)
	_, err := records.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			// Dimension lookups and record-number counting.
			Keys: bson.D{
				{Key: "date", Value: 1},
				{Key: "stream", Value: 1},
				{Key: "semester", Value: 1},
				{Key: "subject", Value: 1},
			},
		},
		{
			// Summary scans over a stream/semester.
			Keys: bson.D{
				{Key: "stream", Value: 1},
				{Key: "semester", Value: 1},
				{Key: "date", Value: 1},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create attendance record indexes: %w", err)
	}

	profiles := db.Collection(ColTeacherProfiles)
	_, err = profiles.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create teacher profile indexes: %w", err)
	}
	return nil
}

// ============================================================================
// ID Generation Helpers
// ============================================================================

// GenerateID generates a unique prefixed ID.
func GenerateID(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, uuid.NewString())
}

// GenerateRecordID generates an attendance record ID.
func GenerateRecordID() string { return GenerateID("REC") }

// GenerateQueueItemID generates a queue item ID.
func GenerateQueueItemID() string { return GenerateID("QI") }

// GenerateSubjectID generates a created-subject ID.
func GenerateSubjectID() string { return GenerateID("SUB") }

// ============================================================================
// Query Helpers
// ============================================================================

// BuildFindOptions creates common find options with defaults.
func BuildFindOptions(limit int64, sortField string, sortOrder int) *options.FindOptions {
	opts := options.Find()
	if limit > 0 {
		opts.SetLimit(limit)
	}
	if sortField != "" {
		opts.SetSort(bson.D{{Key: sortField, Value: sortOrder}})
	}
	return opts
}

// CountDocumentsWithTimeout counts documents with a bounded query timeout.
func CountDocumentsWithTimeout(ctx context.Context, col *mongo.Collection, filter bson.M, timeout time.Duration) (int64, error) {
	queryCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	count, err := col.CountDocuments(queryCtx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return count, nil
}
