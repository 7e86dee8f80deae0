package teacher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"attendtrack/backend/internal/shared"
)

// ProfileStore is the persistence boundary for teacher profiles. Replace is a
// compare-and-swap on the profile's version field: concurrent mutations of the
// same profile serialize instead of splicing each other's embedded arrays.
type ProfileStore interface {
	GetByUID(ctx context.Context, uid string) (*shared.TeacherProfile, error)
	GetByEmail(ctx context.Context, email string) (*shared.TeacherProfile, error)
	Insert(ctx context.Context, p *shared.TeacherProfile) error

	// Replace writes p only if the stored version still equals p.Version,
	// bumping the version on success. Returns shared.ErrVersionConflict when
	// the document moved underneath the caller.
	Replace(ctx context.Context, p *shared.TeacherProfile) error
}

// MongoProfileStore persists profiles in the teacher_profiles collection.
type MongoProfileStore struct {
	col *mongo.Collection
}

// NewMongoProfileStore creates a store over db's teacher_profiles collection.
func NewMongoProfileStore(db *mongo.Database) *MongoProfileStore {
	return &MongoProfileStore{col: db.Collection(shared.ColTeacherProfiles)}
}

func (s *MongoProfileStore) GetByUID(ctx context.Context, uid string) (*shared.TeacherProfile, error) {
	return s.findOne(ctx, bson.M{"_id": uid})
}

func (s *MongoProfileStore) GetByEmail(ctx context.Context, email string) (*shared.TeacherProfile, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

func (s *MongoProfileStore) Insert(ctx context.Context, p *shared.TeacherProfile) error {
	queryCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := s.col.InsertOne(queryCtx, p); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// Another request created the profile first; callers reload.
			return fmt.Errorf("%w: profile %s already exists", shared.ErrVersionConflict, p.UID)
		}
		return fmt.Errorf("%w: insert teacher profile: %v", shared.ErrUnavailable, err)
	}
	return nil
}

func (s *MongoProfileStore) Replace(ctx context.Context, p *shared.TeacherProfile) error {
	queryCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	next := *p
	next.Version = p.Version + 1
	next.UpdatedAt = time.Now()

	res, err := s.col.ReplaceOne(queryCtx, bson.M{"_id": p.UID, "version": p.Version}, &next)
	if err != nil {
		return fmt.Errorf("%w: replace teacher profile: %v", shared.ErrUnavailable, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: profile %s", shared.ErrVersionConflict, p.UID)
	}
	*p = next
	return nil
}

func (s *MongoProfileStore) findOne(ctx context.Context, filter bson.M) (*shared.TeacherProfile, error) {
	queryCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var p shared.TeacherProfile
	err := s.col.FindOne(queryCtx, filter).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: teacher profile", shared.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get teacher profile: %v", shared.ErrUnavailable, err)
	}
	return &p, nil
}
