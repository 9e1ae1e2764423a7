package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/studyon/coursehub/internal/core/domain"
	"github.com/studyon/coursehub/internal/core/ports"
)

const collectionLessons = "lessons"

type LessonRepository struct {
	col *mongo.Collection
}

var _ ports.LessonRepository = (*LessonRepository)(nil)

func NewLessonRepository(db *mongo.Database) *LessonRepository {
	return &LessonRepository{col: db.Collection(collectionLessons)}
}

type lessonDoc struct {
	ID       primitive.ObjectID `bson:"_id,omitempty"`
	CourseID primitive.ObjectID `bson:"course_id"`
	Name     string             `bson:"name"`
	Content  string             `bson:"content"`
	Serial   int                `bson:"serial"`
}

func (d *lessonDoc) toDomain() *domain.Lesson {
	return &domain.Lesson{
		ID:       d.ID.Hex(),
		CourseID: d.CourseID.Hex(),
		Name:     d.Name,
		Content:  d.Content,
		Serial:   d.Serial,
	}
}

func (r *LessonRepository) Create(ctx context.Context, l *domain.Lesson) error {
	courseID, err := primitive.ObjectIDFromHex(l.CourseID)
	if err != nil {
		return domain.ErrCourseNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := lessonDoc{
		ID:       primitive.NewObjectID(),
		CourseID: courseID,
		Name:     l.Name,
		Content:  l.Content,
		Serial:   l.Serial,
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert lesson: %w", err)
	}
	l.ID = doc.ID.Hex()
	return nil
}

func (r *LessonRepository) Update(ctx context.Context, l *domain.Lesson) error {
	oid, err := primitive.ObjectIDFromHex(l.ID)
	if err != nil {
		return domain.ErrLessonNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateByID(ctx, oid, bson.M{"$set": bson.M{
		"name":    l.Name,
		"content": l.Content,
		"serial":  l.Serial,
	}})
	if err != nil {
		return fmt.Errorf("update lesson: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrLessonNotFound
	}
	return nil
}

func (r *LessonRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrLessonNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete lesson: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrLessonNotFound
	}
	return nil
}

func (r *LessonRepository) FindByID(ctx context.Context, id string) (*domain.Lesson, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrLessonNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc lessonDoc
	if err := r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrLessonNotFound
		}
		return nil, fmt.Errorf("find lesson: %w", err)
	}
	return doc.toDomain(), nil
}

// ListByCourse returns the lessons of a course ordered by serial.
func (r *LessonRepository) ListByCourse(ctx context.Context, courseID string) ([]*domain.Lesson, error) {
	oid, err := primitive.ObjectIDFromHex(courseID)
	if err != nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "serial", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.col.Find(ctx, bson.M{"course_id": oid}, opts)
	if err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	defer cur.Close(ctx)

	var docs []lessonDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode lessons: %w", err)
	}
	out := make([]*domain.Lesson, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toDomain())
	}
	return out, nil
}

func (r *LessonRepository) DeleteByCourse(ctx context.Context, courseID string) error {
	oid, err := primitive.ObjectIDFromHex(courseID)
	if err != nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.col.DeleteMany(ctx, bson.M{"course_id": oid}); err != nil {
		return fmt.Errorf("delete course lessons: %w", err)
	}
	return nil
}

// EnsureIndexes creates the (course_id, serial) index used by ListByCourse.
func (r *LessonRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, indexTimeout)
	defer cancel()

	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "course_id", Value: 1}, {Key: "serial", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("lesson indexes: %w", err)
	}
	return nil
}
