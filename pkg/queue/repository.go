package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/gentleomega/go-aibob/pkg/common/models"
)

// Store is the persistence contract for suggestion documents. Timestamps on
// mutations are assigned by the store, not the caller.
type Store interface {
	Insert(ctx context.Context, s *models.Suggestion) error
	Get(ctx context.Context, id string) (*models.Suggestion, error)
	ListByStatus(ctx context.Context, status string, limit int) ([]models.Suggestion, error)
	All(ctx context.Context) ([]models.Suggestion, error)
	SetReview(ctx context.Context, id, status, reviewer, notes string) error
	SetStatus(ctx context.Context, id, status string) error
	SetProgress(ctx context.Context, id string, percent int, step string) error
	SetResults(ctx context.Context, id string, results models.ProcessingResults) error
	SetFailure(ctx context.Context, id, errMsg string) error
}

// Repository is the MongoDB-backed Store.
type Repository struct {
	coll *mongo.Collection
	now  func() time.Time
}

var _ Store = (*Repository)(nil)

func NewRepository(coll *mongo.Collection) *Repository {
	return &Repository{coll: coll, now: time.Now}
}

func (r *Repository) Insert(ctx context.Context, s *models.Suggestion) error {
	if _, err := r.coll.InsertOne(ctx, fromDomain(s)); err != nil {
		return fmt.Errorf("insert suggestion: %w", err)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id string) (*models.Suggestion, error) {
	var doc suggestionDoc
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrSuggestionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find suggestion: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *Repository) ListByStatus(ctx context.Context, status string, limit int) ([]models.Suggestion, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.coll.Find(ctx, bson.M{"status": status}, opts)
	if err != nil {
		return nil, fmt.Errorf("list suggestions: %w", err)
	}
	defer cursor.Close(ctx)

	return decodeAll(ctx, cursor)
}

func (r *Repository) All(ctx context.Context) ([]models.Suggestion, error) {
	cursor, err := r.coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("scan suggestions: %w", err)
	}
	defer cursor.Close(ctx)

	return decodeAll(ctx, cursor)
}

func (r *Repository) SetReview(ctx context.Context, id, status, reviewer, notes string) error {
	now := r.now().UTC()
	update := bson.M{"$set": bson.M{
		"status":       status,
		"reviewed_by":  reviewer,
		"reviewed_at":  now,
		"review_notes": notes,
		"updated_at":   now,
	}}
	return r.updateOne(ctx, id, update)
}

func (r *Repository) SetStatus(ctx context.Context, id, status string) error {
	now := r.now().UTC()
	set := bson.M{
		"status":     status,
		"updated_at": now,
	}
	switch status {
	case models.StatusProcessing:
		set["processing_at"] = now
	case models.StatusCompleted, models.StatusFailed:
		set["completed_at"] = now
	}
	return r.updateOne(ctx, id, bson.M{"$set": set})
}

func (r *Repository) SetProgress(ctx context.Context, id string, percent int, step string) error {
	update := bson.M{"$set": bson.M{
		"processing_progress": percent,
		"processing_step":     step,
		"updated_at":          r.now().UTC(),
	}}
	return r.updateOne(ctx, id, update)
}

func (r *Repository) SetResults(ctx context.Context, id string, results models.ProcessingResults) error {
	now := r.now().UTC()
	update := bson.M{"$set": bson.M{
		"discovered_urls":     results.DiscoveredURLs,
		"url_analyses":        analysesFromDomain(results.URLAnalyses),
		"processed_count":     results.ProcessedCount,
		"success_count":       results.SuccessCount,
		"failure_count":       results.FailureCount,
		"processing_progress": results.Progress,
		"processing_step":     results.CurrentStep,
		"completed_at":        now,
		"updated_at":          now,
	}}
	return r.updateOne(ctx, id, update)
}

func (r *Repository) SetFailure(ctx context.Context, id, errMsg string) error {
	now := r.now().UTC()
	update := bson.M{"$set": bson.M{
		"status":           models.StatusFailed,
		"processing_error": errMsg,
		"completed_at":     now,
		"updated_at":       now,
	}}
	return r.updateOne(ctx, id, update)
}

func (r *Repository) updateOne(ctx context.Context, id string, update bson.M) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("update suggestion %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return ErrSuggestionNotFound
	}
	return nil
}

func decodeAll(ctx context.Context, cursor *mongo.Cursor) ([]models.Suggestion, error) {
	var docs []suggestionDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode suggestions: %w", err)
	}
	out := make([]models.Suggestion, 0, len(docs))
	for i := range docs {
		out = append(out, *docs[i].toDomain())
	}
	return out, nil
}
