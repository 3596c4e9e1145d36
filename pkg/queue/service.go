package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/gentleomega/go-aibob/pkg/common/kafka"
	"github.com/gentleomega/go-aibob/pkg/common/logger"
	"github.com/gentleomega/go-aibob/pkg/common/models"
	"github.com/gentleomega/go-aibob/pkg/observability/metrics"
)

const (
	eventSource  = "approval-queue"
	defaultLimit = 50

	statsCacheKey = "aibob:queue:stats"
)

// AuditRecorder persists reviewer actions for the audit trail.
type AuditRecorder interface {
	Record(ctx context.Context, actor, action, suggestionID, notes string) error
}

// Service is the system of record for suggestion documents: creation,
// review transitions, progress writes, and queue statistics.
type Service struct {
	store    Store
	events   kafka.Publisher
	auditor  AuditRecorder
	cache    *redis.Client
	cacheTTL time.Duration
	now      func() time.Time
}

// NewService wires the queue service. events, auditor, and cache may be nil;
// the service degrades to direct operation without them.
func NewService(store Store, events kafka.Publisher, auditor AuditRecorder, cache *redis.Client, cacheTTL time.Duration) *Service {
	return &Service{
		store:    store,
		events:   events,
		auditor:  auditor,
		cache:    cache,
		cacheTTL: cacheTTL,
		now:      time.Now,
	}
}

// Create inserts a new pending suggestion from an adapter result.
// Confidence outside [0,1] is rejected at ingestion.
func (s *Service) Create(ctx context.Context, input models.SuggestionInput, output models.SuggestionOutput, model string, generationTimeMs int64, createdBy string) (*models.Suggestion, error) {
	if output.Confidence < 0 || output.Confidence > 1 {
		return nil, fmt.Errorf("%w: %f", ErrConfidenceRange, output.Confidence)
	}
	if input.Location == "" {
		input.Location = "Global"
	}

	now := s.now().UTC()
	suggestion := &models.Suggestion{
		ID:               uuid.New().String(),
		Status:           models.StatusPending,
		Input:            input,
		Output:           output,
		Model:            model,
		GenerationTimeMs: generationTimeMs,
		CreatedBy:        createdBy,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.store.Insert(ctx, suggestion); err != nil {
		return nil, err
	}

	metrics.IncSuggestionCreated()
	s.invalidateStats(ctx)
	s.publish(ctx, kafka.EventSuggestionCreated, map[string]interface{}{
		"suggestion_id": suggestion.ID,
		"model":         model,
		"confidence":    output.Confidence,
	})

	return suggestion, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Suggestion, error) {
	return s.store.Get(ctx, id)
}

// ListByStatus returns suggestions in the given state, newest first.
func (s *Service) ListByStatus(ctx context.Context, status string, limit int) ([]models.Suggestion, error) {
	if !models.IsValidStatus(status) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	return s.store.ListByStatus(ctx, status, limit)
}

func (s *Service) ListPending(ctx context.Context) ([]models.Suggestion, error) {
	return s.ListByStatus(ctx, models.StatusPending, defaultLimit)
}

func (s *Service) ListApproved(ctx context.Context) ([]models.Suggestion, error) {
	return s.ListByStatus(ctx, models.StatusApproved, defaultLimit)
}

func (s *Service) ListCompleted(ctx context.Context) ([]models.Suggestion, error) {
	return s.ListByStatus(ctx, models.StatusCompleted, defaultLimit)
}

// Approve transitions a suggestion to approved. Only pending suggestions may
// be reviewed unless force is set (manual reprocessing override).
func (s *Service) Approve(ctx context.Context, id, reviewerID, notes string, force bool) error {
	return s.review(ctx, id, models.StatusApproved, reviewerID, notes, force)
}

// Reject transitions a suggestion to rejected under the same guard.
func (s *Service) Reject(ctx context.Context, id, reviewerID, notes string, force bool) error {
	return s.review(ctx, id, models.StatusRejected, reviewerID, notes, force)
}

func (s *Service) review(ctx context.Context, id, status, reviewerID, notes string, force bool) error {
	current, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if current.Status != models.StatusPending && !force {
		return fmt.Errorf("%w: cannot move %s suggestion %s to %s", ErrIllegalTransition, current.Status, id, status)
	}

	if err := s.store.SetReview(ctx, id, status, reviewerID, notes); err != nil {
		return err
	}

	s.invalidateStats(ctx)
	s.recordAudit(ctx, reviewerID, status, id, notes)

	eventType := kafka.EventSuggestionApproved
	if status == models.StatusRejected {
		eventType = kafka.EventSuggestionRejected
		metrics.IncSuggestionRejected()
	} else {
		metrics.IncSuggestionApproved()
	}
	s.publish(ctx, eventType, map[string]interface{}{
		"suggestion_id": id,
		"reviewer":      reviewerID,
		"forced":        force,
	})
	return nil
}

// BulkApprove applies the approve transition per item, capturing individual
// failures instead of aborting the batch.
func (s *Service) BulkApprove(ctx context.Context, ids []string, reviewerID string) *models.BulkResult {
	return s.bulkReview(ctx, ids, models.StatusApproved, reviewerID)
}

func (s *Service) BulkReject(ctx context.Context, ids []string, reviewerID string) *models.BulkResult {
	return s.bulkReview(ctx, ids, models.StatusRejected, reviewerID)
}

func (s *Service) bulkReview(ctx context.Context, ids []string, status, reviewerID string) *models.BulkResult {
	result := &models.BulkResult{Total: len(ids), Errors: []models.BulkError{}}
	for _, id := range ids {
		if err := s.review(ctx, id, status, reviewerID, "", false); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, models.BulkError{ID: id, Error: err.Error()})
			continue
		}
		result.Successful++
	}
	return result
}

// UpdateStatus performs a raw transition. The caller is responsible for
// legality; the pipeline uses this for its own stage transitions.
func (s *Service) UpdateStatus(ctx context.Context, id, status string) error {
	if !models.IsValidStatus(status) {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	if err := s.store.SetStatus(ctx, id, status); err != nil {
		return err
	}
	s.invalidateStats(ctx)
	return nil
}

// UpdateProgress persists both the percentage and the human-readable step.
func (s *Service) UpdateProgress(ctx context.Context, id string, percent int, step string) error {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	if err := s.store.SetProgress(ctx, id, percent, step); err != nil {
		return err
	}
	s.publish(ctx, kafka.EventProcessingProgress, map[string]interface{}{
		"suggestion_id": id,
		"progress":      percent,
		"step":          step,
	})
	return nil
}

// SaveResults persists a finished pipeline run onto the suggestion.
func (s *Service) SaveResults(ctx context.Context, id string, results models.ProcessingResults) error {
	return s.store.SetResults(ctx, id, results)
}

// MarkFailed flips the suggestion to failed and records the error string.
func (s *Service) MarkFailed(ctx context.Context, id, errMsg string) error {
	if err := s.store.SetFailure(ctx, id, errMsg); err != nil {
		return err
	}
	s.invalidateStats(ctx)
	s.publish(ctx, kafka.EventProcessingFailed, map[string]interface{}{
		"suggestion_id": id,
		"error":         errMsg,
	})
	return nil
}

// Delete soft-deletes: the record transitions to rejected, it is never
// removed from the collection.
func (s *Service) Delete(ctx context.Context, id, actorID string) error {
	if err := s.store.SetStatus(ctx, id, models.StatusRejected); err != nil {
		return err
	}
	s.invalidateStats(ctx)
	s.recordAudit(ctx, actorID, "delete", id, "")
	s.publish(ctx, kafka.EventSuggestionDeleted, map[string]interface{}{
		"suggestion_id": id,
		"actor":         actorID,
	})
	return nil
}

// Stats recomputes queue statistics with a full collection scan, behind a
// short-lived cache.
func (s *Service) Stats(ctx context.Context) (*models.QueueStats, error) {
	if cached := s.cachedStats(ctx); cached != nil {
		return cached, nil
	}

	all, err := s.store.All(ctx)
	if err != nil {
		return nil, err
	}

	stats := computeStats(all)
	s.storeStats(ctx, stats)
	return stats, nil
}

func computeStats(all []models.Suggestion) *models.QueueStats {
	stats := &models.QueueStats{Total: len(all)}
	var confidenceSum float64
	var processingSum float64
	for i := range all {
		switch all[i].Status {
		case models.StatusPending:
			stats.Pending++
		case models.StatusApproved:
			stats.Approved++
		case models.StatusRejected:
			stats.Rejected++
		case models.StatusProcessing:
			stats.Processing++
		case models.StatusCompleted:
			stats.Completed++
		case models.StatusFailed:
			stats.Failed++
		}
		confidenceSum += all[i].Output.Confidence
		processingSum += float64(all[i].GenerationTimeMs)
	}
	if stats.Total > 0 {
		stats.AverageConfidence = confidenceSum / float64(stats.Total)
		stats.AverageProcessingTime = processingSum / float64(stats.Total)
	}
	return stats
}

func (s *Service) cachedStats(ctx context.Context) *models.QueueStats {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, statsCacheKey).Bytes()
	if err != nil {
		return nil
	}
	var stats models.QueueStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return nil
	}
	return &stats
}

func (s *Service) storeStats(ctx context.Context, stats *models.QueueStats) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, statsCacheKey, raw, s.cacheTTL).Err(); err != nil {
		logger.Log.WithError(err).Debug("failed to cache queue stats")
	}
}

func (s *Service) invalidateStats(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, statsCacheKey).Err(); err != nil {
		logger.Log.WithError(err).Debug("failed to invalidate stats cache")
	}
}

func (s *Service) recordAudit(ctx context.Context, actor, action, suggestionID, notes string) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Record(ctx, actor, action, suggestionID, notes); err != nil {
		logger.Log.WithError(err).WithField("suggestion_id", suggestionID).Error("failed to record audit entry")
	}
}

func (s *Service) publish(ctx context.Context, eventType string, data map[string]interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishEvent(ctx, eventType, eventSource, data); err != nil {
		logger.Log.WithError(err).WithField("event_type", eventType).Error("failed to publish event")
	}
}
