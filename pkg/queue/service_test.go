package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gentleomega/go-aibob/pkg/common/models"
)

type memStore struct {
	mu   sync.Mutex
	docs map[string]*models.Suggestion
}

func newMemStore() *memStore {
	return &memStore{docs: map[string]*models.Suggestion{}}
}

func (m *memStore) Insert(ctx context.Context, s *models.Suggestion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *s
	m.docs[s.ID] = &clone
	return nil
}

func (m *memStore) Get(ctx context.Context, id string) (*models.Suggestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, ErrSuggestionNotFound
	}
	clone := *doc
	return &clone, nil
}

func (m *memStore) ListByStatus(ctx context.Context, status string, limit int) ([]models.Suggestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Suggestion
	for _, doc := range m.docs {
		if doc.Status == status && len(out) < limit {
			out = append(out, *doc)
		}
	}
	return out, nil
}

func (m *memStore) All(ctx context.Context) ([]models.Suggestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Suggestion, 0, len(m.docs))
	for _, doc := range m.docs {
		out = append(out, *doc)
	}
	return out, nil
}

func (m *memStore) SetReview(ctx context.Context, id, status, reviewer, notes string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return ErrSuggestionNotFound
	}
	now := time.Now().UTC()
	doc.Status = status
	doc.ReviewedBy = reviewer
	doc.ReviewNotes = notes
	doc.ReviewedAt = &now
	doc.UpdatedAt = now
	return nil
}

func (m *memStore) SetStatus(ctx context.Context, id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return ErrSuggestionNotFound
	}
	now := time.Now().UTC()
	doc.Status = status
	doc.UpdatedAt = now
	switch status {
	case models.StatusProcessing:
		doc.ProcessingAt = &now
	case models.StatusCompleted, models.StatusFailed:
		doc.CompletedAt = &now
	}
	return nil
}

func (m *memStore) SetProgress(ctx context.Context, id string, percent int, step string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return ErrSuggestionNotFound
	}
	doc.Results.Progress = percent
	doc.Results.CurrentStep = step
	doc.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *memStore) SetResults(ctx context.Context, id string, results models.ProcessingResults) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return ErrSuggestionNotFound
	}
	now := time.Now().UTC()
	doc.Results = results
	doc.CompletedAt = &now
	doc.UpdatedAt = now
	return nil
}

func (m *memStore) SetFailure(ctx context.Context, id, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return ErrSuggestionNotFound
	}
	now := time.Now().UTC()
	doc.Status = models.StatusFailed
	doc.Results.ProcessingError = errMsg
	doc.CompletedAt = &now
	doc.UpdatedAt = now
	return nil
}

func testInput() models.SuggestionInput {
	return models.SuggestionInput{
		Industry:       "SaaS Marketing",
		TargetAudience: "B2B Tech",
		Language:       "English",
	}
}

func testOutput() models.SuggestionOutput {
	return models.SuggestionOutput{
		SuggestedNiches: []string{"b2b saas growth"},
		Keywords:        []string{"saas", "growth"},
		TargetDomains:   []string{"medium.com"},
		Confidence:      0.85,
		Reasoning:       "strong overlap with existing guest-post inventory",
	}
}

func newTestService(store Store) *Service {
	return NewService(store, nil, nil, nil, 0)
}

func TestCreateSuggestionStartsPending(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)

	suggestion, err := svc.Create(context.Background(), testInput(), testOutput(), "gpt-4", 1200, "system")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if suggestion.Status != models.StatusPending {
		t.Fatalf("expected pending, got %s", suggestion.Status)
	}
	if suggestion.ID == "" {
		t.Fatal("expected an assigned id")
	}
	if suggestion.Input.Location != "Global" {
		t.Fatalf("expected default location Global, got %q", suggestion.Input.Location)
	}

	stored, err := svc.Get(context.Background(), suggestion.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.Status != models.StatusPending {
		t.Fatalf("stored status = %s, want pending", stored.Status)
	}
}

func TestCreateRejectsConfidenceOutOfRange(t *testing.T) {
	svc := newTestService(newMemStore())

	output := testOutput()
	output.Confidence = 1.7
	if _, err := svc.Create(context.Background(), testInput(), output, "gpt-4", 100, ""); !errors.Is(err, ErrConfidenceRange) {
		t.Fatalf("expected ErrConfidenceRange, got %v", err)
	}

	output.Confidence = -0.1
	if _, err := svc.Create(context.Background(), testInput(), output, "gpt-4", 100, ""); !errors.Is(err, ErrConfidenceRange) {
		t.Fatalf("expected ErrConfidenceRange, got %v", err)
	}
}

func TestApproveStampsReviewMetadata(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)

	suggestion, err := svc.Create(context.Background(), testInput(), testOutput(), "gpt-4", 100, "")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := svc.Approve(context.Background(), suggestion.ID, "admin-1", "looks good", false); err != nil {
		t.Fatalf("approve failed: %v", err)
	}

	stored, _ := svc.Get(context.Background(), suggestion.ID)
	if stored.Status != models.StatusApproved {
		t.Fatalf("status = %s, want approved", stored.Status)
	}
	if stored.ReviewedBy != "admin-1" {
		t.Fatalf("reviewedBy = %q, want admin-1", stored.ReviewedBy)
	}
	if stored.ReviewedAt == nil {
		t.Fatal("expected reviewedAt to be set")
	}
}

func TestReviewGuardBlocksNonPending(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)

	suggestion, _ := svc.Create(context.Background(), testInput(), testOutput(), "gpt-4", 100, "")
	if err := svc.UpdateStatus(context.Background(), suggestion.ID, models.StatusCompleted); err != nil {
		t.Fatalf("update status failed: %v", err)
	}

	err := svc.Approve(context.Background(), suggestion.ID, "admin-1", "", false)
	if !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}

	// Force overrides the guard for manual reprocessing.
	if err := svc.Approve(context.Background(), suggestion.ID, "admin-1", "reprocess", true); err != nil {
		t.Fatalf("forced approve failed: %v", err)
	}
	stored, _ := svc.Get(context.Background(), suggestion.ID)
	if stored.Status != models.StatusApproved {
		t.Fatalf("status = %s, want approved", stored.Status)
	}
}

func TestBulkRejectAllPending(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)

	var ids []string
	for i := 0; i < 3; i++ {
		suggestion, err := svc.Create(context.Background(), testInput(), testOutput(), "gpt-4", 100, "")
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
		ids = append(ids, suggestion.ID)
	}

	result := svc.BulkReject(context.Background(), ids, "admin-1")
	if result.Total != 3 || result.Successful != 3 || result.Failed != 0 {
		t.Fatalf("unexpected bulk result: %+v", result)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("expected no errors, got %v", result.Errors)
	}

	for _, id := range ids {
		stored, _ := svc.Get(context.Background(), id)
		if stored.Status != models.StatusRejected {
			t.Fatalf("suggestion %s status = %s, want rejected", id, stored.Status)
		}
	}
}

func TestBulkApproveCapturesPartialFailures(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)

	suggestion, _ := svc.Create(context.Background(), testInput(), testOutput(), "gpt-4", 100, "")

	result := svc.BulkApprove(context.Background(), []string{suggestion.ID, "missing-id"}, "admin-1")
	if result.Total != 2 || result.Successful != 1 || result.Failed != 1 {
		t.Fatalf("unexpected bulk result: %+v", result)
	}
	if len(result.Errors) != 1 || result.Errors[0].ID != "missing-id" {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
}

func TestUpdateProgressPersistsStep(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)

	suggestion, _ := svc.Create(context.Background(), testInput(), testOutput(), "gpt-4", 100, "")
	if err := svc.UpdateProgress(context.Background(), suggestion.ID, 40, "Discovering URLs"); err != nil {
		t.Fatalf("update progress failed: %v", err)
	}

	stored, _ := svc.Get(context.Background(), suggestion.ID)
	if stored.Results.Progress != 40 {
		t.Fatalf("progress = %d, want 40", stored.Results.Progress)
	}
	if stored.Results.CurrentStep != "Discovering URLs" {
		t.Fatalf("step = %q, want Discovering URLs", stored.Results.CurrentStep)
	}
}

func TestStatsOnEmptyCollection(t *testing.T) {
	svc := newTestService(newMemStore())

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.Total != 0 {
		t.Fatalf("total = %d, want 0", stats.Total)
	}
	if stats.AverageConfidence != 0 || stats.AverageProcessingTime != 0 {
		t.Fatalf("expected zero averages, got %+v", stats)
	}
}

func TestStatsConsistency(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)

	confidences := []float64{0.2, 0.6, 1.0}
	var ids []string
	for _, c := range confidences {
		output := testOutput()
		output.Confidence = c
		suggestion, err := svc.Create(context.Background(), testInput(), output, "gpt-4", 100, "")
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
		ids = append(ids, suggestion.ID)
	}
	if err := svc.Approve(context.Background(), ids[0], "admin-1", "", false); err != nil {
		t.Fatalf("approve failed: %v", err)
	}

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	sum := stats.Pending + stats.Approved + stats.Rejected + stats.Processing + stats.Completed + stats.Failed
	if stats.Total != sum {
		t.Fatalf("total %d != status sum %d", stats.Total, sum)
	}
	want := (0.2 + 0.6 + 1.0) / 3
	if diff := stats.AverageConfidence - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("averageConfidence = %f, want %f", stats.AverageConfidence, want)
	}
}

func TestDeleteIsSoft(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)

	suggestion, _ := svc.Create(context.Background(), testInput(), testOutput(), "gpt-4", 100, "")
	if err := svc.Delete(context.Background(), suggestion.ID, "admin-1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	stored, err := svc.Get(context.Background(), suggestion.ID)
	if err != nil {
		t.Fatalf("expected record to survive deletion, got %v", err)
	}
	if stored.Status != models.StatusRejected {
		t.Fatalf("status = %s, want rejected", stored.Status)
	}
}

func TestListByStatusRejectsUnknownStatus(t *testing.T) {
	svc := newTestService(newMemStore())
	if _, err := svc.ListByStatus(context.Background(), "archived", 10); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}
