package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gentleomega/go-aibob/pkg/common/kafka"
	"github.com/gentleomega/go-aibob/pkg/common/logger"
	"github.com/gentleomega/go-aibob/pkg/common/models"
	"github.com/gentleomega/go-aibob/pkg/discovery"
	"github.com/gentleomega/go-aibob/pkg/observability/metrics"
	"github.com/gentleomega/go-aibob/pkg/provider"
	"github.com/gentleomega/go-aibob/pkg/queue"
)

const eventSource = "processing-pipeline"

// Progress checkpoints for the five pipeline stages.
const (
	progressStarted    = 10
	progressFetched    = 20
	progressQueries    = 40
	progressAnalysisLo = 60
	progressAnalysisHi = 90
	progressSaving     = 95
	progressDone       = 100
)

var errCancelled = errors.New("processing cancelled")

// Service orchestrates the end-to-end workflow for one approved suggestion:
// generate search queries, discover URLs, analyze each URL, persist the
// aggregated results, mark complete.
type Service struct {
	queue    *queue.Service
	provider provider.Provider
	events   kafka.Publisher

	providerTimeout time.Duration
	urlDelay        time.Duration
	sleep           func(time.Duration)
	sem             chan struct{}

	mu      sync.Mutex
	running map[string]context.CancelFunc
}

// NewService wires the pipeline. maxConcurrent bounds simultaneous runs;
// events may be nil.
func NewService(q *queue.Service, p provider.Provider, events kafka.Publisher, providerTimeout, urlDelay time.Duration, maxConcurrent int) *Service {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Service{
		queue:           q,
		provider:        p,
		events:          events,
		providerTimeout: providerTimeout,
		urlDelay:        urlDelay,
		sleep:           time.Sleep,
		sem:             make(chan struct{}, maxConcurrent),
		running:         make(map[string]context.CancelFunc),
	}
}

// ProcessAsync starts a run in the background; poll GetProcessingStatus for
// progress.
func (s *Service) ProcessAsync(id string) {
	go func() {
		result := s.Process(context.Background(), id)
		if !result.Success {
			logger.Log.WithFields(map[string]interface{}{
				"suggestion_id": id,
				"error":         result.Error,
			}).Warn("pipeline run did not complete")
		}
	}()
}

// Process runs the five-stage workflow to completion or failure. Per-URL
// analysis failures are recorded inline and never abort the run; failures in
// any other stage mark the suggestion failed and end the run. There is no
// automatic retry: a failed suggestion is reprocessed from the beginning.
func (s *Service) Process(ctx context.Context, id string) *models.ProcessingResult {
	s.sem <- struct{}{}
	defer func() { <-s.sem }()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.register(id, cancel)
	defer s.unregister(id)

	metrics.IncRunStarted()
	start := time.Now()

	// Stage 1: mark processing.
	if err := s.queue.UpdateStatus(runCtx, id, models.StatusProcessing); err != nil {
		if errors.Is(err, queue.ErrSuggestionNotFound) {
			return s.failResult(id, "Suggestion not found", start)
		}
		return s.fail(runCtx, id, err, start)
	}
	if err := s.progress(runCtx, id, progressStarted, "Starting processing"); err != nil {
		return s.fail(runCtx, id, err, start)
	}

	// Stage 2: fetch the suggestion.
	suggestion, err := s.queue.Get(runCtx, id)
	if err != nil {
		if errors.Is(err, queue.ErrSuggestionNotFound) {
			return s.failResult(id, "Suggestion not found", start)
		}
		return s.fail(runCtx, id, err, start)
	}
	if len(suggestion.Output.SuggestedNiches) == 0 {
		return s.fail(runCtx, id, errors.New("suggestion has no niches"), start)
	}
	niche := suggestion.Output.SuggestedNiches[0]
	if err := s.progress(runCtx, id, progressFetched, "Generating search queries"); err != nil {
		return s.fail(runCtx, id, err, start)
	}

	// Stage 3: search queries for the primary niche.
	queries, err := s.generateQueries(runCtx, niche, suggestion.Output.Keywords)
	if err != nil {
		if errors.Is(err, errCancelled) {
			return s.cancelResult(id, start)
		}
		return s.fail(runCtx, id, err, start)
	}
	logger.Log.WithFields(map[string]interface{}{
		"suggestion_id": id,
		"niche":         niche,
		"queries":       len(queries),
	}).Debug("search queries generated")
	if err := s.progress(runCtx, id, progressQueries, "Discovering URLs"); err != nil {
		return s.fail(runCtx, id, err, start)
	}

	// Stage 4: candidate URLs. No live search happens; the discovery
	// service synthesizes candidates from its domain list.
	urls := discovery.SynthesizeURLs(niche)

	// Stage 5: analyze each URL against placeholder content.
	analyses, cancelled := s.analyzeURLs(runCtx, id, niche, urls)
	if cancelled {
		return s.cancelResult(id, start)
	}

	successCount, failureCount := 0, 0
	for i := range analyses {
		if analyses[i].Status == models.AnalysisSuccess {
			successCount++
		} else {
			failureCount++
		}
	}

	// Persist results.
	if err := s.progress(runCtx, id, progressSaving, "Saving results"); err != nil {
		return s.fail(runCtx, id, err, start)
	}
	results := models.ProcessingResults{
		DiscoveredURLs: urls,
		URLAnalyses:    analyses,
		ProcessedCount: successCount + failureCount,
		SuccessCount:   successCount,
		FailureCount:   failureCount,
		Progress:       progressDone,
		CurrentStep:    "Completed",
	}
	if err := s.queue.SaveResults(runCtx, id, results); err != nil {
		return s.fail(runCtx, id, err, start)
	}

	// Mark complete.
	if err := s.progress(runCtx, id, progressDone, "Completed"); err != nil {
		return s.fail(runCtx, id, err, start)
	}
	if err := s.queue.UpdateStatus(runCtx, id, models.StatusCompleted); err != nil {
		return s.fail(runCtx, id, err, start)
	}

	metrics.IncRunCompleted()
	elapsed := time.Since(start).Milliseconds()
	s.publish(runCtx, kafka.EventProcessingDone, map[string]interface{}{
		"suggestion_id":      id,
		"urls_discovered":    len(urls),
		"processing_time_ms": elapsed,
	})

	return &models.ProcessingResult{
		Success:            true,
		SuggestionID:       id,
		URLsDiscovered:     len(urls),
		URLsAnalyzed:       len(analyses),
		SuccessfulAnalyses: successCount,
		FailedAnalyses:     failureCount,
		ProcessingTimeMs:   elapsed,
	}
}

// CancelProcessing cooperatively cancels an in-flight run; the run observes
// the cancellation, resets the suggestion to approved, and stops. If no run
// is registered the status is reset directly.
func (s *Service) CancelProcessing(ctx context.Context, id string) error {
	s.mu.Lock()
	cancel, ok := s.running[id]
	s.mu.Unlock()

	if ok {
		cancel()
		return nil
	}
	return s.queue.UpdateStatus(ctx, id, models.StatusApproved)
}

// GetProcessingStatus reports the persisted progress and step of a run.
func (s *Service) GetProcessingStatus(ctx context.Context, id string) (*models.ProcessingStatus, error) {
	suggestion, err := s.queue.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.ProcessingStatus{
		SuggestionID: id,
		Status:       suggestion.Status,
		Progress:     suggestion.Results.Progress,
		CurrentStep:  suggestion.Results.CurrentStep,
		Error:        suggestion.Results.ProcessingError,
	}, nil
}

func (s *Service) generateQueries(ctx context.Context, niche string, keywords []string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, errCancelled
	}
	callCtx, cancel := context.WithTimeout(ctx, s.providerTimeout)
	defer cancel()
	queries, err := s.provider.GenerateSearchQueries(callCtx, niche, keywords)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errCancelled
		}
		return nil, fmt.Errorf("generate search queries: %w", err)
	}
	return queries, nil
}

// analyzeURLs walks the discovered URLs, analyzing synthetic placeholder
// content for each (no real page fetch occurs). Progress interpolates
// linearly between the analysis checkpoints; a fixed inter-URL delay keeps
// the provider under its rate limits.
func (s *Service) analyzeURLs(ctx context.Context, id, niche string, urls []string) ([]models.URLAnalysis, bool) {
	analyses := make([]models.URLAnalysis, 0, len(urls))
	span := progressAnalysisHi - progressAnalysisLo

	for i, u := range urls {
		if ctx.Err() != nil {
			return analyses, true
		}

		percent := progressAnalysisLo + span*(i+1)/len(urls)
		step := fmt.Sprintf("Analyzing URLs (%d/%d)", i+1, len(urls))
		if err := s.progress(ctx, id, percent, step); err != nil {
			logger.Log.WithError(err).WithField("suggestion_id", id).Warn("progress update failed")
		}

		content := placeholderContent(u, niche)
		callCtx, cancel := context.WithTimeout(ctx, s.providerTimeout)
		analysis, err := s.provider.AnalyzeContent(callCtx, u, content)
		cancel()

		if ctx.Err() != nil {
			return analyses, true
		}
		if err != nil {
			analyses = append(analyses, models.URLAnalysis{
				URL:        u,
				Status:     models.AnalysisFailed,
				Error:      err.Error(),
				AnalyzedAt: time.Now().UTC(),
			})
		} else {
			analyses = append(analyses, models.URLAnalysis{
				URL:                 u,
				Status:              models.AnalysisSuccess,
				Quality:             analysis.Quality,
				Category:            analysis.Category,
				GuestPostLikelihood: analysis.GuestPostLikelihood,
				Sentiment:           analysis.Sentiment,
				KeyTopics:           analysis.KeyTopics,
				RecommendedAction:   analysis.RecommendedAction,
				AnalyzedAt:          time.Now().UTC(),
			})
		}

		if i < len(urls)-1 {
			s.sleep(s.urlDelay)
		}
	}
	return analyses, false
}

func (s *Service) progress(ctx context.Context, id string, percent int, step string) error {
	return s.queue.UpdateProgress(ctx, id, percent, step)
}

// fail marks the suggestion failed and returns the zeroed failure result.
func (s *Service) fail(ctx context.Context, id string, err error, start time.Time) *models.ProcessingResult {
	metrics.IncRunFailed()
	logger.Log.WithError(err).WithField("suggestion_id", id).Error("pipeline run failed")

	writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if markErr := s.queue.MarkFailed(writeCtx, id, err.Error()); markErr != nil {
		logger.Log.WithError(markErr).WithField("suggestion_id", id).Error("failed to mark suggestion failed")
	}
	return s.failResult(id, err.Error(), start)
}

func (s *Service) failResult(id, errMsg string, start time.Time) *models.ProcessingResult {
	return &models.ProcessingResult{
		Success:          false,
		SuggestionID:     id,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
		Error:            errMsg,
	}
}

// cancelResult resets the cancelled suggestion to approved with a detached
// write so the aborted run cannot resurrect a completed status later.
func (s *Service) cancelResult(id string, start time.Time) *models.ProcessingResult {
	metrics.IncRunCancelled()
	writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.queue.UpdateStatus(writeCtx, id, models.StatusApproved); err != nil {
		logger.Log.WithError(err).WithField("suggestion_id", id).Error("failed to reset cancelled suggestion")
	}
	if err := s.queue.UpdateProgress(writeCtx, id, 0, "Cancelled"); err != nil {
		logger.Log.WithError(err).WithField("suggestion_id", id).Debug("failed to reset progress")
	}
	return s.failResult(id, errCancelled.Error(), start)
}

func (s *Service) register(id string, cancel context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running[id] = cancel
}

func (s *Service) unregister(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, id)
}

func (s *Service) publish(ctx context.Context, eventType string, data map[string]interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishEvent(ctx, eventType, eventSource, data); err != nil {
		logger.Log.WithError(err).WithField("event_type", eventType).Error("failed to publish event")
	}
}

// placeholderContent stands in for a fetched page until a real crawler sits
// behind the discovery contract.
func placeholderContent(url, niche string) string {
	return strings.Join([]string{
		fmt.Sprintf("Sample content from %s.", url),
		fmt.Sprintf("This site publishes articles about %s and accepts guest contributions.", niche),
		"Write for us: we welcome well-researched posts from industry practitioners.",
	}, " ")
}
