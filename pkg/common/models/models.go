package models

import (
	"time"
)

// Suggestion lifecycle states
const (
	StatusPending    = "pending"
	StatusApproved   = "approved"
	StatusRejected   = "rejected"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// ValidStatuses enumerates every legal suggestion status value.
var ValidStatuses = []string{
	StatusPending,
	StatusApproved,
	StatusRejected,
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
}

// IsValidStatus reports whether s is one of the six suggestion states.
func IsValidStatus(s string) bool {
	for _, v := range ValidStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// SuggestionInput is the originating niche-discovery request.
type SuggestionInput struct {
	Industry       string `json:"industry"`
	TargetAudience string `json:"target_audience"`
	Language       string `json:"language"`
	Location       string `json:"location,omitempty"`
}

// SuggestionOutput is the AI-generated niche-discovery payload.
type SuggestionOutput struct {
	SuggestedNiches []string `json:"suggested_niches"`
	Keywords        []string `json:"keywords"`
	TargetDomains   []string `json:"target_domains"`
	Confidence      float64  `json:"confidence"`
	Reasoning       string   `json:"reasoning"`
}

// URL analysis outcomes
const (
	AnalysisSuccess = "success"
	AnalysisFailed  = "failed"
)

// Recommended actions returned by content analysis.
const (
	ActionApprove = "approve"
	ActionReview  = "review"
	ActionReject  = "reject"
)

// URLAnalysis is the result of analyzing one discovered URL.
type URLAnalysis struct {
	URL                 string    `json:"url"`
	Status              string    `json:"status"` // success, failed
	Quality             int       `json:"quality,omitempty"`
	Category            string    `json:"category,omitempty"`
	GuestPostLikelihood int       `json:"guest_post_likelihood,omitempty"`
	Sentiment           string    `json:"sentiment,omitempty"` // positive, neutral, negative
	KeyTopics           []string  `json:"key_topics,omitempty"`
	RecommendedAction   string    `json:"recommended_action,omitempty"`
	Error               string    `json:"error,omitempty"`
	AnalyzedAt          time.Time `json:"analyzed_at"`
}

// ProcessingResults holds the output of one pipeline run, persisted onto
// the suggestion document.
type ProcessingResults struct {
	DiscoveredURLs  []string      `json:"discovered_urls,omitempty"`
	URLAnalyses     []URLAnalysis `json:"url_analyses,omitempty"`
	ProcessedCount  int           `json:"processed_count"`
	SuccessCount    int           `json:"success_count"`
	FailureCount    int           `json:"failure_count"`
	Progress        int           `json:"progress"` // 0-100
	CurrentStep     string        `json:"current_step,omitempty"`
	ProcessingError string        `json:"processing_error,omitempty"`
}

// Suggestion is the central entity: one AI niche-discovery result and its
// review/processing lifecycle.
type Suggestion struct {
	ID               string            `json:"id"`
	Status           string            `json:"status"`
	Input            SuggestionInput   `json:"input"`
	Output           SuggestionOutput  `json:"output"`
	Model            string            `json:"model"`
	GenerationTimeMs int64             `json:"generation_time_ms"`
	CreatedBy        string            `json:"created_by,omitempty"`
	ReviewedBy       string            `json:"reviewed_by,omitempty"`
	ReviewedAt       *time.Time        `json:"reviewed_at,omitempty"`
	ReviewNotes      string            `json:"review_notes,omitempty"`
	Results          ProcessingResults `json:"results"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
	ProcessingAt     *time.Time        `json:"processing_at,omitempty"`
	CompletedAt      *time.Time        `json:"completed_at,omitempty"`
}

// QueueStats is a derived aggregate over all suggestions, recomputed on
// demand by scanning the full collection.
type QueueStats struct {
	Total                 int     `json:"total"`
	Pending               int     `json:"pending"`
	Approved              int     `json:"approved"`
	Rejected              int     `json:"rejected"`
	Processing            int     `json:"processing"`
	Completed             int     `json:"completed"`
	Failed                int     `json:"failed"`
	AverageConfidence     float64 `json:"average_confidence"`
	AverageProcessingTime float64 `json:"average_processing_time"`
}

// BulkError records one failed entry of a bulk review operation.
type BulkError struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// BulkResult reports per-item outcomes of a bulk approve/reject.
type BulkResult struct {
	Total      int         `json:"total"`
	Successful int         `json:"successful"`
	Failed     int         `json:"failed"`
	Errors     []BulkError `json:"errors"`
}

// ProcessingResult is the terminal report of one pipeline run.
type ProcessingResult struct {
	Success            bool   `json:"success"`
	SuggestionID       string `json:"suggestion_id"`
	URLsDiscovered     int    `json:"urls_discovered"`
	URLsAnalyzed       int    `json:"urls_analyzed"`
	SuccessfulAnalyses int    `json:"successful_analyses"`
	FailedAnalyses     int    `json:"failed_analyses"`
	ProcessingTimeMs   int64  `json:"processing_time_ms"`
	Error              string `json:"error,omitempty"`
}

// ProcessingStatus is the poll view of an in-flight or finished run.
type ProcessingStatus struct {
	SuggestionID string `json:"suggestion_id"`
	Status       string `json:"status"`
	Progress     int    `json:"progress"`
	CurrentStep  string `json:"current_step"`
	Error        string `json:"error,omitempty"`
}

// DiscoveryResult is the summary returned by discovery.DiscoverOpportunities.
type DiscoveryResult struct {
	URLs                   []string `json:"urls"`
	Niche                  string   `json:"niche"`
	Keywords               []string `json:"keywords"`
	SearchQueries          []string `json:"search_queries"`
	EstimatedOpportunities int      `json:"estimated_opportunities"`
}

// Event is the envelope published to the event bus for UI subscribers.
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"` // suggestion.created, suggestion.approved, ...
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}
