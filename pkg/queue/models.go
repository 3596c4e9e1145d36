package queue

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/gentleomega/go-aibob/pkg/common/models"
)

var (
	ErrSuggestionNotFound = errors.New("suggestion not found")
	ErrIllegalTransition  = errors.New("illegal status transition")
	ErrInvalidStatus      = errors.New("invalid status value")
	ErrConfidenceRange    = errors.New("confidence out of range")
)

// suggestionDoc is the Mongo representation of a suggestion. It is the
// serialization boundary: the rest of the system only sees models.Suggestion
// and time.Time, never primitive.DateTime.
type suggestionDoc struct {
	ID               string               `bson:"_id"`
	Status           string               `bson:"status"`
	Input            inputDoc             `bson:"input"`
	Output           outputDoc            `bson:"output"`
	Model            string               `bson:"model"`
	GenerationTimeMs int64                `bson:"generation_time_ms"`
	CreatedBy        string               `bson:"created_by,omitempty"`
	ReviewedBy       string               `bson:"reviewed_by,omitempty"`
	ReviewedAt       *primitive.DateTime  `bson:"reviewed_at,omitempty"`
	ReviewNotes      string               `bson:"review_notes,omitempty"`
	DiscoveredURLs   []string             `bson:"discovered_urls,omitempty"`
	URLAnalyses      []urlAnalysisDoc     `bson:"url_analyses,omitempty"`
	ProcessedCount   int                  `bson:"processed_count"`
	SuccessCount     int                  `bson:"success_count"`
	FailureCount     int                  `bson:"failure_count"`
	Progress         int                  `bson:"processing_progress"`
	CurrentStep      string               `bson:"processing_step,omitempty"`
	ProcessingError  string               `bson:"processing_error,omitempty"`
	CreatedAt        primitive.DateTime   `bson:"created_at"`
	UpdatedAt        primitive.DateTime   `bson:"updated_at"`
	ProcessingAt     *primitive.DateTime  `bson:"processing_at,omitempty"`
	CompletedAt      *primitive.DateTime  `bson:"completed_at,omitempty"`
}

type inputDoc struct {
	Industry       string `bson:"industry"`
	TargetAudience string `bson:"target_audience"`
	Language       string `bson:"language"`
	Location       string `bson:"location,omitempty"`
}

type outputDoc struct {
	SuggestedNiches []string `bson:"suggested_niches"`
	Keywords        []string `bson:"keywords"`
	TargetDomains   []string `bson:"target_domains"`
	Confidence      float64  `bson:"confidence"`
	Reasoning       string   `bson:"reasoning"`
}

type urlAnalysisDoc struct {
	URL                 string             `bson:"url"`
	Status              string             `bson:"status"`
	Quality             int                `bson:"quality,omitempty"`
	Category            string             `bson:"category,omitempty"`
	GuestPostLikelihood int                `bson:"guest_post_likelihood,omitempty"`
	Sentiment           string             `bson:"sentiment,omitempty"`
	KeyTopics           []string           `bson:"key_topics,omitempty"`
	RecommendedAction   string             `bson:"recommended_action,omitempty"`
	Error               string             `bson:"error,omitempty"`
	AnalyzedAt          primitive.DateTime `bson:"analyzed_at"`
}

func fromDomain(s *models.Suggestion) *suggestionDoc {
	doc := &suggestionDoc{
		ID:     s.ID,
		Status: s.Status,
		Input: inputDoc{
			Industry:       s.Input.Industry,
			TargetAudience: s.Input.TargetAudience,
			Language:       s.Input.Language,
			Location:       s.Input.Location,
		},
		Output: outputDoc{
			SuggestedNiches: s.Output.SuggestedNiches,
			Keywords:        s.Output.Keywords,
			TargetDomains:   s.Output.TargetDomains,
			Confidence:      s.Output.Confidence,
			Reasoning:       s.Output.Reasoning,
		},
		Model:            s.Model,
		GenerationTimeMs: s.GenerationTimeMs,
		CreatedBy:        s.CreatedBy,
		ReviewedBy:       s.ReviewedBy,
		ReviewNotes:      s.ReviewNotes,
		DiscoveredURLs:   s.Results.DiscoveredURLs,
		URLAnalyses:      analysesFromDomain(s.Results.URLAnalyses),
		ProcessedCount:   s.Results.ProcessedCount,
		SuccessCount:     s.Results.SuccessCount,
		FailureCount:     s.Results.FailureCount,
		Progress:         s.Results.Progress,
		CurrentStep:      s.Results.CurrentStep,
		ProcessingError:  s.Results.ProcessingError,
		CreatedAt:        primitive.NewDateTimeFromTime(s.CreatedAt),
		UpdatedAt:        primitive.NewDateTimeFromTime(s.UpdatedAt),
	}
	doc.ReviewedAt = toDateTime(s.ReviewedAt)
	doc.ProcessingAt = toDateTime(s.ProcessingAt)
	doc.CompletedAt = toDateTime(s.CompletedAt)
	return doc
}

func (d *suggestionDoc) toDomain() *models.Suggestion {
	return &models.Suggestion{
		ID:     d.ID,
		Status: d.Status,
		Input: models.SuggestionInput{
			Industry:       d.Input.Industry,
			TargetAudience: d.Input.TargetAudience,
			Language:       d.Input.Language,
			Location:       d.Input.Location,
		},
		Output: models.SuggestionOutput{
			SuggestedNiches: d.Output.SuggestedNiches,
			Keywords:        d.Output.Keywords,
			TargetDomains:   d.Output.TargetDomains,
			Confidence:      d.Output.Confidence,
			Reasoning:       d.Output.Reasoning,
		},
		Model:            d.Model,
		GenerationTimeMs: d.GenerationTimeMs,
		CreatedBy:        d.CreatedBy,
		ReviewedBy:       d.ReviewedBy,
		ReviewedAt:       fromDateTime(d.ReviewedAt),
		ReviewNotes:      d.ReviewNotes,
		Results: models.ProcessingResults{
			DiscoveredURLs:  d.DiscoveredURLs,
			URLAnalyses:     analysesToDomain(d.URLAnalyses),
			ProcessedCount:  d.ProcessedCount,
			SuccessCount:    d.SuccessCount,
			FailureCount:    d.FailureCount,
			Progress:        d.Progress,
			CurrentStep:     d.CurrentStep,
			ProcessingError: d.ProcessingError,
		},
		CreatedAt:    d.CreatedAt.Time().UTC(),
		UpdatedAt:    d.UpdatedAt.Time().UTC(),
		ProcessingAt: fromDateTime(d.ProcessingAt),
		CompletedAt:  fromDateTime(d.CompletedAt),
	}
}

func analysesFromDomain(in []models.URLAnalysis) []urlAnalysisDoc {
	if in == nil {
		return nil
	}
	out := make([]urlAnalysisDoc, len(in))
	for i, a := range in {
		out[i] = urlAnalysisDoc{
			URL:                 a.URL,
			Status:              a.Status,
			Quality:             a.Quality,
			Category:            a.Category,
			GuestPostLikelihood: a.GuestPostLikelihood,
			Sentiment:           a.Sentiment,
			KeyTopics:           a.KeyTopics,
			RecommendedAction:   a.RecommendedAction,
			Error:               a.Error,
			AnalyzedAt:          primitive.NewDateTimeFromTime(a.AnalyzedAt),
		}
	}
	return out
}

func analysesToDomain(in []urlAnalysisDoc) []models.URLAnalysis {
	if in == nil {
		return nil
	}
	out := make([]models.URLAnalysis, len(in))
	for i, a := range in {
		out[i] = models.URLAnalysis{
			URL:                 a.URL,
			Status:              a.Status,
			Quality:             a.Quality,
			Category:            a.Category,
			GuestPostLikelihood: a.GuestPostLikelihood,
			Sentiment:           a.Sentiment,
			KeyTopics:           a.KeyTopics,
			RecommendedAction:   a.RecommendedAction,
			Error:               a.Error,
			AnalyzedAt:          a.AnalyzedAt.Time().UTC(),
		}
	}
	return out
}

func toDateTime(t *time.Time) *primitive.DateTime {
	if t == nil {
		return nil
	}
	dt := primitive.NewDateTimeFromTime(*t)
	return &dt
}

func fromDateTime(dt *primitive.DateTime) *time.Time {
	if dt == nil {
		return nil
	}
	t := dt.Time().UTC()
	return &t
}
