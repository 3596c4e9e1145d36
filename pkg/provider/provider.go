package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// NicheInput describes the business profile a discovery call starts from.
type NicheInput struct {
	Industry       string `json:"industry"`
	TargetAudience string `json:"target_audience"`
	Language       string `json:"language"`
	Location       string `json:"location,omitempty"`
}

// NicheResult is the structured payload a discovery call must return.
type NicheResult struct {
	SuggestedNiches []string `json:"suggested_niches"`
	Keywords        []string `json:"keywords"`
	TargetDomains   []string `json:"target_domains"`
	Confidence      float64  `json:"confidence"`
	Reasoning       string   `json:"reasoning"`
}

// ContentAnalysis is the structured verdict on one page of content.
type ContentAnalysis struct {
	Quality             int      `json:"quality"`
	Category            string   `json:"category"`
	GuestPostLikelihood int      `json:"guest_post_likelihood"`
	Sentiment           string   `json:"sentiment"`
	KeyTopics           []string `json:"key_topics"`
	RecommendedAction   string   `json:"recommended_action"`
}

// Provider is the contract shared by every AI backend.
type Provider interface {
	DiscoverNiches(ctx context.Context, input NicheInput) (*NicheResult, error)
	AnalyzeContent(ctx context.Context, url, content string) (*ContentAnalysis, error)
	GenerateSearchQueries(ctx context.Context, niche string, keywords []string) ([]string, error)
	TestConnection(ctx context.Context) bool
	Name() string
}

// ContentMaxBytes bounds the content prefix submitted for analysis; upstream
// models impose input-size limits.
const ContentMaxBytes = 1500

// ProviderError reports a failed, unparseable, or incomplete adapter call.
type ProviderError struct {
	Provider    string
	Op          string
	Message     string
	RateLimited bool
	Err         error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %s: %v", e.Provider, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s %s: %s", e.Provider, e.Op, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// IsRateLimit reports whether err carries a transient rate-limit signal.
func IsRateLimit(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.RateLimited
}

func newError(provider, op, message string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Op: op, Message: message, Err: err}
}

// TruncateContent bounds content to the submission prefix.
func TruncateContent(content string) string {
	if len(content) > ContentMaxBytes {
		return content[:ContentMaxBytes]
	}
	return content
}

// extractJSON locates the first balanced {...} or [...] substring of a
// free-form completion that parses as valid JSON. Generative backends wrap
// their payloads in prose more often than not.
func extractJSON(text string) (string, error) {
	for i := 0; i < len(text); i++ {
		open := text[i]
		if open != '{' && open != '[' {
			continue
		}
		if end := matchBalanced(text, i); end > i {
			candidate := text[i : end+1]
			if json.Valid([]byte(candidate)) {
				return candidate, nil
			}
		}
	}
	return "", errors.New("no JSON payload found")
}

// matchBalanced returns the index of the bracket closing the one at start,
// or -1. String literals and escapes are skipped so braces inside values do
// not unbalance the scan.
func matchBalanced(text string, start int) int {
	open := text[start]
	var close byte = '}'
	if open == '[' {
		close = ']'
	}
	depth := 0
	inString := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch c {
			case '\\':
				i++
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// parseNicheResult decodes and validates a discovery payload. All three
// list fields are required.
func parseNicheResult(provider, raw string) (*NicheResult, error) {
	payload, err := extractJSON(raw)
	if err != nil {
		return nil, newError(provider, "discover_niches", "malformed provider response", err)
	}
	var result NicheResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, newError(provider, "discover_niches", "malformed provider response", err)
	}
	if len(result.SuggestedNiches) == 0 || len(result.Keywords) == 0 || len(result.TargetDomains) == 0 {
		return nil, newError(provider, "discover_niches", "incomplete provider response: missing niche, keyword, or domain list", nil)
	}
	return &result, nil
}

func parseContentAnalysis(provider, raw string) (*ContentAnalysis, error) {
	payload, err := extractJSON(raw)
	if err != nil {
		return nil, newError(provider, "analyze_content", "malformed provider response", err)
	}
	var result ContentAnalysis
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, newError(provider, "analyze_content", "malformed provider response", err)
	}
	return &result, nil
}

func parseQueries(provider, raw string) ([]string, error) {
	payload, err := extractJSON(raw)
	if err != nil {
		return nil, newError(provider, "generate_search_queries", "malformed provider response", err)
	}
	var queries []string
	if err := json.Unmarshal([]byte(payload), &queries); err != nil {
		// Some models wrap the list in an object.
		var wrapped struct {
			Queries []string `json:"queries"`
		}
		if err2 := json.Unmarshal([]byte(payload), &wrapped); err2 != nil || len(wrapped.Queries) == 0 {
			return nil, newError(provider, "generate_search_queries", "malformed provider response", err)
		}
		queries = wrapped.Queries
	}
	if len(queries) == 0 {
		return nil, newError(provider, "generate_search_queries", "incomplete provider response: no queries", nil)
	}
	return queries, nil
}

func nichePrompt(input NicheInput) string {
	location := input.Location
	if location == "" {
		location = "Global"
	}
	return fmt.Sprintf(`Suggest guest-posting niches for the following business profile:

Industry: %s
Target audience: %s
Language: %s
Location: %s

Return a JSON object with fields "suggested_niches" (list of strings),
"keywords" (list of strings), "target_domains" (list of strings),
"confidence" (0.0-1.0) and "reasoning" (string).`,
		input.Industry, input.TargetAudience, input.Language, location)
}

func analysisPrompt(url, content string) string {
	return fmt.Sprintf(`Evaluate the following page content from %s as a guest-posting target:

%s

Return a JSON object with fields "quality" (0-100), "category" (string),
"guest_post_likelihood" (0-100), "sentiment" (positive, neutral or negative),
"key_topics" (list of strings) and "recommended_action" (approve, review or reject).`,
		url, TruncateContent(content))
}

func queriesPrompt(niche string, keywords []string) string {
	return fmt.Sprintf(`Generate search-engine queries to find guest-posting opportunities.

Niche: %s
Keywords: %s

Use the conventional guest-post footprints ("write for us", "submit article",
"guest post", "become a contributor"). Return a JSON array of query strings.`,
		niche, strings.Join(keywords, ", "))
}
