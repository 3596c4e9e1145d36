package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// InferenceClient talks to a hosted-model inference service that returns
// structured JSON directly, without the free-text wrapping of the
// generative backends.
type InferenceClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var _ Provider = (*InferenceClient)(nil)

func NewInferenceClient(baseURL, apiKey string) *InferenceClient {
	return &InferenceClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *InferenceClient) Name() string { return "inference" }

func (c *InferenceClient) DiscoverNiches(ctx context.Context, input NicheInput) (*NicheResult, error) {
	var result NicheResult
	if err := c.post(ctx, "/niches", input, &result); err != nil {
		return nil, newError(c.Name(), "discover_niches", "upstream call failed", err)
	}
	if len(result.SuggestedNiches) == 0 || len(result.Keywords) == 0 || len(result.TargetDomains) == 0 {
		return nil, newError(c.Name(), "discover_niches", "incomplete provider response: missing niche, keyword, or domain list", nil)
	}
	return &result, nil
}

func (c *InferenceClient) AnalyzeContent(ctx context.Context, url, content string) (*ContentAnalysis, error) {
	payload := map[string]string{
		"url":     url,
		"content": TruncateContent(content),
	}
	var result ContentAnalysis
	if err := c.post(ctx, "/analyze", payload, &result); err != nil {
		return nil, newError(c.Name(), "analyze_content", "upstream call failed", err)
	}
	return &result, nil
}

func (c *InferenceClient) GenerateSearchQueries(ctx context.Context, niche string, keywords []string) ([]string, error) {
	payload := map[string]interface{}{
		"niche":    niche,
		"keywords": keywords,
	}
	var resp struct {
		Queries []string `json:"queries"`
	}
	if err := c.post(ctx, "/queries", payload, &resp); err != nil {
		return nil, newError(c.Name(), "generate_search_queries", "upstream call failed", err)
	}
	if len(resp.Queries) == 0 {
		return nil, newError(c.Name(), "generate_search_queries", "incomplete provider response: no queries", nil)
	}
	return resp.Queries, nil
}

func (c *InferenceClient) TestConnection(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (c *InferenceClient) post(ctx context.Context, path string, payload, v interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
