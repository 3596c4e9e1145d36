package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// OpenAIClient talks to an OpenAI-compatible chat-completions API. It paces
// itself with a minimum inter-request delay and counts requests so callers
// can observe usage.
type OpenAIClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client

	minDelay time.Duration
	now      func() time.Time
	sleep    func(time.Duration)

	mu           sync.Mutex
	lastRequest  time.Time
	requestCount int64
}

var _ Provider = (*OpenAIClient)(nil)

type OpenAIOption func(*OpenAIClient)

// WithOpenAIClock substitutes the time source and sleeper, for tests.
func WithOpenAIClock(now func() time.Time, sleep func(time.Duration)) OpenAIOption {
	return func(c *OpenAIClient) {
		c.now = now
		c.sleep = sleep
	}
}

func WithOpenAIHTTPClient(client *http.Client) OpenAIOption {
	return func(c *OpenAIClient) { c.httpClient = client }
}

func NewOpenAIClient(apiKey, baseURL, model string, minDelay time.Duration, opts ...OpenAIOption) *OpenAIClient {
	c := &OpenAIClient{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		minDelay:   minDelay,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		now:        time.Now,
		sleep:      time.Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *OpenAIClient) Name() string { return "openai" }

// RequestCount returns how many upstream calls the client has issued.
func (c *OpenAIClient) RequestCount() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requestCount
}

func (c *OpenAIClient) DiscoverNiches(ctx context.Context, input NicheInput) (*NicheResult, error) {
	raw, err := c.complete(ctx, nichePrompt(input))
	if err != nil {
		return nil, err
	}
	return parseNicheResult(c.Name(), raw)
}

func (c *OpenAIClient) AnalyzeContent(ctx context.Context, url, content string) (*ContentAnalysis, error) {
	raw, err := c.complete(ctx, analysisPrompt(url, content))
	if err != nil {
		return nil, err
	}
	return parseContentAnalysis(c.Name(), raw)
}

func (c *OpenAIClient) GenerateSearchQueries(ctx context.Context, niche string, keywords []string) ([]string, error) {
	raw, err := c.complete(ctx, queriesPrompt(niche, keywords))
	if err != nil {
		return nil, err
	}
	return parseQueries(c.Name(), raw)
}

func (c *OpenAIClient) TestConnection(ctx context.Context) bool {
	_, err := c.complete(ctx, `Reply with the JSON object {"ok": true}.`)
	return err == nil
}

// pace enforces the minimum inter-request delay and bumps the counter.
func (c *OpenAIClient) pace() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.minDelay > 0 && !c.lastRequest.IsZero() {
		if elapsed := c.now().Sub(c.lastRequest); elapsed < c.minDelay {
			c.sleep(c.minDelay - elapsed)
		}
	}
	c.lastRequest = c.now()
	c.requestCount++
}

func (c *OpenAIClient) complete(ctx context.Context, prompt string) (string, error) {
	c.pace()

	payload := map[string]interface{}{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"temperature": 0.3,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", newError(c.Name(), "complete", "marshal request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", newError(c.Name(), "complete", "new request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", newError(c.Name(), "complete", "upstream call failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", &ProviderError{Provider: c.Name(), Op: "complete", Message: "rate limited", RateLimited: true}
	}
	if resp.StatusCode >= http.StatusBadRequest {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", newError(c.Name(), "complete",
			fmt.Sprintf("upstream error %s: %s", resp.Status, strings.TrimSpace(string(snippet))), nil)
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", newError(c.Name(), "complete", "decode response", err)
	}
	if len(result.Choices) == 0 {
		return "", newError(c.Name(), "complete", "empty completion", nil)
	}
	return result.Choices[0].Message.Content, nil
}
