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

// AnthropicClient talks to the Anthropic messages API. It carries a pool of
// credentials and rotates to the next key when the current one is rate
// limited, retrying the same call exactly once before giving up.
type AnthropicClient struct {
	keys       []string
	baseURL    string
	model      string
	httpClient *http.Client

	mu       sync.Mutex
	keyIndex int
}

var _ Provider = (*AnthropicClient)(nil)

type AnthropicOption func(*AnthropicClient)

func WithAnthropicHTTPClient(client *http.Client) AnthropicOption {
	return func(c *AnthropicClient) { c.httpClient = client }
}

func NewAnthropicClient(keys []string, baseURL, model string, opts ...AnthropicOption) *AnthropicClient {
	c := &AnthropicClient{
		keys:       keys,
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *AnthropicClient) Name() string { return "anthropic" }

// KeyIndex exposes which credential of the pool is currently active.
func (c *AnthropicClient) KeyIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.keyIndex
}

func (c *AnthropicClient) currentKey() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.keys) == 0 {
		return ""
	}
	return c.keys[c.keyIndex%len(c.keys)]
}

func (c *AnthropicClient) rotateKey() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.keys) > 1 {
		c.keyIndex = (c.keyIndex + 1) % len(c.keys)
	}
}

func (c *AnthropicClient) DiscoverNiches(ctx context.Context, input NicheInput) (*NicheResult, error) {
	raw, err := c.complete(ctx, nichePrompt(input))
	if err != nil {
		return nil, err
	}
	return parseNicheResult(c.Name(), raw)
}

func (c *AnthropicClient) AnalyzeContent(ctx context.Context, url, content string) (*ContentAnalysis, error) {
	raw, err := c.complete(ctx, analysisPrompt(url, content))
	if err != nil {
		return nil, err
	}
	return parseContentAnalysis(c.Name(), raw)
}

func (c *AnthropicClient) GenerateSearchQueries(ctx context.Context, niche string, keywords []string) ([]string, error) {
	raw, err := c.complete(ctx, queriesPrompt(niche, keywords))
	if err != nil {
		return nil, err
	}
	return parseQueries(c.Name(), raw)
}

func (c *AnthropicClient) TestConnection(ctx context.Context) bool {
	_, err := c.complete(ctx, `Reply with the JSON object {"ok": true}.`)
	return err == nil
}

// complete issues one messages call, rotating the credential pool and
// retrying once when the upstream signals a rate limit.
func (c *AnthropicClient) complete(ctx context.Context, prompt string) (string, error) {
	raw, err := c.completeOnce(ctx, prompt)
	if err != nil && IsRateLimit(err) {
		c.rotateKey()
		raw, err = c.completeOnce(ctx, prompt)
	}
	return raw, err
}

func (c *AnthropicClient) completeOnce(ctx context.Context, prompt string) (string, error) {
	key := c.currentKey()
	if key == "" {
		return "", newError(c.Name(), "complete", "no credentials configured", nil)
	}

	payload := map[string]interface{}{
		"model":      c.model,
		"max_tokens": 1024,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", newError(c.Name(), "complete", "marshal request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return "", newError(c.Name(), "complete", "new request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", key)
	req.Header.Set("anthropic-version", "2023-06-01")

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
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", newError(c.Name(), "complete", "decode response", err)
	}
	if len(result.Content) == 0 {
		return "", newError(c.Name(), "complete", "empty completion", nil)
	}
	return result.Content[0].Text, nil
}
