package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func completionResponse(content string) string {
	payload := map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"content": content}},
		},
	}
	raw, _ := json.Marshal(payload)
	return string(raw)
}

func TestOpenAIDiscoverNiches(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization = %q", got)
		}
		w.Write([]byte(completionResponse(
			`{"suggested_niches":["fintech apis"],"keywords":["payments"],"target_domains":["forbes.com"],"confidence":0.75,"reasoning":"fit"}`)))
	}))
	defer server.Close()

	client := NewOpenAIClient("test-key", server.URL, "gpt-4", 0)
	result, err := client.DiscoverNiches(context.Background(), NicheInput{
		Industry: "Fintech", TargetAudience: "Developers", Language: "English",
	})
	if err != nil {
		t.Fatalf("discover failed: %v", err)
	}
	if result.Confidence != 0.75 {
		t.Fatalf("confidence = %f, want 0.75", result.Confidence)
	}
	if client.RequestCount() != 1 {
		t.Fatalf("requestCount = %d, want 1", client.RequestCount())
	}
}

func TestOpenAIPacesRequests(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(completionResponse(`["\"x\" \"write for us\""]`)))
	}))
	defer server.Close()

	now := time.Unix(1000, 0)
	var slept []time.Duration
	client := NewOpenAIClient("k", server.URL, "gpt-4", 100*time.Millisecond,
		WithOpenAIClock(func() time.Time { return now }, func(d time.Duration) { slept = append(slept, d) }))

	if _, err := client.GenerateSearchQueries(context.Background(), "x", nil); err != nil {
		t.Fatalf("first call failed: %v", err)
	}
	if len(slept) != 0 {
		t.Fatalf("first call must not sleep, slept %v", slept)
	}

	// Clock has not advanced, so the second call must wait out the window.
	if _, err := client.GenerateSearchQueries(context.Background(), "x", nil); err != nil {
		t.Fatalf("second call failed: %v", err)
	}
	if len(slept) != 1 || slept[0] != 100*time.Millisecond {
		t.Fatalf("expected one 100ms pause, got %v", slept)
	}
	if client.RequestCount() != 2 {
		t.Fatalf("requestCount = %d, want 2", client.RequestCount())
	}
}

func TestOpenAIMalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(completionResponse("no json here at all")))
	}))
	defer server.Close()

	client := NewOpenAIClient("k", server.URL, "gpt-4", 0)
	if _, err := client.AnalyzeContent(context.Background(), "https://example.com", "content"); err == nil {
		t.Fatal("expected ProviderError for malformed response")
	}
}

func TestOpenAIRateLimitFlag(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewOpenAIClient("k", server.URL, "gpt-4", 0)
	_, err := client.GenerateSearchQueries(context.Background(), "x", nil)
	if !IsRateLimit(err) {
		t.Fatalf("expected rate-limit error, got %v", err)
	}
}

func TestOpenAITestConnection(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(completionResponse(`{"ok": true}`)))
	}))
	defer healthy.Close()

	if !NewOpenAIClient("k", healthy.URL, "gpt-4", 0).TestConnection(context.Background()) {
		t.Fatal("expected healthy connection")
	}

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer broken.Close()

	if NewOpenAIClient("k", broken.URL, "gpt-4", 0).TestConnection(context.Background()) {
		t.Fatal("expected failed connection to report false, not error")
	}
}
