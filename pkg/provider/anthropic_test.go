package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func messagesResponse(content string) string {
	payload := map[string]interface{}{
		"content": []map[string]string{{"text": content}},
	}
	raw, _ := json.Marshal(payload)
	return string(raw)
}

func TestAnthropicRotatesCredentialOnRateLimit(t *testing.T) {
	var keysSeen []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("x-api-key")
		keysSeen = append(keysSeen, key)
		if key == "key-a" {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(messagesResponse(`["\"x\" \"write for us\""]`)))
	}))
	defer server.Close()

	client := NewAnthropicClient([]string{"key-a", "key-b"}, server.URL, "claude-3-5-sonnet-20241022")
	queries, err := client.GenerateSearchQueries(context.Background(), "x", nil)
	if err != nil {
		t.Fatalf("expected rotation retry to succeed: %v", err)
	}
	if len(queries) != 1 {
		t.Fatalf("queries = %d, want 1", len(queries))
	}
	if len(keysSeen) != 2 || keysSeen[0] != "key-a" || keysSeen[1] != "key-b" {
		t.Fatalf("unexpected key sequence %v", keysSeen)
	}
	if client.KeyIndex() != 1 {
		t.Fatalf("keyIndex = %d, want 1", client.KeyIndex())
	}
}

func TestAnthropicGivesUpAfterOneRetry(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewAnthropicClient([]string{"key-a", "key-b"}, server.URL, "claude-3-5-sonnet-20241022")
	_, err := client.GenerateSearchQueries(context.Background(), "x", nil)
	if !IsRateLimit(err) {
		t.Fatalf("expected rate-limit error, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want exactly one retry", calls)
	}
}

func TestAnthropicNoCredentials(t *testing.T) {
	client := NewAnthropicClient(nil, "http://localhost:0", "claude-3-5-sonnet-20241022")
	if _, err := client.GenerateSearchQueries(context.Background(), "x", nil); err == nil {
		t.Fatal("expected error with empty credential pool")
	}
}

func TestAnthropicDiscoverNiches(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("anthropic-version"); got == "" {
			t.Error("missing anthropic-version header")
		}
		w.Write([]byte(messagesResponse(
			`Here you go: {"suggested_niches":["devops tooling"],"keywords":["ci"],"target_domains":["medium.com"],"confidence":0.6,"reasoning":"fit"}`)))
	}))
	defer server.Close()

	client := NewAnthropicClient([]string{"key-a"}, server.URL, "claude-3-5-sonnet-20241022")
	result, err := client.DiscoverNiches(context.Background(), NicheInput{
		Industry: "DevOps", TargetAudience: "SREs", Language: "English",
	})
	if err != nil {
		t.Fatalf("discover failed: %v", err)
	}
	if result.SuggestedNiches[0] != "devops tooling" {
		t.Fatalf("unexpected niche %q", result.SuggestedNiches[0])
	}
}
