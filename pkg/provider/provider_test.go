package provider

import (
	"errors"
	"strings"
	"testing"
)

func TestExtractJSONFromNoisyCompletion(t *testing.T) {
	raw := "Sure! Here is the result you asked for:\n\n" +
		`{"suggested_niches": ["a {nested} brace"], "keywords": ["k"], "target_domains": ["d.com"], "confidence": 0.9, "reasoning": "ok"}` +
		"\n\nLet me know if you need anything else."

	payload, err := extractJSON(raw)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if !strings.HasPrefix(payload, "{") || !strings.HasSuffix(payload, "}") {
		t.Fatalf("unexpected payload: %q", payload)
	}

	result, err := parseNicheResult("test", raw)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if result.Confidence != 0.9 {
		t.Fatalf("confidence = %f, want 0.9", result.Confidence)
	}
	if result.SuggestedNiches[0] != "a {nested} brace" {
		t.Fatalf("unexpected niche: %q", result.SuggestedNiches[0])
	}
}

func TestExtractJSONArray(t *testing.T) {
	raw := `The queries are: ["\"saas\" \"write for us\"", "\"saas\" \"submit article\""] - good luck!`
	queries, err := parseQueries("test", raw)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(queries) != 2 {
		t.Fatalf("queries = %d, want 2", len(queries))
	}
}

func TestParseQueriesWrappedObject(t *testing.T) {
	raw := `{"queries": ["\"fintech\" \"guest post\""]}`
	queries, err := parseQueries("test", raw)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(queries) != 1 {
		t.Fatalf("queries = %d, want 1", len(queries))
	}
}

func TestParseNicheResultMissingFields(t *testing.T) {
	raw := `{"suggested_niches": ["a"], "keywords": [], "target_domains": ["d.com"], "confidence": 0.5}`
	_, err := parseNicheResult("test", raw)
	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if pe.RateLimited {
		t.Fatal("incomplete payload must not be flagged as rate limited")
	}
}

func TestParseNicheResultNoJSON(t *testing.T) {
	_, err := parseNicheResult("test", "I could not produce a result, sorry.")
	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if !strings.Contains(pe.Message, "malformed provider response") {
		t.Fatalf("message = %q", pe.Message)
	}
}

func TestTruncateContent(t *testing.T) {
	long := strings.Repeat("x", ContentMaxBytes+500)
	if got := TruncateContent(long); len(got) != ContentMaxBytes {
		t.Fatalf("truncated length = %d, want %d", len(got), ContentMaxBytes)
	}
	short := "short content"
	if got := TruncateContent(short); got != short {
		t.Fatalf("short content must pass through, got %q", got)
	}
}
