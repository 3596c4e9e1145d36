package discovery

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type fakeQueryGenerator struct {
	queries []string
	err     error
	calls   int
}

func (f *fakeQueryGenerator) GenerateSearchQueries(ctx context.Context, niche string, keywords []string) ([]string, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.queries, nil
}

func TestDiscoverURLsSynthesizesFromDomainList(t *testing.T) {
	gen := &fakeQueryGenerator{queries: []string{`"saas" "write for us"`}}
	svc := NewService(gen)

	urls, err := svc.DiscoverURLs(context.Background(), "SaaS Tools", nil)
	if err != nil {
		t.Fatalf("discover failed: %v", err)
	}
	if len(urls) != len(guestPostDomains) {
		t.Fatalf("urls = %d, want %d", len(urls), len(guestPostDomains))
	}
	for _, u := range urls {
		if !strings.HasSuffix(u, "/saas-tools-guest-posting") {
			t.Fatalf("unexpected url %q", u)
		}
	}
	if gen.calls != 1 {
		t.Fatalf("generator calls = %d, want 1", gen.calls)
	}
}

func TestDiscoverURLsPropagatesGeneratorError(t *testing.T) {
	gen := &fakeQueryGenerator{err: errors.New("upstream down")}
	svc := NewService(gen)

	if _, err := svc.DiscoverURLs(context.Background(), "saas", nil); err == nil {
		t.Fatal("expected error from failing generator")
	}
}

func TestDiscoverOpportunitiesCapsQueries(t *testing.T) {
	gen := &fakeQueryGenerator{queries: []string{"q1", "q2", "q3", "q4", "q5"}}
	svc := NewService(gen)

	result, err := svc.DiscoverOpportunities(context.Background(), "fintech", []string{"payments"})
	if err != nil {
		t.Fatalf("discover failed: %v", err)
	}
	if len(result.SearchQueries) != maxQueries {
		t.Fatalf("queries = %d, want %d", len(result.SearchQueries), maxQueries)
	}
	if result.EstimatedOpportunities != len(result.URLs) {
		t.Fatalf("estimate = %d, urls = %d", result.EstimatedOpportunities, len(result.URLs))
	}
	if result.Niche != "fintech" {
		t.Fatalf("niche = %q", result.Niche)
	}
}

func TestEstimateDomainAuthorityTiers(t *testing.T) {
	cases := []struct {
		domain string
		want   int
	}{
		{"forbes.com", 85},
		{"www.forbes.com", 85},
		{"Medium.com", 85},
		{"searchenginejournal.com", 65},
		{"copyblogger.com", 50},
		{"unknown-blog.example", 50},
	}
	for _, tc := range cases {
		if got := EstimateDomainAuthority(tc.domain); got != tc.want {
			t.Errorf("EstimateDomainAuthority(%q) = %d, want %d", tc.domain, got, tc.want)
		}
	}
}

func TestGenerateCSV(t *testing.T) {
	svc := NewService(&fakeQueryGenerator{})
	svc.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }

	urls := SynthesizeURLs("content marketing")
	out, err := svc.GenerateCSV(urls, "content marketing")
	if err != nil {
		t.Fatalf("csv failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != len(urls)+1 {
		t.Fatalf("lines = %d, want %d", len(lines), len(urls)+1)
	}
	if lines[0] != "URL,Niche,Status,Estimated DA,Spam Score,Last Checked" {
		t.Fatalf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "2025-03-01T12:00:00Z") {
		t.Fatalf("row missing timestamp: %q", lines[1])
	}
	if !strings.Contains(lines[1], ",Pending,") {
		t.Fatalf("row missing pending status: %q", lines[1])
	}
}

func TestSlugify(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"SaaS Tools", "saas-tools"},
		{"  B2B / Fintech!  ", "b2b-fintech"},
		{"already-slugged", "already-slugged"},
		{"Trailing punctuation...", "trailing-punctuation"},
	}
	for _, tc := range cases {
		if got := Slugify(tc.in); got != tc.want {
			t.Errorf("Slugify(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
