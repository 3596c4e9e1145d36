package discovery

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	"github.com/gentleomega/go-aibob/pkg/common/logger"
	"github.com/gentleomega/go-aibob/pkg/common/models"
)

// QueryGenerator is the slice of the provider contract discovery needs.
type QueryGenerator interface {
	GenerateSearchQueries(ctx context.Context, niche string, keywords []string) ([]string, error)
}

// guestPostDomains are ten known "write for us"-friendly domains. This is a
// stand-in for a real search integration: candidate URLs are synthesized
// from this list, no live web search occurs.
var guestPostDomains = []string{
	"medium.com",
	"forbes.com",
	"entrepreneur.com",
	"hubspot.com",
	"business2community.com",
	"searchenginejournal.com",
	"contentmarketinginstitute.com",
	"socialmediaexaminer.com",
	"copyblogger.com",
	"smartblogger.com",
}

var highAuthorityDomains = map[string]bool{
	"medium.com":       true,
	"forbes.com":       true,
	"entrepreneur.com": true,
	"hubspot.com":      true,
}

var mediumAuthorityDomains = map[string]bool{
	"business2community.com":        true,
	"searchenginejournal.com":       true,
	"contentmarketinginstitute.com": true,
	"socialmediaexaminer.com":       true,
}

// maxQueries caps how many generated queries the service keeps.
const maxQueries = 3

type Service struct {
	queries QueryGenerator
	now     func() time.Time
}

func NewService(queries QueryGenerator) *Service {
	return &Service{queries: queries, now: time.Now}
}

// DiscoverURLs generates search queries for the niche and maps the fixed
// domain list into candidate guest-posting URLs.
func (s *Service) DiscoverURLs(ctx context.Context, niche string, keywords []string) ([]string, error) {
	queries, err := s.searchQueries(ctx, niche, keywords)
	if err != nil {
		return nil, err
	}

	logger.Log.WithFields(map[string]interface{}{
		"niche":   niche,
		"queries": len(queries),
	}).Debug("synthesizing candidate urls")

	return SynthesizeURLs(niche), nil
}

// SynthesizeURLs maps the fixed domain list into candidate URLs for a niche.
func SynthesizeURLs(niche string) []string {
	slug := Slugify(niche)
	urls := make([]string, 0, len(guestPostDomains))
	for _, domain := range guestPostDomains {
		urls = append(urls, fmt.Sprintf("https://%s/%s-guest-posting", domain, slug))
	}
	return urls
}

// DiscoverOpportunities composes query generation, URL synthesis, and the
// opportunity estimate into one summary.
func (s *Service) DiscoverOpportunities(ctx context.Context, niche string, keywords []string) (*models.DiscoveryResult, error) {
	queries, err := s.searchQueries(ctx, niche, keywords)
	if err != nil {
		return nil, err
	}

	urls := SynthesizeURLs(niche)

	return &models.DiscoveryResult{
		URLs:                   urls,
		Niche:                  niche,
		Keywords:               keywords,
		SearchQueries:          queries,
		EstimatedOpportunities: len(urls),
	}, nil
}

func (s *Service) searchQueries(ctx context.Context, niche string, keywords []string) ([]string, error) {
	queries, err := s.queries.GenerateSearchQueries(ctx, niche, keywords)
	if err != nil {
		return nil, fmt.Errorf("generate search queries: %w", err)
	}
	if len(queries) > maxQueries {
		queries = queries[:maxQueries]
	}
	return queries, nil
}

// EstimateDomainAuthority returns a heuristic DA score from the static
// lookup table: 85 for the high-authority set, 65 for the medium set, 50
// otherwise.
func EstimateDomainAuthority(domain string) int {
	domain = strings.ToLower(strings.TrimPrefix(domain, "www."))
	switch {
	case highAuthorityDomains[domain]:
		return 85
	case mediumAuthorityDomains[domain]:
		return 65
	default:
		return 50
	}
}

// GenerateCSV renders the discovered URL set as a CSV export.
func (s *Service) GenerateCSV(urls []string, niche string) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"URL", "Niche", "Status", "Estimated DA", "Spam Score", "Last Checked"}); err != nil {
		return "", fmt.Errorf("write csv header: %w", err)
	}

	checked := s.now().UTC().Format(time.RFC3339)
	for _, u := range urls {
		da := EstimateDomainAuthority(domainOf(u))
		row := []string{u, niche, "Pending", fmt.Sprintf("%d", da), "Unknown", checked}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("write csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush csv: %w", err)
	}
	return buf.String(), nil
}

// Slugify lowers a niche name into a URL path segment.
func Slugify(s string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func domainOf(rawURL string) string {
	u := strings.TrimPrefix(rawURL, "https://")
	u = strings.TrimPrefix(u, "http://")
	if i := strings.IndexByte(u, '/'); i >= 0 {
		u = u[:i]
	}
	return u
}
