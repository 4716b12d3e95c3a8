package search

import (
	"context"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// SearchBooks resolves a free-text query to book IDs, best match first.
// Matches on title and author with a fuzzy fallback for typos and a prefix
// query so partial titles work while typing.
func (s *SearchIndex) SearchBooks(ctx context.Context, q string, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q = strings.TrimSpace(q)
	if q == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	var parts []query.Query

	titleMatch := bleve.NewMatchQuery(q)
	titleMatch.SetField("title")
	titleMatch.SetBoost(3.0)
	parts = append(parts, titleMatch)

	authorMatch := bleve.NewMatchQuery(q)
	authorMatch.SetField("author")
	authorMatch.SetBoost(1.5)
	parts = append(parts, authorMatch)

	fuzzy := bleve.NewFuzzyQuery(q)
	fuzzy.SetFuzziness(1)
	fuzzy.SetField("title")
	fuzzy.SetBoost(0.8)
	parts = append(parts, fuzzy)

	if len(q) >= 2 {
		prefix := bleve.NewPrefixQuery(strings.ToLower(q))
		prefix.SetField("title")
		prefix.SetBoost(0.5)
		parts = append(parts, prefix)
	}

	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(parts...), limit, 0, false)
	result, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(result.Hits))
	for _, hit := range result.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}
