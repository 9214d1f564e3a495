package research

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Service fans a query out to every configured upstream and merges whatever
// succeeded. A single failing upstream degrades the result set instead of
// failing the search; only a total wipe-out is an error.
type Service struct {
	upstreams []Searcher
	logger    *zap.Logger
}

func NewService(logger *zap.Logger, upstreams ...Searcher) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{upstreams: upstreams, logger: logger}
}

var ErrEmptyQuery = errors.New("research: query is required")

func (s *Service) Search(ctx context.Context, query string, rows int) ([]Paper, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	type result struct {
		name   string
		papers []Paper
		err    error
	}

	results := make([]result, len(s.upstreams))
	var wg sync.WaitGroup
	for i, up := range s.upstreams {
		wg.Add(1)
		go func(i int, up Searcher) {
			defer wg.Done()
			papers, err := up.Search(ctx, query, rows)
			results[i] = result{name: up.Name(), papers: papers, err: err}
		}(i, up)
	}
	wg.Wait()

	var merged []Paper
	failed := 0
	for _, r := range results {
		if r.err != nil {
			failed++
			s.logger.Warn("research upstream failed",
				zap.String("upstream", r.name),
				zap.Error(r.err))
			continue
		}
		merged = append(merged, r.papers...)
	}
	if failed == len(s.upstreams) && len(s.upstreams) > 0 {
		return nil, errors.New("research: all upstreams failed")
	}

	merged = dedupe(merged)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Year > merged[j].Year
	})
	return merged, nil
}

// dedupe drops later duplicates of the same DOI; papers without a DOI are
// kept as-is.
func dedupe(in []Paper) []Paper {
	seen := map[string]bool{}
	out := in[:0]
	for _, p := range in {
		key := strings.ToLower(p.DOI)
		if key != "" {
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		out = append(out, p)
	}
	return out
}
