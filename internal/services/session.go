package services

import (
	"context"
	"sync"

	"github.com/sola-scriptura-text-search/internal/models"
)

// SearchSession serves one interactive searcher. Every submission gets a
// new generation number and cancels the query it supersedes, so only the
// latest result is worth showing.
type SearchSession struct {
	service *BibleSearchService

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
}

// NewSearchSession creates a session over the search service
func NewSearchSession(service *BibleSearchService) *SearchSession {
	return &SearchSession{service: service}
}

// Submit starts a search as the newest generation. The returned result set
// carries the generation it was submitted under.
func (s *SearchSession) Submit(ctx context.Context, criteria models.SearchCriteria) (uint64, *Future[*models.ResultSet]) {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.generation++
	gen := s.generation
	s.cancel = cancel
	s.mu.Unlock()

	return gen, Go(ctx, func(ctx context.Context) (*models.ResultSet, error) {
		rs, err := s.service.Search(ctx, criteria)
		if err != nil {
			return nil, err
		}
		rs.Generation = gen
		return rs, nil
	})
}

// IsCurrent reports whether gen is still the latest submission
func (s *SearchSession) IsCurrent(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gen == s.generation
}

// Generation returns the latest submission number
func (s *SearchSession) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Close cancels the in-flight search, if any
func (s *SearchSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}
