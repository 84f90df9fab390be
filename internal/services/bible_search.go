package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/sola-scriptura-text-search/internal/bible"
	"github.com/sola-scriptura-text-search/internal/metrics"
	"github.com/sola-scriptura-text-search/internal/models"
	"github.com/sola-scriptura-text-search/internal/repository"
)

// Search limits used when no configuration is given
const (
	DefaultSearchLimit = 100
	MaxSearchLimit     = 500
)

// Resolver maps index keys to live verses
type Resolver interface {
	Resolve(key models.VerseKey) (*bible.LocatedVerse, bool)
}

// SearchConfig bounds search requests
type SearchConfig struct {
	DefaultLimit int
	MaxLimit     int
	// Timeout bounds a single search; zero means no limit
	Timeout time.Duration
}

// BibleSearchService runs text searches and resolves the hits against the
// live bibles
type BibleSearchService struct {
	index    repository.TextIndex
	resolver Resolver
	metrics  *metrics.Metrics
	logger   echo.Logger
	config   SearchConfig
}

// NewBibleSearchService creates a new search service
func NewBibleSearchService(
	index repository.TextIndex,
	resolver Resolver,
	m *metrics.Metrics,
	logger echo.Logger,
	config SearchConfig,
) *BibleSearchService {
	if config.DefaultLimit <= 0 {
		config.DefaultLimit = DefaultSearchLimit
	}
	if config.MaxLimit <= 0 {
		config.MaxLimit = MaxSearchLimit
	}
	if config.DefaultLimit > config.MaxLimit {
		config.DefaultLimit = config.MaxLimit
	}
	if logger == nil {
		logger = log.New("search")
	}
	return &BibleSearchService{
		index:    index,
		resolver: resolver,
		metrics:  m,
		logger:   logger,
		config:   config,
	}
}

// Normalize validates the search type and clamps the result limit
func (s *BibleSearchService) Normalize(criteria models.SearchCriteria) (models.SearchCriteria, error) {
	t, err := models.ParseSearchType(string(criteria.Type))
	if err != nil {
		return criteria, err
	}
	criteria.Type = t

	switch {
	case criteria.MaxResults <= 0:
		criteria.MaxResults = s.config.DefaultLimit
	case criteria.MaxResults > s.config.MaxLimit:
		criteria.MaxResults = s.config.MaxLimit
	}
	if criteria.BookNumber < 0 {
		criteria.BookNumber = 0
	}
	return criteria, nil
}

// Search runs criteria and returns results ordered by relevance. A blank
// query yields an empty result set. Hits that no longer resolve to a live
// verse are logged and dropped.
func (s *BibleSearchService) Search(ctx context.Context, criteria models.SearchCriteria) (*models.ResultSet, error) {
	start := time.Now()

	criteria, err := s.Normalize(criteria)
	if err != nil {
		s.metrics.ObserveSearch("invalid", metrics.OutcomeError, time.Since(start))
		return nil, err
	}
	if criteria.IsBlank() {
		s.metrics.ObserveSearch(string(criteria.Type), metrics.OutcomeBlank, time.Since(start))
		return &models.ResultSet{Results: []models.BibleSearchResult{}}, nil
	}

	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	raw, err := s.index.Search(ctx, criteria)
	if err != nil {
		s.metrics.ObserveSearch(string(criteria.Type), outcomeOf(err), time.Since(start))
		return nil, fmt.Errorf("search %q: %w", criteria.Text, err)
	}

	rs := &models.ResultSet{
		Results: make([]models.BibleSearchResult, 0, len(raw.Hits)),
		Total:   raw.Total,
		HasMore: raw.HasMore,
	}
	for _, hit := range raw.Hits {
		lv, ok := s.resolver.Resolve(hit.Key)
		if !ok {
			s.logger.Warnj(log.JSON{
				"message":  "dropping stale index entry",
				"bible_id": hit.Key.BibleID.String(),
				"book":     hit.Key.Book,
				"chapter":  hit.Key.Chapter,
				"verse":    hit.Key.Verse,
				"query":    criteria.Text,
			})
			rs.Dropped++
			continue
		}
		rs.Results = append(rs.Results, models.BibleSearchResult{
			Bible:   lv.Bible,
			Book:    lv.Book,
			Chapter: lv.Chapter,
			Verse:   lv.Verse,
			Matches: hit.Matches,
			Score:   hit.Score,
		})
	}
	models.SortByRelevance(rs.Results)

	s.metrics.AddStaleHits(rs.Dropped)
	s.metrics.ObserveSearch(string(criteria.Type), metrics.OutcomeOK, time.Since(start))
	return rs, nil
}

// SearchAsync runs Search on another goroutine
func (s *BibleSearchService) SearchAsync(ctx context.Context, criteria models.SearchCriteria) *Future[*models.ResultSet] {
	return Go(ctx, func(ctx context.Context) (*models.ResultSet, error) {
		return s.Search(ctx, criteria)
	})
}

func outcomeOf(err error) string {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return metrics.OutcomeCancelled
	}
	return metrics.OutcomeError
}
