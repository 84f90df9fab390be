package textindex

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search"
	"github.com/blevesearch/bleve/v2/search/highlight/highlighter/html"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/google/uuid"

	"github.com/sola-scriptura-text-search/internal/models"
)

// DefaultMaxResults caps a search that names no limit
const DefaultMaxResults = 100

// fragmentSeparator joins several highlighted fragments of one verse
const fragmentSeparator = " … "

// Search runs criteria against the index. Hits are ordered by score, with
// ties broken by bible id, book, chapter and verse number so the same index
// state always yields the same order.
func (i *Index) Search(ctx context.Context, criteria models.SearchCriteria) (*models.SearchResults, error) {
	if criteria.IsBlank() {
		return &models.SearchResults{Hits: []models.SearchResult{}}, nil
	}

	req, err := buildRequest(criteria)
	if err != nil {
		return nil, err
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	if i.closed || i.index == nil {
		return nil, ErrIndexClosed
	}

	res, err := i.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	return convertResult(res, req.Size), nil
}

// buildRequest translates criteria into a bleve request
func buildRequest(criteria models.SearchCriteria) (*bleve.SearchRequest, error) {
	text, err := textQuery(criteria)
	if err != nil {
		return nil, err
	}

	q := text
	if criteria.BibleID != uuid.Nil || criteria.BookNumber > 0 {
		conj := bleve.NewConjunctionQuery(text)
		if criteria.BibleID != uuid.Nil {
			conj.AddQuery(termQuery(FieldBibleID, criteria.BibleID.String()))
		}
		if criteria.BookNumber > 0 {
			conj.AddQuery(numberQuery(FieldBook, criteria.BookNumber))
		}
		q = conj
	}

	size := criteria.MaxResults
	if size <= 0 {
		size = DefaultMaxResults
	}

	req := bleve.NewSearchRequestOptions(q, size, 0, false)
	req.Fields = []string{FieldBibleID, FieldBook, FieldChapter, FieldVerse, FieldText}
	req.IncludeLocations = true
	req.Highlight = bleve.NewHighlightWithStyle(html.Name)
	req.Highlight.AddField(FieldText)
	req.SortByCustom(search.SortOrder{
		&search.SortScore{Desc: true},
		&search.SortField{Field: FieldBibleID, Type: search.SortFieldAsString},
		&search.SortField{Field: FieldBook, Type: search.SortFieldAsNumber},
		&search.SortField{Field: FieldChapter, Type: search.SortFieldAsNumber},
		&search.SortField{Field: FieldVerse, Type: search.SortFieldAsString},
	})
	return req, nil
}

// textQuery builds the verse text query for the search type
func textQuery(criteria models.SearchCriteria) (query.Query, error) {
	text := strings.TrimSpace(criteria.Text)
	switch criteria.Type {
	case models.SearchTypePhrase:
		q := bleve.NewMatchPhraseQuery(text)
		q.SetField(FieldText)
		return q, nil
	case models.SearchTypeAllWords:
		q := bleve.NewMatchQuery(text)
		q.SetField(FieldText)
		q.SetOperator(query.MatchQueryOperatorAnd)
		return q, nil
	case models.SearchTypeAnyWord, "":
		q := bleve.NewMatchQuery(text)
		q.SetField(FieldText)
		q.SetOperator(query.MatchQueryOperatorOr)
		return q, nil
	}
	return nil, fmt.Errorf("%w: %q", models.ErrInvalidSearchType, criteria.Type)
}

func convertResult(res *bleve.SearchResult, size int) *models.SearchResults {
	out := &models.SearchResults{
		Hits:    make([]models.SearchResult, 0, len(res.Hits)),
		Total:   int(res.Total),
		HasMore: int(res.Total) > size,
	}
	for _, hit := range res.Hits {
		r, ok := convertHit(hit)
		if !ok {
			continue
		}
		out.Hits = append(out.Hits, r)
	}
	return out
}

// convertHit rebuilds the verse key from stored fields. Documents with
// unreadable fields are skipped.
func convertHit(hit *search.DocumentMatch) (models.SearchResult, bool) {
	bibleID, err := uuid.Parse(stringField(hit.Fields, FieldBibleID))
	if err != nil {
		return models.SearchResult{}, false
	}
	key := models.VerseKey{
		BibleID: bibleID,
		Book:    intField(hit.Fields, FieldBook),
		Chapter: intField(hit.Fields, FieldChapter),
		Verse:   stringField(hit.Fields, FieldVerse),
	}

	r := models.SearchResult{Key: key, Score: hit.Score}
	fragments := hit.Fragments[FieldText]
	spans := matchSpans(stringField(hit.Fields, FieldText), hit.Locations[FieldText])
	if len(fragments) > 0 || len(spans) > 0 {
		r.Matches = []models.SearchTextMatch{{
			Field:       FieldText,
			MatchedText: strings.Join(fragments, fragmentSeparator),
			Spans:       spans,
		}}
	}
	return r, true
}

// matchSpans converts term locations into byte spans of text, ordered by
// position and without duplicates
func matchSpans(text string, terms search.TermLocationMap) []models.MatchSpan {
	seen := make(map[[2]int]bool)
	var spans []models.MatchSpan
	for _, locations := range terms {
		for _, loc := range locations {
			start, end := int(loc.Start), int(loc.End)
			if start < 0 || end > len(text) || start >= end || seen[[2]int{start, end}] {
				continue
			}
			seen[[2]int{start, end}] = true
			spans = append(spans, models.MatchSpan{Start: start, End: end, Text: text[start:end]})
		}
	}
	sort.Slice(spans, func(a, b int) bool { return spans[a].Start < spans[b].Start })
	return spans
}

func stringField(fields map[string]interface{}, name string) string {
	switch v := fields[name].(type) {
	case string:
		return v
	case []interface{}:
		if len(v) > 0 {
			s, _ := v[0].(string)
			return s
		}
	}
	return ""
}

func intField(fields map[string]interface{}, name string) int {
	switch v := fields[name].(type) {
	case float64:
		return int(v)
	case string:
		n, _ := strconv.Atoi(v)
		return n
	}
	return 0
}
