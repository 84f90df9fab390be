package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidSearchType is returned for an unknown search type name
var ErrInvalidSearchType = errors.New("invalid search type")

// SearchType selects how query terms must appear in a verse
type SearchType string

const (
	// SearchTypePhrase requires all terms contiguously and in order
	SearchTypePhrase SearchType = "PHRASE"
	// SearchTypeAllWords requires every term somewhere in the verse
	SearchTypeAllWords SearchType = "ALL_WORDS"
	// SearchTypeAnyWord requires at least one term
	SearchTypeAnyWord SearchType = "ANY_WORD"
)

// ParseSearchType accepts the canonical names case-insensitively, with
// '-' or ' ' in place of '_'. Empty input means ANY_WORD.
func ParseSearchType(s string) (SearchType, error) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	switch SearchType(norm) {
	case "":
		return SearchTypeAnyWord, nil
	case SearchTypePhrase, SearchTypeAllWords, SearchTypeAnyWord:
		return SearchType(norm), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSearchType, s)
}

// SearchCriteria is a single query against the text index
type SearchCriteria struct {
	Text       string
	Type       SearchType
	MaxResults int
	// BibleID restricts the search to one bible; uuid.Nil searches all
	BibleID uuid.UUID
	// BookNumber restricts the search to one book; 0 searches all
	BookNumber int
}

// IsBlank reports whether the query has no searchable text
func (c SearchCriteria) IsBlank() bool {
	return strings.TrimSpace(c.Text) == ""
}

// VerseKey identifies one verse document in the index
type VerseKey struct {
	BibleID uuid.UUID `json:"bible_id"`
	Book    int       `json:"book"`
	Chapter int       `json:"chapter"`
	Verse   string    `json:"verse"`
}

// String is the index document id: <bible>/<book>/<chapter>/<verse>
func (k VerseKey) String() string {
	return fmt.Sprintf("%s/%d/%d/%s", k.BibleID, k.Book, k.Chapter, k.Verse)
}

// MatchSpan is a matched term located by byte offsets in the verse text
type MatchSpan struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Text  string `json:"text"`
}

// SearchTextMatch is the highlighted portion of one field of a hit
type SearchTextMatch struct {
	Field string `json:"field"`
	// MatchedText is a fragment of the field with matches wrapped in
	// HighlightBefore/HighlightAfter
	MatchedText string      `json:"matched_text"`
	Spans       []MatchSpan `json:"spans,omitempty"`
}

// Markers wrapped around matched terms in SearchTextMatch.MatchedText
const (
	HighlightBefore = "<mark>"
	HighlightAfter  = "</mark>"
)

// SearchResult is a raw index hit, not yet resolved against live bibles
type SearchResult struct {
	Key     VerseKey
	Score   float64
	Matches []SearchTextMatch
}

// SearchResults is the index answer to one query
type SearchResults struct {
	Hits []SearchResult
	// Total is the number of matching documents, which may exceed len(Hits)
	Total   int
	HasMore bool
}

// VerseDocument is what the index stores for a verse
type VerseDocument struct {
	Key  VerseKey
	Text string
}

// IndexStats reports what one replace operation changed in the index
type IndexStats struct {
	Indexed int `json:"indexed"`
	Deleted int `json:"deleted"`
	// Unchanged counts documents skipped because their text hash matched
	Unchanged int `json:"unchanged"`
}

// Changed reports whether the index was written
func (s IndexStats) Changed() bool {
	return s.Indexed > 0 || s.Deleted > 0
}
