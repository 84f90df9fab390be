package models

import (
	"cmp"
	"sort"
	"strings"

	"github.com/sola-scriptura-text-search/internal/bible"
)

// BibleSearchResult is a hit resolved to live scripture entities
type BibleSearchResult struct {
	Bible   *bible.Bible
	Book    *bible.Book
	Chapter *bible.Chapter
	Verse   *bible.Verse
	Matches []SearchTextMatch
	Score   float64
}

// Compare orders results by bible id, book number, chapter number and
// then verse number as a string. Score does not take part.
func (r BibleSearchResult) Compare(o BibleSearchResult) int {
	if c := strings.Compare(r.Bible.ID.String(), o.Bible.ID.String()); c != 0 {
		return c
	}
	if c := cmp.Compare(r.Book.Number, o.Book.Number); c != 0 {
		return c
	}
	if c := cmp.Compare(r.Chapter.Number, o.Chapter.Number); c != 0 {
		return c
	}
	return strings.Compare(r.Verse.Number, o.Verse.Number)
}

// Less reports whether r sorts before o in canonical order
func (r BibleSearchResult) Less(o BibleSearchResult) bool {
	return r.Compare(o) < 0
}

// Key returns the index key of the resolved verse
func (r BibleSearchResult) Key() VerseKey {
	return VerseKey{BibleID: r.Bible.ID, Book: r.Book.Number, Chapter: r.Chapter.Number, Verse: r.Verse.Number}
}

// SortCanonical sorts results in canonical order
func SortCanonical(results []BibleSearchResult) {
	sort.SliceStable(results, func(i, j int) bool { return results[i].Less(results[j]) })
}

// SortByRelevance sorts by score descending, breaking ties canonically
func SortByRelevance(results []BibleSearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Less(results[j])
	})
}

// ResultSet is the answer to one submitted search
type ResultSet struct {
	Results []BibleSearchResult
	// Total is the index match count before the cap and stale-hit removal
	Total   int
	HasMore bool
	// Dropped counts stale hits that no longer resolve to a live verse
	Dropped int
	// Generation identifies the submission within a SearchSession
	Generation uint64
}

// Len returns the number of results
func (rs *ResultSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.Results)
}
