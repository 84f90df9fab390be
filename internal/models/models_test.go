package models

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/sola-scriptura-text-search/internal/bible"
)

func result(b *bible.Bible, book, chapter int, verse string, score float64) BibleSearchResult {
	return BibleSearchResult{
		Bible:   b,
		Book:    &bible.Book{Number: book},
		Chapter: &bible.Chapter{Number: chapter},
		Verse:   &bible.Verse{Number: verse},
		Score:   score,
	}
}

func TestSortByRelevance(t *testing.T) {
	b := bible.New("KJV", "en")

	results := []BibleSearchResult{
		result(b, 43, 1, "1", 0.5),
		result(b, 1, 1, "2", 0.9),
		result(b, 1, 1, "1", 0.5),
		result(b, 1, 2, "1", 0.5),
	}
	SortByRelevance(results)

	want := []string{"1/1/2", "1/1/1", "1/2/1", "43/1/1"}
	for i, r := range results {
		k := r.Key()
		got := k.String()[len(b.ID.String())+1:]
		if got != want[i] {
			t.Fatalf("position %d: got %s, want %s", i, got, want[i])
		}
	}
}

func TestCompareIgnoresScore(t *testing.T) {
	b := bible.New("KJV", "en")
	a := result(b, 1, 1, "1", 0.1)
	c := result(b, 1, 1, "1", 9)
	if a.Compare(c) != 0 {
		t.Fatal("expected equal results for the same verse")
	}
	if !a.Less(result(b, 1, 1, "2", 0)) {
		t.Fatal("expected verse 1 before verse 2")
	}
}

func TestParseSearchType(t *testing.T) {
	tests := []struct {
		in   string
		want SearchType
	}{
		{"", SearchTypeAnyWord},
		{"phrase", SearchTypePhrase},
		{"all-words", SearchTypeAllWords},
		{" Any Word ", SearchTypeAnyWord},
	}
	for _, tt := range tests {
		got, err := ParseSearchType(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseSearchType(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}

	if _, err := ParseSearchType("fuzzy"); !errors.Is(err, ErrInvalidSearchType) {
		t.Fatalf("expected ErrInvalidSearchType, got %v", err)
	}
}

func TestEntityRefContains(t *testing.T) {
	id := uuid.New()
	key := VerseKey{BibleID: id, Book: 1, Chapter: 2, Verse: "3a"}

	tests := []struct {
		ref  EntityRef
		want bool
	}{
		{BibleRef(id), true},
		{BibleRef(uuid.New()), false},
		{BookRef(id, 1), true},
		{BookRef(id, 2), false},
		{ChapterRef(id, 1, 2), true},
		{ChapterRef(id, 1, 3), false},
		{VerseRef(VerseKey{BibleID: id, Book: 1, Chapter: 2, Verse: "3A"}), true},
		{VerseRef(VerseKey{BibleID: id, Book: 1, Chapter: 2, Verse: "4"}), false},
	}
	for _, tt := range tests {
		if got := tt.ref.Contains(key); got != tt.want {
			t.Errorf("%s contains %s = %v, want %v", tt.ref, key, got, tt.want)
		}
	}
}

func TestParseEntityKind(t *testing.T) {
	for _, k := range []EntityKind{EntityBible, EntityBook, EntityChapter, EntityVerse} {
		got, err := ParseEntityKind(k.String())
		if err != nil || got != k {
			t.Errorf("ParseEntityKind(%q) = %v, %v", k.String(), got, err)
		}
	}
	if _, err := ParseEntityKind("testament"); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestSearchRequestCriteria(t *testing.T) {
	id := uuid.New()
	c, err := SearchRequest{Query: "light", Type: "PHRASE", Limit: 5, BibleID: id.String(), Book: 1}.Criteria()
	if err != nil {
		t.Fatalf("criteria: %v", err)
	}
	if c.Text != "light" || c.Type != SearchTypePhrase || c.MaxResults != 5 || c.BibleID != id || c.BookNumber != 1 {
		t.Fatalf("unexpected criteria %+v", c)
	}

	c, err = SearchRequest{Query: "light"}.Criteria()
	if err != nil || c.BibleID != uuid.Nil {
		t.Fatalf("expected unscoped criteria, got %+v, %v", c, err)
	}

	if _, err := (SearchRequest{Query: "light", BibleID: "kjv"}).Criteria(); err == nil {
		t.Fatal("expected error for malformed bible_id")
	}
}

func TestResultSetLen(t *testing.T) {
	var rs *ResultSet
	if rs.Len() != 0 {
		t.Fatal("nil result set should be empty")
	}
	if (IndexStats{Unchanged: 3}).Changed() {
		t.Fatal("unchanged documents are not a write")
	}
}
