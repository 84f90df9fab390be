package models

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/sola-scriptura-text-search/internal/bible"
)

// SearchRequest is the request body for verse text search
type SearchRequest struct {
	Query   string `json:"query"`
	Type    string `json:"type,omitempty"`
	Limit   int    `json:"limit,omitempty" validate:"omitempty,max=500"`
	BibleID string `json:"bible_id,omitempty"`
	Book    int    `json:"book,omitempty"`
}

// Criteria converts the request to index search criteria
func (r SearchRequest) Criteria() (SearchCriteria, error) {
	c := SearchCriteria{
		Text:       r.Query,
		Type:       SearchType(r.Type),
		MaxResults: r.Limit,
		BookNumber: r.Book,
	}
	if r.BibleID != "" {
		id, err := uuid.Parse(r.BibleID)
		if err != nil {
			return c, fmt.Errorf("bible_id %q: %w", r.BibleID, err)
		}
		c.BibleID = id
	}
	return c, nil
}

// VerseCitation represents a verse with its location and optional score
type VerseCitation struct {
	BibleID        string            `json:"bible_id"`
	BibleName      string            `json:"bible_name"`
	Book           int               `json:"book"`
	BookName       string            `json:"book_name"`
	Chapter        int               `json:"chapter"`
	Verse          string            `json:"verse"`
	Reference      string            `json:"reference"`
	Text           string            `json:"text"`
	RelevanceScore *float64          `json:"relevance_score,omitempty"`
	Matches        []SearchTextMatch `json:"matches,omitempty"`
}

// SearchResponse is the response for verse text search
type SearchResponse struct {
	Query   string          `json:"query"`
	Type    SearchType      `json:"type"`
	Results []VerseCitation `json:"results"`
	Total   int             `json:"total"`
	HasMore bool            `json:"has_more"`
	Dropped int             `json:"dropped,omitempty"`
}

// SearchMessage is a search submitted over the websocket
type SearchMessage struct {
	Seq uint64 `json:"seq"`
	SearchRequest
}

// SearchReply answers one SearchMessage. Replies may arrive out of order;
// clients keep only the reply whose Seq matches their latest message.
type SearchReply struct {
	Seq        uint64          `json:"seq"`
	Generation uint64          `json:"generation"`
	Response   *SearchResponse `json:"response,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// BibleSummary describes a loaded bible
type BibleSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Language   string `json:"language,omitempty"`
	Copyright  string `json:"copyright,omitempty"`
	Source     string `json:"source,omitempty"`
	BookCount  int    `json:"book_count"`
	VerseCount int    `json:"verse_count"`
}

// BookSummary describes a book without its text
type BookSummary struct {
	Number   int    `json:"number"`
	Name     string `json:"name"`
	Chapters int    `json:"chapters"`
}

// BibleDetail is a bible summary with its table of contents
type BibleDetail struct {
	BibleSummary
	Notes string        `json:"notes,omitempty"`
	Books []BookSummary `json:"books"`
}

// TripletResponse is a verse with its reading context
type TripletResponse struct {
	Previous *VerseCitation `json:"previous,omitempty"`
	Current  VerseCitation  `json:"current"`
	Next     *VerseCitation `json:"next,omitempty"`
}

// NewVerseCitation converts a located verse for the API
func NewVerseCitation(lv *bible.LocatedVerse) VerseCitation {
	return VerseCitation{
		BibleID:   lv.Bible.ID.String(),
		BibleName: lv.Bible.Name,
		Book:      lv.Book.Number,
		BookName:  lv.Book.Name,
		Chapter:   lv.Chapter.Number,
		Verse:     lv.Verse.Number,
		Reference: lv.Reference(),
		Text:      lv.Verse.Text,
	}
}

func optionalCitation(lv *bible.LocatedVerse) *VerseCitation {
	if lv == nil {
		return nil
	}
	c := NewVerseCitation(lv)
	return &c
}

// NewTripletResponse converts a triplet for the API
func NewTripletResponse(t *bible.LocatedVerseTriplet) TripletResponse {
	return TripletResponse{
		Previous: optionalCitation(t.Previous),
		Current:  NewVerseCitation(t.Current),
		Next:     optionalCitation(t.Next),
	}
}

// NewSearchResponse converts a result set for the API
func NewSearchResponse(query string, searchType SearchType, rs *ResultSet) SearchResponse {
	resp := SearchResponse{
		Query:   query,
		Type:    searchType,
		Results: make([]VerseCitation, 0, rs.Len()),
	}
	if rs == nil {
		return resp
	}
	resp.Total = rs.Total
	resp.HasMore = rs.HasMore
	resp.Dropped = rs.Dropped
	for _, r := range rs.Results {
		c := NewVerseCitation(&bible.LocatedVerse{Bible: r.Bible, Book: r.Book, Chapter: r.Chapter, Verse: r.Verse})
		score := r.Score
		c.RelevanceScore = &score
		c.Matches = r.Matches
		resp.Results = append(resp.Results, c)
	}
	return resp
}

// NewBibleSummary summarises a bible for listings
func NewBibleSummary(b *bible.Bible) BibleSummary {
	return BibleSummary{
		ID:         b.ID.String(),
		Name:       b.Name,
		Language:   b.Language,
		Copyright:  b.Copyright,
		Source:     b.Source,
		BookCount:  b.BookCount(),
		VerseCount: b.VerseCount(),
	}
}

// NewBibleDetail summarises a bible with its books
func NewBibleDetail(b *bible.Bible) BibleDetail {
	d := BibleDetail{
		BibleSummary: NewBibleSummary(b),
		Notes:        b.Notes,
		Books:        make([]BookSummary, 0, len(b.Books)),
	}
	for _, bk := range b.Books {
		d.Books = append(d.Books, BookSummary{Number: bk.Number, Name: bk.Name, Chapters: len(bk.Chapters)})
	}
	return d
}
