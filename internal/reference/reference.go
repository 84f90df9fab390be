// Package reference parses human-written verse references such as
// "John 3:16", "1 John 3:16-18" or "Gen.1.1" and resolves them against a
// bible.
package reference

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/sola-scriptura-text-search/internal/bible"
)

// ErrNotFound is returned when a reference names no verse of the bible
var ErrNotFound = errors.New("reference not found")

// Reference is a parsed verse reference. Chapter and verse are optional;
// VerseEnd is only set for a range inside one chapter.
type Reference struct {
	Book     string `parser:"@Book"`
	Chapter  *int   `parser:"( @Number"`
	Verse    *int   `parser:"  ( ( \":\" | \".\" ) @Number"`
	VerseEnd *int   `parser:"    ( \"-\" @Number )? )? )?"`
}

var referenceLexer = lexer.MustSimple([]lexer.SimpleRule{
	// an optional leading book number, then words: "1 John", "Song of Solomon", "Gen."
	{Name: "Book", Pattern: `(?:\d\s*)?\pL+(?:\s+(?:of\s+)?\pL+)*\.?`},
	{Name: "Number", Pattern: `\d+`},
	{Name: "Punct", Pattern: `[:.\-]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var referenceParser = participle.MustBuild[Reference](
	participle.Lexer(referenceLexer),
	participle.Elide("Whitespace"),
)

// Parse parses a reference
func Parse(input string) (*Reference, error) {
	ref, err := referenceParser.ParseString("", strings.TrimSpace(input))
	if err != nil {
		return nil, fmt.Errorf("parse reference %q: %w", input, err)
	}
	ref.Book = strings.TrimSpace(strings.TrimSuffix(ref.Book, "."))
	if ref.VerseEnd != nil && ref.Verse != nil && *ref.VerseEnd < *ref.Verse {
		return nil, fmt.Errorf("parse reference %q: range ends before it starts", input)
	}
	return ref, nil
}

// IsRange reports whether the reference names several verses
func (r *Reference) IsRange() bool {
	return r.VerseEnd != nil && *r.VerseEnd != *r.Verse
}

// VerseNumber returns the verse part as it is written on a verse, "16" or
// "16-18"; empty when no verse was given
func (r *Reference) VerseNumber() string {
	if r.Verse == nil {
		return ""
	}
	if r.IsRange() {
		return fmt.Sprintf("%d-%d", *r.Verse, *r.VerseEnd)
	}
	return strconv.Itoa(*r.Verse)
}

func (r *Reference) String() string {
	var sb strings.Builder
	sb.WriteString(r.Book)
	if r.Chapter == nil {
		return sb.String()
	}
	fmt.Fprintf(&sb, " %d", *r.Chapter)
	if r.Verse != nil {
		sb.WriteString(":")
		sb.WriteString(r.VerseNumber())
	}
	return sb.String()
}

// Resolve finds the verse a reference points at. The book is matched by
// name or unique prefix. A missing chapter or verse means the first one;
// a range resolves to a verse numbered exactly as the range, else to the
// verse containing its start.
func Resolve(b *bible.Bible, r *Reference) (*bible.LocatedVerse, bool) {
	book, ok := b.BookByName(r.Book)
	if !ok {
		return nil, false
	}

	if r.Chapter == nil {
		for _, ch := range book.Chapters {
			if len(ch.Verses) > 0 {
				return b.Verse(book.Number, ch.Number, ch.Verses[0].Number)
			}
		}
		return nil, false
	}

	ch, ok := book.Chapter(*r.Chapter)
	if !ok || len(ch.Verses) == 0 {
		return nil, false
	}
	if r.Verse == nil {
		return b.Verse(book.Number, ch.Number, ch.Verses[0].Number)
	}

	if r.IsRange() {
		if v, ok := ch.Verse(r.VerseNumber()); ok {
			return b.Verse(book.Number, ch.Number, v.Number)
		}
	}
	if v, ok := ch.Verse(strconv.Itoa(*r.Verse)); ok {
		return b.Verse(book.Number, ch.Number, v.Number)
	}
	// merged verses: 4 lives in "3-4"
	for _, v := range ch.Verses {
		vr, err := bible.ParseVerseNumber(v.Number)
		if err != nil {
			continue
		}
		if vr.First <= *r.Verse && *r.Verse <= vr.Last {
			return b.Verse(book.Number, ch.Number, v.Number)
		}
	}
	return nil, false
}

// Lookup parses input and resolves it in one step
func Lookup(b *bible.Bible, input string) (*bible.LocatedVerse, error) {
	ref, err := Parse(input)
	if err != nil {
		return nil, err
	}
	lv, ok := Resolve(b, ref)
	if !ok {
		return nil, fmt.Errorf("%s: %w", ref, ErrNotFound)
	}
	return lv, nil
}
