package bible

import (
	"fmt"
	"strings"
)

// LocatedVerse pairs a verse with the entities that own it. It is built on
// demand by lookups and never stored on the tree.
type LocatedVerse struct {
	Bible   *Bible
	Book    *Book
	Chapter *Chapter
	Verse   *Verse
}

// Reference formats the verse as "Book chapter:verse"
func (lv *LocatedVerse) Reference() string {
	return fmt.Sprintf("%s %d:%s", lv.Book.Name, lv.Chapter.Number, lv.Verse.Number)
}

// LocatedVerseTriplet is a verse with its neighbours for reading context.
// Previous or Next is nil at the start or end of the bible.
type LocatedVerseTriplet struct {
	Previous *LocatedVerse
	Current  *LocatedVerse
	Next     *LocatedVerse
}

// position indexes into the Books/Chapters/Verses slices
type position struct {
	book, chapter, verse int
}

func (b *Bible) locate(book, chapter int, verse string) (position, bool) {
	for bi, bk := range b.Books {
		if bk.Number != book {
			continue
		}
		for ci, ch := range bk.Chapters {
			if ch.Number != chapter {
				continue
			}
			for vi, v := range ch.Verses {
				if strings.EqualFold(v.Number, verse) {
					return position{bi, ci, vi}, true
				}
			}
			return position{}, false
		}
		return position{}, false
	}
	return position{}, false
}

func (b *Bible) at(p position) *LocatedVerse {
	bk := b.Books[p.book]
	ch := bk.Chapters[p.chapter]
	return &LocatedVerse{Bible: b, Book: bk, Chapter: ch, Verse: ch.Verses[p.verse]}
}

// next walks forward in slice order, skipping empty chapters and books
func (b *Bible) next(p position) (position, bool) {
	if p.verse+1 < len(b.Books[p.book].Chapters[p.chapter].Verses) {
		return position{p.book, p.chapter, p.verse + 1}, true
	}
	for bi := p.book; bi < len(b.Books); bi++ {
		chapters := b.Books[bi].Chapters
		start := 0
		if bi == p.book {
			start = p.chapter + 1
		}
		for ci := start; ci < len(chapters); ci++ {
			if len(chapters[ci].Verses) > 0 {
				return position{bi, ci, 0}, true
			}
		}
	}
	return position{}, false
}

func (b *Bible) previous(p position) (position, bool) {
	if p.verse > 0 {
		return position{p.book, p.chapter, p.verse - 1}, true
	}
	for bi := p.book; bi >= 0; bi-- {
		chapters := b.Books[bi].Chapters
		start := len(chapters) - 1
		if bi == p.book {
			start = p.chapter - 1
		}
		for ci := start; ci >= 0; ci-- {
			if n := len(chapters[ci].Verses); n > 0 {
				return position{bi, ci, n - 1}, true
			}
		}
	}
	return position{}, false
}

func (b *Bible) triplet(p position) *LocatedVerseTriplet {
	t := &LocatedVerseTriplet{Current: b.at(p)}
	if pp, ok := b.previous(p); ok {
		t.Previous = b.at(pp)
	}
	if np, ok := b.next(p); ok {
		t.Next = b.at(np)
	}
	return t
}

// Verse returns the verse at book/chapter/verse
func (b *Bible) Verse(book, chapter int, verse string) (*LocatedVerse, bool) {
	p, ok := b.locate(book, chapter, verse)
	if !ok {
		return nil, false
	}
	return b.at(p), true
}

// NextVerse returns the verse after the given one, crossing chapter and
// book boundaries. There is no wraparound at the end of the bible.
func (b *Bible) NextVerse(book, chapter int, verse string) (*LocatedVerse, bool) {
	p, ok := b.locate(book, chapter, verse)
	if !ok {
		return nil, false
	}
	np, ok := b.next(p)
	if !ok {
		return nil, false
	}
	return b.at(np), true
}

// PreviousVerse returns the verse before the given one
func (b *Bible) PreviousVerse(book, chapter int, verse string) (*LocatedVerse, bool) {
	p, ok := b.locate(book, chapter, verse)
	if !ok {
		return nil, false
	}
	pp, ok := b.previous(p)
	if !ok {
		return nil, false
	}
	return b.at(pp), true
}

// Triplet returns the verse with its previous and next verses
func (b *Bible) Triplet(book, chapter int, verse string) (*LocatedVerseTriplet, bool) {
	p, ok := b.locate(book, chapter, verse)
	if !ok {
		return nil, false
	}
	return b.triplet(p), true
}

// NextTriplet returns the triplet centred on the verse after the given one
func (b *Bible) NextTriplet(book, chapter int, verse string) (*LocatedVerseTriplet, bool) {
	p, ok := b.locate(book, chapter, verse)
	if !ok {
		return nil, false
	}
	np, ok := b.next(p)
	if !ok {
		return nil, false
	}
	return b.triplet(np), true
}

// PreviousTriplet returns the triplet centred on the verse before the given one
func (b *Bible) PreviousTriplet(book, chapter int, verse string) (*LocatedVerseTriplet, bool) {
	p, ok := b.locate(book, chapter, verse)
	if !ok {
		return nil, false
	}
	pp, ok := b.previous(p)
	if !ok {
		return nil, false
	}
	return b.triplet(pp), true
}

// MatchingBook finds the book in b with the same number as book, which
// usually comes from another bible.
func (b *Bible) MatchingBook(book *Book) (*Book, bool) {
	if book == nil {
		return nil, false
	}
	return b.Book(book.Number)
}

// MatchingTriplet finds the triplet in b at the same book, chapter and
// verse numbers as the current verse of t.
func (b *Bible) MatchingTriplet(t *LocatedVerseTriplet) (*LocatedVerseTriplet, bool) {
	if t == nil || t.Current == nil {
		return nil, false
	}
	cur := t.Current
	return b.Triplet(cur.Book.Number, cur.Chapter.Number, cur.Verse.Number)
}
