package models

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// EntityKind is the granularity of a change notification
type EntityKind int

const (
	EntityBible EntityKind = iota + 1
	EntityBook
	EntityChapter
	EntityVerse
)

func (k EntityKind) String() string {
	switch k {
	case EntityBible:
		return "bible"
	case EntityBook:
		return "book"
	case EntityChapter:
		return "chapter"
	case EntityVerse:
		return "verse"
	}
	return fmt.Sprintf("EntityKind(%d)", int(k))
}

// ParseEntityKind parses the String form of an EntityKind
func ParseEntityKind(s string) (EntityKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bible":
		return EntityBible, nil
	case "book":
		return EntityBook, nil
	case "chapter":
		return EntityChapter, nil
	case "verse":
		return EntityVerse, nil
	}
	return 0, fmt.Errorf("unknown entity kind %q", s)
}

// EntityRef names a subtree of a bible: the whole bible, a book, a chapter
// or a single verse. Fields below Kind are ignored.
type EntityRef struct {
	Kind    EntityKind
	BibleID uuid.UUID
	Book    int
	Chapter int
	Verse   string
}

// BibleRef refers to a whole bible
func BibleRef(id uuid.UUID) EntityRef {
	return EntityRef{Kind: EntityBible, BibleID: id}
}

// BookRef refers to one book of a bible
func BookRef(id uuid.UUID, book int) EntityRef {
	return EntityRef{Kind: EntityBook, BibleID: id, Book: book}
}

// ChapterRef refers to one chapter of a book
func ChapterRef(id uuid.UUID, book, chapter int) EntityRef {
	return EntityRef{Kind: EntityChapter, BibleID: id, Book: book, Chapter: chapter}
}

// VerseRef refers to a single verse
func VerseRef(key VerseKey) EntityRef {
	return EntityRef{Kind: EntityVerse, BibleID: key.BibleID, Book: key.Book, Chapter: key.Chapter, Verse: key.Verse}
}

// Contains reports whether the verse lies inside the referenced subtree
func (r EntityRef) Contains(k VerseKey) bool {
	if k.BibleID != r.BibleID {
		return false
	}
	switch r.Kind {
	case EntityBible:
		return true
	case EntityBook:
		return k.Book == r.Book
	case EntityChapter:
		return k.Book == r.Book && k.Chapter == r.Chapter
	case EntityVerse:
		return k.Book == r.Book && k.Chapter == r.Chapter && strings.EqualFold(k.Verse, r.Verse)
	}
	return false
}

func (r EntityRef) String() string {
	switch r.Kind {
	case EntityBible:
		return r.BibleID.String()
	case EntityBook:
		return fmt.Sprintf("%s/%d", r.BibleID, r.Book)
	case EntityChapter:
		return fmt.Sprintf("%s/%d/%d", r.BibleID, r.Book, r.Chapter)
	}
	return fmt.Sprintf("%s/%d/%d/%s", r.BibleID, r.Book, r.Chapter, r.Verse)
}
