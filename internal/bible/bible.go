package bible

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// ErrDuplicateNumber is returned by Validate when sibling entities share a number
var ErrDuplicateNumber = errors.New("duplicate number")

// Bible is the root of the scripture tree and exclusively owns its books
type Bible struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Language  string    `json:"language,omitempty"`
	Copyright string    `json:"copyright,omitempty"`
	Source    string    `json:"source,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	Books     []*Book   `json:"books"`
}

// Book is a numbered book; its number defines canonical ordering
type Book struct {
	Number   int        `json:"number"`
	Name     string     `json:"name"`
	Chapters []*Chapter `json:"chapters"`
}

// Chapter is a numbered, ordered sequence of verses
type Chapter struct {
	Number int      `json:"number"`
	Verses []*Verse `json:"verses"`
}

// Verse holds scripture text. Number is a string because merged verses
// carry a range such as "3-4".
type Verse struct {
	Number string `json:"number"`
	Text   string `json:"text"`
}

// New creates an empty bible with a fresh identity
func New(name, language string) *Bible {
	return &Bible{
		ID:       uuid.New(),
		Name:     name,
		Language: language,
	}
}

func (b *Bible) String() string {
	return b.Name
}

// Book returns the book with the given number
func (b *Bible) Book(number int) (*Book, bool) {
	for _, bk := range b.Books {
		if bk.Number == number {
			return bk, true
		}
	}
	return nil, false
}

// BookByName finds a book by exact name, falling back to a unique
// case-insensitive prefix match ("gen" -> "Genesis").
func (b *Bible) BookByName(name string) (*Book, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false
	}
	for _, bk := range b.Books {
		if strings.EqualFold(bk.Name, name) {
			return bk, true
		}
	}
	var match *Book
	prefix := strings.ToLower(name)
	for _, bk := range b.Books {
		if strings.HasPrefix(strings.ToLower(bk.Name), prefix) {
			if match != nil {
				return nil, false
			}
			match = bk
		}
	}
	return match, match != nil
}

// AddBook inserts a book keeping the books ordered by number
func (b *Bible) AddBook(book *Book) {
	i := sort.Search(len(b.Books), func(i int) bool { return b.Books[i].Number >= book.Number })
	b.Books = append(b.Books, nil)
	copy(b.Books[i+1:], b.Books[i:])
	b.Books[i] = book
}

// SortBooks orders books by number
func (b *Bible) SortBooks() {
	sort.SliceStable(b.Books, func(i, j int) bool { return b.Books[i].Number < b.Books[j].Number })
}

// SortAll orders books and each book's chapters by number. Verse order is
// left as stored.
func (b *Bible) SortAll() {
	b.SortBooks()
	for _, bk := range b.Books {
		bk.SortChapters()
	}
}

// BookCount returns the number of books
func (b *Bible) BookCount() int {
	return len(b.Books)
}

// VerseCount returns the number of verses across all books
func (b *Bible) VerseCount() int {
	n := 0
	for _, bk := range b.Books {
		for _, ch := range bk.Chapters {
			n += len(ch.Verses)
		}
	}
	return n
}

// LastBook returns the last book in canonical order
func (b *Bible) LastBook() (*Book, bool) {
	if len(b.Books) == 0 {
		return nil, false
	}
	last := b.Books[0]
	for _, bk := range b.Books[1:] {
		if bk.Number > last.Number {
			last = bk
		}
	}
	return last, true
}

// MaxBookNumber returns the highest book number, or 0 for an empty bible
func (b *Bible) MaxBookNumber() int {
	if last, ok := b.LastBook(); ok {
		return last.Number
	}
	return 0
}

// Validate checks the numbering invariants of the whole tree
func (b *Bible) Validate() error {
	books := make(map[int]struct{}, len(b.Books))
	for _, bk := range b.Books {
		if _, dup := books[bk.Number]; dup {
			return fmt.Errorf("bible %s: book %d: %w", b.ID, bk.Number, ErrDuplicateNumber)
		}
		books[bk.Number] = struct{}{}
		if err := bk.Validate(); err != nil {
			return fmt.Errorf("bible %s: %w", b.ID, err)
		}
	}
	return nil
}

// Copy returns a deep copy sharing no entities with b
func (b *Bible) Copy() *Bible {
	c := *b
	c.Books = make([]*Book, len(b.Books))
	for i, bk := range b.Books {
		c.Books[i] = bk.Copy()
	}
	return &c
}

func (bk *Book) String() string {
	return bk.Name
}

// Chapter returns the chapter with the given number
func (bk *Book) Chapter(number int) (*Chapter, bool) {
	for _, ch := range bk.Chapters {
		if ch.Number == number {
			return ch, true
		}
	}
	return nil, false
}

// AddChapter inserts a chapter keeping chapters ordered by number
func (bk *Book) AddChapter(ch *Chapter) {
	i := sort.Search(len(bk.Chapters), func(i int) bool { return bk.Chapters[i].Number >= ch.Number })
	bk.Chapters = append(bk.Chapters, nil)
	copy(bk.Chapters[i+1:], bk.Chapters[i:])
	bk.Chapters[i] = ch
}

// SortChapters orders chapters by number
func (bk *Book) SortChapters() {
	sort.SliceStable(bk.Chapters, func(i, j int) bool { return bk.Chapters[i].Number < bk.Chapters[j].Number })
}

// Validate checks that chapter and verse numbers are unique
func (bk *Book) Validate() error {
	chapters := make(map[int]struct{}, len(bk.Chapters))
	for _, ch := range bk.Chapters {
		if _, dup := chapters[ch.Number]; dup {
			return fmt.Errorf("book %d: chapter %d: %w", bk.Number, ch.Number, ErrDuplicateNumber)
		}
		chapters[ch.Number] = struct{}{}
		if err := ch.Validate(); err != nil {
			return fmt.Errorf("book %d: %w", bk.Number, err)
		}
	}
	return nil
}

// Copy returns a deep copy of the book
func (bk *Book) Copy() *Book {
	c := *bk
	c.Chapters = make([]*Chapter, len(bk.Chapters))
	for i, ch := range bk.Chapters {
		c.Chapters[i] = ch.Copy()
	}
	return &c
}

// Verse looks up a verse by number, ignoring case
func (c *Chapter) Verse(number string) (*Verse, bool) {
	for _, v := range c.Verses {
		if strings.EqualFold(v.Number, number) {
			return v, true
		}
	}
	return nil, false
}

// AddVerse appends a verse to the chapter
func (c *Chapter) AddVerse(number, text string) *Verse {
	v := &Verse{Number: number, Text: text}
	c.Verses = append(c.Verses, v)
	return v
}

// RemoveVerse deletes the verse with the given number
func (c *Chapter) RemoveVerse(number string) bool {
	for i, v := range c.Verses {
		if strings.EqualFold(v.Number, number) {
			c.Verses = append(c.Verses[:i], c.Verses[i+1:]...)
			return true
		}
	}
	return false
}

// Validate checks that verse numbers are unique
func (c *Chapter) Validate() error {
	verses := make(map[string]struct{}, len(c.Verses))
	for _, v := range c.Verses {
		key := strings.ToLower(v.Number)
		if _, dup := verses[key]; dup {
			return fmt.Errorf("chapter %d: verse %q: %w", c.Number, v.Number, ErrDuplicateNumber)
		}
		verses[key] = struct{}{}
	}
	return nil
}

// Copy returns a deep copy of the chapter
func (c *Chapter) Copy() *Chapter {
	cp := &Chapter{Number: c.Number, Verses: make([]*Verse, len(c.Verses))}
	for i, v := range c.Verses {
		vc := *v
		cp.Verses[i] = &vc
	}
	return cp
}

func (v *Verse) String() string {
	return v.Number + " " + v.Text
}
