package importer

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"

	"github.com/sola-scriptura-text-search/internal/bible"
)

type osisRef struct {
	book    string
	chapter int
	verse   int
}

// parseOSISRef parses "Gen.1.1", optionally prefixed with a work ("KJV:")
func parseOSISRef(id string) (osisRef, error) {
	if i := strings.LastIndex(id, ":"); i >= 0 {
		id = id[i+1:]
	}
	parts := strings.Split(id, ".")
	if len(parts) != 3 {
		return osisRef{}, fmt.Errorf("osisID %q: want Book.Chapter.Verse", id)
	}
	ch, err := strconv.Atoi(parts[1])
	if err != nil {
		return osisRef{}, fmt.Errorf("osisID %q: chapter: %w", id, err)
	}
	v, err := strconv.Atoi(parts[2])
	if err != nil {
		return osisRef{}, fmt.Errorf("osisID %q: verse: %w", id, err)
	}
	return osisRef{book: parts[0], chapter: ch, verse: v}, nil
}

// verseNumber turns the osisID list of a verse element into a verse number.
// Merged verses such as "Gen.1.3 Gen.1.4" become "3-4".
func verseNumber(osisIDs string) (osisRef, string, error) {
	ids := strings.Fields(osisIDs)
	if len(ids) == 0 {
		return osisRef{}, "", fmt.Errorf("empty osisID")
	}
	first, err := parseOSISRef(ids[0])
	if err != nil {
		return osisRef{}, "", err
	}
	if len(ids) == 1 {
		return first, strconv.Itoa(first.verse), nil
	}
	last, err := parseOSISRef(ids[len(ids)-1])
	if err != nil {
		return osisRef{}, "", err
	}
	if last.book != first.book || last.chapter != first.chapter || last.verse < first.verse {
		return osisRef{}, "", fmt.Errorf("osisID %q: merged verses must be ascending within one chapter", osisIDs)
	}
	if last.verse == first.verse {
		return first, strconv.Itoa(first.verse), nil
	}
	return first, fmt.Sprintf("%d-%d", first.verse, last.verse), nil
}

// DecodeOSIS reads an OSIS document whose verses are container elements
// (<verse osisID="Gen.1.1">text</verse>). Notes are dropped from the text.
func DecodeOSIS(r io.Reader) (*bible.Bible, error) {
	doc, err := xmlquery.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse OSIS: %w", err)
	}

	b := &bible.Bible{}
	if osisText, err := xmlquery.Query(doc, "//*[local-name()='osisText']"); err == nil && osisText != nil {
		b.Name = osisText.SelectAttr("osisIDWork")
		for _, a := range osisText.Attr {
			if a.Name.Local == "lang" {
				b.Language = a.Value
			}
		}
	}
	if title, err := xmlquery.Query(doc, "//*[local-name()='work']/*[local-name()='title']"); err == nil && title != nil {
		b.Name = strings.TrimSpace(title.InnerText())
	}
	if rights, err := xmlquery.Query(doc, "//*[local-name()='work']/*[local-name()='rights']"); err == nil && rights != nil {
		b.Copyright = strings.TrimSpace(rights.InnerText())
	}

	verses, err := xmlquery.QueryAll(doc, "//*[local-name()='verse'][@osisID]")
	if err != nil {
		return nil, fmt.Errorf("select verses: %w", err)
	}

	for _, v := range verses {
		ref, number, err := verseNumber(v.SelectAttr("osisID"))
		if err != nil {
			return nil, err
		}
		bookNumber, ok := BookNumber(ref.book)
		if !ok {
			return nil, fmt.Errorf("unknown OSIS book %q", ref.book)
		}

		book, ok := b.Book(bookNumber)
		if !ok {
			book = &bible.Book{Number: bookNumber, Name: BookName(bookNumber)}
			b.AddBook(book)
		}
		ch, ok := book.Chapter(ref.chapter)
		if !ok {
			ch = &bible.Chapter{Number: ref.chapter}
			book.AddChapter(ch)
		}
		ch.AddVerse(number, verseText(v))
	}
	return b, nil
}

func verseText(v *xmlquery.Node) string {
	notes, _ := xmlquery.QueryAll(v, ".//*[local-name()='note']")
	for _, n := range notes {
		xmlquery.RemoveFromTree(n)
	}
	return strings.Join(strings.Fields(v.InnerText()), " ")
}
