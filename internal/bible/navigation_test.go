package bible

import "testing"

func TestVerseLookup(t *testing.T) {
	b := sampleBible("KJV")
	lv, ok := b.Verse(1, 1, "1")
	if !ok {
		t.Fatalf("Genesis 1:1 not found")
	}
	if lv.Bible != b || lv.Book.Name != "Genesis" || lv.Chapter.Number != 1 || lv.Verse.Number != "1" {
		t.Fatalf("unexpected located verse: %+v", lv)
	}
	if got := lv.Reference(); got != "Genesis 1:1" {
		t.Fatalf("Reference = %q", got)
	}

	for _, tc := range []struct {
		book, chapter int
		verse         string
	}{{3, 1, "1"}, {1, 9, "1"}, {1, 1, "99"}} {
		if _, ok := b.Verse(tc.book, tc.chapter, tc.verse); ok {
			t.Fatalf("expected not found for %+v", tc)
		}
	}
}

func TestNextVerseCrossesBoundaries(t *testing.T) {
	b := sampleBible("KJV")

	lv, ok := b.NextVerse(1, 1, "1")
	if !ok || lv.Chapter.Number != 1 || lv.Verse.Number != "2" {
		t.Fatalf("next of 1:1 = %+v", lv)
	}
	lv, ok = b.NextVerse(1, 1, "2")
	if !ok || lv.Chapter.Number != 2 || lv.Verse.Number != "1" {
		t.Fatalf("next of 1:2 should be 2:1, got %+v", lv)
	}
	// Exodus 1 is empty, so Genesis 2:1 is followed by Exodus 2:1
	lv, ok = b.NextVerse(1, 2, "1")
	if !ok || lv.Book.Number != 2 || lv.Chapter.Number != 2 {
		t.Fatalf("next of Genesis 2:1 = %+v", lv)
	}
	if _, ok := b.NextVerse(2, 2, "1"); ok {
		t.Fatalf("no wraparound expected at the end")
	}
}

func TestPreviousVerseCrossesBoundaries(t *testing.T) {
	b := sampleBible("KJV")

	lv, ok := b.PreviousVerse(2, 2, "1")
	if !ok || lv.Book.Number != 1 || lv.Chapter.Number != 2 || lv.Verse.Number != "1" {
		t.Fatalf("previous of Exodus 2:1 = %+v", lv)
	}
	lv, ok = b.PreviousVerse(1, 2, "1")
	if !ok || lv.Chapter.Number != 1 || lv.Verse.Number != "2" {
		t.Fatalf("previous of Genesis 2:1 = %+v", lv)
	}
	if _, ok := b.PreviousVerse(1, 1, "1"); ok {
		t.Fatalf("no wraparound expected at the start")
	}
}

func TestTriplets(t *testing.T) {
	b := sampleBible("KJV")

	first, ok := b.Triplet(1, 1, "1")
	if !ok {
		t.Fatalf("triplet not found")
	}
	if first.Previous != nil {
		t.Fatalf("first verse should have no previous")
	}
	if first.Next == nil || first.Next.Verse.Number != "2" {
		t.Fatalf("unexpected next: %+v", first.Next)
	}

	last, ok := b.Triplet(2, 2, "1")
	if !ok || last.Next != nil || last.Previous == nil {
		t.Fatalf("unexpected last triplet: %+v", last)
	}

	next, ok := b.NextTriplet(1, 1, "1")
	if !ok || next.Current.Verse.Number != "2" || next.Previous.Verse.Number != "1" {
		t.Fatalf("unexpected next triplet: %+v", next)
	}
	prev, ok := b.PreviousTriplet(1, 2, "1")
	if !ok || prev.Current.Chapter.Number != 1 || prev.Current.Verse.Number != "2" {
		t.Fatalf("unexpected previous triplet: %+v", prev)
	}
	if _, ok := b.NextTriplet(2, 2, "1"); ok {
		t.Fatalf("NextTriplet past the end should be not found")
	}
	if _, ok := b.PreviousTriplet(1, 1, "1"); ok {
		t.Fatalf("PreviousTriplet before the start should be not found")
	}
}

func TestMatchingAcrossBibles(t *testing.T) {
	kjv := sampleBible("KJV")
	asv := sampleBible("ASV")
	short := New("Short", "en")
	short.AddBook(&Book{Number: 1, Name: "Genesis", Chapters: []*Chapter{chapterOf("1")}})

	exodus, _ := kjv.Book(2)
	bk, ok := asv.MatchingBook(exodus)
	if !ok || bk.Number != exodus.Number || bk == exodus {
		t.Fatalf("MatchingBook = %v, %v", bk, ok)
	}
	if _, ok := short.MatchingBook(exodus); ok {
		t.Fatalf("Short has no Exodus")
	}
	if _, ok := short.MatchingBook(nil); ok {
		t.Fatalf("nil book should not match")
	}

	// every triplet either matches structurally or is reported missing
	for _, book := range kjv.Books {
		for _, ch := range book.Chapters {
			for _, v := range ch.Verses {
				src, _ := kjv.Triplet(book.Number, ch.Number, v.Number)
				for _, other := range []*Bible{asv, short} {
					got, ok := other.MatchingTriplet(src)
					if !ok {
						continue
					}
					c := got.Current
					if c.Bible != other || c.Book.Number != book.Number || c.Chapter.Number != ch.Number || c.Verse.Number != v.Number {
						t.Fatalf("mismatched triplet %s in %s", c.Reference(), other.Name)
					}
				}
			}
		}
	}

	if _, ok := short.MatchingTriplet(&LocatedVerseTriplet{}); ok {
		t.Fatalf("empty triplet should not match")
	}
}
