package library

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/sola-scriptura-text-search/internal/bible"
	"github.com/sola-scriptura-text-search/internal/models"
)

type recordedEvent struct {
	action string
	ref    models.EntityRef
}

type recorder struct {
	mu     sync.Mutex
	events []recordedEvent
	err    error
}

func (r *recorder) record(action string, ref models.EntityRef) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{action, ref})
	return r.err
}

func (r *recorder) OnEntityAdded(_ context.Context, ref models.EntityRef) error {
	return r.record("added", ref)
}

func (r *recorder) OnEntityUpdated(_ context.Context, ref models.EntityRef) error {
	return r.record("updated", ref)
}

func (r *recorder) OnEntityRemoved(_ context.Context, ref models.EntityRef) error {
	return r.record("removed", ref)
}

func genesis(name string) *bible.Bible {
	b := bible.New(name, "en")
	ch := &bible.Chapter{Number: 1}
	ch.AddVerse("1", "In the beginning God created the heaven and the earth.")
	ch.AddVerse("2", "And the earth was without form, and void.")
	b.AddBook(&bible.Book{Number: 1, Name: "Genesis", Chapters: []*bible.Chapter{ch}})
	ps := &bible.Chapter{Number: 23}
	ps.AddVerse("1", "The LORD is my shepherd; I shall not want.")
	b.AddBook(&bible.Book{Number: 19, Name: "Psalms", Chapters: []*bible.Chapter{ps}})
	return b
}

func TestAddGetRemove(t *testing.T) {
	ctx := context.Background()
	lib := New()
	rec := &recorder{}
	lib.Subscribe(rec)

	kjv := genesis("KJV")
	if err := lib.Add(ctx, kjv); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := lib.Add(ctx, kjv); !errors.Is(err, ErrBibleExists) {
		t.Fatalf("expected ErrBibleExists, got %v", err)
	}
	if got, ok := lib.Get(kjv.ID); !ok || got != kjv {
		t.Fatalf("Get returned %v, %v", got, ok)
	}
	if err := lib.Remove(ctx, kjv.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := lib.Remove(ctx, kjv.ID); !errors.Is(err, ErrBibleNotFound) {
		t.Fatalf("expected ErrBibleNotFound, got %v", err)
	}
	if lib.Len() != 0 {
		t.Fatalf("library not empty")
	}

	want := []recordedEvent{
		{"added", models.BibleRef(kjv.ID)},
		{"removed", models.BibleRef(kjv.ID)},
	}
	if len(rec.events) != len(want) {
		t.Fatalf("events = %+v", rec.events)
	}
	for i := range want {
		if rec.events[i] != want[i] {
			t.Fatalf("event %d = %+v, want %+v", i, rec.events[i], want[i])
		}
	}
}

func TestAddAssignsIDAndValidates(t *testing.T) {
	ctx := context.Background()
	lib := New()

	b := genesis("KJV")
	b.ID = uuid.Nil
	if err := lib.Add(ctx, b); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if b.ID == uuid.Nil {
		t.Fatalf("id not assigned")
	}

	bad := genesis("Bad")
	bad.Books = append(bad.Books, &bible.Book{Number: 1, Name: "Genesis again"})
	if err := lib.Add(ctx, bad); !errors.Is(err, bible.ErrDuplicateNumber) {
		t.Fatalf("expected ErrDuplicateNumber, got %v", err)
	}
}

func TestPutNotifiesAddThenUpdate(t *testing.T) {
	ctx := context.Background()
	lib := New()
	rec := &recorder{}
	lib.Subscribe(rec)

	b := genesis("KJV")
	if err := lib.Put(ctx, b); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := lib.Put(ctx, b.Copy()); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if len(rec.events) != 2 || rec.events[0].action != "added" || rec.events[1].action != "updated" {
		t.Fatalf("events = %+v", rec.events)
	}
}

func TestEditSwapsCopy(t *testing.T) {
	ctx := context.Background()
	lib := New()
	rec := &recorder{}
	lib.Subscribe(rec)

	b := genesis("KJV")
	if err := lib.Add(ctx, b); err != nil {
		t.Fatalf("Add: %v", err)
	}
	old, _ := lib.Resolve(models.VerseKey{BibleID: b.ID, Book: 1, Chapter: 1, Verse: "2"})

	err := lib.Edit(ctx, b.ID, func(w *bible.Bible) (models.EntityRef, error) {
		bk, _ := w.Book(1)
		ch, _ := bk.Chapter(1)
		ch.Verses[1].Text = "And the earth was formless and empty."
		return models.ChapterRef(w.ID, 1, 1), nil
	})
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}

	if old.Verse.Text != "And the earth was without form, and void." {
		t.Fatalf("previously resolved verse was mutated")
	}
	lv, ok := lib.Resolve(models.VerseKey{BibleID: b.ID, Book: 1, Chapter: 1, Verse: "2"})
	if !ok || lv.Verse.Text != "And the earth was formless and empty." {
		t.Fatalf("edit not visible: %+v", lv)
	}
	last := rec.events[len(rec.events)-1]
	if last.action != "updated" || last.ref != models.ChapterRef(b.ID, 1, 1) {
		t.Fatalf("unexpected notification %+v", last)
	}
}

func TestEditFailureKeepsBible(t *testing.T) {
	ctx := context.Background()
	lib := New()
	b := genesis("KJV")
	if err := lib.Add(ctx, b); err != nil {
		t.Fatalf("Add: %v", err)
	}

	boom := errors.New("boom")
	err := lib.Edit(ctx, b.ID, func(w *bible.Bible) (models.EntityRef, error) {
		w.Books = nil
		return models.EntityRef{}, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	err = lib.Edit(ctx, b.ID, func(w *bible.Bible) (models.EntityRef, error) {
		w.Books[0].Chapters[0].AddVerse("1", "duplicate")
		return models.EntityRef{}, nil
	})
	if !errors.Is(err, bible.ErrDuplicateNumber) {
		t.Fatalf("expected ErrDuplicateNumber, got %v", err)
	}

	if got, _ := lib.Get(b.ID); got != b || got.VerseCount() != 3 {
		t.Fatalf("failed edits should leave the bible untouched")
	}
	if err := lib.Edit(ctx, uuid.New(), nil); !errors.Is(err, ErrBibleNotFound) {
		t.Fatalf("expected ErrBibleNotFound, got %v", err)
	}
}

func TestListenerErrorsAreReturned(t *testing.T) {
	lib := New()
	rec := &recorder{err: errors.New("index down")}
	lib.Subscribe(rec)

	b := genesis("KJV")
	if err := lib.Add(context.Background(), b); err == nil {
		t.Fatalf("expected listener error")
	}
	if _, ok := lib.Get(b.ID); !ok {
		t.Fatalf("bible should still be added")
	}
}

func TestListOrder(t *testing.T) {
	ctx := context.Background()
	lib := New()
	for _, name := range []string{"WEB", "ASV", "KJV"} {
		if err := lib.Add(ctx, genesis(name)); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	list := lib.List()
	if len(list) != 3 || list[0].Name != "ASV" || list[1].Name != "KJV" || list[2].Name != "WEB" {
		t.Fatalf("unexpected order: %v", list)
	}
}

func TestDocuments(t *testing.T) {
	ctx := context.Background()
	lib := New()
	b := genesis("KJV")
	if err := lib.Add(ctx, b); err != nil {
		t.Fatalf("Add: %v", err)
	}

	cases := []struct {
		ref  models.EntityRef
		want int
	}{
		{models.BibleRef(b.ID), 3},
		{models.BookRef(b.ID, 1), 2},
		{models.ChapterRef(b.ID, 19, 23), 1},
		{models.VerseRef(models.VerseKey{BibleID: b.ID, Book: 1, Chapter: 1, Verse: "2"}), 1},
		{models.BookRef(b.ID, 66), 0},
		{models.BibleRef(uuid.New()), 0},
	}
	for _, tc := range cases {
		if got := lib.Documents(tc.ref); len(got) != tc.want {
			t.Fatalf("Documents(%s) = %d docs, want %d", tc.ref, len(got), tc.want)
		}
	}

	docs := lib.Documents(models.VerseRef(models.VerseKey{BibleID: b.ID, Book: 19, Chapter: 23, Verse: "1"}))
	if docs[0].Text != "The LORD is my shepherd; I shall not want." {
		t.Fatalf("unexpected text %q", docs[0].Text)
	}
}

func TestAddRestoresCanonicalOrder(t *testing.T) {
	ctx := context.Background()
	lib := New()

	c1 := &bible.Chapter{Number: 1}
	c1.AddVerse("1", "In the beginning God created the heaven and the earth.")
	c2 := &bible.Chapter{Number: 2}
	c2.AddVerse("1", "Thus the heavens and the earth were finished.")
	b := bible.New("KJV", "en")
	b.Books = []*bible.Book{{Number: 1, Name: "Genesis", Chapters: []*bible.Chapter{c2, c1}}}

	if err := lib.Add(ctx, b); err != nil {
		t.Fatalf("Add: %v", err)
	}
	live, _ := lib.Get(b.ID)

	next, ok := live.NextVerse(1, 1, "1")
	if !ok || next.Chapter.Number != 2 {
		t.Fatalf("NextVerse(1:1) = %+v, %v", next, ok)
	}
	prev, ok := live.PreviousVerse(1, 2, "1")
	if !ok || prev.Chapter.Number != 1 {
		t.Fatalf("PreviousVerse(2:1) = %+v, %v", prev, ok)
	}
}

func TestEditRestoresCanonicalOrder(t *testing.T) {
	ctx := context.Background()
	lib := New()
	b := genesis("KJV")
	if err := lib.Add(ctx, b); err != nil {
		t.Fatalf("Add: %v", err)
	}

	err := lib.Edit(ctx, b.ID, func(w *bible.Bible) (models.EntityRef, error) {
		ch := &bible.Chapter{Number: 1}
		ch.AddVerse("1", "Preface.")
		w.Books = append(w.Books, &bible.Book{Number: 0, Name: "Preface", Chapters: []*bible.Chapter{ch}})
		return models.BookRef(w.ID, 0), nil
	})
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}

	live, _ := lib.Get(b.ID)
	if live.Books[0].Number != 0 {
		t.Fatalf("books not reordered: first is %d", live.Books[0].Number)
	}
	prev, ok := live.PreviousVerse(1, 1, "1")
	if !ok || prev.Book.Number != 0 {
		t.Fatalf("PreviousVerse(Genesis 1:1) = %+v, %v", prev, ok)
	}
}
