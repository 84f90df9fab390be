package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/sola-scriptura-text-search/internal/bible"
	"github.com/sola-scriptura-text-search/internal/library"
	"github.com/sola-scriptura-text-search/internal/metrics"
	"github.com/sola-scriptura-text-search/internal/models"
	"github.com/sola-scriptura-text-search/internal/repository"
)

type memRepo struct {
	mu     sync.Mutex
	bibles map[uuid.UUID]*bible.Bible
}

func newMemRepo() *memRepo {
	return &memRepo{bibles: make(map[uuid.UUID]*bible.Bible)}
}

func (r *memRepo) ListBibles(ctx context.Context) ([]*bible.Bible, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*bible.Bible
	for _, b := range r.bibles {
		out = append(out, b.Copy())
	}
	return out, nil
}

func (r *memRepo) GetBible(ctx context.Context, id uuid.UUID) (*bible.Bible, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bibles[id]
	if !ok {
		return nil, fmt.Errorf("bible %s: %w", id, repository.ErrNotFound)
	}
	return b.Copy(), nil
}

func (r *memRepo) SaveBible(ctx context.Context, b *bible.Bible) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bibles[b.ID] = b.Copy()
	return nil
}

func (r *memRepo) DeleteBible(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bibles[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.bibles, id)
	return nil
}

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) record(action string, ref models.EntityRef) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, action+" "+ref.Kind.String())
	return nil
}

func (r *recorder) OnEntityAdded(ctx context.Context, ref models.EntityRef) error {
	return r.record("added", ref)
}

func (r *recorder) OnEntityUpdated(ctx context.Context, ref models.EntityRef) error {
	return r.record("updated", ref)
}

func (r *recorder) OnEntityRemoved(ctx context.Context, ref models.EntityRef) error {
	return r.record("removed", ref)
}

func (r *recorder) last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return ""
	}
	return r.events[len(r.events)-1]
}

func sample() *bible.Bible {
	b := bible.New("KJV", "en")
	ch := &bible.Chapter{Number: 1}
	ch.AddVerse("1", "In the beginning God created the heaven and the earth.")
	ch.AddVerse("2", "And the earth was without form, and void.")
	b.AddBook(&bible.Book{Number: 1, Name: "Genesis", Chapters: []*bible.Chapter{ch}})
	return b
}

type fixture struct {
	repo    *memRepo
	lib     *library.Library
	rec     *recorder
	metrics *metrics.Metrics
	sub     *Subscriber
}

func newFixture() *fixture {
	f := &fixture{
		repo:    newMemRepo(),
		lib:     library.New(),
		rec:     &recorder{},
		metrics: metrics.New(),
	}
	f.lib.Subscribe(f.rec)
	f.sub = NewSubscriber(nil, "test", f.repo, f.lib, f.metrics, nil)
	return f
}

func payload(t *testing.T, event ChangeEvent) []byte {
	t.Helper()
	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func TestHandleAddsStoredBible(t *testing.T) {
	f := newFixture()
	b := sample()
	_ = f.repo.SaveBible(context.Background(), b)

	err := f.sub.Handle(context.Background(), payload(t, NewChangeEvent(ActionAdded, models.BibleRef(b.ID))))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if _, ok := f.lib.Get(b.ID); !ok {
		t.Fatal("expected bible in library")
	}
	if got := f.rec.last(); got != "added bible" {
		t.Errorf("expected added bible notification, got %q", got)
	}
	if got := testutil.ToFloat64(f.metrics.EventsReceived.WithLabelValues(ActionAdded, metrics.OutcomeOK)); got != 1 {
		t.Errorf("expected 1 ok event, got %v", got)
	}
}

func TestHandleVerseUpdateEditsSubtree(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	b := sample()
	_ = f.repo.SaveBible(ctx, b)
	if err := f.lib.Add(ctx, b.Copy()); err != nil {
		t.Fatalf("Add: %v", err)
	}
	before, _ := f.lib.Get(b.ID)

	stored, _ := f.repo.GetBible(ctx, b.ID)
	ch, _ := stored.Books[0].Chapter(1)
	v, _ := ch.Verse("2")
	v.Text = "And the earth was without form."
	ch.AddVerse("3", "And God said, Let there be light.")
	_ = f.repo.SaveBible(ctx, stored)

	key := models.VerseKey{BibleID: b.ID, Book: 1, Chapter: 1, Verse: "2"}
	if err := f.sub.Handle(ctx, payload(t, NewChangeEvent(ActionUpdated, models.VerseRef(key)))); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if got := f.rec.last(); got != "updated verse" {
		t.Errorf("expected updated verse notification, got %q", got)
	}

	lv, ok := f.lib.Resolve(key)
	if !ok || lv.Verse.Text != "And the earth was without form." {
		t.Fatalf("verse not updated: %+v", lv)
	}
	if _, ok := f.lib.Resolve(models.VerseKey{BibleID: b.ID, Book: 1, Chapter: 1, Verse: "3"}); ok {
		t.Error("verse 3 should not be picked up by a verse 2 event")
	}
	if old, _ := before.Verse(1, 1, "2"); old.Verse.Text != "And the earth was without form, and void." {
		t.Error("previous snapshot was mutated")
	}

	key.Verse = "3"
	if err := f.sub.Handle(ctx, payload(t, NewChangeEvent(ActionAdded, models.VerseRef(key)))); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if _, ok := f.lib.Resolve(key); !ok {
		t.Error("expected verse 3 after its own event")
	}
}

func TestHandleChapterRemoval(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	b := sample()
	if err := f.lib.Add(ctx, b.Copy()); err != nil {
		t.Fatalf("Add: %v", err)
	}
	stored := b.Copy()
	stored.Books[0].Chapters = nil
	_ = f.repo.SaveBible(ctx, stored)

	if err := f.sub.Handle(ctx, payload(t, NewChangeEvent(ActionRemoved, models.ChapterRef(b.ID, 1, 1)))); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	live, _ := f.lib.Get(b.ID)
	if n := live.VerseCount(); n != 0 {
		t.Errorf("expected chapter removed, %d verses left", n)
	}
	if got := f.rec.last(); got != "updated chapter" {
		t.Errorf("expected updated chapter notification, got %q", got)
	}
}

func TestHandleRemovesBible(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	b := sample()
	if err := f.lib.Add(ctx, b); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if err := f.sub.Handle(ctx, payload(t, NewChangeEvent(ActionRemoved, models.BibleRef(b.ID)))); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if f.lib.Len() != 0 {
		t.Fatal("expected bible removed")
	}
	// repeated removal is not an error
	if err := f.sub.Handle(ctx, payload(t, NewChangeEvent(ActionRemoved, models.BibleRef(b.ID)))); err != nil {
		t.Fatalf("second Handle: %v", err)
	}
}

func TestHandleUpdateOfDeletedBibleRemovesIt(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	b := sample()
	if err := f.lib.Add(ctx, b); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if err := f.sub.Handle(ctx, payload(t, NewChangeEvent(ActionUpdated, models.BookRef(b.ID, 1)))); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if f.lib.Len() != 0 {
		t.Fatal("expected bible missing from the store to be removed")
	}
}

func TestHandleRejectsBadEvents(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if err := f.sub.Handle(ctx, []byte("{not json")); err == nil {
		t.Error("expected decode error")
	}
	if err := f.sub.Handle(ctx, payload(t, ChangeEvent{Action: "renamed", Kind: "bible", BibleID: uuid.NewString()})); err == nil {
		t.Error("expected error for unknown action")
	}
	if err := f.sub.Handle(ctx, payload(t, ChangeEvent{Action: ActionAdded, Kind: "psalm", BibleID: uuid.NewString()})); err == nil {
		t.Error("expected error for unknown kind")
	}
	if err := f.sub.Handle(ctx, payload(t, ChangeEvent{Action: ActionAdded, Kind: "verse", BibleID: uuid.NewString(), Book: 1, Chapter: 1})); err == nil {
		t.Error("expected error for verse event without a number")
	}
	if got := testutil.ToFloat64(f.metrics.EventsReceived.WithLabelValues("unknown", metrics.OutcomeError)); got != 1 {
		t.Errorf("expected 1 undecodable event, got %v", got)
	}
}

func TestChangeEventRef(t *testing.T) {
	id := uuid.New()
	ref := models.ChapterRef(id, 19, 23)
	event := NewChangeEvent(ActionUpdated, ref)
	if event.Kind != "chapter" || event.BibleID != id.String() {
		t.Fatalf("unexpected event %+v", event)
	}
	got, err := event.Ref()
	if err != nil {
		t.Fatalf("Ref: %v", err)
	}
	if got != ref {
		t.Errorf("expected %v, got %v", ref, got)
	}
}
