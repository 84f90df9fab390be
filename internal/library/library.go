// Package library holds the live bibles that searches resolve against.
//
// Bibles are treated as immutable once added: Edit works on a deep copy and
// swaps it in, so a *bible.Bible handed out earlier is never mutated under a
// reader. Listeners are told about every change after the library lock has
// been released.
package library

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/sola-scriptura-text-search/internal/bible"
	"github.com/sola-scriptura-text-search/internal/models"
)

var (
	// ErrBibleNotFound is returned for an unknown bible id
	ErrBibleNotFound = errors.New("bible not found")

	// ErrBibleExists is returned when adding a bible whose id is taken
	ErrBibleExists = errors.New("bible already exists")
)

// Listener receives change notifications
type Listener interface {
	OnEntityAdded(ctx context.Context, ref models.EntityRef) error
	OnEntityUpdated(ctx context.Context, ref models.EntityRef) error
	OnEntityRemoved(ctx context.Context, ref models.EntityRef) error
}

// Library is the registry of live bibles
type Library struct {
	mu        sync.RWMutex
	bibles    map[uuid.UUID]*bible.Bible
	listeners []Listener
}

// New creates an empty library
func New() *Library {
	return &Library{bibles: make(map[uuid.UUID]*bible.Bible)}
}

// Subscribe registers a listener for subsequent changes
func (l *Library) Subscribe(listener Listener) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listeners = append(l.listeners, listener)
}

func (l *Library) snapshotListeners() []Listener {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Listener(nil), l.listeners...)
}

type action int

const (
	added action = iota
	updated
	removed
)

func (l *Library) notify(ctx context.Context, a action, ref models.EntityRef) error {
	var errs []error
	for _, listener := range l.snapshotListeners() {
		var err error
		switch a {
		case added:
			err = listener.OnEntityAdded(ctx, ref)
		case updated:
			err = listener.OnEntityUpdated(ctx, ref)
		case removed:
			err = listener.OnEntityRemoved(ctx, ref)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func prepare(b *bible.Bible) error {
	if b == nil {
		return errors.New("nil bible")
	}
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	b.SortAll()
	return b.Validate()
}

// Add inserts a new bible. A bible without an id is given one.
func (l *Library) Add(ctx context.Context, b *bible.Bible) error {
	if err := prepare(b); err != nil {
		return err
	}

	l.mu.Lock()
	if _, ok := l.bibles[b.ID]; ok {
		l.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrBibleExists, b.ID)
	}
	l.bibles[b.ID] = b
	l.mu.Unlock()

	return l.notify(ctx, added, models.BibleRef(b.ID))
}

// Put inserts b or replaces the bible with the same id
func (l *Library) Put(ctx context.Context, b *bible.Bible) error {
	if err := prepare(b); err != nil {
		return err
	}

	l.mu.Lock()
	_, existed := l.bibles[b.ID]
	l.bibles[b.ID] = b
	l.mu.Unlock()

	if existed {
		return l.notify(ctx, updated, models.BibleRef(b.ID))
	}
	return l.notify(ctx, added, models.BibleRef(b.ID))
}

// Remove deletes a bible
func (l *Library) Remove(ctx context.Context, id uuid.UUID) error {
	l.mu.Lock()
	if _, ok := l.bibles[id]; !ok {
		l.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrBibleNotFound, id)
	}
	delete(l.bibles, id)
	l.mu.Unlock()

	return l.notify(ctx, removed, models.BibleRef(id))
}

// Edit applies fn to a copy of the bible and swaps the copy in when fn
// succeeds and the result is still valid. fn returns the subtree it changed;
// a zero ref means the whole bible. Edits are serialized.
func (l *Library) Edit(ctx context.Context, id uuid.UUID, fn func(b *bible.Bible) (models.EntityRef, error)) error {
	l.mu.Lock()
	current, ok := l.bibles[id]
	if !ok {
		l.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrBibleNotFound, id)
	}

	working := current.Copy()
	ref, err := fn(working)
	if err == nil {
		working.ID = id
		working.SortAll()
		err = working.Validate()
	}
	if err != nil {
		l.mu.Unlock()
		return err
	}
	l.bibles[id] = working
	l.mu.Unlock()

	if ref.Kind == 0 {
		ref = models.BibleRef(id)
	}
	ref.BibleID = id
	return l.notify(ctx, updated, ref)
}

// Get returns the live bible with the given id
func (l *Library) Get(id uuid.UUID) (*bible.Bible, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	b, ok := l.bibles[id]
	return b, ok
}

// List returns all bibles ordered by name, then id
func (l *Library) List() []*bible.Bible {
	l.mu.RLock()
	out := make([]*bible.Bible, 0, len(l.bibles))
	for _, b := range l.bibles {
		out = append(out, b)
	}
	l.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

// Len returns the number of bibles
func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.bibles)
}

// Resolve finds the live verse for an index key
func (l *Library) Resolve(key models.VerseKey) (*bible.LocatedVerse, bool) {
	b, ok := l.Get(key.BibleID)
	if !ok {
		return nil, false
	}
	return b.Verse(key.Book, key.Chapter, key.Verse)
}

// Documents returns the index documents for every verse under ref. A
// subtree that no longer exists yields no documents.
func (l *Library) Documents(ref models.EntityRef) []models.VerseDocument {
	b, ok := l.Get(ref.BibleID)
	if !ok {
		return nil
	}

	var docs []models.VerseDocument
	for _, bk := range b.Books {
		if ref.Kind >= models.EntityBook && bk.Number != ref.Book {
			continue
		}
		for _, ch := range bk.Chapters {
			if ref.Kind >= models.EntityChapter && ch.Number != ref.Chapter {
				continue
			}
			for _, v := range ch.Verses {
				key := models.VerseKey{BibleID: b.ID, Book: bk.Number, Chapter: ch.Number, Verse: v.Number}
				if !ref.Contains(key) {
					continue
				}
				docs = append(docs, models.VerseDocument{Key: key, Text: v.Text})
			}
		}
	}
	return docs
}
