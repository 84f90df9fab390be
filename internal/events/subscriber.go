package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/redis/go-redis/v9"

	"github.com/sola-scriptura-text-search/internal/bible"
	"github.com/sola-scriptura-text-search/internal/library"
	"github.com/sola-scriptura-text-search/internal/metrics"
	"github.com/sola-scriptura-text-search/internal/models"
	"github.com/sola-scriptura-text-search/internal/repository"
)

// Subscriber applies change events to the live library. Stored bibles are
// the source of truth: every event reloads the bible from the repository.
type Subscriber struct {
	client  redis.UniversalClient
	channel string
	repo    repository.BibleRepository
	lib     *library.Library
	metrics *metrics.Metrics
	logger  echo.Logger
}

// NewSubscriber creates a subscriber; client may be nil when only Handle is used
func NewSubscriber(
	client redis.UniversalClient,
	channel string,
	repo repository.BibleRepository,
	lib *library.Library,
	m *metrics.Metrics,
	logger echo.Logger,
) *Subscriber {
	if logger == nil {
		logger = log.New("events")
	}
	return &Subscriber{
		client:  client,
		channel: channel,
		repo:    repo,
		lib:     lib,
		metrics: m,
		logger:  logger,
	}
}

// Run receives events until ctx is cancelled. A bad event is logged and
// skipped.
func (s *Subscriber) Run(ctx context.Context) error {
	pubsub := s.client.Subscribe(ctx, s.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", s.channel, err)
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if err := s.Handle(ctx, []byte(msg.Payload)); err != nil {
				s.logger.Errorj(log.JSON{
					"message": "change event failed",
					"channel": msg.Channel,
					"payload": msg.Payload,
					"error":   err.Error(),
				})
			}
		}
	}
}

// Handle applies one encoded change event
func (s *Subscriber) Handle(ctx context.Context, payload []byte) error {
	var event ChangeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		s.metrics.ObserveEvent("unknown", metrics.OutcomeError)
		return fmt.Errorf("decode change event: %w", err)
	}
	err := s.apply(ctx, event)
	outcome := metrics.OutcomeOK
	if err != nil {
		outcome = metrics.OutcomeError
	}
	s.metrics.ObserveEvent(event.Action, outcome)
	return err
}

func (s *Subscriber) apply(ctx context.Context, event ChangeEvent) error {
	switch event.Action {
	case ActionAdded, ActionUpdated, ActionRemoved:
	default:
		return fmt.Errorf("unknown change action %q", event.Action)
	}
	ref, err := event.Ref()
	if err != nil {
		return err
	}

	if event.Action == ActionRemoved && ref.Kind == models.EntityBible {
		return s.remove(ctx, ref)
	}

	fresh, err := s.repo.GetBible(ctx, ref.BibleID)
	if errors.Is(err, repository.ErrNotFound) {
		return s.remove(ctx, ref)
	}
	if err != nil {
		return fmt.Errorf("reload %s: %w", ref, err)
	}

	if _, ok := s.lib.Get(ref.BibleID); !ok || ref.Kind == models.EntityBible {
		return s.lib.Put(ctx, fresh)
	}
	return s.lib.Edit(ctx, ref.BibleID, func(b *bible.Bible) (models.EntityRef, error) {
		return graft(b, fresh, ref), nil
	})
}

func (s *Subscriber) remove(ctx context.Context, ref models.EntityRef) error {
	err := s.lib.Remove(ctx, ref.BibleID)
	if errors.Is(err, library.ErrBibleNotFound) {
		return nil
	}
	return err
}

// graft replaces the subtree ref of dst with the one in src, removing it
// from dst when src no longer has it. A subtree whose parent is missing from
// dst is grafted with its parent; the returned ref names what was replaced.
func graft(dst, src *bible.Bible, ref models.EntityRef) models.EntityRef {
	if ref.Kind == models.EntityBible {
		dst.Books = src.Copy().Books
		return ref
	}

	srcBook, srcHas := src.Book(ref.Book)
	dstBook, dstHas := dst.Book(ref.Book)
	if ref.Kind == models.EntityBook || !dstHas || !srcHas {
		removeBook(dst, ref.Book)
		if srcHas {
			dst.AddBook(srcBook.Copy())
		}
		return models.BookRef(ref.BibleID, ref.Book)
	}
	dstBook.Name = srcBook.Name

	srcChapter, srcHas := srcBook.Chapter(ref.Chapter)
	dstChapter, dstHas := dstBook.Chapter(ref.Chapter)
	if ref.Kind == models.EntityChapter || !dstHas || !srcHas {
		removeChapter(dstBook, ref.Chapter)
		if srcHas {
			dstBook.AddChapter(srcChapter.Copy())
		}
		return models.ChapterRef(ref.BibleID, ref.Book, ref.Chapter)
	}

	srcVerse, srcHas := srcChapter.Verse(ref.Verse)
	if dstVerse, ok := dstChapter.Verse(ref.Verse); ok {
		if srcHas {
			dstVerse.Text = srcVerse.Text
		} else {
			dstChapter.RemoveVerse(ref.Verse)
		}
		return ref
	}
	if srcHas {
		insertVerse(dstChapter, srcChapter, srcVerse)
	}
	return ref
}

func removeBook(b *bible.Bible, number int) {
	for i, bk := range b.Books {
		if bk.Number == number {
			b.Books = append(b.Books[:i], b.Books[i+1:]...)
			return
		}
	}
}

func removeChapter(bk *bible.Book, number int) {
	for i, ch := range bk.Chapters {
		if ch.Number == number {
			bk.Chapters = append(bk.Chapters[:i], bk.Chapters[i+1:]...)
			return
		}
	}
}

// insertVerse adds v to dst at the position it has in src
func insertVerse(dst, src *bible.Chapter, v *bible.Verse) {
	pos := len(dst.Verses)
	for i, sv := range src.Verses {
		if sv == v {
			pos = min(i, len(dst.Verses))
			break
		}
	}
	cp := *v
	dst.Verses = append(dst.Verses, nil)
	copy(dst.Verses[pos+1:], dst.Verses[pos:])
	dst.Verses[pos] = &cp
}
