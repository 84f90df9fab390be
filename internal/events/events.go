// Package events carries bible change notifications over redis pub/sub so
// that every API instance reloads what another process stored.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/sola-scriptura-text-search/internal/bible"
	"github.com/sola-scriptura-text-search/internal/models"
	"github.com/sola-scriptura-text-search/internal/repository"
)

// Change actions
const (
	ActionAdded   = "added"
	ActionUpdated = "updated"
	ActionRemoved = "removed"
)

// ChangeEvent is the JSON payload published on the change channel
type ChangeEvent struct {
	Action  string `json:"action"`
	Kind    string `json:"kind"`
	BibleID string `json:"bible_id"`
	Book    int    `json:"book,omitempty"`
	Chapter int    `json:"chapter,omitempty"`
	Verse   string `json:"verse,omitempty"`
}

// NewChangeEvent describes a change to the subtree ref
func NewChangeEvent(action string, ref models.EntityRef) ChangeEvent {
	return ChangeEvent{
		Action:  action,
		Kind:    ref.Kind.String(),
		BibleID: ref.BibleID.String(),
		Book:    ref.Book,
		Chapter: ref.Chapter,
		Verse:   ref.Verse,
	}
}

// Ref converts the event back to the subtree it names
func (e ChangeEvent) Ref() (models.EntityRef, error) {
	kind, err := models.ParseEntityKind(e.Kind)
	if err != nil {
		return models.EntityRef{}, err
	}
	id, err := uuid.Parse(e.BibleID)
	if err != nil {
		return models.EntityRef{}, fmt.Errorf("bible_id %q: %w", e.BibleID, err)
	}
	ref := models.EntityRef{Kind: kind, BibleID: id}
	if kind >= models.EntityBook {
		ref.Book = e.Book
	}
	if kind >= models.EntityChapter {
		ref.Chapter = e.Chapter
	}
	if kind >= models.EntityVerse {
		if e.Verse == "" {
			return models.EntityRef{}, fmt.Errorf("verse event without verse number")
		}
		ref.Verse = e.Verse
	}
	return ref, nil
}

// Publisher sends change events to a redis channel
type Publisher struct {
	client  redis.UniversalClient
	channel string
}

// NewPublisher creates a publisher for channel
func NewPublisher(client redis.UniversalClient, channel string) *Publisher {
	return &Publisher{client: client, channel: channel}
}

// Publish sends one change event
func (p *Publisher) Publish(ctx context.Context, event ChangeEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode change event: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", p.channel, err)
	}
	return nil
}

// NotifyingRepository publishes a change event after every successful write
// to the wrapped repository
type NotifyingRepository struct {
	repository.BibleRepository
	publisher *Publisher
}

// NewNotifyingRepository wraps repo so that writes are announced on p
func NewNotifyingRepository(repo repository.BibleRepository, p *Publisher) *NotifyingRepository {
	return &NotifyingRepository{BibleRepository: repo, publisher: p}
}

// SaveBible stores b and announces it as updated
func (r *NotifyingRepository) SaveBible(ctx context.Context, b *bible.Bible) error {
	if err := r.BibleRepository.SaveBible(ctx, b); err != nil {
		return err
	}
	return r.publisher.Publish(ctx, NewChangeEvent(ActionUpdated, models.BibleRef(b.ID)))
}

// DeleteBible removes the bible and announces the removal
func (r *NotifyingRepository) DeleteBible(ctx context.Context, id uuid.UUID) error {
	if err := r.BibleRepository.DeleteBible(ctx, id); err != nil {
		return err
	}
	return r.publisher.Publish(ctx, NewChangeEvent(ActionRemoved, models.BibleRef(id)))
}
