package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"golang.org/x/sync/errgroup"

	"github.com/sola-scriptura-text-search/internal/bible"
	"github.com/sola-scriptura-text-search/internal/metrics"
	"github.com/sola-scriptura-text-search/internal/models"
	"github.com/sola-scriptura-text-search/internal/repository"
)

// DocumentSource supplies the verse documents to index
type DocumentSource interface {
	Documents(ref models.EntityRef) []models.VerseDocument
	List() []*bible.Bible
}

// Indexer keeps the text index in step with the live bibles. It receives
// the library's change notifications.
type Indexer struct {
	index       repository.TextIndex
	source      DocumentSource
	metrics     *metrics.Metrics
	logger      echo.Logger
	concurrency int
}

// NewIndexer creates an indexer; concurrency bounds parallel rebuilds
func NewIndexer(index repository.TextIndex, source DocumentSource, m *metrics.Metrics, logger echo.Logger, concurrency int) *Indexer {
	if concurrency <= 0 {
		concurrency = 1
	}
	if logger == nil {
		logger = log.New("indexer")
	}
	return &Indexer{
		index:       index,
		source:      source,
		metrics:     m,
		logger:      logger,
		concurrency: concurrency,
	}
}

// OnEntityAdded indexes a new subtree
func (x *Indexer) OnEntityAdded(ctx context.Context, ref models.EntityRef) error {
	return x.replace(ctx, ref, x.source.Documents(ref))
}

// OnEntityUpdated reindexes a changed subtree
func (x *Indexer) OnEntityUpdated(ctx context.Context, ref models.EntityRef) error {
	return x.replace(ctx, ref, x.source.Documents(ref))
}

// OnEntityRemoved drops a subtree from the index
func (x *Indexer) OnEntityRemoved(ctx context.Context, ref models.EntityRef) error {
	return x.replace(ctx, ref, nil)
}

// Rebuild reindexes every bible and drops indexed bibles that are no longer
// loaded. A failing bible does not stop the others; the first error is
// returned once all have been tried.
func (x *Indexer) Rebuild(ctx context.Context) error {
	indexed, err := x.index.BibleIDs(ctx)
	if err != nil {
		return fmt.Errorf("rebuild: %w", err)
	}
	live := make(map[uuid.UUID]struct{})

	var g errgroup.Group
	g.SetLimit(x.concurrency)
	for _, b := range x.source.List() {
		live[b.ID] = struct{}{}
		ref := models.BibleRef(b.ID)
		g.Go(func() error {
			return x.replace(ctx, ref, x.source.Documents(ref))
		})
	}
	for _, id := range indexed {
		if _, ok := live[id]; ok {
			continue
		}
		ref := models.BibleRef(id)
		g.Go(func() error {
			return x.replace(ctx, ref, nil)
		})
	}
	err = g.Wait()
	x.refreshCount(ctx)
	return err
}

func (x *Indexer) replace(ctx context.Context, ref models.EntityRef, docs []models.VerseDocument) error {
	stats, err := x.index.Replace(ctx, ref, docs)
	if err != nil {
		x.metrics.ObserveIndexOp(ref.Kind.String(), metrics.OutcomeError)
		x.logger.Errorj(log.JSON{
			"message": "index update failed",
			"ref":     ref.String(),
			"kind":    ref.Kind.String(),
			"error":   err.Error(),
		})
		return fmt.Errorf("index %s %s: %w", ref.Kind, ref, err)
	}

	if !stats.Changed() {
		x.metrics.ObserveIndexOp(ref.Kind.String(), metrics.OutcomeUnchanged)
		return nil
	}
	x.metrics.ObserveIndexOp(ref.Kind.String(), metrics.OutcomeOK)
	x.logger.Debugj(log.JSON{
		"message":   "index updated",
		"ref":       ref.String(),
		"indexed":   stats.Indexed,
		"deleted":   stats.Deleted,
		"unchanged": stats.Unchanged,
	})
	x.refreshCount(ctx)
	return nil
}

func (x *Indexer) refreshCount(ctx context.Context) {
	n, err := x.index.DocCount(ctx)
	if err != nil {
		return
	}
	x.metrics.SetIndexedDocs(n)
}
