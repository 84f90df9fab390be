// Package bootstrap assembles the search stack from configuration. It is
// shared by the API server and the command line tool.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/sola-scriptura-text-search/internal/config"
	"github.com/sola-scriptura-text-search/internal/importer"
	"github.com/sola-scriptura-text-search/internal/library"
	"github.com/sola-scriptura-text-search/internal/metrics"
	"github.com/sola-scriptura-text-search/internal/repository/sqlstore"
	"github.com/sola-scriptura-text-search/internal/repository/textindex"
	"github.com/sola-scriptura-text-search/internal/services"
	"github.com/sola-scriptura-text-search/pkg/schema/db"
)

// Store is an open bible repository with its connection
type Store struct {
	*sqlstore.BibleRepository
	conn    *sqlx.DB
	backend string
}

// Backend names the storage backend
func (s *Store) Backend() string {
	return s.backend
}

// Close releases the connection
func (s *Store) Close() error {
	if s.backend == config.StoragePostgres {
		return db.ClosePostgres()
	}
	return s.conn.Close()
}

// OpenStore connects the configured storage backend and ensures its schema.
// It returns nil when STORAGE_BACKEND is "none".
func OpenStore(ctx context.Context, cfg *config.Config) (*Store, error) {
	var conn *sqlx.DB
	switch cfg.StorageBackend {
	case config.StorageNone:
		return nil, nil
	case config.StoragePostgres:
		if err := db.InitPostgres(ctx); err != nil {
			return nil, err
		}
		conn = db.GetPostgres()
	case config.StorageSQLite:
		var err error
		if conn, err = db.OpenSQLite(ctx, cfg.SQLitePath); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown STORAGE_BACKEND %q", cfg.StorageBackend)
	}

	store := &Store{BibleRepository: sqlstore.NewBibleRepository(conn), conn: conn, backend: cfg.StorageBackend}
	if err := db.EnsureSchema(ctx, conn); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// Stack is the live library with its index and search service
type Stack struct {
	Library *library.Library
	Index   *textindex.Index
	Indexer *services.Indexer
	Search  *services.BibleSearchService
	Metrics *metrics.Metrics
}

// Close closes the text index
func (s *Stack) Close() error {
	return s.Index.Close()
}

// NewStack opens the text index and wires the library, indexer and search
// service together. The library starts empty; see Load.
func NewStack(cfg *config.Config, m *metrics.Metrics, logger echo.Logger) (*Stack, error) {
	if logger == nil {
		logger = log.New("scripture")
	}
	idx, err := textindex.Open(textindex.Config{Path: cfg.IndexPath})
	if err != nil {
		return nil, err
	}

	lib := library.New()
	indexer := services.NewIndexer(idx, lib, m, logger, cfg.RebuildConcurrency)
	search := services.NewBibleSearchService(idx, lib, m, logger, services.SearchConfig{
		DefaultLimit: cfg.SearchDefaultLimit,
		MaxLimit:     cfg.SearchMaxLimit,
		Timeout:      cfg.SearchTimeout,
	})
	return &Stack{Library: lib, Index: idx, Indexer: indexer, Search: search, Metrics: m}, nil
}

// Load fills the library from the corpus paths and the store, then brings
// the index up to date and subscribes it to later changes. A stored bible
// replaces a corpus bible with the same id.
func (s *Stack) Load(ctx context.Context, corpus []string, store *Store) error {
	bibles, err := importer.LoadAll(corpus)
	if err != nil {
		return err
	}
	if store != nil {
		stored, err := store.ListBibles(ctx)
		if err != nil {
			return err
		}
		bibles = append(bibles, stored...)
	}

	var errs []error
	for _, b := range bibles {
		if err := s.Library.Put(ctx, b); err != nil {
			errs = append(errs, fmt.Errorf("load %s: %w", b.Name, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	s.Library.Subscribe(s.Indexer)
	return s.Indexer.Rebuild(ctx)
}
