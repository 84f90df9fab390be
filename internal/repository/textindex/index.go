// Package textindex keeps the full-text index of verse documents.
// It wraps a bleve index with a read/write lock: searches run concurrently
// and each replace of a subtree is applied as a single batch.
package textindex

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"github.com/sola-scriptura-text-search/internal/models"
)

// Field names of a verse document
const (
	FieldBibleID = "bible_id"
	FieldBook    = "book"
	FieldChapter = "chapter"
	FieldVerse   = "verse"
	FieldText    = "text"
	FieldHash    = "hash"
)

const verseAnalyzer = "verse_text"

var (
	// ErrIndexClosed indicates an operation on a closed index
	ErrIndexClosed = errors.New("index is closed")

	// ErrIndexAlreadyOpen indicates Open was called twice
	ErrIndexAlreadyOpen = errors.New("index is already open")
)

// Config configures where the index lives
type Config struct {
	// Path is the on-disk location; empty keeps the index in memory
	Path string
}

// verseDocument is the shape handed to bleve
type verseDocument struct {
	BibleID string  `json:"bible_id"`
	Book    float64 `json:"book"`
	Chapter float64 `json:"chapter"`
	Verse   string  `json:"verse"`
	Text    string  `json:"text"`
	Hash    string  `json:"hash"`
}

// Index is the verse text index
type Index struct {
	config Config
	index  bleve.Index
	mu     sync.RWMutex
	closed bool
}

// New creates an unopened index
func New(config Config) *Index {
	return &Index{config: config}
}

// Open opens the index at the configured path, creating it when missing
func Open(config Config) (*Index, error) {
	idx := New(config)
	if err := idx.Open(); err != nil {
		return nil, err
	}
	return idx, nil
}

// Open opens or creates the underlying bleve index
func (i *Index) Open() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.index != nil {
		return ErrIndexAlreadyOpen
	}
	if err := i.openOrCreate(); err != nil {
		return err
	}
	i.closed = false
	return nil
}

// openOrCreate must be called with the write lock held
func (i *Index) openOrCreate() error {
	m, err := BuildMapping()
	if err != nil {
		return fmt.Errorf("build mapping: %w", err)
	}

	if i.config.Path == "" {
		idx, err := bleve.NewMemOnly(m)
		if err != nil {
			return fmt.Errorf("create memory index: %w", err)
		}
		i.index = idx
		return nil
	}

	idx, err := bleve.Open(i.config.Path)
	if err == nil {
		i.index = idx
		return nil
	}
	if !errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		return fmt.Errorf("open index %s: %w", i.config.Path, err)
	}

	idx, err = bleve.New(i.config.Path, m)
	if err != nil {
		return fmt.Errorf("create index %s: %w", i.config.Path, err)
	}
	i.index = idx
	return nil
}

// BuildMapping returns the verse document mapping. Verse text is split on
// unicode word boundaries and lowercased; no stop words are removed, so
// every word of a verse can be searched.
func BuildMapping() (*mapping.IndexMappingImpl, error) {
	m := bleve.NewIndexMapping()
	err := m.AddCustomAnalyzer(verseAnalyzer, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     unicode.Name,
		"token_filters": []string{lowercase.Name},
	})
	if err != nil {
		return nil, err
	}

	keywordField := func() *mapping.FieldMapping {
		f := bleve.NewTextFieldMapping()
		f.Analyzer = keyword.Name
		f.Store = true
		f.IncludeInAll = false
		return f
	}
	numericField := func() *mapping.FieldMapping {
		f := bleve.NewNumericFieldMapping()
		f.Store = true
		f.IncludeInAll = false
		return f
	}

	text := bleve.NewTextFieldMapping()
	text.Analyzer = verseAnalyzer
	text.Store = true
	text.IncludeTermVectors = true

	hash := bleve.NewTextFieldMapping()
	hash.Analyzer = keyword.Name
	hash.Store = true
	hash.IncludeInAll = false
	hash.DocValues = false

	doc := bleve.NewDocumentStaticMapping()
	doc.AddFieldMappingsAt(FieldBibleID, keywordField())
	doc.AddFieldMappingsAt(FieldBook, numericField())
	doc.AddFieldMappingsAt(FieldChapter, numericField())
	doc.AddFieldMappingsAt(FieldVerse, keywordField())
	doc.AddFieldMappingsAt(FieldText, text)
	doc.AddFieldMappingsAt(FieldHash, hash)

	m.DefaultMapping = doc
	m.DefaultAnalyzer = verseAnalyzer
	return m, nil
}

// Close closes the index. Closing twice is not an error.
func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed || i.index == nil {
		return nil
	}
	i.closed = true
	err := i.index.Close()
	i.index = nil
	return err
}

// IsOpen reports whether the index can serve requests
func (i *Index) IsOpen() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.index != nil && !i.closed
}

// Path returns the on-disk path, empty for a memory index
func (i *Index) Path() string {
	return i.config.Path
}

// DocCount returns the number of indexed verses
func (i *Index) DocCount(ctx context.Context) (uint64, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if i.closed || i.index == nil {
		return 0, ErrIndexClosed
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n, err := i.index.DocCount()
	if err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

// maxBibles bounds the bible_id facet
const maxBibles = 10000

// BibleIDs returns the bibles that have documents in the index
func (i *Index) BibleIDs(ctx context.Context) ([]uuid.UUID, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if i.closed || i.index == nil {
		return nil, ErrIndexClosed
	}
	req := bleve.NewSearchRequestOptions(bleve.NewMatchAllQuery(), 0, 0, false)
	req.AddFacet(FieldBibleID, bleve.NewFacetRequest(FieldBibleID, maxBibles))
	res, err := i.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("list indexed bibles: %w", err)
	}

	var ids []uuid.UUID
	facet, ok := res.Facets[FieldBibleID]
	if !ok || facet.Terms == nil {
		return ids, nil
	}
	for _, term := range facet.Terms.Terms() {
		id, err := uuid.Parse(term.Term)
		if err != nil {
			return nil, fmt.Errorf("indexed bible id %q: %w", term.Term, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Replace makes the documents under ref exactly docs. Documents outside
// ref are ignored. Existing documents whose text hash is unchanged are not
// rewritten, and the deletes and writes are committed as one batch so a
// concurrent search sees either the old or the new subtree.
func (i *Index) Replace(ctx context.Context, ref models.EntityRef, docs []models.VerseDocument) (models.IndexStats, error) {
	var stats models.IndexStats

	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed || i.index == nil {
		return stats, ErrIndexClosed
	}
	if err := ctx.Err(); err != nil {
		return stats, err
	}

	existing, err := i.existingHashes(ctx, ref)
	if err != nil {
		return stats, err
	}

	batch := i.index.NewBatch()
	keep := make(map[string]bool, len(docs))
	for _, d := range docs {
		if !ref.Contains(d.Key) {
			continue
		}
		id := d.Key.String()
		keep[id] = true
		hash := textHash(d.Text)
		if existing[id] == hash {
			stats.Unchanged++
			continue
		}
		if err := batch.Index(id, newVerseDocument(d, hash)); err != nil {
			return models.IndexStats{}, fmt.Errorf("index %s: %w", id, err)
		}
		stats.Indexed++
	}
	for id := range existing {
		if !keep[id] {
			batch.Delete(id)
			stats.Deleted++
		}
	}

	if batch.Size() == 0 {
		return stats, nil
	}
	if err := i.index.Batch(batch); err != nil {
		return models.IndexStats{}, fmt.Errorf("commit batch for %s: %w", ref, err)
	}
	return stats, nil
}

// existingHashes returns id -> text hash for documents under ref.
// Must be called with a lock held.
func (i *Index) existingHashes(ctx context.Context, ref models.EntityRef) (map[string]string, error) {
	total, err := i.index.DocCount()
	if err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}
	hashes := make(map[string]string)
	if total == 0 {
		return hashes, nil
	}

	req := bleve.NewSearchRequestOptions(refQuery(ref), int(total), 0, false)
	req.Fields = []string{FieldHash}
	res, err := i.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("find documents under %s: %w", ref, err)
	}
	for _, hit := range res.Hits {
		h, _ := hit.Fields[FieldHash].(string)
		hashes[hit.ID] = h
	}
	return hashes, nil
}

// refQuery matches every document inside ref
func refQuery(ref models.EntityRef) query.Query {
	conj := bleve.NewConjunctionQuery(termQuery(FieldBibleID, ref.BibleID.String()))
	if ref.Kind >= models.EntityBook {
		conj.AddQuery(numberQuery(FieldBook, ref.Book))
	}
	if ref.Kind >= models.EntityChapter {
		conj.AddQuery(numberQuery(FieldChapter, ref.Chapter))
	}
	if ref.Kind >= models.EntityVerse {
		conj.AddQuery(termQuery(FieldVerse, ref.Verse))
	}
	return conj
}

func termQuery(field, term string) query.Query {
	q := bleve.NewTermQuery(term)
	q.SetField(field)
	return q
}

func numberQuery(field string, n int) query.Query {
	v := float64(n)
	inclusive := true
	q := bleve.NewNumericRangeInclusiveQuery(&v, &v, &inclusive, &inclusive)
	q.SetField(field)
	return q
}

func newVerseDocument(d models.VerseDocument, hash string) verseDocument {
	return verseDocument{
		BibleID: d.Key.BibleID.String(),
		Book:    float64(d.Key.Book),
		Chapter: float64(d.Key.Chapter),
		Verse:   d.Key.Verse,
		Text:    d.Text,
		Hash:    hash,
	}
}

func textHash(text string) string {
	sum := blake3.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
