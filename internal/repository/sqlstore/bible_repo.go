// Package sqlstore persists bibles in PostgreSQL or SQLite. Queries are
// written with '?' placeholders and rebound for the connection's driver.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sola-scriptura-text-search/internal/bible"
	"github.com/sola-scriptura-text-search/internal/repository"
)

// BibleRepository implements repository.BibleRepository over sqlx
type BibleRepository struct {
	db *sqlx.DB
}

// NewBibleRepository creates a new SQL bible repository
func NewBibleRepository(db *sqlx.DB) *BibleRepository {
	return &BibleRepository{db: db}
}

type bibleRow struct {
	ID        string `db:"id"`
	Name      string `db:"name"`
	Language  string `db:"language"`
	Copyright string `db:"copyright"`
	Source    string `db:"source"`
	Notes     string `db:"notes"`
}

type bookRow struct {
	Number int    `db:"number"`
	Name   string `db:"name"`
}

type chapterRow struct {
	Book   int `db:"book"`
	Number int `db:"number"`
}

type verseRow struct {
	Book    int    `db:"book"`
	Chapter int    `db:"chapter"`
	Number  string `db:"number"`
	Text    string `db:"text"`
}

// ListBibles loads every stored bible ordered by name
func (r *BibleRepository) ListBibles(ctx context.Context) ([]*bible.Bible, error) {
	var ids []string
	query := r.db.Rebind(`SELECT id FROM bibles ORDER BY name, id`)
	if err := r.db.SelectContext(ctx, &ids, query); err != nil {
		return nil, fmt.Errorf("list bibles: %w", err)
	}

	bibles := make([]*bible.Bible, 0, len(ids))
	for _, id := range ids {
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("list bibles: bad id %q: %w", id, err)
		}
		b, err := r.GetBible(ctx, parsed)
		if err != nil {
			return nil, err
		}
		bibles = append(bibles, b)
	}
	return bibles, nil
}

// GetBible loads one bible with all of its text
func (r *BibleRepository) GetBible(ctx context.Context, id uuid.UUID) (*bible.Bible, error) {
	var row bibleRow
	query := r.db.Rebind(`SELECT id, name, language, copyright, source, notes FROM bibles WHERE id = ?`)
	if err := r.db.GetContext(ctx, &row, query, id.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("bible %s: %w", id, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("get bible %s: %w", id, err)
	}

	b := &bible.Bible{
		ID:        id,
		Name:      row.Name,
		Language:  row.Language,
		Copyright: row.Copyright,
		Source:    row.Source,
		Notes:     row.Notes,
	}

	var books []bookRow
	query = r.db.Rebind(`SELECT number, name FROM books WHERE bible_id = ? ORDER BY number`)
	if err := r.db.SelectContext(ctx, &books, query, id.String()); err != nil {
		return nil, fmt.Errorf("get books of %s: %w", id, err)
	}
	for _, br := range books {
		b.Books = append(b.Books, &bible.Book{Number: br.Number, Name: br.Name})
	}

	var chapters []chapterRow
	query = r.db.Rebind(`SELECT book, number FROM chapters WHERE bible_id = ? ORDER BY book, number`)
	if err := r.db.SelectContext(ctx, &chapters, query, id.String()); err != nil {
		return nil, fmt.Errorf("get chapters of %s: %w", id, err)
	}
	for _, cr := range chapters {
		bk, ok := b.Book(cr.Book)
		if !ok {
			return nil, fmt.Errorf("bible %s: chapter %d of missing book %d", id, cr.Number, cr.Book)
		}
		bk.Chapters = append(bk.Chapters, &bible.Chapter{Number: cr.Number})
	}

	var verses []verseRow
	query = r.db.Rebind(`SELECT book, chapter, number, text FROM verses WHERE bible_id = ? ORDER BY book, chapter, position`)
	if err := r.db.SelectContext(ctx, &verses, query, id.String()); err != nil {
		return nil, fmt.Errorf("get verses of %s: %w", id, err)
	}
	for _, vr := range verses {
		bk, ok := b.Book(vr.Book)
		if !ok {
			return nil, fmt.Errorf("bible %s: verse of missing book %d", id, vr.Book)
		}
		ch, ok := bk.Chapter(vr.Chapter)
		if !ok {
			return nil, fmt.Errorf("bible %s: verse of missing chapter %d:%d", id, vr.Book, vr.Chapter)
		}
		ch.AddVerse(vr.Number, vr.Text)
	}
	return b, nil
}

// SaveBible replaces the stored copy of b in one transaction
func (r *BibleRepository) SaveBible(ctx context.Context, b *bible.Bible) error {
	if err := b.Validate(); err != nil {
		return err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save %s: %w", b.ID, err)
	}
	defer func() { _ = tx.Rollback() }()

	id := b.ID.String()
	if _, err := deleteBible(ctx, tx, id); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO bibles (id, name, language, copyright, source, notes) VALUES (?, ?, ?, ?, ?, ?)`),
		id, b.Name, b.Language, b.Copyright, b.Source, b.Notes); err != nil {
		return fmt.Errorf("insert bible %s: %w", id, err)
	}

	books, err := tx.PreparexContext(ctx, tx.Rebind(`INSERT INTO books (bible_id, number, name) VALUES (?, ?, ?)`))
	if err != nil {
		return fmt.Errorf("prepare books: %w", err)
	}
	defer books.Close()
	chapters, err := tx.PreparexContext(ctx, tx.Rebind(`INSERT INTO chapters (bible_id, book, number) VALUES (?, ?, ?)`))
	if err != nil {
		return fmt.Errorf("prepare chapters: %w", err)
	}
	defer chapters.Close()
	verses, err := tx.PreparexContext(ctx, tx.Rebind(`INSERT INTO verses (bible_id, book, chapter, position, number, text) VALUES (?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return fmt.Errorf("prepare verses: %w", err)
	}
	defer verses.Close()

	for _, bk := range b.Books {
		if _, err := books.ExecContext(ctx, id, bk.Number, bk.Name); err != nil {
			return fmt.Errorf("insert book %d: %w", bk.Number, err)
		}
		for _, ch := range bk.Chapters {
			if _, err := chapters.ExecContext(ctx, id, bk.Number, ch.Number); err != nil {
				return fmt.Errorf("insert chapter %d:%d: %w", bk.Number, ch.Number, err)
			}
			for pos, v := range ch.Verses {
				if _, err := verses.ExecContext(ctx, id, bk.Number, ch.Number, pos, v.Number, v.Text); err != nil {
					return fmt.Errorf("insert verse %d:%d:%s: %w", bk.Number, ch.Number, v.Number, err)
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save %s: %w", id, err)
	}
	return nil
}

// DeleteBible removes a bible and all of its text
func (r *BibleRepository) DeleteBible(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete %s: %w", id, err)
	}
	defer func() { _ = tx.Rollback() }()

	n, err := deleteBible(ctx, tx, id.String())
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("bible %s: %w", id, repository.ErrNotFound)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete %s: %w", id, err)
	}
	return nil
}

// deleteBible removes every row of a bible and reports how many bible rows
// were deleted
func deleteBible(ctx context.Context, tx *sqlx.Tx, id string) (int64, error) {
	for _, table := range []string{"verses", "chapters", "books"} {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM `+table+` WHERE bible_id = ?`), id); err != nil {
			return 0, fmt.Errorf("delete %s of %s: %w", table, id, err)
		}
	}
	res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM bibles WHERE id = ?`), id)
	if err != nil {
		return 0, fmt.Errorf("delete bible %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete bible %s: %w", id, err)
	}
	return n, nil
}
