// export
//
// This script exports the verses of the configured store to a JSONL file,
// one verse per line, for bulk loading into other search tools.
//
// Usage:
//   go run ./scripts/export -output verses.jsonl
//   go run ./scripts/export -bible <uuid> -output kjv.jsonl
//
// The output format is one JSON object per line:
//   {"id": "<bible>/43/3/16", "bible": "KJV", "reference": "John 3:16", "book": 43, ...}

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/jmoiron/sqlx"

	"github.com/sola-scriptura-text-search/internal/config"
	"github.com/sola-scriptura-text-search/pkg/schema/db"
)

// VerseLine is one exported verse
type VerseLine struct {
	ID        string `json:"id"`
	BibleID   string `json:"bible_id"`
	Bible     string `json:"bible"`
	Book      int    `json:"book"`
	BookName  string `json:"book_name"`
	Chapter   int    `json:"chapter"`
	Verse     string `json:"verse"`
	Reference string `json:"reference"`
	Text      string `json:"text"`
}

type bookRow struct {
	BibleID   string `db:"bible_id"`
	BibleName string `db:"bible_name"`
	Number    int    `db:"number"`
	Name      string `db:"name"`
}

type verseRow struct {
	Chapter int    `db:"chapter"`
	Number  string `db:"number"`
	Text    string `db:"text"`
}

func main() {
	outputFile := flag.String("output", "verses.jsonl", "Output JSONL file path")
	bibleID := flag.String("bible", "", "Export only this bible id")
	flag.Parse()

	// Load environment variables
	godotenv.Load()

	cfg := config.GetConfig()
	ctx := context.Background()

	conn, err := connect(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close()

	// Open output file
	f, err := os.Create(*outputFile)
	if err != nil {
		log.Fatalf("Failed to create output file: %v", err)
	}
	defer f.Close()

	log.Printf("Exporting verses to %s...\n", *outputFile)

	// One book at a time keeps result sets small
	var books []bookRow
	query := `
		SELECT b.id AS bible_id, b.name AS bible_name, k.number, k.name
		FROM books k JOIN bibles b ON b.id = k.bible_id
		WHERE (CAST(? AS TEXT) = '' OR b.id = ?)
		ORDER BY b.name, b.id, k.number`
	if err := conn.SelectContext(ctx, &books, conn.Rebind(query), *bibleID, *bibleID); err != nil {
		log.Fatalf("Failed to get books: %v", err)
	}
	log.Printf("Processing %d books...\n", len(books))

	encoder := json.NewEncoder(f)
	count := 0

	for _, book := range books {
		var verses []verseRow
		if err := conn.SelectContext(ctx, &verses, conn.Rebind(`
			SELECT chapter, number, text
			FROM verses
			WHERE bible_id = ? AND book = ?
			ORDER BY chapter, position
		`), book.BibleID, book.Number); err != nil {
			log.Fatalf("Failed to query verses for %s %s: %v", book.BibleName, book.Name, err)
		}

		for _, v := range verses {
			line := VerseLine{
				ID:        fmt.Sprintf("%s/%d/%d/%s", book.BibleID, book.Number, v.Chapter, v.Number),
				BibleID:   book.BibleID,
				Bible:     book.BibleName,
				Book:      book.Number,
				BookName:  book.Name,
				Chapter:   v.Chapter,
				Verse:     v.Number,
				Reference: fmt.Sprintf("%s %d:%s", book.Name, v.Chapter, v.Number),
				Text:      v.Text,
			}
			if err := encoder.Encode(line); err != nil {
				log.Fatalf("Failed to encode verse: %v", err)
			}
			count++
		}

		log.Printf("  %s %s: %d verses", book.BibleName, book.Name, len(verses))
	}

	log.Printf("Successfully exported %d verses to %s\n", count, *outputFile)
}

func connect(ctx context.Context, cfg *config.Config) (*sqlx.DB, error) {
	switch cfg.StorageBackend {
	case config.StoragePostgres:
		if err := db.InitPostgres(ctx); err != nil {
			return nil, err
		}
		return db.GetPostgres(), nil
	case config.StorageSQLite:
		return db.OpenSQLite(ctx, cfg.SQLitePath)
	}
	return nil, fmt.Errorf("export needs STORAGE_BACKEND=postgres or sqlite, got %q", cfg.StorageBackend)
}
