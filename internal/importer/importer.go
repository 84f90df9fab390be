// Package importer loads bibles from corpus files: JSON documents and OSIS
// XML, either of them optionally xz-compressed.
package importer

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/ulikunitz/xz"

	"github.com/sola-scriptura-text-search/internal/bible"
)

// ErrUnsupportedFormat is returned for files that are neither JSON nor XML
var ErrUnsupportedFormat = errors.New("unsupported corpus format")

// Format of a corpus file
type Format int

const (
	FormatUnknown Format = iota
	FormatJSON
	FormatOSIS
)

// formatOf guesses the format from the file name, ignoring an .xz suffix
func formatOf(path string) Format {
	name := strings.TrimSuffix(strings.ToLower(path), ".xz")
	switch filepath.Ext(name) {
	case ".json":
		return FormatJSON
	case ".xml", ".osis":
		return FormatOSIS
	}
	return FormatUnknown
}

// Supported reports whether Load understands the file name
func Supported(path string) bool {
	return formatOf(path) != FormatUnknown
}

// Load reads one corpus file. The bible gets a fresh id when the file has
// none, and is validated before it is returned.
func Load(path string) (*bible.Bible, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open corpus: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(strings.ToLower(path), ".xz") {
		xzr, err := xz.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("xz reader %s: %w", path, err)
		}
		r = xzr
	}

	b, err := Decode(r, formatOf(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if b.Source == "" {
		b.Source = filepath.Base(path)
	}
	if b.Name == "" {
		base := filepath.Base(strings.TrimSuffix(path, ".xz"))
		b.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return b, nil
}

// Decode reads a bible in the given format. FormatUnknown sniffs the first
// significant byte: '{' for JSON, '<' for XML.
func Decode(r io.Reader, format Format) (*bible.Bible, error) {
	br := bufio.NewReader(r)
	if format == FormatUnknown {
		format = sniff(br)
	}

	var b *bible.Bible
	var err error
	switch format {
	case FormatJSON:
		b, err = DecodeJSON(br)
	case FormatOSIS:
		b, err = DecodeOSIS(br)
	default:
		return nil, ErrUnsupportedFormat
	}
	if err != nil {
		return nil, err
	}
	return finish(b)
}

func sniff(br *bufio.Reader) Format {
	for {
		c, err := br.ReadByte()
		if err != nil {
			return FormatUnknown
		}
		switch c {
		case ' ', '\t', '\r', '\n', 0xEF, 0xBB, 0xBF:
			continue
		case '{':
			_ = br.UnreadByte()
			return FormatJSON
		case '<':
			_ = br.UnreadByte()
			return FormatOSIS
		}
		return FormatUnknown
	}
}

// DecodeJSON reads a bible document in the shape of bible.Bible
func DecodeJSON(r io.Reader) (*bible.Bible, error) {
	var b bible.Bible
	dec := json.NewDecoder(r)
	if err := dec.Decode(&b); err != nil {
		return nil, fmt.Errorf("decode bible json: %w", err)
	}
	return &b, nil
}

// EncodeJSON writes a bible in the shape DecodeJSON reads
func EncodeJSON(w io.Writer, b *bible.Bible) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(b)
}

// finish assigns an id, restores canonical ordering and validates
func finish(b *bible.Bible) (*bible.Bible, error) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	for _, bk := range b.Books {
		if bk.Name == "" {
			bk.Name = BookName(bk.Number)
		}
	}
	b.SortAll()
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

// LoadAll loads every supported file named by paths. Directories are read
// one level deep. Files are loaded in name order.
func LoadAll(paths []string) ([]*bible.Bible, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("stat corpus %s: %w", p, err)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, fmt.Errorf("read corpus dir %s: %w", p, err)
		}
		for _, e := range entries {
			if !e.IsDir() && Supported(e.Name()) {
				files = append(files, filepath.Join(p, e.Name()))
			}
		}
	}
	sort.Strings(files)

	bibles := make([]*bible.Bible, 0, len(files))
	for _, f := range files {
		b, err := Load(f)
		if err != nil {
			return nil, err
		}
		bibles = append(bibles, b)
	}
	return bibles, nil
}
