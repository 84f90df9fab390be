package bible

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrMalformedVerseNumber marks a verse number that is neither an integer
// nor a hyphenated range of integers.
var ErrMalformedVerseNumber = errors.New("malformed verse number")

// MalformedVerseNumberError describes which verse number failed to parse
type MalformedVerseNumberError struct {
	Number string
	Reason string
}

func (e *MalformedVerseNumberError) Error() string {
	return fmt.Sprintf("malformed verse number %q: %s", e.Number, e.Reason)
}

func (e *MalformedVerseNumberError) Unwrap() error {
	return ErrMalformedVerseNumber
}

// VerseRange is a parsed verse number. Single verses have First == Last.
type VerseRange struct {
	First int
	Last  int
}

// IsRange reports whether the number covered more than one verse
func (r VerseRange) IsRange() bool {
	return r.Last > r.First
}

// Width is the count of verses covered by the number
func (r VerseRange) Width() int {
	return r.Last - r.First + 1
}

func (r VerseRange) String() string {
	if r.IsRange() {
		return strconv.Itoa(r.First) + "-" + strconv.Itoa(r.Last)
	}
	return strconv.Itoa(r.First)
}

// ParseVerseNumber parses "7" or "3-4"
func ParseVerseNumber(number string) (VerseRange, error) {
	parts := strings.Split(strings.TrimSpace(number), "-")
	if len(parts) > 2 {
		return VerseRange{}, &MalformedVerseNumberError{Number: number, Reason: "more than one range separator"}
	}

	values := make([]int, len(parts))
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return VerseRange{}, &MalformedVerseNumberError{Number: number, Reason: fmt.Sprintf("%q is not an integer", part)}
		}
		values[i] = n
	}

	r := VerseRange{First: values[0], Last: values[len(values)-1]}
	if r.Last < r.First {
		return VerseRange{}, &MalformedVerseNumberError{Number: number, Reason: "range ends before it starts"}
	}
	return r, nil
}

// parseAll parses every verse number in the chapter, failing on the first
// malformed one so callers can validate before mutating.
func (c *Chapter) parseAll() ([]VerseRange, error) {
	ranges := make([]VerseRange, len(c.Verses))
	for i, v := range c.Verses {
		r, err := ParseVerseNumber(v.Number)
		if err != nil {
			return nil, fmt.Errorf("chapter %d: %w", c.Number, err)
		}
		ranges[i] = r
	}
	return ranges, nil
}

// Renumber reassigns verse numbers sequentially from 1 in slice order.
// A range keeps its width, so "2-3" followed by "4" becomes "n-(n+1)" and
// "n+2". The chapter is left untouched if any number is malformed.
func (c *Chapter) Renumber() error {
	ranges, err := c.parseAll()
	if err != nil {
		return err
	}

	n := 1
	for i, v := range c.Verses {
		width := ranges[i].Width()
		v.Number = VerseRange{First: n, Last: n + width - 1}.String()
		n += width
	}
	return nil
}

// Reorder stable-sorts verses by the numeric value of their number; ranges
// sort by their first verse.
func (c *Chapter) Reorder() error {
	ranges, err := c.parseAll()
	if err != nil {
		return err
	}

	idx := make([]int, len(c.Verses))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return ranges[idx[a]].First < ranges[idx[b]].First })

	sorted := make([]*Verse, len(c.Verses))
	for i, j := range idx {
		sorted[i] = c.Verses[j]
	}
	c.Verses = sorted
	return nil
}

// MaxVerseNumber returns the largest verse number in the chapter counting
// both ends of ranges. An empty chapter yields 1.
func (c *Chapter) MaxVerseNumber() (int, error) {
	ranges, err := c.parseAll()
	if err != nil {
		return 0, err
	}

	highest := -1
	for _, r := range ranges {
		if r.Last > highest {
			highest = r.Last
		}
	}
	if highest < 0 {
		return 1, nil
	}
	return highest, nil
}
