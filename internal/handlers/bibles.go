package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/sola-scriptura-text-search/internal/bible"
	"github.com/sola-scriptura-text-search/internal/library"
	"github.com/sola-scriptura-text-search/internal/models"
	"github.com/sola-scriptura-text-search/internal/reference"
)

// BiblesHandler serves the loaded bibles and verse navigation
type BiblesHandler struct {
	lib *library.Library
}

// NewBiblesHandler creates a new bibles handler
func NewBiblesHandler(lib *library.Library) *BiblesHandler {
	return &BiblesHandler{lib: lib}
}

// verseParams is the verse position in a request path or query
type verseParams struct {
	Book    int
	Chapter int
	Verse   string
}

func (h *BiblesHandler) bible(c echo.Context, param string) (*bible.Bible, error) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid bible id")
	}
	b, ok := h.lib.Get(id)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusNotFound, "Bible not found")
	}
	return b, nil
}

func parseVerseParams(book, chapter, verse string) (verseParams, error) {
	var p verseParams
	var err error
	if p.Book, err = strconv.Atoi(book); err != nil {
		return p, echo.NewHTTPError(http.StatusBadRequest, "Invalid book number")
	}
	if p.Chapter, err = strconv.Atoi(chapter); err != nil {
		return p, echo.NewHTTPError(http.StatusBadRequest, "Invalid chapter number")
	}
	if verse == "" {
		return p, echo.NewHTTPError(http.StatusBadRequest, "Verse is required")
	}
	p.Verse = verse
	return p, nil
}

func pathVerse(c echo.Context) (verseParams, error) {
	return parseVerseParams(c.Param("book"), c.Param("chapter"), c.Param("verse"))
}

// List handles GET /bibles
func (h *BiblesHandler) List(c echo.Context) error {
	bibles := h.lib.List()
	out := make([]models.BibleSummary, 0, len(bibles))
	for _, b := range bibles {
		out = append(out, models.NewBibleSummary(b))
	}
	return c.JSON(http.StatusOK, out)
}

// Get handles GET /bibles/:id
func (h *BiblesHandler) Get(c echo.Context) error {
	b, err := h.bible(c, "id")
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, models.NewBibleDetail(b))
}

// verseHandler adapts a navigation method to an endpoint
func (h *BiblesHandler) verseHandler(find func(b *bible.Bible, p verseParams) (*bible.LocatedVerse, bool)) echo.HandlerFunc {
	return func(c echo.Context) error {
		b, err := h.bible(c, "id")
		if err != nil {
			return err
		}
		p, err := pathVerse(c)
		if err != nil {
			return err
		}
		lv, ok := find(b, p)
		if !ok {
			return echo.NewHTTPError(http.StatusNotFound, "Verse not found")
		}
		return c.JSON(http.StatusOK, models.NewVerseCitation(lv))
	}
}

// tripletHandler adapts a triplet navigation method to an endpoint
func (h *BiblesHandler) tripletHandler(find func(b *bible.Bible, p verseParams) (*bible.LocatedVerseTriplet, bool)) echo.HandlerFunc {
	return func(c echo.Context) error {
		b, err := h.bible(c, "id")
		if err != nil {
			return err
		}
		p, err := pathVerse(c)
		if err != nil {
			return err
		}
		t, ok := find(b, p)
		if !ok {
			return echo.NewHTTPError(http.StatusNotFound, "Verse not found")
		}
		return c.JSON(http.StatusOK, models.NewTripletResponse(t))
	}
}

// Lookup handles GET /bibles/:id/lookup?ref=John+3:16
func (h *BiblesHandler) Lookup(c echo.Context) error {
	b, err := h.bible(c, "id")
	if err != nil {
		return err
	}
	ref := c.QueryParam("ref")
	if ref == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "ref is required")
	}

	lv, err := reference.Lookup(b, ref)
	if errors.Is(err, reference.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, models.NewVerseCitation(lv))
}

// Match handles GET /bibles/:id/match?from=&book=&chapter=&verse= - the
// triplet in this bible at the position of a verse in another bible
func (h *BiblesHandler) Match(c echo.Context) error {
	target, err := h.bible(c, "id")
	if err != nil {
		return err
	}
	fromID, err := uuid.Parse(c.QueryParam("from"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid from bible id")
	}
	from, ok := h.lib.Get(fromID)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "Source bible not found")
	}
	p, err := parseVerseParams(c.QueryParam("book"), c.QueryParam("chapter"), c.QueryParam("verse"))
	if err != nil {
		return err
	}

	source, ok := from.Triplet(p.Book, p.Chapter, p.Verse)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "Verse not found in source bible")
	}
	t, ok := target.MatchingTriplet(source)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "No matching verse")
	}
	return c.JSON(http.StatusOK, models.NewTripletResponse(t))
}

// RegisterRoutes registers bible and navigation routes
func (h *BiblesHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/bibles", h.List)
	g.GET("/bibles/:id", h.Get)
	g.GET("/bibles/:id/lookup", h.Lookup)
	g.GET("/bibles/:id/match", h.Match)

	verse := "/bibles/:id/verses/:book/:chapter/:verse"
	g.GET(verse, h.verseHandler(func(b *bible.Bible, p verseParams) (*bible.LocatedVerse, bool) {
		return b.Verse(p.Book, p.Chapter, p.Verse)
	}))
	g.GET(verse+"/next", h.verseHandler(func(b *bible.Bible, p verseParams) (*bible.LocatedVerse, bool) {
		return b.NextVerse(p.Book, p.Chapter, p.Verse)
	}))
	g.GET(verse+"/previous", h.verseHandler(func(b *bible.Bible, p verseParams) (*bible.LocatedVerse, bool) {
		return b.PreviousVerse(p.Book, p.Chapter, p.Verse)
	}))
	g.GET(verse+"/triplet", h.tripletHandler(func(b *bible.Bible, p verseParams) (*bible.LocatedVerseTriplet, bool) {
		return b.Triplet(p.Book, p.Chapter, p.Verse)
	}))
	g.GET(verse+"/triplet/next", h.tripletHandler(func(b *bible.Bible, p verseParams) (*bible.LocatedVerseTriplet, bool) {
		return b.NextTriplet(p.Book, p.Chapter, p.Verse)
	}))
	g.GET(verse+"/triplet/previous", h.tripletHandler(func(b *bible.Bible, p verseParams) (*bible.LocatedVerseTriplet, bool) {
		return b.PreviousTriplet(p.Book, p.Chapter, p.Verse)
	}))
}
