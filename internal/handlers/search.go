package handlers

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/sola-scriptura-text-search/internal/models"
	"github.com/sola-scriptura-text-search/internal/services"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsMaxMessage   = 4096
)

// SearchHandler handles search endpoints
type SearchHandler struct {
	search   *services.BibleSearchService
	upgrader websocket.Upgrader
}

// NewSearchHandler creates a new search handler. Websocket upgrades are
// accepted from the given origins; "*" allows any.
func NewSearchHandler(search *services.BibleSearchService, allowedOrigins []string) *SearchHandler {
	return &SearchHandler{
		search: search,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}

// Search handles POST /search - verse text search
func (h *SearchHandler) Search(c echo.Context) error {
	ctx := c.Request().Context()

	var req models.SearchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	criteria, err := h.criteria(req)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	rs, err := h.search.Search(ctx, criteria)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Search failed: "+err.Error())
	}

	return c.JSON(http.StatusOK, models.NewSearchResponse(req.Query, criteria.Type, rs))
}

func (h *SearchHandler) criteria(req models.SearchRequest) (models.SearchCriteria, error) {
	criteria, err := req.Criteria()
	if err != nil {
		return criteria, err
	}
	return h.search.Normalize(criteria)
}

// SearchStream handles GET /search/ws. Each text message is a search; a new
// search supersedes the one in flight, whose reply is never sent.
func (h *SearchHandler) SearchStream(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader has already written the error response
		return nil
	}
	defer conn.Close()
	conn.SetReadLimit(wsMaxMessage)

	var (
		writeMu sync.Mutex
		wg      sync.WaitGroup
	)
	defer wg.Wait()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	session := services.NewSearchSession(h.search)
	defer session.Close()

	reply := func(r models.SearchReply) {
		writeMu.Lock()
		defer writeMu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(r); err != nil {
			c.Logger().Warnf("Search reply failed: %v", err)
		}
	}

	for {
		var msg models.SearchMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.Logger().Warnf("Search stream closed: %v", err)
			}
			return nil
		}

		criteria, err := h.criteria(msg.SearchRequest)
		if err != nil {
			reply(models.SearchReply{Seq: msg.Seq, Generation: session.Generation(), Error: err.Error()})
			continue
		}

		gen, future := session.Submit(ctx, criteria)
		wg.Add(1)
		go func(seq uint64, query string) {
			defer wg.Done()
			rs, err := future.Wait(ctx)
			if !session.IsCurrent(gen) {
				return
			}
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				reply(models.SearchReply{Seq: seq, Generation: gen, Error: err.Error()})
				return
			}
			resp := models.NewSearchResponse(query, criteria.Type, rs)
			reply(models.SearchReply{Seq: seq, Generation: gen, Response: &resp})
		}(msg.Seq, msg.Query)
	}
}

// RegisterRoutes registers search routes
func (h *SearchHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/search", h.Search)
	g.GET("/search/ws", h.SearchStream)
}
