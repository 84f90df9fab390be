package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sola-scriptura-text-search/pkg/schema/db"
)

// DocCounter reports the size of the text index
type DocCounter interface {
	DocCount(ctx context.Context) (uint64, error)
}

// HealthHandler handles health check endpoints
type HealthHandler struct {
	index  DocCounter
	bibles func() int
}

// NewHealthHandler creates a new health handler. bibles reports how many
// bibles are loaded.
func NewHealthHandler(index DocCounter, bibles func() int) *HealthHandler {
	return &HealthHandler{index: index, bibles: bibles}
}

// HealthResponse is the response for basic health check
type HealthResponse struct {
	Status string `json:"status"`
}

// IndexHealthResponse is the response for the text index health check
type IndexHealthResponse struct {
	Status    string `json:"status"`
	Documents uint64 `json:"documents"`
	Bibles    int    `json:"bibles"`
}

// DatabaseHealthResponse is the response for database health check
type DatabaseHealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status: "healthy",
	})
}

// IndexHealth handles GET /health/index
func (h *HealthHandler) IndexHealth(c echo.Context) error {
	n, err := h.index.DocCount(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "error",
			"error":  err.Error(),
		})
	}

	resp := IndexHealthResponse{Status: "ready", Documents: n}
	if h.bibles != nil {
		resp.Bibles = h.bibles()
	}
	return c.JSON(http.StatusOK, resp)
}

// PostgresHealth handles GET /health/postgres
func (h *HealthHandler) PostgresHealth(c echo.Context) error {
	if !db.PostgresEnabled() {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "not_configured",
			"error":  "PostgreSQL is not configured",
		})
	}

	pgDB := db.GetPostgres()
	if pgDB == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "error",
			"error":  "PostgreSQL connection not available",
		})
	}

	if err := pgDB.PingContext(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "error",
			"error":  err.Error(),
		})
	}

	return c.JSON(http.StatusOK, DatabaseHealthResponse{
		Status:   "connected",
		Database: "postgres",
	})
}

// RegisterRoutes registers health check routes
func (h *HealthHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/health", h.Health)
	g.GET("/health/index", h.IndexHealth)
	g.GET("/health/postgres", h.PostgresHealth)
}
