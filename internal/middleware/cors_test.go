package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/sola-scriptura-text-search/internal/config"
)

func preflight(t *testing.T, origins []string, origin string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	e.Use(CORSMiddleware(&config.Config{CORSOrigins: origins}))
	e.POST("/search", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/search", nil)
	req.Header.Set(echo.HeaderOrigin, origin)
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodPost)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestCORSListedOrigin(t *testing.T) {
	rec := preflight(t, []string{"https://app.example"}, "https://app.example")

	if got := rec.Header().Get(echo.HeaderAccessControlAllowOrigin); got != "https://app.example" {
		t.Fatalf("allow origin = %q", got)
	}
	if got := rec.Header().Get(echo.HeaderAccessControlAllowCredentials); got != "true" {
		t.Fatalf("allow credentials = %q", got)
	}
}

func TestCORSWildcardWithoutCredentials(t *testing.T) {
	rec := preflight(t, []string{"*"}, "https://elsewhere.example")

	if got := rec.Header().Get(echo.HeaderAccessControlAllowOrigin); got != "*" {
		t.Fatalf("allow origin = %q", got)
	}
	if got := rec.Header().Get(echo.HeaderAccessControlAllowCredentials); got != "" {
		t.Fatalf("credentials must not be allowed with a wildcard, got %q", got)
	}
}

func TestCORSUnlistedOrigin(t *testing.T) {
	rec := preflight(t, []string{"https://app.example"}, "https://evil.example")

	if got := rec.Header().Get(echo.HeaderAccessControlAllowOrigin); got != "" {
		t.Fatalf("unexpected allow origin %q", got)
	}
}
