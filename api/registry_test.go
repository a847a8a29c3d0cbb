package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"backoffice.GO/core/apperr"
)

func TestMount_AppliesModulesInOrder(t *testing.T) {
	var order []string
	first := func(g *echo.Group, _ *Deps) {
		order = append(order, "first")
		g.GET("/check", func(c echo.Context) error {
			return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
		})
	}
	second := func(*echo.Group, *Deps) { order = append(order, "second") }

	e := echo.New()
	Mount(e.Group("/api"), &Deps{}, first, second)
	MountRoutes(e, &Deps{}, GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") }))

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("order = %v", order)
	}
	for _, path := range []string{"/api/check", "/ping"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status = %d, want 200", path, rec.Code)
		}
	}
}

func TestStatusOf(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{apperr.Validation("bad"), http.StatusUnprocessableEntity},
		{apperr.NotFound("gone"), http.StatusNotFound},
		{apperr.Consistency("stale"), http.StatusConflict},
		{apperr.Configuration("no price"), http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := StatusOf(tc.err); got != tc.want {
			t.Errorf("StatusOf(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestHTTPErrorHandler_HidesInternalErrors(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = HTTPErrorHandler(zap.NewNop())
	e.GET("/boom", func(echo.Context) error { return errors.New("dsn password leaked") })
	e.GET("/bad", func(echo.Context) error { return apperr.Validation("quantity must be positive") })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, apperr.GenericMessage) || strings.Contains(body, "password") {
		t.Errorf("body = %s", body)
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/bad", nil))
	if rec.Code != http.StatusUnprocessableEntity || !strings.Contains(rec.Body.String(), "quantity must be positive") {
		t.Errorf("status = %d body = %s", rec.Code, rec.Body.String())
	}
}

func TestQueryTime_DateOnlyUpperBound(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?to=2025-03-03&bad=x", nil), httptest.NewRecorder())
	to, err := QueryTime(c, "to", true)
	if err != nil {
		t.Fatalf("QueryTime: %v", err)
	}
	if want := time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC); !to.Equal(want) {
		t.Errorf("to = %v, want %v", to, want)
	}
	if _, err := QueryTime(c, "bad", false); !apperr.IsValidation(err) {
		t.Errorf("err = %v, want validation", err)
	}
}
