// Package apitest serves /api modules over httptest with a migrated sqlite database.
package apitest

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"backoffice.GO/api"
	"backoffice.GO/config"
	"backoffice.GO/core/cache"
	"backoffice.GO/core/testdb"
	"backoffice.GO/service/audit"
)

type Server struct {
	Echo *echo.Echo
	Deps *api.Deps
	DB   *gorm.DB
}

// New mounts modules under /api without authentication, so requests act as
// the shared service account.
func New(t testing.TB, modules ...api.Module) *Server {
	t.Helper()
	db := testdb.Open(t)
	cfg := config.FromEnv()
	cfg.Reservation.BusinessDays = false
	deps, err := api.NewDeps(db, cfg, audit.NewRecorder(db, nil), cache.NewCache(), zap.NewNop())
	if err != nil {
		t.Fatalf("NewDeps: %v", err)
	}
	e := echo.New()
	e.HTTPErrorHandler = api.HTTPErrorHandler(deps.Logger)
	api.Mount(e.Group("/api"), deps, modules...)
	return &Server{Echo: e, Deps: deps, DB: db}
}

// Do sends body as JSON and returns the recorded response.
func (s *Server) Do(t testing.TB, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	return rec
}

// Decode unmarshals the response body into v.
func Decode(t testing.TB, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

// Expect fails the test when the status differs.
func Expect(t testing.TB, rec *httptest.ResponseRecorder, status int) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d; body = %s", rec.Code, status, rec.Body.String())
	}
}
