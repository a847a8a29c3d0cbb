package server

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"backoffice.GO/api"
	"backoffice.GO/config"
	"backoffice.GO/core/auth"
	"backoffice.GO/core/cache"
	"backoffice.GO/core/testdb"
	entity "backoffice.GO/model/entity"
	authRepo "backoffice.GO/model/repository/auth"
	"backoffice.GO/service/audit"
)

func newServer(t *testing.T) (*echo.Echo, *api.Deps) {
	t.Helper()
	t.Setenv("AUTH_TYPE", "basic")
	t.Setenv("API_USER", "office")
	t.Setenv("API_PASS", "secret")
	db := testdb.Open(t)
	d, err := api.NewDeps(db, config.FromEnv(), audit.NewRecorder(db, nil), cache.NewCache(), zap.NewNop())
	if err != nil {
		t.Fatalf("NewDeps: %v", err)
	}
	return New(d), d
}

func do(e *echo.Echo, method, path, user string, withAuth bool, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if withAuth {
		req.SetBasicAuth("office", "secret")
	}
	if user != "" {
		req.Header.Set(auth.UserHeader, user)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHealth_SkipsAuth(t *testing.T) {
	e, _ := newServer(t)
	rec := do(e, http.MethodGet, "/health", "", false, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get(echo.HeaderXRequestID) == "" {
		t.Error("missing request id header")
	}
}

func TestAPI_RequiresCredentials(t *testing.T) {
	e, _ := newServer(t)
	if rec := do(e, http.MethodGet, "/api/catalog/categories", "", false, ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("no credentials status = %d, want 401", rec.Code)
	}
	if rec := do(e, http.MethodGet, "/api/catalog/categories", "", true, ""); rec.Code != http.StatusOK {
		t.Errorf("service account status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if rec := do(e, http.MethodGet, "/api/catalog/categories", "ghost", true, ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("unknown X-User status = %d, want 401", rec.Code)
	}
}

func TestAPI_EnforcesRolePermissions(t *testing.T) {
	e, d := newServer(t)
	repo := authRepo.NewAuthRepository(d.DB)
	viewer, err := repo.EnsureRole("viewer", "read only", []string{entity.PermInventoryRead})
	if err != nil {
		t.Fatalf("EnsureRole: %v", err)
	}
	if err := repo.CreateUser(&entity.User{Username: "ana", RoleID: &viewer.ID, IsActive: true}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	p := testdb.Product(t, d.DB, "CAP", "25", false)

	body := fmt.Sprintf(`{"product_id":%d,"movement_type":"in","quantity":3}`, p.ID)
	rec := do(e, http.MethodPost, "/api/inventory/movements", "ana", true, body)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("write as viewer status = %d, want 403", rec.Code)
	}
	rec = do(e, http.MethodGet, fmt.Sprintf("/api/inventory/availability?product_id=%d", p.ID), "ana", true, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("read as viewer status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get(api.DurationHeader) == "" {
		t.Error("missing duration header")
	}
	if got := testdb.Stock(t, d.DB, p.ID, 0); got != 0 {
		t.Errorf("stock = %d after rejected write, want 0", got)
	}
}
