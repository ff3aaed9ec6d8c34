package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mixdispatch/api/internal/services"
)

func TestRouter_Healthz(t *testing.T) {
	router := NewRouter()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected body: %s", resp.Body.String())
	}
}

func TestRouter_MountsConfiguredGroup(t *testing.T) {
	fleet := &stubFleetService{}
	fleet.listDriversFn = func(context.Context, bool) ([]services.Driver, error) {
		return []services.Driver{{ID: "drv_1", Name: "Jan Novak"}}, nil
	}
	router := NewRouter(
		WithFleetRoutes(NewFleetHandlers(fleet).Routes),
	)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/fleet/drivers", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), "drv_1") {
		t.Fatalf("unexpected body: %s", resp.Body.String())
	}
}

func TestRouter_UnconfiguredGroupReturnsNotImplemented(t *testing.T) {
	router := NewRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotImplemented {
		t.Fatalf("expected 501, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "not_implemented") {
		t.Fatalf("unexpected body: %s", resp.Body.String())
	}
}

func TestRouter_UnknownRouteReturnsJSONError(t *testing.T) {
	router := NewRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v2/nowhere", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "route_not_found") {
		t.Fatalf("unexpected body: %s", resp.Body.String())
	}
	if contentType := resp.Header().Get("Content-Type"); !strings.Contains(contentType, "application/json") {
		t.Fatalf("unexpected content type: %s", contentType)
	}
}

func TestRouter_ExportGroupMiddleware(t *testing.T) {
	svc := &stubExportService{}
	called := false
	marker := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			next.ServeHTTP(w, r)
		})
	}
	router := NewRouter(
		WithExportRoutes(NewExportHandlers(svc).Routes),
		WithExportMiddlewares(marker),
	)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/exports/orders", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if !called {
		t.Fatal("expected export middleware to run")
	}
	// Empty body is rejected after the middleware chain.
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", resp.Code, resp.Body.String())
	}
}
