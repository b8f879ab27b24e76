package scenario

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/callcoach/backend/internal/model/practice"
)

func setupRouter() *chi.Mux {
	r := chi.NewRouter()
	New(practice.NewMemoryStore(practice.Seed())).RegisterRoutes(r)
	return r
}

func TestListScenarios(t *testing.T) {
	r := setupRouter()

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/scenarios", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var scenarios []practice.Scenario
	if err := json.Unmarshal(resp.Body.Bytes(), &scenarios); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(scenarios) != 3 || scenarios[0].ID != "cold-calling" {
		t.Fatalf("unexpected scenarios: %+v", scenarios)
	}
}

func TestGetScenarioNotFound(t *testing.T) {
	r := setupRouter()

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/scenarios/missing", nil))

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestListPillars(t *testing.T) {
	r := setupRouter()

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/pillars", nil))

	var pillars []practice.Pillar
	if err := json.Unmarshal(resp.Body.Bytes(), &pillars); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(pillars) != 5 {
		t.Fatalf("expected 5 pillars, got %d", len(pillars))
	}
}
