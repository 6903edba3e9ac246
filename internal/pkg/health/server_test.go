package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Vodeneev/sharpedge/internal/pipeline"
	"github.com/Vodeneev/sharpedge/internal/pkg/alias"
	"github.com/Vodeneev/sharpedge/internal/pkg/enums"
	"github.com/Vodeneev/sharpedge/internal/pkg/metrics"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	table, err := alias.NewTable(alias.File{
		Teams:   []alias.Team{{ID: "nba-bos", League: enums.NBA, Name: "Boston Celtics"}},
		Markets: map[string]enums.MarketType{"moneyline": enums.Moneyline},
	})
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	return NewServer("pipeline", alias.NewStaticStore(table), metrics.NewPipelineMetrics().Handler())
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestPing(t *testing.T) {
	rec := get(t, newTestServer(t).Router(), "/ping")
	if rec.Code != http.StatusOK || rec.Body.String() != "pong\n" {
		t.Errorf("GET /ping = %d %q", rec.Code, rec.Body.String())
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		report     *pipeline.CycleReport
		wantCode   int
		wantStatus string
	}{
		{"no cycle yet", nil, http.StatusOK, "ok"},
		{"done", &pipeline.CycleReport{ID: "c1", State: pipeline.StateDone}, http.StatusOK, "ok"},
		{"degraded", &pipeline.CycleReport{ID: "c2", State: pipeline.StateDone, Degraded: true}, http.StatusOK, "degraded"},
		{"all books failed", &pipeline.CycleReport{ID: "c3", State: pipeline.StateResolving, Degraded: true}, http.StatusServiceUnavailable, "failing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			s.SetLastReport(tt.report)

			rec := get(t, s.Router(), "/health")
			if rec.Code != tt.wantCode {
				t.Errorf("code = %d, want %d", rec.Code, tt.wantCode)
			}
			var resp healthResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Status != tt.wantStatus || resp.AliasVersion != 1 {
				t.Errorf("status = %q alias_version = %d, want %q and 1", resp.Status, resp.AliasVersion, tt.wantStatus)
			}
		})
	}
}

func TestLastCycle(t *testing.T) {
	s := newTestServer(t)
	router := s.Router()

	if rec := get(t, router, "/cycles/last"); rec.Code != http.StatusNotFound {
		t.Errorf("before first cycle code = %d, want 404", rec.Code)
	}

	s.SetLastReport(&pipeline.CycleReport{
		ID:              "cycle-1",
		State:           pipeline.StateDone,
		ComparisonCount: 3,
		FinishedAt:      time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC),
	})
	rec := get(t, router, "/cycles/last")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"id":"cycle-1"`) || !strings.Contains(rec.Body.String(), `"comparisons":3`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestAliasVersionAndMetrics(t *testing.T) {
	router := newTestServer(t).Router()

	rec := get(t, router, "/aliases/version")
	var stats alias.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.Version != 1 || stats.Teams != 1 {
		t.Errorf("stats = %+v", stats)
	}

	rec = get(t, router, "/metrics")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "sharpedge_skipped_triggers_total") {
		t.Errorf("GET /metrics = %d, body missing pipeline metrics", rec.Code)
	}
}

func TestAddrFor(t *testing.T) {
	if addr, err := AddrFor(8080); err != nil || addr != ":8080" {
		t.Errorf("AddrFor(8080) = %q, %v", addr, err)
	}
	if _, err := AddrFor(0); err == nil {
		t.Error("AddrFor(0) should fail")
	}
}
