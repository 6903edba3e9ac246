package health

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/Vodeneev/sharpedge/internal/pipeline"
)

func handlePing(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("pong\n"))
}

type healthResponse struct {
	Status       string         `json:"status"`
	Service      string         `json:"service"`
	Uptime       string         `json:"uptime"`
	AliasVersion uint64         `json:"alias_version"`
	LastCycle    *cycleHeadline `json:"last_cycle,omitempty"`
}

type cycleHeadline struct {
	ID         string         `json:"id"`
	State      pipeline.State `json:"state"`
	Degraded   bool           `json:"degraded"`
	FinishedAt time.Time      `json:"finished_at"`
}

// handleHealth answers 503 when the last cycle did not reach DONE.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{
		Status:  "ok",
		Service: s.service,
		Uptime:  time.Since(s.started).Round(time.Second).String(),
	}
	if s.aliases != nil {
		if t := s.aliases.Current(); t != nil {
			resp.AliasVersion = t.Version()
		}
	}

	code := http.StatusOK
	if last := s.last.Load(); last != nil {
		resp.LastCycle = &cycleHeadline{ID: last.ID, State: last.State, Degraded: last.Degraded, FinishedAt: last.FinishedAt}
		switch last.Outcome() {
		case "failed":
			resp.Status = "failing"
			code = http.StatusServiceUnavailable
		case "degraded":
			resp.Status = "degraded"
		}
	}
	writeJSON(w, code, resp)
}

func (s *Server) handleLastCycle(w http.ResponseWriter, _ *http.Request) {
	last := s.last.Load()
	if last == nil {
		http.Error(w, "no cycle has finished yet", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, last)
}

func (s *Server) handleAliasVersion(w http.ResponseWriter, _ *http.Request) {
	if s.aliases == nil || s.aliases.Current() == nil {
		http.Error(w, "alias table not loaded", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, s.aliases.Current().Stats())
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to encode response", "error", err)
	}
}
