package api

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/MJE43/moonrock-orbs/internal/engine"
	"github.com/MJE43/moonrock-orbs/internal/game"
	"github.com/MJE43/moonrock-orbs/internal/orbs"
	"github.com/MJE43/moonrock-orbs/internal/store"
)

// HealthStatus is the outcome of one probe or of the whole report.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// worse orders statuses so a report takes its worst probe.
func (h HealthStatus) worse(o HealthStatus) HealthStatus {
	rank := map[HealthStatus]int{HealthStatusHealthy: 0, HealthStatusDegraded: 1, HealthStatusUnhealthy: 2}
	if rank[o] > rank[h] {
		return o
	}
	return h
}

// HealthCheckResponse is the body of GET /health.
type HealthCheckResponse struct {
	Status    HealthStatus           `json:"status"`
	Timestamp string                 `json:"timestamp"`
	Uptime    string                 `json:"uptime"`
	Checks    map[string]HealthCheck `json:"checks"`
	System    SystemInfo             `json:"system"`
	RequestID string                 `json:"request_id,omitempty"`
	VersionInfo
}

// HealthCheck is one probe's result.
type HealthCheck struct {
	Status      HealthStatus `json:"status"`
	Message     string       `json:"message,omitempty"`
	LastChecked string       `json:"last_checked"`
	Duration    string       `json:"duration,omitempty"`
}

// SystemInfo is process and session-cache state.
type SystemInfo struct {
	GoVersion   string `json:"go_version"`
	Goroutines  int    `json:"goroutines"`
	HeapBytes   uint64 `json:"heap_bytes"`
	GCCycles    uint32 `json:"gc_cycles"`
	LoadedRuns  int    `json:"loaded_runs"`
	StoredRuns  int    `json:"stored_runs"`
	CatalogSize int    `json:"catalog_size"`
}

type probe func() (HealthStatus, string)

func timed(p probe) HealthCheck {
	start := time.Now()
	status, msg := p()
	return HealthCheck{
		Status:      status,
		Message:     msg,
		LastChecked: time.Now().UTC().Format(time.RFC3339),
		Duration:    time.Since(start).String(),
	}
}

func (s *Server) probes() map[string]probe {
	return map[string]probe{
		"catalog":  s.probeCatalog,
		"rng":      s.probeRNG,
		"database": s.probeDatabase,
	}
}

// GET /health
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetReqID(r.Context())

	overall := HealthStatusHealthy
	checks := make(map[string]HealthCheck)
	for name, p := range s.probes() {
		c := timed(p)
		checks[name] = c
		overall = overall.worse(c.Status)
	}

	status := http.StatusOK
	if overall == HealthStatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	s.securityLogger.LogAuditEvent(requestID, "health_check", "system", string(overall), map[string]interface{}{
		"checks":      len(checks),
		"status_code": status,
	})

	s.writeJSON(w, status, HealthCheckResponse{
		Status:      overall,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Uptime:      time.Since(s.startTime).Round(time.Second).String(),
		Checks:      checks,
		System:      s.systemInfo(),
		RequestID:   requestID,
		VersionInfo: GetVersionInfo(),
	})
}

// GET /health/ready: ready once the database answers.
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	db := timed(s.probeDatabase)
	ready := db.Status == HealthStatusHealthy

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, map[string]interface{}{
		"ready":          ready,
		"message":        db.Message,
		"engine_version": EngineVersion,
		"request_id":     middleware.GetReqID(r.Context()),
	})
}

// GET /health/live
func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"alive":          true,
		"uptime":         time.Since(s.startTime).Round(time.Second).String(),
		"engine_version": EngineVersion,
		"request_id":     middleware.GetReqID(r.Context()),
	})
}

func (s *Server) probeCatalog() (HealthStatus, string) {
	all := orbs.All()
	if err := orbs.Validate(all); err != nil {
		return HealthStatusUnhealthy, err.Error()
	}
	return HealthStatusHealthy, fmt.Sprintf("%d orbs, pool of %d, first milestone %d", len(all), orbs.PoolSize(all), game.MilestoneFor(1))
}

// probeRNG checks that a fixed seed pair still draws the same indices and
// that pulls follow the raw float derivation.
func (s *Server) probeRNG() (HealthStatus, string) {
	seeds := engine.Seeds{Server: "health", Client: "health"}
	n := orbs.PoolSize(orbs.All())
	a := engine.NewStream(seeds, 1).Sample(3, n)
	b := engine.NewStream(seeds, 1).Sample(3, n)
	for i := range a {
		if a[i] != b[i] {
			return HealthStatusUnhealthy, "stream is not reproducible"
		}
	}

	stream := engine.NewStream(seeds, 2)
	for i, f := range engine.Floats(seeds, 2, 0, 3) {
		if got, want := stream.Pick(n), int(f*float64(n)); got != want {
			return HealthStatusUnhealthy, fmt.Sprintf("pick %d drew %d, floats say %d", i, got, want)
		}
	}
	return HealthStatusHealthy, "stream reproducible"
}

func (s *Server) probeDatabase() (HealthStatus, string) {
	if s.db == nil {
		return HealthStatusUnhealthy, "database not initialized"
	}
	list, err := s.db.ListRuns(store.RunsQuery{Page: 1, PerPage: 1})
	if err != nil {
		return HealthStatusUnhealthy, "database query failed: " + err.Error()
	}
	return HealthStatusHealthy, fmt.Sprintf("%d runs stored", list.TotalCount)
}

func (s *Server) systemInfo() SystemInfo {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	info := SystemInfo{
		GoVersion:   runtime.Version(),
		Goroutines:  runtime.NumGoroutine(),
		HeapBytes:   m.HeapAlloc,
		GCCycles:    m.NumGC,
		LoadedRuns:  s.sessions.Loaded(),
		CatalogSize: orbs.Size,
	}
	if s.db != nil {
		if list, err := s.db.ListRuns(store.RunsQuery{Page: 1, PerPage: 1}); err == nil {
			info.StoredRuns = list.TotalCount
		}
	}
	return info
}
