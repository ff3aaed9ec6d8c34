package handlers

import (
	"fmt"
	"net/http"
	"sort"
	"time"

	domain "github.com/mixdispatch/api/internal/domain"
	"github.com/mixdispatch/api/internal/services"
)

var startTime = time.Now()

// HealthHandlers serves the liveness and readiness probes.
type HealthHandlers struct {
	system services.SystemService
	clock  func() time.Time
	start  time.Time
}

// HealthOption customises the health handlers.
type HealthOption func(*HealthHandlers)

// NewHealthHandlers constructs the probe handlers. Without a system service
// the readiness probe degrades to the liveness payload.
func NewHealthHandlers(opts ...HealthOption) *HealthHandlers {
	h := &HealthHandlers{
		clock: time.Now,
		start: startTime,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// WithHealthSystemService wires the dependency-probing service into readyz.
func WithHealthSystemService(system services.SystemService) HealthOption {
	return func(h *HealthHandlers) {
		h.system = system
	}
}

// WithHealthClock overrides the time source, used in tests.
func WithHealthClock(clock func() time.Time) HealthOption {
	return func(h *HealthHandlers) {
		if clock != nil {
			h.clock = clock
		}
	}
}

// WithHealthStartTime overrides the process start used for the uptime field.
func WithHealthStartTime(start time.Time) HealthOption {
	return func(h *HealthHandlers) {
		h.start = start
	}
}

// Healthz reports process liveness without touching any dependency.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	now := h.clock()
	payload := map[string]any{
		"status":    string(domain.HealthStatusOK),
		"uptime":    now.Sub(h.start).String(),
		"timestamp": now.UTC().Format(time.RFC3339),
	}
	writeJSONResponse(w, http.StatusOK, payload)
}

type readyzCheckPayload struct {
	Status    string `json:"status"`
	Detail    string `json:"detail,omitempty"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
	CheckedAt string `json:"checked_at,omitempty"`
}

type readyzResponse struct {
	Status      string                        `json:"status"`
	Checks      map[string]readyzCheckPayload `json:"checks,omitempty"`
	Details     []string                      `json:"details"`
	GeneratedAt string                        `json:"generated_at,omitempty"`
}

// Readyz probes the record store and the other wired dependencies and
// returns 503 until all of them answer.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	if h.system == nil {
		h.Healthz(w, r)
		return
	}

	report, err := h.system.Health(r.Context())
	if err != nil {
		writeJSONResponse(w, http.StatusServiceUnavailable, readyzResponse{
			Status:  string(domain.HealthStatusError),
			Details: []string{err.Error()},
		})
		return
	}

	response := readyzResponse{
		Status:      string(report.Status),
		Checks:      make(map[string]readyzCheckPayload, len(report.Checks)),
		Details:     []string{},
		GeneratedAt: formatTime(report.GeneratedAt),
	}

	names := make([]string, 0, len(report.Checks))
	for name := range report.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		check := report.Checks[name]
		response.Checks[name] = readyzCheckPayload{
			Status:    string(check.Status),
			Detail:    check.Detail,
			Error:     check.Error,
			LatencyMS: check.Latency.Milliseconds(),
			CheckedAt: formatTime(check.CheckedAt),
		}
		if check.Status != domain.HealthStatusOK {
			response.Details = append(response.Details, fmt.Sprintf("%s: %s", name, check.Error))
		}
	}

	status := http.StatusOK
	if report.Status != domain.HealthStatusOK {
		status = http.StatusServiceUnavailable
	}
	writeJSONResponse(w, status, response)
}
