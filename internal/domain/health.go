package domain

import "time"

// HealthStatus grades the outcome of a dependency probe.
type HealthStatus string

const (
	// HealthStatusOK means the dependency answered in time.
	HealthStatusOK HealthStatus = "ok"
	// HealthStatusDegraded means the dependency answered with an error.
	HealthStatusDegraded HealthStatus = "degraded"
	// HealthStatusError means the dependency timed out or was cancelled.
	HealthStatusError HealthStatus = "error"
)

// SystemHealthCheck is the result of probing one dependency.
type SystemHealthCheck struct {
	Status    HealthStatus
	Detail    string
	Error     string
	Latency   time.Duration
	CheckedAt time.Time
}

// SystemHealthReport aggregates dependency probes for readiness endpoints.
type SystemHealthReport struct {
	Status      HealthStatus
	Checks      map[string]SystemHealthCheck
	GeneratedAt time.Time
}
