package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// HealthHandler returns an http.Handler that always responds with 200 OK.
func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("failed to write health response", "error", err)
		}
	}
}

// HealthCheck is one named probe in a health report.
type HealthCheck struct {
	Name        string
	Description string
	Check       func(ctx context.Context) error
}

// Health statuses.
const (
	StatusHealthy   = "Healthy"
	StatusUnhealthy = "Unhealthy"
)

// HealthEntry is the result of one check.
type HealthEntry struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	Description string `json:"description"`
}

// HealthReport aggregates every check.
type HealthReport struct {
	Status        string        `json:"status"`
	Checks        []HealthEntry `json:"checks"`
	TotalDuration string        `json:"totalDuration"`
}

// HealthReportHandler runs every check and writes a HealthReport.
// Any failing check makes the report Unhealthy and the status 503.
func HealthReportHandler(timeout time.Duration, checks ...HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ctx := r.Context()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		report := HealthReport{
			Status: StatusHealthy,
			Checks: make([]HealthEntry, 0, len(checks)),
		}

		for _, c := range checks {
			entry := HealthEntry{Name: c.Name, Status: StatusHealthy, Description: c.Description}
			if err := c.Check(ctx); err != nil {
				entry.Status = StatusUnhealthy
				entry.Description = err.Error()
				report.Status = StatusUnhealthy
			}
			report.Checks = append(report.Checks, entry)
		}

		report.TotalDuration = time.Since(start).String()

		status := http.StatusOK
		if report.Status != StatusHealthy {
			status = http.StatusServiceUnavailable
		}
		if err := WriteJSON(w, status, report); err != nil {
			slog.Error("failed to write health report", "error", err)
		}
	}
}
